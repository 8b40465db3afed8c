package simserver

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"code.rereg.org/golang/internal/observability"
	"code.rereg.org/golang/internal/transport"
	"code.rereg.org/golang/internal/utils"
	"code.rereg.org/golang/pkg/wire"
)

type socket struct {
	address string
	conn    *transport.WebSocketConn
	log     *slog.Logger

	mut     sync.Mutex
	closeOn int64 // id of the delivered message request
}

func (self *Server) serveProvisioning(w http.ResponseWriter, r *http.Request) {
	log := observability.GetObservability(r.Context()).Log()

	self.mut.Lock()
	closed := self.closed
	self.mut.Unlock()
	if closed {
		http.Error(w, "server closing", http.StatusServiceUnavailable)
		return
	}

	ws, err := self.upgrader.Upgrade(w, r, nil)
	if nil != err {
		// Upgrade replied to the client
		log.Warn("failed websocket upgrade", "error", err)
		return
	}

	address := uuid.NewString()
	sock := &socket{
		address: address,
		conn:    transport.NewWebSocketConn(ws),
		log:     log.With("address", address),
	}
	err = utils.RegistrySet(self.sockets, address, sock)
	if nil != err {
		log.Error("failed registering socket", "error", err)
		sock.close(websocket.CloseInternalServerErr, "internal error")
		return
	}
	defer utils.RegistryPop(self.sockets, address)
	sock.log.Info("provisioning socket connected")

	body := wire.EncodeAddress(wire.ProvisioningAddress{Address: address})
	err = sock.conn.WriteBytes(wire.EncodeRequest(self.nextID(), wire.VerbPut, wire.PathAddress, body))
	if nil != err {
		sock.log.Warn("failed sending provisioning address", "error", err)
		sock.close(websocket.CloseInternalServerErr, "internal error")
		return
	}

	sock.serve()
}

// serve reads client frames until the socket ends.
func (self *socket) serve() {
	for {
		data, err := self.conn.ReadBytes()
		if nil != err {
			self.log.Info("provisioning socket ended", "reason", err)
			self.conn.Close(websocket.CloseNormalClosure, "")
			return
		}
		msg, err := wire.Decode(data)
		if nil != err {
			self.log.Warn("invalid client frame", "error", err)
			self.close(websocket.CloseProtocolError, "invalid frame")
			return
		}

		switch msg.Type {
		case wire.TypeRequest:
			req := msg.Request
			status, text := int32(http.StatusNotFound), "Not Found"
			if wire.VerbGet == req.Verb && wire.PathKeepAlive == req.Path {
				status, text = wire.StatusOK, wire.MessageOK
			}
			err = self.conn.WriteBytes(wire.EncodeResponse(req.ID, status, text))
			if nil != err {
				self.log.Warn("failed answering client request", "path", req.Path, "error", err)
				return
			}
		case wire.TypeResponse:
			self.mut.Lock()
			closeOn := self.closeOn
			self.mut.Unlock()
			if 0 != closeOn && closeOn == msg.Response.ID {
				self.log.Info("provisioning message acknowledged")
				self.close(websocket.CloseNormalClosure, "Closed")
				return
			}
		}
	}
}

func (self *socket) deliver(id int64, body []byte) error {
	self.mut.Lock()
	self.closeOn = id
	self.mut.Unlock()

	err := self.conn.WriteBytes(wire.EncodeRequest(id, wire.VerbPut, wire.PathMessage, body))
	return wrapError(err, "failed sending provisioning message")
}

func (self *socket) close(code int, reason string) {
	err := self.conn.Close(code, reason)
	if nil != err {
		self.log.Debug("socket close", "error", err)
	}
}
