// Package simserver simulates the messaging service endpoints used while linking a device.
//
// It serves the provisioning websocket, relays provisioning messages to connected
// sockets and implements the restore_account long poll.
package simserver

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"code.rereg.org/golang/internal/observability"
	"code.rereg.org/golang/internal/session"
	"code.rereg.org/golang/internal/utils"
	"code.rereg.org/golang/pkg/provisioning"
	"code.rereg.org/golang/pkg/restore"
	"code.rereg.org/golang/pkg/wire"
)

// RestoreTokenLifetime is the minimum validity of the tokens returned by NewRestoreToken.
const RestoreTokenLifetime = 10 * time.Minute

type restoreStore = session.MemStore[session.Token, *utils.Promise[restore.RestoreMethod]]

// Server holds the simulator state, use New to obtain one.
type Server struct {
	upgrader websocket.Upgrader
	lastID   atomic.Int64
	sockets  *utils.Registry[string, *socket]
	restores *restoreStore

	mut    sync.Mutex
	closed bool
}

// New returns a Server with no connected socket.
func New() *Server {
	tokens, err := session.NewTokenFactory(RestoreTokenLifetime)
	if nil != err {
		panic(wrapError(err, "failed restore token factory creation"))
	}
	restores, err := session.NewMemStore[session.Token, *utils.Promise[restore.RestoreMethod]](tokens)
	if nil != err {
		panic(wrapError(err, "failed restore store creation"))
	}

	return &Server{
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		sockets:  utils.NewRegistry[string, *socket](),
		restores: restores,
	}
}

// Handler returns the http.Handler that serves the simulated endpoints.
func (self *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+provisioning.SocketPath, self.serveProvisioning)
	mux.HandleFunc("GET "+restore.RestoreAccountPath+"{token}", self.serveWaitRestore)
	mux.HandleFunc("PUT "+restore.RestoreAccountPath+"{token}", self.serveSetRestore)

	return observability.Middleware{}.Wrap(mux)
}

// Addresses returns the provisioning addresses of the connected sockets.
func (self *Server) Addresses() []string {
	entries := utils.RegistryEntries(self.sockets)
	rv := make([]string, 0, len(entries))
	for address := range entries {
		rv = append(rv, address)
	}
	return rv
}

// Deliver sends env to the socket that was assigned address.
// The socket is closed once the client acknowledges the message.
func (self *Server) Deliver(address string, env wire.ProvisionEnvelope) error {
	sock, found := utils.RegistryGet(self.sockets, address)
	if !found {
		return newError(ErrUnknownPeer, "no socket for address %s", address)
	}
	return sock.deliver(self.nextID(), wire.EncodeEnvelope(env))
}

// NewRestoreToken returns a token that the restore_account endpoints accept for RestoreTokenLifetime.
func (self *Server) NewRestoreToken() string {
	return self.restores.KeyFacto.New().String()
}

// SetRestoreMethod publishes method for token, waiting and future long polls receive it.
func (self *Server) SetRestoreMethod(token string, method restore.RestoreMethod) error {
	slot, err := self.restoreSlot(token)
	if nil != err {
		return err
	}
	if !slot.Resolve(method) {
		return newError(ErrConflict, "restore method already set for token")
	}
	return nil
}

// Close closes every connected socket with code 1001.
func (self *Server) Close() {
	self.mut.Lock()
	self.closed = true
	self.mut.Unlock()

	for _, sock := range utils.RegistryEntries(self.sockets) {
		sock.close(websocket.CloseGoingAway, "server closing")
	}
}

func (self *Server) nextID() int64 {
	return self.lastID.Add(1)
}

// restoreSlot returns the Promise of token. It errors if token was not issued by NewRestoreToken or has expired.
func (self *Server) restoreSlot(token string) (*utils.Promise[restore.RestoreMethod], error) {
	tok, err := session.ParseToken(token)
	if nil != err {
		return nil, wrapFlag(err, ErrInvalidToken, "invalid restore token")
	}
	slot, err := self.restores.GetOrSet(tok, utils.NewPromise[restore.RestoreMethod])
	return slot, wrapFlag(err, ErrInvalidToken, "unusable restore token")
}
