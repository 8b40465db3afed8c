package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeWriteWait = time.Second

// WebSocketConn adapts a gorilla *websocket.Conn to the Conn interface.
//
// Only binary frames are delivered by ReadBytes, text frames are dropped.
// Close frames received from the remote side are not echoed, the owner of the
// WebSocketConn decides which code to answer with.
type WebSocketConn struct {
	ws       *websocket.Conn
	wmut     sync.Mutex
	once     sync.Once
	closeErr error
}

// NewWebSocketConn wraps ws.
func NewWebSocketConn(ws *websocket.Conn) *WebSocketConn {
	ws.SetCloseHandler(func(code int, text string) error {
		return nil
	})
	return &WebSocketConn{ws: ws}
}

func (self *WebSocketConn) ReadBytes() ([]byte, error) {
	for {
		mt, data, err := self.ws.ReadMessage()
		if nil != err {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return nil, CloseError{Code: ce.Code, Text: ce.Text}
			}
			return nil, wrapError(err, "failed websocket ReadMessage")
		}
		if websocket.BinaryMessage == mt {
			return data, nil
		}
	}
}

func (self *WebSocketConn) WriteBytes(data []byte) error {
	self.wmut.Lock()
	defer self.wmut.Unlock()

	return wrapError(
		self.ws.WriteMessage(websocket.BinaryMessage, data),
		"failed websocket WriteMessage",
	)
}

// Close sends a close frame holding code and closes the underlying connection.
// Only the first call has an effect.
func (self *WebSocketConn) Close(code int, reason string) error {
	self.once.Do(func() {
		self.wmut.Lock()
		defer self.wmut.Unlock()

		msg := websocket.FormatCloseMessage(code, reason)
		err := self.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			err = nil
		}
		self.closeErr = errors.Join(
			wrapError(err, "failed sending close frame"),
			wrapError(self.ws.Close(), "failed closing websocket"),
		)
	})
	return self.closeErr
}

var _ Conn = &WebSocketConn{}

// WebSocketDialer is a Dialer that uses gorilla websocket.
type WebSocketDialer struct {
	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// Dial implements Dialer. A "Host" entry in header overrides the request Host.
func (self WebSocketDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	dialer := self.Dialer
	if nil == dialer {
		dialer = websocket.DefaultDialer
	}

	ws, rsp, err := dialer.DialContext(ctx, url, header)
	if nil != err {
		status := 0
		if nil != rsp {
			status = rsp.StatusCode
		}
		return nil, wrapFlag(err, ErrDial, "failed dialing %s, http status %d", url, status)
	}

	return NewWebSocketConn(ws), nil
}

var _ Dialer = WebSocketDialer{}
