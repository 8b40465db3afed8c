package transport

import (
	"context"
	"fmt"
	"net/http"
)

// Web socket close codes used by the provisioning protocol.
const (
	CloseNormal    = 1000
	CloseGoingAway = 1001
)

// Transport reads & writes binary frames.
type Transport interface {
	ReadBytes() ([]byte, error)
	WriteBytes(data []byte) error
}

// T aliases Transport
type T = Transport

// Conn is a Transport that can be closed with a status code.
//
// ReadBytes returns a CloseError when the remote side closed the connection.
type Conn interface {
	Transport
	Close(code int, reason string) error
}

// Dialer opens Conn to remote web socket endpoints.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// CloseError reports a close frame received from the remote side.
type CloseError struct {
	Code int
	Text string
}

func (self CloseError) Error() string {
	return fmt.Sprintf("transport: remote closed connection, code %d %q", self.Code, self.Text)
}

// Unwrap returns ErrClosed.
func (self CloseError) Unwrap() error {
	return ErrClosed
}

// Serializer provides methods to Marshal/Unmarshal messages.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}
