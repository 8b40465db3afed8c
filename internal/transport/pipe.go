package transport

import (
	"context"
	"net/http"
	"sync"
)

const pipeBufferSize = 64

type pipeState struct {
	once sync.Once
	done chan struct{}
	code int
	text string
}

func (self *pipeState) close(code int, reason string) bool {
	closed := false
	self.once.Do(func() {
		self.code = code
		self.text = reason
		close(self.done)
		closed = true
	})
	return closed
}

type pipeConn struct {
	rx     <-chan []byte
	tx     chan<- []byte
	local  *pipeState
	remote *pipeState
}

// Pipe returns two connected in memory Conn.
//
// Frames written to one end are read from the other end in order. Closing one end
// makes the other end ReadBytes return a CloseError holding the close code.
// Pipe does not use the network, its blocking operations are channel operations.
func Pipe() (Conn, Conn) {
	ab := make(chan []byte, pipeBufferSize)
	ba := make(chan []byte, pipeBufferSize)
	a := &pipeState{done: make(chan struct{})}
	b := &pipeState{done: make(chan struct{})}

	return &pipeConn{rx: ba, tx: ab, local: a, remote: b},
		&pipeConn{rx: ab, tx: ba, local: b, remote: a}
}

func (self *pipeConn) ReadBytes() ([]byte, error) {
	select {
	case data := <-self.rx:
		return data, nil
	default:
	}

	select {
	case data := <-self.rx:
		return data, nil
	case <-self.remote.done:
	case <-self.local.done:
	}

	// frames sent before the close frame are delivered first
	select {
	case data := <-self.rx:
		return data, nil
	default:
	}
	select {
	case <-self.remote.done:
		return nil, CloseError{Code: self.remote.code, Text: self.remote.text}
	default:
		return nil, newError(ErrClosed, "read on closed pipe")
	}
}

func (self *pipeConn) WriteBytes(data []byte) error {
	select {
	case <-self.local.done:
		return newError(ErrClosed, "write on closed pipe")
	case <-self.remote.done:
		return newError(ErrClosed, "write on pipe closed by remote, code %d", self.remote.code)
	default:
	}

	frame := append([]byte{}, data...)
	select {
	case self.tx <- frame:
		return nil
	case <-self.local.done:
		return newError(ErrClosed, "write on closed pipe")
	case <-self.remote.done:
		return newError(ErrClosed, "write on pipe closed by remote, code %d", self.remote.code)
	}
}

// Close is idempotent, only the first call code is transmitted.
func (self *pipeConn) Close(code int, reason string) error {
	self.local.close(code, reason)
	return nil
}

var _ Conn = &pipeConn{}

// PipeAccept holds the server side of a Conn opened by a PipeDialer.
type PipeAccept struct {
	URL    string
	Header http.Header
	Conn   Conn
}

// PipeDialer is a Dialer that connects to in memory Pipe.
// Server side ends are retrieved using Accept.
type PipeDialer struct {
	mut   sync.Mutex
	err   error
	conns chan PipeAccept
}

// NewPipeDialer returns a ready to use *PipeDialer.
func NewPipeDialer() *PipeDialer {
	return &PipeDialer{conns: make(chan PipeAccept, pipeBufferSize)}
}

// Dial implements Dialer.
func (self *PipeDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	self.mut.Lock()
	err := self.err
	self.mut.Unlock()
	if nil != err {
		return nil, wrapError(err, "failed dialing %s", url)
	}

	client, server := Pipe()
	select {
	case self.conns <- PipeAccept{URL: url, Header: header.Clone(), Conn: server}:
		return client, nil
	case <-ctx.Done():
		return nil, wrapError(context.Cause(ctx), "failed dialing %s", url)
	}
}

// SetErr changes the error returned by Dial.
func (self *PipeDialer) SetErr(err error) {
	self.mut.Lock()
	defer self.mut.Unlock()
	self.err = err
}

// Accept returns the server side of the next dialed Conn.
func (self *PipeDialer) Accept(ctx context.Context) (PipeAccept, error) {
	select {
	case acc := <-self.conns:
		return acc, nil
	case <-ctx.Done():
		return PipeAccept{}, wrapError(context.Cause(ctx), "failed Accept")
	}
}

var _ Dialer = &PipeDialer{}
