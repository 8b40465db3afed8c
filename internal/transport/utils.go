package transport

import (
	"context"
	"net/http"
	"sync"
)

// LimitTransport is a Conn that fails after a certain number of frames have been processed.
//
// LimitTransport is provided to simplify protocol testing.
type LimitTransport struct {
	Conn
	mut      sync.Mutex
	reads    int
	writes   int
	maxRead  int
	maxWrite int
}

// NewLimitTransport returns a new LimitTransport that wraps c.
// It has no limit until SetReadLimit or SetWriteLimit is called.
func NewLimitTransport(c Conn) *LimitTransport {
	return &LimitTransport{Conn: c, maxRead: -1, maxWrite: -1}
}

// SetReadLimit set the number of frames that can be read before ReadBytes fails.
func (self *LimitTransport) SetReadLimit(limit int) {
	self.mut.Lock()
	defer self.mut.Unlock()

	self.maxRead = limit
}

// SetWriteLimit set the number of frames that can be written before WriteBytes fails.
func (self *LimitTransport) SetWriteLimit(limit int) {
	self.mut.Lock()
	defer self.mut.Unlock()

	self.maxWrite = limit
}

// ReadBytes errors if the read limit has been reached.
// Otherwise data is read from the underlaying Conn.
func (self *LimitTransport) ReadBytes() ([]byte, error) {
	self.mut.Lock()
	if self.maxRead >= 0 && self.reads >= self.maxRead {
		self.mut.Unlock()
		return nil, newError(ErrReadLimit, "read limit %d reached", self.maxRead)
	}
	self.reads += 1
	self.mut.Unlock()

	return self.Conn.ReadBytes()
}

// WriteBytes errors if the write limit has been reached.
// Otherwise data is written to the underlaying Conn.
func (self *LimitTransport) WriteBytes(data []byte) error {
	self.mut.Lock()
	if self.maxWrite >= 0 && self.writes >= self.maxWrite {
		self.mut.Unlock()
		return newError(ErrWriteLimit, "write limit %d reached", self.maxWrite)
	}
	self.writes += 1
	self.mut.Unlock()

	return self.Conn.WriteBytes(data)
}

var _ Conn = &LimitTransport{}

// LimitDialer wraps the Conn returned by Dialer in LimitTransport.
// A negative MaxRead or MaxWrite disables the corresponding limit.
type LimitDialer struct {
	Dialer
	MaxRead  int
	MaxWrite int
}

// Dial implements Dialer.
func (self LimitDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	c, err := self.Dialer.Dial(ctx, url, header)
	if nil != err {
		return nil, err
	}
	lt := NewLimitTransport(c)
	lt.SetReadLimit(self.MaxRead)
	lt.SetWriteLimit(self.MaxWrite)

	return lt, nil
}

var _ Dialer = LimitDialer{}
