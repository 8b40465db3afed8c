package provisioning

import (
	"context"
	"crypto/rand"
	"errors"
	"sync"
	"testing"

	"code.rereg.org/golang/internal/observability"
	"code.rereg.org/golang/internal/transport"
	"code.rereg.org/golang/pkg/provcipher"
	"code.rereg.org/golang/pkg/wire"
)

type errRecorder struct {
	mut  sync.Mutex
	ids  []int64
	errs []error
}

func (self *errRecorder) handle(id int64, err error) {
	self.mut.Lock()
	defer self.mut.Unlock()
	self.ids = append(self.ids, id)
	self.errs = append(self.errs, err)
}

func (self *errRecorder) calls() ([]int64, []error) {
	self.mut.Lock()
	defer self.mut.Unlock()
	return append([]int64{}, self.ids...), append([]error{}, self.errs...)
}

// testEnv must be created inside a synctest bubble.
type testEnv struct {
	t        *testing.T
	ctx      context.Context
	registry *Registry
	dialer   *transport.PipeDialer
	identity *provcipher.IdentityKeyPair
	errs     *errRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	identity, err := provcipher.GenerateIdentityKeyPair(rand.Reader)
	if nil != err {
		t.Fatalf("failed GenerateIdentityKeyPair, got error %v", err)
	}
	return &testEnv{
		t:        t,
		ctx:      observability.TestContext(t),
		registry: NewRegistry(),
		dialer:   transport.NewPipeDialer(),
		identity: identity,
		errs:     &errRecorder{},
	}
}

func (self *testEnv) config() Config {
	return Config{
		ServiceURL: "https://chat.test",
		HostHeader: "provisioning.chat.test",
		Dialer:     self.dialer,
	}
}

func (self *testEnv) startWith(ctx context.Context, cfg Config, block Block) (*Session, *fakeServer) {
	s, err := self.registry.Start(ctx, self.identity, cfg, self.errs.handle, block)
	if nil != err {
		self.t.Fatalf("failed Start, got error %v", err)
	}
	acc, err := self.dialer.Accept(self.ctx)
	if nil != err {
		self.t.Fatalf("failed Accept, got error %v", err)
	}
	return s, &fakeServer{t: self.t, acc: acc, conn: acc.Conn, nextID: 100}
}

func (self *testEnv) start(block Block) (*Session, *fakeServer) {
	return self.startWith(self.ctx, self.config(), block)
}

// fakeServer plays the service side of the provisioning socket.
type fakeServer struct {
	t      *testing.T
	acc    transport.PipeAccept
	conn   transport.Conn
	nextID int64
}

func (self *fakeServer) send(verb, path string, body []byte) int64 {
	self.nextID += 1
	err := self.conn.WriteBytes(wire.EncodeRequest(self.nextID, verb, path, body))
	if nil != err {
		self.t.Fatalf("failed sending %s %s, got error %v", verb, path, err)
	}
	return self.nextID
}

func (self *fakeServer) sendAddress(address string) int64 {
	return self.send(wire.VerbPut, wire.PathAddress, wire.EncodeAddress(wire.ProvisioningAddress{Address: address}))
}

func (self *fakeServer) sendEnvelope(env wire.ProvisionEnvelope) int64 {
	return self.send(wire.VerbPut, wire.PathMessage, wire.EncodeEnvelope(env))
}

func (self *fakeServer) respond(id int64) {
	err := self.conn.WriteBytes(wire.EncodeResponse(id, wire.StatusOK, wire.MessageOK))
	if nil != err {
		self.t.Fatalf("failed sending response %d, got error %v", id, err)
	}
}

// readRaw returns the next frame sent by the Session.
func (self *fakeServer) readRaw() wire.Message {
	data, err := self.conn.ReadBytes()
	if nil != err {
		self.t.Fatalf("failed reading socket, got error %v", err)
	}
	msg, err := wire.Decode(data)
	if nil != err {
		self.t.Fatalf("failed decoding frame, got error %v", err)
	}
	return msg
}

// read returns the next frame that is not a keep alive request.
func (self *fakeServer) read() wire.Message {
	for {
		msg := self.readRaw()
		if wire.TypeRequest == msg.Type && wire.PathKeepAlive == msg.Request.Path {
			continue
		}
		return msg
	}
}

func (self *fakeServer) expectAck(id int64) {
	self.t.Helper()
	msg := self.read()
	if wire.TypeResponse != msg.Type {
		self.t.Fatalf("expected ack for request %d, got %v frame", id, msg.Type)
	}
	rsp := msg.Response
	if id != rsp.ID || wire.StatusOK != rsp.Status || wire.MessageOK != rsp.Message {
		self.t.Fatalf("failed ack control for request %d, got %+v", id, rsp)
	}
}

// expectClose drains the socket and checks the close code sent by the Session.
func (self *fakeServer) expectClose(code int) {
	self.t.Helper()
	for {
		_, err := self.conn.ReadBytes()
		if nil == err {
			continue
		}
		var ce transport.CloseError
		if !errors.As(err, &ce) {
			self.t.Fatalf("expected close frame, got error %v", err)
		}
		if code != ce.Code {
			self.t.Errorf("failed close code control, %d != %d", ce.Code, code)
		}
		return
	}
}

func mustEncrypt(t *testing.T, s *Session, msg []byte) wire.ProvisionEnvelope {
	env, err := provcipher.Encrypt(rand.Reader, s.PublicKey(), msg)
	if nil != err {
		t.Fatalf("failed Encrypt, got error %v", err)
	}
	return env
}
