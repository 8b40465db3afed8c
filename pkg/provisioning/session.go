package provisioning

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"code.rereg.org/golang/internal/transport"
	"code.rereg.org/golang/internal/utils"
	"code.rereg.org/golang/pkg/protocols"
	"code.rereg.org/golang/pkg/provcipher"
	"code.rereg.org/golang/pkg/wire"
)

// ErrorHandler receives the error that ended a Session.
// It is not called when the Session ended cleanly.
type ErrorHandler func(sessionID int64, err error)

// Block runs alongside the provisioning socket. The Session ends when Block returns,
// a nil return value meaning a clean end.
type Block func(ctx context.Context, s *Session) error

// Session is one provisioning attempt.
type Session struct {
	id     int64
	cfg    Config
	log    *slog.Logger
	cipher *provcipher.Cipher

	ctx    context.Context
	cancel context.CancelCauseFunc
	group  errgroup.Group

	url     *utils.Promise[string]
	message *utils.Promise[*provcipher.Result]

	state       atomic.Int32
	keepAliveID atomic.Int64 // last keep alive id sent
	ackedID     atomic.Int64 // last keep alive id acknowledged

	done chan struct{}
	err  error
}

// ID returns the Session id, it is used for log correlation.
func (self *Session) ID() int64 {
	return self.id
}

// State returns the current socket state.
func (self *Session) State() State {
	return State(self.state.Load())
}

// PublicKey returns the serialized ephemeral public key advertised by the Session.
func (self *Session) PublicKey() []byte {
	return self.cipher.PublicKey()
}

// ProvisioningURL blocks until the provisioning url is available.
// It errors if the Session ends before or if ctx is done.
func (self *Session) ProvisioningURL(ctx context.Context) (string, error) {
	return await(ctx, self, self.url)
}

// RegistrationMessage blocks until the registration message has been received and decrypted.
// It errors if the Session ends before or if ctx is done.
func (self *Session) RegistrationMessage(ctx context.Context) (*provcipher.Result, error) {
	return await(ctx, self, self.message)
}

// Cancel cleanly ends the Session. It does not wait for the Session teardown, use Done for this.
func (self *Session) Cancel() {
	self.cancel(nil)
}

// Done returns a channel that is closed once the Session teardown is complete.
func (self *Session) Done() <-chan struct{} {
	return self.done
}

// Err returns the error that ended the Session.
// It returns nil while the Session is running or if it ended cleanly.
func (self *Session) Err() error {
	select {
	case <-self.done:
		return self.err
	default:
		return nil
	}
}

func await[T any](ctx context.Context, s *Session, p *utils.Promise[T]) (T, error) {
	var zero T
	if v, ok := p.Value(); ok {
		return v, nil
	}

	select {
	case <-p.Done():
		v, _ := p.Value()
		return v, nil
	case <-s.ctx.Done():
		if v, ok := p.Value(); ok {
			return v, nil
		}
		cause := context.Cause(s.ctx)
		if isClean(cause) {
			return zero, wrapError(cause, ErrSessionClosed, "session %d closed", s.id)
		}
		return zero, cause
	case <-ctx.Done():
		return zero, context.Cause(ctx)
	}
}

// spawn runs fn as a child of the Session. A non nil error returned by fn ends the Session.
func (self *Session) spawn(fn func(ctx context.Context) error) {
	self.group.Go(func() error {
		err := fn(self.ctx)
		if nil != err {
			self.cancel(err)
		}
		return err
	})
}

// teardown waits for all children then releases the Session resources.
func (self *Session) teardown(registry *Registry, onError ErrorHandler) {
	self.group.Wait()
	self.cancel(nil)

	self.cipher.Destroy()
	self.state.Store(int32(StateClosed))
	utils.RegistryPop(registry.sessions, self.id)

	cause := context.Cause(self.ctx)
	if isClean(cause) {
		self.log.Info("session closed")
	} else {
		self.err = cause
		self.log.Error("session failed", "kind", KindOf(cause), "root", utils.CauseOf(cause), "error", cause)
		if nil != onError {
			onError(self.id, cause)
		}
	}
	close(self.done)
}

type inbound struct {
	data []byte
	err  error
}

// connect dials the provisioning socket and runs the socket loop.
// It returns nil if the remote side cleanly closed the socket after the registration message.
func (self *Session) connect(ctx context.Context) error {
	fsm := &machine{s: self, log: self.log}

	socketURL, err := ConnectionURL(self.cfg.ServiceURL)
	if nil != err {
		return err
	}
	conn, err := self.cfg.Dialer.Dial(ctx, socketURL, self.cfg.header())
	if nil != err {
		if nil != ctx.Err() {
			err = context.Cause(ctx)
		} else {
			err = wrapError(err, ErrTransport, "failed opening provisioning socket")
		}
		fsm.Update(protocols.Event{Tag: protocols.EvtAbort, Data: err})
		return err
	}
	defer self.closeConn(conn)

	if _, err = fsm.Update(protocols.Event{Tag: protocols.EvtOpen}); nil != err {
		return wrapError(err, Error, "failed opening state machine")
	}

	frames := make(chan inbound)
	self.group.Go(func() error {
		self.read(ctx, conn, frames)
		return nil
	})

	return self.loop(ctx, fsm, conn, frames)
}

func (self *Session) read(ctx context.Context, conn transport.Conn, frames chan<- inbound) {
	for {
		data, err := conn.ReadBytes()
		select {
		case frames <- inbound{data: data, err: err}:
		case <-ctx.Done():
			return
		}
		if nil != err {
			return
		}
	}
}

func (self *Session) loop(ctx context.Context, fsm *machine, conn transport.Conn, frames <-chan inbound) error {
	keepAlive := time.NewTicker(self.cfg.KeepAliveInterval)
	defer keepAlive.Stop()
	addrTimer := time.NewTimer(self.cfg.AddressTimeout)
	defer addrTimer.Stop()
	lifeTimer := time.NewTimer(self.cfg.Lifespan)
	defer lifeTimer.Stop()
	addrC, lifeC := addrTimer.C, lifeTimer.C

	for {
		var evt protocols.Event
		select {
		case <-ctx.Done():
			evt = protocols.Event{Tag: protocols.EvtAbort, Data: context.Cause(ctx)}
		case <-keepAlive.C:
			evt = protocols.Event{Tag: protocols.EvtKeepAlive}
		case <-addrC:
			evt = protocols.Event{
				Tag:  protocols.EvtTimeout,
				Data: newError(ErrAddressTimeout, "no provisioning address within %s", self.cfg.AddressTimeout),
			}
		case <-lifeC:
			evt = protocols.Event{
				Tag:  protocols.EvtTimeout,
				Data: newError(ErrLifespanTimeout, "no registration message within %s", self.cfg.Lifespan),
			}
		case in := <-frames:
			evt = self.frameEvent(fsm, conn, in)
		}

		cmd, err := fsm.Update(evt)
		if nil != err {
			return wrapError(err, Error, "failed processing %s event", evt.Tag)
		}

		switch cmd.Tag {
		case protocols.CmdWrite:
			err = conn.WriteBytes(cmd.Msg)
			if nil != err {
				if keepAliveWrite == cmd.Data {
					// next tick retries
					self.log.Warn("failed sending keep alive", "error", err)
				} else {
					cause := wrapError(err, ErrTransport, "failed writing socket")
					fsm.SetState(StateClosed)
					self.closeConn(conn)
					return cause
				}
			}
		case protocols.CmdClose:
			self.closeConn(conn)
			cause, _ := cmd.Data.(error)
			return cause
		}

		// each window closes on its own delivery, a message may precede the address
		if _, resolved := self.url.Value(); resolved && nil != addrC {
			addrTimer.Stop()
			addrC = nil
		}
		if _, resolved := self.message.Value(); resolved && nil != lifeC {
			lifeTimer.Stop()
			lifeC = nil
		}
	}
}

// frameEvent decodes an inbound frame. Requests are acknowledged before being returned as Event.
func (self *Session) frameEvent(fsm *machine, conn transport.Conn, in inbound) protocols.Event {
	if nil != in.err {
		return protocols.Event{Tag: protocols.EvtAbort, Data: fsm.readFailure(in.err)}
	}

	msg, err := wire.Decode(in.data)
	if nil != err {
		return protocols.Event{
			Tag:  protocols.EvtAbort,
			Data: wrapError(err, ErrFraming, "undecodable frame"),
		}
	}

	if wire.TypeResponse == msg.Type {
		return protocols.Event{Tag: protocols.EvtResponse, Data: msg.Response}
	}

	err = conn.WriteBytes(wire.EncodeResponse(msg.Request.ID, wire.StatusOK, wire.MessageOK))
	if nil != err {
		return protocols.Event{
			Tag:  protocols.EvtAbort,
			Data: wrapError(err, ErrTransport, "failed acknowledging request %d", msg.Request.ID),
		}
	}
	return protocols.Event{Tag: protocols.EvtRequest, Data: msg.Request}
}

func (self *Session) closeConn(conn transport.Conn) {
	err := conn.Close(transport.CloseNormal, "")
	if nil != err {
		self.log.Debug("failed closing socket", "error", err)
	}
}
