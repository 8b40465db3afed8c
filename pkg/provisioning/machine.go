package provisioning

import (
	"errors"
	"log/slog"
	"time"

	"code.rereg.org/golang/internal/transport"
	"code.rereg.org/golang/pkg/protocols"
	"code.rereg.org/golang/pkg/wire"
)

// State is the provisioning socket state.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateAddressReceived
	StateMessageReceived
	StateClosed
	countState
)

func (self State) String() string {
	switch self {
	case StateConnecting:
		return "Connecting"
	case StateOpen:
		return "Open"
	case StateAddressReceived:
		return "AddressReceived"
	case StateMessageReceived:
		return "MessageReceived"
	case StateClosed:
		return "Closed"
	default:
		return "Invalid"
	}
}

// keepAliveWrite marks the CmdWrite commands carrying a keep alive request.
const keepAliveWrite = "keepalive"

// keepAliveClock returns the candidate id of the next keep alive request.
var keepAliveClock = func() int64 {
	return time.Now().UnixMilli()
}

var liveEvents = []string{
	protocols.EvtRequest,
	protocols.EvtResponse,
	protocols.EvtKeepAlive,
	protocols.EvtTimeout,
	protocols.EvtAbort,
}

var socketTransitions = [countState]protocols.Transition[State, *machine]{
	StateConnecting: {
		Allow: []string{protocols.EvtOpen, protocols.EvtAbort},
		Call:  (*machine).connecting,
		Exit:  []State{StateOpen, StateClosed},
	},
	StateOpen: {
		Allow: liveEvents,
		Call:  (*machine).live,
		Exit:  []State{StateOpen, StateAddressReceived, StateMessageReceived, StateClosed},
	},
	StateAddressReceived: {
		Allow: liveEvents,
		Call:  (*machine).live,
		Exit:  []State{StateAddressReceived, StateMessageReceived, StateClosed},
	},
	StateMessageReceived: {
		Allow: liveEvents,
		Call:  (*machine).live,
		Exit:  []State{StateMessageReceived, StateClosed},
	},
	StateClosed: {},
}

// machine processes the socket events of a Session.
// It is only used from the Session loop goroutine.
type machine struct {
	s   *Session
	log *slog.Logger
}

func (self *machine) State() State {
	return self.s.State()
}

func (self *machine) SetState(st State) {
	self.s.state.Store(int32(st))
}

func (self *machine) Update(evt protocols.Event) (protocols.Command, error) {
	return protocols.Update(self, socketTransitions[:], evt)
}

func (self *machine) connecting(evt protocols.Event) (State, protocols.Command, error) {
	if protocols.EvtAbort == evt.Tag {
		return self.abort(evt)
	}
	self.log.Debug("socket open")
	return StateOpen, protocols.Noop(), nil
}

func (self *machine) live(evt protocols.Event) (State, protocols.Command, error) {
	cur := self.State()
	switch evt.Tag {
	case protocols.EvtKeepAlive:
		return cur, self.keepAlive(), nil
	case protocols.EvtResponse:
		rsp, _ := evt.Data.(*wire.Response)
		self.response(rsp)
		return cur, protocols.Noop(), nil
	case protocols.EvtRequest:
		req, _ := evt.Data.(*wire.Request)
		return self.request(cur, req)
	case protocols.EvtTimeout, protocols.EvtAbort:
		return self.abort(evt)
	}
	return cur, protocols.Noop(), nil
}

// abort closes the socket, evt Data holds the error that ends the session or nil.
func (self *machine) abort(evt protocols.Event) (State, protocols.Command, error) {
	cause, _ := evt.Data.(error)
	return StateClosed, protocols.Command{Tag: protocols.CmdClose, Data: cause}, nil
}

func (self *machine) keepAlive() protocols.Command {
	id := keepAliveClock()
	if last := self.s.keepAliveID.Load(); id <= last {
		id = last + 1
	}
	self.s.keepAliveID.Store(id)
	self.log.Debug("sending keep alive", "id", id)

	return protocols.Command{
		Tag:  protocols.CmdWrite,
		Msg:  wire.EncodeRequest(id, wire.VerbGet, wire.PathKeepAlive, nil),
		Data: keepAliveWrite,
	}
}

func (self *machine) response(rsp *wire.Response) {
	if nil == rsp {
		return
	}
	last := self.s.keepAliveID.Load()
	if 0 != last && rsp.ID == last {
		self.s.ackedID.Store(rsp.ID)
		self.log.Debug("keep alive acknowledged", "id", rsp.ID, "status", rsp.Status)
		return
	}
	self.log.Debug("ignoring response", "id", rsp.ID, "lastKeepAlive", last)
}

func (self *machine) request(cur State, req *wire.Request) (State, protocols.Command, error) {
	if nil == req {
		return cur, protocols.Noop(), nil
	}
	log := self.log.With("id", req.ID, "verb", req.Verb, "path", req.Path)

	switch {
	case wire.VerbPut == req.Verb && wire.PathAddress == req.Path && req.HasBody():
		addr, err := wire.DecodeAddress(req.Body)
		if nil != err {
			return self.fail(wrapError(err, ErrFraming, "invalid provisioning address body"))
		}
		url := BuildProvisioningURL(addr.Address, self.s.cipher.PublicKey())
		if !self.s.url.Resolve(url) {
			log.Error("provisioning address received twice, keeping first url", "address", addr.Address)
			return cur, protocols.Noop(), nil
		}
		log.Info("provisioning url ready", "address", addr.Address)
		return max(cur, StateAddressReceived), protocols.Noop(), nil

	case wire.VerbPut == req.Verb && wire.PathMessage == req.Path && req.HasBody():
		env, err := wire.DecodeEnvelope(req.Body)
		if nil != err {
			return self.fail(wrapError(err, ErrFraming, "invalid provision envelope body"))
		}
		result, err := self.s.cipher.Decrypt(env)
		if nil != err {
			return self.fail(wrapError(err, ErrDecryption, "failed decrypting provision envelope"))
		}
		if !self.s.message.Resolve(result) {
			log.Error("registration message received twice, keeping first message")
			return cur, protocols.Noop(), nil
		}
		log.Info("registration message received", "size", len(result.Message))
		return StateMessageReceived, protocols.Noop(), nil

	case !req.HasBody() && (wire.PathAddress == req.Path || wire.PathMessage == req.Path):
		log.Warn("ignoring request without body")
	default:
		log.Warn("ignoring unknown request")
	}

	return cur, protocols.Noop(), nil
}

func (self *machine) fail(cause error) (State, protocols.Command, error) {
	return self.abort(protocols.Event{Tag: protocols.EvtAbort, Data: cause})
}

// readFailure converts a socket read error to the error that ends the session.
// It returns nil when the remote side cleanly closed the socket after delivering
// the registration message.
func (self *machine) readFailure(err error) error {
	var ce transport.CloseError
	if !errors.As(err, &ce) {
		return wrapError(err, ErrTransport, "failed reading socket")
	}
	if transport.CloseNormal != ce.Code {
		self.log.Warn("socket closed by remote", "code", ce.Code, "reason", ce.Text)
		return wrapError(ce, ErrTransport, "remote closed socket with code %d", ce.Code)
	}
	if _, received := self.s.message.Value(); received {
		self.log.Debug("socket closed by remote after registration message")
		return nil
	}
	return wrapError(ce, ErrTransport, "remote closed socket before registration message")
}

var _ protocols.StateM[State] = &machine{}
