package protocols

import (
	"errors"
	"testing"
)

type pingSel int

const (
	sIdle pingSel = iota
	sWaiting
	sDone
	countPingSel
)

// pingStateM sends a ping on EvtKeepAlive and completes on the matching EvtResponse.
type pingStateM struct {
	state pingSel
	sent  int
}

func (self *pingStateM) State() pingSel {
	return self.state
}

func (self *pingStateM) SetState(s pingSel) {
	self.state = s
}

func (self *pingStateM) Update(evt Event) (Command, error) {
	return Update(self, pingTransitions[:], evt)
}

func (self *pingStateM) ping(evt Event) (pingSel, Command, error) {
	self.sent += 1
	return sWaiting, Command{Tag: CmdWrite, Msg: []byte("ping")}, nil
}

func (self *pingStateM) pong(evt Event) (pingSel, Command, error) {
	if "pong" != string(evt.Msg) {
		return sWaiting, Command{}, errors.New("unexpected reply")
	}
	return sDone, Command{}, nil
}

// returns an exit that is not allowed.
func (self *pingStateM) escape(evt Event) (pingSel, Command, error) {
	return sIdle, Command{}, nil
}

var pingTransitions = [countPingSel]Transition[pingSel, *pingStateM]{
	sIdle:    {Allow: []string{EvtKeepAlive}, Call: (*pingStateM).ping, Exit: []pingSel{sWaiting}},
	sWaiting: {Allow: []string{EvtResponse, EvtKeepAlive}, Call: (*pingStateM).pong, Exit: []pingSel{sWaiting, sDone}},
	sDone:    {Allow: []string{EvtAbort}, Call: (*pingStateM).escape, Exit: []pingSel{sDone}},
}

func TestUpdateSequence(t *testing.T) {
	fsm := &pingStateM{}

	cmd, err := fsm.Update(Event{Tag: EvtKeepAlive})
	if nil != err {
		t.Fatalf("failed Update #0, got error %v", err)
	}
	if CmdWrite != cmd.Tag || "ping" != string(cmd.Msg) {
		t.Errorf("failed Command control #0, got %+v", cmd)
	}
	if sWaiting != fsm.State() {
		t.Errorf("failed state control #0, %d != %d", fsm.State(), sWaiting)
	}

	cmd, err = fsm.Update(Event{Tag: EvtResponse, Msg: []byte("pong")})
	if nil != err {
		t.Fatalf("failed Update #1, got error %v", err)
	}
	if CmdNoop != cmd.Tag {
		t.Errorf("failed Command control #1, got %+v", cmd)
	}
	if sDone != fsm.State() {
		t.Errorf("failed state control #1, %d != %d", fsm.State(), sDone)
	}
}

func TestUpdateNotAllowed(t *testing.T) {
	fsm := &pingStateM{}
	_, err := fsm.Update(Event{Tag: EvtResponse})
	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("failed error control, got %v", err)
	}
	if !errors.Is(err, Error) {
		t.Error("error does not wrap protocols.Error")
	}
	if sIdle != fsm.State() {
		t.Errorf("state changed on refused event, %d", fsm.State())
	}
}

func TestUpdateCallError(t *testing.T) {
	fsm := &pingStateM{state: sWaiting}
	_, err := fsm.Update(Event{Tag: EvtResponse, Msg: []byte("boom")})
	if nil == err {
		t.Fatal("Call error was not forwarded")
	}
	if sWaiting != fsm.State() {
		t.Errorf("failed state control, %d != %d", fsm.State(), sWaiting)
	}
}

func TestUpdateInvalidExit(t *testing.T) {
	fsm := &pingStateM{state: sDone}
	_, err := fsm.Update(Event{Tag: EvtAbort})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("failed error control, got %v", err)
	}
	if sDone != fsm.State() {
		t.Errorf("state changed on invalid exit, %d", fsm.State())
	}
}

func TestUpdateInvalidState(t *testing.T) {
	fsm := &pingStateM{state: countPingSel}
	_, err := fsm.Update(Event{Tag: EvtKeepAlive})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("failed error control, got %v", err)
	}
}
