package protocols

import (
	"slices"
)

type selector interface {
	~int
}

// StateM exposes the current state selector of a state machine.
type StateM[Sel selector] interface {
	State() Sel
	SetState(s Sel)
}

// TransitionFunc processes evt and returns the next state selector.
type TransitionFunc[Sel selector, S StateM[Sel]] func(s S, evt Event) (Sel, Command, error)

// Transition describes the events a state accepts, the function that handles them
// and the states it may exit to.
//
// A Transition with a nil Call keeps the current state, which then needs to be listed in Exit.
type Transition[Sel selector, S StateM[Sel]] struct {
	Allow []string
	Call  TransitionFunc[Sel, S]
	Exit  []Sel
}

// Update routes evt to the Transition of the current state of s.
//
// It errors with ErrNotAllowed if evt Tag is not in the Transition Allow list
// and with ErrInvalidState if the current state has no Transition or if Call
// returns a state that is not listed in Exit. s state is left unchanged in those cases.
// Errors returned by Call are forwarded after the state change.
func Update[Sel selector, S StateM[Sel]](s S, trs []Transition[Sel, S], evt Event) (cmd Command, err error) {
	sel := s.State()
	if sel < 0 || int(sel) >= len(trs) {
		return cmd, newError(ErrInvalidState, "invalid inner state %d", int(sel))
	}

	tr := trs[int(sel)]
	if !slices.Contains(tr.Allow, evt.Tag) {
		return cmd, newError(ErrNotAllowed, "Event %s not allowed in state %d", evt.Tag, int(sel))
	}

	cmd = Noop()
	next := sel
	if nil != tr.Call {
		next, cmd, err = tr.Call(s, evt)
		if "" == cmd.Tag {
			cmd.Tag = CmdNoop
		}
	}

	if !slices.Contains(tr.Exit, next) {
		return cmd, newError(ErrInvalidState, "Exit %d not allowed from state %d", int(next), int(sel))
	}

	s.SetState(next)

	return cmd, err
}
