package protocols

const (
	CmdNoop  = "Noop"         // nothing to do.
	CmdWrite = "WriteMessage" // used to write Msg to transport.
	CmdClose = "Close"        // used to close the transport.
)

// Command describes an IO operation awaited by a running state machine.
type Command struct {
	Tag  string `json:"tag" cbor:"1,keyasint"`
	Msg  []byte `json:"msg,omitempty" cbor:"2,keyasint,omitempty"`
	Data any    `json:"data,omitempty" cbor:"3,keyasint,omitempty"`
}

// Noop returns a CmdNoop Command.
func Noop() Command {
	return Command{Tag: CmdNoop}
}
