package protocols

const (
	EvtOpen      = "Open"      // connection established.
	EvtRequest   = "Request"   // peer sent a request frame, Data holds the decoded request.
	EvtResponse  = "Response"  // peer sent a response frame, Data holds the decoded response.
	EvtKeepAlive = "KeepAlive" // keep alive period elapsed.
	EvtTimeout   = "Timeout"   // a protocol timer fired, Data holds the timer error.
	EvtAbort     = "Abort"     // connection is going away.
)

// Event contains "incoming" data processed by a state machine.
type Event struct {
	Tag  string `json:"tag" cbor:"1,keyasint"`
	Msg  []byte `json:"msg,omitempty" cbor:"2,keyasint,omitempty"`
	Data any    `json:"data,omitempty" cbor:"3,keyasint,omitempty"`
}
