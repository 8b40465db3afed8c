// Package wire encodes and decodes the frames exchanged over the provisioning web socket.
//
// Frames are protobuf messages laid out as the WebSocketResources schema of the
// messaging service:
//
//	WebSocketMessage { type = 1; request = 2; response = 3 }
//	WebSocketRequestMessage { verb = 1; path = 2; body = 3; id = 4; headers = 5 }
//	WebSocketResponseMessage { id = 1; status = 2; message = 3; body = 4; headers = 5 }
//	ProvisioningAddress { address = 1 }
//	ProvisionEnvelope { publicKey = 1; body = 2 }
package wire

import (
	"fmt"
)

// MessageType discriminates the variant held by a Message.
type MessageType int32

const (
	TypeUnknown  MessageType = 0
	TypeRequest  MessageType = 1
	TypeResponse MessageType = 2
)

func (self MessageType) String() string {
	switch self {
	case TypeUnknown:
		return "UNKNOWN"
	case TypeRequest:
		return "REQUEST"
	case TypeResponse:
		return "RESPONSE"
	default:
		return fmt.Sprintf("MessageType(%d)", int32(self))
	}
}

const (
	VerbGet = "GET"
	VerbPut = "PUT"

	PathKeepAlive = "/v1/keepalive"
	PathAddress   = "/v1/address"
	PathMessage   = "/v1/message"

	StatusOK  = 200
	MessageOK = "OK"
)

// Message is the outer frame. Exactly one of Request, Response is set, according to Type.
type Message struct {
	Type     MessageType
	Request  *Request
	Response *Response
}

// Request is a framed HTTP like request.
type Request struct {
	ID   int64
	Verb string
	Path string

	// Body is nil when the frame has no body.
	Body    []byte
	Headers []string
}

// HasBody returns true if the request frame carried a body field.
func (self Request) HasBody() bool {
	return nil != self.Body
}

// Response acknowledges the Request having the same ID.
type Response struct {
	ID      int64
	Status  int32
	Message string
	Headers []string
	Body    []byte
}

// ProvisioningAddress holds the address the server assigned to the provisioning socket.
type ProvisioningAddress struct {
	Address string
}

// ProvisionEnvelope is the encrypted registration message relayed by the server.
type ProvisionEnvelope struct {
	PublicKey []byte
	Body      []byte
}
