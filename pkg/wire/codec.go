package wire

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// field numbers
const (
	fMsgType     protowire.Number = 1
	fMsgRequest  protowire.Number = 2
	fMsgResponse protowire.Number = 3

	fReqVerb    protowire.Number = 1
	fReqPath    protowire.Number = 2
	fReqBody    protowire.Number = 3
	fReqID      protowire.Number = 4
	fReqHeaders protowire.Number = 5

	fRspID      protowire.Number = 1
	fRspStatus  protowire.Number = 2
	fRspMessage protowire.Number = 3
	fRspBody    protowire.Number = 4
	fRspHeaders protowire.Number = 5

	fAddrAddress protowire.Number = 1

	fEnvPublicKey protowire.Number = 1
	fEnvBody      protowire.Number = 2
)

// fieldVisitor consumes the value of field num and returns the number of bytes read.
// It returns -1 for fields it does not handle.
type fieldVisitor func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func walkFields(b []byte, visit fieldVisitor) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return wrapError(protowire.ParseError(n), "failed reading field tag")
		}
		b = b[n:]

		n, err := visit(num, typ, b)
		if nil != err {
			return err
		}
		if n < 0 {
			// skip unknown field
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return wrapError(protowire.ParseError(n), "failed skipping field %d", num)
			}
		}
		b = b[n:]
	}
	return nil
}

func expectType(num protowire.Number, typ, want protowire.Type) error {
	if typ != want {
		return newError("field %d has wire type %d, expected %d", num, typ, want)
	}
	return nil
}

func consumeVarint(num protowire.Number, typ protowire.Type, b []byte) (uint64, int, error) {
	if err := expectType(num, typ, protowire.VarintType); nil != err {
		return 0, 0, err
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, wrapError(protowire.ParseError(n), "failed reading field %d", num)
	}
	return v, n, nil
}

// consumeBytes returns a copy of the field bytes, never nil.
func consumeBytes(num protowire.Number, typ protowire.Type, b []byte) ([]byte, int, error) {
	if err := expectType(num, typ, protowire.BytesType); nil != err {
		return nil, 0, err
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, wrapError(protowire.ParseError(n), "failed reading field %d", num)
	}
	return append([]byte{}, v...), n, nil
}

// Decode parses a web socket frame.
// It errors with ErrFraming if b is not a well formed Request or Response frame.
func Decode(b []byte) (Message, error) {
	var msg Message
	var reqb, rspb []byte

	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fMsgType:
			v, n, err := consumeVarint(num, typ, b)
			msg.Type = MessageType(int32(v))
			return n, err
		case fMsgRequest:
			v, n, err := consumeBytes(num, typ, b)
			reqb = v
			return n, err
		case fMsgResponse:
			v, n, err := consumeBytes(num, typ, b)
			rspb = v
			return n, err
		}
		return -1, nil
	})
	if nil != err {
		return Message{}, err
	}

	switch msg.Type {
	case TypeRequest:
		if nil == reqb {
			return Message{}, newError("REQUEST frame without request")
		}
		req, err := decodeRequest(reqb)
		if nil != err {
			return Message{}, err
		}
		msg.Request = &req
	case TypeResponse:
		if nil == rspb {
			return Message{}, newError("RESPONSE frame without response")
		}
		rsp, err := decodeResponse(rspb)
		if nil != err {
			return Message{}, err
		}
		msg.Response = &rsp
	default:
		return Message{}, newError("invalid frame type %v", msg.Type)
	}

	return msg, nil
}

func decodeRequest(b []byte) (Request, error) {
	var req Request
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fReqVerb:
			v, n, err := consumeBytes(num, typ, b)
			req.Verb = string(v)
			return n, err
		case fReqPath:
			v, n, err := consumeBytes(num, typ, b)
			req.Path = string(v)
			return n, err
		case fReqBody:
			v, n, err := consumeBytes(num, typ, b)
			req.Body = v
			return n, err
		case fReqID:
			v, n, err := consumeVarint(num, typ, b)
			req.ID = int64(v)
			return n, err
		case fReqHeaders:
			v, n, err := consumeBytes(num, typ, b)
			if nil == err {
				req.Headers = append(req.Headers, string(v))
			}
			return n, err
		}
		return -1, nil
	})

	return req, err
}

func decodeResponse(b []byte) (Response, error) {
	var rsp Response
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fRspID:
			v, n, err := consumeVarint(num, typ, b)
			rsp.ID = int64(v)
			return n, err
		case fRspStatus:
			v, n, err := consumeVarint(num, typ, b)
			rsp.Status = int32(v)
			return n, err
		case fRspMessage:
			v, n, err := consumeBytes(num, typ, b)
			rsp.Message = string(v)
			return n, err
		case fRspBody:
			v, n, err := consumeBytes(num, typ, b)
			rsp.Body = v
			return n, err
		case fRspHeaders:
			v, n, err := consumeBytes(num, typ, b)
			if nil == err {
				rsp.Headers = append(rsp.Headers, string(v))
			}
			return n, err
		}
		return -1, nil
	})

	return rsp, err
}

// EncodeRequest builds a REQUEST frame. The body field is omitted when body is nil.
func EncodeRequest(id int64, verb, path string, body []byte, headers ...string) []byte {
	var req []byte
	req = protowire.AppendTag(req, fReqVerb, protowire.BytesType)
	req = protowire.AppendString(req, verb)
	req = protowire.AppendTag(req, fReqPath, protowire.BytesType)
	req = protowire.AppendString(req, path)
	if nil != body {
		req = protowire.AppendTag(req, fReqBody, protowire.BytesType)
		req = protowire.AppendBytes(req, body)
	}
	req = protowire.AppendTag(req, fReqID, protowire.VarintType)
	req = protowire.AppendVarint(req, uint64(id))
	for _, h := range headers {
		req = protowire.AppendTag(req, fReqHeaders, protowire.BytesType)
		req = protowire.AppendString(req, h)
	}

	return appendMessage(TypeRequest, fMsgRequest, req)
}

// EncodeResponse builds a RESPONSE frame.
func EncodeResponse(id int64, status int32, message string) []byte {
	var rsp []byte
	rsp = protowire.AppendTag(rsp, fRspID, protowire.VarintType)
	rsp = protowire.AppendVarint(rsp, uint64(id))
	rsp = protowire.AppendTag(rsp, fRspStatus, protowire.VarintType)
	rsp = protowire.AppendVarint(rsp, uint64(uint32(status)))
	rsp = protowire.AppendTag(rsp, fRspMessage, protowire.BytesType)
	rsp = protowire.AppendString(rsp, message)

	return appendMessage(TypeResponse, fMsgResponse, rsp)
}

func appendMessage(mt MessageType, num protowire.Number, payload []byte) []byte {
	b := make([]byte, 0, len(payload)+8)
	b = protowire.AppendTag(b, fMsgType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(mt))
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, payload)
	return b
}

// DecodeAddress parses a ProvisioningAddress body.
func DecodeAddress(b []byte) (ProvisioningAddress, error) {
	var addr ProvisioningAddress
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if fAddrAddress == num {
			v, n, err := consumeBytes(num, typ, b)
			addr.Address = string(v)
			return n, err
		}
		return -1, nil
	})
	if nil != err {
		return ProvisioningAddress{}, err
	}
	if "" == addr.Address {
		return ProvisioningAddress{}, newError("empty provisioning address")
	}

	return addr, nil
}

// EncodeAddress serializes addr.
func EncodeAddress(addr ProvisioningAddress) []byte {
	b := protowire.AppendTag(nil, fAddrAddress, protowire.BytesType)
	return protowire.AppendString(b, addr.Address)
}

// DecodeEnvelope parses a ProvisionEnvelope body.
func DecodeEnvelope(b []byte) (ProvisionEnvelope, error) {
	var env ProvisionEnvelope
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fEnvPublicKey:
			v, n, err := consumeBytes(num, typ, b)
			env.PublicKey = v
			return n, err
		case fEnvBody:
			v, n, err := consumeBytes(num, typ, b)
			env.Body = v
			return n, err
		}
		return -1, nil
	})
	if nil != err {
		return ProvisionEnvelope{}, err
	}
	if 0 == len(env.PublicKey) || 0 == len(env.Body) {
		return ProvisionEnvelope{}, newError("incomplete provision envelope")
	}

	return env, nil
}

// EncodeEnvelope serializes env.
func EncodeEnvelope(env ProvisionEnvelope) []byte {
	var b []byte
	b = protowire.AppendTag(b, fEnvPublicKey, protowire.BytesType)
	b = protowire.AppendBytes(b, env.PublicKey)
	b = protowire.AppendTag(b, fEnvBody, protowire.BytesType)
	b = protowire.AppendBytes(b, env.Body)
	return b
}
