package wire

import (
	"encoding/hex"
	"errors"
	"slices"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestEncodeResponseVector(t *testing.T) {
	got := hex.EncodeToString(EncodeResponse(1, 200, "OK"))
	expected := "08021a09080110c8011a024f4b"
	if expected != got {
		t.Errorf("failed frame control\n%s\n!=\n%s", got, expected)
	}
}

func TestEncodeKeepAliveVector(t *testing.T) {
	got := EncodeRequest(5, VerbGet, PathKeepAlive, nil)
	expected := "080112160a03474554120d2f76312f6b656570616c6976652005"
	if expected != hex.EncodeToString(got) {
		t.Errorf("failed frame control\n%x\n!=\n%s", got, expected)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	testcases := []struct {
		name    string
		id      int64
		verb    string
		path    string
		body    []byte
		headers []string
	}{
		{name: "keepalive", id: 1718000000000, verb: VerbGet, path: PathKeepAlive},
		{name: "address", id: 7, verb: VerbPut, path: PathAddress, body: EncodeAddress(ProvisioningAddress{Address: "device-42"})},
		{name: "empty body", id: 8, verb: VerbPut, path: PathMessage, body: []byte{}},
		{name: "headers", id: 9, verb: VerbPut, path: "/v1/other", body: []byte{1}, headers: []string{"content-type:application/x-protobuf", "x-signal-timestamp:1"}},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Decode(EncodeRequest(tc.id, tc.verb, tc.path, tc.body, tc.headers...))
			if nil != err {
				t.Fatalf("failed Decode, got error %v", err)
			}
			if TypeRequest != msg.Type || nil == msg.Request || nil != msg.Response {
				t.Fatalf("failed variant control, got %+v", msg)
			}
			req := msg.Request
			if tc.id != req.ID || tc.verb != req.Verb || tc.path != req.Path {
				t.Errorf("failed request control, got %+v", req)
			}
			if (nil != tc.body) != req.HasBody() {
				t.Errorf("failed HasBody control, got %v", req.HasBody())
			}
			if !slices.Equal(tc.body, req.Body) {
				t.Errorf("failed body control, % X != % X", req.Body, tc.body)
			}
			if !slices.Equal(tc.headers, req.Headers) {
				t.Errorf("failed headers control, %v != %v", req.Headers, tc.headers)
			}
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	msg, err := Decode(EncodeResponse(1000, StatusOK, MessageOK))
	if nil != err {
		t.Fatalf("failed Decode, got error %v", err)
	}
	if TypeResponse != msg.Type || nil == msg.Response || nil != msg.Request {
		t.Fatalf("failed variant control, got %+v", msg)
	}
	rsp := msg.Response
	if 1000 != rsp.ID || StatusOK != rsp.Status || MessageOK != rsp.Message {
		t.Errorf("failed response control, got %+v", rsp)
	}
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	frame := EncodeResponse(3, 404, "Not Found")
	frame = protowire.AppendTag(frame, 15, protowire.BytesType)
	frame = protowire.AppendString(frame, "ignored")
	frame = protowire.AppendTag(frame, 16, protowire.VarintType)
	frame = protowire.AppendVarint(frame, 99)

	msg, err := Decode(frame)
	if nil != err {
		t.Fatalf("failed Decode, got error %v", err)
	}
	if 3 != msg.Response.ID || 404 != msg.Response.Status {
		t.Errorf("failed response control, got %+v", msg.Response)
	}
}

func TestDecodeMalformed(t *testing.T) {
	req := EncodeRequest(1, VerbPut, PathAddress, []byte("x"))

	typeOnly := func(mt MessageType) []byte {
		b := protowire.AppendTag(nil, fMsgType, protowire.VarintType)
		return protowire.AppendVarint(b, uint64(mt))
	}
	mismatch := typeOnly(TypeResponse)
	mismatch = protowire.AppendTag(mismatch, fMsgRequest, protowire.BytesType)
	mismatch = protowire.AppendBytes(mismatch, []byte{0x0A, 0x00})

	badWireType := protowire.AppendTag(nil, fMsgType, protowire.BytesType)
	badWireType = protowire.AppendString(badWireType, "REQUEST")

	testcases := []struct {
		name  string
		frame []byte
	}{
		{name: "empty", frame: nil},
		{name: "garbage", frame: []byte{0xFF, 0xFF, 0xFF}},
		{name: "truncated", frame: req[:len(req)-3]},
		{name: "unknown type", frame: typeOnly(TypeUnknown)},
		{name: "out of range type", frame: typeOnly(7)},
		{name: "request missing", frame: typeOnly(TypeRequest)},
		{name: "type mismatch", frame: mismatch},
		{name: "bad wire type", frame: badWireType},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.frame)
			if !errors.Is(err, ErrFraming) {
				t.Errorf("failed error control, got %v", err)
			}
		})
	}
}

func TestAddressCodec(t *testing.T) {
	addr, err := DecodeAddress(EncodeAddress(ProvisioningAddress{Address: "device-42"}))
	if nil != err {
		t.Fatalf("failed DecodeAddress, got error %v", err)
	}
	if "device-42" != addr.Address {
		t.Errorf("failed address control, got %q", addr.Address)
	}

	_, err = DecodeAddress([]byte{})
	if !errors.Is(err, ErrFraming) {
		t.Errorf("failed empty address control, got %v", err)
	}
	_, err = DecodeAddress([]byte{0x0A, 0x10, 'a'})
	if !errors.Is(err, ErrFraming) {
		t.Errorf("failed truncated address control, got %v", err)
	}
}

func TestEnvelopeCodec(t *testing.T) {
	src := ProvisionEnvelope{PublicKey: []byte{5, 1, 2, 3}, Body: []byte{1, 9, 9}}
	env, err := DecodeEnvelope(EncodeEnvelope(src))
	if nil != err {
		t.Fatalf("failed DecodeEnvelope, got error %v", err)
	}
	if !slices.Equal(src.PublicKey, env.PublicKey) || !slices.Equal(src.Body, env.Body) {
		t.Errorf("failed envelope control, got %+v", env)
	}

	_, err = DecodeEnvelope(EncodeEnvelope(ProvisionEnvelope{PublicKey: src.PublicKey}))
	if !errors.Is(err, ErrFraming) {
		t.Errorf("failed incomplete envelope control, got %v", err)
	}
}
