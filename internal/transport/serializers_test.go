package transport

import (
	"reflect"
	"testing"
	"time"
)

type frameInfo struct {
	ID      int64    `json:"id" cbor:"1,keyasint"`
	Path    string   `json:"path" cbor:"2,keyasint"`
	Headers []string `json:"headers,omitempty" cbor:"3,keyasint,omitempty"`
	Body    []byte   `json:"body,omitempty" cbor:"4,keyasint,omitempty"`
}

func TestSerializers(t *testing.T) {
	testcases := []struct {
		name string
		srz  Serializer
	}{
		{name: "json", srz: JSONSerializer{}},
		{name: "cbor", srz: CBORSerializer{}},
	}

	msg := frameInfo{ID: 42, Path: "/v1/address", Headers: []string{"content-type:application/json"}, Body: []byte{0, 1, 2}}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := tc.srz.Marshal(msg)
			if nil != err {
				t.Fatalf("failed Marshal, got error %v", err)
			}
			var got frameInfo
			err = tc.srz.Unmarshal(data, &got)
			if nil != err {
				t.Fatalf("failed Unmarshal, got error %v", err)
			}
			if !reflect.DeepEqual(msg, got) {
				t.Errorf("failed message control\n%+v\n!=\n%+v", msg, got)
			}
		})
	}
}

func TestSerializersInvalidData(t *testing.T) {
	var got frameInfo
	if nil == (JSONSerializer{}).Unmarshal([]byte("{"), &got) {
		t.Error("JSONSerializer accepted truncated data")
	}
	if nil == (CBORSerializer{}).Unmarshal([]byte{0xA1}, &got) {
		t.Error("CBORSerializer accepted truncated data")
	}
}

func TestCBORSerializerTime(t *testing.T) {
	type stamped struct {
		At time.Time `cbor:"1,keyasint"`
	}
	msg := stamped{At: time.Date(2026, 3, 14, 15, 9, 26, 535897932, time.UTC)}
	srz := CBORSerializer{}
	data, err := srz.Marshal(msg)
	if nil != err {
		t.Fatalf("failed Marshal, got error %v", err)
	}
	var got stamped
	err = srz.Unmarshal(data, &got)
	if nil != err {
		t.Fatalf("failed Unmarshal, got error %v", err)
	}
	if !msg.At.Equal(got.At) {
		t.Errorf("failed time control, %s != %s", got.At, msg.At)
	}
}
