package transport

import (
	"errors"
	"slices"
	"testing"
)

func TestReadLimitTransport(t *testing.T) {
	client, server := Pipe()
	lt := NewLimitTransport(client)

	var err error
	var rmsg []byte
	wmsg := []byte("datagram")

	lt.SetReadLimit(2)
	for i := range 2 {
		err = server.WriteBytes(wmsg)
		if nil != err {
			t.Fatalf("failed at WriteBytes #%d, got error %v", i, err)
		}
		rmsg, err = lt.ReadBytes()
		if nil != err {
			t.Fatalf("failed at ReadBytes #%d, got error %v", i, err)
		}
		if !slices.Equal(rmsg, wmsg) {
			t.Fatalf("failed rmsg control #%d, %s != %s", i, rmsg, wmsg)
		}
	}
	err = server.WriteBytes(wmsg)
	if nil != err {
		t.Fatalf("failed at WriteBytes #2, got error %v", err)
	}
	_, err = lt.ReadBytes()
	if !errors.Is(err, ErrReadLimit) {
		t.Fatalf("failed at ReadBytes #2, got error %v", err)
	}
}

func TestWriteLimitTransport(t *testing.T) {
	client, server := Pipe()
	lt := NewLimitTransport(client)

	var err error
	wmsg := []byte("datagram")
	lt.SetWriteLimit(4)

	for i := range 4 {
		err = lt.WriteBytes(wmsg)
		if nil != err {
			t.Fatalf("failed at WriteBytes #%d, got error %v", i, err)
		}
		_, err = server.ReadBytes()
		if nil != err {
			t.Fatalf("failed at server ReadBytes #%d, got error %v", i, err)
		}
	}
	err = lt.WriteBytes(wmsg)
	if !errors.Is(err, ErrWriteLimit) {
		t.Fatalf("failed at WriteBytes #4, got error %v", err)
	}
	if !errors.Is(err, Error) {
		t.Error("limit error is not a transport.Error")
	}
}

func TestLimitTransportNoLimit(t *testing.T) {
	client, server := Pipe()
	lt := NewLimitTransport(client)

	for i := range 100 {
		err := lt.WriteBytes([]byte{byte(i)})
		if nil != err {
			t.Fatalf("failed at WriteBytes #%d, got error %v", i, err)
		}
		_, err = server.ReadBytes()
		if nil != err {
			t.Fatalf("failed at ReadBytes #%d, got error %v", i, err)
		}
	}
}
