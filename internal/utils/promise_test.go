package utils

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"
)

func TestPromiseResolveOnce(t *testing.T) {
	p := NewPromise[string]()
	if _, ok := p.Value(); ok {
		t.Fatal("pending Promise reports a value")
	}
	if !p.Resolve("first") {
		t.Fatal("failed first Resolve")
	}
	if p.Resolve("second") {
		t.Error("second Resolve was accepted")
	}
	v, ok := p.Value()
	if !ok || "first" != v {
		t.Errorf("failed Value control, got %q, %v", v, ok)
	}
}

func TestPromiseConcurrentResolve(t *testing.T) {
	p := NewPromise[int]()
	var wg sync.WaitGroup
	var mut sync.Mutex
	accepted := 0
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.Resolve(i) {
				mut.Lock()
				accepted += 1
				mut.Unlock()
			}
		}()
	}
	wg.Wait()
	if 1 != accepted {
		t.Errorf("failed accepted control, %d != 1", accepted)
	}
}

func TestPromiseWait(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p := NewPromise[int]()
		go func() {
			time.Sleep(5 * time.Second)
			p.Resolve(42)
		}()
		v, err := p.Wait(t.Context())
		if nil != err {
			t.Fatalf("failed Wait, got error %v", err)
		}
		if 42 != v {
			t.Errorf("failed value control, %d != 42", v)
		}
	})
}

func TestPromiseWaitCancelled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		p := NewPromise[int]()
		cause := errors.New("session ended")
		ctx, cancel := context.WithCancelCause(t.Context())
		go func() {
			time.Sleep(time.Second)
			cancel(cause)
		}()
		_, err := p.Wait(ctx)
		if !errors.Is(err, cause) {
			t.Errorf("failed Wait error control, got %v", err)
		}
	})
}
