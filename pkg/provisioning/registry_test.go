package provisioning

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"testing/synctest"

	"code.rereg.org/golang/internal/observability"
	"code.rereg.org/golang/pkg/provcipher"
)

func TestRegistryIDs(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t)

		s1, _ := env.start(nil)
		s2, _ := env.start(nil)
		if s1.ID()+1 != s2.ID() {
			t.Errorf("failed id control, %d then %d", s1.ID(), s2.ID())
		}
		if 2 != env.registry.Len() {
			t.Errorf("failed Len control, got %d", env.registry.Len())
		}
		got, found := env.registry.Get(s2.ID())
		if !found || s2 != got {
			t.Error("failed Get control")
		}

		env.registry.CancelAll()
		<-s1.Done()
		<-s2.Done()
		if 0 != env.registry.Len() {
			t.Errorf("failed Len control after CancelAll, got %d", env.registry.Len())
		}
		if _, found = env.registry.Get(s1.ID()); found {
			t.Error("ended session still registered")
		}

		// ids are never reused
		s3, _ := env.start(nil)
		if s3.ID() <= s2.ID() {
			t.Errorf("id reused, got %d", s3.ID())
		}
		s3.Cancel()
		<-s3.Done()
	})
}

func TestStartInvalidInput(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.registry.Start(env.ctx, nil, env.config(), nil, nil)
		if !errors.Is(err, ErrConfig) {
			t.Errorf("failed nil identity control, got %v", err)
		}

		cfg := env.config()
		cfg.ServiceURL = "ftp://chat.test"
		_, err = env.registry.Start(env.ctx, env.identity, cfg, nil, nil)
		if !errors.Is(err, ErrConfig) {
			t.Errorf("failed service url control, got %v", err)
		}

		cfg = env.config()
		cfg.Lifespan = -1
		_, err = env.registry.Start(env.ctx, env.identity, cfg, nil, nil)
		if !errors.Is(err, ErrConfig) {
			t.Errorf("failed duration control, got %v", err)
		}
		if 0 != env.registry.Len() {
			t.Errorf("invalid Start registered a session")
		}
	})
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{ServiceURL: "https://chat.test"}.WithDefaults()
	if DefaultKeepAliveInterval != cfg.KeepAliveInterval || DefaultAddressTimeout != cfg.AddressTimeout || DefaultLifespan != cfg.Lifespan {
		t.Errorf("failed defaults control, got %+v", cfg)
	}
	if nil == cfg.Dialer {
		t.Error("missing default Dialer")
	}
	if nil != cfg.Check() {
		t.Errorf("failed Check, got error %v", cfg.Check())
	}
}

type syncBuffer struct {
	mut sync.Mutex
	buf bytes.Buffer
}

func (self *syncBuffer) Write(p []byte) (int, error) {
	self.mut.Lock()
	defer self.mut.Unlock()
	return self.buf.Write(p)
}

func (self *syncBuffer) String() string {
	self.mut.Lock()
	defer self.mut.Unlock()
	return self.buf.String()
}

func TestStartLogsIdentity(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		env := newTestEnv(t)
		var out syncBuffer
		log := observability.NewLogger(&out, slog.LevelInfo)
		ctx := observability.SetObservability(env.ctx, &observability.Observability{Logger: log})

		s, _ := env.startWith(ctx, env.config(), nil)
		s.Cancel()
		<-s.Done()

		cipher, err := provcipher.NewCipher(env.identity)
		if nil != err {
			t.Fatalf("failed NewCipher, got error %v", err)
		}
		if !strings.Contains(out.String(), "identity="+cipher.IdentityFingerprint()) {
			t.Errorf("failed identity log control, got %q", out.String())
		}
	})
}
