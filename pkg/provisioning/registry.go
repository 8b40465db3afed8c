package provisioning

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"code.rereg.org/golang/internal/observability"
	"code.rereg.org/golang/internal/utils"
	"code.rereg.org/golang/pkg/provcipher"
)

// Registry allocates Session ids and tracks running Sessions.
//
// Ids are assigned from a counter owned by the Registry, they start at 1 and are never reused.
type Registry struct {
	lastID   atomic.Int64
	sessions *utils.Registry[int64, *Session]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: utils.NewRegistry[int64, *Session]()}
}

// DefaultRegistry is used by the package level Start function.
// It is created at program initialization and lives for the whole process.
var DefaultRegistry = NewRegistry()

// Start starts a provisioning Session using DefaultRegistry.
func Start(ctx context.Context, identity *provcipher.IdentityKeyPair, cfg Config, onError ErrorHandler, block Block) (*Session, error) {
	return DefaultRegistry.Start(ctx, identity, cfg, onError, block)
}

// Start creates a new Session and opens its provisioning socket.
//
// Start validates its inputs and returns without waiting for the socket to open.
// The socket and block run as children of the Session; when block returns the Session
// ends, a nil block keeps the Session running until the socket terminates or Cancel is called.
// Cancelling ctx ends the Session.
//
// onError is called once, before Done is closed, with the error that ended the Session,
// unless the Session ended cleanly.
func (self *Registry) Start(ctx context.Context, identity *provcipher.IdentityKeyPair, cfg Config, onError ErrorHandler, block Block) (*Session, error) {
	if nil == identity {
		return nil, newError(ErrConfig, "nil identity key pair")
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Check(); nil != err {
		return nil, err
	}

	cipher, err := provcipher.NewCipher(identity)
	if nil != err {
		return nil, wrapError(err, Error, "failed creating session cipher")
	}

	id := self.lastID.Add(1)
	log := observability.GetObservability(ctx).Log().With("session", id, "tId", uuid.NewString())
	sctx, cancel := context.WithCancelCause(observability.SetObservability(ctx, &observability.Observability{Logger: log}))

	s := &Session{
		id:      id,
		cfg:     cfg,
		log:     log,
		cipher:  cipher,
		ctx:     sctx,
		cancel:  cancel,
		url:     utils.NewPromise[string](),
		message: utils.NewPromise[*provcipher.Result](),
		done:    make(chan struct{}),
	}
	if err = utils.RegistrySet(self.sessions, id, s); nil != err {
		cancel(err)
		cipher.Destroy()
		return nil, wrapError(err, Error, "failed registering session %d", id)
	}
	log.Info("starting provisioning session", "identity", cipher.IdentityFingerprint())

	s.spawn(func(ctx context.Context) error {
		err := s.connect(ctx)
		if nil == err && nil == block {
			s.cancel(nil)
		}
		return err
	})
	if nil != block {
		s.spawn(func(ctx context.Context) error {
			err := block(ctx, s)
			s.cancel(err)
			return err
		})
	}
	go s.teardown(self, onError)

	return s, nil
}

// Get returns the running Session with the given id.
func (self *Registry) Get(id int64) (*Session, bool) {
	return utils.RegistryGet(self.sessions, id)
}

// Len returns the number of running Sessions.
func (self *Registry) Len() int {
	return utils.RegistryLen(self.sessions)
}

// CancelAll cancels every running Session.
func (self *Registry) CancelAll() {
	for _, s := range utils.RegistryEntries(self.sessions) {
		s.Cancel()
	}
}
