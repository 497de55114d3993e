package authstore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starshipcosmos/authstore/jwt"
	"github.com/starshipcosmos/authstore/principal"
	"github.com/starshipcosmos/authstore/session"
)

// Builder assembles a Store. A Builder can be used for one Build only.
type Builder[P principal.Principal] struct {
	config Config

	backend       session.Backend
	codec         session.Codec
	authenticator Authenticator[P]
	auditSink     AuditSink
	logger        *slog.Logger

	built bool
}

// New returns a Builder preloaded with the default Config.
func New[P principal.Principal]() *Builder[P] {
	return &Builder[P]{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder[P]) WithConfig(cfg Config) *Builder[P] {
	b.config = cloneConfig(cfg)
	return b
}

// WithNamespace sets the backend key the store reads and writes.
func (b *Builder[P]) WithNamespace(namespace string) *Builder[P] {
	b.config.Namespace = namespace
	return b
}

// WithBackend sets where the session record is persisted. Required.
func (b *Builder[P]) WithBackend(backend session.Backend) *Builder[P] {
	b.backend = backend
	return b
}

// WithCodec overrides the codec derived from Config.Record.
func (b *Builder[P]) WithCodec(codec session.Codec) *Builder[P] {
	b.codec = codec
	return b
}

// WithAuthenticator sets the credential check used by SignIn. Required.
func (b *Builder[P]) WithAuthenticator(auth Authenticator[P]) *Builder[P] {
	b.authenticator = auth
	return b
}

// WithAuditSink sets the sink and enables auditing.
func (b *Builder[P]) WithAuditSink(sink AuditSink) *Builder[P] {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithLogger sets the store logger. Defaults to slog.Default.
func (b *Builder[P]) WithLogger(logger *slog.Logger) *Builder[P] {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder[P]) WithMetricsEnabled(enabled bool) *Builder[P] {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the sign-in latency histogram.
func (b *Builder[P]) WithLatencyHistograms(enabled bool) *Builder[P] {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and starts rehydration from the backend
// in the background. ctx supplies values for that read; cancelling it does
// not abort rehydration.
func (b *Builder[P]) Build(ctx context.Context) (*Store[P], error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.backend == nil {
		return nil, errors.Join(ErrStoreNotReady, errors.New("backend required"))
	}
	if b.authenticator == nil {
		return nil, errors.Join(ErrStoreNotReady, errors.New("authenticator required"))
	}

	codec := b.codec
	if codec == nil {
		var err error
		codec, err = recordCodec(cfg)
		if err != nil {
			return nil, err
		}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With("namespace", cfg.Namespace)
	s := &Store[P]{
		cfg:       cfg,
		backend:   b.backend,
		codec:     codec,
		auth:      b.authenticator,
		logger:    logger,
		metrics:   NewMetrics(cfg.Metrics),
		audit:     newAuditDispatcher(cfg.Namespace, cfg.Audit, b.auditSink, logger),
		listeners: map[uint64]Listener[P]{},
		ready:     make(chan struct{}),
		closedCh:  make(chan struct{}),
		state: State[P]{
			Phase:     PhaseInitializing,
			IsLoading: true,
		},
	}

	b.built = true

	if ctx == nil {
		ctx = context.Background()
	}
	go s.rehydrate(context.WithoutCancel(ctx))

	return s, nil
}

func recordCodec(cfg Config) (session.Codec, error) {
	if !cfg.Record.Signed {
		return session.JSONCodec{}, nil
	}

	sealer, err := jwt.NewSealer(jwt.Config{
		SigningMethod: cfg.Record.SigningMethod,
		PrivateKey:    cfg.Record.PrivateKey,
		PublicKey:     cfg.Record.PublicKey,
		Issuer:        cfg.Record.Issuer,
		Audience:      cfg.Namespace,
	})
	if err != nil {
		return nil, err
	}
	return session.NewSignedCodec(sealer)
}
