package credAuth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	internalaudit "github.com/MrEthical07/credAuth/internal/audit"
	"github.com/MrEthical07/credAuth/internal/rate"
	"github.com/MrEthical07/credAuth/internal/shadow"
	"github.com/MrEthical07/credAuth/jwt"
	"github.com/MrEthical07/credAuth/password"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     UserStore
	notifier  Notifier
	auditSink AuditSink
	logger    *slog.Logger

	clock  func() time.Time
	waiter shadow.Waiter

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the IP throttle. Required while throttling is enabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the account persistence. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.store = store
	return b
}

// WithNotifier sets the alert and welcome channel. Without one, alerts are still counted and
// audited but not delivered.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink sets the audit event consumer used when Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for operational warnings. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the hash latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("user store required")
	}
	if cfg.Throttle.Enabled && b.redis == nil {
		return nil, errors.New("redis client required while throttling is enabled")
	}

	peppers, err := password.NewPepperSet(cfg.Pepper.Current, cfg.Pepper.Olds)
	if err != nil {
		return nil, err
	}

	base, err := password.NewArgon2(cfg.Password.Base)
	if err != nil {
		return nil, fmt.Errorf("base profile: %w", err)
	}
	strong, err := password.NewArgon2(cfg.Password.Strong)
	if err != nil {
		return nil, fmt.Errorf("strong profile: %w", err)
	}

	limiter, err := rate.New(b.redis, rate.Config{
		Enabled:       cfg.Throttle.Enabled,
		Points:        cfg.Throttle.Points,
		Window:        cfg.Throttle.Window,
		BlockDuration: cfg.Throttle.BlockDuration,
		Whitelist:     cfg.Throttle.Whitelist,
		Prefix:        cfg.Throttle.RedisPrefix,
	})
	if err != nil {
		return nil, err
	}

	signKey := cloneBytes(cfg.JWT.PrivateKey)
	if cfg.JWT.SigningMethod == "hs256" && cfg.JWT.Secret != "" {
		signKey = []byte(cfg.JWT.Secret)
	}
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    signKey,
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	pool := password.NewPool(cfg.Password.MaxConcurrentHashes)

	engine := &Engine{
		config:     cfg,
		logger:     logger,
		store:      b.store,
		notifier:   b.notifier,
		limiter:    limiter,
		base:       base,
		strong:     strong,
		pool:       pool,
		verifier:   password.NewVerifier(peppers, pool),
		jwtManager: jm,
		metrics:    NewMetrics(cfg.Metrics),
		waiter:     b.waiter,
		clock:      b.clock,
		policy: password.RehashPolicy{
			Target: cfg.Password.Strong,
			Period: cfg.Password.RotationPeriod,
		},
	}

	// Unknown emails are checked against a digest of a random secret under the strong
	// profile, the profile most stored digests converge to.
	dummy, err := dummyDigest(strong, peppers.Current())
	if err != nil {
		return nil, err
	}
	engine.dummyDigest = dummy

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}

func dummyDigest(hasher *password.Argon2, pepper string) (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hasher.Hash(password.Apply(pepper, password.Prehash(hex.EncodeToString(raw[:]))))
}
