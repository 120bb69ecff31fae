package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/donorhub/authcore/internal/limiters"
	"github.com/donorhub/authcore/internal/stores"
	"github.com/donorhub/authcore/password"
	"github.com/donorhub/authcore/permission"
	"github.com/donorhub/authcore/session"
	"github.com/donorhub/authcore/token"
)

// Builder assembles an [Engine]. Collect dependencies with the With*
// methods, then call Build exactly once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory UserDirectory
	mailer    Mailer
	log       *zap.Logger
	auditSink AuditSink
	roles     *permission.Table

	built bool
}

// New returns a [Builder] preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing sessions, refresh records,
// tickets, and the lockout limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDirectory sets the user system of record.
func (b *Builder) WithDirectory(d UserDirectory) *Builder {
	b.directory = d
	return b
}

// WithMailer sets the out-of-band code deliverer.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithLogger sets the engine's structured logger. Without one the engine
// logs nowhere.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.log = log
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRoles replaces the default role table. The table is frozen by Build
// if the caller has not already frozen it.
func (b *Builder) WithRoles(t *permission.Table) *Builder {
	b.roles = t
	return b
}

// Build validates the collected configuration and dependencies and returns
// a ready [Engine]. It refuses to proceed without a signing secret, a Redis
// client, a directory, and a mailer.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}

	hasher, err := password.New(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(token.Config{
		Secret:     cfg.Token.SigningSecret,
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
		Issuer:     cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}

	roles := b.roles
	if roles == nil {
		roles = permission.DefaultRoles()
	}
	roles.Freeze()

	log := b.log
	if log == nil {
		log = zap.NewNop()
	}

	engine := &Engine{
		config:        cfg,
		log:           log,
		directory:     b.directory,
		mailer:        b.mailer,
		perms:         roles,
		tokens:        tokens,
		passwords:     hasher,
		policy:        cfg.Password.Policy,
		sessions:      session.NewStore(b.redis, cfg.Session.RedisPrefix),
		refreshTokens: stores.NewRefreshStore(b.redis, "rt"),
		verifyTickets: stores.NewTicketStore(b.redis, "evt"),
		resetTickets:  stores.NewTicketStore(b.redis, "prt"),
		lockout: limiters.NewLockoutLimiter(b.redis, limiters.LockoutConfig{
			Enabled:   cfg.Lockout.Enabled,
			Threshold: cfg.Lockout.Threshold,
			Duration:  cfg.Lockout.Duration,
		}),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}

	b.built = true
	return engine, nil
}
