package goSecretQ

import (
	"errors"
	"log"
	"strings"

	"github.com/MrEthical07/goSecretQ/answer"
	"github.com/MrEthical07/goSecretQ/internal/audit"
	"github.com/MrEthical07/goSecretQ/internal/i18n"
	"github.com/MrEthical07/goSecretQ/marker"
)

// Builder defines a public type used by goSecretQ APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config

	store    CredentialStore
	devices  DeviceCredentialCreator
	renderer Renderer
	comparer answer.Comparer

	auditSink AuditSink
	logger    *log.Logger

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the credential store. Required.
func (b *Builder) WithStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithDeviceCredentials sets the device-binding collaborator. Without one,
// a successful attempt that asks for device registration fails with
// [ErrDeviceBindingUnavailable].
func (b *Builder) WithDeviceCredentials(c DeviceCredentialCreator) *Builder {
	b.devices = c
	return b
}

// WithRenderer sets the form renderer. Required.
func (b *Builder) WithRenderer(r Renderer) *Builder {
	b.renderer = r
	return b
}

// WithComparer overrides the comparer selected by Config.Answer.Strategy.
func (b *Builder) WithComparer(c answer.Comparer) *Builder {
	b.comparer = c
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the destination for data-integrity log lines. Default is
// the standard logger.
func (b *Builder) WithLogger(l *log.Logger) *Builder {
	b.logger = l
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when configuration validation fails or a required collaborator is missing.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.store == nil {
		return nil, errors.New("credential store required")
	}
	if b.renderer == nil {
		return nil, errors.New("renderer required")
	}

	comparer := b.comparer
	if comparer == nil {
		c, err := answer.New(strings.ToLower(cfg.Answer.Strategy), answer.Config{
			Memory:      cfg.Answer.Memory,
			Time:        cfg.Answer.Time,
			Parallelism: cfg.Answer.Parallelism,
			SaltLength:  cfg.Answer.SaltLength,
			KeyLength:   cfg.Answer.KeyLength,
		})
		if err != nil {
			return nil, err
		}
		comparer = c
	}

	issuer, err := marker.New(marker.Config{
		CookieName: cfg.Bypass.CookieName,
		Secure:     cfg.Bypass.Secure,
		SigningKey: cloneBytes(cfg.Bypass.SigningKey),
		Issuer:     cfg.Bypass.Issuer,
		Leeway:     cfg.Bypass.Leeway,
	})
	if err != nil {
		return nil, err
	}

	catalog, err := i18n.New(cfg.Locale.Default)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = log.Default()
	}

	engine := &Engine{
		config:   cfg,
		store:    b.store,
		devices:  b.devices,
		renderer: b.renderer,
		comparer: comparer,
		marker:   issuer,
		catalog:  catalog,
		logger:   logger,
		metrics:  NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	b.built = true

	return engine, nil
}
