package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	goSecretQ "github.com/MrEthical07/goSecretQ"
	"github.com/MrEthical07/goSecretQ/internal/appconfig"
	"github.com/MrEthical07/goSecretQ/middleware"
	"github.com/MrEthical07/goSecretQ/redisstore"
	"github.com/MrEthical07/goSecretQ/session"
	"github.com/MrEthical07/goSecretQ/sqlstore"
)

// backend bundles the storage collaborators selected by the config.
type backend struct {
	cfg      appconfig.Config
	rdb      redis.UniversalClient
	store    goSecretQ.CredentialStore
	devices  goSecretQ.DeviceCredentialCreator
	sessions *session.Store
	ping     func(context.Context) error
	log      *log.Logger
	closers  []func()
}

func openBackend(ctx context.Context, cfg appconfig.Config, logger *log.Logger) (*backend, error) {
	b := &backend{cfg: cfg, log: logger}
	logger.Debug("opening backend", "backend", cfg.Backend)

	addr := cfg.RedisAddr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		b.closers = append(b.closers, mr.Close)
		addr = mr.Addr()
		logger.Info("using in-process miniredis", "addr", addr)
	}
	b.rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	b.closers = append(b.closers, func() { _ = b.rdb.Close() })

	engineCfg := goSecretQ.DefaultConfig()
	b.sessions = session.NewStore(b.rdb, engineCfg.Store.SessionPrefix, cfg.Session.IdleTTL, cfg.Session.MaxLifetime, true, 30*time.Second)

	switch cfg.Backend {
	case appconfig.BackendSQLite, appconfig.BackendPostgres, appconfig.BackendMySQL:
		dsn := cfg.SQLDSN
		if cfg.Backend == appconfig.BackendSQLite {
			dsn = cfg.SQLiteDSN
		}
		st, err := sqlstore.OpenDB(ctx, cfg.Backend, dsn)
		if err != nil {
			logger.Error("open sql store", "backend", cfg.Backend, "err", err)
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = st.Close() })
		b.store = st
		b.devices = st
		b.ping = st.Ping
	default:
		st := redisstore.NewStore(b.rdb, engineCfg.Store.CredentialPrefix)
		b.store = st
		b.devices = redisstore.NewDeviceStore(b.rdb, engineCfg.Store.DevicePrefix)
		b.ping = func(ctx context.Context) error {
			_, err := st.Ping(ctx)
			return err
		}
	}
	return b, nil
}

// engine builds an Engine over the backend. out receives audit events when
// auditing is enabled; nil means stderr.
func (b *backend) engine(out io.Writer) (*goSecretQ.Engine, error) {
	cfg, err := b.cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	renderer, err := middleware.NewHTMLRenderer("", cfg.Enrollment.AllowCustomQuestion)
	if err != nil {
		return nil, err
	}

	builder := goSecretQ.New().
		WithConfig(cfg).
		WithStore(b.store).
		WithDeviceCredentials(b.devices).
		WithRenderer(renderer).
		WithLogger(stdLogger(b.log))
	if cfg.Audit.Enabled {
		if out == nil {
			out = os.Stderr
		}
		builder = builder.WithAuditSink(goSecretQ.NewJSONWriterSink(out))
	}
	return builder.Build()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
