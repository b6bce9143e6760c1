package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	goSecretQ "github.com/MrEthical07/goSecretQ"
	"github.com/MrEthical07/goSecretQ/internal/appconfig"
	"github.com/MrEthical07/goSecretQ/metrics/export/prometheus"
	"github.com/MrEthical07/goSecretQ/middleware"
)

func newServeCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the challenge and enrollment forms over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cmd, true))
		},
	}
	cmd.Flags().String("http.listen", ":8080", "listen address")
	cmd.Flags().String("http.base_uri", "http://localhost:8080/", "public base URI used for the marker cookie path")
	return cmd
}

func serve(ctx context.Context, cfg appconfig.Config, logger *log.Logger) error {
	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	engine, err := b.engine(nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	for _, w := range engine.SecurityReport().LintWarningCodes {
		logger.Warn("config warning", "code", w)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           newServeMux(engine, b, cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTP.Listen, "backend", cfg.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newServeMux(engine *goSecretQ.Engine, b *backend, cfg appconfig.Config) *http.ServeMux {
	mux := http.NewServeMux()
	// Ranges were checked by appconfig.Load.
	proxies, _ := middleware.ParseTrustedProxies(cfg.HTTP.TrustedProxies)
	opts := middleware.Options{
		BaseURI:             cfg.HTTP.BaseURI,
		AuthenticatorConfig: cfg.AuthenticatorConfig(),
		TrustedProxies:      proxies,
		Logger:              stdLogger(b.log),
	}
	if cfg.Attempts.MaxAttempts > 0 {
		opts.Limiter = middleware.NewAttemptLimiter(b.rdb, middleware.AttemptLimitConfig{
			MaxAttempts:      cfg.Attempts.MaxAttempts,
			Window:           cfg.Attempts.Window,
			EnableIPThrottle: cfg.Attempts.PerIP,
			IPMaxAttempts:    cfg.Attempts.IPMaxAttempts,
		})
	}
	middleware.NewStepHandler(engine, b.sessions, opts).Register(mux)

	mux.Handle("GET /metrics", prometheus.NewPrometheusExporter(engine).Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := b.ping(ctx); err != nil {
			b.log.Warn("health check failed", "check", "store", "err", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if _, err := b.sessions.Ping(ctx); err != nil {
			b.log.Warn("health check failed", "check", "sessions", "err", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
