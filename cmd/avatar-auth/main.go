package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/avatar-auth/internal/adapters/driven/cookie"
	"github.com/custodia-labs/avatar-auth/internal/adapters/driven/memory"
	"github.com/custodia-labs/avatar-auth/internal/adapters/driven/oidc"
	httpserver "github.com/custodia-labs/avatar-auth/internal/adapters/driving/http"
	"github.com/custodia-labs/avatar-auth/internal/config"
	"github.com/custodia-labs/avatar-auth/internal/core/services"
	"github.com/custodia-labs/avatar-auth/internal/runtime"
	"github.com/custodia-labs/avatar-auth/internal/worker"
)

// Version information (set at build time)
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("avatar-auth exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("avatar-auth starting",
		"version", version,
		"frontend_origin", cfg.FrontendOrigin)

	// Setup context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ===== Identity providers =====
	providers := runtime.NewProviders(logger)
	if cfg.Google.Enabled() {
		providers.Register(oidc.NewAdapter(oidc.GoogleConfig(
			cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURI)))
	}
	if cfg.AzureAD.Enabled() {
		providers.Register(oidc.NewAdapter(oidc.AzureADConfig(
			cfg.AzureAD.TenantID, cfg.AzureAD.ClientID, cfg.AzureAD.ClientSecret, cfg.AzureAD.RedirectURI)))
	}

	// ===== In-memory stores =====
	states := memory.NewStateStore()
	sessions := memory.NewSessionStore()
	codec := cookie.NewCodec(cookie.Config{
		Name:     cfg.CookieName,
		Secure:   cfg.CookieSecure,
		SameSite: cfg.SameSite(),
	})

	// ===== Services =====
	gateway := services.NewAuthGateway(services.AuthGatewayConfig{
		Providers:       providers,
		States:          states,
		Sessions:        sessions,
		Cookies:         codec,
		FrontendOrigin:  cfg.FrontendOrigin,
		ExchangeTimeout: cfg.ExchangeTimeout,
		SessionMaxAge:   cfg.SessionMaxAge,
		Logger:          logger,
	})

	sweeper := worker.NewSweeper(worker.SweeperConfig{
		States:   states,
		Logger:   logger,
		Interval: cfg.StateSweepPeriod,
	})
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start state sweeper: %w", err)
	}
	defer sweeper.Stop()

	// ===== Provider discovery =====
	// The server listens while discovery runs; provider routes answer 503 until ready.
	// Discovery that never succeeds within the timeout stops the process.
	discoveryErr := make(chan error, 1)
	go func() {
		discoverCtx, cancel := context.WithTimeout(ctx, cfg.DiscoveryTimeout)
		defer cancel()
		if err := providers.Initialize(discoverCtx); err != nil {
			discoveryErr <- err
			stop()
		}
	}()

	// ===== HTTP server =====
	server := httpserver.NewServer(httpserver.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        version,
		FrontendOrigin: cfg.FrontendOrigin,
	}, gateway, providers, logger)

	if err := server.Start(ctx); err != nil {
		return err
	}

	select {
	case err := <-discoveryErr:
		return fmt.Errorf("identity provider discovery: %w", err)
	default:
	}

	logger.Info("avatar-auth stopped")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler).With("service", "avatar-auth")
}
