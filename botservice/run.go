// Package botservice wires the lookup bot together and runs it until a
// termination signal arrives.
package botservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gurujiofficial51-wq/info1/internal/config"
	"github.com/gurujiofficial51-wq/info1/internal/conversation"
	"github.com/gurujiofficial51-wq/info1/internal/dispatch"
	"github.com/gurujiofficial51-wq/info1/internal/factory"
	"github.com/gurujiofficial51-wq/info1/internal/health"
	"github.com/gurujiofficial51-wq/info1/internal/ledger"
	"github.com/gurujiofficial51-wq/info1/internal/logger"
	"github.com/gurujiofficial51-wq/info1/internal/lookup"
	"github.com/gurujiofficial51-wq/info1/internal/opsapi"
	"github.com/gurujiofficial51-wq/info1/internal/registration"
	"github.com/gurujiofficial51-wq/info1/internal/store"
	"github.com/gurujiofficial51-wq/info1/internal/telegram"
)

const reapInterval = time.Minute

// Run starts the bot and blocks until shutdown or a fatal error.
func Run() error {
	cfg, err := config.New()
	if err != nil {
		l := logger.New("lookup-bot")
		l.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	log := logger.NewWithWriter(os.Stdout, "lookup-bot", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store unavailable")
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("store close failed")
		}
	}()

	svcHealth := startHealthCheckers(ctx, cfg, log, st)
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	api, err := telegram.NewAPI(cfg.BotToken, log)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Telegram authorization failed")
		return err
	}

	sessions := conversation.NewSessions(cfg.SessionIdleTTL)
	machine := conversation.NewMachine(conversation.Deps{
		Store:        st,
		Ledger:       ledger.NewService(st, log),
		Registrar:    registration.NewRegistrar(st, log),
		Gateway:      lookup.NewHTTPGateway(cfg.APIURL, cfg.APIKey, cfg.LookupTimeout, log),
		Replier:      telegram.NewSender(api, cfg.SendRate, log),
		Sessions:     sessions,
		ReferralLink: cfg.ReferralLink,
		Logger:       log,
	})

	exec := newExecutor(cfg, log)
	bot := telegram.NewBot(api, machine, exec, cfg.PollTimeout, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(gctx) })
	g.Go(func() error {
		sessions.Run(gctx, reapInterval)
		return nil
	})
	if cfg.OpsAddr != "" {
		srv := newOpsServer(gctx, cfg.OpsAddr, opsapi.NewRouter(svcHealth.IsHealthy, st.Principals()))
		g.Go(func() error { return serveOps(gctx, srv, log) })
	}

	log.Info().Msg("Lookup bot running")
	err = g.Wait()

	// Accepted events finish before the store closes.
	log.Info().Msg("Draining queued events")
	exec.Stop()
	log.Info().Msg("Lookup bot stopped")
	return err
}

func newExecutor(cfg *config.Config, log zerolog.Logger) *dispatch.Executor {
	return dispatch.NewExecutor(dispatch.Config{
		Shards:         cfg.Shards,
		QueueSize:      cfg.QueueSize,
		EnqueueTimeout: cfg.EnqueueTimeout,
		ErrorHandler: func(key string, err error) {
			log.Error().Stack().Err(err).Str("principal", key).Msg("event handling failed")
		},
		Logger: log,
	})
}

// startHealthCheckers probes the store periodically and aggregates the result.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, st store.Store) *health.ServiceHealthChecker {
	storeChecker := health.NewPingChecker("store", st, log, cfg.HealthProbeTimeout)
	go storeChecker.Start(ctx, cfg.HealthInterval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker)
	go svcHealth.Start(ctx, cfg.HealthInterval)
	return svcHealth
}

// waitUntilHealthy blocks until the service reports healthy or the bootstrap
// window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth interface{ Evaluate() bool }) error {
	timeout := time.Duration(cfg.BootstrapTimeoutSecs) * time.Second
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.Evaluate() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func newOpsServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

// serveOps runs srv until ctx ends.
func serveOps(ctx context.Context, srv *http.Server, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Ops server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			log.Error().Stack().Err(err).Msg("Ops server failed")
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
