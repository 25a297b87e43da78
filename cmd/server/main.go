// Package main runs the growth wallet HTTP service: catalog, simulation,
// autopilot, reports, Prometheus metrics and the websocket event stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"growth-wallet/internal/api"
	"growth-wallet/internal/config"
	"growth-wallet/internal/domain"
	"growth-wallet/internal/logging"
	"growth-wallet/internal/observability"
	"growth-wallet/internal/reporting"
	"growth-wallet/internal/stream"
	"growth-wallet/internal/verification"
	"growth-wallet/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}

	stores, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics(nil, cfg.MetricsNamespace)
	hub := stream.NewHub(nil, logger.Named("stream"), metrics)
	defer hub.Close()

	simCfg := cfg.Simulation()
	svc, err := wallet.New(wallet.Options{
		Products:          stores.products,
		History:           stores.history,
		Outcomes:          stores.outcomes,
		Publisher:         hub,
		Metrics:           metrics,
		Logger:            logger.Named("wallet"),
		Config:            simCfg,
		AutopilotInterval: cfg.AutopilotInterval,
		AutopilotLogLimit: cfg.AutopilotLogLimit,
	})
	if err != nil {
		return fmt.Errorf("create wallet service: %w", err)
	}
	defer svc.Close()

	if err := svc.SeedCatalog(ctx, catalog); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	if cfg.DefaultProduct != "" {
		if _, err := svc.SelectProduct(ctx, cfg.DefaultProduct); err != nil {
			return fmt.Errorf("select default product: %w", err)
		}
	}

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewServer(api.Options{
			Service:  svc,
			Reports:  reporting.NewGenerator(stores.history, stores.outcomes),
			Verifier: verification.NewReplayVerifier(stores.history, simCfg).WithOutcomes(stores.outcomes),
			Stream:   hub,
			Logger:   logger.Named("api"),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var watcher *config.CatalogWatcher
	if cfg.CatalogWatch && cfg.CatalogFile != "" {
		watcher, err = config.NewCatalogWatcher(cfg.CatalogFile, logger.Named("catalog"))
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting HTTP server", zap.String("addr", cfg.HTTPAddr), zap.Bool("memory", cfg.UseMemory))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx, func(products []domain.Product) {
				if err := svc.SeedCatalog(gctx, products); err != nil {
					logger.Warn("seed reloaded catalog failed", zap.Error(err))
				}
			})
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))

		// autopilot first so no step lands after the stores close
		svc.Close()
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
