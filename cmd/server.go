package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juancollazo-ch/order-print-relay/internal/api"
	"github.com/juancollazo-ch/order-print-relay/internal/config"
	"github.com/juancollazo-ch/order-print-relay/internal/handlers"
	"github.com/juancollazo-ch/order-print-relay/internal/ledger"
	"github.com/juancollazo-ch/order-print-relay/internal/logging"
	"github.com/juancollazo-ch/order-print-relay/internal/service"
	"github.com/juancollazo-ch/order-print-relay/internal/webhook"
	"github.com/juancollazo-ch/order-print-relay/internal/worker"
	"go.uber.org/zap"
)

// MAIN: inicializa ledger, reconciliador, poller y servidor de operación
func main() {
	cfg, err := config.FromEnvironment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logger JSON compatible con GCP Cloud Logging
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Reemplazar logger global
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	// Inicializar dependencias
	storefront, err := api.NewStorefrontClient(api.ClientConfig{
		BaseURL: cfg.StorefrontBaseURL,
		APIKey:  cfg.StorefrontAPIKey,
		SiteID:  cfg.StorefrontSiteID,
	}, logger.Named("storefront"))
	if err != nil {
		return fmt.Errorf("storefront client: %w", err)
	}

	sender, err := webhook.NewSender(webhook.SenderConfig{
		URL:     cfg.PrintPipelineURL,
		Timeout: cfg.DispatchTimeout,
	}, logger.Named("print"))
	if err != nil {
		return fmt.Errorf("print sender: %w", err)
	}

	reconciler := service.NewReconciler(storefront, store, sender, service.ReconcilerConfig{
		Criteria:          cfg.Criteria,
		Lookback:          cfg.Lookback,
		MaxOrders:         cfg.MaxOrders,
		RoutingCategories: cfg.RoutingCategories,
	}, logger.Named("reconciler"))

	var poller *worker.Poller
	var status handlers.PollerStatus
	if cfg.PollingEnabled {
		poller = worker.NewPoller(reconciler, cfg.PollInterval, logger.Named("poller"))
		if err := poller.Start(context.Background()); err != nil {
			return fmt.Errorf("start poller: %w", err)
		}
		status = poller
	} else {
		logger.Info("Polling disabled, cycles only run via POST /poll")
	}

	projectID := os.Getenv("GCP_PROJECT")
	if projectID == "" {
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}

	ops := handlers.NewOpsHandler(reconciler, store, status, logger.Named("http"))
	server := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      ops.Router(projectID),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 200 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	var background stopper
	if poller != nil {
		background = poller
	}

	logger.Info("Server started",
		zap.String("address", cfg.RunAddress),
		zap.String("ledger", cfg.LedgerDriver),
		zap.Bool("polling", cfg.PollingEnabled),
		zap.Duration("interval", cfg.PollInterval),
		zap.Duration("lookback", cfg.Lookback),
	)
	return serve(ctx, server, background, logger)
}

type stopper interface {
	Stop(ctx context.Context) error
}

// serve atiende hasta que ctx termine o el listener falle. En ambos casos el
// poller se detiene antes que el servidor, y antes de que run cierre el ledger.
func serve(ctx context.Context, server *http.Server, poller stopper, logger *zap.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	// GRACEFUL SHUTDOWN
	select {
	case <-ctx.Done():
		logger.Info("Shutting down gracefully...")
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server stopped unexpectedly", zap.Error(err))
			runErr = fmt.Errorf("server stopped unexpectedly: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if poller != nil {
		if err := poller.Stop(shutdownCtx); err != nil {
			logger.Error("Poller did not stop in time", zap.Error(err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}

	logger.Info("Server exited")
	return runErr
}

func openLedger(ctx context.Context, cfg *config.Config) (ledger.Store, error) {
	switch cfg.LedgerDriver {
	case config.LedgerMemory:
		return ledger.NewMemoryStore(), nil
	case config.LedgerPostgres:
		return ledger.Open(ctx, ledger.DriverPostgres, cfg.LedgerDSN)
	default:
		return ledger.Open(ctx, ledger.DriverSQLite, cfg.LedgerDSN)
	}
}
