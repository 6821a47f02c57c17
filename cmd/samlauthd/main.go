package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/cardinalsites/samlauth/pkg/api"
	"github.com/cardinalsites/samlauth/pkg/config"
	"github.com/cardinalsites/samlauth/pkg/login"
	"github.com/cardinalsites/samlauth/pkg/observability"
	"github.com/cardinalsites/samlauth/pkg/provision"
	"github.com/cardinalsites/samlauth/pkg/saml"
	"github.com/cardinalsites/samlauth/pkg/workgroup"
)

// connectivityProbeSchedule checks the workgroup API every 15 minutes so a
// broken certificate shows up in the logs before a user hits it.
const connectivityProbeSchedule = "*/15 * * * *"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NopLogger().WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	policies, err := config.LoadPolicyStore(cfg.PolicyFile, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to load policy document")
		os.Exit(1)
	}

	// Each login gets its own client so workgroup lookups are memoized per
	// request, never across requests.
	newClient := login.ClientFactory(func() workgroup.Client {
		return workgroup.NewAPIClient(policies.WorkgroupConfig(cfg.Workgroup.BaseURL), logger, metrics)
	})

	syncService := login.NewSyncService(policies, newClient, logger, metrics)

	var provider *saml.Provider
	samlConfig := policies.SAMLConfig()
	if samlConfig.IdPSSOURL != "" {
		provider, err = saml.NewProvider(samlConfig)
		if err != nil {
			logger.WithError(err).Error("Failed to configure SAML provider")
			os.Exit(1)
		}
	} else {
		logger.Warn("No SAML configuration in the policy document, login endpoints disabled")
	}

	var db *sql.DB
	var store *provision.Store
	var provisioner *provision.Provisioner
	if cfg.Database.URL != "" {
		db, err = sql.Open(cfg.Database.Driver(), cfg.Database.URL)
		if err != nil {
			logger.WithError(err).Error("Failed to open database")
			os.Exit(1)
		}
		defer db.Close()

		store = provision.NewStore(db, cfg.Database.Driver())
		if err := store.Migrate(context.Background()); err != nil {
			logger.WithError(err).Error("Failed to migrate database")
			os.Exit(1)
		}
		provisioner = provision.NewProvisioner(store, policies, newClient, logger)
	} else {
		logger.Warn("No database configured, accounts will not be persisted")
	}

	server := api.NewServer(api.Options{
		Policies:    policies,
		Sync:        syncService,
		NewClient:   newClient,
		Provider:    provider,
		Provisioner: provisioner,
		Store:       store,
		// A fresh client per readiness check; a long-lived one would answer
		// every probe from its memoization cache.
		Health: observability.NewHealthChecker(db, observability.ProbeFunc(func(ctx context.Context) bool {
			return newClient().ConnectionSuccessful(ctx)
		})),
		Metrics:     metrics,
		Logger:      logger,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(connectivityProbeSchedule, func() {
		client := newClient()
		if !client.ConnectionSuccessful(context.Background()) {
			logger.Warn("Workgroup API connectivity probe failed")
		}
	}); err != nil {
		logger.WithError(err).Error("Failed to schedule connectivity probe")
		os.Exit(1)
	}
	scheduler.Start()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.WithField("addr", httpServer.Addr).Info("Starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		return policies.Watch(ctx)
	})

	group.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")

		<-scheduler.Stop().Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
