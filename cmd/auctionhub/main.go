package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abhinavece/auctionhub/internal/auction"
	"github.com/abhinavece/auctionhub/internal/broadcast"
	"github.com/abhinavece/auctionhub/internal/clock"
	"github.com/abhinavece/auctionhub/internal/config"
	"github.com/abhinavece/auctionhub/internal/health"
	"github.com/abhinavece/auctionhub/internal/httpapi"
	"github.com/abhinavece/auctionhub/internal/leader"
	"github.com/abhinavece/auctionhub/internal/store"
	"github.com/abhinavece/auctionhub/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/abhinavece/auctionhub/internal/store/entstore"
	_ "github.com/abhinavece/auctionhub/internal/store/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	logger.InfoContext(ctx, "connected to database", slog.String("driver", cfg.Database.Driver))

	hub := broadcast.NewHub(cfg.Realtime, logger)
	fabric := broadcast.NewFabric(hub)
	auctionMgr := auction.NewManager(repos.Auctions, repos.Events, fabric, clk, logger)
	api := httpapi.NewServer(auctionMgr, repos.Auctions, cfg.AuctionDefaults, clk, logger)
	wsHandler := broadcast.NewUpgradeHandler(hub, auctionMgr, logger)

	healthHandler := health.NewHandler(clk,
		health.Checker{
			Name:  "database",
			Check: repos.Ping,
		},
	)

	router := api.NewRouter()
	router.HandleFunc("/auctions/{id}/ws", wsHandler.ServeHTTP)
	router.HandleFunc("/healthz", healthHandler.LivenessHandler())
	router.HandleFunc("/readyz", healthHandler.ReadinessHandler())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting http server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
			logger.ErrorContext(ctx, "http server error", slog.Any("error", listenErr))
		}
	}()

	// startEngine is the core work that only the leader replica should run:
	// it recovers open auctions from the event-sourced state store and
	// starts accepting coordinator commands (bids, lifecycle transitions,
	// trades). Standby replicas still serve /healthz so liveness probes
	// don't flap during failover.
	startEngine := func(ctx context.Context) {
		if err := auctionMgr.RecoverOpenAuctions(ctx); err != nil {
			logger.ErrorContext(ctx, "auction recovery failed", slog.Any("error", err))
		}

		healthHandler.SetReady(true)
		logger.InfoContext(ctx, "auctionhub is running (leader)", slog.String("version", version))

		<-ctx.Done()

		healthHandler.SetReady(false)
		auctionMgr.Shutdown()
	}

	if cfg.LeaderElection.Enabled {
		logger.InfoContext(ctx, "leader election enabled, waiting for leadership...")

		if leaderErr := leader.Run(ctx, leader.Config(cfg.LeaderElection), logger, startEngine, func() {
			logger.Info("lost leadership, shutting down...")
			cancel()
		}); leaderErr != nil {
			return fmt.Errorf("leader election: %w", leaderErr)
		}
	} else {
		healthHandler.SetReady(true)
		logger.InfoContext(ctx, "auctionhub is running", slog.String("version", version))

		if err := auctionMgr.RecoverOpenAuctions(ctx); err != nil {
			logger.ErrorContext(ctx, "auction recovery failed", slog.Any("error", err))
		}

		<-ctx.Done()
		logger.Info("shutting down...")

		healthHandler.SetReady(false)
		auctionMgr.Shutdown()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}
