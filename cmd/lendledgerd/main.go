package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"lendledger/config"
	"lendledger/core"
	"lendledger/core/state"
	"lendledger/native/lending"
	"lendledger/observability/logging"
	"lendledger/observability/metrics"
	"lendledger/observability/otel"
	"lendledger/rpc"
	"lendledger/rpc/middleware"
	"lendledger/storage"
)

const serviceName = "lendledger"

func main() {
	configPath := flag.String("config", "", "path to TOML configuration file")
	listen := flag.String("listen", "", "listen address override")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *listen != "" {
		cfg.ListenAddress = *listen
	}

	logger := logging.SetupWithFile(serviceName, cfg.Environment, logging.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Otel.Metrics || cfg.Otel.Traces {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName: serviceName,
			Environment: cfg.Environment,
			Endpoint:    cfg.Otel.Endpoint,
			Insecure:    cfg.Otel.Insecure,
			Headers:     otel.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
			Metrics:     cfg.Otel.Metrics,
			Traces:      cfg.Otel.Traces,
		})
		if err != nil {
			logger.Error("telemetry init failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown", "err", err)
			}
		}()
	}

	var db storage.Database
	if dir := strings.TrimSpace(cfg.DataDir); dir != "" {
		ldb, err := storage.NewLevelDB(filepath.Join(dir, "ledger"))
		if err != nil {
			logger.Error("open database", "dir", dir, "err", err)
			os.Exit(1)
		}
		db = ldb
	} else {
		logger.Warn("no data directory configured, state is not persisted")
		db = storage.NewMemDB()
	}

	node := core.NewNode(state.NewManager(db),
		core.WithLogger(logger),
		core.WithAuthorizer(lending.NewStaticAuthorizer(cfg.GovernancePrincipals...)),
		core.WithEmitter(metrics.Lending()),
	)
	defer func() {
		if err := node.Close(); err != nil {
			logger.Warn("close node", "err", err)
		}
	}()

	if cfg.HasParams() {
		err := node.InitParams(lending.ProtocolParams{
			InterestRateBps:         cfg.Params.InterestRateBps,
			CollateralRatioBps:      cfg.Params.CollateralRatioBps,
			LiquidationThresholdBps: cfg.Params.LiquidationThresholdBps,
			LiquidationBonusBps:     cfg.Params.LiquidationBonusBps,
		})
		if err != nil {
			logger.Error("seed params", "err", err)
			os.Exit(1)
		}
	}

	if path := strings.TrimSpace(cfg.SeedFile); path != "" {
		seed, err := core.LoadSeed(path)
		if err != nil {
			logger.Error("load seed file", "path", path, "err", err)
			os.Exit(1)
		}
		if err := node.ApplySeed(seed); err != nil {
			logger.Error("apply seed", "err", err)
			os.Exit(1)
		}
		logger.Info("seed applied", "path", path, "assets", len(seed.Assets), "balances", len(seed.Balances))
	}

	server := rpc.NewServer(node, rpc.ServerConfig{
		Logger:    logger,
		GovSecret: os.Getenv("LENDLEDGER_GOV_SECRET"),
	})
	handler := server.Router(middleware.RateLimit{
		RequestsPerMinute: cfg.RateLimitPerMin,
		Burst:             cfg.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddress)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "err", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "err", err)
			os.Exit(1)
		}
	}
}
