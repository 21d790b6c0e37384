package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sellerchain/config"
	"sellerchain/core"
	"sellerchain/core/genesis"
	"sellerchain/core/types"
	"sellerchain/indexer"
	"sellerchain/integrations/webhooks"
	"sellerchain/observability/logging"
	telemetry "sellerchain/observability/otel"
	"sellerchain/rpc"
	"sellerchain/storage"
	"sellerchain/storage/receipts"
)

const (
	genesisPathEnv = "SELLER_GENESIS"
	envNameEnv     = "SELLER_ENV"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides SELLER_GENESIS and config GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	env := strings.TrimSpace(os.Getenv(envNameEnv))
	if env == "" {
		env = cfg.Environment
	}
	logger, logCloser := logging.Setup("sellerd", env, logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer logCloser.Close()

	if err := run(cfg, resolveGenesisPath(*genesisFlag, cfg.GenesisFile), env, logger); err != nil {
		logger.Error("sellerd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func resolveGenesisPath(flagValue, configured string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(genesisPathEnv)); v != "" {
		return v
	}
	return strings.TrimSpace(configured)
}

func run(cfg *config.Config, genesisPath, env string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "sellerd",
		Environment: env,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.OTLPHeaders),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	receiptStore, err := receipts.Open(filepath.Join(cfg.DataDir, "receipts.db"))
	if err != nil {
		return err
	}
	defer receiptStore.Close()

	var spec *genesis.Spec
	if genesisPath != "" {
		spec, err = genesis.Load(genesisPath)
		if err != nil {
			return fmt.Errorf("load genesis: %w", err)
		}
	}

	node, err := core.NewNode(db, receiptStore, core.NodeConfig{
		ChainID:    cfg.ChainID,
		Schedule:   cfg.Gas,
		Genesis:    spec,
		CallGasCap: cfg.RPC.CallGasCap,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	logger.Info("node ready",
		slog.Uint64("chain_id", node.ChainID()),
		slog.Uint64("height", node.Height()),
		slog.String("root", node.Root().Hex()))

	var wg sync.WaitGroup
	if cfg.Indexer.Enabled {
		closeIndexer, err := startIndexer(ctx, cfg, node, receiptStore, logger, &wg)
		if err != nil {
			return err
		}
		defer closeIndexer()
	}

	metricsSrv := &http.Server{
		Addr:              cfg.Telemetry.MetricsAddress,
		Handler:           metricsMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics listening", slog.String("address", cfg.Telemetry.MetricsAddress))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	jwtSecret := cfg.JWTSecretValue()
	logger.Info("json-rpc configured",
		slog.String("address", cfg.RPC.Address),
		logging.MaskField("jwt_secret", jwtSecret),
		slog.Float64("rate_limit", cfg.RPC.RateLimitPerSecond))
	server := rpc.NewServer(node, rpc.Config{
		JWTSecret:          jwtSecret,
		JWTIssuer:          cfg.RPC.JWTIssuer,
		RateLimitPerSecond: cfg.RPC.RateLimitPerSecond,
		RateLimitBurst:     cfg.RPC.RateLimitBurst,
		AllowedOrigins:     cfg.RPC.AllowedOrigins,
		MaxBodyBytes:       cfg.RPC.MaxBodyBytes,
		CallGasCap:         cfg.RPC.CallGasCap,
		ReadTimeout:        time.Duration(cfg.RPC.ReadTimeoutSecs) * time.Second,
		WriteTimeout:       time.Duration(cfg.RPC.WriteTimeoutSecs) * time.Second,
	}, logger)
	err = server.Serve(ctx, cfg.RPC.Address)
	stop()
	wg.Wait()
	logger.Info("sellerd shut down")
	return err
}

// startIndexer opens the activity index, replays stored receipts it has not
// seen yet and then follows the live receipt feed. Subscribing before the
// replay means no receipt committed in between is lost; Index skips the
// overlap.
func startIndexer(ctx context.Context, cfg *config.Config, node *core.Node, store *receipts.Store, logger *slog.Logger, wg *sync.WaitGroup) (func(), error) {
	ix, err := indexer.Open(cfg.Indexer.Driver, cfg.Indexer.DSN, logger.With(slog.String("component", "indexer")))
	if err != nil {
		return nil, fmt.Errorf("open indexer: %w", err)
	}

	var dispatcher *webhooks.Dispatcher
	if endpoint := strings.TrimSpace(cfg.Webhook.Endpoint); endpoint != "" {
		dispatcher, err = webhooks.NewDispatcher(endpoint, []byte(cfg.WebhookSecretValue()),
			webhooks.WithLogger(logger.With(slog.String("component", "webhooks"))),
			webhooks.WithRetryPolicy(cfg.Webhook.MaxAttempts, 0, 0))
		if err != nil {
			_ = ix.Close()
			return nil, fmt.Errorf("configure webhooks: %w", err)
		}
		ix.AddNotifier(dispatcher)
		logger.Info("webhook delivery enabled",
			slog.String("endpoint", endpoint),
			slog.String("secret", logging.Redact(cfg.WebhookSecretValue())))
	}

	feed, unsubscribe := node.SubscribeReceipts(256)
	err = store.Range(0, node.Height(), func(receipt *types.Receipt) error {
		return ix.Index(ctx, receipt)
	})
	if err != nil {
		unsubscribe()
		if dispatcher != nil {
			dispatcher.Close()
		}
		_ = ix.Close()
		return nil, fmt.Errorf("replay receipts: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ix.Run(ctx, feed); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("indexer stopped", slog.Any("error", err))
		}
	}()

	closer := func() {
		unsubscribe()
		if dispatcher != nil {
			dispatcher.Close()
		}
		if err := ix.Close(); err != nil {
			logger.Warn("close indexer", slog.Any("error", err))
		}
	}
	return closer, nil
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
