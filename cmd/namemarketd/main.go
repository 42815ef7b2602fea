package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"namemarket/config"
	"namemarket/core"
	"namemarket/core/state"
	"namemarket/native/market"
	"namemarket/observability"
	"namemarket/observability/logging"
	"namemarket/rpc"
	"namemarket/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("NAMEMARKET_ENV"))
	logger := logging.Setup("namemarketd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	owner, err := cfg.Owner()
	if err != nil {
		logger.Error("Failed to resolve owner address", slog.Any("error", err))
		os.Exit(1)
	}
	vault, err := cfg.Vault(market.DefaultVaultAddress())
	if err != nil {
		logger.Error("Failed to resolve vault address", slog.Any("error", err))
		os.Exit(1)
	}
	alloc, err := cfg.Allocations()
	if err != nil {
		logger.Error("Failed to parse genesis allocations", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db, vault)
	node := core.NewNode(manager)
	node.SetEmitter(observability.NewEventLogger(logger))

	settings := market.Settings{
		Owner:          owner,
		BillingPeriod:  cfg.BillingPeriod,
		ClosingPeriod:  cfg.ClosingPeriod,
		SecurePeriod:   cfg.SecurePeriod,
		DeadlinePeriod: cfg.DeadlinePeriod,
	}
	if err := node.Bootstrap(settings, alloc); err != nil {
		logger.Error("Failed to bootstrap market state", slog.Any("error", err))
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		if err := server.ListenAndServe(); err != nil {
			logger.Error("Metrics server stopped", slog.Any("error", err))
		}
	}()

	logger.Info("Starting market RPC server", slog.String("addr", cfg.RPCAddress))
	if err := rpc.NewServer(node).Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
