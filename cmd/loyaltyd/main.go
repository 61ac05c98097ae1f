package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loyaltychain/config"
	"loyaltychain/core/events"
	"loyaltychain/core/state"
	"loyaltychain/crypto"
	"loyaltychain/native/loyalty"
	"loyaltychain/native/nft"
	"loyaltychain/observability/logging"
	"loyaltychain/rpc"
	"loyaltychain/storage"
)

const ownerPassEnv = "LOYALTY_OWNER_PASS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LOYALTY_ENV"))
	logger := logging.Setup("loyaltyd", env)

	cfg, err := config.Load(*configFile, config.WithKeystorePassphraseSource(func() (string, error) {
		return os.Getenv(ownerPassEnv), nil
	}))
	if err != nil {
		logger.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("Failed to prepare data directory", slog.Any("error", err))
		os.Exit(1)
	}
	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ownerKey, err := crypto.LoadFromKeystore(cfg.OwnerKeystorePath, cfg.KeystorePassphrase)
	if err != nil {
		logger.Error("Failed to load owner key", slog.Any("error", err))
		os.Exit(1)
	}
	ownerAddress := ownerKey.PubKey().Address()
	var owner [20]byte
	copy(owner[:], ownerAddress.Bytes())

	manager := state.NewManager(db)
	collection := nft.NewCollection(manager)
	registry := loyalty.NewRegistry(manager, collection)
	log := events.NewLog()
	registry.SetEmitter(log)

	if err := registry.Initialize(owner, cfg.CollectionName, cfg.CollectionSymbol); err != nil {
		if !errors.Is(err, loyalty.ErrAlreadyInitialized) {
			logger.Error("Failed to initialize registry", slog.Any("error", err))
			os.Exit(1)
		}
		stored, ownerErr := registry.Owner()
		if ownerErr != nil {
			logger.Error("Failed to read registry owner", slog.Any("error", ownerErr))
			os.Exit(1)
		}
		if stored != owner {
			logger.Error("Keystore does not match the registry owner",
				slog.String("keystore", ownerAddress.String()),
				slog.String("registry", crypto.MustNewAddress(crypto.LoyaltyPrefix, stored[:]).String()))
			os.Exit(1)
		}
	} else {
		logger.Info("Registry initialized",
			slog.String("owner", ownerAddress.String()),
			slog.String("collection", cfg.CollectionName),
			slog.String("symbol", cfg.CollectionSymbol))
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Serving metrics", slog.String("address", cfg.MetricsAddress))
		if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
			logger.Error("Metrics server stopped", slog.Any("error", err))
		}
	}()

	logger.Info("Starting node",
		slog.String("network", cfg.NetworkName),
		slog.String("owner", ownerAddress.String()),
		slog.String("rpc", cfg.RPCAddress))

	server := rpc.NewServer(registry, collection, log)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	fmt.Println("Shutdown complete")
}
