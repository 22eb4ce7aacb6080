package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/mvault/internal/config"
	"github.com/elys-network/mvault/internal/logger"
	"github.com/elys-network/mvault/internal/router"
	"github.com/elys-network/mvault/internal/source"
	"github.com/elys-network/mvault/internal/state"
	"github.com/elys-network/mvault/internal/transport"
	"github.com/elys-network/mvault/internal/vault"
	"github.com/elys-network/mvault/internal/web"
)

// main is the entry point for the multi-source vault daemon.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Multi-source vault starting...")

	// Initialize Database Connection (receipts, rate history, op counter)
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Seed the operation counter so audit sequence numbers survive restarts.
	startSeq, err := state.GetOperationSequence()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load operation sequence")
	}
	log.Info().Uint64("sequence", startSeq).Msg("Operation sequence loaded")

	// --- 2. Source and Transport Initialization (with Safety Switch) ---
	sources, trans, err := buildBackends(os.Getenv("MVAULT_MODE"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize sources and transport")
	}

	// --- 3. Vault Initialization ---
	var assetsCap *sdkmath.Int
	if config.AssetsCap > 0 {
		c := sdkmath.NewIntFromUint64(config.AssetsCap)
		assetsCap = &c
	}

	ctx := context.Background()
	v, err := vault.New(ctx, vault.Config{
		AssetDenom:    config.AssetDenom,
		Address:       config.VaultAddress,
		Sources:       sources,
		Transport:     trans,
		Authorizer:    vault.NewStaticAuthorizer(config.CapAdmins),
		Notifier:      &vault.LogNotifier{},
		ReceiptSink:   state.Sink{},
		AssetsCap:     assetsCap,
		StartSequence: startSeq,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize vault")
	}
	log.Info().
		Str("address", v.Address()).
		Str("denom", v.AssetDenom()).
		Strs("sources", v.SourceIDs()).
		Msg("Vault initialized")

	// Optional quoting router
	var quotes router.QuoteRouter
	if config.RouterEndpoint != "" {
		httpRouter, err := router.NewHTTPRouter(config.RouterEndpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize quote router")
		}
		quotes = httpRouter
	}

	// --- 4. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, v, quotes)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting vault API server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Wait for Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")
}

// buildBackends wires the underlying sources and the asset transport for the
// selected mode. "live" talks JSON-RPC to the host ledger; "sim" runs fully
// in memory. Any other value halts to prevent accidental execution.
func buildBackends(mode string) ([]source.Source, transport.Transport, error) {
	switch mode {
	case "live":
		log.Warn().Msg("Initializing in LIVE mode. Real transfers will be requested.")

		if len(config.SourceEndpoints) != config.SourceCount {
			return nil, nil, fmt.Errorf("MVAULT_SOURCE_ENDPOINTS has %d entries, MVAULT_SOURCE_COUNT is %d",
				len(config.SourceEndpoints), config.SourceCount)
		}

		sources := make([]source.Source, 0, config.SourceCount)
		for i, endpoint := range config.SourceEndpoints {
			s, err := source.NewRemoteSource(fmt.Sprintf("src-%d", i), endpoint, config.AssetDenom)
			if err != nil {
				return nil, nil, err
			}
			sources = append(sources, s)
		}

		trans, err := transport.NewRemoteTransport(config.TransportEndpoint, config.AssetDenom, config.VaultAddress)
		if err != nil {
			return nil, nil, err
		}
		return sources, trans, nil

	case "sim":
		log.Info().Msg("Initializing in SIM mode. All sources and transfers are in-memory.")

		sources := make([]source.Source, 0, config.SourceCount)
		for i := 0; i < config.SourceCount; i++ {
			s, err := source.NewMemorySource(fmt.Sprintf("src-%d", i), config.AssetDenom)
			if err != nil {
				return nil, nil, err
			}
			sources = append(sources, s)
		}

		trans, err := transport.NewMemoryTransport(config.AssetDenom, config.VaultAddress)
		if err != nil {
			return nil, nil, err
		}
		return sources, trans, nil

	default:
		return nil, nil, fmt.Errorf("MVAULT_MODE is %q; set it to 'live' or 'sim' to run", mode)
	}
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
