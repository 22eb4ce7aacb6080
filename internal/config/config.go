package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// VaultAddress is the ledger address the vault custodies funds under.
	VaultAddress string

	// AssetDenom is the denomination of the fungible unit the vault accounts for.
	AssetDenom string

	// SourceCount is the number of underlying sources the vault allocates into.
	SourceCount int

	// SourceEndpoints are the JSON-RPC endpoints of the underlying sources,
	// one per source, in allocation order. Only required in live mode.
	SourceEndpoints []string

	// TransportEndpoint is the JSON-RPC endpoint of the asset transport.
	// Only required in live mode.
	TransportEndpoint string

	// RouterEndpoint is the HTTP endpoint of the quoting router. Optional;
	// the quote API is disabled when empty.
	RouterEndpoint string

	// AssetDecimals is the display exponent of the asset denom (6 for the
	// usual u-prefixed denoms). Used only for human-readable API fields,
	// never for accounting math.
	AssetDecimals int

	// AssetsCap is the administrative ceiling on aggregate assets, in base
	// units. Zero disables the cap.
	AssetsCap uint64

	// CapAdmins are the addresses permitted to update the assets cap.
	CapAdmins []string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	VaultAddress, err = getEnv("MVAULT_ADDRESS")
	if err != nil {
		return err
	}

	AssetDenom, err = getEnv("MVAULT_ASSET_DENOM")
	if err != nil {
		return err
	}

	SourceCount, err = getEnvAsInt("MVAULT_SOURCE_COUNT")
	if err != nil {
		return err
	}
	if SourceCount <= 0 {
		return errors.New("MVAULT_SOURCE_COUNT must be a positive integer")
	}

	// Comma-separated; validated against SourceCount when live mode wires
	// remote sources.
	if raw, exists := os.LookupEnv("MVAULT_SOURCE_ENDPOINTS"); exists && raw != "" {
		SourceEndpoints = splitAndTrim(raw)
	}

	TransportEndpoint = os.Getenv("MVAULT_TRANSPORT_ENDPOINT")
	RouterEndpoint = os.Getenv("MVAULT_ROUTER_ENDPOINT")

	AssetDecimals = 6
	if raw, exists := os.LookupEnv("MVAULT_ASSET_DECIMALS"); exists && raw != "" {
		AssetDecimals, err = strconv.Atoi(raw)
		if err != nil || AssetDecimals < 0 || AssetDecimals > 18 {
			return errors.New("MVAULT_ASSET_DECIMALS must be an integer between 0 and 18, got: " + raw)
		}
	}

	if capStr, exists := os.LookupEnv("MVAULT_ASSETS_CAP"); exists && capStr != "" {
		AssetsCap, err = strconv.ParseUint(capStr, 10, 64)
		if err != nil {
			return errors.New("MVAULT_ASSETS_CAP must be a valid uint64, got: " + capStr)
		}
	}

	if raw, exists := os.LookupEnv("MVAULT_CAP_ADMINS"); exists && raw != "" {
		CapAdmins = splitAndTrim(raw)
	}

	log.Debug().
		Str("VaultAddress", VaultAddress).
		Str("AssetDenom", AssetDenom).
		Int("SourceCount", SourceCount).
		Uint64("AssetsCap", AssetsCap).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
