package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/mtlprog/swapkit/internal/domain"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	SuiRPCURL            string
	LedgerRetryMax       int
	LedgerRetryBaseDelay time.Duration
	LedgerTimeout        time.Duration
	FinalityTimeout      time.Duration
	MetadataURL          string
	DatabaseURL          string
	PrimaryCoinType      domain.CoinType
	PrimaryDecimals      int32
	PumpPackageID        string
	LendingPackageID     string
	LendingStorageID     string
	CetusGlobalConfigID  string
	CetusPoolsID         string
	GasBudget            uint64
	PreviewRate          rate.Limit
	PreviewBurst         int
	PreviewSessionTTL    time.Duration
	PreviewMaxSessions   int
	StatusWorkerInterval time.Duration
	HTTPPort             string
	AdminAPIKey          string
	SignerKey            string
	GoogleSheetsID       string
	GoogleCredentials    string
	LogFormat            string
	LogLevel             string
}

// Load reads configuration from environment variables with sensible defaults.
// Variables from a .env file in the working directory are applied first;
// variables already set in the environment win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env file", "error", err)
	}
	return Config{
		SuiRPCURL:            envOrDefault("SUI_RPC_URL", "https://fullnode.testnet.sui.io:443"),
		LedgerRetryMax:       envOrDefaultInt("LEDGER_RETRY_MAX", 5),
		LedgerRetryBaseDelay: envOrDefaultDuration("LEDGER_RETRY_BASE_DELAY", 500*time.Millisecond),
		LedgerTimeout:        envOrDefaultDuration("LEDGER_TIMEOUT", 30*time.Second),
		FinalityTimeout:      envOrDefaultDuration("FINALITY_TIMEOUT", time.Minute),
		MetadataURL:          envOrDefault("METADATA_URL", ""),
		DatabaseURL:          envOrDefault("DATABASE_URL", ""),
		PrimaryCoinType:      domain.CoinType(envOrDefaultWarn("PRIMARY_COIN_TYPE", "")),
		PrimaryDecimals:      int32(envOrDefaultInt("PRIMARY_DECIMALS", int(domain.PrimaryDecimals))),
		PumpPackageID:        envOrDefaultWarn("PUMP_PACKAGE_ID", ""),
		LendingPackageID:     envOrDefault("LENDING_PACKAGE_ID", ""),
		LendingStorageID:     envOrDefault("LENDING_STORAGE_ID", ""),
		CetusGlobalConfigID:  envOrDefault("CETUS_GLOBAL_CONFIG_ID", ""),
		CetusPoolsID:         envOrDefault("CETUS_POOLS_ID", ""),
		GasBudget:            uint64(envOrDefaultInt("GAS_BUDGET", 50_000_000)),
		PreviewRate:          rate.Limit(envOrDefaultFloat("PREVIEW_RATE", 5)),
		PreviewBurst:         envOrDefaultInt("PREVIEW_BURST", 2),
		PreviewSessionTTL:    envOrDefaultDuration("PREVIEW_SESSION_TTL", 30*time.Minute),
		PreviewMaxSessions:   envOrDefaultInt("PREVIEW_MAX_SESSIONS", 10_000),
		StatusWorkerInterval: envOrDefaultDuration("STATUS_WORKER_INTERVAL", time.Minute),
		HTTPPort:             envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:          os.Getenv("ADMIN_API_KEY"),
		SignerKey:            os.Getenv("SIGNER_KEY"),
		GoogleSheetsID:       envOrDefault("GOOGLE_SHEETS_ID", ""),
		GoogleCredentials:    envOrDefault("GOOGLE_CREDENTIALS_JSON", ""),
		LogFormat:            envOrDefault("LOG_FORMAT", "text"),
		LogLevel:             envOrDefault("LOG_LEVEL", "info"),
	}
}

// HasRegistry reports whether a metadata store is configured.
func (c Config) HasRegistry() bool {
	return c.DatabaseURL != "" || c.MetadataURL != ""
}

// HasLending reports whether the lending market objects are configured.
func (c Config) HasLending() bool {
	return c.LendingPackageID != "" && c.LendingStorageID != ""
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			slog.Warn("invalid number env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
