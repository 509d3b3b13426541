package config

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/Simplici0/sweetcost/internal/log"
)

const (
	defaultDBPath         = "./dev.db"
	defaultPort           = "8080"
	defaultMigrationsDir  = "migrations"
	defaultMarkupPercent  = 100.0
	defaultCurrencySymbol = "₽"
	envDev                = "dev"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Env                  string
	DBPath               string
	Port                 string
	MigrationsDir        string
	LogLevel             string
	APIToken             string
	DefaultMarkupPercent float64
	CurrencySymbol       string
	SeedPrices           bool
}

// IsDev reports whether the application runs in local development mode.
func (c Config) IsDev() bool {
	return c.Env == envDev
}

// Load reads environment variables and returns a populated Config.
func Load() Config {
	// Best-effort: a missing .env is fine, production injects real env vars.
	if err := loadDotEnv(".env"); err != nil {
		log.Warn(context.Background(), "failed to load .env", "err", err)
	}

	cfg := Config{
		Env:            strings.ToLower(getEnv("APP_ENV", envDev)),
		DBPath:         getEnv("DB_PATH", defaultDBPath),
		Port:           getEnv("PORT", defaultPort),
		MigrationsDir:  getEnv("MIGRATIONS_DIR", defaultMigrationsDir),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		APIToken:       os.Getenv("API_TOKEN"),
		CurrencySymbol: getEnv("CURRENCY_SYMBOL", defaultCurrencySymbol),
	}
	cfg.DefaultMarkupPercent = getEnvFloat("DEFAULT_MARKUP_PERCENT", defaultMarkupPercent)
	cfg.SeedPrices = getEnvBool("SEED_PRICES", cfg.IsDev())

	if cfg.DefaultMarkupPercent < 0 {
		log.Warn(context.Background(), "DEFAULT_MARKUP_PERCENT is negative, using default", "value", cfg.DefaultMarkupPercent)
		cfg.DefaultMarkupPercent = defaultMarkupPercent
	}
	if cfg.APIToken == "" && !cfg.IsDev() {
		log.Warn(context.Background(), "API_TOKEN is not set, the API is unauthenticated")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warn(context.Background(), "invalid numeric env var, using default", "key", key, "value", raw)
		return defaultValue
	}
	return value
}

// getEnvBool accepts 1/true/yes as true; anything else set is false.
func getEnvBool(key string, defaultValue bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return defaultValue
	}
	return raw == "1" || raw == "true" || raw == "yes"
}
