package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const hoursPerDay = 24

// Config holds the process-wide settings read from the environment.
type Config struct {
	AppEnv              string `env:"APP_ENV" envDefault:"local"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
	ActionsFile         string `env:"ACTIONS_FILE" envDefault:"actions.yaml"`
	MetricsTextfile     string `env:"METRICS_TEXTFILE"`
	PrefetchConcurrency int    `env:"PREFETCH_CONCURRENCY" envDefault:"4"`

	Mastodon MastodonConfig
	Sources  SourcesConfig
	HTTP     HTTPConfig
	Telegram TelegramConfig
	Cache    CacheConfig
}

// Load reads the optional .env file and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyLegacyAliases(cfg)

	return cfg, nil
}

// applyLegacyAliases honors the variable names of earlier deployments.
func applyLegacyAliases(cfg *Config) {
	if !hasEnv("MASTODON_SERVER") {
		setStringFromEnv("MASTODON_URL", &cfg.Mastodon.Server)
	}

	if !hasEnv("MASTODON_DRY_RUN") {
		setBoolFromEnv("DRYRUN", &cfg.Mastodon.DryRun)
	}

	if !hasEnv("CACHE_USER_INFO_MAX_AGE") {
		setDaysAsDuration("CACHE_USER_INFO_DAYS", &cfg.Cache.UserInfoMaxAge)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}

func setBoolFromEnv(key string, target *bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}

func setDaysAsDuration(key string, target *time.Duration) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || parsed <= 0 {
		return
	}

	*target = time.Duration(parsed*hoursPerDay) * time.Hour
}
