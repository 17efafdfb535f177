package config

import "time"

// MastodonConfig holds the publishing account settings.
type MastodonConfig struct {
	Server         string `env:"MASTODON_SERVER" envDefault:"https://en.osm.town"`
	AccessToken    string `env:"MASTODON_ACCESS_TOKEN"`
	DryRun         bool   `env:"MASTODON_DRY_RUN" envDefault:"false"`
	OperatorHandle string `env:"OPERATOR_HANDLE"`
}

// SourcesConfig holds the endpoints of the upstream data sources.
type SourcesConfig struct {
	OSMChaURL             string  `env:"OSMCHA_URL" envDefault:"https://osmcha.org/api/v1/changesets/"`
	OSMChaToken           string  `env:"OSMCHA_TOKEN"`
	OSMBackend            string  `env:"OSM_BACKEND" envDefault:"https://www.openstreetmap.org/"`
	OverpassURL           string  `env:"OVERPASS_URL" envDefault:"https://overpass-api.de/api/interpreter"`
	PanoramaxURL          string  `env:"PANORAMAX_URL" envDefault:"https://panoramax.mapcomplete.org"`
	PanoramaxSecondaryURL string  `env:"PANORAMAX_SECONDARY_URL" envDefault:"https://api.panoramax.xyz"`
	ImgurClientID         string  `env:"IMGUR_CLIENT_ID"`
	RequestsPerSecond     float64 `env:"SOURCE_RPS" envDefault:"2"`
}

// HTTPConfig holds settings shared by every outgoing HTTP client.
type HTTPConfig struct {
	Timeout   time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	UserAgent string        `env:"HTTP_USER_AGENT" envDefault:"mapcomplete-digest-bot (+https://github.com/lueurxax/mapcomplete-digest-bot)"`
}

// TelegramConfig holds the optional operator notification channel.
type TelegramConfig struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `env:"TELEGRAM_CHAT_ID"`
}

// Enabled reports whether Telegram notifications are configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

// CacheConfig holds the on-disk cache settings. An empty Dir disables caching.
type CacheConfig struct {
	Dir             string        `env:"CACHE_DIR"`
	UserInfoMaxAge  time.Duration `env:"CACHE_USER_INFO_MAX_AGE" envDefault:"168h"`
	ChangesetMaxAge time.Duration `env:"CACHE_CHANGESET_MAX_AGE" envDefault:"720h"`
}

// Enabled reports whether the on-disk cache is used.
func (c CacheConfig) Enabled() bool {
	return c.Dir != ""
}
