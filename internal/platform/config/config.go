package config

import (
	"net/netip"
	"os"
	"strings"
	"time"

	pstrings "trialgate/pkg/platform/strings"
)

// Config captures everything the gate reads from the environment so main
// stays lean. Missing optional dependencies (Redis, Postgres, Kafka) leave
// their fields empty and the server falls back to file-backed state.
type Config struct {
	Addr string

	// DataDir holds the two durable documents: the keyed verification store
	// and the append-only trial log. One writer process per DataDir; the
	// store's lock is in-process only and does not coordinate across
	// processes.
	DataDir string

	// BlockedCountryCode is the ISO country code refused by the gate,
	// uppercased, default "PK".
	BlockedCountryCode string

	LookupBaseURL  string
	LookupAPIKey   string
	LookupTimeout  time.Duration
	LookupCacheTTL time.Duration

	RedisURL     string
	DatabaseURL  string
	KafkaBrokers string

	// TrustedProxies lists CIDR prefixes allowed to set forwarding headers.
	// Empty means X-Forwarded-For is never trusted.
	TrustedProxies []netip.Prefix

	AdminJWTSecret string
	BotAPIKeyHash  string

	// TelegramBotToken enables HMAC validation of Web App init data when set.
	// The numeric identifier remains unauthenticated without it; the gate's
	// abuse-prevention value then rests entirely on the network checks.
	TelegramBotToken string

	DebugEndpoints bool
	LogLevel       string
}

// DefaultLookupBaseURL is the IP2Location.io endpoint; keyless requests run
// in the provider's limited free tier.
const DefaultLookupBaseURL = "https://api.ip2location.io"

// FromEnv builds the Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:               envOr("TRIALGATE_ADDR", ":8080"),
		DataDir:            envOr("TRIALGATE_DATA_DIR", "."),
		BlockedCountryCode: strings.ToUpper(envOr("BLOCKED_COUNTRY_CODE", "PK")),
		LookupBaseURL:      envOr("IP2LOCATION_BASE_URL", DefaultLookupBaseURL),
		LookupAPIKey:       os.Getenv("IP2LOCATION_API_KEY"),
		LookupTimeout:      durationOr("LOOKUP_TIMEOUT", 3*time.Second),
		LookupCacheTTL:     durationOr("LOOKUP_CACHE_TTL", 5*time.Minute),
		RedisURL:           os.Getenv("REDIS_URL"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		KafkaBrokers:       os.Getenv("KAFKA_BROKERS"),
		AdminJWTSecret:     os.Getenv("ADMIN_JWT_SECRET"),
		BotAPIKeyHash:      os.Getenv("BOT_API_KEY_HASH"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		DebugEndpoints:     os.Getenv("DEBUG_ENDPOINTS") == "true",
		LogLevel:           envOr("LOG_LEVEL", "info"),
	}
	cfg.TrustedProxies = parsePrefixes(os.Getenv("TRUSTED_PROXIES"))
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// parsePrefixes parses a comma-separated CIDR list, silently skipping
// malformed entries so a typo cannot take the server down.
func parsePrefixes(raw string) []netip.Prefix {
	if raw == "" {
		return nil
	}
	var prefixes []netip.Prefix
	for _, part := range pstrings.DedupeAndTrim(strings.Split(raw, ",")) {
		if prefix, err := netip.ParsePrefix(part); err == nil {
			prefixes = append(prefixes, prefix)
		}
	}
	return prefixes
}
