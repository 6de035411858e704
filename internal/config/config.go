package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingBackend is returned when the selected remote backend has no
// credentials. It is fatal for the whole service.
var ErrMissingBackend = errors.New("remote backend is not configured")

const (
	BackendPostgres  = "postgres"
	BackendPostgREST = "postgrest"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr string

	Backend        string
	DatabaseURL    string
	DatabaseDriver string
	SupabaseURL    string
	SupabaseKey    string
	RemoteTimeout  time.Duration

	TaxonomyPath     string
	PageSize         int
	DefaultViewLimit int
	SearchDebounce   time.Duration
	SuggestionLimit  int
	SessionCacheSize int
	Variant          string

	LogLevel string
}

// Load reads a local .env file when present and then configuration from
// environment variables.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:             envString("GIFT_FINDER_ADDR", ":8080"),
		Backend:          strings.ToLower(envString("REMOTE_BACKEND", BackendPostgres)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DatabaseDriver:   envString("DATABASE_DRIVER", "pgx"),
		SupabaseURL:      strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseKey:      os.Getenv("SUPABASE_ANON_KEY"),
		RemoteTimeout:    envDuration("REMOTE_TIMEOUT", 10*time.Second),
		TaxonomyPath:     envString("TAXONOMY_PATH", "items_database/taxonomy.json"),
		PageSize:         envInt("PAGE_SIZE", 0),
		DefaultViewLimit: envInt("DEFAULT_VIEW_LIMIT", 8),
		SearchDebounce:   envDuration("SEARCH_DEBOUNCE", 500*time.Millisecond),
		SuggestionLimit:  envInt("SUGGESTION_LIMIT", 6),
		SessionCacheSize: envInt("SESSION_CACHE_SIZE", 1024),
		Variant:          strings.ToLower(envString("BROWSE_VARIANT", "extended")),
		LogLevel:         os.Getenv("LOG_LEVEL"),
	}
}

// Validate checks that the selected backend can be reached at all.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is not set", ErrMissingBackend)
		}
	case BackendPostgREST:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("%w: SUPABASE_URL and SUPABASE_ANON_KEY are required", ErrMissingBackend)
		}
	default:
		return fmt.Errorf("%w: unknown REMOTE_BACKEND %q", ErrMissingBackend, c.Backend)
	}
	if c.SuggestionLimit < 1 || c.SuggestionLimit > 8 {
		return fmt.Errorf("SUGGESTION_LIMIT must be between 1 and 8, got %d", c.SuggestionLimit)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
