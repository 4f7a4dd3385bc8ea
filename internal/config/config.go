package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultEnvironment      = "local"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 5 * time.Minute
	defaultIdleTimeout      = 120 * time.Second
	defaultBackendBasePath  = "/api"
	defaultBackendAllLabel  = "전체"
	defaultDBPath           = "festmoment.db"
	defaultLocalesDir       = "locales"
	defaultLocale           = "ko"
	defaultItineraryIdleTTL = 30 * time.Minute
	defaultSweepInterval    = 5 * time.Minute
	defaultSessionMaxAge    = 30 * 24 * time.Hour
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	Dev         bool
	Server      ServerConfig
	Backend     BackendConfig
	Session     SessionConfig
	Storage     StorageConfig
	Itinerary   ItineraryConfig
	Site        SiteConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// BackendConfig points the client at the festival analysis backend.
// An empty URL selects the embedded fixture catalog.
type BackendConfig struct {
	URL      string
	BasePath string
	// Timeout of zero leaves request duration to the caller's context.
	Timeout  time.Duration
	AllLabel string
}

// SessionConfig holds cookie signing material.
type SessionConfig struct {
	HashKey  string
	BlockKey string
	CSRFKey  string
	MaxAge   time.Duration
	Secure   bool
}

// StorageConfig selects where itineraries are persisted.
type StorageConfig struct {
	DBPath string
}

// ItineraryConfig controls in-memory itinerary lifetime.
type ItineraryConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// SiteConfig groups presentation settings.
type SiteConfig struct {
	TemplatesDir  string
	LocalesDir    string
	DefaultLocale string
}

// Production reports whether the prod guard rails apply.
func (c Config) Production() bool {
	return c.Environment == "prod" || c.Environment == "production"
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the configuration by combining defaults, .env overrides and
// environment variables.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "FESTMOMENT_ENV", defaultEnvironment)),
		Dev:         boolWithDefault(lookup, "FESTMOMENT_DEV", false),
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "FESTMOMENT_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			ReadTimeout:  durationWithDefault(lookup, "FESTMOMENT_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "FESTMOMENT_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "FESTMOMENT_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Backend: BackendConfig{
			URL:      strings.TrimRight(stringWithDefault(lookup, "FESTMOMENT_BACKEND_URL", ""), "/"),
			BasePath: stringWithDefault(lookup, "FESTMOMENT_BACKEND_BASE_PATH", defaultBackendBasePath),
			Timeout:  durationWithDefault(lookup, "FESTMOMENT_BACKEND_TIMEOUT", 0),
			AllLabel: stringWithDefault(lookup, "FESTMOMENT_BACKEND_ALL_LABEL", defaultBackendAllLabel),
		},
		Session: SessionConfig{
			HashKey:  stringWithDefault(lookup, "FESTMOMENT_SESSION_HASH_KEY", ""),
			BlockKey: stringWithDefault(lookup, "FESTMOMENT_SESSION_BLOCK_KEY", ""),
			CSRFKey:  stringWithDefault(lookup, "FESTMOMENT_CSRF_KEY", ""),
			MaxAge:   durationWithDefault(lookup, "FESTMOMENT_SESSION_MAX_AGE", defaultSessionMaxAge),
		},
		Storage: StorageConfig{
			DBPath: stringWithDefault(lookup, "FESTMOMENT_DB_PATH", defaultDBPath),
		},
		Itinerary: ItineraryConfig{
			IdleTTL:       durationWithDefault(lookup, "FESTMOMENT_ITINERARY_IDLE_TTL", defaultItineraryIdleTTL),
			SweepInterval: durationWithDefault(lookup, "FESTMOMENT_ITINERARY_SWEEP_INTERVAL", defaultSweepInterval),
		},
		Site: SiteConfig{
			TemplatesDir:  stringWithDefault(lookup, "FESTMOMENT_TEMPLATES_DIR", ""),
			LocalesDir:    stringWithDefault(lookup, "FESTMOMENT_LOCALES_DIR", defaultLocalesDir),
			DefaultLocale: strings.ToLower(stringWithDefault(lookup, "FESTMOMENT_DEFAULT_LOCALE", defaultLocale)),
		},
	}
	cfg.Session.Secure = boolWithDefault(lookup, "FESTMOMENT_SESSION_SECURE", cfg.Production())

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Backend.URL != "" && !strings.HasPrefix(cfg.Backend.URL, "http://") && !strings.HasPrefix(cfg.Backend.URL, "https://") {
		missing = append(missing, "Backend.URL")
	}
	if cfg.Backend.Timeout < 0 {
		missing = append(missing, "Backend.Timeout")
	}
	if strings.TrimSpace(cfg.Backend.AllLabel) == "" {
		missing = append(missing, "Backend.AllLabel")
	}
	if cfg.Itinerary.IdleTTL <= 0 {
		missing = append(missing, "Itinerary.IdleTTL")
	}
	if cfg.Itinerary.SweepInterval <= 0 {
		missing = append(missing, "Itinerary.SweepInterval")
	}
	if cfg.Production() {
		if len(cfg.Session.HashKey) < 32 {
			missing = append(missing, "Session.HashKey")
		}
		if len(cfg.Session.CSRFKey) < 32 {
			missing = append(missing, "Session.CSRFKey")
		}
		if cfg.Backend.URL == "" {
			missing = append(missing, "Backend.URL")
		}
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
