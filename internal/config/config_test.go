package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Backend.URL != "" {
		t.Errorf("expected empty backend url, got %s", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout != 0 {
		t.Errorf("expected no backend timeout by default, got %s", cfg.Backend.Timeout)
	}
	if cfg.Backend.AllLabel != "전체" {
		t.Errorf("unexpected all label: %q", cfg.Backend.AllLabel)
	}
	if cfg.Backend.BasePath != "/api" {
		t.Errorf("unexpected base path: %s", cfg.Backend.BasePath)
	}
	if cfg.Site.DefaultLocale != "ko" {
		t.Errorf("expected default locale ko, got %s", cfg.Site.DefaultLocale)
	}
	if cfg.Itinerary.IdleTTL != defaultItineraryIdleTTL {
		t.Errorf("unexpected idle ttl: %s", cfg.Itinerary.IdleTTL)
	}
	if cfg.Production() {
		t.Errorf("expected local environment")
	}
	if cfg.Session.Secure {
		t.Errorf("expected insecure cookies outside prod")
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"FESTMOMENT_PORT":                     "9090",
		"FESTMOMENT_BACKEND_URL":              "http://localhost:8000/",
		"FESTMOMENT_BACKEND_TIMEOUT":          "90s",
		"FESTMOMENT_BACKEND_ALL_LABEL":        "ALL",
		"FESTMOMENT_DEV":                      "yes",
		"FESTMOMENT_DB_PATH":                  "/tmp/fm.db",
		"FESTMOMENT_ITINERARY_IDLE_TTL":       "1h",
		"FESTMOMENT_ITINERARY_SWEEP_INTERVAL": "1m",
		"FESTMOMENT_DEFAULT_LOCALE":           "EN",
	}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port override, got %s", cfg.Server.Port)
	}
	if cfg.Backend.URL != "http://localhost:8000" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Backend.URL)
	}
	if cfg.Backend.Timeout != 90*time.Second {
		t.Errorf("unexpected backend timeout: %s", cfg.Backend.Timeout)
	}
	if !cfg.Dev {
		t.Errorf("expected dev mode")
	}
	if cfg.Storage.DBPath != "/tmp/fm.db" {
		t.Errorf("unexpected db path: %s", cfg.Storage.DBPath)
	}
	if cfg.Itinerary.IdleTTL != time.Hour || cfg.Itinerary.SweepInterval != time.Minute {
		t.Errorf("unexpected itinerary config: %+v", cfg.Itinerary)
	}
	if cfg.Site.DefaultLocale != "en" {
		t.Errorf("expected lowercased locale, got %s", cfg.Site.DefaultLocale)
	}
}

func TestLoadProductionRequiresSecrets(t *testing.T) {
	env := map[string]string{
		"FESTMOMENT_ENV": "prod",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := strings.Join(vErr.Fields(), ",")
	for _, want := range []string{"Session.HashKey", "Session.CSRFKey", "Backend.URL"} {
		if !strings.Contains(fields, want) {
			t.Errorf("expected %s in %s", want, fields)
		}
	}
}

func TestLoadRejectsMalformedBackendURL(t *testing.T) {
	env := map[string]string{"FESTMOMENT_BACKEND_URL": "localhost:8000"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLoadDotEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nexport FESTMOMENT_PORT=7070\nFESTMOMENT_BACKEND_URL=\"http://dotenv:8000\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	env := map[string]string{"FESTMOMENT_PORT": "6060"}
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("expected env map to win over .env, got %s", cfg.Server.Port)
	}
	if cfg.Backend.URL != "http://dotenv:8000" {
		t.Errorf("expected .env backend url, got %s", cfg.Backend.URL)
	}
}
