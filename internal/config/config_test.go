package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelcache/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", "")
	for _, key := range []string{"TMDB_READ_TOKEN", "TMDB_BASE_URL", "REELCACHE_CACHE_DIR", "REELCACHE_CONCURRENCY", "REELCACHE_LOG_LEVEL", "REELCACHE_LOG_FORMAT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Chdir(t.TempDir())
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolateEnv(t)
	t.Setenv("TMDB_READ_TOKEN", "test-token")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(home, ".cache", "reelcache"); cfg.Paths.CacheDir != want {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Paths.CacheDir, want)
	}
	if want := filepath.Join(home, ".local", "share", "reelcache", "logs"); cfg.Paths.LogDir != want {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, want)
	}
	if cfg.TMDB.ReadToken != "test-token" {
		t.Fatalf("expected TMDB token from env, got %q", cfg.TMDB.ReadToken)
	}
	if cfg.TMDB.BaseURL != config.Default().TMDB.BaseURL {
		t.Fatalf("unexpected TMDB base url: %q", cfg.TMDB.BaseURL)
	}
	if cfg.Fetch.Concurrency != 12 {
		t.Fatalf("expected default concurrency 12, got %d", cfg.Fetch.Concurrency)
	}
	if cfg.RequestTimeout().Seconds() != 30 {
		t.Fatalf("expected 30s request timeout, got %v", cfg.RequestTimeout())
	}
	if cfg.Cache.RecordBackend != config.RecordBackendFiles {
		t.Fatalf("expected files backend by default, got %q", cfg.Cache.RecordBackend)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.CacheDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "reelcache.toml")

	type payload struct {
		TMDB struct {
			ReadToken string `toml:"read_token"`
			BaseURL   string `toml:"base_url"`
		} `toml:"tmdb"`
		Fetch struct {
			Concurrency int `toml:"concurrency"`
		} `toml:"fetch"`
		Cache struct {
			RecordBackend string `toml:"record_backend"`
		} `toml:"cache"`
	}
	custom := payload{}
	custom.TMDB.ReadToken = "abc123"
	custom.TMDB.BaseURL = "https://example.com/tmdb/"
	custom.Fetch.Concurrency = 4
	custom.Cache.RecordBackend = "BOLT"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.TMDB.ReadToken != "abc123" {
		t.Fatalf("expected TMDB token from file, got %q", cfg.TMDB.ReadToken)
	}
	if cfg.TMDB.BaseURL != "https://example.com/tmdb" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.TMDB.BaseURL)
	}
	if cfg.Fetch.Concurrency != 4 {
		t.Fatalf("expected concurrency 4, got %d", cfg.Fetch.Concurrency)
	}
	if cfg.Cache.RecordBackend != config.RecordBackendBolt {
		t.Fatalf("expected bolt backend, got %q", cfg.Cache.RecordBackend)
	}
}

func TestEnvOverridesConfigFile(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "reelcache.toml")
	content := "[tmdb]\nread_token = \"file-token\"\n[fetch]\nconcurrency = 3\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cacheDir := t.TempDir()
	t.Setenv("TMDB_READ_TOKEN", "env-token")
	t.Setenv("REELCACHE_CONCURRENCY", "7")
	t.Setenv("REELCACHE_CACHE_DIR", cacheDir)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TMDB.ReadToken != "env-token" {
		t.Errorf("expected token from env, got %q", cfg.TMDB.ReadToken)
	}
	if cfg.Fetch.Concurrency != 7 {
		t.Errorf("expected concurrency from env, got %d", cfg.Fetch.Concurrency)
	}
	if cfg.Paths.CacheDir != cacheDir {
		t.Errorf("expected cache dir from env, got %q", cfg.Paths.CacheDir)
	}
}

func TestDotEnvNextToConfigIsLoaded(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "reelcache.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TMDB_READ_TOKEN=dotenv-token\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("TMDB_READ_TOKEN") })

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TMDB.ReadToken != "dotenv-token" {
		t.Fatalf("expected token from .env, got %q", cfg.TMDB.ReadToken)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level from file, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	isolateEnv(t)
	configPath := filepath.Join(t.TempDir(), "reelcache.toml")
	if err := os.WriteFile(configPath, []byte("[cache]\nrecord_backend = \"redis\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "cache.record_backend") {
		t.Fatalf("expected field name in error, got %v", err)
	}
}

func TestRequireTMDBToken(t *testing.T) {
	cfg := config.Default()
	if err := cfg.RequireTMDBToken(); err == nil {
		t.Fatal("expected error without token")
	}
	cfg.TMDB.ReadToken = "x"
	if err := cfg.RequireTMDBToken(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Fetch.Concurrency != 12 {
		t.Fatalf("unexpected sample concurrency %d", cfg.Fetch.Concurrency)
	}
}
