package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable. The TMDB token is checked
// separately by RequireTMDBToken because cache maintenance works offline.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if c.Fetch.Concurrency <= 0 {
		return errors.New("fetch.concurrency must be positive")
	}
	if c.Paths.CacheDir == "" {
		return errors.New("paths.cache_dir must be set")
	}
	return nil
}

// RequireTMDBToken reports a descriptive error when no read token is configured.
func (c *Config) RequireTMDBToken() error {
	if c.TMDB.ReadToken != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultUserConfigPath
	}
	return fmt.Errorf("tmdb.read_token is required. Set TMDB_READ_TOKEN env var or edit %s (create with 'reelcache config init')", defaultPath)
}

func (c *Config) validateTMDB() error {
	parsed, err := url.Parse(c.TMDB.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("tmdb.base_url must be an absolute URL, got %q", c.TMDB.BaseURL)
	}
	if c.TMDB.RequestTimeout <= 0 {
		return errors.New("tmdb.request_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.RecordBackend {
	case RecordBackendFiles, RecordBackendBolt:
	default:
		return fmt.Errorf("cache.record_backend must be %q or %q, got %q", RecordBackendFiles, RecordBackendBolt, c.Cache.RecordBackend)
	}
	if c.Cache.LockTimeout <= 0 {
		return errors.New("cache.lock_timeout must be positive (seconds)")
	}
	return nil
}
