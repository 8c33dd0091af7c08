package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultLogDir             = "~/.local/share/reelcache/logs"
	defaultTMDBBaseURL        = "https://api.themoviedb.org/3"
	defaultTMDBLanguage       = "en-US"
	defaultTMDBRequestTimeout = 30
	defaultFetchConcurrency   = 12
	defaultRecordBackend      = RecordBackendFiles
	defaultCacheLockTimeout   = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultProjectConfigName  = "reelcache.toml"
	defaultUserConfigPath     = "~/.config/reelcache/config.toml"
	defaultCacheDirFallback   = "~/.cache/reelcache"
	defaultDotEnvFileName     = ".env"
)

// Record cache backends.
const (
	RecordBackendFiles = "files"
	RecordBackendBolt  = "bolt"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir(),
			LogDir:   defaultLogDir,
		},
		TMDB: TMDB{
			BaseURL:        defaultTMDBBaseURL,
			Language:       defaultTMDBLanguage,
			RequestTimeout: defaultTMDBRequestTimeout,
		},
		Fetch: Fetch{
			Concurrency: defaultFetchConcurrency,
		},
		Cache: Cache{
			RecordBackend: defaultRecordBackend,
			LockTimeout:   defaultCacheLockTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "reelcache")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultCacheDirFallback
	}
	return filepath.Join(home, ".cache", "reelcache")
}
