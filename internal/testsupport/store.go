package testsupport

import (
	"testing"

	"reelcache/internal/config"
	"reelcache/internal/logging"
	"reelcache/internal/mediacache"
)

// MustOpenCache opens the cache directory named by cfg and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *mediacache.Store {
	t.Helper()

	store, err := mediacache.Open(cfg.Paths.CacheDir, mediacache.Backend(cfg.Cache.RecordBackend), logging.NewNop())
	if err != nil {
		t.Fatalf("mediacache.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
