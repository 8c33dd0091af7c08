package preflight

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"reelcache/internal/media"
)

// CheckSearchCache reports whether search_cache.json parses. A missing file
// passes; an unreadable one fails because every title would be searched again.
// Cached no-match entries pass with a warning since those titles are never
// searched again until the search cache is cleared.
func CheckSearchCache(cacheDir string) Result {
	const name = "Search cache"

	path := filepath.Join(cacheDir, "search_cache.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Passed: true, Detail: "empty (no search_cache.json yet)"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	var entries map[media.SearchKey]media.SearchEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: unreadable, run 'reelcache cache clear --search')", path)}
	}
	noMatch := 0
	for _, entry := range entries {
		if entry.IsNoMatch() {
			noMatch++
		}
	}
	if noMatch > 0 {
		return Result{Name: name, Passed: true, Warn: true,
			Detail: fmt.Sprintf("%d entries, %d without a match (run 'reelcache cache clear --search' to retry them)", len(entries), noMatch)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d entries", len(entries))}
}

// CheckCacheLock reports whether another process holds the cache directory
// lock. A held lock only delays batch commands, so it warns instead of failing.
func CheckCacheLock(cacheDir string) Result {
	const name = "Cache lock"

	if _, err := os.Stat(cacheDir); err != nil {
		return Result{Name: name, Passed: true, Detail: "cache directory not created yet"}
	}
	lock := flock.New(filepath.Join(cacheDir, ".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("error: %v", err)}
	}
	if !ok {
		return Result{Name: name, Passed: true, Warn: true, Detail: "held by another reelcache process; batch commands will wait"}
	}
	_ = lock.Unlock()
	return Result{Name: name, Passed: true, Detail: "free"}
}
