package mediacache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"reelcache/internal/fileutil"
	"reelcache/internal/logging"
	"reelcache/internal/media"
	"reelcache/internal/services"
)

const (
	searchCacheFile = "search_cache.json"
	titlesDir       = "titles"
	boltFile        = "titles.db"
	lockFile        = ".lock"
	lockRetryDelay  = 100 * time.Millisecond
)

// Backend selects the record namespace implementation.
type Backend string

const (
	BackendFiles Backend = "files"
	BackendBolt  Backend = "bolt"
)

// Scope selects which namespaces Clear removes.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeSearch
	ScopeRecords
)

// Store owns a cache directory.
type Store struct {
	dir     string
	backend Backend
	records RecordStore
	lock    *flock.Flock
	logger  *slog.Logger
}

// Stats summarizes the contents of a cache directory.
type Stats struct {
	Dir            string  `json:"dir"`
	Backend        Backend `json:"backend"`
	SearchEntries  int     `json:"search_entries"`
	NoMatchEntries int     `json:"no_match_entries"`
	SearchBytes    int64   `json:"search_bytes"`
	Records        int     `json:"records"`
	MovieRecords   int     `json:"movie_records"`
	SeriesRecords  int     `json:"series_records"`
	RecordBytes    int64   `json:"record_bytes"`
}

// Open prepares dir for use with the given record backend. An empty backend
// selects the file backend.
func Open(dir string, backend Backend, logger *slog.Logger) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "mediacache", "open", "cache directory is empty", nil)
	}
	logger = logging.NewComponentLogger(logger, "mediacache")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	var (
		records RecordStore
		err     error
	)
	switch backend {
	case "", BackendFiles:
		backend = BackendFiles
		records, err = newFileRecords(filepath.Join(dir, titlesDir), logger)
	case BackendBolt:
		records, err = newBoltRecords(filepath.Join(dir, boltFile), logger)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "mediacache", "open", fmt.Sprintf("unknown record backend %q", backend), nil)
	}
	if err != nil {
		return nil, err
	}

	return &Store{
		dir:     dir,
		backend: backend,
		records: records,
		lock:    flock.New(filepath.Join(dir, lockFile)),
		logger:  logger,
	}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// Backend returns the active record backend.
func (s *Store) Backend() Backend { return s.backend }

// Close releases the record backend and any held directory lock.
func (s *Store) Close() error {
	var errs []error
	if s.lock.Locked() {
		errs = append(errs, s.lock.Unlock())
	}
	errs = append(errs, s.records.Close())
	return errors.Join(errs...)
}

// Lock takes the cross-process directory lock, waiting up to timeout. The
// returned function releases it.
func (s *Store) Lock(ctx context.Context, timeout time.Duration) (func(), error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ok, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "mediacache", "lock",
			fmt.Sprintf("cache directory %s is in use by another reelcache process", s.dir), nil)
	}
	return func() {
		if err := s.lock.Unlock(); err != nil {
			logging.WarnWithContext(s.logger, "failed to release cache lock", "cache_lock_release_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the .lock file if no reelcache process is running"),
				logging.String(logging.FieldImpact, "later batches may wait for the lock"))
		}
	}, nil
}

func (s *Store) searchPath() string {
	return filepath.Join(s.dir, searchCacheFile)
}

// LoadSearchCache reads the search namespace. A missing file yields an empty
// cache; an unreadable one is logged and also yields an empty cache.
func (s *Store) LoadSearchCache() *SearchCache {
	path := s.searchPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.warnSearchCorrupt(path, err)
		}
		return NewSearchCache(nil)
	}
	if len(data) == 0 {
		return NewSearchCache(nil)
	}
	var entries map[media.SearchKey]media.SearchEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.warnSearchCorrupt(path, err)
		return NewSearchCache(nil)
	}
	cache := NewSearchCache(entries)
	if dropped := len(entries) - cache.Len(); dropped > 0 {
		logging.WarnWithContext(s.logger, "dropped invalid search cache entries", "search_cache_entries_invalid",
			logging.Int("dropped", dropped),
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "affected titles will be searched again"),
			logging.String(logging.FieldImpact, "extra catalog searches for the affected titles"))
	}
	s.logger.Debug("loaded search cache",
		logging.Int("entries", cache.Len()),
		logging.String("path", path))
	return cache
}

// SaveSearchCache writes the full search namespace atomically.
func (s *Store) SaveSearchCache(cache *SearchCache) error {
	if cache == nil {
		return nil
	}
	entries := cache.Snapshot()
	if err := fileutil.WriteJSONAtomic(s.searchPath(), entries); err != nil {
		return fmt.Errorf("save search cache: %w", err)
	}
	cache.markClean()
	s.logger.Debug("saved search cache", logging.Int("entries", len(entries)))
	return nil
}

func (s *Store) warnSearchCorrupt(path string, err error) {
	logging.WarnWithContext(s.logger, "search cache unreadable; starting cold", "search_cache_corrupt",
		logging.String("path", path),
		logging.Error(services.Wrap(services.ErrCacheCorruption, "mediacache", "load search cache", "", err)),
		logging.String(logging.FieldErrorHint, "the file is rewritten at the end of the next batch"),
		logging.String(logging.FieldImpact, "every title is searched again"))
}

// LoadRecord returns the cached record for key.
func (s *Store) LoadRecord(key media.RecordKey) (media.Record, bool) {
	return s.records.Load(key)
}

// SaveRecord persists record under its own key.
func (s *Store) SaveRecord(record media.Record) error {
	return s.records.Save(record)
}

// ListRecords returns the keys of every cached record in type then id order.
func (s *Store) ListRecords() ([]media.RecordKey, error) {
	return s.records.List()
}

// Stats counts entries and bytes in both namespaces.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{Dir: s.dir, Backend: s.backend}

	search := s.LoadSearchCache()
	stats.SearchEntries = search.Len()
	stats.NoMatchEntries = search.NoMatchCount()
	if info, err := os.Stat(s.searchPath()); err == nil {
		stats.SearchBytes = info.Size()
	}

	keys, err := s.records.List()
	if err != nil {
		return Stats{}, err
	}
	stats.Records = len(keys)
	for _, key := range keys {
		switch key.MediaType {
		case media.TypeMovie:
			stats.MovieRecords++
		case media.TypeSeries:
			stats.SeriesRecords++
		}
	}
	if stats.RecordBytes, err = s.records.Size(); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Clear removes the namespaces selected by scope.
func (s *Store) Clear(scope Scope) error {
	if scope == ScopeAll || scope == ScopeSearch {
		if err := os.Remove(s.searchPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove search cache: %w", err)
		}
		s.logger.Info("cleared search cache", logging.String("path", s.searchPath()))
	}
	if scope == ScopeAll || scope == ScopeRecords {
		if err := s.records.Clear(); err != nil {
			return err
		}
		s.logger.Info("cleared record cache", logging.String("backend", string(s.backend)))
	}
	return nil
}
