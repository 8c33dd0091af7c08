package mediacache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"reelcache/internal/fileutil"
	"reelcache/internal/logging"
	"reelcache/internal/media"
	"reelcache/internal/services"
)

// fileRecords keeps one {movie|tv}_{id}.json file per record.
type fileRecords struct {
	dir    string
	logger *slog.Logger
}

func newFileRecords(dir string, logger *slog.Logger) (*fileRecords, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create titles directory: %w", err)
	}
	return &fileRecords{dir: dir, logger: logger}, nil
}

func (f *fileRecords) path(key media.RecordKey) string {
	return filepath.Join(f.dir, key.FileName())
}

func (f *fileRecords) Load(key media.RecordKey) (media.Record, bool) {
	if !key.Valid() {
		return media.Record{}, false
	}
	path := f.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			warnCorrupt(f.logger, key, path, err)
		}
		return media.Record{}, false
	}
	record, err := decodeRecord(key, data)
	if err != nil {
		warnCorrupt(f.logger, key, path, err)
		return media.Record{}, false
	}
	return record, true
}

func (f *fileRecords) Save(record media.Record) error {
	key := record.Key()
	if !key.Valid() {
		return services.Wrap(services.ErrValidation, "mediacache", "save record", fmt.Sprintf("invalid record key %s", key), nil)
	}
	if err := fileutil.WriteJSONAtomic(f.path(key), record); err != nil {
		return fmt.Errorf("save record %s: %w", key, err)
	}
	return nil
}

func (f *fileRecords) List() ([]media.RecordKey, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list titles directory: %w", err)
	}
	keys := make([]media.RecordKey, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		key, err := media.ParseRecordKey(entry.Name())
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	sortKeys(keys)
	return keys, nil
}

func (f *fileRecords) Size() (int64, error) {
	return fileutil.DirSize(f.dir)
}

func (f *fileRecords) Clear() error {
	if err := os.RemoveAll(f.dir); err != nil {
		return fmt.Errorf("remove titles directory: %w", err)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("recreate titles directory: %w", err)
	}
	return nil
}

func (f *fileRecords) Close() error { return nil }

// decodeRecord parses a cached record and rejects one whose identity does not
// match the key it was stored under.
func decodeRecord(key media.RecordKey, data []byte) (media.Record, error) {
	var record media.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return media.Record{}, fmt.Errorf("parse record: %w", err)
	}
	if record.Key() != key {
		return media.Record{}, fmt.Errorf("record identity %s does not match key %s", record.Key(), key)
	}
	return record, nil
}

func warnCorrupt(logger *slog.Logger, key media.RecordKey, location string, err error) {
	logging.WarnWithContext(logger, "cached record unreadable; treating as miss", "record_cache_corrupt",
		logging.String("record", key.String()),
		logging.String("location", location),
		logging.Error(services.Wrap(services.ErrCacheCorruption, "mediacache", "load record", "", err)),
		logging.String(logging.FieldErrorHint, "the record will be fetched again; remove the entry if this repeats"),
		logging.String(logging.FieldImpact, "one extra catalog request"),
	)
}

func sortKeys(keys []media.RecordKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].MediaType != keys[j].MediaType {
			return keys[i].MediaType < keys[j].MediaType
		}
		return keys[i].ID < keys[j].ID
	})
}
