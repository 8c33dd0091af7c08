package mediacache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"reelcache/internal/media"
	"reelcache/internal/services"
)

const boltBucket = "titles"

// boltRecords keeps records in a single bbolt database keyed by the same
// {movie|tv}_{id} stem the file backend uses.
type boltRecords struct {
	db     *bolt.DB
	path   string
	logger *slog.Logger
}

func newBoltRecords(path string, logger *slog.Logger) (*boltRecords, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open record database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create record bucket: %w", err)
	}
	return &boltRecords{db: db, path: path, logger: logger}, nil
}

func (b *boltRecords) Load(key media.RecordKey) (media.Record, bool) {
	if !key.Valid() {
		return media.Record{}, false
	}
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		if bucket == nil {
			return nil
		}
		if v := bucket.Get([]byte(key.String())); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		warnCorrupt(b.logger, key, b.path, err)
		return media.Record{}, false
	}
	if data == nil {
		return media.Record{}, false
	}
	record, err := decodeRecord(key, data)
	if err != nil {
		warnCorrupt(b.logger, key, b.path, err)
		return media.Record{}, false
	}
	return record, true
}

func (b *boltRecords) Save(record media.Record) error {
	key := record.Key()
	if !key.Valid() {
		return services.Wrap(services.ErrValidation, "mediacache", "save record", fmt.Sprintf("invalid record key %s", key), nil)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", key, err)
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key.String()), data)
	})
	if err != nil {
		return fmt.Errorf("save record %s: %w", key, err)
	}
	return nil
}

func (b *boltRecords) List() ([]media.RecordKey, error) {
	var keys []media.RecordKey
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			key, err := media.ParseRecordKey(string(k))
			if err != nil {
				return nil
			}
			keys = append(keys, key)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	sortKeys(keys)
	return keys, nil
}

func (b *boltRecords) Size() (int64, error) {
	info, err := os.Stat(b.path)
	if err != nil {
		return 0, fmt.Errorf("stat record database: %w", err)
	}
	return info.Size(), nil
}

func (b *boltRecords) Clear() error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(boltBucket)) != nil {
			if err := tx.DeleteBucket([]byte(boltBucket)); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket([]byte(boltBucket))
		return err
	})
	if err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}

func (b *boltRecords) Close() error {
	return b.db.Close()
}
