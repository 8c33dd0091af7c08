package mediacache

import (
	"reelcache/internal/media"
)

// RecordStore is the record namespace. Load reports a miss for absent or
// unreadable records; Save replaces a record atomically.
type RecordStore interface {
	Load(key media.RecordKey) (media.Record, bool)
	Save(record media.Record) error
	List() ([]media.RecordKey, error)
	Size() (int64, error)
	Clear() error
	Close() error
}
