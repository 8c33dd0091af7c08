package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reelcache/internal/catalog/tmdb"
	"reelcache/internal/logging"
	"reelcache/internal/media"
	"reelcache/internal/services"
)

// RecordCache is the record namespace the service reads through.
type RecordCache interface {
	LoadRecord(key media.RecordKey) (media.Record, bool)
	SaveRecord(record media.Record) error
}

// Service combines the TMDB client with the record cache.
type Service struct {
	api    tmdb.API
	cache  RecordCache
	logger *slog.Logger
}

// NewService builds a Service. A nil cache disables record caching.
func NewService(api tmdb.API, cache RecordCache, logger *slog.Logger) *Service {
	return &Service{
		api:    api,
		cache:  cache,
		logger: logging.NewComponentLogger(logger, "catalog"),
	}
}

// Search returns the movie and series candidates for title in server order.
func (s *Service) Search(ctx context.Context, title string) ([]media.Candidate, error) {
	if strings.TrimSpace(title) == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "search", "title is empty", nil)
	}
	start := time.Now()
	resp, err := s.api.SearchMulti(ctx, title)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "catalog", "search", title, err)
	}
	candidates := make([]media.Candidate, 0, len(resp.Results))
	for _, result := range resp.Results {
		mediaType := media.Type(result.MediaType)
		if !mediaType.Valid() || result.ID <= 0 {
			continue
		}
		candidates = append(candidates, media.Candidate{
			MediaType:    mediaType,
			ID:           result.ID,
			Title:        result.Title,
			Name:         result.Name,
			ReleaseDate:  result.ReleaseDate,
			FirstAirDate: result.FirstAirDate,
		})
	}
	logging.WithContext(ctx, s.logger).Debug("catalog search complete",
		logging.String("title", title),
		logging.Int("results", len(resp.Results)),
		logging.Int("candidates", len(candidates)),
		logging.Duration("latency", time.Since(start)))
	return candidates, nil
}

// FetchFullRecord returns the record for key, from cache when present.
func (s *Service) FetchFullRecord(ctx context.Context, key media.RecordKey) (media.Record, error) {
	if !key.Valid() {
		return media.Record{}, services.Wrap(services.ErrValidation, "catalog", "fetch record", fmt.Sprintf("invalid record key %s", key), nil)
	}
	logger := logging.WithContext(ctx, s.logger)
	if s.cache != nil {
		if record, ok := s.cache.LoadRecord(key); ok {
			logger.Debug("record cache hit", logging.String("record", key.String()))
			return record, nil
		}
	}

	body, err := s.api.GetDetails(ctx, string(key.MediaType), key.ID)
	if err != nil {
		return media.Record{}, services.Wrap(services.ErrTransport, "catalog", "fetch record", key.String(), err)
	}
	record, err := media.NewRecord(key.MediaType, body)
	if err != nil {
		// The payload arrived intact; fetching again returns the same shape.
		return media.Record{}, services.Wrap(services.ErrValidation, "catalog", "fetch record", "decode "+key.String(), err)
	}
	// The requested key is authoritative for the cache slot.
	record.ID = key.ID
	logger.Debug("record fetched",
		logging.String("record", key.String()),
		logging.Int("normalized_runtime", record.NormalizedRuntime))

	if s.cache != nil {
		if err := s.cache.SaveRecord(record); err != nil {
			logging.WarnWithContext(logger, "failed to persist record", "record_cache_write_failed",
				logging.String("record", key.String()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check free space and permissions on the cache directory"),
				logging.String(logging.FieldImpact, "the record will be fetched again next run"))
		}
	}
	return record, nil
}
