package enrichment

import (
	"encoding/json"
	"errors"
	"time"

	"reelcache/internal/media"
	"reelcache/internal/services"
)

// Stage names the step a query failed in.
type Stage string

const (
	StageSearch Stage = "search"
	StageFetch  Stage = "fetch"
)

// Failure is a query whose search or fetch failed. Failures are retryable;
// confirmed no-matches are reported in Result.Unmatched instead.
type Failure struct {
	Query media.Query
	Stage Stage
	Key   media.RecordKey
	Err   error
}

// Transport reports whether the failure was a network or HTTP error.
func (f Failure) Transport() bool {
	return errors.Is(f.Err, services.ErrTransport)
}

func (f Failure) Error() string {
	if f.Err == nil {
		return string(f.Stage) + " failed"
	}
	return f.Err.Error()
}

// MarshalJSON renders the failure with its error as a string.
func (f Failure) MarshalJSON() ([]byte, error) {
	out := struct {
		Title  string `json:"title"`
		Year   int    `json:"year,omitempty"`
		Stage  Stage  `json:"stage"`
		Record string `json:"record,omitempty"`
		Error  string `json:"error"`
	}{
		Title: f.Query.Title,
		Year:  f.Query.Year,
		Stage: f.Stage,
		Error: f.Error(),
	}
	if f.Key.Valid() {
		out.Record = f.Key.String()
	}
	return json.Marshal(out)
}

// Result partitions the outcomes of one batch.
type Result struct {
	RunID           string         `json:"run_id"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	Matched         []media.Record `json:"matched"`
	Unmatched       []media.Query  `json:"unmatched"`
	Failed          []Failure      `json:"failed"`
	SearchCalls     int            `json:"search_calls"`
	SearchCacheHits int            `json:"search_cache_hits"`
}

// Total returns the number of queries the batch processed.
func (r Result) Total() int {
	return len(r.Matched) + len(r.Unmatched) + len(r.Failed)
}
