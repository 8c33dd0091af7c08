package media

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Type names the catalog kind of a title. The string values match TMDB.
type Type string

const (
	TypeNone   Type = ""
	TypeMovie  Type = "movie"
	TypeSeries Type = "tv"
)

// ParseType accepts "movie", "tv", or "series" in any case.
func ParseType(value string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "movie":
		return TypeMovie, nil
	case "tv", "series":
		return TypeSeries, nil
	default:
		return TypeNone, fmt.Errorf("unknown media type %q (want movie or tv)", value)
	}
}

// Valid reports whether t addresses a fetchable record.
func (t Type) Valid() bool {
	return t == TypeMovie || t == TypeSeries
}

func (t Type) String() string {
	if t == TypeNone {
		return "none"
	}
	return string(t)
}

// Query is one title to resolve. Year 0 means no year hint.
type Query struct {
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}

// Key returns the normalized search cache key for the query.
func (q Query) Key() SearchKey {
	return NewSearchKey(q.Title, q.Year)
}

func (q Query) String() string {
	if q.Year > 0 {
		return fmt.Sprintf("%s (%d)", strings.TrimSpace(q.Title), q.Year)
	}
	return strings.TrimSpace(q.Title)
}

// SearchKey is lower(trim(title)) + "|" + year, with an empty year segment
// when no year is known.
type SearchKey string

// NewSearchKey normalizes a title and year into a SearchKey.
func NewSearchKey(title string, year int) SearchKey {
	yearPart := ""
	if year > 0 {
		yearPart = strconv.Itoa(year)
	}
	return SearchKey(strings.ToLower(strings.TrimSpace(title)) + "|" + yearPart)
}

// SearchEntry is the persisted resolution of one SearchKey. A TypeNone entry
// with ID 0 records a confirmed no-match.
type SearchEntry struct {
	MediaType Type
	ID        int64
}

// NoMatch returns the sentinel entry for a query the catalog could not resolve.
func NoMatch() SearchEntry {
	return SearchEntry{MediaType: TypeNone}
}

// IsNoMatch reports whether the entry is the no-match sentinel.
func (e SearchEntry) IsNoMatch() bool {
	return e.MediaType == TypeNone
}

// Valid reports whether the entry is either the no-match sentinel or a real
// identifier with a positive ID.
func (e SearchEntry) Valid() bool {
	if e.MediaType == TypeNone {
		return e.ID == 0
	}
	return e.MediaType.Valid() && e.ID > 0
}

// RecordKey returns the record cache key the entry resolves to.
func (e SearchEntry) RecordKey() RecordKey {
	return RecordKey{MediaType: e.MediaType, ID: e.ID}
}

type searchEntryJSON struct {
	MediaType *string `json:"media_type"`
	ID        int64   `json:"id"`
}

// MarshalJSON encodes the no-match sentinel with a null media_type.
func (e SearchEntry) MarshalJSON() ([]byte, error) {
	out := searchEntryJSON{ID: e.ID}
	if e.MediaType != TypeNone {
		mt := string(e.MediaType)
		out.MediaType = &mt
	}
	return json.Marshal(out)
}

func (e *SearchEntry) UnmarshalJSON(data []byte) error {
	var in searchEntryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.ID = in.ID
	e.MediaType = TypeNone
	if in.MediaType != nil {
		e.MediaType = Type(*in.MediaType)
	}
	return nil
}

// RecordKey addresses one full record in the record cache.
type RecordKey struct {
	MediaType Type
	ID        int64
}

// String renders the key as "{movie|tv}_{id}", the stem used for cache files
// and bolt keys.
func (k RecordKey) String() string {
	return fmt.Sprintf("%s_%d", k.MediaType, k.ID)
}

// FileName returns the record cache file name for the key.
func (k RecordKey) FileName() string {
	return k.String() + ".json"
}

// Valid reports whether the key names a fetchable record.
func (k RecordKey) Valid() bool {
	return k.MediaType.Valid() && k.ID > 0
}

// ParseRecordKey reverses RecordKey.String, accepting an optional .json suffix.
func ParseRecordKey(value string) (RecordKey, error) {
	stem := strings.TrimSuffix(strings.TrimSpace(value), ".json")
	prefix, idPart, ok := strings.Cut(stem, "_")
	if !ok {
		return RecordKey{}, fmt.Errorf("malformed record key %q", value)
	}
	mediaType, err := ParseType(prefix)
	if err != nil {
		return RecordKey{}, err
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return RecordKey{}, fmt.Errorf("malformed record id in %q", value)
	}
	return RecordKey{MediaType: mediaType, ID: id}, nil
}

// Candidate is one movie or series result from a multi-type search.
type Candidate struct {
	MediaType    Type   `json:"media_type"`
	ID           int64  `json:"id"`
	Title        string `json:"title,omitempty"`
	Name         string `json:"name,omitempty"`
	ReleaseDate  string `json:"release_date,omitempty"`
	FirstAirDate string `json:"first_air_date,omitempty"`
}

// Date returns the release date for movies and the first air date otherwise.
func (c Candidate) Date() string {
	if c.MediaType == TypeMovie {
		return c.ReleaseDate
	}
	return c.FirstAirDate
}

// DisplayTitle returns the movie title or series name.
func (c Candidate) DisplayTitle() string {
	if c.MediaType == TypeMovie || c.Name == "" {
		return c.Title
	}
	return c.Name
}

// DateYear parses the first four characters of a date string as a year.
// Strings shorter than four characters or with non-digit prefixes yield false.
func DateYear(date string) (int, bool) {
	if len(date) < 4 {
		return 0, false
	}
	prefix := date[:4]
	for _, r := range prefix {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	year, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, false
	}
	return year, true
}
