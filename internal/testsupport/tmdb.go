package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"reelcache/internal/catalog/tmdb"
)

// SearchHit is one result the fake returns from /search/multi.
type SearchHit struct {
	MediaType string
	ID        int64
	Title     string
	Name      string
	Date      string // release_date for movies, first_air_date otherwise
}

func (h SearchHit) MarshalJSON() ([]byte, error) {
	out := map[string]any{"media_type": h.MediaType, "id": h.ID}
	if h.Title != "" {
		out["title"] = h.Title
	}
	if h.Name != "" {
		out["name"] = h.Name
	}
	switch h.MediaType {
	case "movie":
		out["release_date"] = h.Date
	case "tv":
		out["first_air_date"] = h.Date
	}
	return json.Marshal(out)
}

// FakeTMDB is an httptest server that answers the TMDB endpoints reelcache
// calls and counts requests per endpoint.
type FakeTMDB struct {
	Server *httptest.Server
	Token  string

	mu          sync.Mutex
	searches    map[string][]SearchHit
	titles      map[string]string
	failures    map[string]int
	delay       time.Duration
	searchCalls map[string]int
	detailCalls map[string]int
	authCalls   int
}

// NewFakeTMDB starts a fake server that accepts token and shuts it down on
// test cleanup.
func NewFakeTMDB(t testing.TB, token string) *FakeTMDB {
	t.Helper()
	f := &FakeTMDB{
		Token:       token,
		searches:    make(map[string][]SearchHit),
		titles:      make(map[string]string),
		failures:    make(map[string]int),
		searchCalls: make(map[string]int),
		detailCalls: make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL to configure clients with.
func (f *FakeTMDB) URL() string { return f.Server.URL }

// Client returns a tmdb.Client wired to the fake.
func (f *FakeTMDB) Client(t testing.TB) *tmdb.Client {
	t.Helper()
	client, err := tmdb.New(f.Token, f.Server.URL, "en-US",
		tmdb.WithHTTPClient(f.Server.Client()), tmdb.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("tmdb.New: %v", err)
	}
	return client
}

// AddSearch registers the results for a query (matched case-insensitively).
func (f *FakeTMDB) AddSearch(query string, hits ...SearchHit) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches[normalizeQuery(query)] = hits
}

// AddTitle registers a detail payload for mediaType/id. An empty body gets a
// minimal payload carrying the id.
func (f *FakeTMDB) AddTitle(mediaType string, id int64, body string) {
	if body == "" {
		body = fmt.Sprintf(`{"id":%d}`, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles[titlePath(mediaType, id)] = body
}

// FailTitle makes the detail endpoint for mediaType/id answer status.
func (f *FakeTMDB) FailTitle(mediaType string, id int64, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[titlePath(mediaType, id)] = status
}

// FailSearch makes the search endpoint answer status for query.
func (f *FakeTMDB) FailSearch(query string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures["search:"+normalizeQuery(query)] = status
}

// ClearFailures removes every failure registered with FailTitle or FailSearch.
func (f *FakeTMDB) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.failures)
}

// SetDelay slows every response, widening race windows in concurrency tests.
func (f *FakeTMDB) SetDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// SearchCalls returns the total number of search requests.
func (f *FakeTMDB) SearchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.searchCalls {
		total += n
	}
	return total
}

// SearchCallsFor returns the number of search requests for query.
func (f *FakeTMDB) SearchCallsFor(query string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls[normalizeQuery(query)]
}

// DetailCalls returns the total number of detail requests.
func (f *FakeTMDB) DetailCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.detailCalls {
		total += n
	}
	return total
}

// DetailCallsFor returns the number of detail requests for mediaType/id.
func (f *FakeTMDB) DetailCallsFor(mediaType string, id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls[titlePath(mediaType, id)]
}

// AuthCalls returns the number of token checks.
func (f *FakeTMDB) AuthCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls
}

func (f *FakeTMDB) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if r.Header.Get("Authorization") != "Bearer "+f.Token {
		writeJSON(w, http.StatusUnauthorized, `{"status_code":7,"status_message":"Invalid API key: You must be granted a valid key.","success":false}`)
		return
	}

	path := r.URL.Path
	switch {
	case path == "/authentication":
		f.mu.Lock()
		f.authCalls++
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, `{"success":true,"status_code":1,"status_message":"Success."}`)
	case path == "/search/multi":
		f.serveSearch(w, r)
	case strings.HasPrefix(path, "/movie/") || strings.HasPrefix(path, "/tv/"):
		f.serveTitle(w, strings.TrimPrefix(path, "/"))
	default:
		writeJSON(w, http.StatusNotFound, `{"status_code":34,"status_message":"The resource you requested could not be found."}`)
	}
}

func (f *FakeTMDB) serveSearch(w http.ResponseWriter, r *http.Request) {
	query := normalizeQuery(r.URL.Query().Get("query"))
	f.mu.Lock()
	f.searchCalls[query]++
	status := f.failures["search:"+query]
	hits := f.searches[query]
	f.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, `{"status_code":11,"status_message":"Internal error"}`)
		return
	}
	if hits == nil {
		hits = []SearchHit{}
	}
	body, err := json.Marshal(map[string]any{
		"page":          1,
		"results":       hits,
		"total_pages":   1,
		"total_results": len(hits),
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, `{}`)
		return
	}
	writeJSON(w, http.StatusOK, string(body))
}

func (f *FakeTMDB) serveTitle(w http.ResponseWriter, key string) {
	f.mu.Lock()
	f.detailCalls[key]++
	status := f.failures[key]
	body, ok := f.titles[key]
	f.mu.Unlock()

	switch {
	case status != 0:
		writeJSON(w, status, `{"status_code":11,"status_message":"Internal error"}`)
	case !ok:
		writeJSON(w, http.StatusNotFound, `{"status_code":34,"status_message":"The resource you requested could not be found."}`)
	default:
		writeJSON(w, http.StatusOK, body)
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func titlePath(mediaType string, id int64) string {
	return mediaType + "/" + strconv.FormatInt(id, 10)
}

func normalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
