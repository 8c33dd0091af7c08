package tmdb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reelcache/internal/catalog/tmdb"
	"reelcache/internal/services"
)

func TestNewRequiresToken(t *testing.T) {
	if _, err := tmdb.New("", "https://example.com", "en-US"); err == nil {
		t.Fatal("expected error when token missing")
	}
	if _, err := tmdb.New("token", " ", "en-US"); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestSearchMultiRequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/multi" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("unexpected accept header %q", got)
		}
		q := r.URL.Query()
		if q.Get("query") != "The Office" || q.Get("include_adult") != "false" || q.Get("page") != "1" || q.Get("language") != "en-US" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[{"id":2316,"media_type":"tv","name":"The Office","first_air_date":"2005-03-24"},{"id":7,"media_type":"person","name":"Someone"}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("token", server.URL+"/", "en-US")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	resp, err := client.SearchMulti(context.Background(), "  The Office ")
	if err != nil {
		t.Fatalf("SearchMulti returned error: %v", err)
	}
	if len(resp.Results) != 2 || resp.Results[0].ID != 2316 || resp.Results[0].MediaType != "tv" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestGetDetailsAppendsCreditsAndKeywords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/27205" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("append_to_response"); got != "credits,keywords" {
			t.Errorf("unexpected append_to_response %q", got)
		}
		_, _ = w.Write([]byte(`{"id":27205,"runtime":148,"credits":{"cast":[]}}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("token", server.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	body, err := client.GetDetails(context.Background(), "movie", 27205)
	if err != nil {
		t.Fatalf("GetDetails returned error: %v", err)
	}
	if !strings.Contains(string(body), `"credits"`) {
		t.Fatalf("body not returned verbatim: %s", body)
	}
}

func TestGetDetailsRejectsBadArguments(t *testing.T) {
	client, err := tmdb.New("token", "https://example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.GetDetails(context.Background(), "person", 1); err == nil {
		t.Fatal("expected error for person media type")
	}
	if _, err := client.GetDetails(context.Background(), "movie", 0); err == nil {
		t.Fatal("expected error for zero id")
	}
}

func TestHTTPErrorIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key"}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("bad", server.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.SearchMulti(context.Background(), "fail")
	if err == nil {
		t.Fatal("expected error when TMDB returns non-200")
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport marker, got %v", err)
	}
	var te *tmdb.TransportError
	if !errors.As(err, &te) || !te.Unauthorized() {
		t.Fatalf("expected unauthorized TransportError, got %#v", err)
	}
	if !strings.Contains(err.Error(), "Invalid API key") {
		t.Fatalf("expected body snippet in error, got %v", err)
	}
	if err := client.Authenticate(context.Background()); err == nil {
		t.Fatal("expected Authenticate to fail")
	}
}

func TestTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	client, err := tmdb.New("token", server.URL, "", tmdb.WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.GetDetails(context.Background(), "tv", 1399)
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error on timeout, got %v", err)
	}
}

func TestMalformedSearchBodyIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("token", server.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.SearchMulti(context.Background(), "x"); !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestSearchMultiEmptyQuery(t *testing.T) {
	client, err := tmdb.New("token", "https://example.com", "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.SearchMulti(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty query")
	}
}
