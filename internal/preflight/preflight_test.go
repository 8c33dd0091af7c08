package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"reelcache/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckTMDB_OK(t *testing.T) {
	fake := testsupport.NewFakeTMDB(t, "good-token")
	cfg := testsupport.NewConfig(t, testsupport.WithTMDBToken("good-token"), testsupport.WithTMDBBaseURL(fake.URL()))

	result := CheckTMDB(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if fake.AuthCalls() != 1 {
		t.Fatalf("expected one auth call, got %d", fake.AuthCalls())
	}
}

func TestCheckTMDB_BadToken(t *testing.T) {
	fake := testsupport.NewFakeTMDB(t, "good-token")
	cfg := testsupport.NewConfig(t, testsupport.WithTMDBToken("bad-token"), testsupport.WithTMDBBaseURL(fake.URL()))

	result := CheckTMDB(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for bad token")
	}
	if result.Detail != "token rejected (check TMDB_READ_TOKEN)" {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckTMDB_MissingToken(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTMDBToken(""))
	if result := CheckTMDB(context.Background(), cfg); result.Passed {
		t.Fatal("expected failure for missing token")
	}
}

func TestCheckSearchCache(t *testing.T) {
	dir := t.TempDir()
	if r := CheckSearchCache(dir); !r.Passed {
		t.Fatalf("missing file should pass: %s", r.Detail)
	}
	path := filepath.Join(dir, "search_cache.json")
	if err := os.WriteFile(path, []byte(`{"heat|":{"media_type":"movie","id":949}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckSearchCache(dir); !r.Passed || r.Warn || r.Detail != "1 entries" {
		t.Fatalf("unexpected result %+v", r)
	}
	if err := os.WriteFile(path, []byte(`{"heat|":{"media_type":"movie","id":949},"nope|":{"media_type":null,"id":0}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	r := CheckSearchCache(dir)
	if !r.Passed || !r.Warn {
		t.Fatalf("no-match entries should pass with a warning: %+v", r)
	}
	if !strings.Contains(r.Detail, "2 entries, 1 without a match") {
		t.Fatalf("unexpected detail %q", r.Detail)
	}
	if err := os.WriteFile(path, []byte(`{oops`), 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckSearchCache(dir); r.Passed {
		t.Fatal("corrupt file should fail")
	}
}

func TestCheckCacheLock(t *testing.T) {
	dir := t.TempDir()
	if r := CheckCacheLock(dir); !r.Passed || r.Warn {
		t.Fatalf("expected free lock: %+v", r)
	}
	holder := flock.New(filepath.Join(dir, ".lock"))
	if ok, err := holder.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	defer holder.Unlock()
	r := CheckCacheLock(dir)
	if !r.Passed || !r.Warn {
		t.Fatalf("held lock should pass with a warning: %+v", r)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_HealthyConfig(t *testing.T) {
	fake := testsupport.NewFakeTMDB(t, "test-token")
	cfg := testsupport.NewConfig(t, testsupport.WithTMDBBaseURL(fake.URL()))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if Failed(results) {
		t.Fatal("Failed reported a failure for healthy config")
	}
}
