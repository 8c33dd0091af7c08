package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelcache/internal/config"
	"reelcache/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	fake       *testsupport.FakeTMDB
	configPath string
	baseDir    string
}

// batchOutput mirrors the JSON shape of enrichment.Result.
type batchOutput struct {
	RunID           string            `json:"run_id"`
	Matched         []json.RawMessage `json:"matched"`
	Unmatched       []json.RawMessage `json:"unmatched"`
	Failed          []json.RawMessage `json:"failed"`
	SearchCalls     int               `json:"search_calls"`
	SearchCacheHits int               `json:"search_cache_hits"`
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"TMDB_READ_TOKEN", "TMDB_BASE_URL", "REELCACHE_CACHE_DIR",
		"REELCACHE_CONCURRENCY", "REELCACHE_LOG_LEVEL", "REELCACHE_LOG_FORMAT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Chdir(t.TempDir())

	fake := testsupport.NewFakeTMDB(t, "test-token")
	seedCatalog(fake)

	opts = append([]testsupport.ConfigOption{testsupport.WithTMDBBaseURL(fake.URL())}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"

	return &cliTestEnv{
		cfg:        cfg,
		fake:       fake,
		configPath: testsupport.WriteConfigFile(t, cfg),
		baseDir:    testsupport.BaseDir(cfg),
	}
}

func seedCatalog(f *testsupport.FakeTMDB) {
	f.AddSearch("Inception",
		testsupport.SearchHit{MediaType: "movie", ID: 27205, Title: "Inception", Date: "2010-07-15"})
	f.AddTitle("movie", 27205, `{
		"id": 27205, "title": "Inception", "release_date": "2010-07-15", "runtime": 148,
		"genres": [{"id": 28, "name": "Action"}],
		"credits": {"cast": [{"name": "Leonardo DiCaprio"}], "crew": [{"name": "Christopher Nolan", "job": "Director"}]}
	}`)
	f.AddSearch("Heat",
		testsupport.SearchHit{MediaType: "movie", ID: 949, Title: "Heat", Date: "1995-12-15"})
	f.AddTitle("movie", 949, `{"id": 949, "title": "Heat", "release_date": "1995-12-15", "runtime": 170}`)
}

func (env *cliTestEnv) writeWatchlist(t *testing.T, rows ...[]string) string {
	t.Helper()
	path := filepath.Join(env.baseDir, "Watched.csv")
	testsupport.WriteCSV(t, path, true, []string{"Date", "Name", "Year", "Letterboxd URI"}, rows...)
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func runBatchJSON(t *testing.T, env *cliTestEnv, args ...string) batchOutput {
	t.Helper()
	out, _, err := runCLI(t, append(args, "--json"), env.configPath)
	if err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	var result batchOutput
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode %s output: %v\n%s", args[0], err, out)
	}
	return result
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
