package watchlist_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"reelcache/internal/media"
	"reelcache/internal/services"
	"reelcache/internal/testsupport"
	"reelcache/internal/watchlist"
)

func TestReadLetterboxdExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Watched.csv")
	testsupport.WriteCSV(t, path, true,
		[]string{" Date", "Name ", "Year", "Letterboxd URI"},
		[]string{"2024-01-05", "Inception", "2010", "https://boxd.it/1skk"},
		[]string{"2024-02-10", " Heat ", "1995.0", "https://boxd.it/29Oq"},
		[]string{"2024-03-01", "Inception", "2010", "https://boxd.it/1skk"},
		[]string{"not a date", "Mystery Reel", "unknown", "https://boxd.it/zzz"},
	)

	list, err := watchlist.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(list.Rows) != 3 || list.Duplicates != 1 {
		t.Fatalf("expected 3 rows and 1 duplicate, got %d rows %d dups", len(list.Rows), list.Duplicates)
	}
	if list.Rows[0].Date.IsZero() || list.Rows[0].Date.Year() != 2024 {
		t.Fatalf("unexpected date %v", list.Rows[0].Date)
	}
	if !list.Rows[2].Date.IsZero() {
		t.Fatalf("invalid date must be zero, got %v", list.Rows[2].Date)
	}

	want := []media.Query{
		{Title: "Inception", Year: 2010},
		{Title: "Heat", Year: 1995},
		{Title: "Mystery Reel"},
	}
	got := list.Queries()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("query %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestReadRejectsMissingColumns(t *testing.T) {
	_, err := watchlist.Read(strings.NewReader("Date,Name\n2024-01-01,Heat\n"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, want := range []string{"Year", "Letterboxd URI", "found: Date, Name"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestReadEmptyInput(t *testing.T) {
	if _, err := watchlist.Read(strings.NewReader("")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReadKeepsRowsWithoutURI(t *testing.T) {
	input := "Date,Name,Year,Letterboxd URI\n2024-01-01,A,2000,\n2024-01-02,B,-4,\n"
	list, err := watchlist.Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(list.Rows) != 2 {
		t.Fatalf("rows without URI must not be deduplicated: %+v", list.Rows)
	}
	if list.Rows[1].Year != 0 {
		t.Fatalf("negative year must be absent, got %d", list.Rows[1].Year)
	}
}

func TestReadShortRows(t *testing.T) {
	input := "Date,Name,Year,Letterboxd URI,Rating\n2024-01-01,Solaris\n"
	list, err := watchlist.Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(list.Rows) != 1 || list.Rows[0].Name != "Solaris" || list.Rows[0].Year != 0 {
		t.Fatalf("unexpected rows %+v", list.Rows)
	}
}
