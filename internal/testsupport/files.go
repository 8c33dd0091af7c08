package testsupport

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

// WriteCSV writes header and rows to path as a comma separated file. When bom
// is true the file starts with a UTF-8 byte order mark, as spreadsheet
// exports often do.
func WriteCSV(t testing.TB, path string, bom bool, header []string, rows ...[]string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if bom {
		if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			t.Fatalf("write bom %s: %v", path, err)
		}
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		t.Fatalf("write header %s: %v", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write rows %s: %v", path, err)
	}
}
