// Package watchlist reads Letterboxd diary exports into enrichment queries.
package watchlist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"reelcache/internal/media"
	"reelcache/internal/services"
)

// Required columns of a Letterboxd Watched.csv export.
const (
	ColumnDate = "Date"
	ColumnName = "Name"
	ColumnYear = "Year"
	ColumnURI  = "Letterboxd URI"
)

var requiredColumns = []string{ColumnDate, ColumnName, ColumnYear, ColumnURI}

const dateLayout = "2006-01-02"

// Row is one film from the export. Year is 0 and Date is zero when the
// corresponding cell is missing or unparseable.
type Row struct {
	Date time.Time `json:"date,omitempty"`
	Name string    `json:"name"`
	Year int       `json:"year,omitempty"`
	URI  string    `json:"letterboxd_uri"`
}

// Query converts the row into an enrichment query.
func (r Row) Query() media.Query {
	return media.Query{Title: r.Name, Year: r.Year}
}

// Watchlist is a parsed export with rewatches removed.
type Watchlist struct {
	Rows       []Row
	Duplicates int
}

// Queries returns one query per row in file order.
func (w Watchlist) Queries() []media.Query {
	out := make([]media.Query, 0, len(w.Rows))
	for _, row := range w.Rows {
		out = append(out, row.Query())
	}
	return out
}

// ReadFile opens and parses the export at path.
func ReadFile(path string) (Watchlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return Watchlist{}, fmt.Errorf("open watchlist: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a Letterboxd export. A leading UTF-8 byte order mark is
// ignored and header names are trimmed. Rows sharing a Letterboxd URI are
// collapsed to the first so rewatches count once.
func Read(r io.Reader) (Watchlist, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Watchlist{}, services.Wrap(services.ErrValidation, "watchlist", "read header", "file is empty", nil)
		}
		return Watchlist{}, services.Wrap(services.ErrValidation, "watchlist", "read header", "", err)
	}
	index, err := columnIndex(header)
	if err != nil {
		return Watchlist{}, err
	}

	var (
		list Watchlist
		seen = make(map[string]struct{})
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Watchlist{}, services.Wrap(services.ErrValidation, "watchlist", "read row", "", err)
		}
		row := Row{
			Name: cell(record, index[ColumnName]),
			Year: parseYear(cell(record, index[ColumnYear])),
			URI:  cell(record, index[ColumnURI]),
		}
		if date, err := time.Parse(dateLayout, cell(record, index[ColumnDate])); err == nil {
			row.Date = date
		}
		if row.URI != "" {
			if _, dup := seen[row.URI]; dup {
				list.Duplicates++
				continue
			}
			seen[row.URI] = struct{}{}
		}
		list.Rows = append(list.Rows, row)
	}
	return list, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	found := make([]string, 0, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		found = append(found, name)
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrValidation, "watchlist", "validate columns",
			fmt.Sprintf("missing columns: %s; found: %s", strings.Join(missing, ", "), strings.Join(found, ", ")), nil)
	}
	return index, nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseYear accepts integers and integral floats such as "1999.0". Anything
// else, and non-positive values, mean no year.
func parseYear(value string) int {
	if value == "" {
		return 0
	}
	if year, err := strconv.Atoi(value); err == nil {
		if year > 0 {
			return year
		}
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}
