package media

import "strings"

const topCastLimit = 5

// Summary is a typed view over the fields of a Record that listings and
// reports care about.
type Summary struct {
	MediaType Type     `json:"media_type"`
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Year      int      `json:"year,omitempty"`
	Runtime   int      `json:"runtime_minutes"`
	Directors []string `json:"directors,omitempty"`
	Cast      []string `json:"cast,omitempty"`
	Genres    []string `json:"genres,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Countries []string `json:"countries,omitempty"`
}

type namedEntry struct {
	Name        string `json:"name"`
	EnglishName string `json:"english_name"`
	Job         string `json:"job"`
}

type credits struct {
	Cast []namedEntry `json:"cast"`
	Crew []namedEntry `json:"crew"`
}

type keywordList struct {
	Keywords []namedEntry `json:"keywords"` // movies
	Results  []namedEntry `json:"results"`  // series
}

// Summarize extracts a Summary from the record. Fields with unexpected shapes
// are left empty rather than failing the whole summary.
func (r Record) Summarize() Summary {
	s := Summary{
		MediaType: r.MediaType,
		ID:        r.ID,
		Runtime:   r.NormalizedRuntime,
	}

	titleField, dateField := "title", "release_date"
	if r.MediaType == TypeSeries {
		titleField, dateField = "name", "first_air_date"
	}
	var title, date string
	_, _ = r.Decode(titleField, &title)
	_, _ = r.Decode(dateField, &date)
	s.Title = strings.TrimSpace(title)
	if year, ok := DateYear(date); ok {
		s.Year = year
	}

	var cr credits
	if ok, err := r.Decode("credits", &cr); ok && err == nil {
		for _, member := range cr.Crew {
			if member.Job == "Director" {
				s.Directors = appendUnique(s.Directors, member.Name)
			}
		}
		for i, member := range cr.Cast {
			if i >= topCastLimit {
				break
			}
			s.Cast = appendUnique(s.Cast, member.Name)
		}
	}
	if r.MediaType == TypeSeries && len(s.Directors) == 0 {
		var creators []namedEntry
		if ok, err := r.Decode("created_by", &creators); ok && err == nil {
			for _, c := range creators {
				s.Directors = appendUnique(s.Directors, c.Name)
			}
		}
	}

	s.Genres = namesOf(r, "genres")

	var kw keywordList
	if ok, err := r.Decode("keywords", &kw); ok && err == nil {
		for _, k := range append(kw.Keywords, kw.Results...) {
			s.Keywords = appendUnique(s.Keywords, k.Name)
		}
	}

	var languages []namedEntry
	if ok, err := r.Decode("spoken_languages", &languages); ok && err == nil {
		for _, l := range languages {
			name := l.EnglishName
			if name == "" {
				name = l.Name
			}
			s.Languages = appendUnique(s.Languages, name)
		}
	}

	s.Countries = namesOf(r, "production_countries")
	if len(s.Countries) == 0 {
		var origin []string
		if ok, err := r.Decode("origin_country", &origin); ok && err == nil {
			for _, c := range origin {
				s.Countries = appendUnique(s.Countries, c)
			}
		}
	}
	return s
}

func namesOf(r Record, field string) []string {
	var entries []namedEntry
	if ok, err := r.Decode(field, &entries); !ok || err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		out = appendUnique(out, e.Name)
	}
	return out
}

func appendUnique(list []string, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return list
	}
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
