// Package resolve picks the catalog identifier a search should map to.
package resolve

import "reelcache/internal/media"

// PickBest returns the identifier for the first candidate whose release year
// equals year, falling back to the first candidate when no year is given or
// none matches. Candidates must be in server relevance order. An empty list
// reports false.
func PickBest(candidates []media.Candidate, year int) (media.RecordKey, bool) {
	if len(candidates) == 0 {
		return media.RecordKey{}, false
	}
	if year > 0 {
		for _, c := range candidates {
			if y, ok := media.DateYear(c.Date()); ok && y == year {
				return media.RecordKey{MediaType: c.MediaType, ID: c.ID}, true
			}
		}
	}
	top := candidates[0]
	return media.RecordKey{MediaType: top.MediaType, ID: top.ID}, true
}

// Decision explains which rule PickBest applied, for decision logging.
func Decision(candidates []media.Candidate, year int) string {
	switch {
	case len(candidates) == 0:
		return "no_candidates"
	case year <= 0:
		return "top_result"
	}
	for _, c := range candidates {
		if y, ok := media.DateYear(c.Date()); ok && y == year {
			return "year_match"
		}
	}
	return "top_result_year_unmatched"
}
