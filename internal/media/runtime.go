package media

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Runtime is the type-specific duration shape of a record. Movies carry a
// single runtime; series carry a list of per-episode runtimes. Both converge
// on Minutes.
type Runtime interface {
	Minutes() int
	runtime()
}

// MovieRuntime holds a movie's runtime field. Present is false when the field
// is missing or not an integer.
type MovieRuntime struct {
	Value   int64
	Present bool
}

func (MovieRuntime) runtime() {}

// Minutes returns the runtime when it is a positive integer, else 0.
func (r MovieRuntime) Minutes() int {
	if r.Present && r.Value > 0 {
		return int(r.Value)
	}
	return 0
}

// SeriesRuntime holds a series' episode_run_time list. Entries that are not
// integers are dropped at decode time.
type SeriesRuntime struct {
	Episodes []int64
}

func (SeriesRuntime) runtime() {}

// Minutes returns the first strictly positive episode runtime, else 0.
func (r SeriesRuntime) Minutes() int {
	for _, v := range r.Episodes {
		if v > 0 {
			return int(v)
		}
	}
	return 0
}

// RuntimeOf decodes the duration shape for mediaType from a raw payload.
func RuntimeOf(mediaType Type, payload map[string]json.RawMessage) Runtime {
	if mediaType == TypeMovie {
		value, ok := jsonInt(payload["runtime"])
		return MovieRuntime{Value: value, Present: ok}
	}
	var items []json.RawMessage
	if raw, ok := payload["episode_run_time"]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			items = nil
		}
	}
	episodes := make([]int64, 0, len(items))
	for _, item := range items {
		if value, ok := jsonInt(item); ok {
			episodes = append(episodes, value)
		}
	}
	return SeriesRuntime{Episodes: episodes}
}

// jsonInt accepts only JSON integer literals. Floats, strings, booleans, and
// null are rejected.
func jsonInt(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	if raw[0] != '-' && (raw[0] < '0' || raw[0] > '9') {
		return 0, false
	}
	value, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
