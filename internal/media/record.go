package media

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	fieldMediaType         = "_media_type"
	fieldNormalizedRuntime = "_normalized_runtime"
)

// Record is a full TMDB title payload with credits and keywords appended.
// The payload is kept verbatim so nested data survives a cache round trip;
// MediaType and NormalizedRuntime are derived once at fetch time and
// persisted under _media_type and _normalized_runtime.
type Record struct {
	MediaType         Type
	ID                int64
	NormalizedRuntime int
	payload           map[string]json.RawMessage
}

// NewRecord decodes a freshly fetched payload and derives the augmented fields.
func NewRecord(mediaType Type, body []byte) (Record, error) {
	if !mediaType.Valid() {
		return Record{}, fmt.Errorf("record media type %q is not fetchable", mediaType)
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return Record{}, fmt.Errorf("decode record payload: %w", err)
	}
	if payload == nil {
		return Record{}, errors.New("record payload is not a JSON object")
	}
	id, _ := jsonInt(payload["id"])
	rec := Record{
		MediaType:         mediaType,
		ID:                id,
		NormalizedRuntime: RuntimeOf(mediaType, payload).Minutes(),
		payload:           payload,
	}
	return rec, nil
}

// Key returns the record cache key.
func (r Record) Key() RecordKey {
	return RecordKey{MediaType: r.MediaType, ID: r.ID}
}

// Runtime returns the type-specific duration shape of the payload.
func (r Record) Runtime() Runtime {
	return RuntimeOf(r.MediaType, r.payload)
}

// Field returns the raw JSON of a top-level payload field.
func (r Record) Field(name string) (json.RawMessage, bool) {
	raw, ok := r.payload[name]
	return raw, ok
}

// Decode unmarshals a top-level payload field into v. Missing fields leave v
// untouched and report false.
func (r Record) Decode(name string, v any) (bool, error) {
	raw, ok := r.payload[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// MarshalJSON writes the verbatim payload with the derived fields set.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.payload)+2)
	for k, v := range r.payload {
		out[k] = v
	}
	mediaType, err := json.Marshal(string(r.MediaType))
	if err != nil {
		return nil, err
	}
	out[fieldMediaType] = mediaType
	out[fieldNormalizedRuntime] = json.RawMessage(fmt.Sprintf("%d", r.NormalizedRuntime))
	if r.ID > 0 {
		out["id"] = json.RawMessage(fmt.Sprintf("%d", r.ID))
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a cached record. The derived fields are read back
// as persisted rather than recomputed.
func (r *Record) UnmarshalJSON(data []byte) error {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload == nil {
		return errors.New("record is not a JSON object")
	}
	var mediaType string
	if raw, ok := payload[fieldMediaType]; ok {
		if err := json.Unmarshal(raw, &mediaType); err != nil {
			return fmt.Errorf("decode %s: %w", fieldMediaType, err)
		}
	}
	runtime, _ := jsonInt(payload[fieldNormalizedRuntime])
	id, _ := jsonInt(payload["id"])
	delete(payload, fieldMediaType)
	delete(payload, fieldNormalizedRuntime)

	r.MediaType = Type(mediaType)
	r.ID = id
	r.NormalizedRuntime = int(runtime)
	r.payload = payload
	return nil
}
