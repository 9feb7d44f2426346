package segment

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Type tags the kind of transcript beat a segment represents.
type Type string

const (
	TypeChapterStart Type = "chapter_start"
	TypeNarration    Type = "narration"
	TypeDialogue     Type = "dialogue"
	TypeCombat       Type = "combat"
	TypeDescription  Type = "description"
	TypeOOC          Type = "ooc"
)

// Valid reports whether t is one of the known segment types. Unknown types
// returned by the service are kept as-is.
func (t Type) Valid() bool {
	switch t {
	case TypeChapterStart, TypeNarration, TypeDialogue, TypeCombat, TypeDescription, TypeOOC:
		return true
	default:
		return false
	}
}

// UnknownTypes lists, once each and in order of appearance, the types in
// segments that are not in the known set.
func UnknownTypes(segments []Segment) []string {
	var unknown []string
	seen := map[Type]struct{}{}
	for _, seg := range segments {
		if seg.Type.Valid() {
			continue
		}
		if _, dup := seen[seg.Type]; dup {
			continue
		}
		seen[seg.Type] = struct{}{}
		unknown = append(unknown, string(seg.Type))
	}
	return unknown
}

// Segment is one structured unit of an episode transcript.
type Segment struct {
	ID                string         `json:"segment_id"`
	Type              Type           `json:"type"`
	Speaker           string         `json:"speaker"`
	Content           string         `json:"content"`
	Summary           *string        `json:"summary"`
	Location          *string        `json:"location"`
	CharactersPresent []string       `json:"characters_present"`
	TimestampStart    Timestamp      `json:"timestamp_start"`
	TimestampEnd      Timestamp      `json:"timestamp_end"`
	Metadata          map[string]any `json:"metadata"`
}

// MarshalJSON keeps characters_present and metadata as empty containers
// rather than null.
func (s Segment) MarshalJSON() ([]byte, error) {
	type plain Segment
	out := plain(s)
	if out.CharactersPresent == nil {
		out.CharactersPresent = []string{}
	}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	return json.Marshal(out)
}

// schemaFields are the keys decoded into Segment's own fields.
var schemaFields = map[string]struct{}{
	"segment_id": {}, "type": {}, "speaker": {}, "content": {}, "summary": {},
	"location": {}, "characters_present": {}, "timestamp_start": {},
	"timestamp_end": {}, "metadata": {},
}

// UnmarshalJSON decodes a service record. Keys outside the schema are kept
// under Metadata unless Metadata already has that key. A field of the wrong
// type is zeroed and reported as a *json.UnmarshalTypeError after the rest of
// the record has been decoded.
func (s *Segment) UnmarshalJSON(data []byte) error {
	type plain Segment
	var out plain
	decodeErr := json.Unmarshal(data, &out)
	var typeErr *json.UnmarshalTypeError
	if decodeErr != nil && !errors.As(decodeErr, &typeErr) {
		return decodeErr
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err == nil {
		for key, raw := range fields {
			if _, known := schemaFields[key]; known {
				continue
			}
			var value any
			if err := json.Unmarshal(raw, &value); err != nil {
				continue
			}
			if out.Metadata == nil {
				out.Metadata = map[string]any{}
			}
			if _, taken := out.Metadata[key]; !taken {
				out.Metadata[key] = value
			}
		}
	}

	*s = Segment(out)
	return decodeErr
}

// Timestamp is an optional offset into the episode, in seconds.
type Timestamp struct {
	Seconds float64
	Valid   bool
}

// At returns a valid timestamp.
func At(seconds float64) Timestamp {
	return Timestamp{Seconds: seconds, Valid: true}
}

// MarshalJSON encodes the timestamp as a number or null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(t.Seconds, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts numbers, numeric strings and clock strings such as
// "01:02:03" or "02:03". Anything else decodes to null instead of failing the
// whole record.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		if seconds, ok := parseClock(raw); ok {
			*t = At(seconds)
		}
		return nil
	}
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return nil
	}
	*t = At(seconds)
	return nil
}

func parseClock(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return seconds, true
	}
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var total float64
	for _, part := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}
