package segment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"loreline/internal/textutil"
)

// ErrUnparseable reports a response that yielded no record array, even after
// salvage.
var ErrUnparseable = errors.New("response is not a segment array")

// errInvalidRecord marks a well-formed array whose elements are not segment
// records. Such payloads are not truncated, so salvage is not attempted.
var errInvalidRecord = errors.New("invalid segment record")

// maxSalvageCandidates bounds how many closing braces salvage walks back over.
const maxSalvageCandidates = 32

var arrayPattern = regexp.MustCompile(`\[\s*\{[\s\S]*\}\s*\]`)

// ParseResult is the outcome of decoding one service response.
type ParseResult struct {
	Segments []Segment
	// Salvaged is set when the payload was truncated and had to be repaired.
	Salvaged bool
}

// ParseRecords decodes a service response into segments. It strips code
// fences, looks for the first array-of-objects, and when that fails tries to
// repair a truncated array by cutting it at a closing brace and re-closing it.
// An empty array is a valid, empty result.
func ParseRecords(raw string) (ParseResult, error) {
	text := stripCodeFence(raw)
	if text == "" {
		return ParseResult{}, fmt.Errorf("%w: empty payload", ErrUnparseable)
	}

	segments, strictErr := decodeArray(text)
	if strictErr == nil {
		return ParseResult{Segments: segments}, nil
	}

	if !errors.Is(strictErr, errInvalidRecord) {
		if segments, ok := salvage(text); ok {
			return ParseResult{Segments: segments, Salvaged: true}, nil
		}
	}
	return ParseResult{}, fmt.Errorf("%w: %v (payload snippet: %s)", ErrUnparseable, strictErr, textutil.Snippet(text))
}

func decodeArray(text string) ([]Segment, error) {
	candidate := text
	if match := arrayPattern.FindString(text); match != "" {
		candidate = match
	}
	return decodeRecords(candidate)
}

// decodeRecords decodes a JSON array whose elements must all be objects. A
// field of the wrong type only zeroes that field; a record carrying neither
// an identifier nor content rejects the whole array.
func decodeRecords(candidate string) ([]Segment, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &elements); err != nil {
		return nil, err
	}
	if elements == nil {
		return nil, errors.New("payload is not an array")
	}
	segments := make([]Segment, 0, len(elements))
	for i, element := range elements {
		if !bytes.HasPrefix(bytes.TrimSpace(element), []byte("{")) {
			return nil, fmt.Errorf("%w: record %d is not an object", errInvalidRecord, i)
		}
		var seg Segment
		if err := json.Unmarshal(element, &seg); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
		}
		if strings.TrimSpace(seg.ID) == "" && strings.TrimSpace(seg.Content) == "" {
			return nil, fmt.Errorf("%w: record %d has neither segment_id nor content", errInvalidRecord, i)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func salvage(text string) ([]Segment, bool) {
	end := len(text)
	for i := 0; i < maxSalvageCandidates; i++ {
		brace := strings.LastIndex(text[:end], "}")
		if brace <= 0 {
			return nil, false
		}
		truncated := strings.TrimRight(strings.TrimSpace(text[:brace+1]), ",") + "]"
		if match := arrayPattern.FindString(truncated); match != "" {
			if segments, err := decodeRecords(match); err == nil && len(segments) > 0 {
				return segments, true
			}
		}
		end = brace
	}
	return nil, false
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		body := strings.TrimLeft(trimmed[3:], " \t")
		if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
			body = body[4:]
		}
		trimmed = strings.TrimSpace(body)
	}
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}
	return trimmed
}
