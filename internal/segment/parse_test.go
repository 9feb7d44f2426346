package segment

import (
	"errors"
	"testing"
)

const twoRecords = `[
  {"segment_id":"E1.C1.S1","type":"narration","speaker":"BRENNAN","content":"The rain falls.","summary":null,"location":"Aramán","characters_present":[],"timestamp_start":null,"timestamp_end":null,"metadata":{"lore_keywords":["rain"]}},
  {"segment_id":"E1.C1.S2","type":"dialogue","speaker":"LAURA","content":"Hello!","summary":null,"location":null,"characters_present":["Thimble"],"timestamp_start":12.5,"timestamp_end":"00:00:14","metadata":{}}
]`

func TestParseRecordsStrictArray(t *testing.T) {
	result, err := ParseRecords(twoRecords)
	if err != nil {
		t.Fatalf("ParseRecords: %v", err)
	}
	if result.Salvaged {
		t.Fatal("strict parse should not be flagged as salvaged")
	}
	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(result.Segments))
	}
	first := result.Segments[0]
	if first.ID != "E1.C1.S1" || first.Type != TypeNarration || first.Speaker != "BRENNAN" {
		t.Fatalf("unexpected first segment: %+v", first)
	}
	if first.Location == nil || *first.Location != "Aramán" {
		t.Fatalf("expected location Aramán, got %v", first.Location)
	}
	second := result.Segments[1]
	if !second.TimestampStart.Valid || second.TimestampStart.Seconds != 12.5 {
		t.Fatalf("unexpected start timestamp: %+v", second.TimestampStart)
	}
	if !second.TimestampEnd.Valid || second.TimestampEnd.Seconds != 14 {
		t.Fatalf("unexpected end timestamp: %+v", second.TimestampEnd)
	}
}

func TestParseRecordsStripsFencesAndProse(t *testing.T) {
	tests := map[string]string{
		"json fence":  "```json\n" + twoRecords + "\n```",
		"bare fence":  "```\n" + twoRecords + "\n```",
		"prose":       "Here is the array you asked for:\n" + twoRecords + "\nLet me know if you need more.",
		"fence+prose": "```json\nSure!\n" + twoRecords + "\n```",
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			result, err := ParseRecords(payload)
			if err != nil {
				t.Fatalf("ParseRecords: %v", err)
			}
			if len(result.Segments) != 2 {
				t.Fatalf("expected 2 segments, got %d", len(result.Segments))
			}
		})
	}
}

func TestParseRecordsEmptyArray(t *testing.T) {
	result, err := ParseRecords("[]")
	if err != nil {
		t.Fatalf("ParseRecords: %v", err)
	}
	if len(result.Segments) != 0 {
		t.Fatalf("expected no segments, got %d", len(result.Segments))
	}
}

func TestParseRecordsSalvagesTruncatedArray(t *testing.T) {
	payload := `[{"segment_id":"E1.C1.S1","type":"narration","speaker":"DM (Brennan)","content":"one","metadata":{}},
{"segment_id":"E1.C1.S2","type":"dialogue","speaker":"SAM","content":"two","metadata":{}},
{"segment_id":"E1.C1.S3","type":"dialogue","speaker":"SAM","content":"thr`
	result, err := ParseRecords(payload)
	if err != nil {
		t.Fatalf("ParseRecords: %v", err)
	}
	if !result.Salvaged {
		t.Fatal("expected salvaged result")
	}
	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 recovered segments, got %d", len(result.Segments))
	}
	if result.Segments[1].ID != "E1.C1.S2" {
		t.Fatalf("unexpected last recovered id %q", result.Segments[1].ID)
	}
}

func TestParseRecordsSalvageDropsTrailingComma(t *testing.T) {
	payload := `[{"segment_id":"E1.C1.S1","type":"narration","speaker":"x","content":"one"},{"segment_id":"E1.C1.S2","type":"narration","speaker":"x","content":"two"},`
	result, err := ParseRecords(payload)
	if err != nil {
		t.Fatalf("ParseRecords: %v", err)
	}
	if !result.Salvaged || len(result.Segments) != 2 {
		t.Fatalf("expected 2 salvaged segments, got %d (salvaged=%v)", len(result.Segments), result.Salvaged)
	}
}

func TestParseRecordsSalvageSkipsNestedBraceOfIncompleteRecord(t *testing.T) {
	payload := `[{"segment_id":"E1.C1.S1","type":"narration","speaker":"x","content":"one","metadata":{}},
{"segment_id":"E1.C1.S2","type":"narration","speaker":"x","metadata":{"lore_keywords":["Aramán"]},"content":"cut off mid`
	result, err := ParseRecords(payload)
	if err != nil {
		t.Fatalf("ParseRecords: %v", err)
	}
	if len(result.Segments) != 1 || result.Segments[0].ID != "E1.C1.S1" {
		t.Fatalf("expected only the complete leading record, got %+v", result.Segments)
	}
}

func TestParseRecordsUnparseable(t *testing.T) {
	for _, payload := range []string{"", "I cannot help with that.", `{"segment_id":"E1.C1.S1"}`, "[{\"broken\": }"} {
		_, err := ParseRecords(payload)
		if err == nil {
			t.Fatalf("expected error for %q", payload)
		}
		if !errors.Is(err, ErrUnparseable) {
			t.Fatalf("expected ErrUnparseable for %q, got %v", payload, err)
		}
	}
}

func TestParseRecordsToleratesWrongFieldType(t *testing.T) {
	payload := `[{"segment_id":"E1.C1.S1","type":"narration","speaker":"x","content":"one","summary":42}]`
	result, err := ParseRecords(payload)
	if err != nil {
		t.Fatalf("ParseRecords: %v", err)
	}
	if len(result.Segments) != 1 || result.Segments[0].Summary != nil {
		t.Fatalf("expected summary dropped, got %+v", result.Segments)
	}
}

func TestParseRecordsToleratesWrongTypedFieldWhenTruncated(t *testing.T) {
	records := `[{"segment_id":"E1.C1.S1","type":"dialogue","speaker":"LAURA","content":"one","characters_present":"Thimble"},
{"segment_id":"E1.C1.S2","type":"narration","speaker":"BRENNAN","content":"two"}`

	strict, err := ParseRecords(records + "]")
	if err != nil {
		t.Fatalf("strict ParseRecords: %v", err)
	}
	if len(strict.Segments) != 2 || strict.Salvaged {
		t.Fatalf("unexpected strict result: %d segments, salvaged=%v", len(strict.Segments), strict.Salvaged)
	}

	truncated, err := ParseRecords(records + `,
{"segment_id":"E1.C1.S3","type":"dialogue","content":"thr`)
	if err != nil {
		t.Fatalf("truncated ParseRecords: %v", err)
	}
	if !truncated.Salvaged || len(truncated.Segments) != 2 {
		t.Fatalf("expected 2 salvaged segments, got %d (salvaged=%v)", len(truncated.Segments), truncated.Salvaged)
	}
	if truncated.Segments[0].CharactersPresent != nil {
		t.Fatalf("wrong-typed field should decode empty, got %v", truncated.Segments[0].CharactersPresent)
	}
	if truncated.Segments[0].Content != "one" || truncated.Segments[1].ID != "E1.C1.S2" {
		t.Fatalf("unexpected salvaged records: %+v", truncated.Segments)
	}
}

func TestParseRecordsRejectsNonRecordArrays(t *testing.T) {
	tests := map[string]string{
		"numbers":       "[1, 2, 3]",
		"strings":       `["a", "b"]`,
		"mixed":         `[{"segment_id":"E1.C1.S1","content":"one"}, 2]`,
		"empty objects": `[{}, {}]`,
		"blank record":  `[{"segment_id":"E1.C1.S1","content":"one"}, {"type":"narration","speaker":"SAM"}]`,
		"null":          "null",
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			result, err := ParseRecords(payload)
			if !errors.Is(err, ErrUnparseable) {
				t.Fatalf("expected ErrUnparseable, got %d segments, err=%v", len(result.Segments), err)
			}
		})
	}
}

func TestParseRecordsKeepsUnknownKeysInMetadata(t *testing.T) {
	payload := `[{"segment_id":"E1.C1.S1","type":"combat","speaker":"DM (Brennan)","content":"Roll initiative.",
"metadata":{"dice":"d20"},"initiative_order":["Thimble","Vaelus"],"dice":"ignored"}]`
	result, err := ParseRecords(payload)
	if err != nil {
		t.Fatalf("ParseRecords: %v", err)
	}
	meta := result.Segments[0].Metadata
	if meta["dice"] != "d20" {
		t.Fatalf("existing metadata key overwritten: %v", meta["dice"])
	}
	order, ok := meta["initiative_order"].([]any)
	if !ok || len(order) != 2 || order[0] != "Thimble" {
		t.Fatalf("expected initiative_order kept in metadata, got %#v", meta["initiative_order"])
	}
}
