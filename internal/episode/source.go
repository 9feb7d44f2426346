package episode

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrSourceMissing reports that no transcript file exists for an episode.
	ErrSourceMissing = errors.New("transcript source missing")
	// ErrEmptySource reports a transcript whose text is empty.
	ErrEmptySource = errors.New("transcript text empty")
)

// Source is one raw episode transcript. PublishDate and DurationSeconds are
// carried through to the output unchanged.
type Source struct {
	Path            string
	Text            string
	PublishDate     json.RawMessage
	DurationSeconds json.RawMessage
}

type rawSource struct {
	FullText        string          `json:"fullText"`
	PublishDate     json.RawMessage `json:"publishDate"`
	DurationSeconds json.RawMessage `json:"durationSeconds"`
}

// LoadSource reads a transcript file. The text is NFC-normalized so chunk
// boundaries never split a decomposed character sequence.
func LoadSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Source{}, fmt.Errorf("%w: %s", ErrSourceMissing, path)
		}
		return Source{}, fmt.Errorf("read transcript %s: %w", path, err)
	}

	var raw rawSource
	if err := json.Unmarshal(data, &raw); err != nil {
		return Source{}, fmt.Errorf("decode transcript %s: %w", path, err)
	}
	if strings.TrimSpace(raw.FullText) == "" {
		return Source{}, fmt.Errorf("%w: %s", ErrEmptySource, path)
	}

	return Source{
		Path:            path,
		Text:            norm.NFC.String(raw.FullText),
		PublishDate:     nullIfEmpty(raw.PublishDate),
		DurationSeconds: nullIfEmpty(raw.DurationSeconds),
	}, nil
}

func nullIfEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
