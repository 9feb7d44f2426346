package episode

import (
	"bytes"
	"encoding/json"
	"fmt"

	"loreline/internal/fileutil"
)

// WriteDocument replaces path with the indented JSON encoding of doc.
func WriteDocument(path string, doc Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
