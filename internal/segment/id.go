package segment

import (
	"fmt"
	"regexp"
	"strconv"
)

var idPattern = regexp.MustCompile(`^E\d+\.C(\d+)\.S(\d+)`)

// FormatID renders a segment identifier such as "E2.C1.S14".
func FormatID(episode, chapter, seg int) string {
	return fmt.Sprintf("E%d.C%d.S%d", episode, chapter, seg)
}

// ParseID extracts the chapter and segment ordinals from an identifier. Only
// the prefix has to match; trailing text is ignored.
func ParseID(id string) (chapter, seg int, ok bool) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, 0, false
	}
	chapter, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	seg, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	return chapter, seg, true
}
