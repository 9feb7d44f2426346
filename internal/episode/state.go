package episode

import "loreline/internal/segment"

// State holds the chapter and segment counters that seed identifier
// numbering for the next chunk. It is a value; every transition returns a new one.
type State struct {
	Chapter int
	Segment int
}

// Initial is the state at the start of every episode.
func Initial() State {
	return State{Chapter: 1, Segment: 1}
}

// ID renders the identifier the next record would carry.
func (s State) ID(episode int) string {
	return segment.FormatID(episode, s.Chapter, s.Segment)
}

// Next derives the state following a successful chunk. The last record's
// identifier is trusted as returned; when it cannot be parsed the segment
// counter advances by the record count instead.
func (s State) Next(records []segment.Segment) State {
	if len(records) == 0 {
		return s
	}
	if chapter, seg, ok := segment.ParseID(records[len(records)-1].ID); ok {
		return State{Chapter: chapter, Segment: seg + 1}
	}
	return State{Chapter: s.Chapter, Segment: s.Segment + len(records)}
}

// AfterFallback derives the state following a chunk that produced a fallback record.
func (s State) AfterFallback() State {
	return State{Chapter: s.Chapter, Segment: s.Segment + 1}
}
