package segment

// AliasTable maps raw speaker labels to their canonical display form.
type AliasTable struct {
	Aliases map[string]string
	// Composite lists raw labels naming several speakers at once; they are
	// rewritten to CompositeLabel.
	Composite      []string
	CompositeLabel string
}

// NormalizeSpeakers rewrites speaker labels in place and returns how many
// segments matched the table. Labels are matched exactly; a match counts even
// when the canonical label equals the raw one. Unknown labels are left alone.
func NormalizeSpeakers(segments []Segment, table AliasTable) int {
	composite := make(map[string]struct{}, len(table.Composite))
	for _, label := range table.Composite {
		composite[label] = struct{}{}
	}

	matched := 0
	for i := range segments {
		speaker := segments[i].Speaker
		if _, ok := composite[speaker]; ok && table.CompositeLabel != "" {
			segments[i].Speaker = table.CompositeLabel
			matched++
			continue
		}
		if canonical, ok := table.Aliases[speaker]; ok {
			segments[i].Speaker = canonical
			matched++
		}
	}
	return matched
}
