package commspec

// sliceField cuts the segment a field consumes starting at pos and
// returns the next cursor position. Out-of-range lengths clamp to the
// available content; slicing never fails.
func sliceField(content string, pos int, f *Field) (segment string, next int) {
	start := pos
	if start > len(content) {
		start = len(content)
	}

	if !f.HasLength {
		return content[start:], pos
	}

	// Clamp the advanced cursor too: start+Length can exceed the content
	// or wrap negative, and every cursor past the end consumes nothing
	// either way.
	end := start + f.Length
	if end > len(content) || end < start {
		end = len(content)
	}
	return content[start:end], end
}

// matchFields tests content against an ordered field layout. Each field
// consumes its declared length (the final field may consume the rest)
// and its anchored pattern must match the consumed segment exactly.
// The first failing field aborts the scan.
func matchFields(content string, fields []Field) bool {
	pos := 0
	for i := range fields {
		segment, next := sliceField(content, pos, &fields[i])
		if !fields[i].re.MatchString(segment) {
			return false
		}
		pos = next
	}
	return true
}

// extractFields records the segment each field consumes, by field index.
// It applies no pattern tests; callers invoke it only after matchFields
// succeeded on the same content and layout.
func extractFields(content string, fields []Field) []string {
	values := make([]string, len(fields))
	pos := 0
	for i := range fields {
		values[i], pos = sliceField(content, pos, &fields[i])
	}
	return values
}
