package commspec

import "strings"

// renderPart joins a local part's fields into "name=value" pairs. A
// field's literal description, when present, overrides the decoded
// segment regardless of what was matched.
func renderPart(part *LocalPart, values []string) string {
	pairs := make([]string, len(part.Fields))
	for i := range part.Fields {
		f := &part.Fields[i]
		v := values[i]
		if f.Description != nil {
			v = *f.Description
		}
		pairs[i] = f.Name + "=" + v
	}
	return strings.Join(pairs, ",")
}

// renderSingle produces "ADMIN:name1=value1,name2=value2" for regular
// and extended candidates.
func renderSingle(adminValue uint32, part *LocalPart, values []string) string {
	return admin(adminValue) + ":" + renderPart(part, values)
}

// renderLarge produces "ADMIN:part1pairs:part2pairs". Part 2 field
// values sit at indices offset by part 1's field count.
func renderLarge(c *LargeCandidate, values []string) string {
	sec1 := renderPart(&c.Part1, values[:len(c.Part1.Fields)])
	sec2 := renderPart(&c.Part2, values[len(c.Part1.Fields):])
	return admin(c.GlobalAdmin) + ":" + sec1 + ":" + sec2
}
