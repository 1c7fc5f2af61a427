package commspec

import "strconv"

// Selection scans candidates in registry order and stops at the first
// structural match. Administrator values are compared as canonical
// decimal strings: "065000" never matches globaladmin 65000.

func admin(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

// selectRegular returns the first regular candidate matching the
// administrator and content, together with the (possibly binary
// transformed) content string used for field matching.
func selectRegular(candidates []RegularCandidate, asn, content string) (*RegularCandidate, string, error) {
	for i := range candidates {
		c := &candidates[i]
		if asn != admin(c.GlobalAdmin) {
			continue
		}

		cs := content
		if c.LocalAdmin.Binary {
			var err error
			cs, err = decimalToBits(content, 16)
			if err != nil {
				return nil, "", err
			}
		}

		if matchFields(cs, c.LocalAdmin.Fields) {
			return c, cs, nil
		}
	}
	return nil, "", nil
}

// selectLarge returns the first large candidate matching the
// administrator and both local data parts, together with the transformed
// part contents. Part 1 is evaluated before part 2; a candidate failing
// either part is skipped and the scan continues.
func selectLarge(candidates []LargeCandidate, asn, content1, content2 string) (*LargeCandidate, string, string, error) {
	for i := range candidates {
		c := &candidates[i]
		if asn != admin(c.GlobalAdmin) {
			continue
		}

		cs1, cs2 := content1, content2
		var err error
		if c.Part1.Binary {
			if cs1, err = decimalToBits(content1, 32); err != nil {
				return nil, "", "", err
			}
		}
		if c.Part2.Binary {
			if cs2, err = decimalToBits(content2, 32); err != nil {
				return nil, "", "", err
			}
		}

		if matchFields(cs1, c.Part1.Fields) && matchFields(cs2, c.Part2.Fields) {
			return c, cs1, cs2, nil
		}
	}
	return nil, "", "", nil
}

// selectExtended returns the first extended candidate matching type,
// subtype, administrator, and content. The administrator width declared
// by the candidate (asn vs asn4) selects the binary transform width:
// 16 bits for a 2-octet administrator, 32 for a 4-octet one.
func selectExtended(candidates []ExtendedCandidate, extype, subtype int, asn, content string) (*ExtendedCandidate, string, error) {
	for i := range candidates {
		c := &candidates[i]
		if extype != c.Type || subtype != c.Subtype {
			continue
		}
		if asn != admin(c.Admin) {
			continue
		}

		cs := content
		if c.LocalAdmin.Binary {
			width := 16
			if c.Wide {
				width = 32
			}
			var err error
			cs, err = decimalToBits(content, width)
			if err != nil {
				return nil, "", err
			}
		}

		if matchFields(cs, c.LocalAdmin.Fields) {
			return c, cs, nil
		}
	}
	return nil, "", nil
}
