package commspec

import "regexp"

var (
	regularShape  = regexp.MustCompile(`^\d+:\d+$`)
	largeShape    = regexp.MustCompile(`^\d+:\d+:\d+$`)
	extendedShape = regexp.MustCompile(`^0x[0-9A-Fa-f]{2}:0x[0-9A-Fa-f]{2}:\d+:\d+$`)
)

// Classify inspects the lexical shape of a community string and reports
// which kind it is. It does not validate numeric ranges; a shape match
// with out-of-range values simply fails candidate selection later.
// Returns false for strings that are not a recognized community shape.
func Classify(community string) (Kind, bool) {
	switch {
	case regularShape.MatchString(community):
		return KindRegular, true
	case largeShape.MatchString(community):
		return KindLarge, true
	case extendedShape.MatchString(community):
		return KindExtended, true
	}
	return 0, false
}
