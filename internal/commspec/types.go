package commspec

import (
	"fmt"
	"regexp"
)

// Kind identifies the BGP community flavor a string or candidate belongs to.
type Kind int

const (
	KindRegular  Kind = iota // RFC1997 ASN:value
	KindLarge                // RFC8092 global:data1:data2
	KindExtended             // RFC4360 type:subtype:admin:value
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindLarge:
		return "large"
	case KindExtended:
		return "extended"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(k))
	}
}

// Field is one compiled field descriptor from a community specification.
// The pattern is stored fully anchored; original anchors are stripped at
// load so user-supplied "^...$" patterns do not double-anchor.
type Field struct {
	Name        string
	Length      int
	HasLength   bool
	Description *string // literal render override when present

	re *regexp.Regexp
}

// LocalPart is the compiled layout of a community's local data portion.
// Binary means the decimal content is converted to a fixed-width bit
// string before slicing and matching.
type LocalPart struct {
	Binary bool
	Fields []Field
}

// RegularCandidate is one interpretation of an RFC1997 community.
type RegularCandidate struct {
	GlobalAdmin uint32
	LocalAdmin  LocalPart
}

// LargeCandidate is one interpretation of an RFC8092 community. Both
// local data parts must match for the candidate to be selected.
type LargeCandidate struct {
	GlobalAdmin uint32
	Part1       LocalPart
	Part2       LocalPart
}

// ExtendedCandidate is one interpretation of an RFC4360 community.
// Wide indicates a 4-octet administrator (asn4 in the document), which
// also selects the 32-bit binary transform width.
type ExtendedCandidate struct {
	Type       int
	Subtype    int
	Admin      uint32
	Wide       bool
	LocalAdmin LocalPart
}

// FormatError reports a numeral that could not be parsed as a
// non-negative decimal. It indicates corrupt input rather than an
// unregistered community, so it surfaces as an error instead of a miss.
type FormatError struct {
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("commspec: %q is not a non-negative decimal numeral", e.Value)
}

// SpecificationError reports a single malformed candidate in a loaded
// document. The candidate is skipped; the rest of the document loads.
type SpecificationError struct {
	Kind  Kind
	Index int
	Err   error
}

func (e *SpecificationError) Error() string {
	return fmt.Sprintf("commspec: %s candidate %d: %v", e.Kind, e.Index, e.Err)
}

func (e *SpecificationError) Unwrap() error {
	return e.Err
}
