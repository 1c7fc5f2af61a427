package commspec

import (
	"fmt"
	"strconv"
	"strings"
)

// Builder accumulates candidates from one or more specification
// documents. Candidates are validated and compiled as they are added;
// malformed ones are skipped and reported, never loaded. Build freezes
// the accumulated state into a Registry.
type Builder struct {
	regular  []RegularCandidate
	large    []LargeCandidate
	extended []ExtendedCandidate
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends one document's candidates in source order. Returned errors
// are per-candidate *SpecificationError values for entries that failed
// validation; the remaining candidates of the document still load.
func (b *Builder) Add(doc *Document) []error {
	if doc == nil || doc.Communities == nil {
		return nil
	}

	var rejects []error

	for i := range doc.Communities.Regular {
		c, err := compileRegular(&doc.Communities.Regular[i])
		if err != nil {
			rejects = append(rejects, &SpecificationError{Kind: KindRegular, Index: i, Err: err})
			continue
		}
		b.regular = append(b.regular, c)
	}

	for i := range doc.Communities.Large {
		c, err := compileLarge(&doc.Communities.Large[i])
		if err != nil {
			rejects = append(rejects, &SpecificationError{Kind: KindLarge, Index: i, Err: err})
			continue
		}
		b.large = append(b.large, c)
	}

	for i := range doc.Communities.Extended {
		c, err := compileExtended(&doc.Communities.Extended[i])
		if err != nil {
			rejects = append(rejects, &SpecificationError{Kind: KindExtended, Index: i, Err: err})
			continue
		}
		b.extended = append(b.extended, c)
	}

	return rejects
}

// Build produces the immutable registry snapshot. The builder must not
// be reused after Build; the registry is safe for unsynchronized
// concurrent readers.
func (b *Builder) Build() *Registry {
	r := &Registry{
		regular:  b.regular,
		large:    b.large,
		extended: b.extended,
	}
	b.regular, b.large, b.extended = nil, nil, nil
	return r
}

// Registry is a frozen collection of community specification candidates.
// Lookup order is load order: on ambiguous overlap the earliest-loaded
// candidate wins, and duplicates later in the list are inert.
type Registry struct {
	regular  []RegularCandidate
	large    []LargeCandidate
	extended []ExtendedCandidate
}

// Counts reports the number of loaded candidates per kind.
func (r *Registry) Counts() (regular, large, extended int) {
	return len(r.regular), len(r.large), len(r.extended)
}

// Parse classifies a community string and resolves it against the
// registry. It returns the rendered description and true on a match,
// and ("", false, nil) when the string is not a recognized community
// shape or no candidate matches. A non-nil error means the input
// carried a malformed numeral, not that the community is unregistered.
func (r *Registry) Parse(community string) (string, bool, error) {
	kind, ok := Classify(community)
	if !ok {
		return "", false, nil
	}

	switch kind {
	case KindRegular:
		return r.ParseRegular(community)
	case KindLarge:
		return r.ParseLarge(community)
	default:
		return r.ParseExtended(community)
	}
}

// ParseRegular resolves an RFC1997 "ASN:value" community.
func (r *Registry) ParseRegular(community string) (string, bool, error) {
	asn, content, ok := strings.Cut(community, ":")
	if !ok {
		return "", false, fmt.Errorf("commspec: regular community %q: missing separator", community)
	}

	c, cs, err := selectRegular(r.regular, asn, content)
	if err != nil {
		return "", false, err
	}
	if c == nil {
		return "", false, nil
	}

	values := extractFields(cs, c.LocalAdmin.Fields)
	return renderSingle(c.GlobalAdmin, &c.LocalAdmin, values), true, nil
}

// ParseLarge resolves an RFC8092 "global:data1:data2" community.
func (r *Registry) ParseLarge(community string) (string, bool, error) {
	parts := strings.SplitN(community, ":", 3)
	if len(parts) != 3 {
		return "", false, fmt.Errorf("commspec: large community %q: expected three parts", community)
	}

	c, cs1, cs2, err := selectLarge(r.large, parts[0], parts[1], parts[2])
	if err != nil {
		return "", false, err
	}
	if c == nil {
		return "", false, nil
	}

	values := extractFields(cs1, c.Part1.Fields)
	values = append(values, extractFields(cs2, c.Part2.Fields)...)
	return renderLarge(c, values), true, nil
}

// ParseExtended resolves an RFC4360 "0xTT:0xSS:admin:value" community.
func (r *Registry) ParseExtended(community string) (string, bool, error) {
	parts := strings.SplitN(community, ":", 4)
	if len(parts) != 4 {
		return "", false, fmt.Errorf("commspec: extended community %q: expected four parts", community)
	}

	extype, err := strconv.ParseUint(strings.TrimPrefix(parts[0], "0x"), 16, 16)
	if err != nil {
		return "", false, &FormatError{Value: parts[0]}
	}
	subtype, err := strconv.ParseUint(strings.TrimPrefix(parts[1], "0x"), 16, 16)
	if err != nil {
		return "", false, &FormatError{Value: parts[1]}
	}

	c, cs, err := selectExtended(r.extended, int(extype), int(subtype), parts[2], parts[3])
	if err != nil {
		return "", false, err
	}
	if c == nil {
		return "", false, nil
	}

	values := extractFields(cs, c.LocalAdmin.Fields)
	return renderSingle(c.Admin, &c.LocalAdmin, values), true, nil
}
