package commspec

import (
	"fmt"
	"regexp"
	"strings"
)

// Document is a decoded draft-ietf-grow-yang-bgp-communities specification
// document. The loader collaborator produces it; the builder consumes it.
type Document struct {
	Communities *CommunitySet `json:"draft-ietf-grow-yang-bgp-communities:bgp-communities"`
}

// CommunitySet holds the three candidate lists of one document.
type CommunitySet struct {
	Regular  []RawCandidate `json:"regular"`
	Large    []RawCandidate `json:"large"`
	Extended []RawCandidate `json:"extended"`
}

// RawCandidate is the wire shape of a single candidate before
// validation. Pointer fields distinguish absent keys from zero values;
// which keys must be present depends on the community kind.
type RawCandidate struct {
	GlobalAdmin    *uint32       `json:"globaladmin"`
	LocalAdmin     *RawLocalPart `json:"localadmin"`
	LocalDataPart1 *RawLocalPart `json:"localdatapart1"`
	LocalDataPart2 *RawLocalPart `json:"localdatapart2"`
	Type           *int          `json:"type"`
	Subtype        *int          `json:"subtype"`
	ASN            *uint32       `json:"asn"`
	ASN4           *uint32       `json:"asn4"`
}

// RawLocalPart is the wire shape of a local data layout.
type RawLocalPart struct {
	Format string     `json:"format"`
	Fields []RawField `json:"fields"`
}

// RawField is the wire shape of one field descriptor.
type RawField struct {
	Name        string  `json:"name"`
	Pattern     string  `json:"pattern"`
	Length      *int    `json:"length"`
	Description *string `json:"description"`
}

// compileLocalPart validates and compiles a raw local part. Patterns are
// stripped of pre-existing anchors and recompiled as full-string matches.
// A field without a length must be last: anything else has no defined
// consumption rule and is rejected rather than guessed at.
func compileLocalPart(raw *RawLocalPart, key string) (LocalPart, error) {
	if raw == nil {
		return LocalPart{}, fmt.Errorf("missing %s", key)
	}

	lp := LocalPart{Binary: raw.Format == "binary"}
	lp.Fields = make([]Field, 0, len(raw.Fields))

	for i, rf := range raw.Fields {
		if rf.Name == "" {
			return LocalPart{}, fmt.Errorf("%s field %d: missing name", key, i)
		}
		if rf.Pattern == "" {
			return LocalPart{}, fmt.Errorf("%s field %q: missing pattern", key, rf.Name)
		}

		pat := strings.TrimPrefix(rf.Pattern, "^")
		pat = strings.TrimSuffix(pat, "$")
		re, err := regexp.Compile("^(?:" + pat + ")$")
		if err != nil {
			return LocalPart{}, fmt.Errorf("%s field %q: invalid pattern: %w", key, rf.Name, err)
		}

		f := Field{
			Name:        rf.Name,
			Description: rf.Description,
			re:          re,
		}
		switch {
		case rf.Length == nil:
			if i != len(raw.Fields)-1 {
				return LocalPart{}, fmt.Errorf("%s field %q: field without length must be last", key, rf.Name)
			}
		case *rf.Length < 0:
			return LocalPart{}, fmt.Errorf("%s field %q: negative length %d", key, rf.Name, *rf.Length)
		default:
			f.Length = *rf.Length
			f.HasLength = true
		}

		lp.Fields = append(lp.Fields, f)
	}

	return lp, nil
}

func compileRegular(raw *RawCandidate) (RegularCandidate, error) {
	if raw.GlobalAdmin == nil {
		return RegularCandidate{}, fmt.Errorf("missing globaladmin")
	}
	la, err := compileLocalPart(raw.LocalAdmin, "localadmin")
	if err != nil {
		return RegularCandidate{}, err
	}
	return RegularCandidate{GlobalAdmin: *raw.GlobalAdmin, LocalAdmin: la}, nil
}

func compileLarge(raw *RawCandidate) (LargeCandidate, error) {
	if raw.GlobalAdmin == nil {
		return LargeCandidate{}, fmt.Errorf("missing globaladmin")
	}
	p1, err := compileLocalPart(raw.LocalDataPart1, "localdatapart1")
	if err != nil {
		return LargeCandidate{}, err
	}
	p2, err := compileLocalPart(raw.LocalDataPart2, "localdatapart2")
	if err != nil {
		return LargeCandidate{}, err
	}
	return LargeCandidate{GlobalAdmin: *raw.GlobalAdmin, Part1: p1, Part2: p2}, nil
}

func compileExtended(raw *RawCandidate) (ExtendedCandidate, error) {
	if raw.Type == nil {
		return ExtendedCandidate{}, fmt.Errorf("missing type")
	}
	if raw.Subtype == nil {
		return ExtendedCandidate{}, fmt.Errorf("missing subtype")
	}
	if *raw.Type < 0 || *raw.Type > 0xFF {
		return ExtendedCandidate{}, fmt.Errorf("type %d out of octet range", *raw.Type)
	}
	if *raw.Subtype < 0 || *raw.Subtype > 0xFF {
		return ExtendedCandidate{}, fmt.Errorf("subtype %d out of octet range", *raw.Subtype)
	}

	c := ExtendedCandidate{Type: *raw.Type, Subtype: *raw.Subtype}
	switch {
	case raw.ASN != nil && raw.ASN4 != nil:
		return ExtendedCandidate{}, fmt.Errorf("both asn and asn4 declared")
	case raw.ASN != nil:
		if *raw.ASN > 0xFFFF {
			return ExtendedCandidate{}, fmt.Errorf("asn %d exceeds 16 bits", *raw.ASN)
		}
		c.Admin = *raw.ASN
	case raw.ASN4 != nil:
		c.Admin = *raw.ASN4
		c.Wide = true
	default:
		return ExtendedCandidate{}, fmt.Errorf("neither asn nor asn4 declared")
	}

	la, err := compileLocalPart(raw.LocalAdmin, "localadmin")
	if err != nil {
		return ExtendedCandidate{}, err
	}
	c.LocalAdmin = la
	return c, nil
}
