package commspec

import "testing"

func buildRegistry(t *testing.T, docs ...*Document) *Registry {
	t.Helper()
	b := NewBuilder()
	for _, doc := range docs {
		if rejects := b.Add(doc); len(rejects) > 0 {
			t.Fatalf("unexpected rejects: %v", rejects)
		}
	}
	return b.Build()
}

func regularDoc(globalAdmin uint32, part RawLocalPart) *Document {
	return &Document{Communities: &CommunitySet{
		Regular: []RawCandidate{{GlobalAdmin: u32Ptr(globalAdmin), LocalAdmin: &part}},
	}}
}

func TestParseRegular_LiteralDecimalContent(t *testing.T) {
	// No format flag: the raw decimal digits are sliced directly.
	r := buildRegistry(t, regularDoc(65000, RawLocalPart{Fields: []RawField{
		{Name: "role", Pattern: "8", Length: intPtr(1)},
		{Name: "region", Pattern: `\d+`},
	}}))

	out, ok, err := r.Parse("65000:80123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a match")
	}
	if out != "65000:role=8,region=0123" {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestParseRegular_HugeFieldLengthClampsNotPanics(t *testing.T) {
	// A document that declares a near-MaxInt field length loads fine and
	// must resolve queries without a bounds panic; the oversized field
	// clamps to the remaining content and later fields see nothing.
	r := buildRegistry(t, regularDoc(65000, RawLocalPart{Fields: []RawField{
		{Name: "a", Pattern: `\d`, Length: intPtr(1)},
		{Name: "b", Pattern: `\d*`, Length: intPtr(int(^uint(0) >> 1))},
		{Name: "c", Pattern: `.*`},
	}}))

	out, ok, err := r.Parse("65000:123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a match")
	}
	if out != "65000:a=1,b=23,c=" {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestParseRegular_FormatFlagGatesTransform(t *testing.T) {
	// The same layout with format=binary matches against the width-16
	// bit string instead of the raw decimal, so the "8" pattern that
	// matched the literal first digit no longer does.
	r := buildRegistry(t, regularDoc(65000, RawLocalPart{
		Format: "binary",
		Fields: []RawField{
			{Name: "role", Pattern: "8", Length: intPtr(1)},
			{Name: "region", Pattern: `\d+`},
		},
	}))

	_, ok, err := r.Parse("65000:80123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no match once content is binary transformed")
	}
}

func TestParseRegular_BinaryLocalAdmin(t *testing.T) {
	r := buildRegistry(t, regularDoc(65000, RawLocalPart{
		Format: "binary",
		Fields: []RawField{
			{Name: "flag", Pattern: "1", Length: intPtr(1)},
			{Name: "id", Pattern: `\d+`},
		},
	}))

	out, ok, err := r.Parse("65000:40000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a match")
	}
	// 40000 → 1001110001000000; flag consumes the first bit.
	if out != "65000:flag=1,id=001110001000000" {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestParseRegular_DescriptionOverridesValue(t *testing.T) {
	r := buildRegistry(t, regularDoc(65000, RawLocalPart{Fields: []RawField{
		{Name: "action", Pattern: "100", Length: intPtr(3), Description: strPtr("blackhole")},
	}}))

	out, ok, err := r.Parse("65000:100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a match")
	}
	if out != "65000:action=blackhole" {
		t.Errorf("expected literal description, got: %s", out)
	}
}

func TestParse_NoMatchOutcomes(t *testing.T) {
	r := buildRegistry(t, regularDoc(65000, RawLocalPart{Fields: []RawField{
		{Name: "v", Pattern: "100", Length: intPtr(3)},
	}}))

	// Unknown administrator.
	if _, ok, err := r.Parse("65001:100"); err != nil || ok {
		t.Errorf("expected miss for unknown admin, got ok=%v err=%v", ok, err)
	}
	// Known administrator, fields never match.
	if _, ok, err := r.Parse("65000:200"); err != nil || ok {
		t.Errorf("expected miss for non-matching fields, got ok=%v err=%v", ok, err)
	}
	// Not a community shape at all.
	if _, ok, err := r.Parse("not-a-community"); err != nil || ok {
		t.Errorf("expected miss for unclassifiable input, got ok=%v err=%v", ok, err)
	}
}

func TestParse_FirstMatchWinsAcrossDuplicateLoads(t *testing.T) {
	first := regularDoc(65000, RawLocalPart{Fields: []RawField{
		{Name: "v", Pattern: `\d+`, Description: strPtr("first")},
	}})
	second := regularDoc(65000, RawLocalPart{Fields: []RawField{
		{Name: "v", Pattern: `\d+`, Description: strPtr("second")},
	}})

	r := buildRegistry(t, first, second, first)

	out, ok, err := r.Parse("65000:42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a match")
	}
	if out != "65000:v=first" {
		t.Errorf("expected earliest-loaded candidate to win, got: %s", out)
	}
}

func TestParseLarge_BothPartsMustMatch(t *testing.T) {
	doc := &Document{Communities: &CommunitySet{
		Large: []RawCandidate{
			{
				// Part 1 matches "100" but part 2 rejects "7"; selection
				// must move on to the next candidate.
				GlobalAdmin:    u32Ptr(64496),
				LocalDataPart1: &RawLocalPart{Fields: []RawField{{Name: "svc", Pattern: "100", Length: intPtr(3), Description: strPtr("transit")}}},
				LocalDataPart2: &RawLocalPart{Fields: []RawField{{Name: "site", Pattern: "9", Length: intPtr(1)}}},
			},
			{
				GlobalAdmin:    u32Ptr(64496),
				LocalDataPart1: &RawLocalPart{Fields: []RawField{{Name: "svc", Pattern: `\d+`}}},
				LocalDataPart2: &RawLocalPart{Fields: []RawField{{Name: "site", Pattern: `\d+`}}},
			},
		},
	}}
	r := buildRegistry(t, doc)

	out, ok, err := r.Parse("64496:100:7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected second candidate to match")
	}
	if out != "64496:svc=100:site=7" {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestParseLarge_IndependentBinaryParts(t *testing.T) {
	doc := &Document{Communities: &CommunitySet{
		Large: []RawCandidate{{
			GlobalAdmin: u32Ptr(64496),
			LocalDataPart1: &RawLocalPart{
				Format: "binary",
				Fields: []RawField{{Name: "flags", Pattern: "0+1", Length: intPtr(32)}},
			},
			LocalDataPart2: &RawLocalPart{Fields: []RawField{{Name: "id", Pattern: `\d+`}}},
		}},
	}}
	r := buildRegistry(t, doc)

	// Only part 1 is transformed: 1 → 31 zero bits then a one; part 2
	// stays literal decimal.
	out, ok, err := r.Parse("64496:1:1200")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a match")
	}
	if out != "64496:flags=00000000000000000000000000000001:id=1200" {
		t.Errorf("unexpected output: %s", out)
	}
}

func extendedDoc(c RawCandidate) *Document {
	return &Document{Communities: &CommunitySet{Extended: []RawCandidate{c}}}
}

func TestParseExtended_Match(t *testing.T) {
	r := buildRegistry(t, extendedDoc(RawCandidate{
		Type:    intPtr(3),
		Subtype: intPtr(12),
		ASN:     u32Ptr(64496),
		LocalAdmin: &RawLocalPart{Fields: []RawField{
			{Name: "group", Pattern: `\d+`},
		}},
	}))

	out, ok, err := r.Parse("0x03:0x0c:64496:1200")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a match")
	}
	if out != "64496:group=1200" {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestParseExtended_TypeSubtypeGate(t *testing.T) {
	r := buildRegistry(t, extendedDoc(RawCandidate{
		Type:       intPtr(3),
		Subtype:    intPtr(12),
		ASN:        u32Ptr(64496),
		LocalAdmin: &RawLocalPart{Fields: []RawField{{Name: "v", Pattern: `\d+`}}},
	}))

	if _, ok, _ := r.Parse("0x03:0x0d:64496:1200"); ok {
		t.Error("expected subtype mismatch to miss")
	}
	if _, ok, _ := r.Parse("0x04:0x0c:64496:1200"); ok {
		t.Error("expected type mismatch to miss")
	}
}

func TestParseExtended_ASNWidthNeverCrosses(t *testing.T) {
	// A candidate declaring only a 2-octet asn must not match a
	// community presenting a 32-bit administrator, and vice versa,
	// even when the numerals coincide.
	r := buildRegistry(t, extendedDoc(RawCandidate{
		Type:       intPtr(2),
		Subtype:    intPtr(2),
		ASN:        u32Ptr(64496),
		LocalAdmin: &RawLocalPart{Fields: []RawField{{Name: "v", Pattern: `\d+`}}},
	}))

	if _, ok, _ := r.Parse("0x02:0x02:4200000000:1"); ok {
		t.Error("asn-only candidate matched a 4-octet administrator")
	}
	if _, ok, _ := r.Parse("0x02:0x02:64496:1"); !ok {
		t.Error("expected asn candidate to match its own administrator")
	}
}

func TestParseExtended_BinaryWidthFollowsAdminWidth(t *testing.T) {
	// asn → 16-bit transform, asn4 → 32-bit transform.
	narrow := extendedDoc(RawCandidate{
		Type:    intPtr(3),
		Subtype: intPtr(12),
		ASN:     u32Ptr(64496),
		LocalAdmin: &RawLocalPart{
			Format: "binary",
			Fields: []RawField{{Name: "bits", Pattern: "0{15}1", Length: intPtr(16)}},
		},
	})
	wide := extendedDoc(RawCandidate{
		Type:    intPtr(3),
		Subtype: intPtr(12),
		ASN4:    u32Ptr(4200000000),
		LocalAdmin: &RawLocalPart{
			Format: "binary",
			Fields: []RawField{{Name: "bits", Pattern: "0{31}1", Length: intPtr(32)}},
		},
	})
	r := buildRegistry(t, narrow, wide)

	out, ok, err := r.Parse("0x03:0x0c:64496:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || out != "64496:bits=0000000000000001" {
		t.Errorf("unexpected narrow result: ok=%v out=%s", ok, out)
	}

	out, ok, err = r.Parse("0x03:0x0c:4200000000:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || out != "4200000000:bits=00000000000000000000000000000001" {
		t.Errorf("unexpected wide result: ok=%v out=%s", ok, out)
	}
}

func TestParseRegular_FormatErrorOnBadNumeral(t *testing.T) {
	r := buildRegistry(t, regularDoc(65000, RawLocalPart{
		Format: "binary",
		Fields: []RawField{{Name: "v", Pattern: `\d+`}},
	}))

	// Direct kind entry point bypasses the classifier, so a non-numeric
	// content string reaches the binary transform.
	_, _, err := r.ParseRegular("65000:abc")
	if err == nil {
		t.Fatal("expected FormatError")
	}
	if _, ok := err.(*FormatError); !ok {
		t.Fatalf("expected *FormatError, got %T", err)
	}
}

func TestParse_EmptyRegistry(t *testing.T) {
	r := NewBuilder().Build()
	if _, ok, err := r.Parse("65000:100"); err != nil || ok {
		t.Errorf("expected miss on empty registry, got ok=%v err=%v", ok, err)
	}
}
