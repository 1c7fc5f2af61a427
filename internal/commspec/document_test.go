package commspec

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDocument_DecodeJSON(t *testing.T) {
	raw := `{
		"draft-ietf-grow-yang-bgp-communities:bgp-communities": {
			"regular": [
				{
					"globaladmin": 64496,
					"localadmin": {
						"format": "binary",
						"fields": [
							{"name": "flag", "length": 1, "pattern": "1"},
							{"name": "id", "pattern": "\\d+", "description": "customer id"}
						]
					}
				}
			],
			"large": [],
			"extended": [
				{
					"type": 3,
					"subtype": 12,
					"asn4": 4200000000,
					"localadmin": {"fields": [{"name": "v", "pattern": "\\d+"}]}
				}
			]
		}
	}`

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Communities == nil {
		t.Fatal("expected communities object")
	}
	if len(doc.Communities.Regular) != 1 {
		t.Fatalf("expected 1 regular candidate, got %d", len(doc.Communities.Regular))
	}

	r := doc.Communities.Regular[0]
	if r.GlobalAdmin == nil || *r.GlobalAdmin != 64496 {
		t.Errorf("unexpected globaladmin: %v", r.GlobalAdmin)
	}
	if r.LocalAdmin == nil || r.LocalAdmin.Format != "binary" {
		t.Error("expected binary localadmin format")
	}
	if len(r.LocalAdmin.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(r.LocalAdmin.Fields))
	}
	if r.LocalAdmin.Fields[0].Length == nil || *r.LocalAdmin.Fields[0].Length != 1 {
		t.Error("expected field 0 length 1")
	}
	if r.LocalAdmin.Fields[1].Description == nil || *r.LocalAdmin.Fields[1].Description != "customer id" {
		t.Error("expected field 1 description")
	}

	e := doc.Communities.Extended[0]
	if e.ASN != nil {
		t.Error("asn must be absent")
	}
	if e.ASN4 == nil || *e.ASN4 != 4200000000 {
		t.Errorf("unexpected asn4: %v", e.ASN4)
	}
}

func TestCompileRegular_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  RawCandidate
	}{
		{"missing globaladmin", RawCandidate{
			LocalAdmin: &RawLocalPart{Fields: []RawField{{Name: "v", Pattern: `\d+`}}},
		}},
		{"missing localadmin", RawCandidate{GlobalAdmin: u32Ptr(64496)}},
		{"missing field name", RawCandidate{
			GlobalAdmin: u32Ptr(64496),
			LocalAdmin:  &RawLocalPart{Fields: []RawField{{Pattern: `\d+`}}},
		}},
		{"missing pattern", RawCandidate{
			GlobalAdmin: u32Ptr(64496),
			LocalAdmin:  &RawLocalPart{Fields: []RawField{{Name: "v"}}},
		}},
		{"invalid pattern", RawCandidate{
			GlobalAdmin: u32Ptr(64496),
			LocalAdmin:  &RawLocalPart{Fields: []RawField{{Name: "v", Pattern: "("}}},
		}},
		{"unlengthed field not last", RawCandidate{
			GlobalAdmin: u32Ptr(64496),
			LocalAdmin: &RawLocalPart{Fields: []RawField{
				{Name: "a", Pattern: `\d+`},
				{Name: "b", Pattern: `\d+`, Length: intPtr(2)},
			}},
		}},
		{"negative length", RawCandidate{
			GlobalAdmin: u32Ptr(64496),
			LocalAdmin:  &RawLocalPart{Fields: []RawField{{Name: "v", Pattern: `\d+`, Length: intPtr(-1)}}},
		}},
	}

	for _, tt := range tests {
		if _, err := compileRegular(&tt.raw); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestCompileExtended_AdminRequired(t *testing.T) {
	la := &RawLocalPart{Fields: []RawField{{Name: "v", Pattern: `\d+`}}}

	if _, err := compileExtended(&RawCandidate{Type: intPtr(3), Subtype: intPtr(12), LocalAdmin: la}); err == nil {
		t.Error("expected error when neither asn nor asn4 declared")
	}
	if _, err := compileExtended(&RawCandidate{
		Type: intPtr(3), Subtype: intPtr(12), ASN: u32Ptr(64496), ASN4: u32Ptr(64496), LocalAdmin: la,
	}); err == nil {
		t.Error("expected error when both asn and asn4 declared")
	}
	if _, err := compileExtended(&RawCandidate{
		Type: intPtr(3), Subtype: intPtr(12), ASN: u32Ptr(70000), LocalAdmin: la,
	}); err == nil {
		t.Error("expected error for asn exceeding 16 bits")
	}

	c, err := compileExtended(&RawCandidate{
		Type: intPtr(3), Subtype: intPtr(12), ASN4: u32Ptr(4200000000), LocalAdmin: la,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Wide {
		t.Error("expected Wide=true for asn4 candidate")
	}
	if c.Admin != 4200000000 {
		t.Errorf("unexpected admin: %d", c.Admin)
	}
}

func TestBuilder_SkipsMalformedCandidates(t *testing.T) {
	doc := &Document{Communities: &CommunitySet{
		Regular: []RawCandidate{
			{GlobalAdmin: u32Ptr(64496)}, // missing localadmin
			{
				GlobalAdmin: u32Ptr(64497),
				LocalAdmin:  &RawLocalPart{Fields: []RawField{{Name: "v", Pattern: `\d+`}}},
			},
		},
	}}

	b := NewBuilder()
	rejects := b.Add(doc)
	if len(rejects) != 1 {
		t.Fatalf("expected 1 reject, got %d", len(rejects))
	}

	var specErr *SpecificationError
	if !errors.As(rejects[0], &specErr) {
		t.Fatalf("expected *SpecificationError, got %T", rejects[0])
	}
	if specErr.Kind != KindRegular || specErr.Index != 0 {
		t.Errorf("unexpected reject location: %s candidate %d", specErr.Kind, specErr.Index)
	}

	reg, large, ext := b.Build().Counts()
	if reg != 1 || large != 0 || ext != 0 {
		t.Errorf("expected counts (1,0,0), got (%d,%d,%d)", reg, large, ext)
	}
}
