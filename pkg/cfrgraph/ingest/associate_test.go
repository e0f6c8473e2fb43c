package ingest

import (
	"testing"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
)

func agency(id, name, short string, refTitles ...string) model.Agency {
	a := model.Agency{ID: id, Name: name, ShortName: short}
	for _, rt := range refTitles {
		a.CFRReferences = append(a.CFRReferences, model.AgencyReference{Title: rt})
	}
	return a
}

func TestAssociatorTiers(t *testing.T) {
	agencies := []model.Agency{
		agency("gsa", "General Services Administration", "GSA"),
		agency("usda", "Department of Agriculture", "USDA", "7"),
		agency("epa", "Environmental Protection Agency", "EPA", "40"),
		agency("energy", "Department of Energy", "DOE"),
		agency("ferc", "Federal Energy Regulatory Commission", "FERC"),
		agency("ag-marketing", "Agricultural Marketing Service", "AMS"),
	}

	tests := []struct {
		name     string
		title    model.Title
		wantID   string
		wantTier string
	}{
		{"direct reference", model.Title{Number: "40", Name: "Protection of Environment"}, "epa", "cfr-reference"},
		{"name containment", model.Title{Number: "10", Name: "Energy: Department of Energy rules"}, "energy", "name-containment"},
		{"short name containment", model.Title{Number: "18", Name: "Conservation of Power and Water Resources (FERC)"}, "ferc", "name-containment"},
		{"general range", model.Title{Number: "3", Name: "The President"}, "gsa", "title-number-range"},
		{"agricultural range", model.Title{Number: "9", Name: "Animals and Animal Products"}, "usda", "title-number-range"},
		{"unparseable number skips range", model.Title{Number: "3A", Name: "The President"}, "", ""},
		{"outside ranges", model.Title{Number: "50", Name: "Wildlife and Fisheries"}, "", ""},
	}
	assoc := NewAssociator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tier, ok := assoc.Associate(tt.title, agencies)
			if tt.wantID == "" {
				if ok {
					t.Fatalf("expected no match, got %s via %s", got.ID, tier)
				}
				return
			}
			if !ok || got.ID != tt.wantID || tier != tt.wantTier {
				t.Fatalf("got %q via %q (ok=%v), want %q via %q", got.ID, tier, ok, tt.wantID, tt.wantTier)
			}
		})
	}
}

func TestTier3GeneralServicesAdministration(t *testing.T) {
	agencies := []model.Agency{
		agency("commerce", "Department of Commerce", "DOC"),
		agency("gsa", "General Services Administration", "GSA"),
	}
	title := model.Title{Number: "3", Name: "The President"}

	if _, ok := MatchCFRReference(title, agencies); ok {
		t.Fatal("tier 1 should not match")
	}
	if _, ok := MatchNameContainment(title, agencies); ok {
		t.Fatal("tier 2 should not match")
	}
	got, tier, ok := NewAssociator().Associate(title, agencies)
	if !ok || got.ID != "gsa" || tier != "title-number-range" {
		t.Fatalf("got %q via %q, want gsa via title-number-range", got.ID, tier)
	}
}

func TestCFRReferenceFirstMatchWins(t *testing.T) {
	a := agency("a", "Agency A", "AA", "12")
	b := agency("b", "Agency B", "BB", "12")
	title := model.Title{Number: "12"}

	for i := 0; i < 3; i++ {
		got, ok := MatchCFRReference(title, []model.Agency{a, b})
		if !ok || got.ID != "a" {
			t.Fatalf("run %d: got %q, want a", i, got.ID)
		}
	}
	got, _ := MatchCFRReference(title, []model.Agency{b, a})
	if got.ID != "b" {
		t.Fatalf("reordered set: got %q, want b", got.ID)
	}
}

func TestNameContainmentPrefersLongestAndFirstOnTie(t *testing.T) {
	agencies := []model.Agency{
		agency("short", "Energy", ""),
		agency("long", "Department of Energy", ""),
		agency("tie", "Department of Energy", ""),
		agency("tiny", "DOE", ""),
	}
	got, ok := MatchNameContainment(model.Title{Name: "Department of Energy Regulations"}, agencies)
	if !ok || got.ID != "long" {
		t.Fatalf("got %q, want long", got.ID)
	}
	// names under four characters never score, even when contained
	if _, ok := MatchNameContainment(model.Title{Name: "doe rules"}, agencies[3:]); ok {
		t.Fatal("three-letter name should not score")
	}
}

func TestCustomTierOrder(t *testing.T) {
	agencies := []model.Agency{agency("gsa", "General Services Administration", "GSA", "3")}
	assoc := Associator{Tiers: []Tier{{Name: "range-only", Match: MatchTitleNumberRange}}}
	_, tier, ok := assoc.Associate(model.Title{Number: "3"}, agencies)
	if !ok || tier != "range-only" {
		t.Fatalf("got tier %q ok=%v", tier, ok)
	}
}

func TestUnknownAgency(t *testing.T) {
	a := UnknownAgency("35")
	if a.ID != "unknown-agency-for-title-35" || a.Name != "Unknown Agency (Title 35)" || a.ShortName != "Unknown" {
		t.Fatalf("UnknownAgency = %+v", a)
	}
}
