package ingest

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/ecfr"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
)

func titleSevenSections() []model.Section {
	return []model.Section{
		{ID: "title-7-1-1", TitleID: "title-7", Number: "1.1"},
		{ID: "title-7-11-1", TitleID: "title-7", Number: "11.1"},
		{ID: "title-7-2-5", TitleID: "title-7", Number: "2.5"},
	}
}

func TestImportCorrections(t *testing.T) {
	raw := `{"ecfr_corrections":[
	  {"id": 101, "corrective_action": "Amended paragraph (b)", "error_occurred": "2019-05-01",
	   "error_corrected": "2019-06-15", "fr_citation": "84 FR 27000", "position": 3, "display_in_toc": true,
	   "last_modified": "2019-06-15T08:00:00Z",
	   "cfr_references": [
	     {"cfr_reference": "7 CFR 1.1", "hierarchy": {"title": 7, "part": "1", "section": "1.1"}},
	     {"cfr_reference": "7 CFR 99.9", "hierarchy": {"title": 7, "section": "99.9"}},
	     {"cfr_reference": "7 CFR 1", "hierarchy": {"title": 7, "part": "1"}}
	   ]},
	  {"id": 102, "corrective_action": "Fixed date", "error_occurred": "not-a-date", "year": 2020,
	   "cfr_references": [{"cfr_reference": "7 CFR 2.5", "hierarchy": {"section": "2.5"}}]}
	]}`
	var resp ecfr.CorrectionsResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatal(err)
	}

	title := model.Title{ID: "title-7", Number: "7"}
	changes := ImportCorrections(title, titleSevenSections(), resp.Corrections, sequentialIDs("c"), nil)
	if len(changes) != 2 {
		t.Fatalf("expected 2 matched changes (missing section and empty label dropped), got %d", len(changes))
	}

	first := changes[0]
	// "1.1" is a suffix of both 1.1 and 11.1; the first section wins
	if first.SectionID != "title-7-1-1" {
		t.Errorf("SectionID = %q", first.SectionID)
	}
	if first.Position != 3 || !first.DisplayInToc || first.FRCitation != "84 FR 27000" || first.Year != 2019 {
		t.Errorf("copied fields: %+v", first)
	}
	if !first.ErrorCorrected.Equal(time.Date(2019, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ErrorCorrected = %v", first.ErrorCorrected)
	}
	if !first.LastModified.Equal(time.Date(2019, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("LastModified = %v", first.LastModified)
	}
	if ref := first.CFRReferences[0]; ref.Reference != "7 CFR 1.1" || ref.Hierarchy.Title != "7" || ref.Hierarchy.Part != "1" {
		t.Errorf("reference snapshot: %+v", ref)
	}
	if first.Synthetic {
		t.Error("imported correction flagged synthetic")
	}

	second := changes[1]
	if second.SectionID != "title-7-2-5" || !second.ErrorOccurred.IsZero() || second.Year != 2020 {
		t.Errorf("soft date failure: %+v", second)
	}
}

func TestSyntheticCorrections(t *testing.T) {
	now := time.Date(2025, 3, 9, 15, 4, 5, 0, time.UTC)
	rnd := NewRandom(7)
	title := model.Title{ID: "title-7", Number: "7"}
	sections := titleSevenSections()

	changes := SyntheticCorrections(title, sections, rnd, now, sequentialIDs("s"))
	if len(changes) < 5 || len(changes) > 20 {
		t.Fatalf("expected 5..20 synthetic corrections, got %d", len(changes))
	}
	valid := make(map[string]string)
	for _, s := range sections {
		valid[s.ID] = s.Number
	}
	actions := make(map[string]bool)
	for _, a := range syntheticActions {
		actions[a] = true
	}
	for i, c := range changes {
		number, ok := valid[c.SectionID]
		if !ok {
			t.Fatalf("change %d references unknown section %q", i, c.SectionID)
		}
		if !c.Synthetic || c.Position != i+1 {
			t.Errorf("change %d flags/position: %+v", i, c)
		}
		if c.Year < 2005 || c.Year > 2024 || c.ErrorOccurred.Year() != c.Year || c.ErrorOccurred.Day() > 28 {
			t.Errorf("change %d date out of range: %v", i, c.ErrorOccurred)
		}
		months := (c.ErrorCorrected.Year()-c.ErrorOccurred.Year())*12 + int(c.ErrorCorrected.Month()-c.ErrorOccurred.Month())
		if months < 1 || months > 6 {
			t.Errorf("change %d correction lag %d months", i, months)
		}
		if !actions[c.CorrectiveAction] {
			t.Errorf("change %d action %q not in the fixed set", i, c.CorrectiveAction)
		}
		if !strings.Contains(c.FRCitation, " FR ") {
			t.Errorf("change %d citation %q", i, c.FRCitation)
		}
		if c.CFRReferences[0].Reference != "7 CFR "+number {
			t.Errorf("change %d reference %q", i, c.CFRReferences[0].Reference)
		}
		if !c.LastModified.Equal(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("change %d lastModified %v", i, c.LastModified)
		}
	}
}

func TestSyntheticCorrectionsNeedSections(t *testing.T) {
	if got := SyntheticCorrections(model.Title{Number: "35"}, nil, NewRandom(1), time.Now(), sequentialIDs("s")); len(got) != 0 {
		t.Fatalf("expected none for a title without sections, got %d", len(got))
	}
}
