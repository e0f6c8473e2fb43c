package ingest_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/ecfr"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/ingest"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/store/memstore"
)

const nestedAgencies = `{"agencies": [
  {"name": "Department of Commerce", "short_name": "DOC", "slug": "commerce-department",
   "cfr_references": [{"title": 15}, {"title": "50", "chapter": "II"}],
   "children": [
     {"name": "Bureau of the Census", "slug": "census-bureau"},
     {"name": "National Oceanic & Atmospheric Administration", "display_name": "NOAA",
      "children": [{"name": "National Marine Fisheries Service", "slug": null}]}
   ]},
  {"name": "Census Bureau (renamed)", "slug": "census-bureau"},
  {"slug": "nameless"},
  {"name": "!!!"}
]}`

func TestFlattenAgencies(t *testing.T) {
	var resp ecfr.AgenciesResponse
	if err := json.Unmarshal([]byte(nestedAgencies), &resp); err != nil {
		t.Fatal(err)
	}
	got := ingest.FlattenAgencies(resp.Agencies)

	wantIDs := []string{
		"commerce-department",
		"census-bureau",
		"national-oceanic-atmospheric-administration",
		"national-marine-fisheries-service",
		"nameless",
		"",
	}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d agencies, want %d: %+v", len(got), len(wantIDs), got)
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("agency %d id = %q, want %q", i, got[i].ID, id)
		}
	}

	// a repeated slug keeps its first position but takes the later fields
	if got[1].Name != "Census Bureau (renamed)" {
		t.Errorf("duplicate slug name = %q", got[1].Name)
	}
	if got[2].DisplayName != "NOAA" || got[2].ShortName != ecfr.DefaultAgencyShortName {
		t.Errorf("defaults not applied: %+v", got[2])
	}
	if got[4].Name != ecfr.DefaultAgencyName {
		t.Errorf("missing name default = %q", got[4].Name)
	}
	refs := got[0].CFRReferences
	if len(refs) != 2 || refs[0].Title != "15" || refs[1].Chapter != "II" {
		t.Errorf("references: %+v", refs)
	}
}

func TestIngestAgenciesIsIdempotent(t *testing.T) {
	ctx := context.Background()
	var resp ecfr.AgenciesResponse
	if err := json.Unmarshal([]byte(nestedAgencies), &resp); err != nil {
		t.Fatal(err)
	}
	st := memstore.New()
	first, err := ingest.IngestAgencies(ctx, st, resp.Agencies)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ingest.IngestAgencies(ctx, st, resp.Agencies)
	if err != nil {
		t.Fatal(err)
	}
	// the punctuation-only name is skipped
	if len(first) != 5 || len(second) != 5 {
		t.Fatalf("ingested %d then %d agencies", len(first), len(second))
	}
	stored, _ := st.ListAgencies(ctx)
	if len(stored) != 5 {
		t.Fatalf("store holds %d agencies after re-ingest, want 5", len(stored))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("id %d unstable: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}
