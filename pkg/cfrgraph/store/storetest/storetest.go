// Package storetest holds the behavioural suite every store.Store
// implementation runs from its own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/internalerr"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/store"
)

// Run exercises open against the shared contract. open must return an
// empty store; Run closes it.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("AgencyUpsertIsIdempotent", func(t *testing.T) { testAgencyUpsert(t, open(t)) })
	t.Run("TitleQueries", func(t *testing.T) { testTitleQueries(t, open(t)) })
	t.Run("SectionsAndChanges", func(t *testing.T) { testSectionsAndChanges(t, open(t)) })
	t.Run("OrphansRejected", func(t *testing.T) { testOrphans(t, open(t)) })
	t.Run("Reset", func(t *testing.T) { testReset(t, open(t)) })
}

func seed(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	agencies := []model.Agency{
		{ID: "agriculture-department", Name: "Department of Agriculture", ShortName: "USDA",
			CFRReferences: []model.AgencyReference{{Title: "7", Chapter: "I"}, {Title: "2", Chapter: "IV"}}},
		{ID: "general-services-administration", Name: "General Services Administration", ShortName: "GSA"},
		{ID: "empty-agency", Name: "Empty Agency"},
	}
	for _, a := range agencies {
		if err := st.UpsertAgency(ctx, a); err != nil {
			t.Fatalf("UpsertAgency %s: %v", a.ID, err)
		}
	}
	titles := []model.Title{
		{ID: "title-7", Number: "7", Name: "Agriculture", AgencyID: "agriculture-department",
			WordCount: 900, WordCountKind: model.WordCountMeasured,
			LatestIssueDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{ID: "title-2", Number: "2", Name: "Grants and Agreements", AgencyID: "agriculture-department",
			WordCount: 5000, WordCountKind: model.WordCountEstimated},
		{ID: "title-41", Number: "41", Name: "Public Contracts and Property Management", AgencyID: "general-services-administration",
			WordCount: 5000, WordCountKind: model.WordCountEstimated},
	}
	for _, tt := range titles {
		if err := st.UpsertTitle(ctx, tt); err != nil {
			t.Fatalf("UpsertTitle %s: %v", tt.ID, err)
		}
	}
}

func testAgencyUpsert(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()
	seed(t, st)
	seed(t, st)

	all, err := st.ListAgencies(ctx)
	if err != nil {
		t.Fatalf("ListAgencies: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 agencies after double upsert, got %d", len(all))
	}
	if all[0].ID != "agriculture-department" || all[2].ID != "empty-agency" {
		t.Fatalf("ingestion order not preserved: %v", []string{all[0].ID, all[1].ID, all[2].ID})
	}
	if refs := all[0].CFRReferences; len(refs) != 2 || refs[0].Title != "7" || refs[1].Chapter != "IV" {
		t.Fatalf("cfr references not round-tripped: %+v", refs)
	}

	got, ok, err := st.GetAgency(ctx, "general-services-administration")
	if err != nil || !ok || got.ShortName != "GSA" {
		t.Fatalf("GetAgency: %+v %v %v", got, ok, err)
	}
	if _, ok, _ := st.GetAgency(ctx, "missing"); ok {
		t.Fatal("missing agency should not be found")
	}

	found, err := st.SearchAgencies(ctx, "usda")
	if err != nil || len(found) != 1 || found[0].ID != "agriculture-department" {
		t.Fatalf("SearchAgencies by short name: %+v %v", found, err)
	}

	ranked, err := st.AgenciesByTitleCount(ctx)
	if err != nil {
		t.Fatalf("AgenciesByTitleCount: %v", err)
	}
	if ranked[0].Agency.ID != "agriculture-department" || ranked[0].TitleCount != 2 {
		t.Fatalf("top agency = %+v", ranked[0])
	}
	if ranked[2].Agency.ID != "empty-agency" || ranked[2].TitleCount != 0 {
		t.Fatalf("last agency = %+v", ranked[2])
	}
}

func testTitleQueries(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()
	seed(t, st)

	byNum, ok, err := st.GetTitleByNumber(ctx, "7")
	if err != nil || !ok {
		t.Fatalf("GetTitleByNumber: %v %v", ok, err)
	}
	if !byNum.LatestIssueDate.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("LatestIssueDate = %v", byNum.LatestIssueDate)
	}
	if !byNum.LatestAmendedOn.IsZero() {
		t.Errorf("unknown date should stay zero, got %v", byNum.LatestAmendedOn)
	}
	if byNum.WordCountKind != model.WordCountMeasured {
		t.Errorf("WordCountKind = %q", byNum.WordCountKind)
	}

	search, _ := st.SearchTitles(ctx, "AGR")
	if len(search) != 2 {
		t.Fatalf("SearchTitles: expected Agriculture and Grants and Agreements, got %d", len(search))
	}

	owned, _ := st.TitlesByAgency(ctx, "agriculture-department")
	if len(owned) != 2 || owned[0].ID != "title-7" {
		t.Fatalf("TitlesByAgency: %+v", owned)
	}

	ranked, _ := st.TitlesByWordCount(ctx)
	want := []string{"title-2", "title-41", "title-7"}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Fatalf("TitlesByWordCount[%d] = %s, want %s (ties keep ingestion order)", i, ranked[i].ID, id)
		}
	}
}

func testSectionsAndChanges(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()
	seed(t, st)

	sections := []model.Section{
		{ID: "title-7-1-1", TitleID: "title-7", Number: "1.1", Heading: "Definitions.", Type: "section", WordCount: 40},
		{ID: "title-7-1-2", TitleID: "title-7", Number: "1.2", Heading: "Scope.", Type: "section", WordCount: 60},
		{ID: "title-41-101-1", TitleID: "title-41", Number: "101.1", Type: "section"},
	}
	for _, s := range sections {
		if err := st.UpsertSection(ctx, s); err != nil {
			t.Fatalf("UpsertSection: %v", err)
		}
	}
	updated := sections[0]
	updated.LabelLevel = "§ 1.1"
	updated.Reserved = true
	if err := st.UpsertSection(ctx, updated); err != nil {
		t.Fatalf("UpsertSection update: %v", err)
	}

	inTitle, _ := st.SectionsByTitle(ctx, "title-7")
	if len(inTitle) != 2 || inTitle[0].ID != "title-7-1-1" {
		t.Fatalf("SectionsByTitle: %+v", inTitle)
	}
	if !inTitle[0].Reserved || inTitle[0].LabelLevel != "§ 1.1" || inTitle[0].WordCount != 40 {
		t.Fatalf("section update lost fields: %+v", inTitle[0])
	}

	occurred := time.Date(2010, 3, 4, 0, 0, 0, 0, time.UTC)
	changes := []model.HistoricalChange{
		{ID: "c1", SectionID: "title-7-1-1", CorrectiveAction: "70 FR 12345", FRCitation: "70 FR 12345",
			ErrorOccurred: occurred, ErrorCorrected: occurred.AddDate(0, 2, 0), Year: 2010, Position: 1,
			CFRReferences: []model.CFRReference{{Reference: "7 CFR 1.1", Hierarchy: model.Hierarchy{Title: "7", Section: "1.1"}}}},
		{ID: "c2", SectionID: "title-7-1-2", Position: 1, Synthetic: true, DisplayInToc: true},
		{ID: "c3", SectionID: "title-41-101-1", Position: 1},
	}
	for _, c := range changes {
		if err := st.AddChange(ctx, c); err != nil {
			t.Fatalf("AddChange: %v", err)
		}
	}

	bySection, _ := st.ChangesBySection(ctx, "title-7-1-1")
	if len(bySection) != 1 {
		t.Fatalf("ChangesBySection: %d", len(bySection))
	}
	c := bySection[0]
	if !c.ErrorOccurred.Equal(occurred) || c.Year != 2010 || c.FRCitation != "70 FR 12345" {
		t.Errorf("change fields: %+v", c)
	}
	if !c.LastModified.IsZero() {
		t.Errorf("unknown lastModified should stay zero, got %v", c.LastModified)
	}
	if len(c.CFRReferences) != 1 || c.CFRReferences[0].Hierarchy.Section != "1.1" {
		t.Errorf("cfr references: %+v", c.CFRReferences)
	}

	byTitle, _ := st.ChangesByTitle(ctx, "title-7")
	if len(byTitle) != 2 {
		t.Fatalf("ChangesByTitle: %d", len(byTitle))
	}
	if !byTitle[1].Synthetic || !byTitle[1].DisplayInToc {
		t.Errorf("flags not round-tripped: %+v", byTitle[1])
	}
	byAgency, _ := st.ChangesByAgency(ctx, "general-services-administration")
	if len(byAgency) != 1 || byAgency[0].ID != "c3" {
		t.Fatalf("ChangesByAgency: %+v", byAgency)
	}
	all, _ := st.ListChanges(ctx)
	if len(all) != 3 {
		t.Fatalf("ListChanges: %d", len(all))
	}
	allSections, _ := st.ListSections(ctx)
	if len(allSections) != 3 {
		t.Fatalf("ListSections: %d", len(allSections))
	}
}

func testOrphans(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()
	seed(t, st)

	err := st.UpsertSection(ctx, model.Section{ID: "title-99-1", TitleID: "title-99", Number: "1"})
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("section without title: expected ErrNotFound, got %v", err)
	}
	err = st.AddChange(ctx, model.HistoricalChange{ID: "x", SectionID: "title-7-missing"})
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("change without section: expected ErrNotFound, got %v", err)
	}
	err = st.UpsertAgency(ctx, model.Agency{Name: "No ID"})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("agency without id: expected ErrInvalidInput, got %v", err)
	}
}

func testReset(t *testing.T, st store.Store) {
	defer st.Close()
	ctx := context.Background()
	seed(t, st)
	if err := st.UpsertSection(ctx, model.Section{ID: "title-7-1-1", TitleID: "title-7", Number: "1.1"}); err != nil {
		t.Fatalf("UpsertSection: %v", err)
	}
	if err := st.AddChange(ctx, model.HistoricalChange{ID: "c1", SectionID: "title-7-1-1"}); err != nil {
		t.Fatalf("AddChange: %v", err)
	}

	if err := st.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	agencies, _ := st.ListAgencies(ctx)
	titles, _ := st.ListTitles(ctx)
	sections, _ := st.ListSections(ctx)
	changes, _ := st.ListChanges(ctx)
	if len(agencies)+len(titles)+len(sections)+len(changes) != 0 {
		t.Fatalf("store not empty after Reset: %d/%d/%d/%d", len(agencies), len(titles), len(sections), len(changes))
	}
}
