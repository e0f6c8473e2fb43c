package analytics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/store/memstore"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func sampleGraph() Graph {
	return Graph{
		Agencies: []model.Agency{
			{ID: "usda", Name: "Department of Agriculture"},
			{ID: "epa", Name: "Environmental Protection Agency"},
			{ID: "gsa", Name: "General Services Administration"},
		},
		Titles: []model.Title{
			{ID: "title-7", Number: "7", Name: "Agriculture", WordCount: 3000, AgencyID: "usda"},
			{ID: "title-9", Number: "9", Name: "Animals", WordCount: 1000, AgencyID: "usda"},
			{ID: "title-40", Number: "40", Name: "Protection of Environment", WordCount: 4000, AgencyID: "epa"},
			{ID: "title-41", Number: "41", Name: "Public Contracts", WordCount: 0, AgencyID: "gsa"},
		},
		Sections: []model.Section{
			{ID: "title-7-1-1", TitleID: "title-7", Number: "1.1", Heading: "Definitions.", WordCount: 30},
			{ID: "title-7-1-2", TitleID: "title-7", Number: "1.2", Heading: "Scope.", WordCount: 70},
			{ID: "title-7-1-3", TitleID: "title-7", Number: "1.3", Heading: "[Reserved]", WordCount: 30},
			{ID: "title-40-52-21", TitleID: "title-40", Number: "52.21", Heading: "Prevention.", WordCount: 900},
		},
		Changes: []model.HistoricalChange{
			{ID: "c1", SectionID: "title-7-1-1", ErrorOccurred: day(2019, 1, 5)},
			{ID: "c2", SectionID: "title-7-1-1", ErrorOccurred: day(2019, 7, 1)},
			{ID: "c3", SectionID: "title-7-1-2", ErrorOccurred: day(2021, 3, 3)},
			{ID: "c4", SectionID: "title-7-1-2"},
			{ID: "c5", SectionID: "title-40-52-21", ErrorOccurred: day(2020, 2, 2)},
			{ID: "orphan", SectionID: "title-99-1"},
		},
	}
}

func TestWordCountsByAgency(t *testing.T) {
	rows := NewAnalyzer(sampleGraph()).WordCountsByAgency()
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	// usda and epa tie at 4000; usda was seen first
	want := []struct {
		id    string
		count int
		pct   float64
	}{
		{"usda", 4000, 50},
		{"epa", 4000, 50},
		{"gsa", 0, 0},
	}
	for i, w := range want {
		r := rows[i]
		if r.EntityID != w.id || r.WordCount != w.count || math.Abs(r.Percentage-w.pct) > 1e-9 || r.EntityType != EntityAgency {
			t.Errorf("row %d = %+v, want %+v", i, r, w)
		}
	}
}

func TestWordCountPercentagesSumTo100(t *testing.T) {
	a := NewAnalyzer(sampleGraph())
	for name, rows := range map[string][]WordCount{
		"agency":  a.WordCountsByAgency(),
		"title":   a.WordCountsByTitle(),
		"section": a.WordCountsBySection("title-7"),
	} {
		sum := 0.0
		for _, r := range rows {
			sum += r.Percentage
		}
		if math.Abs(sum-100) > 1e-9 {
			t.Errorf("%s percentages sum to %v", name, sum)
		}
	}
}

func TestWordCountsZeroTotal(t *testing.T) {
	g := Graph{Titles: []model.Title{{ID: "title-1", Number: "1"}, {ID: "title-2", Number: "2"}}}
	for _, r := range NewAnalyzer(g).WordCountsByTitle() {
		if r.Percentage != 0 {
			t.Fatalf("zero total must give zero percentages: %+v", r)
		}
	}
}

func TestWordCountNamesAndOrder(t *testing.T) {
	a := NewAnalyzer(sampleGraph())
	titles := a.WordCountsByTitle()
	if titles[0].EntityName != "Title 40: Protection of Environment" || titles[3].EntityID != "title-41" {
		t.Errorf("title rows: %+v", titles)
	}
	sections := a.WordCountsBySection("title-7")
	if len(sections) != 3 || sections[0].EntityName != "1.2: Scope." {
		t.Fatalf("section rows: %+v", sections)
	}
	// equal counts keep storage order
	if sections[1].EntityID != "title-7-1-1" || sections[2].EntityID != "title-7-1-3" {
		t.Errorf("tie order: %+v", sections)
	}
}

func TestChangeFrequencyByAgency(t *testing.T) {
	rows := NewAnalyzer(sampleGraph()).ChangeFrequencyByAgency()
	usda := rows[0]
	if usda.EntityID != "usda" || usda.TotalChanges != 4 {
		t.Fatalf("first row = %+v", usda)
	}
	// c4 is undated: counted in the total but not per year
	if usda.ByYear[2019] != 2 || usda.ByYear[2021] != 1 || len(usda.ByYear) != 2 {
		t.Errorf("ByYear = %v", usda.ByYear)
	}
	if usda.ChangesPerYear != 2 {
		t.Errorf("ChangesPerYear = %v, want 4/2", usda.ChangesPerYear)
	}
	gsa := rows[2]
	if gsa.EntityID != "gsa" || gsa.TotalChanges != 0 || gsa.ChangesPerYear != 0 {
		t.Errorf("gsa row = %+v", gsa)
	}
}

func TestChangeFrequencyByTitleAndSection(t *testing.T) {
	a := NewAnalyzer(sampleGraph())
	titles := a.ChangeFrequencyByTitle()
	if titles[0].EntityID != "title-7" || titles[0].TotalChanges != 4 || titles[1].EntityID != "title-40" {
		t.Fatalf("title rows: %+v", titles)
	}
	sections := a.ChangeFrequencyBySection("title-7")
	if len(sections) != 3 {
		t.Fatalf("expected 3 section rows, got %d", len(sections))
	}
	if sections[0].EntityID != "title-7-1-1" || sections[0].ChangesPerYear != 2 {
		t.Errorf("first section = %+v", sections[0])
	}
	if sections[1].EntityID != "title-7-1-2" || sections[1].ChangesPerYear != 2 {
		t.Errorf("second section = %+v", sections[1])
	}
	if got := Years(sections[0].ByYear); len(got) != 1 || got[0] != 2019 {
		t.Errorf("Years = %v", got)
	}
}

func TestTop(t *testing.T) {
	rows := NewAnalyzer(sampleGraph()).WordCountsByTitle()
	if got := Top(rows, 2); len(got) != 2 || got[0].EntityID != "title-40" {
		t.Errorf("Top(2) = %+v", got)
	}
	if got := Top(rows, 0); len(got) != len(rows) {
		t.Errorf("Top(0) should return all rows")
	}
	if got := Top(rows, 10); len(got) != len(rows) {
		t.Errorf("Top past the end should return all rows")
	}
}

func TestRows(t *testing.T) {
	a := NewAnalyzer(sampleGraph())
	wc := Rows(a.WordCountsByAgency())
	if wc[0].Metric != 4000 || wc[0].PercentageOrRate != 50 || wc[0].EntityType != EntityAgency {
		t.Errorf("word-count row = %+v", wc[0])
	}
	cf := Rows(a.ChangeFrequencyByTitle())
	if cf[0].Metric != 4 || cf[0].PercentageOrRate != 2 {
		t.Errorf("frequency row = %+v", cf[0])
	}
}

func TestLoadGraph(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	g := sampleGraph()
	for _, a := range g.Agencies {
		if err := st.UpsertAgency(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	for _, title := range g.Titles {
		if err := st.UpsertTitle(ctx, title); err != nil {
			t.Fatal(err)
		}
	}
	for _, s := range g.Sections {
		if err := st.UpsertSection(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	for _, c := range g.Changes[:5] {
		if err := st.AddChange(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	loaded, err := LoadGraph(ctx, st)
	if err != nil {
		t.Fatalf("LoadGraph: %v", err)
	}
	if len(loaded.Agencies) != 3 || len(loaded.Titles) != 4 || len(loaded.Sections) != 4 || len(loaded.Changes) != 5 {
		t.Fatalf("loaded %d/%d/%d/%d", len(loaded.Agencies), len(loaded.Titles), len(loaded.Sections), len(loaded.Changes))
	}
	if NewAnalyzer(loaded).WordCountsByAgency()[0].EntityID != "usda" {
		t.Error("rollup over the loaded graph differs")
	}
}
