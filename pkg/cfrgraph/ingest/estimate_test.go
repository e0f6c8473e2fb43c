package ingest

import (
	"testing"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
)

func TestEstimateBases(t *testing.T) {
	titles := []model.Title{
		{ID: "title-7", AgencyID: "usda", WordCount: 10000, WordCountKind: model.WordCountMeasured},
		{ID: "title-9", AgencyID: "usda", WordCount: 30000, WordCountKind: model.WordCountMeasured},
		{ID: "title-40", AgencyID: "epa", WordCount: 90000, WordCountKind: model.WordCountMeasured},
		// an unfetched estimate is not a base
		{ID: "title-3", AgencyID: "gsa", WordCount: 77777, WordCountKind: model.WordCountEstimated},
		{ID: "title-8", AgencyID: "usda"},
		{ID: "title-3b", AgencyID: "gsa"},
		{ID: "title-50"},
	}
	// NormFloat64 of zero keeps the base unchanged
	got := Estimator{}.Estimate(titles, &stubRandom{})
	if len(got) != 3 {
		t.Fatalf("expected 3 estimates, got %d", len(got))
	}
	want := map[string]int{
		"title-8":  20000, // agency mean
		"title-3b": 43333, // global mean of measured titles, truncated
		"title-50": 43333,
	}
	for _, title := range got {
		if title.WordCount != want[title.ID] || title.WordCountKind != model.WordCountEstimated {
			t.Errorf("%s: %d (%s), want %d", title.ID, title.WordCount, title.WordCountKind, want[title.ID])
		}
	}
}

func TestEstimateVariationIsClampedAndFloored(t *testing.T) {
	tests := []struct {
		name string
		norm float64
		base int
		want int
	}{
		{"upper clamp", 10, 10000, 15000},
		{"lower clamp", -10, 10000, 5000},
		{"one sigma", 1, 10000, 12000},
		{"floor", -10, 1500, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			titles := []model.Title{
				{ID: "a", WordCount: tt.base, WordCountKind: model.WordCountMeasured},
				{ID: "b"},
			}
			got := Estimator{}.Estimate(titles, &stubRandom{norms: []float64{tt.norm}})
			if len(got) != 1 || got[0].WordCount != tt.want {
				t.Fatalf("got %+v, want %d", got, tt.want)
			}
		})
	}
}

func TestEstimateWithoutMeasurementsUsesDefault(t *testing.T) {
	got := Estimator{Default: 40000}.Estimate([]model.Title{{ID: "x"}}, &stubRandom{})
	if got[0].WordCount != 40000 {
		t.Fatalf("WordCount = %d, want 40000", got[0].WordCount)
	}
}

func TestUnfetchedRange(t *testing.T) {
	e := Estimator{}
	if n := e.Unfetched(&stubRandom{ints: []int{123}}); n != 50123 {
		t.Fatalf("Unfetched = %d, want 50123", n)
	}
}
