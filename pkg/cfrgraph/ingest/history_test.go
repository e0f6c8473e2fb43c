package ingest

import (
	"testing"
	"time"
)

func TestSplitHistoryRoundTrip(t *testing.T) {
	entries := SplitHistory("70 FR 12345; 75 FR 67890")
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	want := []string{"70 FR 12345", "75 FR 67890"}
	for i, e := range entries {
		if e.Citation != want[i] {
			t.Errorf("entry %d citation = %q, want %q", i, e.Citation, want[i])
		}
		if e.Position != i+1 {
			t.Errorf("entry %d position = %d, want %d", i, e.Position, i+1)
		}
	}
}

func TestSplitHistory(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		citations []string
		years     []int
	}{
		{
			name:      "leading text joins first entry",
			in:        "[Amdt. 3, 61 FR 1234, Jan. 2, 1996, as amended at 69 FR 55, 2004-01-02]",
			citations: []string{"61 FR 1234", "69 FR 55"},
			years:     []int{1996, 2004},
		},
		{
			name:      "semicolon fallback",
			in:        "Amended 1998; revised 2003-07-15 ; ",
			citations: []string{"", ""},
			years:     []int{1998, 2003},
		},
		{
			name:      "no date",
			in:        "Redesignated from section 4",
			citations: []string{""},
			years:     []int{0},
		},
		{
			name:      "whitespace inside citation",
			in:        "80  FR\n9000",
			citations: []string{"80 FR 9000"},
			years:     []int{0},
		},
		{
			name:      "invalid iso date falls back to year",
			in:        "corrected 2021-02-30",
			citations: []string{""},
			years:     []int{2021},
		},
		{name: "empty", in: "  ", citations: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := SplitHistory(tt.in)
			if len(entries) != len(tt.citations) {
				t.Fatalf("got %d entries, want %d: %+v", len(entries), len(tt.citations), entries)
			}
			for i, e := range entries {
				if e.Citation != tt.citations[i] {
					t.Errorf("entry %d citation = %q, want %q", i, e.Citation, tt.citations[i])
				}
				if e.Year != tt.years[i] {
					t.Errorf("entry %d year = %d, want %d", i, e.Year, tt.years[i])
				}
				if e.Position != i+1 {
					t.Errorf("entry %d position = %d", i, e.Position)
				}
			}
		})
	}
}

func TestExtractDateTiers(t *testing.T) {
	occurred, year := extractDate("published 2004-01-02")
	if !occurred.Equal(time.Date(2004, 1, 2, 0, 0, 0, 0, time.UTC)) || year != 2004 {
		t.Errorf("iso tier: %v %d", occurred, year)
	}
	occurred, year = extractDate("Jan. 2, 1996")
	if !occurred.Equal(time.Date(1996, 1, 1, 0, 0, 0, 0, time.UTC)) || year != 1996 {
		t.Errorf("year tier should default to January 1: %v %d", occurred, year)
	}
	if occurred, year = extractDate("page 21001"); !occurred.IsZero() || year != 0 {
		t.Errorf("five-digit number is not a year: %v %d", occurred, year)
	}
}

func TestHistoryChangesSynthesizeCorrection(t *testing.T) {
	rnd := &stubRandom{ints: []int{2}}
	changes := HistoryChanges("title-7-1-1", "70 FR 12345, 2005-03-10; 75 FR 67890", rnd, sequentialIDs("chg"))
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}

	first := changes[0]
	if first.ID != "chg-1" || first.SectionID != "title-7-1-1" || first.Position != 1 {
		t.Errorf("first change identity: %+v", first)
	}
	// Intn(6) returned 2, so the lag is three months
	if !first.ErrorCorrected.Equal(time.Date(2005, 6, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ErrorCorrected = %v", first.ErrorCorrected)
	}
	if first.DisplayInToc || first.Synthetic {
		t.Errorf("history changes are not synthetic or in toc: %+v", first)
	}

	second := changes[1]
	if !second.ErrorOccurred.IsZero() || !second.ErrorCorrected.IsZero() {
		t.Errorf("undated entry must not get dates: %+v", second)
	}
	if second.CorrectiveAction != "75 FR 67890" {
		t.Errorf("CorrectiveAction = %q", second.CorrectiveAction)
	}
}
