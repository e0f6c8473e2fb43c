package ingest

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/ecfr"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
)

// ImportCorrections matches each correction reference to a section of the
// title by suffix of the section number (first hit in section order) and
// returns one change per matched reference. Unmatched references are
// dropped.
func ImportCorrections(title model.Title, sections []model.Section, corrections []ecfr.CorrectionPayload, newID IDFunc, logger *slog.Logger) []model.HistoricalChange {
	var out []model.HistoricalChange
	for _, corr := range corrections {
		for _, ref := range corr.CFRReferences {
			label := strings.TrimSpace(string(ref.Hierarchy.Section))
			if label == "" {
				continue
			}
			sec, ok := findSectionBySuffix(sections, label)
			if !ok {
				continue
			}
			out = append(out, changeFromCorrection(sec, corr, ref, title.Number, newID, logger))
		}
	}
	return out
}

func findSectionBySuffix(sections []model.Section, label string) (model.Section, bool) {
	for _, s := range sections {
		if strings.HasSuffix(s.Number, label) {
			return s, true
		}
	}
	return model.Section{}, false
}

func changeFromCorrection(sec model.Section, corr ecfr.CorrectionPayload, ref ecfr.CorrectionRefPayload, titleNumber string, newID IDFunc, logger *slog.Logger) model.HistoricalChange {
	field := func(name string) string { return "correction " + string(corr.ID) + " " + name }
	c := model.HistoricalChange{
		ID:               newID(),
		SectionID:        sec.ID,
		CorrectiveAction: corr.CorrectiveAction,
		ErrorOccurred:    parseDate(corr.ErrorOccurred, field("error_occurred"), titleNumber, logger),
		ErrorCorrected:   parseDate(corr.ErrorCorrected, field("error_corrected"), titleNumber, logger),
		LastModified:     parseDate(dateOnly(corr.LastModified), field("last_modified"), titleNumber, logger),
		FRCitation:       corr.FRCitation,
		DisplayInToc:     corr.DisplayInToc,
		CFRReferences: []model.CFRReference{{
			Reference: ref.CFRReference,
			Hierarchy: model.Hierarchy{
				Title:    string(ref.Hierarchy.Title),
				Subtitle: string(ref.Hierarchy.Subtitle),
				Chapter:  string(ref.Hierarchy.Chapter),
				Part:     string(ref.Hierarchy.Part),
				Subpart:  string(ref.Hierarchy.Subpart),
				Section:  string(ref.Hierarchy.Section),
			},
		}},
	}
	if corr.Position != nil {
		c.Position = *corr.Position
	}
	switch {
	case corr.Year != nil:
		c.Year = *corr.Year
	case !c.ErrorOccurred.IsZero():
		c.Year = c.ErrorOccurred.Year()
	}
	return c
}

// dateOnly trims a timestamp such as 2024-01-05T10:11:12Z to its date.
func dateOnly(s string) string {
	if len(s) > len(DateLayout) && s[len(DateLayout)] == 'T' {
		return s[:len(DateLayout)]
	}
	return s
}

// syntheticActions are the placeholder descriptions of generated corrections.
var syntheticActions = []string{
	"Corrected typographical error",
	"Updated cross-reference",
	"Revised regulatory text for clarity",
	"Removed outdated requirement",
	"Added clarifying language",
	"Updated statutory reference",
	"Fixed formatting error",
	"Corrected mathematical formula",
	"Added missing footnote",
	"Removed duplicative text",
}

// SyntheticCorrections generates 5 to 20 placeholder corrections against
// random sections of the title, dated within the 20 years before now. They
// stand in for a missing corrections feed and are flagged Synthetic. A title
// without sections gets none.
func SyntheticCorrections(title model.Title, sections []model.Section, rnd Random, now time.Time, newID IDFunc) []model.HistoricalChange {
	if len(sections) == 0 {
		return nil
	}
	n := 5 + rnd.Intn(16)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]model.HistoricalChange, 0, n)
	for i := 0; i < n; i++ {
		sec := sections[rnd.Intn(len(sections))]
		year := now.Year() - 20 + rnd.Intn(20)
		occurred := time.Date(year, time.Month(1+rnd.Intn(12)), 1+rnd.Intn(28), 0, 0, 0, 0, time.UTC)
		out = append(out, model.HistoricalChange{
			ID:               newID(),
			SectionID:        sec.ID,
			CorrectiveAction: syntheticActions[rnd.Intn(len(syntheticActions))],
			ErrorOccurred:    occurred,
			ErrorCorrected:   correctionLag(occurred, rnd),
			LastModified:     today,
			Year:             year,
			FRCitation:       fmt.Sprintf("%d FR %d", 70+rnd.Intn(20), 10000+rnd.Intn(90000)),
			Position:         i + 1,
			DisplayInToc:     rnd.Intn(2) == 1,
			Synthetic:        true,
			CFRReferences: []model.CFRReference{{
				Reference: title.Number + " CFR " + sec.Number,
				Hierarchy: model.Hierarchy{Title: title.Number, Section: sec.Number},
			}},
		})
	}
	return out
}
