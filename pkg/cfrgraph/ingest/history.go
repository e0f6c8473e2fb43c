package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
)

var (
	frCitation = regexp.MustCompile(`(\d+)\s+FR\s+(\d+)`)
	isoDate    = regexp.MustCompile(`(19|20)\d{2}-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])`)
	bareYear   = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// fragmentTrim is stripped from both ends of each history fragment.
const fragmentTrim = " \t\r\n;,"

// HistoryEntry is one change lexically encoded in a HISTORY string.
type HistoryEntry struct {
	Text     string
	Citation string
	// Occurred is zero when no date could be read.
	Occurred time.Time
	Year     int
	Position int
}

// SplitHistory segments free-text amendment history into entries. When the
// text holds FR citations, each entry runs from one citation to the next
// and any leading text joins the first entry. Otherwise the text is split
// on semicolons. Positions are 1-based over the non-empty fragments.
func SplitHistory(text string) []HistoryEntry {
	var fragments []string
	if matches := frCitation.FindAllStringIndex(text, -1); len(matches) > 0 {
		for i, m := range matches {
			start, end := m[0], len(text)
			if i == 0 {
				start = 0
			}
			if i+1 < len(matches) {
				end = matches[i+1][0]
			}
			fragments = append(fragments, text[start:end])
		}
	} else {
		fragments = strings.Split(text, ";")
	}

	var out []HistoryEntry
	for _, f := range fragments {
		f = strings.Trim(f, fragmentTrim)
		if f == "" {
			continue
		}
		e := HistoryEntry{
			Text:     f,
			Citation: normalizeCitation(frCitation.FindStringSubmatch(f)),
			Position: len(out) + 1,
		}
		e.Occurred, e.Year = extractDate(f)
		out = append(out, e)
	}
	return out
}

func normalizeCitation(m []string) string {
	if m == nil {
		return ""
	}
	return m[1] + " FR " + m[2]
}

// extractDate tries an ISO date first, then a bare year (January 1). A
// calendar-invalid ISO match such as 2021-02-30 falls through to its year.
func extractDate(s string) (time.Time, int) {
	if m := isoDate.FindString(s); m != "" {
		if t, err := time.Parse(DateLayout, m); err == nil {
			return t, t.Year()
		}
	}
	if m := bareYear.FindString(s); m != "" {
		year, _ := strconv.Atoi(m)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), year
	}
	return time.Time{}, 0
}

// correctionLag returns the synthesized delay between an error and its
// correction: one to six months.
func correctionLag(occurred time.Time, rnd Random) time.Time {
	return occurred.AddDate(0, 1+rnd.Intn(6), 0)
}

// HistoryChanges turns a section's HISTORY text into change records. Dated
// entries get a synthesized correction date drawn from rnd.
func HistoryChanges(sectionID, text string, rnd Random, newID IDFunc) []model.HistoricalChange {
	entries := SplitHistory(text)
	out := make([]model.HistoricalChange, 0, len(entries))
	for _, e := range entries {
		c := model.HistoricalChange{
			ID:               newID(),
			SectionID:        sectionID,
			CorrectiveAction: e.Text,
			FRCitation:       e.Citation,
			ErrorOccurred:    e.Occurred,
			Year:             e.Year,
			Position:         e.Position,
		}
		if !c.ErrorOccurred.IsZero() {
			c.ErrorCorrected = correctionLag(c.ErrorOccurred, rnd)
		}
		out = append(out, c)
	}
	return out
}
