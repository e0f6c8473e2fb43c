package ingest

import (
	"log/slog"
	"time"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/ecfr"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
)

// DateLayout is the strict YYYY-MM-DD layout of every upstream date.
const DateLayout = "2006-01-02"

// BuildTitle converts a title payload. Unparseable dates become zero and
// are logged.
func BuildTitle(p ecfr.TitlePayload, logger *slog.Logger) model.Title {
	number := p.Number()
	return model.Title{
		ID:                   model.TitleID(number),
		Number:               number,
		Name:                 p.Name(),
		LatestAmendedOn:      parseDate(p.LatestAmendedOn(), "latest_amended_on", number, logger),
		LatestIssueDate:      parseDate(p.LatestIssueDate(), "latest_issue_date", number, logger),
		UpToDateAsOf:         parseDate(p.UpToDateAsOf(), "up_to_date_as_of", number, logger),
		Reserved:             p.Reserved(),
		ProcessingInProgress: p.ProcessingInProgress(),
	}
}

func parseDate(raw, field, title string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		if logger != nil {
			logger.Warn("unparseable date", "title", title, "field", field, "value", raw)
		}
		return time.Time{}
	}
	return t
}

// requestDate is the revision date used for per-title document requests:
// the title's up-to-date-as-of date when known, otherwise the run date.
func requestDate(t model.Title, now time.Time) string {
	if !t.UpToDateAsOf.IsZero() {
		return t.UpToDateAsOf.Format(DateLayout)
	}
	return now.Format(DateLayout)
}
