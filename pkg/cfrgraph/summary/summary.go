// Package summary renders the markdown digest of the analytics rollups.
package summary

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/analytics"
)

// TopN is how many agencies each ranking lists.
const TopN = 5

// Data is the template input.
type Data struct {
	AsOf      time.Time
	ByWords   []analytics.WordCount
	ByChanges []analytics.ChangeFrequency
}

// Build selects the top agencies by word count and by change frequency.
func Build(a *analytics.Analyzer, asOf time.Time) Data {
	return Data{
		AsOf:      asOf,
		ByWords:   analytics.Top(a.WordCountsByAgency(), TopN),
		ByChanges: analytics.Top(a.ChangeFrequencyByAgency(), TopN),
	}
}

var funcs = template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
	"pct":   func(f float64) string { return fmt.Sprintf("%.1f", f) },
	"date":  func(t time.Time) string { return t.Format("2006-01-02") },
}

var tmpl = template.Must(template.New("summary").Funcs(funcs).Parse(strings.TrimLeft(`
# eCFR Analytics Summary (aggregated {{date .AsOf}})

## Largest Federal Regulations by Word Count

The {{len .ByWords}} largest agencies by regulation word count are:

{{range $i, $r := .ByWords}}{{inc $i}}. **{{$r.EntityName}}**: {{comma $r.WordCount}} words ({{pct $r.Percentage}}% of total regulations)
{{end}}
## Most Frequently Updated Regulations

The {{len .ByChanges}} agencies with the most frequent historical changes are:

{{range $i, $r := .ByChanges}}{{inc $i}}. **{{$r.EntityName}}**: {{comma $r.TotalChanges}} total changes (avg. {{pct $r.ChangesPerYear}} changes per year)
{{end}}
## Key Insights

{{if .ByWords}}{{with index .ByWords 0}}- The **{{.EntityName}}** has the largest share of federal regulations at {{pct .Percentage}}% of total word count.
{{end}}{{end}}{{if .ByChanges}}{{with index .ByChanges 0}}- Regulations from the **{{.EntityName}}** change most frequently with an average of {{pct .ChangesPerYear}} updates per year.
{{end}}{{end}}`, "\n")))

// Render writes the markdown summary for d.
func Render(w io.Writer, d Data) error {
	if err := tmpl.Execute(w, d); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return nil
}
