package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/store"
)

// EntityType labels the granularity of a rollup row.
type EntityType string

const (
	EntityAgency  EntityType = "AGENCY"
	EntityTitle   EntityType = "TITLE"
	EntitySection EntityType = "SECTION"
)

// Graph is the full entity graph the rollups reduce.
type Graph struct {
	Agencies []model.Agency
	Titles   []model.Title
	Sections []model.Section
	Changes  []model.HistoricalChange
}

// LoadGraph reads every entity from st in storage order.
func LoadGraph(ctx context.Context, st store.Store) (Graph, error) {
	var (
		g   Graph
		err error
	)
	if g.Agencies, err = st.ListAgencies(ctx); err != nil {
		return Graph{}, fmt.Errorf("load agencies: %w", err)
	}
	if g.Titles, err = st.ListTitles(ctx); err != nil {
		return Graph{}, fmt.Errorf("load titles: %w", err)
	}
	if g.Sections, err = st.ListSections(ctx); err != nil {
		return Graph{}, fmt.Errorf("load sections: %w", err)
	}
	if g.Changes, err = st.ListChanges(ctx); err != nil {
		return Graph{}, fmt.Errorf("load changes: %w", err)
	}
	return g, nil
}

// WordCount is one row of a word-count rollup.
type WordCount struct {
	EntityID   string
	EntityName string
	EntityType EntityType
	WordCount  int
	// Percentage is the share of the sum at the same granularity, 0..100.
	Percentage float64
}

// ChangeFrequency is one row of a change-frequency rollup.
type ChangeFrequency struct {
	EntityID       string
	EntityName     string
	EntityType     EntityType
	TotalChanges   int
	// ByYear counts dated changes per calendar year of ErrorOccurred.
	ByYear         map[int]int
	ChangesPerYear float64
}

// Analyzer indexes a Graph once and answers every rollup from it. It never
// mutates the graph.
type Analyzer struct {
	g              Graph
	titleAgency    map[string]string
	sectionTitle   map[string]string
	titlesByAgency map[string][]model.Title
}

// NewAnalyzer builds the lookup indexes for g.
func NewAnalyzer(g Graph) *Analyzer {
	a := &Analyzer{
		g:              g,
		titleAgency:    make(map[string]string, len(g.Titles)),
		sectionTitle:   make(map[string]string, len(g.Sections)),
		titlesByAgency: make(map[string][]model.Title),
	}
	for _, t := range g.Titles {
		a.titleAgency[t.ID] = t.AgencyID
		if t.AgencyID != "" {
			a.titlesByAgency[t.AgencyID] = append(a.titlesByAgency[t.AgencyID], t)
		}
	}
	for _, s := range g.Sections {
		a.sectionTitle[s.ID] = s.TitleID
	}
	return a
}

// TitleName is the display name of a title row: "Title N: name".
func TitleName(t model.Title) string {
	return "Title " + t.Number + ": " + t.Name
}

// SectionName is the display name of a section row: "number: heading".
func SectionName(s model.Section) string {
	return s.Number + ": " + s.Heading
}

// WordCountsByAgency sums each agency's title word counts.
func (a *Analyzer) WordCountsByAgency() []WordCount {
	rows := make([]WordCount, 0, len(a.g.Agencies))
	for _, ag := range a.g.Agencies {
		sum := 0
		for _, t := range a.titlesByAgency[ag.ID] {
			sum += t.WordCount
		}
		rows = append(rows, WordCount{EntityID: ag.ID, EntityName: ag.Name, EntityType: EntityAgency, WordCount: sum})
	}
	return rankWordCounts(rows)
}

// WordCountsByTitle reports every title's word count.
func (a *Analyzer) WordCountsByTitle() []WordCount {
	rows := make([]WordCount, 0, len(a.g.Titles))
	for _, t := range a.g.Titles {
		rows = append(rows, WordCount{EntityID: t.ID, EntityName: TitleName(t), EntityType: EntityTitle, WordCount: t.WordCount})
	}
	return rankWordCounts(rows)
}

// WordCountsBySection reports the sections of one title.
func (a *Analyzer) WordCountsBySection(titleID string) []WordCount {
	var rows []WordCount
	for _, s := range a.g.Sections {
		if s.TitleID != titleID {
			continue
		}
		rows = append(rows, WordCount{EntityID: s.ID, EntityName: SectionName(s), EntityType: EntitySection, WordCount: s.WordCount})
	}
	return rankWordCounts(rows)
}

// rankWordCounts fills percentages against the row sum and orders rows by
// count descending; equal counts keep input order.
func rankWordCounts(rows []WordCount) []WordCount {
	total := 0
	for _, r := range rows {
		total += r.WordCount
	}
	for i := range rows {
		if total > 0 {
			rows[i].Percentage = 100 * float64(rows[i].WordCount) / float64(total)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].WordCount > rows[j].WordCount })
	return rows
}

// ChangeFrequencyByAgency attributes each change to its section's title's agency.
func (a *Analyzer) ChangeFrequencyByAgency() []ChangeFrequency {
	byAgency := make(map[string][]model.HistoricalChange)
	for _, c := range a.g.Changes {
		if agency := a.titleAgency[a.sectionTitle[c.SectionID]]; agency != "" {
			byAgency[agency] = append(byAgency[agency], c)
		}
	}
	rows := make([]ChangeFrequency, 0, len(a.g.Agencies))
	for _, ag := range a.g.Agencies {
		rows = append(rows, frequency(ag.ID, ag.Name, EntityAgency, byAgency[ag.ID]))
	}
	return rankFrequencies(rows)
}

// ChangeFrequencyByTitle groups changes by their section's title.
func (a *Analyzer) ChangeFrequencyByTitle() []ChangeFrequency {
	byTitle := make(map[string][]model.HistoricalChange)
	for _, c := range a.g.Changes {
		if title := a.sectionTitle[c.SectionID]; title != "" {
			byTitle[title] = append(byTitle[title], c)
		}
	}
	rows := make([]ChangeFrequency, 0, len(a.g.Titles))
	for _, t := range a.g.Titles {
		rows = append(rows, frequency(t.ID, TitleName(t), EntityTitle, byTitle[t.ID]))
	}
	return rankFrequencies(rows)
}

// ChangeFrequencyBySection reports the sections of one title.
func (a *Analyzer) ChangeFrequencyBySection(titleID string) []ChangeFrequency {
	bySection := make(map[string][]model.HistoricalChange)
	for _, c := range a.g.Changes {
		bySection[c.SectionID] = append(bySection[c.SectionID], c)
	}
	var rows []ChangeFrequency
	for _, s := range a.g.Sections {
		if s.TitleID != titleID {
			continue
		}
		rows = append(rows, frequency(s.ID, SectionName(s), EntitySection, bySection[s.ID]))
	}
	return rankFrequencies(rows)
}

func frequency(id, name string, typ EntityType, changes []model.HistoricalChange) ChangeFrequency {
	byYear := ChangesByYear(changes)
	f := ChangeFrequency{
		EntityID:     id,
		EntityName:   name,
		EntityType:   typ,
		TotalChanges: len(changes),
		ByYear:       byYear,
	}
	if len(byYear) > 0 {
		f.ChangesPerYear = float64(len(changes)) / float64(len(byYear))
	}
	return f
}

// ChangesByYear counts changes per calendar year of ErrorOccurred. Undated
// changes are not counted.
func ChangesByYear(changes []model.HistoricalChange) map[int]int {
	out := make(map[int]int)
	for _, c := range changes {
		if !c.ErrorOccurred.IsZero() {
			out[c.ErrorOccurred.Year()]++
		}
	}
	return out
}

// Years returns the keys of a ByYear map in ascending order.
func Years(byYear map[int]int) []int {
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func rankFrequencies(rows []ChangeFrequency) []ChangeFrequency {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TotalChanges > rows[j].TotalChanges })
	return rows
}

// Top returns at most n leading rows. n <= 0 returns all rows.
func Top[T any](rows []T, n int) []T {
	if n <= 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}
