package analytics

// Row is the flat wire shape shared by every report.
type Row struct {
	EntityID         string     `json:"entityId"`
	EntityName       string     `json:"entityName"`
	EntityType       EntityType `json:"entityType"`
	Metric           int        `json:"metric"`
	PercentageOrRate float64    `json:"percentageOrRate"`
}

// Row flattens a word-count row: metric is the count, the rate is the
// percentage of total.
func (w WordCount) Row() Row {
	return Row{EntityID: w.EntityID, EntityName: w.EntityName, EntityType: w.EntityType, Metric: w.WordCount, PercentageOrRate: w.Percentage}
}

// Row flattens a change-frequency row: metric is the total, the rate is
// changes per year.
func (c ChangeFrequency) Row() Row {
	return Row{EntityID: c.EntityID, EntityName: c.EntityName, EntityType: c.EntityType, Metric: c.TotalChanges, PercentageOrRate: c.ChangesPerYear}
}

// Rows flattens any rollup.
func Rows[T interface{ Row() Row }](in []T) []Row {
	out := make([]Row, len(in))
	for i, r := range in {
		out[i] = r.Row()
	}
	return out
}
