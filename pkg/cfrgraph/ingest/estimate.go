package ingest

import (
	"math"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
)

const (
	defaultWordCount      = 50000
	minEstimatedWordCount = 1000
	estimateSpread        = 0.2
)

// Estimator assigns word counts to titles that were not processed in detail.
type Estimator struct {
	// Default is the base when no title was measured, and the floor of the
	// fallback range used when a title's document cannot be fetched.
	Default int
	// Min floors every variation-based estimate.
	Min     int
}

func (e Estimator) defaults() Estimator {
	if e.Default <= 0 {
		e.Default = defaultWordCount
	}
	if e.Min <= 0 {
		e.Min = minEstimatedWordCount
	}
	return e
}

// Unfetched is the count given to a processed title whose document could not
// be fetched: Default plus a uniform draw below Default.
func (e Estimator) Unfetched(rnd Random) int {
	e = e.defaults()
	return e.Default + rnd.Intn(e.Default)
}

// Estimate fills in every title without a measured or estimated count. The
// base is the mean measured count over titles of the same agency, else over
// all measured titles, else Default. It returns only the titles it changed,
// in input order.
func (e Estimator) Estimate(titles []model.Title, rnd Random) []model.Title {
	e = e.defaults()

	var globalSum, globalN int
	agencySum := make(map[string]int)
	agencyN := make(map[string]int)
	for _, t := range titles {
		if t.WordCountKind != model.WordCountMeasured {
			continue
		}
		globalSum += t.WordCount
		globalN++
		if t.AgencyID != "" {
			agencySum[t.AgencyID] += t.WordCount
			agencyN[t.AgencyID]++
		}
	}

	var out []model.Title
	for _, t := range titles {
		if t.HasWordCount() {
			continue
		}
		base := float64(e.Default)
		switch {
		case agencyN[t.AgencyID] > 0:
			base = float64(agencySum[t.AgencyID]) / float64(agencyN[t.AgencyID])
		case globalN > 0:
			base = float64(globalSum) / float64(globalN)
		}
		t.WordCount = e.vary(base, rnd)
		t.WordCountKind = model.WordCountEstimated
		out = append(out, t)
	}
	return out
}

func (e Estimator) vary(base float64, rnd Random) int {
	factor := 1 + rnd.NormFloat64()*estimateSpread
	factor = math.Max(0.5, math.Min(1.5, factor))
	n := int(base * factor)
	if n < e.Min {
		n = e.Min
	}
	return n
}
