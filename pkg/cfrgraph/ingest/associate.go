package ingest

import (
	"strconv"
	"strings"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
)

// MatchFunc attributes a title to one of the agencies, or reports no match.
// Implementations must be pure.
type MatchFunc func(t model.Title, agencies []model.Agency) (model.Agency, bool)

// Tier is one named step of the attribution policy.
type Tier struct {
	Name  string
	Match MatchFunc
}

// DefaultTiers is the attribution policy, most precise first.
var DefaultTiers = []Tier{
	{Name: "cfr-reference", Match: MatchCFRReference},
	{Name: "name-containment", Match: MatchNameContainment},
	{Name: "title-number-range", Match: MatchTitleNumberRange},
}

// FallbackTier names attributions to the placeholder agency.
const FallbackTier = "unknown"

// Associator runs tiers in order and stops at the first match.
type Associator struct {
	Tiers []Tier
}

// NewAssociator returns an Associator with DefaultTiers.
func NewAssociator() Associator {
	return Associator{Tiers: DefaultTiers}
}

// Associate returns the matched agency and the name of the tier that
// matched. ok is false when every tier failed; the caller then attributes
// the title to UnknownAgency.
func (a Associator) Associate(t model.Title, agencies []model.Agency) (agency model.Agency, tier string, ok bool) {
	for _, tr := range a.Tiers {
		if match, ok := tr.Match(t, agencies); ok {
			return match, tr.Name, true
		}
	}
	return model.Agency{}, "", false
}

// MatchCFRReference picks the first agency holding a CFR reference to the
// title's number.
func MatchCFRReference(t model.Title, agencies []model.Agency) (model.Agency, bool) {
	for _, a := range agencies {
		for _, ref := range a.CFRReferences {
			if ref.Title == t.Number {
				return a, true
			}
		}
	}
	return model.Agency{}, false
}

// MatchNameContainment scores agencies whose name, or else short name,
// appears in the title name. The longest contained string wins; ties go to
// the first agency.
func MatchNameContainment(t model.Title, agencies []model.Agency) (model.Agency, bool) {
	titleName := strings.ToLower(t.Name)
	var (
		best      model.Agency
		bestScore int
	)
	for _, a := range agencies {
		name := strings.ToLower(a.Name)
		if len(name) < 4 {
			continue
		}
		score := 0
		if strings.Contains(titleName, name) {
			score = len(name)
		} else if short := strings.ToLower(a.ShortName); len(short) > 3 && strings.Contains(titleName, short) {
			score = len(short)
		}
		if score > bestScore {
			best, bestScore = a, score
		}
	}
	return best, bestScore > 0
}

// MatchTitleNumberRange applies the numeric heuristic: titles 1-5 go to the
// first general or administrative agency, titles 6-12 to the first
// agricultural one.
func MatchTitleNumberRange(t model.Title, agencies []model.Agency) (model.Agency, bool) {
	n, err := strconv.Atoi(t.Number)
	if err != nil {
		return model.Agency{}, false
	}
	var want func(name string) bool
	switch {
	case n >= 1 && n <= 5:
		want = func(name string) bool {
			return strings.Contains(name, "General") || strings.Contains(name, "Administration")
		}
	case n >= 6 && n <= 12:
		want = func(name string) bool { return strings.Contains(name, "Agricult") }
	default:
		return model.Agency{}, false
	}
	for _, a := range agencies {
		if want(a.Name) {
			return a, true
		}
	}
	return model.Agency{}, false
}

// UnknownAgency is the placeholder attributed to a title no tier matched.
func UnknownAgency(titleNumber string) model.Agency {
	id := model.UnknownAgencyID(titleNumber)
	name := "Unknown Agency (Title " + titleNumber + ")"
	return model.Agency{
		ID:           id,
		Name:         name,
		ShortName:    "Unknown",
		DisplayName:  name,
		SortableName: name,
		Slug:         id,
	}
}
