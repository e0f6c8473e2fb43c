package ingest

import (
	"context"
	"fmt"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/ecfr"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/store"
)

// FlattenAgencies walks the nested directory in pre-order and returns every
// agency as an independent record. The parent/child edge is not kept. When
// two payload nodes yield the same id the later one's fields win but the
// first one's position is kept, matching upsert semantics.
func FlattenAgencies(payloads []ecfr.AgencyPayload) []model.Agency {
	var out []model.Agency
	index := make(map[string]int)

	var walk func(p ecfr.AgencyPayload)
	walk = func(p ecfr.AgencyPayload) {
		a := agencyFromPayload(p)
		if i, ok := index[a.ID]; ok {
			out[i] = a
		} else {
			index[a.ID] = len(out)
			out = append(out, a)
		}
		for _, child := range p.Children {
			walk(child)
		}
	}
	for _, p := range payloads {
		walk(p)
	}
	return out
}

func agencyFromPayload(p ecfr.AgencyPayload) model.Agency {
	slug := ""
	if p.SlugPresent() {
		slug = p.Slug()
	}
	a := model.Agency{
		ID:           model.AgencyID(slug, p.Name()),
		Name:         p.Name(),
		ShortName:    p.ShortName(),
		DisplayName:  p.DisplayName(),
		SortableName: p.SortableName(),
		Slug:         p.Slug(),
	}
	for _, ref := range p.CFRReferences {
		a.CFRReferences = append(a.CFRReferences, model.AgencyReference{
			Title:   ref.Title(),
			Chapter: ref.Chapter(),
		})
	}
	return a
}

// IngestAgencies flattens the directory and upserts every agency. It
// returns the agency set in ingestion order.
func IngestAgencies(ctx context.Context, st store.Store, payloads []ecfr.AgencyPayload) ([]model.Agency, error) {
	var agencies []model.Agency
	for _, a := range FlattenAgencies(payloads) {
		// a name made only of punctuation slugifies to nothing
		if a.ID == "" {
			continue
		}
		if err := st.UpsertAgency(ctx, a); err != nil {
			return nil, fmt.Errorf("ingest agencies: %w", err)
		}
		agencies = append(agencies, a)
	}
	return agencies, nil
}
