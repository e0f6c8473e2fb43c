package ingest

import (
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/ecfr"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
)

// ReconcileResult summarizes one structure-tree walk.
type ReconcileResult struct {
	// Sections holds every created or updated section in walk order, ready
	// to upsert.
	Sections []model.Section
	Created  int
	Updated  int
	// Nested counts section nodes found below another section node.
	Nested   int
}

// walkContext travels down the recursion by value. It changes only when a
// section node is entered.
type walkContext struct {
	enclosing string
}

// ReconcileStructure walks the structure tree depth-first and merges its
// section nodes into existing, keyed by deterministic section id. Existing
// sections get their structural metadata updated; unknown ones are created.
// existing is not modified.
func ReconcileStructure(titleID string, root ecfr.StructureNode, existing []model.Section) ReconcileResult {
	known := make(map[string]model.Section, len(existing))
	for _, s := range existing {
		known[s.ID] = s
	}
	r := &reconciler{titleID: titleID, known: known, pos: make(map[string]int)}
	r.walk(root, walkContext{})
	return r.result
}

type reconciler struct {
	titleID string
	known   map[string]model.Section
	pos     map[string]int
	result  ReconcileResult
}

func (r *reconciler) walk(node ecfr.StructureNode, ctx walkContext) {
	if node.Type == "section" {
		if ctx.enclosing != "" {
			r.result.Nested++
		}
		ctx = walkContext{enclosing: r.visitSection(node)}
	}
	for _, child := range node.Children {
		r.walk(child, ctx)
	}
}

func (r *reconciler) visitSection(node ecfr.StructureNode) string {
	identifier := string(node.Identifier)
	id := model.SectionID(r.titleID, identifier)

	sec, ok := r.known[id]
	if ok {
		r.result.Updated++
	} else {
		sec = model.Section{
			ID:      id,
			TitleID: r.titleID,
			Number:  model.StripSectionMark(node.Label),
			Heading: node.LabelDescription,
		}
		r.result.Created++
	}
	sec.Type = node.Type
	sec.LabelLevel = node.LabelLevel
	sec.LabelDescription = node.LabelDescription
	sec.Identifier = identifier
	sec.Reserved = node.Reserved
	r.known[id] = sec

	// a repeated node replaces its earlier entry instead of adding another
	if i, seen := r.pos[id]; seen {
		r.result.Sections[i] = sec
	} else {
		r.pos[id] = len(r.result.Sections)
		r.result.Sections = append(r.result.Sections, sec)
	}
	return id
}
