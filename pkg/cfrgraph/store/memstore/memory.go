package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/internalerr"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/store"
)

// Store is an in-memory implementation of store.Store. It backs tests and
// one-shot CLI runs that do not need a database file.
type Store struct {
	mu sync.RWMutex

	agencies    map[string]model.Agency
	agencyOrder []string
	titles      map[string]model.Title
	titleOrder  []string
	sections    map[string]model.Section
	sectionSeq  []string
	changes     []model.HistoricalChange
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.agencies = make(map[string]model.Agency)
	s.agencyOrder = nil
	s.titles = make(map[string]model.Title)
	s.titleOrder = nil
	s.sections = make(map[string]model.Section)
	s.sectionSeq = nil
	s.changes = nil
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Reset implements store.Store.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

// UpsertAgency inserts or replaces an agency keyed by id.
func (s *Store) UpsertAgency(ctx context.Context, a model.Agency) error {
	if a.ID == "" {
		return fmt.Errorf("upsert agency: %w: empty id", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agencies[a.ID]; !ok {
		s.agencyOrder = append(s.agencyOrder, a.ID)
	}
	s.agencies[a.ID] = copyAgency(a)
	return nil
}

func (s *Store) GetAgency(ctx context.Context, id string) (model.Agency, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agencies[id]
	if !ok {
		return model.Agency{}, false, nil
	}
	return copyAgency(a), true, nil
}

func (s *Store) ListAgencies(ctx context.Context) ([]model.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Agency, 0, len(s.agencyOrder))
	for _, id := range s.agencyOrder {
		out = append(out, copyAgency(s.agencies[id]))
	}
	return out, nil
}

func (s *Store) SearchAgencies(ctx context.Context, query string) ([]model.Agency, error) {
	q := strings.ToLower(query)
	all, _ := s.ListAgencies(ctx)
	var out []model.Agency
	for _, a := range all {
		if containsFold(q, a.Name, a.ShortName, a.DisplayName) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) AgenciesByTitleCount(ctx context.Context) ([]store.AgencyTitleCount, error) {
	s.mu.RLock()
	counts := make(map[string]int)
	for _, t := range s.titles {
		if t.AgencyID != "" {
			counts[t.AgencyID]++
		}
	}
	out := make([]store.AgencyTitleCount, 0, len(s.agencyOrder))
	for _, id := range s.agencyOrder {
		out = append(out, store.AgencyTitleCount{Agency: copyAgency(s.agencies[id]), TitleCount: counts[id]})
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].TitleCount > out[j].TitleCount })
	return out, nil
}

// UpsertTitle inserts or replaces a title keyed by id.
func (s *Store) UpsertTitle(ctx context.Context, t model.Title) error {
	if t.ID == "" {
		return fmt.Errorf("upsert title: %w: empty id", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.titles[t.ID]; !ok {
		s.titleOrder = append(s.titleOrder, t.ID)
	}
	s.titles[t.ID] = t
	return nil
}

func (s *Store) GetTitle(ctx context.Context, id string) (model.Title, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.titles[id]
	return t, ok, nil
}

func (s *Store) GetTitleByNumber(ctx context.Context, number string) (model.Title, bool, error) {
	return s.GetTitle(ctx, model.TitleID(number))
}

func (s *Store) ListTitles(ctx context.Context) ([]model.Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Title, 0, len(s.titleOrder))
	for _, id := range s.titleOrder {
		out = append(out, s.titles[id])
	}
	return out, nil
}

func (s *Store) SearchTitles(ctx context.Context, query string) ([]model.Title, error) {
	q := strings.ToLower(query)
	all, _ := s.ListTitles(ctx)
	var out []model.Title
	for _, t := range all {
		if containsFold(q, t.Name) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) TitlesByAgency(ctx context.Context, agencyID string) ([]model.Title, error) {
	all, _ := s.ListTitles(ctx)
	var out []model.Title
	for _, t := range all {
		if t.AgencyID == agencyID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) TitlesByWordCount(ctx context.Context) ([]model.Title, error) {
	out, _ := s.ListTitles(ctx)
	sort.SliceStable(out, func(i, j int) bool { return out[i].WordCount > out[j].WordCount })
	return out, nil
}

// UpsertSection inserts or replaces a section. The owning title must exist.
func (s *Store) UpsertSection(ctx context.Context, sec model.Section) error {
	if sec.ID == "" {
		return fmt.Errorf("upsert section: %w: empty id", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.titles[sec.TitleID]; !ok {
		return fmt.Errorf("upsert section %s: title %s: %w", sec.ID, sec.TitleID, internalerr.ErrNotFound)
	}
	if _, ok := s.sections[sec.ID]; !ok {
		s.sectionSeq = append(s.sectionSeq, sec.ID)
	}
	s.sections[sec.ID] = sec
	return nil
}

func (s *Store) GetSection(ctx context.Context, id string) (model.Section, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.sections[id]
	return sec, ok, nil
}

func (s *Store) SectionsByTitle(ctx context.Context, titleID string) ([]model.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Section
	for _, id := range s.sectionSeq {
		if sec := s.sections[id]; sec.TitleID == titleID {
			out = append(out, sec)
		}
	}
	return out, nil
}

func (s *Store) ListSections(ctx context.Context) ([]model.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Section, 0, len(s.sectionSeq))
	for _, id := range s.sectionSeq {
		out = append(out, s.sections[id])
	}
	return out, nil
}

// AddChange appends a change. The owning section must exist.
func (s *Store) AddChange(ctx context.Context, c model.HistoricalChange) error {
	if c.ID == "" {
		return fmt.Errorf("add change: %w: empty id", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sections[c.SectionID]; !ok {
		return fmt.Errorf("add change %s: section %s: %w", c.ID, c.SectionID, internalerr.ErrNotFound)
	}
	s.changes = append(s.changes, copyChange(c))
	return nil
}

func (s *Store) ChangesBySection(ctx context.Context, sectionID string) ([]model.HistoricalChange, error) {
	return s.filterChanges(func(sec model.Section) bool { return sec.ID == sectionID }), nil
}

func (s *Store) ChangesByTitle(ctx context.Context, titleID string) ([]model.HistoricalChange, error) {
	return s.filterChanges(func(sec model.Section) bool { return sec.TitleID == titleID }), nil
}

func (s *Store) ChangesByAgency(ctx context.Context, agencyID string) ([]model.HistoricalChange, error) {
	s.mu.RLock()
	owned := make(map[string]bool)
	for id, t := range s.titles {
		if t.AgencyID == agencyID {
			owned[id] = true
		}
	}
	s.mu.RUnlock()
	return s.filterChanges(func(sec model.Section) bool { return owned[sec.TitleID] }), nil
}

func (s *Store) ListChanges(ctx context.Context) ([]model.HistoricalChange, error) {
	return s.filterChanges(func(model.Section) bool { return true }), nil
}

func (s *Store) filterChanges(keep func(model.Section) bool) []model.HistoricalChange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.HistoricalChange
	for _, c := range s.changes {
		if keep(s.sections[c.SectionID]) {
			out = append(out, copyChange(c))
		}
	}
	return out
}

func containsFold(lowerQuery string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), lowerQuery) {
			return true
		}
	}
	return false
}

func copyAgency(a model.Agency) model.Agency {
	a.CFRReferences = append([]model.AgencyReference(nil), a.CFRReferences...)
	return a
}

func copyChange(c model.HistoricalChange) model.HistoricalChange {
	c.CFRReferences = append([]model.CFRReference(nil), c.CFRReferences...)
	return c
}
