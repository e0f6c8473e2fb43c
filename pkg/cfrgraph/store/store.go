package store

import (
	"context"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
)

// Store persists the entity graph and serves the downstream query surface.
// List operations return entities in the order they were first upserted
// unless the method name says otherwise.
type Store interface {
	Close() error

	// Reset drops every entity; ingestion is a full-corpus rebuild.
	Reset(ctx context.Context) error

	// Agencies
	UpsertAgency(ctx context.Context, a model.Agency) error
	GetAgency(ctx context.Context, id string) (model.Agency, bool, error)
	ListAgencies(ctx context.Context) ([]model.Agency, error)
	// SearchAgencies matches name, short name or display name, case-insensitive.
	SearchAgencies(ctx context.Context, query string) ([]model.Agency, error)
	// AgenciesByTitleCount orders agencies by attributed titles, descending.
	AgenciesByTitleCount(ctx context.Context) ([]AgencyTitleCount, error)

	// Titles
	UpsertTitle(ctx context.Context, t model.Title) error
	GetTitle(ctx context.Context, id string) (model.Title, bool, error)
	GetTitleByNumber(ctx context.Context, number string) (model.Title, bool, error)
	ListTitles(ctx context.Context) ([]model.Title, error)
	SearchTitles(ctx context.Context, query string) ([]model.Title, error)
	TitlesByAgency(ctx context.Context, agencyID string) ([]model.Title, error)
	// TitlesByWordCount orders titles by word count, descending.
	TitlesByWordCount(ctx context.Context) ([]model.Title, error)

	// Sections
	UpsertSection(ctx context.Context, s model.Section) error
	GetSection(ctx context.Context, id string) (model.Section, bool, error)
	SectionsByTitle(ctx context.Context, titleID string) ([]model.Section, error)
	ListSections(ctx context.Context) ([]model.Section, error)

	// Changes
	AddChange(ctx context.Context, c model.HistoricalChange) error
	ChangesBySection(ctx context.Context, sectionID string) ([]model.HistoricalChange, error)
	ChangesByTitle(ctx context.Context, titleID string) ([]model.HistoricalChange, error)
	ChangesByAgency(ctx context.Context, agencyID string) ([]model.HistoricalChange, error)
	ListChanges(ctx context.Context) ([]model.HistoricalChange, error)
}

// AgencyTitleCount pairs an agency with the number of titles attributed to it.
type AgencyTitleCount struct {
	Agency     model.Agency
	TitleCount int
}
