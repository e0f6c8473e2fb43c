package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/internalerr"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/store"
)

// sqliteStore implements the Store interface using SQLite. Rows keep their
// rowid across upserts, so ORDER BY rowid is ingestion order.
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS agencies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	short_name TEXT NOT NULL,
	display_name TEXT NOT NULL,
	sortable_name TEXT NOT NULL,
	slug TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS agency_refs (
	agency_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	chapter TEXT NOT NULL,
	PRIMARY KEY(agency_id, position),
	FOREIGN KEY(agency_id) REFERENCES agencies(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS titles (
	id TEXT PRIMARY KEY,
	number TEXT NOT NULL,
	name TEXT NOT NULL,
	latest_amended_on TEXT,
	latest_issue_date TEXT,
	up_to_date_as_of TEXT,
	reserved INTEGER NOT NULL DEFAULT 0,
	processing_in_progress INTEGER NOT NULL DEFAULT 0,
	word_count INTEGER NOT NULL DEFAULT 0,
	word_count_kind TEXT NOT NULL DEFAULT '',
	total_changes INTEGER NOT NULL DEFAULT 0,
	agency_id TEXT
);

CREATE INDEX IF NOT EXISTS titles_agency ON titles(agency_id);

CREATE TABLE IF NOT EXISTS sections (
	id TEXT PRIMARY KEY,
	title_id TEXT NOT NULL,
	number TEXT NOT NULL,
	heading TEXT NOT NULL,
	type TEXT NOT NULL,
	label_level TEXT NOT NULL,
	label_description TEXT NOT NULL,
	identifier TEXT NOT NULL,
	reserved INTEGER NOT NULL DEFAULT 0,
	word_count INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY(title_id) REFERENCES titles(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS sections_title ON sections(title_id);

CREATE TABLE IF NOT EXISTS changes (
	id TEXT PRIMARY KEY,
	section_id TEXT NOT NULL,
	corrective_action TEXT NOT NULL,
	error_occurred TEXT,
	error_corrected TEXT,
	last_modified TEXT,
	year INTEGER NOT NULL DEFAULT 0,
	fr_citation TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	display_in_toc INTEGER NOT NULL DEFAULT 0,
	synthetic INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY(section_id) REFERENCES sections(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS changes_section ON changes(section_id);

CREATE TABLE IF NOT EXISTS change_refs (
	change_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	reference TEXT NOT NULL,
	h_title TEXT NOT NULL,
	h_subtitle TEXT NOT NULL,
	h_chapter TEXT NOT NULL,
	h_part TEXT NOT NULL,
	h_subpart TEXT NOT NULL,
	h_section TEXT NOT NULL,
	PRIMARY KEY(change_id, position),
	FOREIGN KEY(change_id) REFERENCES changes(id) ON DELETE CASCADE
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// Reset deletes every row, children first.
func (s *sqliteStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"change_refs", "changes", "sections", "titles", "agency_refs", "agencies"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// --- agencies ---

// UpsertAgency inserts or updates an agency and replaces its CFR references
func (s *sqliteStore) UpsertAgency(ctx context.Context, a model.Agency) error {
	if a.ID == "" {
		return fmt.Errorf("upsert agency: %w: empty id", internalerr.ErrInvalidInput)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO agencies (id, name, short_name, display_name, sortable_name, slug)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name=excluded.name,
	short_name=excluded.short_name,
	display_name=excluded.display_name,
	sortable_name=excluded.sortable_name,
	slug=excluded.slug
`
	if _, err := tx.ExecContext(ctx, stmt, a.ID, a.Name, a.ShortName, a.DisplayName, a.SortableName, a.Slug); err != nil {
		return fmt.Errorf("upsert agency %s: %w", a.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM agency_refs WHERE agency_id = ?`, a.ID); err != nil {
		return err
	}
	for i, ref := range a.CFRReferences {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO agency_refs (agency_id, position, title, chapter) VALUES (?, ?, ?, ?)`,
			a.ID, i, ref.Title, ref.Chapter); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const agencyColumns = `a.id, a.name, a.short_name, a.display_name, a.sortable_name, a.slug`

func (s *sqliteStore) GetAgency(ctx context.Context, id string) (model.Agency, bool, error) {
	out, err := s.queryAgencies(ctx, `SELECT `+agencyColumns+` FROM agencies a WHERE a.id = ?`, id)
	if err != nil || len(out) == 0 {
		return model.Agency{}, false, err
	}
	return out[0], true, nil
}

func (s *sqliteStore) ListAgencies(ctx context.Context) ([]model.Agency, error) {
	return s.queryAgencies(ctx, `SELECT `+agencyColumns+` FROM agencies a ORDER BY a.rowid`)
}

func (s *sqliteStore) SearchAgencies(ctx context.Context, query string) ([]model.Agency, error) {
	like := "%" + strings.ToLower(query) + "%"
	return s.queryAgencies(ctx, `
SELECT `+agencyColumns+` FROM agencies a
WHERE lower(a.name) LIKE ? OR lower(a.short_name) LIKE ? OR lower(a.display_name) LIKE ?
ORDER BY a.rowid`, like, like, like)
}

func (s *sqliteStore) AgenciesByTitleCount(ctx context.Context) ([]store.AgencyTitleCount, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT a.id, COUNT(t.id) AS n
FROM agencies a LEFT JOIN titles t ON t.agency_id = a.id
GROUP BY a.id
ORDER BY n DESC, a.rowid`)
	if err != nil {
		return nil, err
	}
	type row struct {
		id string
		n  int
	}
	var ranked []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.n); err != nil {
			rows.Close()
			return nil, err
		}
		ranked = append(ranked, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	all, err := s.ListAgencies(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Agency, len(all))
	for _, a := range all {
		byID[a.ID] = a
	}
	out := make([]store.AgencyTitleCount, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, store.AgencyTitleCount{Agency: byID[r.id], TitleCount: r.n})
	}
	return out, nil
}

func (s *sqliteStore) queryAgencies(ctx context.Context, query string, args ...any) ([]model.Agency, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []model.Agency
	for rows.Next() {
		var a model.Agency
		if err := rows.Scan(&a.ID, &a.Name, &a.ShortName, &a.DisplayName, &a.SortableName, &a.Slug); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs, err := s.agencyRefs(ctx)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].CFRReferences = refs[out[i].ID]
	}
	return out, nil
}

func (s *sqliteStore) agencyRefs(ctx context.Context) (map[string][]model.AgencyReference, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT agency_id, title, chapter FROM agency_refs ORDER BY agency_id, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	refs := make(map[string][]model.AgencyReference)
	for rows.Next() {
		var id string
		var ref model.AgencyReference
		if err := rows.Scan(&id, &ref.Title, &ref.Chapter); err != nil {
			return nil, err
		}
		refs[id] = append(refs[id], ref)
	}
	return refs, rows.Err()
}

// --- titles ---

// UpsertTitle inserts or updates a title
func (s *sqliteStore) UpsertTitle(ctx context.Context, t model.Title) error {
	if t.ID == "" {
		return fmt.Errorf("upsert title: %w: empty id", internalerr.ErrInvalidInput)
	}
	const stmt = `
INSERT INTO titles (id, number, name, latest_amended_on, latest_issue_date, up_to_date_as_of,
	reserved, processing_in_progress, word_count, word_count_kind, total_changes, agency_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	number=excluded.number,
	name=excluded.name,
	latest_amended_on=excluded.latest_amended_on,
	latest_issue_date=excluded.latest_issue_date,
	up_to_date_as_of=excluded.up_to_date_as_of,
	reserved=excluded.reserved,
	processing_in_progress=excluded.processing_in_progress,
	word_count=excluded.word_count,
	word_count_kind=excluded.word_count_kind,
	total_changes=excluded.total_changes,
	agency_id=excluded.agency_id
`
	_, err := s.db.ExecContext(ctx, stmt,
		t.ID, t.Number, t.Name,
		formatTime(t.LatestAmendedOn), formatTime(t.LatestIssueDate), formatTime(t.UpToDateAsOf),
		t.Reserved, t.ProcessingInProgress,
		t.WordCount, string(t.WordCountKind), t.TotalChanges, nullString(t.AgencyID),
	)
	if err != nil {
		return fmt.Errorf("upsert title %s: %w", t.ID, err)
	}
	return nil
}

const titleColumns = `t.id, t.number, t.name, t.latest_amended_on, t.latest_issue_date, t.up_to_date_as_of,
	t.reserved, t.processing_in_progress, t.word_count, t.word_count_kind, t.total_changes, t.agency_id`

func (s *sqliteStore) GetTitle(ctx context.Context, id string) (model.Title, bool, error) {
	return s.oneTitle(ctx, `SELECT `+titleColumns+` FROM titles t WHERE t.id = ?`, id)
}

func (s *sqliteStore) GetTitleByNumber(ctx context.Context, number string) (model.Title, bool, error) {
	return s.oneTitle(ctx, `SELECT `+titleColumns+` FROM titles t WHERE t.number = ? ORDER BY t.rowid LIMIT 1`, number)
}

func (s *sqliteStore) ListTitles(ctx context.Context) ([]model.Title, error) {
	return s.queryTitles(ctx, `SELECT `+titleColumns+` FROM titles t ORDER BY t.rowid`)
}

func (s *sqliteStore) SearchTitles(ctx context.Context, query string) ([]model.Title, error) {
	return s.queryTitles(ctx, `SELECT `+titleColumns+` FROM titles t WHERE lower(t.name) LIKE ? ORDER BY t.rowid`,
		"%"+strings.ToLower(query)+"%")
}

func (s *sqliteStore) TitlesByAgency(ctx context.Context, agencyID string) ([]model.Title, error) {
	return s.queryTitles(ctx, `SELECT `+titleColumns+` FROM titles t WHERE t.agency_id = ? ORDER BY t.rowid`, agencyID)
}

func (s *sqliteStore) TitlesByWordCount(ctx context.Context) ([]model.Title, error) {
	return s.queryTitles(ctx, `SELECT `+titleColumns+` FROM titles t ORDER BY t.word_count DESC, t.rowid`)
}

func (s *sqliteStore) oneTitle(ctx context.Context, query string, args ...any) (model.Title, bool, error) {
	out, err := s.queryTitles(ctx, query, args...)
	if err != nil || len(out) == 0 {
		return model.Title{}, false, err
	}
	return out[0], true, nil
}

func (s *sqliteStore) queryTitles(ctx context.Context, query string, args ...any) ([]model.Title, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Title
	for rows.Next() {
		var (
			t                     model.Title
			amended, issued, asOf sql.NullString
			kind                  string
			agencyID              sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Number, &t.Name, &amended, &issued, &asOf,
			&t.Reserved, &t.ProcessingInProgress, &t.WordCount, &kind, &t.TotalChanges, &agencyID); err != nil {
			return nil, err
		}
		t.LatestAmendedOn = parseTime(amended)
		t.LatestIssueDate = parseTime(issued)
		t.UpToDateAsOf = parseTime(asOf)
		t.WordCountKind = model.WordCountKind(kind)
		t.AgencyID = agencyID.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- sections ---

// UpsertSection inserts or updates a section. The owning title must exist.
func (s *sqliteStore) UpsertSection(ctx context.Context, sec model.Section) error {
	if sec.ID == "" {
		return fmt.Errorf("upsert section: %w: empty id", internalerr.ErrInvalidInput)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireRow(ctx, tx, `SELECT 1 FROM titles WHERE id = ?`, sec.TitleID); err != nil {
		return fmt.Errorf("upsert section %s: title %s: %w", sec.ID, sec.TitleID, err)
	}

	const stmt = `
INSERT INTO sections (id, title_id, number, heading, type, label_level, label_description, identifier, reserved, word_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title_id=excluded.title_id,
	number=excluded.number,
	heading=excluded.heading,
	type=excluded.type,
	label_level=excluded.label_level,
	label_description=excluded.label_description,
	identifier=excluded.identifier,
	reserved=excluded.reserved,
	word_count=excluded.word_count
`
	if _, err := tx.ExecContext(ctx, stmt, sec.ID, sec.TitleID, sec.Number, sec.Heading, sec.Type,
		sec.LabelLevel, sec.LabelDescription, sec.Identifier, sec.Reserved, sec.WordCount); err != nil {
		return fmt.Errorf("upsert section %s: %w", sec.ID, err)
	}
	return tx.Commit()
}

const sectionColumns = `s.id, s.title_id, s.number, s.heading, s.type, s.label_level, s.label_description,
	s.identifier, s.reserved, s.word_count`

func (s *sqliteStore) GetSection(ctx context.Context, id string) (model.Section, bool, error) {
	out, err := s.querySections(ctx, `SELECT `+sectionColumns+` FROM sections s WHERE s.id = ?`, id)
	if err != nil || len(out) == 0 {
		return model.Section{}, false, err
	}
	return out[0], true, nil
}

func (s *sqliteStore) SectionsByTitle(ctx context.Context, titleID string) ([]model.Section, error) {
	return s.querySections(ctx, `SELECT `+sectionColumns+` FROM sections s WHERE s.title_id = ? ORDER BY s.rowid`, titleID)
}

func (s *sqliteStore) ListSections(ctx context.Context) ([]model.Section, error) {
	return s.querySections(ctx, `SELECT `+sectionColumns+` FROM sections s ORDER BY s.rowid`)
}

func (s *sqliteStore) querySections(ctx context.Context, query string, args ...any) ([]model.Section, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Section
	for rows.Next() {
		var sec model.Section
		if err := rows.Scan(&sec.ID, &sec.TitleID, &sec.Number, &sec.Heading, &sec.Type, &sec.LabelLevel,
			&sec.LabelDescription, &sec.Identifier, &sec.Reserved, &sec.WordCount); err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

// --- changes ---

// AddChange inserts a change and its CFR references. The owning section must exist.
func (s *sqliteStore) AddChange(ctx context.Context, c model.HistoricalChange) error {
	if c.ID == "" {
		return fmt.Errorf("add change: %w: empty id", internalerr.ErrInvalidInput)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireRow(ctx, tx, `SELECT 1 FROM sections WHERE id = ?`, c.SectionID); err != nil {
		return fmt.Errorf("add change %s: section %s: %w", c.ID, c.SectionID, err)
	}

	const stmt = `
INSERT INTO changes (id, section_id, corrective_action, error_occurred, error_corrected, last_modified,
	year, fr_citation, position, display_in_toc, synthetic)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	if _, err := tx.ExecContext(ctx, stmt, c.ID, c.SectionID, c.CorrectiveAction,
		formatTime(c.ErrorOccurred), formatTime(c.ErrorCorrected), formatTime(c.LastModified),
		c.Year, c.FRCitation, c.Position, c.DisplayInToc, c.Synthetic); err != nil {
		return fmt.Errorf("add change %s: %w", c.ID, err)
	}
	for i, ref := range c.CFRReferences {
		h := ref.Hierarchy
		if _, err := tx.ExecContext(ctx, `
INSERT INTO change_refs (change_id, position, reference, h_title, h_subtitle, h_chapter, h_part, h_subpart, h_section)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, i, ref.Reference, h.Title, h.Subtitle, h.Chapter, h.Part, h.Subpart, h.Section); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) ChangesBySection(ctx context.Context, sectionID string) ([]model.HistoricalChange, error) {
	return s.queryChanges(ctx, `WHERE c.section_id = ?`, sectionID)
}

func (s *sqliteStore) ChangesByTitle(ctx context.Context, titleID string) ([]model.HistoricalChange, error) {
	return s.queryChanges(ctx, `WHERE s.title_id = ?`, titleID)
}

func (s *sqliteStore) ChangesByAgency(ctx context.Context, agencyID string) ([]model.HistoricalChange, error) {
	return s.queryChanges(ctx, `WHERE t.agency_id = ?`, agencyID)
}

func (s *sqliteStore) ListChanges(ctx context.Context) ([]model.HistoricalChange, error) {
	return s.queryChanges(ctx, ``)
}

// changeFrom joins changes up to their title so every filter shares one FROM.
const changeFrom = `
FROM changes c
JOIN sections s ON s.id = c.section_id
JOIN titles t ON t.id = s.title_id
`

func (s *sqliteStore) queryChanges(ctx context.Context, where string, args ...any) ([]model.HistoricalChange, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.section_id, c.corrective_action, c.error_occurred, c.error_corrected, c.last_modified,
	c.year, c.fr_citation, c.position, c.display_in_toc, c.synthetic`+changeFrom+where+`
ORDER BY c.rowid`, args...)
	if err != nil {
		return nil, err
	}
	var (
		out   []model.HistoricalChange
		index = make(map[string]int)
	)
	for rows.Next() {
		var (
			c                           model.HistoricalChange
			occurred, corrected, modded sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.SectionID, &c.CorrectiveAction, &occurred, &corrected, &modded,
			&c.Year, &c.FRCitation, &c.Position, &c.DisplayInToc, &c.Synthetic); err != nil {
			rows.Close()
			return nil, err
		}
		c.ErrorOccurred = parseTime(occurred)
		c.ErrorCorrected = parseTime(corrected)
		c.LastModified = parseTime(modded)
		index[c.ID] = len(out)
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refRows, err := s.db.QueryContext(ctx, `
SELECT r.change_id, r.reference, r.h_title, r.h_subtitle, r.h_chapter, r.h_part, r.h_subpart, r.h_section
FROM change_refs r
JOIN changes c ON c.id = r.change_id
JOIN sections s ON s.id = c.section_id
JOIN titles t ON t.id = s.title_id
`+where+`
ORDER BY r.change_id, r.position`, args...)
	if err != nil {
		return nil, err
	}
	defer refRows.Close()
	for refRows.Next() {
		var (
			id  string
			ref model.CFRReference
			h   = &ref.Hierarchy
		)
		if err := refRows.Scan(&id, &ref.Reference, &h.Title, &h.Subtitle, &h.Chapter, &h.Part, &h.Subpart, &h.Section); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			out[i].CFRReferences = append(out[i].CFRReferences, ref)
		}
	}
	return out, refRows.Err()
}

// --- helpers ---

func requireRow(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	var one int
	err := tx.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return internalerr.ErrNotFound
	}
	return err
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(v sql.NullString) time.Time {
	if !v.Valid || v.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
