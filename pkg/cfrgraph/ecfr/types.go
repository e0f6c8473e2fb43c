// Package ecfr talks to the eCFR admin and versioner APIs. Every payload
// field is optional; callers read them through the accessor methods, which
// apply the default table below.
package ecfr

import (
	"bytes"
	"encoding/json"
)

// Defaults substituted for missing payload fields.
const (
	DefaultAgencyName         = "default agency name"
	DefaultAgencyShortName    = "default agency data"
	DefaultAgencyDisplayName  = "default agency display"
	DefaultAgencySortableName = "default sortable"
	DefaultAgencySlug         = "default slug"
)

// FlexString decodes either a JSON string or a JSON number. The API sends
// title numbers as integers in some payloads and strings in others.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func str(p *FlexString, def string) string {
	if p == nil {
		return def
	}
	return string(*p)
}

func boolean(p *bool) bool {
	return p != nil && *p
}

// AgenciesResponse is the body of /api/admin/v1/agencies.json.
type AgenciesResponse struct {
	Agencies []AgencyPayload `json:"agencies"`
}

// AgencyPayload is one node of the nested agency directory.
type AgencyPayload struct {
	RawName         *FlexString        `json:"name"`
	RawShortName    *FlexString        `json:"short_name"`
	RawDisplayName  *FlexString        `json:"display_name"`
	RawSortableName *FlexString        `json:"sortable_name"`
	RawSlug         *FlexString        `json:"slug"`
	Children        []AgencyPayload    `json:"children"`
	CFRReferences   []AgencyRefPayload `json:"cfr_references"`
}

func (a AgencyPayload) Name() string         { return str(a.RawName, DefaultAgencyName) }
func (a AgencyPayload) ShortName() string    { return str(a.RawShortName, DefaultAgencyShortName) }
func (a AgencyPayload) DisplayName() string  { return str(a.RawDisplayName, DefaultAgencyDisplayName) }
func (a AgencyPayload) SortableName() string { return str(a.RawSortableName, DefaultAgencySortableName) }
func (a AgencyPayload) Slug() string         { return str(a.RawSlug, DefaultAgencySlug) }

// SlugPresent reports whether the payload carried a usable slug.
func (a AgencyPayload) SlugPresent() bool {
	return a.RawSlug != nil && *a.RawSlug != ""
}

// AgencyRefPayload is a {title, chapter} reference on an agency.
type AgencyRefPayload struct {
	RawTitle   *FlexString `json:"title"`
	RawChapter *FlexString `json:"chapter"`
}

func (r AgencyRefPayload) Title() string   { return str(r.RawTitle, "") }
func (r AgencyRefPayload) Chapter() string { return str(r.RawChapter, "") }

// TitlesResponse is the body of /api/versioner/v1/titles.json.
type TitlesResponse struct {
	Titles []TitlePayload `json:"titles"`
}

// TitlePayload describes one CFR title.
type TitlePayload struct {
	RawNumber               *FlexString `json:"number"`
	RawName                 *FlexString `json:"name"`
	RawLatestAmendedOn      *FlexString `json:"latest_amended_on"`
	RawLatestIssueDate      *FlexString `json:"latest_issue_date"`
	RawUpToDateAsOf         *FlexString `json:"up_to_date_as_of"`
	RawReserved             *bool       `json:"reserved"`
	RawProcessingInProgress *bool       `json:"processing_in_progress"`
}

func (t TitlePayload) Number() string             { return str(t.RawNumber, "") }
func (t TitlePayload) Name() string               { return str(t.RawName, "") }
func (t TitlePayload) LatestAmendedOn() string    { return str(t.RawLatestAmendedOn, "") }
func (t TitlePayload) LatestIssueDate() string    { return str(t.RawLatestIssueDate, "") }
func (t TitlePayload) UpToDateAsOf() string       { return str(t.RawUpToDateAsOf, "") }
func (t TitlePayload) Reserved() bool             { return boolean(t.RawReserved) }
func (t TitlePayload) ProcessingInProgress() bool { return boolean(t.RawProcessingInProgress) }

// StructureNode is one node of /api/versioner/v1/structure/{date}/title-{n}.json.
type StructureNode struct {
	Type             string          `json:"type"`
	Label            string          `json:"label"`
	LabelLevel       string          `json:"label_level"`
	LabelDescription string          `json:"label_description"`
	Identifier       FlexString      `json:"identifier"`
	Reserved         bool            `json:"reserved"`
	Children         []StructureNode `json:"children"`
}

// CorrectionsResponse is the body of /api/admin/v1/corrections/title/{n}.json.
type CorrectionsResponse struct {
	Corrections []CorrectionPayload `json:"ecfr_corrections"`
}

// CorrectionPayload is one formal correction record.
type CorrectionPayload struct {
	ID               FlexString             `json:"id"`
	CFRReferences    []CorrectionRefPayload `json:"cfr_references"`
	CorrectiveAction string                 `json:"corrective_action"`
	ErrorCorrected   string                 `json:"error_corrected"`
	ErrorOccurred    string                 `json:"error_occurred"`
	FRCitation       string                 `json:"fr_citation"`
	Position         *int                   `json:"position"`
	DisplayInToc     bool                   `json:"display_in_toc"`
	Title            FlexString             `json:"title"`
	Year             *int                   `json:"year"`
	LastModified     string                 `json:"last_modified"`
}

// CorrectionRefPayload carries one affected CFR coordinate.
type CorrectionRefPayload struct {
	CFRReference string           `json:"cfr_reference"`
	Hierarchy    HierarchyPayload `json:"hierarchy"`
}

// HierarchyPayload is the hierarchy snapshot of a correction reference.
type HierarchyPayload struct {
	Title    FlexString `json:"title"`
	Subtitle FlexString `json:"subtitle"`
	Chapter  FlexString `json:"chapter"`
	Part     FlexString `json:"part"`
	Subpart  FlexString `json:"subpart"`
	Section  FlexString `json:"section"`
}
