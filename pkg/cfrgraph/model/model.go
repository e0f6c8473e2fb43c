// Package model holds the normalized regulatory entity graph: agencies,
// titles, sections and the historical changes recorded against sections.
package model

import "time"

// AgencyReference points an agency at a CFR title/chapter coordinate.
type AgencyReference struct {
	Title   string
	Chapter string
}

// Agency is a regulatory body. Titles point at their agency; the agency
// does not own a title list.
type Agency struct {
	ID            string
	Name          string
	ShortName     string
	DisplayName   string
	SortableName  string
	Slug          string
	CFRReferences []AgencyReference
}

// WordCountKind records where a title's word count came from.
type WordCountKind string

const (
	WordCountNone      WordCountKind = ""
	WordCountMeasured  WordCountKind = "measured"
	WordCountEstimated WordCountKind = "estimated"
)

// Title is a top-level numbered division of the corpus.
// Zero dates mean the upstream value was missing or unparseable.
type Title struct {
	ID                   string
	Number               string
	Name                 string
	LatestAmendedOn      time.Time
	LatestIssueDate      time.Time
	UpToDateAsOf         time.Time
	Reserved             bool
	ProcessingInProgress bool
	WordCount            int
	WordCountKind        WordCountKind
	TotalChanges         int
	AgencyID             string
}

// HasWordCount reports whether the title carries a measured or estimated count.
func (t Title) HasWordCount() bool {
	return t.WordCountKind != WordCountNone
}

// Section is a leaf provision within a title.
type Section struct {
	ID               string
	TitleID          string
	Number           string
	Heading          string
	Type             string
	LabelLevel       string
	LabelDescription string
	Identifier       string
	Reserved         bool
	WordCount        int
}

// Hierarchy is a snapshot of the coordinates a change referred to.
type Hierarchy struct {
	Title    string
	Subtitle string
	Chapter  string
	Part     string
	Subpart  string
	Section  string
}

// CFRReference is a non-owning pointer from a change to a CFR coordinate.
type CFRReference struct {
	Reference string
	Hierarchy Hierarchy
}

// HistoricalChange is an amendment or correction recorded against a section.
type HistoricalChange struct {
	ID               string
	SectionID        string
	CorrectiveAction string
	ErrorOccurred    time.Time
	ErrorCorrected   time.Time
	LastModified     time.Time
	Year             int
	FRCitation       string
	Position         int
	DisplayInToc     bool
	// Synthetic is set for placeholder corrections generated when the
	// upstream corrections feed had nothing for the title.
	Synthetic        bool
	CFRReferences    []CFRReference
}
