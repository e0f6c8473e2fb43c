package model

import (
	"regexp"
	"strings"
)

var (
	nonSlugRun  = regexp.MustCompile(`[^a-z0-9]+`)
	nonAlnum    = regexp.MustCompile(`[^a-zA-Z0-9]`)
	leadingMark = regexp.MustCompile(`^[§\s]+`)
)

// AgencyID derives an agency id: the slug when present, otherwise the
// slugified name.
func AgencyID(slug, name string) string {
	if slug != "" {
		return slug
	}
	return Slugify(name)
}

// Slugify lower-cases s, collapses each run of characters outside [a-z0-9]
// into one hyphen and trims hyphens from both ends.
func Slugify(s string) string {
	s = nonSlugRun.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// TitleID returns "title-<number>".
func TitleID(number string) string {
	return "title-" + number
}

// SectionID returns the deterministic id of a section within a title. Every
// non-alphanumeric character of the identifier becomes a hyphen.
func SectionID(titleID, identifier string) string {
	return titleID + "-" + nonAlnum.ReplaceAllString(identifier, "-")
}

// StripSectionMark removes leading section-mark glyphs and whitespace,
// so "§ 1.1" and "§§ 1.1" both become "1.1".
func StripSectionMark(label string) string {
	return strings.TrimSpace(leadingMark.ReplaceAllString(label, ""))
}

// UnknownAgencyID is the id of the placeholder agency for an unattributed title.
func UnknownAgencyID(titleNumber string) string {
	return "unknown-agency-for-title-" + titleNumber
}
