package ingest

import (
	"strings"

	"golang.org/x/net/html"
)

// StripMarkup drops every tag from s and returns the text content with a
// space wherever a tag stood. Entities are decoded.
func StripMarkup(s string) string {
	var buf strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF, or a reader error on an in-memory string
			return buf.String()
		case html.TextToken:
			buf.Write(z.Text())
		case html.StartTagToken:
			// XML elements such as TITLE would otherwise switch the
			// tokenizer into raw-text mode and swallow nested tags.
			z.NextIsNotRawText()
			buf.WriteByte(' ')
		case html.EndTagToken, html.SelfClosingTagToken:
			buf.WriteByte(' ')
		}
	}
}

// CountWords counts whitespace-delimited tokens after stripping markup.
func CountWords(s string) int {
	return len(strings.Fields(StripMarkup(s)))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
