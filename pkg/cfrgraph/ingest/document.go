package ingest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cognicore/cfrgraph/pkg/cfrgraph/internalerr"
	"github.com/cognicore/cfrgraph/pkg/cfrgraph/model"
)

// ParsedSection is a section extracted from the full text together with
// the raw text of its HISTORY element.
type ParsedSection struct {
	Section model.Section
	History string
}

// ParsedDocument is the result of parsing one title's full text.
type ParsedDocument struct {
	// WordCount covers the whole document; it is set even when parsing fails.
	WordCount int
	Sections  []ParsedSection
}

// ParseDocument extracts every SECTION element of a title's full-text XML.
// On malformed markup it returns the word count and an ErrMalformed error
// with no sections, so a title is never half-extracted.
func ParseDocument(titleID, doc string) (ParsedDocument, error) {
	out := ParsedDocument{WordCount: CountWords(doc)}

	root, err := parseElements(strings.NewReader(doc))
	if err != nil {
		return out, fmt.Errorf("%w: %s full text: %v", internalerr.ErrMalformed, titleID, err)
	}

	for _, el := range root.findAll("SECTION") {
		number := model.StripSectionMark(collapseSpace(el.firstText("SECTNO")))
		if number == "" {
			continue
		}
		heading := collapseSpace(el.firstText("SUBJECT"))
		out.Sections = append(out.Sections, ParsedSection{
			Section: model.Section{
				ID:               model.SectionID(titleID, number),
				TitleID:          titleID,
				Number:           number,
				Heading:          heading,
				Type:             "section",
				LabelLevel:       "§ " + number,
				LabelDescription: heading,
				Identifier:       number,
				WordCount:        len(strings.Fields(el.text)),
			},
			History: collapseSpace(el.firstText("HISTORY")),
		})
	}
	return out, nil
}

// element is a minimal DOM node: a name, its full text content and its
// child elements in document order.
type element struct {
	name     string
	text     string
	children []*element
}

func parseElements(r io.Reader) (*element, error) {
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity

	root := &element{}
	stack := []*element{root}
	texts := []*strings.Builder{{}}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			el := &element{name: tok.Name.Local}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, el)
			stack = append(stack, el)
			texts = append(texts, &strings.Builder{})
			// element boundaries separate words
			for _, b := range texts {
				b.WriteByte(' ')
			}
		case xml.EndElement:
			top := len(stack) - 1
			stack[top].text = texts[top].String()
			stack, texts = stack[:top], texts[:top]
			for _, b := range texts {
				b.WriteByte(' ')
			}
		case xml.CharData:
			for _, b := range texts {
				b.Write(tok)
			}
		}
	}
	if len(stack) != 1 {
		return nil, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].name)
	}
	root.text = texts[0].String()
	return root, nil
}

// findAll returns every descendant named name, in document order. Matches
// are not searched for nested matches.
func (e *element) findAll(name string) []*element {
	var out []*element
	var walk func(*element)
	walk = func(n *element) {
		for _, c := range n.children {
			if c.name == name {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(e)
	return out
}

// firstText returns the text of the first descendant named name, or "".
func (e *element) firstText(name string) string {
	var found *element
	var walk func(*element) bool
	walk = func(n *element) bool {
		for _, c := range n.children {
			if c.name == name {
				found = c
				return true
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(e)
	if found == nil {
		return ""
	}
	return found.text
}
