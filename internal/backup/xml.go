package backup

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

const indentUnit = "  "

var encodingAttr = regexp.MustCompile(`encoding\s*=\s*("[^"]*"|'[^']*')`)

// parseExport builds the tree straight from the response stream. Exports in a
// declared non-UTF-8 encoding are decoded; the tree is written back as UTF-8.
func parseExport(r io.Reader) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to parse XML export: %w", err)
	}
	if doc.Root() == nil {
		return nil, errors.New("XML export has no root element")
	}
	for _, t := range doc.Child {
		if pi, ok := t.(*etree.ProcInst); ok && pi.Target == "xml" {
			pi.Inst = encodingAttr.ReplaceAllString(pi.Inst, `encoding="UTF-8"`)
		}
	}
	return doc, nil
}

// prettyPrint puts every top-level token on its own line and indents the
// root element. Text is never changed, see indentElement.
func prettyPrint(doc *etree.Document) {
	tokens := significant(doc.Child)
	for len(doc.Child) > 0 {
		doc.RemoveChildAt(0)
	}
	for _, t := range tokens {
		doc.AddChild(t)
		doc.AddChild(etree.NewText("\n"))
		if e, ok := t.(*etree.Element); ok {
			indentElement(e, 0)
		}
	}
}

// indentElement indents the children of e when e holds only elements,
// comments and formatting whitespace. Leaf text, whitespace-only text of leaf
// elements and mixed content are left exactly as parsed.
func indentElement(e *etree.Element, depth int) {
	if !elementOnly(e) {
		return
	}
	children := significant(e.Child)
	for len(e.Child) > 0 {
		e.RemoveChildAt(0)
	}

	pad := "\n" + strings.Repeat(indentUnit, depth+1)
	for _, t := range children {
		e.AddChild(etree.NewText(pad))
		e.AddChild(t)
		if child, ok := t.(*etree.Element); ok {
			indentElement(child, depth+1)
		}
	}
	e.AddChild(etree.NewText("\n" + strings.Repeat(indentUnit, depth)))
}

func elementOnly(e *etree.Element) bool {
	hasElement := false
	for _, t := range e.Child {
		switch t := t.(type) {
		case *etree.Element:
			hasElement = true
		case *etree.CharData:
			if t.IsCData() || !t.IsWhitespace() {
				return false
			}
		}
	}
	return hasElement
}

// significant drops formatting whitespace from an element-only token list.
func significant(tokens []etree.Token) []etree.Token {
	out := make([]etree.Token, 0, len(tokens))
	for _, t := range tokens {
		if cd, ok := t.(*etree.CharData); ok && cd.IsWhitespace() && !cd.IsCData() {
			continue
		}
		out = append(out, t)
	}
	return out
}
