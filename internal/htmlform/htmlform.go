// Package htmlform applies date bounds to inputs in server-rendered HTML.
package htmlform

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/TobiSchelling/ridebounds/internal/datebounds"
)

// NodeElement adapts an *html.Node to datebounds.Element.
type NodeElement struct {
	Node *html.Node
}

// Empty reports whether e wraps no node.
func (e NodeElement) Empty() bool {
	return e.Node == nil
}

// Attr returns the value of the named attribute.
func (e NodeElement) Attr(name string) (string, bool) {
	for _, a := range e.Node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets the named attribute, replacing an existing value.
func (e NodeElement) SetAttr(name, value string) {
	for i, a := range e.Node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.Node.Attr[i].Val = value
			return
		}
	}
	e.Node.Attr = append(e.Node.Attr, html.Attribute{Key: name, Val: value})
}

// SelectionElement adapts a goquery selection of a single input.
type SelectionElement struct {
	Sel *goquery.Selection
}

// Empty reports whether the selection matched nothing.
func (e SelectionElement) Empty() bool {
	return e.Sel == nil || e.Sel.Length() == 0
}

// Attr returns the named attribute of the first selected node.
func (e SelectionElement) Attr(name string) (string, bool) {
	return e.Sel.Attr(name)
}

// SetAttr sets the named attribute on every selected node.
func (e SelectionElement) SetAttr(name, value string) {
	e.Sel.SetAttr(name, value)
}

// ByID finds the element with the given id attribute. It returns nil when
// no element matches, the same way a DOM lookup would.
func ByID(doc *goquery.Document, id string) datebounds.Element {
	match := doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
	if match.Length() == 0 {
		return nil
	}
	return NodeElement{Node: match.Get(0)}
}

// Constrain applies c to every element matched by each selector and returns
// how many elements were constrained. A selector that matches nothing is
// reported through c as a missing element.
func Constrain(doc *goquery.Document, c *datebounds.Constrainer, selectors []string) int {
	count := 0
	for _, selector := range selectors {
		matches := doc.Find(selector)
		if matches.Length() == 0 {
			c.Apply(nil)
			continue
		}
		matches.Each(func(_ int, s *goquery.Selection) {
			c.Apply(SelectionElement{Sel: s})
			count++
		})
	}
	return count
}

// ConstrainHTML parses an HTML document from r, constrains it and writes the
// result to w.
func ConstrainHTML(r io.Reader, w io.Writer, c *datebounds.Constrainer, selectors []string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return 0, fmt.Errorf("parsing html: %w", err)
	}

	count := Constrain(doc, c, selectors)

	if err := html.Render(w, doc.Get(0)); err != nil {
		return count, fmt.Errorf("rendering html: %w", err)
	}
	return count, nil
}
