package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Template is a parsed HTML fragment. It is immutable; Clone stamps out
// fresh nodes for a document.
type Template struct {
	nodes []*Element
}

// ParseTemplate parses an HTML fragment in a body context. Comments and
// doctypes are dropped.
func ParseTemplate(src string) (*Template, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	parsed, err := html.ParseFragment(strings.NewReader(src), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	t := &Template{}
	for _, n := range parsed {
		if el := fromHTML(n); el != nil {
			t.nodes = append(t.nodes, el)
		}
	}
	return t, nil
}

// MustParseTemplate is ParseTemplate that panics on error.
func MustParseTemplate(src string) *Template {
	t, err := ParseTemplate(src)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of top-level nodes.
func (t *Template) Len() int { return len(t.nodes) }

func fromHTML(n *html.Node) *Element {
	switch n.Type {
	case html.TextNode:
		return &Element{tag: TextTag, text: n.Data}
	case html.ElementNode:
		el := &Element{tag: strings.ToLower(n.Data)}
		for _, a := range n.Attr {
			el.attrs = append(el.attrs, Attr{Name: strings.ToLower(a.Key), Value: a.Val})
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if child := fromHTML(c); child != nil {
				child.parent = el
				el.children = append(el.children, child)
			}
		}
		return el
	default:
		return nil
	}
}

// Clone creates detached copies of the template's nodes owned by doc.
// Tags with a custom element definition in doc are upgraded.
func (t *Template) Clone(doc *Document) ([]*Element, error) {
	out := make([]*Element, 0, len(t.nodes))
	for _, n := range t.nodes {
		c, err := cloneInto(doc, n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func cloneInto(doc *Document, n *Element) (*Element, error) {
	if n.tag == TextTag {
		return doc.CreateTextNode(n.text), nil
	}
	el, err := doc.CreateElement(n.tag)
	if err != nil {
		return nil, err
	}
	for _, a := range n.attrs {
		el.SetAttribute(a.Name, a.Value)
	}
	for _, c := range n.children {
		child, err := cloneInto(doc, c)
		if err != nil {
			return nil, err
		}
		if err := el.AppendChild(child); err != nil {
			return nil, err
		}
	}
	return el, nil
}

// SetInnerHTML replaces e's children with the parsed fragment.
func (e *Element) SetInnerHTML(src string) error {
	t, err := ParseTemplate(src)
	if err != nil {
		return err
	}
	nodes, err := t.Clone(e.doc)
	if err != nil {
		return err
	}
	e.RemoveAllChildren()
	return e.Append(nodes...)
}
