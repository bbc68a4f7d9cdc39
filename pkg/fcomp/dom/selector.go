package dom

import (
	"fmt"
	"slices"
	"strings"
)

// Selector matches elements. It supports compound selectors made of a tag,
// "#id", ".class", "[attr]" and "[attr=value]" parts, and comma-separated
// lists of those. Combinators are not supported.
type Selector struct {
	src  string
	alts []compound
}

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

type attrMatch struct {
	name  string
	value *string
}

// CompileSelector parses s.
func CompileSelector(s string) (Selector, error) {
	sel := Selector{src: s}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Selector{}, fmt.Errorf("dom: empty selector in %q", s)
		}
		c, err := parseCompound(part)
		if err != nil {
			return Selector{}, err
		}
		sel.alts = append(sel.alts, c)
	}
	return sel, nil
}

// MustCompileSelector is CompileSelector that panics on error.
func MustCompileSelector(s string) Selector {
	sel, err := CompileSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// String returns the source text.
func (s Selector) String() string { return s.src }

func parseCompound(s string) (compound, error) {
	var c compound
	depth := 0
	for _, r := range s {
		switch {
		case r == '[':
			depth++
		case r == ']':
			depth--
		case depth == 0 && strings.ContainsRune(" >+~", r):
			return c, fmt.Errorf("dom: combinators not supported: %q", s)
		}
	}
	i := 0
	readIdent := func() string {
		start := i
		for i < len(s) && !strings.ContainsRune("#.[", rune(s[i])) {
			i++
		}
		return s[start:i]
	}
	c.tag = strings.ToLower(readIdent())
	if c.tag == "*" {
		c.tag = ""
	}
	for i < len(s) {
		switch s[i] {
		case '#':
			i++
			c.id = readIdent()
			if c.id == "" {
				return c, fmt.Errorf("dom: empty id in %q", s)
			}
		case '.':
			i++
			cls := readIdent()
			if cls == "" {
				return c, fmt.Errorf("dom: empty class in %q", s)
			}
			c.classes = append(c.classes, cls)
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("dom: unterminated attribute selector in %q", s)
			}
			body := s[i+1 : i+end]
			i += end + 1
			name, value, hasValue := strings.Cut(body, "=")
			m := attrMatch{name: strings.ToLower(strings.TrimSpace(name))}
			if m.name == "" {
				return c, fmt.Errorf("dom: empty attribute name in %q", s)
			}
			if hasValue {
				v := strings.Trim(strings.TrimSpace(value), `"'`)
				m.value = &v
			}
			c.attrs = append(c.attrs, m)
		default:
			return c, fmt.Errorf("dom: unexpected %q in selector %q", s[i], s)
		}
	}
	return c, nil
}

// Match reports whether el matches any alternative.
func (s Selector) Match(el *Element) bool {
	if el == nil || el.tag == TextTag || el.tag == ShadowRootTag {
		return false
	}
	return slices.ContainsFunc(s.alts, func(c compound) bool { return c.match(el) })
}

func (c compound) match(el *Element) bool {
	if c.tag != "" && c.tag != el.tag {
		return false
	}
	if c.id != "" {
		if id, ok := el.GetAttribute("id"); !ok || id != c.id {
			return false
		}
	}
	if len(c.classes) > 0 {
		have := strings.Fields(func() string { v, _ := el.GetAttribute("class"); return v }())
		for _, cls := range c.classes {
			if !slices.Contains(have, cls) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		v := el.Attribute(a.name)
		if v == nil || (a.value != nil && *v != *a.value) {
			return false
		}
	}
	return true
}

// Find returns the first descendant of e matching sel, in tree order.
// Shadow trees of descendants are not searched.
func (e *Element) Find(sel Selector) *Element {
	for _, c := range e.children {
		if sel.Match(c) {
			return c
		}
		if found := c.Find(sel); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant of e matching sel, in tree order.
func (e *Element) FindAll(sel Selector) []*Element {
	var out []*Element
	for _, c := range e.children {
		if sel.Match(c) {
			out = append(out, c)
		}
		out = append(out, c.FindAll(sel)...)
	}
	return out
}

// QuerySelector compiles s and returns the first match, or nil if nothing
// matches or s is invalid.
func (e *Element) QuerySelector(s string) *Element {
	sel, err := CompileSelector(s)
	if err != nil {
		return nil
	}
	return e.Find(sel)
}
