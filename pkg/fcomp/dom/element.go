package dom

import (
	"errors"
	"slices"
	"strings"
)

// Special tags for nodes that are not elements.
const (
	TextTag       = "#text"
	ShadowRootTag = "#shadow-root"
	FragmentTag   = "#document-fragment"
)

// Sentinel errors for tree mutation.
var (
	// ErrHierarchy indicates an insertion that would create a cycle.
	ErrHierarchy = errors.New("dom: hierarchy request")

	// ErrNotChild indicates RemoveChild was given a node that is not a child.
	ErrNotChild = errors.New("dom: node is not a child")

	// ErrWrongDocument indicates a node owned by another document.
	ErrWrongDocument = errors.New("dom: node belongs to another document")

	// ErrShadowAttached indicates AttachShadow was called twice.
	ErrShadowAttached = errors.New("dom: shadow root already attached")

	// ErrTextNode indicates an element-only operation on a text node.
	ErrTextNode = errors.New("dom: operation not valid on text node")
)

// Hooks are the lifecycle reactions of an upgraded custom element.
// The document calls them synchronously as the tree changes.
type Hooks interface {
	// ObservedAttributes lists the attributes that trigger
	// AttributeChangedCallback. It is read once, at upgrade.
	ObservedAttributes() []string
	ConnectedCallback()
	DisconnectedCallback()
	AdoptedCallback(oldDoc, newDoc *Document)
	AttributeChangedCallback(name string, oldValue, newValue *string)
}

// Attr is a single attribute.
type Attr struct {
	Name  string
	Value string
}

// Element is a node in a headless document tree. Text nodes and shadow
// roots are Elements with the reserved tags TextTag and ShadowRootTag.
//
// Elements are not safe for concurrent use; the event loop owns them.
type Element struct {
	tag       string
	doc       *Document
	attrs     []Attr
	children  []*Element
	parent    *Element
	host      *Element
	shadow    *Element
	text      string
	listeners map[string][]*listener
	hooks     Hooks
	observed  map[string]struct{}
	connected bool
}

func newElement(doc *Document, tag string) *Element {
	return &Element{tag: tag, doc: doc}
}

// TagName returns the lower-case tag name.
func (e *Element) TagName() string { return e.tag }

// Document returns the owner document.
func (e *Element) Document() *Document { return e.doc }

// IsText reports whether e is a text node.
func (e *Element) IsText() bool { return e.tag == TextTag }

// Parent returns the parent node, or nil.
func (e *Element) Parent() *Element { return e.parent }

// Host returns the element a shadow root is attached to.
func (e *Element) Host() *Element { return e.host }

// IsConnected reports whether e is in its document's body tree.
func (e *Element) IsConnected() bool { return e.connected }

// Hooks returns the custom element hooks installed by Upgrade, or nil.
func (e *Element) Hooks() Hooks { return e.hooks }

// Upgrade installs custom element hooks. The observed attribute list is
// captured now; later changes to it have no effect.
func (e *Element) Upgrade(h Hooks) {
	e.hooks = h
	e.observed = nil
	if h == nil {
		return
	}
	e.observed = make(map[string]struct{})
	for _, name := range h.ObservedAttributes() {
		e.observed[strings.ToLower(name)] = struct{}{}
	}
}

// Attribute returns the attribute value, or nil if absent.
func (e *Element) Attribute(name string) *string {
	name = strings.ToLower(name)
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			v := e.attrs[i].Value
			return &v
		}
	}
	return nil
}

// GetAttribute returns the attribute value and whether it is present.
func (e *Element) GetAttribute(name string) (string, bool) {
	if v := e.Attribute(name); v != nil {
		return *v, true
	}
	return "", false
}

// HasAttribute reports whether the attribute is present.
func (e *Element) HasAttribute(name string) bool {
	return e.Attribute(name) != nil
}

// Attributes returns a copy of the attributes in insertion order.
func (e *Element) Attributes() []Attr {
	return slices.Clone(e.attrs)
}

// SetAttribute sets an attribute. Observed attributes notify the hooks even
// when the value is unchanged.
func (e *Element) SetAttribute(name, value string) {
	name = strings.ToLower(name)
	old := e.Attribute(name)
	if old != nil {
		for i := range e.attrs {
			if e.attrs[i].Name == name {
				e.attrs[i].Value = value
				break
			}
		}
	} else {
		e.attrs = append(e.attrs, Attr{Name: name, Value: value})
	}
	e.attributeChanged(name, old, &value)
}

// RemoveAttribute removes an attribute if present.
func (e *Element) RemoveAttribute(name string) {
	name = strings.ToLower(name)
	i := slices.IndexFunc(e.attrs, func(a Attr) bool { return a.Name == name })
	if i < 0 {
		return
	}
	old := e.attrs[i].Value
	e.attrs = slices.Delete(e.attrs, i, i+1)
	e.attributeChanged(name, &old, nil)
}

// ToggleAttribute adds the attribute with an empty value or removes it.
func (e *Element) ToggleAttribute(name string, on bool) {
	if on {
		if !e.HasAttribute(name) {
			e.SetAttribute(name, "")
		}
		return
	}
	e.RemoveAttribute(name)
}

func (e *Element) attributeChanged(name string, old, value *string) {
	if e.hooks == nil {
		return
	}
	if _, ok := e.observed[name]; !ok {
		return
	}
	e.hooks.AttributeChangedCallback(name, old, value)
}

// Children returns a copy of the child nodes.
func (e *Element) Children() []*Element {
	return slices.Clone(e.children)
}

// FirstChild returns the first child node, or nil.
func (e *Element) FirstChild() *Element {
	if len(e.children) == 0 {
		return nil
	}
	return e.children[0]
}

// AppendChild moves child to the end of e's children, detaching it from any
// previous parent first. Connected hooks fire if e is connected.
func (e *Element) AppendChild(child *Element) error {
	if e.IsText() {
		return ErrTextNode
	}
	if child.doc != e.doc {
		return ErrWrongDocument
	}
	for cur := e; cur != nil; cur = cur.propagationParent() {
		if cur == child {
			return ErrHierarchy
		}
	}
	if child.parent != nil {
		if err := child.parent.RemoveChild(child); err != nil {
			return err
		}
	}
	child.parent = e
	e.children = append(e.children, child)
	if e.connected {
		connect(child)
	}
	return nil
}

// Append appends each node in order, stopping at the first error.
func (e *Element) Append(nodes ...*Element) error {
	for _, n := range nodes {
		if err := e.AppendChild(n); err != nil {
			return err
		}
	}
	return nil
}

// RemoveChild detaches child. Disconnected hooks fire if e was connected.
func (e *Element) RemoveChild(child *Element) error {
	i := slices.Index(e.children, child)
	if i < 0 {
		return ErrNotChild
	}
	e.children = slices.Delete(e.children, i, i+1)
	child.parent = nil
	disconnect(child)
	return nil
}

// Remove detaches e from its parent, if any.
func (e *Element) Remove() {
	if e.parent != nil {
		_ = e.parent.RemoveChild(e)
	}
}

// RemoveAllChildren detaches every child node.
func (e *Element) RemoveAllChildren() {
	for len(e.children) > 0 {
		_ = e.RemoveChild(e.children[len(e.children)-1])
	}
}

// AttachShadow creates e's shadow root.
func (e *Element) AttachShadow() (*Element, error) {
	if e.IsText() {
		return nil, ErrTextNode
	}
	if e.shadow != nil {
		return nil, ErrShadowAttached
	}
	root := newElement(e.doc, ShadowRootTag)
	root.host = e
	root.connected = e.connected
	e.shadow = root
	return root, nil
}

// ShadowRoot returns the attached shadow root, or nil.
func (e *Element) ShadowRoot() *Element { return e.shadow }

// TextContent returns the concatenated text of e's light tree.
func (e *Element) TextContent() string {
	if e.IsText() {
		return e.text
	}
	var b strings.Builder
	for _, c := range e.children {
		b.WriteString(c.TextContent())
	}
	return b.String()
}

// SetTextContent replaces e's children with a single text node.
func (e *Element) SetTextContent(s string) {
	if e.IsText() {
		e.text = s
		return
	}
	e.RemoveAllChildren()
	if s != "" {
		_ = e.AppendChild(e.doc.CreateTextNode(s))
	}
}

// connect marks n's shadow-including subtree connected, calling hooks in tree
// order. Nodes already connected are skipped, so hooks that append children
// during the walk do not fire twice.
func connect(n *Element) {
	if n.connected {
		return
	}
	n.connected = true
	if n.hooks != nil {
		n.hooks.ConnectedCallback()
	}
	if n.shadow != nil {
		connect(n.shadow)
	}
	for _, c := range slices.Clone(n.children) {
		if c.parent == n {
			connect(c)
		}
	}
}

func disconnect(n *Element) {
	if !n.connected {
		return
	}
	n.connected = false
	if n.hooks != nil {
		n.hooks.DisconnectedCallback()
	}
	if n.shadow != nil {
		disconnect(n.shadow)
	}
	for _, c := range slices.Clone(n.children) {
		if c.parent == n {
			disconnect(c)
		}
	}
}

// walk visits n and its descendants, including shadow trees, in tree order.
func walk(n *Element, fn func(*Element)) {
	fn(n)
	if n.shadow != nil {
		walk(n.shadow, fn)
	}
	for _, c := range n.children {
		walk(c, fn)
	}
}
