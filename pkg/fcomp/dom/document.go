package dom

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/randalmurphal/fcomp/pkg/fcomp/registry"
)

// Sentinel errors for custom element definitions.
var (
	// ErrInvalidName indicates a tag that is not a valid custom element name.
	ErrInvalidName = errors.New("dom: invalid custom element name")

	// ErrAlreadyDefined indicates a second definition for one tag.
	ErrAlreadyDefined = errors.New("dom: custom element already defined")
)

// Constructor upgrades a freshly created element into a custom element and
// returns its hooks.
type Constructor func(el *Element) (Hooks, error)

var customName = regexp.MustCompile(`^[a-z][a-z0-9._]*-[a-z0-9._-]*$`)

// ValidCustomName reports whether tag is usable as a custom element name:
// lower-case, starting with a letter, containing a hyphen.
func ValidCustomName(tag string) bool {
	return customName.MatchString(tag)
}

// Document owns a tree rooted at its body and the custom element registry.
type Document struct {
	body     *Element
	elements *registry.Registry[string, Constructor]
}

// NewDocument creates a document with an empty, connected body.
func NewDocument() *Document {
	d := &Document{elements: registry.New[string, Constructor]()}
	d.body = newElement(d, "body")
	d.body.connected = true
	return d
}

// Body returns the connected root of the document.
func (d *Document) Body() *Element { return d.body }

// Define registers a custom element constructor for tag.
func (d *Document) Define(tag string, ctor Constructor) error {
	if !ValidCustomName(tag) {
		return fmt.Errorf("%w: %q", ErrInvalidName, tag)
	}
	if !d.elements.Define(tag, ctor) {
		return fmt.Errorf("%w: %q", ErrAlreadyDefined, tag)
	}
	return nil
}

// Defined reports whether tag has a custom element definition.
func (d *Document) Defined(tag string) bool {
	return d.elements.Has(tag)
}

// DefinedNames lists the custom element names in ascending order.
func (d *Document) DefinedNames() []string {
	return d.elements.Keys()
}

// CreateElement creates an element. Tags with a custom element definition
// are upgraded through their constructor.
func (d *Document) CreateElement(tag string) (*Element, error) {
	tag = strings.ToLower(tag)
	el := newElement(d, tag)
	if ctor, ok := d.elements.Get(tag); ok {
		h, err := ctor(el)
		if err != nil {
			return nil, fmt.Errorf("construct <%s>: %w", tag, err)
		}
		el.Upgrade(h)
	}
	return el, nil
}

// NewElement creates a plain element without consulting the registry.
func (d *Document) NewElement(tag string) *Element {
	return newElement(d, strings.ToLower(tag))
}

// CreateTextNode creates a text node.
func (d *Document) CreateTextNode(s string) *Element {
	n := newElement(d, TextTag)
	n.text = s
	return n
}

// Adopt moves el, with its subtree, into d. It is removed from its current
// parent first. Upgraded elements whose owner changes get AdoptedCallback.
func (d *Document) Adopt(el *Element) {
	el.Remove()
	old := el.doc
	walk(el, func(n *Element) { n.doc = d })
	if old == d {
		return
	}
	walk(el, func(n *Element) {
		if n.hooks != nil {
			n.hooks.AdoptedCallback(old, d)
		}
	})
}
