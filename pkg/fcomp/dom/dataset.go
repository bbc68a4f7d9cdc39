package dom

import "strings"

// Dataset is a live view of an element's "data-*" attributes keyed by
// camelCase name. Writes go through SetAttribute, so observed dataset
// attributes notify hooks the same way.
type Dataset struct {
	el *Element
}

// Dataset returns the element's dataset view.
func (e *Element) Dataset() Dataset {
	return Dataset{el: e}
}

// Get returns the value for key and whether it is present.
func (d Dataset) Get(key string) (string, bool) {
	return d.el.GetAttribute(DatasetAttribute(key))
}

// Set writes key.
func (d Dataset) Set(key, value string) {
	d.el.SetAttribute(DatasetAttribute(key), value)
}

// Delete removes key.
func (d Dataset) Delete(key string) {
	d.el.RemoveAttribute(DatasetAttribute(key))
}

// Has reports whether key is present.
func (d Dataset) Has(key string) bool {
	return d.el.HasAttribute(DatasetAttribute(key))
}

// Map returns a snapshot of all entries.
func (d Dataset) Map() map[string]string {
	out := make(map[string]string)
	for _, a := range d.el.attrs {
		if strings.HasPrefix(a.Name, DataPrefix) {
			key, _ := DatasetKey(a.Name)
			out[key] = a.Value
		}
	}
	return out
}
