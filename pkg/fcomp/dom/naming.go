package dom

import (
	"strings"
	"unicode"
)

// DataPrefix is the attribute prefix that backs an element's dataset.
const DataPrefix = "data-"

// SpineToCamel converts spine-case to camelCase: "item-count" -> "itemCount".
// Only a hyphen followed by a character is consumed; a trailing hyphen stays.
func SpineToCamel(s string) string {
	if !strings.Contains(s, "-") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '-' && i+1 < len(runes) {
			b.WriteRune(unicode.ToUpper(runes[i+1]))
			i++
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

// PascalToSpine converts PascalCase or camelCase to spine-case, splitting
// before every upper-case letter and digit: "ItemCount2" -> "item-count-2".
func PascalToSpine(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if i > 0 && (unicode.IsUpper(r) || unicode.IsDigit(r)) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// DatasetKey maps a "data-*" attribute name to its dataset key.
// ok is false for attributes outside the dataset.
func DatasetKey(attr string) (key string, ok bool) {
	rest, found := strings.CutPrefix(attr, DataPrefix)
	if !found {
		return "", false
	}
	return SpineToCamel(rest), true
}

// DatasetAttribute maps a dataset key back to its attribute name.
func DatasetAttribute(key string) string {
	return DataPrefix + PascalToSpine(key)
}

// StateKey is the camel-case state key for an attribute name, with any
// dataset prefix removed: "data-item-count" -> "itemCount".
func StateKey(attr string) string {
	if key, ok := DatasetKey(attr); ok {
		return key
	}
	return SpineToCamel(attr)
}
