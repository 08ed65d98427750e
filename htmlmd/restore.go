package htmlmd

import "strings"

// restore replaces every placeholder token with its rendered markdown, in
// insertion order. Tables get a leading newline to force block separation
// from surrounding prose; math and images are substituted in place.
//
// This is a plain string substitution with no escaping; token uniqueness is
// guaranteed by construction (see placeholderMap).
func restore(markdown string, m *placeholderMap) string {
	for _, e := range m.entries {
		replacement := e.markdown
		if e.kind == kindTable {
			replacement = "\n" + replacement
		}
		markdown = strings.ReplaceAll(markdown, e.token, replacement)
	}
	return markdown
}
