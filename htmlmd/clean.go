package htmlmd

import (
	"regexp"
	"strings"
)

var (
	// Blockquote markers, leading tabs, and leading 4-space units are
	// stripped in a single greedy pass. One combined expression, rather
	// than one rule per marker, because stripping indentation can expose
	// a blockquote marker underneath it and each line must reach its
	// fully-stripped form in one application.
	reLeading  = regexp.MustCompile(`(?m)^(?:>[ \t]*|\t| {4})+`)
	reNewlines = regexp.MustCompile(`\n{4,}`)

	// Raw-HTML fallback blocks (tables or math that could not be converted)
	// keep tight spacing around their boundaries.
	reTableOpen  = regexp.MustCompile(`\n+(<table)`)
	reTableClose = regexp.MustCompile(`(</table>)\n+`)
	reMathOpen   = regexp.MustCompile(`\n+(<math)`)
	reMathClose  = regexp.MustCompile(`(</math>)\n+`)
)

// Clean applies the fixed sequence of formatting normalizations to restored
// Markdown: blockquote markers and leading indentation are stripped per
// line, newline runs are collapsed to at most three, spacing around raw
// HTML blocks is tightened, and the result is trimmed.
//
// Each rule removes every occurrence it targets rather than one level, so
// Clean is idempotent: Clean(Clean(x)) == Clean(x) for any x.
func Clean(content string) string {
	content = reLeading.ReplaceAllString(content, "")
	content = reNewlines.ReplaceAllString(content, "\n\n\n")
	content = reTableOpen.ReplaceAllString(content, "\n$1")
	content = reTableClose.ReplaceAllString(content, "$1\n\n")
	content = reMathOpen.ReplaceAllString(content, "\n$1")
	content = reMathClose.ReplaceAllString(content, "$1\n")
	return strings.TrimSpace(content)
}
