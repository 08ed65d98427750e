package markup

import "github.com/microcosm-cc/bluemonday"

// sanitizePolicy allows the narrow dialect the conversion pipeline consumes:
// prose, tables, images, and MathML. Script, style, and event handlers are
// stripped. Applied to uploaded HTML only; pandoc output is trusted.
var sanitizePolicy = buildSanitizePolicy()

func buildSanitizePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowImages()
	p.AllowTables()
	p.AllowElements("math", "semantics", "annotation",
		"mrow", "mi", "mo", "mn", "msup", "msub", "mfrac", "msqrt", "mtext")
	p.AllowAttrs("encoding").OnElements("annotation")
	p.AllowAttrs("data-latex", "data-tex", "latex", "tex").OnElements("math", "span", "div")
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("title").OnElements("img")
	return p
}

// Sanitize strips unsafe markup from untrusted HTML while preserving the
// elements the pipeline cares about (tables, math, images).
func Sanitize(data []byte) []byte {
	return sanitizePolicy.SanitizeBytes(data)
}
