package htmlmd

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/hazyhaar/docmd/markup"
)

// latexAttrs are the attribute names checked for a ready-made LaTeX source,
// in priority order.
var latexAttrs = []string{"data-latex", "data-tex", "latex", "tex"}

// inlineMathLimit is the expression length above which display math is used.
const inlineMathLimit = 50

// convertMath derives a Markdown math expression from a math subtree.
//
// Extraction heuristics, first match wins: a LaTeX attribute on the element,
// then the element's flattened text with backslashes and dollars stripped,
// then a descendant annotation with encoding application/x-tex. If nothing
// yields content, the original HTML is emitted unchanged rather than
// failing the document.
func convertMath(n *html.Node) MathRecord {
	var latex string

	for _, attr := range latexAttrs {
		if v := markup.Attr(n, attr); v != "" {
			latex = v
			break
		}
	}

	if latex == "" {
		text := markup.Text(n)
		text = strings.NewReplacer(`\`, "", "$", "").Replace(text)
		latex = strings.TrimSpace(text)
	}

	if latex == "" {
		latex = annotationTeX(n)
	}

	if latex == "" {
		return MathRecord{Markdown: markup.Render(n)}
	}
	return MathRecord{Markdown: delimitMath(strings.TrimSpace(latex))}
}

// annotationTeX finds the first descendant annotation element carrying
// application/x-tex content, whether direct or nested inside semantics.
func annotationTeX(n *html.Node) string {
	annotations := markup.FindAll(n, func(c *html.Node) bool {
		return markup.IsTag(c, "annotation")
	})
	for _, a := range annotations {
		if strings.EqualFold(markup.Attr(a, "encoding"), "application/x-tex") {
			if text := strings.TrimSpace(markup.Text(a)); text != "" {
				return text
			}
		}
	}
	return ""
}

// delimitMath wraps a non-empty expression in Markdown math delimiters.
// Already-delimited expressions pass through; multi-line or long ones become
// display blocks; the rest become inline math. The length cutoff is a crude
// proxy for "large expression", not a content-aware decision.
func delimitMath(latex string) string {
	switch {
	case strings.HasPrefix(latex, "$$") || strings.HasSuffix(latex, "$$"):
		return latex
	case strings.HasPrefix(latex, "$") || strings.HasSuffix(latex, "$"):
		return latex
	case strings.Contains(latex, "\n") || utf8.RuneCountInString(latex) > inlineMathLimit:
		return "$$\n" + latex + "\n$$"
	default:
		return "$" + latex + "$"
	}
}
