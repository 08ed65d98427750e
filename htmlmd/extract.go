package htmlmd

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/docmd/markup"
)

// extraction carries the state produced by one extraction pass.
type extraction struct {
	placeholders *placeholderMap
	images       []ImageRecord
}

// extract walks the tree once per element kind, converting tables, math
// elements, and remaining images into markdown fragments and replacing each
// subtree with a placeholder token. The tree is mutated in place; the pass
// is not re-entrant on the same tree.
//
// The order is fixed and load-bearing: tables go first so images inside
// cells are inlined into cell text instead of being extracted a second time
// as floating placeholders, and math goes before the image sweep so
// math-rendering images are not picked up as content images.
func (p *Processor) extract(doc *html.Node) *extraction {
	ex := &extraction{placeholders: newPlaceholderMap()}

	for _, table := range markup.FindAll(doc, isTable) {
		rec := convertTable(table, p.cfg.ImagesDir)
		token := ex.placeholders.add(kindTable, rec.Markdown)
		ex.images = append(ex.images, rec.Images...)
		markup.ReplaceWithText(table, token)
		p.logger.Debug("extracted table", "token", token, "cell_images", len(rec.Images))
	}

	// A single walk with one predicate covers both <math> elements and
	// class-matched ones, so a node can never be selected twice.
	for _, math := range markup.FindAll(doc, isMath) {
		rec := convertMath(math)
		token := ex.placeholders.add(kindMath, rec.Markdown)
		markup.ReplaceWithText(math, token)
		p.logger.Debug("extracted math", "token", token)
	}

	for _, img := range markup.FindAll(doc, isImage) {
		rec := imageRecord(img, p.cfg.ImagesDir)
		rec.Placeholder = ex.placeholders.add(kindImage, rec.Markdown)
		ex.images = append(ex.images, rec)
		markup.ReplaceWithText(img, rec.Placeholder)
		p.logger.Debug("extracted image", "token", rec.Placeholder, "src", rec.Src)
	}

	return ex
}

func isTable(n *html.Node) bool { return markup.IsTag(n, "table") }

func isImage(n *html.Node) bool { return markup.IsTag(n, "img") }

func isMath(n *html.Node) bool {
	if markup.IsTag(n, "math") {
		return true
	}
	class := markup.Attr(n, "class")
	return class != "" && strings.Contains(strings.ToLower(class), "math")
}
