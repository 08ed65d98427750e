package htmlmd

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/docmd/markup"
)

// convertTable turns a table subtree into a Markdown pipe-table, inlining
// any images found in cells and reporting them to the caller.
//
// The first row becomes the header; when the table has no header row the
// first data row is promoted. Data rows whose cell count differs from the
// header are dropped silently rather than erroring. A table with no usable
// rows converts to the empty string and contributes no images.
func convertTable(table *html.Node, imagesDir string) TableRecord {
	trs := markup.FindAll(table, func(n *html.Node) bool { return markup.IsTag(n, "tr") })

	var rows [][]string
	var images []ImageRecord
	for _, tr := range trs {
		cells := markup.FindAll(tr, func(n *html.Node) bool {
			return markup.IsTag(n, "th") || markup.IsTag(n, "td")
		})
		var row []string
		for _, cell := range cells {
			text, cellImages := convertCell(cell, imagesDir)
			row = append(row, text)
			images = append(images, cellImages...)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return TableRecord{}
	}

	header := rows[0]
	var lines []string
	lines = append(lines, "| "+strings.Join(header, " | ")+" |")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	lines = append(lines, "| "+strings.Join(sep, " | ")+" |")

	for _, row := range rows[1:] {
		if len(row) != len(header) {
			continue
		}
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}

	return TableRecord{
		Markdown: strings.Join(lines, "\n") + "\n\n",
		Images:   images,
	}
}

// convertCell extracts a cell's flattened text with nested images replaced
// by inline Markdown image syntax. The cell is deep-copied first so the
// original tree is left untouched.
func convertCell(cell *html.Node, imagesDir string) (string, []ImageRecord) {
	copy := markup.Clone(cell)

	var images []ImageRecord
	imgs := markup.FindAll(copy, func(n *html.Node) bool { return markup.IsTag(n, "img") })
	for _, img := range imgs {
		rec := imageRecord(img, imagesDir)
		rec.InTable = true
		images = append(images, rec)
		markup.ReplaceWithText(img, rec.Markdown)
	}

	return markup.Text(copy), images
}
