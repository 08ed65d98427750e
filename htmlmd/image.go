package htmlmd

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/docmd/markup"
)

// normalizeSrc discards any path components from src and re-anchors the
// filename under the images directory, mirroring the media layout produced
// by the upstream extraction step. An empty src stays empty.
func normalizeSrc(src, imagesDir string) (normalized, filename string) {
	if src == "" {
		return "", ""
	}
	filename = path.Base(strings.ReplaceAll(src, `\`, "/"))
	return imagesDir + "/" + filename, filename
}

// imageMarkdown renders inline Markdown image syntax.
func imageMarkdown(alt, src, title string) string {
	if title != "" {
		return fmt.Sprintf("![%s](%s %q)", alt, src, title)
	}
	return fmt.Sprintf("![%s](%s)", alt, src)
}

// imageRecord builds an ImageRecord from an img element, normalizing its
// source path under imagesDir.
func imageRecord(img *html.Node, imagesDir string) ImageRecord {
	src := markup.Attr(img, "src")
	alt := markup.Attr(img, "alt")
	title := markup.Attr(img, "title")

	normalized, filename := normalizeSrc(src, imagesDir)
	return ImageRecord{
		Src:      normalized,
		Alt:      alt,
		Title:    title,
		Filename: filename,
		Markdown: imageMarkdown(alt, normalized, title),
	}
}
