package htmlmd

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/docmd/markup"
)

func tableNode(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := markup.Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	tables := markup.FindAll(doc, func(n *html.Node) bool { return markup.IsTag(n, "table") })
	if len(tables) != 1 {
		t.Fatalf("expected 1 table in fixture, got %d", len(tables))
	}
	return tables[0]
}

func TestConvertTableRoundTrip(t *testing.T) {
	table := tableNode(t, `<table>
		<tr><th>A</th><th>B</th><th>C</th></tr>
		<tr><td>1</td><td>2</td><td>3</td></tr>
	</table>`)

	rec := convertTable(table, "images")
	want := "| A | B | C |\n| --- | --- | --- |\n| 1 | 2 | 3 |\n\n"
	if rec.Markdown != want {
		t.Errorf("table markdown = %q, want %q", rec.Markdown, want)
	}
	if len(rec.Images) != 0 {
		t.Errorf("expected no images, got %d", len(rec.Images))
	}
}

func TestConvertTableMismatchedRowDropped(t *testing.T) {
	table := tableNode(t, `<table>
		<tr><th>A</th><th>B</th></tr>
		<tr><td>1</td></tr>
		<tr><td>2</td><td>3</td></tr>
	</table>`)

	rec := convertTable(table, "images")
	want := "| A | B |\n| --- | --- |\n| 2 | 3 |\n\n"
	if rec.Markdown != want {
		t.Errorf("table markdown = %q, want %q", rec.Markdown, want)
	}
}

func TestConvertTablePromotesFirstRowWithoutHeader(t *testing.T) {
	table := tableNode(t, `<table>
		<tr><td>x</td><td>y</td></tr>
		<tr><td>1</td><td>2</td></tr>
	</table>`)

	rec := convertTable(table, "images")
	lines := strings.Split(strings.TrimRight(rec.Markdown, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), rec.Markdown)
	}
	if lines[0] != "| x | y |" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "| --- | --- |" {
		t.Errorf("separator = %q", lines[1])
	}
	if lines[2] != "| 1 | 2 |" {
		t.Errorf("row = %q", lines[2])
	}
}

func TestConvertTableEmpty(t *testing.T) {
	table := tableNode(t, `<table></table>`)
	rec := convertTable(table, "images")
	if rec.Markdown != "" {
		t.Errorf("empty table markdown = %q, want empty", rec.Markdown)
	}
	if len(rec.Images) != 0 {
		t.Errorf("empty table contributed %d images", len(rec.Images))
	}
}

func TestConvertTableInlinesCellImages(t *testing.T) {
	table := tableNode(t, `<table>
		<tr><th>Name</th><th>Logo</th></tr>
		<tr><td>acme</td><td><img src="media/deep/logo.png" alt="logo" title="Acme"></td></tr>
	</table>`)

	rec := convertTable(table, "images")

	if !strings.Contains(rec.Markdown, `![logo](images/logo.png "Acme")`) {
		t.Errorf("cell image not inlined: %q", rec.Markdown)
	}
	if len(rec.Images) != 1 {
		t.Fatalf("expected 1 image record, got %d", len(rec.Images))
	}
	img := rec.Images[0]
	if !img.InTable {
		t.Error("image not marked InTable")
	}
	if img.Placeholder != "" {
		t.Errorf("table image has placeholder %q, want none", img.Placeholder)
	}
	if img.Src != "images/logo.png" {
		t.Errorf("src = %q", img.Src)
	}
	if img.Filename != "logo.png" {
		t.Errorf("filename = %q", img.Filename)
	}

	// The original tree is untouched: cell processing works on a copy.
	if len(markup.FindAll(table, func(n *html.Node) bool { return markup.IsTag(n, "img") })) != 1 {
		t.Error("original table was mutated during cell conversion")
	}
}

func TestConvertTableHeaderOnly(t *testing.T) {
	table := tableNode(t, `<table><tr><th>A</th><th>B</th></tr></table>`)
	rec := convertTable(table, "images")
	want := "| A | B |\n| --- | --- |\n\n"
	if rec.Markdown != want {
		t.Errorf("markdown = %q, want %q", rec.Markdown, want)
	}
}
