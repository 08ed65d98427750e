package markup

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parseT(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := Parse([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestAttr(t *testing.T) {
	doc := parseT(t, `<img src="a/b.png" alt="pic">`)
	imgs := FindAll(doc, func(n *html.Node) bool { return IsTag(n, "img") })
	if len(imgs) != 1 {
		t.Fatalf("expected 1 img, got %d", len(imgs))
	}
	img := imgs[0]

	if got := Attr(img, "src"); got != "a/b.png" {
		t.Errorf("src = %q", got)
	}
	if got := Attr(img, "title"); got != "" {
		t.Errorf("title = %q, want empty", got)
	}
	if HasAttr(img, "title") {
		t.Error("HasAttr(title) = true")
	}

	SetAttr(img, "src", "images/b.png")
	if got := Attr(img, "src"); got != "images/b.png" {
		t.Errorf("after SetAttr, src = %q", got)
	}
	SetAttr(img, "title", "new")
	if got := Attr(img, "title"); got != "new" {
		t.Errorf("title = %q", got)
	}
}

func TestText(t *testing.T) {
	doc := parseT(t, `<p>Hello <b>world</b></p><script>var x;</script>`)
	got := Text(doc)
	if got != "Hello world" {
		t.Errorf("Text = %q, want %q", got, "Hello world")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	doc := parseT(t, `<td>cell <img src="x.png"></td>`)
	cells := FindAll(doc, func(n *html.Node) bool { return IsTag(n, "td") })
	if len(cells) != 1 {
		t.Fatal("no td found")
	}

	c := Clone(cells[0])
	if c.Parent != nil || c.NextSibling != nil {
		t.Error("clone should be detached")
	}

	// Mutating the clone must not touch the original.
	imgs := FindAll(c, func(n *html.Node) bool { return IsTag(n, "img") })
	ReplaceWithText(imgs[0], "IMG")

	if !strings.Contains(Render(cells[0]), "<img") {
		t.Error("original was mutated through the clone")
	}
	if strings.Contains(Render(c), "<img") {
		t.Error("clone still contains img")
	}
}

func TestFindAllSkipsNestedMatches(t *testing.T) {
	doc := parseT(t, `<div class="math"><span class="math">x</span></div>`)
	got := FindAll(doc, func(n *html.Node) bool {
		return strings.Contains(strings.ToLower(Attr(n, "class")), "math")
	})
	if len(got) != 1 {
		t.Fatalf("expected outer match only, got %d", len(got))
	}
	if got[0].Data != "div" {
		t.Errorf("matched %q, want div", got[0].Data)
	}
}

func TestFindAllDocumentOrder(t *testing.T) {
	doc := parseT(t, `<p><img src="1.png"></p><p><img src="2.png"></p><img src="3.png">`)
	imgs := FindAll(doc, func(n *html.Node) bool { return IsTag(n, "img") })
	if len(imgs) != 3 {
		t.Fatalf("expected 3 imgs, got %d", len(imgs))
	}
	for i, img := range imgs {
		want := string(rune('1'+i)) + ".png"
		if got := Attr(img, "src"); got != want {
			t.Errorf("img %d src = %q, want %q", i, got, want)
		}
	}
}

func TestReplaceWithText(t *testing.T) {
	doc := parseT(t, `<p>before <table><tr><td>x</td></tr></table> after</p>`)
	tables := FindAll(doc, func(n *html.Node) bool { return IsTag(n, "table") })
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	ReplaceWithText(tables[0], "TOKEN")

	out := Render(doc)
	if strings.Contains(out, "<table") {
		t.Error("table still present after replacement")
	}
	if !strings.Contains(out, "TOKEN") {
		t.Error("token not inserted")
	}
}

func TestSanitize(t *testing.T) {
	in := []byte(`<p onclick="evil()">ok</p><script>bad()</script>` +
		`<math class="math"><annotation encoding="application/x-tex">x^2</annotation></math>` +
		`<img src="a.png" alt="pic" title="t">`)
	out := string(Sanitize(in))

	if strings.Contains(out, "script") || strings.Contains(out, "onclick") {
		t.Errorf("unsafe content survived: %q", out)
	}
	for _, want := range []string{"<math", "annotation", "x^2", `<img`, `title="t"`} {
		if !strings.Contains(out, want) {
			t.Errorf("sanitize dropped %q: %q", want, out)
		}
	}
}
