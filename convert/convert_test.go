package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testHTML = `<html><body>
<h1>Report</h1>
<p>Intro text.</p>
<table><tr><th>A</th><th>B</th></tr><tr><td>1</td><td>2</td></tr></table>
<math data-latex="x^2"></math>
<img src="media/fig1.png" alt="figure one">
</body></html>`

// fakeRunner stands in for the pandoc stage: it writes canned HTML and can
// be told to fail for specific filenames.
type fakeRunner struct {
	html      string
	failFiles map[string]bool
	up        bool
}

func (f *fakeRunner) ConvertToHTML(_ context.Context, docxPath, htmlPath, _ string, _ Options) (*PandocOutput, error) {
	if f.failFiles[filepath.Base(docxPath)] {
		return nil, fmt.Errorf("pandoc failed: canned failure")
	}
	if err := os.WriteFile(htmlPath, []byte(f.html), 0o644); err != nil {
		return nil, err
	}
	return &PandocOutput{HTMLPath: htmlPath, ImageCount: 1}, nil
}

func (f *fakeRunner) Available(context.Context) bool { return f.up }

func newTestConverter(t *testing.T, fr *fakeRunner) *Converter {
	t.Helper()
	base := t.TempDir()
	c, err := New(Config{
		Dirs:   Dirs{Base: base},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.runner = fr
	return c
}

func writeDocx(t *testing.T, c *Converter, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(c.cfg.Dirs.Docx, name), []byte("docx bytes"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
}

func TestConvertDocument(t *testing.T) {
	c := newTestConverter(t, &fakeRunner{html: testHTML, up: true})
	writeDocx(t, c, "report.docx")

	res := c.ConvertDocument(context.Background(), "report.docx", DefaultOptions())

	if res.Status != StatusCompleted {
		t.Fatalf("status = %s, error = %s", res.Status, res.Error)
	}
	if res.TaskID == "" {
		t.Error("empty task id")
	}
	if len(res.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(res.Steps))
	}
	if res.Steps[0].Name != "docx_to_html" || !res.Steps[0].Success {
		t.Errorf("step 0 = %+v", res.Steps[0])
	}
	if res.Steps[1].Name != "html_to_markdown" || !res.Steps[1].Success {
		t.Errorf("step 1 = %+v", res.Steps[1])
	}
	if res.Stats.Tables != 1 || res.Stats.MathExpressions != 1 || res.Stats.Images != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
	var sum int64
	for _, s := range res.Steps {
		sum += s.DurationMS
	}
	if res.Stats.TotalDurationMS != sum {
		t.Errorf("total duration %d != step sum %d", res.Stats.TotalDurationMS, sum)
	}
	if res.CompletedAt == nil {
		t.Error("missing completion time")
	}

	md, err := os.ReadFile(res.MarkdownPath)
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	for _, want := range []string{"| A | B |", "$x^2$", "![figure one](images/fig1.png)"} {
		if !strings.Contains(string(md), want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestConvertDocumentCleanupTemp(t *testing.T) {
	c := newTestConverter(t, &fakeRunner{html: testHTML})
	writeDocx(t, c, "a.docx")

	opts := DefaultOptions()
	opts.CleanupTemp = true
	res := c.ConvertDocument(context.Background(), "a.docx", opts)
	if res.Status != StatusCompleted {
		t.Fatalf("status = %s", res.Status)
	}
	if res.HTMLPath != "" {
		t.Errorf("html path still set after cleanup: %s", res.HTMLPath)
	}
	if _, err := os.Stat(filepath.Join(c.cfg.Dirs.HTML, "a.html")); !os.IsNotExist(err) {
		t.Error("intermediate html not removed")
	}

	opts.CleanupTemp = false
	writeDocx(t, c, "b.docx")
	res = c.ConvertDocument(context.Background(), "b.docx", opts)
	if res.HTMLPath == "" {
		t.Error("html path cleared without cleanup")
	}
	if _, err := os.Stat(res.HTMLPath); err != nil {
		t.Errorf("intermediate html missing: %v", err)
	}
}

func TestConvertDocumentMissingInput(t *testing.T) {
	c := newTestConverter(t, &fakeRunner{html: testHTML})

	res := c.ConvertDocument(context.Background(), "nope.docx", DefaultOptions())
	if res.Status != StatusFailed {
		t.Fatalf("status = %s", res.Status)
	}
	if !strings.Contains(res.Error, "not found") {
		t.Errorf("error = %q", res.Error)
	}
	if res.CompletedAt == nil {
		t.Error("missing completion time on failure")
	}
}

func TestConvertDocumentStageFailure(t *testing.T) {
	c := newTestConverter(t, &fakeRunner{html: testHTML, failFiles: map[string]bool{"bad.docx": true}})
	writeDocx(t, c, "bad.docx")

	res := c.ConvertDocument(context.Background(), "bad.docx", DefaultOptions())
	if res.Status != StatusFailed {
		t.Fatalf("status = %s", res.Status)
	}
	if len(res.Steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(res.Steps))
	}
	if res.Steps[0].Success {
		t.Error("failed step marked successful")
	}
	if !strings.Contains(res.Error, "docx_to_html") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestConvertBatchPartialFailure(t *testing.T) {
	c := newTestConverter(t, &fakeRunner{html: testHTML, failFiles: map[string]bool{"doc2.docx": true}})
	for _, name := range []string{"doc1.docx", "doc2.docx", "doc3.docx"} {
		writeDocx(t, c, name)
	}

	batch := c.ConvertBatch(context.Background(), []string{"doc1.docx", "doc2.docx", "doc3.docx"}, DefaultOptions())

	if batch.Status != StatusCompleted {
		t.Errorf("batch status = %s, want completed despite one failure", batch.Status)
	}
	if batch.TotalFiles != 3 || batch.Completed != 2 || batch.Failed != 1 {
		t.Errorf("counts = %d/%d/%d", batch.TotalFiles, batch.Completed, batch.Failed)
	}
	if len(batch.Results) != 3 {
		t.Fatalf("results = %d", len(batch.Results))
	}
	if batch.Results[1].Status != StatusFailed {
		t.Errorf("doc2 status = %s", batch.Results[1].Status)
	}
}

func TestConvertBatchAllFailed(t *testing.T) {
	c := newTestConverter(t, &fakeRunner{html: testHTML})

	batch := c.ConvertBatch(context.Background(), []string{"x.docx", "y.docx"}, DefaultOptions())
	if batch.Status != StatusFailed {
		t.Errorf("batch status = %s, want failed when nothing completed", batch.Status)
	}
	if batch.Completed != 0 || batch.Failed != 2 {
		t.Errorf("counts = %d/%d", batch.Completed, batch.Failed)
	}
}

func TestAvailableDocuments(t *testing.T) {
	c := newTestConverter(t, &fakeRunner{})
	for _, name := range []string{"one.docx", "two.DOCX", "~$one.docx", "notes.txt"} {
		writeDocx(t, c, name)
	}

	docs, err := c.AvailableDocuments()
	if err != nil {
		t.Fatalf("AvailableDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("docs = %v", docs)
	}
	for _, d := range docs {
		if strings.HasPrefix(d, "~$") || strings.HasSuffix(d, ".txt") {
			t.Errorf("unexpected document %q", d)
		}
	}
}

func TestCheckDependencies(t *testing.T) {
	c := newTestConverter(t, &fakeRunner{up: true})
	deps := c.CheckDependencies(context.Background())
	if !deps["pandoc"] {
		t.Error("pandoc reported unavailable")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
dirs:
  base: /tmp/work
pandoc:
  binary: /usr/local/bin/pandoc
  math_engine: webtex
images_folder: figures
generic:
  em_delimiter: "_"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Dirs.Base != "/tmp/work" {
		t.Errorf("base = %q", cfg.Dirs.Base)
	}
	if cfg.Pandoc.Binary != "/usr/local/bin/pandoc" || cfg.Pandoc.MathEngine != "webtex" {
		t.Errorf("pandoc = %+v", cfg.Pandoc)
	}
	if cfg.ImagesFolder != "figures" {
		t.Errorf("images_folder = %q", cfg.ImagesFolder)
	}
	if cfg.Generic.EmDelimiter != "_" {
		t.Errorf("em delimiter = %q", cfg.Generic.EmDelimiter)
	}

	cfg.defaults()
	if cfg.Dirs.Docx != "/tmp/work/docx" {
		t.Errorf("docx dir = %q", cfg.Dirs.Docx)
	}
}

func TestStatusTerminal(t *testing.T) {
	for s, want := range map[Status]bool{
		StatusPending:    false,
		StatusProcessing: false,
		StatusCompleted:  true,
		StatusFailed:     true,
	} {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v", s, got)
		}
	}
}
