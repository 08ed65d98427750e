// Package watermark stamps a tagged watermark paragraph into the headers of
// DOCX documents by rewriting the ZIP archive, and runs stampings in bulk
// through a bounded worker pool with round-based retry.
package watermark

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultTag marks stamped paragraphs so re-stamping can find and replace
// them instead of accumulating copies.
const DefaultTag = "docmd-watermark"

// Config configures a Stamper.
type Config struct {
	// Tag identifies stamped paragraphs. Must be a valid XML name fragment
	// (default: DefaultTag).
	Tag string `yaml:"tag"`
	// Text is the watermark text. Empty means a fresh timestamp per stamp.
	Text string `yaml:"text"`
	// Logger for per-file progress.
	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Tag == "" {
		c.Tag = DefaultTag
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Stamper rewrites DOCX archives with a watermark paragraph in every header
// part. Safe for concurrent use.
type Stamper struct {
	cfg      Config
	oldMarks *regexp.Regexp
	now      func() time.Time

	// stamp is the per-file operation the batch runner drives; swapped in
	// tests to script failures.
	stamp func(inputPath, outputPath string) error
}

// New creates a Stamper.
func New(cfg Config) *Stamper {
	cfg.defaults()
	s := &Stamper{
		cfg: cfg,
		// Matches only paragraphs this stamper produced: the bookmark with
		// our tag is the first child of the paragraph.
		oldMarks: regexp.MustCompile(`(?s)<w:p><w:bookmarkStart w:id="\d+" w:name="` +
			regexp.QuoteMeta(cfg.Tag) + `"/>.*?</w:p>`),
		now: time.Now,
	}
	s.stamp = s.StampFile
	return s
}

// text returns the watermark text for one stamping.
func (s *Stamper) text() string {
	if s.cfg.Text != "" {
		return s.cfg.Text
	}
	return s.now().Format("2006-01-02 15.04.05") + "_watermarked"
}

// paragraph builds the header paragraph: centered, light gray, 36pt, led by
// a tagged bookmark so later stampings can strip it.
func (s *Stamper) paragraph(text string) string {
	return `<w:p><w:bookmarkStart w:id="900" w:name="` + s.cfg.Tag + `"/><w:bookmarkEnd w:id="900"/>` +
		`<w:pPr><w:jc w:val="center"/></w:pPr>` +
		`<w:r><w:rPr><w:color w:val="C8C8C8"/><w:sz w:val="72"/></w:rPr>` +
		`<w:t xml:space="preserve">` + xmlEscape(text) + `</w:t></w:r></w:p>`
}

func xmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

// isHeaderPart reports whether an archive entry is a header XML part.
func isHeaderPart(name string) bool {
	return strings.HasPrefix(name, "word/header") && strings.HasSuffix(name, ".xml")
}

// StampFile reads a DOCX at inputPath and writes a stamped copy to
// outputPath. Every header part gets the watermark paragraph; a document
// with no header parts gets it at the top of the body instead. Stamping an
// already stamped document replaces the previous mark.
func (s *Stamper) StampFile(inputPath, outputPath string) error {
	r, err := zip.OpenReader(inputPath)
	if err != nil {
		return fmt.Errorf("watermark: open %s: %w", inputPath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("watermark: %w", err)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("watermark: %w", err)
	}
	defer out.Close()

	text := s.text()
	para := s.paragraph(text)

	hasHeader := false
	for _, f := range r.File {
		if isHeaderPart(f.Name) {
			hasHeader = true
			break
		}
	}

	w := zip.NewWriter(out)
	stamped := 0
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			w.Close()
			return fmt.Errorf("watermark: open entry %s: %w", f.Name, err)
		}

		switch {
		case isHeaderPart(f.Name):
			if err := s.rewriteEntry(w, f, rc, para, "</w:hdr>"); err != nil {
				rc.Close()
				w.Close()
				return err
			}
			stamped++
		case !hasHeader && f.Name == "word/document.xml":
			if err := s.rewriteEntry(w, f, rc, para, "</w:body>"); err != nil {
				rc.Close()
				w.Close()
				return err
			}
			stamped++
		default:
			fw, err := w.CreateHeader(&zip.FileHeader{Name: f.Name, Method: f.Method})
			if err == nil {
				_, err = io.Copy(fw, rc)
			}
			if err != nil {
				rc.Close()
				w.Close()
				return fmt.Errorf("watermark: copy entry %s: %w", f.Name, err)
			}
		}
		rc.Close()
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("watermark: finalize %s: %w", outputPath, err)
	}
	if stamped == 0 {
		return fmt.Errorf("watermark: %s has no stampable parts", inputPath)
	}

	s.cfg.Logger.Debug("stamped document",
		"input", inputPath, "output", outputPath, "parts", stamped, "text", text)
	return nil
}

// rewriteEntry writes one XML part with old marks removed and the new
// paragraph inserted before the closing tag.
func (s *Stamper) rewriteEntry(w *zip.Writer, f *zip.File, rc io.Reader, para, closeTag string) error {
	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("watermark: read entry %s: %w", f.Name, err)
	}
	content := s.oldMarks.ReplaceAllString(string(data), "")
	if !strings.Contains(content, closeTag) {
		return fmt.Errorf("watermark: %s: no %s element", f.Name, closeTag)
	}
	content = strings.Replace(content, closeTag, para+closeTag, 1)

	fw, err := w.CreateHeader(&zip.FileHeader{Name: f.Name, Method: f.Method})
	if err != nil {
		return fmt.Errorf("watermark: create entry %s: %w", f.Name, err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		return fmt.Errorf("watermark: write entry %s: %w", f.Name, err)
	}
	return nil
}
