// Package pdfexport renders HTML documents to PDF with headless Chrome and
// validates the result before handing it back.
package pdfexport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// A4 page dimensions in inches.
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
	marginInches      = 0.5
)

// Config configures an Exporter.
type Config struct {
	// Timeout bounds one page render (default: 60s).
	Timeout time.Duration `yaml:"timeout"`
	// BrowserBin points at a pre-installed Chrome/Chromium binary. Empty
	// lets rod manage its own browser download.
	BrowserBin string `yaml:"browser_bin"`
	// NoSandbox disables the Chrome sandbox for containerized runs.
	NoSandbox bool `yaml:"no_sandbox"`
	// Logger for render progress.
	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Exporter renders local HTML files to PDF. The browser is launched lazily
// on first use and reused across renders; Close releases it.
type Exporter struct {
	cfg Config

	mu      sync.Mutex
	browser *rod.Browser

	// render and validate are swapped in tests so no browser is needed.
	render   func(ctx context.Context, htmlPath string) ([]byte, error)
	validate func(pdfPath string) error
}

// New creates an Exporter.
func New(cfg Config) *Exporter {
	cfg.defaults()
	e := &Exporter{cfg: cfg}
	e.render = e.renderFile
	e.validate = Validate
	return e
}

// ExportFile renders htmlPath to a validated PDF at pdfPath. A file that
// fails validation is removed, leaving no corrupt artifact behind.
func (e *Exporter) ExportFile(ctx context.Context, htmlPath, pdfPath string) error {
	if _, err := os.Stat(htmlPath); err != nil {
		return fmt.Errorf("pdfexport: input not found: %s", htmlPath)
	}
	data, err := e.render(ctx, htmlPath)
	if err != nil {
		return fmt.Errorf("pdfexport: render %s: %w", htmlPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(pdfPath), 0o755); err != nil {
		return fmt.Errorf("pdfexport: %w", err)
	}
	if err := os.WriteFile(pdfPath, data, 0o644); err != nil {
		return fmt.Errorf("pdfexport: write %s: %w", pdfPath, err)
	}
	if err := e.validate(pdfPath); err != nil {
		os.Remove(pdfPath)
		return fmt.Errorf("pdfexport: produced PDF is invalid: %w", err)
	}
	e.cfg.Logger.Debug("exported pdf", "html", htmlPath, "pdf", pdfPath, "bytes", len(data))
	return nil
}

// Validate checks a PDF file's structure.
func Validate(path string) error {
	return api.ValidateFile(path, model.NewDefaultConfiguration())
}

// Close releases the browser, if one was launched.
func (e *Exporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.browser == nil {
		return nil
	}
	err := e.browser.Close()
	e.browser = nil
	return err
}

// ensureBrowser lazily launches and connects the browser.
func (e *Exporter) ensureBrowser() (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.browser != nil {
		return e.browser, nil
	}

	l := launcher.New()
	if e.cfg.BrowserBin != "" {
		l = l.Bin(e.cfg.BrowserBin)
	}
	if e.cfg.NoSandbox {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	e.browser = browser
	return browser, nil
}

// renderFile opens a local HTML file in the browser and prints it to PDF.
func (e *Exporter) renderFile(ctx context.Context, htmlPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browser, err := e.ensureBrowser()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return nil, err
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "file://" + abs})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	timeout := e.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PaperWidth:      floatPtr(paperWidthInches),
		PaperHeight:     floatPtr(paperHeightInches),
		MarginTop:       floatPtr(marginInches),
		MarginBottom:    floatPtr(marginInches),
		MarginLeft:      floatPtr(marginInches),
		MarginRight:     floatPtr(marginInches),
		PrintBackground: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	return io.ReadAll(reader)
}

func floatPtr(v float64) *float64 { return &v }
