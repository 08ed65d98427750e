package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/docmd/markup"
)

// ErrPandocNotFound indicates the pandoc binary is not installed.
var ErrPandocNotFound = errors.New("pandoc not found")

// PandocRunner shells out to pandoc for the DOCX→HTML step. The subprocess
// carries its own timeout; the rest of the pipeline is pure in-process text
// transformation.
type PandocRunner struct {
	cfg    PandocConfig
	logger *slog.Logger
}

// NewPandocRunner creates a runner from config.
func NewPandocRunner(cfg PandocConfig, logger *slog.Logger) *PandocRunner {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &PandocRunner{cfg: cfg, logger: logger}
}

// PandocOutput reports one successful DOCX→HTML conversion.
type PandocOutput struct {
	HTMLPath   string `json:"html_path"`
	ImagesPath string `json:"images_path"`
	ImageCount int    `json:"image_count"`
}

// Available reports whether the pandoc binary responds to --version.
func (r *PandocRunner) Available(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, r.cfg.Binary, "--version")
	return cmd.Run() == nil
}

// ConvertToHTML runs pandoc on a DOCX file, extracting media next to the
// HTML output, then rewrites every image source in the produced HTML to
// point into the media folder by bare filename.
func (r *PandocRunner) ConvertToHTML(ctx context.Context, docxPath, htmlPath, imagesFolder string, opts Options) (*PandocOutput, error) {
	if _, err := os.Stat(docxPath); err != nil {
		return nil, fmt.Errorf("input not found: %s", docxPath)
	}
	if err := os.MkdirAll(filepath.Dir(htmlPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	imagesPath := filepath.Join(filepath.Dir(htmlPath), imagesFolder)
	if err := os.MkdirAll(imagesPath, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}

	engine := opts.MathEngine
	if engine == "" {
		engine = r.cfg.MathEngine
	}

	args := []string{
		docxPath,
		"-o", htmlPath,
		"--extract-media=" + imagesPath,
		"--standalone",
		"--" + engine,
	}
	if opts.IncludeTOC {
		args = append(args, "--toc", fmt.Sprintf("--toc-depth=%d", r.cfg.TOCDepth))
	}
	stem := strings.TrimSuffix(filepath.Base(docxPath), filepath.Ext(docxPath))
	args = append(args, "--metadata", "title="+stem)

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.cfg.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug("running pandoc", "args", args)
	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("pandoc timed out after %s", r.cfg.Timeout)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrPandocNotFound
		}
		return nil, fmt.Errorf("pandoc failed: %s", strings.TrimSpace(stderr.String()))
	}

	imageCount := countFiles(imagesPath)

	if err := fixImagePaths(htmlPath, imagesFolder); err != nil {
		// Path fixing is best-effort; the markdown stage re-normalizes
		// sources anyway.
		r.logger.Warn("could not fix image paths in html", "path", htmlPath, "error", err)
	}

	return &PandocOutput{
		HTMLPath:   htmlPath,
		ImagesPath: imagesPath,
		ImageCount: imageCount,
	}, nil
}

func countFiles(dir string) int {
	n := 0
	filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return nil
	})
	return n
}

// fixImagePaths rewrites img sources in a pandoc-produced HTML file to
// "<imagesFolder>/media/<filename>", matching where --extract-media puts
// the files relative to the HTML document.
func fixImagePaths(htmlPath, imagesFolder string) error {
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		return err
	}

	doc, err := markup.Parse(data)
	if err != nil {
		return err
	}

	fixed := 0
	for _, img := range markup.FindAll(doc, func(n *html.Node) bool { return markup.IsTag(n, "img") }) {
		src := markup.Attr(img, "src")
		if src == "" {
			continue
		}
		markup.SetAttr(img, "src", imagesFolder+"/media/"+filepath.Base(src))
		fixed++
	}
	if fixed == 0 {
		return nil
	}

	return os.WriteFile(htmlPath, []byte(markup.Render(doc)), 0o644)
}
