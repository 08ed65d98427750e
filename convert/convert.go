// Package convert orchestrates the full document conversion pipeline:
// DOCX→HTML through pandoc, then HTML→Markdown through htmlmd. Every run
// produces a Result with per-step timing whether it succeeds or not.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/docmd/htmlmd"
	"github.com/hazyhaar/docmd/idgen"
)

// docxRunner is the DOCX→HTML stage, satisfied by PandocRunner and by test
// fakes.
type docxRunner interface {
	ConvertToHTML(ctx context.Context, docxPath, htmlPath, imagesFolder string, opts Options) (*PandocOutput, error)
	Available(ctx context.Context) bool
}

// Converter runs the two-stage pipeline and owns the working directories.
type Converter struct {
	cfg    Config
	runner docxRunner
	proc   *htmlmd.Processor
	logger *slog.Logger
	newID  idgen.Generator
}

// New creates a Converter and its working directories.
func New(cfg Config) (*Converter, error) {
	cfg.defaults()
	if err := cfg.Dirs.Create(); err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	proc, err := htmlmd.New(htmlmd.Config{
		ImagesDir: cfg.ImagesFolder,
		Options:   cfg.Generic,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	return &Converter{
		cfg:    cfg,
		runner: NewPandocRunner(cfg.Pandoc, cfg.Logger),
		proc:   proc,
		logger: cfg.Logger,
		newID:  idgen.Default,
	}, nil
}

// ConvertDocument runs the pipeline on one DOCX file under the docx dir.
// It never returns an error: every failure mode, including a panic in a
// pipeline stage, is captured on the Result.
func (c *Converter) ConvertDocument(ctx context.Context, filename string, opts Options) *Result {
	res := &Result{
		TaskID:    c.newID(),
		Status:    StatusProcessing,
		InputFile: filename,
		CreatedAt: time.Now().UTC(),
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("conversion panicked", "file", filename, "panic", r)
			c.fail(res, fmt.Sprintf("internal error: %v", r))
		}
	}()

	inputPath := filepath.Join(c.cfg.Dirs.Docx, filename)
	if _, err := os.Stat(inputPath); err != nil {
		c.fail(res, fmt.Sprintf("input not found: %s", filename))
		return res
	}
	res.InputPath = inputPath

	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	htmlPath := filepath.Join(c.cfg.Dirs.HTML, stem+".html")

	// Stage 1: DOCX → HTML.
	start := time.Now()
	out, err := c.runner.ConvertToHTML(ctx, inputPath, htmlPath, c.cfg.ImagesFolder, opts)
	step := Step{Name: "docx_to_html", DurationMS: time.Since(start).Milliseconds()}
	if err != nil {
		step.Error = err.Error()
		res.Steps = append(res.Steps, step)
		c.fail(res, "docx_to_html: "+err.Error())
		return res
	}
	step.Success = true
	step.Details = map[string]any{
		"html_path":   out.HTMLPath,
		"image_count": out.ImageCount,
	}
	res.Steps = append(res.Steps, step)
	res.HTMLPath = out.HTMLPath

	// Stage 2: HTML → Markdown.
	start = time.Now()
	mdRes, mdPath, err := c.htmlToMarkdown(out.HTMLPath, stem)
	step = Step{Name: "html_to_markdown", DurationMS: time.Since(start).Milliseconds()}
	if err != nil {
		step.Error = err.Error()
		res.Steps = append(res.Steps, step)
		c.fail(res, "html_to_markdown: "+err.Error())
		return res
	}
	step.Success = true
	step.Details = map[string]any{
		"markdown_path": mdPath,
		"tables":        mdRes.Tables,
		"math":          mdRes.MathExpressions,
		"images":        len(mdRes.Images),
	}
	res.Steps = append(res.Steps, step)

	res.MarkdownPath = mdPath
	if opts.PreserveImages {
		res.Images = mdRes.Images
	}
	res.Stats = Statistics{
		Tables:          mdRes.Tables,
		MathExpressions: mdRes.MathExpressions,
		Images:          len(mdRes.Images),
		OutputLength:    mdRes.OutputLength,
	}
	for _, s := range res.Steps {
		res.Stats.TotalDurationMS += s.DurationMS
	}

	// Temp cleanup happens after the last recorded step and never affects
	// the outcome.
	if opts.CleanupTemp {
		if err := os.Remove(out.HTMLPath); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("could not remove intermediate html", "path", out.HTMLPath, "error", err)
		} else {
			res.HTMLPath = ""
		}
	}

	res.Status = StatusCompleted
	now := time.Now().UTC()
	res.CompletedAt = &now
	c.logger.Info("document converted",
		"task_id", res.TaskID,
		"file", filename,
		"tables", res.Stats.Tables,
		"math", res.Stats.MathExpressions,
		"images", res.Stats.Images,
		"duration_ms", res.Stats.TotalDurationMS)
	return res
}

func (c *Converter) htmlToMarkdown(htmlPath, stem string) (*htmlmd.Result, string, error) {
	data, err := os.ReadFile(htmlPath)
	if err != nil {
		return nil, "", err
	}
	mdRes, err := c.proc.Convert(data)
	if err != nil {
		return nil, "", err
	}
	mdPath := filepath.Join(c.cfg.Dirs.Markdown, stem+".md")
	if err := os.WriteFile(mdPath, []byte(mdRes.Markdown), 0o644); err != nil {
		return nil, "", err
	}
	return mdRes, mdPath, nil
}

func (c *Converter) fail(res *Result, msg string) {
	res.Status = StatusFailed
	res.Error = msg
	for _, s := range res.Steps {
		res.Stats.TotalDurationMS += s.DurationMS
	}
	now := time.Now().UTC()
	res.CompletedAt = &now
	c.logger.Warn("conversion failed", "task_id", res.TaskID, "file", res.InputFile, "error", msg)
}

// ConvertBatch converts files sequentially. One failed document does not
// stop the batch, and the batch reports failed only when nothing completed.
func (c *Converter) ConvertBatch(ctx context.Context, filenames []string, opts Options) *BatchResult {
	batch := &BatchResult{
		BatchID:    c.newID(),
		TotalFiles: len(filenames),
		Status:     StatusProcessing,
		CreatedAt:  time.Now().UTC(),
	}
	for _, name := range filenames {
		res := c.ConvertDocument(ctx, name, opts)
		batch.Results = append(batch.Results, res)
		if res.Status == StatusCompleted {
			batch.Completed++
		} else {
			batch.Failed++
		}
	}
	if batch.Completed == 0 && batch.TotalFiles > 0 {
		batch.Status = StatusFailed
	} else {
		batch.Status = StatusCompleted
	}
	now := time.Now().UTC()
	batch.CompletedAt = &now
	c.logger.Info("batch finished",
		"batch_id", batch.BatchID,
		"total", batch.TotalFiles,
		"completed", batch.Completed,
		"failed", batch.Failed)
	return batch
}

// AvailableDocuments lists convertible files in the docx dir, skipping
// Office lock files (the "~$" prefix).
func (c *Converter) AvailableDocuments() ([]string, error) {
	entries, err := os.ReadDir(c.cfg.Dirs.Docx)
	if err != nil {
		return nil, fmt.Errorf("convert: list documents: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".docx") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// CheckDependencies reports the availability of external tooling.
func (c *Converter) CheckDependencies(ctx context.Context) map[string]bool {
	return map[string]bool{
		"pandoc": c.runner.Available(ctx),
	}
}
