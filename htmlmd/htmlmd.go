// Package htmlmd converts the HTML dialect produced by the upstream
// document converter into clean Markdown, preserving tables, math notation,
// and images that a generic HTML→text conversion would flatten or drop.
//
// The pipeline for one document is strictly linear: parse the HTML into a
// tree, extract every special element into a placeholder map (mutating the
// tree), run the stripped tree through the generic converter, restore each
// placeholder with its precomputed markdown, and apply the cleanup
// normalizations. Conversions on independent documents are safe to run
// concurrently; each owns its tree and placeholder map.
//
// Usage:
//
//	proc, err := htmlmd.New(htmlmd.Config{})
//	res, err := proc.Convert(htmlBytes)
//	fmt.Println(res.Markdown, res.Tables, res.MathExpressions, len(res.Images))
package htmlmd

import (
	"fmt"
	"log/slog"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"github.com/hazyhaar/docmd/markup"
)

// Config configures a Processor.
type Config struct {
	// ImagesDir is the folder name image references are rewritten under
	// (default: "images"), matching the media layout of the upstream
	// extraction step.
	ImagesDir string `json:"images_dir" yaml:"images_dir"`

	// Options tunes the generic conversion stage only.
	Options Options `json:"options" yaml:"options"`

	// Logger for debug/warn messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.ImagesDir == "" {
		c.ImagesDir = "images"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Processor converts HTML documents to Markdown. Safe for concurrent use;
// per-document state lives in the conversion, not the Processor.
type Processor struct {
	cfg    Config
	conv   *converter.Converter
	logger *slog.Logger
}

// New creates a Processor, validating the generic-converter options.
func New(cfg Config) (*Processor, error) {
	cfg.defaults()
	if err := cfg.Options.Validate(); err != nil {
		return nil, fmt.Errorf("htmlmd: %w", err)
	}
	return &Processor{
		cfg:    cfg,
		conv:   newConverter(cfg.Options),
		logger: cfg.Logger,
	}, nil
}

// Convert transforms one HTML document into Markdown.
//
// Degraded elements (tables with inconsistent rows, math with no extractable
// content) never fail the conversion; only a parse or generic-conversion
// error does.
func (p *Processor) Convert(data []byte) (*Result, error) {
	doc, err := markup.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("htmlmd: %w", err)
	}

	ex := p.extract(doc)

	out, err := p.conv.ConvertNode(doc)
	if err != nil {
		return nil, fmt.Errorf("htmlmd: generic conversion: %w", err)
	}
	md := string(out)

	if p.cfg.Options.ASCIIPunctuation {
		md = asciiPunctuation(md)
	}
	md = wrapLines(md, p.cfg.Options.WrapWidth)

	md = restore(md, ex.placeholders)
	md = Clean(md)

	res := &Result{
		Markdown:        md,
		Tables:          ex.placeholders.count(kindTable),
		MathExpressions: ex.placeholders.count(kindMath),
		Images:          ex.images,
		OutputLength:    len(md),
	}

	p.logger.Debug("converted html to markdown",
		"tables", res.Tables,
		"math", res.MathExpressions,
		"images", len(res.Images),
		"output_length", res.OutputLength)

	return res, nil
}
