package convert

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/docmd/htmlmd"
)

// Dirs is the working directory layout: uploaded DOCX files, intermediate
// HTML, and final Markdown each live in their own subfolder.
type Dirs struct {
	Base     string `yaml:"base"`
	Docx     string `yaml:"docx"`
	HTML     string `yaml:"html"`
	Markdown string `yaml:"markdown"`
}

func (d *Dirs) defaults() {
	if d.Base == "" {
		d.Base = "data"
	}
	if d.Docx == "" {
		d.Docx = d.Base + "/docx"
	}
	if d.HTML == "" {
		d.HTML = d.Base + "/html"
	}
	if d.Markdown == "" {
		d.Markdown = d.Base + "/md"
	}
}

// Create makes all working directories.
func (d Dirs) Create() error {
	for _, dir := range []string{d.Base, d.Docx, d.HTML, d.Markdown} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// PandocConfig controls the upstream DOCX→HTML subprocess.
type PandocConfig struct {
	// Binary is the pandoc executable (default: "pandoc").
	Binary string `yaml:"binary"`
	// Timeout bounds one pandoc invocation (default: 5m).
	Timeout time.Duration `yaml:"timeout"`
	// MathEngine is the default math rendering engine: mathml, webtex, or
	// katex (default: mathml).
	MathEngine string `yaml:"math_engine"`
	// TOCDepth is the table-of-contents depth when a TOC is requested
	// (default: 4).
	TOCDepth int `yaml:"toc_depth"`
}

func (p *PandocConfig) defaults() {
	if p.Binary == "" {
		p.Binary = "pandoc"
	}
	if p.Timeout <= 0 {
		p.Timeout = 5 * time.Minute
	}
	if p.MathEngine == "" {
		p.MathEngine = "mathml"
	}
	if p.TOCDepth <= 0 {
		p.TOCDepth = 4
	}
}

// Config configures a Converter.
type Config struct {
	Dirs   Dirs         `yaml:"dirs"`
	Pandoc PandocConfig `yaml:"pandoc"`

	// ImagesFolder is the media folder name co-located with the Markdown
	// output (default: "images").
	ImagesFolder string `yaml:"images_folder"`

	// Generic tunes the generic HTML→Markdown conversion stage.
	Generic htmlmd.Options `yaml:"generic"`

	// Logger for pipeline progress and degradation warnings.
	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	c.Dirs.defaults()
	c.Pandoc.defaults()
	if c.ImagesFolder == "" {
		c.ImagesFolder = "images"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
