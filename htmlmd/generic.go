package htmlmd

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"

	"github.com/hazyhaar/docmd/markup"
)

// Options configures the generic HTML→Markdown conversion stage. It only
// affects prose handling; tables, math, and images never reach the generic
// converter. All fields are validated at Processor construction.
type Options struct {
	// SuppressLinks renders anchor text without link syntax.
	SuppressLinks bool `json:"suppress_links" yaml:"suppress_links"`
	// SuppressImages drops any image that survived extraction.
	SuppressImages bool `json:"suppress_images" yaml:"suppress_images"`
	// SkipInternalLinks renders fragment-only links (href="#…") as text.
	SkipInternalLinks bool `json:"skip_internal_links" yaml:"skip_internal_links"`
	// PlainInlineCode renders code spans without backtick marking.
	PlainInlineCode bool `json:"plain_inline_code" yaml:"plain_inline_code"`
	// EmDelimiter is the emphasis delimiter, "*" or "_". Empty keeps the
	// converter default.
	EmDelimiter string `json:"em_delimiter" yaml:"em_delimiter"`
	// StrongDelimiter is the strong-emphasis delimiter, "**" or "__".
	StrongDelimiter string `json:"strong_delimiter" yaml:"strong_delimiter"`
	// WrapWidth soft-wraps prose lines at the given column. 0 disables
	// wrapping.
	WrapWidth int `json:"wrap_width" yaml:"wrap_width"`
	// ASCIIPunctuation downgrades typographic punctuation (smart quotes,
	// dashes, ellipsis, non-breaking spaces) to ASCII equivalents. False
	// keeps the source text's unicode untouched.
	ASCIIPunctuation bool `json:"ascii_punctuation" yaml:"ascii_punctuation"`
}

// Validate checks field values that have a closed domain.
func (o *Options) Validate() error {
	switch o.EmDelimiter {
	case "", "*", "_":
	default:
		return fmt.Errorf("em_delimiter must be \"*\" or \"_\", got %q", o.EmDelimiter)
	}
	switch o.StrongDelimiter {
	case "", "**", "__":
	default:
		return fmt.Errorf("strong_delimiter must be \"**\" or \"__\", got %q", o.StrongDelimiter)
	}
	if o.WrapWidth < 0 {
		return fmt.Errorf("wrap_width must be >= 0, got %d", o.WrapWidth)
	}
	return nil
}

// newConverter builds the generic converter with the base and commonmark
// plugins, plus renderer overrides for the suppression options.
func newConverter(o Options) *converter.Converter {
	var cmOpts []commonmark.OptionFunc
	if o.EmDelimiter != "" {
		cmOpts = append(cmOpts, commonmark.WithEmDelimiter(o.EmDelimiter))
	}
	if o.StrongDelimiter != "" {
		cmOpts = append(cmOpts, commonmark.WithStrongDelimiter(o.StrongDelimiter))
	}

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(cmOpts...),
		),
	)

	renderChildren := func(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
		ctx.RenderChildNodes(ctx, w, n)
		return converter.RenderSuccess
	}

	if o.SuppressLinks {
		conv.Register.RendererFor("a", converter.TagTypeInline, renderChildren, converter.PriorityEarly)
	} else if o.SkipInternalLinks {
		conv.Register.RendererFor("a", converter.TagTypeInline,
			func(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
				if strings.HasPrefix(markup.Attr(n, "href"), "#") {
					ctx.RenderChildNodes(ctx, w, n)
					return converter.RenderSuccess
				}
				return converter.RenderTryNext
			}, converter.PriorityEarly)
	}

	if o.SuppressImages {
		conv.Register.RendererFor("img", converter.TagTypeInline,
			func(_ converter.Context, _ converter.Writer, _ *html.Node) converter.RenderStatus {
				return converter.RenderSuccess
			}, converter.PriorityEarly)
	}

	if o.PlainInlineCode {
		conv.Register.RendererFor("code", converter.TagTypeInline, renderChildren, converter.PriorityEarly)
	}

	return conv
}

var asciiReplacer = strings.NewReplacer(
	" ", " ",
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "--",
	"…", "...",
)

// asciiPunctuation downgrades typographic punctuation to ASCII.
func asciiPunctuation(s string) string {
	return asciiReplacer.Replace(s)
}

// wrapLines soft-wraps each line at the given width, breaking only at
// spaces. Words longer than the width (placeholder tokens included) are
// never split.
func wrapLines(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if len(line) <= width || strings.TrimSpace(line) == "" {
			continue
		}
		var out strings.Builder
		lineLen := 0
		for _, word := range strings.Fields(line) {
			if lineLen > 0 && lineLen+1+len(word) > width {
				out.WriteByte('\n')
				lineLen = 0
			} else if lineLen > 0 {
				out.WriteByte(' ')
				lineLen++
			}
			out.WriteString(word)
			lineLen += len(word)
		}
		lines[i] = out.String()
	}
	return strings.Join(lines, "\n")
}
