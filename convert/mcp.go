package convert

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// mcpVersion is reported in the MCP handshake.
const mcpVersion = "0.1.0"

// NewMCPServer creates an MCP server exposing the conversion tools.
func NewMCPServer(c *Converter) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "docmd",
		Version: mcpVersion,
	}, nil)
	c.RegisterMCP(srv)
	return srv
}

// RegisterMCP registers the conversion tools on an MCP server.
func (c *Converter) RegisterMCP(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "docmd_convert",
		Description: "Convert a DOCX document from the working directory to Markdown, preserving tables, math, and images.",
	}, c.handleConvert)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "docmd_convert_batch",
		Description: "Convert several DOCX documents sequentially. Individual failures do not stop the batch.",
	}, c.handleConvertBatch)
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "docmd_formats",
		Description: "List available documents in the working directory and the status of external dependencies.",
	}, c.handleFormats)
}

// ConvertInput is the docmd_convert input schema.
type ConvertInput struct {
	Filename   string `json:"filename" jsonschema:"name of a DOCX file in the working docx directory"`
	IncludeTOC *bool  `json:"include_toc,omitempty" jsonschema:"include a table of contents (default true)"`
	MathEngine string `json:"math_engine,omitempty" jsonschema:"math rendering engine: mathml, webtex, or katex"`
}

func (in ConvertInput) options() Options {
	opts := DefaultOptions()
	if in.IncludeTOC != nil {
		opts.IncludeTOC = *in.IncludeTOC
	}
	opts.MathEngine = in.MathEngine
	return opts
}

func (c *Converter) handleConvert(ctx context.Context, _ *mcp.CallToolRequest, in ConvertInput) (*mcp.CallToolResult, *Result, error) {
	if in.Filename == "" {
		return nil, nil, fmt.Errorf("filename is required")
	}
	res := c.ConvertDocument(ctx, in.Filename, in.options())
	return nil, res, nil
}

// BatchInput is the docmd_convert_batch input schema.
type BatchInput struct {
	Filenames  []string `json:"filenames" jsonschema:"DOCX files to convert; empty converts every available document"`
	IncludeTOC *bool    `json:"include_toc,omitempty" jsonschema:"include a table of contents (default true)"`
	MathEngine string   `json:"math_engine,omitempty" jsonschema:"math rendering engine: mathml, webtex, or katex"`
}

func (c *Converter) handleConvertBatch(ctx context.Context, _ *mcp.CallToolRequest, in BatchInput) (*mcp.CallToolResult, *BatchResult, error) {
	names := in.Filenames
	if len(names) == 0 {
		var err error
		names, err = c.AvailableDocuments()
		if err != nil {
			return nil, nil, err
		}
	}
	opts := DefaultOptions()
	if in.IncludeTOC != nil {
		opts.IncludeTOC = *in.IncludeTOC
	}
	opts.MathEngine = in.MathEngine
	return nil, c.ConvertBatch(ctx, names, opts), nil
}

// FormatsInput is the docmd_formats input schema.
type FormatsInput struct{}

// FormatsOutput lists documents and dependency status.
type FormatsOutput struct {
	Documents    []string        `json:"documents"`
	Dependencies map[string]bool `json:"dependencies"`
}

func (c *Converter) handleFormats(ctx context.Context, _ *mcp.CallToolRequest, _ FormatsInput) (*mcp.CallToolResult, FormatsOutput, error) {
	docs, err := c.AvailableDocuments()
	if err != nil {
		return nil, FormatsOutput{}, err
	}
	return nil, FormatsOutput{
		Documents:    docs,
		Dependencies: c.CheckDependencies(ctx),
	}, nil
}
