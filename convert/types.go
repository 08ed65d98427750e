package convert

import (
	"time"

	"github.com/hazyhaar/docmd/htmlmd"
)

// Status is the lifecycle state of a conversion task or batch.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Step records the outcome of one pipeline stage.
type Step struct {
	Name       string         `json:"step_name"`
	Success    bool           `json:"success"`
	DurationMS int64          `json:"duration_ms"`
	Details    map[string]any `json:"details,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Statistics aggregates per-conversion numbers. TotalDurationMS is the sum
// of recorded step durations, not the wall clock of the whole call, so
// cleanup work after the last recorded step is excluded.
type Statistics struct {
	Tables          int   `json:"tables_count"`
	MathExpressions int   `json:"math_count"`
	Images          int   `json:"images_count"`
	OutputLength    int   `json:"output_length"`
	TotalDurationMS int64 `json:"total_duration_ms"`
}

// Result is the outcome of converting a single document. It is created at
// pipeline start, mutated only by the orchestrator, and immutable once
// Status is terminal.
type Result struct {
	TaskID       string               `json:"task_id"`
	Status       Status               `json:"status"`
	InputFile    string               `json:"input_file"`
	InputPath    string               `json:"input_path,omitempty"`
	HTMLPath     string               `json:"html_path,omitempty"`
	MarkdownPath string               `json:"markdown_path,omitempty"`
	Steps        []Step               `json:"steps"`
	Images       []htmlmd.ImageRecord `json:"images,omitempty"`
	Stats        Statistics           `json:"statistics"`
	Error        string               `json:"error,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
}

// BatchResult aggregates one sequential batch run. Status is "failed" only
// when zero documents completed; a batch with partial failures still
// reports "completed" and callers must inspect per-document results.
type BatchResult struct {
	BatchID     string     `json:"batch_id"`
	TotalFiles  int        `json:"total_files"`
	Completed   int        `json:"completed_files"`
	Failed      int        `json:"failed_files"`
	Results     []*Result  `json:"results"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Options are the per-request conversion knobs.
type Options struct {
	// PreserveImages keeps discovered image records on the result.
	PreserveImages bool `json:"preserve_images"`
	// IncludeTOC asks the upstream converter for a table of contents.
	IncludeTOC bool `json:"include_toc"`
	// MathEngine overrides the configured pandoc math engine.
	MathEngine string `json:"math_engine,omitempty"`
	// CleanupTemp removes the intermediate HTML file after conversion.
	CleanupTemp bool `json:"cleanup_temp"`
}

// DefaultOptions mirrors the service defaults.
func DefaultOptions() Options {
	return Options{
		PreserveImages: true,
		IncludeTOC:     true,
		CleanupTemp:    true,
	}
}
