package watermark

import (
	"context"
	"runtime"
	"sync"
)

// Pair is one input/output file pair for batch stamping.
type Pair struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// FileResult is the final outcome for one file after all rounds.
type FileResult struct {
	Input    string `json:"input"`
	Output   string `json:"output"`
	Success  bool   `json:"success"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// BatchOptions tunes a batch run.
type BatchOptions struct {
	// Workers bounds concurrent stampings (default: GOMAXPROCS, capped at
	// the batch size).
	Workers int `yaml:"workers"`
	// MaxRetries is the number of retry rounds after the initial one
	// (default: 3).
	MaxRetries int `yaml:"max_retries"`
}

func (o *BatchOptions) defaults(batchSize int) {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Workers > batchSize {
		o.Workers = batchSize
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
}

// StampBatch stamps many files through a bounded worker pool. Failures of
// one round become the entire input of the next round, up to MaxRetries
// extra rounds, stopping early once a round is clean. Results come back in
// the order of pairs; Attempts counts every round a file went through.
func (s *Stamper) StampBatch(ctx context.Context, pairs []Pair, opts BatchOptions) []FileResult {
	if len(pairs) == 0 {
		return nil
	}
	opts.defaults(len(pairs))

	byInput := make(map[string]*FileResult, len(pairs))
	results := make([]FileResult, len(pairs))
	for i, p := range pairs {
		results[i] = FileResult{Input: p.Input, Output: p.Output}
		byInput[p.Input] = &results[i]
	}

	remaining := pairs
	for round := 0; round <= opts.MaxRetries && len(remaining) > 0; round++ {
		if ctx.Err() != nil {
			break
		}
		if round > 0 {
			s.cfg.Logger.Info("retrying failed stampings",
				"round", round, "files", len(remaining))
		}

		failed := s.runRound(ctx, remaining, opts.Workers, byInput)

		s.cfg.Logger.Info("stamping round finished",
			"round", round,
			"processed", len(remaining),
			"failed", len(failed))
		remaining = failed
	}
	if len(remaining) > 0 {
		s.cfg.Logger.Warn("stampings exhausted retries", "files", len(remaining))
	}
	return results
}

// runRound stamps one round's pairs concurrently and returns the pairs
// that failed.
func (s *Stamper) runRound(ctx context.Context, pairs []Pair, workers int, byInput map[string]*FileResult) []Pair {
	jobs := make(chan Pair)
	var mu sync.Mutex
	var failed []Pair

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				err := ctx.Err()
				if err == nil {
					err = s.stamp(p.Input, p.Output)
				}
				mu.Lock()
				res := byInput[p.Input]
				res.Attempts++
				if err != nil {
					res.Success = false
					res.Error = err.Error()
					failed = append(failed, p)
				} else {
					res.Success = true
					res.Error = ""
				}
				mu.Unlock()
			}
		}()
	}

	for _, p := range pairs {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
	return failed
}
