package optimizer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pixelmill-server-go/internal/domain/eventbus"
)

// ItemError ties a failed batch item back to its input position.
type ItemError struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	Err   error  `json:"-"`
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (%s): %v", e.Index, e.Path, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// BatchResult collects per-item outcomes. Results keep input order; failed
// items appear in Errors instead.
type BatchResult struct {
	JobID   string       `json:"job_id"`
	Results []*Result    `json:"results"`
	Errors  []*ItemError `json:"errors"`
}

// OptimizeImages expands the patterns and optimizes each matched path with
// bounded concurrency. Per-item failures land in the errors list; only
// context cancellation aborts the whole batch.
func (o *Optimizer) OptimizeImages(ctx context.Context, patterns []string, opts Options) (*BatchResult, error) {
	paths, err := expandPatterns(patterns)
	if err != nil {
		return nil, err
	}

	job := o.jobs.Start(patterns, len(paths))
	start := time.Now()

	results := make([]*Result, len(paths))
	var (
		mu       sync.Mutex
		itemErrs []*ItemError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrent)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := o.OptimizeImage(gctx, path, opts)
			if err != nil {
				mu.Lock()
				itemErrs = append(itemErrs, &ItemError{Index: i, Path: path, Err: err})
				mu.Unlock()
				if o.logger != nil {
					o.logger.WarnTag("BATCH", "item %d (%s) failed: %v", i, path, err)
				}
				return nil
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		succeeded := 0
		for _, r := range results {
			if r != nil {
				succeeded++
			}
		}
		o.jobs.Cancel(job.ID, succeeded, len(itemErrs))
		return nil, err
	}

	compacted := make([]*Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			compacted = append(compacted, r)
		}
	}

	o.jobs.Complete(job.ID, len(compacted), len(itemErrs))
	eventbus.PublishAsync(eventbus.EventBatchCompleted, eventbus.BatchEventData{
		JobID:      job.ID,
		Total:      len(paths),
		Succeeded:  len(compacted),
		Failed:     len(itemErrs),
		DurationMs: time.Since(start).Milliseconds(),
	})

	return &BatchResult{
		JobID:   job.ID,
		Results: compacted,
		Errors:  itemErrs,
	}, nil
}

// expandPatterns resolves glob patterns to concrete paths. A literal path
// without glob metacharacters passes through untouched so a missing file
// still surfaces as a per-item error instead of silently matching nothing.
func expandPatterns(patterns []string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[") {
			paths = append(paths, pattern)
			continue
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}
