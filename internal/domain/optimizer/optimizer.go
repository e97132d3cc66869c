// Package optimizer is the top-level orchestrator: it composes the metadata
// extractor, rule engine, converter, responsive generator and placeholder
// pipeline into per-image and per-batch operations, and owns the conversion
// cache, metrics and job tracking.
package optimizer

import (
	"context"
	"time"

	"pixelmill-server-go/internal/domain/convert"
	"pixelmill-server-go/internal/domain/eventbus"
	domainimage "pixelmill-server-go/internal/domain/image"
	"pixelmill-server-go/internal/domain/responsive"
	"pixelmill-server-go/internal/domain/rules"
	"pixelmill-server-go/internal/platform/config"
	platformerrors "pixelmill-server-go/internal/platform/errors"
	"pixelmill-server-go/internal/utils"
)

// Options for one optimization call. Zero values defer to the rule engine's
// decisions and the configured defaults.
type Options struct {
	// Formats overrides the rule engine's candidate list when non-empty.
	Formats []domainimage.Format
	// Quality overrides every other quality source when positive.
	Quality int
	// Responsive forces responsive generation on or off; nil follows the
	// rule engine.
	Responsive *bool
	// Profile names the device profile for responsive generation.
	Profile string
	// Sizes is an explicit sizes attribute literal.
	Sizes string
	// Placeholder requests a blur placeholder alongside responsive output.
	Placeholder bool
	// Enhance applies the sharpen/normalize/gamma pipeline.
	Enhance bool
	// Suffix for non-responsive output keys. Defaults to "opt".
	Suffix string
}

// ResultMetadata summarizes one optimization.
type ResultMetadata struct {
	OptimizationTimeMs int64   `json:"optimization_time_ms"`
	TotalSavings       int64   `json:"total_savings"`
	CompressionRatio   float64 `json:"compression_ratio"`
}

// Result is the per-image output.
type Result struct {
	Original   *domainimage.SourceImage `json:"original"`
	Optimized  []convert.Variant        `json:"optimized"`
	Responsive *responsive.Set          `json:"responsive,omitempty"`
	Metadata   ResultMetadata           `json:"metadata"`
}

// Sink receives completed results for persistence. Persistence failures are
// logged, never surfaced to the optimization caller.
type Sink interface {
	SaveResult(ctx context.Context, result *Result) error
}

// Optimizer wires the pipeline stages together.
type Optimizer struct {
	extractor  *domainimage.Extractor
	engine     *rules.Engine
	converter  *convert.Converter
	responsive *responsive.Generator
	metrics    *Metrics
	jobs       *JobTracker
	logger     *utils.Logger

	maxConcurrent int
	sink          Sink
}

func New(
	extractor *domainimage.Extractor,
	engine *rules.Engine,
	converter *convert.Converter,
	generator *responsive.Generator,
	batch config.BatchConfig,
	logger *utils.Logger,
) *Optimizer {
	maxConcurrent := batch.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	return &Optimizer{
		extractor:     extractor,
		engine:        engine,
		converter:     converter,
		responsive:    generator,
		metrics:       NewMetrics(),
		jobs:          NewJobTracker(),
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

// SetSink attaches an optional persistence sink. Call before serving.
func (o *Optimizer) SetSink(sink Sink) {
	o.sink = sink
}

func (o *Optimizer) Metrics() *Metrics {
	return o.metrics
}

func (o *Optimizer) Jobs() *JobTracker {
	return o.jobs
}

// OptimizeImage runs the full per-image flow: extract, apply rules, convert
// each candidate format, then fan out responsive variants when enabled.
func (o *Optimizer) OptimizeImage(ctx context.Context, path string, opts Options) (*Result, error) {
	start := time.Now()

	src, err := o.extractor.Extract(path)
	if err != nil {
		return nil, err
	}

	cfg := o.engine.Apply(src)

	candidates := opts.Formats
	if len(candidates) == 0 {
		candidates = cfg.CandidateFormats
	}
	targets := o.viableTargets(candidates)
	if len(targets) == 0 {
		return nil, platformerrors.New(platformerrors.KindCodec, "optimize",
			"no encodable target format for "+path)
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = cfg.BaseQuality
	}

	result := &Result{Original: src}
	for _, target := range targets {
		variant, err := o.converter.Convert(ctx, src, target, convert.Options{
			Quality:           quality,
			QualityMultiplier: cfg.QualityMultiplier,
			Enhance:           opts.Enhance,
			Suffix:            opts.Suffix,
		})
		if err != nil {
			return nil, err
		}
		result.Optimized = append(result.Optimized, variant)
	}

	generateResponsive := cfg.GenerateResponsive
	if opts.Responsive != nil {
		generateResponsive = *opts.Responsive
	}
	if generateResponsive && o.responsive != nil {
		set, err := o.responsive.Generate(ctx, src, responsive.Options{
			Formats:           targets,
			Breakpoints:       cfg.Breakpoints,
			Profile:           opts.Profile,
			Sizes:             opts.Sizes,
			Quality:           opts.Quality,
			QualityMultiplier: cfg.QualityMultiplier,
			Enhance:           opts.Enhance,
			Placeholder:       opts.Placeholder,
		})
		if err != nil {
			return nil, err
		}
		result.Responsive = set
		result.Optimized = append(result.Optimized, set.Variants...)
	}

	o.finish(ctx, result, start)
	return result, nil
}

// viableTargets dedupes the candidate list and drops formats the converter
// has no encoder for. Order is preserved.
func (o *Optimizer) viableTargets(candidates []domainimage.Format) []domainimage.Format {
	out := make([]domainimage.Format, 0, len(candidates))
	seen := make(map[domainimage.Format]bool, len(candidates))
	for _, f := range candidates {
		if seen[f] {
			continue
		}
		seen[f] = true
		if !o.converter.CanConvert(f) {
			if o.logger != nil {
				o.logger.DebugTag("OPTIMIZE", "dropping target %s: no encoder", f)
			}
			continue
		}
		out = append(out, f)
	}
	return out
}

func (o *Optimizer) finish(ctx context.Context, result *Result, start time.Time) {
	elapsed := time.Since(start)
	optimizedSize := bestVariantSize(result)

	result.Metadata = ResultMetadata{
		OptimizationTimeMs: elapsed.Milliseconds(),
		TotalSavings:       result.Original.ByteSize - optimizedSize,
		CompressionRatio:   ratioOf(result.Original.ByteSize, optimizedSize),
	}

	formats := make([]domainimage.Format, 0, len(result.Optimized))
	for _, v := range result.Optimized {
		formats = append(formats, v.Format)
	}
	o.metrics.Record(result.Original.ByteSize, optimizedSize, formats, float64(elapsed.Milliseconds()))

	eventbus.PublishAsync(eventbus.EventOptimizeCompleted, eventbus.OptimizeEventData{
		SourcePath:   result.Original.Path,
		Variants:     len(result.Optimized),
		SavingsBytes: result.Metadata.TotalSavings,
		Ratio:        result.Metadata.CompressionRatio,
		DurationMs:   result.Metadata.OptimizationTimeMs,
	})

	if o.sink != nil {
		if err := o.sink.SaveResult(ctx, result); err != nil && o.logger != nil {
			o.logger.WarnTag("STORAGE", "persist result for %s failed: %v", result.Original.Path, err)
		}
	}

	if o.logger != nil {
		o.logger.InfoTag("OPTIMIZE", "%s -> %d variants, saved %d bytes in %dms",
			result.Original.Path, len(result.Optimized),
			result.Metadata.TotalSavings, result.Metadata.OptimizationTimeMs)
	}
}

// bestVariantSize is the smallest produced artifact, standing in for "the
// size the caller would actually serve".
func bestVariantSize(result *Result) int64 {
	best := result.Original.ByteSize
	for _, v := range result.Optimized {
		if v.ByteSize > 0 && v.ByteSize < best {
			best = v.ByteSize
		}
	}
	return best
}

func ratioOf(original, optimized int64) float64 {
	if original <= 0 {
		return 1
	}
	return float64(optimized) / float64(original)
}
