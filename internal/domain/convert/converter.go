// Package convert produces single output artifacts: one (format, width,
// height, quality) encode per call, wrapped by the conversion cache.
package convert

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	domainimage "pixelmill-server-go/internal/domain/image"
	"pixelmill-server-go/internal/platform/config"
	platformerrors "pixelmill-server-go/internal/platform/errors"
	"pixelmill-server-go/internal/platform/observability"
	"pixelmill-server-go/internal/utils"
)

// knownFormats are the target formats the converter will accept at all;
// anything else is an UnsupportedFormat error for that call.
var knownFormats = map[domainimage.Format]bool{
	domainimage.FormatJPEG: true,
	domainimage.FormatPNG:  true,
	domainimage.FormatWebP: true,
	domainimage.FormatAVIF: true,
	domainimage.FormatGIF:  true,
	domainimage.FormatTIFF: true,
	domainimage.FormatBMP:  true,
}

// Options controls one conversion call.
type Options struct {
	// Quality overrides all other quality sources when positive.
	Quality int
	// QualityMultiplier scales the resolved quality (then clamps to [60,95]).
	// Zero means no multiplier.
	QualityMultiplier float64
	// Width/Height request a fit-inside resize. Zero width keeps the source
	// width; the source is never enlarged.
	Width  int
	Height int
	// Enhance applies the sharpen/normalize/gamma pipeline before encoding.
	Enhance bool
	// Region crops to an art-directed extraction rectangle before resizing.
	Region *image.Rectangle
	// Profile supplies per-format quality when set.
	Profile *config.DeviceProfile
	// Breakpoint/Density annotate the produced variant.
	Breakpoint int
	Density    float64
	// Responsive selects the `{basename}_{width}w.{format}` key pattern;
	// otherwise `{basename}.{suffix}.{ext}` is used.
	Responsive bool
	// Suffix for non-responsive keys. Defaults to "opt".
	Suffix string
}

// Converter encodes variants through the codec, caching results.
type Converter struct {
	codec     domainimage.Codec
	cache     Store
	logger    *utils.Logger
	inputDir  string
	outputDir string
	quality   map[domainimage.Format]int
	fallback  int
}

func NewConverter(codec domainimage.Codec, cache Store, pipeline config.PipelineConfig, logger *utils.Logger) *Converter {
	quality := make(map[domainimage.Format]int, len(pipeline.Quality))
	for name, q := range pipeline.Quality {
		quality[domainimage.ParseFormat(name)] = q
	}
	fallback := pipeline.DefaultQuality
	if fallback <= 0 {
		fallback = 80
	}
	return &Converter{
		codec:     codec,
		cache:     cache,
		logger:    logger,
		inputDir:  pipeline.InputDir,
		outputDir: pipeline.OutputDir,
		quality:   quality,
		fallback:  fallback,
	}
}

// ResolveQuality applies the documented precedence: explicit argument >
// device-profile quality for the format > global default for the format,
// then the multiplier, then the [60,95] clamp.
func (c *Converter) ResolveQuality(target domainimage.Format, opts Options) int {
	q := 0
	switch {
	case opts.Quality > 0:
		q = opts.Quality
	case opts.Profile != nil:
		if pq, ok := opts.Profile.Quality[string(target)]; ok && pq > 0 {
			q = pq
		}
	}
	if q == 0 {
		if fq, ok := c.quality[target]; ok && fq > 0 {
			q = fq
		} else {
			q = c.fallback
		}
	}
	if opts.QualityMultiplier > 0 {
		q = int(float64(q) * opts.QualityMultiplier)
	}
	return clampQuality(q)
}

func clampQuality(q int) int {
	if q < 60 {
		return 60
	}
	if q > 95 {
		return 95
	}
	return q
}

// CanConvert reports whether the target format is both known and encodable.
func (c *Converter) CanConvert(target domainimage.Format) bool {
	return knownFormats[target] && c.codec.CanEncode(target)
}

// Convert produces one variant. The cache lookup/insert wraps the encode: a
// hit short-circuits and returns the previously computed result.
func (c *Converter) Convert(ctx context.Context, src *domainimage.SourceImage, target domainimage.Format, opts Options) (variant Variant, err error) {
	ctx, spanEnd := observability.StartSpan(ctx, "convert", string(target))
	defer func() { spanEnd(err) }()

	if !knownFormats[target] {
		return Variant{}, platformerrors.Wrap(platformerrors.KindCodec, "convert",
			fmt.Sprintf("target %q", target), platformerrors.ErrUnsupportedFormat)
	}
	if !c.codec.CanEncode(target) {
		return Variant{}, platformerrors.Wrap(platformerrors.KindCodec, "convert",
			fmt.Sprintf("target %q", target), platformerrors.ErrEncoderUnavailable)
	}

	width, height := domainimage.FitInside(src.Width, src.Height, opts.Width, opts.Height)
	quality := c.ResolveQuality(target, opts)

	key := CacheKey(src.Path, target, quality, width, height, opts.Enhance, opts.Region)
	if c.cache != nil {
		if cached, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			cached.CacheHit = true
			cached.Breakpoint = opts.Breakpoint
			cached.Density = opts.Density
			if c.logger != nil {
				c.logger.DebugTag("CACHE", "hit for %s -> %s", src.Path, cached.OutputKey)
			}
			return cached, nil
		} else if err != nil && c.logger != nil {
			c.logger.WarnTag("CACHE", "lookup failed, converting fresh: %v", err)
		}
	}

	img, _, err := c.codec.Decode(src.Path)
	if err != nil {
		return Variant{}, err
	}

	if opts.Region != nil {
		img = cropTo(img, *opts.Region)
	}
	bounds := img.Bounds()
	// The extraction region changes the resize base.
	width, height = domainimage.FitInside(bounds.Dx(), bounds.Dy(), width, height)
	img = c.codec.Resize(img, width, height)

	if opts.Enhance {
		img = domainimage.Enhance(img)
	}

	outputKey := c.outputKey(src.Path, target, width, opts)
	if err := os.MkdirAll(filepath.Dir(outputKey), 0o755); err != nil {
		return Variant{}, platformerrors.Wrap(platformerrors.KindCodec, "convert", "create output directory", err)
	}

	out, err := os.Create(outputKey)
	if err != nil {
		return Variant{}, platformerrors.Wrap(platformerrors.KindCodec, "convert", "create output file", err)
	}
	if err := c.codec.Encode(out, img, target, quality); err != nil {
		out.Close()
		os.Remove(outputKey)
		return Variant{}, err
	}
	if err := out.Close(); err != nil {
		return Variant{}, platformerrors.Wrap(platformerrors.KindCodec, "convert", "close output file", err)
	}

	info, err := os.Stat(outputKey)
	if err != nil {
		return Variant{}, platformerrors.Wrap(platformerrors.KindCodec, "convert", "stat output file", err)
	}

	variant = Variant{
		Format:     target,
		Width:      width,
		Height:     height,
		ByteSize:   info.Size(),
		Quality:    quality,
		OutputKey:  outputKey,
		Breakpoint: opts.Breakpoint,
		Density:    opts.Density,
	}

	observability.RecordMetric(ctx, "convert.output_bytes", float64(variant.ByteSize),
		map[string]string{"format": string(target)})

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, variant); err != nil && c.logger != nil {
			c.logger.WarnTag("CACHE", "store failed for %s: %v", outputKey, err)
		}
	}
	return variant, nil
}

func (c *Converter) outputKey(sourcePath string, target domainimage.Format, width int, opts Options) string {
	if opts.Responsive {
		return ResponsiveKey(c.outputDir, c.inputDir, sourcePath, width, target, opts.Region)
	}
	suffix := opts.Suffix
	if suffix == "" {
		suffix = "opt"
	}
	return OptimizedKey(c.outputDir, c.inputDir, sourcePath, suffix, target, opts.Region)
}

func cropTo(img image.Image, region image.Rectangle) image.Image {
	region = region.Intersect(img.Bounds())
	if region.Empty() {
		return img
	}

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if sub, ok := img.(subImager); ok {
		return sub.SubImage(region)
	}

	out := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			out.Set(x-region.Min.X, y-region.Min.Y, img.At(x, y))
		}
	}
	return out
}
