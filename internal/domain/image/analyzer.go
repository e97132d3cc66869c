package image

import (
	"image"

	"pixelmill-server-go/internal/utils"
)

// maxVariance is the variance of a maximally spread 8-bit channel (all values
// at 0 or 255); complexity normalises against it.
const maxVariance = 127.5 * 127.5

// analyzerSampleTarget bounds how many pixels are sampled per image.
const analyzerSampleTarget = 10000

// Analyzer computes a complexity score and content classification from pixel
// statistics, and derives the adaptive quality multiplier.
type Analyzer struct {
	codec  Codec
	logger *utils.Logger
}

func NewAnalyzer(codec Codec, logger *utils.Logger) *Analyzer {
	return &Analyzer{codec: codec, logger: logger}
}

// Analyze never fails the caller: analysis errors degrade to the fallback
// analysis and are logged.
func (a *Analyzer) Analyze(src *SourceImage, targetFormat Format) ContentAnalysis {
	analysis, err := a.analyze(src, targetFormat)
	if err != nil {
		if a.logger != nil {
			a.logger.WarnTag("ANALYZE", "analysis failed for %s, using fallback: %v", src.Path, err)
		}
		return FallbackAnalysis()
	}
	return analysis
}

func (a *Analyzer) analyze(src *SourceImage, targetFormat Format) (ContentAnalysis, error) {
	img, _, err := a.codec.Decode(src.Path)
	if err != nil {
		return ContentAnalysis{}, err
	}

	complexity := clampFloat(complexityOf(img), 0, 1)

	multiplier := 1.0
	switch {
	case complexity > 0.7:
		multiplier *= 1.1
	case complexity < 0.3:
		multiplier *= 0.9
	}
	if targetFormat == FormatAVIF && complexity < 0.5 {
		multiplier *= 0.95
	}
	multiplier = clampFloat(multiplier, 0.7, 1.3)

	return ContentAnalysis{
		Complexity:        complexity,
		ContentType:       Classify(src),
		QualityMultiplier: multiplier,
	}, nil
}

// Classify maps source metadata to a content class.
func Classify(src *SourceImage) ContentType {
	switch {
	case src.Format == FormatPNG && !src.HasAlpha:
		return ContentGraphics
	case src.Format == FormatJPEG:
		return ContentPhotographic
	case src.Format == FormatGIF:
		return ContentAnimation
	default:
		return ContentMixed
	}
}

// complexityOf is the normalised mean per-channel variance of a pixel sample.
func complexityOf(img image.Image) float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	step := 1
	if total := w * h; total > analyzerSampleTarget {
		for (w/step)*(h/step) > analyzerSampleTarget {
			step++
		}
	}

	var sum, sumSq [3]float64
	var n float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, _ := img.At(x, y).RGBA()
			ch := [3]float64{float64(r >> 8), float64(g >> 8), float64(b >> 8)}
			for i, v := range ch {
				sum[i] += v
				sumSq[i] += v * v
			}
			n++
		}
	}
	if n == 0 {
		return 0
	}

	var varianceSum float64
	for i := 0; i < 3; i++ {
		mean := sum[i] / n
		varianceSum += sumSq[i]/n - mean*mean
	}
	return (varianceSum / 3) / maxVariance
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
