package rules

import (
	domainimage "pixelmill-server-go/internal/domain/image"
)

const (
	minQuality = 60
	maxQuality = 95

	largeFileBytes = 1 << 20 // 1MB
	smallFileBytes = 100 << 10

	responsiveThreshold = 800
)

// ClampQuality bounds an absolute quality value to the encoder-safe range.
func ClampQuality(q int) int {
	if q < minQuality {
		return minQuality
	}
	if q > maxQuality {
		return maxQuality
	}
	return q
}

// photographicFormats and graphicsFormats drive the auto_format classes.
var (
	photographicFormats = map[domainimage.Format]bool{
		domainimage.FormatJPEG: true,
		domainimage.FormatTIFF: true,
	}
	graphicsFormats = map[domainimage.Format]bool{
		domainimage.FormatPNG:  true,
		domainimage.FormatGIF:  true,
		domainimage.FormatBMP:  true,
		domainimage.FormatWebP: true,
	}
)

// NewAutoFormatRule classifies the source format and picks candidate output
// formats and a size-adjusted base quality.
func NewAutoFormatRule() Rule {
	return Rule{
		Name: "auto_format",
		Evaluate: func(src *domainimage.SourceImage) (Partial, error) {
			var formats []domainimage.Format
			var base int

			switch {
			case photographicFormats[src.Format]:
				formats = []domainimage.Format{domainimage.FormatAVIF, domainimage.FormatWebP, src.Format}
				base = 85
			case graphicsFormats[src.Format]:
				formats = []domainimage.Format{domainimage.FormatWebP, domainimage.FormatPNG, src.Format}
				base = 90
			default:
				formats = []domainimage.Format{src.Format}
				base = 95
			}

			switch {
			case src.ByteSize > largeFileBytes:
				base -= 5
			case src.ByteSize < smallFileBytes:
				base += 5
			}

			return Partial{
				Formats:     formats,
				BaseQuality: IntPtr(ClampQuality(base)),
			}, nil
		},
	}
}

// NewResponsiveRule enables responsive generation for sources wider than the
// threshold. Breakpoints are the configured list filtered to the source
// width, so variants are never upscaled.
func NewResponsiveRule(breakpoints []int) Rule {
	return Rule{
		Name: "responsive",
		Evaluate: func(src *domainimage.SourceImage) (Partial, error) {
			if src.Width <= responsiveThreshold {
				return Partial{GenerateResponsive: BoolPtr(false)}, nil
			}

			eligible := make([]int, 0, len(breakpoints))
			for _, bp := range breakpoints {
				if bp <= src.Width {
					eligible = append(eligible, bp)
				}
			}

			return Partial{
				GenerateResponsive: BoolPtr(true),
				Breakpoints:        eligible,
			}, nil
		},
	}
}

// AnalyzeFunc supplies a content analysis for a source; the optimizer wires
// the analyzer in here.
type AnalyzeFunc func(src *domainimage.SourceImage) domainimage.ContentAnalysis

// NewContentAwareRule maps measured complexity to a quality multiplier.
func NewContentAwareRule(analyze AnalyzeFunc) Rule {
	return Rule{
		Name: "content_aware",
		Evaluate: func(src *domainimage.SourceImage) (Partial, error) {
			analysis := analyze(src)

			multiplier := 1.0
			switch {
			case analysis.Complexity > 0.8:
				multiplier = 1.1
			case analysis.Complexity < 0.3:
				multiplier = 0.9
			}

			return Partial{QualityMultiplier: FloatPtr(multiplier)}, nil
		},
	}
}
