package image

import "strings"

// Format identifies an image encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
	FormatGIF  Format = "gif"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
	FormatSVG  Format = "svg"
)

// ParseFormat normalises a format name or file extension.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "jpg", "jpeg":
		return FormatJPEG
	case "png":
		return FormatPNG
	case "webp":
		return FormatWebP
	case "avif":
		return FormatAVIF
	case "gif":
		return FormatGIF
	case "tif", "tiff":
		return FormatTIFF
	case "bmp":
		return FormatBMP
	case "svg":
		return FormatSVG
	default:
		return Format(strings.ToLower(s))
	}
}

// MIME returns the content type for the format.
func (f Format) MIME() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	case FormatAVIF:
		return "image/avif"
	case FormatGIF:
		return "image/gif"
	case FormatTIFF:
		return "image/tiff"
	case FormatBMP:
		return "image/bmp"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// SourceImage is the extracted metadata of one source file. Immutable once
// extracted; created per optimization call, never persisted.
type SourceImage struct {
	Path     string `json:"path"`
	ByteSize int64  `json:"byte_size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   Format `json:"format"`
	Channels int    `json:"channels"`
	HasAlpha bool   `json:"has_alpha"`
}

// ContentType classifies what kind of imagery a source holds.
type ContentType string

const (
	ContentPhotographic ContentType = "photographic"
	ContentGraphics     ContentType = "graphics"
	ContentAnimation    ContentType = "animation"
	ContentMixed        ContentType = "mixed"
	ContentUnknown      ContentType = "unknown"
)

// ContentAnalysis is the analyzer's read-only verdict for one image.
type ContentAnalysis struct {
	Complexity        float64     `json:"complexity"`
	ContentType       ContentType `json:"content_type"`
	QualityMultiplier float64     `json:"quality_multiplier"`
}

// FallbackAnalysis is used when analysis fails; callers proceed with it
// instead of surfacing the error.
func FallbackAnalysis() ContentAnalysis {
	return ContentAnalysis{
		Complexity:        0.5,
		ContentType:       ContentUnknown,
		QualityMultiplier: 1.0,
	}
}
