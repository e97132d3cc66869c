package image

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"sync"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	platformerrors "pixelmill-server-go/internal/platform/errors"
)

// Codec is the boundary to the decode/resize/encode capability. The pipeline
// decides what to request, never how to encode.
type Codec interface {
	Decode(path string) (image.Image, Format, error)
	Resize(img image.Image, width, height int) image.Image
	Encode(w io.Writer, img image.Image, format Format, quality int) error
	CanEncode(format Format) bool
}

// EncoderFunc encodes img at the given quality. External bindings register
// these for formats the built-in codec cannot produce (webp, avif).
type EncoderFunc func(w io.Writer, img image.Image, quality int) error

// StdCodec implements Codec with the standard library plus x/image, and an
// encoder registry for formats beyond them.
type StdCodec struct {
	mu    sync.RWMutex
	extra map[Format]EncoderFunc
}

func NewStdCodec() *StdCodec {
	return &StdCodec{extra: make(map[Format]EncoderFunc)}
}

// RegisterEncoder installs an external encoder for a format. Registration
// replaces any previous encoder for the same format.
func (c *StdCodec) RegisterEncoder(format Format, fn EncoderFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extra[format] = fn
}

func (c *StdCodec) Decode(path string) (image.Image, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", platformerrors.Wrap(platformerrors.KindCodec, "decode", "open image", err)
	}
	defer f.Close()

	img, name, err := image.Decode(f)
	if err != nil {
		return nil, "", platformerrors.Wrap(platformerrors.KindCodec, "decode", "decode image", err)
	}
	return img, ParseFormat(name), nil
}

// Resize scales img to width x height with Catmull-Rom resampling. Callers
// are expected to have computed fit-inside dimensions already.
func (c *StdCodec) Resize(img image.Image, width, height int) image.Image {
	bounds := img.Bounds()
	if width == bounds.Dx() && height == bounds.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func (c *StdCodec) Encode(w io.Writer, img image.Image, format Format, quality int) error {
	switch format {
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	case FormatGIF:
		return gif.Encode(w, img, &gif.Options{NumColors: 256})
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}

	c.mu.RLock()
	fn, ok := c.extra[format]
	c.mu.RUnlock()
	if !ok {
		return platformerrors.Wrap(platformerrors.KindCodec, "encode",
			fmt.Sprintf("format %s", format), platformerrors.ErrEncoderUnavailable)
	}
	return fn(w, img, quality)
}

func (c *StdCodec) CanEncode(format Format) bool {
	switch format {
	case FormatJPEG, FormatPNG, FormatGIF, FormatBMP, FormatTIFF:
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.extra[format]
	return ok
}

// FitInside computes target dimensions preserving aspect ratio, never
// enlarging beyond the source. A zero target height derives from the aspect
// ratio; a zero target width returns the source dimensions.
func FitInside(srcW, srcH, targetW, targetH int) (int, int) {
	if srcW <= 0 || srcH <= 0 || targetW <= 0 {
		return srcW, srcH
	}
	if targetW > srcW {
		targetW = srcW
	}
	if targetH <= 0 {
		h := targetW * srcH / srcW
		if h < 1 {
			h = 1
		}
		return targetW, h
	}
	if targetH > srcH {
		targetH = srcH
	}
	// Fit the target box while keeping aspect.
	if targetW*srcH <= targetH*srcW {
		h := targetW * srcH / srcW
		if h < 1 {
			h = 1
		}
		return targetW, h
	}
	w := targetH * srcW / srcH
	if w < 1 {
		w = 1
	}
	return w, targetH
}
