package image

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	platformerrors "pixelmill-server-go/internal/platform/errors"
	"pixelmill-server-go/internal/utils"
)

// File signatures used to sniff the on-disk format before decoding.
var imageSignatures = map[Format][]byte{
	FormatJPEG: {0xFF, 0xD8},
	FormatPNG:  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	FormatGIF:  {0x47, 0x49, 0x46, 0x38},
	FormatWebP: {0x52, 0x49, 0x46, 0x46},
	FormatBMP:  {0x42, 0x4D},
	FormatTIFF: {0x49, 0x49, 0x2A, 0x00},
}

var tiffBigEndian = []byte{0x4D, 0x4D, 0x00, 0x2A}

// Extractor reads source image metadata: dimensions, format, channel count,
// alpha presence and byte size.
type Extractor struct {
	logger *utils.Logger
}

func NewExtractor(logger *utils.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract stats and sniffs the file, then verifies via a decode of the header.
func (e *Extractor) Extract(path string) (*SourceImage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindCodec, "extract", "stat source image", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindCodec, "extract", "open source image", err)
	}
	defer f.Close()

	header := make([]byte, 512)
	n, _ := f.Read(header)
	header = header[:n]

	format := SniffFormat(header)
	if format == "" {
		return nil, platformerrors.New(platformerrors.KindCodec, "extract",
			fmt.Sprintf("unrecognised image signature in %s", path))
	}

	src := &SourceImage{
		Path:     path,
		ByteSize: info.Size(),
		Format:   format,
	}

	if format == FormatSVG {
		// Vector source: no raster dimensions to extract.
		return src, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindCodec, "extract", "rewind source image", err)
	}

	cfg, decodedFormat, err := image.DecodeConfig(f)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindCodec, "extract", "decode image header", err)
	}
	if parsed := ParseFormat(decodedFormat); parsed != format && e.logger != nil {
		e.logger.WarnTag("ANALYZE", "signature/decoder format mismatch for %s: %s vs %s",
			path, format, parsed)
	}

	src.Width = cfg.Width
	src.Height = cfg.Height
	src.Channels, src.HasAlpha = channelInfo(cfg.ColorModel)
	return src, nil
}

// SniffFormat matches the magic bytes of the supported formats.
func SniffFormat(header []byte) Format {
	for format, sig := range imageSignatures {
		if len(header) >= len(sig) && bytes.Equal(header[:len(sig)], sig) {
			return format
		}
	}
	if len(header) >= len(tiffBigEndian) && bytes.Equal(header[:len(tiffBigEndian)], tiffBigEndian) {
		return FormatTIFF
	}
	trimmed := bytes.TrimLeft(header, " \t\r\n")
	if bytes.HasPrefix(trimmed, []byte("<svg")) || bytes.HasPrefix(trimmed, []byte("<?xml")) {
		return FormatSVG
	}
	return ""
}

func channelInfo(model color.Model) (channels int, hasAlpha bool) {
	switch model {
	case color.GrayModel, color.Gray16Model:
		return 1, false
	case color.YCbCrModel:
		return 3, false
	case color.CMYKModel:
		return 4, false
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model:
		return 4, true
	case color.AlphaModel, color.Alpha16Model:
		return 1, true
	}
	if _, ok := model.(color.Palette); ok {
		return 3, false
	}
	return 3, false
}
