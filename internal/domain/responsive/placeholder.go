package responsive

import (
	"bytes"
	"encoding/base64"
	"fmt"

	domainimage "pixelmill-server-go/internal/domain/image"
	"pixelmill-server-go/internal/platform/config"
	platformerrors "pixelmill-server-go/internal/platform/errors"
	"pixelmill-server-go/internal/utils"
)

const (
	defaultPlaceholderWidth   = 20
	defaultPlaceholderQuality = 20
)

// Placeholder is a tiny inline preview embedded as a data URI.
type Placeholder struct {
	DataURI  string `json:"data_uri"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	ByteSize int64  `json:"byte_size"`
}

// PlaceholderGenerator produces blur placeholders. Failures are reported to
// the caller, who treats them as non-fatal and omits the placeholder.
type PlaceholderGenerator struct {
	codec   domainimage.Codec
	width   int
	quality int
	logger  *utils.Logger
}

func NewPlaceholderGenerator(codec domainimage.Codec, cfg config.ResponsiveConfig, logger *utils.Logger) *PlaceholderGenerator {
	width := cfg.PlaceholderWidth
	if width <= 0 {
		width = defaultPlaceholderWidth
	}
	quality := cfg.PlaceholderQuality
	if quality <= 0 {
		quality = defaultPlaceholderQuality
	}
	return &PlaceholderGenerator{codec: codec, width: width, quality: quality, logger: logger}
}

func (g *PlaceholderGenerator) Generate(src *domainimage.SourceImage) (*Placeholder, error) {
	img, _, err := g.codec.Decode(src.Path)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPlaceholder, "placeholder.generate", "decode source", err)
	}

	w, h := domainimage.FitInside(src.Width, src.Height, g.width, 0)
	small := g.codec.Resize(img, w, h)

	// Alpha sources keep PNG so transparency survives the preview.
	format := domainimage.FormatJPEG
	if src.HasAlpha {
		format = domainimage.FormatPNG
	}

	var buf bytes.Buffer
	if err := g.codec.Encode(&buf, small, format, g.quality); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPlaceholder, "placeholder.generate", "encode preview", err)
	}

	return &Placeholder{
		DataURI:  fmt.Sprintf("data:%s;base64,%s", format.MIME(), base64.StdEncoding.EncodeToString(buf.Bytes())),
		Width:    w,
		Height:   h,
		ByteSize: int64(buf.Len()),
	}, nil
}
