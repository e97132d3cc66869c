package convert

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainimage "pixelmill-server-go/internal/domain/image"
	"pixelmill-server-go/internal/platform/config"
	platformerrors "pixelmill-server-go/internal/platform/errors"
)

func writeTestImage(t *testing.T, dir, name string, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	switch {
	case strings.HasSuffix(name, ".png"):
		require.NoError(t, png.Encode(f, img))
	default:
		require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}))
	}
	return path
}

func testConverter(t *testing.T) (*Converter, *domainimage.Extractor, string) {
	t.Helper()
	dir := t.TempDir()
	pipeline := config.PipelineConfig{
		InputDir:       dir,
		OutputDir:      filepath.Join(dir, "out"),
		Quality:        map[string]int{"jpeg": 82, "png": 90},
		DefaultQuality: 80,
	}
	conv := NewConverter(domainimage.NewStdCodec(), NewMemoryStore(), pipeline, nil)
	return conv, domainimage.NewExtractor(nil), dir
}

func TestConverter_NeverUpscales(t *testing.T) {
	conv, extractor, dir := testConverter(t)
	path := writeTestImage(t, dir, "small.jpg", 300, 200)

	src, err := extractor.Extract(path)
	require.NoError(t, err)

	variant, err := conv.Convert(context.Background(), src, domainimage.FormatJPEG, Options{
		Width: 1200, Responsive: true,
	})
	require.NoError(t, err)

	assert.LessOrEqual(t, variant.Width, src.Width)
	assert.Equal(t, 300, variant.Width)
	assert.Equal(t, 200, variant.Height)
}

func TestConverter_CacheHitReturnsIdenticalResult(t *testing.T) {
	conv, extractor, dir := testConverter(t)
	path := writeTestImage(t, dir, "photo.jpg", 1024, 768)

	src, err := extractor.Extract(path)
	require.NoError(t, err)

	first, err := conv.Convert(context.Background(), src, domainimage.FormatJPEG, Options{
		Width: 768, Responsive: true,
	})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := conv.Convert(context.Background(), src, domainimage.FormatJPEG, Options{
		Width: 768, Responsive: true,
	})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.OutputKey, second.OutputKey)
	assert.Equal(t, first.ByteSize, second.ByteSize)
	assert.Equal(t, first.Quality, second.Quality)
}

func TestCacheKey_Deterministic(t *testing.T) {
	a := CacheKey("a.jpg", domainimage.FormatWebP, 80, 768, 512, false, nil)
	b := CacheKey("a.jpg", domainimage.FormatWebP, 80, 768, 512, false, nil)
	assert.Equal(t, a, b)

	variations := []string{
		CacheKey("b.jpg", domainimage.FormatWebP, 80, 768, 512, false, nil),
		CacheKey("a.jpg", domainimage.FormatAVIF, 80, 768, 512, false, nil),
		CacheKey("a.jpg", domainimage.FormatWebP, 81, 768, 512, false, nil),
		CacheKey("a.jpg", domainimage.FormatWebP, 80, 769, 512, false, nil),
		CacheKey("a.jpg", domainimage.FormatWebP, 80, 768, 513, false, nil),
		CacheKey("a.jpg", domainimage.FormatWebP, 80, 768, 512, true, nil),
	}
	seen := map[string]bool{a: true}
	for _, k := range variations {
		assert.False(t, seen[k], "key collision: %s", k)
		seen[k] = true
	}

	// The extraction region is part of the tuple.
	regionA := image.Rect(0, 0, 400, 300)
	regionB := image.Rect(100, 50, 500, 350)
	withA := CacheKey("a.jpg", domainimage.FormatWebP, 80, 768, 512, false, &regionA)
	withB := CacheKey("a.jpg", domainimage.FormatWebP, 80, 768, 512, false, &regionB)
	assert.NotEqual(t, a, withA)
	assert.NotEqual(t, withA, withB)
}

func TestConverter_CropsSharingWidthDoNotAlias(t *testing.T) {
	conv, extractor, dir := testConverter(t)
	path := writeTestImage(t, dir, "hero.jpg", 1000, 500)

	src, err := extractor.Extract(path)
	require.NoError(t, err)

	// A 768-wide request against a 400x300 crop re-fits to the crop bounds,
	// landing on the same 400px output width as the plain call below.
	region := image.Rect(0, 0, 400, 300)
	cropped, err := conv.Convert(context.Background(), src, domainimage.FormatJPEG, Options{
		Width: 768, Responsive: true, Region: &region,
	})
	require.NoError(t, err)

	// The same requested width without the crop must be a fresh encode, not
	// the cropped artifact served back from the cache.
	plain, err := conv.Convert(context.Background(), src, domainimage.FormatJPEG, Options{
		Width: 768, Responsive: true,
	})
	require.NoError(t, err)

	assert.False(t, plain.CacheHit)
	assert.NotEqual(t, cropped.OutputKey, plain.OutputKey)
	assert.Equal(t, "hero_400w_c0x0-400x300.jpeg", filepath.Base(cropped.OutputKey))
	assert.Equal(t, "hero_768w.jpeg", filepath.Base(plain.OutputKey))
	assert.Equal(t, 300, cropped.Height)
	assert.Equal(t, 384, plain.Height)
}

func TestConverter_UnsupportedFormat(t *testing.T) {
	conv, extractor, dir := testConverter(t)
	path := writeTestImage(t, dir, "photo.jpg", 100, 100)

	src, err := extractor.Extract(path)
	require.NoError(t, err)

	_, err = conv.Convert(context.Background(), src, domainimage.Format("heic"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, platformerrors.ErrUnsupportedFormat)
}

func TestConverter_EncoderUnavailable(t *testing.T) {
	conv, extractor, dir := testConverter(t)
	path := writeTestImage(t, dir, "photo.jpg", 100, 100)

	src, err := extractor.Extract(path)
	require.NoError(t, err)

	// avif is a known format but has no built-in encoder.
	_, err = conv.Convert(context.Background(), src, domainimage.FormatAVIF, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, platformerrors.ErrEncoderUnavailable)
}

func TestConverter_RegisteredEncoderIsUsed(t *testing.T) {
	dir := t.TempDir()
	codec := domainimage.NewStdCodec()
	codec.RegisterEncoder(domainimage.FormatWebP, func(w io.Writer, img image.Image, quality int) error {
		_, err := w.Write([]byte("RIFFfakeWEBP"))
		return err
	})

	pipeline := config.PipelineConfig{InputDir: dir, OutputDir: filepath.Join(dir, "out")}
	conv := NewConverter(codec, NewMemoryStore(), pipeline, nil)

	path := writeTestImage(t, dir, "photo.jpg", 200, 100)
	src, err := domainimage.NewExtractor(nil).Extract(path)
	require.NoError(t, err)

	variant, err := conv.Convert(context.Background(), src, domainimage.FormatWebP, Options{
		Width: 150, Responsive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domainimage.FormatWebP, variant.Format)
	assert.Equal(t, int64(len("RIFFfakeWEBP")), variant.ByteSize)
}

func TestConverter_OutputKeyContracts(t *testing.T) {
	conv, extractor, dir := testConverter(t)
	path := writeTestImage(t, dir, "hero.jpg", 1000, 500)

	src, err := extractor.Extract(path)
	require.NoError(t, err)

	responsive, err := conv.Convert(context.Background(), src, domainimage.FormatJPEG, Options{
		Width: 640, Responsive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hero_640w.jpeg", filepath.Base(responsive.OutputKey))

	optimized, err := conv.Convert(context.Background(), src, domainimage.FormatJPEG, Options{})
	require.NoError(t, err)
	assert.Equal(t, "hero.opt.jpg", filepath.Base(optimized.OutputKey))
}

func TestResolveQuality_Precedence(t *testing.T) {
	conv, _, _ := testConverter(t)
	profile := &config.DeviceProfile{Quality: map[string]int{"jpeg": 70}}

	// Explicit wins over everything.
	assert.Equal(t, 65, conv.ResolveQuality(domainimage.FormatJPEG, Options{Quality: 65, Profile: profile}))
	// Profile wins over the global default.
	assert.Equal(t, 70, conv.ResolveQuality(domainimage.FormatJPEG, Options{Profile: profile}))
	// Per-format global default.
	assert.Equal(t, 82, conv.ResolveQuality(domainimage.FormatJPEG, Options{}))
	// Unknown format falls back to the global default.
	assert.Equal(t, 80, conv.ResolveQuality(domainimage.FormatWebP, Options{}))
}

func TestResolveQuality_MultiplierClamps(t *testing.T) {
	conv, _, _ := testConverter(t)

	tests := []struct {
		quality    int
		multiplier float64
		expected   int
	}{
		{90, 1.3, 95},  // 117 clamps down
		{90, 1.0, 90},
		{70, 0.7, 60},  // 49 clamps up
		{80, 1.1, 88},
	}
	for _, tt := range tests {
		got := conv.ResolveQuality(domainimage.FormatJPEG, Options{
			Quality: tt.quality, QualityMultiplier: tt.multiplier,
		})
		assert.Equal(t, tt.expected, got, "quality %d x %.2f", tt.quality, tt.multiplier)
		assert.GreaterOrEqual(t, got, 60)
		assert.LessOrEqual(t, got, 95)
	}
}
