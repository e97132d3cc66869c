package image

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFlat(t *testing.T, dir, name string, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return encodeTo(t, dir, name, img)
}

func writeNoise(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return encodeTo(t, dir, name, img)
}

func encodeTo(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	if filepath.Ext(name) == ".png" {
		require.NoError(t, png.Encode(f, img))
	} else {
		require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 95}))
	}
	return path
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	path := writeFlat(t, dir, "flat.png", 640, 480, color.RGBA{R: 10, G: 200, B: 30, A: 255})

	extractor := NewExtractor(nil)
	src, err := extractor.Extract(path)
	require.NoError(t, err)

	assert.Equal(t, path, src.Path)
	assert.Equal(t, 640, src.Width)
	assert.Equal(t, 480, src.Height)
	assert.Equal(t, FormatPNG, src.Format)
	assert.Positive(t, src.ByteSize)
}

func TestExtractMissingFile(t *testing.T) {
	extractor := NewExtractor(nil)
	_, err := extractor.Extract(filepath.Join(t.TempDir(), "nope.jpg"))
	assert.Error(t, err)
}

func TestSniffFormat(t *testing.T) {
	cases := []struct {
		header []byte
		want   Format
	}{
		{[]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0}, FormatJPEG},
		{[]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, FormatPNG},
		{[]byte("GIF89a"), FormatGIF},
		{[]byte{'B', 'M', 0, 0, 0, 0}, FormatBMP},
		{[]byte{0x49, 0x49, 0x2A, 0x00}, FormatTIFF},
		{[]byte{0x4D, 0x4D, 0x00, 0x2A}, FormatTIFF},
		{[]byte("<svg xmlns=\"http://www.w3.org/2000/svg\">"), FormatSVG},
		{[]byte{0x00, 0x01, 0x02, 0x03}, Format("")},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SniffFormat(tc.header))
	}
}

func TestFormatRoundTrips(t *testing.T) {
	assert.Equal(t, FormatJPEG, ParseFormat("jpg"))
	assert.Equal(t, FormatJPEG, ParseFormat("JPEG"))
	assert.Equal(t, "jpg", FormatJPEG.Ext())
	assert.Equal(t, "webp", FormatWebP.Ext())
	assert.Equal(t, "image/avif", FormatAVIF.MIME())
}

func TestFitInside(t *testing.T) {
	cases := []struct {
		srcW, srcH, tw, th int
		wantW, wantH       int
	}{
		{2000, 1500, 800, 0, 800, 600},
		{2000, 1500, 3000, 0, 2000, 1500}, // never enlarges
		{2000, 1500, 0, 0, 2000, 1500},
		{1600, 900, 800, 800, 800, 450},
		{900, 1600, 800, 800, 450, 800},
		{10, 10000, 5, 0, 5, 5000},
	}
	for _, tc := range cases {
		w, h := FitInside(tc.srcW, tc.srcH, tc.tw, tc.th)
		assert.Equal(t, tc.wantW, w)
		assert.Equal(t, tc.wantH, h)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		src  SourceImage
		want ContentType
	}{
		{SourceImage{Format: FormatPNG, HasAlpha: false}, ContentGraphics},
		{SourceImage{Format: FormatJPEG}, ContentPhotographic},
		{SourceImage{Format: FormatGIF}, ContentAnimation},
		{SourceImage{Format: FormatPNG, HasAlpha: true}, ContentMixed},
		{SourceImage{Format: FormatTIFF}, ContentMixed},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(&tc.src))
	}
}

func TestAnalyzeComplexityBounds(t *testing.T) {
	dir := t.TempDir()
	analyzer := NewAnalyzer(NewStdCodec(), nil)
	extractor := NewExtractor(nil)

	flat := writeFlat(t, dir, "flat.png", 200, 200, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	noisy := writeNoise(t, dir, "noisy.png", 200, 200)

	flatSrc, err := extractor.Extract(flat)
	require.NoError(t, err)
	noisySrc, err := extractor.Extract(noisy)
	require.NoError(t, err)

	flatAnalysis := analyzer.Analyze(flatSrc, FormatWebP)
	noisyAnalysis := analyzer.Analyze(noisySrc, FormatWebP)

	assert.Less(t, flatAnalysis.Complexity, 0.1, "uniform image has near-zero variance")
	assert.Greater(t, noisyAnalysis.Complexity, flatAnalysis.Complexity)

	for _, a := range []ContentAnalysis{flatAnalysis, noisyAnalysis} {
		assert.GreaterOrEqual(t, a.Complexity, 0.0)
		assert.LessOrEqual(t, a.Complexity, 1.0)
		assert.GreaterOrEqual(t, a.QualityMultiplier, 0.7)
		assert.LessOrEqual(t, a.QualityMultiplier, 1.3)
	}

	// Low complexity toward AVIF stacks the 0.9 and 0.95 reductions.
	avif := analyzer.Analyze(flatSrc, FormatAVIF)
	assert.InDelta(t, 0.9*0.95, avif.QualityMultiplier, 1e-9)
}

func TestAnalyzeFallsBackOnUnreadableSource(t *testing.T) {
	analyzer := NewAnalyzer(NewStdCodec(), nil)

	analysis := analyzer.Analyze(&SourceImage{Path: filepath.Join(t.TempDir(), "gone.jpg")}, FormatWebP)
	assert.Equal(t, FallbackAnalysis(), analysis)
}
