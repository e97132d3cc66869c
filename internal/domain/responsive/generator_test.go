package responsive

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelmill-server-go/internal/domain/artdirect"
	"pixelmill-server-go/internal/domain/convert"
	domainimage "pixelmill-server-go/internal/domain/image"
	"pixelmill-server-go/internal/platform/config"
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

	if strings.HasSuffix(name, ".png") {
		require.NoError(t, png.Encode(f, img))
	} else {
		require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}))
	}
	return path
}

func testGenerator(t *testing.T, resolver *artdirect.Resolver) (*Generator, *domainimage.Extractor, string) {
	t.Helper()
	dir := t.TempDir()

	codec := domainimage.NewStdCodec()
	pipeline := config.PipelineConfig{
		InputDir:       dir,
		OutputDir:      filepath.Join(dir, "out"),
		DefaultQuality: 80,
	}
	conv := convert.NewConverter(codec, convert.NewMemoryStore(), pipeline, nil)

	rcfg := config.ResponsiveConfig{
		Breakpoints:        []int{320, 640, 768, 1024, 1280, 1920},
		Densities:          []float64{1},
		PlaceholderWidth:   20,
		PlaceholderQuality: 20,
	}
	gen := NewGenerator(conv, resolver, NewPlaceholderGenerator(codec, rcfg, nil), rcfg, nil, nil)
	return gen, domainimage.NewExtractor(nil), dir
}

func TestGenerate_BreakpointsNeverExceedSourceWidth(t *testing.T) {
	gen, extractor, dir := testGenerator(t, nil)
	path := writeTestImage(t, dir, "banner.jpg", 1100, 600)

	src, err := extractor.Extract(path)
	require.NoError(t, err)

	set, err := gen.Generate(context.Background(), src, Options{
		Formats: []domainimage.Format{domainimage.FormatJPEG},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{320, 640, 768, 1024}, set.Metadata.BreakpointsUsed)
	for _, v := range set.Variants {
		assert.LessOrEqual(t, v.Width, src.Width)
	}
}

func TestGenerate_DensityWidthsAboveSourceAreSkipped(t *testing.T) {
	gen, extractor, dir := testGenerator(t, nil)
	path := writeTestImage(t, dir, "photo.jpg", 1000, 750)

	src, err := extractor.Extract(path)
	require.NoError(t, err)

	set, err := gen.Generate(context.Background(), src, Options{
		Formats:     []domainimage.Format{domainimage.FormatJPEG},
		Breakpoints: []int{320, 640},
	})
	require.NoError(t, err)

	// Density 1 keeps both breakpoints; a 2x run would have skipped 640*2.
	gen2, extractor2, dir2 := testGenerator(t, nil)
	gen2.cfg.Densities = []float64{1, 2}
	path2 := writeTestImage(t, dir2, "photo.jpg", 1000, 750)
	src2, err := extractor2.Extract(path2)
	require.NoError(t, err)

	set2, err := gen2.Generate(context.Background(), src2, Options{
		Formats:     []domainimage.Format{domainimage.FormatJPEG},
		Breakpoints: []int{320, 640},
	})
	require.NoError(t, err)

	widths := func(set *Set) []int {
		var out []int
		for _, v := range set.Variants {
			out = append(out, v.Width)
		}
		return out
	}

	assert.ElementsMatch(t, []int{320, 640}, widths(set))
	// 320x1=320, 320x2=640, 640x1=640, 640x2=1280 (skipped, >1000).
	assert.ElementsMatch(t, []int{320, 640, 640}, widths(set2))
}

func TestGenerate_SrcSetsAscendingByWidth(t *testing.T) {
	gen, extractor, dir := testGenerator(t, nil)
	path := writeTestImage(t, dir, "wide.jpg", 1920, 1080)

	src, err := extractor.Extract(path)
	require.NoError(t, err)

	set, err := gen.Generate(context.Background(), src, Options{
		Formats: []domainimage.Format{domainimage.FormatJPEG, domainimage.FormatPNG},
	})
	require.NoError(t, err)
	require.Contains(t, set.SrcSets, domainimage.FormatJPEG)
	require.Contains(t, set.SrcSets, domainimage.FormatPNG)

	for _, srcset := range set.SrcSets {
		entries := strings.Split(srcset, ", ")
		last := -1
		for _, entry := range entries {
			parts := strings.Split(entry, " ")
			require.Len(t, parts, 2)
			w, err := strconv.Atoi(strings.TrimSuffix(parts[1], "w"))
			require.NoError(t, err)
			assert.Greater(t, w, last, "srcset %q not strictly ascending", srcset)
			last = w
		}
	}
}

func TestGenerate_SecondCallReturnsCachedSet(t *testing.T) {
	gen, extractor, dir := testGenerator(t, nil)
	path := writeTestImage(t, dir, "cacheme.jpg", 900, 600)

	src, err := extractor.Extract(path)
	require.NoError(t, err)

	first, err := gen.Generate(context.Background(), src, Options{
		Formats: []domainimage.Format{domainimage.FormatJPEG},
	})
	require.NoError(t, err)

	second, err := gen.Generate(context.Background(), src, Options{
		Formats: []domainimage.Format{domainimage.FormatJPEG},
	})
	require.NoError(t, err)
	assert.Same(t, first, second)

	gen.Clear()
	third, err := gen.Generate(context.Background(), src, Options{
		Formats: []domainimage.Format{domainimage.FormatJPEG},
	})
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestGenerate_ArtDirectionAppliesOnlyAtConfiguredBreakpoint(t *testing.T) {
	resolver := artdirect.NewResolver(nil)
	crop := image.Rect(0, 0, 400, 300)
	require.NoError(t, resolver.Register("hero-*", map[int]artdirect.Spec{
		768: {Crop: &crop},
	}))

	gen, extractor, dir := testGenerator(t, resolver)
	path := writeTestImage(t, dir, "hero-banner.jpg", 1600, 900)

	src, err := extractor.Extract(path)
	require.NoError(t, err)

	set, err := gen.Generate(context.Background(), src, Options{
		Formats:     []domainimage.Format{domainimage.FormatJPEG},
		Breakpoints: []int{320, 768},
	})
	require.NoError(t, err)

	byBreakpoint := make(map[int]convert.Variant)
	for _, v := range set.Variants {
		byBreakpoint[v.Breakpoint] = v
	}

	// The 768 variant goes through the 400x300 crop, so it cannot be wider
	// than the crop; the 320 variant resizes the full frame.
	require.Contains(t, byBreakpoint, 768)
	require.Contains(t, byBreakpoint, 320)
	assert.Equal(t, 400, byBreakpoint[768].Width)
	assert.Equal(t, 300, byBreakpoint[768].Height)
	assert.Equal(t, 320, byBreakpoint[320].Width)
	assert.Equal(t, 180, byBreakpoint[320].Height)
}

func TestGenerate_PlaceholderIsTinyDataURI(t *testing.T) {
	gen, extractor, dir := testGenerator(t, nil)
	path := writeTestImage(t, dir, "preview.jpg", 800, 600)

	src, err := extractor.Extract(path)
	require.NoError(t, err)

	set, err := gen.Generate(context.Background(), src, Options{
		Formats:     []domainimage.Format{domainimage.FormatJPEG},
		Placeholder: true,
	})
	require.NoError(t, err)

	require.NotNil(t, set.Placeholder)
	assert.True(t, strings.HasPrefix(set.Placeholder.DataURI, "data:image/jpeg;base64,"))
	assert.Equal(t, 20, set.Placeholder.Width)
	assert.Equal(t, 15, set.Placeholder.Height)
	assert.Positive(t, set.Placeholder.ByteSize)
}

func TestGenerate_UnencodableFormatIsSkipped(t *testing.T) {
	gen, extractor, dir := testGenerator(t, nil)
	path := writeTestImage(t, dir, "photo.jpg", 900, 600)

	src, err := extractor.Extract(path)
	require.NoError(t, err)

	// No AVIF encoder registered: only the jpeg column is produced.
	set, err := gen.Generate(context.Background(), src, Options{
		Formats: []domainimage.Format{domainimage.FormatAVIF, domainimage.FormatJPEG},
	})
	require.NoError(t, err)

	assert.NotContains(t, set.SrcSets, domainimage.FormatAVIF)
	assert.Contains(t, set.SrcSets, domainimage.FormatJPEG)
}

func TestBuildMarkupDescriptors(t *testing.T) {
	set := &Set{
		Variants: []convert.Variant{
			{Format: domainimage.FormatWebP, Width: 320, Height: 180, OutputKey: "out/a_320w.webp"},
			{Format: domainimage.FormatWebP, Width: 640, Height: 360, OutputKey: "out/a_640w.webp"},
			{Format: domainimage.FormatJPEG, Width: 320, Height: 180, OutputKey: "out/a_320w.jpeg"},
			{Format: domainimage.FormatJPEG, Width: 640, Height: 360, OutputKey: "out/a_640w.jpeg"},
		},
		SizesAttribute: "100vw",
		Placeholder:    &Placeholder{DataURI: "data:image/jpeg;base64,AAAA", Width: 20, Height: 11},
	}
	set.SrcSets = map[domainimage.Format]string{
		domainimage.FormatWebP: "out/a_320w.webp 320w, out/a_640w.webp 640w",
		domainimage.FormatJPEG: "out/a_320w.jpeg 320w, out/a_640w.jpeg 640w",
	}

	img := BuildImg(set, MarkupOptions{})
	assert.Equal(t, "out/a_640w.jpeg", img.Src)
	assert.Equal(t, set.SrcSets[domainimage.FormatJPEG], img.SrcSet)
	assert.Equal(t, "100vw", img.Sizes)
	assert.Equal(t, "lazy", img.Loading)
	assert.Contains(t, img.PlaceholderStyle, "data:image/jpeg;base64,AAAA")

	pic := BuildPicture(set, MarkupOptions{Loading: "eager", FetchPriority: "high"})
	require.Len(t, pic.Sources, 1)
	assert.Equal(t, "image/webp", pic.Sources[0].Type)
	assert.Equal(t, "eager", pic.Img.Loading)
	assert.Equal(t, "high", pic.Img.FetchPriority)
}
