package image

import (
	"image"
	"image/color"
	"math"
)

// Enhance applies the fixed sharpen/normalize/gamma adjustment pipeline used
// by the converter's enhance flag.
func Enhance(img image.Image) image.Image {
	rgba := toRGBA(img)
	rgba = normalize(rgba)
	rgba = sharpen(rgba)
	return gamma(rgba, 0.95)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(x-bounds.Min.X, y-bounds.Min.Y, img.At(x, y))
		}
	}
	return dst
}

// normalize stretches each channel's histogram to the full 0..255 range.
func normalize(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	var lo, hi [3]int
	for i := range lo {
		lo[i], hi[i] = 255, 0
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			off := img.PixOffset(x, y)
			for i := 0; i < 3; i++ {
				v := int(img.Pix[off+i])
				if v < lo[i] {
					lo[i] = v
				}
				if v > hi[i] {
					hi[i] = v
				}
			}
		}
	}

	out := image.NewRGBA(bounds)
	copy(out.Pix, img.Pix)
	for i := 0; i < 3; i++ {
		span := hi[i] - lo[i]
		if span <= 0 || span >= 255 {
			continue
		}
		for p := i; p < len(out.Pix); p += 4 {
			v := int(out.Pix[p])
			out.Pix[p] = uint8((v - lo[i]) * 255 / span)
		}
	}
	return out
}

// sharpen applies a 3x3 unsharp kernel.
func sharpen(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	copy(out.Pix, img.Pix)

	kernel := [3][3]int{
		{0, -1, 0},
		{-1, 5, -1},
		{0, -1, 0},
	}

	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			for i := 0; i < 3; i++ {
				sum := 0
				for ky := -1; ky <= 1; ky++ {
					for kx := -1; kx <= 1; kx++ {
						off := img.PixOffset(x+kx, y+ky)
						sum += int(img.Pix[off+i]) * kernel[ky+1][kx+1]
					}
				}
				out.Pix[out.PixOffset(x, y)+i] = clampByte(sum)
			}
		}
	}
	return out
}

func gamma(img *image.RGBA, g float64) *image.RGBA {
	var table [256]uint8
	for i := range table {
		table[i] = uint8(math.Round(255 * math.Pow(float64(i)/255, g)))
	}

	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	copy(out.Pix, img.Pix)
	for p := 0; p < len(out.Pix); p += 4 {
		out.Pix[p] = table[out.Pix[p]]
		out.Pix[p+1] = table[out.Pix[p+1]]
		out.Pix[p+2] = table[out.Pix[p+2]]
	}
	return out
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// StripAlpha composites the image over white, removing transparency. Used as
// the deterministic background-removal fallback.
func StripAlpha(img image.Image) image.Image {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	white := color.RGBA{255, 255, 255, 255}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			if a == 0 {
				out.Set(x-bounds.Min.X, y-bounds.Min.Y, white)
				continue
			}
			// Un-premultiply then blend over white.
			af := float64(a) / 0xffff
			rf := float64(r) / 0xffff
			gf := float64(g) / 0xffff
			bf := float64(b) / 0xffff
			out.Set(x-bounds.Min.X, y-bounds.Min.Y, color.RGBA{
				R: uint8(math.Round(255 * (rf + (1-af)))),
				G: uint8(math.Round(255 * (gf + (1-af)))),
				B: uint8(math.Round(255 * (bf + (1-af)))),
				A: 255,
			})
		}
	}
	return out
}
