// Package artdirect matches asset identifiers against registered
// per-breakpoint crop/aspect/focal-point rules and computes the resulting
// extraction geometry.
package artdirect

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Point is a relative position inside the image, both axes in [0,1].
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CenterPoint is the deterministic focal-point fallback.
func CenterPoint() Point {
	return Point{X: 0.5, Y: 0.5}
}

// HeuristicConfidence is attached to fallback focal points. Informational only.
const HeuristicConfidence = 0.6

// Spec is one breakpoint's art direction: an optional explicit crop, an
// optional focal point, an aspect-ratio constraint and padding.
type Spec struct {
	Crop        *image.Rectangle `json:"crop,omitempty"`
	FocalPoint  *Point           `json:"focal_point,omitempty"`
	AspectRatio float64          `json:"aspect_ratio,omitempty"`
	Padding     int              `json:"padding,omitempty"`
	Confidence  float64          `json:"confidence,omitempty"`
}

// ParseAspectRatio accepts "16:9", "4/3" or a plain float string.
func ParseAspectRatio(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	for _, sep := range []string{":", "/"} {
		if strings.Contains(s, sep) {
			parts := strings.SplitN(s, sep, 2)
			w, errW := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			h, errH := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if errW != nil || errH != nil || h == 0 {
				return 0, fmt.Errorf("invalid aspect ratio %q", s)
			}
			return w / h, nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid aspect ratio %q", s)
	}
	return v, nil
}

// Region computes the extraction rectangle for a source of the given size:
// explicit crop first, then crop-by-focal-point under the aspect constraint,
// then padding.
func (s Spec) Region(srcW, srcH int) image.Rectangle {
	rect := image.Rect(0, 0, srcW, srcH)

	if s.Crop != nil {
		rect = s.Crop.Intersect(rect)
		if rect.Empty() {
			rect = image.Rect(0, 0, srcW, srcH)
		}
	}

	if s.AspectRatio > 0 {
		rect = aspectCrop(rect, s.AspectRatio, s.focalOrCenter())
	}

	if s.Padding > 0 {
		padded := rect.Inset(s.Padding)
		if !padded.Empty() {
			rect = padded
		}
	}
	return rect
}

func (s Spec) focalOrCenter() Point {
	if s.FocalPoint != nil {
		return *s.FocalPoint
	}
	return CenterPoint()
}

// aspectCrop returns the largest sub-rectangle of rect with the requested
// aspect ratio, centered on the focal point and clamped to rect.
func aspectCrop(rect image.Rectangle, aspect float64, focal Point) image.Rectangle {
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	if w <= 0 || h <= 0 {
		return rect
	}

	cropW, cropH := w, h
	if w/h > aspect {
		cropW = h * aspect
	} else {
		cropH = w / aspect
	}

	cx := float64(rect.Min.X) + focal.X*w
	cy := float64(rect.Min.Y) + focal.Y*h

	x0 := cx - cropW/2
	y0 := cy - cropH/2

	// Clamp the window inside rect.
	if x0 < float64(rect.Min.X) {
		x0 = float64(rect.Min.X)
	}
	if y0 < float64(rect.Min.Y) {
		y0 = float64(rect.Min.Y)
	}
	if x0+cropW > float64(rect.Max.X) {
		x0 = float64(rect.Max.X) - cropW
	}
	if y0+cropH > float64(rect.Max.Y) {
		y0 = float64(rect.Max.Y) - cropH
	}

	return image.Rect(int(x0), int(y0), int(x0+cropW), int(y0+cropH))
}
