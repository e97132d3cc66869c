package artdirect

import (
	"context"
	"image"

	domainimage "pixelmill-server-go/internal/domain/image"
)

// FocalPointDetector locates the subject of an image. Implementations may be
// model-backed; the heuristic detector is always available.
type FocalPointDetector interface {
	Detect(ctx context.Context, path string) (Point, float64, error)
}

// DetectedObject is one region reported by an object detector.
type DetectedObject struct {
	Label      string          `json:"label"`
	Bounds     image.Rectangle `json:"bounds"`
	Confidence float64         `json:"confidence"`
}

// ObjectDetector enumerates subjects in an image.
type ObjectDetector interface {
	DetectObjects(ctx context.Context, path string) ([]DetectedObject, error)
}

// BackgroundRemover separates subject from background.
type BackgroundRemover interface {
	RemoveBackground(ctx context.Context, path string) (image.Image, error)
}

// HeuristicCapabilities is the deterministic fallback implementation of all
// three capabilities: center focal point, no objects, alpha strip.
type HeuristicCapabilities struct {
	codec domainimage.Codec
}

func NewHeuristicCapabilities(codec domainimage.Codec) *HeuristicCapabilities {
	return &HeuristicCapabilities{codec: codec}
}

func (h *HeuristicCapabilities) Detect(ctx context.Context, path string) (Point, float64, error) {
	return CenterPoint(), HeuristicConfidence, nil
}

func (h *HeuristicCapabilities) DetectObjects(ctx context.Context, path string) ([]DetectedObject, error) {
	return nil, nil
}

func (h *HeuristicCapabilities) RemoveBackground(ctx context.Context, path string) (image.Image, error) {
	img, _, err := h.codec.Decode(path)
	if err != nil {
		return nil, err
	}
	return domainimage.StripAlpha(img), nil
}
