package artdirect

import (
	"image"

	"pixelmill-server-go/internal/platform/config"
	platformerrors "pixelmill-server-go/internal/platform/errors"
)

// SpecFromConfig converts one YAML crop spec into a runtime Spec.
func SpecFromConfig(c config.CropSpecYAML) (Spec, error) {
	spec := Spec{Padding: c.Padding}

	if c.Crop != nil {
		rect := image.Rect(c.Crop.X, c.Crop.Y, c.Crop.X+c.Crop.Width, c.Crop.Y+c.Crop.Height)
		spec.Crop = &rect
	}
	if c.FocalPoint != nil {
		spec.FocalPoint = &Point{X: c.FocalPoint.X, Y: c.FocalPoint.Y}
	}
	if c.AspectRatio != "" {
		aspect, err := ParseAspectRatio(c.AspectRatio)
		if err != nil {
			return Spec{}, platformerrors.Wrap(platformerrors.KindArtDirection, "config", "parse aspect ratio", err)
		}
		spec.AspectRatio = aspect
	}
	return spec, nil
}

// RegisterFromConfig loads the configured rule table into the resolver in
// declaration order.
func RegisterFromConfig(r *Resolver, rules []config.ArtDirectionRule) error {
	for _, rule := range rules {
		specs := make(map[int]Spec, len(rule.Breakpoints))
		for bp, raw := range rule.Breakpoints {
			spec, err := SpecFromConfig(raw)
			if err != nil {
				return err
			}
			specs[bp] = spec
		}
		if err := r.Register(rule.Pattern, specs); err != nil {
			return err
		}
	}
	return nil
}
