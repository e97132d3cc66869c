// Package responsive fans a source image out across the breakpoint, format
// and density matrix and assembles srcset/sizes descriptors from the
// produced variants.
package responsive

import (
	"context"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"pixelmill-server-go/internal/domain/artdirect"
	"pixelmill-server-go/internal/domain/convert"
	domainimage "pixelmill-server-go/internal/domain/image"
	"pixelmill-server-go/internal/platform/config"
	"pixelmill-server-go/internal/utils"
)

// sizesTable maps device-profile names to their default sizes attribute when
// neither the call nor the profile supplies one.
var sizesTable = map[string]string{
	"mobile":    "100vw",
	"tablet":    "(max-width: 768px) 100vw, 50vw",
	"desktop":   "(max-width: 1024px) 100vw, 33vw",
	"universal": "(max-width: 768px) 100vw, (max-width: 1024px) 50vw, 33vw",
}

// SetMetadata records how a responsive set was produced.
type SetMetadata struct {
	GenerationTimeMs int64 `json:"generation_time_ms"`
	BreakpointsUsed  []int `json:"breakpoints_used"`
}

// Set is the full responsive output for one source image.
type Set struct {
	Source         *domainimage.SourceImage      `json:"source"`
	Variants       []convert.Variant             `json:"variants"`
	SrcSets        map[domainimage.Format]string `json:"src_sets"`
	SizesAttribute string                        `json:"sizes_attribute"`
	Placeholder    *Placeholder                  `json:"placeholder,omitempty"`
	Metadata       SetMetadata                   `json:"metadata"`
}

// Options selects the matrix for one generation call. Zero fields fall back
// to the active device profile, then the global responsive configuration.
type Options struct {
	Formats           []domainimage.Format
	Breakpoints       []int
	Profile           string
	Sizes             string
	Quality           int
	QualityMultiplier float64
	Enhance           bool
	Placeholder       bool
}

// Generator orchestrates the converter and art-direction resolver across the
// matrix. Produced sets are cached by source path until Clear.
type Generator struct {
	converter   *convert.Converter
	resolver    *artdirect.Resolver
	placeholder *PlaceholderGenerator
	cfg         config.ResponsiveConfig
	profiles    map[string]config.DeviceProfile
	logger      *utils.Logger
	detector    artdirect.FocalPointDetector

	mu   sync.RWMutex
	sets map[string]*Set
}

// SetFocalDetector installs an optional focal-point capability used when an
// art-direction spec constrains the aspect ratio without naming a focal
// point. Call before serving.
func (g *Generator) SetFocalDetector(d artdirect.FocalPointDetector) {
	g.detector = d
}

func NewGenerator(
	converter *convert.Converter,
	resolver *artdirect.Resolver,
	placeholder *PlaceholderGenerator,
	cfg config.ResponsiveConfig,
	profiles map[string]config.DeviceProfile,
	logger *utils.Logger,
) *Generator {
	return &Generator{
		converter:   converter,
		resolver:    resolver,
		placeholder: placeholder,
		cfg:         cfg,
		profiles:    profiles,
		logger:      logger,
		sets:        make(map[string]*Set),
	}
}

// Clear drops all cached responsive sets.
func (g *Generator) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sets = make(map[string]*Set)
}

// Generate builds the responsive set for src, reusing a cached set for the
// same source path when present.
func (g *Generator) Generate(ctx context.Context, src *domainimage.SourceImage, opts Options) (*Set, error) {
	g.mu.RLock()
	cached, ok := g.sets[src.Path]
	g.mu.RUnlock()
	if ok {
		return cached, nil
	}

	start := time.Now()

	profile := g.activeProfile(opts.Profile)
	breakpoints := g.eligibleBreakpoints(src, opts, profile)
	densities := g.densities(opts, profile)
	formats := g.allowedFormats(opts.Formats, profile)

	set := &Set{
		Source:  src,
		SrcSets: make(map[domainimage.Format]string),
	}

	assetID := filepath.Base(src.Path)
	for _, bp := range breakpoints {
		region := g.regionFor(ctx, assetID, bp, src)
		for _, format := range formats {
			for _, density := range densities {
				targetWidth := int(math.Floor(float64(bp) * density))
				if targetWidth > src.Width {
					continue
				}
				variant, err := g.converter.Convert(ctx, src, format, convert.Options{
					Quality:           opts.Quality,
					QualityMultiplier: opts.QualityMultiplier,
					Width:             targetWidth,
					Enhance:           opts.Enhance,
					Region:            region,
					Profile:           profile,
					Breakpoint:        bp,
					Density:           density,
					Responsive:        true,
				})
				if err != nil {
					return nil, err
				}
				set.Variants = append(set.Variants, variant)
			}
		}
	}

	set.SrcSets = buildSrcSets(set.Variants)
	set.SizesAttribute = g.sizesAttribute(opts, profile)
	set.Metadata = SetMetadata{
		GenerationTimeMs: time.Since(start).Milliseconds(),
		BreakpointsUsed:  breakpoints,
	}

	if opts.Placeholder && g.placeholder != nil {
		ph, err := g.placeholder.Generate(src)
		if err != nil {
			if g.logger != nil {
				g.logger.WarnTag("RESPONSIVE", "placeholder for %s skipped: %v", src.Path, err)
			}
		} else {
			set.Placeholder = ph
		}
	}

	g.mu.Lock()
	g.sets[src.Path] = set
	g.mu.Unlock()
	return set, nil
}

func (g *Generator) activeProfile(name string) *config.DeviceProfile {
	if name == "" {
		name = g.cfg.DefaultProfile
	}
	if p, ok := g.profiles[name]; ok {
		return &p
	}
	return nil
}

func (g *Generator) eligibleBreakpoints(src *domainimage.SourceImage, opts Options, profile *config.DeviceProfile) []int {
	bps := opts.Breakpoints
	if len(bps) == 0 && profile != nil {
		bps = profile.Breakpoints
	}
	if len(bps) == 0 {
		bps = g.cfg.Breakpoints
	}

	eligible := make([]int, 0, len(bps))
	for _, bp := range bps {
		if bp <= src.Width {
			eligible = append(eligible, bp)
		}
	}
	sort.Ints(eligible)
	return eligible
}

func (g *Generator) densities(opts Options, profile *config.DeviceProfile) []float64 {
	if profile != nil && len(profile.Densities) > 0 {
		return profile.Densities
	}
	if len(g.cfg.Densities) > 0 {
		return g.cfg.Densities
	}
	return []float64{1}
}

// allowedFormats filters the requested formats through the profile's
// allow-list and drops targets the converter cannot encode.
func (g *Generator) allowedFormats(requested []domainimage.Format, profile *config.DeviceProfile) []domainimage.Format {
	if len(requested) == 0 {
		requested = []domainimage.Format{domainimage.FormatJPEG}
	}

	var allowed map[domainimage.Format]bool
	if profile != nil && len(profile.AllowedFormats) > 0 {
		allowed = make(map[domainimage.Format]bool, len(profile.AllowedFormats))
		for _, name := range profile.AllowedFormats {
			allowed[domainimage.ParseFormat(name)] = true
		}
	}

	out := make([]domainimage.Format, 0, len(requested))
	seen := make(map[domainimage.Format]bool, len(requested))
	for _, f := range requested {
		if seen[f] {
			continue
		}
		seen[f] = true
		if allowed != nil && !allowed[f] {
			continue
		}
		if !g.converter.CanConvert(f) {
			if g.logger != nil {
				g.logger.DebugTag("RESPONSIVE", "no encoder for %s, skipping", f)
			}
			continue
		}
		out = append(out, f)
	}
	return out
}

func (g *Generator) regionFor(ctx context.Context, assetID string, breakpoint int, src *domainimage.SourceImage) *image.Rectangle {
	if g.resolver == nil {
		return nil
	}
	spec, ok := g.resolver.Resolve(assetID, breakpoint)
	if !ok {
		return nil
	}

	// An aspect constraint without a focal point asks the detector where to
	// anchor the crop; detection failure keeps the center default.
	if spec.FocalPoint == nil && spec.AspectRatio > 0 && g.detector != nil {
		if point, confidence, err := g.detector.Detect(ctx, src.Path); err == nil {
			spec.FocalPoint = &point
			spec.Confidence = confidence
		} else if g.logger != nil {
			g.logger.DebugTag("ART", "focal detection for %s failed, using center: %v", assetID, err)
		}
	}

	region := spec.Region(src.Width, src.Height)
	return &region
}

func (g *Generator) sizesAttribute(opts Options, profile *config.DeviceProfile) string {
	if opts.Sizes != "" {
		return opts.Sizes
	}
	if profile != nil && profile.Sizes != "" {
		return profile.Sizes
	}
	name := opts.Profile
	if name == "" {
		name = g.cfg.DefaultProfile
	}
	if sizes, ok := sizesTable[name]; ok {
		return sizes
	}
	return "100vw"
}

// buildSrcSets groups variants by format and joins them as "path widthw"
// entries, ascending by width. Duplicate widths within a format collapse to
// the first occurrence.
func buildSrcSets(variants []convert.Variant) map[domainimage.Format]string {
	byFormat := make(map[domainimage.Format][]convert.Variant)
	for _, v := range variants {
		byFormat[v.Format] = append(byFormat[v.Format], v)
	}

	srcSets := make(map[domainimage.Format]string, len(byFormat))
	for format, list := range byFormat {
		sort.Slice(list, func(i, j int) bool { return list[i].Width < list[j].Width })

		entries := make([]string, 0, len(list))
		lastWidth := -1
		for _, v := range list {
			if v.Width == lastWidth {
				continue
			}
			lastWidth = v.Width
			entries = append(entries, fmt.Sprintf("%s %dw", v.OutputKey, v.Width))
		}
		srcSets[format] = strings.Join(entries, ", ")
	}
	return srcSets
}
