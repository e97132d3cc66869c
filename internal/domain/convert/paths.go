package convert

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	domainimage "pixelmill-server-go/internal/domain/image"
)

// relativeDir resolves where under the output tree a source's artifacts land,
// mirroring its position under the input tree when possible.
func relativeDir(inputDir, sourcePath string) string {
	dir := filepath.Dir(sourcePath)
	if inputDir == "" {
		return ""
	}
	rel, err := filepath.Rel(inputDir, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	if rel == "." {
		return ""
	}
	return rel
}

func basename(sourcePath string) string {
	base := filepath.Base(sourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// cropTag names an art-directed extraction so crops sharing a target width
// do not collide on one output key.
func cropTag(r image.Rectangle) string {
	return fmt.Sprintf("c%dx%d-%dx%d", r.Min.X, r.Min.Y, r.Dx(), r.Dy())
}

// ResponsiveKey builds `{outputDir}/{relativeDir}/{basename}_{width}w.{format}`.
// An art-directed region adds a crop tag between the width and extension.
func ResponsiveKey(outputDir, inputDir, sourcePath string, width int, format domainimage.Format, region *image.Rectangle) string {
	name := fmt.Sprintf("%s_%dw.%s", basename(sourcePath), width, format)
	if region != nil {
		name = fmt.Sprintf("%s_%dw_%s.%s", basename(sourcePath), width, cropTag(*region), format)
	}
	return filepath.Join(outputDir, relativeDir(inputDir, sourcePath), name)
}

// OptimizedKey builds `{outputDir}/{relativeDir}/{basename}.{suffix}.{ext}`
// for non-responsive optimized originals.
func OptimizedKey(outputDir, inputDir, sourcePath, suffix string, format domainimage.Format, region *image.Rectangle) string {
	name := fmt.Sprintf("%s.%s.%s", basename(sourcePath), suffix, format.Ext())
	if region != nil {
		name = fmt.Sprintf("%s.%s_%s.%s", basename(sourcePath), suffix, cropTag(*region), format.Ext())
	}
	return filepath.Join(outputDir, relativeDir(inputDir, sourcePath), name)
}
