package responsive

import (
	"fmt"
	"sort"

	"pixelmill-server-go/internal/domain/convert"
	domainimage "pixelmill-server-go/internal/domain/image"
)

// modernFormats become <source> entries in picture descriptors, in this
// preference order. Everything else competes to be the fallback <img>.
var modernFormats = []domainimage.Format{domainimage.FormatAVIF, domainimage.FormatWebP}

// ImgDescriptor is the contract for a single <img>-equivalent tag.
type ImgDescriptor struct {
	Src              string `json:"src"`
	SrcSet           string `json:"srcset,omitempty"`
	Sizes            string `json:"sizes,omitempty"`
	Width            int    `json:"width,omitempty"`
	Height           int    `json:"height,omitempty"`
	Loading          string `json:"loading"`
	FetchPriority    string `json:"fetchpriority,omitempty"`
	PlaceholderStyle string `json:"placeholder_style,omitempty"`
}

// PictureSource is one <source> entry of a picture descriptor.
type PictureSource struct {
	SrcSet string `json:"srcset"`
	Type   string `json:"type"`
	Sizes  string `json:"sizes,omitempty"`
}

// PictureDescriptor lists one source per modern format plus a fallback img.
type PictureDescriptor struct {
	Sources []PictureSource `json:"sources"`
	Img     ImgDescriptor   `json:"img"`
}

// MarkupOptions tune the generated descriptors. Zero values produce a
// lazy-loading tag with no fetch priority hint.
type MarkupOptions struct {
	Loading       string
	FetchPriority string
}

// BuildImg flattens a responsive set into a single img descriptor using the
// fallback format's srcset.
func BuildImg(set *Set, opts MarkupOptions) ImgDescriptor {
	format, variant := fallbackVariant(set)

	img := ImgDescriptor{
		Src:           variant.OutputKey,
		Sizes:         set.SizesAttribute,
		Width:         variant.Width,
		Height:        variant.Height,
		Loading:       loadingOr(opts.Loading),
		FetchPriority: opts.FetchPriority,
	}
	if srcset, ok := set.SrcSets[format]; ok {
		img.SrcSet = srcset
	}
	if set.Placeholder != nil {
		img.PlaceholderStyle = placeholderStyle(set.Placeholder)
	}
	return img
}

// BuildPicture emits one source per modern format present in the set, then
// the fallback img.
func BuildPicture(set *Set, opts MarkupOptions) PictureDescriptor {
	pic := PictureDescriptor{Img: BuildImg(set, opts)}
	for _, format := range modernFormats {
		srcset, ok := set.SrcSets[format]
		if !ok || srcset == "" {
			continue
		}
		pic.Sources = append(pic.Sources, PictureSource{
			SrcSet: srcset,
			Type:   format.MIME(),
			Sizes:  set.SizesAttribute,
		})
	}
	return pic
}

// fallbackVariant picks the widest variant of the first non-modern format,
// or the widest variant overall when only modern formats were produced.
func fallbackVariant(set *Set) (domainimage.Format, convert.Variant) {
	modern := make(map[domainimage.Format]bool, len(modernFormats))
	for _, f := range modernFormats {
		modern[f] = true
	}

	best := convert.Variant{}
	bestFormat := domainimage.Format("")
	bestModern := convert.Variant{}
	bestModernFormat := domainimage.Format("")

	sorted := append([]convert.Variant(nil), set.Variants...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Width < sorted[j].Width })

	for _, v := range sorted {
		if modern[v.Format] {
			bestModern, bestModernFormat = v, v.Format
		} else {
			best, bestFormat = v, v.Format
		}
	}
	if bestFormat != "" {
		return bestFormat, best
	}
	return bestModernFormat, bestModern
}

func loadingOr(loading string) string {
	if loading == "" {
		return "lazy"
	}
	return loading
}

func placeholderStyle(ph *Placeholder) string {
	return fmt.Sprintf("background-image:url(%s);background-size:cover;filter:blur(10px)", ph.DataURI)
}
