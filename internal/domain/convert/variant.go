package convert

import (
	domainimage "pixelmill-server-go/internal/domain/image"
)

// Variant is one produced artifact. Immutable after creation.
type Variant struct {
	Format     domainimage.Format `json:"format"`
	Width      int                `json:"width"`
	Height     int                `json:"height"`
	ByteSize   int64              `json:"byte_size"`
	Quality    int                `json:"quality"`
	OutputKey  string             `json:"output_key"`
	Breakpoint int                `json:"breakpoint,omitempty"`
	Density    float64            `json:"density,omitempty"`

	// CacheHit marks variants served from the conversion cache. Not part of
	// the cached payload.
	CacheHit bool `json:"-"`
}
