package config

import "time"

// DefaultConfig returns the configuration used when no config file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Pipeline: PipelineConfig{
			InputDir:       "data/images",
			OutputDir:      "data/optimized",
			EnabledFormats: []string{"avif", "webp", "jpeg", "png", "gif", "tiff", "bmp"},
			Quality: map[string]int{
				"avif": 75,
				"webp": 80,
				"jpeg": 82,
				"png":  90,
			},
			DefaultQuality: 80,
		},
		Responsive: ResponsiveConfig{
			Breakpoints:        []int{320, 640, 768, 1024, 1280, 1920},
			Densities:          []float64{1, 2},
			DefaultProfile:     "universal",
			PlaceholderWidth:   20,
			PlaceholderQuality: 20,
		},
		Profiles: map[string]DeviceProfile{
			"mobile": {
				Breakpoints:    []int{320, 480, 640},
				Densities:      []float64{1, 2, 3},
				AllowedFormats: []string{"avif", "webp", "jpeg"},
				Quality:        map[string]int{"avif": 70, "webp": 75, "jpeg": 78},
				Sizes:          "100vw",
			},
			"tablet": {
				Breakpoints:    []int{640, 768, 1024},
				Densities:      []float64{1, 2},
				AllowedFormats: []string{"avif", "webp", "jpeg"},
				Quality:        map[string]int{"avif": 72, "webp": 78, "jpeg": 80},
				Sizes:          "(max-width: 768px) 100vw, 50vw",
			},
			"desktop": {
				Breakpoints:    []int{1024, 1280, 1920},
				Densities:      []float64{1, 2},
				AllowedFormats: []string{"avif", "webp", "jpeg", "png"},
				Quality:        map[string]int{"avif": 75, "webp": 80, "jpeg": 82},
				Sizes:          "(max-width: 768px) 100vw, (max-width: 1200px) 50vw, 33vw",
			},
			"retina": {
				Breakpoints:    []int{640, 1280, 2560},
				Densities:      []float64{2, 3},
				AllowedFormats: []string{"avif", "webp"},
				Quality:        map[string]int{"avif": 68, "webp": 72},
				Sizes:          "(max-width: 768px) 100vw, 50vw",
			},
			"universal": {
				Breakpoints:    []int{320, 640, 768, 1024, 1280, 1920},
				Densities:      []float64{1, 2},
				AllowedFormats: []string{"avif", "webp", "jpeg", "png"},
				Quality:        map[string]int{"avif": 75, "webp": 80, "jpeg": 82, "png": 90},
				Sizes:          "(max-width: 768px) 100vw, (max-width: 1200px) 50vw, 800px",
			},
		},
		Cache: CacheConfig{
			Driver: "memory",
			TTL:    24 * time.Hour,
		},
		Storage: StorageConfig{
			Enabled: true,
			Path:    "data/pixelmill.db",
		},
		Batch: BatchConfig{
			MaxConcurrent: 5,
		},
		Focal: FocalConfig{
			Detector: "heuristic",
			VLM: VLMConfig{
				ModelName: "gpt-4o-mini",
				MaxTokens: 64,
			},
		},
		Delivery: DeliveryConfig{
			Production:       false,
			FallbackProvider: "origin",
			SignTTL:          15 * time.Minute,
			Providers: []ProviderConfig{
				{Name: "cloudfront", Enabled: true, Settings: map[string]string{
					"domain": "cdn.example.com",
				}},
				{Name: "cloudflare", Enabled: false},
				{Name: "origin", Enabled: true},
			},
			Policies: map[string]PolicyConfig{
				"images": {
					TTLSeconds: 86400 * 30,
					Headers: map[string]string{
						"Cache-Control": "public, max-age=2592000, immutable",
					},
					Providers: []string{"cloudfront", "cloudflare", "origin"},
				},
				"videos": {
					TTLSeconds: 86400 * 7,
					Headers: map[string]string{
						"Cache-Control": "public, max-age=604800",
					},
					Providers: []string{"cloudfront", "origin"},
				},
				"html_pages": {
					TTLSeconds: 300,
					Headers: map[string]string{
						"Cache-Control": "public, max-age=300, must-revalidate",
					},
					Providers: []string{"cloudflare", "origin"},
				},
				"api_responses": {
					TTLSeconds: 60,
					Headers: map[string]string{
						"Cache-Control": "private, max-age=60",
					},
					Providers: []string{"origin"},
				},
				"static_assets": {
					TTLSeconds: 86400 * 365,
					Headers: map[string]string{
						"Cache-Control": "public, max-age=31536000, immutable",
					},
					Providers: []string{"cloudfront", "cloudflare", "origin"},
				},
			},
		},
	}
}
