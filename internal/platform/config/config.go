package config

import (
	"time"
)

type Config struct {
	Server       ServerConfig             `yaml:"server"`
	Log          LogConfig                `yaml:"log"`
	Pipeline     PipelineConfig           `yaml:"pipeline"`
	Responsive   ResponsiveConfig         `yaml:"responsive"`
	Profiles     map[string]DeviceProfile `yaml:"device_profiles"`
	ArtDirection []ArtDirectionRule       `yaml:"art_direction"`
	Cache        CacheConfig              `yaml:"conversion_cache"`
	Storage      StorageConfig            `yaml:"storage"`
	Batch        BatchConfig              `yaml:"batch"`
	Focal        FocalConfig              `yaml:"focal_point"`
	Delivery     DeliveryConfig           `yaml:"delivery"`
}

type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

// PipelineConfig covers the optimizer's directories, enabled formats and
// per-format default qualities.
type PipelineConfig struct {
	InputDir       string         `yaml:"input_dir"`
	OutputDir      string         `yaml:"output_dir"`
	EnabledFormats []string       `yaml:"enabled_formats"`
	Quality        map[string]int `yaml:"quality"`
	DefaultQuality int            `yaml:"default_quality"`
}

type ResponsiveConfig struct {
	Breakpoints        []int     `yaml:"breakpoints"`
	Densities          []float64 `yaml:"densities"`
	DefaultProfile     string    `yaml:"default_profile"`
	PlaceholderWidth   int       `yaml:"placeholder_width"`
	PlaceholderQuality int       `yaml:"placeholder_quality"`
}

// DeviceProfile is a named static bundle of breakpoints, densities, allowed
// formats and per-format quality.
type DeviceProfile struct {
	Breakpoints    []int          `yaml:"breakpoints"`
	Densities      []float64      `yaml:"densities"`
	AllowedFormats []string       `yaml:"allowed_formats"`
	Quality        map[string]int `yaml:"quality"`
	Sizes          string         `yaml:"sizes"`
}

// ArtDirectionRule configures per-breakpoint crop specs for assets matching
// a wildcard pattern. Rules apply in declaration order, first match wins.
type ArtDirectionRule struct {
	Pattern     string               `yaml:"pattern"`
	Breakpoints map[int]CropSpecYAML `yaml:"breakpoints"`
}

type CropSpecYAML struct {
	Crop        *RectYAML  `yaml:"crop,omitempty"`
	FocalPoint  *PointYAML `yaml:"focal_point,omitempty"`
	AspectRatio string     `yaml:"aspect_ratio,omitempty"`
	Padding     int        `yaml:"padding,omitempty"`
}

type RectYAML struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type PointYAML struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type CacheConfig struct {
	Driver string           `yaml:"driver"`
	TTL    time.Duration    `yaml:"ttl"`
	Redis  CacheRedisConfig `yaml:"redis,omitempty"`
}

type CacheRedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// FocalConfig selects the focal-point detector implementation. "heuristic"
// is always available; "vlm" talks to an OpenAI-compatible vision model.
type FocalConfig struct {
	Detector string    `yaml:"detector"`
	VLM      VLMConfig `yaml:"vlm,omitempty"`
}

type VLMConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	ModelName string `yaml:"model_name"`
	MaxTokens int    `yaml:"max_tokens"`
}

type DeliveryConfig struct {
	Production       bool                    `yaml:"production"`
	FallbackProvider string                  `yaml:"fallback_provider"`
	SignTTL          time.Duration           `yaml:"sign_ttl"`
	Providers        []ProviderConfig        `yaml:"providers"`
	Policies         map[string]PolicyConfig `yaml:"policies"`
}

// ProviderConfig describes one delivery backend. Settings is an opaque bag;
// anything secret-like in it is masked on export.
type ProviderConfig struct {
	Name     string            `yaml:"name"`
	Enabled  bool              `yaml:"enabled"`
	Settings map[string]string `yaml:"settings,omitempty"`
}

type PolicyConfig struct {
	TTLSeconds int               `yaml:"ttl_seconds"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	Providers  []string          `yaml:"providers,omitempty"`
}
