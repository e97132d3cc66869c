package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "pixelmill-server-go/internal/platform/errors"
)

// EnvConfigPath overrides the config file location when set.
const EnvConfigPath = "PIXELMILL_CONFIG"

// Loader reads the yaml configuration with env-based credential overrides.
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader with dotenv support enabled.
func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the config file path (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load reads defaults, overlays the config file when present and finally
// applies environment overrides for credentials.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using system environment")
		}
	}

	path := l.path
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig, "load", "parse config file", err)
		}
	case os.IsNotExist(err):
		path = "" // defaults only
	default:
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "load", "read config file", err)
	}

	applyEnvOverrides(cfg)

	return &Result{Config: cfg, Path: path}, nil
}

// applyEnvOverrides injects credentials from the environment so secrets never
// need to live in the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PIXELMILL_REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("PIXELMILL_VLM_API_KEY"); v != "" {
		cfg.Focal.VLM.APIKey = v
	}
	for i := range cfg.Delivery.Providers {
		name := cfg.Delivery.Providers[i].Name
		env := "PIXELMILL_PROVIDER_" + envKey(name) + "_SECRET"
		if v := os.Getenv(env); v != "" {
			if cfg.Delivery.Providers[i].Settings == nil {
				cfg.Delivery.Providers[i].Settings = map[string]string{}
			}
			cfg.Delivery.Providers[i].Settings["secret_key"] = v
		}
	}
}

func envKey(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r-('a'-'A'))
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
