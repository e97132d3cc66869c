package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")

	configContent := `
server:
  ip: "127.0.0.1"
  port: 9090
log:
  log_level: "debug"
  log_dir: "/tmp/logs"
  log_file: "test.log"
pipeline:
  output_dir: "/tmp/out"
  default_quality: 75
responsive:
  breakpoints: [320, 768]
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	loader := NewLoader().WithDotEnv(false).WithPath(configFile)
	res, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := res.Config

	if cfg.Server.IP != "127.0.0.1" {
		t.Errorf("expected server IP 127.0.0.1, got %s", cfg.Server.IP)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected server port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Pipeline.OutputDir != "/tmp/out" {
		t.Errorf("expected output dir /tmp/out, got %s", cfg.Pipeline.OutputDir)
	}
	if cfg.Pipeline.DefaultQuality != 75 {
		t.Errorf("expected default quality 75, got %d", cfg.Pipeline.DefaultQuality)
	}
	if len(cfg.Responsive.Breakpoints) != 2 || cfg.Responsive.Breakpoints[1] != 768 {
		t.Errorf("unexpected breakpoints: %v", cfg.Responsive.Breakpoints)
	}
	// Defaults survive partial files.
	if cfg.Batch.MaxConcurrent != 5 {
		t.Errorf("expected default max_concurrent 5, got %d", cfg.Batch.MaxConcurrent)
	}
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	loader := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "absent.yaml"))
	res, err := loader.Load()
	if err != nil {
		t.Fatalf("load with missing file should fall back to defaults: %v", err)
	}
	if res.Path != "" {
		t.Errorf("expected empty origin path for defaults, got %q", res.Path)
	}
	if res.Config.Pipeline.DefaultQuality != 80 {
		t.Errorf("expected default quality 80, got %d", res.Config.Pipeline.DefaultQuality)
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("PIXELMILL_REDIS_PASSWORD", "hunter2")
	t.Setenv("PIXELMILL_VLM_API_KEY", "sk-test")
	t.Setenv("PIXELMILL_PROVIDER_CLOUDFRONT_SECRET", "cf-secret")

	loader := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "absent.yaml"))
	res, err := loader.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if res.Config.Cache.Redis.Password != "hunter2" {
		t.Errorf("redis password override not applied")
	}
	if res.Config.Focal.VLM.APIKey != "sk-test" {
		t.Errorf("vlm api key override not applied")
	}

	var cloudfront *ProviderConfig
	for i := range res.Config.Delivery.Providers {
		if res.Config.Delivery.Providers[i].Name == "cloudfront" {
			cloudfront = &res.Config.Delivery.Providers[i]
		}
	}
	if cloudfront == nil || cloudfront.Settings["secret_key"] != "cf-secret" {
		t.Errorf("provider secret override not applied: %+v", cloudfront)
	}
}

func TestConfig_Redacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Redis.Password = "hunter2"
	cfg.Focal.VLM.APIKey = "sk-live-123"
	cfg.Delivery.Providers[0].Settings["secret_key"] = "cf-secret"

	tree, err := cfg.Redacted()
	if err != nil {
		t.Fatalf("redact failed: %v", err)
	}

	flat := flatten(tree)
	for k, v := range flat {
		if sensitiveKey(k) {
			if s, ok := v.(string); ok && s != "" && s != "********" {
				t.Errorf("credential leaked under key %q: %q", k, s)
			}
		}
	}
}

func flatten(node interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	var walk func(prefix string, n interface{})
	walk = func(prefix string, n interface{}) {
		switch typed := n.(type) {
		case map[string]interface{}:
			for k, v := range typed {
				walk(k, v)
				out[k] = v
			}
		case []interface{}:
			for _, v := range typed {
				walk(prefix, v)
			}
		}
	}
	walk("", node)
	return out
}
