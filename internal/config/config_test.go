package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Upload.MaxBytes != 5<<20 {
		t.Errorf("Expected 5 MiB upload limit, got %d", cfg.Upload.MaxBytes)
	}
	if len(cfg.Upload.AllowedTypes) != 3 {
		t.Errorf("Unexpected allowed types %v", cfg.Upload.AllowedTypes)
	}
	if cfg.Vision.Detector != DetectorSkin {
		t.Errorf("Expected skin detector, got %s", cfg.Vision.Detector)
	}
	if cfg.Vision.DetectDelay != 1500*time.Millisecond || cfg.Vision.OverlayDelay != time.Second {
		t.Errorf("Unexpected delays %v %v", cfg.Vision.DetectDelay, cfg.Vision.OverlayDelay)
	}
	if cfg.Export.Prefix != "styleai-tryon" || cfg.Export.Backend != BackendFilesystem {
		t.Errorf("Unexpected export config %+v", cfg.Export)
	}
	if cfg.Share.Redis.TTL != 24*time.Hour || cfg.Share.Redis.Addr != "" {
		t.Errorf("Unexpected redis config %+v", cfg.Share.Redis)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TRYON_EXPORT_DIR", "/tmp/tryon-out")
	t.Setenv("TRYON_VISION_DETECT_DELAY", "0s")
	t.Setenv("TRYON_SHARE_REDIS_ADDR", "localhost:6379")
	t.Setenv("TRYON_UPLOAD_ALLOWED_TYPES", "image/jpeg,image/png")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Export.Dir != "/tmp/tryon-out" {
		t.Errorf("Expected env export dir, got %s", cfg.Export.Dir)
	}
	if cfg.Vision.DetectDelay != 0 {
		t.Errorf("Expected zero detect delay, got %v", cfg.Vision.DetectDelay)
	}
	if cfg.Share.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected redis addr, got %q", cfg.Share.Redis.Addr)
	}
	if len(cfg.Upload.AllowedTypes) != 2 || cfg.Upload.AllowedTypes[1] != "image/png" {
		t.Errorf("Unexpected allowed types %v", cfg.Upload.AllowedTypes)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tryon.yaml")
	yaml := `
log:
  mode: release
export:
  backend: http
  content_api_url: http://content.internal:4000
vision:
  overlay_scale: 0.5
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Mode != "release" || cfg.Export.Backend != BackendHTTP || cfg.Vision.OverlayScale != 0.5 {
		t.Errorf("File values not applied: %+v", cfg)
	}
	if cfg.Export.Prefix != "styleai-tryon" {
		t.Error("Expected defaults to fill unset keys")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero upload limit", func(c *Config) { c.Upload.MaxBytes = 0 }, "upload.max_bytes"},
		{"no allowed types", func(c *Config) { c.Upload.AllowedTypes = nil }, "upload.allowed_types"},
		{"unknown detector", func(c *Config) { c.Vision.Detector = "lidar" }, "vision.detector"},
		{"gocv without cascade", func(c *Config) { c.Vision.Detector = DetectorGoCV }, "vision.cascade_file"},
		{"overlay scale too large", func(c *Config) { c.Vision.OverlayScale = 1.5 }, "vision.overlay_scale"},
		{"negative delay", func(c *Config) { c.Vision.OverlayDelay = -time.Second }, "delays"},
		{"unknown backend", func(c *Config) { c.Export.Backend = "ftp" }, "export.backend"},
		{"http without url", func(c *Config) {
			c.Export.Backend = BackendHTTP
			c.Export.ContentAPIURL = ""
		}, "export.content_api_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}

	if err := valid().Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}
