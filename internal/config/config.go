// Package config loads try-on settings from an optional YAML file, a .env
// file and TRYON_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TRYON_EXPORT_DIR
const EnvPrefix = "TRYON"

// Export backends
const (
	BackendFilesystem = "filesystem"
	BackendContent    = "content"
	BackendHTTP       = "http"
)

// Detectors
const (
	DetectorSkin = "skin"
	DetectorGoCV = "gocv"
)

// Config is the complete try-on configuration
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Vision  VisionConfig  `mapstructure:"vision"`
	Export  ExportConfig  `mapstructure:"export"`
	Share   ShareConfig   `mapstructure:"share"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LogConfig selects the logger mode ("debug" or "release")
type LogConfig struct {
	Mode string `mapstructure:"mode"`
}

// UploadConfig bounds accepted uploads
type UploadConfig struct {
	MaxBytes     int64    `mapstructure:"max_bytes"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// VisionConfig selects and tunes the detector and compositor
type VisionConfig struct {
	Detector       string        `mapstructure:"detector"`
	CascadeFile    string        `mapstructure:"cascade_file"`
	SkinRatio      float64       `mapstructure:"skin_ratio"`
	OverlayScale   float64       `mapstructure:"overlay_scale"`
	OverlayOffsetY float64       `mapstructure:"overlay_offset_y"`
	DetectDelay    time.Duration `mapstructure:"detect_delay"`
	OverlayDelay   time.Duration `mapstructure:"overlay_delay"`
}

// ExportConfig names exported files and picks where downloads are saved
type ExportConfig struct {
	Prefix        string `mapstructure:"prefix"`
	Backend       string `mapstructure:"backend"`
	Dir           string `mapstructure:"dir"`
	ContentAPIURL string `mapstructure:"content_api_url"`
	OwnerID       string `mapstructure:"owner_id"`
	TenantID      string `mapstructure:"tenant_id"`
}

// ShareConfig configures native share and the clipboard fallback
type ShareConfig struct {
	Redis         RedisConfig `mapstructure:"redis"`
	ClipboardFile string      `mapstructure:"clipboard_file"`
}

// RedisConfig points native share at a redis server; empty Addr disables it
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Channel  string        `mapstructure:"channel"`
}

// MetricsConfig controls metrics output
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Load reads configuration. path may be empty; a .env file in the working
// directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.mode", "debug")

	v.SetDefault("upload.max_bytes", 5*1024*1024)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/webp"})

	v.SetDefault("vision.detector", DetectorSkin)
	v.SetDefault("vision.cascade_file", "")
	v.SetDefault("vision.skin_ratio", 0.15)
	v.SetDefault("vision.overlay_scale", 0.6)
	v.SetDefault("vision.overlay_offset_y", 0.45)
	v.SetDefault("vision.detect_delay", 1500*time.Millisecond)
	v.SetDefault("vision.overlay_delay", 1000*time.Millisecond)

	v.SetDefault("export.prefix", "styleai-tryon")
	v.SetDefault("export.backend", BackendFilesystem)
	v.SetDefault("export.dir", "./tryon-exports")
	v.SetDefault("export.content_api_url", "http://localhost:4000")
	v.SetDefault("export.owner_id", "00000000-0000-0000-0000-000000000001")
	v.SetDefault("export.tenant_id", "00000000-0000-0000-0000-000000000002")

	v.SetDefault("share.redis.addr", "")
	v.SetDefault("share.redis.password", "")
	v.SetDefault("share.redis.db", 0)
	v.SetDefault("share.redis.ttl", 24*time.Hour)
	v.SetDefault("share.redis.channel", "tryon:shares")
	v.SetDefault("share.clipboard_file", "")

	v.SetDefault("metrics.textfile", "")
}

// Validate rejects settings no component can honor
func (c *Config) Validate() error {
	var errs []error
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("upload.max_bytes must be positive, got %d", c.Upload.MaxBytes))
	}
	if len(c.Upload.AllowedTypes) == 0 {
		errs = append(errs, errors.New("upload.allowed_types must not be empty"))
	}
	switch c.Vision.Detector {
	case DetectorSkin:
	case DetectorGoCV:
		if c.Vision.CascadeFile == "" {
			errs = append(errs, errors.New("vision.cascade_file is required for the gocv detector"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vision.detector %q", c.Vision.Detector))
	}
	if c.Vision.SkinRatio <= 0 || c.Vision.SkinRatio > 1 {
		errs = append(errs, fmt.Errorf("vision.skin_ratio must be in (0, 1], got %v", c.Vision.SkinRatio))
	}
	if c.Vision.OverlayScale <= 0 || c.Vision.OverlayScale > 1 {
		errs = append(errs, fmt.Errorf("vision.overlay_scale must be in (0, 1], got %v", c.Vision.OverlayScale))
	}
	if c.Vision.OverlayOffsetY < 0 || c.Vision.OverlayOffsetY >= 1 {
		errs = append(errs, fmt.Errorf("vision.overlay_offset_y must be in [0, 1), got %v", c.Vision.OverlayOffsetY))
	}
	if c.Vision.DetectDelay < 0 || c.Vision.OverlayDelay < 0 {
		errs = append(errs, errors.New("vision delays must not be negative"))
	}
	switch c.Export.Backend {
	case BackendFilesystem:
		if c.Export.Dir == "" {
			errs = append(errs, errors.New("export.dir is required for the filesystem backend"))
		}
	case BackendContent, BackendHTTP:
		if c.Export.Backend == BackendHTTP && c.Export.ContentAPIURL == "" {
			errs = append(errs, errors.New("export.content_api_url is required for the http backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown export.backend %q", c.Export.Backend))
	}
	return errors.Join(errs...)
}
