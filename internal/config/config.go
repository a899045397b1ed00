package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/polyeditor/polyeditor/backend-go/internal/engine"
	"github.com/polyeditor/polyeditor/backend-go/internal/geom"
)

type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	DatabaseURL    string `envconfig:"DATABASE_URL"` // empty disables snapshots
	SessionSecret  string `envconfig:"SESSION_SECRET" default:"dev-secret-change-in-production"`
	LevelDir       string `envconfig:"LEVEL_DIR" default:"."`
	ConverterPath  string `envconfig:"CONVERTER_PATH" default:"PolyConverter.exe"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`

	HitboxResolution float64 `envconfig:"HITBOX_RESOLUTION" default:"40"`
	DuplicateOffsetX float64 `envconfig:"DUPLICATE_OFFSET_X" default:"1"`
	DuplicateOffsetY float64 `envconfig:"DUPLICATE_OFFSET_Y" default:"-1"`
	ZoomMin          float64 `envconfig:"ZOOM_MIN" default:"4"`
	ZoomMax          float64 `envconfig:"ZOOM_MAX" default:"400"`
	ZoomMult         float64 `envconfig:"ZOOM_MULT" default:"1.1"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HitboxResolution <= 0 {
		return fmt.Errorf("HITBOX_RESOLUTION must be positive, got %v", c.HitboxResolution)
	}
	if c.ZoomMin <= 0 || c.ZoomMax < c.ZoomMin {
		return fmt.Errorf("zoom range [%v, %v] is invalid", c.ZoomMin, c.ZoomMax)
	}
	if c.ZoomMult <= 1 {
		return fmt.Errorf("ZOOM_MULT must be greater than 1, got %v", c.ZoomMult)
	}
	return nil
}

// EditorOptions maps the editor settings into engine options.
func (c *Config) EditorOptions() engine.Options {
	return engine.Options{
		HitboxResolution: c.HitboxResolution,
		DuplicateOffset:  geom.V2(c.DuplicateOffsetX, c.DuplicateOffsetY),
		ZoomMin:          c.ZoomMin,
		ZoomMax:          c.ZoomMax,
		ZoomMult:         c.ZoomMult,
	}
}

// Origins splits ALLOWED_ORIGINS.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// SlogLevel parses LOG_LEVEL, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
