// Package config holds the tunables of a pdfdesk session.
package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/annotation"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/logger"
)

// Config holds the editor settings, loadable from YAML.
type Config struct {
	// PreviewScale is the render scale annotations are placed at
	PreviewScale     float64                 `yaml:"preview_scale" validate:"gt=0,lte=10"`
	ThumbnailScale   float64                 `yaml:"thumbnail_scale" validate:"gt=0,lte=10"`
	MaxRenderWorkers int                     `yaml:"max_render_workers" validate:"min=1,max=64"`
	OrphanPolicy     annotation.OrphanPolicy `yaml:"orphan_policy" validate:"oneof=drop reassign"`
	BlankPageSize    string                  `yaml:"blank_page_size" validate:"oneof=a4 letter"`
	RotationStep     int                     `yaml:"rotation_step" validate:"oneof=90 180 270 -90"`

	DefaultColor       string  `yaml:"default_color" validate:"hexcolor"`
	DefaultSize        float64 `yaml:"default_size" validate:"gt=0,lte=1000"`
	DefaultStrokeWidth float64 `yaml:"default_stroke_width" validate:"gte=0,lte=100"`

	LogLevel         string `yaml:"log_level" validate:"oneof=debug info warn error"`
	MaxDocumentBytes int64  `yaml:"max_document_bytes" validate:"min=0"`
}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		PreviewScale:       1.5,
		ThumbnailScale:     0.3,
		MaxRenderWorkers:   4,
		OrphanPolicy:       annotation.ReassignOrphans,
		BlankPageSize:      "a4",
		RotationStep:       90,
		DefaultColor:       "#dc2626",
		DefaultSize:        16,
		DefaultStrokeWidth: 2,
		LogLevel:           "info",
		MaxDocumentBytes:   200 << 20,
	}
}

// Validate checks every field against its validate tag.
func (cfg *Config) Validate() error {
	logger.Debug("Validating Config Object")
	validate := validator.New()
	return validate.Struct(cfg)
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := NewDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// BlankSize returns the page size used for inserted blank pages.
func (cfg *Config) BlankSize() geometry.Size {
	if cfg.BlankPageSize == "letter" {
		return geometry.Letter
	}
	return geometry.A4
}

// Style returns the annotation style new marks start with.
func (cfg *Config) Style() (annotation.Style, error) {
	c, err := ParseColor(cfg.DefaultColor)
	if err != nil {
		return annotation.Style{}, err
	}
	s := annotation.Style{Color: c, SizePx: cfg.DefaultSize, StrokeWidthPx: cfg.DefaultStrokeWidth}
	return s, s.Validate()
}

// ParseColor parses #rgb or #rrggbb.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
