package game

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResourceConfig represents the asset manifest loaded from YAML.
// It maps the names particle scripts use to files and placeholder styles.
//
// Structure:
//
//	base_path: assets
//	sprites:
//	  - name: gfx/fire
//	    path: sprites/fire.png
//	    tint: [255, 160, 40]
//	sounds:
//	  - name: sound/tick
//	    path: sounds/tick.ogg
type ResourceConfig struct {
	BasePath string           `yaml:"base_path"` // Base path for all asset files
	Sprites  []SpriteResource `yaml:"sprites"`
	Models   []ModelResource  `yaml:"models"`
	Sounds   []SoundResource  `yaml:"sounds"`
	Trails   []TrailResource  `yaml:"trails"`
}

// SpriteResource describes one sprite shader.
//
// Path is optional. Without it, or when the file cannot be decoded, the
// sprite is drawn procedurally using Shape and Tint.
type SpriteResource struct {
	Name  string `yaml:"name"`
	Path  string `yaml:"path,omitempty"`
	Shape string `yaml:"shape,omitempty"` // disc (default), ring, spark, square
	Tint  []int  `yaml:"tint,omitempty"`  // RGB 0..255, default white
}

// ModelResource describes a model. Models are drawn as oriented boxes of
// the given size, in model units.
type ModelResource struct {
	Name string     `yaml:"name"`
	Size [3]float64 `yaml:"size"`
	Tint []int      `yaml:"tint,omitempty"`
}

// SoundResource represents a single sound definition.
//
// Example:
//   - name: sound/tick
//     path: sounds/tick.ogg
type SoundResource struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// TrailResource describes how a trail system is drawn.
type TrailResource struct {
	Name   string  `yaml:"name"`
	Width  float64 `yaml:"width"`            // line width in world units, default 2
	Points int     `yaml:"points,omitempty"` // history length, default 16
	Tint   []int   `yaml:"tint,omitempty"`
}

// ParseResourceConfig parses and validates a YAML asset manifest.
func ParseResourceConfig(data []byte) (*ResourceConfig, error) {
	var cfg ResourceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse resource config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resource config: %w", err)
	}
	return &cfg, nil
}

// Validate checks for empty and duplicate names, bad tints and unknown shapes.
func (c *ResourceConfig) Validate() error {
	seen := make(map[string]bool)
	check := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("%s without a name", kind)
		}
		key := kind + ":" + strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("duplicate %s %q", kind, name)
		}
		seen[key] = true
		return nil
	}

	for _, s := range c.Sprites {
		if err := check("sprite", s.Name); err != nil {
			return err
		}
		if err := validateTint(s.Tint); err != nil {
			return fmt.Errorf("sprite %q: %w", s.Name, err)
		}
		switch s.Shape {
		case "", ShapeDisc, ShapeRing, ShapeSpark, ShapeSquare:
		default:
			return fmt.Errorf("sprite %q: unknown shape %q", s.Name, s.Shape)
		}
	}
	for _, m := range c.Models {
		if err := check("model", m.Name); err != nil {
			return err
		}
		if err := validateTint(m.Tint); err != nil {
			return fmt.Errorf("model %q: %w", m.Name, err)
		}
	}
	for _, tr := range c.Trails {
		if err := check("trail", tr.Name); err != nil {
			return err
		}
		if tr.Width < 0 || tr.Points < 0 {
			return fmt.Errorf("trail %q: negative width or length", tr.Name)
		}
		if err := validateTint(tr.Tint); err != nil {
			return fmt.Errorf("trail %q: %w", tr.Name, err)
		}
	}
	for _, s := range c.Sounds {
		if err := check("sound", s.Name); err != nil {
			return err
		}
		if s.Path == "" {
			return fmt.Errorf("sound %q without a path", s.Name)
		}
	}
	return nil
}

func validateTint(tint []int) error {
	if tint == nil {
		return nil
	}
	if len(tint) != 3 {
		return fmt.Errorf("tint needs 3 components, got %d", len(tint))
	}
	for _, c := range tint {
		if c < 0 || c > 255 {
			return fmt.Errorf("tint component %d out of range", c)
		}
	}
	return nil
}

// buildFullPath constructs the full file path for a resource.
// It combines the base path with the resource's relative path.
func buildFullPath(basePath, relativePath string) string {
	if basePath == "" {
		return relativePath
	}
	if len(relativePath) > 0 && relativePath[0] == '/' {
		return basePath + relativePath
	}
	return basePath + "/" + relativePath
}
