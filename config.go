package pcache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// BakeSettings 采样参数
type BakeSettings struct {
	Distribution   string `toml:"distribution" yaml:"distribution" json:"distribution" validate:"required,oneof=sequential random random_uniform_area"`
	BakeMode       string `toml:"bake_mode" yaml:"bake_mode" json:"bake_mode" validate:"omitempty,oneof=vertex triangle"`
	Seed           int64  `toml:"seed" yaml:"seed" json:"seed"`
	PointCount     int    `toml:"point_count" yaml:"point_count" json:"point_count" validate:"gt=0"`
	ExportNormals  bool   `toml:"export_normals" yaml:"export_normals" json:"export_normals"`
	ExportColors   bool   `toml:"export_colors" yaml:"export_colors" json:"export_colors"`
	ExportUV       bool   `toml:"export_uv" yaml:"export_uv" json:"export_uv"`
	UnmaskedPolicy string `toml:"unmasked_policy" yaml:"unmasked_policy" json:"unmasked_policy" validate:"omitempty,oneof=accept reject"`
	MaskRepeat     bool   `toml:"mask_repeat" yaml:"mask_repeat" json:"mask_repeat"`
	MaskFlipY      bool   `toml:"mask_flip_y" yaml:"mask_flip_y" json:"mask_flip_y"`
	Workers        int    `toml:"workers" yaml:"workers" json:"workers" validate:"gte=0,lte=256"`
	Format         string `toml:"format" yaml:"format" json:"format" validate:"omitempty,oneof=binary ascii"`
}

// BakeConfig is a bake settings file: the sampling settings plus the input
// and output paths.
type BakeConfig struct {
	BakeSettings `yaml:",inline"`

	Mesh        string `toml:"mesh" yaml:"mesh" validate:"required"`
	Mask        string `toml:"mask" yaml:"mask"`
	Output      string `toml:"output" yaml:"output" validate:"required"`
	PositionMap string `toml:"position_map" yaml:"position_map"`
	Preview     string `toml:"preview" yaml:"preview"`
	Catalog     string `toml:"catalog" yaml:"catalog"`
}

var validate = validator.New()

func DefaultBakeSettings() BakeSettings {
	return BakeSettings{
		Distribution: DISTRIBUTION_RANDOM_UNIFORM_AREA.String(),
		BakeMode:     BAKE_MODE_TRIANGLE.String(),
		PointCount:   4096,
		Format:       "binary",
	}
}

// LoadConfig reads a .toml, .yaml or .yml bake file. Relative paths inside
// it are resolved against the file's directory.
func LoadConfig(path string) (*BakeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// ParseConfig decodes data according to ext and validates the result.
func ParseConfig(data []byte, ext string) (*BakeConfig, error) {
	cfg := &BakeConfig{BakeSettings: DefaultBakeSettings()}
	switch strings.ToLower(ext) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config extension %q", ErrConfiguration, ext)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *BakeConfig) resolve(dir string) {
	for _, p := range []*string{&c.Mesh, &c.Mask, &c.Output, &c.PositionMap, &c.Preview, &c.Catalog} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

func (c *BakeConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}

func (s *BakeSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}

// OutputFormat returns the configured cache encoding.
func (s *BakeSettings) OutputFormat() (Format, error) {
	return ParseFormat(s.Format)
}

// Request converts the settings into a BakeRequest without a mask.
func (s *BakeSettings) Request() (*BakeRequest, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	dist, err := ParseDistribution(s.Distribution)
	if err != nil {
		return nil, err
	}
	mode := BAKE_MODE_TRIANGLE
	if s.BakeMode != "" {
		if mode, err = ParseBakeMode(s.BakeMode); err != nil {
			return nil, err
		}
	}
	policy, err := ParseUnmaskedPolicy(s.UnmaskedPolicy)
	if err != nil {
		return nil, err
	}
	return &BakeRequest{
		Distribution:   dist,
		BakeMode:       mode,
		Seed:           s.Seed,
		PointCount:     s.PointCount,
		ExportNormals:  s.ExportNormals,
		ExportColors:   s.ExportColors,
		ExportUV:       s.ExportUV,
		UnmaskedPolicy: policy,
		Workers:        s.Workers,
	}, nil
}

// NewMask decodes mask image bytes with the configured wrapping.
func (s *BakeSettings) NewMask(buf []byte) (*Mask, error) {
	m, err := DecodeMask(buf, s.MaskRepeat)
	if err != nil {
		return nil, err
	}
	m.FlipY = s.MaskFlipY
	return m, nil
}
