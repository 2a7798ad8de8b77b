package config

import (
	"fmt"
	"os"
	"time"

	"github.com/san-kum/latentwalk/internal/latent"
	"gopkg.in/yaml.v3"
)

const (
	ModeInterpolate = "interpolate"
	ModeRandom      = "random"
	ModeCircular    = "circular"
)

const (
	DefaultSteps     = 5
	DefaultBatchSize = 16
	DefaultStepSize  = 0.05
	DefaultSeed      = 12345
	DefaultFPS       = 10
	DefaultTokens    = 77
	DefaultWidth     = 768
	DefaultImageSize = 512
	DefaultNumSteps  = 25
	DefaultOutput    = "walk.gif"
)

type Config struct {
	Mode       string          `yaml:"mode"`
	Prompts    []string        `yaml:"prompts"`
	Steps      int             `yaml:"steps"`
	BatchSize  int             `yaml:"batch_size"`
	StepSize   float64         `yaml:"step_size"`
	Seed       int64           `yaml:"seed"`
	NoiseShape []int           `yaml:"noise_shape"`
	Output     OutputConfig    `yaml:"output"`
	Encoder    EncoderConfig   `yaml:"encoder"`
	Generator  GeneratorConfig `yaml:"generator"`
}

type OutputConfig struct {
	Path         string `yaml:"path"`
	FPS          int    `yaml:"fps"`
	RubberBand   bool   `yaml:"rubber_band"`
	Sheet        string `yaml:"sheet"`
	SheetColumns int    `yaml:"sheet_columns"`
}

type EncoderConfig struct {
	Kind    string        `yaml:"kind"`
	URL     string        `yaml:"url"`
	Tokens  int           `yaml:"tokens"`
	Width   int           `yaml:"width"`
	Seed    int64         `yaml:"seed"`
	Timeout time.Duration `yaml:"timeout"`
}

type GeneratorConfig struct {
	Kind          string        `yaml:"kind"`
	URL           string        `yaml:"url"`
	Width         int           `yaml:"width"`
	Height        int           `yaml:"height"`
	NumSteps      int           `yaml:"num_steps"`
	GuidanceScale float64       `yaml:"guidance_scale"`
	Timeout       time.Duration `yaml:"timeout"`
}

// DefaultNoiseShape is the diffusion latent for a 512x512 image: (64, 64, 4).
func DefaultNoiseShape() []int {
	return []int{DefaultImageSize / 8, DefaultImageSize / 8, 4}
}

func DefaultConfig() *Config {
	return &Config{
		Mode:       ModeInterpolate,
		Steps:      DefaultSteps,
		BatchSize:  DefaultBatchSize,
		StepSize:   DefaultStepSize,
		Seed:       DefaultSeed,
		NoiseShape: DefaultNoiseShape(),
		Output: OutputConfig{
			Path:       DefaultOutput,
			FPS:        DefaultFPS,
			RubberBand: true,
		},
		Encoder: EncoderConfig{
			Kind:    "hash",
			Tokens:  DefaultTokens,
			Width:   DefaultWidth,
			Timeout: time.Minute,
		},
		Generator: GeneratorConfig{
			Kind:     "preview",
			Width:    128,
			Height:   128,
			NumSteps: DefaultNumSteps,
			Timeout:  10 * time.Minute,
		},
	}
}

// DefaultRubberBand reports whether a mode's walk needs rubber-banding to loop.
// Circular walks are already periodic.
func DefaultRubberBand(mode string) bool {
	return mode != ModeCircular
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the parameters a run needs before any work starts.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeInterpolate:
		if len(c.Prompts) != 2 {
			return latent.Invalid("interpolate needs exactly 2 prompts, got %d", len(c.Prompts))
		}
		if c.Steps < 2 {
			return latent.Invalid("interpolate needs steps >= 2, got %d", c.Steps)
		}
	case ModeRandom, ModeCircular:
		if len(c.Prompts) != 1 {
			return latent.Invalid("%s needs exactly 1 prompt, got %d", c.Mode, len(c.Prompts))
		}
		if c.Steps < 1 {
			return latent.Invalid("steps must be >= 1, got %d", c.Steps)
		}
	default:
		return latent.Invalid("unknown mode %q", c.Mode)
	}

	if c.BatchSize < 1 {
		return latent.Invalid("batch size must be >= 1, got %d", c.BatchSize)
	}
	if c.StepSize < 0 {
		return latent.Invalid("step size must be >= 0, got %v", c.StepSize)
	}
	if !latent.Shape(c.NoiseShape).Valid() {
		return latent.Invalid("invalid noise shape %v", c.NoiseShape)
	}
	if c.Output.FPS < 1 {
		return latent.Invalid("fps must be >= 1, got %d", c.Output.FPS)
	}
	if c.Output.Path == "" {
		return latent.Invalid("output path is required")
	}

	switch c.Encoder.Kind {
	case "hash":
		if c.Encoder.Tokens < 1 || c.Encoder.Width < 1 {
			return latent.Invalid("encoder shape must be positive, got %dx%d", c.Encoder.Tokens, c.Encoder.Width)
		}
	case "remote":
		if c.Encoder.URL == "" {
			return latent.Invalid("remote encoder needs a url")
		}
	default:
		return latent.Invalid("unknown encoder kind %q", c.Encoder.Kind)
	}

	switch c.Generator.Kind {
	case "preview":
		if c.Generator.Width < 1 || c.Generator.Height < 1 {
			return latent.Invalid("preview size must be positive, got %dx%d", c.Generator.Width, c.Generator.Height)
		}
	case "remote":
		if c.Generator.URL == "" {
			return latent.Invalid("remote generator needs a url")
		}
	default:
		return latent.Invalid("unknown generator kind %q", c.Generator.Kind)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Prompts = append([]string(nil), c.Prompts...)
	out.NoiseShape = append([]int(nil), c.NoiseShape...)
	return &out
}

func (c *Config) String() string {
	return fmt.Sprintf("%s steps=%d batch=%d seed=%d", c.Mode, c.Steps, c.BatchSize, c.Seed)
}
