package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/san-kum/latentwalk/internal/config"
	"github.com/san-kum/latentwalk/internal/latent"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of walks rendered one after another.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Walks       []ScenarioWalk `yaml:"walks"`

	dir string
}

// ScenarioWalk names a preset or a config file, with optional overrides.
type ScenarioWalk struct {
	Preset string `yaml:"preset"`
	Config string `yaml:"config"`
	Seed   int64  `yaml:"seed"`
	Output string `yaml:"output"`
}

// LoadScenario reads a scenario file. Config paths inside it are resolved
// relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	s.dir = filepath.Dir(path)
	return &s, nil
}

// Configs resolves every walk to a validated config.
func (s *Scenario) Configs() ([]*config.Config, error) {
	if len(s.Walks) == 0 {
		return nil, latent.Invalid("scenario %q has no walks", s.Name)
	}

	out := make([]*config.Config, 0, len(s.Walks))
	for i, w := range s.Walks {
		var cfg *config.Config
		switch {
		case w.Config != "":
			path := w.Config
			if !filepath.IsAbs(path) && s.dir != "" {
				path = filepath.Join(s.dir, path)
			}
			loaded, err := config.Load(path)
			if err != nil {
				return nil, fmt.Errorf("walk %d: %w", i+1, err)
			}
			cfg = loaded
		case w.Preset != "":
			cfg = config.GetPreset(w.Preset)
			if cfg == nil {
				return nil, latent.Invalid("walk %d: unknown preset %q", i+1, w.Preset)
			}
		default:
			return nil, latent.Invalid("walk %d: needs a preset or a config", i+1)
		}

		if w.Seed != 0 {
			cfg.Seed = w.Seed
		}
		if w.Output != "" {
			cfg.Output.Path = w.Output
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("walk %d: %w", i+1, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

// RunScenario renders every walk in order, stopping at the first failure.
// Results of the walks that finished are returned alongside the error.
func RunScenario(ctx context.Context, s *Scenario, build func(*config.Config) (*Pipeline, error)) ([]*Result, error) {
	cfgs, err := s.Configs()
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(cfgs))
	for i, cfg := range cfgs {
		p, err := build(cfg)
		if err != nil {
			return results, fmt.Errorf("walk %d: %w", i+1, err)
		}
		p.logger.Info("scenario walk", "scenario", s.Name, "walk", i+1, "of", len(cfgs), "mode", cfg.Mode)

		res, err := p.Run(ctx, cfg)
		if err != nil {
			return results, fmt.Errorf("walk %d: %w", i+1, err)
		}
		results = append(results, res)
	}
	return results, nil
}
