package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/san-kum/latentwalk/internal/config"
	"github.com/san-kum/latentwalk/internal/encoder"
	"github.com/san-kum/latentwalk/internal/latent"
	"github.com/san-kum/latentwalk/internal/walk"
)

// Axis names the generator input a walk moves through.
type Axis int

const (
	AxisEncoding Axis = iota
	AxisNoise
)

func (a Axis) String() string {
	if a == AxisNoise {
		return "noise"
	}
	return "encoding"
}

// Plan is a computed walk plus the vector held fixed while it is sampled.
// For encoding walks Fixed is the diffusion noise, for noise walks it is the
// prompt encoding.
type Plan struct {
	Axis  Axis
	Walk  latent.Walk
	Fixed latent.Vector
}

type Strategy func(ctx context.Context, enc encoder.TextEncoder, cfg *config.Config) (Plan, error)

type Registry struct {
	strategies map[string]Strategy
}

func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}

	r.strategies[config.ModeInterpolate] = Interpolate
	r.strategies[config.ModeRandom] = RandomWalk
	r.strategies[config.ModeCircular] = CircularWalk

	return r
}

func (r *Registry) Register(name string, s Strategy) { r.strategies[name] = s }

func (r *Registry) GetStrategy(name string) (Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, latent.Invalid("unknown walk mode: %s", name)
	}
	return s, nil
}

func (r *Registry) ListStrategies() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func encodeAll(ctx context.Context, enc encoder.TextEncoder, prompts []string) ([]latent.Vector, error) {
	out := make([]latent.Vector, len(prompts))
	for i, p := range prompts {
		v, err := enc.Encode(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("encode prompt %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Interpolate moves linearly between two prompt encodings under fixed noise.
func Interpolate(ctx context.Context, enc encoder.TextEncoder, cfg *config.Config) (Plan, error) {
	if len(cfg.Prompts) != 2 {
		return Plan{}, latent.Invalid("interpolate needs exactly 2 prompts, got %d", len(cfg.Prompts))
	}
	encs, err := encodeAll(ctx, enc, cfg.Prompts)
	if err != nil {
		return Plan{}, err
	}
	noise, err := walk.Gaussian(cfg.NoiseShape, 1, cfg.Seed)
	if err != nil {
		return Plan{}, err
	}
	w, err := walk.Linear(encs[0], encs[1], cfg.Steps)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Axis: AxisEncoding, Walk: w, Fixed: noise}, nil
}

// RandomWalk drifts away from one prompt encoding in Gaussian steps.
func RandomWalk(ctx context.Context, enc encoder.TextEncoder, cfg *config.Config) (Plan, error) {
	if len(cfg.Prompts) != 1 {
		return Plan{}, latent.Invalid("random needs exactly 1 prompt, got %d", len(cfg.Prompts))
	}
	encs, err := encodeAll(ctx, enc, cfg.Prompts)
	if err != nil {
		return Plan{}, err
	}
	noise, err := walk.Gaussian(cfg.NoiseShape, 1, cfg.Seed)
	if err != nil {
		return Plan{}, err
	}
	w, err := walk.Random(encs[0], cfg.Steps, cfg.StepSize, stepSeed(cfg.Seed))
	if err != nil {
		return Plan{}, err
	}
	return Plan{Axis: AxisEncoding, Walk: w, Fixed: noise}, nil
}

// stepSeed derives the random-walk delta stream from the run seed so it is
// independent of the fixed noise drawn from the run seed itself.
func stepSeed(seed int64) int64 {
	return seed ^ 0x2545F4914F6CDD1D
}

// CircularWalk orbits the diffusion noise while the prompt stays fixed.
func CircularWalk(ctx context.Context, enc encoder.TextEncoder, cfg *config.Config) (Plan, error) {
	if len(cfg.Prompts) != 1 {
		return Plan{}, latent.Invalid("circular needs exactly 1 prompt, got %d", len(cfg.Prompts))
	}
	encs, err := encodeAll(ctx, enc, cfg.Prompts)
	if err != nil {
		return Plan{}, err
	}
	shape := latent.Shape(cfg.NoiseShape)
	w, err := walk.Circular(shape, shape, cfg.Steps, cfg.Seed)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Axis: AxisNoise, Walk: w, Fixed: encs[0]}, nil
}
