// Package pipeline wires a walk strategy, the batched sampler and the GIF
// exporter into a single run.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/san-kum/latentwalk/internal/config"
	"github.com/san-kum/latentwalk/internal/encoder"
	"github.com/san-kum/latentwalk/internal/export"
	"github.com/san-kum/latentwalk/internal/generate"
	"github.com/san-kum/latentwalk/internal/latent"
	"github.com/san-kum/latentwalk/internal/metrics"
	"github.com/san-kum/latentwalk/internal/sampler"
	"github.com/san-kum/latentwalk/internal/storage"
)

type Result struct {
	Plan        Plan
	Frames      []image.Image
	Output      string
	OutputBytes int64
	// Written is the number of frames in the artifact, after rubber-banding.
	Written int
	Sheet   string
	Metrics map[string]float64
	Elapsed time.Duration
}

type Pipeline struct {
	registry  *Registry
	encoder   encoder.TextEncoder
	generator sampler.Generator
	observers []sampler.Observer
	logger    *slog.Logger
}

func New(enc encoder.TextEncoder, gen sampler.Generator) *Pipeline {
	return &Pipeline{
		registry:  NewRegistry(),
		encoder:   enc,
		generator: gen,
		observers: make([]sampler.Observer, 0),
		logger:    slog.New(slog.DiscardHandler),
	}
}

// FromConfig builds the encoder and generator a config names.
func FromConfig(cfg *config.Config) (*Pipeline, error) {
	enc, err := NewEncoder(cfg.Encoder)
	if err != nil {
		return nil, err
	}
	gen, err := NewGenerator(cfg.Generator)
	if err != nil {
		return nil, err
	}
	return New(enc, gen), nil
}

// NewEncoder builds the text encoder a config names. The hash encoder is
// seeded from the encoder config, never the run seed, so a prompt always
// encodes to the same vector.
func NewEncoder(cfg config.EncoderConfig) (encoder.TextEncoder, error) {
	switch cfg.Kind {
	case "hash":
		h, err := encoder.NewHash(cfg.Tokens, cfg.Width, cfg.Seed)
		if err != nil {
			return nil, err
		}
		return h, nil
	case "remote":
		return encoder.NewRemote(cfg.URL, latent.Shape{cfg.Tokens, cfg.Width}, cfg.Timeout), nil
	default:
		return nil, latent.Invalid("unknown encoder kind %q", cfg.Kind)
	}
}

func NewGenerator(cfg config.GeneratorConfig) (sampler.Generator, error) {
	switch cfg.Kind {
	case "preview":
		g, err := generate.NewPreview(cfg.Width, cfg.Height)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "remote":
		return generate.NewRemote(cfg.URL, generate.RemoteOptions{
			NumSteps:      cfg.NumSteps,
			GuidanceScale: cfg.GuidanceScale,
			Timeout:       cfg.Timeout,
		}), nil
	default:
		return nil, latent.Invalid("unknown generator kind %q", cfg.Kind)
	}
}

func (p *Pipeline) WithLogger(l *slog.Logger) *Pipeline {
	if l != nil {
		p.logger = l
	}
	return p
}

func (p *Pipeline) AddObserver(o sampler.Observer) { p.observers = append(p.observers, o) }
func (p *Pipeline) Registry() *Registry            { return p.registry }

// Plan computes the walk for cfg without generating anything.
func (p *Pipeline) Plan(ctx context.Context, cfg *config.Config) (Plan, error) {
	if err := cfg.Validate(); err != nil {
		return Plan{}, err
	}
	strategy, err := p.registry.GetStrategy(cfg.Mode)
	if err != nil {
		return Plan{}, err
	}
	plan, err := strategy(ctx, p.encoder, cfg)
	if err != nil {
		return Plan{}, fmt.Errorf("%s walk: %w", cfg.Mode, err)
	}
	return plan, nil
}

// Sample generates one frame per walk step.
func (p *Pipeline) Sample(ctx context.Context, plan Plan, batchSize int) ([]image.Image, error) {
	s, err := sampler.New(p.generator, batchSize)
	if err != nil {
		return nil, err
	}
	s.WithLogger(p.logger)
	for _, o := range p.observers {
		s.AddObserver(o)
	}

	if plan.Axis == AxisNoise {
		return s.SampleNoise(ctx, plan.Fixed, plan.Walk)
	}
	return s.SampleEncodings(ctx, plan.Walk, plan.Fixed)
}

// Run plans, samples and exports. Nothing is written unless every batch
// succeeds.
func (p *Pipeline) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	start := time.Now()

	plan, err := p.Plan(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p.logger.Info("walk planned", "mode", cfg.Mode, "axis", plan.Axis, "steps", len(plan.Walk), "batch_size", cfg.BatchSize)

	frames, err := p.Sample(ctx, plan, cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	gif := export.GIF{FPS: cfg.Output.FPS, RubberBand: cfg.Output.RubberBand}
	size, err := gif.Write(cfg.Output.Path, frames)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", cfg.Output.Path, err)
	}

	res := &Result{
		Plan:        plan,
		Frames:      frames,
		Output:      cfg.Output.Path,
		OutputBytes: size,
		Written:     len(gif.Sequence(frames)),
		Metrics:     metrics.Collect(plan.Walk, metrics.Defaults()...),
	}

	if cfg.Output.Sheet != "" {
		if err := writeSheet(cfg.Output.Sheet, frames, cfg.Output.SheetColumns); err != nil {
			return nil, fmt.Errorf("contact sheet %s: %w", cfg.Output.Sheet, err)
		}
		res.Sheet = cfg.Output.Sheet
	}

	res.Elapsed = time.Since(start)
	p.logger.Info("walk exported", "output", res.Output, "frames", res.Written, "bytes", res.OutputBytes, "elapsed", res.Elapsed)
	return res, nil
}

func writeSheet(path string, frames []image.Image, cols int) error {
	if cols < 1 {
		cols = int(math.Ceil(math.Sqrt(float64(len(frames)))))
	}
	svg, err := export.ContactSheetSVG(frames, cols, 1)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(svg), 0644)
}

// Metadata describes a finished run for the run store.
func (r *Result) Metadata(cfg *config.Config) storage.RunMetadata {
	return storage.RunMetadata{
		Mode:        cfg.Mode,
		Prompts:     append([]string(nil), cfg.Prompts...),
		Seed:        cfg.Seed,
		Steps:       len(r.Plan.Walk),
		BatchSize:   cfg.BatchSize,
		StepSize:    cfg.StepSize,
		FPS:         cfg.Output.FPS,
		RubberBand:  cfg.Output.RubberBand,
		Frames:      r.Written,
		Output:      r.Output,
		OutputBytes: r.OutputBytes,
		Generator:   cfg.Generator.Kind,
		Elapsed:     r.Elapsed,
		Metrics:     r.Metrics,
	}
}

// Steps returns the per-step records for the run store.
func (r *Result) Steps() []storage.StepRecord {
	return storage.Steps(r.Plan.Walk)
}
