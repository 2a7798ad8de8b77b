// Package sampler drives an external image generator over a long latent walk
// without exceeding a fixed batch size, preserving frame order.
package sampler

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/san-kum/latentwalk/internal/latent"
)

// Varying names the input that changes from one batch item to the next.
type Varying int

const (
	VaryEncodings Varying = iota
	VaryNoise
)

func (v Varying) String() string {
	if v == VaryNoise {
		return "noise"
	}
	return "encodings"
}

// Batch is one contiguous slice of a walk handed to the generator.
//
// The input named by Varying holds one vector per item. The other holds a
// single vector that the generator broadcasts across the whole batch.
type Batch struct {
	Index     int
	Offset    int
	Varying   Varying
	Encodings []latent.Vector
	Noise     []latent.Vector
}

// Items returns the per-item vectors.
func (b Batch) Items() []latent.Vector {
	if b.Varying == VaryNoise {
		return b.Noise
	}
	return b.Encodings
}

// Shared returns the input broadcast across the batch.
func (b Batch) Shared() []latent.Vector {
	if b.Varying == VaryNoise {
		return b.Encodings
	}
	return b.Noise
}

// Size is the number of images the generator must return.
func (b Batch) Size() int {
	return len(b.Items())
}

// Validate reports a batch a generator cannot index safely: either input
// empty, or a shared input that is neither a single vector nor one per item.
func (b Batch) Validate() error {
	items, shared := b.Items(), b.Shared()
	if len(items) == 0 || len(shared) == 0 {
		return latent.Invalid("batch %d needs at least one encoding and one noise tensor", b.Index)
	}
	if len(shared) != 1 && len(shared) != len(items) {
		return latent.Invalid("batch %d varies %s over %d items but has %d shared vectors",
			b.Index, b.Varying, len(items), len(shared))
	}
	return nil
}

// Generator turns a batch of latent inputs into images, one per item, in order.
type Generator interface {
	Generate(ctx context.Context, b Batch) ([]image.Image, error)
}

type GeneratorFunc func(ctx context.Context, b Batch) ([]image.Image, error)

func (f GeneratorFunc) Generate(ctx context.Context, b Batch) ([]image.Image, error) {
	return f(ctx, b)
}

// BatchReport describes a batch that finished successfully.
type BatchReport struct {
	Batch   int
	Batches int
	Offset  int
	Size    int
	Done    int
	Total   int
	Elapsed time.Duration
}

type Observer interface {
	OnBatch(r BatchReport)
}

type ObserverFunc func(r BatchReport)

func (f ObserverFunc) OnBatch(r BatchReport) { f(r) }

type Sampler struct {
	gen       Generator
	maxBatch  int
	observers []Observer
	logger    *slog.Logger
}

func New(gen Generator, maxBatchSize int) (*Sampler, error) {
	if gen == nil {
		return nil, latent.Invalid("sampler needs a generator")
	}
	if maxBatchSize < 1 {
		return nil, latent.Invalid("max batch size must be >= 1, got %d", maxBatchSize)
	}
	return &Sampler{
		gen:       gen,
		maxBatch:  maxBatchSize,
		observers: make([]Observer, 0),
		logger:    slog.New(slog.DiscardHandler),
	}, nil
}

func (s *Sampler) WithLogger(l *slog.Logger) *Sampler {
	if l != nil {
		s.logger = l
	}
	return s
}

func (s *Sampler) AddObserver(o Observer) { s.observers = append(s.observers, o) }
func (s *Sampler) MaxBatchSize() int      { return s.maxBatch }

// SampleEncodings generates one frame per encoding, holding the diffusion
// noise fixed across every batch so only the prompt embedding varies.
func (s *Sampler) SampleEncodings(ctx context.Context, w latent.Walk, noise latent.Vector) ([]image.Image, error) {
	shared := []latent.Vector{noise}
	return s.run(ctx, len(w), VaryEncodings, func(lo, hi int) ([]latent.Vector, []latent.Vector) {
		return w[lo:hi], shared
	})
}

// SampleNoise generates one frame per noise tensor for a single encoding.
func (s *Sampler) SampleNoise(ctx context.Context, encoding latent.Vector, w latent.Walk) ([]image.Image, error) {
	shared := []latent.Vector{encoding}
	return s.run(ctx, len(w), VaryNoise, func(lo, hi int) ([]latent.Vector, []latent.Vector) {
		return shared, w[lo:hi]
	})
}

func (s *Sampler) run(ctx context.Context, n int, varying Varying, slice func(lo, hi int) ([]latent.Vector, []latent.Vector)) ([]image.Image, error) {
	if n == 0 {
		return nil, latent.Invalid("cannot sample an empty walk")
	}

	chunks := Partition(n, s.maxBatch)
	frames := make([]image.Image, 0, n)

	for idx, c := range chunks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		enc, noise := slice(c[0], c[1])
		b := Batch{Index: idx, Offset: c[0], Varying: varying, Encodings: enc, Noise: noise}

		start := time.Now()
		images, err := s.gen.Generate(ctx, b)
		if err != nil {
			return nil, &GenerationError{Batch: idx, Offset: c[0], Size: b.Size(), Err: err}
		}
		if err := checkImages(images, b.Size()); err != nil {
			return nil, &GenerationError{Batch: idx, Offset: c[0], Size: b.Size(), Err: err}
		}
		frames = append(frames, images...)

		r := BatchReport{
			Batch:   idx,
			Batches: len(chunks),
			Offset:  c[0],
			Size:    b.Size(),
			Done:    len(frames),
			Total:   n,
			Elapsed: time.Since(start),
		}
		s.logger.Debug("batch generated", "batch", idx+1, "of", len(chunks), "frames", len(frames), "elapsed", r.Elapsed)
		for _, o := range s.observers {
			o.OnBatch(r)
		}
	}

	return frames, nil
}

func checkImages(images []image.Image, want int) error {
	if len(images) != want {
		return fmt.Errorf("generator returned %d images for a batch of %d", len(images), want)
	}
	for i, img := range images {
		if img == nil {
			return fmt.Errorf("generator returned nil image at position %d", i)
		}
	}
	return nil
}

// Partition splits [0, n) into contiguous [lo, hi) chunks of at most size
// items. Only the last chunk may be short.
func Partition(n, size int) [][2]int {
	if n <= 0 || size <= 0 {
		return nil
	}
	chunks := make([][2]int, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		chunks = append(chunks, [2]int{lo, min(lo+size, n)})
	}
	return chunks
}
