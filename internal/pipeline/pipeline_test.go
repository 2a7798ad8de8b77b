package pipeline_test

import (
	"context"
	"errors"
	"image"
	"image/gif"
	"math"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/latentwalk/internal/config"
	"github.com/san-kum/latentwalk/internal/latent"
	"github.com/san-kum/latentwalk/internal/pipeline"
	"github.com/san-kum/latentwalk/internal/sampler"
	"github.com/san-kum/latentwalk/internal/storage"
)

func smallConfig(dir, mode string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Mode = mode
	cfg.Prompts = []string{"a watercolor golden retriever"}
	if mode == config.ModeInterpolate {
		cfg.Prompts = append(cfg.Prompts, "a bowl of fruit")
	}
	cfg.Steps = 5
	cfg.BatchSize = 2
	cfg.NoiseShape = []int{4, 4, 2}
	cfg.Encoder.Tokens = 4
	cfg.Encoder.Width = 8
	cfg.Generator.Width = 8
	cfg.Generator.Height = 8
	cfg.Output.FPS = 2
	cfg.Output.RubberBand = config.DefaultRubberBand(mode)
	cfg.Output.Path = filepath.Join(dir, mode+".gif")
	return cfg
}

func decodeGIF(path string) *gif.GIF {
	f, err := os.Open(path)
	Expect(err).NotTo(HaveOccurred())
	defer f.Close()
	g, err := gif.DecodeAll(f)
	Expect(err).NotTo(HaveOccurred())
	return g
}

var _ = Describe("Registry", func() {
	It("lists the built-in walk modes", func() {
		Expect(pipeline.NewRegistry().ListStrategies()).To(Equal([]string{"circular", "interpolate", "random"}))
	})

	It("rejects unknown modes", func() {
		_, err := pipeline.NewRegistry().GetStrategy("spiral")
		Expect(err).To(MatchError(latent.ErrInvalidArgument))
	})
})

var _ = Describe("Pipeline", func() {
	var (
		ctx context.Context
		dir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
	})

	build := func(cfg *config.Config) *pipeline.Pipeline {
		p, err := pipeline.FromConfig(cfg)
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	Describe("Plan", func() {
		It("interpolates between the two prompt encodings", func() {
			cfg := smallConfig(dir, config.ModeInterpolate)
			enc, err := pipeline.NewEncoder(cfg.Encoder)
			Expect(err).NotTo(HaveOccurred())

			plan, err := pipeline.New(enc, nil).Plan(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			a, _ := enc.Encode(ctx, cfg.Prompts[0])
			b, _ := enc.Encode(ctx, cfg.Prompts[1])
			Expect(plan.Axis).To(Equal(pipeline.AxisEncoding))
			Expect(plan.Walk).To(HaveLen(5))
			Expect(plan.Walk[0].Equal(a)).To(BeTrue())
			Expect(plan.Walk[4].Equal(b)).To(BeTrue())
			Expect(plan.Fixed.Shape()).To(Equal(latent.Shape{4, 4, 2}))
		})

		It("walks the noise for circular mode", func() {
			cfg := smallConfig(dir, config.ModeCircular)
			plan, err := build(cfg).Plan(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(plan.Axis).To(Equal(pipeline.AxisNoise))
			Expect(plan.Walk).To(HaveLen(5))
			Expect(plan.Walk[0].Shape()).To(Equal(latent.Shape{4, 4, 2}))
			Expect(plan.Fixed.Shape()).To(Equal(latent.Shape{4, 8}))
		})

		It("is reproducible for a fixed seed", func() {
			cfg := smallConfig(dir, config.ModeRandom)
			first, err := build(cfg).Plan(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			second, err := build(cfg).Plan(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			for i := range first.Walk {
				Expect(first.Walk[i].Equal(second.Walk[i])).To(BeTrue())
			}
		})

		It("draws random walk steps independently of the fixed noise", func() {
			cfg := smallConfig(dir, config.ModeRandom)
			plan, err := build(cfg).Plan(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			delta, err := plan.Walk[1].Sub(plan.Walk[0])
			Expect(err).NotTo(HaveOccurred())
			d, noise := delta.Data(), plan.Fixed.Data()
			n := min(len(d), len(noise))
			Expect(n).To(BeNumerically(">", 1))

			proportional := 0
			for i := 0; i < n; i++ {
				if math.Abs(d[i]-cfg.StepSize*noise[i]) < 1e-12 {
					proportional++
				}
			}
			Expect(proportional).To(BeNumerically("<", n))
		})

		It("encodes a prompt the same way under any run seed", func() {
			cfg := smallConfig(dir, config.ModeRandom)
			cfg.Seed = 1
			first, err := build(cfg).Plan(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			cfg.Seed = 2
			second, err := build(cfg).Plan(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(first.Walk[0].Equal(second.Walk[0])).To(BeTrue())
			Expect(first.Walk[1].Equal(second.Walk[1])).To(BeFalse())
		})

		It("validates the config first", func() {
			cfg := smallConfig(dir, config.ModeRandom)
			cfg.Prompts = nil
			_, err := build(smallConfig(dir, config.ModeRandom)).Plan(ctx, cfg)
			Expect(errors.Is(err, latent.ErrInvalidArgument)).To(BeTrue())
		})
	})

	Describe("Run", func() {
		It("writes a rubber-banded GIF", func() {
			cfg := smallConfig(dir, config.ModeInterpolate)
			res, err := build(cfg).Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Frames).To(HaveLen(5))
			Expect(res.Written).To(Equal(8))
			Expect(res.OutputBytes).To(BeNumerically(">", 0))

			g := decodeGIF(cfg.Output.Path)
			Expect(g.Image).To(HaveLen(8))
			Expect(g.LoopCount).To(Equal(0))
			for _, d := range g.Delay {
				Expect(d).To(Equal(50))
			}
		})

		It("does not rubber-band circular walks", func() {
			cfg := smallConfig(dir, config.ModeCircular)
			res, err := build(cfg).Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Written).To(Equal(5))
			Expect(decodeGIF(cfg.Output.Path).Image).To(HaveLen(5))
		})

		It("reports every batch to observers", func() {
			cfg := smallConfig(dir, config.ModeRandom)
			p := build(cfg)

			var reports []sampler.BatchReport
			p.AddObserver(sampler.ObserverFunc(func(r sampler.BatchReport) {
				reports = append(reports, r)
			}))

			_, err := p.Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(reports).To(HaveLen(3))
			Expect(reports[2].Size).To(Equal(1))
			Expect(reports[2].Done).To(Equal(5))
		})

		It("writes a contact sheet when asked", func() {
			cfg := smallConfig(dir, config.ModeRandom)
			cfg.Output.Sheet = filepath.Join(dir, "sheets", "random.svg")

			res, err := build(cfg).Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Sheet).To(Equal(cfg.Output.Sheet))

			data, err := os.ReadFile(cfg.Output.Sheet)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("<svg"))
		})

		It("writes nothing when a batch fails", func() {
			cfg := smallConfig(dir, config.ModeInterpolate)
			enc, err := pipeline.NewEncoder(cfg.Encoder)
			Expect(err).NotTo(HaveOccurred())

			calls := 0
			gen := sampler.GeneratorFunc(func(ctx context.Context, b sampler.Batch) ([]image.Image, error) {
				calls++
				if b.Index == 1 {
					return nil, errors.New("gpu fell over")
				}
				out := make([]image.Image, b.Size())
				for i := range out {
					out[i] = image.NewRGBA(image.Rect(0, 0, 2, 2))
				}
				return out, nil
			})

			_, err = pipeline.New(enc, gen).Run(ctx, cfg)
			Expect(err).To(MatchError(latent.ErrExternalGeneration))

			var genErr *sampler.GenerationError
			Expect(errors.As(err, &genErr)).To(BeTrue())
			Expect(genErr.Batch).To(Equal(1))
			Expect(calls).To(Equal(2))

			_, statErr := os.Stat(cfg.Output.Path)
			Expect(os.IsNotExist(statErr)).To(BeTrue())
		})

		It("stops when the context is cancelled", func() {
			cfg := smallConfig(dir, config.ModeRandom)
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := build(cfg).Run(cancelled, cfg)
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("Result", func() {
		It("round-trips through the run store", func() {
			cfg := smallConfig(dir, config.ModeRandom)
			res, err := build(cfg).Run(ctx, cfg)
			Expect(err).NotTo(HaveOccurred())

			st := storage.New(filepath.Join(dir, "runs"))
			id, err := st.Save(res.Metadata(cfg), res.Steps())
			Expect(err).NotTo(HaveOccurred())

			meta, err := st.Load(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(meta.Mode).To(Equal(config.ModeRandom))
			Expect(meta.Frames).To(Equal(8))
			Expect(meta.Metrics).To(HaveKey("step_length"))

			steps, err := st.LoadSteps(id)
			Expect(err).NotTo(HaveOccurred())
			Expect(steps).To(HaveLen(5))
		})
	})
})
