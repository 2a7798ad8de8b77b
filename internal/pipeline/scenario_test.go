package pipeline_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/latentwalk/internal/config"
	"github.com/san-kum/latentwalk/internal/latent"
	"github.com/san-kum/latentwalk/internal/pipeline"
)

var _ = Describe("Scenario", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	writeFile := func(name, body string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(body), 0644)).To(Succeed())
		return path
	}

	It("resolves presets and relative config files", func() {
		Expect(config.Save(filepath.Join(dir, "cows.yaml"), smallConfig(dir, config.ModeCircular))).To(Succeed())
		path := writeFile("scenario.yaml", `
name: guide
walks:
  - preset: ducky
    seed: 7
    output: ducky-7.gif
  - config: cows.yaml
`)

		s, err := pipeline.LoadScenario(path)
		Expect(err).NotTo(HaveOccurred())

		cfgs, err := s.Configs()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfgs).To(HaveLen(2))
		Expect(cfgs[0].Mode).To(Equal(config.ModeRandom))
		Expect(cfgs[0].Seed).To(Equal(int64(7)))
		Expect(cfgs[0].Output.Path).To(Equal("ducky-7.gif"))
		Expect(cfgs[1].Mode).To(Equal(config.ModeCircular))
	})

	It("rejects walks without a source", func() {
		path := writeFile("scenario.yaml", "name: broken\nwalks:\n  - seed: 3\n")
		s, err := pipeline.LoadScenario(path)
		Expect(err).NotTo(HaveOccurred())

		_, err = s.Configs()
		Expect(err).To(MatchError(latent.ErrInvalidArgument))
	})

	It("runs every walk in order", func() {
		Expect(config.Save(filepath.Join(dir, "a.yaml"), smallConfig(dir, config.ModeInterpolate))).To(Succeed())
		Expect(config.Save(filepath.Join(dir, "b.yaml"), smallConfig(dir, config.ModeRandom))).To(Succeed())
		path := writeFile("scenario.yaml", "name: pair\nwalks:\n  - config: a.yaml\n  - config: b.yaml\n")

		s, err := pipeline.LoadScenario(path)
		Expect(err).NotTo(HaveOccurred())

		results, err := pipeline.RunScenario(context.Background(), s, pipeline.FromConfig)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(results[0].Output).To(HaveSuffix("interpolate.gif"))
		Expect(results[1].Output).To(HaveSuffix("random.gif"))
		Expect(results[1].Output).To(BeAnExistingFile())
	})
})
