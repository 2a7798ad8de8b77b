// Package generate provides image generation collaborators for the sampler.
//
// [Preview] renders latent inputs locally without a model, which keeps the
// whole pipeline runnable offline. [Remote] forwards batches to a diffusion
// service over HTTP.
package generate

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/san-kum/latentwalk/internal/latent"
	"github.com/san-kum/latentwalk/internal/sampler"
)

// Preview projects an encoding and a noise tensor onto an RGB field. The
// output is a pure function of its inputs.
type Preview struct {
	width  int
	height int
	// mix weights the encoding against the noise, in [0, 1].
	mix float64
}

func NewPreview(width, height int) (*Preview, error) {
	if width < 1 || height < 1 {
		return nil, latent.Invalid("preview size must be positive, got %dx%d", width, height)
	}
	return &Preview{width: width, height: height, mix: 0.5}, nil
}

func (p *Preview) Generate(ctx context.Context, b sampler.Batch) ([]image.Image, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	n := b.Size()
	out := make([]image.Image, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.render(pick(b.Encodings, i), pick(b.Noise, i))
	}
	return out, nil
}

// pick broadcasts a single shared vector across the batch. Lengths are
// checked by Batch.Validate.
func pick(vs []latent.Vector, i int) latent.Vector {
	if len(vs) == 1 {
		return vs[0]
	}
	return vs[i]
}

func (p *Preview) render(enc, noise latent.Vector) *image.RGBA {
	ed, nd := enc.Data(), noise.Data()
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	total := p.width * p.height * 3

	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			var rgb [3]uint8
			for c := range rgb {
				i := (y*p.width+x)*3 + c
				v := math.Tanh(p.mix*sample(ed, i, total) + (1-p.mix)*sample(nd, i, total))
				rgb[c] = uint8(math.Round(127.5 * (v + 1)))
			}
			img.SetRGBA(x, y, color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255})
		}
	}
	return img
}

// sample maps position i of total proportionally onto d.
func sample(d []float64, i, total int) float64 {
	if len(d) == 0 {
		return 0
	}
	return d[i*len(d)/total]
}
