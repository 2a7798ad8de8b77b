package export

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/san-kum/latentwalk/internal/latent"
)

const DefaultFPS = 10

// GIF encodes frame sequences as looping GIF animations. image/gif only
// writes the loop extension for two or more frames, so a one-frame file
// decodes with LoopCount -1.
type GIF struct {
	FPS        int
	RubberBand bool
	// Palette used to quantize non-paletted frames; defaults to Plan 9.
	Palette color.Palette
}

// FrameDuration is 1000/FPS milliseconds, truncated to whole milliseconds.
func (g GIF) FrameDuration() time.Duration {
	if g.FPS < 1 {
		return 0
	}
	return time.Duration(1000/g.FPS) * time.Millisecond
}

// delay converts the frame duration to GIF centiseconds, at least 1.
func (g GIF) delay() int {
	ms := int(g.FrameDuration() / time.Millisecond)
	return max((ms+5)/10, 1)
}

// Sequence returns the frames in playback order.
func (g GIF) Sequence(frames []image.Image) []image.Image {
	if g.RubberBand {
		return RubberBand(frames)
	}
	out := make([]image.Image, len(frames))
	copy(out, frames)
	return out
}

func (g GIF) validate(frames []image.Image) error {
	if len(frames) == 0 {
		return latent.Invalid("cannot export an empty frame sequence")
	}
	if g.FPS < 1 {
		return latent.Invalid("frames per second must be >= 1, got %d", g.FPS)
	}
	for i, f := range frames {
		if f == nil {
			return latent.Invalid("frame %d is nil", i)
		}
	}
	return nil
}

func (g GIF) Encode(w io.Writer, frames []image.Image) error {
	if err := g.validate(frames); err != nil {
		return err
	}

	order := make([]int, len(frames))
	for i := range order {
		order[i] = i
	}
	if g.RubberBand {
		order = RubberBand(order)
	}

	// Frames repeated by the rubber band share one quantized image.
	quantized := make([]*image.Paletted, len(frames))
	for i, f := range frames {
		quantized[i] = g.quantize(f)
	}

	anim := gif.GIF{
		Image:     make([]*image.Paletted, 0, len(order)),
		Delay:     make([]int, 0, len(order)),
		LoopCount: 0,
	}
	delay := g.delay()
	for _, i := range order {
		anim.Image = append(anim.Image, quantized[i])
		anim.Delay = append(anim.Delay, delay)
	}

	if err := gif.EncodeAll(w, &anim); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return nil
}

// Write encodes frames to path. The file only appears once encoding has
// fully succeeded. It returns the artifact size in bytes.
func (g GIF) Write(path string, frames []image.Image) (int64, error) {
	if err := g.validate(frames); err != nil {
		return 0, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, ".latentwalk-*.gif")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	if err := g.Encode(tmp, frames); err != nil {
		tmp.Close()
		return 0, err
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (g GIF) quantize(img image.Image) *image.Paletted {
	if p, ok := img.(*image.Paletted); ok {
		return p
	}
	pal := g.Palette
	if len(pal) == 0 {
		pal = palette.Plan9
	}
	b := img.Bounds()
	p := image.NewPaletted(b, pal)
	draw.FloydSteinberg.Draw(p, b, img, b.Min)
	return p
}
