// Package encoder provides text-encoding collaborators that map a prompt to a
// point in the model's prompt latent space.
package encoder

import (
	"context"
	"hash/fnv"
	"math/rand"
	"strings"

	"github.com/san-kum/latentwalk/internal/latent"
)

// Default encoding grid: token positions by embedding width.
const (
	DefaultTokens = 77
	DefaultWidth  = 768
)

// TextEncoder maps a prompt to a fixed-shape latent vector.
type TextEncoder interface {
	Encode(ctx context.Context, prompt string) (latent.Vector, error)
	Shape() latent.Shape
}

// Hash is an offline, deterministic stand-in for a real text encoder. Each
// token position gets a Gaussian row seeded from the token's hash, so equal
// prompts encode identically and shared words share rows. Unused positions
// are seeded from their index.
type Hash struct {
	tokens int
	width  int
	seed   int64
}

func NewHash(tokens, width int, seed int64) (*Hash, error) {
	if tokens < 1 || width < 1 {
		return nil, latent.Invalid("encoding shape must be positive, got %dx%d", tokens, width)
	}
	return &Hash{tokens: tokens, width: width, seed: seed}, nil
}

func (h *Hash) Shape() latent.Shape { return latent.Shape{h.tokens, h.width} }

func (h *Hash) Encode(ctx context.Context, prompt string) (latent.Vector, error) {
	if err := ctx.Err(); err != nil {
		return latent.Vector{}, err
	}
	if strings.TrimSpace(prompt) == "" {
		return latent.Vector{}, latent.Invalid("empty prompt")
	}

	words := Tokenize(prompt)
	data := make([]float64, h.tokens*h.width)
	for pos := 0; pos < h.tokens; pos++ {
		var key uint64
		if pos < len(words) {
			key = hashWord(words[pos])
		} else {
			key = uint64(pos)
		}
		rng := rand.New(rand.NewSource(h.seed ^ int64(key)))
		row := data[pos*h.width : (pos+1)*h.width]
		for i := range row {
			row[i] = rng.NormFloat64()
		}
	}
	return latent.New(h.Shape(), data)
}

// Tokenize lowercases a prompt and splits it on anything that is not a
// letter or digit.
func Tokenize(prompt string) []string {
	return strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
}

func hashWord(w string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(w))
	return h.Sum64()
}
