// Package walk generates ordered latent walks.
//
// Three strategies are provided: [Linear] interpolation between two
// encodings, a seeded [Random] walk around a start point, and a [Circular]
// walk through noise space that closes on itself after one period.
// All strategies are deterministic for a given seed.
package walk

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/latentwalk/internal/latent"
)

// StepFunc maps the previous position and a random delta to the next position.
type StepFunc func(prev, delta latent.Vector) (latent.Vector, error)

// DeltaFunc yields the delta applied on the i-th transition (i starts at 0).
type DeltaFunc func(i int) latent.Vector

// Step is the random walk transition: next = prev + delta.
func Step(prev, delta latent.Vector) (latent.Vector, error) {
	return prev.Add(delta)
}

// Fold threads an accumulator from start through n transitions and returns
// every visited position, start included.
func Fold(start latent.Vector, n int, delta DeltaFunc, step StepFunc) (latent.Walk, error) {
	if n < 0 {
		return nil, latent.Invalid("fold needs n >= 0, got %d", n)
	}
	w := make(latent.Walk, 0, n+1)
	w = append(w, start.Clone())

	acc := start
	for i := 0; i < n; i++ {
		next, err := step(acc, delta(i))
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		w = append(w, next)
		acc = next
	}
	return w, nil
}

// Linear returns steps vectors evenly spaced from a to b, both included.
func Linear(a, b latent.Vector, steps int) (latent.Walk, error) {
	if steps < 2 {
		return nil, latent.Invalid("linear walk needs steps >= 2, got %d", steps)
	}
	if !a.SameShape(b) {
		return nil, fmt.Errorf("linear walk: %w: %s vs %s", latent.ErrShapeMismatch, a.Shape(), b.Shape())
	}

	w := make(latent.Walk, steps)
	w[0] = a.Clone()
	w[steps-1] = b.Clone()
	last := float64(steps - 1)
	for i := 1; i < steps-1; i++ {
		v, err := a.Lerp(b, float64(i)/last)
		if err != nil {
			return nil, err
		}
		w[i] = v
	}
	return w, nil
}

// Random walks from start, adding i.i.d. N(0, stepSize²) noise per element
// at every step. The result depends only on its arguments.
func Random(start latent.Vector, steps int, stepSize float64, seed int64) (latent.Walk, error) {
	if steps < 1 {
		return nil, latent.Invalid("random walk needs steps >= 1, got %d", steps)
	}
	if start.Len() == 0 {
		return nil, latent.Invalid("random walk needs a non-empty start vector")
	}
	if stepSize < 0 || math.IsNaN(stepSize) || math.IsInf(stepSize, 0) {
		return nil, latent.Invalid("step size must be a finite value >= 0, got %v", stepSize)
	}

	rng := rand.New(rand.NewSource(seed))
	shape := start.Shape()
	delta := func(int) latent.Vector {
		return gaussian(rng, shape, stepSize)
	}
	return Fold(start, steps-1, delta, Step)
}

// Circular draws two fixed noise tensors and walks the circle they span:
// walk[i] = cos(2πi/steps)·x + sin(2πi/steps)·y.
func Circular(shapeX, shapeY latent.Shape, steps int, seed int64) (latent.Walk, error) {
	if steps < 1 {
		return nil, latent.Invalid("circular walk needs steps >= 1, got %d", steps)
	}
	if !shapeX.Valid() || !shapeY.Valid() {
		return nil, latent.Invalid("circular walk needs valid shapes, got %s and %s", shapeX, shapeY)
	}
	if !shapeX.Equal(shapeY) {
		return nil, fmt.Errorf("circular walk: %w: %s vs %s", latent.ErrShapeMismatch, shapeX, shapeY)
	}

	rng := rand.New(rand.NewSource(seed))
	x := gaussian(rng, shapeX, 1)
	y := gaussian(rng, shapeY, 1)
	return CircularFrom(x, y, steps)
}

// CircularFrom walks the circle spanned by two given base tensors.
func CircularFrom(x, y latent.Vector, steps int) (latent.Walk, error) {
	if steps < 1 {
		return nil, latent.Invalid("circular walk needs steps >= 1, got %d", steps)
	}
	w := make(latent.Walk, steps)
	for i := range w {
		theta := 2 * math.Pi * float64(i) / float64(steps)
		v, err := x.Combine(math.Cos(theta), y, math.Sin(theta))
		if err != nil {
			return nil, fmt.Errorf("circular walk: %w", err)
		}
		w[i] = v
	}
	return w, nil
}

// Gaussian returns a seeded tensor with i.i.d. N(0, stddev²) elements.
func Gaussian(shape latent.Shape, stddev float64, seed int64) (latent.Vector, error) {
	if !shape.Valid() {
		return latent.Vector{}, latent.Invalid("invalid noise shape %s", shape)
	}
	if stddev < 0 {
		return latent.Vector{}, latent.Invalid("stddev must be >= 0, got %v", stddev)
	}
	return gaussian(rand.New(rand.NewSource(seed)), shape, stddev), nil
}

func gaussian(rng *rand.Rand, shape latent.Shape, stddev float64) latent.Vector {
	data := make([]float64, shape.Size())
	for i := range data {
		data[i] = rng.NormFloat64() * stddev
	}
	v, _ := latent.New(shape, data)
	return v
}
