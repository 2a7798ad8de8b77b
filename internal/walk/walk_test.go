package walk

import (
	"math"
	"testing"

	"github.com/san-kum/latentwalk/internal/latent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinear_Scenario(t *testing.T) {
	w, err := Linear(latent.Zeros(latent.Shape{2}), latent.Of(1, 1), 3)
	require.NoError(t, err)
	require.Len(t, w, 3)

	assert.Equal(t, []float64{0, 0}, w[0].Data())
	assert.Equal(t, []float64{0.5, 0.5}, w[1].Data())
	assert.Equal(t, []float64{1, 1}, w[2].Data())
}

func TestLinear_EndpointsAndSpacing(t *testing.T) {
	a := latent.Of(0.1, -3.7, 2.2)
	b := latent.Of(9.3, 0.4, -1.9)

	for _, steps := range []int{2, 5, 7, 160} {
		w, err := Linear(a, b, steps)
		require.NoError(t, err)
		require.Len(t, w, steps)

		assert.True(t, w[0].Equal(a), "steps=%d: first element must equal a", steps)
		assert.True(t, w[steps-1].Equal(b), "steps=%d: last element must equal b", steps)

		lengths := w.StepLengths()
		for i := 1; i < len(lengths); i++ {
			assert.InDelta(t, lengths[0], lengths[i], 1e-9, "steps=%d: uneven spacing at %d", steps, i)
		}
	}
}

func TestLinear_LargeOppositeEndpoints(t *testing.T) {
	a, b := latent.Of(1e308, -1e308), latent.Of(-1e308, 1e308)
	w, err := Linear(a, b, 3)
	require.NoError(t, err)

	for i, v := range w {
		assert.True(t, v.IsValid(), "step %d overflowed: %v", i, v.Data())
	}
	assert.True(t, w[0].Equal(a))
	assert.True(t, w[2].Equal(b))
	assert.Equal(t, []float64{0, 0}, w[1].Data())
}

func TestLinear_InvalidArguments(t *testing.T) {
	_, err := Linear(latent.Of(0), latent.Of(1), 1)
	assert.ErrorIs(t, err, latent.ErrInvalidArgument)

	_, err = Linear(latent.Of(0, 0), latent.Of(1), 3)
	assert.ErrorIs(t, err, latent.ErrInvalidArgument)
	assert.ErrorIs(t, err, latent.ErrShapeMismatch)
}

func TestRandom_Deterministic(t *testing.T) {
	start := latent.Zeros(latent.Shape{4, 3})

	w1, err := Random(start, 20, 0.05, 12345)
	require.NoError(t, err)
	w2, err := Random(start, 20, 0.05, 12345)
	require.NoError(t, err)

	require.Len(t, w1, 20)
	for i := range w1 {
		assert.True(t, w1[i].Equal(w2[i]), "step %d differs between identical runs", i)
	}

	w3, err := Random(start, 20, 0.05, 54321)
	require.NoError(t, err)
	assert.False(t, w1[19].Equal(w3[19]), "different seeds should diverge")
}

func TestRandom_StartsAtStart(t *testing.T) {
	start := latent.Of(1, 2, 3)

	w, err := Random(start, 5, 0.5, 7)
	require.NoError(t, err)
	assert.True(t, w[0].Equal(start))

	for i := 1; i < len(w); i++ {
		assert.False(t, w[i].Equal(w[i-1]), "step %d did not move", i)
	}
}

func TestRandom_ZeroStepSizeStaysPut(t *testing.T) {
	start := latent.Of(1, 2)

	w, err := Random(start, 4, 0, 1)
	require.NoError(t, err)
	for i := range w {
		assert.True(t, w[i].Equal(start))
	}
}

func TestRandom_InvalidArguments(t *testing.T) {
	_, err := Random(latent.Of(1), 0, 0.1, 1)
	assert.ErrorIs(t, err, latent.ErrInvalidArgument)

	_, err = Random(latent.Of(1), 3, -0.1, 1)
	assert.ErrorIs(t, err, latent.ErrInvalidArgument)

	_, err = Random(latent.Of(1), 3, math.NaN(), 1)
	assert.ErrorIs(t, err, latent.ErrInvalidArgument)
}

func TestFold(t *testing.T) {
	deltas := []latent.Vector{latent.Of(1), latent.Of(2), latent.Of(3)}

	w, err := Fold(latent.Of(0), len(deltas), func(i int) latent.Vector { return deltas[i] }, Step)
	require.NoError(t, err)

	got := make([]float64, len(w))
	for i, v := range w {
		got[i] = v.At(0)
	}
	assert.Equal(t, []float64{0, 1, 3, 6}, got)
}

func TestFold_PropagatesStepError(t *testing.T) {
	_, err := Fold(latent.Of(0), 2, func(int) latent.Vector { return latent.Of(1, 1) }, Step)
	assert.ErrorIs(t, err, latent.ErrShapeMismatch)
}

func TestCircular_Periodic(t *testing.T) {
	shape := latent.Shape{8, 8, 4}
	steps := 16

	w, err := Circular(shape, shape, steps, 12345)
	require.NoError(t, err)
	require.Len(t, w, steps)

	// Index 0 is the x basis exactly, and one extra step along the same
	// circle lands back on it.
	x, y, err := bases(shape, 12345)
	require.NoError(t, err)
	assert.True(t, w[0].Equal(x))

	closing, err := x.Combine(math.Cos(2*math.Pi), y, math.Sin(2*math.Pi))
	require.NoError(t, err)
	assert.True(t, closing.EqualApprox(w[0], 1e-9))

	quarter, err := x.Combine(math.Cos(math.Pi/2), y, math.Sin(math.Pi/2))
	require.NoError(t, err)
	assert.True(t, w[steps/4].EqualApprox(quarter, 1e-12))
}

func TestCircularFrom_UnitCircle(t *testing.T) {
	w, err := CircularFrom(latent.Of(1, 0), latent.Of(0, 1), 4)
	require.NoError(t, err)

	expected := [][]float64{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	for i, exp := range expected {
		assert.True(t, w[i].EqualApprox(latent.Of(exp...), 1e-12), "step %d: got %v", i, w[i].Data())
	}
}

func TestCircular_InvalidArguments(t *testing.T) {
	_, err := Circular(latent.Shape{2}, latent.Shape{2}, 0, 1)
	assert.ErrorIs(t, err, latent.ErrInvalidArgument)

	_, err = Circular(latent.Shape{2}, latent.Shape{3}, 4, 1)
	assert.ErrorIs(t, err, latent.ErrShapeMismatch)
}

func TestGaussian(t *testing.T) {
	a, err := Gaussian(latent.Shape{64, 64, 4}, 1, 42)
	require.NoError(t, err)
	b, err := Gaussian(latent.Shape{64, 64, 4}, 1, 42)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	mean := 0.0
	for _, v := range a.Data() {
		mean += v
	}
	mean /= float64(a.Len())
	assert.InDelta(t, 0, mean, 0.05)

	_, err = Gaussian(latent.Shape{0}, 1, 42)
	assert.ErrorIs(t, err, latent.ErrInvalidArgument)
}

// bases replays the draws Circular makes from its seed.
func bases(shape latent.Shape, seed int64) (latent.Vector, latent.Vector, error) {
	w, err := Circular(shape, shape, 4, seed)
	if err != nil {
		return latent.Vector{}, latent.Vector{}, err
	}
	return w[0], w[1], nil
}
