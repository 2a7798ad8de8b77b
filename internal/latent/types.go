package latent

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Shape lists the dimensions of a latent tensor, outermost first.
type Shape []int

// Size is the number of elements a tensor of this shape holds.
func (s Shape) Size() int {
	if len(s) == 0 {
		return 0
	}
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

func (s Shape) Valid() bool {
	if len(s) == 0 {
		return false
	}
	for _, d := range s {
		if d <= 0 {
			return false
		}
	}
	return true
}

func (s Shape) Clone() Shape {
	c := make(Shape, len(s))
	copy(c, s)
	return c
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, "x") + ")"
}

// Vector is a shaped point in latent space, stored row-major.
type Vector struct {
	shape Shape
	data  []float64
}

// New copies data into a vector of the given shape.
func New(shape Shape, data []float64) (Vector, error) {
	if !shape.Valid() {
		return Vector{}, Invalid("shape %s has non-positive dimension", shape)
	}
	if len(data) != shape.Size() {
		return Vector{}, Invalid("shape %s needs %d values, got %d", shape, shape.Size(), len(data))
	}
	d := make([]float64, len(data))
	copy(d, data)
	return Vector{shape: shape.Clone(), data: d}, nil
}

// Of builds a one-dimensional vector from its values.
func Of(values ...float64) Vector {
	d := make([]float64, len(values))
	copy(d, values)
	return Vector{shape: Shape{len(values)}, data: d}
}

func Zeros(shape Shape) Vector {
	return Vector{shape: shape.Clone(), data: make([]float64, shape.Size())}
}

// wrap takes ownership of data; callers must not retain it.
func wrap(shape Shape, data []float64) Vector {
	return Vector{shape: shape, data: data}
}

func (v Vector) Shape() Shape { return v.shape.Clone() }
func (v Vector) Len() int     { return len(v.data) }
func (v Vector) At(i int) float64 {
	return v.data[i]
}

// Data returns a copy of the underlying values.
func (v Vector) Data() []float64 {
	c := make([]float64, len(v.data))
	copy(c, v.data)
	return c
}

// Row returns a copy of the i-th slice along the outermost dimension.
func (v Vector) Row(i int) []float64 {
	if len(v.shape) == 0 {
		return nil
	}
	width := len(v.data) / v.shape[0]
	c := make([]float64, width)
	copy(c, v.data[i*width:(i+1)*width])
	return c
}

func (v Vector) Clone() Vector {
	return wrap(v.shape.Clone(), v.Data())
}

func (v Vector) SameShape(other Vector) bool {
	return v.shape.Equal(other.shape)
}

func (v Vector) Add(other Vector) (Vector, error) {
	if !v.SameShape(other) {
		return Vector{}, shapeError(v.shape, other.shape)
	}
	return wrap(v.shape.Clone(), floats.AddTo(make([]float64, len(v.data)), v.data, other.data)), nil
}

func (v Vector) Sub(other Vector) (Vector, error) {
	if !v.SameShape(other) {
		return Vector{}, shapeError(v.shape, other.shape)
	}
	return wrap(v.shape.Clone(), floats.SubTo(make([]float64, len(v.data)), v.data, other.data)), nil
}

func (v Vector) Scale(factor float64) Vector {
	return wrap(v.shape.Clone(), floats.ScaleTo(make([]float64, len(v.data)), factor, v.data))
}

// Lerp returns (1−t)·v + t·other. Both endpoints come back exactly and
// large opposite-signed inputs do not overflow.
func (v Vector) Lerp(other Vector, t float64) (Vector, error) {
	return v.Combine(1-t, other, t)
}

// Combine returns a·v + b·other.
func (v Vector) Combine(a float64, other Vector, b float64) (Vector, error) {
	if !v.SameShape(other) {
		return Vector{}, shapeError(v.shape, other.shape)
	}
	dst := floats.ScaleTo(make([]float64, len(v.data)), a, v.data)
	floats.AddScaled(dst, b, other.data)
	return wrap(v.shape.Clone(), dst), nil
}

func (v Vector) Norm() float64 {
	if len(v.data) == 0 {
		return 0
	}
	return floats.Norm(v.data, 2)
}

// Distance is the Euclidean distance between two vectors of the same shape.
func (v Vector) Distance(other Vector) (float64, error) {
	if !v.SameShape(other) {
		return 0, shapeError(v.shape, other.shape)
	}
	if len(v.data) == 0 {
		return 0, nil
	}
	return floats.Distance(v.data, other.data, 2), nil
}

func (v Vector) Equal(other Vector) bool {
	return v.SameShape(other) && floats.Equal(v.data, other.data)
}

func (v Vector) EqualApprox(other Vector, tol float64) bool {
	return v.SameShape(other) && floats.EqualApprox(v.data, other.data, tol)
}

func (v Vector) IsValid() bool {
	for _, x := range v.data {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Walk is an ordered sequence of latent vectors, one per frame.
type Walk []Vector

// Shape reports the common shape of the walk's vectors.
func (w Walk) Shape() (Shape, error) {
	if len(w) == 0 {
		return nil, Invalid("empty walk")
	}
	s := w[0].shape
	for _, v := range w[1:] {
		if !v.shape.Equal(s) {
			return nil, shapeError(s, v.shape)
		}
	}
	return s.Clone(), nil
}

// StepLengths returns the distance between each consecutive pair.
func (w Walk) StepLengths() []float64 {
	if len(w) < 2 {
		return nil
	}
	out := make([]float64, 0, len(w)-1)
	for i := 1; i < len(w); i++ {
		d, err := w[i].Distance(w[i-1])
		if err != nil {
			d = math.NaN()
		}
		out = append(out, d)
	}
	return out
}

// Norms returns the L2 norm of every step.
func (w Walk) Norms() []float64 {
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = v.Norm()
	}
	return out
}
