// Package metrics summarizes the geometry of a latent walk.
package metrics

import (
	"math"

	"github.com/san-kum/latentwalk/internal/latent"
	"gonum.org/v1/gonum/stat"
)

// Metric observes a walk one vector at a time.
type Metric interface {
	Name() string
	Observe(v latent.Vector, step int)
	Value() float64
	Reset()
}

// Defaults returns the metrics recorded for every run.
func Defaults() []Metric {
	return []Metric{
		NewStepLength(),
		NewMaxStep(),
		NewClosureGap(),
		NewNormDrift(),
		NewStepJitter(),
	}
}

// Collect resets each metric, feeds it the whole walk and returns the values by name.
func Collect(w latent.Walk, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for i, v := range w {
			m.Observe(v, i)
		}
		out[m.Name()] = m.Value()
	}
	return out
}

func distance(a, b latent.Vector) float64 {
	d, err := a.Distance(b)
	if err != nil {
		return math.NaN()
	}
	return d
}

// StepLength is the mean distance between consecutive vectors.
type StepLength struct {
	prev    latent.Vector
	sum     float64
	samples int
	started bool
}

func NewStepLength() *StepLength { return &StepLength{} }

func (s *StepLength) Name() string { return "step_length" }

func (s *StepLength) Observe(v latent.Vector, step int) {
	if s.started {
		s.sum += distance(s.prev, v)
		s.samples++
	}
	s.prev = v
	s.started = true
}

func (s *StepLength) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return s.sum / float64(s.samples)
}

func (s *StepLength) Reset() { *s = StepLength{} }

// MaxStep is the largest distance between consecutive vectors.
type MaxStep struct {
	prev    latent.Vector
	max     float64
	started bool
}

func NewMaxStep() *MaxStep { return &MaxStep{} }

func (m *MaxStep) Name() string { return "max_step" }

func (m *MaxStep) Observe(v latent.Vector, step int) {
	if m.started {
		m.max = math.Max(m.max, distance(m.prev, v))
	}
	m.prev = v
	m.started = true
}

func (m *MaxStep) Value() float64 { return m.max }
func (m *MaxStep) Reset()         { *m = MaxStep{} }

// ClosureGap is the distance from the last vector back to the first. For a
// periodic walk it is about one step; for an open walk it is much larger.
type ClosureGap struct {
	first, last latent.Vector
	samples     int
}

func NewClosureGap() *ClosureGap { return &ClosureGap{} }

func (c *ClosureGap) Name() string { return "closure_gap" }

func (c *ClosureGap) Observe(v latent.Vector, step int) {
	if c.samples == 0 {
		c.first = v
	}
	c.last = v
	c.samples++
}

func (c *ClosureGap) Value() float64 {
	if c.samples < 2 {
		return 0
	}
	return distance(c.first, c.last)
}

func (c *ClosureGap) Reset() { *c = ClosureGap{} }

// NormDrift is the relative change in L2 norm from the first vector to the last.
type NormDrift struct {
	first, last float64
	samples     int
}

func NewNormDrift() *NormDrift { return &NormDrift{} }

func (n *NormDrift) Name() string { return "norm_drift" }

func (n *NormDrift) Observe(v latent.Vector, step int) {
	norm := v.Norm()
	if n.samples == 0 {
		n.first = norm
	}
	n.last = norm
	n.samples++
}

func (n *NormDrift) Value() float64 {
	if n.samples == 0 || n.first == 0 {
		return 0
	}
	return math.Abs(n.last-n.first) / n.first
}

func (n *NormDrift) Reset() { *n = NormDrift{} }

// StepJitter is the standard deviation of consecutive distances. Linear and
// circular walks keep it near zero.
type StepJitter struct {
	prev    latent.Vector
	lengths []float64
	started bool
}

func NewStepJitter() *StepJitter { return &StepJitter{} }

func (j *StepJitter) Name() string { return "step_jitter" }

func (j *StepJitter) Observe(v latent.Vector, step int) {
	if j.started {
		j.lengths = append(j.lengths, distance(j.prev, v))
	}
	j.prev = v
	j.started = true
}

func (j *StepJitter) Value() float64 {
	if len(j.lengths) < 2 {
		return 0
	}
	return stat.StdDev(j.lengths, nil)
}

func (j *StepJitter) Reset() { *j = StepJitter{} }
