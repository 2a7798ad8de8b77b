// Package latent provides the core value types for walking a generative
// model's latent spaces.
//
// The package defines:
//
//   - [Shape]: dimensions of a latent tensor (e.g. 77x768 for a text encoding)
//   - [Vector]: an immutable, shaped point in latent space
//   - [Walk]: an ordered sequence of vectors, one per generated frame
//
// # Immutability
//
// Every arithmetic method on [Vector] allocates a new vector. A vector handed
// to a consumer can never be changed underneath it, so two steps of a walk
// never alias the same backing array.
//
// # Example
//
//	a, _ := latent.New(latent.Shape{2}, []float64{0, 0})
//	b, _ := latent.New(latent.Shape{2}, []float64{1, 1})
//	mid, _ := a.Lerp(b, 0.5) // [0.5 0.5]
package latent
