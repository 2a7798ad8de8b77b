package sampler

import (
	"fmt"

	"github.com/san-kum/latentwalk/internal/latent"
)

// GenerationError reports which batch the generator failed on. It matches
// latent.ErrExternalGeneration as well as the underlying cause.
type GenerationError struct {
	Batch  int
	Offset int
	Size   int
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%v: batch %d (frames %d-%d): %v",
		latent.ErrExternalGeneration, e.Batch, e.Offset, e.Offset+e.Size-1, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{latent.ErrExternalGeneration, e.Err}
}
