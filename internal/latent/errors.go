package latent

import (
	"errors"
	"fmt"
)

// Domain errors for walk generation, sampling and export.
var (
	// ErrInvalidArgument indicates malformed step counts, batch sizes or empty sequences.
	ErrInvalidArgument = errors.New("latent: invalid argument")

	// ErrShapeMismatch indicates two vectors whose shapes differ. It matches ErrInvalidArgument.
	ErrShapeMismatch = fmt.Errorf("%w: shape mismatch", ErrInvalidArgument)

	// ErrExternalGeneration indicates the generation collaborator failed or returned an unusable result.
	ErrExternalGeneration = errors.New("latent: external generation failed")
)

func shapeError(a, b Shape) error {
	return fmt.Errorf("%w: %s vs %s", ErrShapeMismatch, a, b)
}

// Invalid returns an ErrInvalidArgument carrying a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
