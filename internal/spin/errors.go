package spin

import (
	"errors"
	"fmt"
)

// Domain errors for Hamiltonian parameter operations.
var (
	// ErrUnsupported indicates an operation the active Hamiltonian does not implement.
	ErrUnsupported = errors.New("spin: operation not supported by hamiltonian")

	// ErrZeroNormal indicates a direction vector that cannot be normalized.
	ErrZeroNormal = errors.New("spin: direction vector has zero length")

	// ErrDimensionMismatch indicates a coefficient array shorter than the requested shell count.
	ErrDimensionMismatch = errors.New("spin: dimension mismatch between shells and coefficients")

	// ErrInvalidState indicates a spin field with NaN or Inf components.
	ErrInvalidState = errors.New("spin: invalid spin configuration (NaN or Inf detected)")
)

// UnsupportedError reports which operation was rejected and by which
// Hamiltonian. It unwraps to ErrUnsupported.
type UnsupportedError struct {
	Op          string
	Hamiltonian string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("spin: %s is not supported by %s", e.Op, e.Hamiltonian)
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupported
}
