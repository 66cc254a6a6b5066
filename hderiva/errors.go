package hderiva

import (
	"github.com/pkg/errors"

	"bwestbro.com/hdfit/symat"
)

// Errors
var (
	// ErrShape reports mismatched state counts or trailing dimensions
	ErrShape = errors.New("shape mismatch")
	// ErrInvalidArgument reports a violated precondition, such as a
	// tensor of the wrong rank or an input layer without gradient
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDegenerateBasis reports an eigenvalue gap too small to divide
	// by. Callers should switch to the composite basis
	ErrDegenerateBasis = errors.New("degenerate basis")
	ErrEigen           = errors.New("eigendecomposition failed")
)

func checkRank(name string, t *symat.Tensor, rank int) error {
	if t == nil {
		return errors.Wrapf(ErrInvalidArgument, "%s is nil", name)
	}
	if got := t.Rank(); got != rank {
		return errors.Wrapf(ErrInvalidArgument,
			"%s has rank %d, wanted %d", name, got, rank)
	}
	return nil
}

func checkStates(n int, ts map[string]*symat.Tensor) error {
	for name, t := range ts {
		if t.N() != n {
			return errors.Wrapf(ErrShape,
				"%s has %d states, wanted %d", name, t.N(), n)
		}
	}
	return nil
}
