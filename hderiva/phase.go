package hderiva

import (
	"math"

	"github.com/pkg/errors"

	"bwestbro.com/hdfit/symat"
)

// Phaser resolves the sign ambiguity of eigenvectors. Flipping the
// sign of eigenvector i multiplies the off-diagonal elements in row
// and column i of any representation, so two evaluations can only be
// compared, for example in a finite difference, after their phases
// agree. The first state is held fixed, leaving 2^(n-1) patterns.
type Phaser struct {
	n        int
	patterns [][]float64
}

func NewPhaser(n int) *Phaser {
	if n <= 0 || n > 30 {
		panic("hderiva: unsupported number of states for phase fixing")
	}
	count := 1 << (n - 1)
	ret := &Phaser{n: n, patterns: make([][]float64, count)}
	for p := range ret.patterns {
		signs := make([]float64, n)
		signs[0] = 1
		for i := 1; i < n; i++ {
			signs[i] = 1
			if p&(1<<(i-1)) != 0 {
				signs[i] = -1
			}
		}
		ret.patterns[p] = signs
	}
	return ret
}

// Patterns returns the number of sign patterns tried
func (ph *Phaser) Patterns() int { return len(ph.patterns) }

func apply(A *symat.Tensor, signs []float64) {
	for i := 0; i < A.N(); i++ {
		for j := i + 1; j < A.N(); j++ {
			if signs[i]*signs[j] < 0 {
				blk := A.Block(i, j)
				for k := range blk {
					blk[k] = -blk[k]
				}
			}
		}
	}
}

func phaseDistance(A, ref *symat.Tensor, signs []float64) float64 {
	var sum float64
	for i := 0; i < A.N(); i++ {
		for j := i + 1; j < A.N(); j++ {
			s := signs[i] * signs[j]
			a, r := A.Block(i, j), ref.Block(i, j)
			for k := range a {
				d := s*a[k] - r[k]
				sum += d * d
			}
		}
	}
	return sum
}

// FixOb applies to A, in place, the eigenvector sign pattern that
// brings it closest to ref and returns that pattern
func (ph *Phaser) FixOb(A, ref *symat.Tensor) ([]float64, error) {
	if A.N() != ph.n || !A.SameShape(ref) {
		return nil, errors.Wrapf(ErrShape,
			"phasing %v against %v with %d states", A, ref, ph.n)
	}
	best, min := 0, math.Inf(1)
	for p, signs := range ph.patterns {
		if d := phaseDistance(A, ref, signs); d < min {
			best, min = p, d
		}
	}
	apply(A, ph.patterns[best])
	return append([]float64(nil), ph.patterns[best]...), nil
}
