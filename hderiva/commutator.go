package hderiva

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas/blas64"

	"bwestbro.com/hdfit/symat"
)

// Commutator computes [A, M] = A·M - M·A for a symmetric A with any
// trailing shape and an antisymmetric M along D directions. The result
// has the trailing shape of A followed by D. Only the upper triangle
// of A and the strict upper triangle of M are read.
func Commutator(A *symat.Tensor, M *symat.Antisym) (*symat.Tensor, error) {
	n := A.N()
	if M.N() != n {
		return nil, errors.Wrapf(ErrShape,
			"commutator of %v with a %d state generator", A, M.N())
	}
	d := M.D()
	R := symat.NewTensor(n, append(A.Shape(), d)...)
	la := A.BlockLen()
	if la == 0 || d == 0 {
		return R, nil
	}
	// dst += alpha * outer(u, v)
	outer := func(dst []float64, alpha float64, u, v []float64) {
		blas64.Ger(alpha,
			blas64.Vector{N: la, Data: u, Inc: 1},
			blas64.Vector{N: d, Data: v, Inc: 1},
			blas64.General{Rows: la, Cols: d, Data: dst, Stride: d},
		)
	}
	for i := 0; i < n; i++ {
		r := R.Block(i, i)
		for k := 0; k < i; k++ {
			outer(r, 2, A.Block(k, i), M.Block(k, i))
		}
		for k := i + 1; k < n; k++ {
			outer(r, -2, A.Block(i, k), M.Block(i, k))
		}
		for j := i + 1; j < n; j++ {
			r := R.Block(i, j)
			for k := 0; k < i; k++ {
				outer(r, 1, A.Block(k, i), M.Block(k, j))
				outer(r, 1, A.Block(k, j), M.Block(k, i))
			}
			outer(r, 1, A.Block(i, i), M.Block(i, j))
			for k := i + 1; k < j; k++ {
				outer(r, 1, A.Block(i, k), M.Block(k, j))
				outer(r, -1, A.Block(k, j), M.Block(i, k))
			}
			outer(r, -1, A.Block(j, j), M.Block(i, j))
			for k := j + 1; k < n; k++ {
				outer(r, -1, A.Block(i, k), M.Block(j, k))
				outer(r, -1, A.Block(j, k), M.Block(i, k))
			}
		}
	}
	return R, nil
}
