package hderiva

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"bwestbro.com/hdfit/symat"
)

// Transform returns Uᵗ·A·U for every trailing slice of A. The whole
// tensor goes through two matrix products rather than one small
// product per slice or per element: with S the block length, A is laid
// out as N x (N·S), multiplied from the left by Uᵗ, regrouped as
// (N·S) x N and multiplied from the right by U.
func Transform(A *symat.Tensor, U mat.Matrix) (*symat.Tensor, error) {
	n := A.N()
	if r, c := U.Dims(); r != n || c != n {
		return nil, errors.Wrapf(ErrShape,
			"transforming %v with a %d x %d matrix", A, r, c)
	}
	ret := symat.NewTensor(n, A.Shape()...)
	s := A.BlockLen()
	if s == 0 {
		return ret, nil
	}
	wide := make([]float64, n*n*s)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			copy(wide[i*n*s+j*s:], A.SymBlock(i, j))
		}
	}
	var left mat.Dense
	left.Mul(U.T(), mat.NewDense(n, n*s, wide))

	// tall[a*s+k][j] = left[a][j*s+k]
	tall := make([]float64, n*s*n)
	raw := left.RawMatrix()
	for a := 0; a < n; a++ {
		row := raw.Data[a*raw.Stride : a*raw.Stride+n*s]
		for j := 0; j < n; j++ {
			for k := 0; k < s; k++ {
				tall[(a*s+k)*n+j] = row[j*s+k]
			}
		}
	}
	var prod mat.Dense
	prod.Mul(mat.NewDense(n*s, n, tall), U)

	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			blk := ret.Block(a, b)
			for k := range blk {
				blk[k] = prod.At(a*s+k, b)
			}
		}
	}
	return ret, nil
}
