package hderiva

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"bwestbro.com/hdfit/symat"
)

func checkMetric(metric mat.Symmetric, d int) error {
	if metric != nil && metric.SymmetricDim() != d {
		return errors.Wrapf(ErrShape, "%d x %d metric for %d coordinates",
			metric.SymmetricDim(), metric.SymmetricDim(), d)
	}
	return nil
}

// metricTimes returns the blocks of DxHd multiplied by the metric, or
// DxHd itself without one
func metricTimes(DxHd *symat.Tensor, metric mat.Symmetric) *symat.Tensor {
	if metric == nil {
		return DxHd
	}
	d := DxHd.BlockLen()
	ret := symat.NewTensor(DxHd.N(), d)
	for i := 0; i < DxHd.N(); i++ {
		for j := i; j < DxHd.N(); j++ {
			dst := mat.NewVecDense(d, ret.Block(i, j))
			dst.MulVec(metric, mat.NewVecDense(d, DxHd.Block(i, j)))
		}
	}
	return ret
}

// Overlap returns O = DxHd·DxHd, contracting the shared coordinate
// axis: O[i][j] = Σ_k Σ_xy DxHd[i][k][x] S[x][y] DxHd[k][j][y], with S
// the identity when metric is nil. Its eigenvectors define the
// composite basis.
func Overlap(DxHd *symat.Tensor, metric mat.Symmetric) (*symat.Tensor, error) {
	if err := checkRank("DxHd", DxHd, 3); err != nil {
		return nil, err
	}
	n, d := DxHd.N(), DxHd.BlockLen()
	if err := checkMetric(metric, d); err != nil {
		return nil, err
	}
	ret := symat.NewTensor(n)
	if d == 0 {
		return ret, nil
	}
	sb := metricTimes(DxHd, metric)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var sum float64
			for k := 0; k < n; k++ {
				sum += floats.Dot(DxHd.SymBlock(i, k), sb.SymBlock(k, j))
			}
			ret.Block(i, j)[0] = sum
		}
	}
	return ret, nil
}

// OverlapDerivative returns the parameter derivative of Overlap,
// DcO = X + Xᵗ with X[i][j][p] = Σ_k Σ_x DcDxHd[i][k][x][p]·DxHd[k][j][x]
func OverlapDerivative(DcDxHd, DxHd *symat.Tensor, metric mat.Symmetric) (*symat.Tensor, error) {
	if err := checkRank("DcDxHd", DcDxHd, 4); err != nil {
		return nil, err
	}
	if err := checkRank("DxHd", DxHd, 3); err != nil {
		return nil, err
	}
	n := DxHd.N()
	if err := checkStates(n, map[string]*symat.Tensor{"DcDxHd": DcDxHd}); err != nil {
		return nil, err
	}
	shape := DcDxHd.Shape()
	d, p := shape[0], shape[1]
	if d != DxHd.BlockLen() {
		return nil, errors.Wrapf(ErrShape,
			"DcDxHd has %d coordinates, DxHd has %d", d, DxHd.BlockLen())
	}
	if err := checkMetric(metric, d); err != nil {
		return nil, err
	}
	ret := symat.NewTensor(n, p)
	if d == 0 || p == 0 {
		return ret, nil
	}
	sb := metricTimes(DxHd, metric)
	// dst += blk(i, k)ᵗ · sb(k, j)
	gemv := func(dst []float64, i, k, j int) {
		blas64.Gemv(blas.Trans, 1,
			blas64.General{Rows: d, Cols: p, Data: DcDxHd.SymBlock(i, k), Stride: p},
			blas64.Vector{N: d, Data: sb.SymBlock(k, j), Inc: 1},
			1,
			blas64.Vector{N: p, Data: dst, Inc: 1},
		)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst := ret.Block(i, j)
			for k := 0; k < n; k++ {
				gemv(dst, i, k, j)
				gemv(dst, j, k, i)
			}
		}
	}
	return ret, nil
}

// Generator builds the rotation generator of basis b along the
// derivative dOp of its defining operator: dOp is transformed into
// the basis and every strict upper element (i, j) is divided by
// λ[j] - λ[i]. A gap smaller than the engine epsilon, or one that is
// not a number, returns ErrDegenerateBasis.
func (e *Engine) Generator(dOp *symat.Tensor, b *Basis) (*symat.Antisym, error) {
	if err := checkRank("basis derivative", dOp, 3); err != nil {
		return nil, err
	}
	n := b.N()
	if dOp.N() != n {
		return nil, errors.Wrapf(ErrShape,
			"%v for a %d state basis", dOp, n)
	}
	T, err := Transform(dOp, b.Vectors)
	if err != nil {
		return nil, err
	}
	eps := e.eps()
	M := symat.NewAntisym(n, dOp.BlockLen())
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			gap := b.Values[j] - b.Values[i]
			// NaN gaps fail too
			if !(math.Abs(gap) >= eps) {
				return nil, errors.Wrapf(ErrDegenerateBasis,
					"%v states %d and %d are %g apart",
					b.Rep, i, j, gap)
			}
			floats.ScaleTo(M.Block(i, j), 1/gap, T.Block(i, j))
		}
	}
	return M, nil
}
