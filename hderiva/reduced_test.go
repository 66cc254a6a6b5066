package hderiva

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"bwestbro.com/hdfit/autodiff"
	"bwestbro.com/hdfit/symat"
)

// reduce maps x to r = (tanh(cr0·x0 + x1), cr1·x0·x1)
func reduce(x, cr []*autodiff.Var) []*autodiff.Var {
	return []*autodiff.Var{
		autodiff.Tanh(autodiff.Add(autodiff.Mul(cr[0], x[0]), x[1])),
		autodiff.Mul(cr[1], autodiff.Mul(x[0], x[1])),
	}
}

// features maps r to l = (r0, r1, r0², r0·r1)
func features(r []*autodiff.Var) []*autodiff.Var {
	return []*autodiff.Var{
		r[0], r[1], autodiff.Mul(r[0], r[0]), autodiff.Mul(r[0], r[1]),
	}
}

func featureJacobians(r []float64) (*mat.Dense, []*mat.Dense) {
	jlrT := mat.NewDense(2, 4, []float64{
		1, 0, 2 * r[0], r[1],
		0, 1, 0, r[0],
	})
	klrr := []*mat.Dense{
		mat.NewDense(2, 2, nil),
		mat.NewDense(2, 2, nil),
		mat.NewDense(2, 2, []float64{2, 0, 0, 0}),
		mat.NewDense(2, 2, []float64{0, 1, 1, 0}),
	}
	return jlrT, klrr
}

func transposed(m *mat.Dense) *mat.Dense {
	return mat.DenseCopyOf(m.T())
}

func TestReducedChain(t *testing.T) {
	const n = 2
	x := autodiff.Leaves([]float64{0.7, -0.4})
	cr := autodiff.Leaves([]float64{0.9, 1.3})
	r := reduce(x, cr)
	rv := autodiff.Values(r)

	jrx, err := autodiff.Jacobian(r, x)
	require.NoError(t, err)
	jrc, err := autodiff.Jacobian(r, cr)
	require.NoError(t, err)
	red := Reduction{JrxT: transposed(jrx), JrcT: transposed(jrc)}
	for _, rk := range r {
		k, err := autodiff.MixedJacobian(rk, x, cr)
		require.NoError(t, err)
		red.KrxcT = append(red.KrxcT, k)
	}

	jlrT, klrr := featureJacobians(rv)
	layers := Layers{
		Ls:    symat.NewMatrix[[]*autodiff.Var](n),
		JlrTs: symat.NewMatrix[*mat.Dense](n),
		Klrr:  symat.NewMatrix[[]*mat.Dense](n),
	}
	graphs := symat.NewMatrix[[]*autodiff.Var](n)
	layers.Ls.Each(func(i, j int, _ []*autodiff.Var) {
		l := features(r)
		graphs.Set(i, j, l)
		layers.Ls.Set(i, j, autodiff.Leaves(autodiff.Values(l)))
		layers.JlrTs.Set(i, j, jlrT)
		layers.Klrr.Set(i, j, klrr)
	})
	ws := testWeights(3, 4)
	Hd := testModel(ws, layers.Ls)
	ref := testModel(ws, graphs)

	dx, err := red.DxHd(Hd, layers)
	require.NoError(t, err)
	dc, err := red.DcHd(Hd, layers, ws)
	require.NoError(t, err)
	dcdx, err := red.DcDxHd(Hd, layers, ws)
	require.NoError(t, err)
	require.Equal(t, []int{2, 2 + 12}, dcdx.Shape())

	all := append([]*autodiff.Var(nil), cr...)
	for _, w := range ws {
		all = append(all, w...)
	}
	ref.Each(func(i, j int, h *autodiff.Var) {
		want, err := autodiff.GradValues(h, x)
		require.NoError(t, err)
		if !floatsClose(dx.Block(i, j), want, 1e-12) {
			t.Errorf("DxHd (%d, %d): got %v, wanted %v\n",
				i, j, dx.Block(i, j), want)
		}
		want, err = autodiff.GradValues(h, all)
		require.NoError(t, err)
		if !floatsClose(dc.Block(i, j), want, 1e-12) {
			t.Errorf("DcHd (%d, %d): got %v, wanted %v\n",
				i, j, dc.Block(i, j), want)
		}
		mixed, err := autodiff.MixedJacobian(h, x, all)
		require.NoError(t, err)
		got := mat.NewDense(2, len(all), dcdx.Block(i, j))
		if !mat.EqualApprox(got, mixed, 1e-10) {
			t.Errorf("DcDxHd (%d, %d): got\n%v, wanted\n%v\n", i, j,
				mat.Formatted(got), mat.Formatted(mixed))
		}
	})
}

func TestReducedChainWithoutLayerHessian(t *testing.T) {
	// dropping the feature Hessian must change the reduction block, so
	// the full chain rule is really exercised above
	x := autodiff.Leaves([]float64{0.7, -0.4})
	cr := autodiff.Leaves([]float64{0.9, 1.3})
	r := reduce(x, cr)
	jrx, err := autodiff.Jacobian(r, x)
	require.NoError(t, err)
	jrc, err := autodiff.Jacobian(r, cr)
	require.NoError(t, err)
	red := Reduction{JrxT: transposed(jrx), JrcT: transposed(jrc)}
	for _, rk := range r {
		k, err := autodiff.MixedJacobian(rk, x, cr)
		require.NoError(t, err)
		red.KrxcT = append(red.KrxcT, k)
	}
	jlrT, klrr := featureJacobians(autodiff.Values(r))
	full := Layers{
		Ls:    symat.NewMatrix[[]*autodiff.Var](1),
		JlrTs: symat.NewMatrix[*mat.Dense](1),
		Klrr:  symat.NewMatrix[[]*mat.Dense](1),
	}
	full.Ls.Set(0, 0, autodiff.Leaves(autodiff.Values(features(r))))
	full.JlrTs.Set(0, 0, jlrT)
	full.Klrr.Set(0, 0, klrr)
	partial := Layers{Ls: full.Ls, JlrTs: full.JlrTs}

	ws := testWeights(1, 4)
	Hd := testModel(ws, full.Ls)
	a, err := red.DcDxHd(Hd, full, ws)
	require.NoError(t, err)
	b, err := red.DcDxHd(Hd, partial, ws)
	require.NoError(t, err)
	var diff float64
	for x := 0; x < 2; x++ {
		for p := 0; p < 2; p++ {
			diff += math.Abs(a.At(0, 0, x*6+p) - b.At(0, 0, x*6+p))
		}
	}
	if diff < 1e-6 {
		t.Errorf("feature Hessian had no effect\n")
	}
}
