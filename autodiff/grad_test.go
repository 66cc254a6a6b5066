package autodiff

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// f(x, y) = x*y + tanh(x)*exp(y) - 3x
func testFunc(x, y *Var) *Var {
	return Sub(
		Add(Mul(x, y), Mul(Tanh(x), Exp(y))),
		Scale(x, 3),
	)
}

func sech2(x float64) float64 {
	c := math.Cosh(x)
	return 1 / (c * c)
}

func TestGrad(t *testing.T) {
	x, y := New(0.3), New(-0.7)
	f := testFunc(x, y)
	want := 0.3*-0.7 + math.Tanh(0.3)*math.Exp(-0.7) - 0.9
	if math.Abs(f.Value()-want) > 1e-14 {
		t.Errorf("got %v, wanted %v\n", f.Value(), want)
	}
	got, err := GradValues(f, []*Var{x, y})
	require.NoError(t, err)
	wantG := []float64{
		-0.7 + sech2(0.3)*math.Exp(-0.7) - 3,
		0.3 + math.Tanh(0.3)*math.Exp(-0.7),
	}
	if !floats.EqualApprox(got, wantG, 1e-12) {
		t.Errorf("got %v, wanted %v\n", got, wantG)
	}
}

func TestHessian(t *testing.T) {
	xv, yv := 0.3, -0.7
	x, y := New(xv), New(yv)
	got, err := Hessian(testFunc(x, y), []*Var{x, y})
	require.NoError(t, err)
	th := math.Tanh(xv)
	ey := math.Exp(yv)
	want := mat.NewDense(2, 2, []float64{
		-2 * th * sech2(xv) * ey, 1 + sech2(xv)*ey,
		1 + sech2(xv)*ey, th * ey,
	})
	if !mat.EqualApprox(got, want, 1e-12) {
		t.Errorf("got\n%v, wanted\n%v\n",
			mat.Formatted(got), mat.Formatted(want))
	}
}

func TestThirdOrder(t *testing.T) {
	// d³/dx³ exp(2x) = 8 exp(2x)
	x := New(0.25)
	y := Exp(Scale(x, 2))
	g := []*Var{y}
	for i := 0; i < 3; i++ {
		var err error
		g, err = Grad(g[0], []*Var{x}, true)
		require.NoError(t, err)
	}
	want := 8 * math.Exp(0.5)
	if math.Abs(g[0].Value()-want) > 1e-12 {
		t.Errorf("got %v, wanted %v\n", g[0].Value(), want)
	}
}

func TestUnreached(t *testing.T) {
	x, y, z := New(1), New(2), New(3)
	f := Mul(x, y)
	gs, err := Grad(f, []*Var{x, z}, true)
	require.NoError(t, err)
	require.NotNil(t, gs[0])
	require.Nil(t, gs[1])
	// the gradient of a linear function carries no graph
	hs, err := Grad(Add(x, y), []*Var{x}, true)
	require.NoError(t, err)
	require.False(t, hs[0].RequiresGrad())
	more, err := Grad(hs[0], []*Var{x}, false)
	require.NoError(t, err)
	require.Nil(t, more[0])
}

func TestNotTracked(t *testing.T) {
	x := New(1)
	c := Const(2)
	f := Mul(x, c)
	_, err := Grad(f, []*Var{c}, false)
	require.True(t, errors.Is(err, ErrNotTracked))
	x.SetRequiresGrad(false)
	g := Mul(x, x)
	require.False(t, g.RequiresGrad())
	require.Panics(t, func() { f.SetValue(3) })
	require.Panics(t, func() { c.SetRequiresGrad(true) })
	require.True(t, x.IsLeaf())
	require.False(t, c.IsLeaf())
	require.False(t, f.IsLeaf())
}

func TestSharedNodes(t *testing.T) {
	// f = (x+x)*(x+x) reuses one node on both sides
	x := New(1.5)
	s := Add(x, x)
	f := Mul(s, s)
	got, err := GradValues(f, []*Var{x})
	require.NoError(t, err)
	if want := 8 * 1.5; math.Abs(got[0]-want) > 1e-14 {
		t.Errorf("got %v, wanted %v\n", got[0], want)
	}
}

func TestJacobian(t *testing.T) {
	xs := Leaves([]float64{1, 2})
	ys := []*Var{
		Mul(xs[0], xs[1]),
		DotConst([]float64{2, -1}, xs),
		Dot(xs, xs),
	}
	got, err := Jacobian(ys, xs)
	require.NoError(t, err)
	want := mat.NewDense(3, 2, []float64{2, 1, 2, -1, 2, 4})
	if !mat.EqualApprox(got, want, 1e-14) {
		t.Errorf("got\n%v, wanted\n%v\n",
			mat.Formatted(got), mat.Formatted(want))
	}
	mixed, err := MixedJacobian(ys[0], xs[:1], xs[1:])
	require.NoError(t, err)
	if mixed.At(0, 0) != 1 {
		t.Errorf("got %v, wanted %v\n", mixed.At(0, 0), 1)
	}
}
