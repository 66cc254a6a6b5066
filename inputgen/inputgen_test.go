package inputgen

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"bwestbro.com/hdfit/autodiff"
)

func TestMonomials(t *testing.T) {
	g := New(2, 3)
	got := make([][]int, g.NFeatures())
	for l := range got {
		got[l] = g.Exponents(l)
	}
	want := [][]int{
		{1, 0}, {0, 1},
		{2, 0}, {1, 1}, {0, 2},
		{3, 0}, {2, 1}, {1, 2}, {0, 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, wanted %v\n", got, want)
	}
	require.Equal(t, 3+6+10, New(3, 3).NFeatures())

	vals := g.Values([]float64{2, 3})
	wantv := []float64{2, 3, 4, 6, 9, 8, 12, 18, 27}
	if !floats.Equal(vals, wantv) {
		t.Errorf("got %v, wanted %v\n", vals, wantv)
	}
}

func TestJacobians(t *testing.T) {
	tests := []struct {
		ncoords, order int
		r              []float64
	}{
		{1, 4, []float64{-0.7}},
		{2, 3, []float64{0.4, -1.2}},
		{3, 2, []float64{0.3, 0, 1.5}},
	}
	for _, test := range tests {
		g := New(test.ncoords, test.order)
		r := autodiff.Leaves(test.r)
		ls := g.Vars(r)
		if got, want := autodiff.Values(ls), g.Values(test.r); !floats.EqualApprox(got, want, 1e-14) {
			t.Errorf("got %v, wanted %v\n", got, want)
		}
		j, err := autodiff.Jacobian(ls, r)
		require.NoError(t, err)
		if got := g.JacobianT(test.r); !mat.EqualApprox(got, j.T(), 1e-12) {
			t.Errorf("JacobianT: got\n%v, wanted\n%v\n",
				mat.Formatted(got), mat.Formatted(j.T()))
		}
		hs := g.Hessians(test.r)
		for l, v := range ls {
			want, err := autodiff.Hessian(v, r)
			require.NoError(t, err)
			if !mat.EqualApprox(hs[l], want, 1e-12) {
				t.Errorf("Hessian %d: got\n%v, wanted\n%v\n", l,
					mat.Formatted(hs[l]), mat.Formatted(want))
			}
		}
	}
}

func TestLayers(t *testing.T) {
	g := New(2, 2)
	r := []float64{0.5, -0.25}
	layers := g.Layers(3, r)
	require.Equal(t, 3, layers.Ls.N())
	seen := make(map[*autodiff.Var]bool)
	layers.Ls.Each(func(i, j int, l []*autodiff.Var) {
		require.Len(t, l, g.NFeatures())
		if got, want := autodiff.Values(l), g.Values(r); !floats.Equal(got, want) {
			t.Errorf("(%d, %d): got %v, wanted %v\n", i, j, got, want)
		}
		for _, v := range l {
			require.True(t, v.RequiresGrad())
			require.False(t, seen[v], "leaf shared between elements")
			seen[v] = true
		}
		rows, cols := layers.JlrTs.At(i, j).Dims()
		require.Equal(t, []int{2, g.NFeatures()}, []int{rows, cols})
		require.Len(t, layers.Klrr.At(i, j), g.NFeatures())
	})
}
