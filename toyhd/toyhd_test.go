package toyhd

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"bwestbro.com/hdfit/autodiff"
	"bwestbro.com/hdfit/hderiva"
	"bwestbro.com/hdfit/symat"
)

var testModel = Model{
	C00: [3]float64{1, 0, 0},
	C01: [2]float64{0.5, 0},
	C11: [3]float64{1, 0, 0},
}

var skewModel = Model{
	C00: [3]float64{0.3, -0.2, 0.8},
	C01: [2]float64{0.4, -0.1},
	C11: [3]float64{-0.5, 0.6, 0.2},
}

func TestEnergies(t *testing.T) {
	got := testModel.Energies([]float64{1, 1})
	want := []float64{0.5, 1.5}
	if !floats.EqualApprox(got, want, 1e-14) {
		t.Errorf("got %v, wanted %v\n", got, want)
	}
	b, err := hderiva.AdiabaticBasis(testModel.Hd([]float64{1, 1}))
	require.NoError(t, err)
	if !floats.EqualApprox(b.Values, want, 1e-14) {
		t.Errorf("got %v, wanted %v\n", b.Values, want)
	}
}

func TestAnalyticalDqEnergies(t *testing.T) {
	m := skewModel
	q := []float64{0.7, 1.3}
	jac := mat.NewDense(NStates, NCoords, nil)
	fd.Jacobian(jac, func(y, x []float64) {
		copy(y, m.Energies(x))
	}, q, &fd.JacobianSettings{Formula: fd.Central, Step: DefaultStep})
	got := m.AnalyticalDqEnergies(q)
	for s := range got {
		if want := mat.Row(nil, s, jac); !floats.EqualApprox(got[s], want, 1e-8) {
			t.Errorf("state %d: got %v, wanted %v\n", s, got[s], want)
		}
	}
}

// the closed-form derivatives agree with the diabatic chain run on the
// autodiff form of the model
func TestAnalyticalMatchesChain(t *testing.T) {
	m := skewModel
	require.Equal(t, m, FromFlat(m.Flat()))
	qv := []float64{-0.4, 0.9}
	c := autodiff.Leaves(m.Flat())
	q := autodiff.Leaves(qv)
	Hd := Vars(c, q)
	ls := symat.NewMatrix[[]*autodiff.Var](NStates)
	ls.Each(func(i, j int, _ []*autodiff.Var) {
		ls.Set(i, j, q)
	})

	hd := symat.NewTensor(NStates)
	Hd.Each(func(i, j int, h *autodiff.Var) {
		hd.Set(i, j, 0, h.Value())
	})
	dq, err := hderiva.DxHd(Hd, ls, nil)
	require.NoError(t, err)
	dc, err := hderiva.DcHd(Hd, Groups(c))
	require.NoError(t, err)
	graph, err := hderiva.DxHdGraph(Hd, ls, nil)
	require.NoError(t, err)
	dcdq, err := hderiva.DcDxHd(graph, Groups(c))
	require.NoError(t, err)

	tests := []struct {
		name      string
		got, want *symat.Tensor
	}{
		{"Hd", hd, m.Hd(qv)},
		{"DqHd", dq, m.DqHd(qv)},
		{"DcHd", dc, m.DcHd(qv)},
		{"DcDqHd", dcdq, m.DcDqHd(qv)},
	}
	for _, test := range tests {
		require.Equal(t, test.want.Shape(), test.got.Shape(), test.name)
		if d := symat.Distance(test.got, test.want); d > 1e-12 {
			t.Errorf("%s: got\n%v, wanted\n%v\n", test.name, test.got, test.want)
		}
	}
}

func TestNumerical(t *testing.T) {
	q := []float64{1, 1}
	dc, err := testModel.NumericalDcHa(q, DefaultStep)
	require.NoError(t, err)
	require.Equal(t, []int{NParams}, dc.Shape())
	// the lower state of [[1, 0.5], [0.5, 1]] is (1, -1)/√2
	want := []float64{0.5, 0.5, 0.5, -1, -1, 0.5, 0.5, 0.5}
	if got := dc.Block(0, 0); !floats.EqualApprox(got, want, 1e-8) {
		t.Errorf("got %v, wanted %v\n", got, want)
	}
	dcdq, err := testModel.NumericalDcDqHc(q, DefaultStep)
	require.NoError(t, err)
	require.Equal(t, []int{NCoords, NParams}, dcdq.Shape())
}
