package main

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"bwestbro.com/hdfit/autodiff"
	"bwestbro.com/hdfit/hderiva"
	"bwestbro.com/hdfit/symat"
	"bwestbro.com/hdfit/toyhd"
)

var ErrCheck = errors.New("derivatives disagree with their references")

// CheckRow compares one derivative from the engine to its reference
type CheckRow struct {
	Name string
	// Ref names the kind of reference
	Ref  string
	Norm float64
	Diff float64
	RMSD float64
	Max  float64
}

func compare(name, ref string, got, want *symat.Tensor) (CheckRow, error) {
	if !got.SameShape(want) {
		return CheckRow{}, errors.Wrapf(hderiva.ErrShape,
			"%s has shape %v, reference has %v", name, got.Shape(), want.Shape())
	}
	diff, max := Norm(got, want)
	return CheckRow{
		Name: name,
		Ref:  ref,
		Norm: symat.Norm(got),
		Diff: diff,
		RMSD: RMSD(got, want),
		Max:  max,
	}, nil
}

// diabatic runs the diabatic chain on the autodiff form of m
func diabatic(m toyhd.Model, qv []float64) (dq, dc, dcdq *symat.Tensor, err error) {
	c := autodiff.Leaves(m.Flat())
	q := autodiff.Leaves(qv)
	Hd := toyhd.Vars(c, q)
	ls := symat.NewMatrix[[]*autodiff.Var](toyhd.NStates)
	ls.Each(func(i, j int, _ []*autodiff.Var) {
		ls.Set(i, j, q)
	})
	if dq, err = hderiva.DxHd(Hd, ls, nil); err != nil {
		return
	}
	if dc, err = hderiva.DcHd(Hd, toyhd.Groups(c)); err != nil {
		return
	}
	graph, err := hderiva.DxHdGraph(Hd, ls, nil)
	if err != nil {
		return
	}
	dcdq, err = hderiva.DcDxHd(graph, toyhd.Groups(c))
	return
}

// RunCheck validates every engine operation on the toy model against
// the closed-form derivatives and central differences
func RunCheck(conf Config) ([]CheckRow, error) {
	m, q := conf.Toy, conf.Q
	eng := &hderiva.Engine{Eps: conf.Eps}
	dq, dc, dcdq, err := diabatic(m, q)
	if err != nil {
		return nil, errors.Wrap(err, "diabatic chain")
	}
	var (
		ret  []CheckRow
		cerr error
	)
	add := func(name, ref string, got, want *symat.Tensor) {
		if cerr != nil {
			return
		}
		row, err := compare(name, ref, got, want)
		if err != nil {
			cerr = err
			return
		}
		ret = append(ret, row)
	}
	add("DqHd", "analytical", dq, m.DqHd(q))
	add("DcHd", "analytical", dc, m.DcHd(q))
	add("DcDqHd", "analytical", dcdq, m.DcDqHd(q))

	// adiabatic
	ab, err := hderiva.AdiabaticBasis(m.Hd(q))
	if err != nil {
		return nil, err
	}
	dqha, err := eng.DqHa(ab, dq)
	if err != nil {
		return nil, errors.Wrap(err, "DqHa")
	}
	grads, err := hderiva.EnergyGradients(ab, dq)
	if err != nil {
		return nil, err
	}
	egrad := symat.NewTensor(toyhd.NStates, toyhd.NCoords)
	want := symat.NewTensor(toyhd.NStates, toyhd.NCoords)
	for s, g := range m.AnalyticalDqEnergies(q) {
		copy(egrad.Block(s, s), grads[s])
		copy(want.Block(s, s), g)
	}
	add("dE/dq", "analytical", egrad, want)
	bare, err := m.DqHa(q)
	if err != nil {
		return nil, err
	}
	// the commutator cancels the off-diagonal of the bare transform
	add("DqHa", "diagonal", dqha, diagonal(bare))
	dcha, err := eng.DcHa(ab, dc)
	if err != nil {
		return nil, errors.Wrap(err, "DcHa")
	}
	dcdqha, err := eng.DcDxHa(ab, dqha, dc, dcdq)
	if err != nil {
		return nil, errors.Wrap(err, "DcDqHa")
	}

	// composite
	cb, err := m.CompositeBasis(q)
	if err != nil {
		return nil, err
	}
	hc, err := cb.Represent(m.Hd(q))
	if err != nil {
		return nil, err
	}
	dqhc, err := cb.Represent(dq)
	if err != nil {
		return nil, err
	}
	dchc, dcdqhc, err := eng.DcHcDcDxHc(cb, hc, dqhc, dq, dc, dcdq)
	if err != nil {
		return nil, errors.Wrap(err, "composite derivatives")
	}

	numerical := []struct {
		name string
		got  *symat.Tensor
		ref  func(q []float64, step float64) (*symat.Tensor, error)
	}{
		{"DcHa", dcha, m.NumericalDcHa},
		{"DcDqHa", dcdqha, m.NumericalDcDqHa},
		{"DcHc", dchc, m.NumericalDcHc},
		{"DcDqHc", dcdqhc, m.NumericalDcDqHc},
	}
	for _, n := range numerical {
		want, err := n.ref(q, conf.Step)
		if err != nil {
			return nil, errors.Wrapf(err, "numerical %s", n.name)
		}
		add(n.name, "numerical", n.got, want)
	}
	return ret, cerr
}

// diagonal keeps only the diagonal blocks of t
func diagonal(t *symat.Tensor) *symat.Tensor {
	ret := symat.NewTensor(t.N(), t.Shape()...)
	for i := 0; i < t.N(); i++ {
		copy(ret.Block(i, i), t.Block(i, i))
	}
	return ret
}

// WriteCheck prints the comparison table and reports whether every
// difference is within thresh
func WriteCheck(w io.Writer, rows []CheckRow, thresh float64) error {
	fmt.Fprintf(w, "%-10s%12s%16s%16s%16s%16s\n",
		"Quantity", "Reference", "Norm", "Difference", "RMSD", "Max")
	var bad []string
	for _, r := range rows {
		fmt.Fprintf(w, "%-10s%12s%16.8e%16.8e%16.8e%16.8e\n",
			r.Name, r.Ref, r.Norm, r.Diff, r.RMSD, r.Max)
		if r.Max > thresh {
			bad = append(bad, r.Name)
		}
	}
	if len(bad) > 0 {
		return errors.Wrapf(ErrCheck, "%v", bad)
	}
	return nil
}
