package toyhd

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"bwestbro.com/hdfit/hderiva"
	"bwestbro.com/hdfit/symat"
)

// DefaultStep is the central difference step for the numerical
// references
const DefaultStep = 1e-5

// numerical differentiates f against the parameters by central
// differences. Every evaluation is phase fixed against f(c) so that
// eigenvector sign flips do not leak into the difference.
func numerical(f func(c []float64) (*symat.Tensor, error), c []float64,
	step float64) (*symat.Tensor, error) {
	ref, err := f(c)
	if err != nil {
		return nil, err
	}
	ph := hderiva.NewPhaser(ref.N())
	rows := len(ref.RawData())
	jac := mat.NewDense(rows, len(c), nil)
	var ferr error
	fd.Jacobian(jac, func(y, x []float64) {
		t, err := f(x)
		if err == nil {
			_, err = ph.FixOb(t, ref)
		}
		if err != nil {
			if ferr == nil {
				ferr = err
			}
			return
		}
		copy(y, t.RawData())
	}, c, &fd.JacobianSettings{
		Formula: fd.Central,
		Step:    step,
	})
	if ferr != nil {
		return nil, ferr
	}
	// element e, trailing offset k and parameter p live at row
	// e*len(block)+k, column p, which is the packed layout of the
	// result
	ret := symat.NewTensor(ref.N(), append(ref.Shape(), len(c))...)
	copy(ret.RawData(), jac.RawMatrix().Data)
	return ret, nil
}

// Ha is diag(E)
func (m Model) Ha(q []float64) *symat.Tensor {
	return symat.Diagonal(m.Energies(q))
}

// DqHa is Uᵗ·DqHd·U in the adiabatic basis
func (m Model) DqHa(q []float64) (*symat.Tensor, error) {
	b, err := hderiva.AdiabaticBasis(m.Hd(q))
	if err != nil {
		return nil, err
	}
	return b.Represent(m.DqHd(q))
}

// CompositeBasis diagonalizes DqHd·DqHd
func (m Model) CompositeBasis(q []float64) (*hderiva.Basis, error) {
	return hderiva.CompositeBasis(m.DqHd(q), nil)
}

// Hc is Uᵗ·Hd·U in the composite basis
func (m Model) Hc(q []float64) (*symat.Tensor, error) {
	b, err := m.CompositeBasis(q)
	if err != nil {
		return nil, err
	}
	return b.Represent(m.Hd(q))
}

// DqHc is Uᵗ·DqHd·U in the composite basis
func (m Model) DqHc(q []float64) (*symat.Tensor, error) {
	b, err := m.CompositeBasis(q)
	if err != nil {
		return nil, err
	}
	return b.Represent(m.DqHd(q))
}

func (m Model) NumericalDcHa(q []float64, step float64) (*symat.Tensor, error) {
	return numerical(func(c []float64) (*symat.Tensor, error) {
		return FromFlat(c).Ha(q), nil
	}, m.Flat(), step)
}

func (m Model) NumericalDcDqHa(q []float64, step float64) (*symat.Tensor, error) {
	return numerical(func(c []float64) (*symat.Tensor, error) {
		return FromFlat(c).DqHa(q)
	}, m.Flat(), step)
}

func (m Model) NumericalDcHc(q []float64, step float64) (*symat.Tensor, error) {
	return numerical(func(c []float64) (*symat.Tensor, error) {
		return FromFlat(c).Hc(q)
	}, m.Flat(), step)
}

func (m Model) NumericalDcDqHc(q []float64, step float64) (*symat.Tensor, error) {
	return numerical(func(c []float64) (*symat.Tensor, error) {
		return FromFlat(c).DqHc(q)
	}, m.Flat(), step)
}
