package hderiva

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"bwestbro.com/hdfit/symat"
)

// DefaultEps is the smallest eigenvalue gap the Engine divides by
// when Eps is zero
const DefaultEps = 1e-8

// Engine turns diabatic derivatives into derivatives in the adiabatic
// or composite representation. Every result is a transformed diabatic
// derivative plus the commutator correcting for the rotation of the
// basis itself.
//
// Tensor arguments are never modified, and every result is a fresh
// allocation. On error the results are nil.
type Engine struct {
	// Eps is the degeneracy threshold for eigenvalue gaps
	Eps float64
	// Metric is an optional coordinate metric for the composite
	// overlap. nil means the identity
	Metric mat.Symmetric
}

func (e *Engine) eps() float64 {
	if e.Eps > 0 {
		return e.Eps
	}
	return DefaultEps
}

func checkBasis(b *Basis, rep Representation) error {
	if b == nil || b.Vectors == nil {
		return errors.Wrap(ErrInvalidArgument, "nil basis")
	}
	if b.Rep != rep {
		return errors.Wrapf(ErrInvalidArgument,
			"%v operation on a %v basis", rep, b.Rep)
	}
	return nil
}

func trailingMatches(DcDxHd *symat.Tensor, d, p int) error {
	shape := DcDxHd.Shape()
	if shape[0] != d || shape[1] != p {
		return errors.Wrapf(ErrShape,
			"DcDxHd has trailing shape %v, wanted [%d %d]", shape, d, p)
	}
	return nil
}

// DHa returns the derivative of the adiabatic Hamiltonian diag(E)
// along the variables of DHd:
//
//	DHa = Uᵗ·DHd·U + [diag(E), M(DHd)]
//
// DHd may be a coordinate or a parameter derivative.
func (e *Engine) DHa(b *Basis, DHd *symat.Tensor) (*symat.Tensor, error) {
	if err := checkBasis(b, Adiabatic); err != nil {
		return nil, err
	}
	if err := checkRank("DHd", DHd, 3); err != nil {
		return nil, err
	}
	M, err := e.Generator(DHd, b)
	if err != nil {
		return nil, err
	}
	T, err := b.Represent(DHd)
	if err != nil {
		return nil, err
	}
	C, err := Commutator(symat.Diagonal(b.Values), M)
	if err != nil {
		return nil, err
	}
	return T.Add(C), nil
}

func (e *Engine) DcHa(b *Basis, DcHd *symat.Tensor) (*symat.Tensor, error) {
	return e.DHa(b, DcHd)
}

func (e *Engine) DqHa(b *Basis, DqHd *symat.Tensor) (*symat.Tensor, error) {
	return e.DHa(b, DqHd)
}

// DcDxHa returns the parameter derivative of DxHa = Uᵗ·DxHd·U:
//
//	DcDxHa = Uᵗ·DcDxHd·U + [DxHa, M(DcHd)]
func (e *Engine) DcDxHa(b *Basis, DxHa, DcHd, DcDxHd *symat.Tensor) (*symat.Tensor, error) {
	if err := checkBasis(b, Adiabatic); err != nil {
		return nil, err
	}
	if err := checkRank("DxHa", DxHa, 3); err != nil {
		return nil, err
	}
	if err := checkRank("DcHd", DcHd, 3); err != nil {
		return nil, err
	}
	if err := checkRank("DcDxHd", DcDxHd, 4); err != nil {
		return nil, err
	}
	if err := checkStates(b.N(), map[string]*symat.Tensor{
		"DxHa": DxHa, "DcHd": DcHd, "DcDxHd": DcDxHd,
	}); err != nil {
		return nil, err
	}
	if err := trailingMatches(DcDxHd, DxHa.BlockLen(), DcHd.BlockLen()); err != nil {
		return nil, err
	}
	M, err := e.Generator(DcHd, b)
	if err != nil {
		return nil, err
	}
	return correct(b, DcDxHd, DxHa, M)
}

// correct returns Uᵗ·D·U + [A, M]
func correct(b *Basis, D, A *symat.Tensor, M *symat.Antisym) (*symat.Tensor, error) {
	T, err := b.Represent(D)
	if err != nil {
		return nil, err
	}
	C, err := Commutator(A, M)
	if err != nil {
		return nil, err
	}
	return T.Add(C), nil
}

func (e *Engine) compositeGenerator(b *Basis, DxHd, DcDxHd *symat.Tensor) (*symat.Antisym, error) {
	DcO, err := OverlapDerivative(DcDxHd, DxHd, e.Metric)
	if err != nil {
		return nil, err
	}
	return e.Generator(DcO, b)
}

func (e *Engine) checkComposite(b *Basis, ranks map[string]*symat.Tensor) error {
	if err := checkBasis(b, Composite); err != nil {
		return err
	}
	want := map[string]int{
		"Hc": 2, "DxHc": 3, "DxHd": 3, "DcHd": 3, "DcDxHd": 4,
	}
	for name, t := range ranks {
		if err := checkRank(name, t, want[name]); err != nil {
			return err
		}
	}
	if err := checkStates(b.N(), ranks); err != nil {
		return err
	}
	d := ranks["DxHd"].BlockLen()
	if dx, ok := ranks["DxHc"]; ok && dx.BlockLen() != d {
		return errors.Wrapf(ErrShape,
			"DxHc has %d coordinates, DxHd has %d", dx.BlockLen(), d)
	}
	p := ranks["DcDxHd"].Shape()[1]
	if dc, ok := ranks["DcHd"]; ok && dc.BlockLen() != p {
		return errors.Wrapf(ErrShape,
			"DcHd has %d parameters, DcDxHd has %d", dc.BlockLen(), p)
	}
	return trailingMatches(ranks["DcDxHd"], d, p)
}

// DcHc returns the parameter derivative of the composite Hamiltonian
// Hc = Uᵗ·Hd·U, where U diagonalizes the overlap O:
//
//	DcHc = Uᵗ·DcHd·U + [Hc, M(DcO)]
func (e *Engine) DcHc(b *Basis, Hc, DxHd, DcHd, DcDxHd *symat.Tensor) (*symat.Tensor, error) {
	if err := e.checkComposite(b, map[string]*symat.Tensor{
		"Hc": Hc, "DxHd": DxHd, "DcHd": DcHd, "DcDxHd": DcDxHd,
	}); err != nil {
		return nil, err
	}
	M, err := e.compositeGenerator(b, DxHd, DcDxHd)
	if err != nil {
		return nil, err
	}
	return correct(b, DcHd, Hc, M)
}

// DcDxHc returns the parameter derivative of DxHc = Uᵗ·DxHd·U:
//
//	DcDxHc = Uᵗ·DcDxHd·U + [DxHc, M(DcO)]
func (e *Engine) DcDxHc(b *Basis, DxHc, DxHd, DcDxHd *symat.Tensor) (*symat.Tensor, error) {
	if err := e.checkComposite(b, map[string]*symat.Tensor{
		"DxHc": DxHc, "DxHd": DxHd, "DcDxHd": DcDxHd,
	}); err != nil {
		return nil, err
	}
	M, err := e.compositeGenerator(b, DxHd, DcDxHd)
	if err != nil {
		return nil, err
	}
	return correct(b, DcDxHd, DxHc, M)
}

// DcHcDcDxHc computes DcHc and DcDxHc sharing one generator
func (e *Engine) DcHcDcDxHc(b *Basis, Hc, DxHc, DxHd, DcHd, DcDxHd *symat.Tensor) (
	dcHc, dcDxHc *symat.Tensor, err error) {
	if err = e.checkComposite(b, map[string]*symat.Tensor{
		"Hc": Hc, "DxHc": DxHc, "DxHd": DxHd, "DcHd": DcHd, "DcDxHd": DcDxHd,
	}); err != nil {
		return nil, nil, err
	}
	M, err := e.compositeGenerator(b, DxHd, DcDxHd)
	if err != nil {
		return nil, nil, err
	}
	dcHc, err = correct(b, DcHd, Hc, M)
	if err != nil {
		return nil, nil, err
	}
	dcDxHc, err = correct(b, DcDxHd, DxHc, M)
	if err != nil {
		return nil, nil, err
	}
	return dcHc, dcDxHc, nil
}

// EnergyGradients returns dE_i along the variables of DHd by the
// Hellmann-Feynman theorem, the diagonal of Uᵗ·DHd·U, with one row per
// state
func EnergyGradients(b *Basis, DHd *symat.Tensor) ([][]float64, error) {
	if err := checkBasis(b, Adiabatic); err != nil {
		return nil, err
	}
	if err := checkRank("DHd", DHd, 3); err != nil {
		return nil, err
	}
	T, err := b.Represent(DHd)
	if err != nil {
		return nil, err
	}
	ret := make([][]float64, b.N())
	for i := range ret {
		ret[i] = append([]float64(nil), T.Block(i, i)...)
	}
	return ret, nil
}
