package hderiva

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"

	"bwestbro.com/hdfit/symat"
)

// Representation names the operator whose eigenvectors span a basis
type Representation int

const (
	// Adiabatic is the eigenbasis of Hd itself
	Adiabatic Representation = iota
	// Composite is the eigenbasis of the overlap DxHd·DxHd, which
	// stays well defined where adiabatic states cross
	Composite
)

func (r Representation) String() string {
	switch r {
	case Adiabatic:
		return "adiabatic"
	case Composite:
		return "composite"
	}
	return "unknown"
}

// Basis is an eigendecomposition with ascending Values. Column i of
// Vectors is eigenvector i
type Basis struct {
	Rep     Representation
	Values  []float64
	Vectors *mat.Dense
}

func (b *Basis) N() int { return len(b.Values) }

// Diagonalize returns the eigenbasis of the bare symmetric matrix op
func Diagonalize(op *symat.Tensor, rep Representation) (*Basis, error) {
	if err := checkRank("operator", op, 2); err != nil {
		return nil, err
	}
	n := op.N()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, op.At(i, j, 0))
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, errors.Wrapf(ErrEigen, "%v operator", rep)
	}
	vals := eig.Values(nil)
	if !slices.IsSorted(vals) {
		return nil, errors.Wrapf(ErrEigen, "unordered eigenvalues %v", vals)
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	return &Basis{Rep: rep, Values: vals, Vectors: &vecs}, nil
}

// AdiabaticBasis diagonalizes Hd
func AdiabaticBasis(Hd *symat.Tensor) (*Basis, error) {
	return Diagonalize(Hd, Adiabatic)
}

// CompositeBasis diagonalizes the overlap of DxHd
func CompositeBasis(DxHd *symat.Tensor, metric mat.Symmetric) (*Basis, error) {
	o, err := Overlap(DxHd, metric)
	if err != nil {
		return nil, err
	}
	return Diagonalize(o, Composite)
}

// Represent returns the basis representation of a diabatic quantity
// of any order, e.g. Hc from Hd or DxHa from DxHd
func (b *Basis) Represent(A *symat.Tensor) (*symat.Tensor, error) {
	return Transform(A, b.Vectors)
}
