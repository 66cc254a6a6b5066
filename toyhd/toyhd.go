// Package toyhd is a two-state diabatic model with closed-form
// derivatives, used to validate the derivative engine:
//
//	Hd00 = c00[0] q0² + c00[1] q0 q1 + c00[2] q1²
//	Hd01 = c01[0] q0 + c01[1] q1
//	Hd11 = c11[0] q0² + c11[1] q0 q1 + c11[2] q1²
package toyhd

import (
	"math"

	"bwestbro.com/hdfit/autodiff"
	"bwestbro.com/hdfit/hderiva"
	"bwestbro.com/hdfit/symat"
)

const (
	NStates = 2
	NCoords = 2
	NParams = 8
)

type Model struct {
	C00 [3]float64
	C01 [2]float64
	C11 [3]float64
}

// FromFlat unpacks c in the order c00, c01, c11
func FromFlat(c []float64) Model {
	if len(c) != NParams {
		panic("toyhd: wrong number of parameters")
	}
	var m Model
	copy(m.C00[:], c[0:3])
	copy(m.C01[:], c[3:5])
	copy(m.C11[:], c[5:8])
	return m
}

func (m Model) Flat() []float64 {
	ret := make([]float64, 0, NParams)
	ret = append(ret, m.C00[:]...)
	ret = append(ret, m.C01[:]...)
	return append(ret, m.C11[:]...)
}

func quadratic(c [3]float64, q []float64) float64 {
	return c[0]*q[0]*q[0] + c[1]*q[0]*q[1] + c[2]*q[1]*q[1]
}

func (m Model) Hd(q []float64) *symat.Tensor {
	ret := symat.NewTensor(NStates)
	ret.Set(0, 0, 0, quadratic(m.C00, q))
	ret.Set(0, 1, 0, m.C01[0]*q[0]+m.C01[1]*q[1])
	ret.Set(1, 1, 0, quadratic(m.C11, q))
	return ret
}

func dquadratic(c [3]float64, q []float64) []float64 {
	return []float64{
		2*c[0]*q[0] + c[1]*q[1],
		2*c[2]*q[1] + c[1]*q[0],
	}
}

// DqHd is the analytical coordinate derivative, trailing shape [2]
func (m Model) DqHd(q []float64) *symat.Tensor {
	ret := symat.NewTensor(NStates, NCoords)
	copy(ret.Block(0, 0), dquadratic(m.C00, q))
	copy(ret.Block(0, 1), m.C01[:])
	copy(ret.Block(1, 1), dquadratic(m.C11, q))
	return ret
}

// DcHd is the analytical parameter derivative, trailing shape [8]
func (m Model) DcHd(q []float64) *symat.Tensor {
	ret := symat.NewTensor(NStates, NParams)
	mono := []float64{q[0] * q[0], q[0] * q[1], q[1] * q[1]}
	copy(ret.Block(0, 0)[0:3], mono)
	copy(ret.Block(0, 1)[3:5], q)
	copy(ret.Block(1, 1)[5:8], mono)
	return ret
}

// DcDqHd is the analytical mixed derivative, trailing shape [2, 8]
func (m Model) DcDqHd(q []float64) *symat.Tensor {
	ret := symat.NewTensor(NStates, NCoords, NParams)
	quad := func(blk []float64, off int) {
		blk[0*NParams+off+0] = 2 * q[0]
		blk[0*NParams+off+1] = q[1]
		blk[1*NParams+off+1] = q[0]
		blk[1*NParams+off+2] = 2 * q[1]
	}
	quad(ret.Block(0, 0), 0)
	off := ret.Block(0, 1)
	off[0*NParams+3] = 1
	off[1*NParams+4] = 1
	quad(ret.Block(1, 1), 5)
	return ret
}

// Groups splits flat parameter leaves into c00, c01 and c11
func Groups(c []*autodiff.Var) [][]*autodiff.Var {
	return [][]*autodiff.Var{c[0:3], c[3:5], c[5:8]}
}

// Vars builds Hd on autodiff nodes, so that every derivative can also
// be taken by the diabatic chain
func Vars(c, q []*autodiff.Var) *hderiva.Vars {
	quad := func(c []*autodiff.Var) *autodiff.Var {
		return autodiff.Sum(
			autodiff.Mul(c[0], autodiff.Mul(q[0], q[0])),
			autodiff.Mul(c[1], autodiff.Mul(q[0], q[1])),
			autodiff.Mul(c[2], autodiff.Mul(q[1], q[1])),
		)
	}
	ret := symat.NewMatrix[*autodiff.Var](NStates)
	ret.Set(0, 0, quad(c[0:3]))
	ret.Set(0, 1, autodiff.Add(
		autodiff.Mul(c[3], q[0]),
		autodiff.Mul(c[4], q[1]),
	))
	ret.Set(1, 1, quad(c[5:8]))
	return ret
}

// Energies returns the adiabatic energies in ascending order
func (m Model) Energies(q []float64) []float64 {
	h := m.Hd(q)
	a, b, d := h.At(0, 0, 0), h.At(0, 1, 0), h.At(1, 1, 0)
	mid := (a + d) / 2
	r := math.Hypot((a-d)/2, b)
	return []float64{mid - r, mid + r}
}

// AnalyticalDqEnergies differentiates the closed-form two-state
// eigenvalues, one row per state
func (m Model) AnalyticalDqEnergies(q []float64) [][]float64 {
	h, dh := m.Hd(q), m.DqHd(q)
	a, b, d := h.At(0, 0, 0), h.At(0, 1, 0), h.At(1, 1, 0)
	half := (a - d) / 2
	r := math.Hypot(half, b)
	ret := [][]float64{make([]float64, NCoords), make([]float64, NCoords)}
	for x := 0; x < NCoords; x++ {
		da, db, dd := dh.At(0, 0, x), dh.At(0, 1, x), dh.At(1, 1, x)
		mean := (da + dd) / 2
		dr := (half*(da-dd)/2 + b*db) / r
		ret[0][x] = mean - dr
		ret[1][x] = mean + dr
	}
	return ret
}
