// Package autodiff implements reverse mode automatic differentiation on
// scalar nodes. Every arithmetic operation on a *Var records its
// operands, so the value of an expression carries the graph needed to
// differentiate it. Gradients can themselves be returned as graphs,
// which makes Grad nestable to any order.
//
// A Var is immutable once built, except for SetValue on leaves, and
// gradients are returned rather than accumulated into the leaves, so
// two goroutines may differentiate disjoint graphs concurrently. Leaves
// shared between goroutines must not be modified while either graph is
// in use.
package autodiff

import "fmt"

type op int

const (
	opLeaf op = iota
	opConst
	opAdd
	opSub
	opMul
	opNeg
	opScale
	opShift
	opTanh
	opExp
)

// Var is a scalar node in an expression graph
type Var struct {
	val  float64
	grad bool
	op   op
	a, b *Var
	// coefficient for opScale and opShift
	c float64
}

// New returns a leaf that requires gradient
func New(v float64) *Var {
	return &Var{val: v, grad: true, op: opLeaf}
}

// Const returns a node that never requires gradient
func Const(v float64) *Var {
	return &Var{val: v, op: opConst}
}

// Leaves returns a leaf for every value in vs
func Leaves(vs []float64) []*Var {
	ret := make([]*Var, len(vs))
	for i, v := range vs {
		ret[i] = New(v)
	}
	return ret
}

// Values returns the values of vs
func Values(vs []*Var) []float64 {
	ret := make([]float64, len(vs))
	for i, v := range vs {
		ret[i] = v.val
	}
	return ret
}

func (v *Var) Value() float64 { return v.val }

// RequiresGrad reports whether v depends on any leaf requiring
// gradient
func (v *Var) RequiresGrad() bool { return v.grad }

// IsLeaf reports whether v was made by New
func (v *Var) IsLeaf() bool { return v.op == opLeaf }

// SetValue overwrites the value of a leaf. Nodes already built from v
// keep their old values, so the forward pass has to be repeated
func (v *Var) SetValue(x float64) {
	if !v.IsLeaf() {
		panic("autodiff: setting the value of an interior node")
	}
	v.val = x
}

// SetRequiresGrad turns gradient tracking of a leaf on or off. It only
// affects nodes built afterwards
func (v *Var) SetRequiresGrad(b bool) {
	if !v.IsLeaf() {
		panic("autodiff: toggling gradient of an interior node")
	}
	v.grad = b
}

func (v *Var) String() string {
	if v.grad {
		return fmt.Sprintf("%g (grad)", v.val)
	}
	return fmt.Sprintf("%g", v.val)
}

func unary(o op, a *Var, c, val float64) *Var {
	if !a.grad {
		return Const(val)
	}
	return &Var{val: val, grad: true, op: o, a: a, c: c}
}

func binary(o op, a, b *Var, val float64) *Var {
	if !a.grad && !b.grad {
		return Const(val)
	}
	return &Var{val: val, grad: true, op: o, a: a, b: b}
}
