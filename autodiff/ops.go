package autodiff

import "math"

func Add(a, b *Var) *Var { return binary(opAdd, a, b, a.val+b.val) }

func Sub(a, b *Var) *Var { return binary(opSub, a, b, a.val-b.val) }

func Mul(a, b *Var) *Var { return binary(opMul, a, b, a.val*b.val) }

func Neg(a *Var) *Var { return unary(opNeg, a, 0, -a.val) }

// Scale returns c*a
func Scale(a *Var, c float64) *Var { return unary(opScale, a, c, c*a.val) }

// Shift returns a+c
func Shift(a *Var, c float64) *Var { return unary(opShift, a, c, a.val+c) }

func Tanh(a *Var) *Var { return unary(opTanh, a, 0, math.Tanh(a.val)) }

func Exp(a *Var) *Var { return unary(opExp, a, 0, math.Exp(a.val)) }

// Sum adds xs, returning a zero constant for no arguments
func Sum(xs ...*Var) *Var {
	if len(xs) == 0 {
		return Const(0)
	}
	ret := xs[0]
	for _, x := range xs[1:] {
		ret = Add(ret, x)
	}
	return ret
}

// Dot returns Σ a_i b_i
func Dot(a, b []*Var) *Var {
	if len(a) != len(b) {
		panic("autodiff: dot of unequal lengths")
	}
	terms := make([]*Var, len(a))
	for i := range a {
		terms[i] = Mul(a[i], b[i])
	}
	return Sum(terms...)
}

// DotConst returns Σ c_i x_i
func DotConst(c []float64, x []*Var) *Var {
	if len(c) != len(x) {
		panic("autodiff: dot of unequal lengths")
	}
	terms := make([]*Var, len(x))
	for i := range x {
		terms[i] = Scale(x[i], c[i])
	}
	return Sum(terms...)
}
