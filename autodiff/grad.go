package autodiff

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrNotTracked is returned when differentiating with respect to a Var
// that does not require gradient
var ErrNotTracked = errors.New("autodiff: variable does not require gradient")

// topo returns the nodes reachable from y that require gradient, with
// every node after all of its consumers
func topo(y *Var) []*Var {
	type frame struct {
		v    *Var
		done bool
	}
	seen := make(map[*Var]bool)
	var post []*Var
	stack := []frame{{v: y}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.done {
			post = append(post, f.v)
			continue
		}
		if seen[f.v] {
			continue
		}
		seen[f.v] = true
		stack = append(stack, frame{v: f.v, done: true})
		for _, c := range []*Var{f.v.a, f.v.b} {
			if c != nil && c.grad && !seen[c] {
				stack = append(stack, frame{v: c})
			}
		}
	}
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

func check(xs []*Var) error {
	for _, x := range xs {
		if x == nil || !x.grad {
			return ErrNotTracked
		}
	}
	return nil
}

// Grad returns ∂y/∂x for every x in xs. Entries are nil for the xs
// that y does not depend on, and all of them are nil when y has no
// graph. With createGraph the gradients are themselves differentiable
// graphs; otherwise they are constants.
func Grad(y *Var, xs []*Var, createGraph bool) ([]*Var, error) {
	if err := check(xs); err != nil {
		return nil, err
	}
	ret := make([]*Var, len(xs))
	if y == nil || !y.grad {
		return ret, nil
	}
	if !createGraph {
		adj := backward(y)
		for i, x := range xs {
			if g, ok := adj[x]; ok {
				ret[i] = Const(g)
			}
		}
		return ret, nil
	}
	adj := backwardGraph(y)
	for i, x := range xs {
		ret[i] = adj[x]
	}
	return ret, nil
}

// GradValues is Grad without a graph, with zeros in place of nil
func GradValues(y *Var, xs []*Var) ([]float64, error) {
	gs, err := Grad(y, xs, false)
	if err != nil {
		return nil, err
	}
	return Flatten(gs), nil
}

// Flatten returns the values of gs with zero for nil entries
func Flatten(gs []*Var) []float64 {
	ret := make([]float64, len(gs))
	for i, g := range gs {
		if g != nil {
			ret[i] = g.val
		}
	}
	return ret
}

func backward(y *Var) map[*Var]float64 {
	adj := map[*Var]float64{y: 1}
	for _, n := range topo(y) {
		g, ok := adj[n]
		if !ok {
			continue
		}
		a, b := n.a, n.b
		switch n.op {
		case opAdd:
			accum(adj, a, g)
			accum(adj, b, g)
		case opSub:
			accum(adj, a, g)
			accum(adj, b, -g)
		case opMul:
			accum(adj, a, g*b.val)
			accum(adj, b, g*a.val)
		case opNeg:
			accum(adj, a, -g)
		case opScale:
			accum(adj, a, g*n.c)
		case opShift:
			accum(adj, a, g)
		case opTanh:
			accum(adj, a, g*(1-n.val*n.val))
		case opExp:
			accum(adj, a, g*n.val)
		}
	}
	return adj
}

func accum(adj map[*Var]float64, v *Var, g float64) {
	if v.grad {
		adj[v] += g
	}
}

func backwardGraph(y *Var) map[*Var]*Var {
	adj := map[*Var]*Var{y: Const(1)}
	for _, n := range topo(y) {
		g, ok := adj[n]
		if !ok {
			continue
		}
		a, b := n.a, n.b
		switch n.op {
		case opAdd:
			accumGraph(adj, a, g)
			accumGraph(adj, b, g)
		case opSub:
			accumGraph(adj, a, g)
			accumGraph(adj, b, Neg(g))
		case opMul:
			accumGraph(adj, a, Mul(g, b))
			accumGraph(adj, b, Mul(g, a))
		case opNeg:
			accumGraph(adj, a, Neg(g))
		case opScale:
			accumGraph(adj, a, Scale(g, n.c))
		case opShift:
			accumGraph(adj, a, g)
		case opTanh:
			// 1 - tanh²
			accumGraph(adj, a, Mul(g, Shift(Neg(Mul(n, n)), 1)))
		case opExp:
			accumGraph(adj, a, Mul(g, n))
		}
	}
	return adj
}

func accumGraph(adj map[*Var]*Var, v *Var, g *Var) {
	if !v.grad {
		return
	}
	if old, ok := adj[v]; ok {
		adj[v] = Add(old, g)
		return
	}
	adj[v] = g
}

// Jacobian returns the len(ys) x len(xs) matrix ∂y_i/∂x_j
func Jacobian(ys, xs []*Var) (*mat.Dense, error) {
	ret := mat.NewDense(len(ys), len(xs), nil)
	for i, y := range ys {
		row, err := GradValues(y, xs)
		if err != nil {
			return nil, err
		}
		ret.SetRow(i, row)
	}
	return ret, nil
}

// MixedJacobian returns the len(xs) x len(cs) matrix ∂²y/∂x_i∂c_j
func MixedJacobian(y *Var, xs, cs []*Var) (*mat.Dense, error) {
	gs, err := Grad(y, xs, true)
	if err != nil {
		return nil, err
	}
	if err := check(cs); err != nil {
		return nil, err
	}
	ret := mat.NewDense(len(xs), len(cs), nil)
	for i, g := range gs {
		row, err := GradValues(g, cs)
		if err != nil {
			return nil, err
		}
		ret.SetRow(i, row)
	}
	return ret, nil
}

// Hessian returns the len(xs) x len(xs) matrix ∂²y/∂x_i∂x_j
func Hessian(y *Var, xs []*Var) (*mat.Dense, error) {
	return MixedJacobian(y, xs, xs)
}
