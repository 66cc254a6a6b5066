// Package obnet holds feed-forward networks for the elements of a
// symmetric matrix. Each upper triangle element has its own Scalar
// network, and only elements of the totally symmetric irreducible
// carry biases, so that the other elements vanish where symmetry
// requires it.
package obnet

import (
	"math"
	"math/rand"

	"bwestbro.com/hdfit/autodiff"
)

// Linear is a fully connected layer y = W·x + b
type Linear struct {
	In, Out int
	// W is Out x In
	W [][]*autodiff.Var
	// B is nil without bias
	B []*autodiff.Var
}

// NewLinear initializes the weights uniformly in ±1/sqrt(in) and the
// bias to zero
func NewLinear(in, out int, bias bool, rng *rand.Rand) *Linear {
	bound := 1 / math.Sqrt(float64(in))
	ret := &Linear{In: in, Out: out, W: make([][]*autodiff.Var, out)}
	for o := range ret.W {
		ret.W[o] = make([]*autodiff.Var, in)
		for i := range ret.W[o] {
			ret.W[o][i] = autodiff.New(bound * (2*rng.Float64() - 1))
		}
	}
	if bias {
		ret.B = autodiff.Leaves(make([]float64, out))
	}
	return ret
}

func (l *Linear) Forward(x []*autodiff.Var) []*autodiff.Var {
	y := make([]*autodiff.Var, l.Out)
	for o := range y {
		y[o] = autodiff.Dot(l.W[o], x)
		if l.B != nil {
			y[o] = autodiff.Add(y[o], l.B[o])
		}
	}
	return y
}

// Parameters returns the weights row by row followed by the bias
func (l *Linear) Parameters() []*autodiff.Var {
	ret := make([]*autodiff.Var, 0, l.In*l.Out+len(l.B))
	for _, row := range l.W {
		ret = append(ret, row...)
	}
	return append(ret, l.B...)
}

// Net is a stack of Linear layers with tanh between them
type Net struct {
	Layers []*Linear
}

// NewNet builds the layers dims[0] -> dims[1] -> ... -> dims[n-1]
func NewNet(dims []int, bias bool, rng *rand.Rand) *Net {
	ret := new(Net)
	for i := 0; i+1 < len(dims); i++ {
		ret.Layers = append(ret.Layers, NewLinear(dims[i], dims[i+1], bias, rng))
	}
	return ret
}

func (n *Net) In() int  { return n.Layers[0].In }
func (n *Net) Out() int { return n.Layers[len(n.Layers)-1].Out }

func (n *Net) Forward(x []*autodiff.Var) []*autodiff.Var {
	y := x
	for i, l := range n.Layers {
		if i > 0 {
			for k := range y {
				y[k] = autodiff.Tanh(y[k])
			}
		}
		y = l.Forward(y)
	}
	return y
}

func (n *Net) Parameters() (ret []*autodiff.Var) {
	for _, l := range n.Layers {
		ret = append(ret, l.Parameters()...)
	}
	return
}

// Freeze stops gradient tracking in the first nlayers layers. Negative
// nlayers freezes all of them
func (n *Net) Freeze(nlayers int) {
	if nlayers < 0 || nlayers > len(n.Layers) {
		nlayers = len(n.Layers)
	}
	for _, l := range n.Layers[:nlayers] {
		for _, p := range l.Parameters() {
			p.SetRequiresGrad(false)
		}
	}
}

// Clone returns a deep copy with fresh leaves of the same values and
// tracking state
func (n *Net) Clone() *Net {
	ret := &Net{Layers: make([]*Linear, len(n.Layers))}
	clone := func(vs []*autodiff.Var) []*autodiff.Var {
		if vs == nil {
			return nil
		}
		ret := make([]*autodiff.Var, len(vs))
		for i, v := range vs {
			ret[i] = autodiff.New(v.Value())
			ret[i].SetRequiresGrad(v.RequiresGrad())
		}
		return ret
	}
	for i, l := range n.Layers {
		c := &Linear{In: l.In, Out: l.Out, W: make([][]*autodiff.Var, l.Out)}
		for o, row := range l.W {
			c.W[o] = clone(row)
		}
		c.B = clone(l.B)
		ret.Layers[i] = c
	}
	return ret
}
