package obnet

import (
	"math/rand"

	"github.com/pkg/errors"

	"bwestbro.com/hdfit/autodiff"
	"bwestbro.com/hdfit/hderiva"
	"bwestbro.com/hdfit/symat"
)

// Scalar is a Net with a single output
type Scalar struct {
	*Net
}

// NewScalar only gives the layers biases when symmetric is set
func NewScalar(dims []int, symmetric bool, rng *rand.Rand) (*Scalar, error) {
	if len(dims) < 2 {
		return nil, errors.Wrapf(ErrDefinition, "dimensions %v need at least two layers", dims)
	}
	if dims[len(dims)-1] != 1 {
		return nil, errors.Wrapf(ErrDefinition,
			"the last dimension of %v must be 1 to be a scalar", dims)
	}
	for _, d := range dims {
		if d <= 0 {
			return nil, errors.Wrapf(ErrDefinition, "non-positive dimension in %v", dims)
		}
	}
	return &Scalar{Net: NewNet(dims, symmetric, rng)}, nil
}

func (s *Scalar) Forward(x []*autodiff.Var) *autodiff.Var {
	return s.Net.Forward(x)[0]
}

// Symat is the network of a symmetric matrix: one Scalar per upper
// triangle element, stored row by row
type Symat struct {
	n        int
	irreds   [][]int
	elements *symat.Matrix[*Scalar]
}

// New builds a randomly initialized Symat from a validated definition
func New(def Definition, rng *rand.Rand) (*Symat, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	ret := &Symat{
		n:        def.NStates,
		irreds:   def.irreducibles(),
		elements: symat.NewMatrix[*Scalar](def.NStates),
	}
	var (
		k   int
		err error
	)
	ret.elements.Each(func(i, j int, _ *Scalar) {
		if err != nil {
			return
		}
		var s *Scalar
		s, err = NewScalar(def.Dimensions[k], ret.irreds[i][j] == 0, rng)
		if err != nil {
			err = errors.Wrapf(err, "element (%d, %d)", i, j)
			return
		}
		ret.elements.Set(i, j, s)
		k++
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Symat) NStates() int { return s.n }

// Irreducible returns the 0-based irreducible of element (i, j)
func (s *Symat) Irreducible(i, j int) int { return s.irreds[i][j] }

// Element returns the network of element (i, j), i <= j
func (s *Symat) Element(i, j int) *Scalar { return s.elements.At(i, j) }

// InputSizes returns the number of inputs of every element
func (s *Symat) InputSizes() *symat.Matrix[int] {
	return symat.Map(s.elements, func(_, _ int, e *Scalar) int {
		return e.In()
	})
}

// Forward evaluates every element on its own input layer
func (s *Symat) Forward(xs *hderiva.Inputs) (*hderiva.Vars, error) {
	if xs.N() != s.n {
		return nil, errors.Wrapf(ErrInput,
			"%d state input for a %d state network", xs.N(), s.n)
	}
	ret := symat.NewMatrix[*autodiff.Var](s.n)
	var err error
	s.elements.Each(func(i, j int, e *Scalar) {
		if err != nil {
			return
		}
		x := xs.At(i, j)
		if len(x) != e.In() {
			err = errors.Wrapf(ErrInput,
				"element (%d, %d) takes %d inputs, got %d", i, j, e.In(), len(x))
			return
		}
		ret.Set(i, j, e.Forward(x))
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Parameters returns one group per element in storage order, the
// layout DcHd flattens
func (s *Symat) Parameters() [][]*autodiff.Var {
	ret := make([][]*autodiff.Var, 0, symat.Pairs(s.n))
	s.elements.Each(func(_, _ int, e *Scalar) {
		ret = append(ret, e.Parameters())
	})
	return ret
}

// ElementParameters returns the parameters of every element
func (s *Symat) ElementParameters() *symat.Matrix[[]*autodiff.Var] {
	return symat.Map(s.elements, func(_, _ int, e *Scalar) []*autodiff.Var {
		return e.Parameters()
	})
}

// NParams counts every parameter, tracked or frozen
func (s *Symat) NParams() (n int) {
	for _, g := range s.Parameters() {
		n += len(g)
	}
	return
}

// Clone returns a deep copy sharing no leaves with s
func (s *Symat) Clone() *Symat {
	ret := &Symat{
		n:      s.n,
		irreds: s.irreds,
		elements: symat.Map(s.elements, func(_, _ int, e *Scalar) *Scalar {
			return &Scalar{Net: e.Net.Clone()}
		}),
	}
	return ret
}

// Freeze stops gradient tracking in the first nlayers layers of every
// element
func (s *Symat) Freeze(nlayers int) {
	s.elements.Each(func(_, _ int, e *Scalar) {
		e.Freeze(nlayers)
	})
}

// Values returns every parameter value in Parameters order
func (s *Symat) Values() []float64 {
	var ret []float64
	for _, g := range s.Parameters() {
		ret = append(ret, autodiff.Values(g)...)
	}
	return ret
}

// SetValues overwrites the parameters in Parameters order
func (s *Symat) SetValues(v []float64) error {
	if len(v) != s.NParams() {
		return errors.Wrapf(ErrInput, "%d values for %d parameters",
			len(v), s.NParams())
	}
	var k int
	for _, g := range s.Parameters() {
		for _, p := range g {
			p.SetValue(v[k])
			k++
		}
	}
	return nil
}

// CopyFrom copies the parameter values of src, which must have the same
// architecture
func (s *Symat) CopyFrom(src *Symat) error {
	if src.n != s.n {
		return errors.Wrapf(ErrInput, "copying a %d state network into %d states",
			src.n, s.n)
	}
	return s.SetValues(src.Values())
}
