// Package dimred reduces the coordinates q to r through an encoder
// network and differentiates the reduction for the reduced chain rule
package dimred

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"bwestbro.com/hdfit/autodiff"
	"bwestbro.com/hdfit/hderiva"
	"bwestbro.com/hdfit/obnet"
)

// ErrInput matches hderiva.ErrShape too
var ErrInput = errors.WithMessage(hderiva.ErrShape, "invalid reduction input")

// Encoder maps q to r through a Net, with tanh between layers and a
// linear last layer
type Encoder struct {
	*obnet.Net
}

// Reduce evaluates the encoder at q and returns r along with the
// Jacobians against q and the encoder parameters, in Parameters order.
// Frozen parameters get zero columns.
func (e Encoder) Reduce(q []float64) ([]float64, *hderiva.Reduction, error) {
	if len(q) != e.In() {
		return nil, nil, errors.Wrapf(ErrInput,
			"%d coordinates for a %d input encoder", len(q), e.In())
	}
	x := autodiff.Leaves(q)
	r := e.Forward(x)
	nr := len(r)

	jrx, err := autodiff.Jacobian(r, x)
	if err != nil {
		return nil, nil, errors.Wrap(err, "reduction Jacobian")
	}
	red := &hderiva.Reduction{JrxT: mat.DenseCopyOf(jrx.T())}

	params := e.Parameters()
	var (
		tracked []*autodiff.Var
		pos     []int
	)
	for k, p := range params {
		if p.RequiresGrad() {
			tracked = append(tracked, p)
			pos = append(pos, k)
		}
	}
	if len(params) == 0 {
		return autodiff.Values(r), red, nil
	}
	red.JrcT = mat.NewDense(len(params), nr, nil)
	for k := 0; k < nr; k++ {
		red.KrxcT = append(red.KrxcT, mat.NewDense(len(q), len(params), nil))
	}
	if len(tracked) == 0 {
		return autodiff.Values(r), red, nil
	}
	for k, rk := range r {
		g, err := autodiff.GradValues(rk, tracked)
		if err != nil {
			return nil, nil, errors.Wrap(err, "parameter Jacobian")
		}
		mixed, err := autodiff.MixedJacobian(rk, x, tracked)
		if err != nil {
			return nil, nil, errors.Wrap(err, "mixed reduction Jacobian")
		}
		for t, p := range pos {
			red.JrcT.Set(p, k, g[t])
			for i := range q {
				red.KrxcT[k].Set(i, p, mixed.At(i, t))
			}
		}
	}
	return autodiff.Values(r), red, nil
}
