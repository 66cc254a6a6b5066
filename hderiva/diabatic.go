package hderiva

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"bwestbro.com/hdfit/autodiff"
	"bwestbro.com/hdfit/symat"
)

// Vars is a symmetric matrix of model outputs
type Vars = symat.Matrix[*autodiff.Var]

// Inputs holds the input layer of every model element
type Inputs = symat.Matrix[[]*autodiff.Var]

// Jacobians holds one matrix per model element
type Jacobians = symat.Matrix[*mat.Dense]

func checkInputs(Hd *Vars, ls *Inputs) error {
	if ls.N() != Hd.N() {
		return errors.Wrapf(ErrShape,
			"%d state input layers for %d state Hd", ls.N(), Hd.N())
	}
	var err error
	ls.Each(func(i, j int, l []*autodiff.Var) {
		if err != nil {
			return
		}
		for _, v := range l {
			if v == nil || !v.RequiresGrad() {
				err = errors.Wrapf(ErrInvalidArgument,
					"input layers must require gradient: element (%d, %d)",
					i, j)
				return
			}
		}
	})
	return err
}

// coordinates returns the number of coordinates shared by every
// transposed Jacobian, which must each have one column per input of
// their element
func coordinates(ls *Inputs, JTs *Jacobians) (int, error) {
	d := -1
	var err error
	ls.Each(func(i, j int, l []*autodiff.Var) {
		if err != nil {
			return
		}
		rows, cols := len(l), len(l)
		if JTs != nil {
			if JTs.N() != ls.N() || JTs.At(i, j) == nil {
				err = errors.Wrapf(ErrShape, "missing Jacobian for (%d, %d)", i, j)
				return
			}
			rows, cols = JTs.At(i, j).Dims()
		}
		if cols != len(l) {
			err = errors.Wrapf(ErrShape,
				"Jacobian of (%d, %d) has %d columns for %d inputs",
				i, j, cols, len(l))
			return
		}
		if d >= 0 && rows != d {
			err = errors.Wrapf(ErrShape,
				"element (%d, %d) has %d coordinates, wanted %d",
				i, j, rows, d)
			return
		}
		d = rows
	})
	return d, err
}

// DxHdGraph returns DxHd[i][j] = JT[i][j]·∂Hd[i][j]/∂l[i][j] with the
// graph retained, so it can be differentiated again. JTs may be nil
// when the input layers are the coordinates themselves.
func DxHdGraph(Hd *Vars, ls *Inputs, JTs *Jacobians) (*Inputs, error) {
	if err := checkInputs(Hd, ls); err != nil {
		return nil, err
	}
	d, err := coordinates(ls, JTs)
	if err != nil {
		return nil, err
	}
	ret := symat.NewMatrix[[]*autodiff.Var](Hd.N())
	Hd.Each(func(i, j int, h *autodiff.Var) {
		if err != nil {
			return
		}
		var gs []*autodiff.Var
		gs, err = autodiff.Grad(h, ls.At(i, j), true)
		if err != nil {
			return
		}
		for k := range gs {
			if gs[k] == nil {
				gs[k] = autodiff.Const(0)
			}
		}
		if JTs == nil {
			ret.Set(i, j, gs)
			return
		}
		jt := JTs.At(i, j)
		row := make([]*autodiff.Var, d)
		for x := range row {
			row[x] = autodiff.DotConst(mat.Row(nil, x, jt), gs)
		}
		ret.Set(i, j, row)
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// DxHd is DxHdGraph reduced to values
func DxHd(Hd *Vars, ls *Inputs, JTs *Jacobians) (*symat.Tensor, error) {
	if err := checkInputs(Hd, ls); err != nil {
		return nil, err
	}
	d, err := coordinates(ls, JTs)
	if err != nil {
		return nil, err
	}
	ret := symat.NewTensor(Hd.N(), d)
	Hd.Each(func(i, j int, h *autodiff.Var) {
		if err != nil {
			return
		}
		var g []float64
		g, err = autodiff.GradValues(h, ls.At(i, j))
		if err != nil {
			return
		}
		if JTs == nil {
			copy(ret.Block(i, j), g)
			return
		}
		dst := mat.NewVecDense(d, ret.Block(i, j))
		dst.MulVec(JTs.At(i, j), mat.NewVecDense(len(g), g))
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// nParams counts every parameter, tracked or not
func nParams(cs [][]*autodiff.Var) (n int) {
	for _, c := range cs {
		n += len(c)
	}
	return
}

// gradParams writes ∂y/∂c for the flattened groups cs into dst.
// Frozen parameters and groups y does not depend on are left zero.
func gradParams(dst []float64, y *autodiff.Var, cs [][]*autodiff.Var) error {
	var (
		tracked []*autodiff.Var
		pos     []int
	)
	var off int
	for _, c := range cs {
		for k, v := range c {
			if v.RequiresGrad() {
				tracked = append(tracked, v)
				pos = append(pos, off+k)
			}
		}
		off += len(c)
	}
	g, err := autodiff.GradValues(y, tracked)
	if err != nil {
		return err
	}
	for k, p := range pos {
		dst[p] = g[k]
	}
	return nil
}

// DcHd returns the gradient of every element against the parameter
// groups cs, flattened in order
func DcHd(Hd *Vars, cs [][]*autodiff.Var) (*symat.Tensor, error) {
	ret := symat.NewTensor(Hd.N(), nParams(cs))
	var err error
	Hd.Each(func(i, j int, h *autodiff.Var) {
		if err == nil {
			err = gradParams(ret.Block(i, j), h, cs)
		}
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// DcDxHd differentiates the output of DxHdGraph against the parameter
// groups cs, giving trailing shape [D, P]
func DcDxHd(DxHd *Inputs, cs [][]*autodiff.Var) (*symat.Tensor, error) {
	d := len(DxHd.At(0, 0))
	p := nParams(cs)
	ret := symat.NewTensor(DxHd.N(), d, p)
	var err error
	DxHd.Each(func(i, j int, g []*autodiff.Var) {
		if err != nil {
			return
		}
		if len(g) != d {
			err = errors.Wrapf(ErrShape,
				"element (%d, %d) has %d coordinates, wanted %d",
				i, j, len(g), d)
			return
		}
		blk := ret.Block(i, j)
		for x := range g {
			if err = gradParams(blk[x*p:(x+1)*p], g[x], cs); err != nil {
				return
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
