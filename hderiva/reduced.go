package hderiva

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"bwestbro.com/hdfit/autodiff"
	"bwestbro.com/hdfit/symat"
)

// Reduction is the coordinate reduction r(x; c_r) evaluated at one
// geometry, with R reduced coordinates, D coordinates and Pr reduction
// parameters
type Reduction struct {
	// JrxT[x][r] = ∂r/∂x, D x R
	JrxT *mat.Dense
	// JrcT[p][r] = ∂r/∂c_p, Pr x R
	JrcT *mat.Dense
	// KrxcT[r][x][p] = ∂²r/∂x∂c_p, R matrices of D x Pr
	KrxcT []*mat.Dense
}

// Layers are the model input layers l(r) of every element, built from
// the reduced coordinates
type Layers struct {
	// Ls are leaves requiring gradient
	Ls *Inputs
	// JlrTs[i][j] is R x L with JlrT[r][l] = ∂l/∂r
	JlrTs *Jacobians
	// Klrr[i][j][l] = ∂²l/∂r∂r'. nil for layers linear in r
	Klrr *symat.Matrix[[]*mat.Dense]
}

func (r *Reduction) dims() (d, nr, pr int) {
	d, nr = r.JrxT.Dims()
	if r.JrcT != nil {
		pr, _ = r.JrcT.Dims()
	}
	return
}

func (r *Reduction) check(Hd *Vars, layers Layers) error {
	if err := checkInputs(Hd, layers.Ls); err != nil {
		return err
	}
	if r.JrxT == nil {
		return errors.Wrap(ErrInvalidArgument, "nil JrxT")
	}
	d, nr, pr := r.dims()
	if r.JrcT != nil {
		if _, c := r.JrcT.Dims(); c != nr {
			return errors.Wrapf(ErrShape,
				"JrcT has %d reduced coordinates, JrxT has %d", c, nr)
		}
	}
	if len(r.KrxcT) != 0 && len(r.KrxcT) != nr {
		return errors.Wrapf(ErrShape,
			"%d second Jacobians for %d reduced coordinates", len(r.KrxcT), nr)
	}
	for _, k := range r.KrxcT {
		if rows, cols := k.Dims(); rows != d || cols != pr {
			return errors.Wrapf(ErrShape, "%d x %d second Jacobian", rows, cols)
		}
	}
	if layers.JlrTs == nil || layers.JlrTs.N() != Hd.N() {
		return errors.Wrap(ErrShape, "missing layer Jacobians")
	}
	var err error
	layers.Ls.Each(func(i, j int, l []*autodiff.Var) {
		if err != nil {
			return
		}
		jt := layers.JlrTs.At(i, j)
		if jt == nil {
			err = errors.Wrapf(ErrShape, "missing Jacobian for (%d, %d)", i, j)
			return
		}
		if rows, cols := jt.Dims(); rows != nr || cols != len(l) {
			err = errors.Wrapf(ErrShape,
				"element (%d, %d) layer Jacobian is %d x %d, wanted %d x %d",
				i, j, rows, cols, nr, len(l))
		}
		if layers.Klrr != nil && len(layers.Klrr.At(i, j)) != len(l) {
			err = errors.Wrapf(ErrShape,
				"element (%d, %d) has %d layer Hessians for %d inputs",
				i, j, len(layers.Klrr.At(i, j)), len(l))
		}
	})
	return err
}

// reducedGradient returns f_r = JlrT·∂Hd/∂l for element (i, j) along
// with the underlying ∂Hd/∂l graph
func reducedGradient(h *autodiff.Var, l []*autodiff.Var, jlrT *mat.Dense) (
	*mat.VecDense, []*autodiff.Var, error) {
	fl, err := autodiff.Grad(h, l, true)
	if err != nil {
		return nil, nil, err
	}
	nr, _ := jlrT.Dims()
	fr := mat.NewVecDense(nr, nil)
	fr.MulVec(jlrT, mat.NewVecDense(len(l), autodiff.Flatten(fl)))
	return fr, fl, nil
}

// DxHd returns DxHd[i][j] = JrxT·JlrT·∂Hd/∂l
func (r *Reduction) DxHd(Hd *Vars, layers Layers) (*symat.Tensor, error) {
	if err := r.check(Hd, layers); err != nil {
		return nil, err
	}
	d, _, _ := r.dims()
	ret := symat.NewTensor(Hd.N(), d)
	var err error
	Hd.Each(func(i, j int, h *autodiff.Var) {
		if err != nil {
			return
		}
		var fr *mat.VecDense
		fr, _, err = reducedGradient(h, layers.Ls.At(i, j), layers.JlrTs.At(i, j))
		if err != nil {
			return
		}
		mat.NewVecDense(d, ret.Block(i, j)).MulVec(r.JrxT, fr)
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// DcHd returns the gradient against [c_r | cs], where c_r are the
// reduction parameters described by JrcT
func (r *Reduction) DcHd(Hd *Vars, layers Layers, cs [][]*autodiff.Var) (*symat.Tensor, error) {
	if err := r.check(Hd, layers); err != nil {
		return nil, err
	}
	_, _, pr := r.dims()
	ret := symat.NewTensor(Hd.N(), pr+nParams(cs))
	var err error
	Hd.Each(func(i, j int, h *autodiff.Var) {
		if err != nil {
			return
		}
		var fr *mat.VecDense
		fr, _, err = reducedGradient(h, layers.Ls.At(i, j), layers.JlrTs.At(i, j))
		if err != nil {
			return
		}
		blk := ret.Block(i, j)
		if pr > 0 {
			mat.NewVecDense(pr, blk[:pr]).MulVec(r.JrcT, fr)
		}
		err = gradParams(blk[pr:], h, cs)
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// DcDxHd returns the mixed second derivative against x and [c_r | cs]
// by the full chain rule through l(r(x; c_r)). With f_l = ∂Hd/∂l,
// H = ∂²Hd/∂l∂l and G = ∂²Hd/∂l∂cs:
//
//	f_r = JlrT·f_l
//	F   = JlrT·H·JlrTᵗ + Σ_l f_l ∂²l/∂r∂r
//	∂²Hd/∂x∂c_r = Σ_r f_r KrxcT[r] + JrxT·F·JrcTᵗ
//	∂²Hd/∂x∂cs  = JrxT·JlrT·G
func (r *Reduction) DcDxHd(Hd *Vars, layers Layers, cs [][]*autodiff.Var) (*symat.Tensor, error) {
	if err := r.check(Hd, layers); err != nil {
		return nil, err
	}
	d, nr, pr := r.dims()
	pm := nParams(cs)
	p := pr + pm
	ret := symat.NewTensor(Hd.N(), d, p)
	if p == 0 {
		return ret, nil
	}

	// one pass per ∂Hd/∂l_k against the layer and the model parameters
	var (
		tracked []*autodiff.Var
		pos     []int
		off     int
	)
	for _, c := range cs {
		for k, v := range c {
			if v.RequiresGrad() {
				tracked = append(tracked, v)
				pos = append(pos, off+k)
			}
		}
		off += len(c)
	}

	var err error
	Hd.Each(func(i, j int, h *autodiff.Var) {
		if err != nil {
			return
		}
		l := layers.Ls.At(i, j)
		jlrT := layers.JlrTs.At(i, j)
		var (
			fr *mat.VecDense
			fl []*autodiff.Var
		)
		fr, fl, err = reducedGradient(h, l, jlrT)
		if err != nil {
			return
		}
		nl := len(l)
		H := mat.NewDense(nl, nl, nil)
		var G *mat.Dense
		if pm > 0 {
			G = mat.NewDense(nl, pm, nil)
		}
		wrt := append(append([]*autodiff.Var(nil), l...), tracked...)
		for k, g := range fl {
			var row []float64
			row, err = autodiff.GradValues(g, wrt)
			if err != nil {
				return
			}
			H.SetRow(k, row[:nl])
			for t, q := range pos {
				G.Set(k, q, row[nl+t])
			}
		}
		blk := ret.Block(i, j)
		out := mat.NewDense(d, p, blk)

		if pr > 0 {
			// F = JlrT·H·JlrTᵗ + Σ_l f_l K_l
			F := mat.NewDense(nr, nr, nil)
			var tmp mat.Dense
			tmp.Mul(jlrT, H)
			F.Mul(&tmp, jlrT.T())
			if layers.Klrr != nil {
				fv := autodiff.Flatten(fl)
				for k, K := range layers.Klrr.At(i, j) {
					F.Add(F, scaled(fv[k], K))
				}
			}
			var xr, dr mat.Dense
			xr.Mul(r.JrxT, F)
			dr.Mul(&xr, r.JrcT.T())
			for k, K := range r.KrxcT {
				dr.Add(&dr, scaled(fr.AtVec(k), K))
			}
			out.Slice(0, d, 0, pr).(*mat.Dense).Copy(&dr)
		}
		if pm > 0 {
			var xl, dm mat.Dense
			xl.Mul(r.JrxT, jlrT)
			dm.Mul(&xl, G)
			out.Slice(0, d, pr, p).(*mat.Dense).Copy(&dm)
		}
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func scaled(f float64, m mat.Matrix) *mat.Dense {
	var ret mat.Dense
	ret.Scale(f, m)
	return &ret
}
