// Package inputgen builds the input layers of the Hd network from the
// reduced coordinates. Every layer is the set of monomials of the
// coordinates up to a given total degree, so its Jacobians against the
// coordinates are known in closed form.
package inputgen

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"bwestbro.com/hdfit/autodiff"
	"bwestbro.com/hdfit/hderiva"
	"bwestbro.com/hdfit/symat"
)

// Generator produces the monomials of degree 1 through Order in NCoords
// coordinates
type Generator struct {
	NCoords int
	Order   int
	// exps[l][r] is the power of coordinate r in monomial l
	exps [][]int
}

// New returns a Generator with its monomials in graded lexicographic
// order: all the degree 1 terms, then degree 2 and so on
func New(ncoords, order int) *Generator {
	if ncoords <= 0 || order <= 0 {
		panic(fmt.Sprintf("inputgen: %d coordinates to order %d", ncoords, order))
	}
	g := &Generator{NCoords: ncoords, Order: order}
	for deg := 1; deg <= order; deg++ {
		g.exps = append(g.exps, partitions(ncoords, deg)...)
	}
	return g
}

// partitions returns every way to spread deg powers over n coordinates,
// the leading coordinate taking the largest power first
func partitions(n, deg int) [][]int {
	if n == 1 {
		return [][]int{{deg}}
	}
	var ret [][]int
	for e := deg; e >= 0; e-- {
		for _, rest := range partitions(n-1, deg-e) {
			ret = append(ret, append([]int{e}, rest...))
		}
	}
	return ret
}

// NFeatures is the length of every input layer
func (g *Generator) NFeatures() int { return len(g.exps) }

// Exponents returns the powers of monomial l
func (g *Generator) Exponents(l int) []int {
	return append([]int(nil), g.exps[l]...)
}

func pow(x float64, n int) float64 {
	if n == 0 {
		return 1
	}
	return math.Pow(x, float64(n))
}

// term evaluates c·Π r_i^e_i
func term(c float64, r []float64, e []int) float64 {
	for i, ei := range e {
		c *= pow(r[i], ei)
	}
	return c
}

func (g *Generator) check(r []float64) {
	if len(r) != g.NCoords {
		panic(fmt.Sprintf("inputgen: %d coordinates for a %d coordinate generator",
			len(r), g.NCoords))
	}
}

func (g *Generator) Values(r []float64) []float64 {
	g.check(r)
	ret := make([]float64, len(g.exps))
	for l, e := range g.exps {
		ret[l] = term(1, r, e)
	}
	return ret
}

// JacobianT returns the NCoords x NFeatures matrix ∂l/∂r
func (g *Generator) JacobianT(r []float64) *mat.Dense {
	g.check(r)
	ret := mat.NewDense(g.NCoords, len(g.exps), nil)
	e := make([]int, g.NCoords)
	for l, exps := range g.exps {
		for a := range r {
			if exps[a] == 0 {
				continue
			}
			copy(e, exps)
			e[a]--
			ret.Set(a, l, term(float64(exps[a]), r, e))
		}
	}
	return ret
}

// Hessians returns ∂²l/∂r∂r for every monomial l
func (g *Generator) Hessians(r []float64) []*mat.Dense {
	g.check(r)
	ret := make([]*mat.Dense, len(g.exps))
	e := make([]int, g.NCoords)
	for l, exps := range g.exps {
		h := mat.NewDense(g.NCoords, g.NCoords, nil)
		for a := range r {
			for b := a; b < len(r); b++ {
				copy(e, exps)
				c := float64(e[a])
				e[a]--
				c *= float64(e[b])
				e[b]--
				if c == 0 {
					continue
				}
				v := term(c, r, e)
				h.Set(a, b, v)
				h.Set(b, a, v)
			}
		}
		ret[l] = h
	}
	return ret
}

// Vars builds the monomials as a graph of r, for differentiating
// through the features directly
func (g *Generator) Vars(r []*autodiff.Var) []*autodiff.Var {
	if len(r) != g.NCoords {
		panic(fmt.Sprintf("inputgen: %d coordinates for a %d coordinate generator",
			len(r), g.NCoords))
	}
	ret := make([]*autodiff.Var, len(g.exps))
	for l, e := range g.exps {
		var v *autodiff.Var
		for i, ei := range e {
			for k := 0; k < ei; k++ {
				if v == nil {
					v = r[i]
				} else {
					v = autodiff.Mul(v, r[i])
				}
			}
		}
		ret[l] = v
	}
	return ret
}

// Layers returns the input layers of an n state model at r: a fresh set
// of leaves for every element, so their gradients stay separate, with
// the shared Jacobian and Hessians
func (g *Generator) Layers(n int, r []float64) hderiva.Layers {
	vals := g.Values(r)
	jt := g.JacobianT(r)
	hs := g.Hessians(r)
	ret := hderiva.Layers{
		Ls:    symat.NewMatrix[[]*autodiff.Var](n),
		JlrTs: symat.NewMatrix[*mat.Dense](n),
		Klrr:  symat.NewMatrix[[]*mat.Dense](n),
	}
	ret.Ls.Each(func(i, j int, _ []*autodiff.Var) {
		ret.Ls.Set(i, j, autodiff.Leaves(vals))
		ret.JlrTs.Set(i, j, jt)
		ret.Klrr.Set(i, j, hs)
	})
	return ret
}
