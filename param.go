package main

import (
	"bufio"
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"

	"bwestbro.com/hdfit/autodiff"
	"bwestbro.com/hdfit/obnet"
)

// Param summarizes the parameters of the network of element (I, J)
type Param struct {
	I, J   int
	Irred  int
	Values []float64
	// Tracked counts the parameters that require gradient
	Tracked int
}

func (p Param) String() string {
	return fmt.Sprintf(
		"%3d%3d%5d%8d%8d%20.12f\n",
		p.I, p.J, p.Irred+1, len(p.Values), p.Tracked,
		floats.Norm(p.Values, 2),
	)
}

func Params(s *obnet.Symat) (ret []Param) {
	s.ElementParameters().Each(func(i, j int, vs []*autodiff.Var) {
		p := Param{I: i, J: j, Irred: s.Irreducible(i, j)}
		p.Values = autodiff.Values(vs)
		for _, v := range vs {
			if v.RequiresGrad() {
				p.Tracked++
			}
		}
		ret = append(ret, p)
	})
	return
}

// WriteParams writes a table of params to w
func WriteParams(w io.Writer, params []Param) error {
	nw := bufio.NewWriter(w)
	fmt.Fprintf(nw, "%3s%3s%5s%8s%8s%20s\n",
		"i", "j", "irr", "params", "tracked", "norm")
	for _, p := range params {
		fmt.Fprint(nw, p)
	}
	fmt.Fprint(nw, "\n")
	return nw.Flush()
}
