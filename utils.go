package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// toFloat converts a list of strings to a float64 using
// strconv.ParseFloat
func toFloat(strs []string) ([]float64, error) {
	ret := make([]float64, len(strs))
	var err error
	for i, s := range strs {
		ret[i], err = strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "field %d", i)
		}
	}
	return ret, nil
}

// WriteMat writes m to w under title, one numbered row per line
func WriteMat(w io.Writer, title string, m mat.Matrix) {
	r, c := m.Dims()
	fmt.Fprintf(w, "%s (%d x %d)\n", title, r, c)
	for i := 0; i < r; i++ {
		fmt.Fprintf(w, "%5d", i)
		for j := 0; j < c; j++ {
			fmt.Fprintf(w, "%14.10f", m.At(i, j))
		}
		fmt.Fprint(w, "\n")
	}
	fmt.Fprint(w, "\n")
}
