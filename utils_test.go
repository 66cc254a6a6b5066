package main

import (
	"bytes"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestToFloat(t *testing.T) {
	got, err := toFloat([]string{"1.5", "-2", "3e-2"})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1.5, -2, 0.03}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, wanted %v\n", got, want)
	}
	if _, err := toFloat([]string{"1", "x"}); err == nil {
		t.Errorf("got nil, wanted an error\n")
	}
}

// rows packs one row per state into a matrix
func rows(vs [][]float64) *mat.Dense {
	ret := mat.NewDense(len(vs), len(vs[0]), nil)
	for i, v := range vs {
		ret.SetRow(i, v)
	}
	return ret
}

func TestWriteMat(t *testing.T) {
	var buf bytes.Buffer
	WriteMat(&buf, "U", rows([][]float64{{1, 2}, {3, -4}}))
	got := buf.String()
	want := "U (2 x 2)\n" +
		"    0  1.0000000000  2.0000000000\n" +
		"    1  3.0000000000 -4.0000000000\n\n"
	if got != want {
		t.Errorf("got\n%q, wanted\n%q\n", got, want)
	}
}
