package main

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"bwestbro.com/hdfit/symat"
)

// Norm computes the Euclidean norm of the difference between a and b
// and the largest absolute difference
func Norm(a, b *symat.Tensor) (norm, max float64) {
	as, bs := a.RawData(), b.RawData()
	if len(as) != len(bs) {
		panic("dimension mismatch")
	}
	diff := make([]float64, len(as))
	floats.SubTo(diff, as, bs)
	for _, d := range diff {
		max = math.Max(max, math.Abs(d))
	}
	return floats.Norm(diff, 2), max
}

// RMSD computes the root-mean-square deviation between the elements of
// a and b
func RMSD(a, b *symat.Tensor) float64 {
	norm, _ := Norm(a, b)
	if n := len(a.RawData()); n > 0 {
		return norm / math.Sqrt(float64(n))
	}
	return 0
}

// Summary holds the mean and standard deviation of a column of results
type Summary struct {
	Mean, StdDev float64
}

func Summarize(x []float64) Summary {
	if len(x) < 2 {
		return Summary{Mean: stat.Mean(x, nil)}
	}
	m, s := stat.MeanStdDev(x, nil)
	return Summary{Mean: m, StdDev: s}
}
