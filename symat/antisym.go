package symat

import "gonum.org/v1/gonum/mat"

// Antisym is an N x N x D tensor antisymmetric in its first two axes,
// the rate of rotation of a basis along D directions. Only the strict
// upper triangle is stored.
type Antisym struct {
	n, d int
	data []float64
}

func NewAntisym(n, d int) *Antisym {
	if n <= 0 || d < 0 {
		panic("symat: bad antisymmetric dimensions")
	}
	return &Antisym{n: n, d: d, data: make([]float64, n*(n-1)/2*d)}
}

func (a *Antisym) N() int { return a.n }
func (a *Antisym) D() int { return a.d }

// Block returns the D values of element (i, j), i < j, shared with a
func (a *Antisym) Block(i, j int) []float64 {
	k := strictIndex(a.n, i, j) * a.d
	return a.data[k : k+a.d : k+a.d]
}

// At reads any element, returning -M[j][i] below the diagonal and
// zero on it
func (a *Antisym) At(i, j, k int) float64 {
	switch {
	case i < j:
		return a.Block(i, j)[k]
	case i > j:
		return -a.Block(j, i)[k]
	}
	return 0
}

// Dense returns the full N x N slice along direction k
func (a *Antisym) Dense(k int) *mat.Dense {
	ret := mat.NewDense(a.n, a.n, nil)
	for i := 0; i < a.n; i++ {
		for j := 0; j < a.n; j++ {
			ret.Set(i, j, a.At(i, j, k))
		}
	}
	return ret
}
