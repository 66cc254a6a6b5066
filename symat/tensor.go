package symat

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Tensor is an N x N symmetric matrix whose elements are blocks of
// float64 with a trailing shape. An empty shape holds a bare matrix, a
// shape of [D] holds a first derivative along D variables and [D, P]
// a mixed second derivative. Blocks are stored contiguously for the
// upper triangle only, each in row-major order over the trailing axes.
type Tensor struct {
	n     int
	shape []int
	blen  int
	data  []float64
}

// NewTensor returns a zero Tensor for n states with the given trailing
// shape
func NewTensor(n int, shape ...int) *Tensor {
	if n <= 0 {
		panic("symat: non-positive dimension")
	}
	blen := 1
	for _, s := range shape {
		if s < 0 {
			panic("symat: negative trailing dimension")
		}
		blen *= s
	}
	return &Tensor{
		n:     n,
		shape: append([]int(nil), shape...),
		blen:  blen,
		data:  make([]float64, Pairs(n)*blen),
	}
}

// Diagonal returns the bare matrix diag(vals)
func Diagonal(vals []float64) *Tensor {
	ret := NewTensor(len(vals))
	for i, v := range vals {
		ret.Block(i, i)[0] = v
	}
	return ret
}

func (t *Tensor) N() int { return t.n }

// Shape returns a copy of the trailing shape
func (t *Tensor) Shape() []int { return append([]int(nil), t.shape...) }

// Rank counts the two matrix axes plus the trailing axes
func (t *Tensor) Rank() int { return 2 + len(t.shape) }

// BlockLen is the number of values in every matrix element
func (t *Tensor) BlockLen() int { return t.blen }

// RawData returns the packed storage, shared with t
func (t *Tensor) RawData() []float64 { return t.data }

// Block returns the storage of element (i, j), i <= j. The slice is
// shared with t, so writes through it modify t
func (t *Tensor) Block(i, j int) []float64 {
	k := index(t.n, i, j) * t.blen
	return t.data[k : k+t.blen : k+t.blen]
}

// SymBlock is Block reading (j, i) when i > j. It is meant for dense
// algebra on the full matrix and must not be written through
func (t *Tensor) SymBlock(i, j int) []float64 {
	if i > j {
		i, j = j, i
	}
	return t.Block(i, j)
}

// At returns the value at flat trailing offset k of element (i, j)
func (t *Tensor) At(i, j, k int) float64 {
	return t.Block(i, j)[k]
}

func (t *Tensor) Set(i, j, k int, v float64) {
	t.Block(i, j)[k] = v
}

// SameShape reports whether t and u have the same state count and
// trailing shape
func (t *Tensor) SameShape(u *Tensor) bool {
	if t.n != u.n || len(t.shape) != len(u.shape) {
		return false
	}
	for i := range t.shape {
		if t.shape[i] != u.shape[i] {
			return false
		}
	}
	return true
}

func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		n:     t.n,
		shape: t.Shape(),
		blen:  t.blen,
		data:  append([]float64(nil), t.data...),
	}
}

// Add returns t + u as a new Tensor
func (t *Tensor) Add(u *Tensor) *Tensor {
	if !t.SameShape(u) {
		panic(fmt.Sprintf("symat: adding %v to %v", u, t))
	}
	ret := t.Clone()
	floats.Add(ret.data, u.data)
	return ret
}

// Dense returns the full mirrored N x N matrix at flat trailing offset
// k
func (t *Tensor) Dense(k int) *mat.Dense {
	if k < 0 || k >= t.blen {
		panic("symat: trailing offset out of range")
	}
	ret := mat.NewDense(t.n, t.n, nil)
	for i := 0; i < t.n; i++ {
		for j := i; j < t.n; j++ {
			v := t.At(i, j, k)
			ret.Set(i, j, v)
			ret.Set(j, i, v)
		}
	}
	return ret
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%d x %d x %v)", t.n, t.n, t.shape)
}

// Distance returns the Euclidean norm of a - b over the stored
// elements
func Distance(a, b *Tensor) float64 {
	if !a.SameShape(b) {
		panic(fmt.Sprintf("symat: comparing %v to %v", a, b))
	}
	return floats.Distance(a.data, b.data, 2)
}

// Norm is the Euclidean norm of the stored elements
func Norm(a *Tensor) float64 {
	return floats.Norm(a.data, 2)
}
