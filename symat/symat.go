// Package symat provides containers for symmetric and antisymmetric
// matrices whose elements are stored as the packed upper triangle, row
// by row: M_00, M_01, ..., M_0N, M_11, M_12, ..., M_1N, M_22, ...
//
// Only the upper triangle (i <= j) of a symmetric container can be
// addressed for writing, so the convention that the lower triangle is
// never populated is enforced by the type rather than by comments.
package symat

import "fmt"

// Pairs returns the number of upper triangle elements of an n x n
// matrix
func Pairs(n int) int {
	return n * (n + 1) / 2
}

// index returns the packed position of (i, j) with i <= j
func index(n, i, j int) int {
	if i < 0 || j >= n || i > j {
		panic(fmt.Sprintf("symat: (%d, %d) outside upper triangle of %d", i, j, n))
	}
	return i*n - i*(i-1)/2 + (j - i)
}

// strictIndex returns the packed position of (i, j) with i < j
func strictIndex(n, i, j int) int {
	if i < 0 || j >= n || i >= j {
		panic(fmt.Sprintf("symat: (%d, %d) outside strict upper triangle of %d", i, j, n))
	}
	return i*(n-1) - i*(i-1)/2 + (j - i - 1)
}

// Matrix is a symmetric matrix of arbitrary elements, for example the
// output elements of a model or the input layers feeding each of them
type Matrix[T any] struct {
	n    int
	elms []T
}

func NewMatrix[T any](n int) *Matrix[T] {
	if n <= 0 {
		panic("symat: non-positive dimension")
	}
	return &Matrix[T]{n: n, elms: make([]T, Pairs(n))}
}

func (m *Matrix[T]) N() int { return m.n }

// At returns element (i, j). i > j panics
func (m *Matrix[T]) At(i, j int) T {
	return m.elms[index(m.n, i, j)]
}

// Sym returns element (i, j) reading (j, i) when i > j
func (m *Matrix[T]) Sym(i, j int) T {
	if i > j {
		i, j = j, i
	}
	return m.elms[index(m.n, i, j)]
}

func (m *Matrix[T]) Set(i, j int, v T) {
	m.elms[index(m.n, i, j)] = v
}

// Elements returns the packed upper triangle. The slice is shared with
// m
func (m *Matrix[T]) Elements() []T { return m.elms }

// Each calls fn for every upper triangle element in storage order
func (m *Matrix[T]) Each(fn func(i, j int, v T)) {
	var k int
	for i := 0; i < m.n; i++ {
		for j := i; j < m.n; j++ {
			fn(i, j, m.elms[k])
			k++
		}
	}
}

// Map builds a new Matrix by applying fn to every element of m
func Map[T, U any](m *Matrix[T], fn func(i, j int, v T) U) *Matrix[U] {
	ret := NewMatrix[U](m.n)
	m.Each(func(i, j int, v T) {
		ret.Set(i, j, fn(i, j, v))
	})
	return ret
}
