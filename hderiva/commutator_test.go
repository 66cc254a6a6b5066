package hderiva

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"bwestbro.com/hdfit/symat"
)

func randTensor(rng *rand.Rand, n int, shape ...int) *symat.Tensor {
	ret := symat.NewTensor(n, shape...)
	for k := range ret.RawData() {
		ret.RawData()[k] = rng.NormFloat64()
	}
	return ret
}

func randAntisym(rng *rand.Rand, n, d int) *symat.Antisym {
	ret := symat.NewAntisym(n, d)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for k := range ret.Block(i, j) {
				ret.Block(i, j)[k] = rng.NormFloat64()
			}
		}
	}
	return ret
}

func TestCommutator(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tests := []struct {
		shape []int
		d     int
	}{
		{nil, 3},
		{[]int{2}, 3},
		{[]int{3, 2}, 1},
	}
	for n := 1; n <= 6; n++ {
		for _, test := range tests {
			A := randTensor(rng, n, test.shape...)
			M := randAntisym(rng, n, test.d)
			got, err := Commutator(A, M)
			require.NoError(t, err)
			require.Equal(t, append(A.Shape(), test.d), got.Shape())
			for s := 0; s < A.BlockLen(); s++ {
				for k := 0; k < test.d; k++ {
					a, m := A.Dense(s), M.Dense(k)
					var am, ma, want mat.Dense
					am.Mul(a, m)
					ma.Mul(m, a)
					want.Sub(&am, &ma)
					for i := 0; i < n; i++ {
						for j := i; j < n; j++ {
							g := got.At(i, j, s*test.d+k)
							w := want.At(i, j)
							if math.Abs(g-w) > 1e-10*math.Max(1, math.Abs(w)) {
								t.Errorf("n=%d (%d, %d, %d, %d): got %v, wanted %v\n",
									n, i, j, s, k, g, w)
							}
						}
					}
				}
			}
		}
	}
}

func TestCommutatorShape(t *testing.T) {
	_, err := Commutator(symat.NewTensor(3), symat.NewAntisym(2, 1))
	require.True(t, errors.Is(err, ErrShape))
}
