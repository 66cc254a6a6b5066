package hderiva

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"bwestbro.com/hdfit/symat"
)

func TestPhaser(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	ph := NewPhaser(4)
	require.Equal(t, 8, ph.Patterns())
	ref := randTensor(rng, 4, 2)
	// flip states 1 and 3
	flipped := ref.Clone()
	signs := []float64{1, -1, 1, -1}
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			for k := range flipped.Block(i, j) {
				flipped.Block(i, j)[k] *= signs[i] * signs[j]
			}
		}
	}
	got, err := ph.FixOb(flipped, ref)
	require.NoError(t, err)
	if !reflect.DeepEqual(got, signs) {
		t.Errorf("got %v, wanted %v\n", got, signs)
	}
	if d := symat.Distance(flipped, ref); d != 0 {
		t.Errorf("got distance %v, wanted 0\n", d)
	}
	_, err = ph.FixOb(symat.NewTensor(3, 2), symat.NewTensor(3, 2))
	require.True(t, errors.Is(err, ErrShape))
}
