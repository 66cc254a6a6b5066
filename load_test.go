package main

import (
	"errors"
	"io/fs"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"bwestbro.com/hdfit/obnet"
	"bwestbro.com/hdfit/toyhd"
)

func TestLoadConfig(t *testing.T) {
	got, err := LoadConfig("testfiles/check.toml")
	require.NoError(t, err)
	want := Config{
		Mode:     Check,
		Seed:     1,
		Eps:      1e-8,
		Step:     1e-5,
		Workers:  2,
		Chunk:    CHUNK,
		GeomFile: "geom.dat",
		Order:    2,
		Toy: toyhd.Model{
			C00: [3]float64{1, 0, 0},
			C01: [2]float64{0.5, 0},
			C11: [3]float64{1, 0, 0},
		},
		Q: []float64{1, 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, wanted %+v\n", got, want)
	}
}

func TestLoadEvalConfig(t *testing.T) {
	got, err := LoadConfig("testfiles/eval.toml")
	require.NoError(t, err)
	if got.Mode != Eval {
		t.Errorf("Mode: got %v, wanted %v\n", got.Mode, Eval)
	}
	if got.GeomFile != "testfiles/geom.dat" {
		t.Errorf("GeomFile: got %v, wanted %v\n", got.GeomFile,
			"testfiles/geom.dat")
	}
	if got.Chunk != 2 || got.Workers != 2 || got.Freeze != 1 || got.Seed != 7 {
		t.Errorf("got %+v\n", got)
	}
	want := obnet.Definition{
		NStates:    2,
		Irreds:     [][]int{{1, 2}, {2, 1}},
		Dimensions: [][]int{{5, 4, 1}, {5, 1}, {5, 3, 1}},
	}
	if !reflect.DeepEqual(got.Network, want) {
		t.Errorf("Network: got %v, wanted %v\n", got.Network, want)
	}
}

func TestToConfig(t *testing.T) {
	good := func() RawConf {
		return RawConf{
			Mode: "check", Eps: 1e-8, Step: 1e-5,
			Workers: 1, Chunk: 1, Order: 1,
			Toy: RawToy{
				C00: []float64{1, 0, 0},
				C01: []float64{0, 0},
				C11: []float64{1, 0, 0},
				Q:   []float64{0, 0},
			},
		}
	}
	_, err := good().ToConfig()
	require.NoError(t, err)
	tests := []struct {
		name   string
		modify func(*RawConf)
		want   error
	}{
		{"mode", func(rc *RawConf) { rc.Mode = "fit" }, ErrConfig},
		{"eps", func(rc *RawConf) { rc.Eps = 0 }, ErrConfig},
		{"workers", func(rc *RawConf) { rc.Workers = 0 }, ErrConfig},
		{"c01", func(rc *RawConf) { rc.Toy.C01 = []float64{1} }, ErrConfig},
		{"q", func(rc *RawConf) { rc.Toy.Q = nil }, ErrConfig},
		{"network", func(rc *RawConf) { rc.Mode = "eval" }, obnet.ErrDefinition},
		{"networkfile", func(rc *RawConf) {
			rc.NetworkFile = "testfiles/missing.toml"
		}, fs.ErrNotExist},
		{"bad networkfile", func(rc *RawConf) {
			rc.NetworkFile = "testfiles/geom.dat"
		}, nil},
	}
	for _, test := range tests {
		rc := good()
		test.modify(&rc)
		_, err := rc.ToConfig()
		if test.want == nil {
			if err == nil {
				t.Errorf("%s: got nil, wanted an error\n", test.name)
			}
			continue
		}
		if !errors.Is(err, test.want) {
			t.Errorf("%s: got %v, wanted %v\n", test.name, err, test.want)
		}
	}
}

func TestNetworkFile(t *testing.T) {
	rc := RawConf{
		Mode: "eval", Eps: 1e-8, Step: 1e-5,
		Workers: 1, Chunk: 1, Order: 2,
		NetworkFile: "testfiles/network.toml",
		Network:     obnet.Definition{NStates: 3},
		Toy: RawToy{
			C00: []float64{1, 0, 0},
			C01: []float64{0, 0},
			C11: []float64{1, 0, 0},
			Q:   []float64{0, 0},
		},
	}
	got, err := rc.ToConfig()
	require.NoError(t, err)
	want := obnet.Definition{
		NStates:    2,
		Irreds:     [][]int{{1, 2}, {2, 1}},
		Dimensions: [][]int{{5, 2, 1}, {5, 2, 1}, {5, 2, 1}},
	}
	if !reflect.DeepEqual(got.Network, want) {
		t.Errorf("got %v, wanted %v\n", got.Network, want)
	}
	ev, err := NewEvaluator(got, 2)
	require.NoError(t, err)
	require.Equal(t, 2, ev.Arena.Master().Hd.NStates())
}

func TestLoadGeoms(t *testing.T) {
	got, err := LoadGeoms("testfiles/geom.dat")
	require.NoError(t, err)
	want := [][]float64{
		{0.1, 0.2},
		{0.5, -0.3},
		{1.0, 0.4},
		{-0.7, 0.9},
		{0.25, 0.0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, wanted %v\n", got, want)
	}
	_, err = LoadGeoms("testfiles/missing.dat")
	require.Error(t, err)
}
