package main

import (
	"bufio"
	"os"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"bwestbro.com/hdfit/hderiva"
	"bwestbro.com/hdfit/obnet"
	"bwestbro.com/hdfit/toyhd"
)

var ErrConfig = errors.New("invalid configuration")

type Mode int

const (
	Check Mode = iota
	Eval
)

func (m Mode) String() string {
	switch m {
	case Check:
		return "check"
	case Eval:
		return "eval"
	}
	return "unknown"
}

type RawToy struct {
	C00 []float64
	C01 []float64
	C11 []float64
	Q   []float64
}

type RawConf struct {
	Mode     string
	Seed     int64
	Eps      float64
	Step     float64
	Workers  int
	Chunk    int
	GeomFile string
	Order    int
	Freeze   int
	Encoder  []int
	Network  obnet.Definition
	// NetworkFile replaces Network with the definition in a separate
	// file
	NetworkFile string
	Toy         RawToy
}

// toyParams copies src into dst after checking its length
func toyParams(dst []float64, src []float64, name string) error {
	if len(src) != len(dst) {
		return errors.Wrapf(ErrConfig, "toy %s has %d values, wanted %d",
			name, len(src), len(dst))
	}
	copy(dst, src)
	return nil
}

func (rc RawConf) ToConfig() (conf Config, err error) {
	switch strings.ToLower(rc.Mode) {
	case "check":
		conf.Mode = Check
	case "eval":
		conf.Mode = Eval
	default:
		return conf, errors.Wrapf(ErrConfig, "unknown mode %q", rc.Mode)
	}
	if rc.Eps <= 0 || rc.Step <= 0 {
		return conf, errors.Wrapf(ErrConfig,
			"eps = %g and step = %g must be positive", rc.Eps, rc.Step)
	}
	if rc.Workers < 1 || rc.Chunk < 1 || rc.Order < 1 {
		return conf, errors.Wrapf(ErrConfig,
			"workers = %d, chunk = %d and order = %d must be positive",
			rc.Workers, rc.Chunk, rc.Order)
	}
	conf.Seed = rc.Seed
	conf.Eps = rc.Eps
	conf.Step = rc.Step
	conf.Workers = rc.Workers
	conf.Chunk = rc.Chunk
	conf.GeomFile = rc.GeomFile
	conf.Order = rc.Order
	conf.Freeze = rc.Freeze
	conf.Encoder = rc.Encoder

	if err := toyParams(conf.Toy.C00[:], rc.Toy.C00, "c00"); err != nil {
		return conf, err
	}
	if err := toyParams(conf.Toy.C01[:], rc.Toy.C01, "c01"); err != nil {
		return conf, err
	}
	if err := toyParams(conf.Toy.C11[:], rc.Toy.C11, "c11"); err != nil {
		return conf, err
	}
	conf.Q = make([]float64, toyhd.NCoords)
	if err := toyParams(conf.Q, rc.Toy.Q, "q"); err != nil {
		return conf, err
	}

	if rc.NetworkFile != "" {
		def, err := obnet.LoadDefinition(rc.NetworkFile)
		if err != nil {
			return conf, err
		}
		rc.Network = def
	}
	// the network is only needed to evaluate
	if conf.Mode == Eval {
		if err := rc.Network.Validate(); err != nil {
			return conf, err
		}
	}
	conf.Network = rc.Network
	return conf, nil
}

type Config struct {
	Mode     Mode
	Seed     int64
	Eps      float64
	Step     float64
	Workers  int
	Chunk    int
	GeomFile string
	// Order is the highest degree of the input monomials
	Order int
	// Freeze is the number of leading layers to freeze in every
	// element network
	Freeze int
	// Encoder lists the layer sizes of the coordinate reduction, empty
	// for none
	Encoder []int
	Network obnet.Definition
	Toy     toyhd.Model
	Q       []float64
}

func LoadConfig(filename string) (Config, error) {
	cont, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading %s", filename)
	}
	// Defaults
	rc := RawConf{
		Mode:     "check",
		Seed:     1,
		Eps:      hderiva.DefaultEps,
		Step:     toyhd.DefaultStep,
		Workers:  runtime.NumCPU(),
		Chunk:    CHUNK,
		GeomFile: "geom.dat",
		Order:    2,
		Toy: RawToy{
			C00: []float64{1, 0, 0},
			C01: []float64{0.5, 0},
			C11: []float64{1, 0, 0},
			Q:   []float64{1, 1},
		},
	}
	err = toml.Unmarshal(cont, &rc)
	if err != nil {
		return Config{}, errors.Wrapf(err, "decoding %s", filename)
	}
	return rc.ToConfig()
}

// LoadGeoms reads the geometries in filename. Geometries are separated
// by lines containing "#", and the first line is a header
func LoadGeoms(filename string) (ret [][]float64, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", filename)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var line string
	row := make([]float64, 0, 3)
	scanner.Scan() // discard first "# GEOM" line
	for scanner.Scan() {
		line = scanner.Text()
		if strings.Contains(line, "#") {
			ret = append(ret, row)
			row = make([]float64, 0, len(row))
		} else {
			fields := strings.Fields(line)
			vals, err := toFloat(fields)
			if err != nil {
				return nil, errors.Wrapf(err, "reading %s", filename)
			}
			row = append(row, vals...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", filename)
	}
	if len(row) > 0 {
		ret = append(ret, row)
	}
	return ret, nil
}
