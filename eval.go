package main

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"bwestbro.com/hdfit/autodiff"
	"bwestbro.com/hdfit/dimred"
	"bwestbro.com/hdfit/hderiva"
	"bwestbro.com/hdfit/inputgen"
	"bwestbro.com/hdfit/obnet"
	"bwestbro.com/hdfit/symat"
)

// Result is the evaluation of the network at one geometry
type Result struct {
	Energies  []float64
	Gradients [][]float64
	// Rep is the basis DcNorm was taken in, Composite where the
	// adiabatic states are degenerate
	Rep hderiva.Representation
	// Vectors are the eigenvectors of that basis
	Vectors *mat.Dense
	// DcNorm is the norm of the parameter derivative of Ha or Hc
	DcNorm float64
	Err    error
}

// Evaluator computes the adiabatic energies, their gradients and the
// parameter derivatives of a Symat over a list of geometries
type Evaluator struct {
	NCoords int
	Gen     *inputgen.Generator
	// Arena replicates the network, and the encoder that reduces the
	// coordinates before the features are built when there is one
	Arena  *obnet.Arena
	Engine *hderiva.Engine
	Chunk  int
}

// NewEvaluator builds the network in conf with monomial inputs of
// ncoords coordinates
func NewEvaluator(conf Config, ncoords int) (*Evaluator, error) {
	if ncoords < 1 {
		return nil, errors.Wrapf(ErrConfig, "%d coordinates", ncoords)
	}
	rng := rand.New(rand.NewSource(conf.Seed))
	model := new(obnet.Model)
	nr := ncoords
	if dims := conf.Encoder; len(dims) > 0 {
		if len(dims) < 2 || dims[0] != ncoords {
			return nil, errors.Wrapf(ErrConfig,
				"encoder %v for %d coordinates", dims, ncoords)
		}
		for _, d := range dims {
			if d < 1 {
				return nil, errors.Wrapf(ErrConfig, "encoder %v", dims)
			}
		}
		model.Encoder = obnet.NewNet(dims, true, rng)
		nr = model.Encoder.Out()
	}
	gen := inputgen.New(nr, conf.Order)
	net, err := obnet.New(conf.Network, rng)
	if err != nil {
		return nil, err
	}
	var serr error
	net.InputSizes().Each(func(i, j, n int) {
		if serr == nil && n != gen.NFeatures() {
			serr = errors.Wrapf(ErrConfig,
				"element (%d, %d) takes %d inputs, order %d in %d coordinates gives %d",
				i, j, n, conf.Order, nr, gen.NFeatures())
		}
	})
	if serr != nil {
		return nil, serr
	}
	if conf.Freeze != 0 {
		net.Freeze(conf.Freeze)
	}
	model.Hd = net
	return &Evaluator{
		NCoords: ncoords,
		Gen:     gen,
		Arena:   obnet.NewArena(model, conf.Workers),
		Engine:  &hderiva.Engine{Eps: conf.Eps},
		Chunk:   conf.Chunk,
	}, nil
}

// derivs holds the diabatic quantities at one geometry
type derivs struct {
	hd, dx, dc *symat.Tensor
	// dcdx builds DcDxHd, which only the composite basis needs
	dcdx func() (*symat.Tensor, error)
}

// derivatives returns Hd, DxHd and DcHd at q, through the encoder of m
// when there is one. With an encoder the parameters are the encoder's
// followed by the network's
func (e *Evaluator) derivatives(m *obnet.Model, q []float64) (*derivs, error) {
	net := m.Hd
	r := q
	var red *hderiva.Reduction
	if m.Encoder != nil {
		var err error
		r, red, err = dimred.Encoder{Net: m.Encoder}.Reduce(q)
		if err != nil {
			return nil, err
		}
	}
	layers := e.Gen.Layers(net.NStates(), r)
	Hd, err := net.Forward(layers.Ls)
	if err != nil {
		return nil, err
	}
	ret := &derivs{hd: symat.NewTensor(net.NStates())}
	Hd.Each(func(i, j int, h *autodiff.Var) {
		ret.hd.Set(i, j, 0, h.Value())
	})
	if red == nil {
		if ret.dx, err = hderiva.DxHd(Hd, layers.Ls, layers.JlrTs); err != nil {
			return nil, err
		}
		ret.dc, err = hderiva.DcHd(Hd, net.Parameters())
		ret.dcdx = func() (*symat.Tensor, error) {
			graph, err := hderiva.DxHdGraph(Hd, layers.Ls, layers.JlrTs)
			if err != nil {
				return nil, err
			}
			return hderiva.DcDxHd(graph, net.Parameters())
		}
		return ret, err
	}
	if ret.dx, err = red.DxHd(Hd, layers); err != nil {
		return nil, err
	}
	ret.dc, err = red.DcHd(Hd, layers, net.Parameters())
	ret.dcdx = func() (*symat.Tensor, error) {
		return red.DcDxHd(Hd, layers, net.Parameters())
	}
	return ret, err
}

// composite returns the basis of the overlap at d and DcHc in it
func (e *Evaluator) composite(d *derivs) (*hderiva.Basis, *symat.Tensor, error) {
	b, err := hderiva.CompositeBasis(d.dx, nil)
	if err != nil {
		return nil, nil, err
	}
	hc, err := b.Represent(d.hd)
	if err != nil {
		return nil, nil, err
	}
	dcdx, err := d.dcdx()
	if err != nil {
		return nil, nil, err
	}
	dchc, err := e.Engine.DcHc(b, hc, d.dx, d.dc, dcdx)
	return b, dchc, err
}

// evalGeom evaluates m at the coordinates q. Degenerate adiabatic states
// take the parameter derivative in the composite basis instead
func (e *Evaluator) evalGeom(m *obnet.Model, q []float64) (res Result) {
	d, err := e.derivatives(m, q)
	if err != nil {
		res.Err = err
		return
	}
	b, err := hderiva.AdiabaticBasis(d.hd)
	if err != nil {
		res.Err = err
		return
	}
	res.Energies = b.Values
	if res.Gradients, err = hderiva.EnergyGradients(b, d.dx); err != nil {
		res.Err = err
		return
	}
	dch, err := e.Engine.DcHa(b, d.dc)
	if errors.Is(err, hderiva.ErrDegenerateBasis) {
		b, dch, err = e.composite(d)
	}
	if err != nil {
		res.Err = err
		return
	}
	res.Rep = b.Rep
	res.Vectors = b.Vectors
	res.DcNorm = symat.Norm(dch)
	return
}

// Run evaluates every geometry in chunks of e.Chunk, giving each worker
// its own replica of the network. Results are in the order of geoms
func (e *Evaluator) Run(geoms [][]float64) ([]Result, error) {
	for i, g := range geoms {
		if len(g) != e.NCoords {
			return nil, errors.Wrapf(ErrConfig,
				"geometry %d has %d coordinates, wanted %d",
				i, len(g), e.NCoords)
		}
	}
	if err := e.Arena.Broadcast(); err != nil {
		return nil, err
	}
	ret := make([]Result, len(geoms))
	for start := 0; start < len(geoms); start += e.Chunk {
		end := min(start+e.Chunk, len(geoms))
		idx := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < e.Arena.Len(); w++ {
			wg.Add(1)
			go func(m *obnet.Model) {
				defer wg.Done()
				for i := range idx {
					ret[i] = e.evalGeom(m, geoms[i])
				}
			}(e.Arena.Replica(w))
		}
		for i := start; i < end; i++ {
			idx <- i
		}
		close(idx)
		wg.Wait()
		if *debug {
			log.Printf("finished geometries %d to %d\n", start, end-1)
		}
	}
	return ret, nil
}

// WriteResults prints a table of energies, gradient norms and parameter
// derivative norms, one row per geometry, followed by a summary over the
// geometries
func WriteResults(w io.Writer, results []Result) {
	if len(results) == 0 {
		return
	}
	var nstates int
	for _, r := range results {
		nstates = max(nstates, len(r.Energies))
	}
	fmt.Fprintf(w, "%5s", "Geom")
	for s := 0; s < nstates; s++ {
		fmt.Fprintf(w, "%14s%14s", fmt.Sprintf("E%d", s), fmt.Sprintf("|dE%d|", s))
	}
	fmt.Fprintf(w, "%14s%11s\n", "|DcH|", "Basis")
	var (
		lowest []float64
		dcs    []float64
	)
	for i, r := range results {
		fmt.Fprintf(w, "%5d", i)
		if r.Err != nil {
			fmt.Fprintf(w, " %v\n", r.Err)
			continue
		}
		for s := range r.Energies {
			fmt.Fprintf(w, "%14.8f%14.8f", r.Energies[s],
				floats.Norm(r.Gradients[s], 2))
		}
		fmt.Fprintf(w, "%14.8f%11v\n", r.DcNorm, r.Rep)
		lowest = append(lowest, r.Energies[0])
		dcs = append(dcs, r.DcNorm)
	}
	e, d := Summarize(lowest), Summarize(dcs)
	fmt.Fprintf(w, "\n%d of %d geometries evaluated\n", len(lowest), len(results))
	fmt.Fprintf(w, "E0:     mean %14.8f std %14.8f\n", e.Mean, e.StdDev)
	fmt.Fprintf(w, "|DcH|:  mean %14.8f std %14.8f\n", d.Mean, d.StdDev)
}
