package obnet

import (
	"github.com/pkg/errors"

	"bwestbro.com/hdfit/autodiff"
)

// Model is what a worker evaluates: the Hd network and the encoder in
// front of it, if any
type Model struct {
	// Encoder is nil when the coordinates feed the inputs directly
	Encoder *Net
	Hd      *Symat
}

func (m *Model) encoderParams() []*autodiff.Var {
	if m.Encoder == nil {
		return nil
	}
	return m.Encoder.Parameters()
}

func (m *Model) NParams() int {
	return len(m.encoderParams()) + m.Hd.NParams()
}

// Clone returns a deep copy sharing no leaves with m
func (m *Model) Clone() *Model {
	ret := &Model{Hd: m.Hd.Clone()}
	if m.Encoder != nil {
		ret.Encoder = m.Encoder.Clone()
	}
	return ret
}

// Values returns the encoder parameters followed by those of Hd, the
// order of the parameter derivatives
func (m *Model) Values() []float64 {
	return append(autodiff.Values(m.encoderParams()), m.Hd.Values()...)
}

// SetValues overwrites the parameters in Values order
func (m *Model) SetValues(v []float64) error {
	enc := m.encoderParams()
	if len(v) != m.NParams() {
		return errors.Wrapf(ErrInput, "%d values for %d parameters",
			len(v), m.NParams())
	}
	for k, p := range enc {
		p.SetValue(v[k])
	}
	return m.Hd.SetValues(v[len(enc):])
}

// Arena keeps one replica of a master model per worker. Replicas share
// no leaves with the master or each other, so workers may build and
// differentiate graphs concurrently. Parameter updates go to the master
// and reach the replicas only through Broadcast, which must not run
// while a worker is using its replica.
type Arena struct {
	master   *Model
	replicas []*Model
}

func NewArena(master *Model, workers int) *Arena {
	if workers < 1 {
		workers = 1
	}
	ret := &Arena{master: master, replicas: make([]*Model, workers)}
	for i := range ret.replicas {
		ret.replicas[i] = master.Clone()
	}
	return ret
}

func (a *Arena) Len() int { return len(a.replicas) }

func (a *Arena) Master() *Model { return a.master }

// Replica returns the model owned by worker i
func (a *Arena) Replica(i int) *Model { return a.replicas[i] }

// Broadcast copies the master parameters into every replica
func (a *Arena) Broadcast() error {
	vals := a.master.Values()
	for _, r := range a.replicas {
		if err := r.SetValues(vals); err != nil {
			return err
		}
	}
	return nil
}
