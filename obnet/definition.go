package obnet

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"bwestbro.com/hdfit/hderiva"
)

// Errors. Both also match their hderiva counterparts under errors.Is
var (
	ErrDefinition = errors.WithMessage(hderiva.ErrInvalidArgument,
		"invalid network definition")
	ErrInput = errors.WithMessage(hderiva.ErrShape, "invalid network input")
)

// Definition describes a Symat:
//
//	nstates = 2
//	irreds = [[1, 2], [2, 1]]
//	dimensions = [[3, 4, 1], [2, 1], [3, 4, 1]]
//
// Irreds are 1-based with 1 the totally symmetric irreducible, given
// for the full matrix. Dimensions lists the layer sizes of every upper
// triangle element row by row.
type Definition struct {
	NStates    int     `toml:"nstates"`
	Irreds     [][]int `toml:"irreds"`
	Dimensions [][]int `toml:"dimensions"`
}

// ParseDefinition decodes a TOML definition and validates it
func ParseDefinition(data string) (Definition, error) {
	var def Definition
	if _, err := toml.Decode(data, &def); err != nil {
		return def, errors.Wrap(err, "decoding network definition")
	}
	return def, def.Validate()
}

func LoadDefinition(filename string) (Definition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Definition{}, errors.Wrapf(err, "reading %s", filename)
	}
	return ParseDefinition(string(data))
}

func (d Definition) Validate() error {
	if d.NStates <= 0 {
		return errors.Wrapf(ErrDefinition, "%d states", d.NStates)
	}
	if len(d.Irreds) != d.NStates {
		return errors.Wrapf(ErrDefinition,
			"%d rows of irreducibles for %d states", len(d.Irreds), d.NStates)
	}
	for i, row := range d.Irreds {
		if len(row) != d.NStates {
			return errors.Wrapf(ErrDefinition, "irreducible row %d has %d entries",
				i, len(row))
		}
	}
	for i, row := range d.Irreds {
		for j, v := range row {
			if v < 1 {
				return errors.Wrapf(ErrDefinition,
					"irreducible (%d, %d) = %d, irreducibles count from 1", i, j, v)
			}
			if d.Irreds[j][i] != v {
				return errors.Wrapf(ErrDefinition,
					"irreducibles are not symmetric at (%d, %d)", i, j)
			}
		}
	}
	if want := d.NStates * (d.NStates + 1) / 2; len(d.Dimensions) != want {
		return errors.Wrapf(ErrDefinition,
			"%d element networks for %d upper triangle elements",
			len(d.Dimensions), want)
	}
	return nil
}

func (d Definition) irreducibles() [][]int {
	ret := make([][]int, d.NStates)
	for i, row := range d.Irreds {
		ret[i] = make([]int, len(row))
		for j, v := range row {
			ret[i][j] = v - 1
		}
	}
	return ret
}
