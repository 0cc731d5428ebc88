package node

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/cxd309/mbcontact/internal/contact"
	"github.com/cxd309/mbcontact/internal/modelerr"
	"github.com/cxd309/mbcontact/internal/state"
)

// affineContact stands in for the contact dynamics: it publishes a contact
// whose force is affine in the state and control deviation of the node.
type affineContact struct {
	data contact.Data
	f0   []float64
	dfdx *mat.Dense
	dfdu *mat.Dense // nil when nu == 0
}

func newAffineContact(st *state.Multibody, spec ContactSpec, nu int) (*affineContact, error) {
	model := st.Model()
	frame, ok := model.FrameID(spec.Frame)
	if !ok {
		return nil, modelerr.Configuration("contact %q: frame %q not found", spec.Name, spec.Frame)
	}
	fr, err := model.Frame(frame)
	if err != nil {
		return nil, err
	}

	ndx := st.NDX()
	var d contact.Data
	switch spec.Kind {
	case "", contact.KindWrench.String():
		d = contact.NewWrenchData(frame, fr.Placement, ndx, nu)
	case contact.KindPoint.String():
		d = contact.NewPointData(frame, fr.Placement, ndx, nu)
	default:
		return nil, modelerr.Configuration("contact %q: unknown kind %q", spec.Name, spec.Kind)
	}
	dim := d.Kind().Dim()
	if len(spec.Force) != dim {
		return nil, modelerr.Dimension(spec.Frame, "contact %q: %s force needs %d entries, got %d", spec.Name, d.Kind(), dim, len(spec.Force))
	}
	dfdx, err := rows(spec.DfDx, dim, ndx)
	if err != nil {
		return nil, modelerr.Dimension(spec.Frame, "contact %q: dfdx: %v", spec.Name, err)
	}
	var dfdu *mat.Dense
	if nu > 0 {
		if dfdu, err = rows(spec.DfDu, dim, nu); err != nil {
			return nil, modelerr.Dimension(spec.Frame, "contact %q: dfdu: %v", spec.Name, err)
		}
	} else if len(spec.DfDu) > 0 {
		return nil, modelerr.Dimension(spec.Frame, "contact %q: dfdu given for a node without control", spec.Name)
	}
	return &affineContact{
		data: d,
		f0:   append([]float64(nil), spec.Force...),
		dfdx: dfdx,
		dfdu: dfdu,
	}, nil
}

// rows builds an r x c matrix from row slices; no rows means zero.
func rows(data [][]float64, r, c int) (*mat.Dense, error) {
	m := mat.NewDense(r, c, nil)
	if len(data) == 0 {
		return m, nil
	}
	if len(data) != r {
		return nil, fmt.Errorf("want %d rows, got %d", r, len(data))
	}
	for i, row := range data {
		if len(row) != c {
			return nil, fmt.Errorf("row %d: want %d columns, got %d", i, c, len(row))
		}
		m.SetRow(i, row)
	}
	return m, nil
}

// apply sets the contact force for the deviation dx, du and publishes the
// derivatives.
func (c *affineContact) apply(dx, du []float64) {
	fd := c.data.Force()
	for i, f := range c.f0 {
		for j, d := range dx {
			f += c.dfdx.At(i, j) * d
		}
		for j, d := range du {
			f += c.dfdu.At(i, j) * d
		}
		fd.F.SetVec(i, f)
	}
	fd.DfDx.Copy(c.dfdx)
	if c.dfdu != nil {
		fd.DfDu.Copy(c.dfdu)
	}
}
