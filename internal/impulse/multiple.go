package impulse

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/cxd309/mbcontact/internal/collector"
	"github.com/cxd309/mbcontact/internal/contact"
	"github.com/cxd309/mbcontact/internal/modelerr"
	"github.com/cxd309/mbcontact/internal/spatial"
	"github.com/cxd309/mbcontact/internal/state"
)

// Item is a named impulse of a Multiple.
type Item struct {
	Name    string
	Impulse *Model6D
}

// Multiple stacks several impulses of the same state. Rows of the stacked
// quantities follow insertion order.
type Multiple struct {
	state  *state.Multibody
	items  []Item
	byName map[string]int
}

// NewMultiple returns an empty impulse stack for st.
func NewMultiple(st *state.Multibody) *Multiple {
	return &Multiple{state: st, byName: make(map[string]int)}
}

// Add appends an impulse. Names must be unique and the impulse must belong to
// the same state.
func (m *Multiple) Add(name string, imp *Model6D) error {
	if imp == nil {
		return modelerr.Configuration("impulse %q: nil model", name)
	}
	if _, exists := m.byName[name]; exists {
		return modelerr.Configuration("impulse %q already exists", name)
	}
	if imp.state != m.state {
		return modelerr.Configuration("impulse %q: built for a different state", name)
	}
	m.byName[name] = len(m.items)
	m.items = append(m.items, Item{Name: name, Impulse: imp})
	return nil
}

// NI returns the total number of impulse components.
func (m *Multiple) NI() int { return Dim * len(m.items) }

// Items returns the impulses in insertion order.
func (m *Multiple) Items() []Item { return m.items }

// MultipleData is the per-node workspace of a Multiple.
type MultipleData struct {
	Impulses []*Data6D
	// Registry publishes the impulse of every item under its name, so that
	// wrench-based costs can resolve them like contacts.
	Registry *contact.Registry

	Jc     *mat.Dense      // ni x nv
	Dv0Dq  *mat.Dense      // ni x nv
	Fext   []spatial.Force // per joint
	DtauDq *mat.Dense      // nv x nv

	jcRows  []*mat.Dense
	dv0Rows []*mat.Dense
}

// CreateData creates the data of every impulse against shared and registers
// their wrenches. It fails if two impulses act on the same frame.
func (m *Multiple) CreateData(shared collector.KinematicsSource) (*MultipleData, error) {
	if len(m.items) == 0 {
		return nil, modelerr.Configuration("impulse stack is empty")
	}
	nv := m.state.NV()
	d := &MultipleData{
		Registry: contact.NewRegistry(),
		Jc:       mat.NewDense(m.NI(), nv, nil),
		Dv0Dq:    mat.NewDense(m.NI(), nv, nil),
		Fext:     make([]spatial.Force, m.state.Model().NJoints()),
		DtauDq:   mat.NewDense(nv, nv, nil),
	}
	for i, it := range m.items {
		id, err := it.Impulse.CreateData(shared)
		if err != nil {
			return nil, fmt.Errorf("impulse %q: %w", it.Name, err)
		}
		if err := d.Registry.Add(it.Name, id.Wrench); err != nil {
			return nil, err
		}
		d.Impulses = append(d.Impulses, id)
		d.jcRows = append(d.jcRows, d.Jc.Slice(Dim*i, Dim*(i+1), 0, nv).(*mat.Dense))
		d.dv0Rows = append(d.dv0Rows, d.Dv0Dq.Slice(Dim*i, Dim*(i+1), 0, nv).(*mat.Dense))
	}
	return d, nil
}

// Calc runs every impulse and stacks their Jacobians.
func (m *Multiple) Calc(d *MultipleData, x []float64) {
	for i, it := range m.items {
		it.Impulse.Calc(d.Impulses[i], x)
		d.jcRows[i].Copy(d.Impulses[i].Jc)
	}
}

// CalcDiff runs every impulse's CalcDiff and stacks the velocity
// derivatives.
func (m *Multiple) CalcDiff(d *MultipleData, x []float64) {
	for i, it := range m.items {
		it.Impulse.CalcDiff(d.Impulses[i], x)
		d.dv0Rows[i].Copy(d.Impulses[i].Dv0Dq)
	}
}

// UpdateForce splits the stacked impulse into its items, accumulates the
// external forces per joint and sums the torque derivatives. force must
// have length NI.
func (m *Multiple) UpdateForce(d *MultipleData, force []float64) {
	if len(force) != m.NI() {
		panic(fmt.Sprintf("impulse stack: got force of length %d, want %d", len(force), m.NI()))
	}
	for j := range d.Fext {
		d.Fext[j] = spatial.Force{}
	}
	d.DtauDq.Zero()
	for i, it := range m.items {
		id := d.Impulses[i]
		it.Impulse.UpdateForce(id, force[Dim*i:Dim*(i+1)])
		d.Fext[it.Impulse.parent] = d.Fext[it.Impulse.parent].Add(id.Fext)
		d.DtauDq.Add(d.DtauDq, id.DtauDq)
	}
}

// UpdateForceDiff distributes the stacked force derivative (ni x ndx) to the
// items.
func (m *Multiple) UpdateForceDiff(d *MultipleData, dfdx *mat.Dense) {
	_, c := dfdx.Dims()
	for i, it := range m.items {
		it.Impulse.UpdateForceDiff(d.Impulses[i], dfdx.Slice(Dim*i, Dim*(i+1), 0, c))
	}
}
