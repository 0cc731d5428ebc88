package node

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/cxd309/mbcontact/internal/collector"
	"github.com/cxd309/mbcontact/internal/contact"
	"github.com/cxd309/mbcontact/internal/cost"
	"github.com/cxd309/mbcontact/internal/impulse"
	"github.com/cxd309/mbcontact/internal/kinematics"
	"github.com/cxd309/mbcontact/internal/modelerr"
	"github.com/cxd309/mbcontact/internal/numdiff"
	"github.com/cxd309/mbcontact/internal/state"
)

// Stage describes how far a node has been evaluated.
type Stage string

const (
	StageBuilt    Stage = "built"
	StageCalc     Stage = "calc"
	StageCalcDiff Stage = "calc_diff"
)

type costTerm struct {
	name   string
	weight float64
	model  *cost.CoPPositionModel
	data   *cost.Data
}

// Node is a Spec enriched with the data of its contacts, impulses and costs.
// A Node is not safe for concurrent use; different nodes are independent.
type Node struct {
	Spec
	Stage Stage

	Cost float64
	Lx   *mat.VecDense // ndx
	Lu   *mat.VecDense // nu; nil when nu == 0
	Lxx  *mat.Dense    // ndx x ndx
	Lxu  *mat.Dense    // ndx x nu
	Luu  *mat.Dense    // nu x nu

	state  *state.Multibody
	kin    *kinematics.Data
	shared collector.KinematicsSource

	contacts     []*affineContact
	registry     *contact.Registry
	impulses     *impulse.Multiple
	impulseData  *impulse.MultipleData
	impulseForce []float64
	costs        []costTerm

	x0, u0 []float64
	dx, du []float64
	hxx    *mat.Dense
	hxu    *mat.Dense
	huu    *mat.Dense
}

// New builds the node described by spec on st. All models and data are
// created here; the returned node evaluates without allocating model data.
func New(st *state.Multibody, spec Spec) (*Node, error) {
	model := st.Model()
	nq, nv, ndx := st.NQ(), st.NV(), st.NDX()
	if nv == 0 {
		return nil, modelerr.Configuration("node %q: model has no joints", spec.NodeID)
	}
	if len(spec.Q) != nq || len(spec.V) != nv {
		return nil, modelerr.Dimension("", "node %q: got q/v of length %d/%d, model has nq=%d nv=%d", spec.NodeID, len(spec.Q), len(spec.V), nq, nv)
	}
	if len(spec.Contacts) > 0 && len(spec.Impulses) > 0 {
		return nil, modelerr.Configuration("node %q: a node has either contacts or impulses", spec.NodeID)
	}
	nu := len(spec.U)
	if len(spec.Impulses) > 0 && nu > 0 {
		return nil, modelerr.Configuration("node %q: impulse nodes take no control", spec.NodeID)
	}

	n := &Node{
		Spec:     spec,
		Stage:    StageBuilt,
		Lx:       mat.NewVecDense(ndx, nil),
		Lxx:      mat.NewDense(ndx, ndx, nil),
		state:    st,
		kin:      model.CreateData(),
		registry: contact.NewRegistry(),
		x0:       append(append(make([]float64, 0, nq+nv), spec.Q...), spec.V...),
		u0:       append([]float64(nil), spec.U...),
		dx:       make([]float64, ndx),
		du:       make([]float64, nu),
		hxx:      mat.NewDense(ndx, ndx, nil),
	}
	if nu > 0 {
		n.Lu = mat.NewVecDense(nu, nil)
		n.Lxu = mat.NewDense(ndx, nu, nil)
		n.Luu = mat.NewDense(nu, nu, nil)
		n.hxu = mat.NewDense(ndx, nu, nil)
		n.huu = mat.NewDense(nu, nu, nil)
	}

	for _, cs := range spec.Contacts {
		c, err := newAffineContact(st, cs, nu)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", spec.NodeID, err)
		}
		if err := n.registry.Add(cs.Name, c.data); err != nil {
			return nil, fmt.Errorf("node %q: %w", spec.NodeID, err)
		}
		n.contacts = append(n.contacts, c)
	}

	switch {
	case len(spec.Impulses) > 0:
		if err := n.buildImpulses(); err != nil {
			return nil, fmt.Errorf("node %q: %w", spec.NodeID, err)
		}
		n.shared = collector.NewImpulseMultibody(n.kin, n.impulseData.Registry)
	case nu > 0:
		n.shared = collector.NewContactActMultibody(n.kin, collector.NewActuationData(nv, ndx, nu), n.registry)
	default:
		n.shared = collector.NewContactMultibody(n.kin, n.registry)
	}

	for _, cs := range spec.Costs {
		term, err := n.buildCost(cs, nu)
		if err != nil {
			return nil, fmt.Errorf("node %q: cost %q: %w", spec.NodeID, cs.Name, err)
		}
		n.costs = append(n.costs, term)
	}
	return n, nil
}

func (n *Node) buildImpulses() error {
	model := n.state.Model()
	n.impulses = impulse.NewMultiple(n.state)
	for _, is := range n.Impulses {
		frame, ok := model.FrameID(is.Frame)
		if !ok {
			return modelerr.Configuration("impulse %q: frame %q not found", is.Name, is.Frame)
		}
		ref := kinematics.Local
		if is.Reference != "" {
			var err error
			if ref, err = kinematics.ParseReferenceFrame(is.Reference); err != nil {
				return fmt.Errorf("impulse %q: %w", is.Name, err)
			}
		}
		imp, err := impulse.NewModel6D(n.state, frame, ref)
		if err != nil {
			return fmt.Errorf("impulse %q: %w", is.Name, err)
		}
		if len(is.Force) != impulse.Dim {
			return modelerr.Dimension(is.Frame, "impulse %q: force needs %d entries, got %d", is.Name, impulse.Dim, len(is.Force))
		}
		if err := n.impulses.Add(is.Name, imp); err != nil {
			return err
		}
		n.impulseForce = append(n.impulseForce, is.Force...)
	}
	d, err := n.impulses.CreateData(collector.NewMultibody(n.kin))
	if err != nil {
		return err
	}
	n.impulseData = d
	return nil
}

func (n *Node) buildCost(cs CoPCostSpec, nu int) (costTerm, error) {
	frame, ok := n.state.Model().FrameID(cs.Frame)
	if !ok {
		return costTerm{}, modelerr.Configuration("frame %q not found", cs.Frame)
	}
	normal := mgl64.Vec3{0, 0, 1}
	if cs.Normal != nil {
		normal = mgl64.Vec3(*cs.Normal)
	}
	weight := 1.0
	if cs.Weight != nil {
		weight = *cs.Weight
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return costTerm{}, modelerr.Configuration("weight must be finite and non-negative, got %g", weight)
	}
	act, err := cs.Activation.Build(cost.CoPResidualSize)
	if err != nil {
		return costTerm{}, err
	}
	support, err := cost.NewCoPSupport(frame, cs.HalfExtents, normal)
	if err != nil {
		return costTerm{}, err
	}
	model, err := cost.NewCoPPosition(n.state, act, support, nu)
	if err != nil {
		return costTerm{}, err
	}
	data, err := model.CreateData(n.shared)
	if err != nil {
		return costTerm{}, err
	}
	return costTerm{name: cs.Name, weight: weight, model: model, data: data}, nil
}

// Evaluate runs calc then calcDiff at the node's own state and control.
func (n *Node) Evaluate() {
	n.calc(n.x0, n.u0)
	n.calcDiff(n.x0, n.u0)
}

// CostAt returns the total cost at x, u. It leaves the node in StageCalc for
// x, u; call Evaluate to return to the node's own state.
func (n *Node) CostAt(x, u []float64) float64 {
	n.calc(x, u)
	return n.Cost
}

func (n *Node) calc(x, u []float64) {
	q, v := n.state.Split(x)
	model := n.state.Model()
	model.ForwardKinematics(n.kin, q, v)
	model.UpdateFramePlacements(n.kin)

	n.state.Diff(n.dx, n.x0, x)
	for i := range n.du {
		n.du[i] = u[i] - n.u0[i]
	}
	for _, c := range n.contacts {
		c.apply(n.dx, n.du)
	}
	if n.impulses != nil {
		n.impulses.Calc(n.impulseData, x)
		n.impulses.UpdateForce(n.impulseData, n.impulseForce)
	}

	n.Cost = 0
	for _, t := range n.costs {
		t.model.Calc(t.data, x, u)
		n.Cost += t.weight * t.data.Cost
	}
	n.Stage = StageCalc
}

func (n *Node) calcDiff(x, u []float64) {
	if n.impulses != nil {
		n.impulses.CalcDiff(n.impulseData, x)
	}
	n.Lx.Zero()
	n.Lxx.Zero()
	if n.Lu != nil {
		n.Lu.Zero()
		n.Lxu.Zero()
		n.Luu.Zero()
	}
	for _, t := range n.costs {
		t.model.CalcDiff(t.data, x, u)
		n.Lx.AddScaledVec(n.Lx, t.weight, t.data.Lx)
		n.hxx.Scale(t.weight, t.data.Lxx)
		n.Lxx.Add(n.Lxx, n.hxx)
		if n.Lu != nil {
			n.Lu.AddScaledVec(n.Lu, t.weight, t.data.Lu)
			n.hxu.Scale(t.weight, t.data.Lxu)
			n.Lxu.Add(n.Lxu, n.hxu)
			n.huu.Scale(t.weight, t.data.Luu)
			n.Luu.Add(n.Luu, n.huu)
		}
	}
	n.Stage = StageCalcDiff
}

// Registry returns the contacts or impulses active at the node.
func (n *Node) Registry() *contact.Registry {
	if n.impulseData != nil {
		return n.impulseData.Registry
	}
	return n.registry
}

// CheckReport holds the worst relative errors between analytic derivatives
// and central finite differences at a node.
type CheckReport struct {
	NodeID          NodeID  `json:"node_id"`
	CostGradient    float64 `json:"cost_gradient"`
	ImpulseVelocity float64 `json:"impulse_velocity"`
}

// Check compares the cost gradient and the impulse velocity derivatives
// against central finite differences with step h, then re-evaluates the
// node at its own state.
func (n *Node) Check(h float64) CheckReport {
	rep := CheckReport{NodeID: n.NodeID}
	n.Evaluate()
	lx := mat.VecDenseCopyOf(n.Lx)
	gx := numdiff.Gradient(func(x []float64) float64 { return n.CostAt(x, n.u0) }, n.x0, h)
	rep.CostGradient = numdiff.MaxRelativeError(lx, mat.NewVecDense(len(gx), gx))
	if n.Lu != nil {
		n.Evaluate()
		lu := mat.VecDenseCopyOf(n.Lu)
		gu := numdiff.Gradient(func(u []float64) float64 { return n.CostAt(n.x0, u) }, n.u0, h)
		rep.CostGradient = math.Max(rep.CostGradient, numdiff.MaxRelativeError(lu, mat.NewVecDense(len(gu), gu)))
	}

	if n.impulses != nil {
		n.Evaluate()
		dv := mat.DenseCopyOf(n.impulseData.Dv0Dq)
		nq := n.state.NQ()
		x := append([]float64(nil), n.x0...)
		fd := numdiff.Jacobian(func(dst, q []float64) {
			copy(x[:nq], q)
			n.calc(x, n.u0)
			for i, d := range n.impulseData.Impulses {
				v0 := d.V0.Array()
				copy(dst[impulse.Dim*i:], v0[:])
			}
		}, n.x0[:nq], n.impulses.NI(), h)
		rep.ImpulseVelocity = numdiff.MaxRelativeError(dv, fd)
	}
	n.Evaluate()
	return rep
}

// CostLog is the evaluated state of one cost term.
type CostLog struct {
	Name     string     `json:"name"`
	Frame    string     `json:"frame"`
	Weight   float64    `json:"weight"`
	Cost     float64    `json:"cost"`
	Residual [4]float64 `json:"residual"`
	// Margins are the residual divided by the normal force, in metres. They
	// are absent when the normal force is not positive.
	Margins *[4]float64 `json:"margins,omitempty"`
}

// ImpulseLog is the evaluated state of one impulse.
type ImpulseLog struct {
	Name      string     `json:"name"`
	Frame     string     `json:"frame"`
	Reference string     `json:"reference"`
	V0        [6]float64 `json:"v0"`
	Fext      [6]float64 `json:"fext"`
}

// Log is the serialisable snapshot of an evaluated node.
type Log struct {
	NodeID   NodeID       `json:"node_id"`
	Stage    Stage        `json:"stage"`
	Cost     float64      `json:"cost"`
	Lx       []float64    `json:"lx"`
	Lu       []float64    `json:"lu,omitempty"`
	Costs    []CostLog    `json:"costs,omitempty"`
	Impulses []ImpulseLog `json:"impulses,omitempty"`
}

// Log returns a snapshot of the node's current data.
func (n *Node) Log() Log {
	l := Log{
		NodeID: n.NodeID,
		Stage:  n.Stage,
		Cost:   n.Cost,
		Lx:     append([]float64(nil), n.Lx.RawVector().Data...),
	}
	if n.Lu != nil {
		l.Lu = append([]float64(nil), n.Lu.RawVector().Data...)
	}
	for _, t := range n.costs {
		cl := CostLog{
			Name:   t.name,
			Frame:  t.model.FrameName(),
			Weight: t.weight,
			Cost:   t.data.Cost,
		}
		copy(cl.Residual[:], t.data.R.RawVector().Data)
		if m, ok := t.data.Margins(); ok {
			cl.Margins = &m
		}
		l.Costs = append(l.Costs, cl)
	}
	if n.impulses != nil {
		for i, it := range n.impulses.Items() {
			d := n.impulseData.Impulses[i]
			l.Impulses = append(l.Impulses, ImpulseLog{
				Name:      it.Name,
				Frame:     it.Impulse.FrameName(),
				Reference: it.Impulse.Reference().String(),
				V0:        d.V0.Array(),
				Fext:      d.Fext.Array(),
			})
		}
	}
	return l
}
