// Package impulse implements rigid six-DOF impulse models: the velocity
// constraint a frame is subject to at an impulsive contact transition and
// the mapping of the solved impulse back to joint space.
package impulse

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/cxd309/mbcontact/internal/collector"
	"github.com/cxd309/mbcontact/internal/contact"
	"github.com/cxd309/mbcontact/internal/kinematics"
	"github.com/cxd309/mbcontact/internal/modelerr"
	"github.com/cxd309/mbcontact/internal/spatial"
	"github.com/cxd309/mbcontact/internal/state"
)

// Dim is the number of impulse components of a Model6D.
const Dim = 6

// Model6D constrains the full spatial velocity of a frame.
type Model6D struct {
	state     *state.Multibody
	frame     kinematics.FrameIndex
	frameName string
	parent    kinematics.JointIndex
	jMf       spatial.SE3
	ref       kinematics.ReferenceFrame
}

// NewModel6D builds an impulse on frame, expressed in ref.
func NewModel6D(st *state.Multibody, frame kinematics.FrameIndex, ref kinematics.ReferenceFrame) (*Model6D, error) {
	if st == nil {
		return nil, modelerr.Configuration("impulse 6d: state is required")
	}
	if !ref.Valid() {
		return nil, modelerr.Configuration("impulse 6d: unknown reference frame %d", int(ref))
	}
	fr, err := st.Model().Frame(frame)
	if err != nil {
		return nil, fmt.Errorf("impulse 6d: %w", err)
	}
	return &Model6D{
		state:     st,
		frame:     frame,
		frameName: fr.Name,
		parent:    fr.Parent,
		jMf:       fr.Placement,
		ref:       ref,
	}, nil
}

func (m *Model6D) NI() int                              { return Dim }
func (m *Model6D) Frame() kinematics.FrameIndex         { return m.frame }
func (m *Model6D) FrameName() string                    { return m.frameName }
func (m *Model6D) Reference() kinematics.ReferenceFrame { return m.ref }
func (m *Model6D) State() *state.Multibody              { return m.state }

// Data6D is the per-node workspace of a Model6D.
type Data6D struct {
	// Wrench holds the impulse F in the convention of the model and the
	// placeholder for its state derivative. It can be published in a
	// contact registry.
	Wrench *contact.WrenchData

	Jc     *mat.Dense     // 6 x nv
	V0     spatial.Motion // frame velocity before the impulse
	Dv0Dq  *mat.Dense     // 6 x nv
	Fext   spatial.Force  // impulse acting on the parent joint, joint frame
	DtauDq *mat.Dense     // nv x nv
	FXj    *mat.Dense     // 6 x 6 action of jMf^-1

	Shared collector.KinematicsSource

	kin *kinematics.Data

	fJf         *mat.Dense // 6 x nv frame Jacobian, local
	fJfTop      *mat.Dense // views
	fJfBottom   *mat.Dense
	fJfT        mat.Matrix
	jJj         *mat.Dense // 6 x nv joint Jacobian, local
	dvjDq       *mat.Dense // 6 x nv joint velocity partials
	dvjDv       *mat.Dense
	dv0Local    *mat.Dense // fXj dvjDq
	dv0LocTop   *mat.Dense
	dv0LocBot   *mat.Dense
	dv0Top      *mat.Dense
	dv0Bot      *mat.Dense
	fJfDf       *mat.Dense // 6 x nv frame-rotation part of the force derivative, negated
	fJfDfTop    *mat.Dense
	fJfDfBot    *mat.Dense
	rot         *mat.Dense // 3 x 3 oRf
	rot6        *mat.Dense // 6 x 6
	vvSkew      *mat.Dense // [v]x, local linear velocity
	vwSkew      *mat.Dense // [w]x, local angular velocity
	vvWorldSkew *mat.Dense // oRf [v]x
	vwWorldSkew *mat.Dense // oRf [w]x
	fSkew       *mat.Dense // -[f]x, local force
	nSkew       *mat.Dense // -[n]x, local moment
	pSkew       *mat.Dense // [p]x, frame origin
	tmp         *mat.Dense // 3 x nv
}

// CreateData binds the impulse to the node's kinematics. The kinematics must
// have been created from the model of the impulse's state.
func (m *Model6D) CreateData(shared collector.KinematicsSource) (*Data6D, error) {
	if shared == nil || shared.Kinematics() == nil {
		return nil, modelerr.Dimension(m.frameName, "no kinematics data")
	}
	kin := shared.Kinematics()
	nv := m.state.NV()
	if kin.NV() != nv || len(kin.OMi) != m.state.Model().NJoints() {
		return nil, modelerr.Dimension(m.frameName, "kinematics data sized for nv=%d, model has nv=%d", kin.NV(), nv)
	}
	if int(m.frame) >= len(kin.OMf) {
		return nil, modelerr.ContactResolution(m.frameName, "frame %d not in kinematics data", m.frame)
	}

	d := &Data6D{
		Wrench:      contact.NewWrenchData(m.frame, m.jMf, m.state.NDX(), 0),
		Jc:          mat.NewDense(Dim, nv, nil),
		Dv0Dq:       mat.NewDense(Dim, nv, nil),
		DtauDq:      mat.NewDense(nv, nv, nil),
		FXj:         mat.NewDense(6, 6, nil),
		Shared:      shared,
		kin:         kin,
		fJf:         mat.NewDense(6, nv, nil),
		jJj:         mat.NewDense(6, nv, nil),
		dvjDq:       mat.NewDense(6, nv, nil),
		dvjDv:       mat.NewDense(6, nv, nil),
		dv0Local:    mat.NewDense(6, nv, nil),
		fJfDf:       mat.NewDense(6, nv, nil),
		rot:         mat.NewDense(3, 3, nil),
		rot6:        mat.NewDense(6, 6, nil),
		vvSkew:      mat.NewDense(3, 3, nil),
		vwSkew:      mat.NewDense(3, 3, nil),
		vvWorldSkew: mat.NewDense(3, 3, nil),
		vwWorldSkew: mat.NewDense(3, 3, nil),
		fSkew:       mat.NewDense(3, 3, nil),
		nSkew:       mat.NewDense(3, 3, nil),
		pSkew:       mat.NewDense(3, 3, nil),
		tmp:         mat.NewDense(3, nv, nil),
	}
	m.jMf.Inverse().ActionMatrix(d.FXj)
	d.fJfTop = top(d.fJf)
	d.fJfBottom = bottom(d.fJf)
	d.fJfT = d.fJf.T()
	d.dv0LocTop = top(d.dv0Local)
	d.dv0LocBot = bottom(d.dv0Local)
	d.dv0Top = top(d.Dv0Dq)
	d.dv0Bot = bottom(d.Dv0Dq)
	d.fJfDfTop = top(d.fJfDf)
	d.fJfDfBot = bottom(d.fJfDf)
	return d, nil
}

func top(m *mat.Dense) *mat.Dense {
	_, c := m.Dims()
	return m.Slice(0, 3, 0, c).(*mat.Dense)
}

func bottom(m *mat.Dense) *mat.Dense {
	_, c := m.Dims()
	return m.Slice(3, 6, 0, c).(*mat.Dense)
}

// Calc computes the frame Jacobian Jc and velocity V0 from the node's
// kinematics, which must be up to date for x.
func (m *Model6D) Calc(d *Data6D, x []float64) {
	model := m.state.Model()
	model.JointJacobian(d.kin, m.parent, d.jJj)
	d.fJf.Mul(d.FXj, d.jJj)
	local := model.FrameVelocity(d.kin, m.frame, kinematics.Local)
	oMf := d.kin.OMf[m.frame]

	switch m.ref {
	case kinematics.Local:
		d.Jc.Copy(d.fJf)
		d.V0 = local
	case kinematics.LocalWorldAligned:
		oMf.RotationAction(d.rot6)
		d.Jc.Mul(d.rot6, d.fJf)
		d.V0 = spatial.SE3{R: oMf.R}.ActMotion(local)
	case kinematics.World:
		oMf.ActionMatrix(d.rot6)
		d.Jc.Mul(d.rot6, d.fJf)
		d.V0 = oMf.ActMotion(local)
	}
}

// CalcDiff computes the configuration derivative of V0. Calc must have been
// called on d with the same x.
//
// Rotating a frame-local velocity into the world adds the rotation of the
// frame itself: d(R v)/dq = R dv/dq - R [v]x Jw. The World convention
// additionally carries the motion of the frame origin.
func (m *Model6D) CalcDiff(d *Data6D, x []float64) {
	model := m.state.Model()
	model.JointVelocityDerivatives(d.kin, m.parent, d.dvjDq, d.dvjDv)
	d.dv0Local.Mul(d.FXj, d.dvjDq)
	if m.ref == kinematics.Local {
		d.Dv0Dq.Copy(d.dv0Local)
		return
	}

	v := model.FrameVelocity(d.kin, m.frame, kinematics.Local)
	oMf := d.kin.OMf[m.frame]
	spatial.SetMat3(d.rot, 0, 0, oMf.R)
	spatial.SetSkew(d.vvSkew, v.Linear)
	spatial.SetSkew(d.vwSkew, v.Angular)
	d.vvWorldSkew.Mul(d.rot, d.vvSkew)
	d.vwWorldSkew.Mul(d.rot, d.vwSkew)

	d.dv0Top.Mul(d.rot, d.dv0LocTop)
	d.dv0Bot.Mul(d.rot, d.dv0LocBot)
	d.tmp.Mul(d.vvWorldSkew, d.fJfBottom)
	d.dv0Top.Sub(d.dv0Top, d.tmp)
	d.tmp.Mul(d.vwWorldSkew, d.fJfBottom)
	d.dv0Bot.Sub(d.dv0Bot, d.tmp)
	if m.ref != kinematics.World {
		return
	}
	// p x (R w) with the origin moving at R Jl.
	d.tmp.Mul(d.vwWorldSkew, d.fJfTop)
	d.dv0Top.Sub(d.dv0Top, d.tmp)
	spatial.SetSkew(d.pSkew, oMf.P)
	d.tmp.Mul(d.pSkew, d.dv0Bot)
	d.dv0Top.Add(d.dv0Top, d.tmp)
}

// UpdateForce stores the impulse force, given in the convention of the
// model, and maps it onto the parent joint. force must have length 6.
//
// DtauDq is the derivative of the joint torque -fJf^T f_local through the
// frame rotation only; the derivative of fJf itself belongs to the dynamics.
func (m *Model6D) UpdateForce(d *Data6D, force []float64) {
	if len(force) != Dim {
		panic(fmt.Sprintf("impulse 6d: frame %q: got force of length %d, want %d", m.frameName, len(force), Dim))
	}
	copy(d.Wrench.F.RawVector().Data, force)
	f := spatial.ForceFromSlice(force)
	oMf := d.kin.OMf[m.frame]

	var local spatial.Force
	switch m.ref {
	case kinematics.Local:
		local = f
		d.DtauDq.Zero()
	case kinematics.LocalWorldAligned:
		local = spatial.SE3{R: oMf.R}.ActInvForce(f)
	case kinematics.World:
		local = oMf.ActInvForce(f)
	}
	d.Fext = m.jMf.ActForce(local)

	if m.ref != kinematics.Local {
		// Negated so that DtauDq = fJf^T fJfDf directly.
		spatial.SetSkew(d.fSkew, local.Linear.Mul(-1))
		spatial.SetSkew(d.nSkew, local.Angular.Mul(-1))
		d.fJfDfTop.Mul(d.fSkew, d.fJfBottom)
		d.fJfDfBot.Mul(d.nSkew, d.fJfBottom)
		if m.ref == kinematics.World {
			d.tmp.Mul(d.fSkew, d.fJfTop)
			d.fJfDfBot.Add(d.fJfDfBot, d.tmp)
		}
		d.DtauDq.Mul(d.fJfT, d.fJfDf)
	}
	d.Wrench.DfDx.Zero()
}

// UpdateForceDiff copies the derivative of the impulse with respect to the
// state, computed upstream, into d.
func (m *Model6D) UpdateForceDiff(d *Data6D, dfdx mat.Matrix) {
	r, c := dfdx.Dims()
	wr, wc := d.Wrench.DfDx.Dims()
	if r != wr || c != wc {
		panic(fmt.Sprintf("impulse 6d: frame %q: got force derivative %dx%d, want %dx%d", m.frameName, r, c, wr, wc))
	}
	d.Wrench.DfDx.Copy(dfdx)
}
