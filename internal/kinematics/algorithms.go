package kinematics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/cxd309/mbcontact/internal/spatial"
)

// Data holds the per-node kinematics results. It is produced by the engine
// before any cost or impulse model runs and is then read by all of them.
type Data struct {
	OMi  []spatial.SE3    // joint placements in the world
	LiMi []spatial.SE3    // joint placements relative to their parent
	V    []spatial.Motion // joint velocities, local
	OV   []spatial.Motion // joint velocities, expressed in the world
	OS   []spatial.Motion // joint motion subspaces, expressed in the world
	OMf  []spatial.SE3    // frame placements in the world

	nv int
}

// CreateData allocates a Data sized for m.
func (m *Model) CreateData() *Data {
	nj := len(m.joints)
	d := &Data{
		OMi:  make([]spatial.SE3, nj),
		LiMi: make([]spatial.SE3, nj),
		V:    make([]spatial.Motion, nj),
		OV:   make([]spatial.Motion, nj),
		OS:   make([]spatial.Motion, nj),
		OMf:  make([]spatial.SE3, len(m.frames)),
		nv:   m.NV(),
	}
	for i := range d.OMi {
		d.OMi[i] = spatial.Identity()
		d.LiMi[i] = spatial.Identity()
	}
	for i := range d.OMf {
		d.OMf[i] = spatial.Identity()
	}
	return d
}

// NV returns the velocity dimension the data was sized for.
func (d *Data) NV() int { return d.nv }

// ForwardKinematics computes joint placements and velocities for
// configuration q and velocity v. Both must have length NQ/NV; anything else
// is a caller bug and panics.
func (m *Model) ForwardKinematics(d *Data, q, v []float64) {
	if len(q) != m.NQ() || len(v) != m.NV() {
		panic(fmt.Sprintf("kinematics: got q/v of length %d/%d, want %d/%d", len(q), len(v), m.NQ(), m.NV()))
	}
	// Joints are appended after their parent, so a forward sweep suffices.
	for i := 1; i < len(m.joints); i++ {
		j := m.joints[i]
		p := m.parents[i]
		s := j.Subspace()
		d.LiMi[i] = m.placements[i].Compose(j.Transform(q[i-1]))
		d.OMi[i] = d.OMi[p].Compose(d.LiMi[i])
		d.V[i] = d.LiMi[i].ActInvMotion(d.V[p]).Add(s.Scale(v[i-1]))
		d.OV[i] = d.OMi[i].ActMotion(d.V[i])
		d.OS[i] = d.OMi[i].ActMotion(s)
	}
}

// UpdateFramePlacements computes every frame placement from the joint
// placements of the last ForwardKinematics.
func (m *Model) UpdateFramePlacements(d *Data) {
	for i, f := range m.frames {
		d.OMf[i] = d.OMi[f.Parent].Compose(f.Placement)
	}
}

// JointJacobian writes the 6 x nv Jacobian of joint j, expressed in the
// joint frame, into dst.
func (m *Model) JointJacobian(d *Data, j JointIndex, dst *mat.Dense) {
	dst.Zero()
	for _, k := range m.supports[j] {
		d.OMi[j].ActInvMotion(d.OS[k]).SetCol(dst, k-1)
	}
}

// JointVelocityDerivatives writes the partial derivatives of the local
// velocity of joint j with respect to q (dvdq) and v (dvdv), both 6 x nv.
//
// Column k of dvdq is jXk (v_k x S_k) for every joint k supporting j, which
// is evaluated in the world frame since the action preserves cross products.
func (m *Model) JointVelocityDerivatives(d *Data, j JointIndex, dvdq, dvdv *mat.Dense) {
	dvdq.Zero()
	dvdv.Zero()
	for _, k := range m.supports[j] {
		d.OMi[j].ActInvMotion(d.OV[k].Cross(d.OS[k])).SetCol(dvdq, k-1)
		d.OMi[j].ActInvMotion(d.OS[k]).SetCol(dvdv, k-1)
	}
}

// FrameVelocity returns the spatial velocity of frame f under convention ref.
func (m *Model) FrameVelocity(d *Data, f FrameIndex, ref ReferenceFrame) spatial.Motion {
	fr := m.frames[f]
	local := fr.Placement.ActInvMotion(d.V[fr.Parent])
	switch ref {
	case World:
		return d.OMf[f].ActMotion(local)
	case LocalWorldAligned:
		return spatial.SE3{R: d.OMf[f].R}.ActMotion(local)
	default:
		return local
	}
}
