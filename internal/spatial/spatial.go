// Package spatial implements the fixed-size spatial algebra (rigid
// transforms, spatial motions and forces) used by the kinematics, cost and
// impulse packages.
//
// All types are values built on mgl64 arrays so that composing and acting
// never allocates. Matrices whose width depends on the robot (Jacobians) live
// in gonum *mat.Dense buffers owned by the caller; the helpers here only read
// and write columns or blocks of them.
package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// Motion is a spatial velocity: linear part first, angular part second.
type Motion struct {
	Linear  mgl64.Vec3 `json:"linear"`
	Angular mgl64.Vec3 `json:"angular"`
}

// Force is a spatial force (wrench): force first, moment second.
type Force struct {
	Linear  mgl64.Vec3 `json:"linear"`
	Angular mgl64.Vec3 `json:"angular"`
}

// Add returns m + o.
func (m Motion) Add(o Motion) Motion {
	return Motion{Linear: m.Linear.Add(o.Linear), Angular: m.Angular.Add(o.Angular)}
}

// Scale returns c * m.
func (m Motion) Scale(c float64) Motion {
	return Motion{Linear: m.Linear.Mul(c), Angular: m.Angular.Mul(c)}
}

// Cross returns the motion cross product m x o.
func (m Motion) Cross(o Motion) Motion {
	return Motion{
		Linear:  m.Angular.Cross(o.Linear).Add(m.Linear.Cross(o.Angular)),
		Angular: m.Angular.Cross(o.Angular),
	}
}

// Array returns the motion as [vx vy vz wx wy wz].
func (m Motion) Array() [6]float64 {
	return [6]float64{m.Linear[0], m.Linear[1], m.Linear[2], m.Angular[0], m.Angular[1], m.Angular[2]}
}

// SetCol writes m into column j of the 6-row matrix dst.
func (m Motion) SetCol(dst *mat.Dense, j int) {
	for i := 0; i < 3; i++ {
		dst.Set(i, j, m.Linear[i])
		dst.Set(i+3, j, m.Angular[i])
	}
}

// Array returns the force as [fx fy fz mx my mz].
func (f Force) Array() [6]float64 {
	return [6]float64{f.Linear[0], f.Linear[1], f.Linear[2], f.Angular[0], f.Angular[1], f.Angular[2]}
}

// Add returns f + o.
func (f Force) Add(o Force) Force {
	return Force{Linear: f.Linear.Add(o.Linear), Angular: f.Angular.Add(o.Angular)}
}

// ForceFromSlice reads a 6-vector [fx fy fz mx my mz]. It panics if v is
// shorter than 6.
func ForceFromSlice(v []float64) Force {
	_ = v[5]
	return Force{
		Linear:  mgl64.Vec3{v[0], v[1], v[2]},
		Angular: mgl64.Vec3{v[3], v[4], v[5]},
	}
}

// SE3 is a rigid transform: points map as p' = R p + P.
type SE3 struct {
	R mgl64.Mat3 `json:"rotation"`
	P mgl64.Vec3 `json:"translation"`
}

// Identity returns the identity transform.
func Identity() SE3 { return SE3{R: mgl64.Ident3()} }

// Compose returns a * b.
func (a SE3) Compose(b SE3) SE3 {
	return SE3{R: a.R.Mul3(b.R), P: a.P.Add(a.R.Mul3x1(b.P))}
}

// Inverse returns a^-1.
func (a SE3) Inverse() SE3 {
	rt := a.R.Transpose()
	return SE3{R: rt, P: rt.Mul3x1(a.P).Mul(-1)}
}

// ActMotion expresses in the parent frame a motion given in the local frame.
func (a SE3) ActMotion(m Motion) Motion {
	w := a.R.Mul3x1(m.Angular)
	return Motion{Linear: a.R.Mul3x1(m.Linear).Add(a.P.Cross(w)), Angular: w}
}

// ActInvMotion is the inverse of ActMotion.
func (a SE3) ActInvMotion(m Motion) Motion {
	rt := a.R.Transpose()
	return Motion{
		Linear:  rt.Mul3x1(m.Linear.Sub(a.P.Cross(m.Angular))),
		Angular: rt.Mul3x1(m.Angular),
	}
}

// ActForce expresses in the parent frame a force given in the local frame.
func (a SE3) ActForce(f Force) Force {
	lin := a.R.Mul3x1(f.Linear)
	return Force{Linear: lin, Angular: a.R.Mul3x1(f.Angular).Add(a.P.Cross(lin))}
}

// ActInvForce is the inverse of ActForce.
func (a SE3) ActInvForce(f Force) Force {
	rt := a.R.Transpose()
	return Force{
		Linear:  rt.Mul3x1(f.Linear),
		Angular: rt.Mul3x1(f.Angular.Sub(a.P.Cross(f.Linear))),
	}
}

// ActionMatrix writes the 6x6 motion action matrix [[R, [P]x R], [0, R]]
// into dst.
func (a SE3) ActionMatrix(dst *mat.Dense) {
	dst.Zero()
	SetMat3(dst, 0, 0, a.R)
	SetMat3(dst, 0, 3, Skew(a.P).Mul3(a.R))
	SetMat3(dst, 3, 3, a.R)
}

// RotationAction writes blockdiag(R, R) into the 6x6 dst.
func (a SE3) RotationAction(dst *mat.Dense) {
	dst.Zero()
	SetMat3(dst, 0, 0, a.R)
	SetMat3(dst, 3, 3, a.R)
}

// Skew returns the cross-product matrix [v]x such that [v]x w = v x w.
func Skew(v mgl64.Vec3) mgl64.Mat3 {
	// column-major
	return mgl64.Mat3{
		0, v[2], -v[1],
		-v[2], 0, v[0],
		v[1], -v[0], 0,
	}
}

// SetSkew writes [v]x into the 3x3 dst.
func SetSkew(dst *mat.Dense, v mgl64.Vec3) {
	SetMat3(dst, 0, 0, Skew(v))
}

// SetMat3 writes m into dst starting at row i0, column j0.
func SetMat3(dst *mat.Dense, i0, j0 int, m mgl64.Mat3) {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			dst.Set(i0+r, j0+c, m.At(r, c))
		}
	}
}

// AxisAngle returns the rotation of angle radians about the unit vector axis.
func AxisAngle(axis mgl64.Vec3, angle float64) mgl64.Mat3 {
	k := Skew(axis)
	s, c := math.Sincos(angle)
	return mgl64.Ident3().Add(k.Mul(s)).Add(k.Mul3(k).Mul(1 - c))
}

// RPY returns Rz(yaw) Ry(pitch) Rx(roll).
func RPY(roll, pitch, yaw float64) mgl64.Mat3 {
	return mgl64.Rotate3DZ(yaw).Mul3(mgl64.Rotate3DY(pitch)).Mul3(mgl64.Rotate3DX(roll))
}

// RotationBetween returns the minimal rotation taking the direction of from
// onto the direction of to. Both must be non-zero.
func RotationBetween(from, to mgl64.Vec3) mgl64.Mat3 {
	a := from.Normalize()
	b := to.Normalize()
	c := a.Dot(b)
	if c < -1+1e-12 {
		// Half turn about any axis orthogonal to a.
		u := a.Cross(mgl64.Vec3{1, 0, 0})
		if u.Len() < 1e-6 {
			u = a.Cross(mgl64.Vec3{0, 1, 0})
		}
		u = u.Normalize()
		return AxisAngle(u, math.Pi)
	}
	k := Skew(a.Cross(b))
	return mgl64.Ident3().Add(k).Add(k.Mul3(k).Mul(1 / (1 + c)))
}
