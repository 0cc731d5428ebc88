package kinematics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/cxd309/mbcontact/internal/spatial"
)

// RevoluteName is the discriminator string for the Revolute joint.
const RevoluteName = "revolute"

// PrismaticName is the discriminator string for the Prismatic joint.
const PrismaticName = "prismatic"

// Revolute rotates its child about a fixed unit axis of the joint frame.
type Revolute struct {
	Axis mgl64.Vec3
}

func (Revolute) Kind() string { return RevoluteName }

func (r Revolute) Subspace() spatial.Motion { return spatial.Motion{Angular: r.Axis} }

func (r Revolute) Transform(q float64) spatial.SE3 {
	return spatial.SE3{R: spatial.AxisAngle(r.Axis, q)}
}

// Prismatic translates its child along a fixed unit axis of the joint frame.
type Prismatic struct {
	Axis mgl64.Vec3
}

func (Prismatic) Kind() string { return PrismaticName }

func (p Prismatic) Subspace() spatial.Motion { return spatial.Motion{Linear: p.Axis} }

func (p Prismatic) Transform(q float64) spatial.SE3 {
	return spatial.SE3{R: mgl64.Ident3(), P: p.Axis.Mul(q)}
}
