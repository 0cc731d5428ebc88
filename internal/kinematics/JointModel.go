// Package kinematics defines the Joint interface for single-DOF joint models
// and a reference rigid-body kinematics engine for kinematic trees built from
// them.
//
// The engine computes, per node, joint and frame placements, local joint
// Jacobians and the configuration-derivatives of local joint velocities.
// Adding a new joint type requires only implementing Joint and registering it
// in NewJoint; the algorithms never need to change.
package kinematics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/cxd309/mbcontact/internal/modelerr"
	"github.com/cxd309/mbcontact/internal/spatial"
)

// Joint is the contract every single-DOF joint model must satisfy.
type Joint interface {
	// Kind returns the discriminator string used in model descriptions.
	Kind() string

	// Subspace returns the joint motion subspace S, expressed in the joint
	// (child) frame, so that the joint contributes S * qdot to its velocity.
	Subspace() spatial.Motion

	// Transform returns the joint displacement exp(S q) for configuration q.
	Transform(q float64) spatial.SE3
}

// NewJoint builds the joint model selected by kind. axis is normalized; a
// zero axis or an unknown kind is a configuration error.
//
// Supported kinds:
//   - "revolute": rotation about axis.
//   - "prismatic": translation along axis.
func NewJoint(kind string, axis mgl64.Vec3) (Joint, error) {
	n := axis.Len()
	if n < 1e-9 {
		return nil, modelerr.Configuration("joint %q: axis must be non-zero", kind)
	}
	axis = axis.Mul(1 / n)
	switch kind {
	case RevoluteName:
		return Revolute{Axis: axis}, nil
	case PrismaticName:
		return Prismatic{Axis: axis}, nil
	default:
		return nil, modelerr.Configuration("unknown joint type %q", kind)
	}
}
