// Package cost implements the center-of-pressure cost: a penalty on the CoP
// of a rigid wrench contact leaving the rectangle of its support surface.
package cost

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/cxd309/mbcontact/internal/kinematics"
	"github.com/cxd309/mbcontact/internal/modelerr"
	"github.com/cxd309/mbcontact/internal/spatial"
)

// CoPResidualSize is the number of support-rectangle margins.
const CoPResidualSize = 4

// CoPSupport is the support rectangle of a contact frame: its half extents
// along the local x and y axes of the support surface, and the surface
// normal expressed in the contact frame.
type CoPSupport struct {
	frame       kinematics.FrameIndex
	halfExtents [2]float64
	normal      mgl64.Vec3
	rot         mgl64.Mat3 // contact frame <- support surface
	a           *mat.Dense // CoPResidualSize x 6
}

// NewCoPSupport validates the support geometry and precomputes the wrench
// projection.
func NewCoPSupport(frame kinematics.FrameIndex, halfExtents [2]float64, normal mgl64.Vec3) (*CoPSupport, error) {
	for i, h := range halfExtents {
		if !(h > 0) || math.IsInf(h, 0) {
			return nil, modelerr.Configuration("cop support: half extent %d must be positive and finite, got %g", i, h)
		}
	}
	for _, c := range normal {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, modelerr.Configuration("cop support: normal %v is not finite", normal)
		}
	}
	if normal.Len() < 1e-9 {
		return nil, modelerr.Configuration("cop support: normal must be non-zero")
	}
	n := normal.Normalize()
	s := &CoPSupport{
		frame:       frame,
		halfExtents: halfExtents,
		normal:      n,
		rot:         spatial.RotationBetween(mgl64.Vec3{0, 0, 1}, n),
	}
	s.a = s.projection()
	return s, nil
}

// projection returns A0 blockdiag(R^T, R^T). Each row of A0 is the normal
// force scaled by a half extent plus or minus the tangential moment, so that
// A f is the distance of the CoP to each edge, weighted by the normal force.
func (s *CoPSupport) projection() *mat.Dense {
	hx, hy := s.halfExtents[0], s.halfExtents[1]
	a0 := mat.NewDense(CoPResidualSize, 6, []float64{
		0, 0, hx, 0, -1, 0,
		0, 0, hx, 0, 1, 0,
		0, 0, hy, 1, 0, 0,
		0, 0, hy, -1, 0, 0,
	})
	rt := mat.NewDense(6, 6, nil)
	spatial.SE3{R: s.rot.Transpose()}.RotationAction(rt)
	a := mat.NewDense(CoPResidualSize, 6, nil)
	a.Mul(a0, rt)
	return a
}

// Frame returns the contact frame the support belongs to.
func (s *CoPSupport) Frame() kinematics.FrameIndex { return s.frame }

// HalfExtents returns the half lengths of the support rectangle.
func (s *CoPSupport) HalfExtents() [2]float64 { return s.halfExtents }

// Normal returns the unit surface normal in the contact frame.
func (s *CoPSupport) Normal() mgl64.Vec3 { return s.normal }

// Projection returns the fixed 4 x 6 matrix mapping a contact wrench to the
// CoP residual. It must not be modified.
func (s *CoPSupport) Projection() mat.Matrix { return s.a }
