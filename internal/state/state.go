// Package state describes the multibody state x = [q; v] the cost and
// impulse models are differentiated against.
//
// The reference kinematics engine only has single-DOF joints, so the
// configuration space is Euclidean and the tangent space has dimension
// 2 * nv.
package state

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/cxd309/mbcontact/internal/kinematics"
)

// Multibody is the state of a kinematic model. It is immutable and may be
// shared across goroutines.
type Multibody struct {
	model *kinematics.Model
	nq    int
	nv    int
}

// NewMultibody returns the state of model.
func NewMultibody(model *kinematics.Model) *Multibody {
	return &Multibody{model: model, nq: model.NQ(), nv: model.NV()}
}

// Model returns the kinematic model the state belongs to.
func (s *Multibody) Model() *kinematics.Model { return s.model }

func (s *Multibody) NQ() int  { return s.nq }
func (s *Multibody) NV() int  { return s.nv }
func (s *Multibody) NX() int  { return s.nq + s.nv }
func (s *Multibody) NDX() int { return 2 * s.nv }

// Zero returns the neutral state.
func (s *Multibody) Zero() []float64 { return make([]float64, s.NX()) }

// Rand returns a random state with q in [-pi/2, pi/2) and v in [-1, 1).
func (s *Multibody) Rand(rng *rand.Rand) []float64 {
	x := make([]float64, s.NX())
	for i := 0; i < s.nq; i++ {
		x[i] = (rng.Float64() - 0.5) * math.Pi
	}
	for i := s.nq; i < len(x); i++ {
		x[i] = rng.Float64()*2 - 1
	}
	return x
}

// Split returns views of the configuration and velocity parts of x.
func (s *Multibody) Split(x []float64) (q, v []float64) {
	if len(x) != s.NX() {
		panic(fmt.Sprintf("state: got x of length %d, want %d", len(x), s.NX()))
	}
	return x[:s.nq], x[s.nq:]
}

// Integrate writes x [+] dx into dst.
func (s *Multibody) Integrate(dst, x, dx []float64) {
	for i := range dst {
		dst[i] = x[i] + dx[i]
	}
}

// Diff writes the tangent vector dx such that x0 [+] dx = x1 into dst.
func (s *Multibody) Diff(dst, x0, x1 []float64) {
	for i := range dst {
		dst[i] = x1[i] - x0[i]
	}
}

// Jdiff writes the Jacobians of Diff with respect to x0 and x1 (each
// ndx x ndx) into first and second. Either may be nil.
func (s *Multibody) Jdiff(first, second *mat.Dense) {
	n := s.NDX()
	for i := 0; i < n; i++ {
		if first != nil {
			first.Set(i, i, -1)
		}
		if second != nil {
			second.Set(i, i, 1)
		}
	}
}
