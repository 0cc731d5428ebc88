// Package node defines the trajectory-node types evaluated by the engine:
// the static node Spec read from a scenario, and the live Node holding the
// per-node data of its contacts, impulses and costs.
package node

import (
	"fmt"

	"github.com/cxd309/mbcontact/internal/activation"
)

// NodeID is a unique string identifier for a node.
type NodeID = string

// Activation model names accepted in ActivationSpec.Model.
const (
	QuadName                     = "quad"
	WeightedQuadName             = "weighted_quad"
	QuadraticBarrierName         = "quadratic_barrier"
	WeightedQuadraticBarrierName = "weighted_quadratic_barrier"
	Smooth1NormName              = "smooth_1norm"
)

// ActivationSpec selects an activation by its "model" discriminator. Only
// the parameters of the selected model are read.
type ActivationSpec struct {
	Model   string             `json:"model" yaml:"model"`
	Weights []float64          `json:"weights,omitempty" yaml:"weights,omitempty"`
	Bounds  *activation.Bounds `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	Eps     float64            `json:"eps,omitempty" yaml:"eps,omitempty"`
}

// Build returns the activation for a residual of size nr. An empty model
// name selects "quad".
//
// Supported models:
//   - "quad": 0.5 ||r||^2.
//   - "weighted_quad": weights.
//   - "quadratic_barrier": bounds.
//   - "weighted_quadratic_barrier": bounds and weights.
//   - "smooth_1norm": eps.
func (s ActivationSpec) Build(nr int) (activation.Model, error) {
	switch s.Model {
	case "", QuadName:
		return activation.NewQuad(nr)
	case WeightedQuadName:
		return activation.NewWeightedQuad(s.Weights)
	case QuadraticBarrierName:
		if s.Bounds == nil {
			return nil, fmt.Errorf("%s activation: missing \"bounds\"", s.Model)
		}
		return activation.NewQuadraticBarrier(*s.Bounds)
	case WeightedQuadraticBarrierName:
		if s.Bounds == nil {
			return nil, fmt.Errorf("%s activation: missing \"bounds\"", s.Model)
		}
		return activation.NewWeightedQuadraticBarrier(*s.Bounds, s.Weights)
	case Smooth1NormName:
		return activation.NewSmooth1Norm(nr, s.Eps)
	default:
		return nil, fmt.Errorf("unknown activation model %q", s.Model)
	}
}

// ContactSpec is a contact made active at the node by the contact stage. Its
// force is affine around the node's state and control:
// f = Force + DfDx (x - x_node) + DfDu (u - u_node).
type ContactSpec struct {
	Name  string      `json:"name" yaml:"name"`
	Frame string      `json:"frame" yaml:"frame"`
	Kind  string      `json:"kind" yaml:"kind"`   // "point" or "wrench"
	Force []float64   `json:"force" yaml:"force"` // 3 or 6 entries, contact frame
	DfDx  [][]float64 `json:"dfdx,omitempty" yaml:"dfdx,omitempty"`
	DfDu  [][]float64 `json:"dfdu,omitempty" yaml:"dfdu,omitempty"`
}

// ImpulseSpec is a six-DOF impulse at the node together with the impulse
// the dynamics solved for it.
type ImpulseSpec struct {
	Name      string    `json:"name" yaml:"name"`
	Frame     string    `json:"frame" yaml:"frame"`
	Reference string    `json:"reference,omitempty" yaml:"reference,omitempty"` // default "local"
	Force     []float64 `json:"force" yaml:"force"`
}

// CoPCostSpec is a weighted center-of-pressure cost on a contact frame.
type CoPCostSpec struct {
	Name        string         `json:"name" yaml:"name"`
	Frame       string         `json:"frame" yaml:"frame"`
	HalfExtents [2]float64     `json:"half_extents" yaml:"half_extents"`         // metres
	Normal      *[3]float64    `json:"normal,omitempty" yaml:"normal,omitempty"` // default +z
	Weight      *float64       `json:"weight,omitempty" yaml:"weight,omitempty"` // default 1
	Activation  ActivationSpec `json:"activation" yaml:"activation"`
}

// Spec is the static definition of a trajectory node. A node has either
// contacts or impulses, never both.
type Spec struct {
	NodeID   NodeID        `json:"node_id" yaml:"node_id"`
	Q        []float64     `json:"q" yaml:"q"`
	V        []float64     `json:"v" yaml:"v"`
	U        []float64     `json:"u,omitempty" yaml:"u,omitempty"`
	Contacts []ContactSpec `json:"contacts,omitempty" yaml:"contacts,omitempty"`
	Impulses []ImpulseSpec `json:"impulses,omitempty" yaml:"impulses,omitempty"`
	Costs    []CoPCostSpec `json:"costs,omitempty" yaml:"costs,omitempty"`
}
