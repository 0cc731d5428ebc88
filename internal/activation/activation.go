// Package activation implements the weighting functions a residual is passed
// through to obtain a scalar cost.
//
// Every model follows the same contract: Calc fills the value A for a
// residual r; CalcDiff fills the gradient Ar and Hessian Arr at the same r.
// Neither allocates, so they can run inside the optimization inner loop.
package activation

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cxd309/mbcontact/internal/modelerr"
)

// Model is a weighting function of a residual of fixed size NR.
type Model interface {
	NR() int
	Calc(d *Data, r mat.Vector)
	CalcDiff(d *Data, r mat.Vector)
	CreateData() *Data
}

// Data holds the value and derivatives of an activation.
type Data struct {
	A   float64
	Ar  *mat.VecDense // nr
	Arr *mat.Dense    // nr x nr
}

// NewData allocates a zeroed Data for a residual of size nr.
func NewData(nr int) *Data {
	return &Data{
		Ar:  mat.NewVecDense(nr, nil),
		Arr: mat.NewDense(nr, nr, nil),
	}
}

// Quad is a = 0.5 ||r||^2.
type Quad struct {
	nr int
}

// NewQuad returns a quadratic activation for a residual of size nr.
func NewQuad(nr int) (*Quad, error) {
	if nr <= 0 {
		return nil, modelerr.Configuration("quad activation: nr must be positive, got %d", nr)
	}
	return &Quad{nr: nr}, nil
}

func (q *Quad) NR() int { return q.nr }

func (q *Quad) Calc(d *Data, r mat.Vector) {
	d.A = 0.5 * mat.Dot(r, r)
}

func (q *Quad) CalcDiff(d *Data, r mat.Vector) {
	d.Ar.CopyVec(r)
}

// CreateData sets the constant identity Hessian once.
func (q *Quad) CreateData() *Data {
	d := NewData(q.nr)
	for i := 0; i < q.nr; i++ {
		d.Arr.Set(i, i, 1)
	}
	return d
}

// WeightedQuad is a = 0.5 r^T diag(w) r.
type WeightedQuad struct {
	weights []float64
}

// NewWeightedQuad returns a weighted quadratic activation.
func NewWeightedQuad(weights []float64) (*WeightedQuad, error) {
	if len(weights) == 0 {
		return nil, modelerr.Configuration("weighted quad activation: weights must not be empty")
	}
	return &WeightedQuad{weights: append([]float64(nil), weights...)}, nil
}

func (w *WeightedQuad) NR() int { return len(w.weights) }

func (w *WeightedQuad) Calc(d *Data, r mat.Vector) {
	a := 0.0
	for i, wi := range w.weights {
		ri := r.AtVec(i)
		a += wi * ri * ri
	}
	d.A = 0.5 * a
}

func (w *WeightedQuad) CalcDiff(d *Data, r mat.Vector) {
	for i, wi := range w.weights {
		d.Ar.SetVec(i, wi*r.AtVec(i))
	}
}

func (w *WeightedQuad) CreateData() *Data {
	d := NewData(len(w.weights))
	for i, wi := range w.weights {
		d.Arr.Set(i, i, wi)
	}
	return d
}
