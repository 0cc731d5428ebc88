package activation

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/cxd309/mbcontact/internal/modelerr"
)

// Bounds are the element-wise lower and upper limits of a barrier. Beta in
// (0, 1] shrinks finite bounds symmetrically about their midpoint; zero means
// 1.
type Bounds struct {
	Lower []float64 `json:"lower" yaml:"lower"`
	Upper []float64 `json:"upper" yaml:"upper"`
	Beta  float64   `json:"beta,omitempty" yaml:"beta,omitempty"`
}

// resolve validates b and returns the effective bounds.
func (b Bounds) resolve() (lb, ub []float64, err error) {
	if len(b.Lower) == 0 || len(b.Lower) != len(b.Upper) {
		return nil, nil, modelerr.Dimension("", "bounds: lower has %d entries, upper has %d", len(b.Lower), len(b.Upper))
	}
	beta := b.Beta
	if beta == 0 {
		beta = 1
	}
	if beta < 0 || beta > 1 {
		return nil, nil, modelerr.Configuration("bounds: beta must be in (0, 1], got %g", beta)
	}
	lb = make([]float64, len(b.Lower))
	ub = make([]float64, len(b.Upper))
	for i := range b.Lower {
		l, u := b.Lower[i], b.Upper[i]
		if math.IsNaN(l) || math.IsNaN(u) || l > u {
			return nil, nil, modelerr.Configuration("bounds: invalid interval [%g, %g] at %d", l, u, i)
		}
		if beta < 1 && !math.IsInf(l, 0) && !math.IsInf(u, 0) {
			m, h := 0.5*(l+u), 0.5*(u-l)
			l, u = m-beta*h, m+beta*h
		}
		lb[i], ub[i] = l, u
	}
	return lb, ub, nil
}

// QuadraticBarrier is zero inside [lb, ub] and quadratic outside:
// a = 0.5 ||min(r - lb, 0)||^2 + 0.5 ||max(r - ub, 0)||^2.
type QuadraticBarrier struct {
	lb, ub  []float64
	weights []float64 // nil = unweighted
}

// NewQuadraticBarrier returns an unweighted quadratic barrier.
func NewQuadraticBarrier(b Bounds) (*QuadraticBarrier, error) {
	lb, ub, err := b.resolve()
	if err != nil {
		return nil, err
	}
	return &QuadraticBarrier{lb: lb, ub: ub}, nil
}

// NewWeightedQuadraticBarrier returns a quadratic barrier whose terms are
// scaled by weights.
func NewWeightedQuadraticBarrier(b Bounds, weights []float64) (*QuadraticBarrier, error) {
	lb, ub, err := b.resolve()
	if err != nil {
		return nil, err
	}
	if len(weights) != len(lb) {
		return nil, modelerr.Dimension("", "weighted barrier: %d weights for %d bounds", len(weights), len(lb))
	}
	return &QuadraticBarrier{lb: lb, ub: ub, weights: append([]float64(nil), weights...)}, nil
}

func (q *QuadraticBarrier) NR() int { return len(q.lb) }

func (q *QuadraticBarrier) weight(i int) float64 {
	if q.weights == nil {
		return 1
	}
	return q.weights[i]
}

// violation returns the signed distance of ri outside [lb_i, ub_i].
func (q *QuadraticBarrier) violation(i int, ri float64) float64 {
	if lo := ri - q.lb[i]; lo < 0 {
		return lo
	}
	if hi := ri - q.ub[i]; hi > 0 {
		return hi
	}
	return 0
}

func (q *QuadraticBarrier) Calc(d *Data, r mat.Vector) {
	a := 0.0
	for i := range q.lb {
		e := q.violation(i, r.AtVec(i))
		a += q.weight(i) * e * e
	}
	d.A = 0.5 * a
}

func (q *QuadraticBarrier) CalcDiff(d *Data, r mat.Vector) {
	for i := range q.lb {
		e := q.violation(i, r.AtVec(i))
		w := q.weight(i)
		d.Ar.SetVec(i, w*e)
		if e != 0 {
			d.Arr.Set(i, i, w)
		} else {
			d.Arr.Set(i, i, 0)
		}
	}
}

func (q *QuadraticBarrier) CreateData() *Data { return NewData(len(q.lb)) }

// Smooth1Norm is a = sum_i sqrt(eps + r_i^2), a smooth approximation of the
// 1-norm.
type Smooth1Norm struct {
	nr  int
	eps float64
}

// NewSmooth1Norm returns a smooth 1-norm activation; eps must be positive.
func NewSmooth1Norm(nr int, eps float64) (*Smooth1Norm, error) {
	if nr <= 0 || eps <= 0 {
		return nil, modelerr.Configuration("smooth 1-norm activation: need nr > 0 and eps > 0, got %d and %g", nr, eps)
	}
	return &Smooth1Norm{nr: nr, eps: eps}, nil
}

func (s *Smooth1Norm) NR() int { return s.nr }

func (s *Smooth1Norm) Calc(d *Data, r mat.Vector) {
	a := 0.0
	for i := 0; i < s.nr; i++ {
		ri := r.AtVec(i)
		a += math.Sqrt(s.eps + ri*ri)
	}
	d.A = a
}

func (s *Smooth1Norm) CalcDiff(d *Data, r mat.Vector) {
	for i := 0; i < s.nr; i++ {
		ri := r.AtVec(i)
		n := math.Sqrt(s.eps + ri*ri)
		d.Ar.SetVec(i, ri/n)
		d.Arr.Set(i, i, s.eps/(n*n*n))
	}
}

func (s *Smooth1Norm) CreateData() *Data { return NewData(s.nr) }
