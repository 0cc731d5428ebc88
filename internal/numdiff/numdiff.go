// Package numdiff approximates derivatives by central finite differences.
// It is the oracle every analytic derivative in this module is checked
// against.
package numdiff

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// DefaultStep is the default disturbance applied to each coordinate.
const DefaultStep = 1e-6

func step(h float64) float64 {
	if h <= 0 {
		return DefaultStep
	}
	return h
}

// Jacobian returns the m x len(x) central-difference approximation of the
// derivative of f at x. f must write its m outputs into dst and must not
// retain x. f is called sequentially.
func Jacobian(f func(dst, x []float64), x []float64, m int, h float64) *mat.Dense {
	jac := mat.NewDense(m, len(x), nil)
	fd.Jacobian(jac, f, x, &fd.JacobianSettings{Formula: fd.Central, Step: step(h)})
	return jac
}

// Gradient returns the central-difference gradient of the scalar f at x.
func Gradient(f func(x []float64) float64, x []float64, h float64) []float64 {
	return fd.Gradient(nil, f, x, &fd.Settings{Formula: fd.Central, Step: step(h)})
}

// MaxRelativeError returns max |a_ij - b_ij| / max(1, |b_ij|). Both matrices
// must have the same shape.
func MaxRelativeError(a, b mat.Matrix) float64 {
	r, c := a.Dims()
	worst := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			bij := b.At(i, j)
			e := math.Abs(a.At(i, j)-bij) / math.Max(1, math.Abs(bij))
			if e > worst {
				worst = e
			}
		}
	}
	return worst
}
