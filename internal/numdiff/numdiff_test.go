package numdiff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestJacobian_MatchesAnalytic(t *testing.T) {
	f := func(dst, x []float64) {
		dst[0] = math.Sin(x[0]) * x[1]
		dst[1] = x[0]*x[0] + 3*x[1]
	}
	x := []float64{0.4, -1.2}
	got := Jacobian(f, x, 2, 0)
	want := mat.NewDense(2, 2, []float64{
		math.Cos(x[0]) * x[1], math.Sin(x[0]),
		2 * x[0], 3,
	})
	assert.Less(t, MaxRelativeError(got, want), 1e-8)
	// x is untouched.
	assert.Equal(t, []float64{0.4, -1.2}, x)
}

func TestGradient(t *testing.T) {
	g := Gradient(func(x []float64) float64 { return x[0]*x[0]*x[1] + x[2] }, []float64{1, 2, 3}, 1e-5)
	require.Len(t, g, 3)
	assert.InDelta(t, 4.0, g[0], 1e-7)
	assert.InDelta(t, 1.0, g[1], 1e-7)
	assert.InDelta(t, 1.0, g[2], 1e-7)
}

func TestMaxRelativeError(t *testing.T) {
	a := mat.NewDense(1, 2, []float64{1, 200})
	b := mat.NewDense(1, 2, []float64{1.5, 100})
	assert.InDelta(t, 1.0, MaxRelativeError(a, b), 1e-15)
}

func TestCentralFormula_ExactOnQuadratics(t *testing.T) {
	// A one-sided formula would be off by h here.
	g := Gradient(func(x []float64) float64 { return x[0] * x[0] }, []float64{1}, 0.5)
	assert.InDelta(t, 2.0, g[0], 1e-12)

	jac := Jacobian(func(dst, x []float64) { dst[0] = x[0]*x[0] - x[1]*x[1] }, []float64{1, 3}, 1, 0.5)
	assert.InDelta(t, 2.0, jac.At(0, 0), 1e-12)
	assert.InDelta(t, -6.0, jac.At(0, 1), 1e-12)
}
