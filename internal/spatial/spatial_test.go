package spatial

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const tol = 1e-12

func sampleSE3() SE3 {
	return SE3{R: RPY(0.3, -0.7, 1.1), P: mgl64.Vec3{0.2, -0.5, 0.9}}
}

func assertVec(t *testing.T, want, got mgl64.Vec3) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], tol, "component %d", i)
	}
}

func TestSE3_InverseCompose(t *testing.T) {
	a := sampleSE3()
	id := a.Compose(a.Inverse())
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			want := 0.0
			if r == c {
				want = 1
			}
			assert.InDelta(t, want, id.R.At(r, c), tol)
		}
	}
	assertVec(t, mgl64.Vec3{}, id.P)
}

func TestSE3_ActRoundTrip(t *testing.T) {
	a := sampleSE3()
	m := Motion{Linear: mgl64.Vec3{1, 2, 3}, Angular: mgl64.Vec3{-0.4, 0.5, 0.6}}
	back := a.ActInvMotion(a.ActMotion(m))
	assertVec(t, m.Linear, back.Linear)
	assertVec(t, m.Angular, back.Angular)

	f := Force{Linear: mgl64.Vec3{10, -2, 30}, Angular: mgl64.Vec3{0.1, 0.2, -0.3}}
	fb := a.ActInvForce(a.ActForce(f))
	assertVec(t, f.Linear, fb.Linear)
	assertVec(t, f.Angular, fb.Angular)
}

func TestSE3_ActionMatrixMatchesActMotion(t *testing.T) {
	a := sampleSE3()
	m := Motion{Linear: mgl64.Vec3{1, -2, 0.5}, Angular: mgl64.Vec3{0.3, 0.1, -0.7}}
	x := mat.NewDense(6, 6, nil)
	a.ActionMatrix(x)

	arr := m.Array()
	var got mat.VecDense
	got.MulVec(x, mat.NewVecDense(6, arr[:]))
	want := a.ActMotion(m).Array()
	for i := 0; i < 6; i++ {
		assert.InDelta(t, want[i], got.AtVec(i), tol)
	}
}

func TestSE3_PowerIsFrameIndependent(t *testing.T) {
	// The pairing <f, v> must not depend on the frame both are expressed in.
	a := sampleSE3()
	m := Motion{Linear: mgl64.Vec3{1, -2, 0.5}, Angular: mgl64.Vec3{0.3, 0.1, -0.7}}
	f := Force{Linear: mgl64.Vec3{4, 0, -1}, Angular: mgl64.Vec3{0.2, -0.8, 0.5}}
	local := f.Linear.Dot(m.Linear) + f.Angular.Dot(m.Angular)
	mw, fw := a.ActMotion(m), a.ActForce(f)
	world := fw.Linear.Dot(mw.Linear) + fw.Angular.Dot(mw.Angular)
	assert.InDelta(t, local, world, 1e-10)
}

func TestSkew(t *testing.T) {
	v := mgl64.Vec3{1, -2, 3}
	w := mgl64.Vec3{0.5, 0.25, -4}
	assertVec(t, v.Cross(w), Skew(v).Mul3x1(w))

	d := mat.NewDense(3, 3, nil)
	SetSkew(d, v)
	assert.Equal(t, -v[2], d.At(0, 1))
	assert.Equal(t, v[1], d.At(0, 2))
	assert.Equal(t, -v[0], d.At(1, 2))
}

func TestMotionCross_AntiSymmetric(t *testing.T) {
	m := Motion{Linear: mgl64.Vec3{1, 2, 3}, Angular: mgl64.Vec3{0.1, -0.2, 0.3}}
	c := m.Cross(m)
	assertVec(t, mgl64.Vec3{}, c.Linear)
	assertVec(t, mgl64.Vec3{}, c.Angular)
}

func TestRotationBetween(t *testing.T) {
	tests := []struct {
		name     string
		from, to mgl64.Vec3
	}{
		{"identity", mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 2}},
		{"tilted", mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0.3, -0.1, 1}},
		{"quarter", mgl64.Vec3{0, 0, 1}, mgl64.Vec3{1, 0, 0}},
		{"opposite", mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, -1}},
		{"opposite x", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{-3, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RotationBetween(tt.from, tt.to)
			assertVec(t, tt.to.Normalize(), r.Mul3x1(tt.from.Normalize()))
			require.InDelta(t, 1.0, r.Det(), 1e-10)
		})
	}
}

func TestAxisAngle(t *testing.T) {
	r := AxisAngle(mgl64.Vec3{0, 0, 1}, math.Pi/2)
	assertVec(t, mgl64.Vec3{0, 1, 0}, r.Mul3x1(mgl64.Vec3{1, 0, 0}))
}
