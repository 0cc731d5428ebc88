package kinematics_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cxd309/mbcontact/internal/kinematics"
	"github.com/cxd309/mbcontact/internal/modelerr"
	"github.com/cxd309/mbcontact/internal/numdiff"
	"github.com/cxd309/mbcontact/internal/spatial"
	"github.com/cxd309/mbcontact/internal/testutil"
)

func randomQV(rng *rand.Rand, n int) (q, v []float64) {
	q, v = make([]float64, n), make([]float64, n)
	for i := range q {
		q[i] = rng.Float64()*2 - 1
		v[i] = rng.Float64()*2 - 1
	}
	return q, v
}

func TestJointJacobian_MapsVelocity(t *testing.T) {
	m := testutil.LegModel(t)
	d := m.CreateData()
	q, v := randomQV(rand.New(rand.NewSource(1)), m.NV())
	testutil.Kinematics(m, d, q, v)

	jac := mat.NewDense(6, m.NV(), nil)
	for j := 1; j < m.NJoints(); j++ {
		m.JointJacobian(d, j, jac)
		var got mat.VecDense
		got.MulVec(jac, mat.NewVecDense(len(v), v))
		want := d.V[j].Array()
		for i := 0; i < 6; i++ {
			assert.InDelta(t, want[i], got.AtVec(i), 1e-12, "joint %d row %d", j, i)
		}
	}
}

func TestJointJacobian_ZeroOutsideSupport(t *testing.T) {
	m := testutil.LegModel(t)
	d := m.CreateData()
	q, v := randomQV(rand.New(rand.NewSource(2)), m.NV())
	testutil.Kinematics(m, d, q, v)

	ankle, ok := m.JointID("ankle_roll")
	require.True(t, ok)
	jac := mat.NewDense(6, m.NV(), nil)
	m.JointJacobian(d, ankle, jac)
	// right_hip and right_slide are columns 6 and 7.
	for i := 0; i < 6; i++ {
		assert.Zero(t, jac.At(i, 6))
		assert.Zero(t, jac.At(i, 7))
	}
	assert.Equal(t, []kinematics.JointIndex{1, 2, 3, 4, 5, 6}, m.Support(ankle))
}

func TestJointVelocityDerivatives_MatchFiniteDifferences(t *testing.T) {
	m := testutil.LegModel(t)
	d := m.CreateData()
	fd := m.CreateData()
	rng := rand.New(rand.NewSource(3))

	dvdq := mat.NewDense(6, m.NV(), nil)
	dvdv := mat.NewDense(6, m.NV(), nil)
	jac := mat.NewDense(6, m.NV(), nil)
	for trial := 0; trial < 3; trial++ {
		q, v := randomQV(rng, m.NV())
		testutil.Kinematics(m, d, q, v)
		for j := 1; j < m.NJoints(); j++ {
			m.JointVelocityDerivatives(d, j, dvdq, dvdv)
			m.JointJacobian(d, j, jac)
			assert.True(t, mat.Equal(jac, dvdv))

			approx := numdiff.Jacobian(func(dst, qp []float64) {
				m.ForwardKinematics(fd, qp, v)
				a := fd.V[j].Array()
				copy(dst, a[:])
			}, q, 6, 1e-6)
			assert.Less(t, numdiff.MaxRelativeError(dvdq, approx), 1e-6, "joint %d", j)
		}
	}
}

func TestFrameVelocity_Conventions(t *testing.T) {
	m := testutil.LegModel(t)
	d := m.CreateData()
	q, v := randomQV(rand.New(rand.NewSource(4)), m.NV())
	testutil.Kinematics(m, d, q, v)
	f := testutil.Frame(t, m, testutil.LeftAnkle)

	local := m.FrameVelocity(d, f, kinematics.Local)
	lwa := m.FrameVelocity(d, f, kinematics.LocalWorldAligned)
	world := m.FrameVelocity(d, f, kinematics.World)

	// Angular parts agree once rotated to the world.
	w := d.OMf[f].R.Mul3x1(local.Angular)
	assert.InDeltaSlice(t, w[:], lwa.Angular[:], 1e-12)
	assert.InDeltaSlice(t, w[:], world.Angular[:], 1e-12)

	// The LOCAL_WORLD_ALIGNED linear part is the time derivative of the frame
	// origin.
	h := 1e-6
	pos := func(sign float64) [3]float64 {
		qp := make([]float64, len(q))
		for i := range q {
			qp[i] = q[i] + sign*h*v[i]
		}
		fd := m.CreateData()
		testutil.Kinematics(m, fd, qp, v)
		return fd.OMf[f].P
	}
	pp, pm := pos(1), pos(-1)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, (pp[i]-pm[i])/(2*h), lwa.Linear[i], 1e-6)
	}
}

func TestNewModel_Errors(t *testing.T) {
	base := testutil.LegModelData()
	tests := []struct {
		name   string
		mutate func(*kinematics.ModelData)
		errMsg string
	}{
		{"unknown parent", func(md *kinematics.ModelData) { md.Joints[1].Parent = "nope" }, "parent \"nope\" not found"},
		{"unknown joint type", func(md *kinematics.ModelData) { md.Joints[0].Type = "spherical" }, "unknown joint type"},
		{"zero axis", func(md *kinematics.ModelData) { md.Joints[2].Axis = [3]float64{} }, "axis must be non-zero"},
		{"duplicate joint", func(md *kinematics.ModelData) { md.Joints[3].Name = "hip_yaw" }, "already exists"},
		{"duplicate frame", func(md *kinematics.ModelData) { md.Frames[1].Name = testutil.LeftAnkle }, "already exists"},
		{"frame on unknown joint", func(md *kinematics.ModelData) { md.Frames[0].Joint = "toe" }, "joint \"toe\" not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := base
			md.Joints = append([]kinematics.JointData(nil), base.Joints...)
			md.Frames = append([]kinematics.FrameData(nil), base.Frames...)
			tt.mutate(&md)
			_, err := kinematics.NewModel(md)
			require.Error(t, err)
			assert.True(t, errors.Is(err, modelerr.ErrConfiguration))
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestModel_Lookups(t *testing.T) {
	m := testutil.LegModel(t)
	assert.Equal(t, 8, m.NQ())
	assert.Equal(t, 9, m.NJoints())
	// universe + one per joint + two operational frames
	assert.Equal(t, 11, m.NFrames())

	f := testutil.Frame(t, m, testutil.LeftAnkle)
	fr, err := m.Frame(f)
	require.NoError(t, err)
	ankle, _ := m.JointID("ankle_roll")
	assert.Equal(t, ankle, fr.Parent)

	_, err = m.Frame(99)
	assert.ErrorIs(t, err, modelerr.ErrConfiguration)
}

func TestAddJoint_FrameNameClashLeavesModelUntouched(t *testing.T) {
	m := testutil.LegModel(t)
	nj, nf := m.NJoints(), m.NFrames()
	j, err := kinematics.NewJoint(kinematics.RevoluteName, mgl64.Vec3{0, 0, 1})
	require.NoError(t, err)
	knee, _ := m.JointID("knee")

	_, err = m.AddJoint(testutil.LeftAnkle, knee, j, spatial.Identity())
	assert.ErrorIs(t, err, modelerr.ErrConfiguration)
	assert.Equal(t, nj, m.NJoints())
	assert.Equal(t, nf, m.NFrames())
	_, ok := m.JointID(testutil.LeftAnkle)
	assert.False(t, ok)

	id, err := m.AddJoint("toe", knee, j, spatial.Identity())
	require.NoError(t, err)
	assert.Equal(t, nj, id)
	assert.Equal(t, nj+1, m.NJoints())
	assert.Equal(t, []kinematics.JointIndex{1, 2, 3, 4, id}, m.Support(id))
}

func TestForwardKinematics_PanicsOnBadLength(t *testing.T) {
	m := testutil.LegModel(t)
	d := m.CreateData()
	assert.Panics(t, func() { m.ForwardKinematics(d, []float64{1}, make([]float64, m.NV())) })
}

func TestReferenceFrame(t *testing.T) {
	for _, name := range []string{"local", "world", "local_world_aligned"} {
		r, err := kinematics.ParseReferenceFrame(name)
		require.NoError(t, err)
		assert.Equal(t, name, r.String())
		b, err := r.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(b))
	}

	_, err := kinematics.ParseReferenceFrame("contact")
	assert.ErrorIs(t, err, modelerr.ErrConfiguration)

	var r kinematics.ReferenceFrame
	assert.Error(t, r.UnmarshalText([]byte("LOCAL")))
	assert.False(t, kinematics.ReferenceFrame(7).Valid())
	assert.Equal(t, "invalid", kinematics.ReferenceFrame(-1).String())
}
