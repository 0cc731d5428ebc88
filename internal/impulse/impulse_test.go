package impulse

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cxd309/mbcontact/internal/collector"
	"github.com/cxd309/mbcontact/internal/contact"
	"github.com/cxd309/mbcontact/internal/kinematics"
	"github.com/cxd309/mbcontact/internal/modelerr"
	"github.com/cxd309/mbcontact/internal/numdiff"
	"github.com/cxd309/mbcontact/internal/state"
	"github.com/cxd309/mbcontact/internal/testutil"
)

var references = []kinematics.ReferenceFrame{kinematics.Local, kinematics.LocalWorldAligned, kinematics.World}

func newState(t *testing.T) *state.Multibody {
	t.Helper()
	return state.NewMultibody(testutil.LegModel(t))
}

// evaluate runs the kinematics for x and a fresh impulse Data on top of it.
func evaluate(t *testing.T, imp *Model6D, x []float64) *Data6D {
	t.Helper()
	st := imp.State()
	q, v := st.Split(x)
	kin := st.Model().CreateData()
	testutil.Kinematics(st.Model(), kin, q, v)
	d, err := imp.CreateData(collector.NewMultibody(kin))
	require.NoError(t, err)
	imp.Calc(d, x)
	return d
}

func withQ(st *state.Multibody, x, q []float64) []float64 {
	out := append([]float64(nil), x...)
	copy(out[:st.NQ()], q)
	return out
}

func TestNewModel6D_Errors(t *testing.T) {
	st := newState(t)
	frame := testutil.Frame(t, st.Model(), testutil.LeftAnkle)

	_, err := NewModel6D(st, frame, kinematics.ReferenceFrame(7))
	assert.ErrorIs(t, err, modelerr.ErrConfiguration)
	_, err = NewModel6D(st, 99, kinematics.Local)
	assert.ErrorIs(t, err, modelerr.ErrConfiguration)
	_, err = NewModel6D(nil, frame, kinematics.Local)
	assert.ErrorIs(t, err, modelerr.ErrConfiguration)

	imp, err := NewModel6D(st, frame, kinematics.World)
	require.NoError(t, err)
	assert.Equal(t, 6, imp.NI())
	assert.Equal(t, testutil.LeftAnkle, imp.FrameName())
}

func TestCreateData_Contract(t *testing.T) {
	st := newState(t)
	imp, err := NewModel6D(st, testutil.Frame(t, st.Model(), testutil.LeftAnkle), kinematics.Local)
	require.NoError(t, err)

	noFrames := testutil.LegModelData()
	noFrames.Frames = nil
	bare, err := kinematics.NewModel(noFrames)
	require.NoError(t, err)

	tests := []struct {
		name   string
		shared collector.KinematicsSource
		kind   error
	}{
		{"ok", collector.NewMultibody(st.Model().CreateData()), nil},
		{"nil collector", nil, modelerr.ErrDimension},
		{"nil kinematics", collector.NewMultibody(nil), modelerr.ErrDimension},
		{"other model", collector.NewMultibody(kinematics.NewEmptyModel("empty").CreateData()), modelerr.ErrDimension},
		{"frame missing", collector.NewMultibody(bare.CreateData()), modelerr.ErrContactResolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := imp.CreateData(tt.shared)
			if tt.kind == nil {
				require.NoError(t, err)
				assert.Equal(t, contact.KindWrench, d.Wrench.Kind())
				return
			}
			assert.ErrorIs(t, err, tt.kind)
			assert.Nil(t, d)
		})
	}
}

func TestCalc_JacobianMapsVelocity(t *testing.T) {
	st := newState(t)
	frame := testutil.Frame(t, st.Model(), testutil.LeftAnkle)
	x := st.Rand(rand.New(rand.NewSource(11)))
	_, v := st.Split(x)

	for _, ref := range references {
		t.Run(ref.String(), func(t *testing.T) {
			imp, err := NewModel6D(st, frame, ref)
			require.NoError(t, err)
			d := evaluate(t, imp, x)

			r, c := d.Jc.Dims()
			assert.Equal(t, []int{6, st.NV()}, []int{r, c})

			var jv mat.VecDense
			jv.MulVec(d.Jc, mat.NewVecDense(len(v), v))
			want := d.V0.Array()
			for i := 0; i < 6; i++ {
				assert.InDelta(t, want[i], jv.AtVec(i), 1e-12)
			}
		})
	}
}

func TestCalcDiff_MatchesFiniteDifferences(t *testing.T) {
	st := newState(t)
	rng := rand.New(rand.NewSource(12))
	for _, name := range []string{testutil.LeftAnkle, testutil.RightFoot} {
		frame := testutil.Frame(t, st.Model(), name)
		for _, ref := range references {
			t.Run(name+"/"+ref.String(), func(t *testing.T) {
				imp, err := NewModel6D(st, frame, ref)
				require.NoError(t, err)
				x := st.Rand(rng)
				q, _ := st.Split(x)
				d := evaluate(t, imp, x)
				imp.CalcDiff(d, x)

				fd := numdiff.Jacobian(func(dst, qp []float64) {
					v0 := evaluate(t, imp, withQ(st, x, qp)).V0.Array()
					copy(dst, v0[:])
				}, q, 6, 1e-6)
				assert.Less(t, numdiff.MaxRelativeError(d.Dv0Dq, fd), 1e-6)
			})
		}
	}
}

func TestCalc_Idempotent(t *testing.T) {
	st := newState(t)
	imp, err := NewModel6D(st, testutil.Frame(t, st.Model(), testutil.LeftAnkle), kinematics.LocalWorldAligned)
	require.NoError(t, err)
	x := st.Rand(rand.New(rand.NewSource(13)))
	d := evaluate(t, imp, x)
	imp.CalcDiff(d, x)
	jc := mat.DenseCopyOf(d.Jc)
	dv := mat.DenseCopyOf(d.Dv0Dq)
	v0 := d.V0

	imp.Calc(d, x)
	imp.CalcDiff(d, x)
	assert.True(t, mat.Equal(jc, d.Jc))
	assert.True(t, mat.Equal(dv, d.Dv0Dq))
	assert.Equal(t, v0, d.V0)
}

func TestUpdateForce_RoundTrip(t *testing.T) {
	st := newState(t)
	frame := testutil.Frame(t, st.Model(), testutil.LeftAnkle)
	x := st.Rand(rand.New(rand.NewSource(14)))
	force := []float64{1.5, -2.25, 300.125, 0.1, -0.3, 0.7}

	for _, ref := range references {
		t.Run(ref.String(), func(t *testing.T) {
			imp, err := NewModel6D(st, frame, ref)
			require.NoError(t, err)
			d := evaluate(t, imp, x)
			d.Wrench.DfDx.Set(0, 0, 42)

			imp.UpdateForce(d, force)
			assert.Equal(t, force, d.Wrench.F.RawVector().Data)
			assert.Zero(t, mat.Norm(d.Wrench.DfDx, 1))

			// The joint-space generalized force is the same whichever frame
			// the impulse is read in.
			var tauJoint, tauFrame mat.VecDense
			jJj := mat.NewDense(6, st.NV(), nil)
			st.Model().JointJacobian(d.kin, imp.parent, jJj)
			fext := d.Fext.Array()
			tauJoint.MulVec(jJj.T(), mat.NewVecDense(6, fext[:]))
			tauFrame.MulVec(d.Jc.T(), mat.NewVecDense(6, force))
			assert.True(t, mat.EqualApprox(&tauJoint, &tauFrame, 1e-9))
		})
	}
}

func TestModel6D_DoesNotAllocate(t *testing.T) {
	st := newState(t)
	frame := testutil.Frame(t, st.Model(), testutil.LeftAnkle)
	x := st.Rand(rand.New(rand.NewSource(21)))
	force := []float64{1.5, -2.25, 300.125, 0.1, -0.3, 0.7}

	for _, ref := range references {
		t.Run(ref.String(), func(t *testing.T) {
			imp, err := NewModel6D(st, frame, ref)
			require.NoError(t, err)
			d := evaluate(t, imp, x)

			assert.Zero(t, testing.AllocsPerRun(50, func() { imp.Calc(d, x) }), "calc")
			assert.Zero(t, testing.AllocsPerRun(50, func() { imp.CalcDiff(d, x) }), "calcDiff")
			assert.Zero(t, testing.AllocsPerRun(50, func() { imp.UpdateForce(d, force) }), "updateForce")
		})
	}
}

func TestUpdateForce_TorqueDerivative(t *testing.T) {
	st := newState(t)
	frame := testutil.Frame(t, st.Model(), testutil.LeftAnkle)
	x := st.Rand(rand.New(rand.NewSource(15)))
	q, _ := st.Split(x)
	force := []float64{3, -1, 250, 0.5, 2, -0.4}

	for _, ref := range references {
		t.Run(ref.String(), func(t *testing.T) {
			imp, err := NewModel6D(st, frame, ref)
			require.NoError(t, err)
			d := evaluate(t, imp, x)
			imp.UpdateForce(d, force)
			if ref == kinematics.Local {
				assert.Zero(t, mat.Norm(d.DtauDq, 1))
				return
			}

			// -fJf^T f_local with fJf frozen at q.
			fJf := mat.DenseCopyOf(d.fJf)
			fd := numdiff.Jacobian(func(dst, qp []float64) {
				dp := evaluate(t, imp, withQ(st, x, qp))
				imp.UpdateForce(dp, force)
				local := imp.jMf.ActInvForce(dp.Fext).Array()
				var tau mat.VecDense
				tau.MulVec(fJf.T(), mat.NewVecDense(6, local[:]))
				for i := range dst {
					dst[i] = -tau.AtVec(i)
				}
			}, q, st.NV(), 1e-6)
			assert.Less(t, numdiff.MaxRelativeError(d.DtauDq, fd), 1e-6)
		})
	}
}

func TestUpdateForce_PanicsOnBadLength(t *testing.T) {
	st := newState(t)
	imp, err := NewModel6D(st, testutil.Frame(t, st.Model(), testutil.LeftAnkle), kinematics.Local)
	require.NoError(t, err)
	d := evaluate(t, imp, st.Zero())
	assert.Panics(t, func() { imp.UpdateForce(d, []float64{1, 2, 3}) })
	assert.Panics(t, func() { imp.UpdateForceDiff(d, mat.NewDense(3, st.NDX(), nil)) })

	dfdx := mat.NewDense(6, st.NDX(), nil)
	dfdx.Set(2, 1, 5)
	imp.UpdateForceDiff(d, dfdx)
	assert.Equal(t, 5.0, d.Wrench.DfDx.At(2, 1))
}

func TestMultiple(t *testing.T) {
	st := newState(t)
	left, err := NewModel6D(st, testutil.Frame(t, st.Model(), testutil.LeftAnkle), kinematics.LocalWorldAligned)
	require.NoError(t, err)
	right, err := NewModel6D(st, testutil.Frame(t, st.Model(), testutil.RightFoot), kinematics.World)
	require.NoError(t, err)

	multi := NewMultiple(st)
	require.NoError(t, multi.Add("left", left))
	require.NoError(t, multi.Add("right", right))
	assert.ErrorIs(t, multi.Add("left", right), modelerr.ErrConfiguration)
	assert.ErrorIs(t, multi.Add("other", &Model6D{state: newState(t)}), modelerr.ErrConfiguration)
	assert.Equal(t, 12, multi.NI())

	x := st.Rand(rand.New(rand.NewSource(16)))
	q, v := st.Split(x)
	kin := st.Model().CreateData()
	testutil.Kinematics(st.Model(), kin, q, v)
	d, err := multi.CreateData(collector.NewMultibody(kin))
	require.NoError(t, err)
	assert.Equal(t, 2, d.Registry.Len())

	multi.Calc(d, x)
	multi.CalcDiff(d, x)
	for i, id := range d.Impulses {
		for r := 0; r < 6; r++ {
			for c := 0; c < st.NV(); c++ {
				assert.Equal(t, id.Jc.At(r, c), d.Jc.At(6*i+r, c))
				assert.Equal(t, id.Dv0Dq.At(r, c), d.Dv0Dq.At(6*i+r, c))
			}
		}
	}

	force := []float64{0, 0, 100, 1, 2, 0, 0, 0, 80, -1, 0, 0.5}
	multi.UpdateForce(d, force)
	w, ok := d.Registry.Get("right")
	require.True(t, ok)
	assert.Equal(t, force[6:], w.Force().F.RawVector().Data)

	var sum mat.Dense
	sum.Add(d.Impulses[0].DtauDq, d.Impulses[1].DtauDq)
	assert.True(t, mat.EqualApprox(&sum, d.DtauDq, 1e-12))
	assert.Equal(t, d.Impulses[0].Fext, d.Fext[left.parent])
	assert.Panics(t, func() { multi.UpdateForce(d, force[:6]) })

	// Two impulses on one frame cannot both be published.
	dup := NewMultiple(st)
	require.NoError(t, dup.Add("a", left))
	require.NoError(t, dup.Add("b", left))
	_, err = dup.CreateData(collector.NewMultibody(kin))
	assert.ErrorIs(t, err, modelerr.ErrConfiguration)

	_, err = NewMultiple(st).CreateData(collector.NewMultibody(kin))
	assert.ErrorIs(t, err, modelerr.ErrConfiguration)
}
