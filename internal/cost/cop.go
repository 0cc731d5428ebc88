package cost

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/cxd309/mbcontact/internal/activation"
	"github.com/cxd309/mbcontact/internal/collector"
	"github.com/cxd309/mbcontact/internal/contact"
	"github.com/cxd309/mbcontact/internal/modelerr"
	"github.com/cxd309/mbcontact/internal/spatial"
	"github.com/cxd309/mbcontact/internal/state"
)

// CoPPositionModel penalizes the CoP of the wrench contact at the support
// frame leaving the support rectangle. The residual is A f, linear in the
// contact wrench f, so its derivatives come straight from the contact's own
// force derivatives.
//
// A model is immutable once built and may be shared by the Data of any
// number of nodes.
type CoPPositionModel struct {
	state      *state.Multibody
	activation activation.Model
	support    *CoPSupport
	frameName  string
	nu         int
}

// NewCoPPosition builds a CoP cost on the frame of support.
func NewCoPPosition(st *state.Multibody, act activation.Model, support *CoPSupport, nu int) (*CoPPositionModel, error) {
	if st == nil || act == nil || support == nil {
		return nil, modelerr.Configuration("cop cost: state, activation and support are required")
	}
	if nu < 0 {
		return nil, modelerr.Configuration("cop cost: negative control dimension %d", nu)
	}
	fr, err := st.Model().Frame(support.frame)
	if err != nil {
		return nil, err
	}
	return &CoPPositionModel{
		state:      st,
		activation: act,
		support:    support,
		frameName:  fr.Name,
		nu:         nu,
	}, nil
}

// State returns the state the cost is differentiated against.
func (m *CoPPositionModel) State() *state.Multibody { return m.state }

// Activation returns the activation the residual is passed through.
func (m *CoPPositionModel) Activation() activation.Model { return m.activation }

// Support returns the support rectangle.
func (m *CoPPositionModel) Support() *CoPSupport { return m.support }

// FrameName returns the name of the contact frame.
func (m *CoPPositionModel) FrameName() string { return m.frameName }

// NU returns the control dimension.
func (m *CoPPositionModel) NU() int { return m.nu }

// Data is the per-node workspace of a CoPPositionModel.
type Data struct {
	Cost float64
	R    *mat.VecDense // 4
	Rx   *mat.Dense    // 4 x ndx
	Ru   *mat.Dense    // 4 x nu
	Lx   *mat.VecDense // ndx
	Lu   *mat.VecDense // nu
	Lxx  *mat.Dense    // ndx x ndx
	Lxu  *mat.Dense    // ndx x nu
	Luu  *mat.Dense    // nu x nu

	Activation *activation.Data
	// Contact is the resolved contact. It is owned by the registry.
	Contact *contact.WrenchData
	// ContactPlacement is the placement of the contact frame in its parent
	// joint, cached at resolution.
	ContactPlacement spatial.SE3
	Shared           collector.ContactSource

	normal mgl64.Vec3
	a      *mat.Dense
	arrRx  *mat.Dense // Arr Rx
	arrRu  *mat.Dense // Arr Ru
	rxT    mat.Matrix
	ruT    mat.Matrix
}

// CreateData resolves the wrench contact at the support frame in the
// collector's contacts and allocates every buffer calc and calcDiff use.
// Nothing is allocated, and the registry is not touched, when resolution
// fails.
func (m *CoPPositionModel) CreateData(shared collector.KinematicsSource) (*Data, error) {
	src, ok := shared.(collector.ContactSource)
	if !ok || src == nil {
		return nil, modelerr.ContactResolution(m.frameName, "collector does not carry contacts")
	}
	w, err := contact.ResolveWrench(src.Contacts(), m.support.frame, m.frameName, m.activation.NR(), CoPResidualSize)
	if err != nil {
		return nil, err
	}
	ndx := m.state.NDX()
	if w.NDX() != ndx || w.NU() != m.nu {
		return nil, modelerr.Dimension(m.frameName, "contact derivatives are sized %d/%d, cost expects ndx=%d nu=%d", w.NDX(), w.NU(), ndx, m.nu)
	}

	d := &Data{
		R:                mat.NewVecDense(CoPResidualSize, nil),
		Rx:               mat.NewDense(CoPResidualSize, ndx, nil),
		Lx:               mat.NewVecDense(ndx, nil),
		Lxx:              mat.NewDense(ndx, ndx, nil),
		Activation:       m.activation.CreateData(),
		Contact:          w,
		ContactPlacement: w.JMf,
		Shared:           src,
		normal:           m.support.normal,
		a:                m.support.a,
		arrRx:            mat.NewDense(CoPResidualSize, ndx, nil),
	}
	d.rxT = d.Rx.T()
	if m.nu > 0 {
		d.Ru = mat.NewDense(CoPResidualSize, m.nu, nil)
		d.Lu = mat.NewVecDense(m.nu, nil)
		d.Lxu = mat.NewDense(ndx, m.nu, nil)
		d.Luu = mat.NewDense(m.nu, m.nu, nil)
		d.arrRu = mat.NewDense(CoPResidualSize, m.nu, nil)
		d.ruT = d.Ru.T()
	}
	return d, nil
}

// Calc computes the residual and the cost for the wrench currently held by
// the resolved contact. x and u are accepted for interface uniformity; the
// wrench already depends on them.
func (m *CoPPositionModel) Calc(d *Data, x, u []float64) {
	f := d.Contact.F.RawVector().Data
	for i := 0; i < CoPResidualSize; i++ {
		s := 0.0
		for j := 0; j < 6; j++ {
			s += d.a.At(i, j) * f[j]
		}
		d.R.SetVec(i, s)
	}
	m.activation.Calc(d.Activation, d.R)
	d.Cost = d.Activation.A
}

// CalcDiff computes the cost derivatives. Calc must have been called on d
// with the same x and u.
func (m *CoPPositionModel) CalcDiff(d *Data, x, u []float64) {
	m.activation.CalcDiff(d.Activation, d.R)
	ar, arr := d.Activation.Ar, d.Activation.Arr

	d.Rx.Mul(d.a, d.Contact.DfDx)
	d.Lx.MulVec(d.rxT, ar)
	d.arrRx.Mul(arr, d.Rx)
	d.Lxx.Mul(d.rxT, d.arrRx)
	if m.nu == 0 {
		return
	}
	d.Ru.Mul(d.a, d.Contact.DfDu)
	d.Lu.MulVec(d.ruT, ar)
	d.arrRu.Mul(arr, d.Ru)
	d.Lxu.Mul(d.rxT, d.arrRu)
	d.Luu.Mul(d.ruT, d.arrRu)
}

// Margins returns the distance of the CoP to each edge of the support
// rectangle in length units, r_i / f_n. ok is false when the normal force
// is not positive, in which case the CoP is undefined.
func (d *Data) Margins() (margins [CoPResidualSize]float64, ok bool) {
	fn := d.normal.Dot(d.Contact.Wrench().Linear)
	if !(fn > 0) {
		for i := range margins {
			margins[i] = math.NaN()
		}
		return margins, false
	}
	for i := range margins {
		margins[i] = d.R.AtVec(i) / fn
	}
	return margins, true
}
