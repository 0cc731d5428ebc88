// Package contact holds the per-node data of active contacts and the
// registry the contact-dynamics stage publishes them in.
//
// A contact is either a point contact, which can only transmit a linear
// force, or a wrench contact, which transmits a full 6-D spatial force. The
// distinction is a tagged variant: Data reports its Kind once and consumers
// dispatch on it when they resolve the contact, not on every call.
package contact

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/cxd309/mbcontact/internal/kinematics"
	"github.com/cxd309/mbcontact/internal/spatial"
)

// Kind is the dimensionality class of a contact.
type Kind int

const (
	KindPoint Kind = iota + 1
	KindWrench
)

// Dim returns the number of force components a contact of kind k carries.
func (k Kind) Dim() int {
	switch k {
	case KindPoint:
		return 3
	case KindWrench:
		return 6
	default:
		return 0
	}
}

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindWrench:
		return "wrench"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ForceData is the state every contact exposes downstream: the contact force
// expressed in the contact frame and its derivatives with respect to the
// state tangent (ndx columns) and the control (nu columns).
type ForceData struct {
	Frame kinematics.FrameIndex
	JMf   spatial.SE3 // parent joint -> contact frame

	F    *mat.VecDense // dim
	DfDx *mat.Dense    // dim x ndx
	DfDu *mat.Dense    // dim x nu; nil when nu == 0
}

func newForceData(dim int, frame kinematics.FrameIndex, jMf spatial.SE3, ndx, nu int) ForceData {
	fd := ForceData{
		Frame: frame,
		JMf:   jMf,
		F:     mat.NewVecDense(dim, nil),
		DfDx:  mat.NewDense(dim, ndx, nil),
	}
	if nu > 0 {
		fd.DfDu = mat.NewDense(dim, nu, nil)
	}
	return fd
}

// NDX returns the state tangent dimension the derivatives were sized for.
func (f *ForceData) NDX() int {
	_, c := f.DfDx.Dims()
	return c
}

// NU returns the control dimension the derivatives were sized for.
func (f *ForceData) NU() int {
	if f.DfDu == nil {
		return 0
	}
	_, c := f.DfDu.Dims()
	return c
}

// Data is implemented by *PointData and *WrenchData only.
type Data interface {
	Kind() Kind
	Force() *ForceData
	contact()
}

// PointData is a 3-D contact.
type PointData struct {
	ForceData
}

// NewPointData allocates a point contact at frame.
func NewPointData(frame kinematics.FrameIndex, jMf spatial.SE3, ndx, nu int) *PointData {
	return &PointData{ForceData: newForceData(KindPoint.Dim(), frame, jMf, ndx, nu)}
}

func (*PointData) Kind() Kind          { return KindPoint }
func (p *PointData) Force() *ForceData { return &p.ForceData }
func (*PointData) contact()            {}

// WrenchData is a 6-D contact.
type WrenchData struct {
	ForceData
}

// NewWrenchData allocates a wrench contact at frame.
func NewWrenchData(frame kinematics.FrameIndex, jMf spatial.SE3, ndx, nu int) *WrenchData {
	return &WrenchData{ForceData: newForceData(KindWrench.Dim(), frame, jMf, ndx, nu)}
}

func (*WrenchData) Kind() Kind          { return KindWrench }
func (w *WrenchData) Force() *ForceData { return &w.ForceData }
func (*WrenchData) contact()            {}

// Wrench returns F as a spatial force.
func (w *WrenchData) Wrench() spatial.Force {
	return spatial.ForceFromSlice(w.F.RawVector().Data)
}

// SetWrench overwrites F.
func (w *WrenchData) SetWrench(f spatial.Force) {
	a := f.Array()
	for i, v := range a {
		w.F.SetVec(i, v)
	}
}
