// Package collector bundles the per-node data shared by the cost and impulse
// models of one trajectory node.
//
// Each capability is a small interface. Consumers assert the capability they
// need when their Data is created; the concrete collectors below compose
// only the capabilities a node actually has.
package collector

import (
	"gonum.org/v1/gonum/mat"

	"github.com/cxd309/mbcontact/internal/contact"
	"github.com/cxd309/mbcontact/internal/kinematics"
)

// KinematicsSource gives read access to the node's kinematics results.
type KinematicsSource interface {
	Kinematics() *kinematics.Data
}

// ActuationSource gives access to the node's actuation data.
type ActuationSource interface {
	Actuation() *ActuationData
}

// JointSource gives access to the node's joint-effort data.
type JointSource interface {
	Joint() *JointData
}

// ContactSource gives access to the contacts (or impulses) active at the
// node.
type ContactSource interface {
	Contacts() *contact.Registry
}

// ActuationData holds the generalized torque produced by the actuation model
// and its derivatives.
type ActuationData struct {
	Tau    *mat.VecDense // nv
	DtauDx *mat.Dense    // nv x ndx
	DtauDu *mat.Dense    // nv x nu; nil when nu == 0
}

// NewActuationData allocates actuation data.
func NewActuationData(nv, ndx, nu int) *ActuationData {
	a := &ActuationData{
		Tau:    mat.NewVecDense(nv, nil),
		DtauDx: mat.NewDense(nv, ndx, nil),
	}
	if nu > 0 {
		a.DtauDu = mat.NewDense(nv, nu, nil)
	}
	return a
}

// JointData holds joint efforts and accelerations with their derivatives.
type JointData struct {
	Tau    *mat.VecDense // nv
	A      *mat.VecDense // nv
	DtauDx *mat.Dense    // nv x ndx
	DtauDu *mat.Dense    // nv x nu; nil when nu == 0
	DaDx   *mat.Dense    // nv x ndx
	DaDu   *mat.Dense    // nv x nu; nil when nu == 0
}

// NewJointData allocates joint data.
func NewJointData(nv, ndx, nu int) *JointData {
	j := &JointData{
		Tau:    mat.NewVecDense(nv, nil),
		A:      mat.NewVecDense(nv, nil),
		DtauDx: mat.NewDense(nv, ndx, nil),
		DaDx:   mat.NewDense(nv, ndx, nil),
	}
	if nu > 0 {
		j.DtauDu = mat.NewDense(nv, nu, nil)
		j.DaDu = mat.NewDense(nv, nu, nil)
	}
	return j
}

// Multibody carries only the kinematics.
type Multibody struct {
	kin *kinematics.Data
}

func NewMultibody(kin *kinematics.Data) *Multibody { return &Multibody{kin: kin} }

func (m *Multibody) Kinematics() *kinematics.Data { return m.kin }

// ActMultibody adds actuation.
type ActMultibody struct {
	Multibody
	act *ActuationData
}

func NewActMultibody(kin *kinematics.Data, act *ActuationData) *ActMultibody {
	return &ActMultibody{Multibody: Multibody{kin: kin}, act: act}
}

func (m *ActMultibody) Actuation() *ActuationData { return m.act }

// JointActMultibody adds actuation and joint data.
type JointActMultibody struct {
	ActMultibody
	joint *JointData
}

func NewJointActMultibody(kin *kinematics.Data, act *ActuationData, joint *JointData) *JointActMultibody {
	return &JointActMultibody{ActMultibody: ActMultibody{Multibody: Multibody{kin: kin}, act: act}, joint: joint}
}

func (m *JointActMultibody) Joint() *JointData { return m.joint }

type contacts struct {
	reg *contact.Registry
}

func (c *contacts) Contacts() *contact.Registry { return c.reg }

// ContactMultibody adds the active contacts.
type ContactMultibody struct {
	Multibody
	contacts
}

func NewContactMultibody(kin *kinematics.Data, reg *contact.Registry) *ContactMultibody {
	return &ContactMultibody{Multibody: Multibody{kin: kin}, contacts: contacts{reg: reg}}
}

// ContactActMultibody adds actuation and the active contacts.
type ContactActMultibody struct {
	ActMultibody
	contacts
}

func NewContactActMultibody(kin *kinematics.Data, act *ActuationData, reg *contact.Registry) *ContactActMultibody {
	return &ContactActMultibody{
		ActMultibody: ActMultibody{Multibody: Multibody{kin: kin}, act: act},
		contacts:     contacts{reg: reg},
	}
}

// ImpulseMultibody carries the kinematics and the active impulses, which are
// published through the same registry type as contacts.
type ImpulseMultibody struct {
	Multibody
	contacts
}

func NewImpulseMultibody(kin *kinematics.Data, impulses *contact.Registry) *ImpulseMultibody {
	return &ImpulseMultibody{Multibody: Multibody{kin: kin}, contacts: contacts{reg: impulses}}
}
