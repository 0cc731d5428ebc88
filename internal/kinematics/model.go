package kinematics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/cxd309/mbcontact/internal/graph"
	"github.com/cxd309/mbcontact/internal/modelerr"
	"github.com/cxd309/mbcontact/internal/spatial"
)

// UniverseName is the name of the fixed root joint.
const UniverseName = "universe"

// JointIndex identifies a joint; 0 is the universe.
type JointIndex = graph.NodeID

// FrameIndex identifies an operational frame.
type FrameIndex int

// PlacementData is the serialisable form of a rigid transform.
type PlacementData struct {
	Translation [3]float64 `json:"translation" yaml:"translation"` // metres
	RPY         [3]float64 `json:"rpy" yaml:"rpy"`                 // radians, R = Rz Ry Rx
}

// JointData describes one joint of a model.
type JointData struct {
	Name      string        `json:"name" yaml:"name"`
	Parent    string        `json:"parent,omitempty" yaml:"parent,omitempty"` // empty = universe
	Type      string        `json:"type" yaml:"type"`
	Axis      [3]float64    `json:"axis" yaml:"axis"`
	Placement PlacementData `json:"placement" yaml:"placement"`
}

// FrameData describes an operational frame fixed to a joint.
type FrameData struct {
	Name      string        `json:"name" yaml:"name"`
	Joint     string        `json:"joint" yaml:"joint"`
	Placement PlacementData `json:"placement" yaml:"placement"`
}

// ModelData is the serialisable input representation of a model.
type ModelData struct {
	Name   string      `json:"name" yaml:"name"`
	Joints []JointData `json:"joints" yaml:"joints"`
	Frames []FrameData `json:"frames" yaml:"frames"`
}

// Frame is an operational frame rigidly attached to its parent joint.
type Frame struct {
	Name      string
	Parent    JointIndex
	Placement spatial.SE3 // jMf
}

// Model is a kinematic tree of single-DOF joints. It is built once and then
// shared read-only; AddJoint and AddFrame must not be called once Data has
// been created from it.
type Model struct {
	Name string

	tree       *graph.Tree
	joints     []Joint // index 0 (universe) is nil
	parents    []JointIndex
	placements []spatial.SE3 // parent joint -> joint at q = 0
	supports   [][]JointIndex
	frames     []Frame
	frameMap   map[string]FrameIndex
}

// NewModel builds a Model from ModelData. Every joint also gets a frame of
// the same name at the joint origin.
func NewModel(data ModelData) (*Model, error) {
	m := NewEmptyModel(data.Name)
	for _, jd := range data.Joints {
		parent := graph.Root
		if jd.Parent != "" && jd.Parent != UniverseName {
			id, ok := m.tree.Lookup(jd.Parent)
			if !ok {
				return nil, modelerr.Configuration("joint %q: parent %q not found", jd.Name, jd.Parent)
			}
			parent = id
		}
		j, err := NewJoint(jd.Type, mgl64.Vec3(jd.Axis))
		if err != nil {
			return nil, fmt.Errorf("joint %q: %w", jd.Name, err)
		}
		if _, err := m.AddJoint(jd.Name, parent, j, placementOf(jd.Placement)); err != nil {
			return nil, err
		}
	}
	for _, fd := range data.Frames {
		parent, ok := m.tree.Lookup(fd.Joint)
		if !ok {
			return nil, modelerr.Configuration("frame %q: joint %q not found", fd.Name, fd.Joint)
		}
		if _, err := m.AddFrame(fd.Name, parent, placementOf(fd.Placement)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewEmptyModel returns a model holding only the universe joint and frame.
func NewEmptyModel(name string) *Model {
	m := &Model{
		Name:       name,
		tree:       graph.NewTree(UniverseName),
		joints:     []Joint{nil},
		parents:    []JointIndex{graph.Root},
		placements: []spatial.SE3{spatial.Identity()},
		supports:   [][]JointIndex{nil},
		frameMap:   make(map[string]FrameIndex),
	}
	m.frames = append(m.frames, Frame{Name: UniverseName, Parent: graph.Root, Placement: spatial.Identity()})
	m.frameMap[UniverseName] = 0
	return m
}

// AddJoint appends a joint below parent, placed at placement relative to the
// parent joint frame, and adds a frame with the same name at its origin.
func (m *Model) AddJoint(name string, parent JointIndex, j Joint, placement spatial.SE3) (JointIndex, error) {
	if _, exists := m.frameMap[name]; exists {
		return 0, modelerr.Configuration("joint %q: frame %q already exists", name, name)
	}
	id, err := m.tree.AddNode(name, parent)
	if err != nil {
		return 0, modelerr.Configuration("adding joint: %v", err)
	}
	support, err := m.tree.Support(id)
	if err != nil {
		return 0, err
	}
	m.joints = append(m.joints, j)
	m.parents = append(m.parents, parent)
	m.placements = append(m.placements, placement)
	m.supports = append(m.supports, support)
	if _, err := m.AddFrame(name, id, spatial.Identity()); err != nil {
		return 0, err
	}
	return id, nil
}

// AddFrame attaches an operational frame to joint parent.
func (m *Model) AddFrame(name string, parent JointIndex, placement spatial.SE3) (FrameIndex, error) {
	if _, exists := m.frameMap[name]; exists {
		return 0, modelerr.Configuration("frame %q already exists", name)
	}
	if parent < 0 || parent >= len(m.joints) {
		return 0, modelerr.Configuration("frame %q: joint %d not found", name, parent)
	}
	id := FrameIndex(len(m.frames))
	m.frames = append(m.frames, Frame{Name: name, Parent: parent, Placement: placement})
	m.frameMap[name] = id
	return id, nil
}

// NQ returns the configuration dimension.
func (m *Model) NQ() int { return len(m.joints) - 1 }

// NV returns the velocity dimension.
func (m *Model) NV() int { return len(m.joints) - 1 }

// NJoints returns the number of joints including the universe.
func (m *Model) NJoints() int { return len(m.joints) }

// NFrames returns the number of frames including the universe frame.
func (m *Model) NFrames() int { return len(m.frames) }

// FrameID looks up a frame by name.
func (m *Model) FrameID(name string) (FrameIndex, bool) {
	id, ok := m.frameMap[name]
	return id, ok
}

// Frame returns the frame with the given index.
func (m *Model) Frame(id FrameIndex) (Frame, error) {
	if id < 0 || int(id) >= len(m.frames) {
		return Frame{}, modelerr.Configuration("frame %d not found", id)
	}
	return m.frames[id], nil
}

// JointID looks up a joint by name.
func (m *Model) JointID(name string) (JointIndex, bool) {
	return m.tree.Lookup(name)
}

// Support returns the joints from the root down to j (inclusive).
func (m *Model) Support(j JointIndex) []JointIndex { return m.supports[j] }

// placementOf converts a serialisable placement into a transform.
func placementOf(p PlacementData) spatial.SE3 {
	return spatial.SE3{
		R: spatial.RPY(p.RPY[0], p.RPY[1], p.RPY[2]),
		P: mgl64.Vec3(p.Translation),
	}
}
