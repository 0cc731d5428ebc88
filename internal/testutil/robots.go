// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cxd309/mbcontact/internal/kinematics"
)

// LeftAnkle is the contact frame of the leg fixture.
const LeftAnkle = "left_ankle"

// RightFoot is the second contact frame of the leg fixture.
const RightFoot = "right_foot"

// LegModelData describes a six-joint left leg and a two-joint right leg
// hanging from the universe. Placements are deliberately not axis-aligned.
func LegModelData() kinematics.ModelData {
	rev := kinematics.RevoluteName
	return kinematics.ModelData{
		Name: "legs",
		Joints: []kinematics.JointData{
			{Name: "hip_yaw", Type: rev, Axis: [3]float64{0, 0, 1},
				Placement: kinematics.PlacementData{Translation: [3]float64{0, 0.1, 1.0}}},
			{Name: "hip_roll", Parent: "hip_yaw", Type: rev, Axis: [3]float64{1, 0, 0},
				Placement: kinematics.PlacementData{RPY: [3]float64{0, 0.2, 0}}},
			{Name: "hip_pitch", Parent: "hip_roll", Type: rev, Axis: [3]float64{0, 1, 0}},
			{Name: "knee", Parent: "hip_pitch", Type: rev, Axis: [3]float64{0, 1, 0},
				Placement: kinematics.PlacementData{Translation: [3]float64{0, 0, -0.4}, RPY: [3]float64{0.1, 0, 0}}},
			{Name: "ankle_pitch", Parent: "knee", Type: rev, Axis: [3]float64{0, 1, 0},
				Placement: kinematics.PlacementData{Translation: [3]float64{0.01, 0, -0.4}}},
			{Name: "ankle_roll", Parent: "ankle_pitch", Type: rev, Axis: [3]float64{1, 0.2, 0}},
			{Name: "right_hip", Type: rev, Axis: [3]float64{0, 1, 0},
				Placement: kinematics.PlacementData{Translation: [3]float64{0, -0.1, 1.0}}},
			{Name: "right_slide", Parent: "right_hip", Type: kinematics.PrismaticName, Axis: [3]float64{0, 0, 1},
				Placement: kinematics.PlacementData{Translation: [3]float64{0, 0, -0.3}, RPY: [3]float64{0.1, 0, 0}}},
		},
		Frames: []kinematics.FrameData{
			{Name: LeftAnkle, Joint: "ankle_roll",
				Placement: kinematics.PlacementData{Translation: [3]float64{0.03, 0, -0.06}, RPY: [3]float64{0.05, -0.1, 0.2}}},
			{Name: RightFoot, Joint: "right_slide",
				Placement: kinematics.PlacementData{Translation: [3]float64{0, 0, -0.1}}},
		},
	}
}

// LegModel builds the leg fixture.
func LegModel(t testing.TB) *kinematics.Model {
	t.Helper()
	m, err := kinematics.NewModel(LegModelData())
	require.NoError(t, err)
	return m
}

// Frame looks up a frame of m by name.
func Frame(t testing.TB, m *kinematics.Model, name string) kinematics.FrameIndex {
	t.Helper()
	id, ok := m.FrameID(name)
	require.True(t, ok, "frame %q", name)
	return id
}

// Kinematics runs forward kinematics and frame placements for q, v.
func Kinematics(m *kinematics.Model, d *kinematics.Data, q, v []float64) {
	m.ForwardKinematics(d, q, v)
	m.UpdateFramePlacements(d)
}
