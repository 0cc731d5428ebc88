package kinematics

import (
	"github.com/cxd309/mbcontact/internal/modelerr"
)

// ReferenceFrame selects the frame a spatial quantity is expressed in.
type ReferenceFrame int

const (
	// Local expresses quantities in the frame itself.
	Local ReferenceFrame = iota
	// World expresses quantities in the world frame, about the world origin.
	World
	// LocalWorldAligned expresses quantities about the frame origin with
	// axes aligned to the world.
	LocalWorldAligned
)

var referenceNames = [...]string{
	Local:             "local",
	World:             "world",
	LocalWorldAligned: "local_world_aligned",
}

func (r ReferenceFrame) String() string {
	if !r.Valid() {
		return "invalid"
	}
	return referenceNames[r]
}

// Valid reports whether r is one of the three known conventions.
func (r ReferenceFrame) Valid() bool {
	return r >= Local && r <= LocalWorldAligned
}

// ParseReferenceFrame maps a convention name to its value.
func ParseReferenceFrame(s string) (ReferenceFrame, error) {
	for i, n := range referenceNames {
		if n == s {
			return ReferenceFrame(i), nil
		}
	}
	return 0, modelerr.Configuration("unknown reference frame %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r ReferenceFrame) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, modelerr.Configuration("unknown reference frame %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *ReferenceFrame) UnmarshalText(b []byte) error {
	v, err := ParseReferenceFrame(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
