package contact

import (
	"github.com/cxd309/mbcontact/internal/kinematics"
	"github.com/cxd309/mbcontact/internal/modelerr"
)

// Entry is one named active contact.
type Entry struct {
	Name string
	Data Data
}

// Registry is the ordered set of contacts active at one node. It is filled
// by the contact stage and then read concurrently by the costs of that node;
// it must not be modified while they run.
type Registry struct {
	entries []Entry
	byName  map[string]int
	byFrame map[kinematics.FrameIndex]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]int),
		byFrame: make(map[kinematics.FrameIndex]string),
	}
}

// Add appends a contact. At most one contact may be active per frame.
func (r *Registry) Add(name string, d Data) error {
	if d == nil {
		return modelerr.Configuration("contact %q: nil data", name)
	}
	if _, exists := r.byName[name]; exists {
		return modelerr.Configuration("contact %q already exists", name)
	}
	frame := d.Force().Frame
	if other, exists := r.byFrame[frame]; exists {
		return modelerr.Configuration("contact %q: frame %d already used by contact %q", name, frame, other)
	}
	r.byName[name] = len(r.entries)
	r.byFrame[frame] = name
	r.entries = append(r.entries, Entry{Name: name, Data: d})
	return nil
}

// Entries returns the contacts in insertion order. The slice must not be
// modified.
func (r *Registry) Entries() []Entry { return r.entries }

// Len returns the number of contacts.
func (r *Registry) Len() int { return len(r.entries) }

// Get looks up a contact by name.
func (r *Registry) Get(name string) (Data, bool) {
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.entries[i].Data, true
}
