package contact

import (
	"github.com/cxd309/mbcontact/internal/kinematics"
	"github.com/cxd309/mbcontact/internal/modelerr"
)

// ResolveWrench finds the wrench contact active at frame. frameName is only
// used in errors. nr is the input size of the activation that will consume
// the residual and want is the residual size the caller produces.
//
// The first entry at frame decides the outcome.
func ResolveWrench(reg *Registry, frame kinematics.FrameIndex, frameName string, nr, want int) (*WrenchData, error) {
	if reg == nil {
		return nil, modelerr.ContactResolution(frameName, "no contact registry")
	}
	for _, e := range reg.entries {
		if e.Data.Force().Frame != frame {
			continue
		}
		switch d := e.Data.(type) {
		case *WrenchData:
			if nr != want {
				return nil, modelerr.Dimension(frameName, "activation expects %d residuals, cost produces %d", nr, want)
			}
			return d, nil
		case *PointData:
			return nil, modelerr.ContactType(frameName, "contact %q is a %s contact and cannot report a moment", e.Name, d.Kind())
		}
	}
	return nil, modelerr.ContactResolution(frameName, "no active contact")
}
