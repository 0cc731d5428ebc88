package engine

import (
	"github.com/cxd309/mbcontact/internal/kinematics"
	"github.com/cxd309/mbcontact/internal/node"
)

// ScenarioMeta holds the identity of a scenario.
type ScenarioMeta struct {
	ScenarioID  string `json:"scenario_id" yaml:"scenario_id"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Scenario is the JSON/YAML-serialisable input to the engine: a robot and
// the trajectory nodes evaluated on it.
type Scenario struct {
	Meta  ScenarioMeta         `json:"scenario_meta" yaml:"scenario_meta"`
	Robot kinematics.ModelData `json:"robot" yaml:"robot"`
	Nodes []node.Spec          `json:"nodes" yaml:"nodes"`
}

// Report is the output of a Run: one log per node, in scenario order.
type Report struct {
	Meta  ScenarioMeta `json:"scenario_meta"`
	Nodes []node.Log   `json:"nodes"`
}

// CheckResult is the output of a Check.
type CheckResult struct {
	Meta      ScenarioMeta       `json:"scenario_meta"`
	Step      float64            `json:"step"`
	Tolerance float64            `json:"tolerance"`
	Passed    bool               `json:"passed"`
	Nodes     []node.CheckReport `json:"nodes"`
}
