// Package engine evaluates a scenario: a robot model shared read-only by a
// list of trajectory nodes, each owning its contact, impulse and cost data.
//
// A run has one pass per node, and nodes are independent:
//
//  1. Calc - kinematics, the contact stage (or the impulses), then every
//     cost residual and value.
//
//  2. CalcDiff - impulse velocity derivatives, then every cost derivative,
//     accumulated into the node's weighted gradient and Hessian.
//
// Nodes are evaluated concurrently on a bounded pool of workers.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cxd309/mbcontact/internal/kinematics"
	"github.com/cxd309/mbcontact/internal/modelerr"
	"github.com/cxd309/mbcontact/internal/node"
	"github.com/cxd309/mbcontact/internal/numdiff"
	"github.com/cxd309/mbcontact/internal/state"
)

// Engine holds the models of a scenario and the data of its nodes.
type Engine struct {
	meta   ScenarioMeta
	model  *kinematics.Model
	state  *state.Multibody
	nodes  []*node.Node
	logger zerolog.Logger

	workers int
	fdStep  float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of nodes evaluated at once. Values below 1
// select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger used for per-node events.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithFDStep sets the finite-difference step used by Check.
func WithFDStep(h float64) Option {
	return func(e *Engine) {
		if h > 0 {
			e.fdStep = h
		}
	}
}

// New builds the robot model and every node of sc. Any configuration,
// resolution, type or dimension error aborts construction.
func New(sc Scenario, opts ...Option) (*Engine, error) {
	model, err := kinematics.NewModel(sc.Robot)
	if err != nil {
		return nil, fmt.Errorf("building robot: %w", err)
	}
	e := &Engine{
		meta:    sc.Meta,
		model:   model,
		state:   state.NewMultibody(model),
		logger:  log.Logger,
		workers: runtime.GOMAXPROCS(0),
		fdStep:  numdiff.DefaultStep,
	}
	for _, opt := range opts {
		opt(e)
	}

	seen := make(map[node.NodeID]bool, len(sc.Nodes))
	e.nodes = make([]*node.Node, 0, len(sc.Nodes))
	for _, spec := range sc.Nodes {
		if seen[spec.NodeID] {
			return nil, modelerr.Configuration("node %q defined twice", spec.NodeID)
		}
		seen[spec.NodeID] = true
		n, err := node.New(e.state, spec)
		if err != nil {
			return nil, err
		}
		e.nodes = append(e.nodes, n)
	}
	e.logger.Debug().
		Str("scenario", sc.Meta.ScenarioID).
		Str("robot", model.Name).
		Int("nq", model.NQ()).
		Int("nodes", len(e.nodes)).
		Msg("scenario built")
	return e, nil
}

// NumNodes returns the number of nodes in the scenario.
func (e *Engine) NumNodes() int { return len(e.nodes) }

// Run evaluates every node and returns their logs. Cancellation is honoured
// between nodes.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	logs := make([]node.Log, len(e.nodes))
	err := e.each(ctx, func(i int, n *node.Node) {
		n.Evaluate()
		logs[i] = n.Log()
		e.logger.Debug().Str("node", n.NodeID).Float64("cost", n.Cost).Msg("node evaluated")
	})
	if err != nil {
		return Report{}, err
	}
	return Report{Meta: e.meta, Nodes: logs}, nil
}

// Check compares every node's analytic derivatives with central finite
// differences. The result passes when no relative error exceeds tol.
func (e *Engine) Check(ctx context.Context, tol float64) (CheckResult, error) {
	reports := make([]node.CheckReport, len(e.nodes))
	err := e.each(ctx, func(i int, n *node.Node) {
		reports[i] = n.Check(e.fdStep)
	})
	if err != nil {
		return CheckResult{}, err
	}

	res := CheckResult{Meta: e.meta, Step: e.fdStep, Tolerance: tol, Passed: true, Nodes: reports}
	for _, r := range reports {
		if r.CostGradient > tol || r.ImpulseVelocity > tol {
			res.Passed = false
			e.logger.Warn().
				Str("node", r.NodeID).
				Float64("cost_gradient", r.CostGradient).
				Float64("impulse_velocity", r.ImpulseVelocity).
				Float64("tolerance", tol).
				Msg("derivative mismatch")
		}
	}
	return res, nil
}

// each runs fn on every node using at most e.workers goroutines. A node is
// only ever touched by one goroutine.
func (e *Engine) each(ctx context.Context, fn func(i int, n *node.Node)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, n := range e.nodes {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// RunJSON is the entry point shared by the CLI and WASM targets. It accepts
// a JSON-encoded Scenario, evaluates every node, and returns a JSON-encoded
// Report.
func RunJSON(jsonInput string) (string, error) {
	var sc Scenario
	if err := json.Unmarshal([]byte(jsonInput), &sc); err != nil {
		return "", fmt.Errorf("invalid input JSON: %w", err)
	}

	e, err := New(sc)
	if err != nil {
		return "", err
	}

	report, err := e.Run(context.Background())
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}
