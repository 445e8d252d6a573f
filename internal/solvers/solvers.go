// Package solvers defines the per-network simulation engines and reference
// implementations for the three infrastructure models. The simulation loop
// talks to these interfaces only; swapping in a higher-fidelity engine is a
// matter of implementing one of them.
package solvers

import (
	"context"
	"errors"
	"time"

	"github.com/akaushal/resinet/internal/models"
)

// ErrNonConvergence is returned when a solver's iterative scheme fails to
// reach a solution for the current network state. The simulation loop records
// zero service for the affected interval and continues.
var ErrNonConvergence = errors.New("solver did not converge")

// ErrNoRoute is returned by the transport solver when no operational path
// connects the requested origin and destination.
var ErrNoRoute = errors.New("no operational route")

// FlowResult is the outcome of one solver invocation: served amount per
// consumer at the solve time.
type FlowResult struct {
	Served    map[string]float64
	Converged bool
}

// PowerFlowSolver computes the power delivered to each load and motor given
// the current component statuses.
type PowerFlowSolver interface {
	Solve(ctx context.Context, net *models.Network) (*FlowResult, error)
}

// HydraulicSolver computes the water delivered to each junction.
// inoperablePumps lists pumps that are mechanically intact but without power;
// the solver treats them as closed.
type HydraulicSolver interface {
	Solve(ctx context.Context, net *models.Network, inoperablePumps map[string]bool) (*FlowResult, error)
}

// TransportSolver answers routing queries over the road network in its
// current state.
type TransportSolver interface {
	// TravelTime returns the shortest travel time between two road nodes
	// over operational links. Returns ErrNoRoute when disconnected.
	TravelTime(ctx context.Context, net *models.Network, from, to string) (time.Duration, error)

	// Reachable returns the set of road nodes reachable from the origin.
	Reachable(ctx context.Context, net *models.Network, from string) (map[string]bool, error)

	// ServiceLevels scores each road node by the fraction of other nodes it
	// can still reach, against a nominal score of 1.
	ServiceLevels(ctx context.Context, net *models.Network) (*FlowResult, error)
}
