package simulator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/akaushal/resinet/internal/models"
	"github.com/akaushal/resinet/internal/solvers"
)

// Simulator replays a frozen event table against a snapshot of the integrated
// network and records the resulting service levels. It never mutates the
// baseline network: every run starts from a fresh clone, which is what allows
// the optimizer to evaluate candidate schedules concurrently.
type Simulator struct {
	Config    *models.Config
	Network   *models.Network
	Deps      *models.DependencyTable
	Power     solvers.PowerFlowSolver
	Water     solvers.HydraulicSolver
	Transport solvers.TransportSolver
}

func NewSimulator(cfg *models.Config, net *models.Network, deps *models.DependencyTable) *Simulator {
	return &Simulator{
		Config:    cfg,
		Network:   net,
		Deps:      deps,
		Power:     solvers.NewConnectivityPowerSolver(),
		Water:     solvers.NewPathFactorHydraulicSolver(),
		Transport: solvers.NewShortestPathTransportSolver(),
	}
}

// RunRequest parameterizes one replay. Until bounds the simulated horizon in
// seconds; zero means run to the last event plus the configured hold.
type RunRequest struct {
	Table *models.EventTable
	RunID string
	Until int64
	// Quiet suppresses per-interval logging; set for optimizer evaluations.
	Quiet bool
}

// Run executes the simulation loop: walk the distinct event timestamps in
// order, apply the events of each timestamp, propagate indirect failures,
// solve the three networks, and sample service levels until the next
// timestamp.
func (s *Simulator) Run(ctx context.Context, req RunRequest) (*models.RunRecords, error) {
	if req.Table == nil || req.Table.Len() == 0 {
		return nil, fmt.Errorf("run %s: empty event table", req.RunID)
	}
	req.Table.Freeze()

	net := s.Network.Clone()
	records := models.NewRunRecords(req.RunID)
	timestamps := req.Table.Timestamps()

	end := timestamps[len(timestamps)-1] + int64(s.Config.Sampling.HoldDuration.Seconds())
	if req.Until > 0 && req.Until < end {
		end = req.Until
	}

	var accessDown map[string]bool
	for i, t := range timestamps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if req.Until > 0 && t >= req.Until {
			break
		}

		for _, e := range req.Table.At(t) {
			s.apply(net, e, req.Quiet)
		}
		if n := s.Deps.Propagate(net, accessDown); n > 0 && !req.Quiet {
			log.Printf("t=%d: %d components isolated by dependency propagation", t, n)
		}

		next := end
		if i+1 < len(timestamps) && timestamps[i+1] < end {
			next = timestamps[i+1]
		}
		if next <= t {
			continue
		}

		powerRes := s.solvePower(ctx, net, req.Quiet, t)
		waterRes := s.solveWater(ctx, net, powerRes, req.Quiet, t)
		transRes := s.solveTransport(ctx, net, req.Quiet, t)

		s.sample(records, net, t, next, powerRes, waterRes, transRes, next == end)

		accessDown = s.accessDown(ctx, net)
	}
	return records, nil
}

// apply transitions one component for one event.
func (s *Simulator) apply(net *models.Network, e *models.Event, quiet bool) {
	c := net.Get(e.ComponentID)
	if c == nil {
		return
	}
	switch e.Kind {
	case models.EventDisrupt:
		c.Status = models.StatusFailed
		c.Damage = e.Magnitude
	case models.EventIsolate:
		if c.Status == models.StatusActive || c.Status == models.StatusFailed {
			c.Status = models.StatusIsolated
		}
	case models.EventRepairStart:
		c.Status = models.StatusUnderRepair
	case models.EventRepairEnd:
		c.Status = models.StatusRepaired
		c.Damage = 0
	}
	if !quiet {
		log.Printf("t=%d: %s %s", e.Time, e.Kind, e.ComponentID)
	}
}

func (s *Simulator) solvePower(ctx context.Context, net *models.Network, quiet bool, t int64) *solvers.FlowResult {
	res, err := s.Power.Solve(ctx, net)
	return s.checkResult(res, err, models.InfraPower, quiet, t)
}

func (s *Simulator) solveWater(ctx context.Context, net *models.Network, powerRes *solvers.FlowResult, quiet bool, t int64) *solvers.FlowResult {
	inoperable := s.inoperablePumps(net, powerRes)
	res, err := s.Water.Solve(ctx, net, inoperable)
	return s.checkResult(res, err, models.InfraWater, quiet, t)
}

func (s *Simulator) solveTransport(ctx context.Context, net *models.Network, quiet bool, t int64) *solvers.FlowResult {
	res, err := s.Transport.ServiceLevels(ctx, net)
	return s.checkResult(res, err, models.InfraTransport, quiet, t)
}

// checkResult normalizes solver failure to a zero-service interval.
func (s *Simulator) checkResult(res *solvers.FlowResult, err error, infra models.Infra, quiet bool, t int64) *solvers.FlowResult {
	if err != nil {
		if !errors.Is(err, solvers.ErrNonConvergence) && !quiet {
			log.Printf("t=%d: %s solver error: %v", t, infra, err)
		} else if !quiet {
			log.Printf("t=%d: %s solver did not converge, recording zero service", t, infra)
		}
		return &solvers.FlowResult{Served: map[string]float64{}}
	}
	if !res.Converged {
		if !quiet {
			log.Printf("t=%d: %s solver did not converge, recording zero service", t, infra)
		}
		return &solvers.FlowResult{Served: map[string]float64{}}
	}
	return res
}

// inoperablePumps derives the pumps whose driving motors are unpowered or out
// of service from the power solve of the same interval.
func (s *Simulator) inoperablePumps(net *models.Network, powerRes *solvers.FlowResult) map[string]bool {
	out := make(map[string]bool)
	for _, e := range s.Deps.Edges() {
		if e.Kind != models.DependencyPumpMotor {
			continue
		}
		motor := net.Get(e.Source)
		if motor == nil || !motor.Status.Operational() || powerRes.Served[e.Source] <= 0 {
			out[e.Target] = true
		}
	}
	return out
}

// sample records service levels for the interval [from, to). Power and
// transport hold their interval-start value; water is sampled on the water
// interval grid, though the reference engine is also constant within an
// interval. The run's last interval also records a closing sample at its end,
// so an outage held through the tail weighs into the time integral.
func (s *Simulator) sample(records *models.RunRecords, net *models.Network, from, to int64, power, water, transport *solvers.FlowResult, final bool) {
	record := func(t int64, infra models.Infra, res *solvers.FlowResult) {
		switch infra {
		case models.InfraTransport:
			for _, c := range net.ByInfra(infra) {
				if c.Category.IsLink {
					continue
				}
				records.Append(t, c.ID, infra, res.Served[c.ID], 1)
			}
		default:
			for _, c := range net.Consumers(infra) {
				records.Append(t, c.ID, infra, res.Served[c.ID], c.BaseDemand)
			}
		}
	}

	record(from, models.InfraPower, power)
	record(from, models.InfraTransport, transport)

	step := int64(s.Config.Sampling.WaterInterval.Seconds())
	if step <= 0 {
		step = 60
	}
	for t := from; t < to; t += step {
		record(t, models.InfraWater, water)
	}

	if final {
		record(to, models.InfraPower, power)
		record(to, models.InfraTransport, transport)
		record(to, models.InfraWater, water)
	}
}

// accessDown computes the transport nodes unreachable from the depot after
// this interval's events. The result gates access-dependency paths in the
// next interval's propagation.
func (s *Simulator) accessDown(ctx context.Context, net *models.Network) map[string]bool {
	depot := s.depotNode(net)
	if depot == "" {
		return nil
	}
	reach, err := s.Transport.Reachable(ctx, net, depot)
	if err != nil {
		return nil
	}
	down := make(map[string]bool)
	for _, c := range net.ByInfra(models.InfraTransport) {
		if c.Category.IsLink {
			continue
		}
		if !reach[c.ID] {
			down[c.ID] = true
		}
	}
	if len(down) == 0 {
		return nil
	}
	return down
}

func (s *Simulator) depotNode(net *models.Network) string {
	if loc, ok := s.Config.CrewLocations[string(models.InfraTransport)]; ok && net.Has(loc) {
		return loc
	}
	for _, c := range net.ByInfra(models.InfraTransport) {
		if !c.Category.IsLink {
			return c.ID
		}
	}
	return ""
}
