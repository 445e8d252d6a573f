package simulator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/akaushal/resinet/internal/models"
	"github.com/akaushal/resinet/internal/solvers"
)

// RecoveryScheduler expands a disruption scenario plus a repair order into a
// complete event table: the original DISRUPT entries, closure-policy ISOLATE
// entries, and one REPAIR_START/REPAIR_END pair per disrupted component. Each
// infrastructure has a single crew that works strictly sequentially; crew
// trips run over the road network in its scheduled state at dispatch time.
type RecoveryScheduler struct {
	Config    *models.Config
	Network   *models.Network
	Transport solvers.TransportSolver

	// Overrides replaces the category repair time for specific components,
	// from the scenario file's recovery_time column.
	Overrides map[string]time.Duration
}

func NewRecoveryScheduler(cfg *models.Config, net *models.Network, transport solvers.TransportSolver, overrides map[string]time.Duration) *RecoveryScheduler {
	return &RecoveryScheduler{
		Config:    cfg,
		Network:   net,
		Transport: transport,
		Overrides: overrides,
	}
}

// Schedule builds the event table for one repair order. The order must be a
// permutation of the disrupted component ids. Scheduling fails fast when a
// crew has no operational route to a work site.
func (rs *RecoveryScheduler) Schedule(ctx context.Context, disruptions *models.EventTable, order []string) (*models.EventTable, map[models.Infra]*models.Crew, error) {
	return rs.schedule(ctx, disruptions, order, true)
}

// schedule is the Schedule core. With complete false the order may cover only
// a subset of the disrupted components; the rest stay failed with no repair
// scheduled, which is how the optimizer scores a candidate horizon.
func (rs *RecoveryScheduler) schedule(ctx context.Context, disruptions *models.EventTable, order []string, complete bool) (*models.EventTable, map[models.Infra]*models.Crew, error) {
	disruptTime := make(map[string]int64)
	disruptMag := make(map[string]float64)
	table := models.NewEventTable()
	for _, e := range disruptions.Sorted() {
		if e.Kind != models.EventDisrupt {
			return nil, nil, fmt.Errorf("scenario table contains %s event for %s; expected DISRUPT only", e.Kind, e.ComponentID)
		}
		if err := table.Append(e.Time, e.ComponentID, e.Kind, e.Magnitude); err != nil {
			return nil, nil, err
		}
		disruptTime[e.ComponentID] = e.Time
		disruptMag[e.ComponentID] = e.Magnitude
	}
	if err := validateOrder(order, disruptTime, complete); err != nil {
		return nil, nil, err
	}

	crews, err := rs.buildCrews()
	if err != nil {
		return nil, nil, err
	}

	// repairEnd lets travel-time queries see roads in their state at
	// dispatch time: a disrupted transport component is closed until its
	// scheduled repair completes.
	repairEnd := make(map[string]int64)

	overhead := int64(rs.Config.DispatchOverhead.Seconds())
	for _, id := range order {
		c := rs.Network.Get(id)
		crew, ok := crews[c.Infra]
		if !ok {
			return nil, nil, fmt.Errorf("no crew for %s network (component %s)", c.Infra, id)
		}

		target, err := rs.workSite(c)
		if err != nil {
			return nil, nil, err
		}

		dispatch := crew.NextAvailable
		if dt := disruptTime[id]; dt > dispatch {
			dispatch = dt
		}

		// A blocked route delays dispatch until the next scheduled road
		// repair reopens it; a route that never reopens is an input error.
		var travel time.Duration
		for {
			travel, err = rs.travelAt(ctx, dispatch, repairEnd, disruptTime, crew.Location, target)
			if err == nil {
				break
			}
			if !errors.Is(err, solvers.ErrNoRoute) {
				return nil, nil, fmt.Errorf("crew %s: %s to %s: %w", c.Infra, crew.Location, target, err)
			}
			reopen, ok := nextRoadReopen(rs.Network, repairEnd, dispatch)
			if !ok {
				return nil, nil, fmt.Errorf("crew %s: %s to %s: %w", c.Infra, crew.Location, target, err)
			}
			dispatch = reopen
		}

		start := dispatch + overhead + int64(travel.Seconds())
		duration := c.RepairDuration()
		if o, ok := rs.Overrides[id]; ok {
			duration = o
		}
		end := start + int64(duration.Seconds())

		if err := table.Append(start, id, models.EventRepairStart, 0); err != nil {
			return nil, nil, err
		}
		if err := table.Append(end, id, models.EventRepairEnd, 0); err != nil {
			return nil, nil, err
		}

		if ev, ok := rs.closureEvent(c, disruptTime[id], start); ok {
			if err := table.Append(ev, id, models.EventIsolate, 0); err != nil {
				return nil, nil, err
			}
		}

		repairEnd[id] = end
		crew.Location = target
		crew.NextAvailable = end
		crew.Repaired = append(crew.Repaired, id)
	}
	return table, crews, nil
}

// nextRoadReopen returns the earliest scheduled transport repair completion
// after the given time.
func nextRoadReopen(net *models.Network, repairEnd map[string]int64, after int64) (int64, bool) {
	best := int64(0)
	found := false
	for id, end := range repairEnd {
		c := net.Get(id)
		if c == nil || c.Infra != models.InfraTransport {
			continue
		}
		if end > after && (!found || end < best) {
			best = end
			found = true
		}
	}
	return best, found
}

func validateOrder(order []string, disruptTime map[string]int64, complete bool) error {
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if _, ok := disruptTime[id]; !ok {
			return fmt.Errorf("repair order names %s, which is not disrupted", id)
		}
		if seen[id] {
			return fmt.Errorf("repair order lists %s twice", id)
		}
		seen[id] = true
	}
	if complete && len(seen) != len(disruptTime) {
		var missing []string
		for id := range disruptTime {
			if !seen[id] {
				missing = append(missing, id)
			}
		}
		sort.Strings(missing)
		return fmt.Errorf("repair order is missing %v", missing)
	}
	return nil
}

func (rs *RecoveryScheduler) buildCrews() (map[models.Infra]*models.Crew, error) {
	crews := make(map[models.Infra]*models.Crew, len(models.Infras))
	for _, infra := range models.Infras {
		loc := rs.Config.CrewLocations[string(infra)]
		if loc == "" {
			for _, c := range rs.Network.ByInfra(models.InfraTransport) {
				if !c.Category.IsLink {
					loc = c.ID
					break
				}
			}
		}
		if loc == "" || !rs.Network.Has(loc) {
			return nil, fmt.Errorf("crew for %s network has no valid depot (got %q)", infra, loc)
		}
		crews[infra] = models.NewCrew(infra, loc)
	}
	return crews, nil
}

// workSite resolves the transport node a crew must reach to repair the
// component.
func (rs *RecoveryScheduler) workSite(c *models.Component) (string, error) {
	if c.Infra == models.InfraTransport {
		if c.Category.IsLink {
			return c.From, nil
		}
		return c.ID, nil
	}
	if c.AccessNode != "" {
		return c.AccessNode, nil
	}
	node, _, err := rs.Network.NearestTransportNode(c.Coord)
	if err != nil {
		return "", fmt.Errorf("work site for %s: %w", c.ID, err)
	}
	return node, nil
}

// travelAt computes crew travel time on the road network as it stands at
// dispatch: transport components disrupted by then and not yet repaired are
// closed.
func (rs *RecoveryScheduler) travelAt(ctx context.Context, at int64, repairEnd map[string]int64, disruptTime map[string]int64, from, to string) (time.Duration, error) {
	if from == to {
		return 0, nil
	}
	snapshot := rs.Network.Clone()
	for id, dt := range disruptTime {
		c := snapshot.Get(id)
		if c == nil || c.Infra != models.InfraTransport {
			continue
		}
		if dt > at {
			continue
		}
		if end, ok := repairEnd[id]; ok && end <= at {
			continue
		}
		c.Status = models.StatusFailed
	}
	return rs.Transport.TravelTime(ctx, snapshot, from, to)
}

// closureEvent returns the ISOLATE timestamp for a damaged pipe or line under
// the sensor-based policy. Under the on-repair policy the component keeps
// leaking until its repair starts, which UNDER_REPAIR already models, so no
// event is emitted.
func (rs *RecoveryScheduler) closureEvent(c *models.Component, disruptAt, repairStart int64) (int64, bool) {
	policy, delay, ok := rs.Config.ClosureFor(c)
	if !ok || policy != models.ClosureSensorBased {
		return 0, false
	}
	at := disruptAt + int64(delay.Seconds())
	if at >= repairStart {
		return 0, false
	}
	return at, true
}
