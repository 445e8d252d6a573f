package models

import (
	"fmt"
)

// DependencyKind classifies a directed cross-network coupling.
type DependencyKind string

const (
	// DependencyGenReservoir couples a generator to the reservoir feeding
	// its hydro/cooling supply (power depends on water).
	DependencyGenReservoir DependencyKind = "gen-on-reservoir"
	// DependencyPumpMotor couples a pump to its electric motor (water
	// depends on power).
	DependencyPumpMotor DependencyKind = "pump-on-motor"
	// DependencyAccess couples any power/water component to its nearest
	// transport node for crew access.
	DependencyAccess DependencyKind = "access"
)

// DependencyEdge is a directed relation: Target functionally depends on
// Source.
type DependencyEdge struct {
	Source string
	Target string
	Kind   DependencyKind
}

// DependencyTable stores the cross-network coupling relations and implements
// indirect-failure propagation over them.
type DependencyTable struct {
	edges    []DependencyEdge
	byTarget map[string][]DependencyEdge
}

func NewDependencyTable() *DependencyTable {
	return &DependencyTable{byTarget: make(map[string][]DependencyEdge)}
}

func (dt *DependencyTable) add(e DependencyEdge) {
	dt.edges = append(dt.edges, e)
	dt.byTarget[e.Target] = append(dt.byTarget[e.Target], e)
}

// Edges returns all dependency edges in insertion order.
func (dt *DependencyTable) Edges() []DependencyEdge {
	return dt.edges
}

// Dependencies returns the edges whose target is the given component.
func (dt *DependencyTable) Dependencies(id string) []DependencyEdge {
	return dt.byTarget[id]
}

// AddPumpMotorCoupling records that a water pump is driven by a power motor.
// Both endpoints are validated against the naming contract.
func (dt *DependencyTable) AddPumpMotorCoupling(net *Network, waterID, powerID string) error {
	pump := net.Get(waterID)
	motor := net.Get(powerID)
	if pump == nil || motor == nil {
		return fmt.Errorf("cannot create dependency between %q and %q: unknown component", waterID, powerID)
	}
	if pump.Category.Name != "Pump" || motor.Category.Name != "Motor" {
		return fmt.Errorf("cannot create dependency between %s (%s) and %s (%s): expected Pump and Motor",
			waterID, pump.Category.Name, powerID, motor.Category.Name)
	}
	dt.add(DependencyEdge{Source: powerID, Target: waterID, Kind: DependencyPumpMotor})
	return nil
}

// AddGenReservoirCoupling records that a power generator draws on a water
// reservoir.
func (dt *DependencyTable) AddGenReservoirCoupling(net *Network, waterID, powerID string) error {
	res := net.Get(waterID)
	gen := net.Get(powerID)
	if res == nil || gen == nil {
		return fmt.Errorf("cannot create dependency between %q and %q: unknown component", waterID, powerID)
	}
	if res.Category.Name != "Reservoir" || gen.Category.Name != "Generator" {
		return fmt.Errorf("cannot create dependency between %s (%s) and %s (%s): expected Reservoir and Generator",
			waterID, res.Category.Name, powerID, gen.Category.Name)
	}
	dt.add(DependencyEdge{Source: waterID, Target: powerID, Kind: DependencyGenReservoir})
	return nil
}

// AddAccessEdge records an explicit access dependency. BuildTransportAccess
// adds the derived single nearest-node edge; tests and special layouts may
// register additional paths.
func (dt *DependencyTable) AddAccessEdge(componentID, transportNodeID string) {
	dt.add(DependencyEdge{Source: transportNodeID, Target: componentID, Kind: DependencyAccess})
}

// BuildTransportAccess derives, once at network build time, the access edge
// from every power and water component to its nearest transport node.
// Transport components are their own access path and get no edge.
func (dt *DependencyTable) BuildTransportAccess(net *Network) error {
	for _, c := range net.Components() {
		if c.Infra == InfraTransport {
			continue
		}
		near, _, err := net.NearestTransportNode(c.Coord)
		if err != nil {
			return fmt.Errorf("access edge for %s: %w", c.ID, err)
		}
		c.AccessNode = near
		dt.add(DependencyEdge{Source: near, Target: c.ID, Kind: DependencyAccess})
	}
	return nil
}

// Propagate runs one fixed-point pass of indirect failure propagation.
// Redundancy only counts within a dependency kind: a component is marked
// ISOLATED when, for any kind it depends on, every upstream path of that kind
// leads to a failed, isolated or unreachable source. Two access edges back
// each other up; an intact road never substitutes for a dead pump motor.
// accessDown marks transport nodes currently unreachable; nil means all
// reachable. Statuses only move toward ISOLATED here; recovery happens
// exclusively through REPAIR_END events. Returns the number of components
// newly isolated.
func (dt *DependencyTable) Propagate(net *Network, accessDown map[string]bool) int {
	isolated := 0
	for {
		changed := false
		for _, c := range net.Components() {
			deps := dt.byTarget[c.ID]
			if len(deps) == 0 {
				continue
			}
			if c.Status != StatusActive && c.Status != StatusRepaired {
				continue
			}
			if dt.anyKindFullyDown(net, deps, accessDown) {
				c.Status = StatusIsolated
				isolated++
				changed = true
			}
		}
		if !changed {
			return isolated
		}
	}
}

func (dt *DependencyTable) anyKindFullyDown(net *Network, deps []DependencyEdge, accessDown map[string]bool) bool {
	kindUp := make(map[DependencyKind]bool)
	kindSeen := make(map[DependencyKind]bool)
	for _, e := range deps {
		kindSeen[e.Kind] = true
		if dt.pathAvailable(net, e, accessDown) {
			kindUp[e.Kind] = true
		}
	}
	for kind := range kindSeen {
		if !kindUp[kind] {
			return true
		}
	}
	return false
}

func (dt *DependencyTable) pathAvailable(net *Network, e DependencyEdge, accessDown map[string]bool) bool {
	src := net.Get(e.Source)
	if src == nil || !src.Status.Operational() {
		return false
	}
	if e.Kind == DependencyAccess && accessDown != nil && accessDown[e.Source] {
		return false
	}
	return true
}
