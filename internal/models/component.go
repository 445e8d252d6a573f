package models

import (
	"fmt"
	"strings"
	"time"
)

// Category describes a component type within one infrastructure network.
// The Prefix is the letter group that follows the infrastructure letter in a
// component id; it is the contract through which categories are inferred from
// names, so changing a prefix is a breaking change for every input file.
type Category struct {
	Prefix      string
	Name        string
	Infra       Infra
	RepairTime  time.Duration
	IsLink      bool
	IsConsumer  bool
	Disruptable bool
}

var waterCategories = []*Category{
	{Prefix: "WP", Name: "Pump", Infra: InfraWater, RepairTime: 12 * time.Hour, IsLink: true, Disruptable: true},
	{Prefix: "R", Name: "Reservoir", Infra: InfraWater, RepairTime: 24 * time.Hour, Disruptable: true},
	{Prefix: "PMA", Name: "Main Pipe", Infra: InfraWater, RepairTime: 12 * time.Hour, IsLink: true, Disruptable: true},
	{Prefix: "PSC", Name: "Service Connection Pipe", Infra: InfraWater, RepairTime: 2 * time.Hour, IsLink: true, Disruptable: true},
	{Prefix: "PHC", Name: "Hydrant Connection Pipe", Infra: InfraWater, RepairTime: 4 * time.Hour, IsLink: true, Disruptable: true},
	{Prefix: "P", Name: "Pipe", Infra: InfraWater, RepairTime: 12 * time.Hour, IsLink: true, Disruptable: true},
	{Prefix: "T", Name: "Tank", Infra: InfraWater, RepairTime: 24 * time.Hour, Disruptable: true},
	{Prefix: "J", Name: "Junction", Infra: InfraWater, RepairTime: 5 * time.Hour, IsConsumer: true},
}

var powerCategories = []*Category{
	{Prefix: "B", Name: "Bus", Infra: InfraPower, RepairTime: 3 * time.Hour, Disruptable: true},
	{Prefix: "LO", Name: "Load", Infra: InfraPower, RepairTime: 3 * time.Hour, IsConsumer: true, Disruptable: true},
	{Prefix: "L", Name: "Line", Infra: InfraPower, RepairTime: 5 * time.Hour, IsLink: true, Disruptable: true},
	{Prefix: "TF", Name: "Transformer", Infra: InfraPower, RepairTime: 10 * time.Hour, IsLink: true, Disruptable: true},
	{Prefix: "G", Name: "Generator", Infra: InfraPower, RepairTime: 24 * time.Hour, Disruptable: true},
	{Prefix: "MP", Name: "Motor", Infra: InfraPower, RepairTime: 24 * time.Hour, IsConsumer: true, Disruptable: true},
	{Prefix: "S", Name: "Switch", Infra: InfraPower, RepairTime: 4 * time.Hour, IsLink: true, Disruptable: true},
}

var transportCategories = []*Category{
	{Prefix: "N", Name: "Road Node", Infra: InfraTransport, RepairTime: 24 * time.Hour},
	{Prefix: "L", Name: "Road Link", Infra: InfraTransport, RepairTime: 24 * time.Hour, IsLink: true, Disruptable: true},
}

var categoriesByInfra = map[Infra][]*Category{
	InfraPower:     powerCategories,
	InfraWater:     waterCategories,
	InfraTransport: transportCategories,
}

var infraLetters = map[string]Infra{
	"P": InfraPower,
	"W": InfraWater,
	"T": InfraTransport,
}

// ParseComponentID resolves the infrastructure and category encoded in a
// component id such as "W_PMA21" or "P_MP3". Longest prefix wins, so "PMA"
// is matched before "P". Returns an error for ids outside the naming scheme.
func ParseComponentID(id string) (Infra, *Category, error) {
	letter, rest, found := strings.Cut(id, "_")
	if !found || letter == "" || rest == "" {
		return "", nil, fmt.Errorf("component id %q does not follow the <infra>_<category><number> scheme", id)
	}
	infra, ok := infraLetters[letter]
	if !ok {
		return "", nil, fmt.Errorf("component id %q: unknown infrastructure letter %q", id, letter)
	}

	var prefix strings.Builder
	for _, r := range rest {
		if r < 'A' || r > 'Z' {
			break
		}
		prefix.WriteRune(r)
	}
	if prefix.Len() == 0 {
		return "", nil, fmt.Errorf("component id %q: missing category prefix", id)
	}

	var best *Category
	for _, cat := range categoriesByInfra[infra] {
		if strings.HasPrefix(prefix.String(), cat.Prefix) {
			if best == nil || len(cat.Prefix) > len(best.Prefix) {
				best = cat
			}
		}
	}
	if best == nil {
		return "", nil, fmt.Errorf("component id %q: no %s category matches prefix %q", id, infra, prefix.String())
	}
	return infra, best, nil
}

// Point is a planar coordinate used for access-distance calculations.
type Point struct {
	X float64
	Y float64
}

// Component is a single element of one of the three networks. Solver-specific
// attributes (capacity, demand, endpoints) are opaque to the core; only
// Status and Damage are mutated during a run, and only by the simulation loop.
type Component struct {
	ID       string
	Infra    Infra
	Category *Category
	Status   Status

	// Damage is the percent damage applied by the most recent disruption,
	// zero for healthy components.
	Damage float64

	// From/To are endpoint node ids for link-like components (pipes, lines,
	// pumps, road links). Node is the attachment node for node-mounted
	// equipment (generators, loads, motors).
	From string
	To   string
	Node string

	// BaseDemand is the nominal served amount for consumers; Capacity is the
	// supply or carrying capacity for sources and links.
	BaseDemand float64
	Capacity   float64

	Zone  string
	Coord Point

	// AccessNode is the nearest transport node, computed once at build time.
	AccessNode string
}

// NewComponent builds a component from its prefix-encoded id, validating the
// naming contract once at load time.
func NewComponent(id string) (*Component, error) {
	infra, cat, err := ParseComponentID(id)
	if err != nil {
		return nil, err
	}
	return &Component{
		ID:       id,
		Infra:    infra,
		Category: cat,
		Status:   StatusActive,
	}, nil
}

// RepairDuration returns the nominal repair duration for the component.
func (c *Component) RepairDuration() time.Duration {
	return c.Category.RepairTime
}

// IsConsumer reports whether the component has a defined demand and therefore
// produces service-level records.
func (c *Component) IsConsumer() bool {
	return c.Category.IsConsumer && c.BaseDemand > 0
}
