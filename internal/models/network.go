package models

import (
	"fmt"
	"math"
	"sort"
)

// Network is a snapshot of the integrated three-network model. A simulation
// run owns its snapshot exclusively; concurrent optimizer evaluations must
// each work on their own Clone.
type Network struct {
	Name       string
	components map[string]*Component
	order      []string
}

func NewNetwork(name string) *Network {
	return &Network{
		Name:       name,
		components: make(map[string]*Component),
	}
}

// Add registers a component. Duplicate ids are an input error.
func (n *Network) Add(c *Component) error {
	if _, exists := n.components[c.ID]; exists {
		return fmt.Errorf("duplicate component id %q", c.ID)
	}
	n.components[c.ID] = c
	n.order = append(n.order, c.ID)
	return nil
}

// Get returns the component with the given id, or nil.
func (n *Network) Get(id string) *Component {
	return n.components[id]
}

// Has reports whether the id names a known component.
func (n *Network) Has(id string) bool {
	_, ok := n.components[id]
	return ok
}

// Len returns the number of components across all three networks.
func (n *Network) Len() int {
	return len(n.components)
}

// Components returns all components in insertion order. The slice is shared
// iteration state; callers must not reorder it.
func (n *Network) Components() []*Component {
	out := make([]*Component, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, n.components[id])
	}
	return out
}

// ByInfra returns the components of one infrastructure in insertion order.
func (n *Network) ByInfra(infra Infra) []*Component {
	var out []*Component
	for _, id := range n.order {
		if c := n.components[id]; c.Infra == infra {
			out = append(out, c)
		}
	}
	return out
}

// Consumers returns the demand-bearing components of one infrastructure.
func (n *Network) Consumers(infra Infra) []*Component {
	var out []*Component
	for _, c := range n.ByInfra(infra) {
		if c.IsConsumer() {
			out = append(out, c)
		}
	}
	return out
}

// TotalBaseDemand sums the nominal demand of one infrastructure's consumers.
func (n *Network) TotalBaseDemand(infra Infra) float64 {
	var total float64
	for _, c := range n.Consumers(infra) {
		total += c.BaseDemand
	}
	return total
}

// Failed returns the ids of components currently FAILED, sorted for
// deterministic enumeration.
func (n *Network) Failed() []string {
	var out []string
	for _, c := range n.Components() {
		if c.Status == StatusFailed {
			out = append(out, c.ID)
		}
	}
	sort.Strings(out)
	return out
}

// NearestTransportNode finds the closest transport road node to the given
// coordinate. Returns the node id and the planar distance.
func (n *Network) NearestTransportNode(p Point) (string, float64, error) {
	best := ""
	bestDist := math.Inf(1)
	for _, c := range n.ByInfra(InfraTransport) {
		if c.Category.IsLink {
			continue
		}
		dx, dy := c.Coord.X-p.X, c.Coord.Y-p.Y
		if d := math.Hypot(dx, dy); d < bestDist {
			best, bestDist = c.ID, d
		}
	}
	if best == "" {
		return "", 0, fmt.Errorf("network %q has no transport nodes", n.Name)
	}
	return best, bestDist, nil
}

// Clone returns a deep copy of the snapshot. Category metadata is immutable
// and shared; everything mutable is copied.
func (n *Network) Clone() *Network {
	out := &Network{
		Name:       n.Name,
		components: make(map[string]*Component, len(n.components)),
		order:      append([]string(nil), n.order...),
	}
	for id, c := range n.components {
		cc := *c
		out.components[id] = &cc
	}
	return out
}
