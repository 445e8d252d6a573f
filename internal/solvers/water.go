package solvers

import (
	"container/heap"
	"context"

	"github.com/akaushal/resinet/internal/models"
)

// PathFactorHydraulicSolver is the reference water engine. Every link carries
// a delivery factor in [0, 1]: closed or failed links carry 0, damaged but
// still open pipes leak and carry 1 - damage/100, healthy links carry 1. A
// junction's supply fraction is the best product of link factors over any path
// from an operational reservoir or tank, found with a max-product variant of
// Dijkstra. Pressure and elevation are out of model.
type PathFactorHydraulicSolver struct{}

func NewPathFactorHydraulicSolver() *PathFactorHydraulicSolver {
	return &PathFactorHydraulicSolver{}
}

func (s *PathFactorHydraulicSolver) Solve(ctx context.Context, net *models.Network, inoperablePumps map[string]bool) (*FlowResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type edge struct {
		to     string
		factor float64
	}
	adj := make(map[string][]edge)
	nodeUp := make(map[string]bool)
	var sources []string

	for _, c := range net.ByInfra(models.InfraWater) {
		if c.Category.IsLink {
			continue
		}
		nodeUp[c.ID] = c.Status.Operational()
		if nodeUp[c.ID] && (c.Category.Name == "Reservoir" || c.Category.Name == "Tank") {
			sources = append(sources, c.ID)
		}
	}

	for _, c := range net.ByInfra(models.InfraWater) {
		if !c.Category.IsLink {
			continue
		}
		f := linkFactor(c, inoperablePumps)
		if f <= 0 {
			continue
		}
		adj[c.From] = append(adj[c.From], edge{to: c.To, factor: f})
		adj[c.To] = append(adj[c.To], edge{to: c.From, factor: f})
	}

	// Max-product Dijkstra from all operational sources at once.
	best := make(map[string]float64)
	q := &factorQueue{}
	for _, src := range sources {
		best[src] = 1
		heap.Push(q, factorItem{node: src, factor: 1})
	}
	for q.Len() > 0 {
		item := heap.Pop(q).(factorItem)
		if item.factor < best[item.node] {
			continue
		}
		for _, e := range adj[item.node] {
			if !nodeUp[e.to] {
				continue
			}
			f := item.factor * e.factor
			if f > best[e.to] {
				best[e.to] = f
				heap.Push(q, factorItem{node: e.to, factor: f})
			}
		}
	}

	result := &FlowResult{Served: make(map[string]float64), Converged: true}
	for _, c := range net.Consumers(models.InfraWater) {
		served := 0.0
		if c.Status.Operational() {
			served = c.BaseDemand * best[c.ID]
		}
		result.Served[c.ID] = served
	}
	return result, nil
}

// linkFactor maps a link's state to its delivery factor. A FAILED pipe that
// has not yet been closed keeps leaking flow downstream at 1 - damage/100;
// closing it (ISOLATED) or opening it up for repair (UNDER_REPAIR) stops all
// flow. Pumps do not leak: broken, closed or unpowered pumps pass nothing.
func linkFactor(c *models.Component, inoperablePumps map[string]bool) float64 {
	if c.Category.Name == "Pump" {
		if !c.Status.Operational() || inoperablePumps[c.ID] {
			return 0
		}
		return 1
	}
	switch c.Status {
	case models.StatusActive, models.StatusRepaired:
		return 1
	case models.StatusFailed:
		return 1 - c.Damage/100
	default:
		return 0
	}
}

type factorItem struct {
	node   string
	factor float64
}

type factorQueue []factorItem

func (q factorQueue) Len() int            { return len(q) }
func (q factorQueue) Less(i, j int) bool  { return q[i].factor > q[j].factor }
func (q factorQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *factorQueue) Push(x interface{}) { *q = append(*q, x.(factorItem)) }
func (q *factorQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
