package solvers

import (
	"context"

	"github.com/akaushal/resinet/internal/models"
)

// ConnectivityPowerSolver is the reference power engine. It groups buses into
// electrical islands over operational lines, transformers and switches, sums
// the generation capacity of each island, and serves the island's loads and
// motors proportionally when generation falls short of demand. It is a DC-less
// approximation: no impedance, no line limits beyond capacity.
type ConnectivityPowerSolver struct{}

func NewConnectivityPowerSolver() *ConnectivityPowerSolver {
	return &ConnectivityPowerSolver{}
}

func (s *ConnectivityPowerSolver) Solve(ctx context.Context, net *models.Network) (*FlowResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Union buses into islands over operational branch components.
	parent := make(map[string]string)
	var find func(string) string
	find = func(x string) string {
		if parent[x] == "" || parent[x] == x {
			parent[x] = x
			return x
		}
		parent[x] = find(parent[x])
		return parent[x]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	buses := make(map[string]bool)
	for _, c := range net.ByInfra(models.InfraPower) {
		if c.Category.Name == "Bus" {
			buses[c.ID] = c.Status.Operational()
			find(c.ID)
		}
	}
	// A FAILED branch that has not been tripped by its closure policy still
	// conducts unless fully destroyed; ISOLATED and UNDER_REPAIR branches
	// are open.
	for _, c := range net.ByInfra(models.InfraPower) {
		if !c.Category.IsLink {
			continue
		}
		conducts := c.Status.Operational() ||
			(c.Status == models.StatusFailed && c.Damage < 100)
		if !conducts {
			continue
		}
		if !buses[c.From] || !buses[c.To] {
			continue
		}
		union(c.From, c.To)
	}

	// Sum generation and demand per island.
	genByIsland := make(map[string]float64)
	demandByIsland := make(map[string]float64)
	for _, c := range net.ByInfra(models.InfraPower) {
		if c.Node == "" || !buses[c.Node] {
			continue
		}
		island := find(c.Node)
		switch {
		case c.Category.Name == "Generator" && c.Status.Operational():
			genByIsland[island] += c.Capacity
		case c.IsConsumer() && c.Status.Operational():
			demandByIsland[island] += c.BaseDemand
		}
	}

	result := &FlowResult{Served: make(map[string]float64), Converged: true}
	for _, c := range net.Consumers(models.InfraPower) {
		served := 0.0
		if c.Status.Operational() && c.Node != "" && buses[c.Node] {
			island := find(c.Node)
			gen, demand := genByIsland[island], demandByIsland[island]
			if demand > 0 && gen > 0 {
				ratio := gen / demand
				if ratio > 1 {
					ratio = 1
				}
				served = c.BaseDemand * ratio
			}
		}
		result.Served[c.ID] = served
	}
	return result, nil
}
