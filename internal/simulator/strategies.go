package simulator

import (
	"context"
	"fmt"
	"sort"

	"github.com/akaushal/resinet/internal/models"
	"github.com/akaushal/resinet/internal/solvers"
)

// RepairStrategy produces a repair order over the disrupted components.
// Orders must be deterministic: equal scores break ties on component id.
type RepairStrategy interface {
	Name() string
	Order(ctx context.Context, net *models.Network, disrupted []string) ([]string, error)
}

// NewStrategy builds the named heuristic strategy. The "mpc" strategy is
// constructed separately because it needs a simulator and scheduler.
func NewStrategy(name string, cfg *models.Config, transport solvers.TransportSolver) (RepairStrategy, error) {
	switch name {
	case "maxflow":
		return &MaxFlowStrategy{
			Power: solvers.NewConnectivityPowerSolver(),
			Water: solvers.NewPathFactorHydraulicSolver(),
		}, nil
	case "centrality":
		return &CentralityStrategy{}, nil
	case "zone":
		return &ZoneStrategy{Weights: cfg.ZoneWeights}, nil
	case "crewdistance":
		return &CrewDistanceStrategy{Config: cfg, Transport: transport}, nil
	default:
		return nil, fmt.Errorf("unknown repair strategy %q", name)
	}
}

// MaxFlowStrategy ranks components by the service each one carries in the
// intact network: fail each candidate alone at 100%, solve, and score the
// lost demand. Components whose loss hurts most are repaired first.
type MaxFlowStrategy struct {
	Power solvers.PowerFlowSolver
	Water solvers.HydraulicSolver
}

func (s *MaxFlowStrategy) Name() string { return "maxflow" }

func (s *MaxFlowStrategy) Order(ctx context.Context, net *models.Network, disrupted []string) ([]string, error) {
	baseline, err := s.totalServed(ctx, net)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]float64, len(disrupted))
	for _, id := range disrupted {
		snapshot := net.Clone()
		for _, c := range snapshot.Components() {
			c.Status = models.StatusActive
			c.Damage = 0
		}
		c := snapshot.Get(id)
		if c == nil {
			return nil, fmt.Errorf("unknown disrupted component %q", id)
		}
		c.Status = models.StatusIsolated
		served, err := s.totalServed(ctx, snapshot)
		if err != nil {
			return nil, err
		}
		scores[id] = baseline - served
	}
	return sortByScoreDesc(disrupted, scores), nil
}

func (s *MaxFlowStrategy) totalServed(ctx context.Context, net *models.Network) (float64, error) {
	power, err := s.Power.Solve(ctx, net)
	if err != nil {
		return 0, err
	}
	water, err := s.Water.Solve(ctx, net, nil)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, v := range power.Served {
		total += v
	}
	for _, v := range water.Served {
		total += v
	}
	return total, nil
}

// CentralityStrategy ranks components by betweenness centrality within their
// own network, computed with Brandes' algorithm on the intact topology. Link
// components score the mean of their endpoints.
type CentralityStrategy struct{}

func (s *CentralityStrategy) Name() string { return "centrality" }

func (s *CentralityStrategy) Order(ctx context.Context, net *models.Network, disrupted []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	central := make(map[models.Infra]map[string]float64)
	for _, infra := range models.Infras {
		central[infra] = betweenness(net, infra)
	}
	scores := make(map[string]float64, len(disrupted))
	for _, id := range disrupted {
		c := net.Get(id)
		if c == nil {
			return nil, fmt.Errorf("unknown disrupted component %q", id)
		}
		bc := central[c.Infra]
		if c.Category.IsLink {
			scores[id] = (bc[c.From] + bc[c.To]) / 2
		} else if c.Node != "" {
			scores[id] = bc[c.Node]
		} else {
			scores[id] = bc[id]
		}
	}
	return sortByScoreDesc(disrupted, scores), nil
}

// betweenness computes unweighted node betweenness over one network's intact
// topology (Brandes 2001).
func betweenness(net *models.Network, infra models.Infra) map[string]float64 {
	adj := make(map[string][]string)
	var nodes []string
	for _, c := range net.ByInfra(infra) {
		if !c.Category.IsLink {
			nodes = append(nodes, c.ID)
		}
	}
	known := make(map[string]bool, len(nodes))
	for _, id := range nodes {
		known[id] = true
	}
	for _, c := range net.ByInfra(infra) {
		if !c.Category.IsLink || !known[c.From] || !known[c.To] {
			continue
		}
		adj[c.From] = append(adj[c.From], c.To)
		adj[c.To] = append(adj[c.To], c.From)
	}

	cb := make(map[string]float64, len(nodes))
	for _, s := range nodes {
		var stack []string
		pred := make(map[string][]string)
		sigma := map[string]float64{s: 1}
		dist := map[string]int{s: 0}
		queue := []string{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range adj[v] {
				if _, seen := dist[w]; !seen {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}
		delta := make(map[string]float64)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				cb[w] += delta[w]
			}
		}
	}
	return cb
}

// ZoneStrategy ranks components by the configured weight of their land-use
// zone. Unweighted zones score zero and go last.
type ZoneStrategy struct {
	Weights map[string]float64
}

func (s *ZoneStrategy) Name() string { return "zone" }

func (s *ZoneStrategy) Order(ctx context.Context, net *models.Network, disrupted []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores := make(map[string]float64, len(disrupted))
	for _, id := range disrupted {
		c := net.Get(id)
		if c == nil {
			return nil, fmt.Errorf("unknown disrupted component %q", id)
		}
		scores[id] = s.Weights[c.Zone]
	}
	return sortByScoreDesc(disrupted, scores), nil
}

// CrewDistanceStrategy orders each crew's work greedily by travel time: from
// the depot, always go to the nearest remaining work site on the intact road
// network.
type CrewDistanceStrategy struct {
	Config    *models.Config
	Transport solvers.TransportSolver
}

func (s *CrewDistanceStrategy) Name() string { return "crewdistance" }

func (s *CrewDistanceStrategy) Order(ctx context.Context, net *models.Network, disrupted []string) ([]string, error) {
	byInfra := make(map[models.Infra][]string)
	for _, id := range disrupted {
		c := net.Get(id)
		if c == nil {
			return nil, fmt.Errorf("unknown disrupted component %q", id)
		}
		byInfra[c.Infra] = append(byInfra[c.Infra], id)
	}

	var order []string
	for _, infra := range models.Infras {
		work := append([]string(nil), byInfra[infra]...)
		sort.Strings(work)
		loc := s.Config.CrewLocations[string(infra)]
		for len(work) > 0 {
			bestIdx, bestCost := 0, -1.0
			for i, id := range work {
				site := workSiteOf(net, id)
				cost := 0.0
				if loc != "" && site != "" && loc != site {
					tt, err := s.Transport.TravelTime(ctx, net, loc, site)
					if err != nil {
						cost = -1
					} else {
						cost = tt.Minutes()
					}
				}
				if cost >= 0 && (bestCost < 0 || cost < bestCost) {
					bestIdx, bestCost = i, cost
				}
			}
			picked := work[bestIdx]
			order = append(order, picked)
			work = append(work[:bestIdx], work[bestIdx+1:]...)
			if site := workSiteOf(net, picked); site != "" {
				loc = site
			}
		}
	}
	return order, nil
}

func workSiteOf(net *models.Network, id string) string {
	c := net.Get(id)
	if c == nil {
		return ""
	}
	if c.Infra == models.InfraTransport {
		if c.Category.IsLink {
			return c.From
		}
		return c.ID
	}
	return c.AccessNode
}

// sortByScoreDesc orders ids by descending score, breaking ties on id.
func sortByScoreDesc(ids []string, scores map[string]float64) []string {
	out := append([]string(nil), ids...)
	sort.Slice(out, func(i, j int) bool {
		if scores[out[i]] != scores[out[j]] {
			return scores[out[i]] > scores[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
