package solvers

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/akaushal/resinet/internal/models"
)

// ShortestPathTransportSolver is the reference road engine: Dijkstra over
// operational road links. Link traversal time is the link's Capacity field in
// minutes when set, otherwise the planar distance between its endpoints at a
// nominal speed. No congestion model.
type ShortestPathTransportSolver struct{}

func NewShortestPathTransportSolver() *ShortestPathTransportSolver {
	return &ShortestPathTransportSolver{}
}

// nominalSpeed converts planar distance to minutes when a link has no
// explicit traversal time.
const nominalSpeed = 0.5

func (s *ShortestPathTransportSolver) TravelTime(ctx context.Context, net *models.Network, from, to string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if net.Get(from) == nil {
		return 0, fmt.Errorf("unknown road node %q", from)
	}
	if net.Get(to) == nil {
		return 0, fmt.Errorf("unknown road node %q", to)
	}
	dist := s.shortestFrom(net, from)
	d, ok := dist[to]
	if !ok {
		return 0, fmt.Errorf("%s to %s: %w", from, to, ErrNoRoute)
	}
	return time.Duration(d * float64(time.Minute)), nil
}

func (s *ShortestPathTransportSolver) Reachable(ctx context.Context, net *models.Network, from string) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if net.Get(from) == nil {
		return nil, fmt.Errorf("unknown road node %q", from)
	}
	dist := s.shortestFrom(net, from)
	out := make(map[string]bool, len(dist))
	for id := range dist {
		out[id] = true
	}
	return out, nil
}

func (s *ShortestPathTransportSolver) ServiceLevels(ctx context.Context, net *models.Network) (*FlowResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var nodes []*models.Component
	for _, c := range net.ByInfra(models.InfraTransport) {
		if !c.Category.IsLink {
			nodes = append(nodes, c)
		}
	}
	result := &FlowResult{Served: make(map[string]float64, len(nodes)), Converged: true}
	if len(nodes) < 2 {
		for _, n := range nodes {
			result.Served[n.ID] = 1
		}
		return result, nil
	}
	for _, n := range nodes {
		if !n.Status.Operational() {
			result.Served[n.ID] = 0
			continue
		}
		reach := s.shortestFrom(net, n.ID)
		result.Served[n.ID] = float64(len(reach)-1) / float64(len(nodes)-1)
	}
	return result, nil
}

// shortestFrom runs Dijkstra in minutes over operational nodes and links.
// The returned map contains only reachable nodes, origin included at 0.
func (s *ShortestPathTransportSolver) shortestFrom(net *models.Network, from string) map[string]float64 {
	type edge struct {
		to     string
		weight float64
	}
	adj := make(map[string][]edge)
	nodeUp := make(map[string]bool)
	coords := make(map[string]models.Point)
	for _, c := range net.ByInfra(models.InfraTransport) {
		if c.Category.IsLink {
			continue
		}
		nodeUp[c.ID] = c.Status.Operational()
		coords[c.ID] = c.Coord
	}
	for _, c := range net.ByInfra(models.InfraTransport) {
		if !c.Category.IsLink || !c.Status.Operational() {
			continue
		}
		if !nodeUp[c.From] || !nodeUp[c.To] {
			continue
		}
		w := c.Capacity
		if w <= 0 {
			a, b := coords[c.From], coords[c.To]
			w = math.Hypot(a.X-b.X, a.Y-b.Y) / nominalSpeed
		}
		adj[c.From] = append(adj[c.From], edge{to: c.To, weight: w})
		adj[c.To] = append(adj[c.To], edge{to: c.From, weight: w})
	}

	dist := make(map[string]float64)
	if !nodeUp[from] {
		return dist
	}
	dist[from] = 0
	q := &travelQueue{{node: from, minutes: 0}}
	for q.Len() > 0 {
		item := heap.Pop(q).(travelItem)
		if item.minutes > dist[item.node] {
			continue
		}
		for _, e := range adj[item.node] {
			d := item.minutes + e.weight
			if cur, ok := dist[e.to]; !ok || d < cur {
				dist[e.to] = d
				heap.Push(q, travelItem{node: e.to, minutes: d})
			}
		}
	}
	return dist
}

type travelItem struct {
	node    string
	minutes float64
}

type travelQueue []travelItem

func (q travelQueue) Len() int            { return len(q) }
func (q travelQueue) Less(i, j int) bool  { return q[i].minutes < q[j].minutes }
func (q travelQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *travelQueue) Push(x interface{}) { *q = append(*q, x.(travelItem)) }
func (q *travelQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
