package simulator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/akaushal/resinet/internal/models"
	"github.com/schollz/progressbar/v3"
)

// MPCOptimizer searches for a repair order by receding-horizon control: at
// each step it enumerates permutations of the next Horizon repairs over the
// remaining components, scores each candidate by scheduling and simulating
// only the committed repairs plus that candidate window, commits the first
// repair of the best candidate, and repeats. With Horizon=1 this degenerates
// to a greedy one-step lookahead.
//
// The search is bounded three ways: permutation count per wave, wall-clock
// time budget, and the context. When the budget runs out before a wave
// completes, the optimizer falls back to the configured heuristic for the
// still-unscheduled components and logs the degraded result.
type MPCOptimizer struct {
	Sim       *Simulator
	Scheduler *RecoveryScheduler
	Budget    models.OptimizerConfig
	Fallback  RepairStrategy
	Weights   map[models.Infra]float64

	// ShowProgress renders a per-wave progress bar on stderr.
	ShowProgress bool
}

func NewMPCOptimizer(sim *Simulator, sched *RecoveryScheduler, budget models.OptimizerConfig, fallback RepairStrategy, weights map[models.Infra]float64) *MPCOptimizer {
	return &MPCOptimizer{
		Sim:       sim,
		Scheduler: sched,
		Budget:    budget,
		Fallback:  fallback,
		Weights:   weights,
	}
}

func (o *MPCOptimizer) Name() string { return "mpc" }

// Optimize returns the repair order for the scenario's disrupted components.
func (o *MPCOptimizer) Optimize(ctx context.Context, disruptions *models.EventTable) ([]string, error) {
	remaining := disruptedIDs(disruptions)
	if len(remaining) == 0 {
		return nil, fmt.Errorf("scenario has no disrupted components")
	}

	deadline := time.Now().Add(o.Budget.TimeBudget)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var committed []string
	for len(remaining) > 0 {
		k := o.Budget.Horizon
		if k > len(remaining) {
			k = len(remaining)
		}
		prefixes, truncated := kPermutations(remaining, k, o.Budget.MaxPermutations)
		if truncated {
			log.Printf("mpc: permutation cap %d reached with %d components remaining, wave %d search is truncated",
				o.Budget.MaxPermutations, len(remaining), len(committed)+1)
		}

		best, err := o.evaluateWave(ctx, disruptions, committed, remaining, prefixes)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return o.fallbackRest(committed, remaining)
			}
			return nil, err
		}

		pick := prefixes[best][0]
		committed = append(committed, pick)
		remaining = remove(remaining, pick)
	}
	return committed, nil
}

// evaluateWave scores every candidate prefix and returns the index of the
// best one. Scores tie-break on enumeration index, which keeps the search
// deterministic regardless of worker scheduling.
func (o *MPCOptimizer) evaluateWave(ctx context.Context, disruptions *models.EventTable, committed, remaining []string, prefixes [][]string) (int, error) {
	workers := o.Budget.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(prefixes) {
		workers = len(prefixes)
	}

	var bar *progressbar.ProgressBar
	if o.ShowProgress {
		bar = progressbar.Default(int64(len(prefixes)), fmt.Sprintf("wave %d/%d", len(committed)+1, len(committed)+len(remaining)))
	}

	scores := make([]float64, len(prefixes))
	errs := make([]error, len(prefixes))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				scores[i], errs[i] = o.evaluate(ctx, disruptions, committed, prefixes[i])
				if bar != nil {
					_ = bar.Add(1)
				}
			}
		}()
	}
	for i := range prefixes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	bestIdx, bestScore := -1, math.Inf(1)
	var firstErr error
	for i := range prefixes {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		if scores[i] < bestScore {
			bestIdx, bestScore = i, scores[i]
		}
	}
	if bestIdx < 0 {
		return 0, firstErr
	}
	return bestIdx, nil
}

// evaluate scores one candidate: the committed repairs followed by the
// prefix, scheduled on their own. Components outside the window get no repair
// and stay failed through the simulated horizon, so the score reflects only
// what the candidate actually restores and how fast.
func (o *MPCOptimizer) evaluate(ctx context.Context, disruptions *models.EventTable, committed, prefix []string) (float64, error) {
	order := make([]string, 0, len(committed)+len(prefix))
	order = append(order, committed...)
	order = append(order, prefix...)

	schedule, _, err := o.Scheduler.schedule(ctx, disruptions, order, false)
	if err != nil {
		return 0, err
	}
	rec, err := o.Sim.Run(ctx, RunRequest{Table: schedule, RunID: "mpc-eval", Quiet: true})
	if err != nil {
		return 0, err
	}
	return Summarize(rec, o.Weights).WeightedEOH, nil
}

// fallbackRest finishes the order with the heuristic strategy after the
// search budget is exhausted.
func (o *MPCOptimizer) fallbackRest(committed, remaining []string) ([]string, error) {
	log.Printf("mpc: search budget exhausted after %d of %d commitments, falling back to %s for the rest",
		len(committed), len(committed)+len(remaining), o.Fallback.Name())
	rest, err := o.Fallback.Order(context.Background(), o.Sim.Network, remaining)
	if err != nil {
		return nil, fmt.Errorf("mpc fallback: %w", err)
	}
	return append(committed, rest...), nil
}

func disruptedIDs(disruptions *models.EventTable) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range disruptions.Sorted() {
		if e.Kind == models.EventDisrupt && !seen[e.ComponentID] {
			seen[e.ComponentID] = true
			out = append(out, e.ComponentID)
		}
	}
	sort.Strings(out)
	return out
}

func remove(ids []string, id string) []string {
	out := make([]string, 0, len(ids)-1)
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// kPermutations enumerates the k-length permutations of ids in lexicographic
// order, stopping at limit. The second result reports whether the limit cut
// the enumeration short.
func kPermutations(ids []string, k, limit int) ([][]string, bool) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	// Generate one past the limit so clipping is distinguishable from an
	// enumeration that ends exactly at it.
	stop := 0
	if limit > 0 {
		stop = limit + 1
	}

	var out [][]string
	used := make([]bool, len(sorted))
	cur := make([]string, 0, k)
	var rec func()
	rec = func() {
		if stop > 0 && len(out) >= stop {
			return
		}
		if len(cur) == k {
			out = append(out, append([]string(nil), cur...))
			return
		}
		for i, id := range sorted {
			if used[i] {
				continue
			}
			used[i] = true
			cur = append(cur, id)
			rec()
			cur = cur[:len(cur)-1]
			used[i] = false
			if stop > 0 && len(out) >= stop {
				return
			}
		}
	}
	rec()

	if limit > 0 && len(out) > limit {
		return out[:limit], true
	}
	return out, false
}
