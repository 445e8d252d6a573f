package solvers

import (
	"context"
	"testing"

	"github.com/akaushal/resinet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waterTestNetwork(t *testing.T) *models.Network {
	t.Helper()
	net := models.NewNetwork("water-test")
	add := func(id string, mutate func(*models.Component)) {
		c, err := models.NewComponent(id)
		require.NoError(t, err)
		if mutate != nil {
			mutate(c)
		}
		require.NoError(t, net.Add(c))
	}
	add("W_R1", nil)
	add("W_WP1", func(c *models.Component) { c.From, c.To = "W_R1", "W_J1" })
	add("W_J1", func(c *models.Component) { c.BaseDemand = 40 })
	add("W_PMA1", func(c *models.Component) { c.From, c.To = "W_J1", "W_J2" })
	add("W_J2", func(c *models.Component) { c.BaseDemand = 40 })
	return net
}

func TestWaterSolveIntact(t *testing.T) {
	net := waterTestNetwork(t)
	res, err := NewPathFactorHydraulicSolver().Solve(context.Background(), net, nil)
	require.NoError(t, err)
	require.True(t, res.Converged)
	assert.InDelta(t, 40, res.Served["W_J1"], 1e-9)
	assert.InDelta(t, 40, res.Served["W_J2"], 1e-9)
}

func TestWaterSolveLeakingPipeDegradesDownstream(t *testing.T) {
	net := waterTestNetwork(t)
	pipe := net.Get("W_PMA1")
	pipe.Status = models.StatusFailed
	pipe.Damage = 60

	res, err := NewPathFactorHydraulicSolver().Solve(context.Background(), net, nil)
	require.NoError(t, err)
	assert.InDelta(t, 40, res.Served["W_J1"], 1e-9, "upstream of the leak is unaffected")
	assert.InDelta(t, 16, res.Served["W_J2"], 1e-9, "downstream gets 40 percent through the leak")
}

func TestWaterSolveFullyDestroyedPipeStopsFlow(t *testing.T) {
	net := waterTestNetwork(t)
	pipe := net.Get("W_PMA1")
	pipe.Status = models.StatusFailed
	pipe.Damage = 100

	res, err := NewPathFactorHydraulicSolver().Solve(context.Background(), net, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Served["W_J2"])
}

func TestWaterSolveClosedPipeStopsFlow(t *testing.T) {
	net := waterTestNetwork(t)
	pipe := net.Get("W_PMA1")
	pipe.Status = models.StatusIsolated
	pipe.Damage = 30

	res, err := NewPathFactorHydraulicSolver().Solve(context.Background(), net, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Served["W_J2"], "a closed pipe carries nothing regardless of damage")
}

func TestWaterSolveUnpoweredPumpStopsFlow(t *testing.T) {
	net := waterTestNetwork(t)
	res, err := NewPathFactorHydraulicSolver().Solve(context.Background(), net, map[string]bool{"W_WP1": true})
	require.NoError(t, err)
	assert.Zero(t, res.Served["W_J1"])
	assert.Zero(t, res.Served["W_J2"])
}

func TestWaterSolveFailedSourceStopsFlow(t *testing.T) {
	net := waterTestNetwork(t)
	net.Get("W_R1").Status = models.StatusFailed

	res, err := NewPathFactorHydraulicSolver().Solve(context.Background(), net, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Served["W_J1"])
	assert.Zero(t, res.Served["W_J2"])
}
