package solvers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akaushal/resinet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transportTestNetwork(t *testing.T) *models.Network {
	t.Helper()
	net := models.NewNetwork("transport-test")
	add := func(id string, mutate func(*models.Component)) {
		c, err := models.NewComponent(id)
		require.NoError(t, err)
		if mutate != nil {
			mutate(c)
		}
		require.NoError(t, net.Add(c))
	}
	add("T_N1", func(c *models.Component) { c.Coord = models.Point{X: 0, Y: 0} })
	add("T_N2", func(c *models.Component) { c.Coord = models.Point{X: 10, Y: 0} })
	add("T_N3", func(c *models.Component) { c.Coord = models.Point{X: 20, Y: 0} })
	add("T_L1", func(c *models.Component) { c.From, c.To = "T_N1", "T_N2"; c.Capacity = 5 })
	add("T_L2", func(c *models.Component) { c.From, c.To = "T_N2", "T_N3"; c.Capacity = 7 })
	return net
}

func TestTravelTimeSumsLinkMinutes(t *testing.T) {
	net := transportTestNetwork(t)
	s := NewShortestPathTransportSolver()

	tt, err := s.TravelTime(context.Background(), net, "T_N1", "T_N3")
	require.NoError(t, err)
	assert.Equal(t, 12*time.Minute, tt)

	tt, err = s.TravelTime(context.Background(), net, "T_N2", "T_N2")
	require.NoError(t, err)
	assert.Zero(t, tt)
}

func TestTravelTimeNoRoute(t *testing.T) {
	net := transportTestNetwork(t)
	net.Get("T_L1").Status = models.StatusFailed

	s := NewShortestPathTransportSolver()
	_, err := s.TravelTime(context.Background(), net, "T_N1", "T_N3")
	assert.True(t, errors.Is(err, ErrNoRoute))
}

func TestTravelTimeUnknownNode(t *testing.T) {
	net := transportTestNetwork(t)
	s := NewShortestPathTransportSolver()
	_, err := s.TravelTime(context.Background(), net, "T_N1", "T_N9")
	assert.Error(t, err)
}

func TestReachable(t *testing.T) {
	net := transportTestNetwork(t)
	net.Get("T_L2").Status = models.StatusIsolated

	s := NewShortestPathTransportSolver()
	reach, err := s.Reachable(context.Background(), net, "T_N1")
	require.NoError(t, err)
	assert.True(t, reach["T_N1"])
	assert.True(t, reach["T_N2"])
	assert.False(t, reach["T_N3"])
}

func TestServiceLevelsDegradeWithConnectivity(t *testing.T) {
	net := transportTestNetwork(t)
	s := NewShortestPathTransportSolver()

	res, err := s.ServiceLevels(context.Background(), net)
	require.NoError(t, err)
	for _, id := range []string{"T_N1", "T_N2", "T_N3"} {
		assert.InDelta(t, 1, res.Served[id], 1e-9, id)
	}

	net.Get("T_L2").Status = models.StatusFailed
	res, err = s.ServiceLevels(context.Background(), net)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Served["T_N1"], 1e-9)
	assert.InDelta(t, 0.5, res.Served["T_N2"], 1e-9)
	assert.Zero(t, res.Served["T_N3"])
}

func TestServiceLevelsFailedNodeScoresZero(t *testing.T) {
	net := transportTestNetwork(t)
	net.Get("T_N2").Status = models.StatusFailed

	s := NewShortestPathTransportSolver()
	res, err := s.ServiceLevels(context.Background(), net)
	require.NoError(t, err)
	assert.Zero(t, res.Served["T_N2"])
	assert.Zero(t, res.Served["T_N1"], "links through a failed node are unusable")
}
