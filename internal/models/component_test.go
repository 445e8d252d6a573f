package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComponentID(t *testing.T) {
	tests := []struct {
		id       string
		infra    Infra
		category string
	}{
		{"W_WP9", InfraWater, "Pump"},
		{"W_PMA21", InfraWater, "Main Pipe"},
		{"W_PSC4213", InfraWater, "Service Connection Pipe"},
		{"W_P7", InfraWater, "Pipe"},
		{"W_R1", InfraWater, "Reservoir"},
		{"W_J12", InfraWater, "Junction"},
		{"P_MP3", InfraPower, "Motor"},
		{"P_L9", InfraPower, "Line"},
		{"P_LO2", InfraPower, "Load"},
		{"P_TF1", InfraPower, "Transformer"},
		{"T_N4", InfraTransport, "Road Node"},
		{"T_L9", InfraTransport, "Road Link"},
	}
	for _, tt := range tests {
		infra, cat, err := ParseComponentID(tt.id)
		require.NoError(t, err, tt.id)
		assert.Equal(t, tt.infra, infra, tt.id)
		assert.Equal(t, tt.category, cat.Name, tt.id)
	}
}

func TestParseComponentIDErrors(t *testing.T) {
	for _, id := range []string{"", "W", "W_", "_P3", "X_P3", "W_3", "P_XY1"} {
		_, _, err := ParseComponentID(id)
		assert.Error(t, err, "id %q should be rejected", id)
	}
}

func TestNewComponent(t *testing.T) {
	c, err := NewComponent("P_G1")
	require.NoError(t, err)
	assert.Equal(t, InfraPower, c.Infra)
	assert.Equal(t, "Generator", c.Category.Name)
	assert.Equal(t, StatusActive, c.Status)
	assert.Equal(t, 24*time.Hour, c.RepairDuration())
}

func TestStatusOperational(t *testing.T) {
	assert.True(t, StatusActive.Operational())
	assert.True(t, StatusRepaired.Operational())
	assert.False(t, StatusFailed.Operational())
	assert.False(t, StatusIsolated.Operational())
	assert.False(t, StatusUnderRepair.Operational())
}

func TestNetworkAddAndLookup(t *testing.T) {
	net := NewNetwork("test")
	c, err := NewComponent("W_J1")
	require.NoError(t, err)
	c.BaseDemand = 25
	require.NoError(t, net.Add(c))

	assert.Error(t, net.Add(c), "duplicate ids must be rejected")
	assert.True(t, net.Has("W_J1"))
	assert.Nil(t, net.Get("W_J2"))

	consumers := net.Consumers(InfraWater)
	require.Len(t, consumers, 1)
	assert.Equal(t, 25.0, net.TotalBaseDemand(InfraWater))
}

func TestNetworkCloneIsIndependent(t *testing.T) {
	net := NewNetwork("test")
	c, err := NewComponent("P_B1")
	require.NoError(t, err)
	require.NoError(t, net.Add(c))

	clone := net.Clone()
	clone.Get("P_B1").Status = StatusFailed

	assert.Equal(t, StatusActive, net.Get("P_B1").Status)
	assert.Equal(t, StatusFailed, clone.Get("P_B1").Status)
}

func TestNearestTransportNode(t *testing.T) {
	net := NewNetwork("test")
	for i, coord := range []Point{{0, 0}, {10, 0}, {0, 10}} {
		c, err := NewComponent(nodeID(i + 1))
		require.NoError(t, err)
		c.Coord = coord
		require.NoError(t, net.Add(c))
	}

	id, dist, err := net.NearestTransportNode(Point{X: 9, Y: 1})
	require.NoError(t, err)
	assert.Equal(t, "T_N2", id)
	assert.InDelta(t, 1.414, dist, 0.01)
}

func nodeID(n int) string {
	return fmt.Sprintf("T_N%d", n)
}
