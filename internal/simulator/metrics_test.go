package simulator

import (
	"testing"

	"github.com/akaushal/resinet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestECSWeighsConsumersEqually(t *testing.T) {
	rec := models.NewRunRecords("r1")
	rec.Append(0, "W_J1", models.InfraWater, 0, 10)
	rec.Append(0, "W_J2", models.InfraWater, 90, 90)

	series := ECSSeries(rec, models.InfraWater)
	require.Len(t, series, 1)
	assert.InDelta(t, 0.5, series[0].Value, 1e-9, "the small consumer counts as much as the big one")
}

func TestPCSWeighsConsumersByDemand(t *testing.T) {
	rec := models.NewRunRecords("r1")
	rec.Append(0, "W_J1", models.InfraWater, 0, 10)
	rec.Append(0, "W_J2", models.InfraWater, 90, 90)

	series := PCSSeries(rec, models.InfraWater)
	require.Len(t, series, 1)
	assert.InDelta(t, 0.9, series[0].Value, 1e-9)
}

func TestMetricsClipOverdelivery(t *testing.T) {
	rec := models.NewRunRecords("r1")
	rec.Append(0, "W_J1", models.InfraWater, 120, 100)

	assert.InDelta(t, 1, ECSSeries(rec, models.InfraWater)[0].Value, 1e-9)
	assert.InDelta(t, 1, PCSSeries(rec, models.InfraWater)[0].Value, 1e-9)
}

func TestEOHTrapezoid(t *testing.T) {
	series := []SeriesPoint{
		{Time: 0, Value: 1},
		{Time: 3600, Value: 0.5},
		{Time: 7200, Value: 1},
	}
	assert.InDelta(t, 0.5, EOH(series), 1e-9)
}

func TestEOHZeroAtFullService(t *testing.T) {
	series := []SeriesPoint{
		{Time: 0, Value: 1},
		{Time: 3600, Value: 1},
		{Time: 86400, Value: 1},
	}
	assert.Zero(t, EOH(series))
}

func TestEOHNeverNegative(t *testing.T) {
	series := []SeriesPoint{
		{Time: 0, Value: 1.2},
		{Time: 3600, Value: 1.1},
	}
	assert.Zero(t, EOH(series))
	assert.Zero(t, EOH(nil))
	assert.Zero(t, EOH(series[:1]))
}

func TestSummarize(t *testing.T) {
	// water at half service for one hour, then restored
	rec := models.NewRunRecords("r1")
	rec.Append(0, "W_J1", models.InfraWater, 25, 50)
	rec.Append(3600, "W_J1", models.InfraWater, 50, 50)

	weights := map[models.Infra]float64{
		models.InfraWater:     1,
		models.InfraPower:     0,
		models.InfraTransport: 0,
	}
	sum := Summarize(rec, weights)
	assert.Equal(t, "r1", sum.RunID)
	assert.InDelta(t, 0.25, sum.PCSOutage[models.InfraWater], 1e-9)
	assert.InDelta(t, 0.25, sum.WeightedEOH, 1e-9)
	assert.Zero(t, sum.PCSOutage[models.InfraPower])
}
