package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/akaushal/resinet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func disruptTable(t *testing.T, entries ...models.Event) *models.EventTable {
	t.Helper()
	table := models.NewEventTable()
	for _, e := range entries {
		require.NoError(t, table.Append(e.Time, e.ComponentID, models.EventDisrupt, e.Magnitude))
	}
	return table
}

func eventAt(table *models.EventTable, id string, kind models.EventKind) (int64, bool) {
	for _, e := range table.Sorted() {
		if e.ComponentID == id && e.Kind == kind {
			return e.Time, true
		}
	}
	return 0, false
}

func TestScheduleSingleRepair(t *testing.T) {
	cfg, net, _ := testFixture(t)
	sched := NewRecoveryScheduler(cfg, net, NewSimulator(cfg, net, models.NewDependencyTable()).Transport, nil)

	disruptions := disruptTable(t, models.Event{Time: 600, ComponentID: "W_PMA1", Magnitude: 60})
	table, crews, err := sched.Schedule(context.Background(), disruptions, []string{"W_PMA1"})
	require.NoError(t, err)

	// dispatch at 600, 10 min overhead, 5 min travel from T_N1 to T_N2
	start, ok := eventAt(table, "W_PMA1", models.EventRepairStart)
	require.True(t, ok)
	assert.Equal(t, int64(600+600+300), start)

	end, ok := eventAt(table, "W_PMA1", models.EventRepairEnd)
	require.True(t, ok)
	assert.Equal(t, start+int64((12*time.Hour).Seconds()), end)

	_, hasIsolate := eventAt(table, "W_PMA1", models.EventIsolate)
	assert.False(t, hasIsolate, "on-repair policy emits no closure event")

	crew := crews[models.InfraWater]
	assert.Equal(t, "T_N2", crew.Location)
	assert.Equal(t, end, crew.NextAvailable)
	assert.Equal(t, []string{"W_PMA1"}, crew.Repaired)
}

func TestScheduleSensorClosure(t *testing.T) {
	cfg, net, _ := testFixture(t)
	cfg.PipeClosePolicy = models.ClosureSensorBased
	sched := NewRecoveryScheduler(cfg, net, NewSimulator(cfg, net, models.NewDependencyTable()).Transport, nil)

	disruptions := disruptTable(t, models.Event{Time: 600, ComponentID: "W_PMA1", Magnitude: 60})
	table, _, err := sched.Schedule(context.Background(), disruptions, []string{"W_PMA1"})
	require.NoError(t, err)

	at, ok := eventAt(table, "W_PMA1", models.EventIsolate)
	require.True(t, ok)
	assert.Equal(t, int64(600+720), at, "closure fires one sensor delay after the disruption")
}

func TestScheduleRecoveryTimeOverride(t *testing.T) {
	cfg, net, _ := testFixture(t)
	overrides := map[string]time.Duration{"W_PMA1": 2 * time.Hour}
	sched := NewRecoveryScheduler(cfg, net, NewSimulator(cfg, net, models.NewDependencyTable()).Transport, overrides)

	disruptions := disruptTable(t, models.Event{Time: 600, ComponentID: "W_PMA1", Magnitude: 60})
	table, _, err := sched.Schedule(context.Background(), disruptions, []string{"W_PMA1"})
	require.NoError(t, err)

	start, _ := eventAt(table, "W_PMA1", models.EventRepairStart)
	end, _ := eventAt(table, "W_PMA1", models.EventRepairEnd)
	assert.Equal(t, int64(7200), end-start)
}

func TestScheduleCrewWorksSequentially(t *testing.T) {
	cfg, net, _ := testFixture(t)
	sched := NewRecoveryScheduler(cfg, net, NewSimulator(cfg, net, models.NewDependencyTable()).Transport, nil)

	disruptions := disruptTable(t,
		models.Event{Time: 600, ComponentID: "W_PMA1", Magnitude: 60},
		models.Event{Time: 600, ComponentID: "W_WP1", Magnitude: 80},
	)
	table, crews, err := sched.Schedule(context.Background(), disruptions, []string{"W_PMA1", "W_WP1"})
	require.NoError(t, err)

	firstEnd, _ := eventAt(table, "W_PMA1", models.EventRepairEnd)
	secondStart, _ := eventAt(table, "W_WP1", models.EventRepairStart)
	assert.GreaterOrEqual(t, secondStart, firstEnd, "one crew cannot overlap repairs")
	assert.Equal(t, []string{"W_PMA1", "W_WP1"}, crews[models.InfraWater].Repaired)
}

func TestScheduleCrewsAreIndependentPerNetwork(t *testing.T) {
	cfg, net, _ := testFixture(t)
	sched := NewRecoveryScheduler(cfg, net, NewSimulator(cfg, net, models.NewDependencyTable()).Transport, nil)

	disruptions := disruptTable(t,
		models.Event{Time: 600, ComponentID: "W_PMA1", Magnitude: 60},
		models.Event{Time: 600, ComponentID: "P_L1", Magnitude: 80},
	)
	table, _, err := sched.Schedule(context.Background(), disruptions, []string{"W_PMA1", "P_L1"})
	require.NoError(t, err)

	waterStart, _ := eventAt(table, "W_PMA1", models.EventRepairStart)
	powerStart, _ := eventAt(table, "P_L1", models.EventRepairStart)
	assert.Equal(t, int64(1500), waterStart)
	assert.Equal(t, int64(1200), powerStart, "the power crew starts from its own depot at T_N1")
}

func TestScheduleOrderValidation(t *testing.T) {
	cfg, net, _ := testFixture(t)
	sched := NewRecoveryScheduler(cfg, net, NewSimulator(cfg, net, models.NewDependencyTable()).Transport, nil)

	disruptions := disruptTable(t,
		models.Event{Time: 600, ComponentID: "W_PMA1", Magnitude: 60},
		models.Event{Time: 600, ComponentID: "W_WP1", Magnitude: 80},
	)

	_, _, err := sched.Schedule(context.Background(), disruptions, []string{"W_PMA1"})
	assert.Error(t, err, "missing component")

	_, _, err = sched.Schedule(context.Background(), disruptions, []string{"W_PMA1", "W_PMA1"})
	assert.Error(t, err, "duplicate component")

	_, _, err = sched.Schedule(context.Background(), disruptions, []string{"W_PMA1", "W_WP1", "P_L1"})
	assert.Error(t, err, "not disrupted")
}

func TestScheduleFailsWhenSiteUnreachable(t *testing.T) {
	cfg, net, _ := testFixture(t)
	sched := NewRecoveryScheduler(cfg, net, NewSimulator(cfg, net, models.NewDependencyTable()).Transport, nil)

	// the only road to the pipe's work site is itself destroyed and is
	// scheduled after the pipe
	disruptions := disruptTable(t,
		models.Event{Time: 0, ComponentID: "T_L1", Magnitude: 100},
		models.Event{Time: 0, ComponentID: "W_PMA1", Magnitude: 60},
	)
	_, _, err := sched.Schedule(context.Background(), disruptions, []string{"W_PMA1", "T_L1"})
	assert.Error(t, err)
}

func TestScheduleRepairedRoadReopensForLaterTrips(t *testing.T) {
	cfg, net, _ := testFixture(t)
	sched := NewRecoveryScheduler(cfg, net, NewSimulator(cfg, net, models.NewDependencyTable()).Transport, nil)

	disruptions := disruptTable(t,
		models.Event{Time: 0, ComponentID: "T_L1", Magnitude: 100},
		models.Event{Time: 0, ComponentID: "W_PMA1", Magnitude: 60},
	)
	table, _, err := sched.Schedule(context.Background(), disruptions, []string{"T_L1", "W_PMA1"})
	require.NoError(t, err, "repairing the road first reopens the route")

	roadEnd, _ := eventAt(table, "T_L1", models.EventRepairEnd)
	pipeStart, _ := eventAt(table, "W_PMA1", models.EventRepairStart)
	assert.Greater(t, pipeStart, roadEnd)
}
