package simulator

import (
	"encoding/json"
	"fmt"

	"github.com/akaushal/resinet/internal/models"
)

// Exporter publishes run artifacts to an output destination, one JSON message
// per row on the topic named for the artifact.
type Exporter struct {
	dest OutputDestination
}

func NewExporter(dest OutputDestination) *Exporter {
	return &Exporter{dest: dest}
}

// PublishEvents emits the scheduled event table.
func (e *Exporter) PublishEvents(runID string, table *models.EventTable) error {
	for _, ev := range table.Sorted() {
		msg := SimulationEventMessage{
			RunID:     runID,
			Timestamp: ev.Time,
			Component: ev.ComponentID,
			Event:     string(ev.Kind),
			Magnitude: ev.Magnitude,
		}
		if err := e.write(models.TopicSimulationEvents, msg); err != nil {
			return err
		}
	}
	return nil
}

// PublishServiceLevels emits every service-level sample of the run.
func (e *Exporter) PublishServiceLevels(rec *models.RunRecords) error {
	for _, r := range rec.Records {
		msg := ServiceLevelMessage{
			RunID:     rec.RunID,
			Timestamp: r.Time,
			Component: r.ComponentID,
			Infra:     string(r.Infra),
			Served:    r.Served,
			Nominal:   r.Nominal,
		}
		if err := e.write(models.TopicServiceLevels, msg); err != nil {
			return err
		}
	}
	return nil
}

// PublishSummary emits one row per infrastructure plus the aggregate.
func (e *Exporter) PublishSummary(sum *ResilienceSummary, finishedAt int64) error {
	for _, infra := range models.Infras {
		msg := ResilienceSummaryMessage{
			RunID:          sum.RunID,
			Timestamp:      finishedAt,
			Infra:          string(infra),
			ECSOutageHours: sum.ECSOutage[infra],
			PCSOutageHours: sum.PCSOutage[infra],
			WeightedEOH:    sum.WeightedEOH,
		}
		if err := e.write(models.TopicResilienceSummary, msg); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) write(topic string, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling %s message: %w", topic, err)
	}
	return e.dest.WriteMessage(topic, data)
}
