package simulator

import (
	"fmt"

	"github.com/akaushal/resinet/internal/models"
	"github.com/xitongsys/parquet-go/schema"
)

// SimulationEventMessage is the wire form of one event-table entry.
type SimulationEventMessage struct {
	RunID     string  `json:"run_id" parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp int64   `json:"timestamp" parquet:"name=timestamp, type=INT64"`
	Component string  `json:"component" parquet:"name=component, type=BYTE_ARRAY, convertedtype=UTF8"`
	Event     string  `json:"event" parquet:"name=event, type=BYTE_ARRAY, convertedtype=UTF8"`
	Magnitude float64 `json:"magnitude" parquet:"name=magnitude, type=DOUBLE"`
}

// ServiceLevelMessage is the wire form of one service-level sample.
type ServiceLevelMessage struct {
	RunID     string  `json:"run_id" parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp int64   `json:"timestamp" parquet:"name=timestamp, type=INT64"`
	Component string  `json:"component" parquet:"name=component, type=BYTE_ARRAY, convertedtype=UTF8"`
	Infra     string  `json:"infra" parquet:"name=infra, type=BYTE_ARRAY, convertedtype=UTF8"`
	Served    float64 `json:"served" parquet:"name=served, type=DOUBLE"`
	Nominal   float64 `json:"nominal" parquet:"name=nominal, type=DOUBLE"`
}

// ResilienceSummaryMessage is the wire form of one per-system summary row.
type ResilienceSummaryMessage struct {
	RunID          string  `json:"run_id" parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp      int64   `json:"timestamp" parquet:"name=timestamp, type=INT64"`
	Infra          string  `json:"infra" parquet:"name=infra, type=BYTE_ARRAY, convertedtype=UTF8"`
	ECSOutageHours float64 `json:"ecs_outage_hours" parquet:"name=ecs_outage_hours, type=DOUBLE"`
	PCSOutageHours float64 `json:"pcs_outage_hours" parquet:"name=pcs_outage_hours, type=DOUBLE"`
	WeightedEOH    float64 `json:"weighted_eoh" parquet:"name=weighted_eoh, type=DOUBLE"`
}

// GetSchema returns the Parquet schema handler for a topic.
func GetSchema(topic string) (*schema.SchemaHandler, error) {
	switch topic {
	case models.TopicSimulationEvents:
		return schema.NewSchemaHandlerFromStruct(new(SimulationEventMessage))
	case models.TopicServiceLevels:
		return schema.NewSchemaHandlerFromStruct(new(ServiceLevelMessage))
	case models.TopicResilienceSummary:
		return schema.NewSchemaHandlerFromStruct(new(ResilienceSummaryMessage))
	default:
		return nil, fmt.Errorf("unknown topic: %s", topic)
	}
}
