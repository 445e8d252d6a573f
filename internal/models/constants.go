package models

// Infra identifies the infrastructure network a component belongs to.
type Infra string

const (
	InfraPower     Infra = "power"
	InfraWater     Infra = "water"
	InfraTransport Infra = "transport"
)

// Infras lists the three networks in solver invocation order.
var Infras = []Infra{InfraPower, InfraWater, InfraTransport}

// Status is the operational status of a component.
type Status string

const (
	StatusActive      Status = "ACTIVE"
	StatusFailed      Status = "FAILED"
	StatusIsolated    Status = "ISOLATED"
	StatusUnderRepair Status = "UNDER_REPAIR"
	StatusRepaired    Status = "REPAIRED"
)

// Operational reports whether a component in this status can carry service.
func (s Status) Operational() bool {
	return s == StatusActive || s == StatusRepaired
}

// EventKind identifies the type of an event-table entry.
type EventKind string

const (
	EventDisrupt     EventKind = "DISRUPT"
	EventRepairStart EventKind = "REPAIR_START"
	EventRepairEnd   EventKind = "REPAIR_END"
	// EventIsolate is generated by the recovery scheduler when a closure
	// policy shuts a leaking pipe or a damaged line before the crew arrives.
	EventIsolate EventKind = "ISOLATE"
)

// Output topics.
const (
	TopicSimulationEvents  = "simulation_events"
	TopicServiceLevels     = "service_levels"
	TopicResilienceSummary = "resilience_summary"
)
