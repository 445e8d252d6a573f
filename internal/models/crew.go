package models

// Crew is a repair crew serving one infrastructure network. Within a run a
// crew works strictly sequentially: it cannot start a new repair before
// finishing the current one. State mutates only as the simulation loop
// advances past REPAIR_START/REPAIR_END events.
type Crew struct {
	Infra    Infra
	Location string

	// NextAvailable is the simulation time (seconds) at which the crew can
	// start its next trip.
	NextAvailable int64

	Repaired []string
}

func NewCrew(infra Infra, loc string) *Crew {
	return &Crew{
		Infra:    infra,
		Location: loc,
	}
}
