package models

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
)

// Event is an immutable entry of the event table. Time is in simulation
// seconds from the start of the run. Magnitude is the percent damage and is
// meaningful for DISRUPT events only.
type Event struct {
	Time        int64
	ComponentID string
	Kind        EventKind
	Magnitude   float64

	seq int64
}

// EventTable is the totally ordered, append-only ledger of disruption and
// repair events. Ordering is by timestamp, then by insertion order for ties.
// Once Freeze is called (when simulation execution begins) the table rejects
// further appends.
type EventTable struct {
	events  []*Event
	nextSeq int64
	frozen  bool
	mutex   sync.Mutex
}

func NewEventTable() *EventTable {
	return &EventTable{}
}

// Append adds an event to the table. Appending to a frozen table or recording
// an event at a negative timestamp is an error.
func (et *EventTable) Append(t int64, componentID string, kind EventKind, magnitude float64) error {
	et.mutex.Lock()
	defer et.mutex.Unlock()
	if et.frozen {
		return fmt.Errorf("event table is frozen: cannot append %s for %s at t=%d", kind, componentID, t)
	}
	if t < 0 {
		return fmt.Errorf("event for %s has negative timestamp %d", componentID, t)
	}
	et.events = append(et.events, &Event{
		Time:        t,
		ComponentID: componentID,
		Kind:        kind,
		Magnitude:   magnitude,
		seq:         et.nextSeq,
	})
	et.nextSeq++
	return nil
}

// Freeze marks the table immutable. Called by the simulation loop before the
// first step; revisions are only legal before this point.
func (et *EventTable) Freeze() {
	et.mutex.Lock()
	defer et.mutex.Unlock()
	et.frozen = true
}

// Len returns the number of events in the table.
func (et *EventTable) Len() int {
	et.mutex.Lock()
	defer et.mutex.Unlock()
	return len(et.events)
}

// Sorted returns all events in (timestamp, insertion) order.
func (et *EventTable) Sorted() []*Event {
	et.mutex.Lock()
	defer et.mutex.Unlock()
	out := make([]*Event, len(et.events))
	copy(out, et.events)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Timestamps returns the distinct event timestamps in increasing order.
func (et *EventTable) Timestamps() []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, e := range et.Sorted() {
		if !seen[e.Time] {
			seen[e.Time] = true
			out = append(out, e.Time)
		}
	}
	return out
}

// At returns the events recorded at exactly the given timestamp, in insertion
// order.
func (et *EventTable) At(t int64) []*Event {
	var out []*Event
	for _, e := range et.Sorted() {
		if e.Time == t {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks the table against a network before simulation: every
// component id must be known, every DISRUPT must target a disruptable
// category, and magnitudes must lie in (0, 100].
func (et *EventTable) Validate(net *Network) error {
	for _, e := range et.Sorted() {
		c := net.Get(e.ComponentID)
		if c == nil {
			return fmt.Errorf("event at t=%d references unknown component %q", e.Time, e.ComponentID)
		}
		if e.Kind == EventDisrupt {
			if !c.Category.Disruptable {
				return fmt.Errorf("component %s (%s) at t=%d is not disruption-eligible", e.ComponentID, c.Category.Name, e.Time)
			}
			if e.Magnitude <= 0 || e.Magnitude > 100 {
				return fmt.Errorf("disruption of %s at t=%d has magnitude %.1f outside (0, 100]", e.ComponentID, e.Time, e.Magnitude)
			}
		}
	}
	return nil
}

// WriteCSV exports the table in the order the simulation will process it.
func (et *EventTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time_stamp", "component", "event", "magnitude"}); err != nil {
		return err
	}
	for _, e := range et.Sorted() {
		row := []string{
			strconv.FormatInt(e.Time, 10),
			e.ComponentID,
			string(e.Kind),
			strconv.FormatFloat(e.Magnitude, 'f', 1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
