package models

import (
	"encoding/csv"
	"io"
	"strconv"
)

// ServiceLevelRecord is one (served, nominal) observation for one consumer at
// one sample time.
type ServiceLevelRecord struct {
	Time        int64
	ComponentID string
	Infra       Infra
	Served      float64
	Nominal     float64
}

// RunRecords is the append-only service-level record set of a single
// simulation run. Each run produces its own disjoint set; records are never
// shared across runs, which is what makes concurrent optimizer evaluations
// safe.
type RunRecords struct {
	RunID   string
	Records []ServiceLevelRecord
}

func NewRunRecords(runID string) *RunRecords {
	return &RunRecords{RunID: runID}
}

// Append adds one observation.
func (r *RunRecords) Append(t int64, componentID string, infra Infra, served, nominal float64) {
	r.Records = append(r.Records, ServiceLevelRecord{
		Time:        t,
		ComponentID: componentID,
		Infra:       infra,
		Served:      served,
		Nominal:     nominal,
	})
}

// ByInfra returns the records of one infrastructure, preserving append order.
func (r *RunRecords) ByInfra(infra Infra) []ServiceLevelRecord {
	var out []ServiceLevelRecord
	for _, rec := range r.Records {
		if rec.Infra == infra {
			out = append(out, rec)
		}
	}
	return out
}

// SampleTimes returns the distinct sample times of one infrastructure in
// append order (which is increasing, since the loop appends in time order).
func (r *RunRecords) SampleTimes(infra Infra) []int64 {
	var out []int64
	var last int64 = -1
	for _, rec := range r.Records {
		if rec.Infra != infra {
			continue
		}
		if len(out) == 0 || rec.Time != last {
			out = append(out, rec.Time)
			last = rec.Time
		}
	}
	return out
}

// WriteCSV exports the record set.
func (r *RunRecords) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"run_id", "time_stamp", "component", "infra", "served", "nominal"}); err != nil {
		return err
	}
	for _, rec := range r.Records {
		row := []string{
			r.RunID,
			strconv.FormatInt(rec.Time, 10),
			rec.ComponentID,
			string(rec.Infra),
			strconv.FormatFloat(rec.Served, 'f', 6, 64),
			strconv.FormatFloat(rec.Nominal, 'f', 6, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
