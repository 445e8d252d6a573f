package models

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// DisruptionRow is one parsed row of a disruption scenario file. RecoveryTime
// overrides the category repair time when positive.
type DisruptionRow struct {
	Time         int64
	ComponentID  string
	Magnitude    float64
	RecoveryTime time.Duration
}

// LoadDisruptionsFile reads a disruption scenario CSV from disk.
func LoadDisruptionsFile(path string) ([]DisruptionRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening disruption file: %w", err)
	}
	defer f.Close()
	rows, err := LoadDisruptions(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// LoadDisruptions parses the scenario format
// "time_stamp,components,fail_perc[,recovery_time]". time_stamp is in seconds,
// recovery_time in hours. Parsing fails fast on the first malformed row.
func LoadDisruptions(r io.Reader) ([]DisruptionRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) < 3 || strings.TrimSpace(header[0]) != "time_stamp" {
		return nil, fmt.Errorf("unexpected header %v, want time_stamp,components,fail_perc", header)
	}

	var rows []DisruptionRow
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) < 3 {
			return nil, fmt.Errorf("line %d: want at least 3 fields, got %d", line, len(rec))
		}
		t, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad time_stamp %q: %w", line, rec[0], err)
		}
		if t < 0 {
			return nil, fmt.Errorf("line %d: negative time_stamp %d", line, t)
		}
		id := strings.TrimSpace(rec[1])
		if _, _, err := ParseComponentID(id); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		mag, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad fail_perc %q: %w", line, rec[2], err)
		}
		row := DisruptionRow{Time: t, ComponentID: id, Magnitude: mag}
		if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
			hours, err := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad recovery_time %q: %w", line, rec[3], err)
			}
			if hours < 0 {
				return nil, fmt.Errorf("line %d: negative recovery_time %v", line, hours)
			}
			row.RecoveryTime = time.Duration(hours * float64(time.Hour))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// BuildEventTable converts scenario rows into the DISRUPT entries of a fresh
// event table and validates them against the network.
func BuildEventTable(net *Network, rows []DisruptionRow) (*EventTable, map[string]time.Duration, error) {
	table := NewEventTable()
	overrides := make(map[string]time.Duration)
	for _, row := range rows {
		if err := table.Append(row.Time, row.ComponentID, EventDisrupt, row.Magnitude); err != nil {
			return nil, nil, err
		}
		if row.RecoveryTime > 0 {
			overrides[row.ComponentID] = row.RecoveryTime
		}
	}
	if err := table.Validate(net); err != nil {
		return nil, nil, err
	}
	return table, overrides, nil
}

// LoadDependenciesFile reads pump/motor and generator/reservoir pairs from a
// "water_id,power_id" CSV and registers them in the dependency table. The
// coupling kind is inferred from the category of each pair.
func LoadDependenciesFile(path string, net *Network, dt *DependencyTable) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening dependency file: %w", err)
	}
	defer f.Close()
	if err := LoadDependencies(f, net, dt); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func LoadDependencies(r io.Reader, net *Network, dt *DependencyTable) error {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if len(header) != 2 || strings.TrimSpace(header[0]) != "water_id" {
		return fmt.Errorf("unexpected header %v, want water_id,power_id", header)
	}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line++
		waterID := strings.TrimSpace(rec[0])
		powerID := strings.TrimSpace(rec[1])
		wc := net.Get(waterID)
		if wc == nil {
			return fmt.Errorf("line %d: unknown water component %q", line, waterID)
		}
		switch wc.Category.Name {
		case "Pump":
			err = dt.AddPumpMotorCoupling(net, waterID, powerID)
		case "Reservoir":
			err = dt.AddGenReservoirCoupling(net, waterID, powerID)
		default:
			err = fmt.Errorf("water component %s (%s) cannot anchor a coupling", waterID, wc.Category.Name)
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}
