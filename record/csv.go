package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// No pack repo serializes CSV (the teacher's mebo format is purely
// binary), so this sidecar writer is built directly on the standard
// library's encoding/csv rather than a third-party CSV package — there is
// no ecosystem library the examples reach for here to match instead.

// WriteTriggersCSV writes triggers as a header row ("event,time") followed
// by one row per trigger, matching the reference tool's triggers.csv.
func WriteTriggersCSV(w io.Writer, triggers []Trigger) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"event", "time"}); err != nil {
		return fmt.Errorf("record: writing triggers.csv header: %w", err)
	}

	for _, t := range triggers {
		row := []string{
			strconv.FormatUint(uint64(t.Event), 10),
			strconv.FormatUint(t.Time, 10),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("record: writing trigger row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadTriggersCSV reads a triggers.csv stream written by WriteTriggersCSV.
func ReadTriggersCSV(r io.Reader) ([]Trigger, error) {
	cr := csv.NewReader(r)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("record: reading triggers.csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var triggers []Trigger
	for _, row := range rows[1:] { // skip header
		event, err := strconv.ParseUint(row[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("record: parsing trigger event %q: %w", row[0], err)
		}
		t, err := strconv.ParseUint(row[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("record: parsing trigger time %q: %w", row[1], err)
		}
		triggers = append(triggers, Trigger{Event: uint32(event), Time: t})
	}

	return triggers, nil
}

var clusterMetadataHeader = []string{"event", "time", "duration", "hits", "sum_tot", "offset"}

// WriteClusterMetadataCSV writes a clusters.csv / trigger_events.csv
// sidecar: a header row followed by one row per ClusterMetadata, in the
// same order the paired .bin file's clusters were written.
func WriteClusterMetadataCSV(w io.Writer, rows []ClusterMetadata) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(clusterMetadataHeader); err != nil {
		return fmt.Errorf("record: writing cluster metadata header: %w", err)
	}

	for _, m := range rows {
		row := []string{
			strconv.Itoa(m.Event),
			strconv.FormatFloat(m.Time, 'f', -1, 64),
			strconv.FormatFloat(m.Duration, 'f', -1, 64),
			strconv.Itoa(m.Hits),
			strconv.FormatUint(uint64(m.SumToT), 10),
			strconv.Itoa(m.Offset),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("record: writing cluster metadata row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadClusterMetadataCSV reads a clusters.csv / trigger_events.csv
// sidecar written by WriteClusterMetadataCSV.
func ReadClusterMetadataCSV(r io.Reader) ([]ClusterMetadata, error) {
	cr := csv.NewReader(r)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("record: reading cluster metadata csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var out []ClusterMetadata
	for _, row := range rows[1:] {
		event, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("record: parsing event %q: %w", row[0], err)
		}
		timeVal, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("record: parsing time %q: %w", row[1], err)
		}
		duration, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("record: parsing duration %q: %w", row[2], err)
		}
		hits, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, fmt.Errorf("record: parsing hits %q: %w", row[3], err)
		}
		sumToT, err := strconv.ParseUint(row[4], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("record: parsing sum_tot %q: %w", row[4], err)
		}
		offset, err := strconv.Atoi(row[5])
		if err != nil {
			return nil, fmt.Errorf("record: parsing offset %q: %w", row[5], err)
		}

		out = append(out, ClusterMetadata{
			Event:    event,
			Time:     timeVal,
			Duration: duration,
			Hits:     hits,
			SumToT:   uint32(sumToT),
			Offset:   offset,
		})
	}

	return out, nil
}
