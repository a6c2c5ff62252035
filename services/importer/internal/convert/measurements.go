package convert

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/02loveslollipop/snow-cannon-viewer/services/api/db"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
)

// Measurement export columns. The cannon id may also be headed "id".
const (
	ColCannonID     = "snow_cannon_id"
	ColConsumption  = "conso_eau_m3"
	ColObjectiveMin = "objectif_mini_m3"
	ColObjectiveMax = "objectif_max_m3"
	ColDuration     = "duree_fonctionnement_h"
	ColMeasuredAt   = "date_mesure"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseMeasurements reads a measurement export. comma is the field
// separator; with ';' decimal commas in numbers are accepted. Rows that
// cannot be converted are reported in skipped. err is set only when the
// file itself is unreadable or lacks a required column.
func ParseMeasurements(r io.Reader, comma rune) (records []db.MeasurementRecord, skipped []error, err error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	if _, ok := cols[ColCannonID]; !ok {
		if idx, hasID := cols["id"]; hasID {
			cols[ColCannonID] = idx
		}
	}
	for _, required := range []string{ColCannonID, ColConsumption, ColMeasuredAt} {
		if _, ok := cols[required]; !ok {
			return nil, nil, fmt.Errorf("missing required column %q", required)
		}
	}

	line := 1
	for {
		row, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		line++
		if readErr != nil {
			skipped = append(skipped, fmt.Errorf("line %d: %w", line, readErr))
			continue
		}
		if isBlank(row) {
			continue
		}

		rec, rowErr := measurementFromRow(row, cols)
		if rowErr != nil {
			skipped = append(skipped, fmt.Errorf("line %d: %w", line, rowErr))
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		name = strings.ToLower(strings.TrimSpace(name))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func field(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func measurementFromRow(row []string, cols map[string]int) (db.MeasurementRecord, error) {
	var rec db.MeasurementRecord

	id, err := strconv.Atoi(field(row, cols, ColCannonID))
	if err != nil || id < 0 {
		return rec, fmt.Errorf("invalid %s %q", ColCannonID, field(row, cols, ColCannonID))
	}
	rec.CannonID = id

	consumption, err := parseNumber(field(row, cols, ColConsumption))
	if err != nil || consumption == nil {
		return rec, fmt.Errorf("invalid %s %q", ColConsumption, field(row, cols, ColConsumption))
	}
	if *consumption < 0 {
		return rec, fmt.Errorf("negative %s %v", ColConsumption, *consumption)
	}

	duration, err := parseNumber(field(row, cols, ColDuration))
	if err != nil {
		return rec, fmt.Errorf("invalid %s: %w", ColDuration, err)
	}
	if duration != nil && *duration < 0 {
		return rec, fmt.Errorf("negative %s %v", ColDuration, *duration)
	}

	objMin, err := parseNumber(field(row, cols, ColObjectiveMin))
	if err != nil {
		return rec, fmt.Errorf("invalid %s: %w", ColObjectiveMin, err)
	}
	objMax, err := parseNumber(field(row, cols, ColObjectiveMax))
	if err != nil {
		return rec, fmt.Errorf("invalid %s: %w", ColObjectiveMax, err)
	}

	measuredAt, err := parseTime(field(row, cols, ColMeasuredAt))
	if err != nil {
		return rec, err
	}

	rec.Measurement = cannon.Measurement{
		ConsumptionM3:  *consumption,
		ObjectiveMinM3: NormalizeObjective(objMin),
		ObjectiveMaxM3: NormalizeObjective(objMax),
		MeasuredAt:     measuredAt,
	}
	if duration != nil {
		rec.DurationHours = *duration
	}
	return rec, nil
}

// parseNumber reads an optional decimal; blank yields nil.
func parseNumber(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("non-finite value %q", s)
	}
	return &v, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing %s", ColMeasuredAt)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s %q", ColMeasuredAt, s)
}

// NormalizeObjective cleans objective values; negative sentinels -> nil.
func NormalizeObjective(v *float64) *float64 {
	if v == nil || *v < 0 {
		return nil
	}
	val := *v
	return &val
}

// DedupeMeasurements keeps the last reading for each cannon and timestamp,
// in the order those last readings appear.
func DedupeMeasurements(records []db.MeasurementRecord) []db.MeasurementRecord {
	type key struct {
		id int
		at int64
	}

	seen := make(map[key]bool, len(records))
	out := make([]db.MeasurementRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		k := key{records[i].CannonID, records[i].MeasuredAt.UnixNano()}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, records[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
