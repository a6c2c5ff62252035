// Package cannon holds the snow-cannon domain: records, their latest
// measurement, the consumption ratio derived from it, query predicates and the
// severity tiers used to color markers.
package cannon

import (
	"math"
	"time"
)

// Type is the kind of snow-making device.
type Type string

const (
	TypeLance    Type = "lance"
	TypeAutonome Type = "autonome"
	TypeTour     Type = "tour"
)

// Types lists every recognised cannon type.
var Types = []Type{TypeLance, TypeAutonome, TypeTour}

// ParseType returns the Type named by s and whether it is recognised.
func ParseType(s string) (Type, bool) {
	t := Type(s)
	return t, t.Valid()
}

// Valid reports whether t is one of the recognised types.
func (t Type) Valid() bool {
	switch t {
	case TypeLance, TypeAutonome, TypeTour:
		return true
	}
	return false
}

// Cannon is a fixed snow-making device.
type Cannon struct {
	ID           int       `json:"id"`
	NumeroRegard *int      `json:"numero_regard"`
	Sector       int       `json:"secteur"`
	Type         Type      `json:"type"`
	PisteName    string    `json:"nom_piste"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Measurement is one water-consumption reading for a cannon.
type Measurement struct {
	ID             int64     `json:"id"`
	ConsumptionM3  float64   `json:"conso_eau_m3"`
	ObjectiveMinM3 *float64  `json:"objectif_mini_m3"`
	ObjectiveMaxM3 *float64  `json:"objectif_max_m3"`
	DurationHours  float64   `json:"duree_fonctionnement_h"`
	MeasuredAt     time.Time `json:"date_mesure"`
}

// EnrichedCannon is a cannon joined with its latest measurement. A nil
// LatestMeasurement means the cannon has never been measured.
type EnrichedCannon struct {
	Cannon
	LatestMeasurement *Measurement `json:"latest_measurement"`
	PercentOfMax      int          `json:"percent_of_max"`
}

// Row is one result of the left join between cannons and their latest
// measurement, as produced by the store.
type Row struct {
	Cannon Cannon
	Latest *Measurement
}

// Consumption returns the latest water consumption, or 0 and false when the
// cannon has no measurement.
func (c EnrichedCannon) Consumption() (float64, bool) {
	if c.LatestMeasurement == nil {
		return 0, false
	}
	return c.LatestMeasurement.ConsumptionM3, true
}

// ObjectiveMax returns the latest maximum objective when one is recorded.
func (c EnrichedCannon) ObjectiveMax() (float64, bool) {
	if c.LatestMeasurement == nil || c.LatestMeasurement.ObjectiveMaxM3 == nil {
		return 0, false
	}
	return *c.LatestMeasurement.ObjectiveMaxM3, true
}

// Enrich pairs a cannon with its latest measurement and derives PercentOfMax.
func Enrich(row Row) EnrichedCannon {
	return EnrichedCannon{
		Cannon:            row.Cannon,
		LatestMeasurement: row.Latest,
		PercentOfMax:      row.Latest.PercentOfMax(),
	}
}

// EnrichAll enriches every row, keeping the input order.
func EnrichAll(rows []Row) []EnrichedCannon {
	out := make([]EnrichedCannon, 0, len(rows))
	for _, row := range rows {
		out = append(out, Enrich(row))
	}
	return out
}

// PercentOfMax is the consumption as a rounded percentage of the maximum
// objective. It is 0 for a nil measurement.
func (m *Measurement) PercentOfMax() int {
	if m == nil {
		return 0
	}
	return PercentOfMax(m.ConsumptionM3, m.ObjectiveMaxM3)
}

// PercentOfMax computes round(consumption / objectiveMax * 100), rounding half
// up. An absent, zero or non-finite objective yields 0. The result is not
// clamped and may exceed 100; it only saturates at the int range.
func PercentOfMax(consumption float64, objectiveMax *float64) int {
	if objectiveMax == nil {
		return 0
	}
	objective := *objectiveMax
	if objective == 0 || math.IsNaN(objective) || math.IsInf(objective, 0) {
		return 0
	}
	p := consumption / objective * 100
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return toInt(math.Floor(p + 0.5))
}

// toInt converts an integral float, saturating at the int range.
func toInt(f float64) int {
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}

// DisplayPercent is the percentage shown on a cannon card: rounded up and
// clamped to [0, 1000].
func DisplayPercent(consumption float64, objectiveMax *float64) int {
	if objectiveMax == nil {
		return 0
	}
	objective := *objectiveMax
	if objective == 0 || math.IsNaN(objective) || math.IsInf(objective, 0) {
		return 0
	}
	p := math.Ceil(consumption / objective * 100)
	if math.IsNaN(p) {
		return 0
	}
	return toInt(math.Min(1000, math.Max(0, p)))
}
