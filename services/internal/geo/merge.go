package geo

import (
	"encoding/json"
	"maps"
	"math"

	"github.com/paulmach/orb/geojson"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
)

// Feature property names read and written by Merge.
const (
	PropID           = "id"
	PropConsumption  = "conso_eau_m3"
	PropObjectiveMax = "objectif_max_m3"
	PropPercentOfMax = "percent_of_max"
)

// MergeResult is an enriched copy of a collection plus match counters.
type MergeResult struct {
	Collection *geojson.FeatureCollection
	Enriched   int
	// Unmatched holds the raw id property of every feature left untouched.
	Unmatched []any
}

// Merge attaches consumption, objective and percentage to every feature whose
// id property matches a cannon. Features without a matching cannon are passed
// through as is. The input collection is never modified.
func Merge(fc *geojson.FeatureCollection, cannons []cannon.EnrichedCannon) MergeResult {
	byID := make(map[int]cannon.EnrichedCannon, len(cannons))
	for _, c := range cannons {
		byID[c.ID] = c
	}

	out := *fc
	out.Features = make([]*geojson.Feature, 0, len(fc.Features))
	res := MergeResult{Collection: &out}

	for _, f := range fc.Features {
		id, ok := FeatureCannonID(f)
		c, found := byID[id]
		if !ok || !found {
			out.Features = append(out.Features, f)
			res.Unmatched = append(res.Unmatched, rawID(f))
			continue
		}
		out.Features = append(out.Features, enrichFeature(f, c))
		res.Enriched++
	}
	return res
}

func enrichFeature(f *geojson.Feature, c cannon.EnrichedCannon) *geojson.Feature {
	cp := *f
	cp.Properties = maps.Clone(f.Properties)
	if cp.Properties == nil {
		cp.Properties = geojson.Properties{}
	}

	var consumption, objective any
	if m := c.LatestMeasurement; m != nil {
		consumption = m.ConsumptionM3
		if m.ObjectiveMaxM3 != nil {
			objective = *m.ObjectiveMaxM3
		}
	}
	cp.Properties[PropConsumption] = consumption
	cp.Properties[PropObjectiveMax] = objective
	cp.Properties[PropPercentOfMax] = c.PercentOfMax
	return &cp
}

func rawID(f *geojson.Feature) any {
	if f == nil || f.Properties == nil {
		return nil
	}
	return f.Properties[PropID]
}

// FeatureCannonID reads the integral numeric id property of a feature.
// String ids are not coerced.
func FeatureCannonID(f *geojson.Feature) (int, bool) {
	switch v := rawID(f).(type) {
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
