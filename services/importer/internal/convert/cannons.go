// Package convert turns the resort's source files into store records and
// back: the cannon layer into cannon rows, measurement exports into readings,
// and the layer into a flat CSV.
package convert

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/geo"
)

// Layer property names read when importing cannons.
const (
	PropNumeroRegard = "numero_regard"
	PropSector       = "secteur"
	PropType         = "type"
	PropPisteName    = "nom_piste"
	PropLatitude     = "latitude"
	PropLongitude    = "longitude"
)

// CannonsFromCollection converts layer features into cannon records. Features
// that cannot be converted are reported in skipped and left out; a repeated
// id keeps its first feature.
func CannonsFromCollection(fc *geojson.FeatureCollection) (cannons []cannon.Cannon, skipped []error) {
	seen := make(map[int]bool, len(fc.Features))
	cannons = make([]cannon.Cannon, 0, len(fc.Features))

	for i, f := range fc.Features {
		c, err := cannonFromFeature(f)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("feature %d: %w", i, err))
			continue
		}
		if seen[c.ID] {
			skipped = append(skipped, fmt.Errorf("feature %d: duplicate cannon id %d", i, c.ID))
			continue
		}
		seen[c.ID] = true
		cannons = append(cannons, c)
	}
	return cannons, skipped
}

func cannonFromFeature(f *geojson.Feature) (cannon.Cannon, error) {
	if f == nil {
		return cannon.Cannon{}, fmt.Errorf("empty feature")
	}

	id, ok := geo.FeatureCannonID(f)
	if !ok {
		return cannon.Cannon{}, fmt.Errorf("missing or non-integer %q property", geo.PropID)
	}

	sector, ok := intProp(f.Properties, PropSector)
	if !ok {
		return cannon.Cannon{}, fmt.Errorf("cannon %d: missing or non-integer %q property", id, PropSector)
	}

	rawType, _ := f.Properties[PropType].(string)
	typ, ok := cannon.ParseType(strings.ToLower(strings.TrimSpace(rawType)))
	if !ok {
		return cannon.Cannon{}, fmt.Errorf("cannon %d: unknown type %q", id, rawType)
	}

	lat, lon, ok := position(f)
	if !ok {
		return cannon.Cannon{}, fmt.Errorf("cannon %d: no point geometry or coordinates", id)
	}

	c := cannon.Cannon{
		ID:        id,
		Sector:    sector,
		Type:      typ,
		PisteName: strings.TrimSpace(stringProp(f.Properties, PropPisteName)),
		Latitude:  lat,
		Longitude: lon,
	}
	if n, ok := intProp(f.Properties, PropNumeroRegard); ok {
		c.NumeroRegard = &n
	}
	return c, nil
}

// position prefers the point geometry and falls back to latitude/longitude
// properties.
func position(f *geojson.Feature) (lat, lon float64, ok bool) {
	if p, isPoint := f.Geometry.(orb.Point); isPoint {
		return p.Lat(), p.Lon(), true
	}
	lat, okLat := floatProp(f.Properties, PropLatitude)
	lon, okLon := floatProp(f.Properties, PropLongitude)
	return lat, lon, okLat && okLon
}

func stringProp(p geojson.Properties, key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func floatProp(p geojson.Properties, key string) (float64, bool) {
	var f float64
	switch v := p[key].(type) {
	case float64:
		f = v
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(v, ",", ".")), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// intProp accepts integral numbers and digit strings.
func intProp(p geojson.Properties, key string) (int, bool) {
	if s, isString := p[key].(string); isString {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		return n, err == nil
	}
	f, ok := floatProp(p, key)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
