// Package mapstyle describes the cannon map: viewport defaults and the layer
// definitions that draw cannons as tier-colored circles.
package mapstyle

import (
	"strconv"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/geo"
)

const (
	SourceID      = "snowCannons"
	CircleLayerID = "snowCannons-layer"
	ShadowLayerID = "snowCannons-shadows"

	// SelectedState is the feature-state flag set on the selected cannon.
	SelectedState = "selected"
)

// LngLat is a WGS84 position, longitude first.
type LngLat [2]float64

// Bounds is a south-west / north-east box.
type Bounds [2]LngLat

// Config is the initial viewport of the resort map.
type Config struct {
	Center      LngLat  `json:"center"`
	Bounds      Bounds  `json:"bounds"`
	InitialZoom float64 `json:"initial_zoom"`
	MinZoom     float64 `json:"min_zoom"`
	MaxZoom     float64 `json:"max_zoom"`
	// FocusZoom is used when easing to a single cannon.
	FocusZoom float64 `json:"focus_zoom"`
	Padding   int     `json:"padding"`
}

// DefaultConfig frames the Avoriaz test area.
func DefaultConfig() Config {
	return Config{
		Center: LngLat{6.7734, 46.1927},
		Bounds: Bounds{
			{6.7534, 46.1823},
			{6.7879, 46.2002},
		},
		InitialZoom: 14,
		MinZoom:     12,
		MaxZoom:     18,
		FocusZoom:   17,
		Padding:     20,
	}
}

// Source is a GeoJSON source definition.
type Source struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	PromoteID string `json:"promoteId,omitempty"`
}

// CannonSource wraps an enriched collection, promoting the id property so
// feature-state can address cannons by id.
func CannonSource(data any) Source {
	return Source{Type: "geojson", Data: data, PromoteID: geo.PropID}
}

// Layer is a style layer definition.
type Layer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source string         `json:"source"`
	Filter []any          `json:"filter,omitempty"`
	Paint  map[string]any `json:"paint"`
	// BeforeID inserts the layer below an existing one when set.
	BeforeID string `json:"beforeId,omitempty"`
}

func whenSelected(selected, otherwise any) []any {
	return []any{
		"case",
		[]any{"boolean", []any{"feature-state", SelectedState}, false},
		selected,
		otherwise,
	}
}

// CannonLayers returns the circle layer followed by its shadow, which is
// inserted beneath it. Add them in the returned order.
func CannonLayers() []Layer {
	return []Layer{
		{
			ID:     CircleLayerID,
			Type:   "circle",
			Source: SourceID,
			Filter: []any{"!", []any{"has", "point_count"}},
			Paint: map[string]any{
				"circle-radius":       whenSelected(12, 8),
				"circle-color":        cannon.ColorExpression(geo.PropPercentOfMax),
				"circle-stroke-color": "#ffffff",
				"circle-stroke-width": whenSelected(5, 3),
				"circle-opacity":      whenSelected(1, 0.8),
			},
		},
		{
			ID:     ShadowLayerID,
			Type:   "circle",
			Source: SourceID,
			Paint: map[string]any{
				"circle-radius":  15,
				"circle-color":   "#000",
				"circle-blur":    1,
				"circle-opacity": 0.3,
			},
			BeforeID: CircleLayerID,
		},
	}
}

// TierLegend is one row of the map legend.
type TierLegend struct {
	Tier  cannon.Tier `json:"tier"`
	Color string      `json:"color"`
	Rule  string      `json:"rule"`
}

// Legend lists the tiers in evaluation order.
func Legend() []TierLegend {
	rules := cannon.TierRules()
	out := make([]TierLegend, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, TierLegend{
			Tier:  r.Tier,
			Color: r.Tier.Color(),
			Rule:  "percent " + string(r.Op) + " " + strconv.Itoa(r.Bound),
		})
	}
	return append(out, TierLegend{
		Tier:  cannon.FallbackTier,
		Color: cannon.FallbackTier.Color(),
		Rule:  "otherwise",
	})
}
