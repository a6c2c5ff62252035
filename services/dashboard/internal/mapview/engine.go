// Package mapview drives a map rendering engine for the cannon layer. Engine
// is the low-level surface a renderer implements; Deferred queues calls made
// before the renderer is ready; Controller binds the dashboard state to it.
package mapview

import (
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/mapstyle"
)

// Event names understood by Engine.On.
const (
	EventClick      = "click"
	EventMouseEnter = "mouseenter"
	EventMouseLeave = "mouseleave"
)

// RenderedFeature is a feature drawn under the pointer.
type RenderedFeature struct {
	LayerID string `json:"layer"`
	ID      any    `json:"id"`
}

// Event is a pointer event. Features lists what is rendered at the pointer,
// top-most first.
type Event struct {
	Point    mapstyle.LngLat   `json:"point"`
	Features []RenderedFeature `json:"features"`
}

// FeaturesIn returns the features of ev drawn by layerID.
func (ev Event) FeaturesIn(layerID string) []RenderedFeature {
	var out []RenderedFeature
	for _, f := range ev.Features {
		if f.LayerID == layerID {
			out = append(out, f)
		}
	}
	return out
}

// Engine is a map renderer. Implementations must not invoke handlers from
// inside their own methods.
type Engine interface {
	HasSource(id string) bool
	AddSource(id string, src mapstyle.Source) error
	SetSourceData(id string, data any) error
	HasLayer(id string) bool
	AddLayer(layer mapstyle.Layer) error
	SetFeatureState(sourceID string, featureID any, state map[string]any)
	SetMaxBounds(b mapstyle.Bounds)
	FitBounds(b mapstyle.Bounds, padding int, durationMS int)
	EaseTo(center mapstyle.LngLat, zoom float64)
	SetCursor(cursor string)
	// On registers fn for event, scoped to layerID unless it is empty. The
	// returned function removes the handler.
	On(event, layerID string, fn func(Event)) (off func())
}
