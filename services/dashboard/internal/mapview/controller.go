package mapview

import (
	"encoding/json"
	"math"
	"strconv"
	"sync"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/02loveslollipop/snow-cannon-viewer/services/dashboard/internal/state"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/mapstyle"
)

// Controller keeps the map in step with the dashboard state: it draws the
// cannon layer, turns clicks into selections and mirrors the selection into
// feature-state.
type Controller struct {
	view   *Deferred
	store  *state.Store
	cfg    mapstyle.Config
	logger *zap.SugaredLogger

	mu          sync.Mutex
	mounted     bool
	highlighted *int
	layer       *geojson.FeatureCollection
	unsubs      []func()
}

// NewController binds view to store.
func NewController(view *Deferred, store *state.Store, cfg mapstyle.Config, logger *zap.SugaredLogger) *Controller {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Controller{view: view, store: store, cfg: cfg, logger: logger}
}

// Mount frames the resort, adds the cannon source and layers and registers
// the pointer handlers. Calling it again is a no-op.
func (c *Controller) Mount(layer *geojson.FeatureCollection) {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.layer = layer
	c.mu.Unlock()

	c.view.FitBounds(c.cfg.Bounds, c.cfg.Padding)
	c.view.AddSourceOnce(mapstyle.SourceID, mapstyle.CannonSource(layerData(layer)))
	for _, l := range mapstyle.CannonLayers() {
		c.view.AddLayerOnce(l)
	}

	unsubs := []func(){
		c.view.OnLayerClick(mapstyle.CircleLayerID, c.handleFeatureClick),
		c.view.OnClickOutsideLayer(mapstyle.CircleLayerID, c.store.ClearSelection),
		c.view.SetCursorOnHover(mapstyle.CircleLayerID),
		c.store.Subscribe(c.sync),
	}

	c.mu.Lock()
	c.unsubs = append(c.unsubs, unsubs...)
	c.mu.Unlock()

	c.sync(c.store.Snapshot())
}

// Focus eases the camera onto a cannon at the focus zoom.
func (c *Controller) Focus(target cannon.EnrichedCannon) {
	c.view.EaseTo(mapstyle.LngLat{target.Longitude, target.Latitude}, c.cfg.FocusZoom)
}

// Close removes every handler registered by Mount.
func (c *Controller) Close() {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()
	for _, off := range unsubs {
		off()
	}
}

func (c *Controller) handleFeatureClick(featureID any) {
	id, ok := featureCannonID(featureID)
	if !ok {
		c.logger.Debugw("click on feature without cannon id", "id", featureID)
		return
	}
	c.store.SelectCannon(id)
}

// sync mirrors a state snapshot onto the map.
func (c *Controller) sync(snap state.Snapshot) {
	c.mu.Lock()
	prev := c.highlighted
	next := snap.SelectedID
	layerChanged := snap.Layer != nil && snap.Layer != c.layer
	if layerChanged {
		c.layer = snap.Layer
	}
	c.highlighted = next
	c.mu.Unlock()

	if layerChanged {
		c.view.SetGeoJSONData(mapstyle.SourceID, snap.Layer)
	}
	if sameID(prev, next) {
		return
	}
	if prev != nil {
		c.view.SetFeatureState(mapstyle.SourceID, *prev, map[string]any{mapstyle.SelectedState: false})
	}
	if next != nil {
		c.view.SetFeatureState(mapstyle.SourceID, *next, map[string]any{mapstyle.SelectedState: true})
	}
}

func sameID(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func layerData(fc *geojson.FeatureCollection) any {
	if fc == nil {
		return geojson.NewFeatureCollection()
	}
	return fc
}

// featureCannonID reads a promoted feature id as reported by the engine.
func featureCannonID(v any) (int, bool) {
	switch id := v.(type) {
	case int:
		return id, true
	case int64:
		return int(id), true
	case float64:
		if id != math.Trunc(id) || math.IsInf(id, 0) {
			return 0, false
		}
		return int(id), true
	case json.Number:
		n, err := strconv.Atoi(id.String())
		return n, err == nil
	case string:
		n, err := strconv.Atoi(id)
		return n, err == nil
	}
	return 0, false
}
