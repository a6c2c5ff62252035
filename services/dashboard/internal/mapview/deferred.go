package mapview

import (
	"sync"

	"go.uber.org/zap"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/mapstyle"
)

const fitBoundsDurationMS = 800

// Deferred forwards calls to an Engine once Ready is called. Earlier calls are
// queued and replayed in order by Ready. Every call is serialized.
type Deferred struct {
	logger *zap.SugaredLogger

	mu     sync.Mutex
	engine Engine
	queue  []func(Engine)
}

// NewDeferred returns a facade with no engine attached.
func NewDeferred(logger *zap.SugaredLogger) *Deferred {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Deferred{logger: logger}
}

// Ready attaches the engine and flushes the queue. Later calls to Ready are
// ignored.
func (d *Deferred) Ready(engine Engine) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.engine != nil {
		return
	}
	d.engine = engine
	queued := d.queue
	d.queue = nil
	d.logger.Debugw("map engine ready", "queued", len(queued))
	for _, op := range queued {
		op(engine)
	}
}

// IsReady reports whether an engine is attached.
func (d *Deferred) IsReady() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine != nil
}

// Pending is the number of queued calls.
func (d *Deferred) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Deferred) do(op func(Engine)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.engine == nil {
		d.queue = append(d.queue, op)
		return
	}
	op(d.engine)
}

// AddSourceOnce adds src unless a source named id already exists.
func (d *Deferred) AddSourceOnce(id string, src mapstyle.Source) {
	d.do(func(e Engine) {
		if e.HasSource(id) {
			return
		}
		if err := e.AddSource(id, src); err != nil {
			d.logger.Warnw("add source failed", "source", id, "error", err)
		}
	})
}

// AddLayerOnce adds layer unless a layer with its id already exists.
func (d *Deferred) AddLayerOnce(layer mapstyle.Layer) {
	d.do(func(e Engine) {
		if e.HasLayer(layer.ID) {
			return
		}
		if err := e.AddLayer(layer); err != nil {
			d.logger.Warnw("add layer failed", "layer", layer.ID, "error", err)
		}
	})
}

// SetGeoJSONData replaces the data of an existing GeoJSON source.
func (d *Deferred) SetGeoJSONData(sourceID string, data any) {
	d.do(func(e Engine) {
		if !e.HasSource(sourceID) {
			d.logger.Debugw("skip data for missing source", "source", sourceID)
			return
		}
		if err := e.SetSourceData(sourceID, data); err != nil {
			d.logger.Warnw("set source data failed", "source", sourceID, "error", err)
		}
	})
}

func (d *Deferred) SetFeatureState(sourceID string, featureID any, state map[string]any) {
	d.do(func(e Engine) { e.SetFeatureState(sourceID, featureID, state) })
}

// FitBounds restricts panning to b and frames it.
func (d *Deferred) FitBounds(b mapstyle.Bounds, padding int) {
	d.do(func(e Engine) {
		e.SetMaxBounds(b)
		e.FitBounds(b, padding, fitBoundsDurationMS)
	})
}

func (d *Deferred) EaseTo(center mapstyle.LngLat, zoom float64) {
	d.do(func(e Engine) { e.EaseTo(center, zoom) })
}

// OnLayerClick calls fn with the id of the top-most clicked feature of
// layerID.
func (d *Deferred) OnLayerClick(layerID string, fn func(featureID any)) (unsubscribe func()) {
	return d.subscribe(func(e Engine) []func() {
		return []func(){e.On(EventClick, layerID, func(ev Event) {
			if hits := ev.FeaturesIn(layerID); len(hits) > 0 {
				fn(hits[0].ID)
			}
		})}
	})
}

// OnClickOutsideLayer calls fn for map clicks that hit nothing in layerID.
func (d *Deferred) OnClickOutsideLayer(layerID string, fn func()) (unsubscribe func()) {
	return d.subscribe(func(e Engine) []func() {
		return []func(){e.On(EventClick, "", func(ev Event) {
			if len(ev.FeaturesIn(layerID)) == 0 {
				fn()
			}
		})}
	})
}

// SetCursorOnHover shows a pointer cursor while hovering layerID.
func (d *Deferred) SetCursorOnHover(layerID string) (unsubscribe func()) {
	return d.subscribe(func(e Engine) []func() {
		return []func(){
			e.On(EventMouseEnter, layerID, func(Event) { e.SetCursor("pointer") }),
			e.On(EventMouseLeave, layerID, func(Event) { e.SetCursor("") }),
		}
	})
}

// subscription tracks a listener registration that may still be queued.
type subscription struct {
	mu        sync.Mutex
	cancelled bool
	offs      []func()
}

func (d *Deferred) subscribe(register func(Engine) []func()) func() {
	sub := &subscription{}
	d.do(func(e Engine) {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		if sub.cancelled {
			return
		}
		sub.offs = register(e)
	})

	return func() {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		if sub.cancelled {
			return
		}
		sub.cancelled = true
		for _, off := range sub.offs {
			off()
		}
		sub.offs = nil
	}
}
