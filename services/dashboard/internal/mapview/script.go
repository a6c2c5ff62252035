package mapview

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/mapstyle"
)

// Command is one recorded engine call.
type Command struct {
	Op   string         `json:"op"`
	Args map[string]any `json:"args,omitempty"`
}

type handler struct {
	id      int
	event   string
	layerID string
	fn      func(Event)
}

// ScriptEngine is an in-memory Engine that records every call as a Command.
// The recorded script can be replayed by an external renderer, and Dispatch
// feeds synthetic pointer events to registered handlers.
type ScriptEngine struct {
	mu       sync.Mutex
	commands []Command
	sources  map[string]mapstyle.Source
	layers   []string
	state    map[string]map[string]any
	cursor   string
	nextID   int
	handlers []handler
}

var _ Engine = (*ScriptEngine)(nil)

// NewScriptEngine returns an empty recorder.
func NewScriptEngine() *ScriptEngine {
	return &ScriptEngine{
		sources: make(map[string]mapstyle.Source),
		state:   make(map[string]map[string]any),
	}
}

func (s *ScriptEngine) record(op string, args map[string]any) {
	s.commands = append(s.commands, Command{Op: op, Args: args})
}

func (s *ScriptEngine) HasSource(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sources[id]
	return ok
}

func (s *ScriptEngine) AddSource(id string, src mapstyle.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[id]; ok {
		return fmt.Errorf("source %q already exists", id)
	}
	s.sources[id] = src
	s.record("addSource", map[string]any{"id": id, "source": src})
	return nil
}

func (s *ScriptEngine) SetSourceData(id string, data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[id]
	if !ok {
		return fmt.Errorf("source %q does not exist", id)
	}
	src.Data = data
	s.sources[id] = src
	s.record("setData", map[string]any{"source": id, "data": data})
	return nil
}

func (s *ScriptEngine) HasLayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layerIndex(id) >= 0
}

func (s *ScriptEngine) layerIndex(id string) int {
	for i, l := range s.layers {
		if l == id {
			return i
		}
	}
	return -1
}

func (s *ScriptEngine) AddLayer(layer mapstyle.Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.layerIndex(layer.ID) >= 0 {
		return fmt.Errorf("layer %q already exists", layer.ID)
	}
	if _, ok := s.sources[layer.Source]; !ok {
		return fmt.Errorf("layer %q: source %q does not exist", layer.ID, layer.Source)
	}

	at := len(s.layers)
	if layer.BeforeID != "" {
		if i := s.layerIndex(layer.BeforeID); i >= 0 {
			at = i
		}
	}
	s.layers = append(s.layers, "")
	copy(s.layers[at+1:], s.layers[at:])
	s.layers[at] = layer.ID

	s.record("addLayer", map[string]any{"layer": layer})
	return nil
}

func (s *ScriptEngine) SetFeatureState(sourceID string, featureID any, state map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sourceID + "/" + fmt.Sprint(featureID)
	current := s.state[key]
	if current == nil {
		current = make(map[string]any)
		s.state[key] = current
	}
	for k, v := range state {
		current[k] = v
	}
	s.record("setFeatureState", map[string]any{"source": sourceID, "id": featureID, "state": state})
}

func (s *ScriptEngine) SetMaxBounds(b mapstyle.Bounds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("setMaxBounds", map[string]any{"bounds": b})
}

func (s *ScriptEngine) FitBounds(b mapstyle.Bounds, padding int, durationMS int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("fitBounds", map[string]any{"bounds": b, "padding": padding, "duration": durationMS})
}

func (s *ScriptEngine) EaseTo(center mapstyle.LngLat, zoom float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("easeTo", map[string]any{"center": center, "zoom": zoom})
}

func (s *ScriptEngine) SetCursor(cursor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = cursor
	s.record("setCursor", map[string]any{"cursor": cursor})
}

func (s *ScriptEngine) On(event, layerID string, fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.handlers = append(s.handlers, handler{id: id, event: event, layerID: layerID, fn: fn})
	s.record("on", map[string]any{"event": event, "layer": layerID})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, h := range s.handlers {
			if h.id == id {
				s.handlers = append(s.handlers[:i], s.handlers[i+1:]...)
				s.record("off", map[string]any{"event": event, "layer": layerID})
				return
			}
		}
	}
}

// Dispatch delivers ev to the handlers of event registered on layerID and to
// the map-wide ones. Pass an empty layerID for events outside every layer.
func (s *ScriptEngine) Dispatch(event, layerID string, ev Event) {
	s.mu.Lock()
	var targets []func(Event)
	for _, h := range s.handlers {
		if h.event == event && (h.layerID == "" || h.layerID == layerID) {
			targets = append(targets, h.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range targets {
		fn(ev)
	}
}

// Commands returns a copy of the recorded script.
func (s *ScriptEngine) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Command(nil), s.commands...)
}

// Ops lists the recorded operation names in order.
func (s *ScriptEngine) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.commands))
	for _, c := range s.commands {
		out = append(out, c.Op)
	}
	return out
}

// Layers returns the layer ids bottom to top.
func (s *ScriptEngine) Layers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.layers...)
}

// FeatureState returns the accumulated state of a feature.
func (s *ScriptEngine) FeatureState(sourceID string, featureID any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any)
	for k, v := range s.state[sourceID+"/"+fmt.Sprint(featureID)] {
		out[k] = v
	}
	return out
}

// Cursor is the last cursor set.
func (s *ScriptEngine) Cursor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Handlers counts live handlers per event, for diagnostics.
func (s *ScriptEngine) Handlers() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, h := range s.handlers {
		out[h.event]++
	}
	return out
}

// WriteJSON writes the script as an indented JSON array.
func (s *ScriptEngine) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.Commands())
}

// SourceIDs lists the added sources, sorted.
func (s *ScriptEngine) SourceIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sources))
	for id := range s.sources {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
