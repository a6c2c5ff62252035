// Package state is the dashboard's single source of truth: the loaded
// cannons and map layer, the active filters and the selected cannon. Views
// hold a *Store and mutate it only through its methods.
package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb/geojson"

	"github.com/02loveslollipop/snow-cannon-viewer/services/dashboard/internal/filter"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
)

// ErrSuperseded is returned by a load whose response arrived after a newer
// load had already been applied. The stale response is discarded.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Loader fetches data from the API.
type Loader interface {
	ListCannons(ctx context.Context, f cannon.Filter) ([]cannon.EnrichedCannon, error)
	GeoJSON(ctx context.Context) (*geojson.FeatureCollection, error)
}

// Snapshot is a copy of the store handed to subscribers.
type Snapshot struct {
	Cannons    []cannon.EnrichedCannon
	Layer      *geojson.FeatureCollection
	Filters    filter.State
	SelectedID *int
	Loading    bool
	// CannonsErr and LayerErr hold the outcome of the latest applied load
	// of each kind.
	CannonsErr error
	LayerErr   error
	LoadedAt   time.Time
}

// Store serializes every mutation behind a mutex. Loads are numbered; a
// response is applied only if no later-numbered load has been applied first.
type Store struct {
	loader Loader
	clock  clockwork.Clock

	mu         sync.Mutex
	cannons    []cannon.EnrichedCannon
	layer      *geojson.FeatureCollection
	filters    filter.State
	selectedID *int
	inflight   int
	cannonsErr error
	layerErr   error
	loadedAt   time.Time

	cannonSeq, cannonApplied uint64
	layerSeq, layerApplied   uint64

	nextSub     int
	subscribers map[int]func(Snapshot)
}

// Option customizes a Store.
type Option func(*Store)

// WithClock sets the clock stamping successful loads.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Store) { s.clock = clock }
}

// New returns an empty store reading from loader.
func New(loader Loader, opts ...Option) *Store {
	s := &Store{
		loader:      loader,
		clock:       clockwork.NewRealClock(),
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to run after every mutation. The returned function
// removes it and may be called more than once.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// LoadCannons fetches the full, unfiltered cannon list.
func (s *Store) LoadCannons(ctx context.Context) error {
	s.mu.Lock()
	s.cannonSeq++
	seq := s.cannonSeq
	s.inflight++
	s.cannonsErr = nil
	s.mu.Unlock()
	s.notify()

	cannons, err := s.loader.ListCannons(ctx, cannon.Filter{})

	s.mu.Lock()
	s.inflight--
	if seq < s.cannonApplied {
		s.mu.Unlock()
		s.notify()
		return ErrSuperseded
	}
	s.cannonApplied = seq
	s.cannonsErr = err
	if err == nil {
		s.cannons = cannons
		s.loadedAt = s.clock.Now()
	}
	s.mu.Unlock()
	s.notify()
	return err
}

// LoadLayer fetches the enriched GeoJSON layer drawn on the map.
func (s *Store) LoadLayer(ctx context.Context) error {
	s.mu.Lock()
	s.layerSeq++
	seq := s.layerSeq
	s.inflight++
	s.layerErr = nil
	s.mu.Unlock()
	s.notify()

	fc, err := s.loader.GeoJSON(ctx)

	s.mu.Lock()
	s.inflight--
	if seq < s.layerApplied {
		s.mu.Unlock()
		s.notify()
		return ErrSuperseded
	}
	s.layerApplied = seq
	s.layerErr = err
	if err == nil {
		s.layer = fc
	}
	s.mu.Unlock()
	s.notify()
	return err
}

// SelectCannon marks id as the selected cannon.
func (s *Store) SelectCannon(id int) {
	s.mutate(func() { s.selectedID = &id })
}

// ClearSelection drops the current selection.
func (s *Store) ClearSelection() {
	s.mutate(func() { s.selectedID = nil })
}

// SetSearch replaces the free-text search.
func (s *Store) SetSearch(search string) {
	s.mutate(func() { s.filters.Search = search })
}

// SetFilters replaces the type, sector and objective-range criteria, keeping
// the search text.
func (s *Store) SetFilters(types []cannon.Type, sectors []int, objective *filter.Range) {
	s.mutate(func() {
		s.filters.Types = append([]cannon.Type(nil), types...)
		s.filters.Sectors = append([]int(nil), sectors...)
		if objective != nil {
			r := *objective
			objective = &r
		}
		s.filters.ObjectiveRange = objective
	})
}

// Filtered recomputes the visible list from the loaded cannons.
func (s *Store) Filtered() []cannon.EnrichedCannon {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter.Apply(s.cannons, s.filters)
}

// Stats aggregates the unfiltered list.
func (s *Store) Stats() filter.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter.Compute(s.cannons)
}

// Options lists the picker values present in the loaded cannons.
func (s *Store) Options() filter.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter.AvailableOptions(s.cannons)
}

// Selected returns the selected cannon, or nil when nothing is selected or
// the selection is not among the loaded cannons.
func (s *Store) Selected() *cannon.EnrichedCannon {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedID == nil {
		return nil
	}
	for i := range s.cannons {
		if s.cannons[i].ID == *s.selectedID {
			c := s.cannons[i]
			return &c
		}
	}
	return nil
}

// Snapshot copies the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Cannons:    append([]cannon.EnrichedCannon(nil), s.cannons...),
		Layer:      s.layer,
		Filters:    s.filters,
		Loading:    s.inflight > 0,
		CannonsErr: s.cannonsErr,
		LayerErr:   s.layerErr,
		LoadedAt:   s.loadedAt,
	}
	if s.selectedID != nil {
		id := *s.selectedID
		snap.SelectedID = &id
	}
	return snap
}

func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
