// Package filter narrows the cannon list shown by the dashboard and
// aggregates the header statistics. Every function is pure: callers pass the
// full list and get a fresh result.
package filter

import (
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
)

// Range is an inclusive bound on the latest maximum objective.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// State is the user's current selection of filters. Empty Types or Sectors
// mean every value; a nil ObjectiveRange means no range constraint.
type State struct {
	Search         string
	Types          []cannon.Type
	Sectors        []int
	ObjectiveRange *Range
}

// Apply returns the cannons matching every criterion of s, in input order.
func Apply(cannons []cannon.EnrichedCannon, s State) []cannon.EnrichedCannon {
	out := make([]cannon.EnrichedCannon, 0, len(cannons))
	for _, c := range cannons {
		if s.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}

// Matches evaluates every criterion against a single cannon.
func (s State) Matches(c cannon.EnrichedCannon) bool {
	if strings.TrimSpace(s.Search) != "" &&
		!strings.Contains(strings.ToLower(c.PisteName), strings.ToLower(s.Search)) {
		return false
	}
	if len(s.Types) > 0 && !contains(s.Types, c.Type) {
		return false
	}
	if len(s.Sectors) > 0 && !contains(s.Sectors, c.Sector) {
		return false
	}
	if s.ObjectiveRange != nil {
		objective, ok := c.ObjectiveMax()
		if !ok || !s.ObjectiveRange.Contains(objective) {
			return false
		}
	}
	return true
}

func contains[T comparable](set []T, v T) bool {
	for _, item := range set {
		if item == v {
			return true
		}
	}
	return false
}

// Stats summarises the unfiltered cannon list.
type Stats struct {
	Total            int     `json:"total"`
	Active           int     `json:"active"`
	TotalConsumption float64 `json:"total_consumption"`
}

// Compute counts cannons, those currently consuming water, and the summed
// latest consumption. Unmeasured cannons count as zero.
func Compute(cannons []cannon.EnrichedCannon) Stats {
	consumptions := make([]float64, 0, len(cannons))
	active := 0
	for _, c := range cannons {
		v, _ := c.Consumption()
		if v > 0 {
			active++
		}
		consumptions = append(consumptions, v)
	}
	return Stats{
		Total:            len(cannons),
		Active:           active,
		TotalConsumption: floats.Sum(consumptions),
	}
}

// Options are the values offered by the type and sector pickers.
type Options struct {
	Types   []cannon.Type `json:"types"`
	Sectors []int         `json:"sectors"`
}

// AvailableOptions lists the distinct types and sectors present in cannons,
// in first-seen order.
func AvailableOptions(cannons []cannon.EnrichedCannon) Options {
	opts := Options{Types: []cannon.Type{}, Sectors: []int{}}
	seenType := make(map[cannon.Type]struct{})
	seenSector := make(map[int]struct{})
	for _, c := range cannons {
		if _, ok := seenType[c.Type]; !ok {
			seenType[c.Type] = struct{}{}
			opts.Types = append(opts.Types, c.Type)
		}
		if _, ok := seenSector[c.Sector]; !ok {
			seenSector[c.Sector] = struct{}{}
			opts.Sectors = append(opts.Sectors, c.Sector)
		}
	}
	return opts
}
