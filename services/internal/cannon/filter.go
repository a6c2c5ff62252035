package cannon

import "sort"

// Filter holds the optional listing criteria. Nil fields impose no
// constraint; the rest are ANDed together.
type Filter struct {
	Sector         *int
	Type           *Type
	MinConsumption *float64
	MaxConsumption *float64
}

// IsZero reports whether no criterion is set.
func (f Filter) IsZero() bool {
	return f.Sector == nil && f.Type == nil && f.MinConsumption == nil && f.MaxConsumption == nil
}

// HasConsumptionBounds reports whether either consumption bound is set.
func (f Filter) HasConsumptionBounds() bool {
	return f.MinConsumption != nil || f.MaxConsumption != nil
}

// Matches evaluates the filter against one cannon. Consumption bounds are
// inclusive, and a cannon without a measurement fails any of them.
func (f Filter) Matches(c EnrichedCannon) bool {
	if f.Sector != nil && c.Sector != *f.Sector {
		return false
	}
	if f.Type != nil && c.Type != *f.Type {
		return false
	}
	if !f.HasConsumptionBounds() {
		return true
	}

	consumption, ok := c.Consumption()
	if !ok {
		return false
	}
	if f.MinConsumption != nil && consumption < *f.MinConsumption {
		return false
	}
	if f.MaxConsumption != nil && consumption > *f.MaxConsumption {
		return false
	}
	return true
}

// Apply returns the cannons matching f, sorted by id ascending. The input
// slice is left untouched.
func Apply(cannons []EnrichedCannon, f Filter) []EnrichedCannon {
	out := make([]EnrichedCannon, 0, len(cannons))
	for _, c := range cannons {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	SortByID(out)
	return out
}

// SortByID orders cannons by id ascending, in place.
func SortByID(cannons []EnrichedCannon) {
	sort.SliceStable(cannons, func(i, j int) bool {
		return cannons[i].ID < cannons[j].ID
	})
}
