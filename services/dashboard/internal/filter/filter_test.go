package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
)

func ptr[T any](v T) *T { return &v }

func named(id, sector int, typ cannon.Type, piste string) cannon.EnrichedCannon {
	return cannon.Enrich(cannon.Row{
		Cannon: cannon.Cannon{ID: id, Sector: sector, Type: typ, PisteName: piste},
	})
}

func consuming(id int, consumption float64, objectiveMax *float64) cannon.EnrichedCannon {
	return cannon.Enrich(cannon.Row{
		Cannon: cannon.Cannon{ID: id, Sector: 1, Type: cannon.TypeLance},
		Latest: &cannon.Measurement{ConsumptionM3: consumption, ObjectiveMaxM3: objectiveMax},
	})
}

func ids(cannons []cannon.EnrichedCannon) []int {
	out := make([]int, 0, len(cannons))
	for _, c := range cannons {
		out = append(out, c.ID)
	}
	return out
}

func TestApply_CombinedScenario(t *testing.T) {
	cannons := []cannon.EnrichedCannon{
		named(1, 1, cannon.TypeLance, "Piste A"),
		named(2, 2, cannon.TypeTour, "Piste B"),
	}

	tests := []struct {
		name  string
		state State
		want  []int
	}{
		{"search is case-insensitive", State{Search: "piste a"}, []int{1}},
		{"type set", State{Types: []cannon.Type{cannon.TypeTour}}, []int{2}},
		{"sector not present", State{Sectors: []int{3}}, []int{}},
		{"empty state keeps all", State{}, []int{1, 2}},
		{"blank search is ignored", State{Search: "   "}, []int{1, 2}},
		{"substring match", State{Search: "ISTE"}, []int{1, 2}},
		{"criteria are ANDed", State{Search: "piste", Types: []cannon.Type{cannon.TypeLance}, Sectors: []int{2}}, []int{}},
		{"several sectors", State{Sectors: []int{2, 1}}, []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Apply(cannons, tt.state)))
		})
	}
}

func TestApply_ObjectiveRange(t *testing.T) {
	cannons := []cannon.EnrichedCannon{
		consuming(1, 10, ptr(50.0)),
		consuming(2, 10, ptr(100.0)),
		consuming(3, 10, nil),
		named(4, 1, cannon.TypeLance, "Sans mesure"),
	}

	got := Apply(cannons, State{ObjectiveRange: &Range{Min: 50, Max: 80}})
	assert.Equal(t, []int{1}, ids(got))

	got = Apply(cannons, State{ObjectiveRange: &Range{Min: 0, Max: 100}})
	assert.Equal(t, []int{1, 2}, ids(got), "bounds are inclusive and unmeasured cannons are excluded")

	got = Apply(cannons, State{})
	assert.Equal(t, []int{1, 2, 3, 4}, ids(got))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	cannons := []cannon.EnrichedCannon{
		named(2, 2, cannon.TypeTour, "Piste B"),
		named(1, 1, cannon.TypeLance, "Piste A"),
	}
	got := Apply(cannons, State{Search: "piste"})
	assert.Equal(t, []int{2, 1}, ids(got), "input order is kept")

	got[0].PisteName = "changed"
	assert.Equal(t, "Piste B", cannons[0].PisteName)
}

func TestCompute(t *testing.T) {
	cannons := []cannon.EnrichedCannon{
		consuming(1, 10, ptr(100.0)),
		consuming(2, 0, ptr(100.0)),
		consuming(3, 5, nil),
	}
	assert.Equal(t, Stats{Total: 3, Active: 2, TotalConsumption: 15}, Compute(cannons))
}

func TestCompute_UnmeasuredCountsAsZero(t *testing.T) {
	cannons := []cannon.EnrichedCannon{
		consuming(1, 7.5, nil),
		named(2, 1, cannon.TypeTour, "Sans mesure"),
	}
	assert.Equal(t, Stats{Total: 2, Active: 1, TotalConsumption: 7.5}, Compute(cannons))
	assert.Equal(t, Stats{}, Compute(nil))
}

func TestAvailableOptions(t *testing.T) {
	cannons := []cannon.EnrichedCannon{
		named(1, 3, cannon.TypeTour, "a"),
		named(2, 1, cannon.TypeLance, "b"),
		named(3, 3, cannon.TypeTour, "c"),
		named(4, 2, cannon.TypeLance, "d"),
	}
	opts := AvailableOptions(cannons)
	assert.Equal(t, []cannon.Type{cannon.TypeTour, cannon.TypeLance}, opts.Types)
	assert.Equal(t, []int{3, 1, 2}, opts.Sectors)

	empty := AvailableOptions(nil)
	assert.NotNil(t, empty.Types)
	assert.NotNil(t, empty.Sectors)
}

func TestNormalizeRangeInput(t *testing.T) {
	tests := []struct {
		name     string
		prev     Range
		bound    Bound
		raw      string
		want     Range
		wantText string
	}{
		{"plain max", Range{0, 0}, MaxBound, "120", Range{0, 120}, "120"},
		{"decimal comma is floored", Range{0, 200}, MinBound, "12,9", Range{12, 200}, "12"},
		{"leading zeros", Range{0, 200}, MinBound, "007", Range{7, 200}, "7"},
		{"single zero kept", Range{5, 200}, MinBound, "000", Range{0, 200}, "0"},
		{"negative clamps to zero", Range{5, 200}, MinBound, "-4", Range{0, 200}, "0"},
		{"garbage becomes zero", Range{0, 200}, MaxBound, "abc", Range{0, 0}, "0"},
		{"infinity becomes zero", Range{0, 200}, MaxBound, "Infinity", Range{0, 0}, "0"},
		{"cleared input", Range{30, 200}, MinBound, "  ", Range{0, 200}, ""},
		{"min above max pulls max", Range{0, 50}, MinBound, "80", Range{80, 80}, "80"},
		{"max below min pulls min", Range{60, 100}, MaxBound, "40", Range{40, 40}, "40"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, text := NormalizeRangeInput(tt.prev, tt.bound, tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantText, text)
		})
	}
}
