package cannon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func measured(id, sector int, typ Type, consumption float64) EnrichedCannon {
	return Enrich(Row{
		Cannon: Cannon{ID: id, Sector: sector, Type: typ},
		Latest: &Measurement{ConsumptionM3: consumption, ObjectiveMaxM3: ptr(100.0)},
	})
}

func unmeasured(id, sector int, typ Type) EnrichedCannon {
	return Enrich(Row{Cannon: Cannon{ID: id, Sector: sector, Type: typ}})
}

func ids(cannons []EnrichedCannon) []int {
	out := make([]int, 0, len(cannons))
	for _, c := range cannons {
		out = append(out, c.ID)
	}
	return out
}

func fixture() []EnrichedCannon {
	return []EnrichedCannon{
		measured(5, 2, TypeTour, 80),
		measured(1, 1, TypeLance, 10),
		unmeasured(3, 1, TypeLance),
		measured(2, 2, TypeAutonome, 0),
		measured(4, 1, TypeTour, 50),
	}
}

func TestApply_NoCriteriaSortsByID(t *testing.T) {
	f := Filter{}
	assert.True(t, f.IsZero())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(Apply(fixture(), f)))
}

func TestApply_Sector(t *testing.T) {
	assert.Equal(t, []int{1, 3, 4}, ids(Apply(fixture(), Filter{Sector: ptr(1)})))
	assert.Empty(t, Apply(fixture(), Filter{Sector: ptr(9)}))
}

func TestApply_Type(t *testing.T) {
	assert.Equal(t, []int{4, 5}, ids(Apply(fixture(), Filter{Type: ptr(TypeTour)})))
}

func TestApply_ConsumptionBoundsAreInclusive(t *testing.T) {
	f := Filter{MinConsumption: ptr(10.0), MaxConsumption: ptr(50.0)}
	assert.Equal(t, []int{1, 4}, ids(Apply(fixture(), f)))
}

func TestApply_UnmeasuredFailsConsumptionBounds(t *testing.T) {
	c := unmeasured(3, 1, TypeLance)

	assert.False(t, Filter{MinConsumption: ptr(0.0)}.Matches(c))
	assert.False(t, Filter{MaxConsumption: ptr(1e9)}.Matches(c))
	assert.True(t, Filter{Sector: ptr(1)}.Matches(c))

	got := Apply(fixture(), Filter{MinConsumption: ptr(0.0)})
	assert.NotContains(t, ids(got), 3)
	assert.Equal(t, []int{1, 2, 4, 5}, ids(got))
}

func TestApply_CriteriaAreANDed(t *testing.T) {
	f := Filter{Sector: ptr(1), Type: ptr(TypeTour), MinConsumption: ptr(40.0)}
	assert.Equal(t, []int{4}, ids(Apply(fixture(), f)))
}

func TestApply_Idempotent(t *testing.T) {
	f := Filter{Sector: ptr(2)}
	first := Apply(fixture(), f)
	second := Apply(fixture(), f)
	assert.Equal(t, first, second)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := fixture()
	_ = Apply(in, Filter{})
	assert.Equal(t, []int{5, 1, 3, 2, 4}, ids(in))
}
