package geo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
)

const testCollection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [6.7701, 46.1912]},
     "properties": {"id": 1, "nom_piste": "Piste A", "secteur": 1, "altitude": 1820}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [6.7755, 46.1940]},
     "properties": {"id": 2, "nom_piste": "Piste B", "secteur": 2}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [6.7800, 46.1980]},
     "properties": {"id": 99, "nom_piste": "Orpheline"}}
  ]
}`

func ptr[T any](v T) *T { return &v }

func mustDecode(t *testing.T) *geojson.FeatureCollection {
	t.Helper()
	fc, err := Decode([]byte(testCollection))
	require.NoError(t, err)
	return fc
}

func testCannons() []cannon.EnrichedCannon {
	return []cannon.EnrichedCannon{
		cannon.Enrich(cannon.Row{
			Cannon: cannon.Cannon{ID: 1, Sector: 1, Type: cannon.TypeLance},
			Latest: &cannon.Measurement{ConsumptionM3: 30, ObjectiveMaxM3: ptr(60.0)},
		}),
		cannon.Enrich(cannon.Row{Cannon: cannon.Cannon{ID: 2, Sector: 2, Type: cannon.TypeTour}}),
		cannon.Enrich(cannon.Row{Cannon: cannon.Cannon{ID: 3, Sector: 2, Type: cannon.TypeTour}}),
	}
}

func TestDecode(t *testing.T) {
	fc := mustDecode(t)
	require.Len(t, fc.Features, 3)

	pt, ok := fc.Features[0].Geometry.(orb.Point)
	require.True(t, ok)
	assert.InDelta(t, 6.7701, pt.Lon(), 1e-9)
	assert.InDelta(t, 46.1912, pt.Lat(), 1e-9)
}

func TestDecode_RejectsOtherTypes(t *testing.T) {
	_, err := Decode([]byte(`{"type":"Feature","geometry":null,"properties":{}}`))
	require.Error(t, err)

	_, err = Decode([]byte(`not json`))
	require.Error(t, err)
}

func TestMerge_EnrichesMatchedFeatures(t *testing.T) {
	res := Merge(mustDecode(t), testCannons())

	assert.Equal(t, 2, res.Enriched)
	require.Len(t, res.Collection.Features, 3)

	props := res.Collection.Features[0].Properties
	assert.Equal(t, 30.0, props[PropConsumption])
	assert.Equal(t, 60.0, props[PropObjectiveMax])
	assert.Equal(t, 50, props[PropPercentOfMax])
	assert.Equal(t, "Piste A", props["nom_piste"], "extra properties pass through")
	assert.Equal(t, 1820.0, props["altitude"])
}

func TestMerge_MatchedWithoutMeasurement(t *testing.T) {
	res := Merge(mustDecode(t), testCannons())

	props := res.Collection.Features[1].Properties
	assert.Contains(t, props, PropConsumption)
	assert.Nil(t, props[PropConsumption])
	assert.Nil(t, props[PropObjectiveMax])
	assert.Equal(t, 0, props[PropPercentOfMax])
}

func TestMerge_UnmatchedFeaturePassesThrough(t *testing.T) {
	fc := mustDecode(t)
	original := fc.Features[2]
	keys := make([]string, 0, len(original.Properties))
	for k := range original.Properties {
		keys = append(keys, k)
	}

	res := Merge(fc, testCannons())

	unmatched := res.Collection.Features[2]
	assert.Same(t, original, unmatched)
	assert.NotContains(t, unmatched.Properties, PropPercentOfMax)
	assert.ElementsMatch(t, keys, keysOf(unmatched.Properties))
	assert.Equal(t, []any{99.0}, res.Unmatched)
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	fc := mustDecode(t)
	before, err := json.Marshal(fc)
	require.NoError(t, err)

	_ = Merge(fc, testCannons())

	after, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestMerge_OutputJSON(t *testing.T) {
	res := Merge(mustDecode(t), testCannons())
	data, err := json.Marshal(res.Collection)
	require.NoError(t, err)

	var body struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "FeatureCollection", body.Type)
	require.Len(t, body.Features, 3)
	assert.Equal(t, 50.0, body.Features[0].Properties[PropPercentOfMax])
}

func TestFeatureCannonID(t *testing.T) {
	withID := func(v any) *geojson.Feature {
		f := geojson.NewFeature(orb.Point{0, 0})
		f.Properties[PropID] = v
		return f
	}

	id, ok := FeatureCannonID(withID(12.0))
	assert.True(t, ok)
	assert.Equal(t, 12, id)

	id, ok = FeatureCannonID(withID(json.Number("7")))
	assert.True(t, ok)
	assert.Equal(t, 7, id)

	_, ok = FeatureCannonID(withID(12.5))
	assert.False(t, ok)

	_, ok = FeatureCannonID(withID("12"))
	assert.False(t, ok, "string ids are not coerced")

	_, ok = FeatureCannonID(geojson.NewFeature(orb.Point{0, 0}))
	assert.False(t, ok)
}

type countingSource struct {
	calls int
	err   error
	fc    *geojson.FeatureCollection
}

func (s *countingSource) Load(_ context.Context) (*geojson.FeatureCollection, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.fc, nil
}

func TestCache_LoadsOnce(t *testing.T) {
	src := &countingSource{fc: mustDecode(t)}
	clock := clockwork.NewFakeClockAt(time.Date(2025, 2, 1, 6, 0, 0, 0, time.UTC))

	var hookFeatures int
	cache := NewCache(src, WithClock(clock), OnLoad(func(n int, _ time.Duration) { hookFeatures = n }))

	_, loaded := cache.LoadedAt()
	assert.False(t, loaded)

	first, err := cache.Load(context.Background())
	require.NoError(t, err)
	second, err := cache.Load(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 3, hookFeatures)

	at, loaded := cache.LoadedAt()
	assert.True(t, loaded)
	assert.Equal(t, clock.Now(), at)
}

func TestCache_DoesNotCacheFailures(t *testing.T) {
	src := &countingSource{err: errors.New("boom")}
	cache := NewCache(src)

	_, err := cache.Load(context.Background())
	require.Error(t, err)

	src.err = nil
	src.fc = mustDecode(t)
	fc, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, fc.Features, 3)
	assert.Equal(t, 2, src.calls)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cannons.json")
	require.NoError(t, os.WriteFile(path, []byte(testCollection), 0o600))

	fc, err := FileSource{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, fc.Features, 3)

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.Load(context.Background())
	require.Error(t, err)
}

func TestURLSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cannons.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testCollection))
	}))
	defer srv.Close()

	fc, err := URLSource{URL: srv.URL + "/cannons.json", Client: srv.Client()}.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, fc.Features, 3)

	_, err = URLSource{URL: srv.URL + "/missing.json"}.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func keysOf(p geojson.Properties) []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	return out
}
