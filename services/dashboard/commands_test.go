package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apiconfig "github.com/02loveslollipop/snow-cannon-viewer/services/api/config"
	httpserver "github.com/02loveslollipop/snow-cannon-viewer/services/api/http"
	"github.com/02loveslollipop/snow-cannon-viewer/services/dashboard/internal/config"
	"github.com/02loveslollipop/snow-cannon-viewer/services/dashboard/internal/mapview"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/geo"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/log"
)

const layerFixture = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [6.7701, 46.1912]}, "properties": {"id": 1}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [6.7755, 46.1940]}, "properties": {"id": 2}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [6.7790, 46.1960]}, "properties": {"id": 3}}
  ]
}`

func ptr[T any](v T) *T { return &v }

type memoryStore struct {
	cannons []cannon.EnrichedCannon
}

func (s memoryStore) ListCannons(_ context.Context, f cannon.Filter) ([]cannon.EnrichedCannon, error) {
	return cannon.Apply(s.cannons, f), nil
}

func (s memoryStore) GetCannon(_ context.Context, id int) (*cannon.EnrichedCannon, error) {
	for _, c := range s.cannons {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

func (memoryStore) Ping(context.Context) error { return nil }

type staticLayer struct{}

func (staticLayer) Load(context.Context) (*geojson.FeatureCollection, error) {
	return geo.Decode([]byte(layerFixture))
}

func fixture() []cannon.EnrichedCannon {
	measuredAt := time.Date(2024, 12, 10, 6, 0, 0, 0, time.UTC)
	return cannon.EnrichAll([]cannon.Row{
		{
			Cannon: cannon.Cannon{ID: 1, NumeroRegard: ptr(101), Sector: 1, Type: cannon.TypeLance, PisteName: "Piste A", Latitude: 46.1912, Longitude: 6.7701},
			Latest: &cannon.Measurement{ConsumptionM3: 10, ObjectiveMinM3: ptr(5.0), ObjectiveMaxM3: ptr(30.0), DurationHours: 2.5, MeasuredAt: measuredAt},
		},
		{
			Cannon: cannon.Cannon{ID: 2, NumeroRegard: ptr(102), Sector: 2, Type: cannon.TypeTour, PisteName: "Piste B", Latitude: 46.1940, Longitude: 6.7755},
			Latest: &cannon.Measurement{ConsumptionM3: 0, ObjectiveMaxM3: ptr(80.0), MeasuredAt: measuredAt},
		},
		{
			Cannon: cannon.Cannon{ID: 3, Sector: 2, Type: cannon.TypeAutonome, PisteName: "Combe", Latitude: 46.1960, Longitude: 6.7790},
			Latest: &cannon.Measurement{ConsumptionM3: 5, ObjectiveMaxM3: ptr(200.0), MeasuredAt: measuredAt},
		},
	})
}

func newAPI(t *testing.T) config.Config {
	t.Helper()
	log.Use(zap.NewNop())

	srv := httpserver.New(apiconfig.Config{CORSOrigin: "*"}, memoryStore{cannons: fixture()}, staticLayer{}, nil,
		httpserver.WithLogger(zap.NewNop().Sugar()))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return config.Config{APIBaseURL: ts.URL, APITimeout: 5 * time.Second}
}

func run(t *testing.T, cfg config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(cfg)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestList(t *testing.T) {
	cfg := newAPI(t)

	out, err := run(t, cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ID  REGARD")
	assert.Contains(t, out, "Piste A")
	assert.Contains(t, out, "Combe")
	assert.Contains(t, out, "3 cannon(s)")
}

func TestList_Filters(t *testing.T) {
	cfg := newAPI(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"search", []string{"--search", "piste a"}, "1 cannon(s)"},
		{"type", []string{"--type", "tour"}, "1 cannon(s)"},
		{"missing sector", []string{"--sector", "3"}, "0 cannon(s)"},
		{"sectors", []string{"--sector", "1,2"}, "3 cannon(s)"},
		{"objective range", []string{"--min-objective", "50", "--max-objective", "150"}, "1 cannon(s)"},
		{"objective floor only", []string{"--min-objective", "80"}, "2 cannon(s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, cfg, append([]string{"list"}, tt.args...)...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestList_InvalidType(t *testing.T) {
	cfg := newAPI(t)
	_, err := run(t, cfg, "list", "--type", "canon")
	assert.ErrorContains(t, err, `invalid cannon type "canon"`)
}

func TestShow(t *testing.T) {
	cfg := newAPI(t)

	out, err := run(t, cfg, "show", "1")
	require.NoError(t, err)
	assert.Equal(t, "#101 - Secteur 1 [on]\n"+
		"Piste A / lance\n"+
		"34% (yellow)\n"+
		"min: 5 - conso: 10 - max: 30\n"+
		"measured 2024-12-10T06:00:00Z, 2.5h running\n"+
		"position: 46.191200, 6.770100\n", out)
}

func TestShow_Errors(t *testing.T) {
	cfg := newAPI(t)

	_, err := run(t, cfg, "show", "9")
	assert.ErrorContains(t, err, "snow cannon 9 not found")

	_, err = run(t, cfg, "show", "abc")
	assert.ErrorContains(t, err, `invalid cannon id "abc"`)
}

func TestStats(t *testing.T) {
	cfg := newAPI(t)

	out, err := run(t, cfg, "stats", "--options")
	require.NoError(t, err)
	assert.Equal(t, "TOTAL  ACTIVE  CONSO_M3\n"+
		"3      2       15.0\n"+
		"types: lance, tour, autonome\n"+
		"sectors: 1, 2\n", out)
}

func TestMapScript(t *testing.T) {
	cfg := newAPI(t)

	out, err := run(t, cfg, "map-script", "--focus", "2")
	require.NoError(t, err)

	var cmds []mapview.Command
	require.NoError(t, json.Unmarshal([]byte(out), &cmds))

	ops := make([]string, 0, len(cmds))
	for _, c := range cmds {
		ops = append(ops, c.Op)
	}
	assert.Equal(t, []string{
		"setMaxBounds", "fitBounds",
		"addSource", "addLayer", "addLayer",
		"on", "on", "on", "on",
		"setFeatureState", "easeTo",
	}, ops)
	assert.Equal(t, 17.0, cmds[len(cmds)-1].Args["zoom"])
	assert.Equal(t, []any{6.7755, 46.194}, cmds[len(cmds)-1].Args["center"])
}

func TestAPIUnavailable(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	_, err := run(t, config.Config{APIBaseURL: url, APITimeout: time.Second}, "stats")
	assert.Error(t, err)
}
