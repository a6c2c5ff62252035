package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsForTesting_IndependentRegistries(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.UnmatchedFeatures.Add(3)

	assert.Equal(t, 3.0, testutil.ToFloat64(a.UnmatchedFeatures))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.UnmatchedFeatures))
}

func TestObserveGeoJSONLoad(t *testing.T) {
	m := NewMetricsForTesting()

	m.ObserveGeoJSONLoad(42, nil)
	m.ObserveGeoJSONLoad(0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeoJSONLoads.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeoJSONLoads.WithLabelValues("error")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.GeoJSONFeatures))
}

func TestGathererExposesMetrics(t *testing.T) {
	m := NewMetricsForTesting()
	m.HTTPRequests.WithLabelValues("GET", "/snowCannons", "200").Inc()

	families, err := m.Gatherer.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "snow_cannon_api_http_requests_total")
}
