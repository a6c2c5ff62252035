package convert

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/snow-cannon-viewer/services/api/db"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
)

const layerJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [6.7701, 46.1912]},
     "properties": {"id": 1, "numero_regard": 101, "secteur": 1, "type": "lance", "nom_piste": " Piste A "}},
    {"type": "Feature", "geometry": null,
     "properties": {"id": 2, "secteur": "3", "type": "TOUR", "nom_piste": "Piste B", "latitude": 46.19, "longitude": "6,77"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [6.78, 46.2]},
     "properties": {"id": 3, "secteur": 2, "type": "canon"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [6.78, 46.2]},
     "properties": {"id": "4", "secteur": 2, "type": "lance"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [6.79, 46.21]},
     "properties": {"id": 1, "secteur": 5, "type": "autonome"}}
  ]
}`

func TestCannonsFromCollection(t *testing.T) {
	fc, err := geojson.UnmarshalFeatureCollection([]byte(layerJSON))
	require.NoError(t, err)

	cannons, skipped := CannonsFromCollection(fc)
	require.Len(t, cannons, 2)
	require.Len(t, skipped, 3)

	first := cannons[0]
	assert.Equal(t, 1, first.ID)
	require.NotNil(t, first.NumeroRegard)
	assert.Equal(t, 101, *first.NumeroRegard)
	assert.Equal(t, 1, first.Sector)
	assert.Equal(t, cannon.TypeLance, first.Type)
	assert.Equal(t, "Piste A", first.PisteName)
	assert.Equal(t, 46.1912, first.Latitude)
	assert.Equal(t, 6.7701, first.Longitude)

	second := cannons[1]
	assert.Equal(t, 2, second.ID)
	assert.Equal(t, 3, second.Sector)
	assert.Equal(t, cannon.TypeTour, second.Type)
	assert.Nil(t, second.NumeroRegard)
	assert.Equal(t, 46.19, second.Latitude)
	assert.Equal(t, 6.77, second.Longitude)

	assert.Contains(t, skipped[0].Error(), `unknown type "canon"`)
	assert.Contains(t, skipped[1].Error(), "feature 3")
	assert.Contains(t, skipped[2].Error(), "duplicate cannon id 1")
}

const measurementsCSV = `snow_cannon_id,conso_eau_m3,objectif_mini_m3,objectif_max_m3,duree_fonctionnement_h,date_mesure
1,45.5,10,100,4,2024-12-10T06:00:00Z
2,80,,-999,6,2024-12-10 06:00:00
x,1,,,,2024-12-10
3,-1,,,,2024-12-10
4,5,,,,yesterday

5,0,,,,10/12/2024
`

func TestParseMeasurements(t *testing.T) {
	records, skipped, err := ParseMeasurements(strings.NewReader(measurementsCSV), ',')
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Len(t, skipped, 3)

	first := records[0]
	assert.Equal(t, 1, first.CannonID)
	assert.Equal(t, 45.5, first.ConsumptionM3)
	require.NotNil(t, first.ObjectiveMinM3)
	assert.Equal(t, 10.0, *first.ObjectiveMinM3)
	require.NotNil(t, first.ObjectiveMaxM3)
	assert.Equal(t, 100.0, *first.ObjectiveMaxM3)
	assert.Equal(t, 4.0, first.DurationHours)
	assert.Equal(t, time.Date(2024, 12, 10, 6, 0, 0, 0, time.UTC), first.MeasuredAt)

	second := records[1]
	assert.Nil(t, second.ObjectiveMinM3)
	assert.Nil(t, second.ObjectiveMaxM3, "negative sentinel is dropped")

	third := records[2]
	assert.Equal(t, 5, third.CannonID)
	assert.Equal(t, time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC), third.MeasuredAt)

	assert.Contains(t, skipped[0].Error(), "line 4")
	assert.Contains(t, skipped[1].Error(), "negative conso_eau_m3")
	assert.Contains(t, skipped[2].Error(), "invalid date_mesure")
}

func TestParseMeasurements_SemicolonDecimalComma(t *testing.T) {
	in := "\ufeffID;Conso_Eau_M3;Objectif_Max_M3;Date_Mesure\n7;12,5;25;2025-01-02\n"
	records, skipped, err := ParseMeasurements(strings.NewReader(in), ';')
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, records, 1)
	assert.Equal(t, 7, records[0].CannonID)
	assert.Equal(t, 12.5, records[0].ConsumptionM3)
	assert.Equal(t, 50, records[0].PercentOfMax())
}

func TestParseMeasurements_MissingColumn(t *testing.T) {
	_, _, err := ParseMeasurements(strings.NewReader("snow_cannon_id,date_mesure\n1,2024-01-01\n"), ',')
	require.Error(t, err)
	assert.Contains(t, err.Error(), ColConsumption)
}

func TestDedupeMeasurements(t *testing.T) {
	day := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	rec := func(id int, at time.Time, conso float64) db.MeasurementRecord {
		return db.MeasurementRecord{CannonID: id, Measurement: cannon.Measurement{ConsumptionM3: conso, MeasuredAt: at}}
	}

	got := DedupeMeasurements([]db.MeasurementRecord{
		rec(1, day, 10),
		rec(2, day, 20),
		rec(1, day, 11),
		rec(1, day.Add(time.Hour), 12),
	})

	require.Len(t, got, 3)
	assert.Equal(t, 2, got[0].CannonID)
	assert.Equal(t, 11.0, got[1].ConsumptionM3)
	assert.Equal(t, 12.0, got[2].ConsumptionM3)
}

func TestChunk(t *testing.T) {
	assert.Nil(t, Chunk([]int{}, 3))
	assert.Equal(t, [][]int{{1, 2}}, Chunk([]int{1, 2}, 3))
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Chunk([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1, 2, 3}}, Chunk([]int{1, 2, 3}, 0))
}

func TestGeoJSONToCSV(t *testing.T) {
	in := `{
	  "type": "FeatureCollection",
	  "features": [
	    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [6.7701, 46.1912]},
	     "properties": {"id": 1, "nom_piste": "Piste A, haut", "latitude": 0}},
	    {"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[6.7, 46.1], [6.8, 46.2]]},
	     "properties": {"id": 2, "note": "dit \"rapide\"", "actif": true, "tags": ["a", "b"]}},
	    {"type": "Feature", "geometry": null, "properties": null}
	  ]
	}`

	var out bytes.Buffer
	rows, err := GeoJSONToCSV([]byte(in), &out)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)

	want := "id,nom_piste,latitude,note,actif,tags,longitude\n" +
		"1,\"Piste A, haut\",46.1912,,,,6.7701\n" +
		"2,,,\"dit \"\"rapide\"\"\",true,\"[\"\"a\"\",\"\"b\"\"]\",\n" +
		",,,,,,\n"
	assert.Equal(t, want, out.String())
}

func TestGeoJSONToCSV_Invalid(t *testing.T) {
	var out bytes.Buffer
	_, err := GeoJSONToCSV([]byte(`{"type": "Feature"}`), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected FeatureCollection")

	_, err = GeoJSONToCSV([]byte(`{"type": "FeatureCollection"}`), &out)
	require.Error(t, err)

	_, err = GeoJSONToCSV([]byte(`not json`), &out)
	require.Error(t, err)
}
