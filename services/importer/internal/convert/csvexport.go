package convert

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type rawCollection struct {
	Type     string        `json:"type"`
	Features *[]rawFeature `json:"features"`
}

type rawFeature struct {
	Geometry   json.RawMessage `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

// orderedProps keeps property keys in document order.
type orderedProps struct {
	keys   []string
	values map[string]any
}

// GeoJSONToCSV flattens a FeatureCollection into CSV. Columns are the union
// of property keys in first-seen order followed by latitude and longitude,
// which always come from point geometries. It returns the number of data rows.
func GeoJSONToCSV(data []byte, w io.Writer) (int, error) {
	var fc rawCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return 0, fmt.Errorf("decode geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" || fc.Features == nil {
		return 0, errors.New("invalid GeoJSON: expected FeatureCollection with features[]")
	}
	features := *fc.Features

	props := make([]orderedProps, len(features))
	var columns []string
	present := map[string]bool{}
	addColumn := func(name string) {
		if !present[name] {
			present[name] = true
			columns = append(columns, name)
		}
	}

	for i, f := range features {
		p, err := decodeProps(f.Properties)
		if err != nil {
			return 0, fmt.Errorf("feature %d properties: %w", i, err)
		}
		props[i] = p
		for _, k := range p.keys {
			addColumn(k)
		}
	}
	addColumn(PropLatitude)
	addColumn(PropLongitude)

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return 0, err
	}

	for i, f := range features {
		lat, lon := pointCells(f.Geometry)
		row := make([]string, len(columns))
		for j, col := range columns {
			switch col {
			case PropLatitude:
				row[j] = lat
			case PropLongitude:
				row[j] = lon
			default:
				row[j] = formatCell(props[i].values[col])
			}
		}
		if err := cw.Write(row); err != nil {
			return i, err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(features), err
	}
	return len(features), nil
}

func decodeProps(raw json.RawMessage) (orderedProps, error) {
	p := orderedProps{values: map[string]any{}}
	if len(bytes.TrimSpace(raw)) == 0 {
		return p, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return p, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		// null or a non-object: no columns.
		return p, nil
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return p, err
		}
		key, _ := keyTok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return p, err
		}
		if _, dup := p.values[key]; !dup {
			p.keys = append(p.keys, key)
		}
		p.values[key] = v
	}
	return p, nil
}

func pointCells(raw json.RawMessage) (lat, lon string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", ""
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil || g == nil {
		return "", ""
	}
	p, ok := g.Coordinates.(orb.Point)
	if !ok {
		return "", ""
	}
	return formatFloat(p.Lat()), formatFloat(p.Lon())
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return formatFloat(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
