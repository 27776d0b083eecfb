package fetcher

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// ParseBoundaries extracts named polygons from a GeoJSON FeatureCollection.
// Features without a name or geometry are skipped.
func ParseBoundaries(body []byte) ([]Boundary, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid GeoJSON document")
	}
	doc := gjson.ParseBytes(body)
	if doc.Get("type").String() != "FeatureCollection" {
		return nil, errors.New("GeoJSON document is not a FeatureCollection")
	}

	boundaries := []Boundary{}
	doc.Get("features").ForEach(func(_, feature gjson.Result) bool {
		name := feature.Get("properties.name")
		geom := feature.Get("geometry")
		if !name.Exists() || !geom.IsObject() {
			return true
		}
		g := &GeoGeometry{Type: geom.Get("type").String()}
		if coords := geom.Get("coordinates"); coords.Exists() {
			g.Coordinates = json.RawMessage(coords.Raw)
		}
		boundaries = append(boundaries, Boundary{Name: name.String(), Geometry: g})
		return true
	})
	return boundaries, nil
}
