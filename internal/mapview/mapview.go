package mapview

import (
	"github.com/Zachdehooge/observatorio/internal/aggregate"
	"github.com/Zachdehooge/observatorio/internal/fetcher"
	"github.com/Zachdehooge/observatorio/internal/format"
)

// Config fixes the initial viewport and the base tile layer.
type Config struct {
	Center      [2]float64
	Zoom        int
	TileURL     string
	Attribution string
}

// DefaultConfig centres the map on Spain.
var DefaultConfig = Config{
	Center:      [2]float64{40.4168, -3.7038},
	Zoom:        6,
	TileURL:     "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
	Attribution: "© OpenStreetMap contributors",
}

// Region is a municipality polygon joined to its subsidies.
type Region struct {
	Name       string               `json:"name"`
	Count      int                  `json:"count"`
	Total      float64              `json:"total"`
	TotalLabel string               `json:"totalLabel"`
	Geometry   *fetcher.GeoGeometry `json:"geometry"`
}

// Marker is a fixed point of activity, independent of fetched data.
type Marker struct {
	Name   string     `json:"name"`
	Kind   string     `json:"kind"`
	Coords [2]float64 `json:"coords"`
}

// Markers are drawn on every map.
var Markers = []Marker{
	{Name: "Madrid", Kind: "Administración Central", Coords: [2]float64{40.4168, -3.7038}},
	{Name: "Barcelona", Kind: "Actividad Industrial", Coords: [2]float64{41.3851, 2.1734}},
	{Name: "Sevilla", Kind: "Administración Autonómica", Coords: [2]float64{37.3891, -5.9845}},
	{Name: "Valencia", Kind: "Actividad Portuaria", Coords: [2]float64{39.4699, -0.3763}},
}

// View is everything the page needs to draw the map.
type View struct {
	Center      [2]float64 `json:"center"`
	Zoom        int        `json:"zoom"`
	TileURL     string     `json:"tileUrl"`
	Attribution string     `json:"attribution"`
	// Regions is nil when no boundary layer is available.
	Regions []Region `json:"regions"`
	Markers []Marker `json:"markers"`
}

// Build joins boundaries to subsidies by exact municipality name. A nil
// boundaries slice leaves the overlay out.
func Build(cfg Config, boundaries []fetcher.Boundary, subsidies []fetcher.Subsidy) View {
	v := View{
		Center:      cfg.Center,
		Zoom:        cfg.Zoom,
		TileURL:     cfg.TileURL,
		Attribution: cfg.Attribution,
		Markers:     Markers,
	}
	if boundaries == nil {
		return v
	}

	v.Regions = make([]Region, 0, len(boundaries))
	for _, b := range boundaries {
		mt := aggregate.ForMunicipality(subsidies, b.Name)
		v.Regions = append(v.Regions, Region{
			Name:       b.Name,
			Count:      mt.Count,
			Total:      mt.Total,
			TotalLabel: format.Currency(mt.Total),
			Geometry:   b.Geometry,
		})
	}
	return v
}

// Region returns the overlay entry for name.
func (v View) Region(name string) (Region, bool) {
	for _, r := range v.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}
