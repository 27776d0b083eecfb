package fetcher

import "encoding/json"

// Severity kinds carried by alertas.json. The producers write the Spanish
// spelling; CRITICAL is accepted for feeds that already normalised it.
const (
	SeverityCritical   = "CRÍTICA"
	severityCriticalEN = "CRITICAL"
)

// BulletinEntry is one BOE (official bulletin) document.
type BulletinEntry struct {
	Title         string `json:"titulo"`
	Link          string `json:"link"`
	Category      string `json:"categoria"`
	Color         string `json:"color"`
	CategoryLabel string `json:"etiqueta,omitempty"`
}

// Badge returns the text shown in the category badge.
func (b BulletinEntry) Badge() string {
	if b.CategoryLabel != "" {
		return b.CategoryLabel
	}
	return b.Category
}

// Alert is a transparency alert raised by the data producers.
type Alert struct {
	Kind    string `json:"tipo"`
	Message string `json:"msg"`
	Reason  string `json:"motivo"`
	Link    string `json:"link"`
}

// Critical reports whether the alert uses the critical severity kind.
// Every other kind is treated as advisory.
func (a Alert) Critical() bool {
	return a.Kind == SeverityCritical || a.Kind == severityCriticalEN
}

// Subsidy is a single subsidy award.
type Subsidy struct {
	Beneficiary  string  `json:"beneficiario"`
	Amount       float64 `json:"importe"`
	Municipality string  `json:"municipio"`
}

// SpendingLine is a single public spending budget line.
type SpendingLine struct {
	Concept  string  `json:"concepto"`
	Amount   float64 `json:"importe"`
	Ministry string  `json:"ministerio"`
}

// Promise tracks how far a political promise has been fulfilled.
type Promise struct {
	Text       string  `json:"promesa"`
	Completion float64 `json:"cumplimiento"`
	Date       string  `json:"fecha"`
	Party      string  `json:"partido"`
}

// Collections groups the five fixture collections. They are always loaded
// and replaced together.
type Collections struct {
	Bulletin  []BulletinEntry `json:"boe"`
	Alerts    []Alert         `json:"alertas"`
	Subsidies []Subsidy       `json:"subvenciones"`
	Spending  []SpendingLine  `json:"gasto"`
	Promises  []Promise       `json:"promesas"`
}

// Metadata is the block the aggregation endpoint appends to the envelope.
type Metadata struct {
	GeneratedAt string `json:"fecha_actualizacion"`
	Version     string `json:"version"`
}

// Envelope is the combined document served by the aggregation endpoint.
type Envelope struct {
	Collections
	Metadata Metadata `json:"metadata"`
}

// GeoGeometry mirrors a GeoJSON geometry object.
type GeoGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Boundary is one municipality polygon from municipios.geojson.
type Boundary struct {
	Name     string       `json:"name"`
	Geometry *GeoGeometry `json:"geometry"`
}
