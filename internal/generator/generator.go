package generator

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strconv"
	"time"

	"github.com/Zachdehooge/observatorio/internal/aggregate"
	"github.com/Zachdehooge/observatorio/internal/fetcher"
	"github.com/Zachdehooge/observatorio/internal/format"
	"github.com/Zachdehooge/observatorio/internal/mapview"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Container ids the dashboard renders into.
const (
	ContainerAlerts    = "alertas-box"
	ContainerBulletin  = "boe-lista"
	ContainerSubsidies = "subvenciones-lista"
	ContainerSpending  = "gasto-lista"
	ContainerPromises  = "promesas-lista"
	ContainerStats     = "estadisticas"
	ContainerMap       = "map"
)

// Widgets lists the containers that have a server-rendered fragment.
var Widgets = []string{
	ContainerAlerts,
	ContainerBulletin,
	ContainerSubsidies,
	ContainerSpending,
	ContainerPromises,
	ContainerStats,
}

// DefaultLayout is the full dashboard: every widget plus the map.
var DefaultLayout = append(append([]string{}, Widgets...), ContainerMap)

// ErrUnknownWidget is returned for a container without a fragment.
var ErrUnknownWidget = errors.New("unknown widget")

// StampFormat matches the es-ES toLocaleString rendering.
const StampFormat = "02/01/2006, 15:04:05"

// Tab is one entry of the tab bar.
type Tab struct {
	ID    string
	Label string
}

// Tabs is the fixed tab bar; the first tab is the default.
var Tabs = []Tab{
	{ID: "resumen", Label: "Resumen"},
	{ID: "boe", Label: "BOE"},
	{ID: "subvenciones", Label: "Subvenciones"},
	{ID: "gasto", Label: "Gasto"},
	{ID: "promesas", Label: "Promesas"},
	{ID: "mapa", Label: "Mapa"},
}

// ActiveTab returns id when it names a tab and the default tab otherwise.
func ActiveTab(id string) string {
	for _, t := range Tabs {
		if t.ID == id {
			return id
		}
	}
	return Tabs[0].ID
}

// View is the data every widget renders from.
type View struct {
	Collections     fetcher.Collections
	Stats           aggregate.Stats
	SubsidyPreview  []fetcher.Subsidy
	SpendingPreview []fetcher.SpendingLine
	RenderedAt      time.Time
}

// NewView computes the aggregates for c. renderedAt is shown in the
// statistics panel.
func NewView(c fetcher.Collections, renderedAt time.Time) View {
	return View{
		Collections:     c,
		Stats:           aggregate.Summarize(c),
		SubsidyPreview:  aggregate.Head(c.Subsidies, aggregate.PreviewSize),
		SpendingPreview: aggregate.Head(c.Spending, aggregate.PreviewSize),
		RenderedAt:      renderedAt,
	}
}

// Page is the data of the full dashboard document.
type Page struct {
	View   View
	Map    mapview.View
	Layout []string
	Tab    string
	Tabs   []Tab
	// Banner is the transient error message, empty when there is none.
	Banner         string
	Static         bool
	RefreshSeconds int
}

// Has reports whether container id is part of the page layout.
func (p Page) Has(id string) bool {
	for _, c := range p.Layout {
		if c == id {
			return true
		}
	}
	return false
}

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("observatorio").Funcs(funcMap()).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Widget renders the fragment for container id.
func (r *Renderer) Widget(w io.Writer, id string, v View) error {
	if !isWidget(id) {
		return fmt.Errorf("%w: %q", ErrUnknownWidget, id)
	}
	return r.tmpl.ExecuteTemplate(w, id, v)
}

// Page renders the full dashboard document.
func (r *Renderer) Page(w io.Writer, p Page) error {
	if p.Layout == nil {
		p.Layout = DefaultLayout
	}
	if p.Tabs == nil {
		p.Tabs = Tabs
	}
	p.Tab = ActiveTab(p.Tab)
	return r.tmpl.ExecuteTemplate(w, "page", p)
}

// Report renders the beneficiary report.
func (r *Renderer) Report(w io.Writer, rep Report) error {
	return r.tmpl.ExecuteTemplate(w, "report", rep)
}

// Static returns the stylesheet, client script and manifest.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

func isWidget(id string) bool {
	for _, w := range Widgets {
		if w == id {
			return true
		}
	}
	return false
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"toJSON":       toJSON,
		"currency":     format.Currency,
		"count":        format.Count,
		"promiseColor": aggregate.PromiseColor,
		"alertClass":   alertClass,
		"percent":      percent,
		"barWidth":     barWidth,
		"stamp":        stamp,
	}
}

func toJSON(v interface{}) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}

func alertClass(a fetcher.Alert) string {
	if a.Critical() {
		return "critica"
	}
	return "aviso"
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// barWidth keeps the progress bar inside its track for out-of-range input.
func barWidth(v float64) string {
	switch {
	case v < 0:
		v = 0
	case v > 100:
		v = 100
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func stamp(t time.Time) string {
	return t.Format(StampFormat)
}
