package generator

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachdehooge/observatorio/internal/aggregate"
	"github.com/Zachdehooge/observatorio/internal/fetcher"
	"github.com/Zachdehooge/observatorio/internal/mapview"
)

var renderedAt = time.Date(2026, 3, 14, 9, 5, 7, 0, time.UTC)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	return r
}

func emptyCollections() fetcher.Collections {
	return fetcher.Collections{
		Bulletin:  []fetcher.BulletinEntry{},
		Alerts:    []fetcher.Alert{},
		Subsidies: []fetcher.Subsidy{},
		Spending:  []fetcher.SpendingLine{},
		Promises:  []fetcher.Promise{},
	}
}

func renderWidget(t *testing.T, id string, c fetcher.Collections) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, newRenderer(t).Widget(&buf, id, NewView(c, renderedAt)))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func TestAlertsWidget(t *testing.T) {
	c := emptyCollections()
	c.Alerts = []fetcher.Alert{
		{Kind: "AVISO", Message: "Beneficiario repetido", Reason: "Cuatro concesiones", Link: "https://boe.es/a"},
		{Kind: "CRÍTICA", Message: "Contrato fraccionado", Reason: "Tres expedientes", Link: "https://boe.es/b"},
	}

	doc := renderWidget(t, ContainerAlerts, c)
	items := doc.Find(".alerta-item")
	require.Equal(t, 2, items.Length())

	first := items.Eq(0)
	assert.True(t, first.HasClass("aviso"))
	assert.Equal(t, "Beneficiario repetido", first.Find(".alerta-msg").Text())
	assert.Equal(t, "Cuatro concesiones", first.Find(".alerta-motivo").Text())

	second := items.Eq(1)
	assert.True(t, second.HasClass("critica"))
	assert.Equal(t, "CRÍTICA", second.Find(".alerta-tipo").Text())
	href, _ := second.Find("a.alerta-link").Attr("href")
	assert.Equal(t, "https://boe.es/b", href)
}

func TestPlaceholders(t *testing.T) {
	alerts := renderWidget(t, ContainerAlerts, emptyCollections())
	assert.Equal(t, "No hay alertas activas", strings.TrimSpace(alerts.Find(".alert").Text()))
	assert.Equal(t, 0, alerts.Find(".alerta-item").Length())

	boe := renderWidget(t, ContainerBulletin, emptyCollections())
	assert.Equal(t, "No hay documentos BOE disponibles", strings.TrimSpace(boe.Find(".alert").Text()))
	assert.Equal(t, 0, boe.Find(".boe-item").Length())

	promises := renderWidget(t, ContainerPromises, emptyCollections())
	assert.Equal(t, 0, promises.Find(".promesa-item").Length())
}

func TestBulletinWidget(t *testing.T) {
	c := emptyCollections()
	c.Bulletin = []fetcher.BulletinEntry{
		{Title: "Real Decreto 1/2026", Link: "https://boe.es/1", Category: "disposiciones", Color: "#3b82f6", CategoryLabel: "Disposición"},
		{Title: "Resolución", Link: "https://boe.es/2", Category: "contratos", Color: "#f59e0b"},
	}

	doc := renderWidget(t, ContainerBulletin, c)
	items := doc.Find(".boe-item")
	require.Equal(t, 2, items.Length())

	badge := items.Eq(0).Find(".badge")
	assert.Equal(t, "Disposición", badge.Text())
	style, _ := badge.Attr("style")
	assert.Equal(t, "background: #3b82f6", style)
	assert.Equal(t, "contratos", items.Eq(1).Find(".badge").Text())
	assert.Equal(t, "Resolución", items.Eq(1).Find("a.boe-titulo").Text())
}

func TestUntrustedFieldsAreNeutralised(t *testing.T) {
	c := emptyCollections()
	c.Alerts = []fetcher.Alert{{
		Kind:    "AVISO",
		Message: `<img src=x onerror="alert(1)">`,
		Link:    "javascript:alert(1)",
	}}
	c.Bulletin = []fetcher.BulletinEntry{{
		Title: "<b>negrita</b>",
		Link:  "https://boe.es/1",
		Color: "red;background:url(https://evil.example/x)",
	}}

	alerts := renderWidget(t, ContainerAlerts, c)
	assert.Equal(t, 0, alerts.Find("img").Length())
	assert.Equal(t, `<img src=x onerror="alert(1)">`, alerts.Find(".alerta-msg").Text())
	href, _ := alerts.Find("a.alerta-link").Attr("href")
	assert.Equal(t, "#ZgotmplZ", href)

	boe := renderWidget(t, ContainerBulletin, c)
	assert.Equal(t, 0, boe.Find("b").Length())
	style, _ := boe.Find(".badge").Attr("style")
	assert.Equal(t, "background: ZgotmplZ", style)
}

func TestSubsidyWidgetPreviewAndTotals(t *testing.T) {
	c := emptyCollections()
	for i := 0; i < 8; i++ {
		c.Subsidies = append(c.Subsidies, fetcher.Subsidy{Beneficiary: "Entidad", Amount: 2000, Municipality: "Madrid"})
	}

	doc := renderWidget(t, ContainerSubsidies, c)
	assert.Equal(t, aggregate.PreviewSize, doc.Find("table.data-table tbody tr").Length())
	assert.Equal(t, "8", doc.Find(`[data-stat="count"] .stat-value`).Text())
	assert.Equal(t, "16.000\u00a0€", doc.Find(`[data-stat="sum"] .stat-value`).Text())
	assert.Equal(t, "2000\u00a0€", doc.Find("tbody tr").First().Find("td").Eq(1).Text())

	kind, ok := doc.Find("button.ver-mas").Attr("data-ver-mas")
	assert.True(t, ok)
	assert.Equal(t, "subvenciones", kind)
}

func TestSpendingWidget(t *testing.T) {
	c := emptyCollections()
	c.Spending = []fetcher.SpendingLine{
		{Concept: "Carreteras", Amount: 1250000, Ministry: "Transportes"},
		{Concept: "Publicidad", Amount: 480000, Ministry: "Presidencia"},
	}

	doc := renderWidget(t, ContainerSpending, c)
	assert.Equal(t, "1.730.000\u00a0€", doc.Find(`[data-stat="sum"] .stat-value`).Text())
	assert.Equal(t, "2", doc.Find(`[data-stat="count"] .stat-value`).Text())
	assert.Equal(t, 2, doc.Find("tbody tr").Length())
}

func TestPromisesWidget(t *testing.T) {
	c := emptyCollections()
	c.Promises = []fetcher.Promise{
		{Text: "Digitalizar", Completion: 80, Date: "2023-06-20", Party: "Partido A"},
		{Text: "Viviendas", Completion: 12.5, Date: "2023-11-02", Party: "Partido B"},
		{Text: "Desbordada", Completion: 140, Date: "2024-01-01", Party: "Partido C"},
	}

	doc := renderWidget(t, ContainerPromises, c)
	items := doc.Find(".promesa-item")
	require.Equal(t, 3, items.Length())

	badge := items.Eq(0).Find(".badge")
	assert.Equal(t, "80% cumplida", badge.Text())
	style, _ := badge.Attr("style")
	assert.Equal(t, "background: "+aggregate.ColorGreen, style)

	second := items.Eq(1)
	assert.Equal(t, "12.5% cumplida", second.Find(".badge").Text())
	style, _ = second.Find(".badge").Attr("style")
	assert.Equal(t, "background: "+aggregate.ColorGray, style)
	width, _ := second.Find(".progress-bar").Attr("style")
	assert.Equal(t, "width: 12.5%", width)
	assert.Equal(t, "Fecha: 2023-11-02 | Partido: Partido B", second.Find("small").Text())

	width, _ = items.Eq(2).Find(".progress-bar").Attr("style")
	assert.Equal(t, "width: 100%", width)
}

func TestStatsWidget(t *testing.T) {
	c := emptyCollections()
	c.Alerts = []fetcher.Alert{{Kind: "CRÍTICA"}, {Kind: "AVISO"}, {Kind: "CRITICAL"}}
	c.Bulletin = []fetcher.BulletinEntry{{Title: "a"}}
	c.Subsidies = []fetcher.Subsidy{{Amount: 1}, {Amount: 2}}
	c.Spending = []fetcher.SpendingLine{{Amount: 25000}}

	doc := renderWidget(t, ContainerStats, c)
	stat := func(name string) string {
		return doc.Find(`[data-stat="` + name + `"] .stat-value`).Text()
	}
	assert.Equal(t, "3", stat("alertas"))
	assert.Equal(t, "2", stat("criticas"))
	assert.Equal(t, "1", stat("boe"))
	assert.Equal(t, "2", stat("subvenciones"))
	assert.Equal(t, "25.000\u00a0€", stat("gasto"))
	assert.Equal(t, "Última actualización: 14/03/2026, 09:05:07", doc.Find(".stats-updated").Text())
}

func TestUnknownWidget(t *testing.T) {
	var buf bytes.Buffer
	err := newRenderer(t).Widget(&buf, "nope", NewView(emptyCollections(), renderedAt))
	assert.ErrorIs(t, err, ErrUnknownWidget)
	assert.Zero(t, buf.Len())
}

func renderPage(t *testing.T, p Page) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, newRenderer(t).Page(&buf, p))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func TestPageLayout(t *testing.T) {
	c := emptyCollections()
	c.Bulletin = []fetcher.BulletinEntry{{Title: "Orden", Link: "https://boe.es/3", Color: "#10b981"}}

	doc := renderPage(t, Page{
		View:   NewView(c, renderedAt),
		Map:    mapview.Build(mapview.DefaultConfig, nil, nil),
		Layout: []string{ContainerBulletin, ContainerAlerts},
	})

	assert.Equal(t, 1, doc.Find("#boe-lista .boe-item").Length())
	assert.Equal(t, "No hay alertas activas", strings.TrimSpace(doc.Find("#alertas-box .alert").Text()))
	for _, id := range []string{ContainerSubsidies, ContainerSpending, ContainerPromises, ContainerStats, ContainerMap} {
		assert.Equal(t, 0, doc.Find("#"+id).Length(), id)
	}
}

func TestPageDefaults(t *testing.T) {
	doc := renderPage(t, Page{
		View:           NewView(emptyCollections(), renderedAt),
		Map:            mapview.Build(mapview.DefaultConfig, nil, nil),
		Tab:            "bogus",
		RefreshSeconds: 300,
	})

	for _, id := range DefaultLayout {
		assert.Equal(t, 1, doc.Find("#"+id).Length(), id)
	}
	assert.Equal(t, len(Tabs), doc.Find("nav.tabs a.tab").Length())
	active, _ := doc.Find("a.tab.active").Attr("data-tab")
	assert.Equal(t, "resumen", active)
	assert.Equal(t, 1, doc.Find("#refresh-btn").Length())
	assert.Equal(t, 0, doc.Find("#error-banner").Length())
	assert.Equal(t, 0, doc.Find(`meta[http-equiv="refresh"]`).Length())
	seconds, _ := doc.Find("body").Attr("data-refresh-seconds")
	assert.Equal(t, "300", seconds)
}

func TestPageBannerAndTab(t *testing.T) {
	doc := renderPage(t, Page{
		View:   NewView(emptyCollections(), renderedAt),
		Tab:    "promesas",
		Banner: "Error al cargar los datos. Por favor, recarga la página.",
	})

	assert.Equal(t, "Error al cargar los datos. Por favor, recarga la página.", doc.Find("#error-banner").Text())
	active, _ := doc.Find("a.tab.active").Attr("data-tab")
	assert.Equal(t, "promesas", active)
}

func TestPageEmbedsMapData(t *testing.T) {
	boundaries := []fetcher.Boundary{{
		Name:     "</script><script>alert(1)</script>",
		Geometry: &fetcher.GeoGeometry{Type: "Polygon", Coordinates: json.RawMessage(`[]`)},
	}}

	var buf bytes.Buffer
	require.NoError(t, newRenderer(t).Page(&buf, Page{
		View: NewView(emptyCollections(), renderedAt),
		Map:  mapview.Build(mapview.DefaultConfig, boundaries, nil),
	}))
	out := buf.String()
	assert.Contains(t, out, `"tileUrl":"https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"`)
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.Contains(t, out, `\u003c/script\u003e`)
}

func TestGenerateDashboardHTML(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "observatorio.html")

	err := newRenderer(t).GenerateDashboardHTML(Page{
		View:           NewView(emptyCollections(), renderedAt),
		Map:            mapview.Build(mapview.DefaultConfig, nil, nil),
		RefreshSeconds: 300,
	}, out)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)

	content, _ := doc.Find(`meta[http-equiv="refresh"]`).Attr("content")
	assert.Equal(t, "300", content)
	assert.Equal(t, 0, doc.Find("#refresh-btn").Length())

	for _, asset := range []string{"estilo.css", "dashboard.js", "manifest.json"} {
		assert.FileExists(t, filepath.Join(dir, asset))
	}
}

func TestReport(t *testing.T) {
	c := emptyCollections()
	c.Subsidies = []fetcher.Subsidy{
		{Beneficiary: "Fundación Ejemplo", Amount: 125000},
		{Beneficiary: "Club", Amount: 3200},
		{Beneficiary: "Fundación Ejemplo", Amount: 60000},
	}
	c.Alerts = []fetcher.Alert{{Kind: "AVISO", Message: "Beneficiario repetido"}}

	rep := NewReport(c, renderedAt)
	assert.Equal(t, 188200.0, rep.Total)
	assert.Equal(t, 3, rep.Count)
	assert.Equal(t, []string{"Fundación Ejemplo", "Club"}, rep.Labels)
	assert.Equal(t, []float64{185000, 3200}, rep.Values)

	var buf bytes.Buffer
	require.NoError(t, newRenderer(t).Report(&buf, rep))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)

	assert.Equal(t, "188.200\u00a0€", doc.Find(`[data-stat="total"] .obs-stats__value`).Text())
	assert.Equal(t, "3", doc.Find(`[data-stat="contratos"] .obs-stats__value`).Text())
	assert.Equal(t, 2, doc.Find("table.ranking tbody tr").Length())
	assert.Equal(t, 1, doc.Find(".obs-alert").Length())
	assert.Contains(t, doc.Find(".obs-alert").Text(), "Beneficiario repetido")
}
