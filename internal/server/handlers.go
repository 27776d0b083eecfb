package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Zachdehooge/observatorio/internal/dashboard"
	"github.com/Zachdehooge/observatorio/internal/fetcher"
	"github.com/Zachdehooge/observatorio/internal/generator"
	"github.com/Zachdehooge/observatorio/internal/mapview"
	"github.com/Zachdehooge/observatorio/internal/metrics"
)

type handler struct {
	refresher       *dashboard.Refresher
	renderer        *generator.Renderer
	source          fetcher.Source
	mapConfig       mapview.Config
	version         string
	metrics         *metrics.Metrics
	now             func() time.Time
	refreshInterval time.Duration
}

// RefreshResult is the JSON answer of POST /api/refresh.
type RefreshResult struct {
	Seq     uint64 `json:"seq"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

func (h *handler) Page(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	snap := h.refresher.Store().Current()
	now := h.now()

	page := generator.Page{
		View:           generator.NewView(snap.Collections, now),
		Map:            mapview.Build(h.mapConfig, snap.Boundaries, snap.Collections.Subsidies),
		Tab:            r.URL.Query().Get("tab"),
		RefreshSeconds: int(h.refreshInterval / time.Second),
	}
	if msg, ok := h.refresher.Store().Banner(now); ok {
		page.Banner = msg
	}

	var buf bytes.Buffer
	if err := h.renderer.Page(&buf, page); err != nil {
		logger.Error().Err(err).Msg("failed to render dashboard")
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *handler) Widget(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	id := chi.URLParam(r, "id")
	snap := h.refresher.Store().Current()

	var buf bytes.Buffer
	err := h.renderer.Widget(&buf, id, generator.NewView(snap.Collections, h.now()))
	if errors.Is(err, generator.ErrUnknownWidget) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logger.Error().Err(err).Str("widget", id).Msg("failed to render widget")
		http.Error(w, "failed to render widget", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// RefreshForm is the no-script fallback of the refresh button.
func (h *handler) RefreshForm(w http.ResponseWriter, r *http.Request) {
	_, _ = h.refresher.Refresh(context.WithoutCancel(r.Context()), dashboard.TriggerManual)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *handler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.refresher.Refresh(context.WithoutCancel(r.Context()), dashboard.TriggerManual)

	result := RefreshResult{}
	status := http.StatusOK
	switch {
	case errors.Is(err, dashboard.ErrStaleCycle):
		result.Seq = snap.Seq
	case err != nil:
		result.Error = dashboard.ErrorMessage
		status = http.StatusBadGateway
	default:
		result.Seq = snap.Seq
		result.Applied = true
	}
	writeJSON(w, r, status, result)
}

func (h *handler) Map(w http.ResponseWriter, r *http.Request) {
	snap := h.refresher.Store().Current()
	writeJSON(w, r, http.StatusOK, mapview.Build(h.mapConfig, snap.Boundaries, snap.Collections.Subsidies))
}

// VerMas backs the "see all" control, which has no detail view yet.
func (h *handler) VerMas(w http.ResponseWriter, r *http.Request) {
	zerolog.Ctx(r.Context()).Info().Str("tipo", chi.URLParam(r, "tipo")).Msg("ver más requested")
	w.WriteHeader(http.StatusNoContent)
}

// Envelope is the aggregation endpoint: the five fixtures read fresh and
// merged into one document.
func (h *handler) Envelope(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	env, err := fetcher.BuildEnvelope(r.Context(), h.source, h.version, h.now())
	if err != nil {
		logger.Error().Err(err).Msg("failed to build envelope")
		h.metrics.IncrementEnvelopeRequests("error")
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.metrics.IncrementEnvelopeRequests("ok")

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(env); err != nil {
		logger.Error().Err(err).Msg("failed to encode envelope")
		http.Error(w, "failed to encode envelope", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}
