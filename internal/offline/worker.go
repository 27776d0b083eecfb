package offline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Zachdehooge/observatorio/internal/metrics"
)

// CachePrefix starts every derived cache name.
const CachePrefix = "observatorio-"

// ErrInstallFailed is returned when any precache URL cannot be stored.
var ErrInstallFailed = errors.New("offline install failed")

// Options configures a Worker.
type Options struct {
	// Origin is the dashboard the proxy sits in front of. Relative precache
	// URLs resolve against it.
	Origin *url.URL
	// Precache is the fixed list of URLs stored at install time.
	Precache []string
	// CacheName pins the cache name. Empty derives it from the content.
	CacheName string
	Client    *http.Client
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
}

// Worker is the cache-first layer of the offline proxy.
type Worker struct {
	storage  Storage
	origin   *url.URL
	precache []string
	pinned   string
	client   *http.Client
	log      zerolog.Logger
	metrics  *metrics.Metrics

	mu      sync.RWMutex
	current string
}

func NewWorker(storage Storage, opts Options) *Worker {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Worker{
		storage:  storage,
		origin:   opts.Origin,
		precache: opts.Precache,
		pinned:   opts.CacheName,
		client:   client,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Current returns the name of the active cache, empty before activation.
func (w *Worker) Current() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Install fetches every precache URL and stores the responses under one
// cache name. If any fetch fails nothing is stored.
func (w *Worker) Install(ctx context.Context) (string, error) {
	entries := make([]Entry, 0, len(w.precache))
	for _, raw := range w.precache {
		key, err := w.resolve(raw)
		if err != nil {
			w.metrics.IncrementCacheInstalls("error")
			return "", fmt.Errorf("%w: %v", ErrInstallFailed, err)
		}
		entry, err := w.fetch(ctx, key)
		if err != nil {
			w.metrics.IncrementCacheInstalls("error")
			return "", fmt.Errorf("%w: %v", ErrInstallFailed, err)
		}
		entries = append(entries, entry)
	}

	name := w.pinned
	if name == "" {
		name = CacheName(entries)
	}
	if err := w.storage.Put(ctx, name, entries); err != nil {
		w.metrics.IncrementCacheInstalls("error")
		return "", fmt.Errorf("%w: store %s: %v", ErrInstallFailed, name, err)
	}

	w.metrics.IncrementCacheInstalls("ok")
	w.log.Info().Str("cache", name).Int("entries", len(entries)).Msg("offline cache installed")
	return name, nil
}

// Activate makes name the current cache and deletes every other one.
func (w *Worker) Activate(ctx context.Context, name string) error {
	names, err := w.storage.Names(ctx)
	if err != nil {
		return fmt.Errorf("failed to list caches: %w", err)
	}
	for _, old := range names {
		if old == name {
			continue
		}
		if err := w.storage.Delete(ctx, old); err != nil {
			return fmt.Errorf("failed to delete cache %s: %w", old, err)
		}
		w.log.Info().Str("cache", old).Msg("deleted stale offline cache")
	}

	w.mu.Lock()
	w.current = name
	w.mu.Unlock()
	return nil
}

// Update runs install and, when it succeeds, activate.
func (w *Worker) Update(ctx context.Context) (string, error) {
	name, err := w.Install(ctx)
	if err != nil {
		return "", err
	}
	if err := w.Activate(ctx, name); err != nil {
		return "", err
	}
	return name, nil
}

// Handler answers GET and HEAD requests from the cache when a stored entry
// matches and hands everything else to next.
func (w *Worker) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(rw, r)
			return
		}

		key := w.requestKey(r)
		entry, ok, err := w.storage.Match(r.Context(), key)
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("url", key).Msg("offline cache lookup failed")
		}
		if !ok || err != nil {
			w.metrics.IncrementCacheRequests("miss")
			next.ServeHTTP(rw, r)
			return
		}

		w.metrics.IncrementCacheRequests("hit")
		for k, vs := range entry.Header {
			for _, v := range vs {
				rw.Header().Add(k, v)
			}
		}
		rw.Header().Set("Content-Length", strconv.Itoa(len(entry.Body)))
		rw.WriteHeader(entry.Status)
		if r.Method == http.MethodGet {
			_, _ = rw.Write(entry.Body)
		}
	})
}

// CacheName derives a cache name from the stored URLs and bodies, so a new
// name appears exactly when the precached content changes.
func CacheName(entries []Entry) string {
	h := sha256.New()
	for _, e := range entries {
		io.WriteString(h, e.URL)
		h.Write([]byte{0})
		h.Write(e.Body)
		h.Write([]byte{0})
	}
	return CachePrefix + hex.EncodeToString(h.Sum(nil))[:12]
}

func (w *Worker) resolve(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid precache URL %q: %w", raw, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if w.origin == nil {
		return "", fmt.Errorf("relative precache URL %q without an origin", raw)
	}
	return w.origin.ResolveReference(ref).String(), nil
}

func (w *Worker) requestKey(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	if w.origin == nil {
		return r.URL.RequestURI()
	}
	ref, err := url.Parse(r.URL.RequestURI())
	if err != nil {
		return r.URL.RequestURI()
	}
	return w.origin.ResolveReference(ref).String()
}

func (w *Worker) fetch(ctx context.Context, target string) (Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("build request for %s: %w", target, err)
	}
	req.Header.Set("User-Agent", "observatorio-offline/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Entry{}, fmt.Errorf("read %s: %w", target, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := bytes.TrimSpace(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return Entry{}, fmt.Errorf("fetch %s: status %d: %s", target, resp.StatusCode, snippet)
	}

	header := make(http.Header)
	for _, k := range []string{"Content-Type", "Cache-Control", "Last-Modified", "Etag"} {
		if v := resp.Header.Get(k); v != "" {
			header.Set(k, v)
		}
	}
	return Entry{URL: target, Status: resp.StatusCode, Header: header, Body: body}, nil
}
