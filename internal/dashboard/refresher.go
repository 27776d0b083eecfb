package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Zachdehooge/observatorio/internal/fetcher"
	"github.com/Zachdehooge/observatorio/internal/metrics"
)

// Trigger names what started a cycle.
type Trigger string

const (
	TriggerLoad   Trigger = "load"
	TriggerManual Trigger = "manual"
	TriggerTimer  Trigger = "timer"
	TriggerWatch  Trigger = "watch"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultInterval  = 5 * time.Minute
	DefaultBannerTTL = 5 * time.Second
)

// ErrorMessage is the banner shown after a failed cycle.
const ErrorMessage = "Error al cargar los datos. Por favor, recarga la página."

// ErrStaleCycle is returned when a cycle finished after a newer cycle had
// already been applied; its result is discarded.
var ErrStaleCycle = errors.New("stale cycle discarded")

// Options configures a Refresher.
type Options struct {
	Interval  time.Duration
	BannerTTL time.Duration
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Refresher runs fetch cycles and applies their results to a Store.
type Refresher struct {
	loader    fetcher.Loader
	store     *Store
	seq       atomic.Uint64
	interval  time.Duration
	bannerTTL time.Duration
	log       zerolog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewRefresher wires loader to store.
func NewRefresher(loader fetcher.Loader, store *Store, opts Options) *Refresher {
	r := &Refresher{
		loader:    loader,
		store:     store,
		interval:  opts.Interval,
		bannerTTL: opts.BannerTTL,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		now:       opts.Now,
	}
	if r.interval <= 0 {
		r.interval = DefaultInterval
	}
	if r.bannerTTL <= 0 {
		r.bannerTTL = DefaultBannerTTL
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Store returns the store the refresher writes to.
func (r *Refresher) Store() *Store {
	return r.store
}

// Refresh runs one cycle. The sequence number is taken when the cycle
// starts, so a slow cycle cannot overwrite one triggered after it. On
// failure the previous snapshot stays in place and the banner is shown.
func (r *Refresher) Refresh(ctx context.Context, trigger Trigger) (*Snapshot, error) {
	seq := r.seq.Add(1)
	start := time.Now()
	cycleID := uuid.NewString()
	log := r.log.With().
		Uint64("seq", seq).
		Str("cycle", cycleID).
		Str("trigger", string(trigger)).
		Logger()

	collections, err := r.loader.Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load dashboard data")
		r.store.SetBanner(ErrorMessage, r.now(), r.bannerTTL)
		r.metrics.ObserveCycle(string(trigger), "error", start)
		return nil, err
	}

	boundaries, err := r.loader.Boundaries(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("boundary layer unavailable, map overlay omitted")
		boundaries = nil
	}

	snap := &Snapshot{
		Seq:         seq,
		CycleID:     cycleID,
		Trigger:     trigger,
		Collections: collections,
		Boundaries:  boundaries,
		LoadedAt:    r.now(),
	}
	if !r.store.Swap(snap) {
		log.Debug().Msg("newer cycle already applied, discarding result")
		r.metrics.IncrementStaleCycles()
		r.metrics.ObserveCycle(string(trigger), "stale", start)
		return r.store.Current(), ErrStaleCycle
	}

	log.Info().
		Int("boe", len(collections.Bulletin)).
		Int("alertas", len(collections.Alerts)).
		Int("subvenciones", len(collections.Subsidies)).
		Int("gasto", len(collections.Spending)).
		Int("promesas", len(collections.Promises)).
		Msg("dashboard data refreshed")
	r.metrics.ObserveCycle(string(trigger), "ok", start)
	return snap, nil
}

// Run performs the initial load and then one cycle per interval until ctx
// is cancelled. Failed cycles are logged; the timer keeps firing.
func (r *Refresher) Run(ctx context.Context) {
	_, _ = r.Refresh(ctx, TriggerLoad)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.Refresh(ctx, TriggerTimer)
		}
	}
}
