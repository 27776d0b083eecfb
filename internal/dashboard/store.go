package dashboard

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Zachdehooge/observatorio/internal/fetcher"
)

// Snapshot is the immutable result of one successful cycle. A snapshot is
// never modified after it is stored.
type Snapshot struct {
	Seq         uint64
	CycleID     string
	Trigger     Trigger
	Collections fetcher.Collections
	// Boundaries is nil when the boundary layer could not be loaded.
	Boundaries []fetcher.Boundary
	LoadedAt   time.Time
}

var emptySnapshot = &Snapshot{
	Collections: fetcher.Collections{
		Bulletin:  []fetcher.BulletinEntry{},
		Alerts:    []fetcher.Alert{},
		Subsidies: []fetcher.Subsidy{},
		Spending:  []fetcher.SpendingLine{},
		Promises:  []fetcher.Promise{},
	},
}

// Banner is a transient error message.
type Banner struct {
	Message   string
	ExpiresAt time.Time
}

// Store holds the current snapshot and the error banner.
type Store struct {
	current atomic.Pointer[Snapshot]

	mu     sync.Mutex
	banner Banner
}

// NewStore returns a store holding an empty snapshot.
func NewStore() *Store {
	return &Store{}
}

// Current returns the latest applied snapshot.
func (s *Store) Current() *Snapshot {
	if snap := s.current.Load(); snap != nil {
		return snap
	}
	return emptySnapshot
}

// Swap installs next unless a snapshot with an equal or higher sequence
// number is already applied. It reports whether next was installed.
func (s *Store) Swap(next *Snapshot) bool {
	for {
		cur := s.current.Load()
		if cur != nil && cur.Seq >= next.Seq {
			return false
		}
		if s.current.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// SetBanner shows message until now+ttl.
func (s *Store) SetBanner(message string, now time.Time, ttl time.Duration) {
	s.mu.Lock()
	s.banner = Banner{Message: message, ExpiresAt: now.Add(ttl)}
	s.mu.Unlock()
}

// Banner returns the banner message if it has not expired at now.
func (s *Store) Banner(now time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.banner.Message == "" || !now.Before(s.banner.ExpiresAt) {
		return "", false
	}
	return s.banner.Message, true
}
