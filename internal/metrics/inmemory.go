package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	PredictionsByTier      map[string]uint64
	ScoringDurationCount   uint64
	ScoringDurationTotalNs int64
	PersistFailures        uint64
	ModelReloads           map[string]uint64
	AuthFailures           map[string]uint64
	IdentityCacheHits      uint64
	IdentityCacheMisses    uint64
	RateLimited            map[string]uint64
}

var (
	_ Recorder    = (*InMemoryRecorder)(nil)
	_ Snapshotter = (*InMemoryRecorder)(nil)
)

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	scoringDurationCount   uint64
	scoringDurationTotalNs int64
	persistFailures        uint64
	identityCacheHits      uint64
	identityCacheMisses    uint64

	mu          sync.Mutex
	byTier      map[string]uint64
	reloads     map[string]uint64
	authFail    map[string]uint64
	rateLimited map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		byTier:      make(map[string]uint64),
		reloads:     make(map[string]uint64),
		authFail:    make(map[string]uint64),
		rateLimited: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		PredictionsByTier:      copyCounts(m.byTier),
		ScoringDurationCount:   atomic.LoadUint64(&m.scoringDurationCount),
		ScoringDurationTotalNs: atomic.LoadInt64(&m.scoringDurationTotalNs),
		PersistFailures:        atomic.LoadUint64(&m.persistFailures),
		ModelReloads:           copyCounts(m.reloads),
		AuthFailures:           copyCounts(m.authFail),
		IdentityCacheHits:      atomic.LoadUint64(&m.identityCacheHits),
		IdentityCacheMisses:    atomic.LoadUint64(&m.identityCacheMisses),
		RateLimited:            copyCounts(m.rateLimited),
	}
}

// IncPredictionScored counts a scored application by tier.
func (m *InMemoryRecorder) IncPredictionScored(tier string) {
	m.inc(m.byTier, tier)
}

// ObserveScoringDuration records model inference time.
func (m *InMemoryRecorder) ObserveScoringDuration(duration time.Duration) {
	atomic.AddUint64(&m.scoringDurationCount, 1)
	atomic.AddInt64(&m.scoringDurationTotalNs, duration.Nanoseconds())
}

// IncPredictionPersistFailed counts failed prediction writes.
func (m *InMemoryRecorder) IncPredictionPersistFailed() {
	atomic.AddUint64(&m.persistFailures, 1)
}

// IncModelReload counts reload attempts by status.
func (m *InMemoryRecorder) IncModelReload(status string) {
	m.inc(m.reloads, status)
}

// IncAuthFailure counts rejected credentials by reason.
func (m *InMemoryRecorder) IncAuthFailure(reason string) {
	m.inc(m.authFail, reason)
}

// IncIdentityCacheHit increments identity cache hits.
func (m *InMemoryRecorder) IncIdentityCacheHit() {
	atomic.AddUint64(&m.identityCacheHits, 1)
}

// IncIdentityCacheMiss increments identity cache misses.
func (m *InMemoryRecorder) IncIdentityCacheMiss() {
	atomic.AddUint64(&m.identityCacheMisses, 1)
}

// IncRateLimited counts throttled requests by scope.
func (m *InMemoryRecorder) IncRateLimited(scope string) {
	m.inc(m.rateLimited, scope)
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, key string) {
	m.mu.Lock()
	counts[key]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
