// Package health keeps cumulative per-provider counters shared by all
// in-flight dispatcher executions.
package health

import (
	"sync"
	"time"

	"github.com/sorenhq/llmgate/internal/core/domain"
)

// Tracker records attempt outcomes and serves read-only snapshots to the
// router and status queries. Safe for concurrent use; no lock is ever held
// across I/O.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*domain.ProviderStatus
}

func NewTracker() *Tracker {
	return &Tracker{stats: make(map[string]*domain.ProviderStatus)}
}

// Record registers one attempt against a provider. Availability follows the
// most recent outcome; counters only grow. No decay or windowing yet.
func (t *Tracker) Record(provider string, attemptErr error, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.stats[provider]
	if !ok {
		st = &domain.ProviderStatus{}
		t.stats[provider] = st
	}

	st.RequestCount++
	st.LatencyMS = latency.Milliseconds()
	if attemptErr != nil {
		st.ErrorCount++
		st.Available = false
		st.LastError = attemptErr.Error()
		return
	}
	st.Available = true
	st.LastError = ""
}

// Snapshot copies the current state. Callers own the returned map.
func (t *Tracker) Snapshot() map[string]domain.ProviderStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]domain.ProviderStatus, len(t.stats))
	for k, v := range t.stats {
		out[k] = *v
	}
	return out
}
