package health

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerCounters(t *testing.T) {
	tr := NewTracker()

	tr.Record("openai", nil, 120*time.Millisecond)
	tr.Record("openai", errors.New("connection refused"), 5*time.Millisecond)
	tr.Record("openai", nil, 90*time.Millisecond)

	snap := tr.Snapshot()
	st := snap["openai"]
	assert.Equal(t, uint64(3), st.RequestCount)
	assert.Equal(t, uint64(1), st.ErrorCount)
	assert.True(t, st.Available)
	assert.Empty(t, st.LastError)
	assert.Equal(t, int64(90), st.LatencyMS)
}

func TestTrackerAvailabilityFollowsLastOutcome(t *testing.T) {
	tr := NewTracker()

	tr.Record("groq", nil, time.Millisecond)
	tr.Record("groq", errors.New("upstream error: status 503"), time.Millisecond)

	st := tr.Snapshot()["groq"]
	assert.False(t, st.Available)
	assert.Contains(t, st.LastError, "503")
}

func TestTrackerSnapshotIsACopy(t *testing.T) {
	tr := NewTracker()
	tr.Record("ollama", nil, time.Millisecond)

	snap := tr.Snapshot()
	mutated := snap["ollama"]
	mutated.ErrorCount = 99
	snap["ollama"] = mutated

	require.Equal(t, uint64(0), tr.Snapshot()["ollama"].ErrorCount)
}

func TestTrackerConcurrentRecord(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			var err error
			if n%2 == 0 {
				err = errors.New("boom")
			}
			tr.Record("deepseek", err, time.Millisecond)
		}(i)
	}
	wg.Wait()

	st := tr.Snapshot()["deepseek"]
	assert.Equal(t, uint64(50), st.RequestCount)
	assert.Equal(t, uint64(25), st.ErrorCount)
}
