package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/internal/health"
	"github.com/sorenhq/llmgate/internal/registry"
	"github.com/sorenhq/llmgate/internal/route"
	"github.com/sorenhq/llmgate/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
	"id": "chatcmpl-abc",
	"object": "chat.completion",
	"model": "gpt-4o",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "hello"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
}`

func candidate(kind domain.ProviderKind, baseURL, modelID string) registry.Candidate {
	return registry.Candidate{
		Provider: domain.ProviderConfig{
			Kind:    kind,
			Name:    kind.DisplayName(),
			BaseURL: baseURL,
			APIKey:  "sk-test",
			Enabled: true,
		},
		Model: domain.ModelConfig{ID: modelID, Name: modelID},
	}
}

func testSettings() domain.GatewaySettings {
	return domain.GatewaySettings{
		SmartRouting:    true,
		FailoverEnabled: true,
		TimeoutSeconds:  5,
	}
}

func chatRequest() *schema.ChatRequest {
	return &schema.ChatRequest{Messages: []schema.ChatMessage{{Role: "user", Content: "hi"}}}
}

func TestExecuteSuccess(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		fmt.Fprint(w, completionBody)
	}))
	defer srv.Close()

	tracker := health.NewTracker()
	d := New(srv.Client(), tracker)
	dec := &route.Decision{Candidates: []registry.Candidate{candidate(domain.KindOpenAI, srv.URL+"/v1", "gpt-4o")}}

	resp, err := d.Execute(context.Background(), dec, chatRequest(), testSettings())
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, "Bearer sk-test", gotAuth)

	st := tracker.Snapshot()["openai"]
	assert.True(t, st.Available)
	assert.Equal(t, uint64(1), st.RequestCount)
	assert.Equal(t, uint64(0), st.ErrorCount)
}

func TestExecuteFailsOverOn5xx(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody)
	}))
	defer good.Close()

	tracker := health.NewTracker()
	d := New(http.DefaultClient, tracker)
	dec := &route.Decision{Candidates: []registry.Candidate{
		candidate(domain.KindGroq, bad.URL+"/v1", "llama-3.3-70b"),
		candidate(domain.KindOpenAI, good.URL+"/v1", "gpt-4o"),
	}}

	resp, err := d.Execute(context.Background(), dec, chatRequest(), testSettings())
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "openai", resp.Provider)

	snap := tracker.Snapshot()
	assert.False(t, snap["groq"].Available)
	assert.Equal(t, uint64(1), snap["groq"].ErrorCount)
	assert.True(t, snap["openai"].Available)
}

func TestExecuteDoesNotRetryClientErrors(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad prompt"}}`, http.StatusBadRequest)
	}))
	defer bad.Close()

	secondHit := false
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondHit = true
		fmt.Fprint(w, completionBody)
	}))
	defer second.Close()

	d := New(http.DefaultClient, health.NewTracker())
	dec := &route.Decision{Candidates: []registry.Candidate{
		candidate(domain.KindOpenAI, bad.URL+"/v1", "gpt-4o"),
		candidate(domain.KindGroq, second.URL+"/v1", "llama-3.3-70b"),
	}}

	_, err := d.Execute(context.Background(), dec, chatRequest(), testSettings())
	var unavailable *domain.ProviderUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, http.StatusBadRequest, unavailable.StatusCode)
	assert.Contains(t, unavailable.Err.Error(), "bad prompt")
	assert.False(t, secondHit, "a 4xx must not fail over")
}

func TestExecuteStopsWhenFailoverDisabled(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	secondHit := false
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondHit = true
		fmt.Fprint(w, completionBody)
	}))
	defer second.Close()

	settings := testSettings()
	settings.FailoverEnabled = false
	d := New(http.DefaultClient, health.NewTracker())
	dec := &route.Decision{Candidates: []registry.Candidate{
		candidate(domain.KindOpenAI, bad.URL+"/v1", "gpt-4o"),
		candidate(domain.KindGroq, second.URL+"/v1", "llama-3.3-70b"),
	}}

	_, err := d.Execute(context.Background(), dec, chatRequest(), settings)
	var unavailable *domain.ProviderUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.False(t, secondHit)
}

func TestExecuteExhaustsChain(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer down.Close()

	tracker := health.NewTracker()
	d := New(http.DefaultClient, tracker)
	dec := &route.Decision{Candidates: []registry.Candidate{
		candidate(domain.KindOpenAI, down.URL+"/v1", "gpt-4o"),
		candidate(domain.KindGroq, down.URL+"/v1", "llama-3.3-70b"),
	}}

	_, err := d.Execute(context.Background(), dec, chatRequest(), testSettings())
	var exhausted *domain.ExhaustedFailoverError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)

	var unavailable *domain.ProviderUnavailableError
	assert.ErrorAs(t, exhausted.Last, &unavailable)
}

func TestExecuteTimeoutFailsOver(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer slow.Close()
	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody)
	}))
	defer fast.Close()

	settings := testSettings()
	settings.TimeoutSeconds = 1
	tracker := health.NewTracker()
	d := New(http.DefaultClient, tracker)
	dec := &route.Decision{Candidates: []registry.Candidate{
		candidate(domain.KindOpenAI, slow.URL+"/v1", "gpt-4o"),
		candidate(domain.KindGroq, fast.URL+"/v1", "llama-3.3-70b"),
	}}

	resp, err := d.Execute(context.Background(), dec, chatRequest(), settings)
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.False(t, tracker.Snapshot()["openai"].Available)
}

func sseHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, l := range lines {
			fmt.Fprintf(w, "%s\n\n", l)
			flusher.Flush()
		}
	}
}

func TestExecuteStreamForwardsDeltas(t *testing.T) {
	srv := httptest.NewServer(sseHandler(
		`data: {"id":"chatcmpl-abc","choices":[{"delta":{"role":"assistant"}}]}`,
		`data: {"id":"chatcmpl-abc","choices":[{"delta":{"content":"hel"}}]}`,
		`data: {"id":"chatcmpl-abc","choices":[{"delta":{"content":"lo"}}]}`,
		`data: {"id":"chatcmpl-abc","choices":[{"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`,
		`data: [DONE]`,
	))
	defer srv.Close()

	tracker := health.NewTracker()
	d := New(http.DefaultClient, tracker)
	dec := &route.Decision{Candidates: []registry.Candidate{candidate(domain.KindOpenAI, srv.URL+"/v1", "gpt-4o")}}

	var text strings.Builder
	var stop string
	err := d.ExecuteStream(context.Background(), dec, chatRequest(), testSettings(), func(c *schema.StreamChunk) error {
		text.WriteString(c.Delta)
		if c.StopReason != "" {
			stop = c.StopReason
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", text.String())
	assert.Equal(t, "stop", stop)
	assert.True(t, tracker.Snapshot()["openai"].Available)
}

func TestExecuteStreamFailsOverBeforeFirstDelta(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer bad.Close()
	good := httptest.NewServer(sseHandler(
		`data: {"id":"chatcmpl-abc","choices":[{"delta":{"content":"ok"}}]}`,
		`data: {"id":"chatcmpl-abc","choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	))
	defer good.Close()

	d := New(http.DefaultClient, health.NewTracker())
	dec := &route.Decision{Candidates: []registry.Candidate{
		candidate(domain.KindGroq, bad.URL+"/v1", "llama-3.3-70b"),
		candidate(domain.KindOpenAI, good.URL+"/v1", "gpt-4o"),
	}}

	var text strings.Builder
	err := d.ExecuteStream(context.Background(), dec, chatRequest(), testSettings(), func(c *schema.StreamChunk) error {
		text.WriteString(c.Delta)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", text.String())
}

func TestExecuteStreamInterruptionDoesNotFailOver(t *testing.T) {
	// First backend forwards a delta, then stalls past the attempt timeout.
	stalling := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"id\":\"chatcmpl-abc\",\"choices\":[{\"delta\":{\"content\":\"par\"}}]}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer stalling.Close()

	secondHit := false
	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secondHit = true
	}))
	defer second.Close()

	settings := testSettings()
	settings.TimeoutSeconds = 1
	d := New(http.DefaultClient, health.NewTracker())
	dec := &route.Decision{Candidates: []registry.Candidate{
		candidate(domain.KindOpenAI, stalling.URL+"/v1", "gpt-4o"),
		candidate(domain.KindGroq, second.URL+"/v1", "llama-3.3-70b"),
	}}

	var text strings.Builder
	err := d.ExecuteStream(context.Background(), dec, chatRequest(), settings, func(c *schema.StreamChunk) error {
		text.WriteString(c.Delta)
		return nil
	})

	var interrupted *domain.StreamInterruptedError
	require.ErrorAs(t, err, &interrupted)
	assert.Equal(t, "openai", interrupted.Provider)
	assert.Equal(t, "par", text.String())
	assert.False(t, secondHit, "a committed stream must not retry on another backend")
}
