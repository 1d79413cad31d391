// Package probe checks backend connectivity by listing models, the one
// endpoint every supported wire family serves cheaply.
package probe

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/internal/httpclient"
	"github.com/sorenhq/llmgate/internal/translate"
)

// probeTimeout bounds a single connectivity check. Probes answer "is it
// reachable", not "is it fast", so this is far below the chat timeout.
const probeTimeout = 10 * time.Second

// Result is the outcome of one connectivity check. A probe never fails as
// an operation; unreachable backends come back with Available false.
type Result struct {
	Provider  domain.ProviderKind `json:"provider"`
	Available bool                `json:"available"`
	LatencyMS int64               `json:"latency_ms"`
	Error     string              `json:"error,omitempty"`
}

// Provider checks a single backend's models endpoint.
func Provider(ctx context.Context, client httpclient.Doer, cfg domain.ProviderConfig) Result {
	trans := translate.ForProvider(cfg.Kind)
	url := chatBase(cfg.BaseURL) + trans.ModelsPath()

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	_, err := httpclient.Send(probeCtx, client, http.MethodGet, url, trans.AuthHeaders(cfg), nil)
	latency := time.Since(start).Milliseconds()

	res := Result{Provider: cfg.Kind, LatencyMS: latency}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Available = true
	return res
}

// All probes every given provider concurrently and keys results by kind.
func All(ctx context.Context, client httpclient.Doer, providers []domain.ProviderConfig) map[string]Result {
	results := make(map[string]Result, len(providers))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, cfg := range providers {
		wg.Add(1)
		go func(cfg domain.ProviderConfig) {
			defer wg.Done()
			r := Provider(ctx, client, cfg)
			mu.Lock()
			results[cfg.Kind.String()] = r
			mu.Unlock()
		}(cfg)
	}
	wg.Wait()
	return results
}

func chatBase(base string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base
}
