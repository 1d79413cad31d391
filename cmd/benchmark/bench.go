// Command benchmark load-tests the gateway request path in-process against
// a mock openai-family upstream, so results measure routing and translation
// overhead rather than a real provider.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"

	"github.com/sorenhq/llmgate/internal/config"
	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/internal/dispatch"
	"github.com/sorenhq/llmgate/internal/gateway"
	"github.com/sorenhq/llmgate/internal/health"
	"github.com/sorenhq/llmgate/internal/platform/logger"
	"github.com/sorenhq/llmgate/internal/registry"
	"github.com/sorenhq/llmgate/internal/server"
	"github.com/sorenhq/llmgate/internal/store/cache"
)

var (
	unaryResp = []byte(`{"id":"chatcmpl-bench","model":"bench-model","choices":[{"message":{"role":"assistant","content":"benchmark response"},"finish_reason":"stop"}],"usage":{"prompt_tokens":8,"completion_tokens":4,"total_tokens":12}}`)

	streamChunks = []string{
		`data: {"id":"chatcmpl-bench","choices":[{"delta":{"content":"bench"}}]}`,
		`data: {"id":"chatcmpl-bench","choices":[{"delta":{"content":"mark"}}]}`,
		`data: {"id":"chatcmpl-bench","choices":[{"delta":{},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
	}
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "duration of the test")
	rate := flag.Int("rate", 50, "requests per second")
	stream := flag.Bool("stream", false, "use streaming requests")
	flag.Parse()

	logger.Initialize(logger.Config{Level: "error", Format: "console"})

	upstream := startMockUpstream()
	gwAddr := startGateway(upstream)

	mode := "unary"
	if *stream {
		mode = "streaming"
	}
	fmt.Printf("running %s benchmark: %s at %d req/s\n", mode, *duration, *rate)

	body := `{"model":"bench-model","messages":[{"role":"user","content":"hello"}]}`
	if *stream {
		body = `{"model":"bench-model","stream":true,"messages":[{"role":"user","content":"hello"}]}`
	}

	targeter := func(t *vegeta.Target) error {
		t.Method = http.MethodPost
		t.URL = fmt.Sprintf("http://%s/v1/chat/completions", gwAddr)
		t.Body = []byte(body)
		t.Header = http.Header{"Content-Type": []string{"application/json"}}
		return nil
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics
	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rate, Per: time.Second}, *duration, "llmgate") {
		metrics.Add(res)
	}
	metrics.Close()

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("mean:            ", metrics.Latencies.Mean)
	fmt.Println("max:             ", metrics.Latencies.Max)
	fmt.Printf("success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("throughput:      %.2f req/s\n", metrics.Throughput)
}

func startMockUpstream() string {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(unaryResp)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, chunk := range streamChunks {
			fmt.Fprintf(w, "%s\n\n", chunk)
			flusher.Flush()
		}
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("failed to bind mock upstream: %v", err)
	}
	go func() {
		_ = http.Serve(ln, mux)
	}()
	return ln.Addr().String()
}

func startGateway(upstreamAddr string) string {
	settings := domain.GatewaySettings{
		Enabled:         true,
		SmartRouting:    true,
		FailoverEnabled: true,
		TimeoutSeconds:  30,
		DefaultProvider: domain.KindOpenAI,
		Providers: []domain.ProviderConfig{{
			Kind:    domain.KindOpenAI,
			Name:    "bench upstream",
			BaseURL: "http://" + upstreamAddr + "/v1",
			APIKey:  "sk-bench",
			Enabled: true,
			Models:  []domain.ModelConfig{{ID: "bench-model", Name: "bench-model", IsDefault: true}},
		}},
	}

	snap, err := registry.NewSnapshot(settings.Providers)
	if err != nil {
		log.Fatalf("invalid bench catalog: %v", err)
	}

	cfg := &config.Config{
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1e6, Burst: 1 << 20, MaxInFlight: 0},
	}

	tracker := health.NewTracker()
	svc := gateway.NewService(settings, snap, tracker, dispatch.New(&http.Client{}, tracker), cache.NewMemoryCache())
	handler := server.New(cfg, logger.Get(), svc, settings).Handler()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("failed to bind gateway: %v", err)
	}
	go func() {
		_ = http.Serve(ln, handler)
	}()
	return ln.Addr().String()
}
