// Package gateway owns the proxy lifecycle and the per-run request path.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/internal/dispatch"
	"github.com/sorenhq/llmgate/internal/health"
	"github.com/sorenhq/llmgate/internal/httpclient"
	"github.com/sorenhq/llmgate/internal/platform/logger"
	"github.com/sorenhq/llmgate/internal/probe"
	"github.com/sorenhq/llmgate/internal/registry"
	"github.com/sorenhq/llmgate/internal/store"
	"github.com/sorenhq/llmgate/internal/store/cache"
)

// State is the gateway lifecycle position.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

// ProxyKey is the placeholder credential local clients authenticate with.
// The gateway substitutes real provider keys on the outbound leg.
const ProxyKey = "gateway-proxy-key"

// HandlerFactory builds the HTTP surface for one run. Supplied by the
// composition root so the server package can depend on Service without a
// cycle.
type HandlerFactory func(svc Service, settings domain.GatewaySettings) http.Handler

// Gateway is the singleton lifecycle owner: it loads settings, binds the
// loopback listener, and serves until stopped. One instance per process.
type Gateway struct {
	repo       store.SettingsRepository
	cache      cache.CacheService
	client     httpclient.Doer
	newHandler HandlerFactory
	logger     *zap.Logger

	mu       sync.Mutex
	state    State
	srv      *http.Server
	svc      Service
	settings domain.GatewaySettings
	lastErr  string
}

func New(repo store.SettingsRepository, cacheSvc cache.CacheService, newHandler HandlerFactory) *Gateway {
	return &Gateway{
		repo:       repo,
		cache:      cacheSvc,
		client:     &http.Client{},
		newHandler: newHandler,
		logger:     logger.With(zap.String("component", "lifecycle")),
	}
}

// Start brings the gateway up: settings are loaded and validated, the
// loopback port is bound, and the server goroutine launched. Fails with
// ConfigError when the gateway is disabled or the catalog is invalid, and
// AlreadyRunningError when called on a running instance.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateStopped {
		return &domain.AlreadyRunningError{}
	}
	g.state = StateStarting

	settings, err := store.LoadGatewaySettings(ctx, g.repo)
	if err != nil {
		g.fail(err)
		return &domain.ConfigError{Reason: err.Error()}
	}
	if !settings.Enabled {
		g.state = StateStopped
		return &domain.ConfigError{Reason: "gateway is disabled in settings"}
	}

	snap, err := registry.NewSnapshot(settings.Providers)
	if err != nil {
		g.fail(err)
		return err
	}

	// Bind before transitioning so a taken port fails Start instead of
	// killing the serve goroutine.
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", settings.Port))
	if err != nil {
		g.fail(err)
		return fmt.Errorf("failed to bind gateway port %d: %w", settings.Port, err)
	}

	tracker := health.NewTracker()
	dispatcher := dispatch.New(g.client, tracker)
	svc := NewService(settings, snap, tracker, dispatcher, g.cache)

	srv := &http.Server{
		Handler:           g.newHandler(svc, settings),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.settings = settings
	g.svc = svc
	g.srv = srv
	g.state = StateRunning
	g.lastErr = ""

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway server exited", zap.Error(err))
			g.mu.Lock()
			g.lastErr = err.Error()
			g.state = StateStopped
			g.mu.Unlock()
		}
	}()

	g.logger.Info("gateway started",
		zap.Int("port", settings.Port),
		zap.String("default_provider", settings.DefaultProvider.String()))
	return nil
}

// Stop drains in-flight requests and releases the port. Stopping a gateway
// that is not running is a no-op.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	if g.state != StateRunning {
		g.mu.Unlock()
		return nil
	}
	g.state = StateStopping
	srv := g.srv
	g.mu.Unlock()

	err := srv.Shutdown(ctx)

	g.mu.Lock()
	g.state = StateStopped
	g.srv = nil
	g.mu.Unlock()

	if err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	g.logger.Info("gateway stopped")
	return nil
}

// Status reports the operator-visible snapshot.
func (g *Gateway) Status() domain.GatewayStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := domain.GatewayStatus{
		Running:   g.state == StateRunning,
		LastError: g.lastErr,
	}
	if g.svc != nil {
		st.RequestsProcessed = g.svc.RequestsProcessed()
		st.ProviderStatus = g.svc.Health()
		if lastErr := g.svc.LastError(); lastErr != "" {
			st.LastError = lastErr
		}
	}
	if st.Running {
		st.Port = g.settings.Port
	}
	return st
}

// EnvVars returns the environment contract local CLI clients point at the
// gateway with. Only meaningful while running.
func (g *Gateway) EnvVars() (map[string]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateRunning {
		return nil, &domain.NotRunningError{}
	}
	return map[string]string{
		"ANTHROPIC_BASE_URL":   fmt.Sprintf("http://127.0.0.1:%d", g.settings.Port),
		"ANTHROPIC_API_KEY":    ProxyKey,
		"ANTHROPIC_AUTH_TOKEN": "",
		"LLM_GATEWAY_PROVIDER": g.settings.DefaultProvider.String(),
	}, nil
}

// Settings loads the persisted settings (defaults when none saved yet).
func (g *Gateway) Settings(ctx context.Context) (domain.GatewaySettings, error) {
	return store.LoadGatewaySettings(ctx, g.repo)
}

// SaveSettings persists settings. A running gateway keeps its frozen
// snapshot; the change applies on the next start.
func (g *Gateway) SaveSettings(ctx context.Context, settings domain.GatewaySettings) error {
	return store.SaveGatewaySettings(ctx, g.repo, settings)
}

// Probe checks connectivity of every enabled provider concurrently.
func (g *Gateway) Probe(ctx context.Context) (map[string]probe.Result, error) {
	settings, err := store.LoadGatewaySettings(ctx, g.repo)
	if err != nil {
		return nil, err
	}

	var enabled []domain.ProviderConfig
	for _, p := range settings.Providers {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	return probe.All(ctx, g.client, enabled), nil
}

func (g *Gateway) fail(err error) {
	g.state = StateStopped
	g.lastErr = err.Error()
}
