package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/internal/dispatch"
	"github.com/sorenhq/llmgate/internal/health"
	"github.com/sorenhq/llmgate/internal/platform/logger"
	"github.com/sorenhq/llmgate/internal/registry"
	"github.com/sorenhq/llmgate/internal/route"
	"github.com/sorenhq/llmgate/internal/store/cache"
	"github.com/sorenhq/llmgate/pkg/schema"
)

const (
	modelsCacheKey = "gateway:models"
	modelsCacheTTL = 30 * time.Second
)

// Service is the per-run request path: routing, dispatch, model listing.
// Settings and the catalog snapshot are frozen for the lifetime of one
// service instance; edits take effect on the next gateway start.
type Service interface {
	Chat(ctx context.Context, req *schema.ChatRequest) (*schema.ChatResponse, error)
	ChatStream(ctx context.Context, req *schema.ChatRequest, emit dispatch.EmitFunc) error
	Models(ctx context.Context) ([]ModelInfo, error)

	RequestsProcessed() uint64
	Health() map[string]domain.ProviderStatus
	LastError() string
}

// ModelInfo is one entry of the aggregated model listing.
type ModelInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Provider     string   `json:"provider"`
	Capabilities []string `json:"capabilities,omitempty"`
}

type service struct {
	logger     *zap.Logger
	settings   domain.GatewaySettings
	snap       *registry.Snapshot
	tracker    *health.Tracker
	dispatcher *dispatch.Dispatcher
	cache      cache.CacheService

	requests atomic.Uint64

	mu      sync.Mutex
	lastErr string
}

func NewService(settings domain.GatewaySettings, snap *registry.Snapshot, tracker *health.Tracker, dispatcher *dispatch.Dispatcher, cacheSvc cache.CacheService) Service {
	return &service{
		logger:     logger.With(zap.String("component", "gateway")),
		settings:   settings,
		snap:       snap,
		tracker:    tracker,
		dispatcher: dispatcher,
		cache:      cacheSvc,
	}
}

// Chat runs one non-streaming request. The processed counter moves exactly
// once per call, whatever the outcome.
func (s *service) Chat(ctx context.Context, req *schema.ChatRequest) (*schema.ChatResponse, error) {
	s.requests.Add(1)

	dec, err := route.Select(req, s.snap, s.tracker.Snapshot(), s.settings)
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	resp, err := s.dispatcher.Execute(ctx, dec, req, s.settings)
	if err != nil {
		s.recordError(err)
		return nil, err
	}
	return resp, nil
}

func (s *service) ChatStream(ctx context.Context, req *schema.ChatRequest, emit dispatch.EmitFunc) error {
	s.requests.Add(1)

	dec, err := route.Select(req, s.snap, s.tracker.Snapshot(), s.settings)
	if err != nil {
		s.recordError(err)
		return err
	}

	if err := s.dispatcher.ExecuteStream(ctx, dec, req, s.settings, emit); err != nil {
		s.recordError(err)
		return err
	}
	return nil
}

// Models aggregates every enabled provider's models, cached briefly so the
// listing endpoint stays cheap under polling clients.
func (s *service) Models(ctx context.Context) ([]ModelInfo, error) {
	var cached []ModelInfo
	if err := s.cache.Get(ctx, modelsCacheKey, &cached); err == nil {
		return cached, nil
	}

	var out []ModelInfo
	for _, c := range s.snap.EnabledModels() {
		out = append(out, ModelInfo{
			ID:           c.Model.ID,
			Name:         c.Model.Name,
			Provider:     c.Key(),
			Capabilities: c.Model.Capabilities,
		})
	}

	if err := s.cache.Set(ctx, modelsCacheKey, out, modelsCacheTTL); err != nil {
		s.logger.Warn("failed to cache model listing", zap.Error(err))
	}
	return out, nil
}

func (s *service) RequestsProcessed() uint64 {
	return s.requests.Load()
}

func (s *service) Health() map[string]domain.ProviderStatus {
	return s.tracker.Snapshot()
}

func (s *service) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *service) recordError(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
}
