// Package dispatch walks a routing decision's candidate chain, attempting
// each backend in order until one succeeds or the chain is exhausted.
package dispatch

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/internal/health"
	"github.com/sorenhq/llmgate/internal/httpclient"
	"github.com/sorenhq/llmgate/internal/platform/logger"
	"github.com/sorenhq/llmgate/internal/registry"
	"github.com/sorenhq/llmgate/internal/route"
	"github.com/sorenhq/llmgate/internal/translate"
	"github.com/sorenhq/llmgate/pkg/schema"
)

// EmitFunc forwards one canonical delta to the caller. The first call
// commits the stream to its backend: failover stops once any delta has
// been forwarded.
type EmitFunc func(chunk *schema.StreamChunk) error

// Dispatcher executes routing decisions against live backends. Every
// attempt's outcome feeds the health tracker regardless of how the overall
// call ends.
type Dispatcher struct {
	client  httpclient.Doer
	tracker *health.Tracker
}

func New(client httpclient.Doer, tracker *health.Tracker) *Dispatcher {
	return &Dispatcher{client: client, tracker: tracker}
}

// Execute runs a non-streaming request down the candidate chain. Each
// attempt gets its own timeout from the settings; retryable failures move
// to the next candidate when failover is enabled.
func (d *Dispatcher) Execute(ctx context.Context, dec *route.Decision, req *schema.ChatRequest, settings domain.GatewaySettings) (*schema.ChatResponse, error) {
	var lastErr error
	attempts := 0

	for _, c := range dec.Candidates {
		attempts++
		resp, retryable, err := d.attempt(ctx, c, req, settings)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if perr := ctx.Err(); perr != nil {
			return nil, perr
		}
		if !retryable || !settings.FailoverEnabled {
			return nil, err
		}
		logger.Warn("backend attempt failed, trying next candidate",
			zap.String("provider", c.Key()),
			zap.String("model", c.Model.ID),
			zap.Error(err))
	}

	return nil, &domain.ExhaustedFailoverError{Attempts: attempts, Last: lastErr}
}

func (d *Dispatcher) attempt(ctx context.Context, c registry.Candidate, req *schema.ChatRequest, settings domain.GatewaySettings) (*schema.ChatResponse, bool, error) {
	trans := translate.ForProvider(c.Provider.Kind)

	wireReq := req.Clone()
	wireReq.Model = c.Model.ID
	wireReq.Stream = false
	body, err := trans.EncodeRequest(wireReq)
	if err != nil {
		return nil, false, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, settings.Timeout())
	defer cancel()

	start := time.Now()
	respBody, err := httpclient.Send(attemptCtx, d.client, http.MethodPost, chatURL(c.Provider, trans), trans.AuthHeaders(c.Provider), body)
	d.tracker.Record(c.Key(), err, time.Since(start))
	if err != nil {
		retryable, wrapped := classify(c, trans, err)
		return nil, retryable, wrapped
	}

	resp, err := trans.DecodeResponse(respBody)
	if err != nil {
		// A backend returning 2xx with an unparseable body is as good as
		// down for this request.
		return nil, true, &domain.ProviderUnavailableError{Provider: c.Key(), Err: err}
	}
	resp.Provider = c.Key()
	if resp.Model == "" {
		resp.Model = c.Model.ID
	}
	return resp, false, nil
}

// ExecuteStream runs a streaming request down the candidate chain. Deltas
// are forwarded through emit as they arrive. A failure before the first
// forwarded delta fails over like a non-streaming attempt; after it, the
// stream is committed and the caller gets a StreamInterruptedError.
func (d *Dispatcher) ExecuteStream(ctx context.Context, dec *route.Decision, req *schema.ChatRequest, settings domain.GatewaySettings, emit EmitFunc) error {
	var lastErr error
	attempts := 0

	for _, c := range dec.Candidates {
		attempts++
		trans := translate.ForProvider(c.Provider.Kind)

		wireReq := req.Clone()
		wireReq.Model = c.Model.ID
		wireReq.Stream = true
		body, err := trans.EncodeRequest(wireReq)
		if err != nil {
			return err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, settings.Timeout())
		start := time.Now()
		emitted := false
		streamErr := httpclient.Stream(attemptCtx, d.client, http.MethodPost, chatURL(c.Provider, trans), trans.AuthHeaders(c.Provider), body, func(line string) error {
			chunk, ok, derr := trans.DecodeChunk(line)
			if derr != nil || !ok {
				return nil
			}
			emitted = true
			return emit(chunk)
		})
		cancel()
		d.tracker.Record(c.Key(), streamErr, time.Since(start))

		if streamErr == nil {
			return nil
		}
		if emitted {
			return &domain.StreamInterruptedError{Provider: c.Key(), Err: streamErr}
		}
		retryable, wrapped := classify(c, trans, streamErr)
		lastErr = wrapped

		if perr := ctx.Err(); perr != nil {
			return perr
		}
		if !retryable || !settings.FailoverEnabled {
			return wrapped
		}
		logger.Warn("stream attempt failed before first delta, trying next candidate",
			zap.String("provider", c.Key()),
			zap.String("model", c.Model.ID),
			zap.Error(wrapped))
	}

	return &domain.ExhaustedFailoverError{Attempts: attempts, Last: lastErr}
}

// classify decides whether a failed attempt may move to the next candidate
// and wraps it for the caller. Connection errors, timeouts, 5xx, and 429
// are retryable; other upstream statuses reflect the request itself.
func classify(c registry.Candidate, trans translate.Translator, err error) (bool, error) {
	var ue *httpclient.UpstreamError
	if errors.As(err, &ue) {
		wrapped := err
		if msg, ok := trans.DecodeError(ue.Body); ok {
			wrapped = errors.New(msg)
		}
		return ue.Retryable(), &domain.ProviderUnavailableError{
			Provider:   c.Key(),
			StatusCode: ue.StatusCode,
			Err:        wrapped,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true, &domain.ProviderUnavailableError{Provider: c.Key(), Timeout: true, Err: err}
	}
	return true, &domain.ProviderUnavailableError{Provider: c.Key(), Err: err}
}

func chatURL(p domain.ProviderConfig, trans translate.Translator) string {
	return strings.TrimRight(p.BaseURL, "/") + trans.ChatPath()
}
