// Package route turns one canonical request into an ordered failover chain
// of (provider, model) candidates.
package route

import (
	"fmt"
	"sort"

	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/internal/registry"
	"github.com/sorenhq/llmgate/pkg/schema"
)

// Decision is the ordered candidate list for one request. It is consumed
// once by the dispatcher and then discarded.
type Decision struct {
	Candidates []registry.Candidate
}

// Select produces a non-empty Decision or a NoCandidateError.
//
// With smart routing off the decision is exactly the settings' default
// provider and its default model. With it on, providers are filtered to
// enabled + credentialed, models to the capability hint, unavailable
// backends are dropped (kept as a last resort when that would empty the
// chain), and the survivors are ordered by priority, then mean price when
// cost optimization is on, then default-model-first. An explicit model id
// pins its candidate to the front; the rest stays behind it as failover.
func Select(req *schema.ChatRequest, snap *registry.Snapshot, health map[string]domain.ProviderStatus, settings domain.GatewaySettings) (*Decision, error) {
	if !settings.SmartRouting {
		return defaultOnly(snap, settings)
	}

	var candidates []registry.Candidate
	for _, p := range snap.Providers() {
		if !p.Enabled || !p.HasCredential() {
			continue
		}
		for _, m := range p.Models {
			if req.Capability != "" && !m.HasCapability(req.Capability) {
				continue
			}
			candidates = append(candidates, registry.Candidate{Provider: p, Model: m})
		}
	}
	if len(candidates) == 0 {
		return nil, &domain.NoCandidateError{Reason: noCandidateReason(req)}
	}

	// Drop backends the tracker reports down, but never drop everything:
	// a fully-dark health map means the dispatcher gets to rediscover.
	available := candidates[:0:0]
	for _, c := range candidates {
		if st, known := health[c.Key()]; known && !st.Available {
			continue
		}
		available = append(available, c)
	}
	if len(available) > 0 {
		candidates = available
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Provider.Priority != b.Provider.Priority {
			return a.Provider.Priority < b.Provider.Priority
		}
		if settings.CostOptimization {
			if pa, pb := a.Model.MeanPrice(), b.Model.MeanPrice(); pa != pb {
				return pa < pb
			}
		}
		return a.Model.IsDefault && !b.Model.IsDefault
	})

	if req.Model != "" {
		candidates = pinExplicitModel(req.Model, candidates, snap)
	}

	return &Decision{Candidates: candidates}, nil
}

func defaultOnly(snap *registry.Snapshot, settings domain.GatewaySettings) (*Decision, error) {
	p, ok := snap.Provider(settings.DefaultProvider)
	if !ok {
		return nil, &domain.NoCandidateError{Reason: fmt.Sprintf("default provider %s is not configured", settings.DefaultProvider)}
	}
	if !p.Enabled {
		return nil, &domain.NoCandidateError{Reason: fmt.Sprintf("default provider %s is disabled", settings.DefaultProvider)}
	}
	m, ok := p.DefaultModel()
	if !ok {
		return nil, &domain.NoCandidateError{Reason: fmt.Sprintf("default provider %s has no models", settings.DefaultProvider)}
	}
	return &Decision{Candidates: []registry.Candidate{{Provider: p, Model: m}}}, nil
}

// pinExplicitModel moves the requested model to the head of the chain. An
// explicit id overrides ordering and the health filter, but not the
// enabled/credential filter it may have fallen out of.
func pinExplicitModel(modelID string, candidates []registry.Candidate, snap *registry.Snapshot) []registry.Candidate {
	for i, c := range candidates {
		if c.Model.ID == modelID {
			pinned := append([]registry.Candidate{c}, candidates[:i]...)
			return append(pinned, candidates[i+1:]...)
		}
	}
	if c, ok := snap.Find(modelID); ok && c.Provider.HasCredential() {
		return append([]registry.Candidate{c}, candidates...)
	}
	return candidates
}

func noCandidateReason(req *schema.ChatRequest) string {
	if req.Capability != "" {
		return fmt.Sprintf("no enabled provider offers capability %q", req.Capability)
	}
	return "no enabled provider with a usable credential"
}
