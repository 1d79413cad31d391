// Package registry materializes the provider/model catalog of one settings
// snapshot into an immutable, validated view for the router.
package registry

import (
	"fmt"

	"github.com/sorenhq/llmgate/internal/core/domain"
)

// Candidate is one (provider, model) pair eligible to serve a request.
type Candidate struct {
	Provider domain.ProviderConfig
	Model    domain.ModelConfig
}

// Key identifies the candidate's provider in health maps and logs.
func (c Candidate) Key() string { return c.Provider.Kind.String() }

// Snapshot is the per-run catalog view. It is built once at gateway start
// and never mutated, so readers need no locking.
type Snapshot struct {
	providers []domain.ProviderConfig
	byKind    map[domain.ProviderKind]int
}

// NewSnapshot validates and freezes the provider list: provider kinds must
// be unique and each provider may mark at most one default model.
func NewSnapshot(providers []domain.ProviderConfig) (*Snapshot, error) {
	s := &Snapshot{
		providers: make([]domain.ProviderConfig, len(providers)),
		byKind:    make(map[domain.ProviderKind]int, len(providers)),
	}
	copy(s.providers, providers)

	for i, p := range s.providers {
		if !p.Kind.Valid() {
			return nil, &domain.ConfigError{Reason: fmt.Sprintf("unknown provider kind %q", p.Kind)}
		}
		if _, dup := s.byKind[p.Kind]; dup {
			return nil, &domain.ConfigError{Reason: fmt.Sprintf("duplicate provider %s", p.Kind)}
		}
		s.byKind[p.Kind] = i

		defaults := 0
		for _, m := range p.Models {
			if m.IsDefault {
				defaults++
			}
		}
		if defaults > 1 {
			return nil, &domain.ConfigError{Reason: fmt.Sprintf("provider %s has %d default models", p.Kind, defaults)}
		}
	}
	return s, nil
}

// Providers returns the catalog in registry order.
func (s *Snapshot) Providers() []domain.ProviderConfig { return s.providers }

// Provider looks up one backend by kind.
func (s *Snapshot) Provider(kind domain.ProviderKind) (domain.ProviderConfig, bool) {
	i, ok := s.byKind[kind]
	if !ok {
		return domain.ProviderConfig{}, false
	}
	return s.providers[i], true
}

// Find locates the first enabled provider offering the exact model id.
func (s *Snapshot) Find(modelID string) (Candidate, bool) {
	for _, p := range s.providers {
		if !p.Enabled {
			continue
		}
		for _, m := range p.Models {
			if m.ID == modelID {
				return Candidate{Provider: p, Model: m}, true
			}
		}
	}
	return Candidate{}, false
}

// EnabledModels lists every model of every enabled provider, registry order.
func (s *Snapshot) EnabledModels() []Candidate {
	var out []Candidate
	for _, p := range s.providers {
		if !p.Enabled {
			continue
		}
		for _, m := range p.Models {
			out = append(out, Candidate{Provider: p, Model: m})
		}
	}
	return out
}
