package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sorenhq/llmgate/internal/core/domain"
)

// SettingsRepository is the contract for the persisted settings layer: a
// key/value table holding JSON blobs.
type SettingsRepository interface {
	// Get returns the stored value for key; ok is false when absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Put stores or replaces the value for key.
	Put(ctx context.Context, key, value string) error

	Close() error
}

// LoadGatewaySettings reads the gateway settings blob, falling back to the
// shipped defaults when nothing has been persisted yet.
func LoadGatewaySettings(ctx context.Context, repo SettingsRepository) (domain.GatewaySettings, error) {
	raw, ok, err := repo.Get(ctx, domain.SettingsKey)
	if err != nil {
		return domain.GatewaySettings{}, fmt.Errorf("failed to load gateway settings: %w", err)
	}
	if !ok {
		return domain.DefaultSettings(), nil
	}

	var settings domain.GatewaySettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return domain.GatewaySettings{}, fmt.Errorf("corrupt gateway settings blob: %w", err)
	}
	return settings, nil
}

// SaveGatewaySettings persists the gateway settings blob.
func SaveGatewaySettings(ctx context.Context, repo SettingsRepository, settings domain.GatewaySettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode gateway settings: %w", err)
	}
	if err := repo.Put(ctx, domain.SettingsKey, string(raw)); err != nil {
		return fmt.Errorf("failed to save gateway settings: %w", err)
	}
	return nil
}
