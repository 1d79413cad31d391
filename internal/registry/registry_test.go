package registry

import (
	"testing"

	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshotRejectsDuplicateKinds(t *testing.T) {
	_, err := NewSnapshot([]domain.ProviderConfig{
		{Kind: domain.KindOpenAI, Name: "A"},
		{Kind: domain.KindOpenAI, Name: "B"},
	})
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "duplicate")
}

func TestNewSnapshotRejectsMultipleDefaults(t *testing.T) {
	_, err := NewSnapshot([]domain.ProviderConfig{
		{
			Kind: domain.KindGroq,
			Models: []domain.ModelConfig{
				{ID: "m1", IsDefault: true},
				{ID: "m2", IsDefault: true},
			},
		},
	})
	var cfgErr *domain.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestSnapshotFindSkipsDisabledProviders(t *testing.T) {
	snap, err := NewSnapshot([]domain.ProviderConfig{
		{Kind: domain.KindOpenAI, Enabled: false, Models: []domain.ModelConfig{{ID: "gpt-4o"}}},
		{Kind: domain.KindOpenRouter, Enabled: true, Models: []domain.ModelConfig{{ID: "gpt-4o"}}},
	})
	require.NoError(t, err)

	cand, ok := snap.Find("gpt-4o")
	require.True(t, ok)
	assert.Equal(t, domain.KindOpenRouter, cand.Provider.Kind)

	_, ok = snap.Find("missing-model")
	assert.False(t, ok)
}

func TestSnapshotWithDefaultCatalog(t *testing.T) {
	snap, err := NewSnapshot(domain.DefaultProviders())
	require.NoError(t, err)

	p, ok := snap.Provider(domain.KindDeepSeek)
	require.True(t, ok)
	m, ok := p.DefaultModel()
	require.True(t, ok)
	assert.Equal(t, "deepseek-coder", m.ID)

	// Catalog ships disabled, so nothing is listed yet.
	assert.Empty(t, snap.EnabledModels())
}
