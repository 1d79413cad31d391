package domain

import "fmt"

// ProviderKind is the closed set of supported backend families.
type ProviderKind string

const (
	KindAnthropic  ProviderKind = "anthropic"
	KindOpenAI     ProviderKind = "openai"
	KindDeepSeek   ProviderKind = "deepseek"
	KindMoonshot   ProviderKind = "moonshot"
	KindQwen       ProviderKind = "qwen"
	KindZhipu      ProviderKind = "zhipu"
	KindGroq       ProviderKind = "groq"
	KindOllama     ProviderKind = "ollama"
	KindOpenRouter ProviderKind = "openrouter"
	KindCustom     ProviderKind = "custom"
)

var displayNames = map[ProviderKind]string{
	KindAnthropic:  "Anthropic",
	KindOpenAI:     "OpenAI",
	KindDeepSeek:   "DeepSeek",
	KindMoonshot:   "Moonshot (Kimi)",
	KindQwen:       "Qwen (Alibaba)",
	KindZhipu:      "Zhipu AI (GLM)",
	KindGroq:       "Groq",
	KindOllama:     "Ollama (Local)",
	KindOpenRouter: "OpenRouter",
	KindCustom:     "Custom",
}

func (k ProviderKind) String() string { return string(k) }

// DisplayName returns the human-readable provider name.
func (k ProviderKind) DisplayName() string {
	if n, ok := displayNames[k]; ok {
		return n
	}
	return string(k)
}

// Valid reports whether k is a member of the closed enumeration.
func (k ProviderKind) Valid() bool {
	_, ok := displayNames[k]
	return ok
}

// ParseProviderKind converts a wire string into a ProviderKind.
func ParseProviderKind(s string) (ProviderKind, error) {
	k := ProviderKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown provider kind %q", s)
	}
	return k, nil
}

// ModelConfig describes one model offered by a provider.
type ModelConfig struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
	// Prices are USD per 1M tokens.
	InputPrice  float64 `json:"input_price"`
	OutputPrice float64 `json:"output_price"`
	MaxTokens   int     `json:"max_tokens"`
	IsDefault   bool    `json:"is_default"`
}

// MeanPrice is the cost-optimization sort key.
func (m ModelConfig) MeanPrice() float64 {
	return (m.InputPrice + m.OutputPrice) / 2
}

// HasCapability reports whether the model declares the given tag.
func (m ModelConfig) HasCapability(tag string) bool {
	for _, c := range m.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// ProviderConfig is one configured backend. APIKey is an opaque credential
// reference and must never be logged.
type ProviderConfig struct {
	Kind    ProviderKind      `json:"provider"`
	Name    string            `json:"name"`
	BaseURL string            `json:"base_url"`
	APIKey  string            `json:"api_key,omitempty"`
	Enabled bool              `json:"enabled"`
	// Lower priority value means more preferred.
	Priority int               `json:"priority"`
	Models   []ModelConfig     `json:"models"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// DefaultModel returns the provider's is-default model, or its first model
// when none is marked.
func (p ProviderConfig) DefaultModel() (ModelConfig, bool) {
	for _, m := range p.Models {
		if m.IsDefault {
			return m, true
		}
	}
	if len(p.Models) > 0 {
		return p.Models[0], true
	}
	return ModelConfig{}, false
}

// HasCredential reports whether the provider can authenticate an outbound
// call. Ollama runs locally and is keyless.
func (p ProviderConfig) HasCredential() bool {
	return p.APIKey != "" || p.Kind == KindOllama
}
