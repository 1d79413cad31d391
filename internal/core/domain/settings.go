package domain

import "time"

// SettingsKey is the settings-store key the gateway blob is persisted under.
const SettingsKey = "llm_gateway_settings"

// GatewaySettings is the materialized configuration snapshot for one run of
// the gateway. It is loaded at start and never mutated while running; edits
// take effect on the next start.
type GatewaySettings struct {
	Enabled          bool             `json:"enabled"`
	Port             int              `json:"port"`
	AutoStart        bool             `json:"auto_start"`
	DefaultProvider  ProviderKind     `json:"default_provider"`
	SmartRouting     bool             `json:"smart_routing"`
	CostOptimization bool             `json:"cost_optimization"`
	FailoverEnabled  bool             `json:"failover_enabled"`
	TimeoutSeconds   int              `json:"timeout_seconds"`
	Providers        []ProviderConfig `json:"providers"`
}

// Timeout converts the per-attempt deadline into a duration.
func (s GatewaySettings) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Provider looks up a configured provider by kind.
func (s GatewaySettings) Provider(kind ProviderKind) (ProviderConfig, bool) {
	for _, p := range s.Providers {
		if p.Kind == kind {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// DefaultSettings mirrors the shipped configuration: gateway off, port 8765,
// smart routing and failover on, full built-in provider catalog.
func DefaultSettings() GatewaySettings {
	return GatewaySettings{
		Enabled:          false,
		Port:             8765,
		AutoStart:        false,
		DefaultProvider:  KindOpenAI,
		SmartRouting:     true,
		CostOptimization: true,
		FailoverEnabled:  true,
		TimeoutSeconds:   120,
		Providers:        DefaultProviders(),
	}
}

// ProviderStatus is the per-backend health record. It is mutated only by the
// dispatcher and the probe, and read by the router and status queries.
type ProviderStatus struct {
	Available    bool   `json:"available"`
	LatencyMS    int64  `json:"latency_ms,omitempty"`
	LastError    string `json:"last_error,omitempty"`
	RequestCount uint64 `json:"request_count"`
	ErrorCount   uint64 `json:"error_count"`
}

// GatewayStatus is the operator-visible snapshot of a running (or last-run)
// gateway instance.
type GatewayStatus struct {
	Running           bool                      `json:"running"`
	Port              int                       `json:"port"`
	RequestsProcessed uint64                    `json:"requests_processed"`
	ProviderStatus    map[string]ProviderStatus `json:"provider_status"`
	LastError         string                    `json:"last_error,omitempty"`
}
