package schemas

import "strings"

// DefaultRequestTimeoutInSeconds is applied when a provider config does not
// set its own timeout.
const DefaultRequestTimeoutInSeconds = 30

// NetworkConfig holds connection settings shared by all providers.
type NetworkConfig struct {
	BaseURL                        string            `json:"base_url,omitempty" yaml:"base_url"`
	DefaultRequestTimeoutInSeconds int               `json:"default_request_timeout_in_seconds,omitempty" yaml:"timeout_seconds"`
	ExtraHeaders                   map[string]string `json:"extra_headers,omitempty" yaml:"extra_headers"`
}

// MetaConfig holds provider-specific flags. Only the fields relevant to a
// given provider are consulted by its adapter constructor.
type MetaConfig struct {
	// OpenAI / OpenAI-compatible
	Organization string `json:"organization,omitempty" yaml:"organization"`
	// Anthropic
	Version string `json:"version,omitempty" yaml:"version"`
	// XAI
	CompatibilityMode string `json:"compatibility_mode,omitempty" yaml:"compatibility_mode"`
	// Bedrock
	Region          string `json:"region,omitempty" yaml:"region"`
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key"`
}

// ProviderConfig is one provider's connection settings: one or more API keys,
// base URL, timeouts, and provider-specific flags. It is owned by the caller
// and immutable once handed to the kit; the kit derives per-request copies
// via WithAPIKey.
type ProviderConfig struct {
	// Keys are the credentials pooled for round-robin selection. Blank
	// entries and duplicates are dropped at kit construction.
	Keys          []string      `json:"keys,omitempty" yaml:"keys"`
	NetworkConfig NetworkConfig `json:"network_config,omitempty" yaml:"network"`
	MetaConfig    *MetaConfig   `json:"meta_config,omitempty" yaml:"meta"`
}

// CheckAndSetDefaults normalizes a provider config in place before adapter
// construction.
func (config *ProviderConfig) CheckAndSetDefaults() {
	if config.NetworkConfig.DefaultRequestTimeoutInSeconds <= 0 {
		config.NetworkConfig.DefaultRequestTimeoutInSeconds = DefaultRequestTimeoutInSeconds
	}
	config.NetworkConfig.BaseURL = strings.TrimRight(config.NetworkConfig.BaseURL, "/")
}

// Clone returns a deep copy of the config. The kit normalizes and stores a
// clone at construction, so the caller's value is never mutated. The copy is
// explicit field by field; no reflection is involved.
func (config *ProviderConfig) Clone() *ProviderConfig {
	clone := ProviderConfig{
		NetworkConfig: config.NetworkConfig,
	}
	if config.Keys != nil {
		clone.Keys = append([]string(nil), config.Keys...)
	}
	if config.NetworkConfig.ExtraHeaders != nil {
		headers := make(map[string]string, len(config.NetworkConfig.ExtraHeaders))
		for k, v := range config.NetworkConfig.ExtraHeaders {
			headers[k] = v
		}
		clone.NetworkConfig.ExtraHeaders = headers
	}
	if config.MetaConfig != nil {
		meta := *config.MetaConfig
		clone.MetaConfig = &meta
	}
	return &clone
}

// WithAPIKey returns a copy of the config with the key list replaced by the
// single resolved key. Every other field carries over unchanged. This is the
// explicit clone used to build per-request, entitlement-bound adapters.
func (config *ProviderConfig) WithAPIKey(apiKey string) *ProviderConfig {
	clone := config.Clone()
	clone.Keys = []string{apiKey}
	return clone
}

// KitConfig configures a Strata kit. At least one of Providers, Adapters, or
// AdapterResolvers must be set.
type KitConfig struct {
	// Providers maps provider names to their connection configs. The kit
	// builds a credential pool and a static adapter per entry.
	Providers map[ModelProvider]*ProviderConfig
	// Adapters supplies pre-built adapters, merged over the statically
	// constructed ones.
	Adapters map[ModelProvider]Provider
	// AdapterResolvers are consulted before the kit's own resolution; the
	// first resolver returning a non-nil adapter wins.
	AdapterResolvers []AdapterResolver
	// RegistryTTLSeconds is the model catalog cache TTL (default 1800).
	RegistryTTLSeconds int
	// LearnedTTLSeconds is the learned-unavailability TTL (default 1200).
	LearnedTTLSeconds int
	// Logger receives kit diagnostics; defaults to a zerolog-backed logger
	// at info level.
	Logger Logger
}
