package schemas

// ModelCapabilities describes what a catalog model can do, as reported by the
// provider and refined by curated metadata.
type ModelCapabilities struct {
	Text             bool  `json:"text"`
	Vision           bool  `json:"vision"`
	Image            bool  `json:"image"`
	ToolUse          bool  `json:"tool_use"`
	StructuredOutput bool  `json:"structured_output"`
	Reasoning        bool  `json:"reasoning"`
	AudioIn          *bool `json:"audio_in,omitempty"`
	AudioOut         *bool `json:"audio_out,omitempty"`
	Video            *bool `json:"video,omitempty"`
	VideoIn          *bool `json:"video_in,omitempty"`
}

// TokenPrices holds USD rates per million tokens.
type TokenPrices struct {
	Input  *float64 `json:"input,omitempty"`
	Output *float64 `json:"output,omitempty"`
}

// ModelMetadata is one provider-reported catalog entry after the curated
// overlay has been applied. Values are immutable once constructed; the
// overlay produces a new value rather than mutating in place.
type ModelMetadata struct {
	ID            string            `json:"id"`
	DisplayName   string            `json:"display_name"`
	Provider      ModelProvider     `json:"provider"`
	Capabilities  ModelCapabilities `json:"capabilities"`
	Family        string            `json:"family,omitempty"`
	ContextWindow int               `json:"context_window,omitempty"`
	TokenPrices   *TokenPrices      `json:"token_prices,omitempty"`
	Deprecated    bool              `json:"deprecated,omitempty"`
	InPreview     bool              `json:"in_preview,omitempty"`
}

// EntitlementContext is the resolved per-request identity: one credential
// drawn from the provider's pool plus optional tenant context. It is
// ephemeral and never persisted. APIKeyFingerprint, not the raw key, is used
// as a cache-partition component so no credential material leaks into cache
// keys or logs.
type EntitlementContext struct {
	Provider          ModelProvider `json:"provider,omitempty"`
	APIKey            string        `json:"-"`
	APIKeyFingerprint string        `json:"api_key_fingerprint,omitempty"`
	AccountID         string        `json:"account_id,omitempty"`
	Region            string        `json:"region,omitempty"`
	Environment       string        `json:"environment,omitempty"`
	TenantID          string        `json:"tenant_id,omitempty"`
	UserID            string        `json:"user_id,omitempty"`
}

// ModelModalities describes the input/output modalities of a model record.
type ModelModalities struct {
	Text     bool `json:"text"`
	Vision   bool `json:"vision,omitempty"`
	AudioIn  bool `json:"audio_in,omitempty"`
	AudioOut bool `json:"audio_out,omitempty"`
	ImageOut bool `json:"image_out,omitempty"`
	VideoIn  bool `json:"video_in,omitempty"`
	VideoOut bool `json:"video_out,omitempty"`
}

// ModelFeatures describes request features a model record supports.
type ModelFeatures struct {
	Tools      bool `json:"tools,omitempty"`
	JSONMode   bool `json:"json_mode,omitempty"`
	JSONSchema bool `json:"json_schema,omitempty"`
	Streaming  bool `json:"streaming,omitempty"`
	Batch      bool `json:"batch,omitempty"`
}

// ModelLimits holds token limits for a model record.
type ModelLimits struct {
	ContextTokens   int `json:"context_tokens,omitempty"`
	MaxOutputTokens int `json:"max_output_tokens,omitempty"`
}

// ModelPricing is the pricing block of a model record.
type ModelPricing struct {
	Currency    string   `json:"currency"`
	InputPer1M  *float64 `json:"input_per_1m,omitempty"`
	OutputPer1M *float64 `json:"output_per_1m,omitempty"`
	Source      string   `json:"source,omitempty"`
}

// AvailabilityConfidence states how the registry knows a model's
// entitlement status.
type AvailabilityConfidence string

const (
	// AvailabilityListed means the model appeared in the provider's catalog.
	AvailabilityListed AvailabilityConfidence = "listed"
	// AvailabilityLearned means a recent call failed in a way suggesting the
	// model/credential combination is structurally unavailable.
	AvailabilityLearned AvailabilityConfidence = "learned"
)

// ModelAvailability is the entitlement status of a model record.
type ModelAvailability struct {
	Entitled       bool                   `json:"entitled"`
	LastVerifiedAt string                 `json:"last_verified_at,omitempty"`
	Confidence     AvailabilityConfidence `json:"confidence,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
}

// ModelRecord is the registry's externally-facing normalized model shape.
// It is derived from a ModelMetadata plus a learned-unavailability lookup at
// read time and is not separately stored.
type ModelRecord struct {
	ID              string            `json:"id"` // "provider:model"
	Provider        ModelProvider     `json:"provider"`
	ProviderModelID string            `json:"provider_model_id"`
	DisplayName     string            `json:"display_name,omitempty"`
	Modalities      ModelModalities   `json:"modalities"`
	Features        ModelFeatures     `json:"features"`
	Limits          *ModelLimits      `json:"limits,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	Pricing         *ModelPricing     `json:"pricing,omitempty"`
	Availability    ModelAvailability `json:"availability"`
}

// ListModelsOptions narrows and parameterizes a registry listing.
type ListModelsOptions struct {
	// Providers restricts the listing; empty means the entitlement's
	// provider, else all configured providers.
	Providers []ModelProvider
	// Refresh bypasses live cache entries and forces a fetch.
	Refresh bool
	// Entitlement partitions the cache and scopes learned availability.
	Entitlement *EntitlementContext
}
