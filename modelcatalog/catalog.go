// Package modelcatalog holds the curated model metadata table and the cost
// estimation engine. Curated entries are static, hand-maintained pricing and
// capability data merged onto live provider catalog listings.
package modelcatalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/stratahq/strata/schemas"
)

//go:embed curated_models.json
var curatedModelsJSON []byte

// CuratedCapabilities is a partial capability overlay; nil fields keep the
// provider-reported value.
type CuratedCapabilities struct {
	Text             *bool `json:"text,omitempty"`
	Vision           *bool `json:"vision,omitempty"`
	Image            *bool `json:"image,omitempty"`
	ToolUse          *bool `json:"tool_use,omitempty"`
	StructuredOutput *bool `json:"structured_output,omitempty"`
	Reasoning        *bool `json:"reasoning,omitempty"`
	AudioIn          *bool `json:"audio_in,omitempty"`
	AudioOut         *bool `json:"audio_out,omitempty"`
	Video            *bool `json:"video,omitempty"`
	VideoIn          *bool `json:"video_in,omitempty"`
}

// AudioPrices holds duration-based audio pricing.
type AudioPrices struct {
	PerMinute *float64 `json:"per_minute,omitempty"`
}

// CuratedModel is one entry of the static metadata table. Entries match live
// catalog models by exact id or by longest prefix of the normalized
// (provider-prefix-stripped) model id.
type CuratedModel struct {
	ID            string                `json:"id"`
	Provider      schemas.ModelProvider `json:"provider"`
	DisplayName   string                `json:"display_name,omitempty"`
	Family        string                `json:"family,omitempty"`
	Capabilities  *CuratedCapabilities  `json:"capabilities,omitempty"`
	ContextWindow *int                  `json:"context_window,omitempty"`
	TokenPrices   *schemas.TokenPrices  `json:"token_prices,omitempty"`
	AudioPrices   *AudioPrices          `json:"audio_prices,omitempty"`
	Deprecated    *bool                 `json:"deprecated,omitempty"`
	InPreview     *bool                 `json:"in_preview,omitempty"`
}

// Catalog owns the curated table. All reads and replacements go through its
// lock; the table itself is never mutated in place.
type Catalog struct {
	mu      sync.RWMutex
	curated []CuratedModel
	logger  schemas.Logger
}

// NewCatalog creates a catalog pre-loaded with the embedded curated table.
func NewCatalog(logger schemas.Logger) (*Catalog, error) {
	var curated []CuratedModel
	if err := sonic.Unmarshal(curatedModelsJSON, &curated); err != nil {
		return nil, fmt.Errorf("failed to parse embedded curated models: %w", err)
	}
	return &Catalog{curated: curated, logger: logger}, nil
}

// SetCuratedModels replaces the curated table, e.g. with fresher data
// maintained by the caller.
func (c *Catalog) SetCuratedModels(curated []CuratedModel) {
	c.mu.Lock()
	c.curated = curated
	c.mu.Unlock()
}

// normalizeModelID strips a leading "provider/" prefix from a model id so
// curated lookups match both prefixed and bare forms.
func normalizeModelID(provider schemas.ModelProvider, modelID string) string {
	prefix := string(provider) + "/"
	if strings.HasPrefix(modelID, prefix) {
		return modelID[len(prefix):]
	}
	return modelID
}

// FindCuratedModel returns the curated entry for (provider, modelID), matched
// by exact id or else by the longest curated-id prefix of the normalized
// model id. Returns nil when nothing matches.
func (c *Catalog) FindCuratedModel(provider schemas.ModelProvider, modelID string) *CuratedModel {
	normalized := normalizeModelID(provider, modelID)

	c.mu.RLock()
	defer c.mu.RUnlock()

	var best *CuratedModel
	for i := range c.curated {
		entry := &c.curated[i]
		if entry.Provider != provider || entry.ID == "" {
			continue
		}
		if entry.ID == normalized {
			return entry
		}
		if strings.HasPrefix(normalized, entry.ID) {
			if best == nil || len(entry.ID) > len(best.ID) {
				best = entry
			}
		}
	}
	return best
}
