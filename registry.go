package strata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stratahq/strata/modelcatalog"
	"github.com/stratahq/strata/schemas"
)

const (
	// DefaultRegistryTTLSeconds is how long a live catalog listing stays fresh.
	DefaultRegistryTTLSeconds = 1800
	// DefaultLearnedTTLSeconds is how long a learned-unavailability mark holds.
	DefaultLearnedTTLSeconds = 1200
)

// listFetcher fetches one provider's live catalog under one entitlement.
type listFetcher func(ctx context.Context, provider schemas.ModelProvider, entitlement *schemas.EntitlementContext) ([]schemas.ModelMetadata, error)

type cacheEntry struct {
	models    []schemas.ModelMetadata
	fetchedAt time.Time
}

type learnedEntry struct {
	reason    string
	learnedAt time.Time
	expiresAt time.Time
}

// modelRegistry is the TTL-cached model catalog. Cache entries are
// partitioned by provider and entitlement so one tenant's listing never
// leaks into another's; learned-unavailability marks share the same
// partitioning. All state lives behind one RWMutex. The clock is injectable
// so expiry is testable without sleeping.
type modelRegistry struct {
	mu      sync.RWMutex
	cache   map[string]cacheEntry
	learned map[string]learnedEntry

	ttl        time.Duration
	learnedTTL time.Duration
	now        func() time.Time

	catalog *modelcatalog.Catalog
	logger  schemas.Logger
}

func newModelRegistry(catalog *modelcatalog.Catalog, ttlSeconds, learnedTTLSeconds int, logger schemas.Logger) *modelRegistry {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultRegistryTTLSeconds
	}
	if learnedTTLSeconds <= 0 {
		learnedTTLSeconds = DefaultLearnedTTLSeconds
	}
	return &modelRegistry{
		cache:      make(map[string]cacheEntry),
		learned:    make(map[string]learnedEntry),
		ttl:        time.Duration(ttlSeconds) * time.Second,
		learnedTTL: time.Duration(learnedTTLSeconds) * time.Second,
		now:        time.Now,
		catalog:    catalog,
		logger:     logger,
	}
}

// cacheKey builds the pipe-joined partition key for one provider under one
// entitlement. The credential enters only as its fingerprint; an entitlement
// without a credential partitions under "default".
func cacheKey(provider schemas.ModelProvider, entitlement *schemas.EntitlementContext) string {
	fingerprint := "default"
	var accountID, region, environment, tenantID, userID string
	if entitlement != nil {
		if entitlement.APIKeyFingerprint != "" {
			fingerprint = entitlement.APIKeyFingerprint
		}
		accountID = entitlement.AccountID
		region = entitlement.Region
		environment = entitlement.Environment
		tenantID = entitlement.TenantID
		userID = entitlement.UserID
	}
	return strings.Join([]string{
		string(provider), fingerprint, accountID, region, environment, tenantID, userID,
	}, "|")
}

func learnedKey(provider schemas.ModelProvider, modelID string, entitlement *schemas.EntitlementContext) string {
	return cacheKey(provider, entitlement) + "|" + modelID
}

// listProvider returns one provider's catalog, serving a fresh cache entry
// when possible, fetching otherwise, and falling back to a stale entry when
// the fetch fails. Staleness of the fallback is unbounded: a reachable answer
// beats none.
func (r *modelRegistry) listProvider(ctx context.Context, provider schemas.ModelProvider, entitlement *schemas.EntitlementContext, refresh bool, fetch listFetcher) ([]schemas.ModelMetadata, error) {
	key := cacheKey(provider, entitlement)

	if !refresh {
		r.mu.RLock()
		entry, ok := r.cache[key]
		r.mu.RUnlock()
		if ok && r.now().Sub(entry.fetchedAt) < r.ttl {
			return entry.models, nil
		}
	}

	fetched, err := fetch(ctx, provider, entitlement)
	if err != nil {
		r.mu.RLock()
		entry, ok := r.cache[key]
		r.mu.RUnlock()
		if ok {
			r.logger.Warn(fmt.Sprintf("catalog fetch for %s failed, serving stale listing: %v", provider, err))
			return entry.models, nil
		}
		return nil, err
	}

	merged := make([]schemas.ModelMetadata, 0, len(fetched))
	for _, model := range fetched {
		merged = append(merged, r.catalog.ApplyCuratedMetadata(model))
	}

	r.mu.Lock()
	r.cache[key] = cacheEntry{models: merged, fetchedAt: r.now()}
	r.mu.Unlock()
	return merged, nil
}

// learn records that (provider, model) looked structurally unavailable under
// this entitlement. Only failures that indicate entitlement or existence are
// recorded (NOT_FOUND and VALIDATION kinds, or upstream 400/403/404);
// transient load failures are ignored.
func (r *modelRegistry) learn(provider schemas.ModelProvider, modelID string, entitlement *schemas.EntitlementContext, serr *schemas.StrataError) {
	if serr == nil || modelID == "" {
		return
	}
	eligible := serr.Kind == schemas.ErrorProviderNotFound || serr.Kind == schemas.ErrorValidation
	switch serr.UpstreamStatus {
	case 400, 403, 404:
		eligible = true
	}
	if !eligible {
		return
	}

	now := r.now()
	key := learnedKey(provider, modelID, entitlement)
	r.mu.Lock()
	r.learned[key] = learnedEntry{
		reason:    serr.Message,
		learnedAt: now,
		expiresAt: now.Add(r.learnedTTL),
	}
	r.mu.Unlock()
	r.logger.Debug(fmt.Sprintf("learned %s:%s unavailable: %s", provider, modelID, serr.Message))
}

// learnedFor returns the active learned mark for (provider, model) under this
// entitlement, deleting it lazily when expired.
func (r *modelRegistry) learnedFor(provider schemas.ModelProvider, modelID string, entitlement *schemas.EntitlementContext) (learnedEntry, bool) {
	key := learnedKey(provider, modelID, entitlement)

	r.mu.RLock()
	entry, ok := r.learned[key]
	r.mu.RUnlock()
	if !ok {
		return learnedEntry{}, false
	}
	if !r.now().Before(entry.expiresAt) {
		r.mu.Lock()
		delete(r.learned, key)
		r.mu.Unlock()
		return learnedEntry{}, false
	}
	return entry, true
}

// toRecord derives the externally-facing record from a merged listing plus
// the learned-unavailability lookup done at read time.
func (r *modelRegistry) toRecord(model schemas.ModelMetadata, entitlement *schemas.EntitlementContext) schemas.ModelRecord {
	record := schemas.ModelRecord{
		ID:              fmt.Sprintf("%s:%s", model.Provider, model.ID),
		Provider:        model.Provider,
		ProviderModelID: model.ID,
		DisplayName:     model.DisplayName,
		Modalities: schemas.ModelModalities{
			Text:     model.Capabilities.Text,
			Vision:   model.Capabilities.Vision,
			ImageOut: model.Capabilities.Image,
			AudioIn:  model.Capabilities.AudioIn != nil && *model.Capabilities.AudioIn,
			AudioOut: model.Capabilities.AudioOut != nil && *model.Capabilities.AudioOut,
			VideoIn:  model.Capabilities.VideoIn != nil && *model.Capabilities.VideoIn,
			VideoOut: model.Capabilities.Video != nil && *model.Capabilities.Video,
		},
		Features: schemas.ModelFeatures{
			Tools:      model.Capabilities.ToolUse,
			JSONSchema: model.Capabilities.StructuredOutput,
			JSONMode:   model.Capabilities.StructuredOutput,
			Streaming:  model.Capabilities.Text,
		},
	}
	if model.ContextWindow > 0 {
		record.Limits = &schemas.ModelLimits{ContextTokens: model.ContextWindow}
	}
	if model.TokenPrices != nil {
		record.Pricing = &schemas.ModelPricing{
			Currency:    "USD",
			InputPer1M:  model.TokenPrices.Input,
			OutputPer1M: model.TokenPrices.Output,
			Source:      "curated",
		}
	}
	if model.Deprecated {
		record.Tags = append(record.Tags, "deprecated")
	}
	if model.InPreview {
		record.Tags = append(record.Tags, "preview")
	}

	if entry, ok := r.learnedFor(model.Provider, model.ID, entitlement); ok {
		record.Availability = schemas.ModelAvailability{
			Entitled:       false,
			Confidence:     schemas.AvailabilityLearned,
			Reason:         entry.reason,
			LastVerifiedAt: entry.learnedAt.UTC().Format(time.RFC3339),
		}
	} else {
		record.Availability = schemas.ModelAvailability{
			Entitled:   true,
			Confidence: schemas.AvailabilityListed,
		}
	}
	return record
}

// sortRecords orders records by provider, then display name, then id, so
// listings are stable across refreshes.
func sortRecords(records []schemas.ModelRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Provider != records[j].Provider {
			return records[i].Provider < records[j].Provider
		}
		if records[i].DisplayName != records[j].DisplayName {
			return records[i].DisplayName < records[j].DisplayName
		}
		return records[i].ID < records[j].ID
	})
}
