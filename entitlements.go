package strata

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync/atomic"

	"github.com/stratahq/strata/schemas"
)

// keyPool round-robins a provider's credentials. The cursor is a lock-free
// atomic counter; the key slice is immutable after construction.
type keyPool struct {
	keys   []string
	cursor uint64
}

// newKeyPool builds a pool from the configured key list. Returns nil when no
// usable keys remain after normalization, which marks the provider keyless.
func newKeyPool(keys []string) *keyPool {
	normalized := normalizeKeys(keys)
	if len(normalized) == 0 {
		return nil
	}
	return &keyPool{keys: normalized}
}

// next returns the next key in strict rotation. Concurrent callers each get a
// distinct cursor value, so no key is skipped or double-served under load.
func (p *keyPool) next() string {
	n := atomic.AddUint64(&p.cursor, 1) - 1
	return p.keys[n%uint64(len(p.keys))]
}

func (p *keyPool) size() int {
	return len(p.keys)
}

// normalizeKeys trims whitespace and drops blanks and duplicates while
// preserving first-seen order, so rotation order is deterministic from the
// configured order.
func normalizeKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	normalized := make([]string, 0, len(keys))
	for _, key := range keys {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}

// FingerprintAPIKey returns the hex SHA-256 of the trimmed key. Fingerprints
// stand in for raw credentials in cache keys and logs.
func FingerprintAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(apiKey)))
	return hex.EncodeToString(sum[:])
}

// entitlementForProvider resolves the per-request identity for a provider.
// A caller-supplied entitlement is completed (fingerprint derived, pool key
// drawn if no explicit key) rather than replaced; absent one, the provider's
// pool supplies the credential. Keyless providers yield an entitlement with
// no credential material.
func (kit *Kit) entitlementForProvider(provider schemas.ModelProvider, entitlement *schemas.EntitlementContext) *schemas.EntitlementContext {
	resolved := schemas.EntitlementContext{Provider: provider}
	if entitlement != nil {
		resolved = *entitlement
		resolved.Provider = provider
	}

	if resolved.APIKey == "" {
		if pool, ok := kit.keyPools[provider]; ok && pool != nil {
			resolved.APIKey = pool.next()
		}
	}
	if resolved.APIKey != "" && resolved.APIKeyFingerprint == "" {
		resolved.APIKeyFingerprint = FingerprintAPIKey(resolved.APIKey)
	}
	return &resolved
}
