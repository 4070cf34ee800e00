package strata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratahq/strata/schemas"
)

func TestKeyPool_RoundRobinWraps(t *testing.T) {
	pool := newKeyPool([]string{"key-a", "key-b", "key-c"})
	require.NotNil(t, pool)
	require.Equal(t, 3, pool.size())

	// N+1 calls: call 1 and call N+1 return the same key, nothing skipped.
	var cycle []string
	for i := 0; i < 3; i++ {
		cycle = append(cycle, pool.next())
	}
	assert.ElementsMatch(t, []string{"key-a", "key-b", "key-c"}, cycle)
	assert.Equal(t, cycle[0], pool.next())
}

func TestKeyPool_NormalizationDropsBlanksAndDuplicates(t *testing.T) {
	pool := newKeyPool([]string{" key-a ", "", "key-b", "key-a", "   "})
	require.NotNil(t, pool)
	assert.Equal(t, []string{"key-a", "key-b"}, pool.keys)
}

func TestKeyPool_EmptyAfterNormalization(t *testing.T) {
	assert.Nil(t, newKeyPool(nil))
	assert.Nil(t, newKeyPool([]string{"", "  "}))
}

func TestFingerprintAPIKey_TrimsBeforeHashing(t *testing.T) {
	assert.Equal(t, FingerprintAPIKey("sk-test"), FingerprintAPIKey("  sk-test  "))
	assert.NotEqual(t, FingerprintAPIKey("sk-test"), FingerprintAPIKey("sk-other"))
	assert.Len(t, FingerprintAPIKey("sk-test"), 64)
}

func TestEntitlementForProvider_DrawsFromPool(t *testing.T) {
	kit := &Kit{
		keyPools: map[schemas.ModelProvider]*keyPool{
			schemas.OpenAI: newKeyPool([]string{"key-a", "key-b"}),
		},
	}

	first := kit.entitlementForProvider(schemas.OpenAI, nil)
	second := kit.entitlementForProvider(schemas.OpenAI, nil)
	third := kit.entitlementForProvider(schemas.OpenAI, nil)

	require.NotNil(t, first)
	assert.Equal(t, schemas.OpenAI, first.Provider)
	assert.NotEmpty(t, first.APIKey)
	assert.Equal(t, FingerprintAPIKey(first.APIKey), first.APIKeyFingerprint)

	// Two keys rotate: calls 1 and 3 share a key, calls 1 and 2 do not.
	assert.NotEqual(t, first.APIKey, second.APIKey)
	assert.Equal(t, first.APIKey, third.APIKey)
}

func TestEntitlementForProvider_KeylessProvider(t *testing.T) {
	kit := &Kit{keyPools: map[schemas.ModelProvider]*keyPool{}}

	entitlement := kit.entitlementForProvider(schemas.Ollama, nil)
	require.NotNil(t, entitlement)
	assert.Equal(t, schemas.Ollama, entitlement.Provider)
	assert.Empty(t, entitlement.APIKey)
	assert.Empty(t, entitlement.APIKeyFingerprint)
}

func TestEntitlementForProvider_CallerEntitlementCompleted(t *testing.T) {
	kit := &Kit{
		keyPools: map[schemas.ModelProvider]*keyPool{
			schemas.OpenAI: newKeyPool([]string{"pool-key"}),
		},
	}

	// An explicit key survives and gets fingerprinted; tenant fields carry over.
	withKey := kit.entitlementForProvider(schemas.OpenAI, &schemas.EntitlementContext{
		APIKey:   "caller-key",
		TenantID: "tenant-1",
	})
	assert.Equal(t, "caller-key", withKey.APIKey)
	assert.Equal(t, FingerprintAPIKey("caller-key"), withKey.APIKeyFingerprint)
	assert.Equal(t, "tenant-1", withKey.TenantID)

	// Without a key the pool supplies one.
	withoutKey := kit.entitlementForProvider(schemas.OpenAI, &schemas.EntitlementContext{TenantID: "tenant-2"})
	assert.Equal(t, "pool-key", withoutKey.APIKey)
	assert.Equal(t, "tenant-2", withoutKey.TenantID)
}
