package strata

import (
	"fmt"

	"github.com/stratahq/strata/providers"
	"github.com/stratahq/strata/schemas"
)

// resolveAdapter picks the adapter serving one request. The chain is fixed:
// caller-supplied resolvers first, then an entitlement-bound adapter built
// fresh from the provider's config when a credential was resolved, then the
// static adapter map. A provider nothing resolves is a VALIDATION error.
func (kit *Kit) resolveAdapter(provider schemas.ModelProvider, entitlement *schemas.EntitlementContext) (schemas.Provider, error) {
	for _, resolver := range kit.resolvers {
		adapter, err := resolver(provider, entitlement)
		if err != nil {
			return nil, schemas.AsStrataError(err)
		}
		if adapter != nil {
			return adapter, nil
		}
	}

	if config, ok := kit.providerConfigs[provider]; ok && entitlement != nil && entitlement.APIKey != "" {
		// Entitlement-bound adapters are rebuilt per request and never
		// cached: the credential is request-scoped, so the adapter is too.
		return buildAdapter(provider, config.WithAPIKey(entitlement.APIKey), kit.logger)
	}

	if adapter, ok := kit.adapters[provider]; ok {
		return adapter, nil
	}

	return nil, schemas.NewValidationError(provider, fmt.Sprintf("no adapter configured for provider %s", provider))
}

// buildAdapter constructs the concrete adapter for a provider from its
// connection config.
func buildAdapter(provider schemas.ModelProvider, config *schemas.ProviderConfig, logger schemas.Logger) (schemas.Provider, error) {
	config.CheckAndSetDefaults()
	switch provider {
	case schemas.OpenAI:
		return providers.NewOpenAIProvider(config, logger), nil
	case schemas.XAI:
		return providers.NewXAIProvider(config, logger), nil
	case schemas.Anthropic:
		return providers.NewAnthropicProvider(config, logger), nil
	case schemas.Ollama:
		return providers.NewOllamaProvider(config, logger), nil
	default:
		return nil, schemas.NewValidationError(provider, fmt.Sprintf("provider %s has no built-in adapter; supply one via Adapters or AdapterResolvers", provider))
	}
}
