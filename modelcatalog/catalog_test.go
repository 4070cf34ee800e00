package modelcatalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratahq/strata/schemas"
)

type noOpLogger struct{}

func (noOpLogger) Debug(string)              {}
func (noOpLogger) Info(string)               {}
func (noOpLogger) Warn(string)               {}
func (noOpLogger) Error(error)               {}
func (noOpLogger) SetLevel(schemas.LogLevel) {}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(noOpLogger{})
	require.NoError(t, err)
	return catalog
}

func TestNewCatalog_ParsesEmbeddedTable(t *testing.T) {
	catalog := newTestCatalog(t)
	assert.NotEmpty(t, catalog.curated)
}

func TestFindCuratedModel_ExactMatch(t *testing.T) {
	catalog := newTestCatalog(t)

	entry := catalog.FindCuratedModel(schemas.OpenAI, "gpt-4o")
	require.NotNil(t, entry)
	assert.Equal(t, "GPT-4o", entry.DisplayName)
}

func TestFindCuratedModel_LongestPrefixWins(t *testing.T) {
	catalog := newTestCatalog(t)
	catalog.SetCuratedModels([]CuratedModel{
		{ID: "gpt-4o", Provider: schemas.OpenAI, DisplayName: "short"},
		{ID: "gpt-4o-mini", Provider: schemas.OpenAI, DisplayName: "long"},
	})

	// Both ids are prefixes of the dated variant; the longer one wins.
	entry := catalog.FindCuratedModel(schemas.OpenAI, "gpt-4o-mini-2024-07-18")
	require.NotNil(t, entry)
	assert.Equal(t, "long", entry.DisplayName)

	entry = catalog.FindCuratedModel(schemas.OpenAI, "gpt-4o-2024-08-06")
	require.NotNil(t, entry)
	assert.Equal(t, "short", entry.DisplayName)
}

func TestFindCuratedModel_NormalizesProviderPrefix(t *testing.T) {
	catalog := newTestCatalog(t)

	entry := catalog.FindCuratedModel(schemas.OpenAI, "openai/gpt-4o")
	require.NotNil(t, entry)
	assert.Equal(t, "GPT-4o", entry.DisplayName)
}

func TestFindCuratedModel_ProviderScoped(t *testing.T) {
	catalog := newTestCatalog(t)

	// The id exists for openai but not for anthropic.
	assert.NotNil(t, catalog.FindCuratedModel(schemas.OpenAI, "gpt-4o"))
	assert.Nil(t, catalog.FindCuratedModel(schemas.Anthropic, "gpt-4o"))
	assert.Nil(t, catalog.FindCuratedModel(schemas.OpenAI, "nonexistent-model"))
}

func TestApplyCuratedMetadata_MergesWithoutMutating(t *testing.T) {
	catalog := newTestCatalog(t)
	raw := schemas.ModelMetadata{
		ID:           "gpt-4o",
		DisplayName:  "gpt-4o",
		Provider:     schemas.OpenAI,
		Capabilities: schemas.ModelCapabilities{Text: true},
	}

	merged := catalog.ApplyCuratedMetadata(raw)

	assert.Equal(t, "GPT-4o", merged.DisplayName)
	assert.Equal(t, "gpt-4o", merged.Family)
	assert.Equal(t, 128000, merged.ContextWindow)
	assert.True(t, merged.Capabilities.Vision)
	assert.True(t, merged.Capabilities.ToolUse)
	require.NotNil(t, merged.TokenPrices)
	assert.Equal(t, 2.5, *merged.TokenPrices.Input)
	assert.Equal(t, 10.0, *merged.TokenPrices.Output)

	// The input value is untouched.
	assert.Equal(t, "gpt-4o", raw.DisplayName)
	assert.Nil(t, raw.TokenPrices)
	assert.False(t, raw.Capabilities.Vision)
}

func TestApplyCuratedMetadata_NoEntryReturnsUnchanged(t *testing.T) {
	catalog := newTestCatalog(t)
	raw := schemas.ModelMetadata{
		ID:           "some-local-model",
		DisplayName:  "some-local-model",
		Provider:     schemas.Replicate,
		Capabilities: schemas.ModelCapabilities{Text: true},
	}

	assert.Equal(t, raw, catalog.ApplyCuratedMetadata(raw))
}

func TestApplyCuratedMetadata_PartialCapabilityOverlay(t *testing.T) {
	catalog := newTestCatalog(t)
	catalog.SetCuratedModels([]CuratedModel{
		{
			ID:       "custom-model",
			Provider: schemas.OpenAI,
			Capabilities: &CuratedCapabilities{
				Vision: schemas.Ptr(true),
				// Text left nil: provider-reported value survives.
			},
		},
	})

	merged := catalog.ApplyCuratedMetadata(schemas.ModelMetadata{
		ID:           "custom-model",
		Provider:     schemas.OpenAI,
		Capabilities: schemas.ModelCapabilities{Text: true},
	})
	assert.True(t, merged.Capabilities.Text)
	assert.True(t, merged.Capabilities.Vision)
}
