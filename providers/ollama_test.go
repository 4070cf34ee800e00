package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratahq/strata/schemas"
)

func TestBuildOllamaPayload_TextAndOptions(t *testing.T) {
	payload := buildOllamaPayload(schemas.GenerateInput{
		Model:       "llama3",
		Messages:    []schemas.Message{textMessage(schemas.RoleUser, "hello")},
		Temperature: schemas.Ptr(0.5),
		MaxTokens:   schemas.Ptr(128),
	}, false)

	assert.Equal(t, "llama3", payload["model"])
	assert.Equal(t, false, payload["stream"])

	messages := payload["messages"].([]map[string]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0]["content"])

	options := payload["options"].(map[string]interface{})
	assert.Equal(t, 0.5, options["temperature"])
	assert.Equal(t, 128, options["num_predict"])
}

func TestBuildOllamaPayload_ImagesRideAlong(t *testing.T) {
	payload := buildOllamaPayload(schemas.GenerateInput{
		Model: "llava",
		Messages: []schemas.Message{{
			Role: schemas.RoleUser,
			Content: []schemas.ContentPart{
				{Type: schemas.ContentPartText, Text: "describe"},
				{Type: schemas.ContentPartImage, Image: &schemas.ImageInput{Base64: "aGk="}},
			},
		}},
	}, true)

	assert.Equal(t, true, payload["stream"])
	messages := payload["messages"].([]map[string]interface{})
	assert.Equal(t, "describe", messages[0]["content"])
	assert.Equal(t, []string{"aGk="}, messages[0]["images"])
}

func TestBuildOllamaPayload_JSONMode(t *testing.T) {
	payload := buildOllamaPayload(schemas.GenerateInput{
		Model:          "llama3",
		Messages:       []schemas.Message{textMessage(schemas.RoleUser, "hi")},
		ResponseFormat: &schemas.ResponseFormat{Type: "json_object"},
	}, false)
	assert.Equal(t, "json", payload["format"])
}

func TestUsageFromOllama(t *testing.T) {
	assert.Nil(t, usageFromOllama(ollamaChatResponse{}))

	usage := usageFromOllama(ollamaChatResponse{PromptEvalCount: 20, EvalCount: 30})
	require.NotNil(t, usage)
	assert.Equal(t, 20, *usage.InputTokens)
	assert.Equal(t, 30, *usage.OutputTokens)
	assert.Equal(t, 50, *usage.TotalTokens)
}

func TestNewOllamaProvider_Defaults(t *testing.T) {
	config := &schemas.ProviderConfig{}
	config.CheckAndSetDefaults()

	provider := NewOllamaProvider(config, nil)
	assert.Equal(t, schemas.Ollama, provider.GetProviderKey())
	assert.Equal(t, defaultOllamaBaseURL, provider.baseURL)
	assert.True(t, provider.Capabilities().Has(schemas.CapabilityText))
	assert.False(t, provider.Capabilities().Has(schemas.CapabilityImage))
}
