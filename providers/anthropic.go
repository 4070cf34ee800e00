package providers

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/stratahq/strata/schemas"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicVersion = "2023-06-01"

	// The messages API requires max_tokens; this is the fallback when the
	// caller sets none.
	defaultAnthropicMaxTokens = 4096
)

// AnthropicProvider is the adapter for the Anthropic messages API.
type AnthropicProvider struct {
	baseURL      string
	apiKey       string
	version      string
	extraHeaders map[string]string
	capabilities schemas.CapabilitySet
	timeout      time.Duration

	client       *fasthttp.Client
	streamClient *fasthttp.Client
	logger       schemas.Logger
}

// NewAnthropicProvider creates an adapter for the Anthropic API.
func NewAnthropicProvider(config *schemas.ProviderConfig, logger schemas.Logger) *AnthropicProvider {
	baseURL := config.NetworkConfig.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	version := defaultAnthropicVersion
	if config.MetaConfig != nil && config.MetaConfig.Version != "" {
		version = config.MetaConfig.Version
	}
	return &AnthropicProvider{
		baseURL:      baseURL,
		apiKey:       firstKey(config),
		version:      version,
		extraHeaders: config.NetworkConfig.ExtraHeaders,
		capabilities: schemas.NewCapabilitySet(
			schemas.CapabilityText,
			schemas.CapabilityStream,
			schemas.CapabilityListModels,
		),
		timeout:      time.Second * time.Duration(config.NetworkConfig.DefaultRequestTimeoutInSeconds),
		client:       newHTTPClient(config),
		streamClient: newStreamingHTTPClient(config),
		logger:       logger,
	}
}

func (provider *AnthropicProvider) GetProviderKey() schemas.ModelProvider {
	return schemas.Anthropic
}

func (provider *AnthropicProvider) Capabilities() schemas.CapabilitySet {
	return provider.capabilities
}

func (provider *AnthropicProvider) setHeaders(req *fasthttp.Request) {
	req.Header.Set("x-api-key", provider.apiKey)
	req.Header.Set("anthropic-version", provider.version)
	for k, v := range provider.extraHeaders {
		req.Header.Set(k, v)
	}
}

func (provider *AnthropicProvider) ListModels(ctx context.Context) ([]schemas.ModelMetadata, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.baseURL + "/v1/models")
	req.Header.SetMethod(fasthttp.MethodGet)
	provider.setHeaders(req)

	if serr := doRequest(ctx, provider.client, schemas.Anthropic, req, resp, provider.timeout); serr != nil {
		return nil, serr
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, upstreamError(schemas.Anthropic, resp.StatusCode(), resp.Body())
	}

	var list struct {
		Data []struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(resp.Body(), &list); err != nil {
		return nil, decodeError(schemas.Anthropic, err)
	}

	models := make([]schemas.ModelMetadata, 0, len(list.Data))
	for _, entry := range list.Data {
		displayName := entry.DisplayName
		if displayName == "" {
			displayName = entry.ID
		}
		models = append(models, schemas.ModelMetadata{
			ID:           entry.ID,
			DisplayName:  displayName,
			Provider:     schemas.Anthropic,
			Capabilities: schemas.ModelCapabilities{Text: true, Vision: true, ToolUse: true},
		})
	}
	return models, nil
}

// buildMessagesPayload converts the unified input to the messages API wire
// shape. System messages move to the top-level system field.
func buildMessagesPayload(input schemas.GenerateInput, stream bool) map[string]interface{} {
	var system string
	messages := make([]map[string]interface{}, 0, len(input.Messages))
	for _, msg := range input.Messages {
		if msg.Role == schemas.RoleSystem {
			for _, part := range msg.Content {
				if part.Type == schemas.ContentPartText {
					system += part.Text
				}
			}
			continue
		}

		if msg.Role == schemas.RoleTool {
			// Tool results travel as user-authored tool_result blocks.
			content := []map[string]interface{}{}
			for _, part := range msg.Content {
				if part.Type == schemas.ContentPartText {
					content = append(content, map[string]interface{}{
						"type":        "tool_result",
						"tool_use_id": msg.ToolCallID,
						"content":     part.Text,
					})
				}
			}
			messages = append(messages, map[string]interface{}{"role": "user", "content": content})
			continue
		}

		content := make([]map[string]interface{}, 0, len(msg.Content))
		for _, part := range msg.Content {
			switch part.Type {
			case schemas.ContentPartText:
				content = append(content, map[string]interface{}{"type": "text", "text": part.Text})
			case schemas.ContentPartImage:
				if part.Image == nil {
					continue
				}
				if part.Image.Base64 != "" {
					mediaType := part.Image.MediaType
					if mediaType == "" {
						mediaType = "image/png"
					}
					content = append(content, map[string]interface{}{
						"type": "image",
						"source": map[string]interface{}{
							"type":       "base64",
							"media_type": mediaType,
							"data":       part.Image.Base64,
						},
					})
				} else if part.Image.URL != "" {
					content = append(content, map[string]interface{}{
						"type": "image",
						"source": map[string]interface{}{
							"type": "url",
							"url":  part.Image.URL,
						},
					})
				}
			}
		}
		messages = append(messages, map[string]interface{}{"role": string(msg.Role), "content": content})
	}

	maxTokens := defaultAnthropicMaxTokens
	if input.MaxTokens != nil {
		maxTokens = *input.MaxTokens
	}

	payload := map[string]interface{}{
		"model":      input.Model,
		"messages":   messages,
		"max_tokens": maxTokens,
	}
	if stream {
		payload["stream"] = true
	}
	if system != "" {
		payload["system"] = system
	}
	if input.Temperature != nil {
		payload["temperature"] = *input.Temperature
	}
	if input.TopP != nil {
		payload["top_p"] = *input.TopP
	}
	if len(input.Tools) > 0 {
		tools := make([]map[string]interface{}, 0, len(input.Tools))
		for _, tool := range input.Tools {
			tools = append(tools, map[string]interface{}{
				"name":         tool.Name,
				"description":  tool.Description,
				"input_schema": tool.Parameters,
			})
		}
		payload["tools"] = tools
	}
	if input.ToolChoice != nil {
		switch input.ToolChoice.Type {
		case schemas.ToolChoiceTool:
			payload["tool_choice"] = map[string]interface{}{"type": "tool", "name": input.ToolChoice.Name}
		case schemas.ToolChoiceRequired:
			payload["tool_choice"] = map[string]interface{}{"type": "any"}
		case schemas.ToolChoiceAuto:
			payload["tool_choice"] = map[string]interface{}{"type": "auto"}
		}
	}
	return payload
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func usageFromAnthropic(usage anthropicUsage) *schemas.Usage {
	return &schemas.Usage{
		InputTokens:  schemas.Ptr(usage.InputTokens),
		OutputTokens: schemas.Ptr(usage.OutputTokens),
		TotalTokens:  schemas.Ptr(usage.InputTokens + usage.OutputTokens),
	}
}

func (provider *AnthropicProvider) Generate(ctx context.Context, input schemas.GenerateInput) (schemas.GenerateOutput, error) {
	jsonBody, err := sonic.Marshal(buildMessagesPayload(input, false))
	if err != nil {
		return schemas.GenerateOutput{}, &schemas.StrataError{
			Kind:     schemas.ErrorValidation,
			Message:  "error marshaling Anthropic request",
			Provider: schemas.Anthropic,
			Cause:    err,
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.baseURL + "/v1/messages")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	provider.setHeaders(req)
	req.SetBody(jsonBody)

	if serr := doRequest(ctx, provider.client, schemas.Anthropic, req, resp, provider.timeout); serr != nil {
		return schemas.GenerateOutput{}, serr
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return schemas.GenerateOutput{}, upstreamError(schemas.Anthropic, resp.StatusCode(), resp.Body())
	}

	var message struct {
		Content []struct {
			Type  string         `json:"type"`
			Text  string         `json:"text"`
			ID    string         `json:"id"`
			Name  string         `json:"name"`
			Input map[string]any `json:"input"`
		} `json:"content"`
		StopReason string         `json:"stop_reason"`
		Usage      anthropicUsage `json:"usage"`
	}
	var rawResponse interface{}
	responseBody := resp.Body()
	if err := sonic.Unmarshal(responseBody, &message); err != nil {
		return schemas.GenerateOutput{}, decodeError(schemas.Anthropic, err)
	}
	_ = sonic.Unmarshal(responseBody, &rawResponse)

	output := schemas.GenerateOutput{
		Usage:        usageFromAnthropic(message.Usage),
		FinishReason: message.StopReason,
		Raw:          rawResponse,
	}
	for _, block := range message.Content {
		switch block.Type {
		case "text":
			output.Text += block.Text
		case "tool_use":
			args, marshalErr := sonic.MarshalString(block.Input)
			if marshalErr != nil {
				args = "{}"
			}
			output.ToolCalls = append(output.ToolCalls, schemas.ToolCall{
				ID:            block.ID,
				Name:          block.Name,
				ArgumentsJSON: args,
			})
		}
	}
	return output, nil
}

// anthropicStreamEvent covers the union of SSE event payloads the stream
// loop cares about.
type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`
	ContentBlock struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
	Message struct {
		Usage anthropicUsage `json:"usage"`
	} `json:"message"`
	Usage anthropicUsage `json:"usage"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (provider *AnthropicProvider) StreamGenerate(ctx context.Context, input schemas.GenerateInput) (<-chan schemas.StreamChunk, error) {
	jsonBody, err := sonic.Marshal(buildMessagesPayload(input, true))
	if err != nil {
		return nil, &schemas.StrataError{
			Kind:     schemas.ErrorValidation,
			Message:  "error marshaling Anthropic request",
			Provider: schemas.Anthropic,
			Cause:    err,
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	req.SetRequestURI(provider.baseURL + "/v1/messages")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	provider.setHeaders(req)
	req.SetBody(jsonBody)

	if serr := doStreamRequest(ctx, provider.streamClient, schemas.Anthropic, req, resp); serr != nil {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
		return nil, serr
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		serr := upstreamError(schemas.Anthropic, resp.StatusCode(), resp.Body())
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
		return nil, serr
	}

	chunks := make(chan schemas.StreamChunk)
	go func() {
		defer close(chunks)
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		usage := &schemas.Usage{}
		var finishReason string
		// One tool_use block streams as a start event plus input_json_delta
		// fragments; the call is emitted when the block closes.
		toolCalls := make(map[int]*schemas.ToolCall)

		scanner := bufio.NewScanner(resp.BodyStream())
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if !bytes.HasPrefix(line, []byte("data: ")) {
				continue
			}

			var event anthropicStreamEvent
			if err := sonic.Unmarshal(bytes.TrimPrefix(line, []byte("data: ")), &event); err != nil {
				emitChunk(ctx, chunks, schemas.StreamChunk{
					Type:  schemas.StreamChunkError,
					Error: decodeError(schemas.Anthropic, err),
				})
				return
			}

			switch event.Type {
			case "message_start":
				usage.InputTokens = schemas.Ptr(event.Message.Usage.InputTokens)
			case "content_block_start":
				if event.ContentBlock.Type == "tool_use" {
					toolCalls[event.Index] = &schemas.ToolCall{
						ID:   event.ContentBlock.ID,
						Name: event.ContentBlock.Name,
					}
				}
			case "content_block_delta":
				switch event.Delta.Type {
				case "text_delta":
					if !emitChunk(ctx, chunks, schemas.StreamChunk{
						Type:      schemas.StreamChunkTextDelta,
						TextDelta: event.Delta.Text,
					}) {
						return
					}
				case "input_json_delta":
					if call, ok := toolCalls[event.Index]; ok {
						call.ArgumentsJSON += event.Delta.PartialJSON
					}
				}
			case "content_block_stop":
				if call, ok := toolCalls[event.Index]; ok {
					delete(toolCalls, event.Index)
					if call.ArgumentsJSON == "" {
						call.ArgumentsJSON = "{}"
					}
					if !emitChunk(ctx, chunks, schemas.StreamChunk{
						Type: schemas.StreamChunkToolCall,
						Call: call,
					}) {
						return
					}
				}
			case "message_delta":
				if event.Delta.StopReason != "" {
					finishReason = event.Delta.StopReason
				}
				if event.Usage.OutputTokens > 0 {
					usage.OutputTokens = schemas.Ptr(event.Usage.OutputTokens)
				}
			case "error":
				emitChunk(ctx, chunks, schemas.StreamChunk{
					Type: schemas.StreamChunkError,
					Error: &schemas.StrataError{
						Kind:         schemas.ErrorProviderUnavailable,
						Message:      event.Error.Message,
						Provider:     schemas.Anthropic,
						UpstreamCode: event.Error.Type,
					},
				})
				return
			case "message_stop":
				if usage.InputTokens != nil && usage.OutputTokens != nil {
					usage.TotalTokens = schemas.Ptr(*usage.InputTokens + *usage.OutputTokens)
				}
				emitChunk(ctx, chunks, schemas.StreamChunk{
					Type:         schemas.StreamChunkMessageEnd,
					Usage:        usage,
					FinishReason: finishReason,
				})
				return
			}
		}

		if err := scanner.Err(); err != nil {
			emitChunk(ctx, chunks, schemas.StreamChunk{
				Type: schemas.StreamChunkError,
				Error: &schemas.StrataError{
					Kind:     schemas.ErrorProviderUnavailable,
					Message:  fmt.Sprintf("stream from anthropic broke: %v", err),
					Provider: schemas.Anthropic,
					Cause:    err,
				},
			})
		}
	}()
	return chunks, nil
}

func (provider *AnthropicProvider) GenerateImage(ctx context.Context, input schemas.ImageGenerateInput) (schemas.ImageGenerateOutput, error) {
	return schemas.ImageGenerateOutput{}, schemas.NewUnsupportedOperationError(schemas.Anthropic, "image generation")
}

func (provider *AnthropicProvider) GenerateMesh(ctx context.Context, input schemas.MeshGenerateInput) (schemas.MeshGenerateOutput, error) {
	return schemas.MeshGenerateOutput{}, schemas.NewUnsupportedOperationError(schemas.Anthropic, "mesh generation")
}

func (provider *AnthropicProvider) GenerateSpeech(ctx context.Context, input schemas.SpeechGenerateInput) (schemas.SpeechGenerateOutput, error) {
	return schemas.SpeechGenerateOutput{}, schemas.NewUnsupportedOperationError(schemas.Anthropic, "speech generation")
}

func (provider *AnthropicProvider) GenerateVideo(ctx context.Context, input schemas.VideoGenerateInput) (schemas.VideoGenerateOutput, error) {
	return schemas.VideoGenerateOutput{}, schemas.NewUnsupportedOperationError(schemas.Anthropic, "video generation")
}

func (provider *AnthropicProvider) Transcribe(ctx context.Context, input schemas.TranscribeInput) (schemas.TranscribeOutput, error) {
	return schemas.TranscribeOutput{}, schemas.NewUnsupportedOperationError(schemas.Anthropic, "transcription")
}
