package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/stratahq/strata/schemas"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// Pre-defined errors to reduce allocations in error paths
var (
	ErrOpenAIJSONMarshaling = fmt.Errorf("error marshaling OpenAI request")
	ErrOpenAIEmptyChoices   = fmt.Errorf("OpenAI response contains no choices")
)

// openAIChatResponsePool provides a pool for chat response objects
var openAIChatResponsePool = sync.Pool{
	New: func() interface{} {
		return &openAIChatResponse{}
	},
}

func acquireOpenAIChatResponse() *openAIChatResponse {
	resp := openAIChatResponsePool.Get().(*openAIChatResponse)
	*resp = openAIChatResponse{}
	return resp
}

func releaseOpenAIChatResponse(resp *openAIChatResponse) {
	if resp != nil {
		openAIChatResponsePool.Put(resp)
	}
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAIChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content   string           `json:"content"`
			ToolCalls []openAIToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *openAIUsage `json:"usage"`
}

type openAIModelList struct {
	Data []struct {
		ID      string `json:"id"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}

// OpenAIProvider is the OpenAI-compatible adapter. It also backs providers
// exposing the same wire surface under a different base URL, like xAI.
type OpenAIProvider struct {
	providerKey  schemas.ModelProvider
	baseURL      string
	apiKey       string
	organization string
	extraHeaders map[string]string
	capabilities schemas.CapabilitySet
	timeout      time.Duration

	client       *fasthttp.Client
	streamClient *fasthttp.Client
	logger       schemas.Logger
}

// NewOpenAIProvider creates an adapter for the OpenAI API.
func NewOpenAIProvider(config *schemas.ProviderConfig, logger schemas.Logger) *OpenAIProvider {
	provider := newOpenAICompatibleProvider(schemas.OpenAI, defaultOpenAIBaseURL, config, logger)
	provider.capabilities = schemas.NewCapabilitySet(
		schemas.CapabilityText,
		schemas.CapabilityStream,
		schemas.CapabilityImage,
		schemas.CapabilitySpeech,
		schemas.CapabilityTranscribe,
		schemas.CapabilityListModels,
	)
	return provider
}

// NewXAIProvider creates an adapter for the xAI API, which speaks the OpenAI
// wire format.
func NewXAIProvider(config *schemas.ProviderConfig, logger schemas.Logger) *OpenAIProvider {
	provider := newOpenAICompatibleProvider(schemas.XAI, "https://api.x.ai/v1", config, logger)
	provider.capabilities = schemas.NewCapabilitySet(
		schemas.CapabilityText,
		schemas.CapabilityStream,
		schemas.CapabilityListModels,
	)
	return provider
}

func newOpenAICompatibleProvider(key schemas.ModelProvider, defaultBaseURL string, config *schemas.ProviderConfig, logger schemas.Logger) *OpenAIProvider {
	baseURL := config.NetworkConfig.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	var organization string
	if config.MetaConfig != nil {
		organization = config.MetaConfig.Organization
	}
	return &OpenAIProvider{
		providerKey:  key,
		baseURL:      baseURL,
		apiKey:       firstKey(config),
		organization: organization,
		extraHeaders: config.NetworkConfig.ExtraHeaders,
		timeout:      time.Second * time.Duration(config.NetworkConfig.DefaultRequestTimeoutInSeconds),
		client:       newHTTPClient(config),
		streamClient: newStreamingHTTPClient(config),
		logger:       logger,
	}
}

func (provider *OpenAIProvider) GetProviderKey() schemas.ModelProvider {
	return provider.providerKey
}

func (provider *OpenAIProvider) Capabilities() schemas.CapabilitySet {
	return provider.capabilities
}

func (provider *OpenAIProvider) setHeaders(req *fasthttp.Request) {
	if provider.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+provider.apiKey)
	}
	if provider.organization != "" {
		req.Header.Set("OpenAI-Organization", provider.organization)
	}
	for k, v := range provider.extraHeaders {
		req.Header.Set(k, v)
	}
}

// ListModels pulls the live model catalog. Capability flags here are coarse;
// the curated overlay refines them.
func (provider *OpenAIProvider) ListModels(ctx context.Context) ([]schemas.ModelMetadata, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.baseURL + "/models")
	req.Header.SetMethod(fasthttp.MethodGet)
	provider.setHeaders(req)

	if serr := doRequest(ctx, provider.client, provider.providerKey, req, resp, provider.timeout); serr != nil {
		return nil, serr
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, upstreamError(provider.providerKey, resp.StatusCode(), resp.Body())
	}

	var list openAIModelList
	if err := sonic.Unmarshal(resp.Body(), &list); err != nil {
		return nil, decodeError(provider.providerKey, err)
	}

	models := make([]schemas.ModelMetadata, 0, len(list.Data))
	for _, entry := range list.Data {
		models = append(models, schemas.ModelMetadata{
			ID:           entry.ID,
			DisplayName:  entry.ID,
			Provider:     provider.providerKey,
			Capabilities: schemas.ModelCapabilities{Text: true},
		})
	}
	return models, nil
}

// buildChatPayload converts the unified input to the chat completions wire
// shape.
func buildChatPayload(input schemas.GenerateInput, stream bool) map[string]interface{} {
	messages := make([]map[string]interface{}, 0, len(input.Messages))
	for _, msg := range input.Messages {
		entry := map[string]interface{}{"role": string(msg.Role)}
		if msg.ToolCallID != "" {
			entry["tool_call_id"] = msg.ToolCallID
		}
		if msg.Name != "" {
			entry["name"] = msg.Name
		}

		if len(msg.Content) == 1 && msg.Content[0].Type == schemas.ContentPartText {
			entry["content"] = msg.Content[0].Text
		} else {
			parts := make([]map[string]interface{}, 0, len(msg.Content))
			for _, part := range msg.Content {
				switch part.Type {
				case schemas.ContentPartText:
					parts = append(parts, map[string]interface{}{"type": "text", "text": part.Text})
				case schemas.ContentPartImage:
					if part.Image == nil {
						continue
					}
					url := part.Image.URL
					if url == "" && part.Image.Base64 != "" {
						mediaType := part.Image.MediaType
						if mediaType == "" {
							mediaType = "image/png"
						}
						url = fmt.Sprintf("data:%s;base64,%s", mediaType, part.Image.Base64)
					}
					parts = append(parts, map[string]interface{}{
						"type":      "image_url",
						"image_url": map[string]interface{}{"url": url},
					})
				}
			}
			entry["content"] = parts
		}
		messages = append(messages, entry)
	}

	payload := map[string]interface{}{
		"model":    input.Model,
		"messages": messages,
	}
	if stream {
		payload["stream"] = true
		payload["stream_options"] = map[string]interface{}{"include_usage": true}
	}
	if input.Temperature != nil {
		payload["temperature"] = *input.Temperature
	}
	if input.TopP != nil {
		payload["top_p"] = *input.TopP
	}
	if input.MaxTokens != nil {
		payload["max_tokens"] = *input.MaxTokens
	}
	if len(input.Tools) > 0 {
		tools := make([]map[string]interface{}, 0, len(input.Tools))
		for _, tool := range input.Tools {
			tools = append(tools, map[string]interface{}{
				"type": "function",
				"function": map[string]interface{}{
					"name":        tool.Name,
					"description": tool.Description,
					"parameters":  tool.Parameters,
				},
			})
		}
		payload["tools"] = tools
	}
	if input.ToolChoice != nil {
		switch input.ToolChoice.Type {
		case schemas.ToolChoiceTool:
			payload["tool_choice"] = map[string]interface{}{
				"type":     "function",
				"function": map[string]interface{}{"name": input.ToolChoice.Name},
			}
		default:
			payload["tool_choice"] = string(input.ToolChoice.Type)
		}
	}
	if input.ResponseFormat != nil {
		format := map[string]interface{}{"type": input.ResponseFormat.Type}
		if input.ResponseFormat.JSONSchema != nil {
			format["json_schema"] = map[string]interface{}{
				"name":   input.ResponseFormat.JSONSchema.Name,
				"schema": input.ResponseFormat.JSONSchema.Schema,
				"strict": input.ResponseFormat.JSONSchema.Strict,
			}
		}
		payload["response_format"] = format
	}
	return payload
}

func usageFromOpenAI(usage *openAIUsage) *schemas.Usage {
	if usage == nil {
		return nil
	}
	return &schemas.Usage{
		InputTokens:  schemas.Ptr(usage.PromptTokens),
		OutputTokens: schemas.Ptr(usage.CompletionTokens),
		TotalTokens:  schemas.Ptr(usage.TotalTokens),
	}
}

func toolCallsFromOpenAI(calls []openAIToolCall) []schemas.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	converted := make([]schemas.ToolCall, 0, len(calls))
	for _, call := range calls {
		converted = append(converted, schemas.ToolCall{
			ID:            call.ID,
			Name:          call.Function.Name,
			ArgumentsJSON: call.Function.Arguments,
		})
	}
	return converted
}

func (provider *OpenAIProvider) Generate(ctx context.Context, input schemas.GenerateInput) (schemas.GenerateOutput, error) {
	jsonBody, err := sonic.Marshal(buildChatPayload(input, false))
	if err != nil {
		return schemas.GenerateOutput{}, &schemas.StrataError{
			Kind:     schemas.ErrorValidation,
			Message:  ErrOpenAIJSONMarshaling.Error(),
			Provider: provider.providerKey,
			Cause:    err,
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.baseURL + "/chat/completions")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	provider.setHeaders(req)
	req.SetBody(jsonBody)

	if serr := doRequest(ctx, provider.client, provider.providerKey, req, resp, provider.timeout); serr != nil {
		return schemas.GenerateOutput{}, serr
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return schemas.GenerateOutput{}, upstreamError(provider.providerKey, resp.StatusCode(), resp.Body())
	}

	responseBody := resp.Body()

	chatResponse := acquireOpenAIChatResponse()
	defer releaseOpenAIChatResponse(chatResponse)

	var rawResponse interface{}
	var wg sync.WaitGroup
	var structuredErr, rawErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		structuredErr = sonic.Unmarshal(responseBody, chatResponse)
	}()
	go func() {
		defer wg.Done()
		rawErr = sonic.Unmarshal(responseBody, &rawResponse)
	}()
	wg.Wait()

	if structuredErr != nil {
		return schemas.GenerateOutput{}, decodeError(provider.providerKey, structuredErr)
	}
	if rawErr != nil {
		return schemas.GenerateOutput{}, decodeError(provider.providerKey, rawErr)
	}
	if len(chatResponse.Choices) == 0 {
		return schemas.GenerateOutput{}, &schemas.StrataError{
			Kind:     schemas.ErrorUnknown,
			Message:  ErrOpenAIEmptyChoices.Error(),
			Provider: provider.providerKey,
		}
	}

	choice := chatResponse.Choices[0]
	return schemas.GenerateOutput{
		Text:         choice.Message.Content,
		ToolCalls:    toolCallsFromOpenAI(choice.Message.ToolCalls),
		Usage:        usageFromOpenAI(chatResponse.Usage),
		FinishReason: choice.FinishReason,
		Raw:          rawResponse,
	}, nil
}

// openAIStreamDelta is one SSE payload of a streaming chat completion.
type openAIStreamDelta struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *openAIUsage `json:"usage"`
}

func (provider *OpenAIProvider) StreamGenerate(ctx context.Context, input schemas.GenerateInput) (<-chan schemas.StreamChunk, error) {
	jsonBody, err := sonic.Marshal(buildChatPayload(input, true))
	if err != nil {
		return nil, &schemas.StrataError{
			Kind:     schemas.ErrorValidation,
			Message:  ErrOpenAIJSONMarshaling.Error(),
			Provider: provider.providerKey,
			Cause:    err,
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	req.SetRequestURI(provider.baseURL + "/chat/completions")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	provider.setHeaders(req)
	req.SetBody(jsonBody)

	if serr := doStreamRequest(ctx, provider.streamClient, provider.providerKey, req, resp); serr != nil {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
		return nil, serr
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		serr := upstreamError(provider.providerKey, resp.StatusCode(), resp.Body())
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
		return nil, serr
	}

	chunks := make(chan schemas.StreamChunk)
	go func() {
		defer close(chunks)
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		var usage *schemas.Usage
		var finishReason string
		// Tool call fragments arrive split across deltas and are stitched
		// together by index before being emitted.
		pending := make(map[int]*schemas.ToolCall)
		var pendingOrder []int

		scanner := bufio.NewScanner(resp.BodyStream())
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if !bytes.HasPrefix(line, []byte("data: ")) {
				continue
			}
			payload := bytes.TrimPrefix(line, []byte("data: "))
			if bytes.Equal(payload, []byte("[DONE]")) {
				break
			}

			var delta openAIStreamDelta
			if err := sonic.Unmarshal(payload, &delta); err != nil {
				emitChunk(ctx, chunks, schemas.StreamChunk{
					Type:  schemas.StreamChunkError,
					Error: decodeError(provider.providerKey, err),
				})
				return
			}

			if delta.Usage != nil {
				usage = usageFromOpenAI(delta.Usage)
			}
			if len(delta.Choices) == 0 {
				continue
			}
			choice := delta.Choices[0]
			if choice.FinishReason != "" {
				finishReason = choice.FinishReason
			}
			if choice.Delta.Content != "" {
				if !emitChunk(ctx, chunks, schemas.StreamChunk{
					Type:      schemas.StreamChunkTextDelta,
					TextDelta: choice.Delta.Content,
				}) {
					return
				}
			}
			for _, fragment := range choice.Delta.ToolCalls {
				call, ok := pending[fragment.Index]
				if !ok {
					call = &schemas.ToolCall{}
					pending[fragment.Index] = call
					pendingOrder = append(pendingOrder, fragment.Index)
				}
				if fragment.ID != "" {
					call.ID = fragment.ID
				}
				if fragment.Function.Name != "" {
					call.Name = fragment.Function.Name
				}
				call.ArgumentsJSON += fragment.Function.Arguments
			}
		}

		if err := scanner.Err(); err != nil {
			emitChunk(ctx, chunks, schemas.StreamChunk{
				Type: schemas.StreamChunkError,
				Error: &schemas.StrataError{
					Kind:     schemas.ErrorProviderUnavailable,
					Message:  fmt.Sprintf("stream from %s broke: %v", provider.providerKey, err),
					Provider: provider.providerKey,
					Cause:    err,
				},
			})
			return
		}

		for _, index := range pendingOrder {
			if !emitChunk(ctx, chunks, schemas.StreamChunk{
				Type: schemas.StreamChunkToolCall,
				Call: pending[index],
			}) {
				return
			}
		}
		emitChunk(ctx, chunks, schemas.StreamChunk{
			Type:         schemas.StreamChunkMessageEnd,
			Usage:        usage,
			FinishReason: finishReason,
		})
	}()
	return chunks, nil
}

// emitChunk sends a chunk unless the consumer has gone away. Returns false
// when the context is done.
func emitChunk(ctx context.Context, chunks chan<- schemas.StreamChunk, chunk schemas.StreamChunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func (provider *OpenAIProvider) GenerateImage(ctx context.Context, input schemas.ImageGenerateInput) (schemas.ImageGenerateOutput, error) {
	payload := map[string]interface{}{
		"model":  input.Model,
		"prompt": input.Prompt,
	}
	if input.Size != "" {
		payload["size"] = input.Size
	}
	for k, v := range input.Parameters {
		payload[k] = v
	}

	jsonBody, err := sonic.Marshal(payload)
	if err != nil {
		return schemas.ImageGenerateOutput{}, decodeError(provider.providerKey, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.baseURL + "/images/generations")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	provider.setHeaders(req)
	req.SetBody(jsonBody)

	if serr := doRequest(ctx, provider.client, provider.providerKey, req, resp, provider.timeout); serr != nil {
		return schemas.ImageGenerateOutput{}, serr
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return schemas.ImageGenerateOutput{}, upstreamError(provider.providerKey, resp.StatusCode(), resp.Body())
	}

	var imageResponse struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := sonic.Unmarshal(resp.Body(), &imageResponse); err != nil {
		return schemas.ImageGenerateOutput{}, decodeError(provider.providerKey, err)
	}
	if len(imageResponse.Data) == 0 {
		return schemas.ImageGenerateOutput{}, &schemas.StrataError{
			Kind:     schemas.ErrorUnknown,
			Message:  "image response contains no data",
			Provider: provider.providerKey,
		}
	}

	output := schemas.ImageGenerateOutput{
		Mime: "image/png",
		Data: imageResponse.Data[0].B64JSON,
	}
	for _, image := range imageResponse.Data {
		output.Images = append(output.Images, schemas.GeneratedImage{Mime: "image/png", Data: image.B64JSON})
	}
	return output, nil
}

func (provider *OpenAIProvider) GenerateMesh(ctx context.Context, input schemas.MeshGenerateInput) (schemas.MeshGenerateOutput, error) {
	return schemas.MeshGenerateOutput{}, schemas.NewUnsupportedOperationError(provider.providerKey, "mesh generation")
}

func (provider *OpenAIProvider) GenerateSpeech(ctx context.Context, input schemas.SpeechGenerateInput) (schemas.SpeechGenerateOutput, error) {
	format := input.ResponseFormat
	if format == "" {
		format = "mp3"
	}
	payload := map[string]interface{}{
		"model":           input.Model,
		"input":           input.Text,
		"voice":           input.Voice,
		"response_format": format,
	}
	if input.Speed != nil {
		payload["speed"] = *input.Speed
	}
	for k, v := range input.Parameters {
		payload[k] = v
	}

	jsonBody, err := sonic.Marshal(payload)
	if err != nil {
		return schemas.SpeechGenerateOutput{}, decodeError(provider.providerKey, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.baseURL + "/audio/speech")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	provider.setHeaders(req)
	req.SetBody(jsonBody)

	if serr := doRequest(ctx, provider.client, provider.providerKey, req, resp, provider.timeout); serr != nil {
		return schemas.SpeechGenerateOutput{}, serr
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return schemas.SpeechGenerateOutput{}, upstreamError(provider.providerKey, resp.StatusCode(), resp.Body())
	}

	return schemas.SpeechGenerateOutput{
		Mime: speechMimeType(format),
		Data: base64.StdEncoding.EncodeToString(resp.Body()),
	}, nil
}

func speechMimeType(format string) string {
	switch format {
	case "opus":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	case "wav":
		return "audio/wav"
	case "pcm":
		return "audio/pcm"
	default:
		return "audio/mpeg"
	}
}

func (provider *OpenAIProvider) Transcribe(ctx context.Context, input schemas.TranscribeInput) (schemas.TranscribeOutput, error) {
	if input.Audio.Base64 == "" {
		return schemas.TranscribeOutput{}, schemas.NewValidationError(provider.providerKey, "transcription requires inline base64 audio")
	}
	audioBytes, err := base64.StdEncoding.DecodeString(input.Audio.Base64)
	if err != nil {
		return schemas.TranscribeOutput{}, schemas.NewValidationError(provider.providerKey, "audio payload is not valid base64")
	}

	fileName := input.Audio.FileName
	if fileName == "" {
		fileName = "audio.mp3"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return schemas.TranscribeOutput{}, decodeError(provider.providerKey, err)
	}
	if _, err := part.Write(audioBytes); err != nil {
		return schemas.TranscribeOutput{}, decodeError(provider.providerKey, err)
	}
	_ = writer.WriteField("model", input.Model)
	_ = writer.WriteField("response_format", "verbose_json")
	if input.Language != "" {
		_ = writer.WriteField("language", input.Language)
	}
	if input.Prompt != "" {
		_ = writer.WriteField("prompt", input.Prompt)
	}
	if input.Temperature != nil {
		_ = writer.WriteField("temperature", fmt.Sprintf("%g", *input.Temperature))
	}
	for _, granularity := range input.TimestampGranularities {
		_ = writer.WriteField("timestamp_granularities[]", granularity)
	}
	if err := writer.Close(); err != nil {
		return schemas.TranscribeOutput{}, decodeError(provider.providerKey, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.baseURL + "/audio/transcriptions")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(writer.FormDataContentType())
	provider.setHeaders(req)
	req.SetBody(body.Bytes())

	if serr := doRequest(ctx, provider.client, provider.providerKey, req, resp, provider.timeout); serr != nil {
		return schemas.TranscribeOutput{}, serr
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return schemas.TranscribeOutput{}, upstreamError(provider.providerKey, resp.StatusCode(), resp.Body())
	}

	var transcript struct {
		Text     string   `json:"text"`
		Language string   `json:"language"`
		Duration *float64 `json:"duration"`
		Segments []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		} `json:"segments"`
		Words []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Word  string  `json:"word"`
		} `json:"words"`
	}
	var rawResponse interface{}
	responseBody := resp.Body()
	if err := sonic.Unmarshal(responseBody, &transcript); err != nil {
		return schemas.TranscribeOutput{}, decodeError(provider.providerKey, err)
	}
	_ = sonic.Unmarshal(responseBody, &rawResponse)

	output := schemas.TranscribeOutput{
		Text:     transcript.Text,
		Language: transcript.Language,
		Duration: transcript.Duration,
		Raw:      rawResponse,
	}
	for _, segment := range transcript.Segments {
		output.Segments = append(output.Segments, schemas.TranscriptSegment{
			Start: segment.Start,
			End:   segment.End,
			Text:  strings.TrimSpace(segment.Text),
		})
	}
	for _, word := range transcript.Words {
		output.Words = append(output.Words, schemas.TranscriptWord{
			Start: word.Start,
			End:   word.End,
			Word:  word.Word,
		})
	}
	return output, nil
}

func (provider *OpenAIProvider) GenerateVideo(ctx context.Context, input schemas.VideoGenerateInput) (schemas.VideoGenerateOutput, error) {
	return schemas.VideoGenerateOutput{}, schemas.NewUnsupportedOperationError(provider.providerKey, "video generation")
}
