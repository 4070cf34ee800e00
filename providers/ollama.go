package providers

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"

	"github.com/stratahq/strata/schemas"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaProvider is the adapter for a local Ollama daemon. It is keyless:
// requests carry no credential and the kit serves it through the static
// adapter path.
type OllamaProvider struct {
	baseURL      string
	extraHeaders map[string]string
	capabilities schemas.CapabilitySet
	timeout      time.Duration

	client       *fasthttp.Client
	streamClient *fasthttp.Client
	logger       schemas.Logger
}

// NewOllamaProvider creates an adapter for an Ollama daemon.
func NewOllamaProvider(config *schemas.ProviderConfig, logger schemas.Logger) *OllamaProvider {
	baseURL := config.NetworkConfig.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &OllamaProvider{
		baseURL:      baseURL,
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

func (provider *OllamaProvider) GetProviderKey() schemas.ModelProvider {
	return schemas.Ollama
}

func (provider *OllamaProvider) Capabilities() schemas.CapabilitySet {
	return provider.capabilities
}

func (provider *OllamaProvider) setHeaders(req *fasthttp.Request) {
	for k, v := range provider.extraHeaders {
		req.Header.Set(k, v)
	}
}

func (provider *OllamaProvider) ListModels(ctx context.Context) ([]schemas.ModelMetadata, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.baseURL + "/api/tags")
	req.Header.SetMethod(fasthttp.MethodGet)
	provider.setHeaders(req)

	if serr := doRequest(ctx, provider.client, schemas.Ollama, req, resp, provider.timeout); serr != nil {
		return nil, serr
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, upstreamError(schemas.Ollama, resp.StatusCode(), resp.Body())
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := sonic.Unmarshal(resp.Body(), &tags); err != nil {
		return nil, decodeError(schemas.Ollama, err)
	}

	models := make([]schemas.ModelMetadata, 0, len(tags.Models))
	for _, entry := range tags.Models {
		models = append(models, schemas.ModelMetadata{
			ID:           entry.Name,
			DisplayName:  entry.Name,
			Provider:     schemas.Ollama,
			Capabilities: schemas.ModelCapabilities{Text: true},
		})
	}
	return models, nil
}

// buildOllamaPayload converts the unified input to the /api/chat wire shape.
// Image parts ride along as the message's base64 images list.
func buildOllamaPayload(input schemas.GenerateInput, stream bool) map[string]interface{} {
	messages := make([]map[string]interface{}, 0, len(input.Messages))
	for _, msg := range input.Messages {
		var text string
		var images []string
		for _, part := range msg.Content {
			switch part.Type {
			case schemas.ContentPartText:
				text += part.Text
			case schemas.ContentPartImage:
				if part.Image != nil && part.Image.Base64 != "" {
					images = append(images, part.Image.Base64)
				}
			}
		}
		entry := map[string]interface{}{
			"role":    string(msg.Role),
			"content": text,
		}
		if len(images) > 0 {
			entry["images"] = images
		}
		messages = append(messages, entry)
	}

	payload := map[string]interface{}{
		"model":    input.Model,
		"messages": messages,
		"stream":   stream,
	}

	options := map[string]interface{}{}
	if input.Temperature != nil {
		options["temperature"] = *input.Temperature
	}
	if input.TopP != nil {
		options["top_p"] = *input.TopP
	}
	if input.MaxTokens != nil {
		options["num_predict"] = *input.MaxTokens
	}
	if len(options) > 0 {
		payload["options"] = options
	}
	if input.ResponseFormat != nil && input.ResponseFormat.Type == "json_object" {
		payload["format"] = "json"
	}
	return payload
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func usageFromOllama(response ollamaChatResponse) *schemas.Usage {
	if response.PromptEvalCount == 0 && response.EvalCount == 0 {
		return nil
	}
	return &schemas.Usage{
		InputTokens:  schemas.Ptr(response.PromptEvalCount),
		OutputTokens: schemas.Ptr(response.EvalCount),
		TotalTokens:  schemas.Ptr(response.PromptEvalCount + response.EvalCount),
	}
}

func (provider *OllamaProvider) Generate(ctx context.Context, input schemas.GenerateInput) (schemas.GenerateOutput, error) {
	jsonBody, err := sonic.Marshal(buildOllamaPayload(input, false))
	if err != nil {
		return schemas.GenerateOutput{}, &schemas.StrataError{
			Kind:     schemas.ErrorValidation,
			Message:  "error marshaling Ollama request",
			Provider: schemas.Ollama,
			Cause:    err,
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.baseURL + "/api/chat")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	provider.setHeaders(req)
	req.SetBody(jsonBody)

	if serr := doRequest(ctx, provider.client, schemas.Ollama, req, resp, provider.timeout); serr != nil {
		return schemas.GenerateOutput{}, serr
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return schemas.GenerateOutput{}, upstreamError(schemas.Ollama, resp.StatusCode(), resp.Body())
	}

	var chat ollamaChatResponse
	var rawResponse interface{}
	responseBody := resp.Body()
	if err := sonic.Unmarshal(responseBody, &chat); err != nil {
		return schemas.GenerateOutput{}, decodeError(schemas.Ollama, err)
	}
	_ = sonic.Unmarshal(responseBody, &rawResponse)

	return schemas.GenerateOutput{
		Text:         chat.Message.Content,
		Usage:        usageFromOllama(chat),
		FinishReason: chat.DoneReason,
		Raw:          rawResponse,
	}, nil
}

// StreamGenerate consumes the NDJSON stream /api/chat produces with
// stream=true; the final object carries done=true plus token counts.
func (provider *OllamaProvider) StreamGenerate(ctx context.Context, input schemas.GenerateInput) (<-chan schemas.StreamChunk, error) {
	jsonBody, err := sonic.Marshal(buildOllamaPayload(input, true))
	if err != nil {
		return nil, &schemas.StrataError{
			Kind:     schemas.ErrorValidation,
			Message:  "error marshaling Ollama request",
			Provider: schemas.Ollama,
			Cause:    err,
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	req.SetRequestURI(provider.baseURL + "/api/chat")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	provider.setHeaders(req)
	req.SetBody(jsonBody)

	if serr := doStreamRequest(ctx, provider.streamClient, schemas.Ollama, req, resp); serr != nil {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
		return nil, serr
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		serr := upstreamError(schemas.Ollama, resp.StatusCode(), resp.Body())
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
		return nil, serr
	}

	chunks := make(chan schemas.StreamChunk)
	go func() {
		defer close(chunks)
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		scanner := bufio.NewScanner(resp.BodyStream())
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var chat ollamaChatResponse
			if err := sonic.Unmarshal(line, &chat); err != nil {
				emitChunk(ctx, chunks, schemas.StreamChunk{
					Type:  schemas.StreamChunkError,
					Error: decodeError(schemas.Ollama, err),
				})
				return
			}

			if chat.Message.Content != "" {
				if !emitChunk(ctx, chunks, schemas.StreamChunk{
					Type:      schemas.StreamChunkTextDelta,
					TextDelta: chat.Message.Content,
				}) {
					return
				}
			}
			if chat.Done {
				emitChunk(ctx, chunks, schemas.StreamChunk{
					Type:         schemas.StreamChunkMessageEnd,
					Usage:        usageFromOllama(chat),
					FinishReason: chat.DoneReason,
				})
				return
			}
		}

		if err := scanner.Err(); err != nil {
			emitChunk(ctx, chunks, schemas.StreamChunk{
				Type: schemas.StreamChunkError,
				Error: &schemas.StrataError{
					Kind:     schemas.ErrorProviderUnavailable,
					Message:  fmt.Sprintf("stream from ollama broke: %v", err),
					Provider: schemas.Ollama,
					Cause:    err,
				},
			})
		}
	}()
	return chunks, nil
}

func (provider *OllamaProvider) GenerateImage(ctx context.Context, input schemas.ImageGenerateInput) (schemas.ImageGenerateOutput, error) {
	return schemas.ImageGenerateOutput{}, schemas.NewUnsupportedOperationError(schemas.Ollama, "image generation")
}

func (provider *OllamaProvider) GenerateMesh(ctx context.Context, input schemas.MeshGenerateInput) (schemas.MeshGenerateOutput, error) {
	return schemas.MeshGenerateOutput{}, schemas.NewUnsupportedOperationError(schemas.Ollama, "mesh generation")
}

func (provider *OllamaProvider) GenerateSpeech(ctx context.Context, input schemas.SpeechGenerateInput) (schemas.SpeechGenerateOutput, error) {
	return schemas.SpeechGenerateOutput{}, schemas.NewUnsupportedOperationError(schemas.Ollama, "speech generation")
}

func (provider *OllamaProvider) GenerateVideo(ctx context.Context, input schemas.VideoGenerateInput) (schemas.VideoGenerateOutput, error) {
	return schemas.VideoGenerateOutput{}, schemas.NewUnsupportedOperationError(schemas.Ollama, "video generation")
}

func (provider *OllamaProvider) Transcribe(ctx context.Context, input schemas.TranscribeInput) (schemas.TranscribeOutput, error) {
	return schemas.TranscribeOutput{}, schemas.NewUnsupportedOperationError(schemas.Ollama, "transcription")
}
