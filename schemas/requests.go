package schemas

// ContentPartType discriminates the variants of a message content part.
type ContentPartType string

const (
	ContentPartText  ContentPartType = "text"
	ContentPartImage ContentPartType = "image"
)

// ContentPart is one element of a message body.
type ContentPart struct {
	Type  ContentPartType `json:"type"`
	Text  string          `json:"text,omitempty"`
	Image *ImageInput     `json:"image,omitempty"`
}

// ImageInput references image bytes by URL or inline base64.
type ImageInput struct {
	URL       string `json:"url,omitempty"`
	Base64    string `json:"base64,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// AudioInput references audio bytes by URL or inline base64.
type AudioInput struct {
	URL       string `json:"url,omitempty"`
	Base64    string `json:"base64,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	FileName  string `json:"file_name,omitempty"`
}

// MessageRole is the author role of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message is one turn of a conversation.
type Message struct {
	Role       MessageRole   `json:"role"`
	Content    []ContentPart `json:"content"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	Name       string        `json:"name,omitempty"`
}

// ToolDefinition declares a tool the model may call.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolChoiceType constrains how the model selects tools.
type ToolChoiceType string

const (
	ToolChoiceAuto     ToolChoiceType = "auto"
	ToolChoiceNone     ToolChoiceType = "none"
	ToolChoiceRequired ToolChoiceType = "required"
	ToolChoiceTool     ToolChoiceType = "tool"
)

// ToolChoice constrains tool selection for one request.
type ToolChoice struct {
	Type ToolChoiceType `json:"type"`
	Name string         `json:"name,omitempty"`
}

// JSONSchemaFormat names a JSON schema for structured output.
type JSONSchemaFormat struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict *bool          `json:"strict,omitempty"`
}

// ResponseFormat requests plain text, JSON mode, or schema-constrained JSON.
type ResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *JSONSchemaFormat `json:"json_schema,omitempty"`
}

// GenerateInput is a text generation request.
type GenerateInput struct {
	Provider       ModelProvider     `json:"provider"`
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	Tools          []ToolDefinition  `json:"tools,omitempty"`
	ToolChoice     *ToolChoice       `json:"tool_choice,omitempty"`
	ResponseFormat *ResponseFormat   `json:"response_format,omitempty"`
	Temperature    *float64          `json:"temperature,omitempty"`
	TopP           *float64          `json:"top_p,omitempty"`
	MaxTokens      *int              `json:"max_tokens,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// ImageGenerateInput is an image generation request.
type ImageGenerateInput struct {
	Provider    ModelProvider  `json:"provider"`
	Model       string         `json:"model"`
	Prompt      string         `json:"prompt"`
	Size        string         `json:"size,omitempty"`
	InputImages []ImageInput   `json:"input_images,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// MeshGenerateInput is a 3D mesh generation request.
type MeshGenerateInput struct {
	Provider    ModelProvider `json:"provider"`
	Model       string        `json:"model"`
	Prompt      string        `json:"prompt"`
	InputImages []ImageInput  `json:"input_images,omitempty"`
	Format      string        `json:"format,omitempty"`
}

// SpeechGenerateInput is a text-to-speech request.
type SpeechGenerateInput struct {
	Provider       ModelProvider     `json:"provider"`
	Model          string            `json:"model"`
	Text           string            `json:"text"`
	Voice          string            `json:"voice,omitempty"`
	ResponseFormat string            `json:"response_format,omitempty"`
	Speed          *float64          `json:"speed,omitempty"`
	Parameters     map[string]any    `json:"parameters,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// VideoGenerateInput is a video generation request.
type VideoGenerateInput struct {
	Provider       ModelProvider  `json:"provider"`
	Model          string         `json:"model"`
	Prompt         string         `json:"prompt"`
	StartImage     string         `json:"start_image,omitempty"`
	InputImages    []ImageInput   `json:"input_images,omitempty"`
	Duration       *float64       `json:"duration,omitempty"`
	AspectRatio    string         `json:"aspect_ratio,omitempty"`
	NegativePrompt string         `json:"negative_prompt,omitempty"`
	GenerateAudio  *bool          `json:"generate_audio,omitempty"`
	Parameters     map[string]any `json:"parameters,omitempty"`
}

// TranscribeInput is a speech-to-text request.
type TranscribeInput struct {
	Provider               ModelProvider     `json:"provider"`
	Model                  string            `json:"model"`
	Audio                  AudioInput        `json:"audio"`
	Language               string            `json:"language,omitempty"`
	Prompt                 string            `json:"prompt,omitempty"`
	Temperature            *float64          `json:"temperature,omitempty"`
	ResponseFormat         string            `json:"response_format,omitempty"`
	TimestampGranularities []string          `json:"timestamp_granularities,omitempty"`
	Metadata               map[string]string `json:"metadata,omitempty"`
}
