package schemas

// Usage holds token accounting for one call.
type Usage struct {
	InputTokens  *int `json:"input_tokens,omitempty"`
	OutputTokens *int `json:"output_tokens,omitempty"`
	TotalTokens  *int `json:"total_tokens,omitempty"`
}

// CostBreakdown is the USD cost estimate attached to a successful call when
// both usage and curated pricing are available. It is additive only: the
// kit never alters any other output field.
type CostBreakdown struct {
	InputCostUSD      float64      `json:"input_cost_usd"`
	OutputCostUSD     float64      `json:"output_cost_usd"`
	TotalCostUSD      float64      `json:"total_cost_usd"`
	PricingPerMillion *TokenPrices `json:"pricing_per_million,omitempty"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ArgumentsJSON string `json:"arguments_json"`
}

// GenerateOutput is the result of a text generation call.
type GenerateOutput struct {
	Text         string         `json:"text,omitempty"`
	ToolCalls    []ToolCall     `json:"tool_calls,omitempty"`
	Usage        *Usage         `json:"usage,omitempty"`
	FinishReason string         `json:"finish_reason,omitempty"`
	Cost         *CostBreakdown `json:"cost,omitempty"`
	Raw          any            `json:"raw,omitempty"`
}

// GeneratedImage is one image produced by an image generation call.
type GeneratedImage struct {
	Mime string `json:"mime"`
	Data string `json:"data"` // base64
}

// ImageGenerateOutput is the result of an image generation call.
type ImageGenerateOutput struct {
	Mime   string           `json:"mime"`
	Data   string           `json:"data"` // base64 of the first image
	Images []GeneratedImage `json:"images,omitempty"`
	Raw    any              `json:"raw,omitempty"`
}

// MeshGenerateOutput is the result of a mesh generation call.
type MeshGenerateOutput struct {
	Data   string `json:"data"` // base64
	Format string `json:"format,omitempty"`
	Raw    any    `json:"raw,omitempty"`
}

// SpeechGenerateOutput is the result of a text-to-speech call.
type SpeechGenerateOutput struct {
	Mime string `json:"mime"`
	Data string `json:"data"` // base64
	Raw  any    `json:"raw,omitempty"`
}

// VideoGenerateOutput is the result of a video generation call.
type VideoGenerateOutput struct {
	Mime     string   `json:"mime"`
	Data     string   `json:"data"` // base64
	Duration *float64 `json:"duration,omitempty"`
	Raw      any      `json:"raw,omitempty"`
}

// TranscriptSegment is one timed segment of a transcription.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptWord is one timed word of a transcription.
type TranscriptWord struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// TranscribeOutput is the result of a speech-to-text call.
type TranscribeOutput struct {
	Text     string              `json:"text,omitempty"`
	Language string              `json:"language,omitempty"`
	Duration *float64            `json:"duration,omitempty"`
	Segments []TranscriptSegment `json:"segments,omitempty"`
	Words    []TranscriptWord    `json:"words,omitempty"`
	Cost     *CostBreakdown      `json:"cost,omitempty"`
	Raw      any                 `json:"raw,omitempty"`
}

// StreamChunkType discriminates the variants of a stream chunk.
type StreamChunkType string

const (
	StreamChunkTextDelta  StreamChunkType = "text_delta"
	StreamChunkToolCall   StreamChunkType = "tool_call"
	StreamChunkMessageEnd StreamChunkType = "message_end"
	StreamChunkError      StreamChunkType = "error"
)

// StreamChunk is one element of a streaming generation. The terminal
// message_end chunk carries usage and, when pricing is known, cost.
type StreamChunk struct {
	Type         StreamChunkType `json:"type"`
	TextDelta    string          `json:"text_delta,omitempty"`
	Call         *ToolCall       `json:"call,omitempty"`
	Usage        *Usage          `json:"usage,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
	Cost         *CostBreakdown  `json:"cost,omitempty"`
	Error        *StrataError    `json:"error,omitempty"`
}
