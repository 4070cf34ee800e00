// Package schemas defines the shared contract between the Strata kit and its
// provider adapters: the capability interface, request/response value types,
// model metadata shapes, configuration, and the unified error type.
package schemas

import "context"

// ModelProvider represents the identifier of a supported AI provider.
type ModelProvider string

const (
	OpenAI    ModelProvider = "openai"
	Anthropic ModelProvider = "anthropic"
	Google    ModelProvider = "google"
	XAI       ModelProvider = "xai"
	Ollama    ModelProvider = "ollama"
	Bedrock   ModelProvider = "bedrock"
	Replicate ModelProvider = "replicate"
	Fal       ModelProvider = "fal"
)

// Capability identifies one operation a provider adapter may implement.
type Capability uint16

const (
	CapabilityText Capability = 1 << iota
	CapabilityStream
	CapabilityImage
	CapabilityMesh
	CapabilitySpeech
	CapabilityVideo
	CapabilityTranscribe
	CapabilityListModels
)

// CapabilitySet is the declared set of operations an adapter implements.
// The kit checks membership before dispatching; it never probes adapters
// with reflection.
type CapabilitySet uint16

// NewCapabilitySet combines the given capabilities into a set.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var set CapabilitySet
	for _, c := range caps {
		set |= CapabilitySet(c)
	}
	return set
}

// Has reports whether the set contains the given capability.
func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

// Provider defines the interface for AI provider adapters.
//
// Adapters declare which operations they implement via Capabilities; methods
// outside the declared set must return an UNSUPPORTED StrataError and are
// never invoked by the kit. Any method may fail with a classified error.
type Provider interface {
	// GetProviderKey returns the provider identifier for this adapter.
	GetProviderKey() ModelProvider
	// Capabilities returns the set of operations this adapter implements.
	Capabilities() CapabilitySet

	// ListModels returns the provider's live model catalog.
	ListModels(ctx context.Context) ([]ModelMetadata, error)

	Generate(ctx context.Context, input GenerateInput) (GenerateOutput, error)
	GenerateImage(ctx context.Context, input ImageGenerateInput) (ImageGenerateOutput, error)
	GenerateMesh(ctx context.Context, input MeshGenerateInput) (MeshGenerateOutput, error)
	GenerateSpeech(ctx context.Context, input SpeechGenerateInput) (SpeechGenerateOutput, error)
	GenerateVideo(ctx context.Context, input VideoGenerateInput) (VideoGenerateOutput, error)
	Transcribe(ctx context.Context, input TranscribeInput) (TranscribeOutput, error)

	// StreamGenerate returns a lazy, single-pass, finite sequence of chunks.
	// The channel is closed after the terminal chunk.
	StreamGenerate(ctx context.Context, input GenerateInput) (<-chan StreamChunk, error)
}

// AdapterResolver resolves a provider adapter for one request. Resolvers are
// consulted in a fixed order; the first non-nil adapter wins. Returning
// (nil, nil) passes resolution to the next resolver in the chain.
type AdapterResolver func(provider ModelProvider, entitlement *EntitlementContext) (Provider, error)

// Ptr creates a pointer to any value.
func Ptr[T any](v T) *T {
	return &v
}
