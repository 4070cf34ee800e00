// Package strata provides a unified client over generative-AI providers:
// one capability surface (text, image, mesh, speech, video, transcription,
// streaming), a TTL-cached model registry enriched with curated metadata and
// learned availability, and per-request credential rotation over pooled API
// keys.
package strata

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/stratahq/strata/modelcatalog"
	"github.com/stratahq/strata/schemas"
)

// Kit is the orchestrator. One instance is built per process (or per tenant
// configuration set) and is safe for concurrent use.
type Kit struct {
	providerConfigs map[schemas.ModelProvider]*schemas.ProviderConfig
	keyPools        map[schemas.ModelProvider]*keyPool
	adapters        map[schemas.ModelProvider]schemas.Provider
	resolvers       []schemas.AdapterResolver

	catalog  *modelcatalog.Catalog
	registry *modelRegistry
	logger   schemas.Logger
}

// New creates a Kit from the given config. At least one of Providers,
// Adapters, or AdapterResolvers must be set; a config with none of them can
// never resolve an adapter and is rejected up front.
func New(config schemas.KitConfig) (*Kit, error) {
	if len(config.Providers) == 0 && len(config.Adapters) == 0 && len(config.AdapterResolvers) == 0 {
		return nil, schemas.NewValidationError("", "kit config needs at least one of providers, adapters, or adapter resolvers")
	}

	logger := config.Logger
	if logger == nil {
		logger = NewDefaultLogger(schemas.LogLevelInfo)
	}

	catalog, err := modelcatalog.NewCatalog(logger)
	if err != nil {
		return nil, err
	}

	kit := &Kit{
		providerConfigs: make(map[schemas.ModelProvider]*schemas.ProviderConfig, len(config.Providers)),
		keyPools:        make(map[schemas.ModelProvider]*keyPool, len(config.Providers)),
		adapters:        make(map[schemas.ModelProvider]schemas.Provider, len(config.Providers)+len(config.Adapters)),
		resolvers:       config.AdapterResolvers,
		catalog:         catalog,
		registry:        newModelRegistry(catalog, config.RegistryTTLSeconds, config.LearnedTTLSeconds, logger),
		logger:          logger,
	}

	for provider, providerConfig := range config.Providers {
		if providerConfig == nil {
			return nil, schemas.NewValidationError(provider, fmt.Sprintf("provider %s has a nil config", provider))
		}
		// Normalize onto a clone; the caller's config stays untouched.
		providerConfig = providerConfig.Clone()
		providerConfig.CheckAndSetDefaults()
		kit.providerConfigs[provider] = providerConfig

		if pool := newKeyPool(providerConfig.Keys); pool != nil {
			kit.keyPools[provider] = pool
		}

		// The static adapter is the fallback for calls that resolve no
		// credential; keyed calls get a fresh entitlement-bound adapter.
		adapter, buildErr := buildAdapter(provider, providerConfig, logger)
		if buildErr != nil {
			if _, supplied := config.Adapters[provider]; !supplied && len(config.AdapterResolvers) == 0 {
				return nil, buildErr
			}
			logger.Debug(fmt.Sprintf("no built-in adapter for %s, relying on supplied adapters/resolvers", provider))
			continue
		}
		kit.adapters[provider] = adapter
	}

	for provider, adapter := range config.Adapters {
		kit.adapters[provider] = adapter
	}

	return kit, nil
}

// Catalog exposes the curated metadata table, e.g. to replace it with data
// maintained outside the embedded snapshot.
func (kit *Kit) Catalog() *modelcatalog.Catalog {
	return kit.catalog
}

// ListModels returns the merged, curated catalog across the requested
// providers, sorted by provider then display name. Cache entries are served
// until their TTL lapses unless opts.Refresh forces a fetch.
func (kit *Kit) ListModels(ctx context.Context, opts schemas.ListModelsOptions) ([]schemas.ModelMetadata, error) {
	providers, err := kit.resolveProviderSet(opts)
	if err != nil {
		return nil, err
	}

	var models []schemas.ModelMetadata
	for _, provider := range providers {
		// The caller's entitlement partitions the cache as-is; drawing a
		// pool key here would rotate the partition on every call.
		listed, err := kit.registry.listProvider(ctx, provider, opts.Entitlement, opts.Refresh, kit.fetchProviderModels)
		if err != nil {
			return nil, err
		}
		models = append(models, listed...)
	}

	sort.Slice(models, func(i, j int) bool {
		if models[i].Provider != models[j].Provider {
			return models[i].Provider < models[j].Provider
		}
		if models[i].DisplayName != models[j].DisplayName {
			return models[i].DisplayName < models[j].DisplayName
		}
		return models[i].ID < models[j].ID
	})
	return models, nil
}

// ListModelRecords returns the normalized record view of ListModels, with
// availability downgraded for models recently learned unavailable under the
// same entitlement partition.
func (kit *Kit) ListModelRecords(ctx context.Context, opts schemas.ListModelsOptions) ([]schemas.ModelRecord, error) {
	providers, err := kit.resolveProviderSet(opts)
	if err != nil {
		return nil, err
	}

	var records []schemas.ModelRecord
	for _, provider := range providers {
		listed, err := kit.registry.listProvider(ctx, provider, opts.Entitlement, opts.Refresh, kit.fetchProviderModels)
		if err != nil {
			return nil, err
		}
		for _, model := range listed {
			records = append(records, kit.registry.toRecord(model, opts.Entitlement))
		}
	}

	sortRecords(records)
	return records, nil
}

// LearnModelUnavailable records a structural failure against (provider,
// model) under the given entitlement, so subsequent record listings report it
// as unavailable until the learned TTL lapses. Transient failures are
// ignored.
func (kit *Kit) LearnModelUnavailable(provider schemas.ModelProvider, modelID string, entitlement *schemas.EntitlementContext, err error) {
	kit.registry.learn(provider, modelID, entitlement, schemas.AsStrataError(err))
}

// resolveProviderSet expands the options into the concrete provider list:
// the explicit list, else the entitlement's provider, else every configured
// provider. An empty outcome is a validation error, not an empty listing.
func (kit *Kit) resolveProviderSet(opts schemas.ListModelsOptions) ([]schemas.ModelProvider, error) {
	if len(opts.Providers) > 0 {
		return opts.Providers, nil
	}
	if opts.Entitlement != nil && opts.Entitlement.Provider != "" {
		return []schemas.ModelProvider{opts.Entitlement.Provider}, nil
	}

	seen := make(map[schemas.ModelProvider]struct{})
	var providers []schemas.ModelProvider
	for provider := range kit.providerConfigs {
		seen[provider] = struct{}{}
		providers = append(providers, provider)
	}
	for provider := range kit.adapters {
		if _, ok := seen[provider]; !ok {
			providers = append(providers, provider)
		}
	}
	if len(providers) == 0 {
		return nil, schemas.NewValidationError("", "no providers requested and none configured")
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers, nil
}

// fetchProviderModels is the registry's fetch hook: complete the entitlement
// (the fetch itself may need a pool credential), resolve the adapter, and
// pull the live catalog. The completed entitlement stays local to the fetch
// so it never shifts the caller's cache partition.
func (kit *Kit) fetchProviderModels(ctx context.Context, provider schemas.ModelProvider, entitlement *schemas.EntitlementContext) ([]schemas.ModelMetadata, error) {
	adapter, err := kit.resolveAdapter(provider, kit.entitlementForProvider(provider, entitlement))
	if err != nil {
		return nil, err
	}
	if !adapter.Capabilities().Has(schemas.CapabilityListModels) {
		return nil, schemas.NewUnsupportedOperationError(provider, "list models")
	}
	return adapter.ListModels(ctx)
}

// dispatch runs the shared front half of every capability call: resolve the
// entitlement, resolve the adapter, and check the declared capability before
// anything touches the network.
func (kit *Kit) dispatch(provider schemas.ModelProvider, callerEntitlement *schemas.EntitlementContext, capability schemas.Capability, operation string) (schemas.Provider, *schemas.EntitlementContext, string, error) {
	requestID := uuid.New().String()
	if provider == "" {
		return nil, nil, requestID, schemas.NewValidationError(provider, "input is missing a provider")
	}

	entitlement := kit.entitlementForProvider(provider, callerEntitlement)
	adapter, err := kit.resolveAdapter(provider, entitlement)
	if err != nil {
		serr := schemas.AsStrataError(err)
		serr.RequestID = requestID
		return nil, nil, requestID, serr
	}
	if !adapter.Capabilities().Has(capability) {
		serr := schemas.NewUnsupportedOperationError(provider, operation)
		serr.RequestID = requestID
		return nil, nil, requestID, serr
	}
	return adapter, entitlement, requestID, nil
}

// fail is the shared back half of a failed capability call: classify, learn,
// and hand back the unified error. Failures are never swallowed here.
func (kit *Kit) fail(provider schemas.ModelProvider, modelID string, entitlement *schemas.EntitlementContext, requestID string, err error) *schemas.StrataError {
	serr := schemas.AsStrataError(err)
	if serr.Provider == "" {
		serr.Provider = provider
	}
	if serr.RequestID == "" {
		serr.RequestID = requestID
	}
	kit.registry.learn(provider, modelID, entitlement, serr)
	kit.logger.Warn(fmt.Sprintf("%s call %s failed: %v", provider, requestID, serr))
	return serr
}

// Generate runs a text generation call and attaches a cost breakdown when
// both usage and curated pricing exist. The adapter's output is otherwise
// returned untouched.
func (kit *Kit) Generate(ctx context.Context, input schemas.GenerateInput) (schemas.GenerateOutput, error) {
	return kit.generate(ctx, nil, input)
}

// GenerateWithEntitlement is Generate under a caller-supplied entitlement:
// an explicit APIKey bypasses the pool, and tenant fields scope the cache
// and learned-availability partitions.
func (kit *Kit) GenerateWithEntitlement(ctx context.Context, entitlement *schemas.EntitlementContext, input schemas.GenerateInput) (schemas.GenerateOutput, error) {
	return kit.generate(ctx, entitlement, input)
}

func (kit *Kit) generate(ctx context.Context, callerEntitlement *schemas.EntitlementContext, input schemas.GenerateInput) (schemas.GenerateOutput, error) {
	adapter, entitlement, requestID, err := kit.dispatch(input.Provider, callerEntitlement, schemas.CapabilityText, "text generation")
	if err != nil {
		return schemas.GenerateOutput{}, err
	}

	output, err := adapter.Generate(ctx, input)
	if err != nil {
		return schemas.GenerateOutput{}, kit.fail(input.Provider, input.Model, entitlement, requestID, err)
	}
	if output.Cost == nil {
		output.Cost = kit.catalog.EstimateCost(input.Provider, input.Model, output.Usage)
	}
	return output, nil
}

// GenerateImage runs an image generation call.
func (kit *Kit) GenerateImage(ctx context.Context, input schemas.ImageGenerateInput) (schemas.ImageGenerateOutput, error) {
	return kit.generateImage(ctx, nil, input)
}

// GenerateImageWithEntitlement is GenerateImage under a caller-supplied
// entitlement.
func (kit *Kit) GenerateImageWithEntitlement(ctx context.Context, entitlement *schemas.EntitlementContext, input schemas.ImageGenerateInput) (schemas.ImageGenerateOutput, error) {
	return kit.generateImage(ctx, entitlement, input)
}

func (kit *Kit) generateImage(ctx context.Context, callerEntitlement *schemas.EntitlementContext, input schemas.ImageGenerateInput) (schemas.ImageGenerateOutput, error) {
	adapter, entitlement, requestID, err := kit.dispatch(input.Provider, callerEntitlement, schemas.CapabilityImage, "image generation")
	if err != nil {
		return schemas.ImageGenerateOutput{}, err
	}

	output, err := adapter.GenerateImage(ctx, input)
	if err != nil {
		return schemas.ImageGenerateOutput{}, kit.fail(input.Provider, input.Model, entitlement, requestID, err)
	}
	return output, nil
}

// GenerateMesh runs a 3D mesh generation call.
func (kit *Kit) GenerateMesh(ctx context.Context, input schemas.MeshGenerateInput) (schemas.MeshGenerateOutput, error) {
	return kit.generateMesh(ctx, nil, input)
}

// GenerateMeshWithEntitlement is GenerateMesh under a caller-supplied
// entitlement.
func (kit *Kit) GenerateMeshWithEntitlement(ctx context.Context, entitlement *schemas.EntitlementContext, input schemas.MeshGenerateInput) (schemas.MeshGenerateOutput, error) {
	return kit.generateMesh(ctx, entitlement, input)
}

func (kit *Kit) generateMesh(ctx context.Context, callerEntitlement *schemas.EntitlementContext, input schemas.MeshGenerateInput) (schemas.MeshGenerateOutput, error) {
	adapter, entitlement, requestID, err := kit.dispatch(input.Provider, callerEntitlement, schemas.CapabilityMesh, "mesh generation")
	if err != nil {
		return schemas.MeshGenerateOutput{}, err
	}

	output, err := adapter.GenerateMesh(ctx, input)
	if err != nil {
		return schemas.MeshGenerateOutput{}, kit.fail(input.Provider, input.Model, entitlement, requestID, err)
	}
	return output, nil
}

// GenerateSpeech runs a text-to-speech call.
func (kit *Kit) GenerateSpeech(ctx context.Context, input schemas.SpeechGenerateInput) (schemas.SpeechGenerateOutput, error) {
	return kit.generateSpeech(ctx, nil, input)
}

// GenerateSpeechWithEntitlement is GenerateSpeech under a caller-supplied
// entitlement.
func (kit *Kit) GenerateSpeechWithEntitlement(ctx context.Context, entitlement *schemas.EntitlementContext, input schemas.SpeechGenerateInput) (schemas.SpeechGenerateOutput, error) {
	return kit.generateSpeech(ctx, entitlement, input)
}

func (kit *Kit) generateSpeech(ctx context.Context, callerEntitlement *schemas.EntitlementContext, input schemas.SpeechGenerateInput) (schemas.SpeechGenerateOutput, error) {
	adapter, entitlement, requestID, err := kit.dispatch(input.Provider, callerEntitlement, schemas.CapabilitySpeech, "speech generation")
	if err != nil {
		return schemas.SpeechGenerateOutput{}, err
	}

	output, err := adapter.GenerateSpeech(ctx, input)
	if err != nil {
		return schemas.SpeechGenerateOutput{}, kit.fail(input.Provider, input.Model, entitlement, requestID, err)
	}
	return output, nil
}

// GenerateVideo runs a video generation call.
func (kit *Kit) GenerateVideo(ctx context.Context, input schemas.VideoGenerateInput) (schemas.VideoGenerateOutput, error) {
	return kit.generateVideo(ctx, nil, input)
}

// GenerateVideoWithEntitlement is GenerateVideo under a caller-supplied
// entitlement.
func (kit *Kit) GenerateVideoWithEntitlement(ctx context.Context, entitlement *schemas.EntitlementContext, input schemas.VideoGenerateInput) (schemas.VideoGenerateOutput, error) {
	return kit.generateVideo(ctx, entitlement, input)
}

func (kit *Kit) generateVideo(ctx context.Context, callerEntitlement *schemas.EntitlementContext, input schemas.VideoGenerateInput) (schemas.VideoGenerateOutput, error) {
	adapter, entitlement, requestID, err := kit.dispatch(input.Provider, callerEntitlement, schemas.CapabilityVideo, "video generation")
	if err != nil {
		return schemas.VideoGenerateOutput{}, err
	}

	output, err := adapter.GenerateVideo(ctx, input)
	if err != nil {
		return schemas.VideoGenerateOutput{}, kit.fail(input.Provider, input.Model, entitlement, requestID, err)
	}
	return output, nil
}

// Transcribe runs a speech-to-text call and attaches a duration-based cost
// breakdown when the model has a curated per-minute rate. When the adapter
// reports no duration, the latest segment or word end stands in for it.
func (kit *Kit) Transcribe(ctx context.Context, input schemas.TranscribeInput) (schemas.TranscribeOutput, error) {
	return kit.transcribe(ctx, nil, input)
}

// TranscribeWithEntitlement is Transcribe under a caller-supplied
// entitlement.
func (kit *Kit) TranscribeWithEntitlement(ctx context.Context, entitlement *schemas.EntitlementContext, input schemas.TranscribeInput) (schemas.TranscribeOutput, error) {
	return kit.transcribe(ctx, entitlement, input)
}

func (kit *Kit) transcribe(ctx context.Context, callerEntitlement *schemas.EntitlementContext, input schemas.TranscribeInput) (schemas.TranscribeOutput, error) {
	adapter, entitlement, requestID, err := kit.dispatch(input.Provider, callerEntitlement, schemas.CapabilityTranscribe, "transcription")
	if err != nil {
		return schemas.TranscribeOutput{}, err
	}

	output, err := adapter.Transcribe(ctx, input)
	if err != nil {
		return schemas.TranscribeOutput{}, kit.fail(input.Provider, input.Model, entitlement, requestID, err)
	}
	if output.Cost == nil {
		output.Cost = kit.catalog.EstimateTranscribeCost(input.Provider, input.Model, transcribeDurationSeconds(output))
	}
	return output, nil
}

// transcribeDurationSeconds returns the best-known audio duration of a
// transcription: the reported duration, else the latest timestamp any
// segment or word ends at.
func transcribeDurationSeconds(output schemas.TranscribeOutput) *float64 {
	if output.Duration != nil {
		return output.Duration
	}
	var max float64
	for _, segment := range output.Segments {
		if segment.End > max {
			max = segment.End
		}
	}
	for _, word := range output.Words {
		if word.End > max {
			max = word.End
		}
	}
	if max <= 0 {
		return nil
	}
	return &max
}

// StreamGenerate runs a streaming text generation call. The returned channel
// is single-pass and closed after the terminal chunk. Cost is attached to
// the message_end chunk as it passes through; error chunks feed learned
// availability the same way non-streaming failures do.
func (kit *Kit) StreamGenerate(ctx context.Context, input schemas.GenerateInput) (<-chan schemas.StreamChunk, error) {
	return kit.streamGenerate(ctx, nil, input)
}

// StreamGenerateWithEntitlement is StreamGenerate under a caller-supplied
// entitlement.
func (kit *Kit) StreamGenerateWithEntitlement(ctx context.Context, entitlement *schemas.EntitlementContext, input schemas.GenerateInput) (<-chan schemas.StreamChunk, error) {
	return kit.streamGenerate(ctx, entitlement, input)
}

func (kit *Kit) streamGenerate(ctx context.Context, callerEntitlement *schemas.EntitlementContext, input schemas.GenerateInput) (<-chan schemas.StreamChunk, error) {
	adapter, entitlement, requestID, err := kit.dispatch(input.Provider, callerEntitlement, schemas.CapabilityStream, "streaming generation")
	if err != nil {
		return nil, err
	}

	upstream, err := adapter.StreamGenerate(ctx, input)
	if err != nil {
		return nil, kit.fail(input.Provider, input.Model, entitlement, requestID, err)
	}

	out := make(chan schemas.StreamChunk)
	go func() {
		defer close(out)
		for chunk := range upstream {
			switch chunk.Type {
			case schemas.StreamChunkMessageEnd:
				if chunk.Cost == nil {
					chunk.Cost = kit.catalog.EstimateCost(input.Provider, input.Model, chunk.Usage)
				}
			case schemas.StreamChunkError:
				if chunk.Error != nil {
					chunk.Error = kit.fail(input.Provider, input.Model, entitlement, requestID, chunk.Error)
				}
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				// Drain so an adapter blocked on an unbuffered send can
				// finish and close its channel.
				for range upstream {
				}
				return
			}
		}
	}()
	return out, nil
}
