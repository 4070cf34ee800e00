package strata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratahq/strata/schemas"
)

// fakeProvider is a call-counting adapter with a configurable capability set.
type fakeProvider struct {
	key          schemas.ModelProvider
	capabilities schemas.CapabilitySet

	models       []schemas.ModelMetadata
	generateOut  schemas.GenerateOutput
	generateErr  error
	streamChunks []schemas.StreamChunk
	streamFn     func(ctx context.Context) (<-chan schemas.StreamChunk, error)

	listCalls     int
	generateCalls int
	imageCalls    int
}

func (f *fakeProvider) GetProviderKey() schemas.ModelProvider { return f.key }
func (f *fakeProvider) Capabilities() schemas.CapabilitySet   { return f.capabilities }

func (f *fakeProvider) ListModels(ctx context.Context) ([]schemas.ModelMetadata, error) {
	f.listCalls++
	return f.models, nil
}

func (f *fakeProvider) Generate(ctx context.Context, input schemas.GenerateInput) (schemas.GenerateOutput, error) {
	f.generateCalls++
	if f.generateErr != nil {
		return schemas.GenerateOutput{}, f.generateErr
	}
	return f.generateOut, nil
}

func (f *fakeProvider) GenerateImage(ctx context.Context, input schemas.ImageGenerateInput) (schemas.ImageGenerateOutput, error) {
	f.imageCalls++
	return schemas.ImageGenerateOutput{}, nil
}

func (f *fakeProvider) GenerateMesh(ctx context.Context, input schemas.MeshGenerateInput) (schemas.MeshGenerateOutput, error) {
	return schemas.MeshGenerateOutput{}, nil
}

func (f *fakeProvider) GenerateSpeech(ctx context.Context, input schemas.SpeechGenerateInput) (schemas.SpeechGenerateOutput, error) {
	return schemas.SpeechGenerateOutput{}, nil
}

func (f *fakeProvider) GenerateVideo(ctx context.Context, input schemas.VideoGenerateInput) (schemas.VideoGenerateOutput, error) {
	return schemas.VideoGenerateOutput{}, nil
}

func (f *fakeProvider) Transcribe(ctx context.Context, input schemas.TranscribeInput) (schemas.TranscribeOutput, error) {
	return schemas.TranscribeOutput{}, nil
}

func (f *fakeProvider) StreamGenerate(ctx context.Context, input schemas.GenerateInput) (<-chan schemas.StreamChunk, error) {
	if f.streamFn != nil {
		return f.streamFn(ctx)
	}
	chunks := make(chan schemas.StreamChunk, len(f.streamChunks))
	for _, chunk := range f.streamChunks {
		chunks <- chunk
	}
	close(chunks)
	return chunks, nil
}

func newTestKit(t *testing.T, fake *fakeProvider) *Kit {
	t.Helper()
	kit, err := New(schemas.KitConfig{
		Adapters: map[schemas.ModelProvider]schemas.Provider{fake.key: fake},
		Logger:   testLogger{},
	})
	require.NoError(t, err)
	return kit
}

func TestNew_RequiresSomeAdapterSource(t *testing.T) {
	_, err := New(schemas.KitConfig{})
	require.Error(t, err)
	assert.Equal(t, schemas.ErrorValidation, schemas.AsStrataError(err).Kind)
}

func TestNew_BuildsPoolsAndStaticAdapters(t *testing.T) {
	kit, err := New(schemas.KitConfig{
		Providers: map[schemas.ModelProvider]*schemas.ProviderConfig{
			schemas.OpenAI: {Keys: []string{"sk-1", "sk-2"}},
			schemas.Ollama: {},
		},
		Logger: testLogger{},
	})
	require.NoError(t, err)

	require.Contains(t, kit.keyPools, schemas.OpenAI)
	assert.Equal(t, 2, kit.keyPools[schemas.OpenAI].size())
	assert.NotContains(t, kit.keyPools, schemas.Ollama, "keyless provider builds no pool")

	assert.Contains(t, kit.adapters, schemas.OpenAI)
	assert.Contains(t, kit.adapters, schemas.Ollama)
}

func TestNew_RejectsUnknownProviderWithoutFallback(t *testing.T) {
	_, err := New(schemas.KitConfig{
		Providers: map[schemas.ModelProvider]*schemas.ProviderConfig{
			schemas.Replicate: {Keys: []string{"r8-key"}},
		},
		Logger: testLogger{},
	})
	require.Error(t, err)
	assert.Equal(t, schemas.ErrorValidation, schemas.AsStrataError(err).Kind)
}

func TestGenerate_UnknownProviderIsValidationError(t *testing.T) {
	kit := newTestKit(t, &fakeProvider{key: schemas.OpenAI, capabilities: schemas.NewCapabilitySet(schemas.CapabilityText)})

	_, err := kit.Generate(context.Background(), schemas.GenerateInput{Provider: schemas.Fal, Model: "x"})
	require.Error(t, err)
	serr := schemas.AsStrataError(err)
	assert.Equal(t, schemas.ErrorValidation, serr.Kind)
	assert.NotEmpty(t, serr.RequestID)
}

func TestGenerateImage_UnsupportedNamesProviderWithoutInvoking(t *testing.T) {
	fake := &fakeProvider{key: schemas.Anthropic, capabilities: schemas.NewCapabilitySet(schemas.CapabilityText)}
	kit := newTestKit(t, fake)

	_, err := kit.GenerateImage(context.Background(), schemas.ImageGenerateInput{
		Provider: schemas.Anthropic,
		Model:    "claude-sonnet-4",
		Prompt:   "a map",
	})
	require.Error(t, err)
	serr := schemas.AsStrataError(err)
	assert.Equal(t, schemas.ErrorUnsupported, serr.Kind)
	assert.Contains(t, serr.Message, "anthropic")
	assert.Equal(t, 0, fake.imageCalls, "adapter must not be invoked")
}

func TestGenerate_CostAttachedFromCuratedPricing(t *testing.T) {
	fake := &fakeProvider{
		key:          schemas.OpenAI,
		capabilities: schemas.NewCapabilitySet(schemas.CapabilityText),
		generateOut: schemas.GenerateOutput{
			Text:         "hello",
			FinishReason: "stop",
			Usage: &schemas.Usage{
				InputTokens:  schemas.Ptr(1000),
				OutputTokens: schemas.Ptr(500),
			},
		},
	}
	kit := newTestKit(t, fake)

	output, err := kit.Generate(context.Background(), schemas.GenerateInput{Provider: schemas.OpenAI, Model: "gpt-4o"})
	require.NoError(t, err)

	// Everything but cost equals the adapter's raw output.
	assert.Equal(t, "hello", output.Text)
	assert.Equal(t, "stop", output.FinishReason)
	assert.Equal(t, fake.generateOut.Usage, output.Usage)

	// gpt-4o is curated at $2.5/M in, $10/M out:
	// 1000*2.5/1e6 + 500*10/1e6 = 0.0025 + 0.005 = 0.0075
	require.NotNil(t, output.Cost)
	assert.InDelta(t, 0.0025, output.Cost.InputCostUSD, 1e-9)
	assert.InDelta(t, 0.005, output.Cost.OutputCostUSD, 1e-9)
	assert.InDelta(t, 0.0075, output.Cost.TotalCostUSD, 1e-9)
}

func TestGenerate_CostStaysUnsetWithoutPricing(t *testing.T) {
	fake := &fakeProvider{
		key:          schemas.OpenAI,
		capabilities: schemas.NewCapabilitySet(schemas.CapabilityText),
		generateOut: schemas.GenerateOutput{
			Text:  "hello",
			Usage: &schemas.Usage{InputTokens: schemas.Ptr(10), OutputTokens: schemas.Ptr(5)},
		},
	}
	kit := newTestKit(t, fake)

	output, err := kit.Generate(context.Background(), schemas.GenerateInput{Provider: schemas.OpenAI, Model: "mystery-model"})
	require.NoError(t, err)
	assert.Nil(t, output.Cost)
}

func TestGenerate_FailureLearnsAndRethrows(t *testing.T) {
	fake := &fakeProvider{
		key:          schemas.OpenAI,
		capabilities: schemas.NewCapabilitySet(schemas.CapabilityText, schemas.CapabilityListModels),
		models: []schemas.ModelMetadata{
			{ID: "gpt-4o", DisplayName: "gpt-4o", Provider: schemas.OpenAI, Capabilities: schemas.ModelCapabilities{Text: true}},
		},
		generateErr: &schemas.StrataError{
			Kind:     schemas.ErrorProviderNotFound,
			Message:  "model not found",
			Provider: schemas.OpenAI,
		},
	}
	kit := newTestKit(t, fake)

	_, err := kit.Generate(context.Background(), schemas.GenerateInput{Provider: schemas.OpenAI, Model: "gpt-4o"})
	require.Error(t, err)
	assert.Equal(t, schemas.ErrorProviderNotFound, schemas.AsStrataError(err).Kind)

	records, err := kit.ListModelRecords(context.Background(), schemas.ListModelsOptions{
		Providers: []schemas.ModelProvider{schemas.OpenAI},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Availability.Entitled)
	assert.Equal(t, schemas.AvailabilityLearned, records[0].Availability.Confidence)
	assert.Equal(t, "model not found", records[0].Availability.Reason)
}

func TestGenerate_TransientFailureDoesNotPoisonAvailability(t *testing.T) {
	fake := &fakeProvider{
		key:          schemas.OpenAI,
		capabilities: schemas.NewCapabilitySet(schemas.CapabilityText, schemas.CapabilityListModels),
		models: []schemas.ModelMetadata{
			{ID: "gpt-4o", DisplayName: "gpt-4o", Provider: schemas.OpenAI, Capabilities: schemas.ModelCapabilities{Text: true}},
		},
		generateErr: &schemas.StrataError{
			Kind:     schemas.ErrorProviderRateLimit,
			Message:  "too many requests",
			Provider: schemas.OpenAI,
		},
	}
	kit := newTestKit(t, fake)

	_, err := kit.Generate(context.Background(), schemas.GenerateInput{Provider: schemas.OpenAI, Model: "gpt-4o"})
	require.Error(t, err)

	records, err := kit.ListModelRecords(context.Background(), schemas.ListModelsOptions{
		Providers: []schemas.ModelProvider{schemas.OpenAI},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Availability.Entitled)
	assert.Equal(t, schemas.AvailabilityListed, records[0].Availability.Confidence)
}

func TestGenerateWithEntitlement_FailureLearnsInCallerPartition(t *testing.T) {
	fake := &fakeProvider{
		key:          schemas.OpenAI,
		capabilities: schemas.NewCapabilitySet(schemas.CapabilityText, schemas.CapabilityListModels),
		models: []schemas.ModelMetadata{
			{ID: "gpt-4o", DisplayName: "gpt-4o", Provider: schemas.OpenAI, Capabilities: schemas.ModelCapabilities{Text: true}},
		},
		generateErr: &schemas.StrataError{
			Kind:     schemas.ErrorProviderNotFound,
			Message:  "model not found",
			Provider: schemas.OpenAI,
		},
	}
	kit := newTestKit(t, fake)
	entitlement := &schemas.EntitlementContext{UserID: "user-1"}

	_, err := kit.GenerateWithEntitlement(context.Background(), entitlement, schemas.GenerateInput{Provider: schemas.OpenAI, Model: "gpt-4o"})
	require.Error(t, err)

	// The caller's partition carries the learned downgrade...
	records, err := kit.ListModelRecords(context.Background(), schemas.ListModelsOptions{
		Providers:   []schemas.ModelProvider{schemas.OpenAI},
		Entitlement: &schemas.EntitlementContext{UserID: "user-1"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Availability.Entitled)

	// ...while the default partition is untouched.
	records, err = kit.ListModelRecords(context.Background(), schemas.ListModelsOptions{
		Providers: []schemas.ModelProvider{schemas.OpenAI},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Availability.Entitled)
}

func TestGenerateWithEntitlement_ResolverSeesCompletedEntitlement(t *testing.T) {
	fake := &fakeProvider{
		key:          schemas.OpenAI,
		capabilities: schemas.NewCapabilitySet(schemas.CapabilityText),
	}

	var captured *schemas.EntitlementContext
	kit, err := New(schemas.KitConfig{
		Adapters: map[schemas.ModelProvider]schemas.Provider{schemas.OpenAI: fake},
		AdapterResolvers: []schemas.AdapterResolver{
			func(_ schemas.ModelProvider, entitlement *schemas.EntitlementContext) (schemas.Provider, error) {
				captured = entitlement
				return nil, nil
			},
		},
		Logger: testLogger{},
	})
	require.NoError(t, err)

	_, err = kit.GenerateWithEntitlement(context.Background(), &schemas.EntitlementContext{APIKey: "sk-explicit"}, schemas.GenerateInput{Provider: schemas.OpenAI, Model: "gpt-4o"})
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "sk-explicit", captured.APIKey)
	assert.Equal(t, FingerprintAPIKey("sk-explicit"), captured.APIKeyFingerprint)
	assert.Equal(t, schemas.OpenAI, captured.Provider)
}

func TestListModels_NoProvidersConfiguredIsValidationError(t *testing.T) {
	kit, err := New(schemas.KitConfig{
		AdapterResolvers: []schemas.AdapterResolver{
			func(schemas.ModelProvider, *schemas.EntitlementContext) (schemas.Provider, error) { return nil, nil },
		},
		Logger: testLogger{},
	})
	require.NoError(t, err)

	_, err = kit.ListModels(context.Background(), schemas.ListModelsOptions{})
	require.Error(t, err)
	assert.Equal(t, schemas.ErrorValidation, schemas.AsStrataError(err).Kind)
}

func TestListModels_EntitlementProviderNarrowsSet(t *testing.T) {
	fake := &fakeProvider{
		key:          schemas.OpenAI,
		capabilities: schemas.NewCapabilitySet(schemas.CapabilityListModels),
		models: []schemas.ModelMetadata{
			{ID: "gpt-4o-mini", DisplayName: "gpt-4o-mini", Provider: schemas.OpenAI, Capabilities: schemas.ModelCapabilities{Text: true}},
		},
	}
	kit := newTestKit(t, fake)

	models, err := kit.ListModels(context.Background(), schemas.ListModelsOptions{
		Entitlement: &schemas.EntitlementContext{Provider: schemas.OpenAI},
	})
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, 1, fake.listCalls)
}

func TestListModels_KeyedProviderHitsCacheOnRepeat(t *testing.T) {
	fake := &fakeProvider{
		key:          schemas.OpenAI,
		capabilities: schemas.NewCapabilitySet(schemas.CapabilityListModels),
		models: []schemas.ModelMetadata{
			{ID: "gpt-4o", DisplayName: "gpt-4o", Provider: schemas.OpenAI, Capabilities: schemas.ModelCapabilities{Text: true}},
		},
	}
	kit, err := New(schemas.KitConfig{
		Providers: map[schemas.ModelProvider]*schemas.ProviderConfig{
			schemas.OpenAI: {Keys: []string{"sk-1", "sk-2"}},
		},
		AdapterResolvers: []schemas.AdapterResolver{
			func(schemas.ModelProvider, *schemas.EntitlementContext) (schemas.Provider, error) {
				return fake, nil
			},
		},
		Logger: testLogger{},
	})
	require.NoError(t, err)

	opts := schemas.ListModelsOptions{Providers: []schemas.ModelProvider{schemas.OpenAI}}
	_, err = kit.ListModels(context.Background(), opts)
	require.NoError(t, err)
	_, err = kit.ListModels(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.listCalls, "second listing must be served from cache")

	// The pool keys never enter the partition: a no-entitlement listing
	// lands under "default", not under a rotating key fingerprint.
	_, ok := kit.registry.cache[cacheKey(schemas.OpenAI, nil)]
	assert.True(t, ok)
	require.Len(t, kit.registry.cache, 1)
}

func TestResolveAdapter_CallerResolverWinsOverStatic(t *testing.T) {
	static := &fakeProvider{key: schemas.OpenAI, capabilities: schemas.NewCapabilitySet(schemas.CapabilityText)}
	injected := &fakeProvider{
		key:          schemas.OpenAI,
		capabilities: schemas.NewCapabilitySet(schemas.CapabilityText),
		generateOut:  schemas.GenerateOutput{Text: "from resolver"},
	}

	kit, err := New(schemas.KitConfig{
		Adapters: map[schemas.ModelProvider]schemas.Provider{schemas.OpenAI: static},
		AdapterResolvers: []schemas.AdapterResolver{
			func(provider schemas.ModelProvider, _ *schemas.EntitlementContext) (schemas.Provider, error) {
				if provider == schemas.OpenAI {
					return injected, nil
				}
				return nil, nil
			},
		},
		Logger: testLogger{},
	})
	require.NoError(t, err)

	output, err := kit.Generate(context.Background(), schemas.GenerateInput{Provider: schemas.OpenAI, Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "from resolver", output.Text)
	assert.Equal(t, 0, static.generateCalls)
	assert.Equal(t, 1, injected.generateCalls)
}

func TestResolveAdapter_ResolverPassesToNext(t *testing.T) {
	static := &fakeProvider{
		key:          schemas.OpenAI,
		capabilities: schemas.NewCapabilitySet(schemas.CapabilityText),
		generateOut:  schemas.GenerateOutput{Text: "from static"},
	}

	kit, err := New(schemas.KitConfig{
		Adapters: map[schemas.ModelProvider]schemas.Provider{schemas.OpenAI: static},
		AdapterResolvers: []schemas.AdapterResolver{
			func(schemas.ModelProvider, *schemas.EntitlementContext) (schemas.Provider, error) {
				return nil, nil // decline
			},
		},
		Logger: testLogger{},
	})
	require.NoError(t, err)

	output, err := kit.Generate(context.Background(), schemas.GenerateInput{Provider: schemas.OpenAI, Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "from static", output.Text)
}

func TestStreamGenerate_CostAttachedAtMessageEnd(t *testing.T) {
	fake := &fakeProvider{
		key:          schemas.OpenAI,
		capabilities: schemas.NewCapabilitySet(schemas.CapabilityStream),
		streamChunks: []schemas.StreamChunk{
			{Type: schemas.StreamChunkTextDelta, TextDelta: "hel"},
			{Type: schemas.StreamChunkTextDelta, TextDelta: "lo"},
			{
				Type:         schemas.StreamChunkMessageEnd,
				FinishReason: "stop",
				Usage: &schemas.Usage{
					InputTokens:  schemas.Ptr(1000),
					OutputTokens: schemas.Ptr(500),
				},
			},
		},
	}
	kit := newTestKit(t, fake)

	stream, err := kit.StreamGenerate(context.Background(), schemas.GenerateInput{Provider: schemas.OpenAI, Model: "gpt-4o"})
	require.NoError(t, err)

	var collected []schemas.StreamChunk
	for chunk := range stream {
		collected = append(collected, chunk)
	}
	require.Len(t, collected, 3)
	assert.Equal(t, schemas.StreamChunkTextDelta, collected[0].Type)
	assert.Nil(t, collected[0].Cost)

	terminal := collected[2]
	assert.Equal(t, schemas.StreamChunkMessageEnd, terminal.Type)
	require.NotNil(t, terminal.Cost)
	assert.InDelta(t, 0.0075, terminal.Cost.TotalCostUSD, 1e-9)
}

func TestStreamGenerate_UnsupportedWithoutStreamCapability(t *testing.T) {
	fake := &fakeProvider{key: schemas.OpenAI, capabilities: schemas.NewCapabilitySet(schemas.CapabilityText)}
	kit := newTestKit(t, fake)

	_, err := kit.StreamGenerate(context.Background(), schemas.GenerateInput{Provider: schemas.OpenAI, Model: "gpt-4o"})
	require.Error(t, err)
	assert.Equal(t, schemas.ErrorUnsupported, schemas.AsStrataError(err).Kind)
}

func TestStreamGenerate_CancelDrainsAdapterStream(t *testing.T) {
	producerDone := make(chan struct{})
	fake := &fakeProvider{
		key:          schemas.OpenAI,
		capabilities: schemas.NewCapabilitySet(schemas.CapabilityStream),
		streamFn: func(context.Context) (<-chan schemas.StreamChunk, error) {
			chunks := make(chan schemas.StreamChunk)
			go func() {
				defer close(producerDone)
				defer close(chunks)
				for i := 0; i < 5; i++ {
					chunks <- schemas.StreamChunk{Type: schemas.StreamChunkTextDelta, TextDelta: "x"}
				}
			}()
			return chunks, nil
		},
	}
	kit := newTestKit(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := kit.StreamGenerate(ctx, schemas.GenerateInput{Provider: schemas.OpenAI, Model: "gpt-4o"})
	require.NoError(t, err)

	<-stream
	cancel()

	// The adapter sends on an unbuffered channel; without the drain its
	// goroutine would block forever once the consumer walks away.
	select {
	case <-producerDone:
	case <-time.After(time.Second):
		t.Fatal("adapter stream goroutine still blocked after cancel")
	}
}

func TestNew_DoesNotMutateCallerConfig(t *testing.T) {
	config := &schemas.ProviderConfig{
		Keys:          []string{"sk-1"},
		NetworkConfig: schemas.NetworkConfig{BaseURL: "https://api.openai.com/v1/"},
	}
	_, err := New(schemas.KitConfig{
		Providers: map[schemas.ModelProvider]*schemas.ProviderConfig{schemas.OpenAI: config},
		Logger:    testLogger{},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://api.openai.com/v1/", config.NetworkConfig.BaseURL, "trailing slash trimmed only on the kit's clone")
	assert.Equal(t, 0, config.NetworkConfig.DefaultRequestTimeoutInSeconds, "timeout defaulted only on the kit's clone")
}

func TestTranscribeDurationSeconds_FallsBackToTimestamps(t *testing.T) {
	reported := schemas.TranscribeOutput{Duration: schemas.Ptr(12.5)}
	assert.Equal(t, 12.5, *transcribeDurationSeconds(reported))

	fromSegments := schemas.TranscribeOutput{
		Segments: []schemas.TranscriptSegment{{Start: 0, End: 4.2}, {Start: 4.2, End: 9.7}},
		Words:    []schemas.TranscriptWord{{Start: 9.0, End: 9.5}},
	}
	assert.Equal(t, 9.7, *transcribeDurationSeconds(fromSegments))

	empty := schemas.TranscribeOutput{}
	assert.Nil(t, transcribeDurationSeconds(empty))
}
