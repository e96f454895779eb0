package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Conceptual-Machines/aideas-relay/internal/llm"
	"github.com/Conceptual-Machines/aideas-relay/internal/logger"
	"github.com/Conceptual-Machines/aideas-relay/internal/models"
	"github.com/Conceptual-Machines/aideas-relay/internal/observability"
	"github.com/Conceptual-Machines/aideas-relay/internal/prompt"
	"github.com/getsentry/sentry-go"
)

const (
	traceName     = "music_generation"
	invalidLabel  = "invalid"
	unknownModel  = "unknown"
	transactionOp = "music.generate"
)

// ProviderSource resolves a backend to its provider
type ProviderSource interface {
	Provider(backend models.Backend) (llm.Provider, error)
}

// Recorder receives generation and provider call measurements
type Recorder interface {
	RecordGeneration(ctx context.Context, kind, backend string, duration time.Duration, success bool)
	RecordProviderCall(
		ctx context.Context,
		provider, model string,
		duration time.Duration,
		inputTokens, outputTokens int64,
		success bool,
	)
}

// GenerationService turns one music request into one response envelope
type GenerationService struct {
	providers ProviderSource
	prompts   *prompt.Builder
	recorder  Recorder
	tracer    *observability.LangfuseClient
}

// NewGenerationService creates a generation service.
// recorder and tracer may be nil.
func NewGenerationService(
	providers ProviderSource,
	prompts *prompt.Builder,
	recorder Recorder,
	tracer *observability.LangfuseClient,
) *GenerationService {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if tracer == nil {
		tracer = observability.GetClient()
	}
	return &GenerationService{
		providers: providers,
		prompts:   prompts,
		recorder:  recorder,
		tracer:    tracer,
	}
}

// Generate runs every provider call the request needs and builds the envelope.
// It always returns an envelope. Chord requests also fetch instruments on the same
// backend once the chord call succeeded; the two calls succeed or fail together.
// Failure detail is only logged.
func (s *GenerationService) Generate(ctx context.Context, req *models.GenerationRequest) (envelope *models.ResponseEnvelope) {
	start := time.Now()
	if req == nil {
		req = &models.GenerationRequest{}
	}
	param := *req
	fields := logger.FieldsFromContext(ctx).Merge(logger.Fields{
		"kind":    req.Type,
		"backend": req.Model,
	})

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "Panic during music generation", fmt.Errorf("panic: %v", r), fields)
			envelope = models.NewErrorEnvelope(param)
		}
	}()

	kind, backend, provider, err := s.resolve(req)
	if err != nil {
		logger.ErrorCtx(ctx, "Rejected music request", err, fields)
		s.recorder.RecordGeneration(ctx, invalidLabel, invalidLabel, time.Since(start), false)
		return models.NewErrorEnvelope(param)
	}

	tx := sentry.StartTransaction(ctx, transactionOp)
	tx.SetTag("kind", string(kind))
	tx.SetTag("backend", backend.Label())
	defer tx.Finish()
	ctx = tx.Context()

	trace := s.tracer.StartTrace(ctx, traceName, param, map[string]any{
		"kind":    string(kind),
		"backend": backend.Label(),
	})
	defer trace.Finish()

	var instruments models.TokenSequence
	data, err := s.dispatch(ctx, provider, kind, req, trace, fields)
	if err == nil && kind == models.KindChord {
		instruments, err = s.dispatch(ctx, provider, models.KindInstrument, req, trace, fields)
	}

	duration := time.Since(start)
	s.recorder.RecordGeneration(ctx, string(kind), backend.Label(), duration, err == nil)

	if err != nil {
		tx.Status = sentry.SpanStatusInternalError
		logger.ErrorCtx(ctx, "Music generation failed", err, fields.Merge(logger.Fields{
			"duration_ms": duration.Milliseconds(),
		}))
		return models.NewErrorEnvelope(param)
	}

	tx.Status = sentry.SpanStatusOK
	logger.InfoCtx(ctx, "Music generation completed", fields.Merge(logger.Fields{
		"duration_ms":       duration.Milliseconds(),
		"data_tokens":       len(data),
		"instrument_tokens": len(instruments),
	}))
	return models.NewSuccessEnvelope(param, data, instruments)
}

// resolve validates the request before any network call
func (s *GenerationService) resolve(req *models.GenerationRequest) (models.RequestKind, models.Backend, llm.Provider, error) {
	kind, err := models.ParseRequestKind(req.Type)
	if err != nil {
		return "", "", nil, err
	}
	backend, err := models.ParseBackend(req.Model)
	if err != nil {
		return "", "", nil, err
	}
	provider, err := s.providers.Provider(backend)
	if err != nil {
		return "", "", nil, err
	}
	return kind, backend, provider, nil
}

// dispatch renders the prompt pair for kind, calls the provider once and normalizes the answer.
// An empty result becomes the no-data placeholder.
func (s *GenerationService) dispatch(
	ctx context.Context,
	provider llm.Provider,
	kind models.RequestKind,
	req *models.GenerationRequest,
	trace *observability.Trace,
	fields logger.Fields,
) (tokens models.TokenSequence, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during %s call: %v", kind, r)
		}
	}()

	pair, err := s.prompts.Build(kind, req)
	if err != nil {
		return nil, fmt.Errorf("build %s prompt: %w", kind, err)
	}

	gen := trace.Generation(string(kind), pair, map[string]any{"provider": provider.Name()})

	callStart := time.Now()
	resp, err := provider.Complete(ctx, &llm.CompletionRequest{
		Instruction: pair.Instruction,
		UserMessage: pair.UserMessage,
	})
	callDuration := time.Since(callStart)

	if err != nil {
		s.recorder.RecordProviderCall(ctx, provider.Name(), unknownModel, callDuration, 0, 0, false)
		gen.Fail(err)
		return nil, fmt.Errorf("%s call: %w", kind, err)
	}

	s.recorder.RecordProviderCall(ctx, provider.Name(), resp.Model, callDuration,
		resp.Usage.InputTokens, resp.Usage.OutputTokens, true)
	logger.LogGenerationRequest(ctx, provider.Name(), resp.Model, callDuration, resp.Usage.AsMap(),
		fields.Merge(logger.Fields{"call": string(kind)}))

	tokens = Normalize(resp)
	if len(tokens) == 0 {
		tokens = models.TokenSequence{models.NoDataPlaceholder}
	}
	gen.Complete(resp.Model, tokens, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return tokens, nil
}

type noopRecorder struct{}

func (noopRecorder) RecordGeneration(context.Context, string, string, time.Duration, bool) {}

func (noopRecorder) RecordProviderCall(context.Context, string, string, time.Duration, int64, int64, bool) {
}
