// Package observability records LLM generation traces to a local SQLite store
// and Prometheus metrics. Recording is best-effort: a failed trace write is
// logged and never fails the agent that produced it.
package observability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ammons-datalabs/observable-agent-starter/pkg/config"
	"github.com/ammons-datalabs/observable-agent-starter/pkg/logx"
)

// Generation describes one completed LLM call for tracing.
type Generation struct {
	Name             string         // Observation name; defaults to the provider's name
	Model            string
	Input            string
	Output           map[string]any
	Metadata         map[string]any
	PromptTokens     int // Zero means "count locally"
	CompletionTokens int
	Latency          time.Duration
	Err              error // Non-nil marks the generation failed in metrics
}

// Provider is a named observation scope wiring the trace store, the metrics
// recorder, and the logger together. All sinks are optional capabilities;
// a zero-sink provider only logs.
type Provider struct {
	name    string
	logger  *logx.Logger
	store   *Store
	metrics *Recorder
	counter *TokenCounter
}

// Option configures a Provider.
type Option func(*Provider)

// WithStore attaches a SQLite trace store.
func WithStore(store *Store) Option {
	return func(p *Provider) { p.store = store }
}

// WithMetrics attaches a Prometheus recorder.
func WithMetrics(recorder *Recorder) Option {
	return func(p *Provider) { p.metrics = recorder }
}

// NewProvider creates an observability provider for the given observation
// name.
func NewProvider(name string, opts ...Option) *Provider {
	p := &Provider{
		name:   name,
		logger: logx.NewLogger(name),
	}
	for _, opt := range opts {
		opt(p)
	}

	// Token counter construction can only fail on a broken embedded encoding;
	// run without local counting in that case.
	counter, err := NewTokenCounter("")
	if err != nil {
		p.logger.Warn("token counter unavailable, using character estimates: %v", err)
	}
	p.counter = counter

	return p
}

// Name returns the observation name.
func (p *Provider) Name() string {
	return p.name
}

// Logger returns the provider's logger.
func (p *Provider) Logger() *logx.Logger {
	return p.logger
}

// LogGeneration records one generation to every configured sink. The context
// is consulted only for cancellation of the store write; recording never
// returns an error.
func (p *Provider) LogGeneration(ctx context.Context, gen Generation) {
	if gen.Name == "" {
		gen.Name = p.name
	}

	promptTokens := gen.PromptTokens
	if promptTokens == 0 {
		promptTokens = p.counter.CountTokens(gen.Input)
	}
	completionTokens := gen.CompletionTokens
	if completionTokens == 0 && gen.Err == nil {
		var outputText string
		for _, v := range gen.Output {
			if s, ok := v.(string); ok {
				outputText += s
			}
		}
		completionTokens = p.counter.CountTokens(outputText)
	}

	cost := config.EstimateCost(gen.Model, promptTokens, completionTokens)

	if p.metrics != nil {
		p.metrics.ObserveGeneration(gen.Model, gen.Name, promptTokens, completionTokens, cost, gen.Err == nil, gen.Latency)
	}

	if p.store != nil {
		if err := ctx.Err(); err != nil {
			p.logger.Debug("skipping trace write, context done: %v", err)
		} else {
			rec := GenerationRecord{
				ID:               uuid.NewString(),
				Name:             gen.Name,
				Model:            gen.Model,
				Input:            gen.Input,
				Output:           gen.Output,
				Metadata:         gen.Metadata,
				PromptTokens:     promptTokens,
				CompletionTokens: completionTokens,
				CostUSD:          cost,
				LatencyMS:        gen.Latency.Milliseconds(),
				CreatedAt:        time.Now(),
			}
			if err := p.store.InsertGeneration(&rec); err != nil {
				p.logger.Warn("failed to persist generation trace: %v", err)
			}
		}
	}

	status := "ok"
	if gen.Err != nil {
		status = "error: " + gen.Err.Error()
	}
	p.logger.Debug("generation %s model=%s tokens=%d/%d cost=$%.6f latency=%s status=%s",
		gen.Name, gen.Model, promptTokens, completionTokens, cost, gen.Latency, status)
}

// BaseAgent is a thin embeddable base providing a named logger and tracing
// helper. It imposes no agent structure; examples own their own prompts and
// fallback policies.
type BaseAgent struct {
	provider *Provider
	logger   *logx.Logger
}

// NewBaseAgent creates a base agent bound to an observability provider.
func NewBaseAgent(provider *Provider) BaseAgent {
	return BaseAgent{
		provider: provider,
		logger:   provider.Logger(),
	}
}

// Logger returns the agent's logger.
func (a *BaseAgent) Logger() *logx.Logger {
	return a.logger
}

// LogGeneration forwards to the provider.
func (a *BaseAgent) LogGeneration(ctx context.Context, gen Generation) {
	a.provider.LogGeneration(ctx, gen)
}
