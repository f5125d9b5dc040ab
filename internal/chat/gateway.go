package chat

import (
	"context"
	"time"

	"github.com/josinaldojr/chat-gateway-rag/internal/llm"
	"github.com/josinaldojr/chat-gateway-rag/internal/metrics"
	"github.com/josinaldojr/chat-gateway-rag/internal/profile"
	"go.uber.org/zap"
)

type ChatRequest struct {
	Provider llm.Provider
	Model    string
	Messages []llm.Message
	// Temperature is left to the provider default when nil.
	Temperature *float32
	// MaxTokens overrides the output limit of Model when positive.
	MaxTokens int
}

// Gateway dispatches a chat request to the adapter of its provider.
type Gateway struct {
	registry *llm.Registry
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewGateway(registry *llm.Registry, m *metrics.Metrics, log *zap.Logger) *Gateway {
	return &Gateway{registry: registry, metrics: m, log: log}
}

// Send opens a completion stream. The upstream is called at most once and
// nothing is retried. The caller owns the returned stream and must close it.
func (g *Gateway) Send(ctx context.Context, p *profile.Profile, req ChatRequest) (llm.Stream, error) {
	start := time.Now()

	label := g.providerLabel(req.Provider)
	s, err := g.send(ctx, p, req)
	g.metrics.ChatRequests.WithLabelValues(label, metrics.Outcome(err)).Inc()
	if err != nil {
		g.log.Warn("chat request failed",
			zap.String("provider", string(req.Provider)),
			zap.String("model", req.Model),
			zap.Error(err),
		)
		return nil, err
	}
	g.metrics.ChatDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	return s, nil
}

func (g *Gateway) providerLabel(p llm.Provider) string {
	if _, ok := g.registry.Lookup(p); ok {
		return string(p)
	}
	return metrics.Unknown
}

func (g *Gateway) send(ctx context.Context, p *profile.Profile, req ChatRequest) (llm.Stream, error) {
	limits, ok := llm.LookupLimits(req.Model)
	if !ok {
		return nil, llm.ConfigError(req.Provider, llm.MsgModelNotFound)
	}

	adapter, ok := g.registry.Lookup(req.Provider)
	if !ok {
		return nil, llm.ConfigError(req.Provider, llm.MsgProviderNotFound)
	}

	client, err := adapter.Configure(p)
	if err != nil {
		return nil, err
	}

	maxTokens := limits.MaxOutputTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	return client.Stream(ctx, llm.Request{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	})
}

// Generate is Send followed by collecting the whole answer.
func (g *Gateway) Generate(ctx context.Context, p *profile.Profile, req ChatRequest) (string, error) {
	s, err := g.Send(ctx, p, req)
	if err != nil {
		return "", err
	}
	return llm.Collect(s)
}
