package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/josinaldojr/chat-gateway-rag/internal/llm"
	"github.com/josinaldojr/chat-gateway-rag/internal/metrics"
	"github.com/josinaldojr/chat-gateway-rag/internal/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeAdapter struct {
	provider   llm.Provider
	chunks     []string
	streamErr  error
	configured int
	streamed   []llm.Request
}

func (f *fakeAdapter) Provider() llm.Provider { return f.provider }

func (f *fakeAdapter) Configure(*profile.Profile) (llm.Client, error) {
	f.configured++
	return f, nil
}

func (f *fakeAdapter) Stream(_ context.Context, req llm.Request) (llm.Stream, error) {
	f.streamed = append(f.streamed, req)
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return &chunkStream{chunks: f.chunks}, nil
}

func (f *fakeAdapter) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("not used")
}

type chunkStream struct {
	chunks []string
	closed bool
}

func (s *chunkStream) Recv() (string, error) {
	if s.closed || len(s.chunks) == 0 {
		return "", io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *chunkStream) Close() error {
	s.closed = true
	return nil
}

func newGateway(t *testing.T, adapters ...llm.Adapter) (*Gateway, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	return NewGateway(llm.NewRegistry(adapters...), m, zaptest.NewLogger(t)), m
}

func TestSend_DispatchesToMatchingAdapterOnly(t *testing.T) {
	openai := &fakeAdapter{provider: llm.ProviderOpenAI, chunks: []string{"Hel", "lo"}}
	anthropic := &fakeAdapter{provider: llm.ProviderAnthropic}
	g, m := newGateway(t, openai, anthropic)
	temp := float32(0.5)

	out, err := g.Generate(context.Background(), &profile.Profile{}, ChatRequest{
		Provider:    llm.ProviderOpenAI,
		Model:       "gpt-4o",
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		Temperature: &temp,
	})
	require.NoError(t, err)
	require.Equal(t, "Hello", out)

	require.Len(t, openai.streamed, 1)
	require.Zero(t, anthropic.configured)

	limits, _ := llm.LookupLimits("gpt-4o")
	require.Equal(t, limits.MaxOutputTokens, openai.streamed[0].MaxTokens)
	require.Equal(t, &temp, openai.streamed[0].Temperature)
	require.Equal(t, 1.0, testutil.ToFloat64(m.ChatRequests.WithLabelValues("openai", metrics.OutcomeOK)))
}

func TestSend_MaxTokensOverride(t *testing.T) {
	openai := &fakeAdapter{provider: llm.ProviderOpenAI, chunks: []string{"ok"}}
	g, _ := newGateway(t, openai)

	_, err := g.Generate(context.Background(), &profile.Profile{}, ChatRequest{
		Provider:  llm.ProviderOpenAI,
		Model:     "gpt-4o",
		MaxTokens: 123,
	})
	require.NoError(t, err)
	require.Equal(t, 123, openai.streamed[0].MaxTokens)
	require.Nil(t, openai.streamed[0].Temperature)
}

func TestSend_ConfigErrorsBeforeAnyAdapterCall(t *testing.T) {
	openai := &fakeAdapter{provider: llm.ProviderOpenAI}
	g, m := newGateway(t, openai)

	tests := []struct {
		name string
		req  ChatRequest
		msg  string
	}{
		{"unknown model", ChatRequest{Provider: llm.ProviderOpenAI, Model: "unknown-model"}, "Model not found"},
		{"unregistered provider", ChatRequest{Provider: llm.ProviderGroq, Model: "gpt-4o"}, "Provider not found"},
		{"unknown provider", ChatRequest{Provider: "cohere", Model: "gpt-4o"}, "Provider not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Send(context.Background(), &profile.Profile{}, tt.req)
			n := llm.Normalize(err, tt.req.Provider.DisplayName())
			require.Equal(t, http.StatusBadRequest, n.Status)
			require.Equal(t, tt.msg, n.Message)
		})
	}

	require.Zero(t, openai.configured)
	require.Equal(t, 1.0, testutil.ToFloat64(m.ChatRequests.WithLabelValues("openai", metrics.OutcomeError)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.ChatRequests.WithLabelValues(metrics.Unknown, metrics.OutcomeError)))
	require.Equal(t, 2, testutil.CollectAndCount(m.ChatRequests))
}

func TestSend_UpstreamErrorIsNotRetried(t *testing.T) {
	openai := &fakeAdapter{
		provider:  llm.ProviderOpenAI,
		streamErr: llm.UpstreamError(llm.ProviderOpenAI, http.StatusUnauthorized, "Incorrect API key provided", nil),
	}
	g, _ := newGateway(t, openai)

	_, err := g.Send(context.Background(), &profile.Profile{OpenAIAPIKey: "bad"}, ChatRequest{Provider: llm.ProviderOpenAI, Model: "gpt-4o"})
	n := llm.Normalize(err, "OpenAI")
	require.Equal(t, http.StatusUnauthorized, n.Status)
	require.Equal(t, "OpenAI API Key is incorrect. Please fix it in your profile settings.", n.Message)
	require.Len(t, openai.streamed, 1)
}

func TestSend_AzureWithoutDeploymentMakesNoCall(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	g, _ := newGateway(t, llm.NewAzureAdapter(srv.Client(), ""))
	p := &profile.Profile{
		UseAzureOpenAI:      true,
		AzureOpenAIEndpoint: srv.URL,
		AzureOpenAIAPIKey:   "az",
		Azure45TurboID:      "dep-45",
	}

	_, err := g.Send(context.Background(), p, ChatRequest{Provider: llm.ProviderAzure, Model: "gpt-3.5-turbo"})
	n := llm.Normalize(err, "Azure OpenAI")
	require.Equal(t, http.StatusBadRequest, n.Status)
	require.Equal(t, "Azure resources not found", n.Message)

	_, err = g.Send(context.Background(), p, ChatRequest{Provider: llm.ProviderAzure, Model: "unknown-model"})
	require.Equal(t, "Model not found", llm.Normalize(err, "Azure OpenAI").Message)

	require.Zero(t, hits)
}
