package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/josinaldojr/chat-gateway-rag/internal/profile"
	openai "github.com/sashabaranov/go-openai"
)

const (
	perplexityBaseURL = "https://api.perplexity.ai"
	groqBaseURL       = "https://api.groq.com/openai/v1"
	mistralBaseURL    = "https://api.mistral.ai/v1"

	// RemoteEmbeddingModel is the model behind the remote embedding space.
	RemoteEmbeddingModel = openai.SmallEmbedding3
)

// OpenAIAdapter serves OpenAI and every vendor exposing an OpenAI-compatible
// chat completions API.
type OpenAIAdapter struct {
	provider       Provider
	httpClient     *http.Client
	baseURL        string
	apiKey         func(*profile.Profile) string
	orgID          func(*profile.Profile) string
	embeddingModel openai.EmbeddingModel
}

func NewOpenAIAdapter(httpClient *http.Client, baseURL string) *OpenAIAdapter {
	return &OpenAIAdapter{
		provider:       ProviderOpenAI,
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         func(p *profile.Profile) string { return p.OpenAIAPIKey },
		orgID:          func(p *profile.Profile) string { return p.OpenAIOrganizationID },
		embeddingModel: RemoteEmbeddingModel,
	}
}

func NewPerplexityAdapter(httpClient *http.Client, baseURL string) *OpenAIAdapter {
	return newCompatibleAdapter(ProviderPerplexity, httpClient, orDefault(baseURL, perplexityBaseURL),
		func(p *profile.Profile) string { return p.PerplexityAPIKey })
}

func NewGroqAdapter(httpClient *http.Client, baseURL string) *OpenAIAdapter {
	return newCompatibleAdapter(ProviderGroq, httpClient, orDefault(baseURL, groqBaseURL),
		func(p *profile.Profile) string { return p.GroqAPIKey })
}

func NewMistralAdapter(httpClient *http.Client, baseURL string) *OpenAIAdapter {
	return newCompatibleAdapter(ProviderMistral, httpClient, orDefault(baseURL, mistralBaseURL),
		func(p *profile.Profile) string { return p.MistralAPIKey })
}

func newCompatibleAdapter(provider Provider, httpClient *http.Client, baseURL string, key func(*profile.Profile) string) *OpenAIAdapter {
	return &OpenAIAdapter{
		provider:   provider,
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     key,
		orgID:      func(*profile.Profile) string { return "" },
	}
}

func (a *OpenAIAdapter) Provider() Provider { return a.provider }

func (a *OpenAIAdapter) Configure(p *profile.Profile) (Client, error) {
	c, err := a.client(p)
	if err != nil {
		return nil, err
	}
	return &openAIClient{provider: a.provider, client: c, embeddingModel: a.embeddingModel}, nil
}

func (a *OpenAIAdapter) client(p *profile.Profile) (*openai.Client, error) {
	key := a.apiKey(p)
	if key == "" {
		return nil, MissingKeyError(a.provider)
	}

	cfg := openai.DefaultConfig(key)
	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	if org := a.orgID(p); org != "" {
		cfg.OrgID = org
	}
	if a.httpClient != nil {
		cfg.HTTPClient = a.httpClient
	}
	return openai.NewClientWithConfig(cfg), nil
}

// AssistantPage is one page of the OpenAI assistants listing.
type AssistantPage struct {
	Data    []openai.Assistant `json:"data"`
	FirstID *string            `json:"first_id"`
	LastID  *string            `json:"last_id"`
	HasMore bool               `json:"has_more"`
}

// ListAssistants returns up to limit assistants after the given cursor.
func (a *OpenAIAdapter) ListAssistants(ctx context.Context, p *profile.Profile, limit int, after string) (*AssistantPage, error) {
	c, err := a.client(p)
	if err != nil {
		return nil, err
	}

	var cursor *string
	if after != "" {
		cursor = &after
	}

	list, err := c.ListAssistants(ctx, &limit, nil, cursor, nil)
	if err != nil {
		return nil, openAIError(a.provider, err)
	}

	data := list.Assistants
	if data == nil {
		data = []openai.Assistant{}
	}
	return &AssistantPage{Data: data, FirstID: list.FirstID, LastID: list.LastID, HasMore: list.HasMore}, nil
}

type openAIClient struct {
	provider       Provider
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
}

func (c *openAIClient) Stream(ctx context.Context, req Request) (Stream, error) {
	return streamOpenAI(ctx, c.provider, c.client, req.Model, req)
}

func (c *openAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.embeddingModel == "" {
		return nil, ConfigError(c.provider, MsgEmbeddingsUnsupported)
	}
	return embedOpenAI(ctx, c.provider, c.client, c.embeddingModel, text)
}

// streamOpenAI issues a streaming chat completion against model, which is a
// model name or, for Azure, a deployment id.
func streamOpenAI(ctx context.Context, provider Provider, client *openai.Client, model string, req Request) (Stream, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	stream, err := client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: openAITemperature(req.Temperature),
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, openAIError(provider, err)
	}

	return &funcStream{
		next: func() (string, error) {
			for {
				resp, err := stream.Recv()
				if errors.Is(err, io.EOF) {
					return "", io.EOF
				}
				if err != nil {
					return "", openAIError(provider, err)
				}
				if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
					continue
				}
				return resp.Choices[0].Delta.Content, nil
			}
		},
		close: func() error {
			stream.Close()
			return nil
		},
	}, nil
}

func embedOpenAI(ctx context.Context, provider Provider, client *openai.Client, model openai.EmbeddingModel, text string) ([]float32, error) {
	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: model,
	})
	if err != nil {
		return nil, openAIError(provider, err)
	}
	if len(resp.Data) == 0 {
		return nil, UpstreamError(provider, 0, "no embeddings returned", nil)
	}
	return resp.Data[0].Embedding, nil
}

// openAITemperature keeps an explicit zero on the wire: the SDK drops a zero
// temperature as an empty field, which the API reads as its default of 1.
// An unset temperature stays unset.
func openAITemperature(t *float32) float32 {
	if t == nil {
		return 0
	}
	if *t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return *t
}

func openAIError(provider Provider, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return UpstreamError(provider, apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return UpstreamError(provider, reqErr.HTTPStatusCode, msg, err)
	}
	return UpstreamError(provider, 0, fmt.Sprintf("%s request failed: %v", provider.DisplayName(), err), err)
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

var _ Adapter = (*OpenAIAdapter)(nil)
var _ Client = (*openAIClient)(nil)
