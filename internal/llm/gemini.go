package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"

	"github.com/josinaldojr/chat-gateway-rag/internal/profile"
	"google.golang.org/genai"
)

const (
	geminiEmbeddingModel = "models/text-embedding-004"
	geminiEmbedDim       = 768
)

// GeminiAdapter serves Google Gemini models through the genai SDK.
type GeminiAdapter struct {
	httpClient *http.Client
	baseURL    string
}

func NewGeminiAdapter(httpClient *http.Client, baseURL string) *GeminiAdapter {
	return &GeminiAdapter{httpClient: httpClient, baseURL: baseURL}
}

func (a *GeminiAdapter) Provider() Provider { return ProviderGoogle }

func (a *GeminiAdapter) Configure(p *profile.Profile) (Client, error) {
	if p.GoogleGeminiAPIKey == "" {
		return nil, MissingKeyError(ProviderGoogle)
	}
	return &geminiClient{adapter: a, apiKey: p.GoogleGeminiAPIKey}, nil
}

type geminiClient struct {
	adapter *GeminiAdapter
	apiKey  string
}

func (g *geminiClient) client(ctx context.Context) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     g.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.adapter.httpClient,
	}
	if g.adapter.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.adapter.baseURL}
	}

	c, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return c, nil
}

func (g *geminiClient) Stream(ctx context.Context, req Request) (Stream, error) {
	c, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	system, contents := geminiContents(req.Messages)
	cfg := &genai.GenerateContentConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if system != "" {
		cfg.SystemInstruction = genai.Text(system)[0]
	}

	next, stop := iter.Pull2(c.Models.GenerateContentStream(ctx, req.Model, contents, cfg))

	// Pull the first response eagerly so request-level failures surface
	// before the caller commits to a streamed reply.
	first, err, ok := next()
	if err != nil {
		stop()
		return nil, geminiError(err)
	}

	pending := first
	return &funcStream{
		next: func() (string, error) {
			for ok {
				resp := pending
				pending = nil
				if resp == nil {
					var err error
					resp, err, ok = next()
					if !ok {
						break
					}
					if err != nil {
						return "", geminiError(err)
					}
				}
				if text := resp.Text(); text != "" {
					return text, nil
				}
			}
			return "", io.EOF
		},
		close: func() error {
			stop()
			return nil
		},
	}, nil
}

func (g *geminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	clean := normalizeWhitespace(text)
	if clean == "" {
		return nil, ConfigError(ProviderGoogle, "empty text for embedding")
	}

	c, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.Models.EmbedContent(
		ctx,
		geminiEmbeddingModel,
		genai.Text(clean),
		&genai.EmbedContentConfig{
			OutputDimensionality: genai.Ptr(int32(geminiEmbedDim)),
		},
	)
	if err != nil {
		return nil, geminiError(err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, UpstreamError(ProviderGoogle, 0, "no embeddings returned", nil)
	}

	values := resp.Embeddings[0].Values
	if len(values) != geminiEmbedDim {
		return nil, UpstreamError(ProviderGoogle, 0,
			fmt.Sprintf("unexpected embedding size %d (expected %d)", len(values), geminiEmbedDim), nil)
	}

	out := make([]float32, geminiEmbedDim)
	for i, v := range values {
		out[i] = float32(v)
	}
	return out, nil
}

// geminiContents converts the conversation to genai contents. Gemini calls
// the assistant role "model" and takes system text as a separate instruction.
func geminiContents(messages []Message) (string, []*genai.Content) {
	system, rest := splitSystem(messages)

	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return system, contents
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return UpstreamError(ProviderGoogle, apiErr.Code, apiErr.Message, err)
	}
	return UpstreamError(ProviderGoogle, 0, fmt.Sprintf("Google Gemini request failed: %v", err), err)
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ Adapter = (*GeminiAdapter)(nil)
var _ Client = (*geminiClient)(nil)
