package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/josinaldojr/chat-gateway-rag/internal/profile"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// AnthropicAdapter talks to the Anthropic Messages API.
type AnthropicAdapter struct {
	httpClient *http.Client
	baseURL    string
}

func NewAnthropicAdapter(httpClient *http.Client, baseURL string) *AnthropicAdapter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AnthropicAdapter{httpClient: httpClient, baseURL: orDefault(baseURL, anthropicBaseURL)}
}

func (a *AnthropicAdapter) Provider() Provider { return ProviderAnthropic }

func (a *AnthropicAdapter) Configure(p *profile.Profile) (Client, error) {
	if p.AnthropicAPIKey == "" {
		return nil, MissingKeyError(ProviderAnthropic)
	}
	return &anthropicClient{adapter: a, apiKey: p.AnthropicAPIKey}, nil
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *anthropicErrorBody `json:"error"`
}

type anthropicErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type anthropicClient struct {
	adapter *AnthropicAdapter
	apiKey  string
}

func (c *anthropicClient) Stream(ctx context.Context, req Request) (Stream, error) {
	system, rest := splitSystem(req.Messages)
	messages := make([]anthropicMessage, len(rest))
	for i, m := range rest {
		messages[i] = anthropicMessage{Role: m.Role, Content: m.Content}
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       req.Model,
		Messages:    messages,
		System:      system,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.adapter.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.adapter.httpClient.Do(httpReq)
	if err != nil {
		return nil, UpstreamError(ProviderAnthropic, 0, fmt.Sprintf("Anthropic request failed: %v", err), err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, anthropicStatusError(resp)
	}

	return newAnthropicStream(resp.Body), nil
}

func (c *anthropicClient) Embed(context.Context, string) ([]float32, error) {
	return nil, ConfigError(ProviderAnthropic, MsgEmbeddingsUnsupported)
}

func anthropicStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var payload struct {
		Error anthropicErrorBody `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error.Message != "" {
		msg = payload.Error.Message
	}
	return UpstreamError(ProviderAnthropic, resp.StatusCode, msg, nil)
}

// newAnthropicStream reads server-sent events one line at a time, so the next
// event is only read off the wire when the caller asks for it.
func newAnthropicStream(body io.ReadCloser) Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &funcStream{
		next: func() (string, error) {
			for scanner.Scan() {
				data, ok := strings.CutPrefix(scanner.Text(), "data:")
				if !ok {
					continue
				}

				var ev anthropicEvent
				if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &ev); err != nil {
					return "", UpstreamError(ProviderAnthropic, 0, "malformed stream event", err)
				}

				switch ev.Type {
				case "content_block_delta":
					if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
						return ev.Delta.Text, nil
					}
				case "message_stop":
					return "", io.EOF
				case "error":
					msg := "stream error"
					if ev.Error != nil {
						msg = ev.Error.Message
					}
					return "", UpstreamError(ProviderAnthropic, 0, msg, nil)
				}
			}
			if err := scanner.Err(); err != nil {
				return "", UpstreamError(ProviderAnthropic, 0, "read stream", err)
			}
			return "", io.EOF
		},
		close: body.Close,
	}
}

var _ Adapter = (*AnthropicAdapter)(nil)
var _ Client = (*anthropicClient)(nil)
