package llm

import (
	"context"
	"net/http"

	"github.com/josinaldojr/chat-gateway-rag/internal/profile"
)

// Adapter wraps one upstream model API.
type Adapter interface {
	Provider() Provider
	// Configure checks the profile carries what this provider needs and
	// returns a client bound to those credentials. No network call is made.
	Configure(p *profile.Profile) (Client, error)
}

// Client is an adapter configured for a single request.
type Client interface {
	Stream(ctx context.Context, req Request) (Stream, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Registry maps each provider to its adapter.
type Registry struct {
	adapters map[Provider]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

func (r *Registry) Lookup(p Provider) (Adapter, bool) {
	a, ok := r.adapters[p]
	return a, ok
}

// Options carries process-wide adapter settings. Nothing here is
// per-request: credentials always come from the caller's profile.
type Options struct {
	HTTPClient *http.Client

	OpenAIBaseURL     string
	AnthropicBaseURL  string
	GoogleBaseURL     string
	PerplexityBaseURL string
	GroqBaseURL       string
	MistralBaseURL    string
	AzureAPIVersion   string
}

// DefaultRegistry wires an adapter for every value of Providers.
func DefaultRegistry(opts Options) *Registry {
	return NewRegistry(
		NewOpenAIAdapter(opts.HTTPClient, opts.OpenAIBaseURL),
		NewAzureAdapter(opts.HTTPClient, opts.AzureAPIVersion),
		NewAnthropicAdapter(opts.HTTPClient, opts.AnthropicBaseURL),
		NewGeminiAdapter(opts.HTTPClient, opts.GoogleBaseURL),
		NewPerplexityAdapter(opts.HTTPClient, opts.PerplexityBaseURL),
		NewGroqAdapter(opts.HTTPClient, opts.GroqBaseURL),
		NewMistralAdapter(opts.HTTPClient, opts.MistralBaseURL),
	)
}
