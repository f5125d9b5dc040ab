package profile

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no profile exists for the caller.
var ErrNotFound = errors.New("profile not found")

// Profile holds the per-user provider credentials the gateway borrows for
// the duration of one request. It is never persisted by the gateway.
type Profile struct {
	UserID string `json:"userId"`

	OpenAIAPIKey         string `json:"openaiApiKey"`
	OpenAIOrganizationID string `json:"openaiOrganizationId"`

	// UseAzureOpenAI switches remote embeddings (and the "openai" space) to the
	// Azure deployment-routed variant.
	UseAzureOpenAI      bool   `json:"useAzureOpenai"`
	AzureOpenAIEndpoint string `json:"azureOpenaiEndpoint"`
	AzureOpenAIAPIKey   string `json:"azureOpenaiApiKey"`
	Azure35TurboID      string `json:"azureOpenai35TurboId"`
	Azure45TurboID      string `json:"azureOpenai45TurboId"`
	Azure45VisionID     string `json:"azureOpenai45VisionId"`
	AzureEmbeddingsID   string `json:"azureOpenaiEmbeddingsId"`

	AnthropicAPIKey    string `json:"anthropicApiKey"`
	GoogleGeminiAPIKey string `json:"googleGeminiApiKey"`
	PerplexityAPIKey   string `json:"perplexityApiKey"`
	GroqAPIKey         string `json:"groqApiKey"`
	MistralAPIKey      string `json:"mistralApiKey"`
}

// Store resolves the profile of the user issuing a request.
type Store interface {
	Get(ctx context.Context, userID string) (*Profile, error)
}
