package llm

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/josinaldojr/chat-gateway-rag/internal/profile"
	openai "github.com/sashabaranov/go-openai"
)

const defaultAzureAPIVersion = "2024-02-15-preview"

// AzureAdapter routes requests to Azure OpenAI deployments. Azure addresses a
// deployment id rather than a model name, so every request resolves one from
// the profile and fails before any network call when it cannot.
type AzureAdapter struct {
	httpClient *http.Client
	apiVersion string
}

func NewAzureAdapter(httpClient *http.Client, apiVersion string) *AzureAdapter {
	return &AzureAdapter{httpClient: httpClient, apiVersion: orDefault(apiVersion, defaultAzureAPIVersion)}
}

func (a *AzureAdapter) Provider() Provider { return ProviderAzure }

func (a *AzureAdapter) Configure(p *profile.Profile) (Client, error) {
	if p.AzureOpenAIAPIKey == "" {
		return nil, MissingKeyError(ProviderAzure)
	}
	return &azureClient{adapter: a, profile: *p}, nil
}

// AzureDeployment maps a model to the deployment id configured for it.
// ok is false when the model has no Azure mapping at all; an empty id with
// ok true means the mapping exists but the profile leaves it unset.
func AzureDeployment(p *profile.Profile, model string) (id string, ok bool) {
	switch model {
	case "gpt-3.5-turbo":
		return p.Azure35TurboID, true
	case "gpt-4-turbo-preview":
		return p.Azure45TurboID, true
	case "gpt-4-vision-preview":
		return p.Azure45VisionID, true
	default:
		return "", false
	}
}

// AzureBaseURL derives the resource base URL from the configured endpoint:
// the host label before the first dot names the resource. A malformed
// endpoint disables explicit routing and is used as given.
func AzureBaseURL(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Hostname() == "" {
		return endpoint
	}
	resource, _, _ := strings.Cut(u.Hostname(), ".")
	if resource == "" {
		return endpoint
	}
	return "https://" + resource + ".openai.azure.com/"
}

type azureClient struct {
	adapter *AzureAdapter
	profile profile.Profile
}

func (c *azureClient) Stream(ctx context.Context, req Request) (Stream, error) {
	deployment, ok := AzureDeployment(&c.profile, req.Model)
	if !ok {
		return nil, ConfigError(ProviderAzure, MsgModelNotFound)
	}
	client, err := c.client(deployment)
	if err != nil {
		return nil, err
	}
	return streamOpenAI(ctx, ProviderAzure, client, deployment, req)
}

func (c *azureClient) Embed(ctx context.Context, text string) ([]float32, error) {
	client, err := c.client(c.profile.AzureEmbeddingsID)
	if err != nil {
		return nil, err
	}
	return embedOpenAI(ctx, ProviderAzure, client, openai.EmbeddingModel(c.profile.AzureEmbeddingsID), text)
}

func (c *azureClient) client(deployment string) (*openai.Client, error) {
	if c.profile.AzureOpenAIEndpoint == "" || c.profile.AzureOpenAIAPIKey == "" || deployment == "" {
		return nil, ConfigError(ProviderAzure, MsgAzureResourcesNotFound)
	}

	cfg := openai.DefaultAzureConfig(c.profile.AzureOpenAIAPIKey, AzureBaseURL(c.profile.AzureOpenAIEndpoint))
	cfg.APIVersion = c.adapter.apiVersion
	// The deployment id is passed as the model, so it must reach the URL as is.
	cfg.AzureModelMapperFunc = func(model string) string { return model }
	if c.adapter.httpClient != nil {
		cfg.HTTPClient = c.adapter.httpClient
	}
	return openai.NewClientWithConfig(cfg), nil
}

var _ Adapter = (*AzureAdapter)(nil)
var _ Client = (*azureClient)(nil)
