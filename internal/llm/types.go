package llm

// Provider identifies an upstream model API. The set is closed: every value
// below has exactly one adapter in DefaultRegistry.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderAzure      Provider = "azure"
	ProviderAnthropic  Provider = "anthropic"
	ProviderGoogle     Provider = "google"
	ProviderPerplexity Provider = "perplexity"
	ProviderGroq       Provider = "groq"
	ProviderMistral    Provider = "mistral"
)

// Providers lists every supported provider.
func Providers() []Provider {
	return []Provider{
		ProviderOpenAI,
		ProviderAzure,
		ProviderAnthropic,
		ProviderGoogle,
		ProviderPerplexity,
		ProviderGroq,
		ProviderMistral,
	}
}

// DisplayName is the vendor name used in user-facing error messages.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderAzure:
		return "Azure OpenAI"
	case ProviderAnthropic:
		return "Anthropic"
	case ProviderGoogle:
		return "Google Gemini"
	case ProviderPerplexity:
		return "Perplexity"
	case ProviderGroq:
		return "Groq"
	case ProviderMistral:
		return "Mistral"
	default:
		return string(p)
	}
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral completion request. Temperature is forwarded
// as given; nil leaves the provider default.
type Request struct {
	Model       string
	Messages    []Message
	Temperature *float32
	MaxTokens   int
}

// splitSystem separates system messages from the conversation, for APIs that
// take the system prompt out of band.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
