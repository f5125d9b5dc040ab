package llm

// Limits are the generation bounds configured for one model.
type Limits struct {
	MinTemperature   float32
	MaxTemperature   float32
	MaxOutputTokens  int
	MaxContextLength int
}

var modelLimits = map[string]Limits{
	// OpenAI
	"gpt-3.5-turbo":        {0, 2, 4096, 16385},
	"gpt-4":                {0, 2, 4096, 8192},
	"gpt-4-turbo-preview":  {0, 2, 4096, 128000},
	"gpt-4-vision-preview": {0, 2, 4096, 128000},
	"gpt-4o":               {0, 2, 4096, 128000},
	"gpt-4o-mini":          {0, 2, 16384, 128000},

	// Anthropic
	"claude-2.1":                 {0, 1, 4096, 200000},
	"claude-instant-1.2":         {0, 1, 4096, 100000},
	"claude-3-haiku-20240307":    {0, 1, 4096, 200000},
	"claude-3-sonnet-20240229":   {0, 1, 4096, 200000},
	"claude-3-opus-20240229":     {0, 1, 4096, 200000},
	"claude-3-5-sonnet-20240620": {0, 1, 4096, 200000},

	// Google
	"gemini-1.5-flash":      {0, 1, 8192, 1040384},
	"gemini-1.5-pro-latest": {0, 1, 8192, 1040384},
	"gemini-pro":            {0, 1, 2048, 30720},
	"gemini-pro-vision":     {0, 1, 4096, 12288},

	// Mistral
	"mistral-tiny":          {0, 1, 2000, 8000},
	"mistral-small-latest":  {0, 1, 2000, 32000},
	"mistral-medium-latest": {0, 1, 2000, 32000},
	"mistral-large-latest":  {0, 1, 2000, 32000},

	// Groq
	"llama3-8b-8192":     {0, 1, 8192, 8192},
	"llama3-70b-8192":    {0, 1, 8192, 8192},
	"mixtral-8x7b-32768": {0, 1, 4096, 32768},
	"gemma-7b-it":        {0, 2, 8192, 8192},

	// Perplexity
	"pplx-7b-online":                 {0, 1.99, 4096, 4096},
	"pplx-70b-online":                {0, 1.99, 4096, 4096},
	"llama-3-sonar-small-32k-chat":   {0, 1.99, 32768, 32768},
	"llama-3-sonar-small-32k-online": {0, 1.99, 28000, 28000},
	"llama-3-sonar-large-32k-chat":   {0, 1.99, 32768, 32768},
	"llama-3-sonar-large-32k-online": {0, 1.99, 28000, 28000},
	"sonar":                          {0, 1.99, 8000, 127072},
	"sonar-pro":                      {0, 1.99, 8000, 200000},
}

// LookupLimits returns the limits configured for model.
func LookupLimits(model string) (Limits, bool) {
	l, ok := modelLimits[model]
	return l, ok
}
