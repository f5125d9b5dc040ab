package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PROFILE_SOURCE", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("OLLAMA_EMBED_MODEL", "")
	t.Setenv("USE_AZURE_OPENAI", "")
	t.Setenv("EMBED_CACHE", "")
	t.Setenv("EMBED_CACHE_TTL", "")

	cfg := Load()
	require.Equal(t, EmbedCacheNone, cfg.EmbedCache)
	require.Equal(t, time.Hour, cfg.EmbedCacheTTL)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, ProfileSourceEnv, cfg.ProfileSource)
	require.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORSOrigins)
	require.Equal(t, "all-minilm", cfg.OllamaEmbedModel)
	require.False(t, cfg.Profile.UseAzureOpenAI)
}

func TestLoad_EnvProfile(t *testing.T) {
	t.Setenv("PROFILE_SOURCE", ProfileSourcePostgres)
	t.Setenv("CORS_ORIGINS", " https://chat.example.com , ,https://admin.example.com")
	t.Setenv("USE_AZURE_OPENAI", "true")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://acme.openai.azure.com")
	t.Setenv("AZURE_GPT_45_TURBO_NAME", "dep-45")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg := Load()
	require.Equal(t, ProfileSourcePostgres, cfg.ProfileSource)
	require.Equal(t, []string{"https://chat.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	require.True(t, cfg.Profile.UseAzureOpenAI)
	require.Equal(t, "https://acme.openai.azure.com", cfg.Profile.AzureOpenAIEndpoint)
	require.Equal(t, "dep-45", cfg.Profile.Azure45TurboID)
	require.Equal(t, "sk-ant", cfg.Profile.AnthropicAPIKey)
}

func TestGetBool(t *testing.T) {
	t.Setenv("FLAG", "nope")
	require.True(t, getBool("FLAG", true))
	t.Setenv("FLAG", "0")
	require.False(t, getBool("FLAG", true))
}

func TestGetDuration(t *testing.T) {
	t.Setenv("TTL", "15m")
	require.Equal(t, 15*time.Minute, getDuration("TTL", time.Hour))
	t.Setenv("TTL", "-1s")
	require.Equal(t, time.Hour, getDuration("TTL", time.Hour))
}
