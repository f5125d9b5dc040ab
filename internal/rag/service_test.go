package rag

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/josinaldojr/chat-gateway-rag/internal/cache"
	"github.com/josinaldojr/chat-gateway-rag/internal/llm"
	"github.com/josinaldojr/chat-gateway-rag/internal/profile"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type fakeEmbedAdapter struct {
	provider   llm.Provider
	dim        int
	configured int
	embedded   []string
	err        error
}

func (f *fakeEmbedAdapter) Provider() llm.Provider { return f.provider }

func (f *fakeEmbedAdapter) Configure(*profile.Profile) (llm.Client, error) {
	f.configured++
	return f, nil
}

func (f *fakeEmbedAdapter) Stream(context.Context, llm.Request) (llm.Stream, error) {
	return nil, errors.New("not used")
}

func (f *fakeEmbedAdapter) Embed(_ context.Context, text string) ([]float32, error) {
	f.embedded = append(f.embedded, text)
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, f.dim), nil
}

const (
	fileA = "6f1c2a8e-0d4b-4c3e-9a51-2f7e8b9c0d11"
	fileB = "0b7d9e42-5a16-4f0c-8e23-91c4d5e6f722"
)

type fakeLocal struct {
	calls int
	dim   int
}

func (f *fakeLocal) Embed(context.Context, string) ([]float32, error) {
	f.calls++
	return make([]float32, f.dim), nil
}

type fixture struct {
	openai   *fakeEmbedAdapter
	azure    *fakeEmbedAdapter
	local    *fakeLocal
	searcher *fakeSearcher
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		openai:   &fakeEmbedAdapter{provider: llm.ProviderOpenAI, dim: RemoteDimension},
		azure:    &fakeEmbedAdapter{provider: llm.ProviderAzure, dim: RemoteDimension},
		local:    &fakeLocal{dim: LocalDimension},
		searcher: &fakeSearcher{},
	}
	f.svc = NewService(NewResolver(f.openai, f.azure, f.local), f.searcher, zaptest.NewLogger(t))
	return f
}

func TestRetrieve_LocalScenario(t *testing.T) {
	f := newFixture(t)
	f.searcher.result = []Chunk{
		{ID: "1", SourceFileID: fileA, Similarity: 0.4},
		{ID: "2", SourceFileID: fileB, Similarity: 0.8},
		{ID: "3", SourceFileID: fileA, Similarity: 0.6},
	}

	resp, err := f.svc.Retrieve(context.Background(), &profile.Profile{}, RetrieveRequest{
		UserInput:          "what is the refund window?",
		FileIDs:            []string{fileA, fileA, fileB},
		EmbeddingsProvider: "local",
		SourceCount:        2,
	})
	require.NoError(t, err)

	require.Equal(t, FileScope{fileA, fileB}, f.searcher.scope)
	require.Equal(t, SpaceLocal, f.searcher.space)
	require.LessOrEqual(t, len(resp.Results), 2)
	require.Equal(t, "2", resp.Results[0].ID)
	require.Equal(t, "3", resp.Results[1].ID)
	require.Equal(t, 1, f.local.calls)
	require.Zero(t, f.openai.configured)
	require.Zero(t, f.azure.configured)
}

func TestRetrieve_RemoteRouting(t *testing.T) {
	t.Run("direct openai", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Retrieve(context.Background(), &profile.Profile{OpenAIAPIKey: "sk"}, RetrieveRequest{
			UserInput: "q", EmbeddingsProvider: "openai", SourceCount: 3,
		})
		require.NoError(t, err)
		require.Equal(t, []string{"q"}, f.openai.embedded)
		require.Empty(t, f.azure.embedded)
		require.Equal(t, SpaceRemote, f.searcher.space)
		require.Equal(t, 3, f.searcher.limit)
	})

	t.Run("azure deployment", func(t *testing.T) {
		f := newFixture(t)
		p := &profile.Profile{UseAzureOpenAI: true, AzureOpenAIAPIKey: "az", OpenAIAPIKey: "sk"}
		_, err := f.svc.Retrieve(context.Background(), p, RetrieveRequest{UserInput: "q", EmbeddingsProvider: "openai"})
		require.NoError(t, err)
		require.Equal(t, []string{"q"}, f.azure.embedded)
		require.Empty(t, f.openai.embedded)
		require.Equal(t, DefaultSourceCount, f.searcher.limit)
	})
}

func TestRetrieve_MissingCredentialsFailFast(t *testing.T) {
	tests := []struct {
		name     string
		profile  *profile.Profile
		provider string
	}{
		{"openai", &profile.Profile{}, "OpenAI"},
		{"azure", &profile.Profile{UseAzureOpenAI: true, OpenAIAPIKey: "sk"}, "Azure OpenAI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Retrieve(context.Background(), tt.profile, RetrieveRequest{UserInput: "q", EmbeddingsProvider: "openai"})

			n := llm.Normalize(err, ErrorProvider(tt.profile, "openai"))
			require.Equal(t, http.StatusBadRequest, n.Status)
			require.Equal(t, tt.provider+" API Key not found. Please set it in your profile settings.", n.Message)
			require.Zero(t, f.openai.configured+f.azure.configured)
			require.Zero(t, f.searcher.calls)
		})
	}
}

func TestRetrieve_BadRequests(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Retrieve(context.Background(), &profile.Profile{}, RetrieveRequest{UserInput: "  ", EmbeddingsProvider: "local"})
	require.Equal(t, http.StatusBadRequest, llm.Normalize(err, "Local").Status)

	_, err = f.svc.Retrieve(context.Background(), &profile.Profile{}, RetrieveRequest{UserInput: "q", EmbeddingsProvider: "cohere"})
	require.Equal(t, http.StatusBadRequest, llm.Normalize(err, "Local").Status)

	_, err = f.svc.Retrieve(context.Background(), &profile.Profile{}, RetrieveRequest{
		UserInput: "q", EmbeddingsProvider: "local", FileIDs: []string{fileA, "not-a-uuid"},
	})
	n := llm.Normalize(err, "Local")
	require.Equal(t, http.StatusBadRequest, n.Status)
	require.Equal(t, `invalid file id "not-a-uuid"`, n.Message)
	require.Zero(t, f.local.calls)

	require.Zero(t, f.searcher.calls)
}

func TestRetrieve_UpstreamFailures(t *testing.T) {
	t.Run("embedding 401", func(t *testing.T) {
		f := newFixture(t)
		f.openai.err = llm.UpstreamError(llm.ProviderOpenAI, http.StatusUnauthorized, "Incorrect API key", nil)

		_, err := f.svc.Retrieve(context.Background(), &profile.Profile{OpenAIAPIKey: "bad"}, RetrieveRequest{UserInput: "q", EmbeddingsProvider: "openai"})
		n := llm.Normalize(err, "OpenAI")
		require.Equal(t, http.StatusUnauthorized, n.Status)
		require.Contains(t, n.Message, "is incorrect")
		require.Zero(t, f.searcher.calls)
	})

	t.Run("wrong dimension", func(t *testing.T) {
		f := newFixture(t)
		f.local.dim = 768

		_, err := f.svc.Retrieve(context.Background(), &profile.Profile{}, RetrieveRequest{UserInput: "q", EmbeddingsProvider: "local"})
		require.Error(t, err)
		require.Zero(t, f.searcher.calls)
	})

	t.Run("vector store", func(t *testing.T) {
		f := newFixture(t)
		f.searcher.err = errors.New("function match_file_items_local does not exist")

		resp, err := f.svc.Retrieve(context.Background(), &profile.Profile{}, RetrieveRequest{UserInput: "q", EmbeddingsProvider: "local"})
		require.Nil(t, resp)
		n := llm.Normalize(err, "Local")
		require.Equal(t, http.StatusInternalServerError, n.Status)
		require.Equal(t, "An unexpected error occurred", n.Message)
	})
}

func TestErrorProvider(t *testing.T) {
	require.Equal(t, "Local", ErrorProvider(&profile.Profile{}, "local"))
	require.Equal(t, "OpenAI", ErrorProvider(&profile.Profile{}, "openai"))
	require.Equal(t, "Azure OpenAI", ErrorProvider(&profile.Profile{UseAzureOpenAI: true}, "openai"))
}

func TestResolver_CachesPerCredential(t *testing.T) {
	f := newFixture(t)
	f.svc.embeddings.WithCache(cache.NewMemoryCache(), time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()
	req := RetrieveRequest{UserInput: "q", EmbeddingsProvider: "openai"}

	_, err := f.svc.Retrieve(ctx, &profile.Profile{OpenAIAPIKey: "sk-1"}, req)
	require.NoError(t, err)
	_, err = f.svc.Retrieve(ctx, &profile.Profile{OpenAIAPIKey: "sk-1"}, req)
	require.NoError(t, err)
	require.Len(t, f.openai.embedded, 1)

	_, err = f.svc.Retrieve(ctx, &profile.Profile{OpenAIAPIKey: "sk-2"}, req)
	require.NoError(t, err)
	require.Len(t, f.openai.embedded, 2)

	require.NotEqual(t,
		CacheKey(&profile.Profile{}, SpaceLocal, "q"),
		CacheKey(&profile.Profile{}, SpaceRemote, "q"))
}

type brokenCache struct{ sets int }

func (c *brokenCache) Get(context.Context, string) ([]float32, bool, error) {
	return nil, false, errors.New("redis: connection refused")
}

func (c *brokenCache) Set(context.Context, string, []float32, time.Duration) error {
	c.sets++
	return errors.New("redis: connection refused")
}

func TestResolver_CacheFailuresAreLoggedNotFatal(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.WarnLevel)
	c := &brokenCache{}
	f.svc.embeddings.WithCache(c, time.Minute, zap.New(core))

	resp, err := f.svc.Retrieve(context.Background(), &profile.Profile{}, RetrieveRequest{UserInput: "q", EmbeddingsProvider: "local"})
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 1, f.local.calls)
	require.Equal(t, 1, c.sets)

	require.Equal(t, 1, logs.FilterMessage("embedding cache read failed").Len())
	require.Equal(t, 1, logs.FilterMessage("embedding cache write failed").Len())
}
