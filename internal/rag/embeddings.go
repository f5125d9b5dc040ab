package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/josinaldojr/chat-gateway-rag/internal/llm"
	"github.com/josinaldojr/chat-gateway-rag/internal/profile"
	"go.uber.org/zap"
)

// LocalEmbedder computes vectors in the local space. It is expected to be
// deterministic for identical input.
type LocalEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorCache holds previously computed query vectors. Lookup failures are
// treated as misses.
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, values []float32, ttl time.Duration) error
}

// Resolver turns query text into a vector of the requested space.
type Resolver struct {
	openai llm.Adapter
	azure  llm.Adapter
	local  LocalEmbedder

	cache    VectorCache
	cacheTTL time.Duration
	log      *zap.Logger
}

func NewResolver(openai, azure llm.Adapter, local LocalEmbedder) *Resolver {
	return &Resolver{openai: openai, azure: azure, local: local, log: zap.NewNop()}
}

// WithCache enables the query vector cache. Cache failures are logged to log
// and never fail a retrieval.
func (r *Resolver) WithCache(c VectorCache, ttl time.Duration, log *zap.Logger) *Resolver {
	r.cache = c
	r.cacheTTL = ttl
	r.log = log
	return r
}

// CacheKey scopes a cached vector to the space, the routing and the
// credential that produced it, so a caller never reuses a vector their
// own key could not have computed.
func CacheKey(p *profile.Profile, space Space, text string) string {
	h := sha256.New()
	h.Write([]byte(space))
	if space == SpaceRemote {
		if p.UseAzureOpenAI {
			fmt.Fprintf(h, "|azure|%s|%s|%s", p.AzureOpenAIEndpoint, p.AzureEmbeddingsID, p.AzureOpenAIAPIKey)
		} else {
			fmt.Fprintf(h, "|openai|%s|%s", p.OpenAIOrganizationID, p.OpenAIAPIKey)
		}
	}
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// RemoteProvider reports which adapter serves the remote space for p. Azure
// and direct OpenAI routing are mutually exclusive.
func RemoteProvider(p *profile.Profile) llm.Provider {
	if p.UseAzureOpenAI {
		return llm.ProviderAzure
	}
	return llm.ProviderOpenAI
}

func (r *Resolver) Resolve(ctx context.Context, p *profile.Profile, text string, space Space) (Vector, error) {
	if r.cache == nil {
		return r.embed(ctx, p, text, space)
	}

	key := CacheKey(p, space, text)
	values, ok, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		r.log.Warn("embedding cache read failed", zap.String("space", string(space)), zap.Error(err))
	case ok:
		v, verr := NewVector(space, values)
		if verr == nil {
			return v, nil
		}
		r.log.Warn("discarding cached embedding", zap.String("space", string(space)), zap.Error(verr))
	}

	v, err := r.embed(ctx, p, text, space)
	if err != nil {
		return Vector{}, err
	}
	if err := r.cache.Set(ctx, key, v.Values(), r.cacheTTL); err != nil {
		r.log.Warn("embedding cache write failed", zap.String("space", string(space)), zap.Error(err))
	}
	return v, nil
}

func (r *Resolver) embed(ctx context.Context, p *profile.Profile, text string, space Space) (Vector, error) {
	var (
		values []float32
		err    error
	)

	switch space {
	case SpaceRemote:
		adapter := r.openai
		if RemoteProvider(p) == llm.ProviderAzure {
			adapter = r.azure
		}
		client, cerr := adapter.Configure(p)
		if cerr != nil {
			return Vector{}, cerr
		}
		values, err = client.Embed(ctx, text)
	case SpaceLocal:
		values, err = r.local.Embed(ctx, text)
	default:
		return Vector{}, llm.ConfigError("", fmt.Sprintf("unknown embeddings provider %q", space))
	}
	if err != nil {
		return Vector{}, err
	}

	return NewVector(space, values)
}
