package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/josinaldojr/chat-gateway-rag/internal/llm"
	"github.com/josinaldojr/chat-gateway-rag/internal/profile"
	"go.uber.org/zap"
)

// DefaultSourceCount applies when a request asks for no particular count.
const DefaultSourceCount = 4

type Service struct {
	embeddings *Resolver
	matcher    *Matcher
	log        *zap.Logger
}

func NewService(embeddings *Resolver, searcher Searcher, log *zap.Logger) *Service {
	return &Service{
		embeddings: embeddings,
		matcher:    NewMatcher(searcher),
		log:        log,
	}
}

// ErrorProvider names the vendor to mention when a retrieval fails.
func ErrorProvider(p *profile.Profile, embeddingsProvider string) string {
	if space, err := ParseSpace(embeddingsProvider); err == nil && space == SpaceLocal {
		return "Local"
	}
	return RemoteProvider(p).DisplayName()
}

// Retrieve embeds the query and returns the most similar chunks within the
// request's file scope. Either the full result or an error is returned.
func (s *Service) Retrieve(ctx context.Context, p *profile.Profile, req RetrieveRequest) (*RetrieveResponse, error) {
	q := strings.TrimSpace(req.UserInput)
	if q == "" {
		return nil, llm.ConfigError("", "userInput is required")
	}

	space, err := ParseSpace(req.EmbeddingsProvider)
	if err != nil {
		return nil, llm.ConfigError("", err.Error())
	}

	scope := NewFileScope(req.FileIDs)
	for _, id := range scope {
		if _, err := uuid.Parse(id); err != nil {
			return nil, llm.ConfigError("", fmt.Sprintf("invalid file id %q", id))
		}
	}

	if err := checkCredentials(p, space); err != nil {
		return nil, err
	}

	count := req.SourceCount
	if count <= 0 {
		count = DefaultSourceCount
	}

	vec, err := s.embeddings.Resolve(ctx, p, q, space)
	if err != nil {
		return nil, err
	}

	chunks, err := s.matcher.Match(ctx, vec, scope, count)
	if err != nil {
		s.log.Error("vector search failed",
			zap.String("space", string(space)),
			zap.Int("files", len(scope)),
			zap.Error(err),
		)
		return nil, llm.UpstreamError("", 0, "", err)
	}

	s.log.Debug("retrieval done",
		zap.String("space", string(space)),
		zap.Int("files", len(scope)),
		zap.Int("requested", count),
		zap.Int("results", len(chunks)),
	)

	return &RetrieveResponse{Results: chunks}, nil
}

// checkCredentials fails fast when the remote space lacks the key its
// routing mode needs. The local space needs none.
func checkCredentials(p *profile.Profile, space Space) error {
	if space != SpaceRemote {
		return nil
	}
	if p.UseAzureOpenAI {
		if p.AzureOpenAIAPIKey == "" {
			return llm.MissingKeyError(llm.ProviderAzure)
		}
		return nil
	}
	if p.OpenAIAPIKey == "" {
		return llm.MissingKeyError(llm.ProviderOpenAI)
	}
	return nil
}
