package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool the profile store needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore reads provider credentials from the profiles table.
type PgStore struct {
	db Querier
}

func NewPgStore(db Querier) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Get(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, ErrNotFound
	}

	var p Profile
	err := s.db.QueryRow(ctx, `
		SELECT
			user_id::text,
			COALESCE(openai_api_key, ''), COALESCE(openai_organization_id, ''),
			COALESCE(use_azure_openai, false),
			COALESCE(azure_openai_endpoint, ''), COALESCE(azure_openai_api_key, ''),
			COALESCE(azure_openai_35_turbo_id, ''), COALESCE(azure_openai_45_turbo_id, ''),
			COALESCE(azure_openai_45_vision_id, ''), COALESCE(azure_openai_embeddings_id, ''),
			COALESCE(anthropic_api_key, ''), COALESCE(google_gemini_api_key, ''),
			COALESCE(perplexity_api_key, ''), COALESCE(groq_api_key, ''),
			COALESCE(mistral_api_key, '')
		FROM profiles
		WHERE user_id = $1::uuid
	`, userID).Scan(
		&p.UserID,
		&p.OpenAIAPIKey,
		&p.OpenAIOrganizationID,
		&p.UseAzureOpenAI,
		&p.AzureOpenAIEndpoint,
		&p.AzureOpenAIAPIKey,
		&p.Azure35TurboID,
		&p.Azure45TurboID,
		&p.Azure45VisionID,
		&p.AzureEmbeddingsID,
		&p.AnthropicAPIKey,
		&p.GoogleGeminiAPIKey,
		&p.PerplexityAPIKey,
		&p.GroqAPIKey,
		&p.MistralAPIKey,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}

	return &p, nil
}

// StaticStore serves one profile to every caller. It backs single-tenant
// deployments where credentials come from the environment.
type StaticStore struct {
	profile Profile
}

func NewStaticStore(p Profile) *StaticStore {
	return &StaticStore{profile: p}
}

// Get returns a copy so request handlers can never mutate the shared value.
func (s *StaticStore) Get(_ context.Context, userID string) (*Profile, error) {
	p := s.profile
	if userID != "" {
		p.UserID = userID
	}
	return &p, nil
}

var _ Store = (*PgStore)(nil)
var _ Store = (*StaticStore)(nil)
