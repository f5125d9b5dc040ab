package rag

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// Searcher runs the per-space similarity procedure of the vector store. Rows
// come back in no guaranteed order.
type Searcher interface {
	SearchFileItems(ctx context.Context, query Vector, limit int, fileIDs FileScope) ([]Chunk, error)
}

// Querier is the subset of pgxpool.Pool the repository needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PgRepository struct {
	db Querier
}

func NewPgRepository(db Querier) *PgRepository {
	return &PgRepository{db: db}
}

// SearchFileItems calls match_file_items_<space>(query_embedding, match_count, file_ids).
func (r *PgRepository) SearchFileItems(ctx context.Context, query Vector, limit int, fileIDs FileScope) ([]Chunk, error) {
	proc := query.Space().procedure()
	if proc == "" {
		return nil, fmt.Errorf("unknown embedding space %q", query.Space())
	}

	ids := []string(fileIDs)
	if ids == nil {
		ids = []string{}
	}

	sql := fmt.Sprintf(`
		SELECT id::text, file_id::text, content, tokens, similarity
		FROM %s($1, $2, $3::text[]::uuid[])
	`, proc)

	rows, err := r.db.Query(ctx, sql, pgvector.NewVector(query.Values()), limit, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", proc, err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.SourceFileID, &c.Content, &c.Tokens, &c.Similarity); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", proc, err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", proc, err)
	}

	return chunks, nil
}

var _ Searcher = (*PgRepository)(nil)
