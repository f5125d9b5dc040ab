package rag

import (
	"context"
	"sort"
)

// Matcher retrieves the chunks most similar to a query vector within a file
// scope.
type Matcher struct {
	searcher Searcher
}

func NewMatcher(searcher Searcher) *Matcher {
	return &Matcher{searcher: searcher}
}

// Match returns at most k chunks ordered by non-increasing similarity, ties
// kept in storage order. The ordering never depends on the store.
func (m *Matcher) Match(ctx context.Context, query Vector, scope FileScope, k int) ([]Chunk, error) {
	chunks, err := m.searcher.SearchFileItems(ctx, query, k, NewFileScope(scope))
	if err != nil {
		return nil, err
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Similarity > chunks[j].Similarity
	})

	if k > 0 && len(chunks) > k {
		chunks = chunks[:k]
	}
	if chunks == nil {
		chunks = []Chunk{}
	}
	return chunks, nil
}
