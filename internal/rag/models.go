package rag

import (
	"fmt"
	"strings"
)

// Space identifies an embedding space. Vectors from different spaces are
// never compared.
type Space string

const (
	// SpaceRemote is the OpenAI / Azure OpenAI embedding space. Requests
	// name it "openai".
	SpaceRemote Space = "openai"
	// SpaceLocal is the locally computed embedding space.
	SpaceLocal Space = "local"
)

const (
	RemoteDimension = 1536
	LocalDimension  = 384
)

// ParseSpace maps a request value to a Space.
func ParseSpace(s string) (Space, error) {
	switch Space(strings.ToLower(strings.TrimSpace(s))) {
	case SpaceRemote:
		return SpaceRemote, nil
	case SpaceLocal:
		return SpaceLocal, nil
	default:
		return "", fmt.Errorf("unknown embeddings provider %q", s)
	}
}

// Dimension is the vector length stored for the space.
func (s Space) Dimension() int {
	switch s {
	case SpaceRemote:
		return RemoteDimension
	case SpaceLocal:
		return LocalDimension
	default:
		return 0
	}
}

// procedure is the vector-store entry point searching this space.
func (s Space) procedure() string {
	switch s {
	case SpaceRemote:
		return "match_file_items_openai"
	case SpaceLocal:
		return "match_file_items_local"
	default:
		return ""
	}
}

// Vector is an embedding bound to the space it was computed in. The zero
// value is invalid; use NewVector.
type Vector struct {
	space  Space
	values []float32
}

// NewVector checks values have the dimension of space.
func NewVector(space Space, values []float32) (Vector, error) {
	want := space.Dimension()
	if want == 0 {
		return Vector{}, fmt.Errorf("unknown embedding space %q", space)
	}
	if len(values) != want {
		return Vector{}, fmt.Errorf("unexpected %s embedding size %d (expected %d)", space, len(values), want)
	}
	return Vector{space: space, values: values}, nil
}

func (v Vector) Space() Space { return v.space }
func (v Vector) Values() []float32 { return v.values }

// FileScope is a set of file ids restricting the search.
type FileScope []string

// NewFileScope removes duplicate and empty ids, keeping first occurrences.
func NewFileScope(ids []string) FileScope {
	seen := make(map[string]struct{}, len(ids))
	out := make(FileScope, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Chunk is one stored file item returned by a similarity search.
type Chunk struct {
	ID           string  `json:"id"`
	SourceFileID string  `json:"sourceFileId"`
	Content      string  `json:"content"`
	Tokens       int     `json:"tokens"`
	Similarity   float64 `json:"similarity"`
}

// RetrieveRequest is the payload of the retrieval API.
type RetrieveRequest struct {
	UserInput          string   `json:"userInput"`
	FileIDs            []string `json:"fileIds"`
	EmbeddingsProvider string   `json:"embeddingsProvider"`
	SourceCount        int      `json:"sourceCount"`
}

// RetrieveResponse carries chunks sorted by descending similarity.
type RetrieveResponse struct {
	Results []Chunk `json:"results"`
}
