// Package embedder turns text into fixed-dimension vectors.
package embedder

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmbedding marks a failed call to an embedding backend. Callers wrap
// backend errors with it so build and query paths report the same sentinel.
var ErrEmbedding = errors.New("embedding failed")

// Embedder maps a batch of texts to vectors. The result has the same length
// and order as the input, and every vector has the same dimension for the
// life of the process.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Model names the embedding model, recorded in checkpoints.
	Model() string
}

// probeText is embedded to discover a model's output dimension.
const probeText = "dimension probe"

// Dimension returns the vector length produced by e, embedding a short probe
// string.
func Dimension(ctx context.Context, e Embedder) (int, error) {
	vecs, err := e.Embed(ctx, []string{probeText})
	if err != nil {
		return 0, fmt.Errorf("probe embedding dimension: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return 0, fmt.Errorf("probe embedding dimension: empty vector from %s", e.Model())
	}
	return len(vecs[0]), nil
}

// EmbedSingle embeds one text.
func EmbedSingle(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}
