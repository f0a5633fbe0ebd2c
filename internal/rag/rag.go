package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wikiqa/internal/corpus"
	"wikiqa/internal/embedder"
	"wikiqa/internal/llm"
	"wikiqa/internal/logging"
	"wikiqa/internal/normalize"
	"wikiqa/internal/vecindex"
)

// DefaultK is the number of neighbours retrieved per query.
const DefaultK = 10

var (
	// ErrEmbedding reports a failure of the embedding backend.
	ErrEmbedding = embedder.ErrEmbedding
	// ErrGeneration reports a failure of the generation backend.
	ErrGeneration = errors.New("generation failed")
)

// Searcher finds the k nearest stored vectors to a query.
// *vecindex.Flat and *store.SQLiteStore both satisfy it.
type Searcher interface {
	Search(query []float32, k int) ([]vecindex.Neighbor, error)
}

// Source is one retrieved chunk in rank order.
type Source struct {
	Position int
	Title    string
	Text     string
	Distance float64
}

// Answer is the result of a single question.
type Answer struct {
	Query      string
	Normalized string
	Sources    []Source
	Prompt     string
	Text       string
}

// Orchestrator runs normalize, embed, search, context assembly and generation
// for each query. It holds no per-query state.
type Orchestrator struct {
	Embedder  embedder.Embedder
	Searcher  Searcher
	Corpus    corpus.Store
	Generator llm.Generator
	K         int
}

func (o *Orchestrator) k() int {
	if o.K <= 0 {
		return DefaultK
	}
	return o.K
}

// Retrieve normalizes the query, embeds it and resolves the nearest chunks.
// Neighbours whose position is missing from the corpus are skipped.
func (o *Orchestrator) Retrieve(ctx context.Context, query string) (string, []Source, error) {
	normalized := normalize.Normalize(query)

	vec, err := embedder.EmbedSingle(ctx, o.Embedder, normalized)
	if err != nil {
		return normalized, nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	neighbors, err := o.Searcher.Search(vec, o.k())
	if err != nil {
		return normalized, nil, fmt.Errorf("vector search: %w", err)
	}

	sources := make([]Source, 0, len(neighbors))
	for _, n := range neighbors {
		rec, err := o.Corpus.At(n.Position)
		if errors.Is(err, corpus.ErrOutOfBounds) {
			logging.Debugf("skipping neighbour at position %d: not in corpus", n.Position)
			continue
		}
		if err != nil {
			return normalized, nil, fmt.Errorf("lookup position %d: %w", n.Position, err)
		}
		sources = append(sources, Source{
			Position: n.Position,
			Title:    rec.Title,
			Text:     rec.Text,
			Distance: n.Distance,
		})
	}
	return normalized, sources, nil
}

// Answer retrieves context for query and asks the generator to answer it.
// An empty result set still produces a generation call with empty context.
func (o *Orchestrator) Answer(ctx context.Context, query string) (Answer, error) {
	normalized, sources, err := o.Retrieve(ctx, query)
	ans := Answer{Query: query, Normalized: normalized, Sources: sources}
	if err != nil {
		return ans, err
	}

	ans.Prompt = BuildPrompt(BuildContext(sources), query)
	text, err := o.Generator.Generate(ctx, ans.Prompt)
	if err != nil {
		return ans, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	ans.Text = text
	return ans, nil
}

// BuildContext joins sources as "title: text" lines in rank order.
func BuildContext(sources []Source) string {
	lines := make([]string, len(sources))
	for i, s := range sources {
		lines[i] = s.Title + ": " + s.Text
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt wraps the context block and the original question.
func BuildPrompt(contextBlock, question string) string {
	return "Answer the question based on the context:\n\n" + contextBlock + "\n\nQuestion: " + question
}
