package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"wikiqa/internal/corpus"
	"wikiqa/internal/vecindex"
)

// topicEmbedder maps text onto (cat, dog, rock) axes by keyword.
type topicEmbedder struct {
	seen []string
	err  error
}

func (e *topicEmbedder) Model() string { return "topic" }

func (e *topicEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		e.seen = append(e.seen, t)
		v := []float32{0, 0, 0}
		if strings.Contains(t, "cat") {
			v[0] = 1
		}
		if strings.Contains(t, "dog") {
			v[0], v[1] = 0.6, 0.8
		}
		if strings.Contains(t, "rock") {
			v[2] = 1
		}
		out[i] = v
	}
	return out, nil
}

type recordingGenerator struct {
	prompt string
	err    error
}

func (g *recordingGenerator) Model() string { return "recording" }

func (g *recordingGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return "generated", nil
}

func animalCorpus(t *testing.T, emb *topicEmbedder) (*corpus.Memory, *vecindex.Flat) {
	t.Helper()
	store := corpus.NewMemory([]corpus.Record{
		{Title: "A", Text: "cats are mammals"},
		{Title: "B", Text: "dogs are mammals"},
		{Title: "C", Text: "rocks are minerals"},
	})
	texts, err := corpus.Texts(store, 0, store.Len())
	if err != nil {
		t.Fatalf("Texts: %v", err)
	}
	vecs, _ := emb.Embed(context.Background(), texts)
	idx, _ := vecindex.New(3)
	if err := idx.Add(vecs); err != nil {
		t.Fatalf("Add: %v", err)
	}
	emb.seen = nil
	return store, idx
}

func TestAnswerRetrievesNearestChunks(t *testing.T) {
	emb := &topicEmbedder{}
	store, idx := animalCorpus(t, emb)
	gen := &recordingGenerator{}
	o := &Orchestrator{Embedder: emb, Searcher: idx, Corpus: store, Generator: gen, K: 2}

	ans, err := o.Answer(context.Background(), "What is a cat?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.Normalized != "what is a cat" {
		t.Fatalf("normalized = %q", ans.Normalized)
	}
	if len(emb.seen) != 1 || emb.seen[0] != "what is a cat" {
		t.Fatalf("embedder should see the normalized query, saw %v", emb.seen)
	}
	if len(ans.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(ans.Sources))
	}
	if ans.Sources[0].Title != "A" || ans.Sources[1].Title != "B" {
		t.Fatalf("unexpected ranking %+v", ans.Sources)
	}
	if ans.Sources[0].Distance > ans.Sources[1].Distance {
		t.Fatalf("sources not nearest-first")
	}

	want := "Answer the question based on the context:\n\nA: cats are mammals\nB: dogs are mammals\n\nQuestion: What is a cat?"
	if gen.prompt != want || ans.Prompt != want {
		t.Fatalf("prompt = %q", gen.prompt)
	}
	if ans.Text != "generated" || ans.Query != "What is a cat?" {
		t.Fatalf("unexpected answer %+v", ans)
	}
}

func TestAnswerDefaultK(t *testing.T) {
	emb := &topicEmbedder{}
	store, idx := animalCorpus(t, emb)
	o := &Orchestrator{Embedder: emb, Searcher: idx, Corpus: store, Generator: &recordingGenerator{}}

	_, sources, err := o.Retrieve(context.Background(), "rocks")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(sources) != 3 || sources[0].Title != "C" {
		t.Fatalf("expected all 3 chunks with C first, got %+v", sources)
	}
}

func TestAnswerSkipsPositionsMissingFromCorpus(t *testing.T) {
	emb := &topicEmbedder{}
	full, idx := animalCorpus(t, emb)
	// Corpus truncated below the index size.
	first, _ := full.At(0)
	store := corpus.NewMemory([]corpus.Record{first})
	gen := &recordingGenerator{}
	o := &Orchestrator{Embedder: emb, Searcher: idx, Corpus: store, Generator: gen, K: 3}

	ans, err := o.Answer(context.Background(), "dogs")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].Title != "A" {
		t.Fatalf("expected only in-bounds source A, got %+v", ans.Sources)
	}
}

func TestAnswerEmptyIndexStillGenerates(t *testing.T) {
	idx, _ := vecindex.New(3)
	gen := &recordingGenerator{}
	o := &Orchestrator{
		Embedder:  &topicEmbedder{},
		Searcher:  idx,
		Corpus:    corpus.NewMemory(nil),
		Generator: gen,
	}

	ans, err := o.Answer(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(ans.Sources) != 0 {
		t.Fatalf("expected no sources")
	}
	if gen.prompt != "Answer the question based on the context:\n\n\n\nQuestion: anything" {
		t.Fatalf("prompt = %q", gen.prompt)
	}
}

func TestAnswerErrors(t *testing.T) {
	emb := &topicEmbedder{}
	store, idx := animalCorpus(t, emb)

	emb.err = errors.New("backend down")
	o := &Orchestrator{Embedder: emb, Searcher: idx, Corpus: store, Generator: &recordingGenerator{}}
	if _, err := o.Answer(context.Background(), "cats"); !errors.Is(err, ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}

	emb.err = nil
	o.Generator = &recordingGenerator{err: errors.New("oom")}
	ans, err := o.Answer(context.Background(), "cats")
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if len(ans.Sources) == 0 {
		t.Fatalf("sources should be kept on generation failure")
	}
}
