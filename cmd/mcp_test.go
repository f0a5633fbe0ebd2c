package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"wikiqa/internal/app"
	"wikiqa/internal/checkpoint"
	"wikiqa/internal/corpus"
	"wikiqa/internal/embedder"
	"wikiqa/internal/rag"
	"wikiqa/internal/vecindex"
)

type cannedGenerator struct{}

func (cannedGenerator) Model() string { return "canned" }

func (cannedGenerator) Generate(context.Context, string) (string, error) {
	return "Cats are mammals.", nil
}

func testOrchestrator(t *testing.T) *rag.Orchestrator {
	t.Helper()
	store := corpus.NewMemory([]corpus.Record{
		{Title: "A", Text: "cats are mammals"},
		{Title: "B", Text: "dogs are mammals"},
		{Title: "C", Text: "rocks are minerals"},
	})
	emb := embedder.NewHashEmbedder(32)
	texts, _ := corpus.Texts(store, 0, store.Len())
	vecs, _ := emb.Embed(context.Background(), texts)
	idx, _ := vecindex.New(32)
	if err := idx.Add(vecs); err != nil {
		t.Fatal(err)
	}
	return &rag.Orchestrator{Embedder: emb, Searcher: idx, Corpus: store, Generator: cannedGenerator{}}
}

func callTool(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(res.Content) == 0 {
		t.Fatalf("empty result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content %T", res.Content[0])
	}
	return text.Text, res.IsError
}

func TestSearchCorpusTool(t *testing.T) {
	h := makeSearchHandler(testOrchestrator(t))

	text, isErr := callTool(t, h, map[string]any{"query": "Rocks are minerals?", "k": 2})
	if isErr {
		t.Fatalf("unexpected error result: %s", text)
	}
	if !strings.Contains(text, `"rocks are minerals"`) || !strings.Contains(text, "(2 chunks)") {
		t.Fatalf("unexpected output:\n%s", text)
	}
	if !strings.Contains(text, "Result 1: C") {
		t.Fatalf("expected C ranked first:\n%s", text)
	}

	if _, isErr := callTool(t, h, map[string]any{"query": "  "}); !isErr {
		t.Fatalf("expected error for blank query")
	}
}

func TestAskQuestionTool(t *testing.T) {
	text, isErr := callTool(t, makeAskHandler(testOrchestrator(t)), map[string]any{"question": "What is a cat?"})
	if isErr {
		t.Fatalf("unexpected error result: %s", text)
	}
	if !strings.HasPrefix(text, "Cats are mammals.") || !strings.Contains(text, "Sources:") {
		t.Fatalf("unexpected output:\n%s", text)
	}
}

func TestIndexStatusTool(t *testing.T) {
	ok := func() (app.Status, error) {
		return app.Status{
			Exists:       true,
			NextPosition: 42,
			Backend:      "flat",
			Meta:         &checkpoint.Meta{EmbeddingModel: "nomic-embed-text", Dimension: 768, SavedAt: time.Now()},
		}, nil
	}
	text, isErr := callTool(t, makeStatusHandler(ok), nil)
	if isErr || !strings.Contains(text, "Indexed positions: 42") || !strings.Contains(text, "Dimension: 768") {
		t.Fatalf("unexpected output:\n%s", text)
	}

	broken := func() (app.Status, error) { return app.Status{}, errors.New("disk gone") }
	if _, isErr := callTool(t, makeStatusHandler(broken), nil); !isErr {
		t.Fatalf("expected error result")
	}
}
