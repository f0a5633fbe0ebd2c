package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wikiqa/internal/appconfig"
	"wikiqa/internal/corpus"
)

type echoGenerator struct{ prompts []string }

func (g *echoGenerator) Model() string { return "echo" }

func (g *echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return "ok", nil
}

func testConfig(t *testing.T, backend string) appconfig.Config {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "chunks.csv")
	rows := "title,text\nA,cats are mammals\nB,dogs are mammals\nC,rocks are minerals\n"
	if err := os.WriteFile(csvPath, []byte(rows), 0o644); err != nil {
		t.Fatal(err)
	}
	return appconfig.Config{
		Corpus:          csvPath,
		CheckpointDir:   filepath.Join(dir, "checkpoints"),
		DB:              filepath.Join(dir, "wikiqa.db"),
		Backend:         backend,
		BatchSize:       2,
		CheckpointEvery: 2,
		TopK:            1,
		ChunkWords:      250,
		Embedding:       appconfig.Embedding{Provider: appconfig.ProviderHash, Dimension: 64},
		Generation:      appconfig.Generation{Provider: appconfig.ProviderOllama},
	}
}

func TestBuildThenAnswer(t *testing.T) {
	a, err := New(testConfig(t, appconfig.BackendFlat))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	stats, err := a.Build(context.Background(), false, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.Embedded != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	gen := &echoGenerator{}
	a.Generator = gen
	sess, err := a.OpenSession(context.Background())
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer sess.Close()
	if sess.NextPosition != 3 || sess.Index.Len() != 3 {
		t.Fatalf("session covers %d positions", sess.NextPosition)
	}

	ans, err := sess.Answer(context.Background(), "Rocks are minerals!")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].Title != "C" {
		t.Fatalf("unexpected sources %+v", ans.Sources)
	}
	if !strings.HasSuffix(gen.prompts[0], "Question: Rocks are minerals!") {
		t.Fatalf("prompt = %q", gen.prompts[0])
	}

	status, err := a.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Exists || status.NextPosition != 3 || status.Meta.EmbeddingModel != "hash-64" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestSessionWithoutIndexAnswersWithEmptyContext(t *testing.T) {
	a, err := New(testConfig(t, appconfig.BackendFlat))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Generator = &echoGenerator{}
	sess, err := a.OpenSession(context.Background())
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	ans, err := sess.Answer(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(ans.Sources) != 0 {
		t.Fatalf("expected no sources, got %+v", ans.Sources)
	}
}

func TestSQLiteBackend(t *testing.T) {
	cfg := testConfig(t, appconfig.BackendSQLiteVec)
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := a.Build(context.Background(), false, nil); err == nil {
		t.Fatalf("expected error before import")
	}

	db, err := a.OpenStore()
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	mem, err := corpus.LoadCSV(cfg.Corpus, 0)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if err := db.ReplaceCorpus(mem, cfg.Corpus); err != nil {
		t.Fatalf("ReplaceCorpus: %v", err)
	}
	db.Close()

	if _, err := a.Build(context.Background(), false, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	a.Generator = &echoGenerator{}
	sess, err := a.OpenSession(context.Background())
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	defer sess.Close()
	ans, err := sess.Answer(context.Background(), "cats are mammals")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].Title != "A" {
		t.Fatalf("unexpected sources %+v", ans.Sources)
	}

	status, err := a.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.DB == nil || status.DB.Vectors != 3 || status.DB.Records != 3 {
		t.Fatalf("unexpected db status %+v", status.DB)
	}
}
