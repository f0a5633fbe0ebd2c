package store

import (
	"errors"
	"path/filepath"
	"testing"

	"wikiqa/internal/corpus"
	"wikiqa/internal/vecindex"
)

func openTemp(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "wikiqa.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReplaceCorpusAndAt(t *testing.T) {
	s := openTemp(t)
	src := corpus.NewMemory([]corpus.Record{
		{Title: "A", Text: "cats are mammals"},
		{Title: "B", Text: "dogs are mammals"},
	})
	if err := s.ReplaceCorpus(src, "chunks.csv"); err != nil {
		t.Fatalf("ReplaceCorpus: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d", s.Len())
	}
	r, err := s.At(1)
	if err != nil || r.Title != "B" || r.Position != 1 {
		t.Fatalf("At(1) = %+v, %v", r, err)
	}
	if _, err := s.At(2); !errors.Is(err, corpus.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if src, _ := s.GetMeta(MetaSource); src != "chunks.csv" {
		t.Fatalf("source meta = %q", src)
	}
}

func TestMirrorIndexAndSearch(t *testing.T) {
	s := openTemp(t)
	if res, err := s.Search([]float32{1, 0}, 3); err != nil || len(res) != 0 {
		t.Fatalf("search before mirroring = %v, %v", res, err)
	}

	idx, _ := vecindex.New(2)
	_ = idx.Add([][]float32{{0, 0}, {3, 4}, {1, 0}})
	if err := s.MirrorIndex(idx, "m"); err != nil {
		t.Fatalf("MirrorIndex: %v", err)
	}

	// Appending mirrors only the new tail.
	_ = idx.Add([][]float32{{0, 1}})
	if err := s.MirrorIndex(idx, "m"); err != nil {
		t.Fatalf("MirrorIndex: %v", err)
	}
	info, err := s.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Vectors != 4 || info.Dimension != 2 || info.EmbeddingModel != "m" {
		t.Fatalf("unexpected info %+v", info)
	}

	got, err := s.Search([]float32{0, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want, _ := idx.Search([]float32{0, 0}, 3)
	if len(got) != len(want) {
		t.Fatalf("got %d results, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Position != want[i].Position {
			t.Fatalf("rank %d: position %d, flat index says %d", i, got[i].Position, want[i].Position)
		}
	}

	if _, err := s.Search([]float32{1}, 3); !errors.Is(err, vecindex.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := s.Search([]float32{1, 0}, 0); !errors.Is(err, vecindex.ErrInvalidK) {
		t.Fatalf("expected ErrInvalidK, got %v", err)
	}
}

func TestMirrorIndexRecreatesOnModelChange(t *testing.T) {
	s := openTemp(t)
	idx, _ := vecindex.New(2)
	_ = idx.Add([][]float32{{1, 1}, {2, 2}})
	if err := s.MirrorIndex(idx, "old"); err != nil {
		t.Fatalf("MirrorIndex: %v", err)
	}

	fresh, _ := vecindex.New(3)
	_ = fresh.Add([][]float32{{1, 0, 0}})
	if err := s.MirrorIndex(fresh, "new"); err != nil {
		t.Fatalf("MirrorIndex: %v", err)
	}
	info, _ := s.Info()
	if info.Vectors != 1 || info.Dimension != 3 {
		t.Fatalf("expected recreated table, got %+v", info)
	}
}
