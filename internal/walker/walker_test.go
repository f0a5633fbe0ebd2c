package walker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func collect(t *testing.T, root string) []string {
	t.Helper()
	files, errs := Walk(context.Background(), root, map[string]bool{"jsonl": true})
	var got []string
	for f := range files {
		got = append(got, f.RelPath)
	}
	if err := <-errs; err != nil {
		t.Fatalf("Walk: %v", err)
	}
	return got
}

func TestWalkLexicalOrderAndFilters(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("b.jsonl", "{}\n")
	write("a.jsonl", "{}\n")
	write("sub/c.jsonl", "{}\n")
	write("empty.jsonl", "")
	write("notes.txt", "x")
	write(".git/d.jsonl", "{}\n")

	got := collect(t, root)
	want := []string{"a.jsonl", "b.jsonl", "sub/c.jsonl"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestWalkSingleFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "dump.jsonl")
	if err := os.WriteFile(p, []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got := collect(t, p)
	if len(got) != 1 || got[0] != "dump.jsonl" {
		t.Fatalf("got %v", got)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	files, errs := Walk(context.Background(), filepath.Join(t.TempDir(), "missing"), map[string]bool{"jsonl": true})
	for range files {
	}
	if err := <-errs; err == nil {
		t.Fatalf("expected error for missing root")
	}
}

func TestWalkStopsWhenCancelled(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 200; i++ {
		if err := os.WriteFile(filepath.Join(root, fmt.Sprintf("part-%03d.jsonl", i)), []byte("{}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	files, errs := Walk(ctx, root, map[string]bool{"jsonl": true})
	<-files
	cancel()

	done := make(chan int)
	go func() {
		n := 1
		for range files {
			n++
		}
		done <- n
	}()
	select {
	case n := <-done:
		if n >= 200 {
			t.Fatalf("walk delivered all %d files after cancel", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("walker goroutine did not stop after cancel")
	}
	if err := <-errs; err != nil {
		t.Fatalf("cancel should not surface as a walk error, got %v", err)
	}
}
