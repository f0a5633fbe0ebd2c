package chunker

import (
	"encoding/json"
	"strings"
	"testing"

	"wikiqa/internal/corpus"
)

func TestChunkWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{"empty", "   ", 3, nil},
		{"exact", "a b c", 3, []string{"a b c"}},
		{"remainder", "a  b\tc\nd e", 2, []string{"a b", "c d", "e"}},
		{"default size", "x", 0, []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChunkWords(tt.text, tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %q, want %q", got, tt.want)
				}
			}
		})
	}
}

func TestChunkWordsDefaultIs250(t *testing.T) {
	text := strings.Repeat("word ", 251)
	chunks := ChunkWords(text, DefaultChunkWords)
	if len(chunks) != 2 || len(strings.Fields(chunks[0])) != 250 || chunks[1] != "word" {
		t.Fatalf("unexpected chunking: %d chunks", len(chunks))
	}
}

func TestExtractParagraphs(t *testing.T) {
	raw := json.RawMessage(`[
		{"has_parts": [
			{"type": "paragraph", "value": "  First.  "},
			{"type": "list", "value": "ignored"},
			{"type": "paragraph", "value": "   "}
		]},
		{"name": "no parts"},
		{"has_parts": [{"type": "paragraph", "value": "Second."}]}
	]`)
	got := ExtractParagraphs(raw)
	if len(got) != 2 || got[0] != "First." || got[1] != "Second." {
		t.Fatalf("got %q", got)
	}

	if got := ExtractParagraphs(json.RawMessage(`{"not": "a list"}`)); got != nil {
		t.Fatalf("expected nil for non-list sections, got %q", got)
	}
	if got := ExtractParagraphs(nil); got != nil {
		t.Fatalf("expected nil for missing sections")
	}
}

func TestReadSkipsBadLines(t *testing.T) {
	input := strings.Join([]string{
		`{"name": "Cat", "sections": [{"has_parts": [{"type": "paragraph", "value": "cats are mammals"}]}]}`,
		`not json`,
		``,
		`{"name": "Empty", "sections": []}`,
		`{"name": "Dog", "sections": [{"has_parts": [{"type": "paragraph", "value": "dogs"}, {"type": "paragraph", "value": "are mammals too"}]}]}`,
	}, "\n")

	var got []corpus.Record
	stats, err := New(2).Read(strings.NewReader(input), func(r corpus.Record) error {
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if stats.Skipped != 1 || stats.Articles != 3 || stats.Chunks != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	want := []corpus.Record{
		{Title: "Cat", Text: "cats are"},
		{Title: "Cat", Text: "mammals"},
		{Title: "Dog", Text: "dogs are"},
		{Title: "Dog", Text: "mammals too"},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
