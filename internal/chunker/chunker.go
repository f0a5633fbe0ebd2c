// Package chunker turns Wikipedia JSONL dump lines into fixed-size word
// chunks ready for the corpus CSV.
package chunker

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"wikiqa/internal/corpus"
)

// DefaultChunkWords is the chunk size in whitespace-separated words.
const DefaultChunkWords = 250

// Part is one entry of a section's has_parts list.
type Part struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Section is one article section.
type Section struct {
	HasParts []Part `json:"has_parts"`
}

// Article is the subset of a dump line the chunker reads.
type Article struct {
	Name     string          `json:"name"`
	Sections json.RawMessage `json:"sections"`
}

// ExtractParagraphs returns the trimmed, non-empty paragraph values of
// sections in document order. Anything other than a list of sections yields
// no paragraphs.
func ExtractParagraphs(sections json.RawMessage) []string {
	var list []Section
	if len(sections) == 0 || json.Unmarshal(sections, &list) != nil {
		return nil
	}
	var paragraphs []string
	for _, s := range list {
		for _, p := range s.HasParts {
			if p.Type != "paragraph" {
				continue
			}
			if v := strings.TrimSpace(p.Value); v != "" {
				paragraphs = append(paragraphs, v)
			}
		}
	}
	return paragraphs
}

// ChunkWords splits text on whitespace and rejoins every size words with
// single spaces. The last chunk may be shorter.
func ChunkWords(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkWords
	}
	words := strings.Fields(text)
	var chunks []string
	for i := 0; i < len(words); i += size {
		chunks = append(chunks, strings.Join(words[i:min(i+size, len(words))], " "))
	}
	return chunks
}

// Stats counts what a read produced.
type Stats struct {
	Lines    int
	Articles int
	Skipped  int // undecodable lines
	Chunks   int
}

// Chunker reads dump streams.
type Chunker struct {
	Words int
}

// New returns a chunker producing chunks of words words.
func New(words int) *Chunker {
	if words <= 0 {
		words = DefaultChunkWords
	}
	return &Chunker{Words: words}
}

// Read decodes one article per line from r and calls emit for every chunk in
// order. Lines that are not valid JSON are counted and skipped. Records are
// emitted without positions; the corpus writer assigns them.
func (c *Chunker) Read(r io.Reader, emit func(corpus.Record) error) (Stats, error) {
	var stats Stats
	br := bufio.NewReaderSize(r, 1<<20)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			stats.Lines++
			if perr := c.processLine(line, emit, &stats); perr != nil {
				return stats, perr
			}
		}
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("read line %d: %w", stats.Lines+1, err)
		}
	}
}

func (c *Chunker) processLine(line []byte, emit func(corpus.Record) error, stats *Stats) error {
	if len(strings.TrimSpace(string(line))) == 0 {
		return nil
	}
	var a Article
	if err := json.Unmarshal(line, &a); err != nil {
		stats.Skipped++
		return nil
	}
	stats.Articles++

	text := strings.Join(ExtractParagraphs(a.Sections), " ")
	for _, chunk := range ChunkWords(text, c.Words) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		if err := emit(corpus.Record{Title: a.Name, Text: chunk}); err != nil {
			return err
		}
		stats.Chunks++
	}
	return nil
}
