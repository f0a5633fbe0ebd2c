package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"wikiqa/internal/chunker"
	"wikiqa/internal/corpus"
	"wikiqa/internal/logging"
	"wikiqa/internal/walker"
)

var (
	flagPrepareOut   string
	flagPrepareWords int
)

var prepareCmd = &cobra.Command{
	Use:   "prepare <dump-dir|file.jsonl>",
	Short: "Chunk Wikipedia JSONL dumps into the corpus CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := flagPrepareOut
		if out == "" {
			out = cfg.Corpus
		}
		words := flagPrepareWords
		if words <= 0 {
			words = cfg.ChunkWords
		}
		if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create corpus file: %w", err)
		}
		start := time.Now()
		total, chunks, err := writeCorpus(context.Background(), args[0], words, f, os.Stdout)
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", out, cerr)
		}
		if err != nil {
			return err
		}

		fmt.Printf("\n%s %d chunks from %d articles in %s\n", success("Done:"), chunks, total.Articles,
			time.Since(start).Round(time.Millisecond))
		if total.Skipped > 0 {
			fmt.Printf("  %s %d undecodable lines skipped\n", warning("!"), total.Skipped)
		}
		fmt.Printf("  Saved to %s\n", out)
		return nil
	},
}

// writeCorpus chunks every .jsonl file under root into dst as corpus CSV and
// returns the summed stats and the number of rows written. The walk is
// cancelled as soon as a file fails.
func writeCorpus(ctx context.Context, root string, words int, dst, progress io.Writer) (chunker.Stats, int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	buf := bufio.NewWriter(dst)
	w := corpus.NewCSVWriter(buf)
	ch := chunker.New(words)

	var total chunker.Stats
	files, walkErrs := walker.Walk(ctx, root, map[string]bool{"jsonl": true})
	for fi := range files {
		fmt.Fprintf(progress, "Processing %s ...\n", fi.RelPath)
		stats, err := chunkFile(ch, fi.Path, w)
		if err != nil {
			return total, w.Count(), err
		}
		if stats.Skipped > 0 {
			logging.Warnf("%s: skipped %d undecodable lines", fi.RelPath, stats.Skipped)
		}
		total.Lines += stats.Lines
		total.Articles += stats.Articles
		total.Skipped += stats.Skipped
		total.Chunks += stats.Chunks
	}
	if err := <-walkErrs; err != nil {
		return total, w.Count(), fmt.Errorf("walk %s: %w", root, err)
	}

	if err := w.Flush(); err != nil {
		return total, w.Count(), err
	}
	if err := buf.Flush(); err != nil {
		return total, w.Count(), fmt.Errorf("write corpus: %w", err)
	}
	return total, w.Count(), nil
}

func chunkFile(ch *chunker.Chunker, path string, w *corpus.CSVWriter) (chunker.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return chunker.Stats{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	stats, err := ch.Read(f, w.Write)
	if err != nil {
		return stats, fmt.Errorf("chunk %s: %w", path, err)
	}
	return stats, nil
}

func init() {
	prepareCmd.Flags().StringVarP(&flagPrepareOut, "out", "o", "", "output CSV (default: the configured corpus path)")
	prepareCmd.Flags().IntVar(&flagPrepareWords, "words", 0, "words per chunk (default: chunk_words from config, 250)")
	rootCmd.AddCommand(prepareCmd)
}
