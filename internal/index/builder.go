// Package index builds the vector index over a corpus in fixed-size batches,
// checkpointing as it goes so an interrupted build resumes where it stopped.
package index

import (
	"context"
	"errors"
	"fmt"

	"wikiqa/internal/checkpoint"
	"wikiqa/internal/corpus"
	"wikiqa/internal/embedder"
	"wikiqa/internal/logging"
	"wikiqa/internal/vecindex"
)

// ErrCheckpointSave marks a build whose progress could not be persisted. It
// takes precedence over cancellation: an interrupted build that failed to
// save does not match context.Canceled.
var ErrCheckpointSave = errors.New("checkpoint save failed")

const (
	DefaultBatchSize       = 32
	DefaultCheckpointEvery = 10000
)

// ProgressFunc is called after every batch with the number of positions
// indexed so far and the corpus size.
type ProgressFunc func(phase string, done, total int)

// Stats reports build results.
type Stats struct {
	Total       int
	Skipped     int // positions restored from the checkpoint
	Embedded    int
	Checkpoints int
	ResumedFrom int
	Dimension   int
}

// Builder embeds every corpus record in position order and appends the
// vectors to the index.
type Builder struct {
	Corpus      corpus.Store
	Embedder    embedder.Embedder
	Checkpoints *checkpoint.Manager

	BatchSize       int
	CheckpointEvery int
	// Dimension fixes the vector length. Zero accepts the stored
	// checkpoint's dimension or probes the embedder.
	Dimension int
	// Model is recorded in checkpoints; defaults to Embedder.Model().
	Model string

	OnProgress ProgressFunc
}

func (b *Builder) batchSize() int {
	if b.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return b.BatchSize
}

func (b *Builder) checkpointEvery() int {
	if b.CheckpointEvery <= 0 {
		return DefaultCheckpointEvery
	}
	return b.CheckpointEvery
}

func (b *Builder) model() string {
	if b.Model != "" {
		return b.Model
	}
	return b.Embedder.Model()
}

// Build resumes from the last checkpoint and indexes the rest of the corpus.
// It returns the finished index alongside the stats. On an embedding failure
// or cancellation the progress made so far is checkpointed and the error is
// returned; positions below the last checkpoint are never re-embedded.
func (b *Builder) Build(ctx context.Context) (*vecindex.Flat, *Stats, error) {
	total := b.Corpus.Len()
	stats := &Stats{Total: total}

	st, err := b.Checkpoints.Load(b.Dimension)
	if err != nil {
		return nil, stats, fmt.Errorf("load checkpoint: %w", err)
	}

	if st.Meta != nil && st.Meta.EmbeddingModel != "" && st.Meta.EmbeddingModel != b.model() {
		logging.Warnf("Embedding model changed from %q to %q, re-indexing from position 0", st.Meta.EmbeddingModel, b.model())
		st = checkpoint.State{}
		if b.Dimension > 0 {
			if st.Index, err = vecindex.New(b.Dimension); err != nil {
				return nil, stats, err
			}
		}
	}

	if st.Index == nil {
		dim, err := embedder.Dimension(ctx, b.Embedder)
		if err != nil {
			return nil, stats, fmt.Errorf("%w: %w", embedder.ErrEmbedding, err)
		}
		if st.Index, err = vecindex.New(dim); err != nil {
			return nil, stats, err
		}
	}
	idx := st.Index
	next := st.NextPosition
	stats.Dimension = idx.Dimension()
	stats.ResumedFrom = next
	stats.Skipped = next

	fp := corpus.NewFingerprinter()
	if next > total {
		logging.Warnf("checkpoint covers %d positions but the corpus has %d records", next, total)
	} else {
		if err := fp.Extend(b.Corpus, next); err != nil {
			return idx, stats, err
		}
		if st.Meta != nil && st.Meta.CorpusFingerprint != "" && st.Meta.CorpusFingerprint != fp.Sum() {
			logging.Warnf("corpus records below position %d differ from the checkpointed build; positions may be misaligned", next)
		}
	}
	if next > 0 {
		logging.Infof("Resuming from checkpoint at position %d of %d", next, total)
	}

	save := func() error {
		info := checkpoint.Meta{EmbeddingModel: b.model()}
		if fp.Len() == idx.Len() {
			info.CorpusFingerprint = fp.Sum()
		}
		if err := b.Checkpoints.Save(idx, idx.Len(), info); err != nil {
			return fmt.Errorf("%w at position %d: %w", ErrCheckpointSave, idx.Len(), err)
		}
		stats.Checkpoints++
		logging.Debugf("checkpoint saved at position %d", idx.Len())
		return nil
	}

	batch := b.batchSize()
	sinceSave := 0
	for i := next; i < total; i += batch {
		if err := ctx.Err(); err != nil {
			return idx, stats, b.interrupted(save, sinceSave, err)
		}

		end := min(i+batch, total)
		texts, err := corpus.Texts(b.Corpus, i, end)
		if err != nil {
			return idx, stats, fmt.Errorf("read corpus [%d, %d): %w", i, end, err)
		}

		vecs, err := b.Embedder.Embed(ctx, texts)
		if err == nil && len(vecs) != len(texts) {
			err = fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vecs))
		}
		if err != nil {
			if ctx.Err() != nil {
				return idx, stats, b.interrupted(save, sinceSave, ctx.Err())
			}
			if sinceSave > 0 {
				if serr := save(); serr != nil {
					logging.Errorf("checkpoint after embedding failure: %v", serr)
				}
			}
			return idx, stats, fmt.Errorf("%w: positions [%d, %d): %w", embedder.ErrEmbedding, i, end, err)
		}

		if err := idx.Add(vecs); err != nil {
			return idx, stats, fmt.Errorf("add positions [%d, %d): %w", i, end, err)
		}
		if err := fp.Extend(b.Corpus, end); err != nil {
			return idx, stats, err
		}
		stats.Embedded += len(vecs)
		sinceSave += len(vecs)

		if sinceSave >= b.checkpointEvery() {
			if err := save(); err != nil {
				return idx, stats, err
			}
			sinceSave = 0
		}
		if b.OnProgress != nil {
			b.OnProgress("Embedding chunks...", end, total)
		}
	}

	if sinceSave > 0 || !b.Checkpoints.Exists() {
		if err := save(); err != nil {
			return idx, stats, err
		}
	}
	return idx, stats, nil
}

// interrupted checkpoints unsaved progress before reporting cancellation. If
// that save fails the save error is returned instead of the cancellation.
func (b *Builder) interrupted(save func() error, sinceSave int, cause error) error {
	if sinceSave > 0 {
		if err := save(); err != nil {
			return fmt.Errorf("build interrupted (%v): %w", cause, err)
		}
	}
	return fmt.Errorf("build interrupted: %w", cause)
}
