// Package app assembles the configured backends into the objects each
// command needs. Everything a command touches is built here once and passed
// down explicitly.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"wikiqa/internal/appconfig"
	"wikiqa/internal/checkpoint"
	"wikiqa/internal/corpus"
	"wikiqa/internal/embedder"
	"wikiqa/internal/index"
	"wikiqa/internal/llm"
	"wikiqa/internal/logging"
	"wikiqa/internal/rag"
	"wikiqa/internal/store"
	"wikiqa/internal/vecindex"
)

// App holds the configured backends.
type App struct {
	Config      appconfig.Config
	Embedder    embedder.Embedder
	Generator   llm.Generator
	Checkpoints *checkpoint.Manager
}

// New builds the embedding client named by cfg. The generator is created on
// first use, so commands that never generate do not need its credentials.
func New(cfg appconfig.Config) (*App, error) {
	emb, err := NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:      cfg,
		Embedder:    emb,
		Checkpoints: checkpoint.New(cfg.CheckpointDir),
	}, nil
}

// NewEmbedder returns the embedding client for cfg.
func NewEmbedder(cfg appconfig.Embedding) (embedder.Embedder, error) {
	switch cfg.Provider {
	case appconfig.ProviderOllama:
		return embedder.NewOllamaEmbedder(cfg.URL, cfg.Model), nil
	case appconfig.ProviderOpenAI:
		return embedder.NewOpenAIEmbedder(cfg.APIKey, openAIBaseURL(cfg.URL), cfg.Model)
	case appconfig.ProviderHash:
		return embedder.NewHashEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// NewGenerator returns the generation client for cfg.
func NewGenerator(cfg appconfig.Generation) (llm.Generator, error) {
	switch cfg.Provider {
	case appconfig.ProviderOllama:
		return llm.NewOllamaChat(cfg.URL, cfg.Model, cfg.MaxTokens), nil
	case appconfig.ProviderOpenAI:
		return llm.NewOpenAIChat(cfg.APIKey, openAIBaseURL(cfg.URL), cfg.Model, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}

// openAIBaseURL drops the Ollama default so the OpenAI clients use their own.
func openAIBaseURL(u string) string {
	if u == "http://localhost:11434" {
		return ""
	}
	return u
}

// generator returns the configured generator, creating it on first use.
func (a *App) generator() (llm.Generator, error) {
	if a.Generator != nil {
		return a.Generator, nil
	}
	g, err := NewGenerator(a.Config.Generation)
	if err != nil {
		return nil, err
	}
	a.Generator = g
	return g, nil
}

func (a *App) sqliteBackend() bool {
	return a.Config.Backend == appconfig.BackendSQLiteVec
}

// OpenStore opens the SQLite database, creating its directory if needed.
func (a *App) OpenStore() (*store.SQLiteStore, error) {
	if dir := filepath.Dir(a.Config.DB); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	st, err := store.Open(a.Config.DB)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

// OpenCorpus returns the corpus the index is built over: the imported SQLite
// table on the sqlite-vec backend, otherwise the CSV file. limit > 0 reads
// only the first limit CSV rows.
func (a *App) OpenCorpus(limit int) (corpus.Store, io.Closer, error) {
	if a.sqliteBackend() {
		st, err := a.OpenStore()
		if err != nil {
			return nil, nil, err
		}
		if st.Len() == 0 {
			st.Close()
			return nil, nil, fmt.Errorf("database %s holds no corpus; run 'wikiqa import' first", a.Config.DB)
		}
		return st, st, nil
	}
	mem, err := corpus.LoadCSV(a.Config.Corpus, limit)
	if err != nil {
		return nil, nil, err
	}
	return mem, nopCloser{}, nil
}

// Builder returns a build loop over c.
func (a *App) Builder(c corpus.Store, onProgress index.ProgressFunc) *index.Builder {
	return &index.Builder{
		Corpus:          c,
		Embedder:        a.Embedder,
		Checkpoints:     a.Checkpoints,
		BatchSize:       a.Config.BatchSize,
		CheckpointEvery: a.Config.CheckpointEvery,
		Dimension:       a.Config.Embedding.Dimension,
		OnProgress:      onProgress,
	}
}

// Build runs the build loop over the configured corpus. With fresh set the
// existing checkpoint is removed first. On the sqlite-vec backend the
// finished index is mirrored into the database.
func (a *App) Build(ctx context.Context, fresh bool, onProgress index.ProgressFunc) (*index.Stats, error) {
	if fresh {
		if err := a.Checkpoints.Remove(); err != nil {
			return nil, err
		}
		logging.Infof("Removed checkpoint in %s", a.Checkpoints.Dir)
	}

	c, closer, err := a.OpenCorpus(0)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	idx, stats, err := a.Builder(c, onProgress).Build(ctx)
	if err != nil {
		return stats, err
	}
	if st, ok := c.(*store.SQLiteStore); ok {
		if err := st.MirrorIndex(idx, a.Embedder.Model()); err != nil {
			return stats, fmt.Errorf("mirror index: %w", err)
		}
	}
	return stats, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Session is a loaded index ready to answer questions.
type Session struct {
	*rag.Orchestrator
	Index        *vecindex.Flat
	NextPosition int
	closer       io.Closer
}

// Close releases the corpus store.
func (s *Session) Close() error { return s.closer.Close() }

// OpenSession loads the checkpointed index and the corpus rows it covers and
// wires them to the query pipeline. A missing index yields an empty one, so
// questions are still answered without context.
func (a *App) OpenSession(ctx context.Context) (*Session, error) {
	gen, err := a.generator()
	if err != nil {
		return nil, err
	}

	st, err := a.Checkpoints.Load(a.Config.Embedding.Dimension)
	if err != nil {
		return nil, err
	}
	if st.Meta != nil && st.Meta.EmbeddingModel != "" && st.Meta.EmbeddingModel != a.Embedder.Model() {
		logging.Warnf("index was built with %q but queries use %q", st.Meta.EmbeddingModel, a.Embedder.Model())
	}
	if st.Index == nil {
		dim, err := embedder.Dimension(ctx, a.Embedder)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", embedder.ErrEmbedding, err)
		}
		if st.Index, err = vecindex.New(dim); err != nil {
			return nil, err
		}
	}
	if st.NextPosition == 0 {
		logging.Warnf("index is empty; run 'wikiqa index' to build it")
	}

	var (
		c        corpus.Store
		closer   io.Closer = nopCloser{}
		searcher rag.Searcher = st.Index
	)
	switch {
	case a.sqliteBackend():
		db, err := a.OpenStore()
		if err != nil {
			return nil, err
		}
		if err := db.MirrorIndex(st.Index, a.Embedder.Model()); err != nil {
			db.Close()
			return nil, fmt.Errorf("mirror index: %w", err)
		}
		c, closer, searcher = db, db, db
	case st.NextPosition == 0:
		c = corpus.NewMemory(nil)
	default:
		mem, err := corpus.LoadCSV(a.Config.Corpus, st.NextPosition)
		if err != nil {
			return nil, err
		}
		if mem.Len() < st.NextPosition {
			logging.Warnf("corpus has %d records but the index covers %d", mem.Len(), st.NextPosition)
		}
		c = mem
	}

	return &Session{
		Orchestrator: &rag.Orchestrator{
			Embedder:  a.Embedder,
			Searcher:  searcher,
			Corpus:    c,
			Generator: gen,
			K:         a.Config.TopK,
		},
		Index:        st.Index,
		NextPosition: st.NextPosition,
		closer:       closer,
	}, nil
}

// Status describes the checkpoint on disk.
type Status struct {
	CheckpointDir string
	Exists        bool
	// Err is set when a checkpoint exists but cannot be used.
	Err          error
	NextPosition int
	Meta         *checkpoint.Meta
	Backend      string
	DB           *store.Info
}

// Status inspects the checkpoint and, on the sqlite-vec backend, the database.
func (a *App) Status() (Status, error) {
	s := Status{CheckpointDir: a.Checkpoints.Dir, Backend: a.Config.Backend}
	st, err := a.Checkpoints.Read()
	switch {
	case err == nil:
		s.Exists = true
		s.NextPosition = st.NextPosition
		s.Meta = st.Meta
	case errors.Is(err, os.ErrNotExist):
	case errors.Is(err, checkpoint.ErrCorruptCheckpoint):
		s.Exists = true
		s.Err = err
	default:
		return s, err
	}

	if a.sqliteBackend() {
		db, err := a.OpenStore()
		if err != nil {
			return s, err
		}
		defer db.Close()
		info, err := db.Info()
		if err != nil {
			return s, err
		}
		s.DB = &info
	}
	return s, nil
}
