package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"wikiqa/internal/corpus"
	"wikiqa/internal/vecindex"
)

func init() {
	sqlite_vec.Auto()
}

var _ corpus.Store = (*SQLiteStore)(nil)

// SQLiteStore persists the corpus and a mirror of the vector index in SQLite
// with the sqlite-vec extension. It serves as both corpus and searcher on the
// sqlite-vec backend.
type SQLiteStore struct {
	db    *sql.DB
	count int
}

// Open creates or opens a SQLite database at the given path and initializes the schema.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&s.count); err != nil {
		db.Close()
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	return s, nil
}

// Len returns the number of corpus records.
func (s *SQLiteStore) Len() int { return s.count }

// At returns the record at pos.
func (s *SQLiteStore) At(pos int) (corpus.Record, error) {
	r := corpus.Record{Position: pos}
	err := s.db.QueryRow("SELECT title, text FROM chunks WHERE position = ?", pos).Scan(&r.Title, &r.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return corpus.Record{}, fmt.Errorf("%w: %d", corpus.ErrOutOfBounds, pos)
	}
	if err != nil {
		return corpus.Record{}, fmt.Errorf("read chunk %d: %w", pos, err)
	}
	return r, nil
}

// ReplaceCorpus drops every record and vector and copies src in position
// order.
func (s *SQLiteStore) ReplaceCorpus(src corpus.Store, source string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DROP TABLE IF EXISTS vec_chunks"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM chunks"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM meta WHERE key IN (?, ?)", MetaDimension, MetaEmbeddingModel); err != nil {
		return err
	}

	stmt, err := tx.Prepare("INSERT INTO chunks (position, title, text) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	n := src.Len()
	for i := 0; i < n; i++ {
		r, err := src.At(i)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(i, r.Title, r.Text); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	if err := setMeta(tx, MetaSource, source); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.count = n
	return nil
}

// MirrorIndex appends the vectors of idx that the table does not hold yet.
// If the dimension or model changed, or the table holds more vectors than idx
// (a rebuild), the table is recreated first.
func (s *SQLiteStore) MirrorIndex(idx *vecindex.Flat, model string) error {
	storedDim, err := s.metaInt(MetaDimension)
	if err != nil {
		return err
	}
	storedModel, err := s.GetMeta(MetaEmbeddingModel)
	if err != nil {
		return err
	}
	have := 0
	if storedDim == idx.Dimension() && storedModel == model {
		if have, err = s.vectorCount(); err != nil {
			return err
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if have == 0 || have > idx.Len() {
		have = 0
		if _, err := tx.Exec("DROP TABLE IF EXISTS vec_chunks"); err != nil {
			return err
		}
		if _, err := tx.Exec(vecDDL(idx.Dimension())); err != nil {
			return fmt.Errorf("create vector table: %w", err)
		}
	}

	stmt, err := tx.Prepare("INSERT INTO vec_chunks (position, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for pos := have; pos < idx.Len(); pos++ {
		vec, _ := idx.Vector(pos)
		blob, err := sqlite_vec.SerializeFloat32(vec)
		if err != nil {
			return fmt.Errorf("serialize embedding for position %d: %w", pos, err)
		}
		if _, err := stmt.Exec(pos, blob); err != nil {
			return fmt.Errorf("insert embedding for position %d: %w", pos, err)
		}
	}

	for key, value := range map[string]string{
		MetaDimension:      strconv.Itoa(idx.Dimension()),
		MetaEmbeddingModel: model,
	} {
		if err := setMeta(tx, key, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Search runs a vec0 KNN query. Results are ordered by distance, then by
// position, to match vecindex.Flat.
func (s *SQLiteStore) Search(query []float32, k int) ([]vecindex.Neighbor, error) {
	if k <= 0 {
		return nil, vecindex.ErrInvalidK
	}
	dim, err := s.metaInt(MetaDimension)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []vecindex.Neighbor{}, nil
	}
	if len(query) != dim {
		return nil, &vecindex.DimensionError{Want: dim, Got: len(query)}
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}
	rows, err := s.db.Query(`
		SELECT position, distance
		FROM vec_chunks
		WHERE embedding MATCH ?
		ORDER BY distance
		LIMIT ?
	`, blob, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []vecindex.Neighbor{}
	for rows.Next() {
		var n vecindex.Neighbor
		if err := rows.Scan(&n.Position, &n.Distance); err != nil {
			return nil, err
		}
		results = append(results, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Position < results[j].Position
	})
	return results, nil
}

// Info reports record and vector counts.
func (s *SQLiteStore) Info() (Info, error) {
	info := Info{Records: s.count}
	var err error
	if info.Dimension, err = s.metaInt(MetaDimension); err != nil {
		return info, err
	}
	if info.Dimension > 0 {
		if info.Vectors, err = s.vectorCount(); err != nil {
			return info, err
		}
	}
	if info.EmbeddingModel, err = s.GetMeta(MetaEmbeddingModel); err != nil {
		return info, err
	}
	if info.Source, err = s.GetMeta(MetaSource); err != nil {
		return info, err
	}
	return info, nil
}

func (s *SQLiteStore) vectorCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM vec_chunks").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) metaInt(key string) (int, error) {
	v, err := s.GetMeta(key)
	if err != nil || v == "" {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("meta %s: %w", key, err)
	}
	return n, nil
}

// GetMeta returns a metadata value by key, or "" if not set.
func (s *SQLiteStore) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func setMeta(ex execer, key, value string) error {
	_, err := ex.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
