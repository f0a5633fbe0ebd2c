// Package corpus holds the ordered (title, text) chunk records that the index
// is built over. A record's position is its row number in the corpus file and
// must not change between a build and the queries served from it.
package corpus

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
)

// ErrOutOfBounds is returned by At for a position outside the store.
var ErrOutOfBounds = errors.New("position out of bounds")

// Record is one chunk of an article.
type Record struct {
	Position int
	Title    string
	Text     string
}

// Store is random access over records by position.
type Store interface {
	// Len returns the number of records.
	Len() int
	// At returns the record at pos or an error wrapping ErrOutOfBounds.
	At(pos int) (Record, error)
}

// Memory is a slice-backed Store.
type Memory struct {
	records []Record
}

// NewMemory builds a store from (title, text) pairs, assigning positions in
// order.
func NewMemory(records []Record) *Memory {
	m := &Memory{records: make([]Record, len(records))}
	for i, r := range records {
		r.Position = i
		m.records[i] = r
	}
	return m
}

func (m *Memory) Len() int { return len(m.records) }

func (m *Memory) At(pos int) (Record, error) {
	if pos < 0 || pos >= len(m.records) {
		return Record{}, fmt.Errorf("%w: %d (have %d records)", ErrOutOfBounds, pos, len(m.records))
	}
	return m.records[pos], nil
}

// Texts returns the text of records [from, to).
func Texts(s Store, from, to int) ([]string, error) {
	texts := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		r, err := s.At(i)
		if err != nil {
			return nil, err
		}
		texts = append(texts, r.Text)
	}
	return texts, nil
}

// Fingerprinter computes a hex SHA-256 chain over a prefix of the corpus. The
// sum changes if any record in the prefix is edited, reordered, inserted or
// removed. It grows incrementally, so a build extends it batch by batch
// instead of rehashing the prefix at every save.
type Fingerprinter struct {
	h hash.Hash
	n int
}

// NewFingerprinter returns the fingerprint state of zero records.
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{h: sha256.New()}
}

// Add appends one record to the chain.
func (f *Fingerprinter) Add(r Record) {
	var lenBuf [8]byte
	for _, field := range []string{r.Title, r.Text} {
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(field)))
		f.h.Write(lenBuf[:])
		f.h.Write([]byte(field))
	}
	f.n++
}

// Len is the number of records added so far.
func (f *Fingerprinter) Len() int { return f.n }

// Sum returns the hex digest of the records added so far.
func (f *Fingerprinter) Sum() string {
	return hex.EncodeToString(f.h.Sum(nil))
}

// Extend adds the records of s from the current length up to position n.
func (f *Fingerprinter) Extend(s Store, n int) error {
	if n > s.Len() {
		return fmt.Errorf("%w: fingerprint of %d records, have %d", ErrOutOfBounds, n, s.Len())
	}
	for i := f.n; i < n; i++ {
		r, err := s.At(i)
		if err != nil {
			return fmt.Errorf("fingerprint corpus: %w", err)
		}
		f.Add(r)
	}
	return nil
}
