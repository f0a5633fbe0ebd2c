package vecindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the
	// index dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidK is returned by Search when k is not positive.
	ErrInvalidK = errors.New("k must be greater than zero")
)

// DimensionError reports the expected and actual vector length.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: index has %d, vector has %d", e.Want, e.Got)
}

// Is makes errors.Is(err, ErrDimensionMismatch) match.
func (e *DimensionError) Is(target error) bool { return target == ErrDimensionMismatch }

// Neighbor is a search hit: the position of an indexed vector and its
// Euclidean distance to the query.
type Neighbor struct {
	Position int
	Distance float64
}

// Flat is an append-only exact nearest-neighbour index. Vector i belongs to
// chunk position i.
type Flat struct {
	dim     int
	vectors [][]float32
}

// New creates an empty index for vectors of length dim.
func New(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index dimension must be greater than zero, got %d", dim)
	}
	return &Flat{dim: dim}, nil
}

// Dimension returns the fixed vector length.
func (f *Flat) Dimension() int { return f.dim }

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return len(f.vectors) }

// Vector returns a copy of the vector stored at position i.
func (f *Flat) Vector(i int) ([]float32, bool) {
	if i < 0 || i >= len(f.vectors) {
		return nil, false
	}
	return append([]float32(nil), f.vectors[i]...), true
}

// Add appends vectors in order. The batch is validated first; on a dimension
// mismatch nothing is appended.
func (f *Flat) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != f.dim {
			return &DimensionError{Want: f.dim, Got: len(v)}
		}
	}
	for _, v := range vectors {
		f.vectors = append(f.vectors, append([]float32(nil), v...))
	}
	return nil
}

// Search returns up to k nearest vectors ordered by ascending distance, ties
// broken by lower position.
func (f *Flat) Search(query []float32, k int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(f.vectors) == 0 {
		return []Neighbor{}, nil
	}
	if len(query) != f.dim {
		return nil, &DimensionError{Want: f.dim, Got: len(query)}
	}

	hits := make([]Neighbor, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Neighbor{Position: i, Distance: squaredL2(query, v)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Position < hits[j].Position
	})

	if k > len(hits) {
		k = len(hits)
	}
	hits = hits[:k]
	for i := range hits {
		hits[i].Distance = math.Sqrt(hits[i].Distance)
	}
	return hits, nil
}

// Equal reports whether both indexes hold the same vectors in the same order.
func (f *Flat) Equal(o *Flat) bool {
	if f == nil || o == nil {
		return f == o
	}
	if f.dim != o.dim || len(f.vectors) != len(o.vectors) {
		return false
	}
	for i := range f.vectors {
		for j := range f.vectors[i] {
			if math.Float32bits(f.vectors[i][j]) != math.Float32bits(o.vectors[i][j]) {
				return false
			}
		}
	}
	return true
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
