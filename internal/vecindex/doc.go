// Package vecindex implements the exact (brute-force) Euclidean nearest
// neighbour index used for retrieval, together with its on-disk snapshot
// format.
package vecindex
