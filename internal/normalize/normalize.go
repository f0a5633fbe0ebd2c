// Package normalize canonicalizes queries before they are embedded, so that
// questions differing only in case, punctuation or Unicode presentation
// retrieve the same chunks.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxPasses bounds the fixed-point loop in Normalize. Two passes suffice in
// practice.
const maxPasses = 4

// Normalize applies NFKC, lowercases and trims, drops every rune that is not
// a letter, digit, underscore or whitespace, and collapses whitespace runs to
// a single space. The result is a fixed point: Normalize(Normalize(s)) ==
// Normalize(s).
func Normalize(raw string) string {
	s := pass(raw)
	for i := 1; i < maxPasses; i++ {
		next := pass(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// pass is one application of the pipeline. It is not always idempotent on its
// own: removing punctuation can leave composable neighbours (Hangul jamo,
// for example) that NFKC joins on the next pass.
func pass(s string) string {
	s = norm.NFKC.String(s)
	s = strings.TrimSpace(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
