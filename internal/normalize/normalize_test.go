package normalize

import (
	"math/rand"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"What is a cat?", "what is a cat"},
		{"  What   is a\tcat  ", "what is a cat"},
		{"WHAT IS A CAT", "what is a cat"},
		{"what is a cat ?", "what is a cat"},
		{"“Smart” quotes’ test", "smart quotes test"},
		{"ＦＵＬＬＷＩＤＴＨ ｃａｔ", "fullwidth cat"},
		{"snake_case stays", "snake_case stays"},
		{"e-mail, don't!", "email dont"},
		{"Café vs Café", "café vs café"},
		{"ﬁne print", "fine print"},
		{"№ 5", "no 5"},
		{"???", ""},
		{"", ""},
		{"\u1100!\u1161", "\uac00"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeEquivalentQueries(t *testing.T) {
	groups := [][]string{
		{"What is a cat?", "what is a cat", "WHAT  IS A CAT?", "What is a cat??"},
		{"Who wrote Hamlet", "who wrote   hamlet?", "Who wrote Hamlet ?"},
	}
	for _, g := range groups {
		want := Normalize(g[0])
		for _, q := range g[1:] {
			if got := Normalize(q); got != want {
				t.Errorf("Normalize(%q) = %q, want %q (same as %q)", q, got, want, g[0])
			}
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	alphabet := []rune("aZ09_ .,?!-'\"\t\n“”’ＡＢｃé́ﬁİß각Σς№½  　")
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		n := rng.Intn(24)
		var b strings.Builder
		for j := 0; j < n; j++ {
			b.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		in := b.String()
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
		if strings.Contains(once, "  ") || strings.TrimSpace(once) != once {
			t.Fatalf("whitespace not collapsed for %q: %q", in, once)
		}
	}
}
