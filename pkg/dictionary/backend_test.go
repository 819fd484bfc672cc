package dictionary

import (
	"slices"
	"testing"
)

func TestEditDistance(t *testing.T) {
	testCases := []struct {
		a, b     string
		limit    int
		expected int
	}{
		{"", "", 2, 0},
		{"abc", "abc", 2, 0},
		{"abc", "abd", 2, 1},
		{"abc", "acb", 2, 1}, // transposition counts once
		{"colou", "colour", 2, 1},
		{"colou", "cold", 2, 2},
		{"kitten", "sitting", 3, 3},
		{"kitten", "sitting", 2, -1}, // over limit
		{"a", "abcde", 2, -1},        // length gap alone exceeds limit
	}
	for _, tc := range testCases {
		if got := editDistance(tc.a, tc.b, tc.limit); got != tc.expected {
			t.Errorf("editDistance(%q, %q, %d) = %d, want %d",
				tc.a, tc.b, tc.limit, got, tc.expected)
		}
	}
}

func TestDeleteVariants(t *testing.T) {
	got := deleteVariants("abc", 1)
	slices.Sort(got)
	want := []string{"ab", "ac", "bc"}
	if !slices.Equal(got, want) {
		t.Errorf("deleteVariants(abc, 1) = %v, want %v", got, want)
	}
	// depth 2 includes the single-rune remnants
	got2 := deleteVariants("abc", 2)
	for _, w := range []string{"a", "b", "c", "ab", "ac", "bc"} {
		if !slices.Contains(got2, w) {
			t.Errorf("deleteVariants(abc, 2) missing %q: %v", w, got2)
		}
	}
}

func TestBackendPriority(t *testing.T) {
	d := &Dictionary{words: []string{"one", "two"}}
	b := selectBackend(d)
	if b.Name() != "deletes" {
		t.Errorf("small word list must select the deletes backend, got %s", b.Name())
	}
}

func TestScanBackendSuggest(t *testing.T) {
	d := &Dictionary{words: []string{"their", "there", "they", "the", "banana"}}
	b, ok := buildScanBackend(d)
	if !ok {
		t.Fatal("scan backend must always build")
	}
	got := b.Suggest("thier")
	if len(got) == 0 {
		t.Fatal("expected scan suggestions for thier")
	}
	for _, w := range got {
		if w == "banana" {
			t.Error("scan backend suggested an unrelated word")
		}
	}
}
