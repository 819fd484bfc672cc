package textnorm

import (
	"reflect"
	"testing"
)

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"hello",
		"Ångström",
		"über",
		"é́", // composed e-acute plus a stray acute
		"한국어",
		"ｶﾀｶﾅ",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestFold(t *testing.T) {
	testCases := []struct {
		input    string
		keep     string
		expected string
	}{
		{"Ångström", "", "Angstrom"},
		{"ÅÆæŒœĳøßẞü", "", "AAEaeOEoeijossSSu"},
		{"café", "", "cafe"},
		{"straße", "", "strasse"},
		{"łódź", "", "lodz"},
		{"", "", ""},
		{"plain ascii", "", "plain ascii"},
		// kept codepoints survive folding untouched
		{"håll", "å", "håll"},
		{"hälsa på", "äö", "hälsa pa"},
		// input already decomposed still folds the same way
		{"Ångström", "", "Angstrom"},
	}
	for _, tc := range testCases {
		if got := Fold(tc.input, tc.keep); got != tc.expected {
			t.Errorf("Fold(%q, %q) = %q, want %q", tc.input, tc.keep, got, tc.expected)
		}
	}
}

func TestFoldCached(t *testing.T) {
	// Same inputs must return identical results across calls.
	a := Fold("Ångström", "")
	b := Fold("Ångström", "")
	if a != b {
		t.Errorf("cached Fold disagrees: %q vs %q", a, b)
	}
	// Keep set is part of the cache key, not just the text.
	kept := Fold("Ångström", "Å")
	if kept == a {
		t.Errorf("Fold ignored keep set: %q", kept)
	}
}

func TestFormFor(t *testing.T) {
	if FormFor("ko") == FormFor("en") {
		t.Error("Korean must use compatibility decomposition")
	}
	if FormFor("ko_KR") == FormFor("de_DE") {
		t.Error("ko_KR must not share the default form")
	}
}

func TestSpaceTokenizer(t *testing.T) {
	testCases := []struct {
		line     string
		expected []string
	}{
		{"the quick brown fox", []string{"the", "quick", "brown", "fox"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{"end. of! sentence?", []string{"end", "of", "sentence"}},
		{"", nil},
		{"...", nil},
		{"don't stop", []string{"don't", "stop"}},
	}
	tok := SpaceTokenizer{}
	for _, tc := range testCases {
		if got := tok.Tokenize(tc.line); !reflect.DeepEqual(got, tc.expected) {
			t.Errorf("Tokenize(%q) = %v, want %v", tc.line, got, tc.expected)
		}
	}
}
