package suggest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mike-fabian/phraseserve/pkg/dictionary"
)

func writeWordList(t *testing.T, dir, name, lines string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".dic"), []byte(lines), 0644); err != nil {
		t.Fatalf("write word list: %v", err)
	}
}

func newTestSuggester(t *testing.T, lists map[string]string, names []string) *Suggester {
	t.Helper()
	dir := t.TempDir()
	for name, lines := range lists {
		writeWordList(t, dir, name, lines)
	}
	return New(dictionary.NewRegistry(dir), names)
}

func TestSuggestOrdering(t *testing.T) {
	s := newTestSuggester(t, map[string]string{
		"en": "camel\nCamel\nCamelot\n",
	}, []string{"en"})

	got := s.Suggest("camel")
	if len(got) != 3 {
		t.Fatalf("expected 3 suggestions, got %v", got)
	}
	for _, sg := range got {
		if sg.Score != 0 {
			t.Errorf("prefix match %q has score %v, want 0", sg.Phrase, sg.Score)
		}
	}
	// score desc, length asc, alphabetical: both 5-rune words before the
	// 7-rune one, and "Camel" sorts before "camel".
	want := []string{"Camel", "camel", "Camelot"}
	for i, w := range want {
		if got[i].Phrase != w {
			t.Errorf("position %d = %q, want %q (full: %v)", i, got[i].Phrase, w, got)
		}
	}
}

func TestSuggestRejectsDelimiters(t *testing.T) {
	s := newTestSuggester(t, map[string]string{"en": "word\n"}, []string{"en"})
	for _, bad := range []string{"wo\nrd", "wo\x00rd", "", "a\r"} {
		if got := s.Suggest(bad); got != nil {
			t.Errorf("Suggest(%q) = %v, want nil", bad, got)
		}
	}
}

func TestSuggestCorrectionRanks(t *testing.T) {
	s := newTestSuggester(t, map[string]string{
		"en": "colour\ncold\ncould\nhouse\n",
	}, []string{"en"})

	got := s.Suggest("colou")
	if len(got) == 0 {
		t.Fatal("expected suggestions for colou")
	}
	// "colour" prefix-matches at 0 and must lead.
	if got[0].Phrase != "colour" || got[0].Score != 0 {
		t.Fatalf("best = %+v, want colour at 0 (full: %v)", got[0], got)
	}
	// Corrections that are not prefix matches carry negative ranks.
	sawNegative := false
	for _, sg := range got[1:] {
		if sg.Score < 0 {
			sawNegative = true
			if sg.Score != float64(int(sg.Score)) {
				t.Errorf("correction rank %v is not an integer", sg.Score)
			}
		}
	}
	if !sawNegative {
		t.Errorf("expected negative correction ranks in %v", got)
	}
}

func TestSuggestShortInputSkipsSpellcheck(t *testing.T) {
	s := newTestSuggester(t, map[string]string{
		"en": "cat\ncar\ncoat\n",
	}, []string{"en"})

	// 3 runes: prefix matching only, no corrections.
	for _, sg := range s.Suggest("cot") {
		if sg.Score < 0 {
			t.Errorf("short input produced correction %+v", sg)
		}
	}
}

func TestSuggestFirstDictionaryWins(t *testing.T) {
	lists := map[string]string{
		"en_US": "color\ncolour\n",
		"en_GB": "colour\ncolourful\n",
	}
	s := newTestSuggester(t, lists, []string{"en_US", "en_GB"})
	got := s.Suggest("colour")
	seen := map[string]int{}
	for _, sg := range got {
		seen[sg.Phrase]++
	}
	for phrase, n := range seen {
		if n > 1 {
			t.Errorf("phrase %q appears %d times after merge", phrase, n)
		}
	}
}

func TestSetDictionariesInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	writeWordList(t, dir, "en", "alpha\nalpine\n")
	writeWordList(t, dir, "de", "alpen\n")
	s := New(dictionary.NewRegistry(dir), []string{"en"})

	first := s.Suggest("alp")
	if len(first) != 2 {
		t.Fatalf("expected 2 en suggestions, got %v", first)
	}
	s.SetDictionaries([]string{"en", "de"})
	second := s.Suggest("alp")
	if len(second) != 3 {
		t.Errorf("cache not invalidated on set change: %v", second)
	}

	// Pure reorder also resets the cache but reuses loaded dictionaries.
	s.SetDictionaries([]string{"de", "en"})
	if got := s.Dictionaries(); got[0] != "de" || got[1] != "en" {
		t.Errorf("Dictionaries() = %v after reorder", got)
	}
	if got := s.Suggest("alp"); len(got) != 3 {
		t.Errorf("reorder broke suggestions: %v", got)
	}
}

func TestSpellcheckMatchList(t *testing.T) {
	s := newTestSuggester(t, map[string]string{
		"en_US": "color\n",
		"en_GB": "colour\n",
	}, []string{"en_US", "en_GB"})

	if !s.Spellcheck("color") {
		t.Error("Spellcheck(color) = false")
	}
	got := s.SpellcheckMatchList("colour")
	if len(got) != 1 || got[0] != "en_GB" {
		t.Errorf("SpellcheckMatchList(colour) = %v, want [en_GB]", got)
	}
	if s.Spellcheck("zzzzzz") {
		t.Error("Spellcheck accepted gibberish")
	}
}
