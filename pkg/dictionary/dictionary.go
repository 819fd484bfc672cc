/*
Package dictionary loads per-language word lists and exposes membership,
prefix matching and spelling correction over them.

A Dictionary is read-only after load. Word lists are newline-delimited
hunspell-style .dic files: an optional leading count line, one entry per
line, affix flags after "/" stripped. Languages with an accent-insensitive
matching policy additionally keep a parallel accent-folded word list so
that "angstrom" finds "Ångström" while the configured keep set (real
letters of the language, like Swedish å/ä/ö) stays significant.
*/
package dictionary

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
	"golang.org/x/text/unicode/norm"

	"github.com/mike-fabian/phraseserve/internal/textnorm"
)

// accentKeep lists, per language, the accented letters that are ordinary
// letters of the alphabet and must not fold away during accent-insensitive
// matching. A language absent from this table matches case-insensitively
// but accent-sensitively.
var accentKeep = map[string]string{
	"da": "æøåÆØÅ",
	"nb": "æøåÆØÅ",
	"nn": "æøåÆØÅ",
	"sv": "åäöÅÄÖ",
	"fi": "åäöÅÄÖ",
	"de": "äöüßÄÖÜ",
	"is": "áðéíóúýþæöÁÐÉÍÓÚÝÞÆÖ",
}

// Dictionary is one spell-check/word-list backend bound to a language code.
// Instances are owned by a Registry and shared read-only between sessions;
// callers must never mutate the word list in place.
type Dictionary struct {
	Name string

	form       norm.Form
	keep       string
	folding    bool
	words      []string
	wordSet    map[string]struct{}
	trie       *patricia.Trie // match key -> []int indexes into words
	maxWordLen int
	backend    Backend
}

// KeepSet returns the accent keep set configured for a language, or "" when
// the language matches accent-sensitively.
func KeepSet(lang string) string {
	base := lang
	if i := strings.IndexAny(lang, "_-"); i > 0 {
		base = lang[:i]
	}
	return accentKeep[base]
}

// Load reads the word list at path into a new Dictionary named name.
// keep overrides the built-in accent keep set when non-empty; pass
// KeepSet(name) to use the defaults. The spell backend is selected once
// here and never switches afterwards.
func Load(name, path, keep string) (*Dictionary, error) {
	d := &Dictionary{
		Name:    name,
		form:    textnorm.FormFor(name),
		keep:    keep,
		folding: keep != "",
		wordSet: make(map[string]struct{}),
		trie:    patricia.NewTrie(),
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open word list %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if first {
			first = false
			// hunspell .dic files lead with an approximate entry count
			if isDigitsOnly(line) {
				continue
			}
		}
		// strip affix flags: "word/ABC" -> "word"
		if i := strings.IndexByte(line, '/'); i >= 0 {
			line = line[:i]
		}
		if line == "" {
			continue
		}
		d.addWord(d.form.String(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read word list %s: %w", path, err)
	}
	if len(d.words) == 0 {
		return nil, fmt.Errorf("word list %s contains no entries", path)
	}

	d.backend = selectBackend(d)
	log.Debugf("Dictionary %s: %d words, backend %s, folding=%v",
		name, len(d.words), d.backend.Name(), d.folding)
	return d, nil
}

func (d *Dictionary) addWord(word string) {
	if _, dup := d.wordSet[word]; dup {
		return
	}
	idx := len(d.words)
	d.words = append(d.words, word)
	d.wordSet[word] = struct{}{}

	key := d.matchKey(word)
	var indexes []int
	if item := d.trie.Get(patricia.Prefix(key)); item != nil {
		indexes = item.([]int)
	}
	d.trie.Set(patricia.Prefix(key), append(indexes, idx))

	if n := utf8.RuneCountInString(word); n > d.maxWordLen {
		d.maxWordLen = n
	}
}

// matchKey maps a word or input onto the form used for prefix comparison:
// lowercased, and accent-folded when the folding policy is on.
func (d *Dictionary) matchKey(word string) string {
	key := strings.ToLower(word)
	if d.folding {
		key = strings.ToLower(textnorm.Fold(key, d.keep))
	}
	return key
}

// Normalize maps text into this dictionary's internal normalization form.
func (d *Dictionary) Normalize(text string) string {
	return d.form.String(text)
}

// Check reports whether word is in the dictionary, consulting the spell
// backend for anything beyond plain membership.
func (d *Dictionary) Check(word string) bool {
	if _, ok := d.wordSet[d.form.String(word)]; ok {
		return true
	}
	return d.backend.Check(d.form.String(word))
}

// MaxWordLength is the rune length of the longest entry. Inputs longer than
// this can never prefix-match and skip the trie walk entirely.
func (d *Dictionary) MaxWordLength() int {
	return d.maxWordLen
}

// PrefixMatches returns the original spellings of every entry whose match
// key starts with the match key of input. Order is load order.
func (d *Dictionary) PrefixMatches(input string) []string {
	if utf8.RuneCountInString(input) > d.maxWordLen {
		return nil
	}
	key := d.matchKey(d.form.String(input))
	if key == "" {
		return nil
	}
	var indexes []int
	err := d.trie.VisitSubtree(patricia.Prefix(key), func(p patricia.Prefix, item patricia.Item) error {
		indexes = append(indexes, item.([]int)...)
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting dictionary trie for %q: %v", input, err)
		return nil
	}
	matches := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		matches = append(matches, d.words[idx])
	}
	return matches
}

// SuggestCorrections returns the backend's ranked correction list for word.
func (d *Dictionary) SuggestCorrections(word string) []string {
	return d.backend.Suggest(d.form.String(word))
}

// Fold applies this dictionary's accent folding to s. With folding off it
// returns s unchanged.
func (d *Dictionary) Fold(s string) string {
	if !d.folding {
		return s
	}
	return textnorm.Fold(s, d.keep)
}

func isDigitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
