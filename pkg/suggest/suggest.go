// Package suggest merges dictionary prefix completion and spelling
// correction across all configured languages into one scored suggestion
// list for the ranking engine.
package suggest

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/mike-fabian/phraseserve/pkg/dictionary"
)

const (
	// MaxSuggestions caps the merged result across all dictionaries.
	MaxSuggestions = 100
	// spellcheckMinLength is the shortest input worth running a spell
	// backend on; below it prefix matching is strictly better.
	spellcheckMinLength = 4
	// cacheLimit bounds the per-input result cache. The cache resets
	// wholesale when it fills; entries are tiny and refilling is cheap.
	cacheLimit = 4096
)

// Suggestion is one dictionary-sourced candidate. Score 0 means a
// dictionary/prefix match; a negative integer is a spell-check correction
// rank, -1 being the backend's best guess.
type Suggestion struct {
	Phrase string
	Score  float64
}

// Suggester wraps the configured dictionaries. Safe for concurrent use.
type Suggester struct {
	registry *dictionary.Registry

	mu    sync.RWMutex
	names []string
	dicts []*dictionary.Dictionary
	cache map[string][]Suggestion
}

// New creates a Suggester over registry with the given active languages.
// Dictionaries that fail to load contribute no suggestions but do not fail
// construction.
func New(registry *dictionary.Registry, names []string) *Suggester {
	s := &Suggester{
		registry: registry,
		cache:    make(map[string][]Suggestion),
	}
	s.SetDictionaries(names)
	return s
}

// SetDictionaries reconfigures the active language list. A pure reorder
// reuses the already-loaded instances; a real set change goes back to the
// registry (which itself loads each language at most once). Either way the
// suggestion cache is dropped, since result merge order depends on the
// dictionary order.
func (s *Suggester) SetDictionaries(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sameStrings(names, s.names) {
		return
	}
	if sameSet(names, s.names) {
		log.Debugf("Dictionary reorder: %v", names)
		byName := make(map[string]*dictionary.Dictionary, len(s.dicts))
		for _, d := range s.dicts {
			byName[d.Name] = d
		}
		dicts := make([]*dictionary.Dictionary, 0, len(names))
		for _, name := range names {
			if d, ok := byName[name]; ok {
				dicts = append(dicts, d)
			}
		}
		s.names = append([]string(nil), names...)
		s.dicts = dicts
		s.cache = make(map[string][]Suggestion)
		return
	}

	log.Debugf("Dictionary set change: %v -> %v", s.names, names)
	dicts := make([]*dictionary.Dictionary, 0, len(names))
	for _, name := range names {
		d, err := s.registry.Get(name)
		if err != nil {
			// Logged by the registry; this language simply contributes
			// nothing until the word list shows up.
			continue
		}
		dicts = append(dicts, d)
	}
	s.names = append([]string(nil), names...)
	s.dicts = dicts
	s.cache = make(map[string][]Suggestion)
}

// Dictionaries returns the configured language names in order.
func (s *Suggester) Dictionaries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.names...)
}

// Suggest returns dictionary words completing or correcting inputPhrase,
// sorted by (score descending, length ascending, alphabetical) and capped
// at MaxSuggestions. It never fails: bad input yields an empty result.
func (s *Suggester) Suggest(inputPhrase string) []Suggestion {
	// Word lists are newline-delimited, so these bytes can never occur in
	// an entry and would corrupt prefix pattern keys.
	if strings.ContainsAny(inputPhrase, "\x00\n\r") {
		return nil
	}
	if inputPhrase == "" {
		return nil
	}

	s.mu.RLock()
	if cached, ok := s.cache[inputPhrase]; ok {
		s.mu.RUnlock()
		return cached
	}
	dicts := s.dicts
	s.mu.RUnlock()

	scores := make(map[string]float64)
	for _, d := range dicts {
		s.collect(d, inputPhrase, scores)
	}
	result := sortSuggestions(scores)

	s.mu.Lock()
	if len(s.cache) >= cacheLimit {
		s.cache = make(map[string][]Suggestion)
	}
	s.cache[inputPhrase] = result
	s.mu.Unlock()
	return result
}

// collect merges one dictionary's matches into scores. First-seen wins on
// ties: an earlier dictionary's score for a word is never overwritten by a
// later one.
func (s *Suggester) collect(d *dictionary.Dictionary, inputPhrase string, scores map[string]float64) {
	for _, word := range d.PrefixMatches(inputPhrase) {
		if _, seen := scores[word]; !seen {
			scores[word] = 0
		}
	}

	if utf8.RuneCountInString(inputPhrase) < spellcheckMinLength {
		return
	}
	normalized := d.Normalize(inputPhrase)
	if d.Check(normalized) {
		if _, seen := scores[normalized]; !seen {
			scores[normalized] = 0
		}
	}
	inputFolded := strings.ToLower(d.Fold(normalized))
	for i, correction := range d.SuggestCorrections(normalized) {
		if _, seen := scores[correction]; seen {
			// Already found via prefix or an earlier dictionary. A
			// correction that only differs from the input in accents is
			// the same word to the user, so it keeps (or regains) the
			// dictionary-match score instead of a correction rank.
			if strings.ToLower(d.Fold(correction)) == inputFolded && scores[correction] < 0 {
				scores[correction] = 0
			}
			continue
		}
		if strings.ToLower(d.Fold(correction)) == inputFolded {
			scores[correction] = 0
			continue
		}
		scores[correction] = float64(-(i + 1))
	}
}

// Spellcheck reports whether any configured dictionary accepts word.
func (s *Suggester) Spellcheck(word string) bool {
	s.mu.RLock()
	dicts := s.dicts
	s.mu.RUnlock()
	for _, d := range dicts {
		if d.Check(d.Normalize(word)) {
			return true
		}
	}
	return false
}

// SpellcheckMatchList returns the names of the configured dictionaries
// accepting word, in configuration order.
func (s *Suggester) SpellcheckMatchList(word string) []string {
	s.mu.RLock()
	dicts := s.dicts
	s.mu.RUnlock()
	var names []string
	for _, d := range dicts {
		if d.Check(d.Normalize(word)) {
			names = append(names, d.Name)
		}
	}
	return names
}

func sortSuggestions(scores map[string]float64) []Suggestion {
	result := make([]Suggestion, 0, len(scores))
	for phrase, score := range scores {
		result = append(result, Suggestion{Phrase: phrase, Score: score})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		li := utf8.RuneCountInString(result[i].Phrase)
		lj := utf8.RuneCountInString(result[j].Phrase)
		if li != lj {
			return li < lj
		}
		return result[i].Phrase < result[j].Phrase
	})
	if len(result) > MaxSuggestions {
		result = result[:MaxSuggestions]
	}
	return result
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, x := range a {
		set[x] = struct{}{}
	}
	for _, x := range b {
		if _, ok := set[x]; !ok {
			return false
		}
	}
	return true
}
