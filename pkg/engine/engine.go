// Package engine glues the dictionary suggester and the learned phrase
// store into one candidate pipeline: dictionaries propose, user history
// decides. It is the surface the server and the CLI talk to.
package engine

import (
	"sort"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/mike-fabian/phraseserve/pkg/dictionary"
	"github.com/mike-fabian/phraseserve/pkg/phrasestore"
	"github.com/mike-fabian/phraseserve/pkg/suggest"
)

// MaxCandidates caps the ranked list handed to clients.
const MaxCandidates = 20

// Candidate is a ranked completion. FromUser tells apart phrases backed
// by learned history (blended score in (0, 1]) from pure dictionary
// matches (score <= 0).
type Candidate struct {
	Phrase   string
	Score    float64
	FromUser bool
}

// Options configures a new Engine.
type Options struct {
	// DictionaryDirs are searched in order for <name>.dic word lists.
	DictionaryDirs []string
	// Dictionaries is the initial lookup order, first match wins.
	Dictionaries []string
	// KeepAccents overrides the built-in per-language accent keep sets.
	KeepAccents map[string]string
	// StorePath is the user database location; empty means in-memory.
	StorePath string
	// MaxRows bounds the store during Cleanup. Zero picks the default.
	MaxRows int
}

// Engine owns a suggester and a phrase store and ranks their merged
// output. All methods are safe for concurrent use; writes serialize on
// the store's own lock.
type Engine struct {
	suggester *suggest.Suggester
	store     *phrasestore.Store
	maxRows   int
}

// New opens the user store and prepares the dictionary stack. Dictionary
// load failures are not fatal here: the registry memoizes them and the
// suggester keeps going with whatever loaded.
func New(opts Options) (*Engine, error) {
	path := opts.StorePath
	if path == "" {
		path = phrasestore.MemoryPath
	}
	store, err := phrasestore.Open(path)
	if err != nil {
		return nil, err
	}
	registry := dictionary.NewRegistry(opts.DictionaryDirs...)
	for lang, keep := range opts.KeepAccents {
		registry.SetKeepOverride(lang, keep)
	}
	e := &Engine{
		suggester: suggest.New(registry, opts.Dictionaries),
		store:     store,
		maxRows:   opts.MaxRows,
	}
	log.Debugf("Engine ready: store=%s dicts=%v", store.Path(), opts.Dictionaries)
	return e, nil
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store exposes the phrase store for maintenance commands (training
// import, stats). Ranking callers never need it.
func (e *Engine) Store() *phrasestore.Store {
	return e.store
}

// Candidates returns the ranked completions for inputPhrase, given the
// two preceding committed phrases. Dictionary suggestions seed the pool;
// any phrase the user history also knows gets its score replaced by the
// n-gram blend, which puts learned phrases ahead of everything the
// dictionaries merely recognize.
func (e *Engine) Candidates(inputPhrase, pPhrase, ppPhrase string) []Candidate {
	scores := make(map[string]float64)
	for _, s := range e.suggester.Suggest(inputPhrase) {
		scores[s.Phrase] = s.Score
	}
	learned := make(map[string]bool)
	for _, c := range e.store.SelectWords(inputPhrase, pPhrase, ppPhrase) {
		scores[c.Phrase] = c.Score
		learned[c.Phrase] = true
	}

	out := make([]Candidate, 0, len(scores))
	for phrase, score := range scores {
		out = append(out, Candidate{Phrase: phrase, Score: score, FromUser: learned[phrase]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		li := utf8.RuneCountInString(out[i].Phrase)
		lj := utf8.RuneCountInString(out[j].Phrase)
		if li != lj {
			return li < lj
		}
		return out[i].Phrase < out[j].Phrase
	})
	if len(out) > MaxCandidates {
		out = out[:MaxCandidates]
	}
	return out
}

// Learn records that the user committed phrase for inputPhrase under the
// given context, bumping its frequency by one.
func (e *Engine) Learn(inputPhrase, phrase, pPhrase, ppPhrase string) error {
	return e.store.CheckAndUpdateFrequency(inputPhrase, phrase, pPhrase, ppPhrase)
}

// Forget removes phrase from the learned history. An empty inputPhrase
// forgets it for every typed input.
func (e *Engine) Forget(inputPhrase, phrase string) error {
	return e.store.RemovePhrase(inputPhrase, phrase)
}

// SetDictionaries switches the dictionary lookup order.
func (e *Engine) SetDictionaries(names []string) {
	e.suggester.SetDictionaries(names)
}

// Dictionaries returns the current lookup order.
func (e *Engine) Dictionaries() []string {
	return e.suggester.Dictionaries()
}

// Spellcheck reports whether any configured dictionary knows word.
func (e *Engine) Spellcheck(word string) bool {
	return e.suggester.Spellcheck(word)
}

// Sync flushes pending store writes to disk.
func (e *Engine) Sync() error {
	return e.store.Sync()
}

// Cleanup runs the two-pass decay over the store, bounded by the
// configured row limit.
func (e *Engine) Cleanup() error {
	return e.store.Cleanup(e.maxRows)
}
