package dictionary

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

// Backend is the spelling-correction capability behind a Dictionary.
// A Dictionary holds at most one active backend, selected once at load time
// in probe priority order; it never switches afterwards except through a
// full reload of the dictionary.
type Backend interface {
	Name() string
	// Check reports whether the backend accepts word as correctly spelled.
	Check(word string) bool
	// Suggest returns corrections for word, best first.
	Suggest(word string) []string
}

const (
	// maxSuggestions bounds what one backend hands to the suggester.
	maxSuggestions = 10
	// maxEditDistance is how far corrections may stray from the input.
	maxEditDistance = 2
	// deletesWordLimit caps the word-list size for which the deletes table
	// is affordable to precompute. Bigger lists fall back to scanning.
	deletesWordLimit = 200000
	// deletesKeyLimit skips delete generation for very long words; inputs
	// of that length are rare and the scan path still covers them.
	deletesKeyLimit = 24
)

type backendProbe struct {
	name  string
	build func(d *Dictionary) (Backend, bool)
}

// Probe order is the documented backend priority: the precomputed deletes
// table wins when the word list is small enough to index, the linear scan
// matcher is always available as the last resort.
var backendProbes = []backendProbe{
	{"deletes", buildDeletesBackend},
	{"scan", buildScanBackend},
}

func selectBackend(d *Dictionary) Backend {
	for _, probe := range backendProbes {
		if b, ok := probe.build(d); ok {
			return b
		}
		log.Debugf("Dictionary %s: backend %s unavailable", d.Name, probe.name)
	}
	// buildScanBackend never declines; this is unreachable.
	return noBackend{}
}

type noBackend struct{}

func (noBackend) Name() string            { return "none" }
func (noBackend) Check(string) bool       { return false }
func (noBackend) Suggest(string) []string { return nil }

// deletesBackend resolves corrections through a precomputed table mapping
// every word's deletion variants (up to maxEditDistance removed runes) back
// to the source words, then verifies candidates with a real edit distance.
type deletesBackend struct {
	words   []string
	lower   map[string][]int
	deletes map[string][]int
}

func buildDeletesBackend(d *Dictionary) (Backend, bool) {
	if len(d.words) > deletesWordLimit {
		return nil, false
	}
	b := &deletesBackend{
		words:   d.words,
		lower:   make(map[string][]int, len(d.words)),
		deletes: make(map[string][]int),
	}
	for idx, word := range d.words {
		lw := strings.ToLower(word)
		b.lower[lw] = append(b.lower[lw], idx)
		if utf8.RuneCountInString(lw) > deletesKeyLimit {
			continue
		}
		for _, del := range deleteVariants(lw, maxEditDistance) {
			known := b.deletes[del]
			if len(known) > 0 && known[len(known)-1] == idx {
				continue
			}
			b.deletes[del] = append(known, idx)
		}
	}
	return b, true
}

func (b *deletesBackend) Name() string { return "deletes" }

func (b *deletesBackend) Check(word string) bool {
	_, ok := b.lower[strings.ToLower(word)]
	return ok
}

func (b *deletesBackend) Suggest(word string) []string {
	input := strings.ToLower(word)
	seen := make(map[int]struct{})
	type ranked struct {
		word string
		dist int
	}
	var results []ranked

	consider := func(idx int) {
		if _, dup := seen[idx]; dup {
			return
		}
		seen[idx] = struct{}{}
		candidate := b.words[idx]
		dist := editDistance(input, strings.ToLower(candidate), maxEditDistance)
		if dist < 0 || dist == 0 {
			return
		}
		results = append(results, ranked{candidate, dist})
	}

	for _, del := range append(deleteVariants(input, maxEditDistance), input) {
		for _, idx := range b.deletes[del] {
			consider(idx)
		}
		for _, idx := range b.lower[del] {
			consider(idx)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].dist != results[j].dist {
			return results[i].dist < results[j].dist
		}
		li, lj := len(results[i].word), len(results[j].word)
		if li != lj {
			return li < lj
		}
		return results[i].word < results[j].word
	})
	if len(results) > maxSuggestions {
		results = results[:maxSuggestions]
	}
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.word
	}
	return out
}

// deleteVariants returns every string obtainable from word by removing up
// to maxDeletes runes, the key space of the deletes table.
func deleteVariants(word string, maxDeletes int) []string {
	variants := make(map[string]struct{})
	var generate func(w string, depth int)
	generate = func(w string, depth int) {
		if depth == 0 {
			return
		}
		runes := []rune(w)
		for i := range runes {
			del := string(runes[:i]) + string(runes[i+1:])
			if _, dup := variants[del]; dup {
				continue
			}
			variants[del] = struct{}{}
			generate(del, depth-1)
		}
	}
	generate(word, maxDeletes)
	out := make([]string, 0, len(variants))
	for v := range variants {
		out = append(out, v)
	}
	return out
}

// editDistance computes the Damerau-Levenshtein distance between a and b,
// returning -1 as soon as it exceeds limit.
func editDistance(a, b string, limit int) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la-lb > limit || lb-la > limit {
		return -1
	}
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev2 := make([]int, lb+1)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		best := curr[0]
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				if t := prev2[j-2] + 1; t < curr[j] {
					curr[j] = t
				}
			}
			if curr[j] < best {
				best = curr[j]
			}
		}
		if best > limit {
			return -1
		}
		prev2, prev, curr = prev, curr, prev2
	}
	if prev[lb] > limit {
		return -1
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
