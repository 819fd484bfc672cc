package dictionary

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Scoring constants for the scan matcher.
const (
	scanFirstCharBonus   = 15
	scanAdjacentBonus    = 10
	scanLengthPenalty    = 2
	scanMinInputLen      = 2
	scanCandidateMinimum = 1
)

// scanBackend is the fallback corrector: a linear walk over the word list
// scoring in-order character overlap. Slower than the deletes table but
// needs no precomputed index, so it is always available.
type scanBackend struct {
	words []string
	lower []string
	set   map[string]struct{}
}

func buildScanBackend(d *Dictionary) (Backend, bool) {
	b := &scanBackend{
		words: d.words,
		lower: make([]string, len(d.words)),
		set:   make(map[string]struct{}, len(d.words)),
	}
	for i, w := range d.words {
		lw := strings.ToLower(w)
		b.lower[i] = lw
		b.set[lw] = struct{}{}
	}
	return b, true
}

func (b *scanBackend) Name() string { return "scan" }

func (b *scanBackend) Check(word string) bool {
	_, ok := b.set[strings.ToLower(word)]
	return ok
}

func (b *scanBackend) Suggest(word string) []string {
	input := strings.ToLower(word)
	if utf8.RuneCountInString(input) < scanMinInputLen {
		return nil
	}
	pattern := []rune(input)

	type ranked struct {
		word  string
		score int
	}
	var results []ranked

	for i, candidate := range b.lower {
		if candidate == input {
			continue
		}
		// Cheap reject: a correction that does not share the first letter
		// is almost never what the user meant.
		if candidate == "" || candidate[0] != input[0] {
			continue
		}
		score, matched := scanScore(pattern, candidate)
		if !matched || score < scanCandidateMinimum {
			continue
		}
		score -= abs(len(candidate)-len(input)) * scanLengthPenalty
		results = append(results, ranked{b.words[i], score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
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

// scanScore matches pattern against candidate in order, rewarding matches
// at the start of the word and unbroken runs. Returns false when the
// pattern cannot be threaded through the candidate at all.
func scanScore(pattern []rune, candidate string) (int, bool) {
	score := 0
	pi := 0
	lastMatch := -2
	for i, r := range []rune(candidate) {
		if pi >= len(pattern) {
			break
		}
		if r != pattern[pi] {
			continue
		}
		if i == 0 {
			score += scanFirstCharBonus
		}
		if i == lastMatch+1 {
			score += scanAdjacentBonus
		}
		lastMatch = i
		pi++
	}
	// Tolerate up to one unmatched pattern rune per edit-distance unit.
	unmatched := len(pattern) - pi
	if unmatched > maxEditDistance {
		return 0, false
	}
	score -= unmatched * scanAdjacentBonus
	return score, true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
