package phrasestore

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/mike-fabian/phraseserve/internal/textnorm"
)

// blendWeight is the fixed share each more-specific n-gram level gets when
// it has data: trigram evidence ends up at 0.5 of the final score, bigram
// at 0.25, unigram at 0.25. The chain degrades gracefully: a level with no
// matching rows leaves the scores from the broader levels untouched.
const blendWeight = 0.5

type phraseRow struct {
	phrase   string
	pPhrase  string
	ppPhrase string
	userFreq int64
}

// SelectWords returns the learned candidates for inputPhrase under the
// given context, scored by the unigram/bigram/trigram blend and sorted by
// (score descending, length ascending, alphabetical). Storage errors
// degrade to an empty result; the typing path never sees them.
func (s *Store) SelectWords(inputPhrase, pPhrase, ppPhrase string) []Candidate {
	inputPhrase = textnorm.Normalize(inputPhrase)
	if inputPhrase == "" {
		return nil
	}
	rows, err := s.prefixRows(inputPhrase)
	if err != nil {
		log.Errorf("SelectWords query failed: %v", err)
		return nil
	}
	if len(rows) == 0 {
		// No unigram data means bigram/trigram matching is impossible:
		// every contextual row is also a prefix row.
		return nil
	}

	scores := normalizedSums(rows, func(phraseRow) bool { return true })

	pPhrase = textnorm.Normalize(pPhrase)
	ppPhrase = textnorm.Normalize(ppPhrase)
	if pPhrase != "" {
		bigram := normalizedSums(rows, func(r phraseRow) bool {
			return r.pPhrase == pPhrase
		})
		if len(bigram) == 0 {
			return sortCandidates(scores)
		}
		blend(scores, bigram)

		if ppPhrase != "" {
			trigram := normalizedSums(rows, func(r phraseRow) bool {
				return r.pPhrase == pPhrase && r.ppPhrase == ppPhrase
			})
			if len(trigram) > 0 {
				blend(scores, trigram)
			}
		}
	}
	return sortCandidates(scores)
}

// prefixRows fetches every row whose input_phrase starts with inputPhrase,
// case-sensitive as typed.
func (s *Store) prefixRows(inputPhrase string) ([]phraseRow, error) {
	rows, err := s.db.Query(
		`SELECT phrase, p_phrase, pp_phrase, user_freq FROM phrases
		 WHERE input_phrase LIKE ? ESCAPE '\'`,
		escapeLike(inputPhrase)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []phraseRow
	for rows.Next() {
		var r phraseRow
		if err := rows.Scan(&r.phrase, &r.pPhrase, &r.ppPhrase, &r.userFreq); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// normalizedSums groups matching rows by phrase, sums their frequencies
// and divides by the grand total, so each level's evidence is a
// distribution over phrases.
func normalizedSums(rows []phraseRow, match func(phraseRow) bool) map[string]float64 {
	sums := make(map[string]float64)
	var total float64
	for _, r := range rows {
		if !match(r) {
			continue
		}
		sums[r.phrase] += float64(r.userFreq)
		total += float64(r.userFreq)
	}
	if total == 0 {
		return nil
	}
	for phrase := range sums {
		sums[phrase] /= total
	}
	return sums
}

// blend folds a more specific n-gram distribution into scores. Every
// already-scored phrase is rescaled, so phrases without evidence at this
// level fade but never vanish.
func blend(scores map[string]float64, level map[string]float64) {
	for phrase, prior := range scores {
		scores[phrase] = blendWeight*level[phrase] + (1-blendWeight)*prior
	}
}

func sortCandidates(scores map[string]float64) []Candidate {
	out := make([]Candidate, 0, len(scores))
	for phrase, score := range scores {
		out = append(out, Candidate{Phrase: phrase, Score: score})
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
	return out
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
