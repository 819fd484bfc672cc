package phrasestore

import (
	"bufio"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/mike-fabian/phraseserve/internal/textnorm"
)

type ngramKey struct {
	inputPhrase string
	phrase      string
	pPhrase     string
	ppPhrase    string
}

// ReadTrainingDataFromFile replaces the entire store content with
// frequencies counted from the token sequence of the text file at path.
// Each token becomes a row keyed by the token itself and its one- and
// two-token predecessors within the same line. Running it twice on the
// same file leaves the store in the same state as running it once.
//
// This holds exclusive write access for the duration: interactive learning
// must not run against the same handle while an import is in progress.
func (s *Store) ReadTrainingDataFromFile(path string, tok textnorm.Tokenizer) error {
	if tok == nil {
		tok = textnorm.SpaceTokenizer{}
	}
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open training data %s: %w", path, err)
	}
	defer file.Close()

	counts := make(map[ngramKey]int64)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lines := 0
	for scanner.Scan() {
		lines++
		pPhrase, ppPhrase := "", ""
		for _, token := range tok.Tokenize(scanner.Text()) {
			token = textnorm.Normalize(token)
			counts[ngramKey{token, token, pPhrase, ppPhrase}]++
			ppPhrase = pPhrase
			pPhrase = token
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read training data %s: %w", path, err)
	}
	log.Infof("Training data: %d lines, %d distinct n-gram rows", lines, len(counts))

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start import transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM phrases`); err != nil {
		return fmt.Errorf("failed to clear store for import: %w", err)
	}
	stmt, err := tx.Prepare(
		`INSERT INTO phrases (input_phrase, phrase, p_phrase, pp_phrase, user_freq, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare import insert: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	for key, freq := range counts {
		if _, err := stmt.Exec(key.inputPhrase, key.phrase, key.pPhrase, key.ppPhrase, freq, now); err != nil {
			return fmt.Errorf("failed to insert imported row: %w", err)
		}
	}
	return tx.Commit()
}
