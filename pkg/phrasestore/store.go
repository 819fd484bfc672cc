/*
Package phrasestore persists learned (input, phrase, context) associations
in a SQLite database and serves the n-gram statistics behind candidate
ranking.

The on-disk layout is one `phrases` table

	(id, input_phrase, phrase, p_phrase, pp_phrase, user_freq, timestamp)

plus a `desc` key/value table carrying the schema version and creation
time. A store whose version or column count disagrees with this package is
never written to: it is renamed aside with a timestamp suffix, its phrase
totals are salvaged best-effort, and a fresh store takes its place.
*/
package phrasestore

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mike-fabian/phraseserve/internal/textnorm"
)

const (
	// UserDatabaseVersion tags the on-disk schema. Bump it when the
	// phrases table shape changes; older stores then go through the
	// quarantine-and-salvage path on open.
	UserDatabaseVersion = "0.65"

	// phraseColumnCount is the expected column count of the phrases table.
	phraseColumnCount = 7
)

// MemoryPath opens a private in-memory store, used by tests and the
// "no persistence" configuration.
const MemoryPath = ":memory:"

// Candidate is one ranked phrase from SelectWords: score 0 means presence
// without statistics, a positive fraction is the blended n-gram weight.
type Candidate struct {
	Phrase string
	Score  float64
}

// Store is a phrase database handle. One engine session owns a Store
// exclusively; mutations are serialized internally so a concurrent reader
// never observes a half-applied read-modify-write.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
	now  func() float64
}

func epochSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func dsn(path string) string {
	return "file:" + path +
		"?_journal_mode=WAL&_synchronous=NORMAL&_case_sensitive_like=on&_busy_timeout=5000"
}

// Open opens or creates the store at path. An incompatible or unreadable
// existing store is quarantined and replaced; learned phrase totals are
// salvaged into the fresh store when at all readable. Open only fails when
// even a freshly created store cannot be initialized after quarantining.
func Open(path string) (*Store, error) {
	s := &Store{path: path, now: epochSeconds}

	if path == MemoryPath {
		db, err := sql.Open("sqlite3", dsn(path))
		if err != nil {
			return nil, fmt.Errorf("failed to open in-memory store: %w", err)
		}
		db.SetMaxOpenConns(1)
		s.db = db
		if err := s.initSchema(); err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	}

	var salvaged map[string]int64
	if _, err := os.Stat(path); err == nil {
		compatible, err := checkCompatibility(path)
		if err != nil || !compatible {
			if err != nil {
				log.Warnf("Cannot read existing store %s: %v", path, err)
			} else {
				log.Warnf("Store %s has an incompatible schema, recreating", path)
			}
			salvaged = salvagePhraseTotals(path)
			if err := quarantine(path); err != nil {
				return nil, fmt.Errorf("failed to move incompatible store aside: %w", err)
			}
		}
	}

	if err := s.openAndInit(); err != nil {
		// Even the fresh open failed. Move whatever is there aside and
		// try once more with a clean slate.
		log.Errorf("Failed to open store %s: %v, recreating", path, err)
		if qerr := quarantine(path); qerr != nil {
			return nil, fmt.Errorf("failed to recreate store: %w", err)
		}
		if err := s.openAndInit(); err != nil {
			return nil, fmt.Errorf("failed to open freshly created store: %w", err)
		}
	}

	if len(salvaged) > 0 {
		s.restoreSalvaged(salvaged)
	}
	return s, nil
}

func (s *Store) openAndInit() error {
	db, err := sql.Open("sqlite3", dsn(s.path))
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return err
	}
	if err := initSchemaOn(db); err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *Store) initSchema() error {
	return initSchemaOn(s.db)
}

func initSchemaOn(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS desc (name TEXT PRIMARY KEY, value TEXT)`,
		`CREATE TABLE IF NOT EXISTS phrases (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			input_phrase TEXT NOT NULL,
			phrase TEXT NOT NULL,
			p_phrase TEXT NOT NULL DEFAULT '',
			pp_phrase TEXT NOT NULL DEFAULT '',
			user_freq INTEGER NOT NULL DEFAULT 0,
			timestamp REAL NOT NULL DEFAULT 0)`,
		`CREATE INDEX IF NOT EXISTS phrases_index_i ON phrases (input_phrase, id ASC)`,
		`CREATE INDEX IF NOT EXISTS phrases_index_p ON phrases (phrase)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	if _, err := db.Exec(
		`INSERT OR IGNORE INTO desc (name, value) VALUES ('version', ?), ('create-time', ?)`,
		UserDatabaseVersion, time.Now().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to write store description: %w", err)
	}
	return nil
}

// checkCompatibility opens path read-only and verifies the schema version
// and phrases column count.
func checkCompatibility(path string) (bool, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return false, err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	var version string
	err = db.QueryRow(`SELECT value FROM desc WHERE name = 'version'`).Scan(&version)
	if err != nil {
		return false, err
	}
	if version != UserDatabaseVersion {
		log.Infof("Store version %q, expected %q", version, UserDatabaseVersion)
		return false, nil
	}

	rows, err := db.Query(`PRAGMA table_info(phrases)`)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	columns := 0
	for rows.Next() {
		columns++
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	if columns != phraseColumnCount {
		log.Infof("Store has %d phrase columns, expected %d", columns, phraseColumnCount)
		return false, nil
	}
	return true, nil
}

// salvagePhraseTotals pulls (phrase, total frequency) pairs out of an
// incompatible store, ignoring input and context columns, so years of
// learned vocabulary survive a schema bump. Best effort: any failure just
// means less data is carried over.
func salvagePhraseTotals(path string) map[string]int64 {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		log.Warnf("Recovery: cannot open old store: %v", err)
		return nil
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.Query(`SELECT phrase, SUM(user_freq) FROM phrases GROUP BY phrase`)
	if err != nil {
		log.Warnf("Recovery: cannot read old phrases: %v", err)
		return nil
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var phrase string
		var freq sql.NullInt64
		if err := rows.Scan(&phrase, &freq); err != nil {
			log.Warnf("Recovery: bad row skipped: %v", err)
			continue
		}
		if phrase != "" && freq.Valid && freq.Int64 > 0 {
			totals[phrase] = freq.Int64
		}
	}
	if err := rows.Err(); err != nil {
		log.Warnf("Recovery: stopped early: %v", err)
	}
	log.Infof("Recovery: salvaged %d phrases from incompatible store", len(totals))
	return totals
}

func (s *Store) restoreSalvaged(totals map[string]int64) {
	now := s.now()
	tx, err := s.db.Begin()
	if err != nil {
		log.Errorf("Recovery: cannot start transaction: %v", err)
		return
	}
	for phrase, freq := range totals {
		normalized := textnorm.Normalize(phrase)
		if _, err := tx.Exec(
			`INSERT INTO phrases (input_phrase, phrase, p_phrase, pp_phrase, user_freq, timestamp)
			 VALUES (?, ?, '', '', ?, ?)`,
			normalized, normalized, freq, now); err != nil {
			log.Warnf("Recovery: insert failed for %q: %v", phrase, err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Errorf("Recovery: commit failed: %v", err)
	}
}

// quarantine renames path (and its WAL/shared-memory side files) with a
// timestamp suffix so the data stays on disk for manual inspection.
func quarantine(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	// Colon-free so the quarantined copy is a legal name on Windows too.
	suffix := "." + time.Now().Format("2006-01-02_150405")
	if err := os.Rename(path, path+suffix); err != nil {
		return err
	}
	for _, side := range []string{"-wal", "-shm"} {
		if _, err := os.Stat(path + side); err == nil {
			if err := os.Rename(path+side, path+side+suffix); err != nil {
				log.Warnf("Could not move %s aside: %v", path+side, err)
			}
		}
	}
	log.Infof("Moved incompatible store to %s", path+suffix)
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the location this store was opened at.
func (s *Store) Path() string {
	return s.path
}

// Version reads the schema version recorded in the desc table.
func (s *Store) Version() (string, error) {
	var version string
	err := s.db.QueryRow(`SELECT value FROM desc WHERE name = 'version'`).Scan(&version)
	return version, err
}

// AddPhrase inserts a new row. It is a silent no-op when a row with the
// same (input_phrase, phrase, p_phrase, pp_phrase) key already exists;
// callers wanting to change an existing row use UpdatePhrase.
func (s *Store) AddPhrase(inputPhrase, phrase, pPhrase, ppPhrase string, userFreq int) error {
	inputPhrase, phrase, pPhrase, ppPhrase = normalizeKey(inputPhrase, phrase, pPhrase, ppPhrase)
	if phrase == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.rowExists(inputPhrase, phrase, pPhrase, ppPhrase)
	if err != nil {
		log.Errorf("AddPhrase lookup failed: %v", err)
		return err
	}
	if exists {
		return nil
	}
	_, err = s.db.Exec(
		`INSERT INTO phrases (input_phrase, phrase, p_phrase, pp_phrase, user_freq, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		inputPhrase, phrase, pPhrase, ppPhrase, userFreq, s.now())
	if err != nil {
		log.Errorf("AddPhrase insert failed: %v", err)
	}
	return err
}

// UpdatePhrase sets user_freq for the row matching the four-tuple key.
// No-op when no such row exists.
func (s *Store) UpdatePhrase(inputPhrase, phrase, pPhrase, ppPhrase string, userFreq int) error {
	inputPhrase, phrase, pPhrase, ppPhrase = normalizeKey(inputPhrase, phrase, pPhrase, ppPhrase)
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`UPDATE phrases SET user_freq = ?, timestamp = ?
		 WHERE input_phrase = ? AND phrase = ? AND p_phrase = ? AND pp_phrase = ?`,
		userFreq, s.now(), inputPhrase, phrase, pPhrase, ppPhrase)
	if err != nil {
		log.Errorf("UpdatePhrase failed: %v", err)
	}
	return err
}

// CheckAndUpdateFrequency is the learning entry point: increment the
// frequency of the keyed row by one, creating it at frequency one when
// missing. The read-modify-write runs in a single transaction under the
// store mutex, so no reader sees a double-counted or missing state.
func (s *Store) CheckAndUpdateFrequency(inputPhrase, phrase, pPhrase, ppPhrase string) error {
	inputPhrase, phrase, pPhrase, ppPhrase = normalizeKey(inputPhrase, phrase, pPhrase, ppPhrase)
	if phrase == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		log.Errorf("Learning transaction failed to start: %v", err)
		return err
	}
	defer tx.Rollback()

	var id int64
	var freq int64
	err = tx.QueryRow(
		`SELECT id, user_freq FROM phrases
		 WHERE input_phrase = ? AND phrase = ? AND p_phrase = ? AND pp_phrase = ?`,
		inputPhrase, phrase, pPhrase, ppPhrase).Scan(&id, &freq)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(
			`INSERT INTO phrases (input_phrase, phrase, p_phrase, pp_phrase, user_freq, timestamp)
			 VALUES (?, ?, ?, ?, 1, ?)`,
			inputPhrase, phrase, pPhrase, ppPhrase, s.now())
	case err == nil:
		_, err = tx.Exec(
			`UPDATE phrases SET user_freq = ?, timestamp = ? WHERE id = ?`,
			freq+1, s.now(), id)
	}
	if err != nil {
		log.Errorf("Learning write failed: %v", err)
		return err
	}
	return tx.Commit()
}

// RemovePhrase deletes rows matching phrase. With a non-empty inputPhrase
// only rows typed as inputPhrase go; with an empty one every row producing
// phrase is forgotten regardless of what was typed.
func (s *Store) RemovePhrase(inputPhrase, phrase string) error {
	phrase = textnorm.Normalize(phrase)
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if inputPhrase == "" {
		_, err = s.db.Exec(`DELETE FROM phrases WHERE phrase = ?`, phrase)
	} else {
		_, err = s.db.Exec(`DELETE FROM phrases WHERE input_phrase = ? AND phrase = ?`,
			textnorm.Normalize(inputPhrase), phrase)
	}
	if err != nil {
		log.Errorf("RemovePhrase failed: %v", err)
	}
	return err
}

// Sync forces pending writes into the main database file.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`PRAGMA wal_checkpoint(FULL)`)
	if err != nil {
		log.Errorf("Checkpoint failed: %v", err)
	}
	return err
}

// NumberOfRows returns the phrase row count.
func (s *Store) NumberOfRows() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM phrases`).Scan(&n)
	return n, err
}

func (s *Store) rowExists(inputPhrase, phrase, pPhrase, ppPhrase string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM phrases
		 WHERE input_phrase = ? AND phrase = ? AND p_phrase = ? AND pp_phrase = ? LIMIT 1`,
		inputPhrase, phrase, pPhrase, ppPhrase).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func normalizeKey(inputPhrase, phrase, pPhrase, ppPhrase string) (string, string, string, string) {
	return textnorm.Normalize(inputPhrase),
		textnorm.Normalize(phrase),
		textnorm.Normalize(pPhrase),
		textnorm.Normalize(ppPhrase)
}
