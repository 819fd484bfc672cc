package phrasestore

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func keyRowCount(t *testing.T, s *Store, input, phrase, p, pp string) int {
	t.Helper()
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM phrases
		 WHERE input_phrase = ? AND phrase = ? AND p_phrase = ? AND pp_phrase = ?`,
		input, phrase, p, pp).Scan(&n)
	require.NoError(t, err)
	return n
}

func keyFrequency(t *testing.T, s *Store, input, phrase, p, pp string) int64 {
	t.Helper()
	var freq int64
	err := s.db.QueryRow(
		`SELECT user_freq FROM phrases
		 WHERE input_phrase = ? AND phrase = ? AND p_phrase = ? AND pp_phrase = ?`,
		input, phrase, p, pp).Scan(&freq)
	require.NoError(t, err)
	return freq
}

func TestOpenFreshStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	version, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, UserDatabaseVersion, version)

	n, err := s.NumberOfRows()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLearningMonotonicity(t *testing.T) {
	s := newMemStore(t)

	for i := 1; i <= 5; i++ {
		require.NoError(t, s.CheckAndUpdateFrequency("he", "hello", "said", "she"))
		assert.Equal(t, int64(i), keyFrequency(t, s, "he", "hello", "said", "she"))
		assert.Equal(t, 1, keyRowCount(t, s, "he", "hello", "said", "she"))
	}

	// A different context is a different row.
	require.NoError(t, s.CheckAndUpdateFrequency("he", "hello", "", ""))
	assert.Equal(t, int64(1), keyFrequency(t, s, "he", "hello", "", ""))
	assert.Equal(t, int64(5), keyFrequency(t, s, "he", "hello", "said", "she"))
}

func TestAddPhraseIsNoOpOnDuplicate(t *testing.T) {
	s := newMemStore(t)

	require.NoError(t, s.AddPhrase("co", "colour", "", "", 2))
	require.NoError(t, s.AddPhrase("co", "colour", "", "", 99))
	assert.Equal(t, int64(2), keyFrequency(t, s, "co", "colour", "", ""))
	assert.Equal(t, 1, keyRowCount(t, s, "co", "colour", "", ""))

	require.NoError(t, s.UpdatePhrase("co", "colour", "", "", 7))
	assert.Equal(t, int64(7), keyFrequency(t, s, "co", "colour", "", ""))

	// Updating a missing key changes nothing and is not an error.
	require.NoError(t, s.UpdatePhrase("xx", "nothing", "", "", 7))
	n, err := s.NumberOfRows()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRemovePhrase(t *testing.T) {
	s := newMemStore(t)
	require.NoError(t, s.AddPhrase("he", "hello", "", "", 1))
	require.NoError(t, s.AddPhrase("hel", "hello", "", "", 1))
	require.NoError(t, s.AddPhrase("wo", "world", "", "", 1))

	// Narrow removal only hits the matching input.
	require.NoError(t, s.RemovePhrase("he", "hello"))
	assert.Equal(t, 0, keyRowCount(t, s, "he", "hello", "", ""))
	assert.Equal(t, 1, keyRowCount(t, s, "hel", "hello", "", ""))

	// Empty input removes the phrase everywhere.
	require.NoError(t, s.RemovePhrase("", "hello"))
	assert.Equal(t, 0, keyRowCount(t, s, "hel", "hello", "", ""))
	assert.Equal(t, 1, keyRowCount(t, s, "wo", "world", "", ""))
}

func TestSelectWordsUnigramBlend(t *testing.T) {
	s := newMemStore(t)
	require.NoError(t, s.AddPhrase("co", "colour", "", "", 2))
	require.NoError(t, s.AddPhrase("co", "cold", "", "", 1))

	got := s.SelectWords("co", "", "")
	require.Len(t, got, 2)
	assert.Equal(t, "colour", got[0].Phrase)
	assert.InDelta(t, 2.0/3.0, got[0].Score, 1e-9)
	assert.Equal(t, "cold", got[1].Phrase)
	assert.InDelta(t, 1.0/3.0, got[1].Score, 1e-9)
}

func TestSelectWordsFallbackChain(t *testing.T) {
	s := newMemStore(t)
	require.NoError(t, s.AddPhrase("co", "colour", "", "", 2))
	require.NoError(t, s.AddPhrase("co", "cold", "", "", 1))

	noContext := s.SelectWords("co", "", "")
	withUnmatchedContext := s.SelectWords("co", "very", "nice")
	assert.Equal(t, noContext, withUnmatchedContext,
		"context with no matching data must not change the outcome")
}

func TestSelectWordsBigramTrigramBlend(t *testing.T) {
	s := newMemStore(t)
	require.NoError(t, s.AddPhrase("co", "colour", "", "", 2))
	require.NoError(t, s.AddPhrase("co", "cold", "", "", 1))
	require.NoError(t, s.AddPhrase("co", "colour", "nice", "", 3))
	require.NoError(t, s.AddPhrase("co", "cold", "nice", "", 1))
	require.NoError(t, s.AddPhrase("co", "cold", "nice", "a", 4))

	// Unigram totals: colour 5, cold 6 (total 11).
	// Bigram (p=nice): colour 3, cold 5 (total 8).
	got := s.SelectWords("co", "nice", "")
	require.Len(t, got, 2)
	scores := map[string]float64{got[0].Phrase: got[0].Score, got[1].Phrase: got[1].Score}
	assert.InDelta(t, 0.5*(3.0/8.0)+0.5*(5.0/11.0), scores["colour"], 1e-9)
	assert.InDelta(t, 0.5*(5.0/8.0)+0.5*(6.0/11.0), scores["cold"], 1e-9)

	// Trigram (p=nice, pp=a): only cold matches, so it takes the full
	// trigram share while colour fades to half its bigram-blended score.
	got = s.SelectWords("co", "nice", "a")
	scores = map[string]float64{got[0].Phrase: got[0].Score, got[1].Phrase: got[1].Score}
	assert.InDelta(t, 0.5*1.0+0.5*(0.5*(5.0/8.0)+0.5*(6.0/11.0)), scores["cold"], 1e-9)
	assert.InDelta(t, 0.5*0.0+0.5*(0.5*(3.0/8.0)+0.5*(5.0/11.0)), scores["colour"], 1e-9)
	assert.Equal(t, "cold", got[0].Phrase)
}

func TestSelectWordsEmptyStore(t *testing.T) {
	s := newMemStore(t)
	assert.Empty(t, s.SelectWords("co", "", ""))
	assert.Empty(t, s.SelectWords("", "", ""))
}

func TestSelectWordsPrefixIsCaseSensitive(t *testing.T) {
	s := newMemStore(t)
	require.NoError(t, s.AddPhrase("Co", "Colour", "", "", 2))
	require.NoError(t, s.AddPhrase("co", "cold", "", "", 1))

	got := s.SelectWords("co", "", "")
	require.Len(t, got, 1)
	assert.Equal(t, "cold", got[0].Phrase)
}

func TestSelectWordsEscapesLikePattern(t *testing.T) {
	s := newMemStore(t)
	require.NoError(t, s.AddPhrase("a%b", "percent", "", "", 1))
	require.NoError(t, s.AddPhrase("axb", "letter", "", "", 1))

	got := s.SelectWords("a%", "", "")
	require.Len(t, got, 1)
	assert.Equal(t, "percent", got[0].Phrase)
}

func TestSchemaIncompatibilityRecovery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user.db")

	// Fabricate an old-generation store: version 0.1, four columns.
	old, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = old.Exec(`CREATE TABLE desc (name TEXT PRIMARY KEY, value TEXT)`)
	require.NoError(t, err)
	_, err = old.Exec(`INSERT INTO desc VALUES ('version', '0.1')`)
	require.NoError(t, err)
	_, err = old.Exec(`CREATE TABLE phrases (
		id INTEGER PRIMARY KEY, input_phrase TEXT, phrase TEXT, user_freq INTEGER)`)
	require.NoError(t, err)
	_, err = old.Exec(`INSERT INTO phrases (input_phrase, phrase, user_freq) VALUES
		('he', 'hello', 3), ('hel', 'hello', 2), ('wo', 'world', 1)`)
	require.NoError(t, err)
	require.NoError(t, old.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	// The incompatible store is still on disk, renamed aside.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	quarantined := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "user.db.") && !strings.Contains(e.Name(), "-wal") &&
			!strings.Contains(e.Name(), "-shm") {
			quarantined = true
			// The suffix must stay portable; colons are not legal in
			// Windows filenames.
			assert.NotContains(t, e.Name(), ":")
		}
	}
	assert.True(t, quarantined, "expected a timestamp-suffixed copy, got %v", entries)

	version, err := s.Version()
	require.NoError(t, err)
	assert.Equal(t, UserDatabaseVersion, version)

	// Phrase totals survived, context discarded.
	total, err := s.PhraseFrequency("hello")
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Equal(t, 1, keyRowCount(t, s, "hello", "hello", "", ""))
	assert.Equal(t, 1, keyRowCount(t, s, "world", "world", "", ""))
}

func TestStats(t *testing.T) {
	s := newMemStore(t)
	require.NoError(t, s.AddPhrase("he", "hello", "", "", 1))
	require.NoError(t, s.AddPhrase("wo", "world", "", "", 3))
	require.NoError(t, s.AddPhrase("br", "brb", "", "", ShortcutFrequency))

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalRows)
	assert.Equal(t, 3, st.DistinctPhrases)
	assert.Equal(t, int64(4+ShortcutFrequency), st.TotalFrequency)
	assert.Equal(t, 1, st.SingleUseRows)
	assert.Equal(t, 1, st.ShortcutRows)
	assert.GreaterOrEqual(t, st.NewestTimestamp, st.OldestTimestamp)
}
