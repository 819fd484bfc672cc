package phrasestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpus(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestReadTrainingDataFromFile(t *testing.T) {
	s := newMemStore(t)
	path := writeCorpus(t, "the quick fox\nthe slow fox\n")

	require.NoError(t, s.ReadTrainingDataFromFile(path, nil))

	// "the" opens both lines, context-free, frequency 2.
	assert.Equal(t, int64(2), keyFrequency(t, s, "the", "the", "", ""))
	// "fox" occurs twice but under different bigram context, one row each.
	assert.Equal(t, int64(1), keyFrequency(t, s, "fox", "fox", "quick", "the"))
	assert.Equal(t, int64(1), keyFrequency(t, s, "fox", "fox", "slow", "the"))
	assert.Equal(t, int64(1), keyFrequency(t, s, "quick", "quick", "the", ""))

	total, err := s.PhraseFrequency("fox")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestReadTrainingDataReplacesAndIsIdempotent(t *testing.T) {
	s := newMemStore(t)
	require.NoError(t, s.AddPhrase("ol", "oldword", "", "", 42))

	path := writeCorpus(t, "hello world\n")
	require.NoError(t, s.ReadTrainingDataFromFile(path, nil))
	require.NoError(t, s.ReadTrainingDataFromFile(path, nil))

	// A fresh import wipes previous content, including earlier imports.
	assert.Equal(t, 0, keyRowCount(t, s, "ol", "oldword", "", ""))
	assert.Equal(t, int64(1), keyFrequency(t, s, "hello", "hello", "", ""))
	assert.Equal(t, int64(1), keyFrequency(t, s, "world", "world", "hello", ""))
	n, err := s.NumberOfRows()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReadTrainingDataContextResetsPerLine(t *testing.T) {
	s := newMemStore(t)
	path := writeCorpus(t, "one two\nthree\n")

	require.NoError(t, s.ReadTrainingDataFromFile(path, nil))

	// "three" starts its own line, so it carries no context from "two".
	assert.Equal(t, int64(1), keyFrequency(t, s, "three", "three", "", ""))
	assert.Equal(t, 0, keyRowCount(t, s, "three", "three", "two", "one"))
}

func TestReadTrainingDataMissingFile(t *testing.T) {
	s := newMemStore(t)
	err := s.ReadTrainingDataFromFile(filepath.Join(t.TempDir(), "nope.txt"), nil)
	assert.Error(t, err)
}
