package phrasestore

import "database/sql"

// Stats is an offline snapshot of the store, for diagnostics and for
// deciding whether a decay pass is worth scheduling.
type Stats struct {
	TotalRows       int
	DistinctPhrases int
	TotalFrequency  int64
	SingleUseRows   int
	ShortcutRows    int
	OldestTimestamp float64
	NewestTimestamp float64
}

// Stats gathers the snapshot in one pass over the aggregate queries.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{}
	err := s.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT phrase), IFNULL(SUM(user_freq), 0),
		        IFNULL(MIN(timestamp), 0), IFNULL(MAX(timestamp), 0)
		 FROM phrases`).Scan(
		&st.TotalRows, &st.DistinctPhrases, &st.TotalFrequency,
		&st.OldestTimestamp, &st.NewestTimestamp)
	if err != nil {
		return nil, err
	}
	err = s.db.QueryRow(
		`SELECT IFNULL(SUM(user_freq = 1), 0), IFNULL(SUM(user_freq >= ?), 0) FROM phrases`,
		ShortcutFrequency).Scan(&st.SingleUseRows, &st.ShortcutRows)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return st, nil
}

// PhraseFrequency sums the learned frequency of phrase across every
// context, the figure a "how well do I know this word" diagnostic wants.
func (s *Store) PhraseFrequency(phrase string) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT SUM(user_freq) FROM phrases WHERE phrase = ?`, phrase).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}
