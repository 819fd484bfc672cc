package phrasestore

import (
	"sort"

	"github.com/charmbracelet/log"
)

// Decay/eviction policy constants. They encode a deliberately conservative
// "touch very little at a time" policy; tests exercise the boundaries
// through these names rather than repeated literals.
const (
	// DefaultMaxRows bounds the store when no limit is configured.
	DefaultMaxRows = 50000
	// ShortcutFrequency marks rows the user pinned (manually defined
	// shortcuts get this frequency); they are never evicted or decayed.
	ShortcutFrequency = 1000000
	// StaleCutoffFactor selects how much of the kept store pass 2 leaves
	// alone: only rows older than the newest floor(maxRows*factor) rows
	// are decay candidates, i.e. the oldest 0.1%.
	StaleCutoffFactor = 0.999
	// decayDivisor halves a decayed row's frequency (integer division).
	decayDivisor = 2
)

// DecayPlan describes what a cleanup pass would do, without doing it.
// Reused by Cleanup itself and by diagnostic tooling.
type DecayPlan struct {
	TotalRows   int
	Pass1Delete []int64 // over-limit rows, least frequent first
	Pass2Delete []int64 // stale single-use rows
	Pass2Halve  []int64 // stale reinforced rows, soft-decayed instead
}

type decayRow struct {
	id        int64
	userFreq  int64
	timestamp float64
}

// PlanCleanup computes the two-pass decay plan for a maximum row count.
//
// Pass 1 walks rows ordered by (frequency, timestamp, id) from the least
// frequent end and marks rows for deletion until at most maxRows remain;
// rows at or above ShortcutFrequency are always kept. Pass 2 re-sorts the
// kept rows by timestamp alone and touches only the oldest sliver beyond
// the StaleCutoffFactor index: single-use rows are dropped, reinforced
// ones halved and re-timestamped. Pass 1 alone never evicts old but
// moderately frequent rows, which is exactly what pass 2 bounds.
func (s *Store) PlanCleanup(maxRows int) (*DecayPlan, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	rows, err := s.decayRows()
	if err != nil {
		return nil, err
	}
	plan := &DecayPlan{TotalRows: len(rows)}

	// Pass 1: bound the row count.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].userFreq != rows[j].userFreq {
			return rows[i].userFreq < rows[j].userFreq
		}
		if rows[i].timestamp != rows[j].timestamp {
			return rows[i].timestamp < rows[j].timestamp
		}
		return rows[i].id < rows[j].id
	})
	kept := rows
	for len(kept) > maxRows && kept[0].userFreq < ShortcutFrequency {
		plan.Pass1Delete = append(plan.Pass1Delete, kept[0].id)
		kept = kept[1:]
	}

	// Pass 2: bound staleness, newest first so the cutoff index counts
	// the protected young majority.
	sort.Slice(kept, func(i, j int) bool {
		return kept[i].timestamp > kept[j].timestamp
	})
	cutoff := int(float64(maxRows) * StaleCutoffFactor)
	for i := cutoff; i < len(kept); i++ {
		row := kept[i]
		if row.userFreq >= ShortcutFrequency {
			continue
		}
		if row.userFreq <= 1 {
			plan.Pass2Delete = append(plan.Pass2Delete, row.id)
		} else {
			plan.Pass2Halve = append(plan.Pass2Halve, row.id)
		}
	}
	return plan, nil
}

// Cleanup applies the two-pass decay policy, bounding the store to maxRows
// (modulo protected shortcut rows). Ranking may keep reading while this
// runs; learning writes must not interleave with it on the same handle.
func (s *Store) Cleanup(maxRows int) error {
	plan, err := s.PlanCleanup(maxRows)
	if err != nil {
		log.Errorf("Cleanup planning failed: %v", err)
		return err
	}
	if len(plan.Pass1Delete) == 0 && len(plan.Pass2Delete) == 0 && len(plan.Pass2Halve) == 0 {
		return nil
	}
	log.Infof("Cleanup: %d rows, evicting %d, dropping %d stale, decaying %d",
		plan.TotalRows, len(plan.Pass1Delete), len(plan.Pass2Delete), len(plan.Pass2Halve))

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		log.Errorf("Cleanup transaction failed to start: %v", err)
		return err
	}
	defer tx.Rollback()

	for _, id := range plan.Pass1Delete {
		if _, err := tx.Exec(`DELETE FROM phrases WHERE id = ?`, id); err != nil {
			log.Errorf("Cleanup delete failed: %v", err)
			return err
		}
	}
	for _, id := range plan.Pass2Delete {
		if _, err := tx.Exec(`DELETE FROM phrases WHERE id = ?`, id); err != nil {
			log.Errorf("Cleanup delete failed: %v", err)
			return err
		}
	}
	now := s.now()
	for _, id := range plan.Pass2Halve {
		if _, err := tx.Exec(
			`UPDATE phrases SET user_freq = user_freq / ?, timestamp = ? WHERE id = ?`,
			decayDivisor, now, id); err != nil {
			log.Errorf("Cleanup decay failed: %v", err)
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) decayRows() ([]decayRow, error) {
	rows, err := s.db.Query(`SELECT id, user_freq, timestamp FROM phrases`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []decayRow
	for rows.Next() {
		var r decayRow
		if err := rows.Scan(&r.id, &r.userFreq, &r.timestamp); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
