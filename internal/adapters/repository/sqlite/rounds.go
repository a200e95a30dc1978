package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/birdie/internal/adapters/repository"
	"github.com/okian/birdie/internal/domain/model"
)

// SaveRound implements repository.RoundStore. The round row and one score
// row per player are written in one transaction.
func (s *Store) SaveRound(ctx context.Context, round model.NormalizedRound) (bool, error) {
	defer observeUpdate(time.Now())
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	roundID := strings.TrimSpace(round.RoundID)
	if roundID == "" {
		return false, fmt.Errorf("%w: round needs an id", repository.ErrInvalidInput)
	}
	layout, err := json.Marshal(round.Layout)
	if err != nil {
		return false, fmt.Errorf("encode layout: %w", err)
	}
	completedAt := round.CompletedAt()
	if completedAt.IsZero() {
		completedAt = s.now()
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin save round: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
INSERT INTO rounds (round_id, course_id, organizer_id, layout, completed_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (round_id) DO NOTHING
`, roundID, round.CourseID, round.OrganizerID, string(layout), toMillis(completedAt))
	if err != nil {
		return false, fmt.Errorf("insert round: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert round rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	for _, playerID := range round.Players() {
		results := round.PerPlayerResults[playerID]
		if len(results) == 0 {
			continue
		}
		encoded, err := json.Marshal(results)
		if err != nil {
			return false, fmt.Errorf("encode results for %s: %w", playerID, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO round_scores (round_id, player_id, total_strokes, results)
VALUES (?, ?, ?, ?)
`, roundID, playerID, model.TotalStrokes(results), string(encoded)); err != nil {
			return false, fmt.Errorf("insert score for %s: %w", playerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit save round: %w", err)
	}
	return true, nil
}

// ScanPlayerRounds implements repository.RoundStore. Rows are streamed in
// insertion order and grouped into one round at a time.
func (s *Store) ScanPlayerRounds(ctx context.Context, playerID string, fn func(model.NormalizedRound) error) error {
	defer observeQuery(time.Now())
	if err := s.ready(ctx); err != nil {
		return err
	}
	playerID = strings.TrimSpace(playerID)

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT r.round_id, r.course_id, r.organizer_id, r.layout, sc.player_id, sc.results
FROM rounds r
LEFT JOIN round_scores sc ON sc.round_id = r.round_id
WHERE r.organizer_id = ?
   OR EXISTS (SELECT 1 FROM round_scores me WHERE me.round_id = r.round_id AND me.player_id = ?)
ORDER BY r.seq, sc.player_id
`, playerID, playerID)
	if err != nil {
		return fmt.Errorf("scan rounds: %w", err)
	}
	defer rows.Close()

	var current *model.NormalizedRound
	for rows.Next() {
		var (
			roundID, courseID, organizerID, layout string
			scorePlayer, results                   sql.NullString
		)
		if err := rows.Scan(&roundID, &courseID, &organizerID, &layout, &scorePlayer, &results); err != nil {
			return fmt.Errorf("scan round row: %w", err)
		}
		if current == nil || current.RoundID != roundID {
			if current != nil {
				if err := fn(*current); err != nil {
					return err
				}
			}
			current = &model.NormalizedRound{
				RoundID:          roundID,
				CourseID:         courseID,
				OrganizerID:      organizerID,
				PerPlayerResults: make(map[string][]model.HoleResult),
			}
			if err := json.Unmarshal([]byte(layout), &current.Layout); err != nil {
				return fmt.Errorf("decode layout of %s: %w", roundID, err)
			}
		}
		if scorePlayer.Valid {
			var hr []model.HoleResult
			if err := json.Unmarshal([]byte(results.String), &hr); err != nil {
				return fmt.Errorf("decode results of %s/%s: %w", roundID, scorePlayer.String, err)
			}
			current.PerPlayerResults[scorePlayer.String] = hr
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rounds: %w", err)
	}
	if current != nil {
		return fn(*current)
	}
	return nil
}
