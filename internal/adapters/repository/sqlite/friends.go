package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/birdie/internal/adapters/repository"
	"github.com/okian/birdie/internal/domain/history"
)

// AddFriendship implements repository.FriendStore. Both directions are
// written so lookups only ever filter on player_id.
func (s *Store) AddFriendship(ctx context.Context, a, b string, status repository.FriendshipStatus) error {
	defer observeUpdate(time.Now())
	if err := s.ready(ctx); err != nil {
		return err
	}
	a, b, err := repository.ValidateFriendship(a, b, status)
	if err != nil {
		return err
	}
	now := toMillis(s.now())

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin friendship: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, pair := range [][2]string{{a, b}, {b, a}} {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO friendships (player_id, friend_id, status, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (player_id, friend_id) DO UPDATE SET
  status = excluded.status,
  updated_at = excluded.updated_at
`, pair[0], pair[1], string(status), now); err != nil {
			return fmt.Errorf("put friendship %s->%s: %w", pair[0], pair[1], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit friendship: %w", err)
	}
	return nil
}

// Friends implements repository.FriendStore.
func (s *Store) Friends(ctx context.Context, playerID string) ([]string, error) {
	defer observeQuery(time.Now())
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT friend_id FROM friendships
WHERE player_id = ? AND status = ?
ORDER BY friend_id
`, strings.TrimSpace(playerID), string(repository.FriendshipAccepted))
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friends: %w", err)
	}
	return out, nil
}

// comparisonFilters maps a comparison to its per-round condition over the
// columns of the friend_rounds CTE.
var comparisonFilters = map[history.Comparison]string{
	history.LostToFriend:     "mine > best_friend",
	history.BeatFriends:      "mine < best_friend",
	history.TiedFriend:       "ties > 0",
	history.PlayedWithFriend: "1 = 1",
}

// CountFriendRounds implements history.Counter: the player's rounds are
// joined with accepted friends' scores, reduced per round, and counted in
// one query.
func (s *Store) CountFriendRounds(ctx context.Context, playerID string, cmp history.Comparison) (int, error) {
	defer observeQuery(time.Now())
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	filter, ok := comparisonFilters[cmp]
	if !ok {
		return 0, fmt.Errorf("%w: comparison %q", history.ErrInvalidSpec, cmp)
	}
	playerID = strings.TrimSpace(playerID)

	query := `
WITH friend_rounds AS (
  SELECT me.round_id,
         me.total_strokes AS mine,
         MIN(fr.total_strokes) AS best_friend,
         SUM(CASE WHEN fr.total_strokes = me.total_strokes THEN 1 ELSE 0 END) AS ties
  FROM round_scores me
  JOIN round_scores fr ON fr.round_id = me.round_id AND fr.player_id <> me.player_id
  JOIN friendships f ON f.player_id = me.player_id AND f.friend_id = fr.player_id AND f.status = ?
  WHERE me.player_id = ?
  GROUP BY me.round_id, me.total_strokes
)
SELECT COUNT(*) FROM friend_rounds WHERE ` + filter

	var n int
	if err := s.sqlDB.QueryRowContext(ctx, query, string(repository.FriendshipAccepted), playerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count friend rounds: %w", err)
	}
	return n, nil
}
