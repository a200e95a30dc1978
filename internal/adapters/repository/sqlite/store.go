// Package sqlite provides a SQLite-backed badge store. It runs historical
// friend aggregation inside the database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/birdie/internal/adapters/repository"
	"github.com/okian/birdie/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/birdie/internal/domain/history"
	"github.com/okian/birdie/internal/domain/model"
	"github.com/okian/birdie/pkg/metrics"
	_ "modernc.org/sqlite"
)

const dsnParams = "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// Store persists badge state in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite badge store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	sqlDB, err := sql.Open("sqlite", filepath.Clean(path)+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return errors.New("storage is not configured")
	}
	return nil
}

func observeUpdate(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
}

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
}

// GetProgress implements repository.ProgressStore.
func (s *Store) GetProgress(ctx context.Context, playerID, badgeID string) (model.BadgeProgress, error) {
	defer observeQuery(time.Now())
	if err := s.ready(ctx); err != nil {
		return model.BadgeProgress{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT player_id, badge_id, current_tier, total_progress, tracked_thresholds,
       last_updated_round_id, applied_round_ids, version, updated_at
FROM badge_progress
WHERE player_id = ? AND badge_id = ?
`, strings.TrimSpace(playerID), strings.TrimSpace(badgeID))
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BadgeProgress{}, fmt.Errorf("%w: progress %s/%s", repository.ErrNotFound, playerID, badgeID)
	}
	if err != nil {
		return model.BadgeProgress{}, fmt.Errorf("get progress: %w", err)
	}
	return p, nil
}

// CompareAndSwapProgress implements repository.ProgressStore. A create
// relies on the primary key, an update on the version column.
func (s *Store) CompareAndSwapProgress(ctx context.Context, next model.BadgeProgress, expectedVersion int64) (model.BadgeProgress, error) {
	defer observeUpdate(time.Now())
	if err := s.ready(ctx); err != nil {
		return model.BadgeProgress{}, err
	}
	next.PlayerID = strings.TrimSpace(next.PlayerID)
	next.BadgeID = strings.TrimSpace(next.BadgeID)
	if next.PlayerID == "" || next.BadgeID == "" {
		return model.BadgeProgress{}, fmt.Errorf("%w: progress needs player and badge", repository.ErrInvalidInput)
	}
	tracked, err := json.Marshal(nonNil(next.TrackedThresholds))
	if err != nil {
		return model.BadgeProgress{}, fmt.Errorf("encode tracked thresholds: %w", err)
	}
	applied, err := json.Marshal(nonNilStrings(next.AppliedRoundIDs))
	if err != nil {
		return model.BadgeProgress{}, fmt.Errorf("encode applied rounds: %w", err)
	}

	stored := next.Clone()
	stored.Version = expectedVersion + 1
	stored.UpdatedAt = time.UnixMilli(toMillis(s.now())).UTC()

	var res sql.Result
	if expectedVersion == 0 {
		res, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO badge_progress (player_id, badge_id, current_tier, total_progress, tracked_thresholds,
                            last_updated_round_id, applied_round_ids, version, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (player_id, badge_id) DO NOTHING
`, stored.PlayerID, stored.BadgeID, stored.CurrentTier, stored.TotalProgress, string(tracked),
			stored.LastUpdatedRoundID, string(applied), stored.Version, toMillis(stored.UpdatedAt))
	} else {
		res, err = s.sqlDB.ExecContext(ctx, `
UPDATE badge_progress
SET current_tier = ?, total_progress = ?, tracked_thresholds = ?,
    last_updated_round_id = ?, applied_round_ids = ?, version = ?, updated_at = ?
WHERE player_id = ? AND badge_id = ? AND version = ?
`, stored.CurrentTier, stored.TotalProgress, string(tracked),
			stored.LastUpdatedRoundID, string(applied), stored.Version, toMillis(stored.UpdatedAt),
			stored.PlayerID, stored.BadgeID, expectedVersion)
	}
	if err != nil {
		return model.BadgeProgress{}, fmt.Errorf("write progress: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.BadgeProgress{}, fmt.Errorf("write progress rows affected: %w", err)
	}
	if affected == 0 {
		return model.BadgeProgress{}, fmt.Errorf("%w: %s/%s expected version %d",
			repository.ErrProgressConflict, stored.PlayerID, stored.BadgeID, expectedVersion)
	}
	return stored, nil
}

// ListProgress implements repository.ProgressStore.
func (s *Store) ListProgress(ctx context.Context, playerID string) ([]model.BadgeProgress, error) {
	defer observeQuery(time.Now())
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT player_id, badge_id, current_tier, total_progress, tracked_thresholds,
       last_updated_round_id, applied_round_ids, version, updated_at
FROM badge_progress
WHERE player_id = ?
ORDER BY badge_id
`, strings.TrimSpace(playerID))
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []model.BadgeProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgress(row scanner) (model.BadgeProgress, error) {
	var (
		p         model.BadgeProgress
		tracked   string
		applied   string
		updatedAt int64
	)
	if err := row.Scan(&p.PlayerID, &p.BadgeID, &p.CurrentTier, &p.TotalProgress, &tracked,
		&p.LastUpdatedRoundID, &applied, &p.Version, &updatedAt); err != nil {
		return model.BadgeProgress{}, err
	}
	if err := json.Unmarshal([]byte(tracked), &p.TrackedThresholds); err != nil {
		return model.BadgeProgress{}, fmt.Errorf("decode tracked thresholds: %w", err)
	}
	if err := json.Unmarshal([]byte(applied), &p.AppliedRoundIDs); err != nil {
		return model.BadgeProgress{}, fmt.Errorf("decode applied rounds: %w", err)
	}
	if len(p.AppliedRoundIDs) == 0 {
		p.AppliedRoundIDs = nil
	}
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}

// InsertAward implements repository.AwardStore.
func (s *Store) InsertAward(ctx context.Context, rec model.AwardRecord) (bool, error) {
	defer observeUpdate(time.Now())
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	rec.PlayerID = strings.TrimSpace(rec.PlayerID)
	rec.BadgeID = strings.TrimSpace(rec.BadgeID)
	if rec.PlayerID == "" || rec.BadgeID == "" || rec.Tier < 0 {
		return false, fmt.Errorf("%w: award needs player, badge and tier", repository.ErrInvalidInput)
	}

	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO award_records (id, player_id, badge_id, tier, course_id, round_id, earned_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (player_id, badge_id, tier) DO NOTHING
`, rec.ID, rec.PlayerID, rec.BadgeID, rec.Tier, rec.CourseID, rec.RoundID, toMillis(rec.EarnedAt))
	if err != nil {
		return false, fmt.Errorf("insert award: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert award rows affected: %w", err)
	}
	return affected == 1, nil
}

// ListAwards implements repository.AwardStore.
func (s *Store) ListAwards(ctx context.Context, playerID string) ([]model.AwardRecord, error) {
	defer observeQuery(time.Now())
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, player_id, badge_id, tier, course_id, round_id, earned_at
FROM award_records
WHERE player_id = ?
ORDER BY earned_at, rowid
`, strings.TrimSpace(playerID))
	if err != nil {
		return nil, fmt.Errorf("list awards: %w", err)
	}
	defer rows.Close()

	var out []model.AwardRecord
	for rows.Next() {
		var (
			rec      model.AwardRecord
			earnedAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.PlayerID, &rec.BadgeID, &rec.Tier, &rec.CourseID, &rec.RoundID, &earnedAt); err != nil {
			return nil, fmt.Errorf("scan award: %w", err)
		}
		rec.EarnedAt = fromMillis(earnedAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate awards: %w", err)
	}
	return out, nil
}

func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

var (
	_ repository.Store = (*Store)(nil)
	_ history.Counter  = (*Store)(nil)
)
