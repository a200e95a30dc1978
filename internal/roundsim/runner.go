package roundsim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/birdie/internal/domain/model"
	"github.com/okian/birdie/pkg/logger"
)

const (
	directoryPermission = 0o750
	pollInterval        = 250 * time.Millisecond
	percentage          = 100
)

// Run executes a complete simulation against a running service.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now(), AwardsByBadge: map[string]int{}}
	log := logger.Named("roundsim")

	log.Info(ctx, "starting round simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("players", cfg.Players),
		logger.Int("workers", cfg.Workers),
		logger.Bool("sync", cfg.Sync))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	players := generatePlayers(cfg.Players)
	if err := addFriendships(ctx, client, cfg, players, stats); err != nil {
		return stats, fmt.Errorf("friendship setup failed: %w", err)
	}

	rounds, err := generateRounds(ctx, cfg, players, stats)
	if err != nil {
		return stats, fmt.Errorf("round generation failed: %w", err)
	}

	submitRounds(ctx, client, cfg, rounds, stats)

	if !cfg.Sync {
		if err := waitForDrain(ctx, client, cfg.Settle); err != nil {
			log.Warn(ctx, "evaluation did not drain in time", logger.Error(err))
		}
	}

	if err := collectAwards(ctx, client, players, stats); err != nil {
		return stats, fmt.Errorf("award retrieval failed: %w", err)
	}

	if cfg.OutputFile != "" {
		if err := saveRoundsToFile(ctx, cfg.OutputFile, rounds); err != nil {
			log.Warn(ctx, "failed to save rounds to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

func checkServiceHealth(ctx context.Context, client *httpClient) error {
	// /healthz serves Prometheus text, so only the status matters.
	status, err := client.get(ctx, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status %d", status)
	}
	return nil
}

// addFriendships links neighbouring players in the pool.
func addFriendships(ctx context.Context, client *httpClient, cfg *Config, players []string, stats *Stats) error {
	for i := 0; i < cfg.Friends && i+1 < len(players); i++ {
		body := map[string]string{"playerId": players[i], "friendId": players[i+1]}
		if _, err := client.post(ctx, "/friendships", body, nil); err != nil {
			return err
		}
		stats.FriendshipsAdded++
	}
	return nil
}

// submitRounds posts rounds from a pool of cfg.Workers goroutines.
func submitRounds(ctx context.Context, client *httpClient, cfg *Config, rounds []model.CompletedRoundEvent, stats *Stats) {
	log := logger.Named("roundsim")
	path := "/rounds"
	if cfg.Sync {
		path = "/rounds/evaluate"
	}

	var submitted, accepted, duplicate, failed, awards int64
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan model.CompletedRoundEvent, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range jobs {
				atomic.AddInt64(&submitted, 1)
				n, dup, err := submitRound(ctx, client, path, cfg.Sync, ev)
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "round submission failed", logger.String("round_id", ev.RoundID), logger.Error(err))
					}
				case dup:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&accepted, 1)
					atomic.AddInt64(&awards, int64(n))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, ev := range rounds {
			select {
			case <-ctx.Done():
				return
			case jobs <- ev:
			}
		}
	}()
	wg.Wait()

	stats.RoundsSubmitted = int(submitted)
	stats.RoundsAccepted = int(accepted)
	stats.RoundsDuplicate = int(duplicate)
	stats.RoundsFailed = int(failed)
	stats.AwardsReported = int(awards)

	log.Info(ctx, "round submission completed",
		logger.Int("accepted", stats.RoundsAccepted),
		logger.Int("duplicate", stats.RoundsDuplicate),
		logger.Int("failed", stats.RoundsFailed))
}

// submitRound returns the number of awards reported (evaluate only) and
// whether the service saw the round before.
func submitRound(ctx context.Context, client *httpClient, path string, evaluate bool, ev model.CompletedRoundEvent) (int, bool, error) {
	if evaluate {
		var out struct {
			Earned model.EarnedBadgesReport `json:"earned"`
		}
		if _, err := client.post(ctx, path, ev, &out); err != nil {
			return 0, false, err
		}
		return out.Earned.Count(), false, nil
	}

	var ack Ack
	status, err := client.post(ctx, path, ev, &ack)
	if err != nil {
		return 0, false, err
	}
	return 0, status == http.StatusOK || ack.Duplicate, nil
}

// waitForDrain polls /stats until the service has processed every submitted round.
func waitForDrain(ctx context.Context, client *httpClient, settle time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, settle)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		var stats struct {
			QueueLength     int   `json:"queueLength"`
			RoundsSubmitted int64 `json:"roundsSubmitted"`
			RoundsProcessed int64 `json:"roundsProcessed"`
			RoundsFailed    int64 `json:"roundsFailed"`
		}
		if _, err := client.get(ctx, "/stats", &stats); err == nil {
			if stats.QueueLength == 0 && stats.RoundsProcessed+stats.RoundsFailed >= stats.RoundsSubmitted {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func collectAwards(ctx context.Context, client *httpClient, players []string, stats *Stats) error {
	for _, player := range players {
		var records []model.AwardRecord
		if _, err := client.get(ctx, "/players/"+url.PathEscape(player)+"/badges", &records); err != nil {
			return err
		}
		if len(records) > 0 {
			stats.PlayersWithBadge++
		}
		for _, rec := range records {
			stats.AwardsByBadge[rec.BadgeID]++
		}
	}
	return nil
}

func saveRoundsToFile(ctx context.Context, filename string, rounds []model.CompletedRoundEvent) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(rounds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rounds: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "rounds saved to file", logger.String("filename", filename))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, roundsPerSecond float64
	if stats.RoundsSubmitted > 0 {
		successRate = float64(stats.RoundsAccepted) / float64(stats.RoundsSubmitted) * percentage
	}
	if stats.Duration > 0 {
		roundsPerSecond = float64(stats.RoundsSubmitted) / stats.Duration.Seconds()
	}

	total := 0
	for _, n := range stats.AwardsByBadge {
		total += n
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("roundsGenerated", stats.RoundsGenerated),
		logger.Int("roundsSubmitted", stats.RoundsSubmitted),
		logger.Int("roundsAccepted", stats.RoundsAccepted),
		logger.Int("roundsDuplicate", stats.RoundsDuplicate),
		logger.Int("roundsFailed", stats.RoundsFailed),
		logger.Int("friendships", stats.FriendshipsAdded),
		logger.Int("awards", total),
		logger.Int("playersWithBadge", stats.PlayersWithBadge),
		logger.Any("awardsByBadge", stats.AwardsByBadge),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("roundsPerSecond", roundsPerSecond))
}
