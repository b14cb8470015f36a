// Package activation promotes queue items whose scheduled activation time
// has arrived from pending to queued.
package activation

import (
	"context"
	"fmt"
	"time"

	"pressroom/internal/repository"
	"pressroom/internal/service"

	"github.com/rs/zerolog"
)

// Config are the knobs for one worker invocation. A zero StaleAfter disables
// the stale-queued re-announce pass.
type Config struct {
	Platform     string
	BatchLimit   int
	MaxWallClock time.Duration
	Interval     time.Duration
	StaleAfter   time.Duration
}

// Summary is the structured result of one run.
type Summary struct {
	Processed   int      `json:"processed"`
	Queued      int      `json:"queued"`
	Skipped     int      `json:"skipped"`
	Reannounced int      `json:"reannounced"`
	Errors      []string `json:"errors"`
	DurationMs  int64    `json:"duration_ms"`
}

// RunOnce selects due scheduled items oldest-first and applies the
// promote-if-due transition to each. Lost races are benign skips.
func RunOnce(ctx context.Context, logger zerolog.Logger, repo repository.QueueRepository, queue service.QueueService, cfg Config) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Errors: []string{}}

	items, err := repo.FindDueScheduled(ctx, cfg.Platform, cfg.BatchLimit)
	if err != nil {
		return nil, fmt.Errorf("selecting due scheduled items: %w", err)
	}

	for i := range items {
		if cfg.MaxWallClock > 0 && time.Since(start) > cfg.MaxWallClock {
			summary.Skipped += len(items) - i
			logger.Warn().
				Int("skipped", len(items)-i).
				Msg("Activation run exceeded wall-clock budget; leaving remainder for next run")
			break
		}
		item := items[i]
		promoted, err := queue.PromoteIfDue(ctx, item.ID)
		if err != nil {
			summary.Processed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("item %s: %v", item.ID, err))
			logger.Error().Err(err).Str("item_id", item.ID).Msg("Activation errored")
			continue
		}
		if !promoted {
			summary.Skipped++
			continue
		}
		summary.Processed++
		summary.Queued++
	}

	// Items promoted earlier whose dispatch notification was lost would
	// otherwise sit in queued forever; re-announce anything stale.
	if cfg.StaleAfter > 0 {
		n, err := queue.ReannounceStale(ctx, time.Now().Add(-cfg.StaleAfter), cfg.BatchLimit)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("stale re-announce: %v", err))
			logger.Error().Err(err).Msg("Stale re-announce pass failed")
		}
		summary.Reannounced = n
	}

	summary.DurationMs = time.Since(start).Milliseconds()
	logger.Info().
		Int("processed", summary.Processed).
		Int("queued", summary.Queued).
		Int("skipped", summary.Skipped).
		Int("reannounced", summary.Reannounced).
		Int64("duration_ms", summary.DurationMs).
		Msg("Activation run complete")
	return summary, nil
}

// Run loops RunOnce on the configured interval until ctx is cancelled.
func Run(ctx context.Context, logger zerolog.Logger, repo repository.QueueRepository, queue service.QueueService, cfg Config) error {
	logger.Info().
		Str("platform", cfg.Platform).
		Int("batch_limit", cfg.BatchLimit).
		Msg("Starting activation worker")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down activation worker")
			return nil
		default:
		}
		if _, err := RunOnce(ctx, logger, repo, queue, cfg); err != nil {
			logger.Error().Err(err).Msg("Activation run failed")
		}
		select {
		case <-ctx.Done():
		case <-time.After(cfg.Interval):
		}
	}
}
