// Package retry sweeps the queue for items whose retry window has elapsed
// and re-enters them through the publish-execution path.
package retry

import (
	"context"
	"fmt"
	"time"

	"pressroom/internal/model"
	"pressroom/internal/repository"
	"pressroom/internal/service"

	"github.com/rs/zerolog"
)

// Config are the knobs for one worker invocation, passed in explicitly.
type Config struct {
	// Platform, when non-empty, restricts the sweep to one platform.
	Platform string
	// BatchLimit caps how many due items one run selects.
	BatchLimit int
	// MaxWallClock bounds the run; items still unprocessed when the budget
	// is spent are counted as skipped and stay eligible for the next run.
	MaxWallClock time.Duration
	// Interval is the sleep between runs in loop mode.
	Interval time.Duration
}

// Summary is the structured result of one run.
type Summary struct {
	Processed  int      `json:"processed"`
	Succeeded  int      `json:"succeeded"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors"`
	DurationMs int64    `json:"duration_ms"`
}

// RunOnce executes one bounded retry sweep. Per-item failures never abort
// the batch; they are recorded in the summary.
func RunOnce(ctx context.Context, logger zerolog.Logger, repo repository.QueueRepository, dispatcher service.DispatchService, cfg Config) (*Summary, error) {
	start := time.Now()
	summary := &Summary{Errors: []string{}}

	items, err := repo.FindDueRetries(ctx, cfg.Platform, cfg.BatchLimit)
	if err != nil {
		return nil, fmt.Errorf("selecting due retries: %w", err)
	}

	for i := range items {
		if cfg.MaxWallClock > 0 && time.Since(start) > cfg.MaxWallClock {
			summary.Skipped += len(items) - i
			logger.Warn().
				Int("skipped", len(items)-i).
				Msg("Retry run exceeded wall-clock budget; leaving remainder for next run")
			break
		}
		item := items[i]
		status, claimed, err := dispatcher.ExecuteRetry(ctx, &item)
		if err != nil {
			summary.Processed++
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("item %s: %v", item.ID, err))
			logger.Error().Err(err).Str("item_id", item.ID).Msg("Retry attempt errored")
			continue
		}
		if !claimed {
			// A concurrent run won the conditional transition.
			summary.Skipped++
			continue
		}
		summary.Processed++
		if status == model.StatusPublished {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	summary.DurationMs = time.Since(start).Milliseconds()
	logger.Info().
		Int("processed", summary.Processed).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Int64("duration_ms", summary.DurationMs).
		Msg("Retry run complete")
	return summary, nil
}

// Run loops RunOnce on the configured interval until ctx is cancelled.
func Run(ctx context.Context, logger zerolog.Logger, repo repository.QueueRepository, dispatcher service.DispatchService, cfg Config) error {
	logger.Info().
		Str("platform", cfg.Platform).
		Int("batch_limit", cfg.BatchLimit).
		Msg("Starting retry worker")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down retry worker")
			return nil
		default:
		}
		if _, err := RunOnce(ctx, logger, repo, dispatcher, cfg); err != nil {
			logger.Error().Err(err).Msg("Retry run failed")
		}
		select {
		case <-ctx.Done():
		case <-time.After(cfg.Interval):
		}
	}
}
