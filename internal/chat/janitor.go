package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nirmalyamohanty/redfitchat/internal/store"
)

// Janitor permanently deletes messages older than the retention horizon.
// Deletion never touches in-flight delivery; it only shrinks what history
// pagination can reach.
type Janitor struct {
	store    store.DataStore
	horizon  time.Duration
	interval time.Duration
	logger   zerolog.Logger
}

// NewJanitor creates a retention janitor sweeping at the given interval.
func NewJanitor(st store.DataStore, horizon, interval time.Duration, logger zerolog.Logger) *Janitor {
	return &Janitor{store: st, horizon: horizon, interval: interval, logger: logger}
}

// Run sweeps until ctx is cancelled. Intended to be started as a goroutine.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep deletes everything older than the horizon once.
func (j *Janitor) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-j.horizon).UnixMilli()
	deleted, err := j.store.DeleteMessagesBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error().Err(err).Msg("retention sweep failed")
		return
	}
	if deleted > 0 {
		j.logger.Info().Int64("deleted", deleted).Msg("retention sweep completed")
	}
}
