package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"schoolschedule/internal/config"
)

// OrphanSweeper removes stored document files that have no matching row.
type OrphanSweeper interface {
	SweepOrphans(ctx context.Context) (int, error)
}

func StartDocumentSweepJob(ctx context.Context, cfg config.Config, sweeper OrphanSweeper, log zerolog.Logger) {
	if !cfg.DocumentSweepEnabled {
		return
	}
	log = log.With().Str("component", "document_sweep").Logger()
	if sweeper == nil {
		log.Warn().Msg("document sweep job disabled: no sweeper configured")
		return
	}
	interval := cfg.DocumentSweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	timeout := cfg.DocumentSweepTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				removed, err := sweeper.SweepOrphans(tickCtx)
				cancel()
				if err != nil {
					log.Error().Err(err).Msg("document sweep failed")
					continue
				}
				if removed > 0 {
					log.Info().Int("removed", removed).Msg("document sweep removed orphan files")
				}
			}
		}
	}()
}
