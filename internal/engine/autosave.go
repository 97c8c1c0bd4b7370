package engine

import (
	"context"
	"time"

	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
)

// DefaultAutosaveRate is the reference autosave cadence.
const DefaultAutosaveRate = 5 * time.Second

// finalSaveTimeout bounds the save issued on shutdown.
const finalSaveTimeout = 3 * time.Second

// SaveFunc persists the current session.
type SaveFunc func(ctx context.Context) error

// Autosaver calls a SaveFunc periodically and once more when stopped, the way
// the browser game saved on every interval and before unload.
type Autosaver struct {
	save     SaveFunc
	interval time.Duration
	logger   *logger.Logger
}

// NewAutosaver creates an autosaver (DefaultAutosaveRate if interval <= 0).
func NewAutosaver(save SaveFunc, interval time.Duration, log *logger.Logger) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveRate
	}
	return &Autosaver{save: save, interval: interval, logger: log}
}

// Run saves every interval until ctx is done, then performs a final save.
// Save errors are logged and never stop the loop.
func (a *Autosaver) Run(ctx context.Context) {
	a.logger.Infof("Autosave started (every %s)", a.interval)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), finalSaveTimeout)
			if err := a.save(finalCtx); err != nil {
				a.logger.Errorf("Final save failed: %v", err)
			} else {
				a.logger.Info("Final save completed.")
			}
			cancel()
			return
		case <-ticker.C:
			if err := a.save(ctx); err != nil {
				a.logger.Warnf("Autosave failed: %v", err)
			}
		}
	}
}
