package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
)

// DefaultTickRate is the reference accrual cadence: one interval yield per second.
const DefaultTickRate = 1 * time.Second

// Tickable is anything with a unit accrual step.
type Tickable interface {
	Tick() float64
}

// Ticker drives the accrual loop. It owns the cadence; the engine only
// exposes the unit Tick operation.
type Ticker struct {
	target     Tickable
	logger     *logger.Logger
	interval   time.Duration
	tickNumber int64
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewTicker creates a ticker firing every interval (DefaultTickRate if <= 0).
func NewTicker(target Tickable, interval time.Duration, log *logger.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultTickRate
	}
	return &Ticker{
		target:   target,
		logger:   log,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start runs the loop until ctx is cancelled or Stop is called. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Infof("Accrual ticker started (every %s)", t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Accrual ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Accrual ticker stopped manually.")
			return
		case <-ticker.C:
			t.target.Tick()
			atomic.AddInt64(&t.tickNumber, 1)
		}
	}
}

// Stop gracefully stops the ticker. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// TickCount returns how many ticks have fired.
func (t *Ticker) TickCount() int64 {
	return atomic.LoadInt64(&t.tickNumber)
}
