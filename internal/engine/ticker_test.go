package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
)

func TestTickerDrivesEngine(t *testing.T) {
	eng := newTestEngine(t)
	eng.Restore(RestoreInput{Levels: map[string]int{"mom": 2}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tk := NewTicker(eng, 5*time.Millisecond, logger.Discard())
	done := make(chan struct{})
	go func() {
		tk.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return tk.TickCount() >= 3 }, time.Second, time.Millisecond)
	tk.Stop()
	tk.Stop()
	<-done

	ticks := tk.TickCount()
	assert.Equal(t, float64(ticks)*2, eng.State().Balance)
}

func TestTickerDefaultsInterval(t *testing.T) {
	tk := NewTicker(newTestEngine(t), 0, logger.Discard())
	assert.Equal(t, DefaultTickRate, tk.interval)
}

func TestAutosaverSavesPeriodicallyAndOnStop(t *testing.T) {
	var saves int64
	save := func(ctx context.Context) error {
		n := atomic.AddInt64(&saves, 1)
		if n == 1 {
			return errors.New("quota exceeded")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := NewAutosaver(save, 5*time.Millisecond, logger.Discard())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return atomic.LoadInt64(&saves) >= 2 }, time.Second, time.Millisecond)
	before := atomic.LoadInt64(&saves)
	cancel()
	<-done

	assert.Greater(t, atomic.LoadInt64(&saves), before, "expected a final save on shutdown")
}
