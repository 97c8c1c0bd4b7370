// Package metrics provides observability for the cookie server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers gameplay and infrastructure counters.
// All Record methods are safe on a nil *Collector.
type Collector struct {
	// Economy
	Clicks            int64
	Ticks             int64
	TickLatencySum    int64 // nanoseconds
	TickLatencyMax    int64
	PurchasesOK       int64
	PurchasesRejected int64
	PurchasesNotFound int64
	Resets            int64

	// Persistence
	Saves          int64
	SaveErrors     int64
	SaveLatencySum int64
	LoadsRestored  int64
	LoadsNoSave    int64
	LoadsCorrupted int64

	// WebSocket
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	StartTime    time.Time
	LastTickTime time.Time
	LastSaveTime time.Time
	mu           sync.RWMutex
}

// Global collector instance
var collector = New()

// New returns an empty collector; tests use their own.
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordClick records a manual click.
func (c *Collector) RecordClick() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.Clicks, 1)
}

// RecordTick records an accrual tick and how long it took.
func (c *Collector) RecordTick(latency time.Duration) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.Ticks, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordPurchase records a purchase attempt outcome.
func (c *Collector) RecordPurchase(success bool) {
	if c == nil {
		return
	}
	if success {
		atomic.AddInt64(&c.PurchasesOK, 1)
	} else {
		atomic.AddInt64(&c.PurchasesRejected, 1)
	}
}

// RecordUnknownItem records a purchase for an id outside the catalog.
func (c *Collector) RecordUnknownItem() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.PurchasesNotFound, 1)
}

// RecordReset records an explicit reset to baseline.
func (c *Collector) RecordReset() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.Resets, 1)
}

// RecordSave records a save attempt.
func (c *Collector) RecordSave(latency time.Duration, err error) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.Saves, 1)
	atomic.AddInt64(&c.SaveLatencySum, int64(latency))
	if err != nil {
		atomic.AddInt64(&c.SaveErrors, 1)
		return
	}
	c.mu.Lock()
	c.LastSaveTime = time.Now()
	c.mu.Unlock()
}

// RecordLoad records a load outcome by name ("restored", "no_save", "corrupted").
func (c *Collector) RecordLoad(outcome string) {
	if c == nil {
		return
	}
	switch outcome {
	case "restored":
		atomic.AddInt64(&c.LoadsRestored, 1)
	case "no_save":
		atomic.AddInt64(&c.LoadsNoSave, 1)
	case "corrupted":
		atomic.AddInt64(&c.LoadsCorrupted, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if c == nil {
		return
	}
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	if c == nil {
		return
	}
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ticks := atomic.LoadInt64(&c.Ticks)
	saves := atomic.LoadInt64(&c.Saves)

	var tickAvg, saveAvg float64
	if ticks > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(ticks) / 1e6 // ms
	}
	if saves > 0 {
		saveAvg = float64(atomic.LoadInt64(&c.SaveLatencySum)) / float64(saves) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"economy": map[string]interface{}{
			"clicks":             atomic.LoadInt64(&c.Clicks),
			"ticks":              ticks,
			"avg_tick_ms":        tickAvg,
			"max_tick_ms":        float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":          c.LastTickTime.Format(time.RFC3339),
			"purchases_ok":       atomic.LoadInt64(&c.PurchasesOK),
			"purchases_rejected": atomic.LoadInt64(&c.PurchasesRejected),
			"purchases_notfound": atomic.LoadInt64(&c.PurchasesNotFound),
			"resets":             atomic.LoadInt64(&c.Resets),
		},

		"persistence": map[string]interface{}{
			"saves":           saves,
			"save_errors":     atomic.LoadInt64(&c.SaveErrors),
			"avg_save_ms":     saveAvg,
			"last_save":       c.LastSaveTime.Format(time.RFC3339),
			"loads_restored":  atomic.LoadInt64(&c.LoadsRestored),
			"loads_no_save":   atomic.LoadInt64(&c.LoadsNoSave),
			"loads_corrupted": atomic.LoadInt64(&c.LoadsCorrupted),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		counter := func(name, help string, v int64) {
			fmt.Fprintf(w, "# HELP %s %s\n", name, help)
			fmt.Fprintf(w, "# TYPE %s counter\n", name)
			fmt.Fprintf(w, "%s %d\n\n", name, v)
		}

		counter("cookie_clicks_total", "Total manual clicks", atomic.LoadInt64(&c.Clicks))
		counter("cookie_ticks_total", "Total accrual ticks", atomic.LoadInt64(&c.Ticks))

		fmt.Fprintf(w, "# HELP cookie_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE cookie_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "cookie_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP cookie_purchases_total Purchase attempts by outcome\n")
		fmt.Fprintf(w, "# TYPE cookie_purchases_total counter\n")
		fmt.Fprintf(w, "cookie_purchases_total{outcome=\"ok\"} %d\n", atomic.LoadInt64(&c.PurchasesOK))
		fmt.Fprintf(w, "cookie_purchases_total{outcome=\"rejected\"} %d\n", atomic.LoadInt64(&c.PurchasesRejected))
		fmt.Fprintf(w, "cookie_purchases_total{outcome=\"not_found\"} %d\n\n", atomic.LoadInt64(&c.PurchasesNotFound))

		counter("cookie_saves_total", "Total save attempts", atomic.LoadInt64(&c.Saves))
		counter("cookie_save_errors_total", "Total failed saves", atomic.LoadInt64(&c.SaveErrors))

		fmt.Fprintf(w, "# HELP cookie_loads_total Loads by outcome\n")
		fmt.Fprintf(w, "# TYPE cookie_loads_total counter\n")
		fmt.Fprintf(w, "cookie_loads_total{outcome=\"restored\"} %d\n", atomic.LoadInt64(&c.LoadsRestored))
		fmt.Fprintf(w, "cookie_loads_total{outcome=\"no_save\"} %d\n", atomic.LoadInt64(&c.LoadsNoSave))
		fmt.Fprintf(w, "cookie_loads_total{outcome=\"corrupted\"} %d\n\n", atomic.LoadInt64(&c.LoadsCorrupted))

		fmt.Fprintf(w, "# HELP cookie_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE cookie_ws_connections gauge\n")
		fmt.Fprintf(w, "cookie_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP cookie_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE cookie_ws_messages_total counter\n")
		fmt.Fprintf(w, "cookie_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "cookie_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
