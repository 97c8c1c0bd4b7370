// Package engine contains the progression engine and its timers.
// This is the heartbeat of the cookie economy.
//
// ARCHITECTURAL RULE: yields are never edited by hand. Every change of item
// ownership is followed by a full recompute from owned items.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MRamiBalles/CookieClicker/internal/domain/economy"
	"github.com/MRamiBalles/CookieClicker/internal/domain/item"
	"github.com/MRamiBalles/CookieClicker/internal/events"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
	"github.com/MRamiBalles/CookieClicker/internal/platform/metrics"
)

// ActorPlayer and ActorSystem identify who triggered an event.
const (
	ActorPlayer = "PLAYER"
	ActorSystem = "SYSTEM"
)

// Rejection reasons reported in PurchaseResult.Reason.
const (
	ReasonInsufficientFunds = "insufficient_funds"
	ReasonAlreadyPurchased  = "already_purchased"
	ReasonSoldOut           = "sold_out"
)

var (
	// ErrItemNotFound is matched by errors.Is on every *ItemNotFoundError.
	ErrItemNotFound = errors.New("item not found")
	// ErrCatalogRegistered is returned by a second RegisterCatalog call.
	ErrCatalogRegistered = errors.New("catalog already registered")
)

// ItemNotFoundError is returned when a purchase names an id outside the catalog.
type ItemNotFoundError struct {
	ID         string
	Suggestion string
}

func (e *ItemNotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("item %q not found (did you mean %q?)", e.ID, e.Suggestion)
	}
	return fmt.Sprintf("item %q not found", e.ID)
}

func (e *ItemNotFoundError) Unwrap() error {
	return ErrItemNotFound
}

// PurchaseResult is the outcome of a purchase attempt. A failed purchase is a
// normal outcome, not an error.
type PurchaseResult struct {
	Success bool    `json:"success"`
	ItemID  string  `json:"item_id"`
	Cost    float64 `json:"cost"`
	Balance float64 `json:"balance"`
	Reason  string  `json:"reason,omitempty"`
}

// Engine is the central orchestrator of one game session.
type Engine struct {
	mu       sync.Mutex
	logger   *logger.Logger
	metrics  *metrics.Collector
	eventLog *events.EventLog

	// State
	state      economy.State
	items      []*item.Item
	byID       map[string]*item.Item
	registered bool
	version    uint64
}

// Option customizes an Engine.
type Option func(*Engine)

// WithMetrics reports clicks, ticks and purchases to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithEventLog records economy events into el instead of a private log.
func WithEventLog(el *events.EventLog) Option {
	return func(e *Engine) { e.eventLog = el }
}

// NewEngine creates an engine at baseline with an empty catalog.
func NewEngine(log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger: log,
		state:  economy.Baseline(),
		byID:   make(map[string]*item.Item),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.eventLog == nil {
		e.eventLog = events.NewEventLog(events.DefaultCapacity)
	}
	return e
}

// RegisterCatalog creates one item per definition, keeping display order.
// It may only be called once.
func (e *Engine) RegisterCatalog(defs []item.Definition) error {
	if err := item.Validate(defs); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.registered {
		return ErrCatalogRegistered
	}
	for _, def := range defs {
		it := item.New(def)
		e.items = append(e.items, it)
		e.byID[it.ID] = it
	}
	e.registered = true
	e.recomputeLocked()
	e.version++

	e.logger.Infof("Catalog registered with %d items", len(defs))
	return nil
}

// Click credits one click worth of cookies and returns the amount.
func (e *Engine) Click() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	gained := e.state.PerClickYield
	e.state.Credit(gained)
	e.version++
	e.metrics.RecordClick()
	return gained
}

// Tick credits one interval worth of cookies and returns the amount.
// Scheduling belongs to the caller (see Ticker).
func (e *Engine) Tick() float64 {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	gained := e.state.PerIntervalYield
	e.state.Credit(gained)
	if gained != 0 {
		e.version++
	}
	e.metrics.RecordTick(time.Since(start))
	return gained
}

// Purchase buys one unit of the item with the given id.
func (e *Engine) Purchase(id string) (PurchaseResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	it, ok := e.byID[id]
	if !ok {
		e.metrics.RecordUnknownItem()
		return PurchaseResult{ItemID: id, Balance: e.state.Balance}, &ItemNotFoundError{
			ID:         id,
			Suggestion: item.Suggest(id, e.idsLocked()),
		}
	}

	cost := it.CurrentCost()
	if !it.Purchase(&e.state) {
		reason := ReasonInsufficientFunds
		switch {
		case it.IsOneTime() && it.Purchased:
			reason = ReasonAlreadyPurchased
		case it.SoldOut():
			reason = ReasonSoldOut
		}
		e.metrics.RecordPurchase(false)
		e.eventLog.Append(events.GameEvent{
			Type:     events.EventTypePurchaseRejected,
			ActorID:  ActorPlayer,
			TargetID: id,
			Payload:  events.PurchasePayload{ItemID: id, Cost: cost, Owned: it.Owned, Balance: e.state.Balance, Reason: reason},
		})
		return PurchaseResult{ItemID: id, Cost: cost, Balance: e.state.Balance, Reason: reason}, nil
	}

	// Multipliers must land after every additive effect, whatever the purchase order.
	e.recomputeLocked()
	e.version++
	e.metrics.RecordPurchase(true)

	e.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeItemPurchased,
		ActorID:  ActorPlayer,
		TargetID: id,
		Payload:  events.PurchasePayload{ItemID: id, Cost: cost, Owned: it.Owned, Balance: e.state.Balance},
	})
	e.logger.Event(string(events.EventTypeItemPurchased), ActorPlayer,
		fmt.Sprintf("%s bought for %s cookies (balance %s)", it.Name, logger.Amount(cost), logger.Amount(e.state.Balance)))

	return PurchaseResult{Success: true, ItemID: id, Cost: cost, Balance: e.state.Balance}, nil
}

// RecomputeDerivedStats rebuilds both yields from owned items.
func (e *Engine) RecomputeDerivedStats() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recomputeLocked()
}

// recomputeLocked applies every additive unit, then every purchased multiplier.
func (e *Engine) recomputeLocked() {
	e.state.ResetYields()

	for _, it := range e.items {
		if it.IsOneTime() {
			continue
		}
		for i := 0; i < it.Applications(); i++ {
			it.Reapply(&e.state)
		}
	}
	for _, it := range e.items {
		if it.IsOneTime() && it.Applications() > 0 {
			it.Reapply(&e.state)
		}
	}
}

// ResetToBaseline empties the balance and every item's ownership.
func (e *Engine) ResetToBaseline() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Balance = 0
	for _, it := range e.items {
		it.Reset()
	}
	e.recomputeLocked()
	e.version++
	e.metrics.RecordReset()

	e.eventLog.Append(events.GameEvent{Type: events.EventTypeGameReset, ActorID: ActorPlayer})
	e.logger.Event(string(events.EventTypeGameReset), ActorPlayer, "Progress reset to baseline")
}

// ItemIDs returns the catalog ids in display order.
func (e *Engine) ItemIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.idsLocked()
}

func (e *Engine) idsLocked() []string {
	ids := make([]string, len(e.items))
	for i, it := range e.items {
		ids[i] = it.ID
	}
	return ids
}

// State returns a copy of the economy state.
func (e *Engine) State() economy.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// EventLog exposes the economy event log for the UI and the persistence adapter.
func (e *Engine) EventLog() *events.EventLog {
	return e.eventLog
}
