package engine

import (
	"fmt"
	"sort"

	"github.com/MRamiBalles/CookieClicker/internal/domain/economy"
	"github.com/MRamiBalles/CookieClicker/internal/domain/item"
	"github.com/MRamiBalles/CookieClicker/internal/events"
)

// ItemView is a read-only copy of one shop entry for display and saving.
type ItemView struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Effect     item.Effect `json:"effect"`
	OneTime    bool        `json:"one_time"`
	Owned      int         `json:"owned"`
	Purchased  bool        `json:"purchased"`
	Cost       float64     `json:"cost"`
	Affordable bool        `json:"affordable"`
}

// Snapshot is a consistent copy of the whole session, taken under the engine lock.
// Version changes whenever the balance, yields or ownership change.
type Snapshot struct {
	Version uint64        `json:"version"`
	State   economy.State `json:"state"`
	Items   []ItemView    `json:"items"`
}

// Snapshot copies the current state and every item in display order.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	views := make([]ItemView, len(e.items))
	for i, it := range e.items {
		views[i] = ItemView{
			ID:         it.ID,
			Name:       it.Name,
			Effect:     it.Effect,
			OneTime:    it.IsOneTime(),
			Owned:      it.Owned,
			Purchased:  it.Purchased,
			Cost:       it.CurrentCost(),
			Affordable: it.CanAfford(e.state.Balance) && !it.SoldOut(),
		}
	}
	return Snapshot{Version: e.version, State: e.state, Items: views}
}

// RestoreInput is the ownership state read back from storage.
type RestoreInput struct {
	Balance   float64
	Levels    map[string]int
	Purchased map[string]bool
}

// Restore overwrites balance and ownership, then recomputes the yields.
// Ids unknown to the catalog are returned and otherwise ignored; catalog
// items missing from the input fall back to unowned. Levels above an item's
// MaxOwned are clamped to it.
func (e *Engine) Restore(in RestoreInput) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	balance := in.Balance
	if !(balance >= 0) {
		balance = 0
	}
	e.state.Balance = balance

	for _, it := range e.items {
		it.Reset()
		if it.IsOneTime() {
			it.Purchased = in.Purchased[it.ID]
			continue
		}
		if n := in.Levels[it.ID]; n > 0 {
			it.Owned = min(n, it.MaxOwned())
		}
	}
	e.recomputeLocked()
	e.version++

	var unknown []string
	for id := range in.Levels {
		if _, ok := e.byID[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	for id := range in.Purchased {
		if _, ok := e.byID[id]; !ok {
			if _, dup := in.Levels[id]; !dup {
				unknown = append(unknown, id)
			}
		}
	}
	sort.Strings(unknown)

	e.eventLog.Append(events.GameEvent{
		Type:    events.EventTypeGameRestored,
		ActorID: ActorSystem,
		Payload: map[string]interface{}{"balance": balance, "ignored_ids": unknown},
	})
	if len(unknown) > 0 {
		e.logger.Warn(fmt.Sprintf("Restore ignored %d ids not in the catalog: %v", len(unknown), unknown))
	}
	return unknown
}
