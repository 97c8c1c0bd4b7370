// Package item defines the purchasable upgrades of the cookie shop.
// This package is PURE and must NOT import any infrastructure packages.
package item

import (
	"math"

	"github.com/MRamiBalles/CookieClicker/internal/domain/economy"
)

// EffectKind represents how an item changes the economy.
type EffectKind string

const (
	EffectPerClick         EffectKind = "per_click"         // Adds to cookies per click
	EffectPerInterval      EffectKind = "per_interval"      // Adds to cookies per second
	EffectGlobalMultiplier EffectKind = "global_multiplier" // One-time multiplier on both yields
)

// Effect is the payload attached to an EffectKind. Amount is used by the
// additive kinds, the factors by the multiplier kind.
type Effect struct {
	Kind           EffectKind `json:"kind" yaml:"kind"`
	Amount         float64    `json:"amount,omitempty" yaml:"amount,omitempty"`
	ClickFactor    float64    `json:"click_factor,omitempty" yaml:"click_factor,omitempty"`
	IntervalFactor float64    `json:"interval_factor,omitempty" yaml:"interval_factor,omitempty"`
}

// PerClick builds an effect adding n cookies per click per owned unit.
func PerClick(n float64) Effect {
	return Effect{Kind: EffectPerClick, Amount: n}
}

// PerInterval builds an effect adding n cookies per second per owned unit.
func PerInterval(n float64) Effect {
	return Effect{Kind: EffectPerInterval, Amount: n}
}

// Multiplier builds a one-time effect scaling both yields.
func Multiplier(click, interval float64) Effect {
	return Effect{Kind: EffectGlobalMultiplier, ClickFactor: click, IntervalFactor: interval}
}

// Item is a catalog entry plus the player's ownership of it.
// Only Purchase (and the engine's reset/restore) mutates Owned and Purchased.
type Item struct {
	Definition
	Owned     int  `json:"owned"`
	Purchased bool `json:"purchased"`
}

// New creates an unowned item from its definition.
func New(def Definition) *Item {
	return &Item{Definition: def.withDefaults()}
}

// IsOneTime reports whether the item can only be bought once.
func (it *Item) IsOneTime() bool {
	return it.Effect.Kind == EffectGlobalMultiplier
}

// CurrentCost is floor(BaseCost * CostGrowth^Owned). One-time items always cost BaseCost.
func (it *Item) CurrentCost() float64 {
	if it.IsOneTime() {
		return it.BaseCost
	}
	return math.Floor(it.BaseCost * math.Pow(it.CostGrowth, float64(it.Owned)))
}

// OwnedCeiling bounds ownership of items whose cost never overflows.
const OwnedCeiling = 1 << 16

// MaxOwned is the highest owned count whose next unit still has a finite
// cost, never above OwnedCeiling. One-time items report 1.
func (it *Item) MaxOwned() int {
	if it.IsOneTime() {
		return 1
	}
	cost := func(n int) float64 {
		return math.Floor(it.BaseCost * math.Pow(it.CostGrowth, float64(n)))
	}
	if it.CostGrowth <= 1 {
		return OwnedCeiling
	}

	n := int(math.Log(math.MaxFloat64/it.BaseCost) / math.Log(it.CostGrowth))
	if n < 0 {
		n = 0
	}
	if n > OwnedCeiling {
		n = OwnedCeiling
	}
	for n > 0 && math.IsInf(cost(n), 1) {
		n--
	}
	for n < OwnedCeiling && !math.IsInf(cost(n+1), 1) {
		n++
	}
	return n
}

// SoldOut reports whether no further unit can be bought.
func (it *Item) SoldOut() bool {
	if it.IsOneTime() {
		return it.Purchased
	}
	return it.Owned >= it.MaxOwned()
}

// CanAfford reports whether balance covers one more unit.
func (it *Item) CanAfford(balance float64) bool {
	return balance >= it.CurrentCost()
}

// ApplyEffect applies the effect of a single unit to the state.
// The multiplier is guarded by Purchased and applies at most once.
func (it *Item) ApplyEffect(s *economy.State) {
	switch it.Effect.Kind {
	case EffectPerClick:
		s.PerClickYield += it.Effect.Amount
	case EffectPerInterval:
		s.PerIntervalYield += it.Effect.Amount
	case EffectGlobalMultiplier:
		if it.Purchased {
			return
		}
		it.multiply(s)
		it.Purchased = true
	}
}

// Reapply re-applies what the item already contributes to a freshly reset
// state: one unit for additive kinds, the factors for a purchased multiplier.
// Ownership is left untouched.
func (it *Item) Reapply(s *economy.State) {
	if it.IsOneTime() {
		if it.Purchased {
			it.multiply(s)
		}
		return
	}
	it.ApplyEffect(s)
}

// Applications is how many times Reapply must run to rebuild the item's contribution.
func (it *Item) Applications() int {
	if it.IsOneTime() {
		if it.Purchased {
			return 1
		}
		return 0
	}
	return it.Owned
}

// Purchase buys one unit. It returns false, with no side effect, when the
// balance is too low or the item is sold out.
func (it *Item) Purchase(s *economy.State) bool {
	if it.SoldOut() {
		return false
	}
	if !it.CanAfford(s.Balance) {
		return false
	}

	s.Debit(it.CurrentCost())
	if !it.IsOneTime() {
		it.Owned++
	}
	it.ApplyEffect(s)
	return true
}

// Reset clears ownership.
func (it *Item) Reset() {
	it.Owned = 0
	it.Purchased = false
}

func (it *Item) multiply(s *economy.State) {
	// Factors of exactly 1 are skipped so the yield stays bit-identical.
	if it.Effect.ClickFactor != 1 {
		s.PerClickYield *= it.Effect.ClickFactor
	}
	if it.Effect.IntervalFactor != 1 {
		s.PerIntervalYield *= it.Effect.IntervalFactor
	}
}
