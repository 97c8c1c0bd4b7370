package item

import (
	"errors"
	"fmt"
	"math"
)

// DefaultCostGrowth is applied when a definition leaves CostGrowth unset.
const DefaultCostGrowth = 1.5

// ErrInvalidDefinition is returned when a catalog entry breaks a pricing or effect rule.
var ErrInvalidDefinition = errors.New("invalid item definition")

// Definition provides the static data of a shop item.
type Definition struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	BaseCost   float64 `json:"base_cost" yaml:"base_cost"`
	CostGrowth float64 `json:"cost_growth" yaml:"cost_growth"`
	Effect     Effect  `json:"effect" yaml:"effect"`
}

func (d Definition) withDefaults() Definition {
	if d.Effect.Kind == EffectGlobalMultiplier {
		d.CostGrowth = 1
		if d.Effect.ClickFactor == 0 {
			d.Effect.ClickFactor = 1
		}
		if d.Effect.IntervalFactor == 0 {
			d.Effect.IntervalFactor = 1
		}
		return d
	}
	if d.CostGrowth == 0 {
		d.CostGrowth = DefaultCostGrowth
	}
	return d
}

// Validate checks a full catalog: unique non-empty ids, positive base costs,
// growth of at least 1 and known effect kinds. Every number must be finite.
func Validate(defs []Definition) error {
	seen := make(map[string]bool, len(defs))
	for i, raw := range defs {
		d := raw.withDefaults()
		if d.ID == "" {
			return fmt.Errorf("%w: entry %d has no id", ErrInvalidDefinition, i)
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidDefinition, d.ID)
		}
		seen[d.ID] = true

		if !(d.BaseCost > 0) || math.IsInf(d.BaseCost, 1) {
			return fmt.Errorf("%w: %s base cost must be positive, got %v", ErrInvalidDefinition, d.ID, d.BaseCost)
		}
		if !(d.CostGrowth >= 1) || math.IsInf(d.CostGrowth, 1) {
			return fmt.Errorf("%w: %s cost growth must be >= 1, got %v", ErrInvalidDefinition, d.ID, d.CostGrowth)
		}

		switch d.Effect.Kind {
		case EffectPerClick, EffectPerInterval:
			if !(d.Effect.Amount >= 0) || math.IsInf(d.Effect.Amount, 1) {
				return fmt.Errorf("%w: %s effect amount must be finite and non-negative, got %v", ErrInvalidDefinition, d.ID, d.Effect.Amount)
			}
		case EffectGlobalMultiplier:
			if !finitePositive(d.Effect.ClickFactor) || !finitePositive(d.Effect.IntervalFactor) {
				return fmt.Errorf("%w: %s multiplier factors must be finite and positive", ErrInvalidDefinition, d.ID)
			}
		default:
			return fmt.Errorf("%w: %s has unknown effect kind %q", ErrInvalidDefinition, d.ID, d.Effect.Kind)
		}
	}
	return nil
}

func finitePositive(f float64) bool {
	return f > 0 && !math.IsInf(f, 1)
}

// DefaultCatalog returns the production shop in display order:
// click upgrades, auto producers, then the one-time multipliers.
func DefaultCatalog() []Definition {
	return []Definition{
		// --- Click upgrades ---
		{ID: "click1", Name: "Golden Gloves", BaseCost: 50, CostGrowth: 1.6, Effect: PerClick(2)},
		{ID: "click2", Name: "Magic Sugar", BaseCost: 300, CostGrowth: 1.6, Effect: PerClick(5)},
		{ID: "click3", Name: "Grandma's Recipe Book", BaseCost: 2500, CostGrowth: 1.6, Effect: PerClick(10)},
		{ID: "click4", Name: "Non-Stop Oven Timer", BaseCost: 10000, CostGrowth: 1.7, Effect: PerClick(20)},
		{ID: "click5", Name: "Industrial Ovens", BaseCost: 25000, CostGrowth: 1.7, Effect: PerClick(50)},
		{ID: "click6", Name: "Butterstorm", BaseCost: 25000, CostGrowth: 1.7, Effect: PerClick(50)},
		{ID: "click7", Name: "Master Chef Medal", BaseCost: 25000, CostGrowth: 1.7, Effect: PerClick(50)},
		{ID: "click8", Name: "Cookie Crown", BaseCost: 25000, CostGrowth: 1.7, Effect: PerClick(50)},
		{ID: "click9", Name: "Quantum Dough Mixer", BaseCost: 25000, CostGrowth: 1.7, Effect: PerClick(50)},
		{ID: "click10", Name: "The Cookie Singularity", BaseCost: 25000, CostGrowth: 1.7, Effect: PerClick(50)},

		// --- Auto producers ---
		{ID: "auto1", Name: "Mom", BaseCost: 100, CostGrowth: 1.5, Effect: PerInterval(1)},
		{ID: "auto2", Name: "Grandma", BaseCost: 500, CostGrowth: 1.5, Effect: PerInterval(5)},
		{ID: "auto3", Name: "Kitchen", BaseCost: 2000, CostGrowth: 1.6, Effect: PerInterval(15)},
		{ID: "auto4", Name: "Chef", BaseCost: 7000, CostGrowth: 1.6, Effect: PerInterval(40)},
		{ID: "auto5", Name: "Restaurant", BaseCost: 15000, CostGrowth: 1.6, Effect: PerInterval(100)},
		{ID: "auto6", Name: "Bakery", BaseCost: 50000, CostGrowth: 1.6, Effect: PerInterval(300)},
		{ID: "auto7", Name: "Factory", BaseCost: 120000, CostGrowth: 1.7, Effect: PerInterval(1000)},
		{ID: "auto8", Name: "Cookie City", BaseCost: 500000, CostGrowth: 1.7, Effect: PerInterval(5000)},
		{ID: "auto9", Name: "Cookie Land", BaseCost: 2500000, CostGrowth: 1.8, Effect: PerInterval(25000)},
		{ID: "auto10", Name: "Cookie Universe", BaseCost: 10000000, CostGrowth: 1.8, Effect: PerInterval(100000)},

		// --- One-time multipliers ---
		{ID: "mult1", Name: "Golden Rolling Pin", BaseCost: 500, Effect: Multiplier(1.5, 1)},
		{ID: "mult2", Name: "Sugar Rush Contract", BaseCost: 50000, Effect: Multiplier(2, 2)},
	}
}
