package item

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	defs := DefaultCatalog()
	require.NoError(t, Validate(defs))
	assert.Equal(t, "click1", defs[0].ID)

	oneTime := 0
	for _, d := range defs {
		if d.Effect.Kind == EffectGlobalMultiplier {
			oneTime++
		}
	}
	assert.Equal(t, 2, oneTime)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string][]Definition{
		"missing id":     {{BaseCost: 1, Effect: PerClick(1)}},
		"duplicate id":   {{ID: "a", BaseCost: 1, Effect: PerClick(1)}, {ID: "a", BaseCost: 2, Effect: PerClick(1)}},
		"zero cost":      {{ID: "a", BaseCost: 0, Effect: PerClick(1)}},
		"shrinking cost": {{ID: "a", BaseCost: 10, CostGrowth: 0.9, Effect: PerClick(1)}},
		"unknown kind":   {{ID: "a", BaseCost: 10, Effect: Effect{Kind: "golden"}}},
		"bad factor":     {{ID: "a", BaseCost: 10, Effect: Multiplier(-1, 1)}},
		"nan amount":     {{ID: "a", BaseCost: 10, Effect: PerClick(math.NaN())}},
		"inf amount":     {{ID: "a", BaseCost: 10, Effect: PerInterval(math.Inf(1))}},
		"inf cost":       {{ID: "a", BaseCost: math.Inf(1), Effect: PerClick(1)}},
		"inf growth":     {{ID: "a", BaseCost: 10, CostGrowth: math.Inf(1), Effect: PerClick(1)}},
		"nan factor":     {{ID: "a", BaseCost: 10, Effect: Multiplier(math.NaN(), 1)}},
		"inf factor":     {{ID: "a", BaseCost: 10, Effect: Multiplier(2, math.Inf(1))}},
	}

	for name, defs := range cases {
		t.Run(name, func(t *testing.T) {
			err := Validate(defs)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDefinition))
		})
	}
}

func TestLoadCatalogYAML(t *testing.T) {
	src := `
items:
  - id: click1
    name: Golden Gloves
    base_cost: 40
    cost_growth: 1.6
    effect:
      kind: per_click
      amount: 3
  - id: auto1
    name: Mom
    base_cost: 100
    effect:
      kind: per_interval
      amount: 2
  - id: mult1
    name: Golden Rolling Pin
    base_cost: 500
    effect:
      kind: global_multiplier
      click_factor: 1.5
`
	defs, err := LoadCatalogYAML(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, defs, 3)

	assert.Equal(t, 40.0, defs[0].BaseCost)
	assert.Equal(t, 3.0, defs[0].Effect.Amount)

	mult := New(defs[2])
	assert.Equal(t, 1.0, mult.Effect.IntervalFactor)
	assert.Equal(t, 1.5, mult.Effect.ClickFactor)

	auto := New(defs[1])
	assert.Equal(t, DefaultCostGrowth, auto.CostGrowth)
}

func TestLoadCatalogYAMLRejectsUnknownFields(t *testing.T) {
	_, err := LoadCatalogYAML(strings.NewReader("items:\n  - id: a\n    price: 3\n"))
	require.Error(t, err)
}

func TestLoadCatalogYAMLRejectsNonFinite(t *testing.T) {
	for _, field := range []string{"amount: .nan", "amount: .inf"} {
		src := "items:\n  - id: a\n    base_cost: 10\n    effect:\n      kind: per_click\n      " + field + "\n"
		_, err := LoadCatalogYAML(strings.NewReader(src))
		assert.True(t, errors.Is(err, ErrInvalidDefinition), field)
	}
}

func TestLoadCatalogYAMLRejectsEmpty(t *testing.T) {
	_, err := LoadCatalogYAML(strings.NewReader("items: []\n"))
	assert.True(t, errors.Is(err, ErrInvalidDefinition))
}

func TestSuggest(t *testing.T) {
	ids := []string{"click1", "click2", "auto1", "mult1"}

	assert.Equal(t, "click1", Suggest("clik1", ids))
	assert.Equal(t, "auto1", Suggest("auto", ids))
	assert.Equal(t, "", Suggest("zzzzzzzz", ids))
	assert.Equal(t, "", Suggest("anything", nil))
}
