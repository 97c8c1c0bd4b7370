// Package economy defines the player's resource balance and derived yields.
// This package is PURE and must NOT import any infrastructure packages.
package economy

const (
	// BaseClickYield is the per-click yield with no upgrades owned.
	BaseClickYield = 1.0
	// BaseIntervalYield is the per-interval yield with no upgrades owned.
	BaseIntervalYield = 0.0
)

// State holds the balance and the two derived yields of a game session.
// Yields are only written by item effects and by ResetYields.
type State struct {
	Balance          float64 `json:"balance"`
	PerClickYield    float64 `json:"per_click_yield"`
	PerIntervalYield float64 `json:"per_interval_yield"`
}

// Baseline returns a fresh state: empty balance, base yields.
func Baseline() State {
	return State{
		Balance:          0,
		PerClickYield:    BaseClickYield,
		PerIntervalYield: BaseIntervalYield,
	}
}

// ResetYields restores the base yields without touching the balance.
func (s *State) ResetYields() {
	s.PerClickYield = BaseClickYield
	s.PerIntervalYield = BaseIntervalYield
}

// Credit adds n cookies to the balance.
func (s *State) Credit(n float64) {
	s.Balance += n
}

// Debit removes n cookies. Callers check affordability first.
func (s *State) Debit(n float64) {
	s.Balance -= n
}

// CanAfford reports whether the balance covers cost.
func (s *State) CanAfford(cost float64) bool {
	return s.Balance >= cost
}
