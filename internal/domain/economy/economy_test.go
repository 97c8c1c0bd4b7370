package economy

import "testing"

func TestBaseline(t *testing.T) {
	s := Baseline()
	if s.Balance != 0 || s.PerClickYield != 1 || s.PerIntervalYield != 0 {
		t.Errorf("Expected baseline {0 1 0}, got %+v", s)
	}
}

func TestResetYieldsKeepsBalance(t *testing.T) {
	s := State{Balance: 42, PerClickYield: 9, PerIntervalYield: 3}
	s.ResetYields()

	if s.Balance != 42 {
		t.Errorf("Expected balance to stay 42, got %v", s.Balance)
	}
	if s.PerClickYield != BaseClickYield || s.PerIntervalYield != BaseIntervalYield {
		t.Errorf("Expected base yields, got %+v", s)
	}
}

func TestCreditDebit(t *testing.T) {
	s := Baseline()
	s.Credit(15)
	if !s.CanAfford(15) {
		t.Errorf("Expected 15 to be affordable with balance %v", s.Balance)
	}
	s.Debit(10)
	if s.Balance != 5 {
		t.Errorf("Expected balance 5, got %v", s.Balance)
	}
	if s.CanAfford(6) {
		t.Errorf("Expected 6 to be unaffordable with balance %v", s.Balance)
	}
}
