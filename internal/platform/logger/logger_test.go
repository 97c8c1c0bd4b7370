package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelsAndWriters(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewWithWriter(&out, &errOut)

	l.Info("oven on")
	l.Warnf("low %s", "sugar")
	l.Errorf("save failed: %v", "quota")
	l.Event("ITEM_PURCHASED", "PLAYER", "click1")

	if !strings.Contains(out.String(), "[COOKIE-INFO]") || !strings.Contains(out.String(), "oven on") {
		t.Errorf("Expected info line in stdout, got %q", out.String())
	}
	if !strings.Contains(out.String(), "[COOKIE-WARN]") || !strings.Contains(out.String(), "low sugar") {
		t.Errorf("Expected warn line in stdout, got %q", out.String())
	}
	if !strings.Contains(errOut.String(), "save failed: quota") {
		t.Errorf("Expected error line in stderr, got %q", errOut.String())
	}
	if !strings.Contains(out.String(), "[EVENT:ITEM_PURCHASED] Actor:PLAYER | click1") {
		t.Errorf("Expected event line, got %q", out.String())
	}
}

func TestAmount(t *testing.T) {
	cases := map[float64]string{
		0:       "0",
		1234567: "1,234,567",
		1500.5:  "1,500.5",
	}
	for in, want := range cases {
		if got := Amount(in); got != want {
			t.Errorf("Amount(%v): expected %q, got %q", in, want, got)
		}
	}
}
