package sim

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// AllReached reports whether every milestone was hit.
func (r Result) AllReached() bool {
	for _, m := range r.Milestones {
		if !m.Reached {
			return false
		}
	}
	return true
}

// WriteReport prints a human-readable summary of the session.
func WriteReport(w io.Writer, r Result) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "BALANCE SIMULATION")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Ticks:       %s (%s clicks/tick, strategy %s)\n",
		humanize.Comma(int64(r.Config.Ticks)), humanize.Comma(int64(r.Config.ClicksPerTick)), r.Config.Strategy)
	fmt.Fprintf(w, "Earned:      %s cookies\n", humanize.Commaf(r.Earned))
	fmt.Fprintf(w, "Balance:     %s cookies\n", humanize.Commaf(r.Final.Balance))
	fmt.Fprintf(w, "Per click:   %s\n", humanize.Commaf(r.Final.PerClickYield))
	fmt.Fprintf(w, "Per second:  %s\n", humanize.Commaf(r.Final.PerIntervalYield))
	fmt.Fprintf(w, "Purchases:   %d\n", r.Purchases)

	fmt.Fprintln(w, "\nMilestones:")
	for _, m := range r.Milestones {
		if m.Reached {
			fmt.Fprintf(w, "  %-16s reached after %s (tick %d)\n", humanize.Commaf(m.Target), m.After, m.Tick)
		} else {
			fmt.Fprintf(w, "  %-16s not reached\n", humanize.Commaf(m.Target))
		}
	}

	ids := make([]string, 0, len(r.Owned))
	for id := range r.Owned {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Fprintln(w, "\nOwned:")
	for _, id := range ids {
		fmt.Fprintf(w, "  %-10s %d\n", id, r.Owned[id])
	}
	fmt.Fprintln(w, rule)
}
