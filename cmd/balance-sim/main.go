// Package main - balance-sim
// Executable to run offline balancing sessions against a catalog.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/MRamiBalles/CookieClicker/internal/domain/item"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
	"github.com/MRamiBalles/CookieClicker/internal/sim"
)

func main() {
	def := sim.DefaultConfig()

	ticks := flag.Int("ticks", def.Ticks, "Number of one-second ticks to simulate")
	clicks := flag.Int("clicks", def.ClicksPerTick, "Clicks per tick")
	strategy := flag.String("strategy", string(def.Strategy), "Buying strategy: cheapest or best-value")
	catalogPath := flag.String("catalog", "", "YAML catalog to balance (built-in catalog when empty)")
	milestones := flag.String("milestones", "1e3,1e4,1e5,1e6", "Comma-separated lifetime cookie milestones")
	strict := flag.Bool("strict", false, "Exit non-zero when a milestone is not reached")
	flag.Parse()

	appLogger := logger.NewLogger()

	defs := item.DefaultCatalog()
	if *catalogPath != "" {
		loaded, err := item.LoadCatalogFile(*catalogPath)
		if err != nil {
			appLogger.Error(err.Error())
			os.Exit(2)
		}
		defs = loaded
	}

	targets, err := parseMilestones(*milestones)
	if err != nil {
		appLogger.Error(err.Error())
		os.Exit(2)
	}

	cfg := def
	cfg.Ticks = *ticks
	cfg.ClicksPerTick = *clicks
	cfg.Strategy = sim.Strategy(*strategy)
	cfg.Milestones = targets

	res, err := sim.Run(defs, cfg, appLogger)
	if err != nil {
		appLogger.Error(err.Error())
		os.Exit(2)
	}
	sim.WriteReport(os.Stdout, res)

	if *strict && !res.AllReached() {
		fmt.Println("\nSome milestones were not reached: the catalog needs rebalancing.")
		os.Exit(1)
	}
}

func parseMilestones(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid milestone %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}
