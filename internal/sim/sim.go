// Package sim runs offline balancing sessions: an engine driven by a scripted
// player who clicks at a fixed rate and buys greedily, reporting how long the
// catalog takes to reach cookie milestones.
package sim

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/MRamiBalles/CookieClicker/internal/domain/economy"
	"github.com/MRamiBalles/CookieClicker/internal/domain/item"
	"github.com/MRamiBalles/CookieClicker/internal/engine"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
)

// Strategy decides what the scripted player buys.
type Strategy string

const (
	// StrategyCheapest buys the cheapest affordable item.
	StrategyCheapest Strategy = "cheapest"
	// StrategyBestValue buys the affordable item with the lowest cost per
	// cookie of extra income.
	StrategyBestValue Strategy = "best-value"
)

// maxBuysPerTick stops a runaway buying loop on degenerate catalogs.
const maxBuysPerTick = 1000

// ErrBadConfig is wrapped by Run for unusable settings.
var ErrBadConfig = errors.New("sim: bad config")

// Config describes one session.
type Config struct {
	Ticks         int
	ClicksPerTick int
	TickInterval  time.Duration
	Strategy      Strategy
	// Milestones are lifetime-earned cookie totals, reported in ascending order.
	Milestones []float64
}

// DefaultConfig is a one-hour session at 5 clicks per second.
func DefaultConfig() Config {
	return Config{
		Ticks:         3600,
		ClicksPerTick: 5,
		TickInterval:  engine.DefaultTickRate,
		Strategy:      StrategyBestValue,
		Milestones:    []float64{1e3, 1e4, 1e5, 1e6},
	}
}

// MilestoneHit records when a milestone was first reached.
type MilestoneHit struct {
	Target  float64
	Reached bool
	Tick    int
	After   time.Duration
}

// Result summarizes a finished session.
type Result struct {
	Config     Config
	Earned     float64
	Final      economy.State
	Purchases  int
	Owned      map[string]int
	Milestones []MilestoneHit
}

// Run plays one session against a fresh engine.
func Run(defs []item.Definition, cfg Config, log *logger.Logger) (Result, error) {
	if cfg.Ticks <= 0 || cfg.ClicksPerTick < 0 {
		return Result{}, fmt.Errorf("%w: ticks must be positive and clicks non-negative", ErrBadConfig)
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = engine.DefaultTickRate
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyBestValue
	}
	if cfg.Strategy != StrategyCheapest && cfg.Strategy != StrategyBestValue {
		return Result{}, fmt.Errorf("%w: unknown strategy %q", ErrBadConfig, cfg.Strategy)
	}
	if log == nil {
		log = logger.Discard()
	}

	eng := engine.NewEngine(log)
	if err := eng.RegisterCatalog(defs); err != nil {
		return Result{}, err
	}

	res := Result{Config: cfg, Milestones: sortedMilestones(cfg.Milestones)}
	for tick := 1; tick <= cfg.Ticks; tick++ {
		for c := 0; c < cfg.ClicksPerTick; c++ {
			res.Earned += eng.Click()
		}
		res.Earned += eng.Tick()
		res.Purchases += buy(eng, cfg)

		for i := range res.Milestones {
			m := &res.Milestones[i]
			if !m.Reached && res.Earned >= m.Target {
				m.Reached = true
				m.Tick = tick
				m.After = time.Duration(tick) * cfg.TickInterval
			}
		}
	}

	snap := eng.Snapshot()
	res.Final = snap.State
	res.Owned = make(map[string]int, len(snap.Items))
	for _, v := range snap.Items {
		switch {
		case v.OneTime && v.Purchased:
			res.Owned[v.ID] = 1
		case v.Owned > 0:
			res.Owned[v.ID] = v.Owned
		}
	}
	log.Infof("Simulation finished: %d ticks, %s cookies earned, %d purchases",
		cfg.Ticks, logger.Amount(res.Earned), res.Purchases)
	return res, nil
}

// buy spends as long as the strategy finds an affordable item.
func buy(eng *engine.Engine, cfg Config) int {
	bought := 0
	for bought < maxBuysPerTick {
		id, ok := pick(eng.Snapshot(), cfg)
		if !ok {
			break
		}
		res, err := eng.Purchase(id)
		if err != nil || !res.Success {
			break
		}
		bought++
	}
	return bought
}

func pick(snap engine.Snapshot, cfg Config) (string, bool) {
	best := -1
	bestScore := math.Inf(1)
	for i, v := range snap.Items {
		if !v.Affordable {
			continue
		}
		score := v.Cost
		if cfg.Strategy == StrategyBestValue {
			gain := incomeGain(snap, v, cfg.ClicksPerTick)
			if gain <= 0 {
				continue
			}
			score = v.Cost / gain
		}
		if score < bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return "", false
	}
	return snap.Items[best].ID, true
}

// incomeGain estimates the extra cookies per tick one more unit of v yields.
func incomeGain(snap engine.Snapshot, v engine.ItemView, clicksPerTick int) float64 {
	clickMult, intervalMult := 1.0, 1.0
	for _, other := range snap.Items {
		if other.OneTime && other.Purchased {
			clickMult *= other.Effect.ClickFactor
			intervalMult *= other.Effect.IntervalFactor
		}
	}

	clicks := float64(clicksPerTick)
	switch v.Effect.Kind {
	case item.EffectPerClick:
		return v.Effect.Amount * clickMult * clicks
	case item.EffectPerInterval:
		return v.Effect.Amount * intervalMult
	case item.EffectGlobalMultiplier:
		st := snap.State
		return (v.Effect.ClickFactor-1)*st.PerClickYield*clicks + (v.Effect.IntervalFactor-1)*st.PerIntervalYield
	}
	return 0
}

func sortedMilestones(targets []float64) []MilestoneHit {
	hits := make([]MilestoneHit, 0, len(targets))
	for _, t := range targets {
		if t > 0 {
			hits = append(hits, MilestoneHit{Target: t})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Target < hits[j].Target })
	return hits
}
