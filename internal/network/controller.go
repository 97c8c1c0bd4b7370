package network

import (
	"context"

	"github.com/MRamiBalles/CookieClicker/internal/engine"
	"github.com/MRamiBalles/CookieClicker/internal/persistence"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
)

// Controller is the single entry point for player commands, shared by the
// websocket clients and the HTTP API.
type Controller struct {
	engine *engine.Engine
	saves  *persistence.Adapter
	logger *logger.Logger
}

// NewController binds commands to an engine. saves may be nil, in which case
// Save and the storage half of Reset are no-ops.
func NewController(eng *engine.Engine, saves *persistence.Adapter, log *logger.Logger) *Controller {
	return &Controller{engine: eng, saves: saves, logger: log}
}

// Engine returns the controlled engine.
func (c *Controller) Engine() *engine.Engine {
	return c.engine
}

func (c *Controller) Click() float64 {
	return c.engine.Click()
}

func (c *Controller) Purchase(id string) (engine.PurchaseResult, error) {
	return c.engine.Purchase(id)
}

// Reset returns the session to baseline and removes the stored save.
func (c *Controller) Reset(ctx context.Context) error {
	c.engine.ResetToBaseline()
	if c.saves == nil {
		return nil
	}
	return c.saves.Clear(ctx)
}

// Save writes the session now.
func (c *Controller) Save(ctx context.Context) error {
	if c.saves == nil {
		return nil
	}
	return c.saves.Save(ctx, c.engine)
}
