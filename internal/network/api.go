package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/MRamiBalles/CookieClicker/internal/engine"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
)

// API exposes the player commands over plain HTTP for scripts and tests.
// The websocket channel remains the UI's primary transport.
type API struct {
	controller *Controller
	hub        *Hub
	logger     *logger.Logger
	clicks     *rate.Limiter
}

// PurchaseRequest is the body of POST /api/purchase.
type PurchaseRequest struct {
	ItemID string `json:"item_id"`
}

// NewAPI creates the HTTP API. hub may be nil; when set it is nudged after
// every mutation so websocket clients see the change immediately.
func NewAPI(ctrl *Controller, hub *Hub, log *logger.Logger, maxClicksPerSecond int) *API {
	if maxClicksPerSecond <= 0 {
		maxClicksPerSecond = 30
	}
	return &API{
		controller: ctrl,
		hub:        hub,
		logger:     log,
		clicks:     rate.NewLimiter(rate.Limit(maxClicksPerSecond), maxClicksPerSecond),
	}
}

// RegisterRoutes sets up the command and state routes.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", a.HandleState)
	mux.HandleFunc("/api/click", a.HandleClick)
	mux.HandleFunc("/api/purchase", a.HandlePurchase)
	mux.HandleFunc("/api/reset", a.HandleReset)
	mux.HandleFunc("/api/save", a.HandleSave)
}

// HandleState returns the current snapshot.
// GET /api/state
func (a *API) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, a.controller.Engine().Snapshot())
}

// HandleClick credits one click.
// POST /api/click
func (a *API) HandleClick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !a.clicks.Allow() {
		jsonError(w, "Too many clicks", http.StatusTooManyRequests)
		return
	}
	gained := a.controller.Click()
	a.notify()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"gained":  gained,
		"balance": a.controller.Engine().State().Balance,
	})
}

// HandlePurchase buys one unit of an item. A rejected purchase is still a
// 200 with success=false; only unknown ids are client errors.
// POST /api/purchase {"item_id": "..."}
func (a *API) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		jsonError(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	res, err := a.controller.Purchase(req.ItemID)
	if err != nil {
		var notFound *engine.ItemNotFoundError
		if errors.As(err, &notFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error":      err.Error(),
				"suggestion": notFound.Suggestion,
			})
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.notify()
	writeJSON(w, http.StatusOK, res)
}

// HandleReset wipes progress and the stored save.
// POST /api/reset
func (a *API) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	err := a.controller.Reset(ctx)
	a.notify()
	if err != nil {
		// The in-memory reset already happened; only the stored copy survived.
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSave writes the session now.
// POST /api/save
func (a *API) HandleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	start := time.Now()
	if err := a.controller.Save(ctx); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	a.logger.Infof("Manual save completed in %s", time.Since(start).Round(time.Millisecond))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) notify() {
	if a.hub != nil {
		a.hub.Notify()
	}
}
