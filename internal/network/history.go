// Package network - history.go
// Economy history endpoint: JSON export of recent purchases, resets and save recoveries.
package network

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/CookieClicker/internal/events"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
)

// defaultHistoryLimit bounds /api/history when no limit is given.
const defaultHistoryLimit = 50

// HistoryHandler serves the event log to the UI's history panel.
type HistoryHandler struct {
	eventLog *events.EventLog
	logger   *logger.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(el *events.EventLog, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{
		eventLog: el,
		logger:   log,
	}
}

// HistoryEvent is an event shaped for display.
type HistoryEvent struct {
	Seq       uint64      `json:"seq"`
	ID        string      `json:"id"`
	Timestamp string      `json:"timestamp"`
	Type      string      `json:"type"`
	ItemID    string      `json:"item_id,omitempty"`
	Summary   string      `json:"summary"`
	Impact    string      `json:"impact"`
	Details   interface{} `json:"details,omitempty"`
}

// HistoryResponse is the API response for /api/history.
type HistoryResponse struct {
	TotalEvents int            `json:"total_events"`
	FilteredBy  string         `json:"filtered_by,omitempty"`
	GeneratedAt string         `json:"generated_at"`
	Events      []HistoryEvent `json:"events"`
}

// HandleHistory returns the newest events, oldest first.
// GET /api/history?limit=N&type=ITEM_PURCHASED
func (hh *HistoryHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			hh.logger.Warnf("Rejected history request with limit %q", s)
			jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	eventType := r.URL.Query().Get("type")

	var source []events.GameEvent
	if eventType != "" {
		source = hh.eventLog.GetByType(events.EventType(eventType))
		if len(source) > limit {
			source = source[len(source)-limit:]
		}
	} else {
		source = hh.eventLog.Recent(limit)
	}

	out := make([]HistoryEvent, 0, len(source))
	for _, e := range source {
		out = append(out, convertToHistoryEvent(e))
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		TotalEvents: len(out),
		FilteredBy:  eventType,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      out,
	})
}

// HandleStats returns counts per event type over the retained log.
// GET /api/history/stats
func (hh *HistoryHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	all := hh.eventLog.Recent(0)
	stats := map[string]int{"total_events": len(all)}
	for _, e := range all {
		stats[string(e.Type)]++
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"stats":        stats,
	})
}

// RegisterRoutes sets up the history API routes.
func (hh *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/history", hh.HandleHistory)
	mux.HandleFunc("/api/history/stats", hh.HandleStats)
}

func convertToHistoryEvent(e events.GameEvent) HistoryEvent {
	return HistoryEvent{
		Seq:       e.Seq,
		ID:        e.ID,
		Timestamp: e.Timestamp.Format("15:04:05"),
		Type:      string(e.Type),
		ItemID:    e.TargetID,
		Summary:   summarizeEvent(e),
		Impact:    determineImpact(e),
		Details:   e.Payload,
	}
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(e events.GameEvent) string {
	switch e.Type {
	case events.EventTypeItemPurchased:
		if p, ok := e.Payload.(events.PurchasePayload); ok {
			return fmt.Sprintf("Bought %s for %s cookies.", p.ItemID, humanize.Commaf(p.Cost))
		}
		return "Bought " + e.TargetID + "."
	case events.EventTypePurchaseRejected:
		if p, ok := e.Payload.(events.PurchasePayload); ok {
			return fmt.Sprintf("Could not buy %s (%s).", p.ItemID, p.Reason)
		}
		return "Could not buy " + e.TargetID + "."
	case events.EventTypeGameReset:
		return "Progress was reset."
	case events.EventTypeGameRestored:
		return "Saved game restored."
	case events.EventTypeSaveCorrupted:
		return "Save file was corrupted and has been cleared."
	case events.EventTypeSaveFailed:
		return "Saving failed; progress is kept in memory."
	default:
		return "Something happened..."
	}
}

// determineImpact classifies the event impact.
func determineImpact(e events.GameEvent) string {
	switch e.Type {
	case events.EventTypeItemPurchased, events.EventTypeGameRestored:
		return "POSITIVE"
	case events.EventTypeSaveCorrupted, events.EventTypeSaveFailed, events.EventTypeGameReset:
		return "NEGATIVE"
	default:
		return "NEUTRAL"
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
