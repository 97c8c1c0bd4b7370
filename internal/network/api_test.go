package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/CookieClicker/internal/engine"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
)

func newTestMux(t *testing.T, maxClicks int) (*http.ServeMux, *Controller) {
	t.Helper()
	ctrl, _ := newTestController(t)
	mux := http.NewServeMux()
	NewAPI(ctrl, nil, logger.Discard(), maxClicks).RegisterRoutes(mux)
	NewHistoryHandler(ctrl.Engine().EventLog(), logger.Discard()).RegisterRoutes(mux)
	return mux, ctrl
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAPIStateAndClick(t *testing.T) {
	mux, _ := newTestMux(t, 100)

	rec := do(mux, http.MethodPost, "/api/click", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var click map[string]float64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &click))
	assert.Equal(t, 1.0, click["gained"])
	assert.Equal(t, 1.0, click["balance"])

	rec = do(mux, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap engine.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 1.0, snap.State.Balance)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "gloves", snap.Items[0].ID)
	assert.False(t, snap.Items[0].Affordable)

	assert.Equal(t, http.StatusMethodNotAllowed, do(mux, http.MethodGet, "/api/click", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(mux, http.MethodPost, "/api/state", "").Code)
}

func TestAPIClickRateLimit(t *testing.T) {
	mux, _ := newTestMux(t, 2)

	assert.Equal(t, http.StatusOK, do(mux, http.MethodPost, "/api/click", "").Code)
	assert.Equal(t, http.StatusOK, do(mux, http.MethodPost, "/api/click", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(mux, http.MethodPost, "/api/click", "").Code)
}

func TestAPIPurchase(t *testing.T) {
	mux, ctrl := newTestMux(t, 100)

	rec := do(mux, http.MethodPost, "/api/purchase", `{"item_id":"gloves"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res engine.PurchaseResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Equal(t, engine.ReasonInsufficientFunds, res.Reason)

	for i := 0; i < 10; i++ {
		ctrl.Click()
	}
	rec = do(mux, http.MethodPost, "/api/purchase", `{"item_id":"gloves"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, 3.0, ctrl.Engine().State().PerClickYield)

	rec = do(mux, http.MethodPost, "/api/purchase", `{"item_id":"glovs"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	var notFound map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notFound))
	assert.Equal(t, "gloves", notFound["suggestion"])

	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodPost, "/api/purchase", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodPost, "/api/purchase", `{}`).Code)
}

func TestAPISaveAndReset(t *testing.T) {
	ctrl, store := newTestController(t)
	mux := http.NewServeMux()
	NewAPI(ctrl, nil, logger.Discard(), 0).RegisterRoutes(mux)

	ctrl.Click()
	require.Equal(t, http.StatusOK, do(mux, http.MethodPost, "/api/save", "").Code)
	payload, err := store.Get(context.Background(), testSaveKey)
	require.NoError(t, err)
	assert.Contains(t, payload, `"cookie":1`)

	require.Equal(t, http.StatusOK, do(mux, http.MethodPost, "/api/reset", "").Code)
	assert.Equal(t, 0.0, ctrl.Engine().State().Balance)

	store.FailWrites(errors.New("disk full"))
	assert.Equal(t, http.StatusServiceUnavailable, do(mux, http.MethodPost, "/api/save", "").Code)
}

func TestHistory(t *testing.T) {
	mux, ctrl := newTestMux(t, 100)
	for i := 0; i < 10; i++ {
		ctrl.Click()
	}
	_, err := ctrl.Purchase("gloves")
	require.NoError(t, err)
	_, err = ctrl.Purchase("mom")
	require.NoError(t, err)

	rec := do(mux, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Equal(t, 2, all.TotalEvents)
	assert.Equal(t, "ITEM_PURCHASED", all.Events[0].Type)
	assert.Equal(t, "Bought gloves for 10 cookies.", all.Events[0].Summary)
	assert.Equal(t, "POSITIVE", all.Events[0].Impact)
	assert.Equal(t, "PURCHASE_REJECTED", all.Events[1].Type)
	assert.Equal(t, "Could not buy mom (insufficient_funds).", all.Events[1].Summary)

	rec = do(mux, http.MethodGet, "/api/history?type=PURCHASE_REJECTED&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	assert.Equal(t, 1, filtered.TotalEvents)
	assert.Equal(t, "PURCHASE_REJECTED", filtered.FilteredBy)

	rec = do(mux, http.MethodGet, "/api/history?limit=1", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	require.Len(t, filtered.Events, 1)
	assert.Equal(t, "PURCHASE_REJECTED", filtered.Events[0].Type)

	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodGet, "/api/history?limit=zero", "").Code)

	rec = do(mux, http.MethodGet, "/api/history/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		Stats map[string]int `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Stats["total_events"])
	assert.Equal(t, 1, stats.Stats["ITEM_PURCHASED"])
}
