package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"coinwatch/internal/market"
	"coinwatch/internal/watchlist"
	"coinwatch/pkg/feed"

	"go.uber.org/zap"
)

// StateStore is the part of the watchlist store the handlers use.
type StateStore interface {
	Refresh(ctx context.Context) error
	ToggleWatch(ctx context.Context, id string) (bool, error)
	IsWatched(id string) bool
	Snapshot() watchlist.State
}

// HealthChecker reports whether the watchlist storage is reachable.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

type Handler struct {
	store  StateStore
	health HealthChecker
	hub    *Hub
	logger *zap.Logger
}

func NewHandler(store StateStore, health HealthChecker, hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{
		store:  store,
		health: health,
		hub:    hub,
		logger: logger,
	}
}

type CoinsResponse struct {
	Coins     []feed.CoinView `json:"coins"`
	Count     int             `json:"count"`
	IsLoading bool            `json:"is_loading"`
	LastError string          `json:"last_error,omitempty"`
}

type WatchedResponse struct {
	ID      string `json:"id"`
	Watched bool   `json:"watched"`
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Timestamp  int64             `json:"timestamp"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetCoins handles GET /coins?q=&sort=&desc=
func (h *Handler) GetCoins(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	key, err := market.ParseSortKey(q.Get("sort"))
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	desc := false
	if v := q.Get("desc"); v != "" {
		desc, err = strconv.ParseBool(v)
		if err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, "invalid desc parameter: "+v)
			return
		}
	}

	state := h.store.Snapshot()
	coins := market.Sorted(market.Search(state.AllCoins, q.Get("q")), key, desc)

	h.writeJSON(w, http.StatusOK, CoinsResponse{
		Coins:     feed.NewCoinViews(coins, state.WatchedIDs),
		Count:     len(coins),
		IsLoading: state.IsLoading,
		LastError: state.LastError,
	})
}

// GetWatchlist handles GET /watchlist
func (h *Handler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	state := h.store.Snapshot()
	h.writeJSON(w, http.StatusOK, CoinsResponse{
		Coins:     feed.NewCoinViews(state.WatchedCoins, state.WatchedIDs),
		Count:     len(state.WatchedCoins),
		IsLoading: state.IsLoading,
		LastError: state.LastError,
	})
}

// GetWatched handles GET /coins/{id}/watched
func (h *Handler) GetWatched(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.writeJSON(w, http.StatusOK, WatchedResponse{ID: id, Watched: h.store.IsWatched(id)})
}

// ToggleWatch handles POST /watchlist/{id}/toggle
func (h *Handler) ToggleWatch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	watched, err := h.store.ToggleWatch(r.Context(), id)
	if err != nil {
		if errors.Is(err, watchlist.ErrEmptyID) {
			h.writeErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeErrorResponse(w, http.StatusInternalServerError, "failed to toggle watch: "+err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, WatchedResponse{ID: id, Watched: watched})
}

// Refresh handles POST /refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	err := h.store.Refresh(r.Context())
	state := feed.NewStateMessage(h.store.Snapshot(), time.Now())

	if err != nil {
		h.writeJSON(w, http.StatusBadGateway, state)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

// GetState handles GET /state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, feed.NewStateMessage(h.store.Snapshot(), time.Now()))
}

// GetHealth handles GET /health
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status, storage := "healthy", "up"
	code := http.StatusOK
	if h.health != nil && !h.health.IsHealthy(ctx) {
		status, storage = "degraded", "down"
		code = http.StatusServiceUnavailable
	}

	marketData := "up"
	if h.store.Snapshot().LastError != "" {
		marketData = "failing"
	}

	h.writeJSON(w, code, HealthResponse{
		Status:     status,
		Components: map[string]string{"storage": storage, "market_data": marketData},
		Timestamp:  time.Now().Unix(),
	})
}

// ServeWS handles GET /ws
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r, h.store.Snapshot)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (h *Handler) writeErrorResponse(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
