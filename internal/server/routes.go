package server

import "net/http"

// SetRoutes registers the presentation API on router.
func SetRoutes(router *http.ServeMux, h *Handler) {
	// Market list
	router.HandleFunc("GET /coins", h.GetCoins)
	router.HandleFunc("GET /coins/{id}/watched", h.GetWatched)

	// Watchlist
	router.HandleFunc("GET /watchlist", h.GetWatchlist)
	router.HandleFunc("POST /watchlist/{id}/toggle", h.ToggleWatch)

	// State and manual refresh
	router.HandleFunc("GET /state", h.GetState)
	router.HandleFunc("POST /refresh", h.Refresh)
	router.HandleFunc("GET /ws", h.ServeWS)

	router.HandleFunc("GET /health", h.GetHealth)
}
