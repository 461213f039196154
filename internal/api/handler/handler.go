// Package handler provides HTTP handlers for the read API. Handlers read
// from the store directly — no service layer.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/courtline/courtline-data/internal/api/respond"
	"github.com/courtline/courtline-data/internal/store"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store store.Store
}

// New creates a Handler backed by the given store.
func New(st store.Store) *Handler {
	return &Handler{store: st}
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "Courtline Data API",
		"version": "1.0.0",
		"status":  "running",
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies store connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "DB_UNAVAILABLE", err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"status": "healthy"})
}

// SearchPlayer finds a player by exact name, case-insensitive.
// GET /api/v1/players?name=LeBron James
func (h *Handler) SearchPlayer(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_NAME", "Player name is required")
		return
	}

	p, err := h.store.SearchPlayer(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "PLAYER_NOT_FOUND", "Player not found")
		return
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, p)
}

// RandomPlayers returns a random selection of players.
// GET /api/v1/players/random?limit=10
func (h *Handler) RandomPlayers(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	players, err := h.store.RandomPlayers(r.Context(), limit)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, players)
}

// GetPlayer returns one player's profile and career summary.
// GET /api/v1/players/{playerID}
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "playerID"))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_ID", "Player ID must be an integer")
		return
	}

	p, err := h.store.GetPlayer(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "PLAYER_NOT_FOUND", "Player not found")
		return
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, p)
}

// GetPlayerSeasons returns a player's season rows, oldest first.
// GET /api/v1/players/{playerID}/seasons
func (h *Handler) GetPlayerSeasons(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "playerID"))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_ID", "Player ID must be an integer")
		return
	}

	if _, err := h.store.GetPlayer(r.Context(), id); errors.Is(err, store.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "PLAYER_NOT_FOUND", "Player not found")
		return
	} else if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}

	seasons, err := h.store.PlayerSeasons(r.Context(), id)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		return
	}

	type seasonJSON struct {
		Season           int     `json:"season"`
		Team             string  `json:"team"`
		Games            int     `json:"games"`
		GamesStarted     int     `json:"games_started"`
		MinutesPerGame   float64 `json:"minutes_per_game"`
		PointsPerGame    float64 `json:"pts_per_game"`
		AssistsPerGame   float64 `json:"ast_per_game"`
		ReboundsPerGame  float64 `json:"reb_per_game"`
		StealsPerGame    float64 `json:"stl_per_game"`
		BlocksPerGame    float64 `json:"blk_per_game"`
		FGPercent        float64 `json:"fg_percent"`
		FG3Percent       float64 `json:"fg3_percent"`
		FTPercent        float64 `json:"ft_percent"`
		TurnoversPerGame float64 `json:"tov_per_game"`
	}

	out := make([]seasonJSON, 0, len(seasons))
	for _, s := range seasons {
		out = append(out, seasonJSON{
			Season:           s.Season,
			Team:             s.Team,
			Games:            s.Games,
			GamesStarted:     s.GamesStarted,
			MinutesPerGame:   s.MinutesPerGame,
			PointsPerGame:    s.PointsPerGame,
			AssistsPerGame:   s.AssistsPerGame,
			ReboundsPerGame:  s.ReboundsPerGame,
			StealsPerGame:    s.StealsPerGame,
			BlocksPerGame:    s.BlocksPerGame,
			FGPercent:        s.FGPercent,
			FG3Percent:       s.FG3Percent,
			FTPercent:        s.FTPercent,
			TurnoversPerGame: s.TurnoversPerGame,
		})
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"player_id": id,
		"seasons":   out,
	})
}
