package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/courtline/courtline-data/internal/config"
	"github.com/courtline/courtline-data/internal/stats"
	"github.com/courtline/courtline-data/internal/store"
)

func testRouter(t *testing.T) (*store.Memory, http.Handler) {
	t.Helper()
	m := store.NewMemory()
	cfg := &config.Config{CORSAllowOrigins: []string{"*"}}
	return m, NewRouter(m, cfg)
}

func seedPlayer(t *testing.T, m *store.Memory, id int, name string) {
	t.Helper()
	p := stats.Player{ID: id, FullName: name, Team: "LAL", Position: "Forward"}
	rows := []stats.SeasonRow{
		{PlayerID: id, Season: 2023, Team: "LAL", Games: 55, PointsPerGame: 28.9},
		{PlayerID: id, Season: 2024, Team: "LAL", Games: 71, PointsPerGame: 25.7},
	}
	p.Summary = stats.Summarize(rows)
	if err := m.SavePlayer(context.Background(), p, rows); err != nil {
		t.Fatalf("seed player: %v", err)
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestSearchPlayer(t *testing.T) {
	m, h := testRouter(t)
	seedPlayer(t, m, 3462, "LeBron James")

	rec := get(t, h, "/api/v1/players?name=lebron+james")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var p stats.Player
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.ID != 3462 || p.FullName != "LeBron James" {
		t.Fatalf("player = %+v", p)
	}
	if p.Summary.Points == 0 {
		t.Fatalf("career summary missing: %+v", p.Summary)
	}
}

func TestSearchPlayer_Errors(t *testing.T) {
	m, h := testRouter(t)
	seedPlayer(t, m, 1, "Somebody")

	rec := get(t, h, "/api/v1/players")
	if rec.Code != http.StatusBadRequest || decodeError(t, rec) != "MISSING_NAME" {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = get(t, h, "/api/v1/players?name=Nobody")
	if rec.Code != http.StatusNotFound || decodeError(t, rec) != "PLAYER_NOT_FOUND" {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestGetPlayer(t *testing.T) {
	m, h := testRouter(t)
	seedPlayer(t, m, 42, "Profile Guy")

	rec := get(t, h, "/api/v1/players/42")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	rec = get(t, h, "/api/v1/players/999")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	rec = get(t, h, "/api/v1/players/not-a-number")
	if rec.Code != http.StatusBadRequest || decodeError(t, rec) != "INVALID_ID" {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestGetPlayerSeasons(t *testing.T) {
	m, h := testRouter(t)
	seedPlayer(t, m, 42, "Season Guy")

	rec := get(t, h, "/api/v1/players/42/seasons")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var body struct {
		PlayerID int `json:"player_id"`
		Seasons  []struct {
			Season int     `json:"season"`
			Team   string  `json:"team"`
			Points float64 `json:"pts_per_game"`
		} `json:"seasons"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.PlayerID != 42 || len(body.Seasons) != 2 {
		t.Fatalf("body = %+v", body)
	}
	if body.Seasons[0].Season != 2023 || body.Seasons[1].Season != 2024 {
		t.Fatalf("seasons out of order: %+v", body.Seasons)
	}

	rec = get(t, h, "/api/v1/players/999/seasons")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown player", rec.Code)
	}
}

func TestRandomPlayers(t *testing.T) {
	m, h := testRouter(t)
	for i := 1; i <= 20; i++ {
		seedPlayer(t, m, i, "Random Filler")
	}

	rec := get(t, h, "/api/v1/players/random?limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var players []stats.Player
	if err := json.Unmarshal(rec.Body.Bytes(), &players); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(players) != 5 {
		t.Fatalf("players = %d, want 5", len(players))
	}

	// Out-of-range limits fall back to the default.
	rec = get(t, h, "/api/v1/players/random?limit=500")
	if err := json.Unmarshal(rec.Body.Bytes(), &players); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(players) != 10 {
		t.Fatalf("players = %d, want default limit", len(players))
	}
}

func TestHealthEndpoints(t *testing.T) {
	_, h := testRouter(t)

	for _, path := range []string{"/", "/health", "/health/db"} {
		rec := get(t, h, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, rec.Code)
		}
	}
}

func TestTimingHeader(t *testing.T) {
	_, h := testRouter(t)

	rec := get(t, h, "/health")
	if rec.Header().Get("X-Process-Time") == "" {
		t.Fatal("X-Process-Time header missing")
	}
}
