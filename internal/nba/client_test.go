package nba

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, 6000, 5*time.Second, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c
}

func TestListPlayers_ParsesRoster(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/commonallplayers" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("IsOnlyCurrentSeason") != "0" {
			t.Errorf("expected full historical roster request")
		}
		if r.Header.Get("User-Agent") == "" || r.Header.Get("Referer") == "" {
			t.Errorf("browser headers missing")
		}
		w.Write([]byte(`{"resultSets":[{"name":"CommonAllPlayers",
			"headers":["PERSON_ID","DISPLAY_FIRST_LAST","TEAM_ABBREVIATION","ROSTERSTATUS"],
			"rowSet":[[3462,"LeBron James","LAL",1],[76001,"Kareem Abdul-Jabbar","",0]]}]}`))
	})

	players, err := c.ListPlayers(context.Background())
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("players = %d, want 2", len(players))
	}
	if p := players[0]; p.ID != 3462 || p.FullName != "LeBron James" || p.Team != "LAL" || !p.Active {
		t.Fatalf("bad active player: %+v", p)
	}
	if players[1].Active {
		t.Fatalf("retired player flagged active: %+v", players[1])
	}
}

func TestCareerStats_ParsesSeasons(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("PerMode") != "PerGame" {
			t.Errorf("expected per-game stats request")
		}
		w.Write([]byte(`{"resultSets":[{"name":"SeasonTotalsRegularSeason",
			"headers":["SEASON_ID","TEAM_ABBREVIATION","GP","GS","MIN","PTS","AST","REB","STL","BLK","FG_PCT","FG3_PCT","FT_PCT","TOV"],
			"rowSet":[
				["2023-24","LAL",71,71,35.3,25.7,8.3,7.3,1.3,0.5,0.54,0.41,0.75,3.5],
				["2024-25","LAL",70,70,34.9,24.4,8.2,7.8,null,0.6,0.513,0.376,0.782,3.7]
			]}]}`))
	})

	rows, err := c.CareerStats(context.Background(), 3462)
	if err != nil {
		t.Fatalf("career stats: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	r := rows[0]
	if r.PlayerID != 3462 || r.Season != 2024 || r.Team != "LAL" {
		t.Fatalf("bad season key: %+v", r)
	}
	if r.Games != 71 || r.PointsPerGame != 25.7 {
		t.Fatalf("bad stats: %+v", r)
	}
	if !math.IsNaN(rows[1].StealsPerGame) {
		t.Fatalf("null cell should be NaN, got %v", rows[1].StealsPerGame)
	}
}

func TestCareerStats_MalformedSeasonLabel(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultSets":[{"name":"SeasonTotalsRegularSeason",
			"headers":["SEASON_ID","TEAM_ABBREVIATION"],"rowSet":[["garbage","LAL"]]}]}`))
	})

	_, err := c.CareerStats(context.Background(), 1)
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not-found so the item is skipped", err)
	}
}

func TestGetPlayerInfo_ParsesBirthYear(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultSets":[{"name":"CommonPlayerInfo",
			"headers":["DISPLAY_FIRST_LAST","TEAM_ABBREVIATION","POSITION","BIRTHDATE"],
			"rowSet":[["LeBron James","LAL","Forward","1984-12-30T00:00:00"]]}]}`))
	})

	info, err := c.GetPlayerInfo(context.Background(), 3462)
	if err != nil {
		t.Fatalf("player info: %v", err)
	}
	if info.FullName != "LeBron James" || info.Position != "Forward" {
		t.Fatalf("bad info: %+v", info)
	}
	if info.BirthYear == nil || *info.BirthYear != 1984 {
		t.Fatalf("birth year = %v, want 1984", info.BirthYear)
	}
}

func TestGet_ClassifiesStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		kind   Kind
	}{
		{http.StatusNotFound, KindNotFound},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusInternalServerError, KindTransient},
	}
	for _, tt := range tests {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})

		_, err := c.ListPlayers(context.Background())
		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("status %d: err = %v, want FetchError", tt.status, err)
		}
		if fe.Kind != tt.kind {
			t.Fatalf("status %d: kind = %v, want %v", tt.status, fe.Kind, tt.kind)
		}
	}
}

func TestFindSet_FallsBackToFirstSet(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultSets":[{"name":"SomethingElse",
			"headers":["PERSON_ID","DISPLAY_FIRST_LAST","TEAM_ABBREVIATION","ROSTERSTATUS"],
			"rowSet":[[9,"Only Player","NYK",1]]}]}`))
	})

	players, err := c.ListPlayers(context.Background())
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(players) != 1 || players[0].ID != 9 {
		t.Fatalf("fallback to first set failed: %+v", players)
	}
}

func TestNewClient_ZeroRequestRateDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"resultSets":[{"name":"CommonAllPlayers",
			"headers":["PERSON_ID","DISPLAY_FIRST_LAST","TEAM_ABBREVIATION","ROSTERSTATUS"],
			"rowSet":[[1,"Somebody","BOS",1]]}]}`))
	}))
	t.Cleanup(srv.Close)

	// An unset rate must fall back to a sane default, not a zero-rate
	// limiter that blocks every request until its context dies.
	c := NewClient(srv.URL, 0, 5*time.Second, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	players, err := c.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("list players with default rate: %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("players = %d, want 1", len(players))
	}
}

func TestRotateIdentity_Cycles(t *testing.T) {
	c := NewClient("http://example.invalid", 60, time.Second, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))

	start := c.identity
	for i := 0; i < len(identities); i++ {
		c.rotateIdentity()
	}
	if c.identity != start {
		t.Fatalf("identity = %d, want full cycle back to %d", c.identity, start)
	}
}
