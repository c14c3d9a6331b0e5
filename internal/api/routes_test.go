package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/database"
	"github.com/playmatatu/billiards/internal/game"
	"github.com/playmatatu/billiards/internal/store"
)

type testServer struct {
	router *gin.Engine
	store  *store.Store
	cfg    *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(database.DriverSQLite, filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatal(err)
	}
	st := store.New(db)
	if err := st.EnsureSchema(context.Background()); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Environment:         "test",
		JWTSecret:           "api-test-secret",
		PlayerTokenHours:    1,
		TickRate:            1000,
		FrameBroadcastEvery: 1,
		SessionIdleMinutes:  30,
	}
	catalog := game.DefaultCatalog()
	gm := game.NewGameManager(catalog, st, nil, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	gm.Start(ctx)
	game.Manager = gm

	router := gin.New()
	SetupRoutes(router, st, catalog, cfg)

	t.Cleanup(func() {
		cancel()
		sctx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		gm.Shutdown(sctx)
		db.Close()
	})
	return &testServer{router: router, store: st, cfg: cfg}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, bearer string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func (ts *testServer) create(t *testing.T, body map[string]string) (string, string) {
	t.Helper()
	w, out := ts.do(t, http.MethodPost, "/api/v1/game", body, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	return out["session_token"].(string), out["player_token"].(string)
}

func TestHealthAndConfig(t *testing.T) {
	ts := newTestServer(t)

	w, out := ts.do(t, http.MethodGet, "/api/v1/health", nil, "")
	if w.Code != http.StatusOK || out["status"] != "ok" || out["database"] != "ok" {
		t.Errorf("health: %d %v", w.Code, out)
	}

	w, out = ts.do(t, http.MethodGet, "/api/v1/config", nil, "")
	if w.Code != http.StatusOK || out["tick_rate"] != float64(1000) {
		t.Errorf("config: %d %v", w.Code, out)
	}
	if tables, _ := out["tables"].([]interface{}); len(tables) != 4 {
		t.Errorf("config tables = %v", out["tables"])
	}
}

func TestTables(t *testing.T) {
	ts := newTestServer(t)

	w, out := ts.do(t, http.MethodGet, "/api/v1/tables", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("tables: %d", w.Code)
	}
	if tables, _ := out["tables"].([]interface{}); len(tables) != 4 {
		t.Errorf("tables = %v", out["tables"])
	}

	if w, _ := ts.do(t, http.MethodGet, "/api/v1/tables/donut", nil, ""); w.Code != http.StatusOK {
		t.Errorf("donut: %d", w.Code)
	}
	if w, _ := ts.do(t, http.MethodGet, "/api/v1/tables/hexagon", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("hexagon: %d", w.Code)
	}
}

func TestCreateGameValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"unknown table", map[string]string{"table": "hexagon"}},
		{"unknown mode", map[string]string{"mode": "doubles"}},
		{"short pin", map[string]string{"pin": "12"}},
		{"letters in pin", map[string]string{"pin": "12ab"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w, _ := ts.do(t, http.MethodPost, "/api/v1/game", tt.body, ""); w.Code != http.StatusBadRequest {
				t.Errorf("status %d, want 400", w.Code)
			}
		})
	}
}

func TestGameLifecycle(t *testing.T) {
	ts := newTestServer(t)
	token, pt := ts.create(t, map[string]string{"table": "elongated", "mode": "twoPlayer", "pin": "4321"})

	w, out := ts.do(t, http.MethodGet, "/api/v1/game/"+token, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("state: %d", w.Code)
	}
	state := out["state"].(map[string]interface{})
	if state["table"] != "elongated" || state["state"] != string(game.StateAiming) {
		t.Errorf("state = %v", state)
	}

	// fire one shot through the manager and wait for it to be stored
	gm := game.Manager
	snap, _ := gm.Snapshot(token)
	p := snap.Balls.CueBall().Position
	if _, err := gm.StartShot(token, p); err != nil {
		t.Fatal(err)
	}
	gm.UpdateShot(token, p.Plus(game.NewVec2(300, 0)))
	if _, fired, err := gm.ReleaseShot(token); err != nil || !fired {
		t.Fatalf("release: fired %v err %v", fired, err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		w, out = ts.do(t, http.MethodGet, "/api/v1/game/"+token+"/shots", nil, "")
		shots, _ := out["shots"].([]interface{})
		if w.Code == http.StatusOK && len(shots) == 1 {
			shot := shots[0].(map[string]interface{})
			if shot["power"] != float64(25) || shot["player"] != float64(1) {
				t.Errorf("shot = %v", shot)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("shot not recorded: %d %v", w.Code, out)
		}
		time.Sleep(20 * time.Millisecond)
	}

	// closing needs the player token for this session
	if w, _ := ts.do(t, http.MethodDelete, "/api/v1/game/"+token, nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("delete without token: %d", w.Code)
	}
	if w, _ := ts.do(t, http.MethodDelete, "/api/v1/game/"+token, nil, "junk"); w.Code != http.StatusForbidden {
		t.Errorf("delete with bad token: %d", w.Code)
	}
	if w, _ := ts.do(t, http.MethodDelete, "/api/v1/game/"+token, nil, pt); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}

	deadline = time.Now().Add(5 * time.Second)
	for {
		w, _ = ts.do(t, http.MethodGet, "/api/v1/game/"+token, nil, "")
		if w.Code == http.StatusGone {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("closed session: status %d", w.Code)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if w, _ := ts.do(t, http.MethodPost, "/api/v1/game/"+token+"/resume", map[string]string{"pin": "4321"}, ""); w.Code != http.StatusGone {
		t.Errorf("resume closed session: %d", w.Code)
	}
}

func TestResumeGame(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.create(t, map[string]string{"pin": "2468"})

	if w, _ := ts.do(t, http.MethodPost, "/api/v1/game/"+token+"/resume", map[string]string{"pin": "1111"}, ""); w.Code != http.StatusForbidden {
		t.Errorf("wrong pin: %d", w.Code)
	}
	if w, _ := ts.do(t, http.MethodPost, "/api/v1/game/"+token+"/resume", map[string]string{}, ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing pin: %d", w.Code)
	}
	if w, _ := ts.do(t, http.MethodPost, "/api/v1/game/nope/resume", map[string]string{"pin": "2468"}, ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown session: %d", w.Code)
	}

	w, out := ts.do(t, http.MethodPost, "/api/v1/game/"+token+"/resume", map[string]string{"pin": "2468"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("resume: %d %s", w.Code, w.Body.String())
	}
	pt, _ := out["player_token"].(string)
	if w, _ := ts.do(t, http.MethodDelete, "/api/v1/game/"+token, nil, pt); w.Code != http.StatusNoContent {
		t.Errorf("resumed token should close the session: %d", w.Code)
	}
}

func TestSessionWithoutPinCannotResume(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.create(t, map[string]string{"mode": "practice"})

	if w, _ := ts.do(t, http.MethodPost, "/api/v1/game/"+token+"/resume", map[string]string{"pin": "0000"}, ""); w.Code != http.StatusForbidden {
		t.Errorf("resume without pin: %d", w.Code)
	}
}

func TestUnknownSession(t *testing.T) {
	ts := newTestServer(t)

	if w, _ := ts.do(t, http.MethodGet, "/api/v1/game/missing", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("state: %d", w.Code)
	}
	if w, _ := ts.do(t, http.MethodGet, "/api/v1/game/missing/shots", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("shots: %d", w.Code)
	}
}
