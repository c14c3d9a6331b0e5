package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/billiards/internal/auth"
	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/game"
)

const testSecret = "ws-test-secret"

type inbound struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func setup(t *testing.T) (*httptest.Server, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{JWTSecret: testSecret, TickRate: 1000, FrameBroadcastEvery: 1}
	gm := game.NewGameManager(game.DefaultCatalog(), nil, nil, cfg)
	gm.SetListener(HandleGameEvent)
	ctx, cancel := context.WithCancel(context.Background())
	gm.Start(ctx)
	game.Manager = gm

	r := gin.New()
	r.GET("/api/v1/game/:token/ws", HandleWebSocket(cfg))
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		sctx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		gm.Shutdown(sctx)
	})
	return srv, cfg
}

func newSession(t *testing.T, cfg *config.Config, mode game.GameMode) (string, string) {
	t.Helper()
	info, err := game.Manager.CreateSession(context.Background(), game.TableStandard, mode, "")
	if err != nil {
		t.Fatal(err)
	}
	pt, _, err := auth.IssuePlayerToken(cfg.JWTSecret, info.Token, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return info.Token, pt
}

func dial(t *testing.T, srv *httptest.Server, token, pt string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/game/" + token + "/ws?pt=" + pt
	return websocket.DefaultDialer.Dial(url, nil)
}

func send(t *testing.T, conn *websocket.Conn, typ string, data interface{}) {
	t.Helper()
	msg := map[string]interface{}{"type": typ}
	if data != nil {
		msg["data"] = data
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil reads messages until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string, timeout time.Duration) inbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

// readUntilClosed drains the connection until the server closes it.
func readUntilClosed(conn *websocket.Conn, timeout time.Duration) (seen []string, closed bool) {
	conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			return seen, !strings.Contains(err.Error(), "timeout")
		}
		seen = append(seen, msg.Type)
	}
}

func TestWebSocketRejectsBadTokens(t *testing.T) {
	srv, cfg := setup(t)
	token, _ := newSession(t, cfg, game.ModePractice)

	other, _, _ := auth.IssuePlayerToken(cfg.JWTSecret, "some-other-session", time.Hour)
	if _, resp, err := dial(t, srv, token, other); err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("token for another session: err %v", err)
	}

	pt, _, _ := auth.IssuePlayerToken(cfg.JWTSecret, "missing", time.Hour)
	if _, resp, err := dial(t, srv, "missing", pt); err == nil || resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown session: err %v", err)
	}
}

func TestWebSocketShotFlow(t *testing.T) {
	srv, cfg := setup(t)
	token, pt := newSession(t, cfg, game.ModeTwoPlayer)

	conn, _, err := dial(t, srv, token, pt)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	first := readUntil(t, conn, "state", 2*time.Second)
	var snap game.Snapshot
	if err := json.Unmarshal(first.Data, &snap); err != nil {
		t.Fatal(err)
	}
	if snap.State != game.StateAiming || len(snap.Balls) != game.NumBalls {
		t.Fatalf("initial state %+v", snap)
	}
	cue := snap.Balls.CueBall()

	send(t, conn, "start_shot", PointerData{X: cue.Position.X, Y: cue.Position.Y})
	send(t, conn, "update_shot", PointerData{X: cue.Position.X + 300, Y: cue.Position.Y})
	send(t, conn, "release_shot", nil)

	fired := readUntil(t, conn, game.EventShotFired, 2*time.Second)
	var info game.ShotInfo
	if err := json.Unmarshal(fired.Data, &info); err != nil || info.Number != 1 || info.Power != 25 {
		t.Fatalf("shot_fired %s (%v)", fired.Data, err)
	}

	settled := readUntil(t, conn, game.EventBallsSettled, 10*time.Second)
	var ev game.SettledEvent
	if err := json.Unmarshal(settled.Data, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.CurrentPlayer != 2 || ev.Shot == nil || ev.Shot.Number != 1 {
		t.Errorf("balls_settled %s", settled.Data)
	}
}

func TestWebSocketInputErrors(t *testing.T) {
	srv, cfg := setup(t)
	token, pt := newSession(t, cfg, game.ModePractice)

	conn, _, err := dial(t, srv, token, pt)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	readUntil(t, conn, "state", 2*time.Second)

	send(t, conn, "juggle", nil)
	if msg := readUntil(t, conn, "error", 2*time.Second); msg.Message != "Unknown message type" {
		t.Errorf("error message %q", msg.Message)
	}

	send(t, conn, "select_table", map[string]string{"table": "hexagon"})
	if msg := readUntil(t, conn, "error", 2*time.Second); !strings.Contains(msg.Message, "unknown table") {
		t.Errorf("error message %q", msg.Message)
	}

	send(t, conn, "select_table", map[string]string{"table": "cross"})
	send(t, conn, "get_state", nil)
	msg := readUntil(t, conn, "state", 2*time.Second)
	var snap game.Snapshot
	json.Unmarshal(msg.Data, &snap)
	if snap.Variant != game.TableCross {
		t.Errorf("table = %s, want cross", snap.Variant)
	}
}

func TestWebSocketNewerConnectionReplacesOlder(t *testing.T) {
	srv, cfg := setup(t)
	token, pt := newSession(t, cfg, game.ModePractice)

	first, _, err := dial(t, srv, token, pt)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	readUntil(t, first, "state", 2*time.Second)

	second, _, err := dial(t, srv, token, pt)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	readUntil(t, second, "state", 2*time.Second)

	if _, closed := readUntilClosed(first, 2*time.Second); !closed {
		t.Error("the older connection should be closed")
	}

	send(t, second, "reset_rack", nil)
	readUntil(t, second, game.EventFrame, 2*time.Second)
}

func TestSessionClosedEndsConnection(t *testing.T) {
	srv, cfg := setup(t)
	token, pt := newSession(t, cfg, game.ModePractice)

	conn, _, err := dial(t, srv, token, pt)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	readUntil(t, conn, "state", 2*time.Second)

	if err := game.Manager.Close(token, "test"); err != nil {
		t.Fatal(err)
	}
	seen, closed := readUntilClosed(conn, 2*time.Second)
	if !closed {
		t.Fatal("connection still open after session close")
	}
	if len(seen) == 0 || seen[len(seen)-1] != game.EventSessionClosed {
		t.Errorf("messages before close: %v", seen)
	}
}

func TestHandleSessionCommand(t *testing.T) {
	_, cfg := setup(t)
	token, _ := newSession(t, cfg, game.ModePractice)
	gm := game.Manager

	own, _ := json.Marshal(game.SessionCommand{Type: game.CommandCloseSession, Token: token, Origin: gm.InstanceID()})
	if handleSessionCommand(gm, own) || !gm.HasSession(token) {
		t.Fatal("a request this instance published must be ignored")
	}

	unknown, _ := json.Marshal(game.SessionCommand{Type: game.CommandCloseSession, Token: "nope", Origin: "peer"})
	if handleSessionCommand(gm, unknown) {
		t.Error("sessions owned elsewhere are ignored")
	}

	if handleSessionCommand(gm, []byte("{not json")) {
		t.Error("bad payload should be ignored")
	}

	peer, _ := json.Marshal(game.SessionCommand{Type: game.CommandCloseSession, Token: token, Reason: "idle", Origin: "peer"})
	if !handleSessionCommand(gm, peer) {
		t.Fatal("expected the session to be closed")
	}
	if gm.HasSession(token) {
		t.Error("session still live")
	}
}
