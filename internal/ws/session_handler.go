package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/billiards/internal/auth"
	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/game"
)

// PointerData is the payload of start_shot and update_shot.
type PointerData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type startGameData struct {
	Mode string `json:"mode"`
}

type selectTableData struct {
	Table string `json:"table"`
}

// GameHub is the single hub for all sessions on this instance.
var GameHub *Hub

func init() {
	GameHub = NewHub()
	go GameHub.Run()
}

// HandleGameEvent forwards session events to the session's client. It is
// installed as the game manager's listener and never blocks.
func HandleGameEvent(ev game.Event) {
	msg := OutMessage{Type: ev.Type, Data: ev.Data}
	if ev.Type == game.EventSessionClosed {
		GameHub.CloseSession(ev.Token, msg)
		return
	}
	GameHub.SendToSession(ev.Token, msg)
}

// HandleWebSocket upgrades a session's controlling connection. The player
// token comes in the pt query parameter.
func HandleWebSocket(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken := c.Param("token")
		playerToken := c.Query("pt")

		if sessionToken == "" || playerToken == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token and pt required"})
			return
		}
		if err := auth.VerifySession(cfg.JWTSecret, playerToken, sessionToken); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid player token"})
			return
		}
		if game.Manager == nil || !game.Manager.HasSession(sessionToken) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found on this instance"})
			return
		}

		snap, err := game.Manager.Snapshot(sessionToken)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		initial, err := json.Marshal(OutMessage{Type: "state", Data: snap})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger().Error("upgrade failed", "session", sessionToken, "err", err)
			return
		}

		client := &Client{
			hub:          GameHub,
			conn:         conn,
			sessionToken: sessionToken,
			send:         make(chan []byte, 256),
			registered:   make(chan struct{}),
		}
		// queued before the client is visible to the hub
		client.send <- initial
		GameHub.register <- client
		<-client.registered

		go client.writePump()
		go client.readPump()
	}
}

// readPump reads input messages until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger().Warn("unexpected close", "session", c.sessionToken, "err", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("Invalid message")
			continue
		}
		c.handleMessage(msg)
	}
}

// handleMessage applies one input message to the session.
func (c *Client) handleMessage(msg WSMessage) {
	gm := game.Manager
	token := c.sessionToken
	var err error

	switch msg.Type {
	case "start_game":
		var data startGameData
		if len(msg.Data) > 0 {
			if jerr := json.Unmarshal(msg.Data, &data); jerr != nil {
				c.sendError("Invalid start_game data")
				return
			}
		}
		mode, perr := game.ParseMode(data.Mode)
		if perr != nil {
			c.sendError(perr.Error())
			return
		}
		err = gm.StartGame(token, mode)

	case "show_menu":
		err = gm.ShowMenu(token)

	case "select_table":
		var data selectTableData
		if jerr := json.Unmarshal(msg.Data, &data); jerr != nil {
			c.sendError("Invalid select_table data")
			return
		}
		variant, perr := game.ParseVariant(data.Table)
		if perr != nil {
			c.sendError(perr.Error())
			return
		}
		err = gm.SelectTable(token, variant)

	case "reset_rack":
		err = gm.ResetRack(token)

	case "start_shot", "update_shot":
		var data PointerData
		if jerr := json.Unmarshal(msg.Data, &data); jerr != nil {
			c.sendError("Invalid pointer data")
			return
		}
		p := game.NewVec2(data.X, data.Y)
		if msg.Type == "start_shot" {
			_, err = gm.StartShot(token, p)
		} else {
			err = gm.UpdateShot(token, p)
		}

	case "release_shot":
		// a weak release is an aiming adjustment; shot_fired is sent by the
		// manager when the shot goes
		_, _, err = gm.ReleaseShot(token)

	case "cancel_shot":
		err = gm.CancelShot(token)

	case "get_state":
		c.sendState()
		return

	default:
		c.sendError("Unknown message type")
		return
	}

	if err != nil {
		c.sendManagerError(err)
	}
}

func (c *Client) sendState() {
	snap, err := game.Manager.Snapshot(c.sessionToken)
	if err != nil {
		c.sendManagerError(err)
		return
	}
	c.sendJSON(OutMessage{Type: "state", Data: snap})
}

func (c *Client) sendManagerError(err error) {
	switch {
	case errors.Is(err, game.ErrSessionNotFound), errors.Is(err, game.ErrSessionClosed):
		c.sendError("Session closed")
	case errors.Is(err, game.ErrUnknownTable), errors.Is(err, game.ErrInvalidMode):
		c.sendError(err.Error())
	default:
		logger().Error("session command failed", "session", c.sessionToken, "err", err)
		c.sendError("internal error")
	}
}
