package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/billiards/internal/auth"
	"github.com/playmatatu/billiards/internal/config"
	"github.com/playmatatu/billiards/internal/game"
	"github.com/playmatatu/billiards/internal/logging"
	"github.com/playmatatu/billiards/internal/store"
)

type createGameRequest struct {
	Table string `json:"table"`
	Mode  string `json:"mode"`
	PIN   string `json:"pin"`
}

func playerTokenTTL(cfg *config.Config) time.Duration {
	if cfg.PlayerTokenHours > 0 {
		return time.Duration(cfg.PlayerTokenHours) * time.Hour
	}
	return 12 * time.Hour
}

func wsPath(token string) string {
	return "/api/v1/game/" + token + "/ws"
}

// CreateGame starts a session and returns the player token that drives it.
// An optional PIN lets the player get a new token later.
func CreateGame(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createGameRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
				return
			}
		}

		variant := game.TableStandard
		if req.Table != "" {
			v, err := game.ParseVariant(req.Table)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			variant = v
		}
		mode, err := game.ParseMode(req.Mode)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		pinHash, err := auth.HashPIN(req.PIN)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		info, err := game.Manager.CreateSession(c.Request.Context(), variant, mode, pinHash)
		if err != nil {
			respondError(c, err)
			return
		}

		playerToken, exp, err := auth.IssuePlayerToken(cfg.JWTSecret, info.Token, playerTokenTTL(cfg))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"session_token": info.Token,
			"player_token":  playerToken,
			"expires_at":    exp.UTC().Format(time.RFC3339),
			"ws_path":       wsPath(info.Token),
			"table":         info.Variant,
			"mode":          info.Mode,
		})
	}
}

// GetGameState returns the session snapshot. Sessions that have ended
// answer 410 from their stored record.
func GetGameState(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")

		snap, err := game.Manager.Snapshot(token)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{"session_token": token, "state": snap})
			return
		}
		if !errors.Is(err, game.ErrSessionNotFound) || st == nil {
			respondError(c, err)
			return
		}

		row, serr := st.GetSession(c.Request.Context(), token)
		switch {
		case errors.Is(serr, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case serr != nil:
			respondError(c, serr)
		case row.ClosedAt.Valid:
			c.JSON(http.StatusGone, gin.H{
				"error":     "session closed",
				"session":   row,
				"closed_at": row.ClosedAt.Time.UTC().Format(time.RFC3339),
			})
		default:
			c.JSON(http.StatusNotFound, gin.H{"error": "session is not live on this instance"})
		}
	}
}

type resumeRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// ResumeGame swaps the session PIN for a fresh player token.
func ResumeGame(st *store.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")

		var req resumeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pin required"})
			return
		}

		row, err := st.GetSession(c.Request.Context(), token)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		if row.ClosedAt.Valid {
			c.JSON(http.StatusGone, gin.H{"error": "session closed"})
			return
		}
		if err := auth.CheckPIN(row.PinHash, req.PIN); err != nil {
			logging.For("api").Warn("resume rejected", "session", token)
			c.JSON(http.StatusForbidden, gin.H{"error": "incorrect pin"})
			return
		}

		playerToken, exp, err := auth.IssuePlayerToken(cfg.JWTSecret, token, playerTokenTTL(cfg))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"session_token": token,
			"player_token":  playerToken,
			"expires_at":    exp.UTC().Format(time.RFC3339),
			"ws_path":       wsPath(token),
		})
	}
}

// CloseGame ends a session. The route is behind PlayerAuth.
func CloseGame() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := game.Manager.Close(c.Param("token"), "closed_by_player"); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ListShots returns the recorded shots of a session in order.
func ListShots(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		if _, err := st.GetSession(c.Request.Context(), token); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
				return
			}
			respondError(c, err)
			return
		}

		shots, err := st.ListShots(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}

		out := make([]gin.H, 0, len(shots))
		for _, s := range shots {
			item := gin.H{
				"shot_number":   s.ShotNumber,
				"player":        s.Player,
				"power":         s.Power,
				"angle":         s.Angle,
				"table":         s.TableVariant,
				"fired_at":      s.FiredAt.UTC().Format(time.RFC3339Nano),
				"pocketed":      store.SplitBallIDs(s.Pocketed),
				"cue_scratched": s.CueScratched,
				"ticks":         s.Ticks,
			}
			if s.SettledAt.Valid {
				item["settled_at"] = s.SettledAt.Time.UTC().Format(time.RFC3339Nano)
			}
			out = append(out, item)
		}
		c.JSON(http.StatusOK, gin.H{"session_token": token, "shots": out})
	}
}
