package game

import (
	"errors"
	"fmt"
)

// GameState is the phase a session is in.
type GameState string

const (
	StateMenu     GameState = "menu"
	StateAiming   GameState = "aiming"
	StateMoving   GameState = "moving"
	StateGameOver GameState = "gameover" // terminal, entered only by rule logic outside the engine
)

// GameMode decides whether turns alternate.
type GameMode string

const (
	ModePractice  GameMode = "practice"
	ModeTwoPlayer GameMode = "twoPlayer"
)

var (
	ErrInvalidMode     = errors.New("invalid game mode")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
)

// ParseMode accepts "practice" or "twoPlayer" (also "two_player").
func ParseMode(s string) (GameMode, error) {
	switch s {
	case "practice", "":
		return ModePractice, nil
	case "twoPlayer", "two_player", "twoplayer":
		return ModeTwoPlayer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}
