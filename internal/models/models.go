package models

import (
	"database/sql"
	"time"
)

// Session is a game session row. Live state lives in memory (and Redis);
// the row only records that the session existed and how it ended.
type Session struct {
	ID           int          `db:"id" json:"id"`
	Token        string       `db:"token" json:"token"`
	TableVariant string       `db:"table_variant" json:"table_variant"`
	Mode         string       `db:"mode" json:"mode"`
	PinHash      string       `db:"pin_hash" json:"-"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	ClosedAt     sql.NullTime `db:"closed_at" json:"closed_at,omitempty"`
}

// Shot is one fired shot. SettledAt and the outcome columns are filled in
// when the table comes to rest.
type Shot struct {
	ID           int          `db:"id" json:"id"`
	SessionToken string       `db:"session_token" json:"session_token"`
	ShotNumber   int          `db:"shot_number" json:"shot_number"`
	Player       int          `db:"player" json:"player"`
	Power        float64      `db:"power" json:"power"`
	Angle        float64      `db:"angle" json:"angle"`
	TableVariant string       `db:"table_variant" json:"table_variant"`
	FiredAt      time.Time    `db:"fired_at" json:"fired_at"`
	SettledAt    sql.NullTime `db:"settled_at" json:"settled_at,omitempty"`
	// Pocketed is the comma-separated ball IDs in pocketing order.
	Pocketed     string `db:"pocketed" json:"pocketed"`
	CueScratched bool   `db:"cue_scratched" json:"cue_scratched"`
	Ticks        int    `db:"ticks" json:"ticks"`
}
