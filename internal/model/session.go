package model

import "time"

// Session is one polling identity scoped to a pairing. A pairing can have
// many live sessions (one per tab or device); sessions are never mutated
// after creation.
type Session struct {
	ID           int64     `db:"id" json:"id"`
	SessionToken string    `db:"session_token" json:"-"`
	PairingID    int64     `db:"pairing_id" json:"pairingId"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

type CreateSessionParams struct {
	SessionToken string
	PairingID    int64
}
