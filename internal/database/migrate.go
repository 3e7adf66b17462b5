package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Schema statements are idempotent so Migrate can run on every startup.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS pairings (
		id BIGSERIAL PRIMARY KEY,
		link_id TEXT NOT NULL UNIQUE,
		client_token TEXT NOT NULL UNIQUE,
		wallet_token TEXT,
		code TEXT,
		code_expires_at TIMESTAMPTZ,
		current_rpc TEXT,
		current_accounts JSONB,
		pending_call JSONB,
		current_return_url TEXT,
		linked BOOLEAN NOT NULL DEFAULT FALSE,
		app_info JSONB,
		linked_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pairings_wallet_token ON pairings (wallet_token)`,
	`CREATE INDEX IF NOT EXISTS idx_pairings_code ON pairings (code) WHERE code IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id BIGSERIAL PRIMARY KEY,
		session_token TEXT NOT NULL UNIQUE,
		pairing_id BIGINT NOT NULL REFERENCES pairings(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_pairing_id ON sessions (pairing_id)`,

	`CREATE TABLE IF NOT EXISTS session_messages (
		id BIGSERIAL PRIMARY KEY,
		session_id BIGINT NOT NULL REFERENCES sessions(id),
		type TEXT NOT NULL,
		data JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_session_messages_owner ON session_messages (session_id, id)`,

	`CREATE TABLE IF NOT EXISTS wallet_messages (
		id BIGSERIAL PRIMARY KEY,
		wallet_token TEXT NOT NULL,
		accounts TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		data JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wallet_messages_owner ON wallet_messages (wallet_token, id)`,

	`CREATE TABLE IF NOT EXISTS notification_endpoints (
		id BIGSERIAL PRIMARY KEY,
		eth_address TEXT NOT NULL,
		device_token TEXT NOT NULL,
		provider TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (eth_address, device_token, provider)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_endpoints_address ON notification_endpoints (eth_address)`,
}

// Migrate applies the schema. Statements are ordered; a failure aborts the
// remainder so a partially created schema is visible in the error.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	log.Info().Int("statements", len(migrations)).Msg("database schema up to date")
	return nil
}
