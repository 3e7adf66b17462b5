package repository

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/OriginProtocol/origin-bridge/internal/database"
	"github.com/OriginProtocol/origin-bridge/internal/model"
)

// SessionMailboxRepository is the append-only message log a browser session
// polls. Ids are allocated by the database sequence, so they are strictly
// increasing within one mailbox.
type SessionMailboxRepository interface {
	Append(ctx context.Context, sessionID int64, msgType model.MessageType, data json.RawMessage) (*model.SessionMessage, error)
	// ListAfter returns messages with id > afterID, oldest first. afterID 0
	// returns everything.
	ListAfter(ctx context.Context, sessionID, afterID int64) ([]model.SessionMessage, error)
	// PurgeThrough deletes messages with id <= throughID. The predicate is
	// bounded by throughID so an append racing with the purge survives.
	PurgeThrough(ctx context.Context, sessionID, throughID int64) (int64, error)
	WithTx(tx *sqlx.Tx) SessionMailboxRepository
}

type sessionMailboxRepo struct {
	db database.DBTX
}

func NewSessionMailboxRepository(db *sqlx.DB) SessionMailboxRepository {
	return &sessionMailboxRepo{db: db}
}

func (r *sessionMailboxRepo) WithTx(tx *sqlx.Tx) SessionMailboxRepository {
	return &sessionMailboxRepo{db: tx}
}

func (r *sessionMailboxRepo) Append(ctx context.Context, sessionID int64, msgType model.MessageType, data json.RawMessage) (*model.SessionMessage, error) {
	var msg model.SessionMessage
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO session_messages (session_id, type, data)
		VALUES ($1, $2, $3)
		RETURNING *
	`, sessionID, msgType, data)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *sessionMailboxRepo) ListAfter(ctx context.Context, sessionID, afterID int64) ([]model.SessionMessage, error) {
	var msgs []model.SessionMessage
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM session_messages
		WHERE session_id = $1 AND id > $2
		ORDER BY id ASC
	`, sessionID, afterID)
	return msgs, err
}

func (r *sessionMailboxRepo) PurgeThrough(ctx context.Context, sessionID, throughID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM session_messages
		WHERE session_id = $1 AND id <= $2
	`, sessionID, throughID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// WalletMailboxRepository is the wallet-side message log, keyed by wallet
// token. Reads are additionally scoped by the caller's first account.
type WalletMailboxRepository interface {
	Append(ctx context.Context, walletToken, accounts string, msgType model.MessageType, data json.RawMessage) (*model.WalletMessage, error)
	ListAfter(ctx context.Context, walletToken, account string, afterID int64) ([]model.WalletMessage, error)
	PurgeThrough(ctx context.Context, walletToken, account string, throughID int64) (int64, error)
	WithTx(tx *sqlx.Tx) WalletMailboxRepository
}

type walletMailboxRepo struct {
	db database.DBTX
}

func NewWalletMailboxRepository(db *sqlx.DB) WalletMailboxRepository {
	return &walletMailboxRepo{db: db}
}

func (r *walletMailboxRepo) WithTx(tx *sqlx.Tx) WalletMailboxRepository {
	return &walletMailboxRepo{db: tx}
}

func (r *walletMailboxRepo) Append(ctx context.Context, walletToken, accounts string, msgType model.MessageType, data json.RawMessage) (*model.WalletMessage, error) {
	var msg model.WalletMessage
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO wallet_messages (wallet_token, accounts, type, data)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, walletToken, accounts, msgType, data)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// TODO: match on the exact account set instead of a substring of the first
// account; carried over from the original queue until wallets migrate.
func (r *walletMailboxRepo) ListAfter(ctx context.Context, walletToken, account string, afterID int64) ([]model.WalletMessage, error) {
	var msgs []model.WalletMessage
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM wallet_messages
		WHERE wallet_token = $1
		AND accounts LIKE '%' || $2 || '%'
		AND id > $3
		ORDER BY id ASC
	`, walletToken, account, afterID)
	return msgs, err
}

func (r *walletMailboxRepo) PurgeThrough(ctx context.Context, walletToken, account string, throughID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM wallet_messages
		WHERE wallet_token = $1
		AND accounts LIKE '%' || $2 || '%'
		AND id <= $3
	`, walletToken, account, throughID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
