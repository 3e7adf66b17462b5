package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/OriginProtocol/origin-bridge/internal/database"
	"github.com/OriginProtocol/origin-bridge/internal/model"
)

type SessionRepository interface {
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	FindByToken(ctx context.Context, sessionToken string) (*model.Session, error)
	FindByTokenAndPairing(ctx context.Context, sessionToken string, pairingID int64) (*model.Session, error)
	ListByPairing(ctx context.Context, pairingID int64) ([]model.Session, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

type sessionRepo struct {
	db database.DBTX
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (session_token, pairing_id)
		VALUES ($1, $2)
		RETURNING *
	`, params.SessionToken, params.PairingID)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) FindByToken(ctx context.Context, sessionToken string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE session_token = $1
	`, sessionToken)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindByTokenAndPairing(ctx context.Context, sessionToken string, pairingID int64) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions
		WHERE session_token = $1 AND pairing_id = $2
	`, sessionToken, pairingID)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) ListByPairing(ctx context.Context, pairingID int64) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions
		WHERE pairing_id = $1
		ORDER BY created_at ASC
	`, pairingID)
	return sessions, err
}
