package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/OriginProtocol/origin-bridge/internal/database"
	"github.com/OriginProtocol/origin-bridge/internal/model"
)

type PairingRepository interface {
	Create(ctx context.Context, params model.CreatePairingParams) (*model.Pairing, error)
	FindByID(ctx context.Context, id int64) (*model.Pairing, error)
	FindByClientToken(ctx context.Context, clientToken string) (*model.Pairing, error)
	// FindByClientTokenForUpdate takes a row lock; call it inside a transaction.
	FindByClientTokenForUpdate(ctx context.Context, clientToken string) (*model.Pairing, error)
	FindLinkedByClientToken(ctx context.Context, clientToken string) (*model.Pairing, error)
	FindByActiveCode(ctx context.Context, code string) (*model.Pairing, error)
	// FindByActiveCodeForUpdate serializes concurrent redemptions of one code.
	FindByActiveCodeForUpdate(ctx context.Context, code string) (*model.Pairing, error)
	FindLinkedByLinkIDAndWallet(ctx context.Context, linkID, walletToken string) (*model.Pairing, error)
	ListByWalletToken(ctx context.Context, walletToken string) ([]model.Pairing, error)
	CodeInUse(ctx context.Context, code string) (bool, error)
	SetCode(ctx context.Context, id int64, code string, expiresAt time.Time, returnURL string) error
	SetPendingCall(ctx context.Context, id int64, pendingCall *json.RawMessage) error
	MarkLinked(ctx context.Context, id int64, walletToken, currentRPC string, currentAccounts json.RawMessage, linkedAt time.Time) error
	MarkUnlinked(ctx context.Context, id int64) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) PairingRepository
}

type pairingRepo struct {
	db database.DBTX
}

func NewPairingRepository(db *sqlx.DB) PairingRepository {
	return &pairingRepo{db: db}
}

func (r *pairingRepo) WithTx(tx *sqlx.Tx) PairingRepository {
	return &pairingRepo{db: tx}
}

func (r *pairingRepo) Create(ctx context.Context, params model.CreatePairingParams) (*model.Pairing, error) {
	var p model.Pairing
	err := r.db.GetContext(ctx, &p, `
		INSERT INTO pairings (link_id, client_token, app_info)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.LinkID, params.ClientToken, params.AppInfo)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pairingRepo) FindByID(ctx context.Context, id int64) (*model.Pairing, error) {
	var p model.Pairing
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM pairings WHERE id = $1
	`, id)
	return HandleNotFound(&p, err)
}

func (r *pairingRepo) FindByClientToken(ctx context.Context, clientToken string) (*model.Pairing, error) {
	var p model.Pairing
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM pairings WHERE client_token = $1
	`, clientToken)
	return HandleNotFound(&p, err)
}

func (r *pairingRepo) FindByClientTokenForUpdate(ctx context.Context, clientToken string) (*model.Pairing, error) {
	var p model.Pairing
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM pairings WHERE client_token = $1 FOR UPDATE
	`, clientToken)
	return HandleNotFound(&p, err)
}

func (r *pairingRepo) FindLinkedByClientToken(ctx context.Context, clientToken string) (*model.Pairing, error) {
	var p model.Pairing
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM pairings WHERE client_token = $1 AND linked = TRUE
	`, clientToken)
	return HandleNotFound(&p, err)
}

func (r *pairingRepo) FindByActiveCode(ctx context.Context, code string) (*model.Pairing, error) {
	var p model.Pairing
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM pairings
		WHERE code = $1 AND code_expires_at > NOW()
	`, code)
	return HandleNotFound(&p, err)
}

func (r *pairingRepo) FindByActiveCodeForUpdate(ctx context.Context, code string) (*model.Pairing, error) {
	var p model.Pairing
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM pairings
		WHERE code = $1 AND code_expires_at > NOW()
		FOR UPDATE
	`, code)
	return HandleNotFound(&p, err)
}

func (r *pairingRepo) FindLinkedByLinkIDAndWallet(ctx context.Context, linkID, walletToken string) (*model.Pairing, error) {
	var p model.Pairing
	err := r.db.GetContext(ctx, &p, `
		SELECT * FROM pairings
		WHERE link_id = $1 AND wallet_token = $2 AND linked = TRUE
	`, linkID, walletToken)
	return HandleNotFound(&p, err)
}

func (r *pairingRepo) ListByWalletToken(ctx context.Context, walletToken string) ([]model.Pairing, error) {
	var pairings []model.Pairing
	err := r.db.SelectContext(ctx, &pairings, `
		SELECT * FROM pairings
		WHERE wallet_token = $1
		ORDER BY created_at DESC
	`, walletToken)
	return pairings, err
}

func (r *pairingRepo) CodeInUse(ctx context.Context, code string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM pairings
		WHERE code = $1 AND code_expires_at > NOW()
	`, code)
	return count > 0, err
}

func (r *pairingRepo) SetCode(ctx context.Context, id int64, code string, expiresAt time.Time, returnURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pairings SET
			code = $2,
			code_expires_at = $3,
			current_return_url = $4
		WHERE id = $1
	`, id, code, expiresAt, returnURL)
	return err
}

func (r *pairingRepo) SetPendingCall(ctx context.Context, id int64, pendingCall *json.RawMessage) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pairings SET pending_call = $2 WHERE id = $1
	`, id, pendingCall)
	return err
}

func (r *pairingRepo) MarkLinked(ctx context.Context, id int64, walletToken, currentRPC string, currentAccounts json.RawMessage, linkedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pairings SET
			wallet_token = $2,
			code = NULL,
			code_expires_at = NULL,
			linked = TRUE,
			current_rpc = $3,
			current_accounts = $4,
			pending_call = NULL,
			linked_at = $5
		WHERE id = $1
	`, id, walletToken, currentRPC, currentAccounts, linkedAt)
	return err
}

func (r *pairingRepo) MarkUnlinked(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pairings SET
			linked = FALSE,
			wallet_token = NULL
		WHERE id = $1
	`, id)
	return err
}
