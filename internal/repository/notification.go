package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/OriginProtocol/origin-bridge/internal/database"
	"github.com/OriginProtocol/origin-bridge/internal/model"
)

type NotificationEndpointRepository interface {
	// Upsert registers an endpoint, reactivating it if it already exists.
	Upsert(ctx context.Context, ethAddress, deviceToken string, provider model.NotificationProvider) (*model.NotificationEndpoint, error)
	FindActive(ctx context.Context, ethAddress, deviceToken string) (*model.NotificationEndpoint, error)
	ListActiveByAddress(ctx context.Context, ethAddress string) ([]model.NotificationEndpoint, error)
	Deactivate(ctx context.Context, id int64) error
}

type notificationEndpointRepo struct {
	db database.DBTX
}

func NewNotificationEndpointRepository(db *sqlx.DB) NotificationEndpointRepository {
	return &notificationEndpointRepo{db: db}
}

func (r *notificationEndpointRepo) Upsert(ctx context.Context, ethAddress, deviceToken string, provider model.NotificationProvider) (*model.NotificationEndpoint, error) {
	var ep model.NotificationEndpoint
	err := r.db.GetContext(ctx, &ep, `
		INSERT INTO notification_endpoints (eth_address, device_token, provider, active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (eth_address, device_token, provider)
		DO UPDATE SET active = TRUE
		RETURNING *
	`, ethAddress, deviceToken, provider)
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

func (r *notificationEndpointRepo) FindActive(ctx context.Context, ethAddress, deviceToken string) (*model.NotificationEndpoint, error) {
	var ep model.NotificationEndpoint
	err := r.db.GetContext(ctx, &ep, `
		SELECT * FROM notification_endpoints
		WHERE eth_address = $1 AND device_token = $2 AND active = TRUE
	`, ethAddress, deviceToken)
	return HandleNotFound(&ep, err)
}

func (r *notificationEndpointRepo) ListActiveByAddress(ctx context.Context, ethAddress string) ([]model.NotificationEndpoint, error) {
	var eps []model.NotificationEndpoint
	err := r.db.SelectContext(ctx, &eps, `
		SELECT * FROM notification_endpoints
		WHERE eth_address = $1 AND active = TRUE
		ORDER BY created_at ASC
	`, ethAddress)
	return eps, err
}

func (r *notificationEndpointRepo) Deactivate(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notification_endpoints SET active = FALSE WHERE id = $1
	`, id)
	return err
}
