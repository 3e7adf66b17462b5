package model

import "time"

type NotificationProvider string

const (
	NotificationProviderAPN NotificationProvider = "APN"
	NotificationProviderFCM NotificationProvider = "FCM"
)

// NotificationEndpoint maps a checksummed Ethereum address and device token
// to a push provider. Re-registering an existing endpoint reactivates it.
type NotificationEndpoint struct {
	ID          int64                `db:"id" json:"id"`
	EthAddress  string               `db:"eth_address" json:"ethAddress"`
	DeviceToken string               `db:"device_token" json:"deviceToken"`
	Provider    NotificationProvider `db:"provider" json:"provider"`
	Active      bool                 `db:"active" json:"active"`
	CreatedAt   time.Time            `db:"created_at" json:"createdAt"`
}
