package model

import (
	"encoding/json"
	"time"
)

// Pairing is the unit of trust between one requesting client and at most
// one wallet. The code is active only while the pairing is unlinked; it is
// cleared the moment a wallet redeems it.
type Pairing struct {
	ID               int64            `db:"id" json:"id"`
	LinkID           string           `db:"link_id" json:"linkId"`
	ClientToken      string           `db:"client_token" json:"-"`
	WalletToken      *string          `db:"wallet_token" json:"-"`
	Code             *string          `db:"code" json:"code,omitempty"`
	CodeExpiresAt    *time.Time       `db:"code_expires_at" json:"codeExpiresAt,omitempty"`
	CurrentRPC       *string          `db:"current_rpc" json:"currentRpc,omitempty"`
	CurrentAccounts  json.RawMessage  `db:"current_accounts" json:"currentAccounts,omitempty"`
	PendingCall      *json.RawMessage `db:"pending_call" json:"pendingCall,omitempty"`
	CurrentReturnURL *string          `db:"current_return_url" json:"currentReturnUrl,omitempty"`
	Linked           bool             `db:"linked" json:"linked"`
	AppInfo          *json.RawMessage `db:"app_info" json:"appInfo,omitempty"`
	LinkedAt         *time.Time       `db:"linked_at" json:"linkedAt,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"createdAt"`
}

// PendingCall is the single call payload a pairing can carry across the
// linking moment.
type PendingCall struct {
	CallID       string          `json:"call_id"`
	Call         json.RawMessage `json:"call"`
	SessionToken string          `json:"session_token,omitempty"`
	ReturnURL    string          `json:"return_url,omitempty"`
}

type CreatePairingParams struct {
	LinkID      string
	ClientToken string
	AppInfo     *json.RawMessage
}

// LinkSummary is what a wallet sees when listing its pairings.
type LinkSummary struct {
	LinkID    string           `json:"linkId"`
	Linked    bool             `json:"linked"`
	AppInfo   *json.RawMessage `json:"appInfo,omitempty"`
	LinkedAt  *time.Time       `json:"linkedAt,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}
