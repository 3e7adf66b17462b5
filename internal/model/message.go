package model

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	MessageTypeNetwork      MessageType = "NETWORK"
	MessageTypeAccounts     MessageType = "ACCOUNTS"
	MessageTypeCall         MessageType = "CALL"
	MessageTypeCallResponse MessageType = "CALL_RESPONSE"
	MessageTypeLogout       MessageType = "LOGOUT"
)

// SessionMessage lives in a session's mailbox. IDs are strictly increasing
// per mailbox; rows are removed only by the owner's cumulative purge.
type SessionMessage struct {
	ID        int64           `db:"id" json:"id"`
	SessionID int64           `db:"session_id" json:"sessionId"`
	Type      MessageType     `db:"type" json:"type"`
	Data      json.RawMessage `db:"data" json:"data"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// WalletMessage lives in a wallet's mailbox, keyed by wallet token and
// tagged with the account context of the call that produced it.
type WalletMessage struct {
	ID          int64           `db:"id" json:"id"`
	WalletToken string          `db:"wallet_token" json:"walletToken"`
	Accounts    string          `db:"accounts" json:"accounts"`
	Type        MessageType     `db:"type" json:"type"`
	Data        json.RawMessage `db:"data" json:"data"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// CallData is the payload shape shared by CALL and CALL_RESPONSE entries.
type CallData struct {
	CallID       string          `json:"call_id"`
	Call         json.RawMessage `json:"call,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	SessionToken string          `json:"session_token,omitempty"`
	ReturnURL    string          `json:"return_url,omitempty"`
}
