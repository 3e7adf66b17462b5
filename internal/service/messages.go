package service

import (
	"encoding/json"
	"fmt"

	"github.com/OriginProtocol/origin-bridge/internal/model"
)

// Message is the wire shape of one mailbox entry. The payload fields are
// populated per type; consumers switch on Type and ignore the rest.
type Message struct {
	Type         model.MessageType `json:"type"`
	ID           int64             `json:"id"`
	NetworkRPC   string            `json:"network_rpc,omitempty"`
	Accounts     json.RawMessage   `json:"accounts,omitempty"`
	Call         json.RawMessage   `json:"call,omitempty"`
	CallID       string            `json:"call_id,omitempty"`
	Result       json.RawMessage   `json:"result,omitempty"`
	SessionToken string            `json:"session_token,omitempty"`
	ReturnURL    string            `json:"return_url,omitempty"`
}

func shapeMessage(id int64, msgType model.MessageType, data json.RawMessage) (Message, error) {
	msg := Message{Type: msgType, ID: id}

	switch msgType {
	case model.MessageTypeNetwork:
		if err := json.Unmarshal(data, &msg.NetworkRPC); err != nil {
			return Message{}, fmt.Errorf("decode network message %d: %w", id, err)
		}

	case model.MessageTypeAccounts:
		msg.Accounts = data

	case model.MessageTypeCall:
		var call model.CallData
		if err := json.Unmarshal(data, &call); err != nil {
			return Message{}, fmt.Errorf("decode call message %d: %w", id, err)
		}
		msg.Call = call.Call
		msg.CallID = call.CallID
		msg.SessionToken = call.SessionToken
		msg.ReturnURL = call.ReturnURL

	case model.MessageTypeCallResponse:
		var call model.CallData
		if err := json.Unmarshal(data, &call); err != nil {
			return Message{}, fmt.Errorf("decode call response %d: %w", id, err)
		}
		msg.Result = call.Result
		msg.CallID = call.CallID

	case model.MessageTypeLogout:
		// no payload

	default:
		return Message{}, fmt.Errorf("unknown message type %q (id %d)", msgType, id)
	}

	return msg, nil
}

func shapeSessionMessages(rows []model.SessionMessage) ([]Message, error) {
	msgs := make([]Message, 0, len(rows))
	for _, row := range rows {
		msg, err := shapeMessage(row.ID, row.Type, row.Data)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func shapeWalletMessages(rows []model.WalletMessage) ([]Message, error) {
	msgs := make([]Message, 0, len(rows))
	for _, row := range rows {
		msg, err := shapeMessage(row.ID, row.Type, row.Data)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
