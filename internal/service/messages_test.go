package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OriginProtocol/origin-bridge/internal/model"
)

func TestShapeMessage(t *testing.T) {
	t.Run("network message carries the rpc url", func(t *testing.T) {
		msg, err := shapeMessage(1, model.MessageTypeNetwork, json.RawMessage(`"https://rpc.example"`))

		assert.NoError(t, err)
		assert.Equal(t, int64(1), msg.ID)
		assert.Equal(t, "https://rpc.example", msg.NetworkRPC)
	})

	t.Run("accounts message passes the payload through", func(t *testing.T) {
		msg, err := shapeMessage(2, model.MessageTypeAccounts, json.RawMessage(`["0xabc","0xdef"]`))

		assert.NoError(t, err)
		assert.JSONEq(t, `["0xabc","0xdef"]`, string(msg.Accounts))
	})

	t.Run("call message unpacks routing fields", func(t *testing.T) {
		data, _ := json.Marshal(model.CallData{
			CallID:       "call-1",
			Call:         json.RawMessage(`{"method":"eth_sendTransaction"}`),
			SessionToken: "st-1",
			ReturnURL:    "https://dapp.example/done",
		})

		msg, err := shapeMessage(3, model.MessageTypeCall, data)

		assert.NoError(t, err)
		assert.Equal(t, "call-1", msg.CallID)
		assert.Equal(t, "st-1", msg.SessionToken)
		assert.Equal(t, "https://dapp.example/done", msg.ReturnURL)
		assert.JSONEq(t, `{"method":"eth_sendTransaction"}`, string(msg.Call))
	})

	t.Run("call response unpacks the result", func(t *testing.T) {
		data, _ := json.Marshal(model.CallData{
			CallID: "call-1",
			Result: json.RawMessage(`{"hash":"0x123"}`),
		})

		msg, err := shapeMessage(4, model.MessageTypeCallResponse, data)

		assert.NoError(t, err)
		assert.Equal(t, "call-1", msg.CallID)
		assert.JSONEq(t, `{"hash":"0x123"}`, string(msg.Result))
	})

	t.Run("logout message has no payload", func(t *testing.T) {
		msg, err := shapeMessage(5, model.MessageTypeLogout, nil)

		assert.NoError(t, err)
		assert.Equal(t, model.MessageTypeLogout, msg.Type)
		assert.Empty(t, msg.Call)
		assert.Empty(t, msg.Result)
	})

	t.Run("unknown type is an error", func(t *testing.T) {
		_, err := shapeMessage(6, model.MessageType("BOGUS"), json.RawMessage(`{}`))

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown message type")
	})

	t.Run("malformed call payload is an error", func(t *testing.T) {
		_, err := shapeMessage(7, model.MessageTypeCall, json.RawMessage(`not json`))

		assert.Error(t, err)
	})
}

func TestShapeSessionMessages(t *testing.T) {
	t.Run("preserves mailbox order", func(t *testing.T) {
		rows := []model.SessionMessage{
			{ID: 1, Type: model.MessageTypeNetwork, Data: json.RawMessage(`"https://rpc.example"`)},
			{ID: 2, Type: model.MessageTypeAccounts, Data: json.RawMessage(`["0xabc"]`)},
			{ID: 3, Type: model.MessageTypeLogout},
		}

		msgs, err := shapeSessionMessages(rows)

		assert.NoError(t, err)
		assert.Len(t, msgs, 3)
		assert.Equal(t, int64(1), msgs[0].ID)
		assert.Equal(t, int64(2), msgs[1].ID)
		assert.Equal(t, int64(3), msgs[2].ID)
	})

	t.Run("empty mailbox shapes to an empty slice", func(t *testing.T) {
		msgs, err := shapeSessionMessages(nil)

		assert.NoError(t, err)
		assert.NotNil(t, msgs)
		assert.Empty(t, msgs)
	})
}
