package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/OriginProtocol/origin-bridge/internal/database"
	"github.com/OriginProtocol/origin-bridge/internal/model"
	"github.com/OriginProtocol/origin-bridge/internal/repository"
)

// stubTxRunner runs the transaction function directly against the mocks.
// The mocks' WithTx returns the mock itself, so queries inside and outside
// a transaction hit the same expectations.
type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

var _ database.TxRunner = stubTxRunner{}

type mockPairingRepo struct {
	mock.Mock
}

func (m *mockPairingRepo) WithTx(tx *sqlx.Tx) repository.PairingRepository { return m }

func (m *mockPairingRepo) Create(ctx context.Context, params model.CreatePairingParams) (*model.Pairing, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pairing), args.Error(1)
}

func (m *mockPairingRepo) FindByID(ctx context.Context, id int64) (*model.Pairing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pairing), args.Error(1)
}

func (m *mockPairingRepo) FindByClientToken(ctx context.Context, clientToken string) (*model.Pairing, error) {
	args := m.Called(ctx, clientToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pairing), args.Error(1)
}

func (m *mockPairingRepo) FindByClientTokenForUpdate(ctx context.Context, clientToken string) (*model.Pairing, error) {
	args := m.Called(ctx, clientToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pairing), args.Error(1)
}

func (m *mockPairingRepo) FindLinkedByClientToken(ctx context.Context, clientToken string) (*model.Pairing, error) {
	args := m.Called(ctx, clientToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pairing), args.Error(1)
}

func (m *mockPairingRepo) FindByActiveCode(ctx context.Context, code string) (*model.Pairing, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pairing), args.Error(1)
}

func (m *mockPairingRepo) FindByActiveCodeForUpdate(ctx context.Context, code string) (*model.Pairing, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pairing), args.Error(1)
}

func (m *mockPairingRepo) FindLinkedByLinkIDAndWallet(ctx context.Context, linkID, walletToken string) (*model.Pairing, error) {
	args := m.Called(ctx, linkID, walletToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pairing), args.Error(1)
}

func (m *mockPairingRepo) ListByWalletToken(ctx context.Context, walletToken string) ([]model.Pairing, error) {
	args := m.Called(ctx, walletToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Pairing), args.Error(1)
}

func (m *mockPairingRepo) CodeInUse(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *mockPairingRepo) SetCode(ctx context.Context, id int64, code string, expiresAt time.Time, returnURL string) error {
	args := m.Called(ctx, id, code, expiresAt, returnURL)
	return args.Error(0)
}

func (m *mockPairingRepo) SetPendingCall(ctx context.Context, id int64, pendingCall *json.RawMessage) error {
	args := m.Called(ctx, id, pendingCall)
	return args.Error(0)
}

func (m *mockPairingRepo) MarkLinked(ctx context.Context, id int64, walletToken, currentRPC string, currentAccounts json.RawMessage, linkedAt time.Time) error {
	args := m.Called(ctx, id, walletToken, currentRPC, currentAccounts, linkedAt)
	return args.Error(0)
}

func (m *mockPairingRepo) MarkUnlinked(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository { return m }

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) FindByToken(ctx context.Context, sessionToken string) (*model.Session, error) {
	args := m.Called(ctx, sessionToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) FindByTokenAndPairing(ctx context.Context, sessionToken string, pairingID int64) (*model.Session, error) {
	args := m.Called(ctx, sessionToken, pairingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *mockSessionRepo) ListByPairing(ctx context.Context, pairingID int64) ([]model.Session, error) {
	args := m.Called(ctx, pairingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Session), args.Error(1)
}

type mockSessionMailbox struct {
	mock.Mock
}

func (m *mockSessionMailbox) WithTx(tx *sqlx.Tx) repository.SessionMailboxRepository { return m }

func (m *mockSessionMailbox) Append(ctx context.Context, sessionID int64, msgType model.MessageType, data json.RawMessage) (*model.SessionMessage, error) {
	args := m.Called(ctx, sessionID, msgType, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SessionMessage), args.Error(1)
}

func (m *mockSessionMailbox) ListAfter(ctx context.Context, sessionID, afterID int64) ([]model.SessionMessage, error) {
	args := m.Called(ctx, sessionID, afterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SessionMessage), args.Error(1)
}

func (m *mockSessionMailbox) PurgeThrough(ctx context.Context, sessionID, throughID int64) (int64, error) {
	args := m.Called(ctx, sessionID, throughID)
	return args.Get(0).(int64), args.Error(1)
}

type mockWalletMailbox struct {
	mock.Mock
}

func (m *mockWalletMailbox) WithTx(tx *sqlx.Tx) repository.WalletMailboxRepository { return m }

func (m *mockWalletMailbox) Append(ctx context.Context, walletToken, accounts string, msgType model.MessageType, data json.RawMessage) (*model.WalletMessage, error) {
	args := m.Called(ctx, walletToken, accounts, msgType, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WalletMessage), args.Error(1)
}

func (m *mockWalletMailbox) ListAfter(ctx context.Context, walletToken, account string, afterID int64) ([]model.WalletMessage, error) {
	args := m.Called(ctx, walletToken, account, afterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WalletMessage), args.Error(1)
}

func (m *mockWalletMailbox) PurgeThrough(ctx context.Context, walletToken, account string, throughID int64) (int64, error) {
	args := m.Called(ctx, walletToken, account, throughID)
	return args.Get(0).(int64), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) TransactionPending(ctx context.Context, ethAddress, walletToken string) {
	m.Called(ctx, ethAddress, walletToken)
}

type mockEndpointRepo struct {
	mock.Mock
}

func (m *mockEndpointRepo) Upsert(ctx context.Context, ethAddress, deviceToken string, provider model.NotificationProvider) (*model.NotificationEndpoint, error) {
	args := m.Called(ctx, ethAddress, deviceToken, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NotificationEndpoint), args.Error(1)
}

func (m *mockEndpointRepo) FindActive(ctx context.Context, ethAddress, deviceToken string) (*model.NotificationEndpoint, error) {
	args := m.Called(ctx, ethAddress, deviceToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NotificationEndpoint), args.Error(1)
}

func (m *mockEndpointRepo) ListActiveByAddress(ctx context.Context, ethAddress string) ([]model.NotificationEndpoint, error) {
	args := m.Called(ctx, ethAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.NotificationEndpoint), args.Error(1)
}

func (m *mockEndpointRepo) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockPushSender struct {
	mock.Mock
}

func (m *mockPushSender) Send(ctx context.Context, endpoint *model.NotificationEndpoint, eventType, message string) error {
	args := m.Called(ctx, endpoint, eventType, message)
	return args.Error(0)
}
