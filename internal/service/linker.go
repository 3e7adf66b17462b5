package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/OriginProtocol/origin-bridge/internal/database"
	apperrors "github.com/OriginProtocol/origin-bridge/internal/errors"
	"github.com/OriginProtocol/origin-bridge/internal/model"
	"github.com/OriginProtocol/origin-bridge/internal/repository"
	"github.com/OriginProtocol/origin-bridge/internal/util"
)

// Notifier wakes a wallet out-of-band after a call is enqueued. Delivery
// failures never affect the relay result.
type Notifier interface {
	TransactionPending(ctx context.Context, ethAddress, walletToken string)
}

type GenerateCodeResult struct {
	ClientToken  string `json:"-"`
	SessionToken string `json:"session_token"`
	Code         string `json:"link_code"`
	Linked       bool   `json:"linked"`
}

type LinkMessagesResult struct {
	ClientToken  string    `json:"-"`
	SessionToken string    `json:"session_token"`
	Messages     []Message `json:"messages"`
	Linked       bool      `json:"linked"`
}

type LinkWalletResult struct {
	ReturnURL   string             `json:"return_url"`
	Linked      bool               `json:"linked"`
	PendingCall *model.PendingCall `json:"pending_call,omitempty"`
	AppInfo     *json.RawMessage   `json:"app_info,omitempty"`
	LinkID      string             `json:"link_id,omitempty"`
	LinkedAt    *time.Time         `json:"linked_at,omitempty"`
}

type LinkInfoResult struct {
	ReturnURL string           `json:"return_url"`
	AppInfo   *json.RawMessage `json:"app_info,omitempty"`
	LinkID    string           `json:"link_id"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// LinkerService owns the pairing lifecycle and both mailboxes. All
// multi-step mutations run inside one transaction; pairing rows are locked
// per mutation so concurrent redemptions and relinks serialize.
type LinkerService struct {
	db             database.TxRunner
	pairingRepo    repository.PairingRepository
	sessionRepo    repository.SessionRepository
	sessionMailbox repository.SessionMailboxRepository
	walletMailbox  repository.WalletMailboxRepository
	notifier       Notifier
	codeTTL        time.Duration
}

func NewLinkerService(
	db database.TxRunner,
	pairingRepo repository.PairingRepository,
	sessionRepo repository.SessionRepository,
	sessionMailbox repository.SessionMailboxRepository,
	walletMailbox repository.WalletMailboxRepository,
	notifier Notifier,
	codeTTL time.Duration,
) *LinkerService {
	return &LinkerService{
		db:             db,
		pairingRepo:    pairingRepo,
		sessionRepo:    sessionRepo,
		sessionMailbox: sessionMailbox,
		walletMailbox:  walletMailbox,
		notifier:       notifier,
		codeTTL:        codeTTL,
	}
}

// GenerateCode issues (or re-issues) a link code for the requesting side.
// An empty clientToken mints a fresh pairing; a stale one is a hard
// NotFound so the caller drops its identity and retries clean. The session
// is ensured as a side effect, and a supplied pending call is parked on the
// record until a wallet links.
func (s *LinkerService) GenerateCode(
	ctx context.Context,
	clientToken, sessionToken, returnURL string,
	pendingCall *model.PendingCall,
	forceRelink bool,
) (*GenerateCodeResult, error) {
	var result GenerateCodeResult

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		pairings := s.pairingRepo.WithTx(tx)
		sessions := s.sessionRepo.WithTx(tx)
		mailbox := s.sessionMailbox.WithTx(tx)

		var pairing *model.Pairing
		var err error

		if clientToken == "" {
			pairing, err = s.createPairing(ctx, pairings)
			if err != nil {
				return err
			}
			log.Info().Str("linkId", pairing.LinkID).Msg("pairing created")
		} else {
			pairing, err = pairings.FindByClientTokenForUpdate(ctx, clientToken)
			if err != nil {
				return fmt.Errorf("find pairing: %w", err)
			}
			if pairing == nil {
				return apperrors.NotFound("Pairing")
			}
		}

		if forceRelink && (pairing.Linked || pairing.WalletToken != nil) {
			if err := pairings.MarkUnlinked(ctx, pairing.ID); err != nil {
				return fmt.Errorf("force relink: %w", err)
			}
			pairing.Linked = false
			pairing.WalletToken = nil
			log.Info().Str("linkId", pairing.LinkID).Msg("pairing force relinked")
		}

		if !pairing.Linked {
			code, err := newLinkCode(ctx, pairings)
			if err != nil {
				return err
			}
			expiresAt := time.Now().Add(s.codeTTL)
			if err := pairings.SetCode(ctx, pairing.ID, code, expiresAt, returnURL); err != nil {
				return fmt.Errorf("set code: %w", err)
			}
			pairing.Code = &code
			log.Info().
				Str("linkId", pairing.LinkID).
				Str("code", util.MaskCode(code)).
				Time("expiresAt", expiresAt).
				Msg("link code issued")
		}

		session, err := s.resolveOrCreateSession(ctx, sessions, mailbox, pairing, sessionToken)
		if err != nil {
			return err
		}

		if pendingCall != nil && !pairing.Linked {
			pc := *pendingCall
			pc.SessionToken = session.SessionToken
			data, err := json.Marshal(pc)
			if err != nil {
				return fmt.Errorf("encode pending call: %w", err)
			}
			raw := json.RawMessage(data)
			if err := pairings.SetPendingCall(ctx, pairing.ID, &raw); err != nil {
				return fmt.Errorf("store pending call: %w", err)
			}
		}

		result = GenerateCodeResult{
			ClientToken:  pairing.ClientToken,
			SessionToken: session.SessionToken,
			Linked:       pairing.Linked,
		}
		if !pairing.Linked && pairing.Code != nil {
			result.Code = *pairing.Code
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// LinkMessages drains the session mailbox for the requesting side. The
// supplied lastMessageID is a cumulative acknowledgment: everything at or
// below it is purged before the read, atomically with it.
func (s *LinkerService) LinkMessages(
	ctx context.Context,
	clientToken, sessionToken string,
	lastMessageID *int64,
) (*LinkMessagesResult, error) {
	if clientToken == "" {
		return &LinkMessagesResult{}, nil
	}

	var result LinkMessagesResult

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		pairings := s.pairingRepo.WithTx(tx)
		sessions := s.sessionRepo.WithTx(tx)
		mailbox := s.sessionMailbox.WithTx(tx)

		pairing, err := pairings.FindByClientToken(ctx, clientToken)
		if err != nil {
			return fmt.Errorf("find pairing: %w", err)
		}
		if pairing == nil {
			// Signal the caller to drop its identity.
			result = LinkMessagesResult{}
			return nil
		}
		if !pairing.Linked {
			result = LinkMessagesResult{ClientToken: clientToken, SessionToken: sessionToken}
			return nil
		}

		session, err := s.resolveOrCreateSession(ctx, sessions, mailbox, pairing, sessionToken)
		if err != nil {
			return err
		}

		var afterID int64
		if lastMessageID != nil {
			afterID = *lastMessageID
			if _, err := mailbox.PurgeThrough(ctx, session.ID, afterID); err != nil {
				return fmt.Errorf("purge session mailbox: %w", err)
			}
		}

		rows, err := mailbox.ListAfter(ctx, session.ID, afterID)
		if err != nil {
			return fmt.Errorf("read session mailbox: %w", err)
		}
		messages, err := shapeSessionMessages(rows)
		if err != nil {
			return err
		}

		result = LinkMessagesResult{
			ClientToken:  pairing.ClientToken,
			SessionToken: session.SessionToken,
			Messages:     messages,
			Linked:       true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// WalletMessages drains the wallet mailbox, scoped by the first queried
// account, with the same cumulative-acknowledgment purge semantics.
func (s *LinkerService) WalletMessages(
	ctx context.Context,
	walletToken string,
	accounts []string,
	lastMessageID *int64,
) ([]Message, error) {
	if walletToken == "" {
		return nil, nil
	}

	var account string
	if len(accounts) > 0 {
		account = accounts[0]
	}

	var messages []Message

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		mailbox := s.walletMailbox.WithTx(tx)

		var afterID int64
		if lastMessageID != nil {
			afterID = *lastMessageID
			if _, err := mailbox.PurgeThrough(ctx, walletToken, account, afterID); err != nil {
				return fmt.Errorf("purge wallet mailbox: %w", err)
			}
		}

		rows, err := mailbox.ListAfter(ctx, walletToken, account, afterID)
		if err != nil {
			return fmt.Errorf("read wallet mailbox: %w", err)
		}
		messages, err = shapeWalletMessages(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// LinkWallet redeems a code. The row lock on the code match serializes
// concurrent redemptions; the loser sees no active code and fails soft.
// Every session already polling this pairing gets the initial NETWORK and
// ACCOUNTS messages so it observes the link without the pending-call path.
func (s *LinkerService) LinkWallet(
	ctx context.Context,
	walletToken, code, currentRPC string,
	currentAccounts []string,
) (*LinkWalletResult, error) {
	var result LinkWalletResult

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		pairings := s.pairingRepo.WithTx(tx)
		sessions := s.sessionRepo.WithTx(tx)
		mailbox := s.sessionMailbox.WithTx(tx)

		pairing, err := pairings.FindByActiveCodeForUpdate(ctx, code)
		if err != nil {
			return fmt.Errorf("find pairing by code: %w", err)
		}
		if pairing == nil {
			result = LinkWalletResult{}
			return nil
		}

		var pendingCall *model.PendingCall
		if pairing.PendingCall != nil {
			pendingCall = &model.PendingCall{}
			if err := json.Unmarshal(*pairing.PendingCall, pendingCall); err != nil {
				return fmt.Errorf("decode pending call: %w", err)
			}
		}

		accountsJSON, err := json.Marshal(currentAccounts)
		if err != nil {
			return fmt.Errorf("encode accounts: %w", err)
		}

		linkedAt := time.Now()
		if err := pairings.MarkLinked(ctx, pairing.ID, walletToken, currentRPC, accountsJSON, linkedAt); err != nil {
			return fmt.Errorf("mark linked: %w", err)
		}

		existing, err := sessions.ListByPairing(ctx, pairing.ID)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		for _, session := range existing {
			if err := seedInitMessages(ctx, mailbox, session.ID, currentRPC, accountsJSON); err != nil {
				return err
			}
		}

		var returnURL string
		if pairing.CurrentReturnURL != nil {
			returnURL = *pairing.CurrentReturnURL
		}

		result = LinkWalletResult{
			ReturnURL:   returnURL,
			Linked:      true,
			PendingCall: pendingCall,
			AppInfo:     pairing.AppInfo,
			LinkID:      pairing.LinkID,
			LinkedAt:    &linkedAt,
		}

		log.Info().
			Str("linkId", pairing.LinkID).
			Int("sessions", len(existing)).
			Msg("wallet linked")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// LinkInfo describes an active code to a wallet deciding whether to redeem
// it.
func (s *LinkerService) LinkInfo(ctx context.Context, code string) (*LinkInfoResult, error) {
	pairing, err := s.pairingRepo.FindByActiveCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find pairing by code: %w", err)
	}
	if pairing == nil {
		return nil, apperrors.NotFound("Link code")
	}

	var returnURL string
	if pairing.CurrentReturnURL != nil {
		returnURL = *pairing.CurrentReturnURL
	}

	return &LinkInfoResult{
		ReturnURL: returnURL,
		AppInfo:   pairing.AppInfo,
		LinkID:    pairing.LinkID,
		ExpiresAt: *pairing.CodeExpiresAt,
	}, nil
}

// CallWallet enqueues a CALL into the wallet mailbox and triggers the
// out-of-band wake. Unknown or unlinked pairings fail soft: the caller is
// expected to regenerate a code, not to retry the call.
func (s *LinkerService) CallWallet(
	ctx context.Context,
	clientToken, sessionToken string,
	accounts []string,
	callID string,
	call json.RawMessage,
	returnURL string,
) (bool, error) {
	if clientToken == "" {
		return false, nil
	}

	pairing, err := s.pairingRepo.FindLinkedByClientToken(ctx, clientToken)
	if err != nil {
		return false, fmt.Errorf("find pairing: %w", err)
	}
	if pairing == nil || pairing.WalletToken == nil {
		return false, nil
	}

	// Stricter than the original queue, which trusted the session token
	// without checking it against the pairing.
	session, err := s.sessionRepo.FindByTokenAndPairing(ctx, sessionToken, pairing.ID)
	if err != nil {
		return false, fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return false, nil
	}

	data, err := json.Marshal(model.CallData{
		CallID:       callID,
		Call:         call,
		SessionToken: session.SessionToken,
		ReturnURL:    returnURL,
	})
	if err != nil {
		return false, fmt.Errorf("encode call: %w", err)
	}

	msg, err := s.walletMailbox.Append(ctx, *pairing.WalletToken, strings.Join(accounts, ","), model.MessageTypeCall, data)
	if err != nil {
		return false, fmt.Errorf("append call: %w", err)
	}

	log.Info().
		Str("linkId", pairing.LinkID).
		Str("callId", callID).
		Int64("messageId", msg.ID).
		Msg("call enqueued for wallet")

	if len(accounts) > 0 {
		s.notifier.TransactionPending(ctx, accounts[0], *pairing.WalletToken)
	}
	return true, nil
}

// WalletCalled deposits a call result into the originating session's
// mailbox. Mismatches are hard failures: a wallet must not be able to
// answer a call addressed to a different pairing.
func (s *LinkerService) WalletCalled(
	ctx context.Context,
	walletToken, callID, sessionToken string,
	callResult json.RawMessage,
) (bool, error) {
	session, err := s.sessionRepo.FindByToken(ctx, sessionToken)
	if err != nil {
		return false, fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return false, apperrors.SessionNotFound()
	}

	pairing, err := s.pairingRepo.FindByID(ctx, session.PairingID)
	if err != nil {
		return false, fmt.Errorf("find pairing: %w", err)
	}
	if pairing == nil {
		return false, apperrors.NotLinked()
	}
	if pairing.WalletToken == nil || *pairing.WalletToken != walletToken {
		return false, apperrors.WalletMismatch()
	}

	data, err := json.Marshal(model.CallData{CallID: callID, Result: callResult})
	if err != nil {
		return false, fmt.Errorf("encode call response: %w", err)
	}

	if _, err := s.sessionMailbox.Append(ctx, session.ID, model.MessageTypeCallResponse, data); err != nil {
		return false, fmt.Errorf("append call response: %w", err)
	}

	log.Info().
		Str("linkId", pairing.LinkID).
		Str("callId", callID).
		Msg("call response delivered to session")
	return true, nil
}

// Unlink resets the pairing from the requesting side. The record survives
// (sessions and history keep their back-references); open sessions learn
// about it via a LOGOUT message.
func (s *LinkerService) Unlink(ctx context.Context, clientToken string) (bool, error) {
	if clientToken == "" {
		return false, nil
	}

	pairing, err := s.pairingRepo.FindByClientToken(ctx, clientToken)
	if err != nil {
		return false, fmt.Errorf("find pairing: %w", err)
	}
	if pairing == nil || !pairing.Linked {
		return false, nil
	}

	if err := s.unlinkPairing(ctx, pairing); err != nil {
		return false, err
	}
	return true, nil
}

// UnlinkWallet is the wallet-side reset, addressed by link id.
func (s *LinkerService) UnlinkWallet(ctx context.Context, walletToken, linkID string) (bool, error) {
	pairing, err := s.pairingRepo.FindLinkedByLinkIDAndWallet(ctx, linkID, walletToken)
	if err != nil {
		return false, fmt.Errorf("find pairing: %w", err)
	}
	if pairing == nil {
		return false, nil
	}

	if err := s.unlinkPairing(ctx, pairing); err != nil {
		return false, err
	}
	return true, nil
}

// WalletLinks lists every pairing a wallet has ever linked, active or not.
func (s *LinkerService) WalletLinks(ctx context.Context, walletToken string) ([]model.LinkSummary, error) {
	pairings, err := s.pairingRepo.ListByWalletToken(ctx, walletToken)
	if err != nil {
		return nil, fmt.Errorf("list pairings: %w", err)
	}

	links := make([]model.LinkSummary, 0, len(pairings))
	for _, p := range pairings {
		links = append(links, model.LinkSummary{
			LinkID:    p.LinkID,
			Linked:    p.Linked,
			AppInfo:   p.AppInfo,
			LinkedAt:  p.LinkedAt,
			CreatedAt: p.CreatedAt,
		})
	}
	return links, nil
}

func (s *LinkerService) unlinkPairing(ctx context.Context, pairing *model.Pairing) error {
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		pairings := s.pairingRepo.WithTx(tx)
		sessions := s.sessionRepo.WithTx(tx)
		mailbox := s.sessionMailbox.WithTx(tx)

		if err := pairings.MarkUnlinked(ctx, pairing.ID); err != nil {
			return fmt.Errorf("mark unlinked: %w", err)
		}

		existing, err := sessions.ListByPairing(ctx, pairing.ID)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		for _, session := range existing {
			if _, err := mailbox.Append(ctx, session.ID, model.MessageTypeLogout, nil); err != nil {
				return fmt.Errorf("append logout: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Str("linkId", pairing.LinkID).Msg("pairing unlinked")
	return nil
}

func (s *LinkerService) createPairing(ctx context.Context, pairings repository.PairingRepository) (*model.Pairing, error) {
	clientToken, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate client token: %w", err)
	}
	linkID, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate link id: %w", err)
	}

	pairing, err := pairings.Create(ctx, model.CreatePairingParams{
		LinkID:      linkID,
		ClientToken: clientToken,
	})
	if err != nil {
		return nil, fmt.Errorf("create pairing: %w", err)
	}
	return pairing, nil
}

// resolveOrCreateSession returns the session the token names, or mints a
// new one when the token is empty, stale, or belongs to another pairing. A
// session created against a linked pairing starts with the baseline
// NETWORK and ACCOUNTS messages.
func (s *LinkerService) resolveOrCreateSession(
	ctx context.Context,
	sessions repository.SessionRepository,
	mailbox repository.SessionMailboxRepository,
	pairing *model.Pairing,
	sessionToken string,
) (*model.Session, error) {
	if sessionToken != "" {
		session, err := sessions.FindByTokenAndPairing(ctx, sessionToken, pairing.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve session: %w", err)
		}
		if session != nil {
			return session, nil
		}
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	session, err := sessions.Create(ctx, model.CreateSessionParams{
		SessionToken: token,
		PairingID:    pairing.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if pairing.Linked {
		var rpc string
		if pairing.CurrentRPC != nil {
			rpc = *pairing.CurrentRPC
		}
		if err := seedInitMessages(ctx, mailbox, session.ID, rpc, pairing.CurrentAccounts); err != nil {
			return nil, err
		}
	}

	log.Debug().
		Str("linkId", pairing.LinkID).
		Int64("sessionId", session.ID).
		Msg("session created")
	return session, nil
}

func seedInitMessages(
	ctx context.Context,
	mailbox repository.SessionMailboxRepository,
	sessionID int64,
	rpc string,
	accounts json.RawMessage,
) error {
	rpcJSON, err := json.Marshal(rpc)
	if err != nil {
		return fmt.Errorf("encode rpc: %w", err)
	}
	if _, err := mailbox.Append(ctx, sessionID, model.MessageTypeNetwork, rpcJSON); err != nil {
		return fmt.Errorf("append network message: %w", err)
	}
	if _, err := mailbox.Append(ctx, sessionID, model.MessageTypeAccounts, accounts); err != nil {
		return fmt.Errorf("append accounts message: %w", err)
	}
	return nil
}
