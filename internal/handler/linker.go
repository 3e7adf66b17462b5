package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/OriginProtocol/origin-bridge/internal/audit"
	"github.com/OriginProtocol/origin-bridge/internal/config"
	apperrors "github.com/OriginProtocol/origin-bridge/internal/errors"
	"github.com/OriginProtocol/origin-bridge/internal/model"
	"github.com/OriginProtocol/origin-bridge/internal/service"
)

const clientTokenCookie = "ct"

// linkerService is the slice of the linker the HTTP layer depends on.
type linkerService interface {
	GenerateCode(ctx context.Context, clientToken, sessionToken, returnURL string, pendingCall *model.PendingCall, forceRelink bool) (*service.GenerateCodeResult, error)
	LinkMessages(ctx context.Context, clientToken, sessionToken string, lastMessageID *int64) (*service.LinkMessagesResult, error)
	LinkInfo(ctx context.Context, code string) (*service.LinkInfoResult, error)
	WalletMessages(ctx context.Context, walletToken string, accounts []string, lastMessageID *int64) ([]service.Message, error)
	LinkWallet(ctx context.Context, walletToken, code, currentRPC string, currentAccounts []string) (*service.LinkWalletResult, error)
	CallWallet(ctx context.Context, clientToken, sessionToken string, accounts []string, callID string, call json.RawMessage, returnURL string) (bool, error)
	WalletCalled(ctx context.Context, walletToken, callID, sessionToken string, result json.RawMessage) (bool, error)
	Unlink(ctx context.Context, clientToken string) (bool, error)
	UnlinkWallet(ctx context.Context, walletToken, linkID string) (bool, error)
	WalletLinks(ctx context.Context, walletToken string) ([]model.LinkSummary, error)
}

var _ linkerService = (*service.LinkerService)(nil)

type LinkerHandler struct {
	linker linkerService
}

func NewLinkerHandler(linker linkerService) *LinkerHandler {
	return &LinkerHandler{linker: linker}
}

func (h *LinkerHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/generate-code", h.GenerateCode)
	r.Post("/link-messages", h.LinkMessages)
	r.Post("/link-info", h.LinkInfo)
	r.Post("/wallet-messages", h.WalletMessages)
	r.Post("/call-wallet", h.CallWallet)
	r.Post("/wallet-called", h.WalletCalled)
	r.Post("/link-wallet", h.LinkWallet)
	r.Post("/unlink", h.Unlink)
	r.Post("/unlink-wallet", h.UnlinkWallet)
	r.Get("/wallet-links/{walletToken}", h.WalletLinks)

	return r
}

// clientToken reads the requesting side's identity cookie. A missing
// cookie means a first-time caller.
func clientToken(r *http.Request) string {
	cookie, err := r.Cookie(clientTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// setClientToken re-issues the identity cookie whenever the service hands
// back a token, refreshing the expiry on every poll.
func setClientToken(w http.ResponseWriter, token string) {
	if token == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     clientTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(config.ClientTokenCookieMaxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearClientToken expires the identity cookie. The cookie is HttpOnly, so
// the server is the only party that can drop a stale identity.
func clearClientToken(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     clientTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// refreshClientToken re-issues the cookie when the service hands back a
// token, and expires it when the caller presented one the service no longer
// recognizes so the next generate-code mints a fresh identity.
func refreshClientToken(w http.ResponseWriter, r *http.Request, token string) {
	if token != "" {
		setClientToken(w, token)
		return
	}
	if clientToken(r) != "" {
		clearClientToken(w)
	}
}

// POST /api/wallet-linker/generate-code
func (h *LinkerHandler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReturnURL    string             `json:"return_url"`
		SessionToken string             `json:"session_token"`
		PendingCall  *model.PendingCall `json:"pending_call"`
		ForceRelink  bool               `json:"force_relink"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	result, err := h.linker.GenerateCode(r.Context(), clientToken(r), req.SessionToken, req.ReturnURL, req.PendingCall, req.ForceRelink)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeNotFound {
			// Stale identity: expire the cookie so the retry starts clean.
			clearClientToken(w)
		}
		log.Error().Err(err).Msg("generate code failed")
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventCodeGenerate,
		Details: map[string]interface{}{"linked": result.Linked},
	})

	setClientToken(w, result.ClientToken)
	writeJSON(w, http.StatusOK, result)
}

// POST /api/wallet-linker/link-messages
func (h *LinkerHandler) LinkMessages(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionToken  string `json:"session_token"`
		LastMessageID *int64 `json:"last_message_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	result, err := h.linker.LinkMessages(r.Context(), clientToken(r), req.SessionToken, req.LastMessageID)
	if err != nil {
		log.Error().Err(err).Msg("link messages failed")
		writeError(w, err)
		return
	}

	refreshClientToken(w, r, result.ClientToken)
	if result.Messages == nil {
		result.Messages = []service.Message{}
	}
	writeJSON(w, http.StatusOK, result)
}

// POST /api/wallet-linker/link-info
func (h *LinkerHandler) LinkInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code is required"})
		return
	}

	result, err := h.linker.LinkInfo(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /api/wallet-linker/wallet-messages
func (h *LinkerHandler) WalletMessages(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletToken   string   `json:"wallet_token"`
		Accounts      []string `json:"accounts"`
		LastMessageID *int64   `json:"last_message_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WalletToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "wallet_token is required"})
		return
	}

	messages, err := h.linker.WalletMessages(r.Context(), req.WalletToken, req.Accounts, req.LastMessageID)
	if err != nil {
		log.Error().Err(err).Msg("wallet messages failed")
		writeError(w, err)
		return
	}

	if messages == nil {
		messages = []service.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// POST /api/wallet-linker/call-wallet
func (h *LinkerHandler) CallWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionToken string          `json:"session_token"`
		CallID       string          `json:"call_id"`
		Accounts     []string        `json:"accounts"`
		Call         json.RawMessage `json:"call"`
		ReturnURL    string          `json:"return_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.CallID == "" || len(req.Call) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "call_id and call are required"})
		return
	}

	success, err := h.linker.CallWallet(r.Context(), clientToken(r), req.SessionToken, req.Accounts, req.CallID, req.Call, req.ReturnURL)
	if err != nil {
		log.Error().Err(err).Str("callId", req.CallID).Msg("call wallet failed")
		writeError(w, err)
		return
	}

	if success {
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventCallRelay,
			Details: map[string]interface{}{"callId": req.CallID},
		})
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": success})
}

// POST /api/wallet-linker/wallet-called
func (h *LinkerHandler) WalletCalled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletToken  string          `json:"wallet_token"`
		CallID       string          `json:"call_id"`
		SessionToken string          `json:"session_token"`
		Result       json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.WalletToken == "" || req.CallID == "" || req.SessionToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "wallet_token, call_id and session_token are required"})
		return
	}

	success, err := h.linker.WalletCalled(r.Context(), req.WalletToken, req.CallID, req.SessionToken, req.Result)
	if err != nil {
		log.Warn().Err(err).Str("callId", req.CallID).Msg("wallet called rejected")
		writeError(w, err)
		return
	}

	if success {
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventCallResponse,
			Details: map[string]interface{}{"callId": req.CallID},
		})
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": success})
}

// POST /api/wallet-linker/link-wallet
func (h *LinkerHandler) LinkWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletToken     string   `json:"wallet_token"`
		Code            string   `json:"code"`
		CurrentRPC      string   `json:"current_rpc"`
		CurrentAccounts []string `json:"current_accounts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.WalletToken == "" || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "wallet_token and code are required"})
		return
	}

	result, err := h.linker.LinkWallet(r.Context(), req.WalletToken, req.Code, req.CurrentRPC, req.CurrentAccounts)
	if err != nil {
		log.Error().Err(err).Msg("link wallet failed")
		writeError(w, err)
		return
	}

	if result.Linked {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventWalletLink, LinkID: result.LinkID})
	} else {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventWalletLinkFailed})
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /api/wallet-linker/unlink
func (h *LinkerHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	success, err := h.linker.Unlink(r.Context(), clientToken(r))
	if err != nil {
		log.Error().Err(err).Msg("unlink failed")
		writeError(w, err)
		return
	}

	if success {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventUnlink})
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": success})
}

// POST /api/wallet-linker/unlink-wallet
func (h *LinkerHandler) UnlinkWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletToken string `json:"wallet_token"`
		LinkID      string `json:"link_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WalletToken == "" || req.LinkID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "wallet_token and link_id are required"})
		return
	}

	success, err := h.linker.UnlinkWallet(r.Context(), req.WalletToken, req.LinkID)
	if err != nil {
		log.Error().Err(err).Msg("unlink wallet failed")
		writeError(w, err)
		return
	}

	if success {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventWalletUnlink, LinkID: req.LinkID})
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": success})
}

// GET /api/wallet-linker/wallet-links/{walletToken}
func (h *LinkerHandler) WalletLinks(w http.ResponseWriter, r *http.Request) {
	walletToken := chi.URLParam(r, "walletToken")
	if walletToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "wallet token is required"})
		return
	}

	links, err := h.linker.WalletLinks(r.Context(), walletToken)
	if err != nil {
		log.Error().Err(err).Msg("wallet links failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, links)
}
