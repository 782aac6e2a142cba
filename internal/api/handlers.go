/**
 * @description
 * HTTP handlers for the wallet gateway. Handlers decode the request, call the
 * ledger store and translate store and backend errors into status codes.
 *
 * @notes
 * - Backend rejections (4xx) keep their status and message.
 * - Anything else from the backend is reported as 502.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/transfa/wallet-gateway/internal/app"
	"github.com/transfa/wallet-gateway/internal/domain"
	"github.com/transfa/wallet-gateway/pkg/session"
	"github.com/transfa/wallet-gateway/pkg/walletapi"
)

const maxProfilePicBytes = 5 << 20

// Service is the ledger store as seen by the HTTP layer.
type Service interface {
	Snapshot() app.Snapshot
	SessionState() session.State
	SessionClaims(ctx context.Context) (session.Claims, error)
	Login(ctx context.Context, identifier, pin string) (*walletapi.LoginResponse, error)
	ResetAccount(ctx context.Context) error
	Register(ctx context.Context, form app.Registration) (*walletapi.StatusResponse, error)
	UpdateAccount(ctx context.Context, data walletapi.AccountUpdate, isImage bool) (*domain.Account, error)
	AddTransaction(ctx context.Context, req domain.TransactionRequest) (domain.Transaction, error)
	RefreshAccount(ctx context.Context) error
	VerifyRecipient(ctx context.Context, accountNumber, bankName string) (string, error)
	ValidatePIN(ctx context.Context, pin string) (bool, error)
	ChangePIN(ctx context.Context, pin, confirm string) error
	StartTopUp(ctx context.Context, amount decimal.Decimal) (*domain.Checkout, error)
	CompleteTopUp(ctx context.Context, reference string) error
	Rewards() domain.RewardSummary
	RedeemPoints(ctx context.Context, points int) (domain.Transaction, error)
	Notifications() []domain.Notification
	MarkAllAsRead()
	ClearNotifications()
}

// Handler holds the ledger store and the credential attempt limiter.
type Handler struct {
	service Service
	limiter app.AttemptLimiter
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a new Handler. A nil limiter disables throttling.
func NewHandler(service Service, limiter app.AttemptLimiter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, limiter: limiter, logger: logger.With("component", "gateway_api"), now: time.Now}
}

type sessionResponse struct {
	State         session.State `json:"state"`
	Authenticated bool          `json:"authenticated"`
	Subject       string        `json:"subject,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	state := h.service.SessionState()
	resp := sessionResponse{State: state, Authenticated: state == session.StateAuthenticated}

	if claims, err := h.service.SessionClaims(r.Context()); err == nil {
		resp.Subject = claims.Subject
		if !claims.ExpiresAt.IsZero() {
			expiresAt := claims.ExpiresAt
			resp.ExpiresAt = &expiresAt
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	PIN        string `json:"pin"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" || req.PIN == "" {
		writeError(w, http.StatusBadRequest, "identifier and pin are required")
		return
	}
	if !h.allowAttempt(w, r, "login", req.Identifier) {
		return
	}

	resp, err := h.service.Login(r.Context(), req.Identifier, req.PIN)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": resp.Message,
		"account": h.service.Snapshot().Account,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetAccount(r.Context()); err != nil {
		h.logger.Warn("logout completed with token store error", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form app.Registration
	if !decodeJSONBody(w, r, &form) {
		return
	}

	resp, err := h.service.Register(r.Context(), form)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":        snap.Account,
		"loading":        snap.Loading,
		"accountLoading": snap.AccountLoading,
	})
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var (
		update  walletapi.AccountUpdate
		isImage bool
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxProfilePicBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		file, header, err := r.FormFile("profilePic")
		if err != nil {
			writeError(w, http.StatusBadRequest, "profilePic file is required")
			return
		}
		defer file.Close()

		content, err := io.ReadAll(io.LimitReader(file, maxProfilePicBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read profilePic")
			return
		}
		if len(content) > maxProfilePicBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "profilePic is too large")
			return
		}
		update.ProfilePic = &walletapi.FileUpload{Filename: header.Filename, Content: content}
		isImage = true
	} else {
		fields := map[string]string{}
		if !decodeJSONBody(w, r, &fields) {
			return
		}
		if len(fields) == 0 {
			writeError(w, http.StatusBadRequest, "no fields to update")
			return
		}
		update.Fields = fields
	}

	account, err := h.service.UpdateAccount(r.Context(), update, isImage)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": snap.Transactions,
		"loading":      snap.TransactionsLoading,
	})
}

// createTransactionRequest is a transaction intent plus the data plan
// duration, which the gateway turns into an expiry date.
type createTransactionRequest struct {
	domain.TransactionRequest
	Duration string `json:"duration"`
}

func (h *Handler) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var body createTransactionRequest
	if !decodeJSONBody(w, r, &body) {
		return
	}
	if !body.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be greater than zero")
		return
	}

	req := domain.BuildTransactionRequest(body.TransactionRequest, body.Duration, h.now())
	tx, err := h.service.AddTransaction(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RefreshAccount(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	snap := h.service.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":      snap.Account,
		"transactions": snap.Transactions,
	})
}

type verifyRecipientRequest struct {
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
}

func (h *Handler) handleVerifyRecipient(w http.ResponseWriter, r *http.Request) {
	var req verifyRecipientRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	name, err := h.service.VerifyRecipient(r.Context(), req.AccountNumber, req.BankName)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "account_name": name})
}

type pinRequest struct {
	PIN        string `json:"pin"`
	ConfirmPIN string `json:"confirm_pin"`
}

func (h *Handler) handleValidatePIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if !h.allowAttempt(w, r, "pin", clientIP(r)) {
		return
	}

	valid, err := h.service.ValidatePIN(r.Context(), req.PIN)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (h *Handler) handleChangePIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.service.ChangePIN(r.Context(), req.PIN, req.ConfirmPIN); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type topUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) handleStartTopUp(w http.ResponseWriter, r *http.Request) {
	var req topUpRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	checkout, err := h.service.StartTopUp(r.Context(), req.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkout)
}

func (h *Handler) handleCompleteTopUp(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if err := h.service.CompleteTopUp(r.Context(), reference); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"success": true, "tx_ref": reference})
}

func (h *Handler) handleGetRewards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Rewards())
}

type redeemRequest struct {
	Points int `json:"points"`
}

func (h *Handler) handleRedeemPoints(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	tx, err := h.service.RedeemPoints(r.Context(), req.Points)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications := h.service.Notifications()
	unread := 0
	for _, n := range notifications {
		if !n.Read {
			unread++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"unread":        unread,
	})
}

func (h *Handler) handleMarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	h.service.MarkAllAsRead()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	h.service.ClearNotifications()
	w.WriteHeader(http.StatusNoContent)
}

// allowAttempt applies the credential attempt limiter. Limiter outages fail
// open so a Redis hiccup does not lock every user out.
func (h *Handler) allowAttempt(w http.ResponseWriter, r *http.Request, scope, subject string) bool {
	if h.limiter == nil {
		return true
	}
	allowed, retryAfter, err := h.limiter.Allow(r.Context(), scope, subject)
	if err != nil {
		h.logger.Warn("attempt limiter unavailable", "scope", scope, "error", err)
		return true
	}
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeError(w, http.StatusTooManyRequests, "Too many attempts. Please try again later.")
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var apiErr *walletapi.APIError
	switch {
	case errors.Is(err, domain.ErrWeakPIN),
		errors.Is(err, domain.ErrPINMismatch),
		errors.Is(err, domain.ErrInvalidAccountNumber),
		errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrMissingReference),
		errors.Is(err, app.ErrInsufficientPoints),
		errors.Is(err, app.ErrRegistrationRejected):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrRecipientNotFound):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, app.ErrLoginRejected):
		writeError(w, http.StatusUnauthorized, "Login failed")
	case errors.Is(err, app.ErrPaymentNotEnabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		writeError(w, apiErr.StatusCode, walletapi.Message(err, http.StatusText(apiErr.StatusCode)))
	default:
		h.logger.Error("backend call failed", "error", err)
		writeError(w, http.StatusBadGateway, "wallet backend unavailable")
	}
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSON is a helper to write JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
