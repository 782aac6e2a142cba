package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/transfa/wallet-gateway/internal/app"
	"github.com/transfa/wallet-gateway/internal/domain"
	"github.com/transfa/wallet-gateway/pkg/session"
	"github.com/transfa/wallet-gateway/pkg/walletapi"
)

type serviceStub struct {
	Service

	loginErr     error
	loginCalls   int
	addReq       domain.TransactionRequest
	addErr       error
	update       walletapi.AccountUpdate
	updateImage  bool
	verifyErr    error
	topUpRef     string
	clearedCalls int
}

func (s *serviceStub) Snapshot() app.Snapshot {
	return app.Snapshot{Account: &domain.Account{FullName: "Ada Obi", Balance: decimal.NewFromInt(4500)}}
}

func (s *serviceStub) SessionState() session.State { return session.StateAuthenticated }

func (s *serviceStub) SessionClaims(ctx context.Context) (session.Claims, error) {
	return session.Claims{Subject: "user-1", ExpiresAt: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}, nil
}

func (s *serviceStub) Login(ctx context.Context, identifier, pin string) (*walletapi.LoginResponse, error) {
	s.loginCalls++
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &walletapi.LoginResponse{Success: true, Access: "tok1", Message: "ok"}, nil
}

func (s *serviceStub) AddTransaction(ctx context.Context, req domain.TransactionRequest) (domain.Transaction, error) {
	s.addReq = req
	if s.addErr != nil {
		return domain.Transaction{}, s.addErr
	}
	return domain.Transaction{ID: "tx_9", Amount: req.Amount.Neg(), Type: req.Type}, nil
}

func (s *serviceStub) UpdateAccount(ctx context.Context, data walletapi.AccountUpdate, isImage bool) (*domain.Account, error) {
	s.update = data
	s.updateImage = isImage
	return &domain.Account{FullName: "Ada Obi"}, nil
}

func (s *serviceStub) VerifyRecipient(ctx context.Context, accountNumber, bankName string) (string, error) {
	if s.verifyErr != nil {
		return "", s.verifyErr
	}
	return "BOLA ADE", nil
}

func (s *serviceStub) CompleteTopUp(ctx context.Context, reference string) error {
	s.topUpRef = reference
	return nil
}

func (s *serviceStub) Notifications() []domain.Notification {
	return []domain.Notification{{ID: "n1", Read: false}, {ID: "n2", Read: true}}
}

func (s *serviceStub) ClearNotifications() { s.clearedCalls++ }

type limiterStub struct {
	allowed bool
	subject string
}

func (l *limiterStub) Allow(ctx context.Context, scope, subject string) (bool, int, error) {
	l.subject = subject
	return l.allowed, 42, nil
}

func newTestRouter(svc Service, limiter app.AttemptLimiter, key string) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(NewHandler(svc, limiter, logger), []string{"http://localhost:5173"}, key)
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGatewayKeyMiddleware(t *testing.T) {
	router := newTestRouter(&serviceStub{}, nil, "secret")

	if rr := doRequest(t, router, http.MethodGet, "/health", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected health to bypass the key, got %d", rr.Code)
	}
	if rr := doRequest(t, router, http.MethodGet, "/session", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	req.Header.Set("X-Gateway-Key", "secret")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", rr.Code)
	}

	var body sessionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if !body.Authenticated || body.Subject != "user-1" || body.ExpiresAt == nil {
		t.Fatalf("unexpected session body %+v", body)
	}
}

func TestLoginHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		loginErr   error
		allowed    bool
		wantStatus int
		wantCalls  int
	}{
		{name: "success", body: `{"identifier":"08030000000","pin":"4821"}`, allowed: true, wantStatus: http.StatusOK, wantCalls: 1},
		{name: "missing pin", body: `{"identifier":"08030000000"}`, allowed: true, wantStatus: http.StatusBadRequest},
		{name: "malformed body", body: `{`, allowed: true, wantStatus: http.StatusBadRequest},
		{name: "throttled", body: `{"identifier":"08030000000","pin":"4821"}`, allowed: false, wantStatus: http.StatusTooManyRequests},
		{name: "rejected", body: `{"identifier":"08030000000","pin":"4821"}`, allowed: true, loginErr: app.ErrLoginRejected, wantStatus: http.StatusUnauthorized, wantCalls: 1},
		{name: "backend 400", body: `{"identifier":"08030000000","pin":"4821"}`, allowed: true, loginErr: &walletapi.APIError{StatusCode: 400, Message: "Invalid credentials"}, wantStatus: http.StatusBadRequest, wantCalls: 1},
		{name: "backend down", body: `{"identifier":"08030000000","pin":"4821"}`, allowed: true, loginErr: errors.New("dial tcp: refused"), wantStatus: http.StatusBadGateway, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &serviceStub{loginErr: tt.loginErr}
			limiter := &limiterStub{allowed: tt.allowed}
			rr := doRequest(t, newTestRouter(svc, limiter, ""), http.MethodPost, "/session/login", tt.body)

			if rr.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if svc.loginCalls != tt.wantCalls {
				t.Fatalf("expected %d login calls, got %d", tt.wantCalls, svc.loginCalls)
			}
			if tt.wantStatus == http.StatusTooManyRequests && rr.Header().Get("Retry-After") != "42" {
				t.Fatalf("expected Retry-After header, got %q", rr.Header().Get("Retry-After"))
			}
		})
	}
}

func TestCreateTransactionHandler(t *testing.T) {
	svc := &serviceStub{}
	router := newTestRouter(svc, nil, "")

	rr := doRequest(t, router, http.MethodPost, "/transactions", `{"type":"Airtime Purchase","amount":500,"phone":"08031234567","provider":"MTN","pin":"4821"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.addReq.Type != domain.TypeAirtimePurchase || !svc.addReq.Amount.Equal(decimal.NewFromInt(500)) || svc.addReq.PIN != "4821" {
		t.Fatalf("unexpected request %+v", svc.addReq)
	}

	if rr := doRequest(t, router, http.MethodPost, "/transactions", `{"amount":0}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero amount, got %d", rr.Code)
	}

	svc.addErr = &walletapi.APIError{StatusCode: 400, Message: "Insufficient funds"}
	rr = doRequest(t, router, http.MethodPost, "/transactions", `{"amount":"500"}`)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "Insufficient funds") {
		t.Fatalf("expected backend message, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateDataPurchaseDerivesExpiry(t *testing.T) {
	svc := &serviceStub{}
	handler := NewHandler(svc, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	router := NewRouter(handler, nil, "")

	rr := doRequest(t, router, http.MethodPost, "/transactions",
		`{"type":"Data Purchase","amount":1500,"phone":"08031234567","provider":"Airtel","planLabel":"2GB","duration":"Monthly","pin":"4821"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.addReq.Expiry != "2026-04-14" || svc.addReq.PlanLabel != "2GB" || svc.addReq.Provider != "Airtel" {
		t.Fatalf("unexpected data request %+v", svc.addReq)
	}
}

func TestUpdateAccountMultipart(t *testing.T) {
	svc := &serviceStub{}
	router := newTestRouter(svc, nil, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("profilePic", "ada.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("png-bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/account", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !svc.updateImage || svc.update.ProfilePic == nil || string(svc.update.ProfilePic.Content) != "png-bytes" {
		t.Fatalf("expected image update, got %+v", svc.update)
	}

	rr = doRequest(t, router, http.MethodPost, "/account", `{"email":"ada@example.com"}`)
	if rr.Code != http.StatusOK || svc.updateImage || svc.update.Fields["email"] != "ada@example.com" {
		t.Fatalf("expected field update, got %d %+v", rr.Code, svc.update)
	}
}

func TestVerifyRecipientErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "found", wantStatus: http.StatusOK},
		{name: "bad number", err: domain.ErrInvalidAccountNumber, wantStatus: http.StatusBadRequest},
		{name: "not found", err: app.ErrRecipientNotFound, wantStatus: http.StatusUnprocessableEntity},
		{name: "session expired", err: &walletapi.APIError{StatusCode: 401}, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &serviceStub{verifyErr: tt.err}
			rr := doRequest(t, newTestRouter(svc, nil, ""), http.MethodPost, "/transfers/verify", `{"account_number":"0123456789","bank_name":"GTBank"}`)
			if rr.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestNotificationsAndTopUpRoutes(t *testing.T) {
	svc := &serviceStub{}
	router := newTestRouter(svc, nil, "")

	rr := doRequest(t, router, http.MethodGet, "/notifications", "")
	var body struct {
		Notifications []domain.Notification `json:"notifications"`
		Unread        int                   `json:"unread"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode notifications: %v", err)
	}
	if len(body.Notifications) != 2 || body.Unread != 1 {
		t.Fatalf("unexpected notifications body %+v", body)
	}

	if rr := doRequest(t, router, http.MethodDelete, "/notifications", ""); rr.Code != http.StatusNoContent || svc.clearedCalls != 1 {
		t.Fatalf("expected clear, got %d", rr.Code)
	}

	if rr := doRequest(t, router, http.MethodPost, "/top-ups/FLW-123/complete", ""); rr.Code != http.StatusAccepted || svc.topUpRef != "FLW-123" {
		t.Fatalf("expected top-up completion for FLW-123, got %d %q", rr.Code, svc.topUpRef)
	}
}
