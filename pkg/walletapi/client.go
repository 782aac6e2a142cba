/**
 * @description
 * This package provides a client for the wallet backend's REST API. Every
 * authorized call goes through the session transport handed to NewClient, so
 * token attachment and silent refresh are invisible at this level.
 *
 * @notes
 * - Paths keep the backend's trailing slashes.
 * - Login and register are sent as public calls and never carry a token.
 * - The refresh call uses a plain client that shares the cookie jar, since the
 *   refresh credential is an HTTP-only cookie set by login.
 */
package walletapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/transfa/wallet-gateway/internal/domain"
	"github.com/transfa/wallet-gateway/pkg/session"
	"golang.org/x/net/publicsuffix"
)

// Client is a client for the wallet backend.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	refreshClient *http.Client
}

// NewClient creates a wallet backend client. transport is normally the
// session manager's transport; a nil transport sends requests unauthorized.
func NewClient(baseURL string, transport http.RoundTripper, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   timeout,
		},
		refreshClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
	}, nil
}

// LoginRequest is the credential pair accepted by the login endpoint.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	PIN        string `json:"pin"`
}

// LoginResponse is the login endpoint's body. The refresh token arrives as a
// cookie and never shows up here.
type LoginResponse struct {
	Success bool   `json:"success"`
	Access  string `json:"access"`
	Message string `json:"message"`
}

// RegisterRequest is the sign-up form payload.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DOB       string `json:"dob"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	State     string `json:"state"`
	City      string `json:"city"`
	PIN       string `json:"pin"`
}

// StatusResponse is the generic {success, message} envelope.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// VerifyAccountResponse is the result of a recipient name lookup.
type VerifyAccountResponse struct {
	Success     bool   `json:"success"`
	AccountName string `json:"account_name"`
	Error       string `json:"error"`
}

// TransactionResult is a confirmed money movement and, when the backend sends
// one, the account snapshot after it.
type TransactionResult struct {
	Transaction domain.RawTransaction
	Account     *domain.Account
}

// PaymentVerification is the backend's view of a provider payment.
type PaymentVerification struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// FileUpload is a single multipart file part.
type FileUpload struct {
	Filename string
	Content  []byte
}

// AccountUpdate is either a profile picture upload or a set of field values,
// never both.
type AccountUpdate struct {
	Fields     map[string]string
	ProfilePic *FileUpload
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.doJSON(session.Public(ctx), http.MethodPost, "/login/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a new customer.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.doJSON(session.Public(ctx), http.MethodPost, "/register/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken mints a new access token from the refresh cookie.
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+session.RefreshPath+"/", strings.NewReader("{}"))
	if err != nil {
		return "", fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.refreshClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", newAPIError(resp)
	}

	var out struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if out.Access == "" {
		return "", ErrMissingAccessToken
	}
	return out.Access, nil
}

// GetAccount fetches the profile and balance snapshot.
func (c *Client) GetAccount(ctx context.Context) (*domain.Account, error) {
	var out domain.Account
	if err := c.doJSON(ctx, http.MethodGet, "/account/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAccount posts a multipart profile update and returns the new snapshot.
func (c *Client) UpdateAccount(ctx context.Context, update AccountUpdate) (*domain.Account, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if update.ProfilePic != nil {
		filename := update.ProfilePic.Filename
		if filename == "" {
			filename = "profile.jpg"
		}
		part, err := writer.CreateFormFile("profilePic", filename)
		if err != nil {
			return nil, fmt.Errorf("failed to create profile picture part: %w", err)
		}
		if _, err := part.Write(update.ProfilePic.Content); err != nil {
			return nil, fmt.Errorf("failed to write profile picture: %w", err)
		}
	} else {
		for key, value := range update.Fields {
			if err := writer.WriteField(key, value); err != nil {
				return nil, fmt.Errorf("failed to write field %s: %w", key, err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, "/account/", bytes.NewReader(buf.Bytes()), writer.FormDataContentType(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out domain.Account
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode account response: %w", err)
	}
	return &out, nil
}

// ListTransactions fetches the raw transaction history. The backend returns
// either a bare array or an object with a transactions key.
func (c *Client) ListTransactions(ctx context.Context) ([]domain.RawTransaction, error) {
	var body json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/transactions/", nil, &body); err != nil {
		return nil, err
	}
	return decodeTransactionList(body)
}

func decodeTransactionList(body json.RawMessage) ([]domain.RawTransaction, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrEmptyResponse
	}

	if trimmed[0] == '[' {
		var list []domain.RawTransaction
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to decode transactions: %w", err)
		}
		return list, nil
	}

	var wrapped struct {
		Transactions *[]domain.RawTransaction `json:"transactions"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	if wrapped.Transactions == nil {
		return nil, ErrUnexpectedTransactionList
	}
	return *wrapped.Transactions, nil
}

// CreateTransaction submits a money-movement intent. The idempotency key is
// sent on the original request and on any replay after a token refresh.
func (c *Client) CreateTransaction(ctx context.Context, req domain.TransactionRequest, idempotencyKey string) (*TransactionResult, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, "/transactions/", bytes.NewReader(payload), "application/json", headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction response: %w", err)
	}
	return decodeTransactionResult(body)
}

func decodeTransactionResult(body []byte) (*TransactionResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrEmptyResponse
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode transaction response: %w", err)
	}

	result := &TransactionResult{}
	txBody := json.RawMessage(trimmed)
	if raw, ok := envelope["transaction"]; ok && !isNull(raw) {
		txBody = raw
	}
	if err := json.Unmarshal(txBody, &result.Transaction); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	if raw, ok := envelope["account"]; ok && !isNull(raw) {
		var account domain.Account
		if err := json.Unmarshal(raw, &account); err != nil {
			return nil, fmt.Errorf("failed to decode account snapshot: %w", err)
		}
		result.Account = &account
	}
	return result, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// VerifyAccount resolves the account name behind a bank or betting account.
func (c *Client) VerifyAccount(ctx context.Context, accountNumber, bankName string) (*VerifyAccountResponse, error) {
	payload := map[string]string{
		"account_number": accountNumber,
		"bank_name":      bankName,
	}
	var out VerifyAccountResponse
	if err := c.doJSON(ctx, http.MethodPost, "/transfer/verify/", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidatePIN checks the current transaction PIN.
func (c *Client) ValidatePIN(ctx context.Context, pin string) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/validate-pin/", map[string]string{"pin": pin}, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

// UpdatePIN replaces the transaction PIN.
func (c *Client) UpdatePIN(ctx context.Context, pin string) error {
	return c.doJSON(ctx, http.MethodPost, "/update-pin/", map[string]string{"pin": pin}, nil)
}

// InitPayment opens a provider payment and returns the server-issued
// transaction reference.
func (c *Client) InitPayment(ctx context.Context, amount decimal.Decimal) (string, error) {
	payload := map[string]json.Number{"amount": json.Number(amount.String())}
	var out struct {
		TxRef string `json:"tx_ref"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/flutterwave/init/", payload, &out); err != nil {
		return "", err
	}
	if out.TxRef == "" {
		return "", fmt.Errorf("payment init response missing tx_ref: %w", ErrEmptyResponse)
	}
	return out.TxRef, nil
}

// VerifyPayment asks the backend to confirm a provider payment.
func (c *Client) VerifyPayment(ctx context.Context, txRef string) (*PaymentVerification, error) {
	var out PaymentVerification
	if err := c.doJSON(ctx, http.MethodPost, "/flutterwave/verify/", map[string]string{"tx_ref": txRef}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	resp, err := c.send(ctx, method, path, body, "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return ErrEmptyResponse
		}
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// send executes a request and turns any status >= 400 into an APIError. The
// caller owns the returned body.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, headers map[string]string) (*http.Response, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("wallet api base url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request to %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, newAPIError(resp)
	}
	return resp, nil
}
