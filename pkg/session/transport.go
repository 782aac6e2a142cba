package session

import (
	"io"
	"net/http"
	"strings"
)

// RefreshPath is the backend route that mints tokens. A 401 from it never
// triggers another refresh.
const RefreshPath = "/refresh-token"

// Transport authorizes outgoing requests and recovers from expired tokens
// with one silent refresh and replay per request.
type Transport struct {
	manager *Manager
	Base    http.RoundTripper
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	used := t.manager.AttachToken(out)

	resp, err := t.base().RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !shouldRefresh(out) {
		return resp, nil
	}
	return t.handleUnauthorized(out, resp, used)
}

func shouldRefresh(req *http.Request) bool {
	ctx := req.Context()
	if IsPublic(ctx) || isRetried(ctx) {
		return false
	}
	return !strings.Contains(req.URL.Path, RefreshPath)
}

// handleUnauthorized refreshes the token and replays req once. If the stored
// token already differs from the one req was sent with, another request has
// rotated it and req is replayed without a second refresh. On any failure the
// original 401 response is returned untouched.
func (t *Transport) handleUnauthorized(req *http.Request, resp *http.Response, used string) (*http.Response, error) {
	ctx := req.Context()
	logger := t.manager.logger

	current, err := t.manager.Token(ctx)
	if err != nil || current == "" || current == used {
		if _, err := t.manager.refresh(ctx); err != nil {
			logger.Warn("token refresh failed", "path", req.URL.Path, "error", err)
			return resp, nil
		}
	}

	replay, ok := rewind(req)
	if !ok {
		logger.Warn("request body cannot be replayed after refresh", "method", req.Method, "path", req.URL.Path)
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return t.RoundTrip(replay)
}

// rewind clones req for a replay marked as retried, with a fresh body and no
// stale Authorization header.
func rewind(req *http.Request) (*http.Request, bool) {
	replay := req.Clone(withRetried(req.Context()))
	replay.Header.Del("Authorization")

	if req.Body == nil || req.Body == http.NoBody {
		return replay, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	replay.Body = body
	return replay, true
}
