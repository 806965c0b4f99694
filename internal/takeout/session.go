package takeout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tako-tv/tako/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Version is reported to the server in the User-Agent header.
var Version = "0.1.0"

// Session owns the credential triple for one signed-in user and performs
// authenticated requests against the Takeout server, recovering from
// access-token expiry with a single-flight refresh.
type Session struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger

	mu       sync.RWMutex
	tokens   *Tokens
	onTokens func(*Tokens)

	refreshGroup singleflight.Group
}

// NewSession creates a session for the given endpoint. tokens may be nil
// for a signed-out session; call Login to obtain credentials.
func NewSession(endpoint string, tokens *Tokens, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
		tokens: tokens,
	}
}

// Endpoint returns the server base URL without a trailing slash.
func (s *Session) Endpoint() string {
	return s.endpoint
}

// UserAgent identifies this client to the server.
func (s *Session) UserAgent() string {
	return fmt.Sprintf("Tako/%s (takeoutfm.com; %s)", Version, runtime.GOOS)
}

// OnTokens registers the single credential-change observer. It is called
// with the new token set after every successful login or refresh, and
// with nil when the credentials are invalidated. Transient refresh
// failures do not notify.
func (s *Session) OnTokens(fn func(*Tokens)) {
	s.mu.Lock()
	s.onTokens = fn
	s.mu.Unlock()
}

// Tokens returns a copy of the current token set, or nil when signed out.
func (s *Session) Tokens() *Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil {
		return nil
	}
	t := *s.tokens
	return &t
}

// MediaToken returns the bearer token scoped to streaming endpoints.
func (s *Session) MediaToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil {
		return ""
	}
	return s.tokens.MediaToken
}

// LoggedIn reports whether the session holds a valid token set.
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens != nil && s.tokens.Valid()
}

// SignOut discards the credentials and notifies the observer.
func (s *Session) SignOut() {
	s.invalidate()
}

func (s *Session) setTokens(t *Tokens) {
	s.mu.Lock()
	s.tokens = t
	fn := s.onTokens
	s.mu.Unlock()
	if fn != nil {
		c := *t
		fn(&c)
	}
}

func (s *Session) invalidate() {
	s.mu.Lock()
	s.tokens = nil
	fn := s.onTokens
	s.mu.Unlock()
	if fn != nil {
		fn(nil)
	}
}

func (s *Session) accessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens == nil || s.tokens.AccessToken == "" {
		return "", false
	}
	return s.tokens.AccessToken, true
}

// do performs one HTTP request. bearer may be empty for unauthenticated
// calls. Returns the status code and the raw body.
func (s *Session) do(ctx context.Context, method, path, bearer string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	s.logger.Debug("takeout request", "method", method, "path", path)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("takeout request failed", "method", method, "path", path, "error", err)
		return 0, nil, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, data, nil
}

// Login exchanges user/pass for a fresh token triple. The result is
// stored and the observer is notified. A rejected login, or a response
// missing any of the three tokens, fails with ErrAuthFailed.
func (s *Session) Login(ctx context.Context, user, pass string) (*Tokens, error) {
	body, err := json.Marshal(userRequest{User: user, Pass: pass})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal login request: %w", err)
	}

	status, data, err := s.do(ctx, http.MethodPost, "/api/token", "", body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		s.logger.Warn("login rejected", "status", status)
		return nil, domain.ErrAuthFailed
	}

	var t Tokens
	if err := json.Unmarshal(data, &t); err != nil || !t.Valid() {
		return nil, domain.ErrAuthFailed
	}

	s.setTokens(&t)

	c := t
	return &c, nil
}

// Get performs an authenticated GET and decodes the JSON response into
// dest. A 401 triggers exactly one refresh-and-retry cycle.
func (s *Session) Get(ctx context.Context, path string, dest any) error {
	_, err := s.authenticated(ctx, http.MethodGet, path, nil, dest)
	return err
}

// Post performs an authenticated POST with a JSON body and returns the
// HTTP status code. Callers that only care about the status (progress
// push) pass a nil dest and inspect the returned code.
func (s *Session) Post(ctx context.Context, path string, body any, dest any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return s.authenticated(ctx, http.MethodPost, path, data, dest)
}

func (s *Session) authenticated(ctx context.Context, method, path string, body []byte, dest any) (int, error) {
	access, ok := s.accessToken()
	if !ok {
		return 0, domain.ErrNotSignedIn
	}

	status, data, err := s.do(ctx, method, path, access, body)
	if err != nil {
		return 0, err
	}

	if status == http.StatusUnauthorized {
		if s.Refresh(ctx) {
			access, ok = s.accessToken()
			if !ok {
				return status, domain.ErrAuthFailed
			}
			status2, data2, err2 := s.do(ctx, method, path, access, body)
			if err2 != nil {
				// The refresh worked; the retry died on the wire. That is
				// a transport problem, not an authorization one.
				return 0, err2
			}
			if status2 == http.StatusUnauthorized {
				return status2, domain.ErrAuthFailed
			}
			return status2, decode(status2, data2, dest)
		}
		if !s.LoggedIn() {
			// The refresh token itself was rejected.
			return status, domain.ErrAuthFailed
		}
		// The refresh failed transiently; the session is intact.
		return status, fmt.Errorf("request unauthorized and token refresh failed")
	}

	return status, decode(status, data, dest)
}

func decode(status int, data []byte, dest any) error {
	if status < 200 || status >= 300 {
		return fmt.Errorf("unexpected status code: %d", status)
	}
	if dest == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Refresh exchanges the refresh token for a new access/refresh pair,
// preserving the media token. At most one refresh is in flight at a
// time; concurrent callers share its outcome. Returns true on success.
//
// A 401 from the refresh endpoint means the refresh token itself is
// invalid: the credentials are cleared and the observer notified with
// nil. Any other failure is transient and leaves the session intact.
func (s *Session) Refresh(ctx context.Context) bool {
	v, _, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		return s.doRefresh(ctx), nil
	})
	ok, _ := v.(bool)
	return ok
}

func (s *Session) doRefresh(ctx context.Context) bool {
	t := s.Tokens()
	if t == nil || t.RefreshToken == "" {
		return false
	}

	s.logger.Debug("refreshing tokens")

	status, data, err := s.do(ctx, http.MethodGet, "/api/token", t.RefreshToken, nil)
	if err != nil {
		s.logger.Warn("token refresh failed", "error", err)
		return false
	}

	if status == http.StatusUnauthorized {
		// The refresh token is no longer valid.
		s.logger.Warn("refresh token rejected, signing out")
		s.invalidate()
		return false
	}
	if status < 200 || status >= 300 {
		s.logger.Warn("token refresh failed", "status", status)
		return false
	}

	var rt refreshTokens
	if err := json.Unmarshal(data, &rt); err != nil || !rt.valid() {
		s.logger.Warn("token refresh returned an invalid pair")
		return false
	}

	s.setTokens(&Tokens{
		AccessToken:  rt.AccessToken,
		MediaToken:   t.MediaToken,
		RefreshToken: rt.RefreshToken,
	})
	return true
}
