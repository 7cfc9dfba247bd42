package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/parley-chat/parley/pkg/logger"
)

// Session is the authentication state the rest of the client consults.
type Session struct {
	UserID        string
	Authenticated bool
}

// AuthError carries the server-supplied rejection message for a failed
// login or registration. Retryable by the caller.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RegistrationDetails is the input to Register. Role is filled from the
// configured default when empty.
type RegistrationDetails struct {
	Username   string
	Password   string
	Role       string
	Department string
	MajorName  string
}

// Gate owns the session and performs the login/register/logout operations.
// Message sending is gated on it; the routing layer consults it for the
// is-authenticated boolean but does not own it.
type Gate struct {
	baseURL     string
	httpClient  *http.Client
	defaultRole string
	session     Session
	resetHook   func()
}

// NewGate creates a gate against the given server base URL.
func NewGate(baseURL, defaultRole string) *Gate {
	return NewGateWithTimeout(baseURL, defaultRole, 30*time.Second)
}

// NewGateWithTimeout creates a gate with a custom request timeout.
func NewGateWithTimeout(baseURL, defaultRole string, timeout time.Duration) *Gate {
	return &Gate{
		baseURL:     baseURL,
		defaultRole: defaultRole,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// OnLogout registers a hook run after the session is cleared, used to reset
// the conversation.
func (g *Gate) OnLogout(fn func()) {
	g.resetHook = fn
}

// Session returns the current session state.
func (g *Gate) Session() Session {
	return g.session
}

// Authenticated reports whether a user is logged in.
func (g *Gate) Authenticated() bool {
	return g.session.Authenticated
}

// apiResponse is the code/msg/data envelope shared by the user endpoints.
type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Login submits credentials and records the returned identity on success.
func (g *Gate) Login(ctx context.Context, username, password string) (Session, error) {
	data, err := g.post(ctx, "/user/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return Session{}, err
	}

	var identity struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &identity); err != nil {
		return Session{}, &AuthError{Message: "malformed login response", Err: err}
	}

	g.session = Session{UserID: identity.Username, Authenticated: true}
	logger.Info("auth: logged in as %s", g.session.UserID)
	return g.session, nil
}

// Register creates an account and auto-authenticates with the identifier the
// server returns.
func (g *Gate) Register(ctx context.Context, details RegistrationDetails) (Session, error) {
	role := details.Role
	if role == "" {
		role = g.defaultRole
	}

	data, err := g.post(ctx, "/user/register", map[string]string{
		"username":   details.Username,
		"password":   details.Password,
		"role":       role,
		"department": details.Department,
		"majorName":  details.MajorName,
	})
	if err != nil {
		return Session{}, err
	}

	// The identifier comes back as a bare JSON value, string or number.
	// Numbers keep their wire literal; a float64 round-trip would mangle
	// large ids into exponent notation.
	var identifier string
	if err := json.Unmarshal(data, &identifier); err != nil {
		var numeric json.Number
		if err := json.Unmarshal(data, &numeric); err != nil {
			return Session{}, &AuthError{Message: "malformed register response", Err: err}
		}
		identifier = numeric.String()
	}

	g.session = Session{UserID: identifier, Authenticated: true}
	logger.Info("auth: registered and logged in as %s", g.session.UserID)
	return g.session, nil
}

// Logout clears the session and resets the conversation through the hook.
func (g *Gate) Logout() {
	g.session = Session{}
	logger.Info("auth: logged out")
	if g.resetHook != nil {
		g.resetHook()
	}
}

// post sends one user-endpoint request and unwraps the response envelope.
func (g *Gate) post(ctx context.Context, path string, payload map[string]string) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &AuthError{Message: "failed to encode request", Err: err}
	}

	url := fmt.Sprintf("%s%s", g.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &AuthError{Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &AuthError{Message: "could not reach the server", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{Message: fmt.Sprintf("server returned status %d", resp.StatusCode)}
	}

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &AuthError{Message: "malformed server response", Err: err}
	}

	if envelope.Code != 200 {
		return nil, &AuthError{Message: envelope.Msg}
	}

	return envelope.Data, nil
}
