package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/andikafs/marketpulse-go/internal/config"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/observability"
)

// APIError represents a non-2xx response from the identity provider.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity request failed with status %d: %s", e.Status, e.Message)
}

// IsAuthError returns true for 401/403 responses from the provider.
func IsAuthError(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden)
}

// IsNotFound returns true when the provider reports an unknown user.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

// TokenClaims is the verified identity attached to a request.
type TokenClaims struct {
	UID    string                 `json:"uid"`
	Email  string                 `json:"email"`
	Claims map[string]interface{} `json:"claims"`
}

// IsAdmin reports whether the custom claims carry admin: true.
func (t *TokenClaims) IsAdmin() bool {
	if t == nil {
		return false
	}
	admin, ok := t.Claims["admin"].(bool)
	return ok && admin
}

// User is one identity provider account.
type User struct {
	UID          string                 `json:"uid"`
	Email        string                 `json:"email"`
	DisplayName  string                 `json:"display_name"`
	Disabled     bool                   `json:"disabled"`
	CustomClaims map[string]interface{} `json:"custom_claims"`
}

// CreateUserRequest carries the fields for a new account.
type CreateUserRequest struct {
	Email       string                 `json:"email"`
	Password    string                 `json:"password"`
	DisplayName string                 `json:"display_name,omitempty"`
	Roles       map[string]interface{} `json:"roles,omitempty"`
}

// UpdateUserRequest carries the mutable account fields. A nil Roles map
// clears the account's custom claims.
type UpdateUserRequest struct {
	DisplayName string                 `json:"display_name,omitempty"`
	Roles       map[string]interface{} `json:"roles"`
}

// Client is the HTTP client for the external identity provider.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
	apiKey     string
	clockSkew  time.Duration
	logger     logging.Logger
}

// NewClient creates a new identity client instance.
//
// Parameters:
//
//	cfg: Identity provider configuration.
//	logger: Logger.
//
// Returns:
//
//	*Client: Initialized client.
func NewClient(cfg *config.IdentityConfig, logger logging.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	skew := time.Duration(cfg.ClockSkewSeconds) * time.Second
	if skew == 0 {
		skew = 60 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   strings.TrimSuffix(cfg.ServiceURL, "/"),
		apiKey:    cfg.APIKey,
		clockSkew: skew,
		logger:    logger.WithComponent("identity"),
	}
}

// VerifyToken validates a bearer token with the identity provider and returns
// the claims it carries.
//
// An expired token is rejected locally before any network round trip; the
// expiry check allows the configured clock skew.
//
// Parameters:
//
//	ctx: Context.
//	token: Raw bearer token.
//
// Returns:
//
//	*TokenClaims: The verified identity.
//	error: Error when the token is expired, malformed or rejected.
func (c *Client) VerifyToken(ctx context.Context, token string) (*TokenClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}
	if err := c.checkExpiry(token); err != nil {
		return nil, err
	}

	ctx, span := observability.TraceExternalAPI(ctx, "identity", "verify_token")
	var claims TokenClaims
	err := c.makeRequest(ctx, http.MethodPost, "/v1/token/verify", map[string]string{"token": token}, &claims)
	observability.FinishSpan(span, err)
	if err != nil {
		return nil, err
	}
	if claims.UID == "" {
		return nil, fmt.Errorf("identity provider returned no uid")
	}
	return &claims, nil
}

// checkExpiry parses the token without signature verification and rejects it
// when the exp claim is already past. Signature validation stays with the
// provider; this only avoids a round trip for obviously stale tokens.
func (c *Client) checkExpiry(token string) error {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return fmt.Errorf("malformed token: %w", err)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		// No exp claim; let the provider decide
		return nil
	}
	if time.Now().Add(-c.clockSkew).After(exp.Time) {
		return fmt.Errorf("token expired at %s", exp.Time.UTC().Format(time.RFC3339))
	}
	return nil
}

// GetUser fetches a single account by uid.
func (c *Client) GetUser(ctx context.Context, uid string) (*User, error) {
	ctx, span := observability.TraceExternalAPI(ctx, "identity", "get_user")
	var user User
	err := c.makeRequest(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(uid), nil, &user)
	observability.FinishSpan(span, err)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers fetches every account, following the provider's page tokens.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	ctx, span := observability.TraceExternalAPI(ctx, "identity", "list_users")
	defer observability.FinishSpan(span, nil)

	var all []User
	pageToken := ""
	for {
		path := "/v1/users"
		if pageToken != "" {
			path += "?page_token=" + url.QueryEscape(pageToken)
		}
		var page struct {
			Users         []User `json:"users"`
			NextPageToken string `json:"next_page_token"`
		}
		if err := c.makeRequest(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Users...)
		if page.NextPageToken == "" {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}

// CreateUser provisions a new account and applies its custom claims.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	ctx, span := observability.TraceExternalAPI(ctx, "identity", "create_user")
	var user User
	err := c.makeRequest(ctx, http.MethodPost, "/v1/users", req, &user)
	observability.FinishSpan(span, err)
	if err != nil {
		return nil, err
	}
	if len(req.Roles) > 0 {
		if err := c.SetCustomClaims(ctx, user.UID, req.Roles); err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// UpdateUser changes an account's display name and replaces its custom
// claims. Nil roles clear the claims.
func (c *Client) UpdateUser(ctx context.Context, uid string, req UpdateUserRequest) error {
	ctx, span := observability.TraceExternalAPI(ctx, "identity", "update_user")
	err := c.makeRequest(ctx, http.MethodPut, "/v1/users/"+url.PathEscape(uid), map[string]string{"display_name": req.DisplayName}, nil)
	observability.FinishSpan(span, err)
	if err != nil {
		return err
	}
	return c.SetCustomClaims(ctx, uid, req.Roles)
}

// SetCustomClaims replaces an account's custom claims. A nil map clears them.
func (c *Client) SetCustomClaims(ctx context.Context, uid string, claims map[string]interface{}) error {
	body := map[string]interface{}{"claims": claims}
	return c.makeRequest(ctx, http.MethodPut, "/v1/users/"+url.PathEscape(uid)+"/claims", body, nil)
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, uid string) error {
	ctx, span := observability.TraceExternalAPI(ctx, "identity", "delete_user")
	err := c.makeRequest(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(uid), nil, nil)
	observability.FinishSpan(span, err)
	return err
}

// HealthCheck probes the provider.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.makeRequest(ctx, http.MethodGet, "/v1/health", nil, nil)
}

// makeRequest performs an HTTP request and decodes the JSON response.
func (c *Client) makeRequest(ctx context.Context, method, path string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.WithError(closeErr).Warn("Failed to close response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
		}
		message := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			message = errResp.Error
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
