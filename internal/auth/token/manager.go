// Package token owns the Xero credential lifecycle: PKCE authorization,
// code exchange, tenant discovery, transparent refresh and disconnect.
// Token material is persisted sealed and never leaves this package
// except as a short-lived access-token string.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/oakmont/xerosync/internal/db"
	"github.com/oakmont/xerosync/internal/secretbox"
	"github.com/oakmont/xerosync/internal/util"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Endpoints are the provider URLs. Tests point them at local doubles.
type Endpoints struct {
	AuthURL        string
	TokenURL       string
	ConnectionsURL string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		AuthURL:        "https://login.xero.com/identity/connect/authorize",
		TokenURL:       "https://identity.xero.com/connect/token",
		ConnectionsURL: "https://api.xero.com/connections",
	}
}

// Scopes cover identity plus accounting read/write. offline_access is
// what yields the refresh token.
var Scopes = []string{
	"openid", "profile", "email", "offline_access",
	"accounting.transactions", "accounting.settings",
}

// RefreshMargin is how early a token counts as expired; it absorbs the
// network latency of the API call that will use the token.
const RefreshMargin = 60 * time.Second

var (
	// ErrNotConfigured means no client id has been saved yet.
	ErrNotConfigured = errors.New("xero client id is not configured")
	// ErrUnavailable means no valid access token could be produced for
	// this call. The stored token set is left intact for a later attempt.
	ErrUnavailable = errors.New("no valid xero access token available")
	// ErrNoVerifier means the callback arrived without a pending
	// authorization attempt.
	ErrNoVerifier = errors.New("no pending pkce verifier")
)

// TokenSet is the raw provider token response plus the derived
// expires_at field. Kept as a map so provider fields we do not model
// survive persistence and refresh merges.
type TokenSet map[string]any

func (t TokenSet) AccessToken() string  { return t.str("access_token") }
func (t TokenSet) RefreshToken() string { return t.str("refresh_token") }
func (t TokenSet) IDToken() string      { return t.str("id_token") }

func (t TokenSet) ExpiresAt() int64 {
	switch v := t["expires_at"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

func (t TokenSet) str(key string) string {
	s, _ := t[key].(string)
	return s
}

// Manager orchestrates the credential lifecycle over the sealed
// key-value store.
type Manager struct {
	settings  *db.Settings
	box       *secretbox.Box
	http      *resty.Client
	log       *zap.Logger
	endpoints Endpoints
	now       func() time.Time

	// refreshMu serializes the read-modify-write of the stored token
	// set so two callers cannot race a refresh and invalidate each
	// other's rotated refresh token.
	refreshMu sync.Mutex
}

func NewManager(settings *db.Settings, box *secretbox.Box, log *zap.Logger) *Manager {
	return &Manager{
		settings:  settings,
		box:       box,
		http:      resty.New().SetTimeout(30 * time.Second),
		log:       log,
		endpoints: DefaultEndpoints(),
		now:       time.Now,
	}
}

// BeginAuthorization generates a PKCE verifier, persists it sealed and
// returns the provider authorization URL. The state token is persisted
// for single-use validation at the callback.
func (m *Manager) BeginAuthorization(redirectURI string) (string, error) {
	clientID, err := m.settings.Get(db.KeyClientID)
	if err != nil {
		return "", err
	}
	if clientID == "" {
		return "", ErrNotConfigured
	}

	verifier := oauth2.GenerateVerifier()
	sealed, err := m.box.Seal(verifier)
	if err != nil {
		return "", fmt.Errorf("seal verifier: %w", err)
	}
	// Overwrites any stale verifier from an abandoned flow: at most
	// one attempt is live at a time.
	if err := m.settings.Put(db.KeyPKCEVerifier, sealed); err != nil {
		return "", err
	}

	state := uuid.New().String()
	if err := m.settings.Put(db.KeyOAuthState, state); err != nil {
		return "", err
	}

	cfg := &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURI,
		Scopes:      Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  m.endpoints.AuthURL,
			TokenURL: m.endpoints.TokenURL,
		},
	}
	return cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// ConsumeState validates and burns the single-use state token.
func (m *Manager) ConsumeState(state string) bool {
	stored, err := m.settings.Get(db.KeyOAuthState)
	if err != nil || stored == "" || state != stored {
		return false
	}
	m.settings.Delete(db.KeyOAuthState)
	return true
}

// CompleteAuthorization exchanges the authorization code and stored
// verifier for a token set, persists it sealed and discovers the
// tenant. On exchange failure the prior state is left untouched.
func (m *Manager) CompleteAuthorization(ctx context.Context, code, redirectURI string) error {
	clientID, err := m.settings.Get(db.KeyClientID)
	if err != nil {
		return err
	}
	if clientID == "" {
		return ErrNotConfigured
	}

	sealedVerifier, err := m.settings.Get(db.KeyPKCEVerifier)
	if err != nil {
		return err
	}
	if sealedVerifier == "" {
		return ErrNoVerifier
	}
	verifier, err := m.box.Open(sealedVerifier)
	if err != nil {
		return fmt.Errorf("open verifier: %w", err)
	}

	tokens, err := m.tokenRequest(ctx, map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"redirect_uri":  redirectURI,
		"client_id":     clientID,
		"code_verifier": verifier,
	})
	if err != nil {
		return fmt.Errorf("code exchange: %w", err)
	}

	if err := m.persistTokens(tokens); err != nil {
		return err
	}
	// The verifier is spent the moment the exchange succeeds.
	m.settings.Delete(db.KeyPKCEVerifier)

	return m.discoverTenant(ctx, tokens.AccessToken())
}

// discoverTenant picks the first connection as the tenant. With
// multiple authorized organisations the rest are ignored; this system
// supports exactly one tenant at a time.
func (m *Manager) discoverTenant(ctx context.Context, accessToken string) error {
	resp, err := m.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Get(m.endpoints.ConnectionsURL)
	if err != nil {
		return fmt.Errorf("tenant discovery: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("tenant discovery status %d: %s", resp.StatusCode(), util.TruncateBytes(resp.Body()))
	}

	var connections []struct {
		TenantID string `json:"tenantId"`
	}
	if err := json.Unmarshal(resp.Body(), &connections); err != nil {
		return fmt.Errorf("tenant discovery: %w", err)
	}
	if len(connections) == 0 || connections[0].TenantID == "" {
		return errors.New("tenant discovery: no connections returned")
	}

	if len(connections) > 1 {
		m.log.Warn("multiple xero organisations authorized, using the first",
			zap.Int("count", len(connections)),
			zap.String("tenant_id", connections[0].TenantID))
	}
	return m.settings.Put(db.KeyTenantID, connections[0].TenantID)
}

// AccessToken returns a valid access token, refreshing transparently
// when the stored one is within RefreshMargin of expiry. Any refresh
// failure maps to ErrUnavailable and leaves the stored set intact.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	clientID, err := m.settings.Get(db.KeyClientID)
	if err != nil || clientID == "" {
		return "", ErrUnavailable
	}

	tokens, err := m.loadTokens()
	if err != nil || tokens == nil {
		return "", ErrUnavailable
	}

	if tokens.ExpiresAt() > m.now().Add(RefreshMargin).Unix() {
		return tokens.AccessToken(), nil
	}

	refreshToken := tokens.RefreshToken()
	if refreshToken == "" {
		m.log.Warn("token expired and no refresh token stored, reconnect required")
		return "", ErrUnavailable
	}

	fresh, err := m.tokenRequest(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     clientID,
	})
	if err != nil {
		// Keep the stored set: the refresh token may still work on a
		// later attempt after a transient failure.
		m.log.Error("token refresh failed", zap.Error(err))
		return "", ErrUnavailable
	}

	// Merge over the old set so fields absent from the refresh
	// response (an unrotated refresh_token, the id_token) survive.
	merged := TokenSet{}
	for k, v := range *tokens {
		merged[k] = v
	}
	for k, v := range fresh {
		merged[k] = v
	}
	if err := m.persistTokens(merged); err != nil {
		m.log.Error("persist refreshed tokens", zap.Error(err))
		return "", ErrUnavailable
	}
	return merged.AccessToken(), nil
}

// TenantID returns the stored tenant, or ErrUnavailable when none.
func (m *Manager) TenantID() (string, error) {
	tenant, err := m.settings.Get(db.KeyTenantID)
	if err != nil || tenant == "" {
		return "", ErrUnavailable
	}
	return tenant, nil
}

// Connected reports whether a token set and tenant are stored. It does
// not probe the provider.
func (m *Manager) Connected() bool {
	tokens, err := m.loadTokens()
	if err != nil || tokens == nil {
		return false
	}
	tenant, _ := m.settings.Get(db.KeyTenantID)
	return tenant != ""
}

// Tokens exposes the stored token set for status reporting.
func (m *Manager) Tokens() (TokenSet, error) {
	tokens, err := m.loadTokens()
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, ErrUnavailable
	}
	return *tokens, nil
}

// Disconnect wipes all credential state, a full reset to unconfigured.
func (m *Manager) Disconnect() error {
	for _, key := range []string{db.KeyTokenSet, db.KeyTenantID, db.KeyPKCEVerifier, db.KeyClientID, db.KeyOAuthState} {
		if err := m.settings.Delete(key); err != nil {
			return err
		}
	}
	m.log.Info("disconnected from xero, all credentials removed")
	return nil
}

// tokenRequest posts a form-encoded grant to the token endpoint and
// derives expires_at from expires_in at receipt time.
func (m *Manager) tokenRequest(ctx context.Context, form map[string]string) (TokenSet, error) {
	resp, err := m.http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(m.endpoints.TokenURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("token endpoint status %d: %s", resp.StatusCode(), util.TruncateBytes(resp.Body()))
	}

	var tokens TokenSet
	if err := json.Unmarshal(resp.Body(), &tokens); err != nil {
		return nil, fmt.Errorf("token endpoint: %w", err)
	}
	if tokens.AccessToken() == "" {
		return nil, fmt.Errorf("token endpoint: no access_token in response: %s", util.TruncateBytes(resp.Body()))
	}

	if expiresIn, ok := tokens["expires_in"].(float64); ok {
		tokens["expires_at"] = float64(m.now().Unix()) + expiresIn
	}
	return tokens, nil
}

func (m *Manager) persistTokens(tokens TokenSet) error {
	raw, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	sealed, err := m.box.Seal(string(raw))
	if err != nil {
		return fmt.Errorf("seal tokens: %w", err)
	}
	return m.settings.Put(db.KeyTokenSet, sealed)
}

// loadTokens returns nil without error when nothing is stored. Sealed
// values that fail to open are treated as data-unavailable, not fatal.
func (m *Manager) loadTokens() (*TokenSet, error) {
	sealed, err := m.settings.Get(db.KeyTokenSet)
	if err != nil {
		return nil, err
	}
	if sealed == "" {
		return nil, nil
	}
	raw, err := m.box.Open(sealed)
	if err != nil {
		m.log.Error("stored token set cannot be opened", zap.Error(err))
		return nil, err
	}
	var tokens TokenSet
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}
