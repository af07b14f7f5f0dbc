// Package xero is the typed request layer over the accounting API.
package xero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oakmont/xerosync/internal/util"
	"go.uber.org/zap"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the accounting resource API root.
const DefaultBaseURL = "https://api.xero.com/api.xro/2.0"

// CredentialSource supplies a valid bearer token and tenant. The
// listing helpers use it directly; Do takes both explicitly so the
// engine resolves credentials once per sync.
type CredentialSource interface {
	AccessToken(ctx context.Context) (string, error)
	TenantID() (string, error)
}

// RequestError carries the HTTP status and raw body of a failed call.
// 4xx validation failures are expected outcomes the caller inspects,
// not panics.
type RequestError struct {
	Status int
	Body   string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("xero request failed: %v", e.Err)
	}
	return fmt.Sprintf("xero request status %d: %s", e.Status, util.TruncateLog(e.Body, 256))
}

func (e *RequestError) Unwrap() error { return e.Err }

// Client performs authenticated requests against the accounting API.
type Client struct {
	http    *resty.Client
	baseURL string
	creds   CredentialSource
	log     *zap.Logger
}

func NewClient(creds CredentialSource, log *zap.Logger) *Client {
	return &Client{
		http:    resty.New().SetTimeout(30 * time.Second),
		baseURL: DefaultBaseURL,
		creds:   creds,
		log:     log,
	}
}

// SetBaseURL overrides the API root; used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// Do sends one request to a resource path (which may carry an encoded
// query) and decodes the JSON response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, resource, accessToken, tenantID string, body, out any) error {
	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("Xero-Tenant-Id", tenantID).
		SetHeader("Accept", "application/json")

	if method == http.MethodPost || method == http.MethodPut {
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(body)
	}

	resp, err := req.Execute(method, c.baseURL+"/"+resource)
	if err != nil {
		return &RequestError{Err: err}
	}

	if resp.StatusCode() >= 400 {
		c.log.Warn("xero api error",
			zap.String("resource", resource),
			zap.Int("status", resp.StatusCode()),
			zap.String("body", util.TruncateBytes(resp.Body())))
		return &RequestError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return &RequestError{Status: resp.StatusCode(), Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// BankAccounts lists bank-type accounts as code -> "Name (Code)".
// Returns an empty map when unauthenticated or on any failure: it
// feeds optional mapping dropdowns and must never block.
func (c *Client) BankAccounts(ctx context.Context) map[string]string {
	return c.accountsByFilter(ctx, `Type=="BANK"`)
}

// SalesAccounts lists revenue and other-income accounts the same way.
func (c *Client) SalesAccounts(ctx context.Context) map[string]string {
	return c.accountsByFilter(ctx, `Type=="REVENUE" OR Type=="OTHERINCOME"`)
}

func (c *Client) accountsByFilter(ctx context.Context, filter string) map[string]string {
	accounts := map[string]string{}

	accessToken, err := c.creds.AccessToken(ctx)
	if err != nil {
		return accounts
	}
	tenantID, err := c.creds.TenantID()
	if err != nil {
		return accounts
	}

	var parsed AccountsResponse
	resource := "Accounts?where=" + url.QueryEscape(filter)
	if err := c.Do(ctx, http.MethodGet, resource, accessToken, tenantID, nil, &parsed); err != nil {
		c.log.Warn("account listing failed", zap.Error(err))
		return accounts
	}

	for _, account := range parsed.Accounts {
		if account.Code != "" && account.Name != "" {
			accounts[account.Code] = fmt.Sprintf("%s (%s)", account.Name, account.Code)
		}
	}
	return accounts
}
