// Package adplatform talks to the OAuth endpoints of the supported ad
// networks. Every network is one Provider variant; callers never branch on
// the platform themselves.
package adplatform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ManuelReschke/AdGenie/app/models"
)

var (
	// ErrTokenExchangeFailed means the provider answered but returned no usable access token.
	ErrTokenExchangeFailed = errors.New("failed to obtain access token")
	// ErrUpstream means the provider could not be reached or answered with something other than JSON.
	ErrUpstream = errors.New("ad platform unreachable")
)

const (
	defaultHTTPTimeout = 15 * time.Second
	maxResponseBytes   = 1 << 20
)

// TokenResult is what a successful code exchange yields.
type TokenResult struct {
	Platform     models.Platform
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	AccountID    string

	// advertiser ids as reported by the token endpoint, if the platform sends any
	AdvertiserIDs []string
}

// Config is the per-platform client configuration. Empty values are allowed;
// the provider then builds URLs anyway and every exchange fails upstream.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	AuthorizeURL string
	TokenURL     string
	APIBaseURL   string

	HTTPClient *http.Client
}

// Provider is one ad network.
type Provider interface {
	Platform() models.Platform
	// AuthorizationURL builds the consent URL. state may be empty.
	AuthorizationURL(state string) string
	// ExchangeCode trades an authorization code for tokens.
	ExchangeCode(ctx context.Context, code string) (*TokenResult, error)
	// ExtractAccountID resolves the platform account for an exchanged token.
	// An empty id is not an error.
	ExtractAccountID(ctx context.Context, token *TokenResult) (string, error)
}

// Connect runs the full exchange for one code and fills in the account id.
func Connect(ctx context.Context, p Provider, code string) (*TokenResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%s: empty authorization code: %w", p.Platform(), ErrTokenExchangeFailed)
	}
	token, err := p.ExchangeCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	accountID, err := p.ExtractAccountID(ctx, token)
	if err != nil {
		return nil, err
	}
	token.AccountID = accountID
	return token, nil
}

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

// doJSON sends req and decodes the JSON body into out regardless of the
// status code, since providers report errors inside the body.
func doJSON(client *http.Client, req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: status=%d non-json body: %v", ErrUpstream, resp.StatusCode, err)
	}
	return nil
}

// exchangeOAuth2 runs the authorization code grant through x/oauth2 and maps
// its failures onto ErrUpstream and ErrTokenExchangeFailed.
func exchangeOAuth2(ctx context.Context, cfg *oauth2.Config, client *http.Client, platform models.Platform, code string) (*oauth2.Token, error) {
	tok, err := cfg.Exchange(context.WithValue(ctx, oauth2.HTTPClient, client), code)
	if err == nil {
		return tok, nil
	}

	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if !json.Valid(rerr.Body) {
			status := 0
			if rerr.Response != nil {
				status = rerr.Response.StatusCode
			}
			return nil, fmt.Errorf("%w: status=%d non-json body", ErrUpstream, status)
		}
		var body oauthError
		_ = json.Unmarshal(rerr.Body, &body)
		return nil, fmt.Errorf("%s: %s: %w", platform, body.String(), ErrTokenExchangeFailed)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) || ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	// a 2xx answer without an access token
	return nil, fmt.Errorf("%s: %v: %w", platform, err, ErrTokenExchangeFailed)
}

func expiresIn(tok *oauth2.Token) int {
	if tok.Expiry.IsZero() {
		return 0
	}
	return int(time.Until(tok.Expiry).Round(time.Second).Seconds())
}

// oauthError is the error shape shared by Google and the Graph API.
type oauthError struct {
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func (e oauthError) set() bool {
	return len(e.Error) > 0 && string(e.Error) != "null"
}

func (e oauthError) String() string {
	if e.ErrorDescription != "" {
		return e.ErrorDescription
	}
	if len(e.Error) == 0 {
		return "no access_token in response"
	}
	var s string
	if json.Unmarshal(e.Error, &s) == nil {
		return s
	}
	var graph struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(e.Error, &graph) == nil && graph.Message != "" {
		return graph.Message
	}
	return string(e.Error)
}
