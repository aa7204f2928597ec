package adplatform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ManuelReschke/AdGenie/app/models"
)

const (
	defaultTikTokAuthorizeURL = "https://ads.tiktok.com/marketing_api/auth"
	defaultTikTokTokenURL     = "https://business-api.tiktok.com/open_api/v1.3/oauth2/access_token/"

	// tiktokStaticState is sent when the caller has no correlation token.
	tiktokStaticState = "your-state"
)

// TikTokProvider connects TikTok for Business advertiser accounts.
type TikTokProvider struct {
	cfg    Config
	client *http.Client
}

func NewTikTokProvider(cfg Config) *TikTokProvider {
	cfg.AuthorizeURL = orDefault(cfg.AuthorizeURL, defaultTikTokAuthorizeURL)
	cfg.TokenURL = orDefault(cfg.TokenURL, defaultTikTokTokenURL)
	return &TikTokProvider{cfg: cfg, client: httpClientOrDefault(cfg.HTTPClient)}
}

func (p *TikTokProvider) Platform() models.Platform { return models.PlatformTikTok }

// AuthorizationURL uses app_id instead of client_id and has no scope; scopes
// are fixed in the TikTok developer console.
func (p *TikTokProvider) AuthorizationURL(state string) string {
	if state == "" {
		state = tiktokStaticState
	}
	q := url.Values{}
	q.Set("app_id", p.cfg.ClientID)
	q.Set("redirect_uri", p.cfg.RedirectURI)
	q.Set("state", state)

	sep := "?"
	if strings.Contains(p.cfg.AuthorizeURL, "?") {
		sep = "&"
	}
	return p.cfg.AuthorizeURL + sep + q.Encode()
}

type tiktokTokenResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		AccessToken   string   `json:"access_token"`
		AdvertiserIDs []string `json:"advertiser_ids"`
	} `json:"data"`
}

func (p *TikTokProvider) ExchangeCode(ctx context.Context, code string) (*TokenResult, error) {
	payload, err := json.Marshal(map[string]string{
		"app_id":    p.cfg.ClientID,
		"secret":    p.cfg.ClientSecret,
		"auth_code": code,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out tiktokTokenResponse
	if err := doJSON(p.client, req, &out); err != nil {
		return nil, err
	}
	if out.Data == nil || strings.TrimSpace(out.Data.AccessToken) == "" {
		msg := out.Message
		if msg == "" {
			msg = "no data.access_token in response"
		}
		return nil, fmt.Errorf("tiktok: code=%d %s: %w", out.Code, msg, ErrTokenExchangeFailed)
	}
	return &TokenResult{
		Platform:      models.PlatformTikTok,
		AccessToken:   out.Data.AccessToken,
		AdvertiserIDs: out.Data.AdvertiserIDs,
	}, nil
}

// ExtractAccountID picks the first advertiser. TikTok grants access to every
// advertiser the user selected; additional ones are ignored for now.
func (p *TikTokProvider) ExtractAccountID(_ context.Context, token *TokenResult) (string, error) {
	if token == nil || len(token.AdvertiserIDs) == 0 {
		return "", nil
	}
	return token.AdvertiserIDs[0], nil
}
