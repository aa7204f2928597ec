package adplatform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/ManuelReschke/AdGenie/app/models"
)

const (
	defaultMetaAuthorizeURL = "https://www.facebook.com/v17.0/dialog/oauth"
	defaultMetaTokenURL     = "https://graph.facebook.com/v17.0/oauth/access_token"
	defaultMetaAPIBaseURL   = "https://graph.facebook.com/v17.0"
	metaAdsScope            = "ads_management,ads_read,business_management"
)

// MetaProvider connects Meta ad accounts through the Graph API.
type MetaProvider struct {
	cfg    Config
	oauth  *oauth2.Config
	client *http.Client
}

func NewMetaProvider(cfg Config) *MetaProvider {
	cfg.AuthorizeURL = orDefault(cfg.AuthorizeURL, defaultMetaAuthorizeURL)
	cfg.TokenURL = orDefault(cfg.TokenURL, defaultMetaTokenURL)
	cfg.APIBaseURL = strings.TrimRight(orDefault(cfg.APIBaseURL, defaultMetaAPIBaseURL), "/")
	return &MetaProvider{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			// Graph expects a comma separated list, oauth2 would join with spaces
			Scopes: []string{metaAdsScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: httpClientOrDefault(cfg.HTTPClient),
	}
}

func (p *MetaProvider) Platform() models.Platform { return models.PlatformMeta }

func (p *MetaProvider) AuthorizationURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

func (p *MetaProvider) ExchangeCode(ctx context.Context, code string) (*TokenResult, error) {
	tok, err := exchangeOAuth2(ctx, p.oauth, p.client, models.PlatformMeta, code)
	if err != nil {
		return nil, err
	}
	return &TokenResult{
		Platform:    models.PlatformMeta,
		AccessToken: tok.AccessToken,
		ExpiresIn:   expiresIn(tok),
	}, nil
}

// ExtractAccountID asks /me for the id of the user that granted access.
func (p *MetaProvider) ExtractAccountID(ctx context.Context, token *TokenResult) (string, error) {
	q := url.Values{}
	q.Set("access_token", token.AccessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.APIBaseURL+"/me?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var me struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		oauthError
	}
	if err := doJSON(p.client, req, &me); err != nil {
		return "", err
	}
	if me.oauthError.set() {
		return "", fmt.Errorf("%w: meta /me: %s", ErrUpstream, me.oauthError.String())
	}
	return strings.TrimSpace(me.ID), nil
}
