package adplatform

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/ManuelReschke/AdGenie/app/models"
)

const (
	defaultGoogleAuthorizeURL = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultGoogleTokenURL     = "https://oauth2.googleapis.com/token"
	googleAdsScope            = "https://www.googleapis.com/auth/adwords"
)

// GoogleProvider connects Google Ads accounts. Customer ids need a separate
// Ads API call, so no account id is resolved.
type GoogleProvider struct {
	cfg    Config
	oauth  *oauth2.Config
	client *http.Client
}

func NewGoogleProvider(cfg Config) *GoogleProvider {
	cfg.AuthorizeURL = orDefault(cfg.AuthorizeURL, defaultGoogleAuthorizeURL)
	cfg.TokenURL = orDefault(cfg.TokenURL, defaultGoogleTokenURL)
	return &GoogleProvider{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{googleAdsScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: httpClientOrDefault(cfg.HTTPClient),
	}
}

func (p *GoogleProvider) Platform() models.Platform { return models.PlatformGoogle }

func (p *GoogleProvider) AuthorizationURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*TokenResult, error) {
	tok, err := exchangeOAuth2(ctx, p.oauth, p.client, models.PlatformGoogle, code)
	if err != nil {
		return nil, err
	}
	return &TokenResult{
		Platform:     models.PlatformGoogle,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn(tok),
	}, nil
}

func (p *GoogleProvider) ExtractAccountID(context.Context, *TokenResult) (string, error) {
	return "", nil
}
