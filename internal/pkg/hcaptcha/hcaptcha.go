package hcaptcha

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

	"github.com/ManuelReschke/AdGenie/internal/pkg/env"
)

const defaultVerifyURL = "https://hcaptcha.com/siteverify"

var ErrFailed = errors.New("captcha validation failed")

type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verifier checks hCaptcha tokens. A nil or secretless Verifier is disabled.
type Verifier struct {
	secret    string
	siteKey   string
	verifyURL string
	client    *http.Client
}

func New(secret, siteKey, verifyURL string, client *http.Client) *Verifier {
	if verifyURL == "" {
		verifyURL = defaultVerifyURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{secret: secret, siteKey: siteKey, verifyURL: verifyURL, client: client}
}

// NewFromEnv reads HCAPTCHA_SECRET and HCAPTCHA_SITEKEY.
func NewFromEnv() *Verifier {
	return New(env.GetEnv("HCAPTCHA_SECRET", ""), env.GetEnv("HCAPTCHA_SITEKEY", ""), "", nil)
}

func (v *Verifier) Enabled() bool {
	return v != nil && v.secret != ""
}

func (v *Verifier) SiteKey() string {
	if !v.Enabled() {
		return ""
	}
	return v.siteKey
}

// Verify asks hCaptcha whether token was solved.
func (v *Verifier) Verify(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: token is empty", ErrFailed)
	}

	form := url.Values{
		"secret":   {v.secret},
		"response": {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to hCaptcha API: %w", err)
	}
	defer resp.Body.Close()

	var response Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode hCaptcha API response: %w", err)
	}

	if !response.Success {
		if len(response.ErrorCodes) > 0 {
			return fmt.Errorf("%w: %s", ErrFailed, strings.Join(response.ErrorCodes, ", "))
		}
		return ErrFailed
	}
	return nil
}
