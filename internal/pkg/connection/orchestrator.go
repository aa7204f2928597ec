// Package connection runs the account connection flow: an attempt is
// initiated, the browser goes to the provider, and the callback exchanges the
// code and stores the account link.
package connection

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/app/repository"
	"github.com/ManuelReschke/AdGenie/internal/pkg/adplatform"
)

var (
	// ErrMissingAuthorizationCode is returned when the provider redirect carries no code.
	ErrMissingAuthorizationCode = errors.New("authorization code not found in the callback URL")
	// ErrUnknownPendingPlatform is returned when no open attempt matches the callback.
	ErrUnknownPendingPlatform = errors.New("could not determine the platform for this authentication")
)

// Providers resolves the provider variant of a platform.
type Providers interface {
	Get(platform models.Platform) (adplatform.Provider, error)
}

// Attempt is the result of Initiate.
type Attempt struct {
	State            string          `json:"state"`
	Platform         models.Platform `json:"platform"`
	AuthorizationURL string          `json:"url"`
}

// CallbackParams are the query values of the provider redirect.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// CallbackParamsFromQuery reads the values every supported provider uses.
// TikTok sends auth_code instead of code.
func CallbackParamsFromQuery(q url.Values) CallbackParams {
	code := q.Get("code")
	if code == "" {
		code = q.Get("auth_code")
	}
	return CallbackParams{
		Code:             strings.TrimSpace(code),
		State:            strings.TrimSpace(q.Get("state")),
		Error:            strings.TrimSpace(q.Get("error")),
		ErrorDescription: strings.TrimSpace(q.Get("error_description")),
	}
}

// AttemptError is a failure after the attempt was resolved, so the platform
// is known to the caller.
type AttemptError struct {
	Platform models.Platform
	Err      error
}

func (e *AttemptError) Error() string {
	return e.Err.Error()
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// Result is a linked account together with the tokens it was linked with.
type Result struct {
	Link  *models.AccountLink
	Token *adplatform.TokenResult
}

type Orchestrator struct {
	pending   *PendingStore
	providers Providers
	links     repository.AccountLinkRepository
	now       func() time.Time
}

func NewOrchestrator(pending *PendingStore, providers Providers, links repository.AccountLinkRepository) *Orchestrator {
	return &Orchestrator{
		pending:   pending,
		providers: providers,
		links:     links,
		now:       time.Now,
	}
}

// Initiate opens an attempt for platform and returns the URL the browser has
// to visit. The state in that URL is the only handle on the attempt.
func (o *Orchestrator) Initiate(ctx context.Context, userID uint, platform models.Platform) (*Attempt, error) {
	provider, err := o.providers.Get(platform)
	if err != nil {
		return nil, err
	}

	state, err := generateState(24)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	p := PendingAuth{State: state, UserID: userID, Platform: platform, CreatedAt: o.now()}
	if err := o.pending.Put(ctx, p); err != nil {
		return nil, err
	}
	log.Infof("[Connection] user=%d platform=%s Idle -> PendingAuth", userID, platform)

	return &Attempt{
		State:            state,
		Platform:         platform,
		AuthorizationURL: provider.AuthorizationURL(state),
	}, nil
}

// CompleteCallback finishes the attempt identified by the callback state,
// falling back to sessionState when the provider dropped it. The attempt is
// consumed before the exchange, so a failed exchange needs a new Initiate.
func (o *Orchestrator) CompleteCallback(ctx context.Context, userID uint, params CallbackParams, sessionState string) (*Result, error) {
	if params.Error != "" {
		msg := params.Error
		if params.ErrorDescription != "" {
			msg += ": " + params.ErrorDescription
		}
		log.Warnf("[Connection] user=%d provider denied: %s", userID, msg)
		return nil, fmt.Errorf("%w: %s", ErrMissingAuthorizationCode, msg)
	}
	if params.Code == "" {
		return nil, ErrMissingAuthorizationCode
	}

	state := params.State
	if state == "" {
		state = sessionState
	}
	pending, err := o.pending.Take(ctx, state)
	if err != nil {
		return nil, err
	}
	if pending.UserID != userID || !pending.Platform.Valid() {
		log.Warnf("[Connection] user=%d presented state of user=%d", userID, pending.UserID)
		return nil, ErrUnknownPendingPlatform
	}
	log.Infof("[Connection] user=%d platform=%s PendingAuth -> Callback", userID, pending.Platform)

	provider, err := o.providers.Get(pending.Platform)
	if err != nil {
		return nil, &AttemptError{Platform: pending.Platform, Err: err}
	}

	token, err := adplatform.Connect(ctx, provider, params.Code)
	if err != nil {
		log.Errorf("[Connection] user=%d platform=%s Callback -> Failed: %v", userID, pending.Platform, err)
		return nil, &AttemptError{Platform: pending.Platform, Err: err}
	}

	link := &models.AccountLink{
		UserID:    userID,
		Platform:  pending.Platform,
		AccountID: token.AccountID,
	}
	if err := o.links.Upsert(link); err != nil {
		log.Errorf("[Connection] user=%d platform=%s store link failed: %v", userID, pending.Platform, err)
		return nil, &AttemptError{Platform: pending.Platform, Err: fmt.Errorf("store account link: %w", err)}
	}
	log.Infof("[Connection] user=%d platform=%s Callback -> Linked account=%q", userID, pending.Platform, link.AccountID)

	return &Result{Link: link, Token: token}, nil
}

func generateState(size int) (string, error) {
	if size < 16 {
		size = 16
	}
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
