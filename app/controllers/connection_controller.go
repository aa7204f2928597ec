package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/app/repository"
	"github.com/ManuelReschke/AdGenie/internal/pkg/connection"
	"github.com/ManuelReschke/AdGenie/internal/pkg/constants"
	"github.com/ManuelReschke/AdGenie/internal/pkg/metrics/counter"
	appsession "github.com/ManuelReschke/AdGenie/internal/pkg/session"
	"github.com/ManuelReschke/AdGenie/internal/pkg/usercontext"
)

// ConnectionController drives the ad account connection flow for the
// logged-in user and manages the stored links.
type ConnectionController struct {
	orch     *connection.Orchestrator
	links    repository.AccountLinkRepository
	store    *session.Store
	counters *counter.Counter
	timeout  time.Duration
}

func NewConnectionController(orch *connection.Orchestrator, links repository.AccountLinkRepository, store *session.Store, counters *counter.Counter, timeout time.Duration) *ConnectionController {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ConnectionController{orch: orch, links: links, store: store, counters: counters, timeout: timeout}
}

// HandleInitiate starts an attempt and returns the provider URL as JSON.
func (cc *ConnectionController) HandleInitiate(c *fiber.Ctx) error {
	attempt, err := cc.initiate(c)
	if err != nil {
		return apiErrorFrom(c, err)
	}
	return c.JSON(attempt)
}

// HandleStart starts an attempt and sends the browser to the provider.
func (cc *ConnectionController) HandleStart(c *fiber.Ctx) error {
	attempt, err := cc.initiate(c)
	if err != nil {
		fm := fiber.Map{
			"type":    "error",
			"message": fmt.Sprintf("Could not start the connection: %s", err),
		}
		return flash.WithError(c, fm).Redirect(constants.ConnectionsRoute)
	}
	return c.Redirect(attempt.AuthorizationURL, fiber.StatusSeeOther)
}

func (cc *ConnectionController) initiate(c *fiber.Ctx) (*connection.Attempt, error) {
	platform, err := models.ParsePlatform(c.Params("platform"))
	if err != nil {
		return nil, err
	}
	uc := usercontext.GetUserContext(c)

	attempt, err := cc.orch.Initiate(c.UserContext(), uc.UserID, platform)
	if err != nil {
		log.Errorf("[ConnectionController] initiate %s for user=%d: %v", platform, uc.UserID, err)
		return nil, err
	}

	// latest attempt of this session, used when the provider drops the state
	if err := appsession.SetSessionValue(cc.store, c, usercontext.KeyPendingState, attempt.State); err != nil {
		log.Warnf("[ConnectionController] failed to save pending state: %v", err)
	}
	return attempt, nil
}

// HandleCallback receives the provider redirect, completes the attempt and
// reports the outcome on the connections page.
func (cc *ConnectionController) HandleCallback(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	sessionState := appsession.PopSessionValue(cc.store, c, usercontext.KeyPendingState)

	query := url.Values{}
	for k, v := range c.Queries() {
		query.Set(k, v)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), cc.timeout)
	defer cancel()

	result, err := cc.orch.CompleteCallback(ctx, uc.UserID, connection.CallbackParamsFromQuery(query), sessionState)
	if err != nil {
		var attemptErr *connection.AttemptError
		if errors.As(err, &attemptErr) {
			cc.counters.ConnectionFailed(c.UserContext(), attemptErr.Platform)
		}
		fm := fiber.Map{
			"type":    "error",
			"message": callbackFailureMessage(err),
		}
		return flash.WithError(c, fm).Redirect(constants.ConnectionsRoute)
	}

	cc.counters.ConnectionLinked(c.UserContext(), result.Link.Platform)

	fm := fiber.Map{
		"type":    "success",
		"message": fmt.Sprintf("Your %s account has been connected.", result.Link.Platform.DisplayName()),
	}
	return flash.WithSuccess(c, fm).Redirect(constants.ConnectionsRoute)
}

func callbackFailureMessage(err error) string {
	var attemptErr *connection.AttemptError
	if errors.As(err, &attemptErr) {
		return fmt.Sprintf("Failed to complete %s authentication: %s", attemptErr.Platform.DisplayName(), attemptErr.Err)
	}
	return fmt.Sprintf("Failed to complete authentication: %s", err)
}

type platformCard struct {
	Platform    models.Platform
	Name        string
	Connected   bool
	LinkID      string
	AccountID   string
	ConnectedAt time.Time
}

// HandleConnectionsPage renders one card per platform with its link state.
func (cc *ConnectionController) HandleConnectionsPage(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	links, err := cc.links.ListByUserID(uc.UserID)
	if err != nil {
		log.Errorf("[ConnectionController] list links for user=%d: %v", uc.UserID, err)
		return fiber.ErrInternalServerError
	}

	byPlatform := make(map[models.Platform]models.AccountLink, len(links))
	for _, l := range links {
		byPlatform[l.Platform] = l
	}

	cards := make([]platformCard, 0, len(models.Platforms()))
	for _, p := range models.Platforms() {
		card := platformCard{Platform: p, Name: p.DisplayName()}
		if l, ok := byPlatform[p]; ok {
			card.Connected = true
			card.LinkID = l.ID
			card.AccountID = l.AccountID
			card.ConnectedAt = l.CreatedAt
		}
		cards = append(cards, card)
	}

	csrfToken, _ := c.Locals("csrf").(string)
	return c.Render("connections", fiber.Map{
		"Title": "Ad accounts",
		"User":  uc,
		"Cards": cards,
		"Flash": flash.Get(c),
		"CSRF":  csrfToken,
	}, "layouts/main")
}

// HandleListLinks returns the links of the current user.
func (cc *ConnectionController) HandleListLinks(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	links, err := cc.links.ListByUserID(uc.UserID)
	if err != nil {
		return apiErrorFrom(c, err)
	}
	return c.JSON(fiber.Map{"connections": links})
}

// HandleDeleteLink removes one of the current user's links.
func (cc *ConnectionController) HandleDeleteLink(c *fiber.Ctx) error {
	if err := cc.deleteOwnLink(c); err != nil {
		return apiErrorFrom(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleDeleteLinkForm is the form variant of HandleDeleteLink.
func (cc *ConnectionController) HandleDeleteLinkForm(c *fiber.Ctx) error {
	if err := cc.deleteOwnLink(c); err != nil {
		fm := fiber.Map{
			"type":    "error",
			"message": "The connection could not be removed.",
		}
		return flash.WithError(c, fm).Redirect(constants.ConnectionsRoute)
	}
	fm := fiber.Map{
		"type":    "success",
		"message": "The connection has been removed.",
	}
	return flash.WithSuccess(c, fm).Redirect(constants.ConnectionsRoute)
}

func (cc *ConnectionController) deleteOwnLink(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	link, err := cc.links.GetByID(c.Params("id"))
	if err != nil {
		return err
	}
	// foreign links look exactly like missing ones
	if link.UserID != uc.UserID {
		return gorm.ErrRecordNotFound
	}
	if err := cc.links.Delete(link.ID); err != nil {
		return err
	}
	log.Infof("[ConnectionController] user=%d removed %s link %s", uc.UserID, link.Platform, link.ID)
	return nil
}
