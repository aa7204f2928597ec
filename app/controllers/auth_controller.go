package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/markbates/goth"
	gothfiber "github.com/shareed2k/goth_fiber"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/app/repository"
	"github.com/ManuelReschke/AdGenie/internal/pkg/authz"
	"github.com/ManuelReschke/AdGenie/internal/pkg/constants"
	"github.com/ManuelReschke/AdGenie/internal/pkg/hcaptcha"
	"github.com/ManuelReschke/AdGenie/internal/pkg/middleware"
	"github.com/ManuelReschke/AdGenie/internal/pkg/oauth"
	"github.com/ManuelReschke/AdGenie/internal/pkg/usercontext"
	"github.com/ManuelReschke/AdGenie/internal/pkg/utils"
)

// errInvalidCredentials never tells which of email or password was wrong.
var errInvalidCredentials = errors.New("invalid email or password")

var validate = validator.New()

type AuthController struct {
	users   repository.UserRepository
	auth    *authz.Authorizer
	store   *session.Store
	captcha *hcaptcha.Verifier
}

// NewAuthController builds the controller. A nil or disabled captcha skips
// the check on the sign-up form.
func NewAuthController(users repository.UserRepository, auth *authz.Authorizer, store *session.Store, captcha *hcaptcha.Verifier) *AuthController {
	return &AuthController{users: users, auth: auth, store: store, captcha: captcha}
}

type registerRequest struct {
	Name     string `json:"name" form:"name" validate:"required,min=2,max=150"`
	Email    string `json:"email" form:"email" validate:"required,email,max=200"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (ac *AuthController) register(req registerRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if _, err := ac.users.GetByEmail(req.Email); err == nil {
		return nil, fmt.Errorf("email %s is already registered", req.Email)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Name), req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if err := ac.users.Create(user); err != nil {
		return nil, err
	}
	log.Infof("[Auth] registered user=%d", user.ID)
	return user, nil
}

func (ac *AuthController) login(c *fiber.Ctx, req loginRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		return nil, errInvalidCredentials
	}
	user, err := ac.users.GetByEmail(req.Email)
	if err != nil {
		return nil, errInvalidCredentials
	}
	if !user.CheckPassword(req.Password) {
		return nil, errInvalidCredentials
	}
	if err := ac.startSession(c, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (ac *AuthController) startSession(c *fiber.Ctx, user *models.User) error {
	sess, err := ac.store.Get(c)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	// new session id on login
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	middleware.StoreUserContext(sess, ac.auth.FromUser(user))
	return sess.Save()
}

func (ac *AuthController) HandleLoginPage(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Redirect(constants.PublicRoute, fiber.StatusSeeOther)
	}
	csrfToken, _ := c.Locals("csrf").(string)
	return c.Render("auth/login", fiber.Map{
		"Title":     "Login",
		"User":      usercontext.GetUserContext(c),
		"Flash":     flash.Get(c),
		"CSRF":      csrfToken,
		"Providers": oauth.SocialProviders,
	}, "layouts/main")
}

func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": errInvalidCredentials.Error()}).Redirect(constants.LoginRoute)
	}
	if _, err := ac.login(c, req); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": err.Error()}).Redirect(constants.LoginRoute)
	}
	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Welcome back!"}).Redirect(constants.PublicRoute)
}

func (ac *AuthController) HandleRegisterPage(c *fiber.Ctx) error {
	csrfToken, _ := c.Locals("csrf").(string)
	return c.Render("auth/register", fiber.Map{
		"Title":           "Sign up",
		"User":            usercontext.GetUserContext(c),
		"Flash":           flash.Get(c),
		"CSRF":            csrfToken,
		"HCaptchaSiteKey": ac.captcha.SiteKey(),
	}, "layouts/main")
}

func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return flash.WithError(c, fiber.Map{"type": "error", "message": "invalid form"}).Redirect(constants.RegisterRoute)
	}
	if ac.captcha.Enabled() {
		if err := ac.captcha.Verify(c.UserContext(), c.FormValue("h-captcha-response")); err != nil {
			log.Warnf("[Auth] captcha: %v", err)
			return flash.WithError(c, fiber.Map{"type": "error", "message": "Captcha validation failed. Please try again."}).Redirect(constants.RegisterRoute)
		}
	}
	if _, err := ac.register(req); err != nil {
		fm := fiber.Map{
			"type":    "error",
			"message": fmt.Sprintf("something went wrong: %s", err),
		}
		return flash.WithError(c, fm).Redirect(constants.RegisterRoute)
	}
	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "Your account has been created, please log in."}).Redirect(constants.LoginRoute)
}

func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	if sess, err := ac.store.Get(c); err == nil {
		if err := sess.Destroy(); err != nil {
			log.Warnf("[Auth] destroy session: %v", err)
		}
	}
	return flash.WithSuccess(c, fiber.Map{"type": "success", "message": "You have been logged out."}).Redirect(constants.LoginRoute)
}

// HandleAPIRegister creates an account from a JSON body.
func (ac *AuthController) HandleAPIRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	user, err := ac.register(req)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (ac *AuthController) HandleAPILogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	user, err := ac.login(c, req)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			return apiError(c, fiber.StatusUnauthorized, "unauthorized", err.Error())
		}
		log.Errorf("[Auth] login: %v", err)
		return apiErrorFrom(c, err)
	}
	return c.JSON(user)
}

func (ac *AuthController) HandleAPILogout(c *fiber.Ctx) error {
	if sess, err := ac.store.Get(c); err == nil {
		_ = sess.Destroy()
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleAPIMe returns the profile of the current user. Without a stored
// avatar the Gravatar of the email is used, sized by ?avatar_size=.
func (ac *AuthController) HandleAPIMe(c *fiber.Ctx) error {
	user, err := ac.users.GetByID(usercontext.GetUserID(c))
	if err != nil {
		return apiErrorFrom(c, err)
	}
	if user.AvatarURL == "" {
		user.AvatarURL = utils.GravatarURL(user.Email, c.QueryInt("avatar_size", utils.DefaultAvatarSize))
	}
	return c.JSON(user)
}

// HandleOAuthCallback completes the social sign-in and logs the user in.
// Accounts are matched by email.
func (ac *AuthController) HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		log.Warnf("[Auth] social sign-in failed: %v", err)
		return flash.WithError(c, fiber.Map{"type": "error", "message": "Social sign-in failed."}).Redirect(constants.LoginRoute)
	}

	user, err := ac.socialUser(u)
	if err != nil {
		log.Errorf("[Auth] resolve %s user: %v", u.Provider, err)
		return fiber.ErrInternalServerError
	}

	if err := ac.startSession(c, user); err != nil {
		log.Errorf("[Auth] session for user=%d: %v", user.ID, err)
		return fiber.ErrInternalServerError
	}
	return c.Redirect(constants.PublicRoute, fiber.StatusSeeOther)
}

// socialUser finds the account for a social identity by email, creating it
// on first sign-in. An existing account without an avatar takes the
// provider's picture.
func (ac *AuthController) socialUser(u goth.User) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email == "" {
		// the unique index needs a non-empty email
		email = fmt.Sprintf("%s_%s@%s.oauth.local", u.Provider, u.UserID, u.Provider)
	}

	user, err := ac.users.GetByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, err := models.HashPassword(randomPlaceholder())
		if err != nil {
			return nil, err
		}
		user = &models.User{
			Name:      firstNonEmpty(u.Name, u.NickName, u.Email, "User"),
			Email:     email,
			Password:  hash,
			Role:      models.ROLE_USER,
			AvatarURL: u.AvatarURL,
		}
		if err := ac.users.Create(user); err != nil {
			return nil, err
		}
		log.Infof("[Auth] registered user=%d via %s", user.ID, u.Provider)
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	if user.AvatarURL == "" && u.AvatarURL != "" {
		user.AvatarURL = u.AvatarURL
		if err := ac.users.Update(user); err != nil {
			log.Warnf("[Auth] store avatar of user=%d: %v", user.ID, err)
		}
	}
	return user, nil
}

func randomPlaceholder() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return "oauth_" + hex.EncodeToString(b)
}
