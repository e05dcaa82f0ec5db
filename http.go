package identity

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// CookieAuthenticator binds one domain's Auther to its session cookie. The
// cookie is httpOnly and SameSite=Lax; Secure follows the domain config.
type CookieAuthenticator struct {
	auth           *Auther
	cfg            Config
	cookieDuration time.Duration
	Logger         Logger
}

func NewHTTPAuthenticator(auther *Auther, cfg Config) (*CookieAuthenticator, error) {
	cookieDuration := time.Duration(DefaultTokenExpirationHours) * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	return &CookieAuthenticator{
		auth:           auther,
		cfg:            cfg,
		cookieDuration: cookieDuration,
		Logger:         defLogger{},
	}, nil
}

func (a CookieAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// Auther exposes the underlying authenticator.
func (a *CookieAuthenticator) Auther() *Auther {
	return a.auth
}

// Login verifies credentials and, on success, installs the session cookie.
func (a *CookieAuthenticator) Login(ctx router.Context, email, password string) error {
	token, err := a.auth.Login(ctx.Context(), email, password)
	if err != nil {
		a.Logger.Error("Login error", "domain", a.auth.Domain(), "error", err)
		return err
	}

	a.SetSession(ctx, token)
	return nil
}

// SetSession installs an already minted token; used for auto-login after
// signup.
func (a *CookieAuthenticator) SetSession(ctx router.Context, token string) {
	ctx.Cookie(&router.Cookie{
		Name:     a.cfg.GetCookieName(),
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(a.cookieDuration),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

// Logout clears the session cookie. There is nothing server-side to revoke.
func (a *CookieAuthenticator) Logout(ctx router.Context) {
	ctx.Cookie(&router.Cookie{
		Name:     a.cfg.GetCookieName(),
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

// SessionToken reads the raw token from the domain cookie; empty when the
// request carries none.
func (a *CookieAuthenticator) SessionToken(ctx router.Context) string {
	return ctx.Cookies(a.cfg.GetCookieName())
}

// Protected returns middleware that authenticates the domain cookie through
// the given resolver and stores the principal in the request context, where
// IdentityFromContext picks it up.
func (a *CookieAuthenticator) Protected(resolve func(ctx context.Context, rawToken string) (Identity, error)) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			identity, err := resolve(c.Context(), a.SessionToken(c))
			if err != nil {
				return RespondError(c, err)
			}

			c.SetContext(WithIdentityContext(c.Context(), identity))
			return next(c)
		}
	}
}

// RespondError writes the JSON error envelope for the status contract.
// Internal details never reach the client on 5xx.
func RespondError(ctx router.Context, err error) error {
	status := HTTPStatus(err)

	message := "internal server error"
	body := map[string]any{}

	var richErr *errors.Error
	if errors.As(err, &richErr) && status < http.StatusInternalServerError {
		message = richErr.Message
		if richErr.TextCode != "" {
			body["code"] = richErr.TextCode
		}
	}

	body["error"] = message
	return ctx.JSON(status, body)
}
