package identity

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes give API clients a stable machine handle next to the HTTP status.
const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeTokenInvalid       = "INVALID_SESSION_TOKEN"
	TextCodeAccountDisabled    = "ACCOUNT_DISABLED"
	TextCodeResetTokenInvalid  = "INVALID_OR_EXPIRED_TOKEN"
	TextCodePasswordTooShort   = "PASSWORD_TOO_SHORT"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeSuperAdminExists   = "SUPER_ADMIN_EXISTS"
	TextCodeInviteExpired      = "INVITE_EXPIRED"
	TextCodeSessionEnded       = "SESSION_ENDED"
	TextCodeSessionNotStarted  = "SESSION_NOT_STARTED"
)

// ErrInvalidCredentials is returned on any login failure. It deliberately does
// not distinguish an unknown email from a wrong password.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)

// ErrMismatchedHashAndPassword is the internal bcrypt comparison failure; the
// HTTP surface folds it into ErrInvalidCredentials.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match stored credential", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)

// ErrNoEmptyString rejects empty secrets before they reach bcrypt.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeEmptyPassword)

// ErrTokenInvalid covers every session token failure: bad signature, malformed
// payload, wrong domain, expired. Callers must not be able to tell which.
var ErrTokenInvalid = goerrors.New("invalid or expired session token", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenInvalid)

// ErrNoSession is returned when a request carries no session cookie at all.
var ErrNoSession = goerrors.New("no session credential present", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountDisabled marks a valid token whose user is soft-deleted or
// banned. Still a 401, but the text code tells the client to route the
// browser to the account-disabled page instead of the login form.
var ErrAccountDisabled = goerrors.New("account is disabled", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeAccountDisabled)

// ErrForbidden is the authenticated-but-insufficient-role outcome. Kept
// distinct from the 401 family so role failures never masquerade as missing
// credentials.
var ErrForbidden = goerrors.New("insufficient role for this operation", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden)

// ErrNotCompanyAdmin rejects a valid user credential presented on the
// company-admin login path.
var ErrNotCompanyAdmin = goerrors.New("not a company administrator", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)

// ErrSuperAdminExists enforces the singleton: at most one platform super
// admin may ever exist.
var ErrSuperAdminExists = goerrors.New("super admin already exists", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeSuperAdminExists)

// ErrEmailTaken rejects signups against an already registered email.
var ErrEmailTaken = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeEmailTaken)

// ErrResetTokenInvalid covers unknown, consumed, and expired reset tokens.
var ErrResetTokenInvalid = goerrors.New("invalid or expired password reset token", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeResetTokenInvalid)

// ErrPasswordTooShort enforces the 8 character minimum before any store call.
var ErrPasswordTooShort = goerrors.New("password must be at least 8 characters", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodePasswordTooShort)

// ErrInviteNotFound is the unknown-token outcome for every invite kind.
var ErrInviteNotFound = goerrors.New("invite not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInviteExpired is derived from the clock at resolution time; expired
// invites are never swept or rewritten.
var ErrInviteExpired = goerrors.New("invite has expired", goerrors.CategoryNotFound).
	WithCode(http.StatusGone).
	WithTextCode(TextCodeInviteExpired)

// ErrSessionEnded rejects tester invites whose session has completed.
var ErrSessionEnded = goerrors.New("session has ended", goerrors.CategoryNotFound).
	WithCode(http.StatusGone).
	WithTextCode(TextCodeSessionEnded)

// ErrSessionNotStarted rejects tester invites whose session is still a draft.
var ErrSessionNotStarted = goerrors.New("session has not started", goerrors.CategoryNotFound).
	WithCode(http.StatusTooEarly).
	WithTextCode(TextCodeSessionNotStarted)

// ErrTooManyLoginAttempts throttles repeated failures inside the cooldown
// window.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithCode(http.StatusTooManyRequests)

// HTTPStatus maps any error to the subsystem's status contract: 401 no/bad
// credential, 403 wrong role, 400 validation, 409 conflict, 404 unknown
// token, 410 expired/ended, 425 not yet started, 500 everything downstream.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	if richErr.Code >= http.StatusBadRequest {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
