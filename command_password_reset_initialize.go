package identity

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ResetTokenTTL is how long a reset link stays redeemable.
var ResetTokenTTL = time.Hour

type InitializePasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// InitializePasswordResetResponse reports success regardless of whether the
// email matched an account.
type InitializePasswordResetResponse struct {
	Success bool
}

type InitializePasswordResetHandler struct {
	repo    RepositoryManager
	mailer  Mailer
	baseURL string
	logger  Logger
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(repo RepositoryManager, mailer Mailer) *InitializePasswordResetHandler {
	if mailer == nil {
		mailer = NewLogMailer(nil)
	}
	return &InitializePasswordResetHandler{
		repo:    repo,
		mailer:  mailer,
		baseURL: "/reset-password",
		logger:  defLogger{},
	}
}

// WithBaseURL overrides the path prefix of the emailed reset link.
func (h *InitializePasswordResetHandler) WithBaseURL(base string) *InitializePasswordResetHandler {
	if base != "" {
		h.baseURL = base
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

// execute always resolves to success for well-formed input. Whether the email
// matched an account is not observable from the outside.
func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)
	if email == "" {
		return goerrors.New("email is required for password reset", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	var secret string
	var recipient string

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByEmail(ctx, email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		// a new request invalidates every outstanding token for the account
		if err := h.repo.PasswordResets().DeleteForUserTx(ctx, tx, user.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear previous reset tokens")
		}

		secret, err = NewResetSecret()
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset secret")
		}

		reset := &PasswordResetToken{
			UserID:    user.ID,
			TokenHash: HashToken(secret),
			ExpiresAt: time.Now().Add(ResetTokenTTL),
		}

		if _, err := h.repo.PasswordResets().CreateTx(ctx, tx, reset); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create password reset record")
		}

		recipient = user.Email
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	if secret != "" {
		link := fmt.Sprintf("%s?token=%s", h.baseURL, secret)
		if err := h.mailer.SendPasswordReset(recipient, link); err != nil {
			h.logger.Error("failed to send password reset email", "error", err)
		}
	}

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{Success: true})
	}

	return nil
}
