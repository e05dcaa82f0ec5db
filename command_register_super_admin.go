package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterSuperAdminMessage struct {
	Email      string `json:"email" doc:"Super admin email."`
	Password   string `json:"password" doc:"Super admin plaintext password."`
	OnResponse func(resp *RegisterSuperAdminResponse)
}

func (p RegisterSuperAdminMessage) Type() string { return "super_admin.register" }

type RegisterSuperAdminResponse struct {
	Admin *SuperAdmin
}

// RegisterSuperAdminHandler performs the first-run bootstrap. The sentinel
// unique index guarantees at most one row ever exists, regardless of how many
// callers race the first signup.
type RegisterSuperAdminHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewRegisterSuperAdminHandler(repo RepositoryManager) *RegisterSuperAdminHandler {
	return &RegisterSuperAdminHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterSuperAdminHandler) WithLogger(logger Logger) *RegisterSuperAdminHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterSuperAdminHandler) Execute(ctx context.Context, event RegisterSuperAdminMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during super admin registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterSuperAdminHandler) execute(ctx context.Context, event RegisterSuperAdminMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)
	if email == "" {
		return goerrors.New("email is required for registration", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	if len(event.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	// fast path; the unique index still decides under contention
	exists, err := h.repo.SuperAdmins().Exists(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing super admin")
	}
	if exists {
		return ErrSuperAdminExists
	}

	passwordHash, err := HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	resp := &RegisterSuperAdminResponse{}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		admin, err := h.repo.SuperAdmins().CreateTx(ctx, tx, &SuperAdmin{
			Email:        email,
			PasswordHash: passwordHash,
		})
		if err != nil {
			return err
		}
		resp.Admin = admin
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register super admin")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
