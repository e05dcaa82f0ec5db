package identity

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterCompanyMessage struct {
	CompanyName string `json:"company_name" example:"Acme Testing" doc:"Display name of the company."`
	FirstName   string `json:"first_name" doc:"Owner given name."`
	LastName    string `json:"last_name" doc:"Owner family name."`
	Email       string `json:"email" doc:"Owner account email."`
	Password    string `json:"password" doc:"Owner plaintext password."`
	OnResponse  func(resp *RegisterCompanyResponse)
}

func (p RegisterCompanyMessage) Type() string { return "company.register" }

type RegisterCompanyResponse struct {
	Company *Company
	User    *User
	Admin   *CompanyAdmin
}

// RegisterCompanyHandler provisions a tenant: the company row, the owner's
// user account, and the owner admin row, all in one transaction.
type RegisterCompanyHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewRegisterCompanyHandler(repo RepositoryManager) *RegisterCompanyHandler {
	return &RegisterCompanyHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterCompanyHandler) WithLogger(logger Logger) *RegisterCompanyHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterCompanyHandler) Execute(ctx context.Context, event RegisterCompanyMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during company registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterCompanyHandler) execute(ctx context.Context, event RegisterCompanyMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	name := strings.TrimSpace(event.CompanyName)
	if name == "" {
		return goerrors.New("company name is required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	email := NormalizeEmail(event.Email)
	if email == "" {
		return goerrors.New("email is required for registration", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	if len(event.Password) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	taken, err := h.repo.Users().ExistsByEmail(ctx, email)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}
	if taken {
		return ErrEmailTaken
	}

	slug, err := h.availableSlug(ctx, name)
	if err != nil {
		return err
	}

	passwordHash, err := HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	resp := &RegisterCompanyResponse{}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		company, err := h.repo.Companies().CreateTx(ctx, tx, &Company{
			Name:         name,
			Slug:         slug,
			ContactEmail: email,
			IsActive:     true,
		})
		if err != nil {
			if IsUniqueViolation(err) {
				return goerrors.New("company slug is no longer available", goerrors.CategoryConflict).
					WithCode(goerrors.CodeConflict)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create company")
		}
		resp.Company = company

		user, err := h.repo.Users().CreateTx(ctx, tx, &User{
			FirstName:    event.FirstName,
			LastName:     event.LastName,
			Email:        email,
			PasswordHash: passwordHash,
			CompanyID:    &company.ID,
		})
		if err != nil {
			if IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create owner account")
		}
		resp.User = user

		admin, err := h.repo.CompanyAdmins().CreateTx(ctx, tx, &CompanyAdmin{
			CompanyID: company.ID,
			UserID:    user.ID,
			Role:      RoleOwner,
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create owner admin record")
		}
		resp.Admin = admin

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register company")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// availableSlug derives a URL slug from the company name, suffixing a counter
// until it finds a free one.
func (h *RegisterCompanyHandler) availableSlug(ctx context.Context, name string) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = "company"
	}

	candidate := base
	for i := 2; ; i++ {
		exists, err := h.repo.Companies().SlugExists(ctx, candidate)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check slug availability")
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// Slugify lowercases a name and collapses every non-alphanumeric run into a
// single hyphen.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}
