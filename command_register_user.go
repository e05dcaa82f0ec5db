package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName  string `json:"first_name" example:"Pepe" doc:"Given name."`
	LastName   string `json:"last_name" example:"Rone" doc:"Family name."`
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	Password   string `json:"password" doc:"Plaintext password, hashed before storage."`
	OnResponse func(resp *RegisterUserResponse)
}

func (p RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User    *User
	Claimed int
}

// RegisterUserHandler creates an end-user account and, in the same
// transaction, links any invitations that were parked for the email.
type RegisterUserHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
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

	taken, err := h.repo.Users().ExistsByEmail(ctx, email)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}
	if taken {
		return ErrEmailTaken
	}

	passwordHash, err := HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	resp := &RegisterUserResponse{}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user := &User{
			FirstName:    event.FirstName,
			LastName:     event.LastName,
			Email:        email,
			PasswordHash: passwordHash,
		}

		created, err := h.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			// the race between the existence check and this insert lands here
			if IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user account")
		}
		resp.User = created

		// adopt rows that were created for the email before the account existed
		if err := h.repo.Testers().LinkToUserTx(ctx, tx, email, created.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to link existing tester rows")
		}
		if err := h.repo.TeamMembers().LinkToUserTx(ctx, tx, email, created.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to link existing team member rows")
		}

		claimed, err := h.claimPendingInvites(ctx, tx, created)
		if err != nil {
			return err
		}
		resp.Claimed = claimed

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register user")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// claimPendingInvites materializes every unclaimed, unexpired pending invite
// for the new account. Session invites become tester rows with a fresh scoped
// token; team invites become membership rows.
func (h *RegisterUserHandler) claimPendingInvites(ctx context.Context, tx bun.Tx, user *User) (int, error) {
	pending, err := h.repo.PendingInvites().UnclaimedForEmail(ctx, user.Email, time.Now())
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load pending invites")
	}

	claimed := 0
	for _, invite := range pending {
		switch invite.InviteType {
		case InviteTargetSession:
			token, err := NewInviteToken(ScopedTokenLength)
			if err != nil {
				return claimed, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate tester token")
			}

			tester := &Tester{
				SessionID:   invite.TargetID,
				UserID:      &user.ID,
				FirstName:   user.FirstName,
				LastName:    user.LastName,
				Email:       user.Email,
				InviteToken: token,
			}
			if _, err := h.repo.Testers().CreateTx(ctx, tx, tester); err != nil {
				return claimed, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create tester from pending invite")
			}

		case InviteTargetTeam:
			member := &TeamMember{
				TeamID:    invite.TargetID,
				UserID:    &user.ID,
				FirstName: user.FirstName,
				LastName:  user.LastName,
				Email:     user.Email,
			}
			if _, err := h.repo.TeamMembers().CreateTx(ctx, tx, member); err != nil {
				return claimed, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create team member from pending invite")
			}

		default:
			h.logger.Warn("skipping pending invite with unknown target", "invite_type", invite.InviteType, "id", invite.ID.String())
			continue
		}

		if err := h.repo.PendingInvites().MarkClaimedTx(ctx, tx, invite.ID, time.Now()); err != nil {
			// claimed by a raced signup; abort so the duplicate rows roll back
			if goerrors.IsNotFound(err) {
				return claimed, goerrors.New("pending invite already claimed", goerrors.CategoryConflict).
					WithMetadata(map[string]any{
						"id": invite.ID.String(),
					})
			}
			return claimed, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark pending invite claimed")
		}
		claimed++
	}

	return claimed, nil
}
