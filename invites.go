package identity

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PermanentInviteTTL is the validity window of a company's permanent join
// link. The link is re-minted on demand once it lapses.
var PermanentInviteTTL = 365 * 24 * time.Hour

// AddressedInviteTTL is the validity window of email-addressed company and
// pending invites.
var AddressedInviteTTL = 7 * 24 * time.Hour

// TesterInviteView is everything a tester landing page needs: the tester row,
// its session, the ordered scene list, and responses already recorded.
type TesterInviteView struct {
	Tester    *Tester         `json:"tester"`
	Session   *TestingSession `json:"session"`
	Scenes    []*Scene        `json:"scenes"`
	Responses []*PollResponse `json:"responses"`
}

// PendingInviteView is a resolved pending invite together with its target.
// Exactly one of Session and Team is set, matching Target.
type PendingInviteView struct {
	Invite  *PendingInvite  `json:"invite"`
	Target  InviteTarget    `json:"target"`
	Session *TestingSession `json:"session,omitempty"`
	Team    *Team           `json:"team,omitempty"`
}

// InviteManager owns the lifecycle of all three invitation kinds.
type InviteManager struct {
	repo    RepositoryManager
	mailer  Mailer
	baseURL string
	logger  Logger
}

func NewInviteManager(repo RepositoryManager, mailer Mailer) *InviteManager {
	if mailer == nil {
		mailer = NewLogMailer(nil)
	}
	return &InviteManager{
		repo:    repo,
		mailer:  mailer,
		baseURL: "/join",
		logger:  defLogger{},
	}
}

// WithBaseURL overrides the path prefix of emailed invite links.
func (m *InviteManager) WithBaseURL(base string) *InviteManager {
	if base != "" {
		m.baseURL = base
	}
	return m
}

func (m *InviteManager) WithLogger(l Logger) *InviteManager {
	if l != nil {
		m.logger = l
	}
	return m
}

// GetOrCreatePermanentInvite returns the company's live permanent join link,
// minting one when none exists. Concurrent callers converge on one row: the
// loser of the insert race re-reads the winner's.
func (m *InviteManager) GetOrCreatePermanentInvite(ctx context.Context, companyID uuid.UUID) (*CompanyInvite, error) {
	now := time.Now()

	invite, err := m.repo.CompanyInvites().FindPermanent(ctx, companyID, now)
	if err == nil {
		return invite, nil
	}
	if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up permanent invite")
	}

	token, err := NewInviteToken(PermanentTokenLength)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate invite token")
	}

	var created *CompanyInvite
	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err = m.repo.CompanyInvites().CreateTx(ctx, tx, &CompanyInvite{
			CompanyID: companyID,
			Token:     token,
			ExpiresAt: now.Add(PermanentInviteTTL),
		})
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return m.repo.CompanyInvites().FindPermanent(ctx, companyID, now)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create permanent invite")
	}

	return created, nil
}

// CreateCompanyInvite mints an addressed, single-use company invite and mails
// the link. The mail is best effort; the invite exists either way.
func (m *InviteManager) CreateCompanyInvite(ctx context.Context, companyID uuid.UUID, email string, invitedBy *uuid.UUID) (*CompanyInvite, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, goerrors.New("invite email is required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	company, err := m.repo.Companies().GetByID(ctx, companyID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, goerrors.New("company not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load company for invite")
	}

	token, err := NewInviteToken(PermanentTokenLength)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate invite token")
	}

	var created *CompanyInvite
	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err = m.repo.CompanyInvites().CreateTx(ctx, tx, &CompanyInvite{
			CompanyID: companyID,
			Email:     &normalized,
			InvitedBy: invitedBy,
			Token:     token,
			ExpiresAt: time.Now().Add(AddressedInviteTTL),
		})
		return err
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create company invite")
	}

	link := fmt.Sprintf("%s/%s", m.baseURL, created.Token)
	if err := m.mailer.SendCompanyInvite(normalized, link, company.Name); err != nil {
		m.logger.Error("failed to send invite email", "error", err)
	}

	return created, nil
}

// CreatePendingInvite parks a session or team invitation for an email that
// has no account yet. It is claimed automatically when the account appears.
func (m *InviteManager) CreatePendingInvite(ctx context.Context, email string, target InviteTarget, targetID uuid.UUID) (*PendingInvite, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, goerrors.New("invite email is required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	switch target {
	case InviteTargetSession, InviteTargetTeam:
	default:
		return nil, goerrors.New("unknown invite target", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"target": target})
	}

	var created *PendingInvite
	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		created, err = m.repo.PendingInvites().CreateTx(ctx, tx, &PendingInvite{
			Email:      normalized,
			InviteType: target,
			TargetID:   targetID,
			ExpiresAt:  time.Now().Add(AddressedInviteTTL),
		})
		return err
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create pending invite")
	}

	return created, nil
}

// ResolveCompanyInvite validates a raw invite token. Unknown tokens are a
// not-found; known but lapsed tokens are expired. The row is never rewritten
// on expiry.
func (m *InviteManager) ResolveCompanyInvite(ctx context.Context, token string) (*CompanyInvite, error) {
	if token == "" {
		return nil, ErrInviteNotFound
	}

	invite, err := m.repo.CompanyInvites().GetPendingByToken(ctx, token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInviteNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve company invite")
	}

	if time.Now().After(invite.ExpiresAt) {
		return nil, ErrInviteExpired
	}

	return invite, nil
}

// RedeemCompanyInvite attaches a user to the invite's company. Addressed
// invites are consumed; the permanent link survives redemption.
func (m *InviteManager) RedeemCompanyInvite(ctx context.Context, token string, userID uuid.UUID) (*CompanyInvite, error) {
	invite, err := m.ResolveCompanyInvite(ctx, token)
	if err != nil {
		return nil, err
	}

	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := m.repo.Users().SetCompanyTx(ctx, tx, userID, invite.CompanyID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to attach user to company")
		}

		if !invite.Permanent() {
			if err := m.repo.CompanyInvites().MarkClaimedTx(ctx, tx, invite.ID, time.Now()); err != nil {
				// a concurrent redemption won; the invite is no longer pending
				if goerrors.IsNotFound(err) {
					return ErrInviteNotFound
				}
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume invite")
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return invite, nil
}

// ResolveTesterInvite validates a tester token. Validity derives entirely
// from the session status: drafts are too early, completed sessions are gone.
func (m *InviteManager) ResolveTesterInvite(ctx context.Context, token string) (*TesterInviteView, error) {
	if token == "" {
		return nil, ErrInviteNotFound
	}

	tester, err := m.repo.Testers().GetByInviteToken(ctx, token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInviteNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve tester invite")
	}

	session, err := m.repo.Sessions().GetByID(ctx, tester.SessionID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInviteNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session for tester invite")
	}

	switch session.Status {
	case SessionDraft:
		return nil, ErrSessionNotStarted
	case SessionCompleted:
		return nil, ErrSessionEnded
	}

	scenes, err := m.repo.Sessions().ScenesOrdered(ctx, session.ID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load scenes")
	}

	responses, err := m.repo.Sessions().ResponsesForTester(ctx, tester.ID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load tester responses")
	}

	return &TesterInviteView{
		Tester:    tester,
		Session:   session,
		Scenes:    scenes,
		Responses: responses,
	}, nil
}

// ResolvePendingInvite returns the newest unclaimed invitation parked for an
// email, with its target loaded. Resolution is read-only.
func (m *InviteManager) ResolvePendingInvite(ctx context.Context, email string) (*PendingInviteView, error) {
	invite, err := m.repo.PendingInvites().NewestUnclaimed(ctx, NormalizeEmail(email), time.Now())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInviteNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve pending invite")
	}

	view := &PendingInviteView{
		Invite: invite,
		Target: invite.InviteType,
	}

	switch invite.InviteType {
	case InviteTargetSession:
		session, err := m.repo.Sessions().GetByID(ctx, invite.TargetID)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return nil, ErrInviteNotFound
			}
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load pending invite session")
		}
		view.Session = session

	case InviteTargetTeam:
		team, err := m.repo.Teams().GetByID(ctx, invite.TargetID)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return nil, ErrInviteNotFound
			}
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load pending invite team")
		}
		view.Team = team

	default:
		return nil, goerrors.New("pending invite has unknown target", goerrors.CategoryInternal).
			WithMetadata(map[string]any{"invite_type": invite.InviteType})
	}

	return view, nil
}

// CreateTesterInvite adds a tester directly to a session with a fresh scoped
// token. The token is written once and never re-issued.
func (m *InviteManager) CreateTesterInvite(ctx context.Context, sessionID uuid.UUID, email, firstName, lastName string) (*Tester, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return nil, goerrors.New("invite email is required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	if _, err := m.repo.Sessions().GetByID(ctx, sessionID); err != nil {
		if goerrors.IsNotFound(err) {
			return nil, goerrors.New("session not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session")
	}

	token, err := NewInviteToken(ScopedTokenLength)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate tester token")
	}

	var created *Tester
	err = m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		tester := &Tester{
			SessionID:   sessionID,
			FirstName:   firstName,
			LastName:    lastName,
			Email:       normalized,
			InviteToken: token,
		}

		// an existing account for the email gets linked immediately
		user, err := m.repo.Users().GetByEmail(ctx, normalized)
		if err == nil {
			tester.UserID = &user.ID
		} else if !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user for tester invite")
		}

		created, err = m.repo.Testers().CreateTx(ctx, tx, tester)
		return err
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create tester")
	}

	return created, nil
}
