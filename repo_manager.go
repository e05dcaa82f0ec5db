package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SuperAdmins accesses the singleton platform administrator row.
type SuperAdmins interface {
	Get(ctx context.Context) (*SuperAdmin, error)
	GetByEmail(ctx context.Context, email string) (*SuperAdmin, error)
	Exists(ctx context.Context) (bool, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *SuperAdmin) (*SuperAdmin, error)
	TrackLogin(ctx context.Context, id uuid.UUID) error
}

// Users accesses end-user rows. Every email parameter must already be
// normalized; implementations normalize again defensively on comparison.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
	SetCompanyTx(ctx context.Context, tx bun.IDB, id, companyID uuid.UUID) error
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// Companies accesses tenant rows.
type Companies interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Company, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Company) (*Company, error)
}

// CompanyAdmins accesses company administrator rows.
type CompanyAdmins interface {
	GetByID(ctx context.Context, id uuid.UUID) (*CompanyAdmin, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*CompanyAdmin, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *CompanyAdmin) (*CompanyAdmin, error)
}

// PasswordResets accesses reset-token rows; only digests ever appear here.
type PasswordResets interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (*PasswordResetToken, error)
	DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
	CreateTx(ctx context.Context, tx bun.IDB, record *PasswordResetToken) (*PasswordResetToken, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, usedAt time.Time) error
}

// CompanyInvites accesses company invite rows, including the permanent link.
type CompanyInvites interface {
	GetPendingByToken(ctx context.Context, token string) (*CompanyInvite, error)
	FindPermanent(ctx context.Context, companyID uuid.UUID, now time.Time) (*CompanyInvite, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *CompanyInvite) (*CompanyInvite, error)
	MarkClaimedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, claimedAt time.Time) error
}

// PendingInvites accesses parked session/team invitations.
type PendingInvites interface {
	NewestUnclaimed(ctx context.Context, email string, now time.Time) (*PendingInvite, error)
	UnclaimedForEmail(ctx context.Context, email string, now time.Time) ([]*PendingInvite, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *PendingInvite) (*PendingInvite, error)
	MarkClaimedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, claimedAt time.Time) error
}

// Testers accesses tester rows keyed by their embedded invite token.
type Testers interface {
	GetByInviteToken(ctx context.Context, token string) (*Tester, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Tester) (*Tester, error)
	LinkToUserTx(ctx context.Context, tx bun.IDB, email string, userID uuid.UUID) error
}

// TeamMembers accesses team membership rows.
type TeamMembers interface {
	CreateTx(ctx context.Context, tx bun.IDB, record *TeamMember) (*TeamMember, error)
	LinkToUserTx(ctx context.Context, tx bun.IDB, email string, userID uuid.UUID) error
}

// Teams accesses team rows.
type Teams interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Team, error)
}

// Sessions accesses testing sessions plus their ordered scenes and a
// tester's responses.
type Sessions interface {
	GetByID(ctx context.Context, id uuid.UUID) (*TestingSession, error)
	ScenesOrdered(ctx context.Context, sessionID uuid.UUID) ([]*Scene, error)
	ResponsesForTester(ctx context.Context, testerID uuid.UUID) ([]*PollResponse, error)
}

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	SuperAdmins() SuperAdmins
	Users() Users
	Companies() Companies
	CompanyAdmins() CompanyAdmins
	PasswordResets() PasswordResets
	CompanyInvites() CompanyInvites
	PendingInvites() PendingInvites
	Testers() Testers
	TeamMembers() TeamMembers
	Teams() Teams
	Sessions() Sessions
}

type mngr struct {
	db             *bun.DB
	superAdmins    SuperAdmins
	users          Users
	companies      Companies
	companyAdmins  CompanyAdmins
	passwordResets PasswordResets
	companyInvites CompanyInvites
	pendingInvites PendingInvites
	testers        Testers
	teamMembers    TeamMembers
	teams          Teams
	sessions       Sessions
}

// NewRepositoryManager wires every store over one bun handle.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:             db,
		superAdmins:    &superAdmins{db: db},
		users:          NewUsersRepository(db),
		companies:      &companies{db: db},
		companyAdmins:  &companyAdmins{db: db},
		passwordResets: NewPasswordResetsRepository(db),
		companyInvites: &companyInvites{db: db},
		pendingInvites: &pendingInvites{db: db},
		testers:        &testers{db: db},
		teamMembers:    &teamMembers{db: db},
		teams:          &teams{db: db},
		sessions:       &sessions{db: db},
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.superAdmins == nil {
		return errors.New("repository superAdmins should be initialized")
	}

	if m.passwordResets == nil {
		return errors.New("repository passwordResets should be initialized")
	}

	if m.companyInvites == nil {
		return errors.New("repository companyInvites should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) SuperAdmins() SuperAdmins       { return m.superAdmins }
func (m mngr) Users() Users                   { return m.users }
func (m mngr) Companies() Companies           { return m.companies }
func (m mngr) CompanyAdmins() CompanyAdmins   { return m.companyAdmins }
func (m mngr) PasswordResets() PasswordResets { return m.passwordResets }
func (m mngr) CompanyInvites() CompanyInvites { return m.companyInvites }
func (m mngr) PendingInvites() PendingInvites { return m.pendingInvites }
func (m mngr) Testers() Testers               { return m.testers }
func (m mngr) TeamMembers() TeamMembers       { return m.teamMembers }
func (m mngr) Teams() Teams                   { return m.teams }
func (m mngr) Sessions() Sessions             { return m.sessions }

// IsUniqueViolation sniffs driver-specific unique constraint errors; the
// singleton and permanent-invite flows rely on these to fail closed.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint failed")
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
