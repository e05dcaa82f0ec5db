package identity_test

import (
	"context"
	"database/sql"
	"errors"
	"time"

	identity "github.com/airlog/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockSuperAdmins implements identity.SuperAdmins
type MockSuperAdmins struct {
	mock.Mock
}

func (m *MockSuperAdmins) Get(ctx context.Context) (*identity.SuperAdmin, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).(*identity.SuperAdmin); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSuperAdmins) GetByEmail(ctx context.Context, email string) (*identity.SuperAdmin, error) {
	args := m.Called(ctx, email)
	if v, ok := args.Get(0).(*identity.SuperAdmin); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSuperAdmins) Exists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockSuperAdmins) CreateTx(ctx context.Context, tx bun.IDB, record *identity.SuperAdmin) (*identity.SuperAdmin, error) {
	args := m.Called(ctx, tx, record)
	if v, ok := args.Get(0).(*identity.SuperAdmin); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSuperAdmins) TrackLogin(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockUsers implements identity.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*identity.User); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if v, ok := args.Get(0).(*identity.User); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *identity.User) (*identity.User, error) {
	args := m.Called(ctx, tx, record)
	if v, ok := args.Get(0).(*identity.User); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) SetCompanyTx(ctx context.Context, tx bun.IDB, id, companyID uuid.UUID) error {
	args := m.Called(ctx, tx, id, companyID)
	return args.Error(0)
}

func (m *MockUsers) TrackAttemptedLogin(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackSuccessfulLogin(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockCompanies implements identity.Companies
type MockCompanies struct {
	mock.Mock
}

func (m *MockCompanies) GetByID(ctx context.Context, id uuid.UUID) (*identity.Company, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*identity.Company); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCompanies) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockCompanies) CreateTx(ctx context.Context, tx bun.IDB, record *identity.Company) (*identity.Company, error) {
	args := m.Called(ctx, tx, record)
	if v, ok := args.Get(0).(*identity.Company); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCompanyAdmins implements identity.CompanyAdmins
type MockCompanyAdmins struct {
	mock.Mock
}

func (m *MockCompanyAdmins) GetByID(ctx context.Context, id uuid.UUID) (*identity.CompanyAdmin, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*identity.CompanyAdmin); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCompanyAdmins) GetByUserID(ctx context.Context, userID uuid.UUID) (*identity.CompanyAdmin, error) {
	args := m.Called(ctx, userID)
	if v, ok := args.Get(0).(*identity.CompanyAdmin); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCompanyAdmins) CreateTx(ctx context.Context, tx bun.IDB, record *identity.CompanyAdmin) (*identity.CompanyAdmin, error) {
	args := m.Called(ctx, tx, record)
	if v, ok := args.Get(0).(*identity.CompanyAdmin); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPasswordResets implements identity.PasswordResets
type MockPasswordResets struct {
	mock.Mock
}

func (m *MockPasswordResets) GetByTokenHash(ctx context.Context, tokenHash string) (*identity.PasswordResetToken, error) {
	args := m.Called(ctx, tokenHash)
	if v, ok := args.Get(0).(*identity.PasswordResetToken); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPasswordResets) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

func (m *MockPasswordResets) CreateTx(ctx context.Context, tx bun.IDB, record *identity.PasswordResetToken) (*identity.PasswordResetToken, error) {
	args := m.Called(ctx, tx, record)
	if v, ok := args.Get(0).(*identity.PasswordResetToken); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPasswordResets) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, usedAt time.Time) error {
	args := m.Called(ctx, tx, id, usedAt)
	return args.Error(0)
}

// MockCompanyInvites implements identity.CompanyInvites
type MockCompanyInvites struct {
	mock.Mock
}

func (m *MockCompanyInvites) GetPendingByToken(ctx context.Context, token string) (*identity.CompanyInvite, error) {
	args := m.Called(ctx, token)
	if v, ok := args.Get(0).(*identity.CompanyInvite); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCompanyInvites) FindPermanent(ctx context.Context, companyID uuid.UUID, now time.Time) (*identity.CompanyInvite, error) {
	args := m.Called(ctx, companyID, now)
	if v, ok := args.Get(0).(*identity.CompanyInvite); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCompanyInvites) CreateTx(ctx context.Context, tx bun.IDB, record *identity.CompanyInvite) (*identity.CompanyInvite, error) {
	args := m.Called(ctx, tx, record)
	if v, ok := args.Get(0).(*identity.CompanyInvite); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCompanyInvites) MarkClaimedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, claimedAt time.Time) error {
	args := m.Called(ctx, tx, id, claimedAt)
	return args.Error(0)
}

// MockPendingInvites implements identity.PendingInvites
type MockPendingInvites struct {
	mock.Mock
}

func (m *MockPendingInvites) NewestUnclaimed(ctx context.Context, email string, now time.Time) (*identity.PendingInvite, error) {
	args := m.Called(ctx, email, now)
	if v, ok := args.Get(0).(*identity.PendingInvite); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPendingInvites) UnclaimedForEmail(ctx context.Context, email string, now time.Time) ([]*identity.PendingInvite, error) {
	args := m.Called(ctx, email, now)
	if v, ok := args.Get(0).([]*identity.PendingInvite); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPendingInvites) CreateTx(ctx context.Context, tx bun.IDB, record *identity.PendingInvite) (*identity.PendingInvite, error) {
	args := m.Called(ctx, tx, record)
	if v, ok := args.Get(0).(*identity.PendingInvite); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPendingInvites) MarkClaimedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, claimedAt time.Time) error {
	args := m.Called(ctx, tx, id, claimedAt)
	return args.Error(0)
}

// MockTesters implements identity.Testers
type MockTesters struct {
	mock.Mock
}

func (m *MockTesters) GetByInviteToken(ctx context.Context, token string) (*identity.Tester, error) {
	args := m.Called(ctx, token)
	if v, ok := args.Get(0).(*identity.Tester); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTesters) CreateTx(ctx context.Context, tx bun.IDB, record *identity.Tester) (*identity.Tester, error) {
	args := m.Called(ctx, tx, record)
	if v, ok := args.Get(0).(*identity.Tester); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTesters) LinkToUserTx(ctx context.Context, tx bun.IDB, email string, userID uuid.UUID) error {
	args := m.Called(ctx, tx, email, userID)
	return args.Error(0)
}

// MockTeamMembers implements identity.TeamMembers
type MockTeamMembers struct {
	mock.Mock
}

func (m *MockTeamMembers) CreateTx(ctx context.Context, tx bun.IDB, record *identity.TeamMember) (*identity.TeamMember, error) {
	args := m.Called(ctx, tx, record)
	if v, ok := args.Get(0).(*identity.TeamMember); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTeamMembers) LinkToUserTx(ctx context.Context, tx bun.IDB, email string, userID uuid.UUID) error {
	args := m.Called(ctx, tx, email, userID)
	return args.Error(0)
}

// MockTeams implements identity.Teams
type MockTeams struct {
	mock.Mock
}

func (m *MockTeams) GetByID(ctx context.Context, id uuid.UUID) (*identity.Team, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*identity.Team); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSessions implements identity.Sessions
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) GetByID(ctx context.Context, id uuid.UUID) (*identity.TestingSession, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*identity.TestingSession); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) ScenesOrdered(ctx context.Context, sessionID uuid.UUID) ([]*identity.Scene, error) {
	args := m.Called(ctx, sessionID)
	if v, ok := args.Get(0).([]*identity.Scene); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) ResponsesForTester(ctx context.Context, testerID uuid.UUID) ([]*identity.PollResponse, error) {
	args := m.Called(ctx, testerID)
	if v, ok := args.Get(0).([]*identity.PollResponse); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockRepositoryManager implements identity.RepositoryManager over the store
// mocks. RunInTx invokes the callback directly; the empty bun.Tx is never
// touched because every store is a mock.
type MockRepositoryManager struct {
	SuperAdminsMock    *MockSuperAdmins
	UsersMock          *MockUsers
	CompaniesMock      *MockCompanies
	CompanyAdminsMock  *MockCompanyAdmins
	PasswordResetsMock *MockPasswordResets
	CompanyInvitesMock *MockCompanyInvites
	PendingInvitesMock *MockPendingInvites
	TestersMock        *MockTesters
	TeamMembersMock    *MockTeamMembers
	TeamsMock          *MockTeams
	SessionsMock       *MockSessions
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		SuperAdminsMock:    &MockSuperAdmins{},
		UsersMock:          &MockUsers{},
		CompaniesMock:      &MockCompanies{},
		CompanyAdminsMock:  &MockCompanyAdmins{},
		PasswordResetsMock: &MockPasswordResets{},
		CompanyInvitesMock: &MockCompanyInvites{},
		PendingInvitesMock: &MockPendingInvites{},
		TestersMock:        &MockTesters{},
		TeamMembersMock:    &MockTeamMembers{},
		TeamsMock:          &MockTeams{},
		SessionsMock:       &MockSessions{},
	}
}

func (m *MockRepositoryManager) Validate() error { return nil }
func (m *MockRepositoryManager) MustValidate()   {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) SuperAdmins() identity.SuperAdmins       { return m.SuperAdminsMock }
func (m *MockRepositoryManager) Users() identity.Users                   { return m.UsersMock }
func (m *MockRepositoryManager) Companies() identity.Companies           { return m.CompaniesMock }
func (m *MockRepositoryManager) CompanyAdmins() identity.CompanyAdmins   { return m.CompanyAdminsMock }
func (m *MockRepositoryManager) PasswordResets() identity.PasswordResets { return m.PasswordResetsMock }
func (m *MockRepositoryManager) CompanyInvites() identity.CompanyInvites { return m.CompanyInvitesMock }
func (m *MockRepositoryManager) PendingInvites() identity.PendingInvites { return m.PendingInvitesMock }
func (m *MockRepositoryManager) Testers() identity.Testers               { return m.TestersMock }
func (m *MockRepositoryManager) TeamMembers() identity.TeamMembers       { return m.TeamMembersMock }
func (m *MockRepositoryManager) Teams() identity.Teams                   { return m.TeamsMock }
func (m *MockRepositoryManager) Sessions() identity.Sessions             { return m.SessionsMock }

// MockMailer implements identity.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendPasswordReset(to, resetURL string) error {
	args := m.Called(to, resetURL)
	return args.Error(0)
}

func (m *MockMailer) SendCompanyInvite(to, inviteURL, companyName string) error {
	args := m.Called(to, inviteURL, companyName)
	return args.Error(0)
}

// assertableUniqueViolation mimics a driver-level duplicate key error.
func assertableUniqueViolation() error {
	return errors.New("ERROR: duplicate key value violates unique constraint")
}
