package identity

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Identity is the verified principal an Auther hands back after login or
// session resolution.
type Identity interface {
	ID() string
	Email() string
	Domain() Domain
}

// CompanyIdentity adds tenant context for company administrators.
type CompanyIdentity interface {
	Identity
	CompanyID() string
	Role() AdminRole
}

// IdentityProvider verifies credentials and resolves principals for exactly
// one identity domain.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByID(ctx context.Context, id string) (Identity, error)
}

// MaxLoginAttempts is the maximum number of failed attempts a user gets
// inside the cooldown window.
var MaxLoginAttempts = 5

// CoolDownPeriod is the window in which failed attempts accumulate.
var CoolDownPeriod = "24h"

type authIdentity struct {
	id        string
	email     string
	domain    Domain
	companyID string
	role      AdminRole
}

func (a authIdentity) ID() string        { return a.id }
func (a authIdentity) Email() string     { return a.email }
func (a authIdentity) Domain() Domain    { return a.domain }
func (a authIdentity) CompanyID() string { return a.companyID }
func (a authIdentity) Role() AdminRole   { return a.role }

var (
	_ Identity        = authIdentity{}
	_ CompanyIdentity = authIdentity{}
)

// SuperAdminProvider verifies the single platform administrator.
type SuperAdminProvider struct {
	store  SuperAdmins
	logger Logger
}

// NewSuperAdminProvider will create a new SuperAdminProvider
func NewSuperAdminProvider(store SuperAdmins) *SuperAdminProvider {
	return &SuperAdminProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (p *SuperAdminProvider) WithLogger(l Logger) *SuperAdminProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

func (p *SuperAdminProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	admin, err := p.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve super admin during verification")
	}

	if err := ComparePasswordAndHash(password, admin.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := p.store.TrackLogin(ctx, admin.ID); err != nil {
		p.logger.Error("failed to track super admin login", "error", err)
	}

	return authIdentity{
		id:     admin.ID.String(),
		email:  admin.Email,
		domain: DomainSuperAdmin,
	}, nil
}

func (p *SuperAdminProvider) FindIdentityByID(ctx context.Context, id string) (Identity, error) {
	admin, err := p.store.Get(ctx)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrTokenInvalid
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve super admin")
	}

	if admin.ID.String() != id {
		return nil, ErrTokenInvalid
	}

	return authIdentity{
		id:     admin.ID.String(),
		email:  admin.Email,
		domain: DomainSuperAdmin,
	}, nil
}

// UserProvider verifies end-user testers.
type UserProvider struct {
	store  Users
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store Users) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (p *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

func (p *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	user, err := verifyUserPassword(ctx, p.store, email, password, p.logger)
	if err != nil {
		return nil, err
	}

	return authIdentity{
		id:     user.ID.String(),
		email:  user.Email,
		domain: DomainUser,
	}, nil
}

func (p *UserProvider) FindIdentityByID(ctx context.Context, id string) (Identity, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	user, err := p.store.GetByID(ctx, uid)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrAccountDisabled
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user")
	}

	if user.Disabled() {
		return nil, ErrAccountDisabled
	}

	return authIdentity{
		id:     user.ID.String(),
		email:  user.Email,
		domain: DomainUser,
	}, nil
}

// CompanyAdminProvider verifies company administrators. Credentials live on
// the user row; the admin row contributes company and role.
type CompanyAdminProvider struct {
	users  Users
	admins CompanyAdmins
	logger Logger
}

// NewCompanyAdminProvider will create a new CompanyAdminProvider
func NewCompanyAdminProvider(users Users, admins CompanyAdmins) *CompanyAdminProvider {
	return &CompanyAdminProvider{
		users:  users,
		admins: admins,
		logger: defLogger{},
	}
}

func (p *CompanyAdminProvider) WithLogger(l Logger) *CompanyAdminProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

func (p *CompanyAdminProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	user, err := verifyUserPassword(ctx, p.users, email, password, p.logger)
	if err != nil {
		return nil, err
	}

	admin, err := p.admins.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrNotCompanyAdmin
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve company admin during verification")
	}

	return authIdentity{
		id:        admin.ID.String(),
		email:     user.Email,
		domain:    DomainCompanyAdmin,
		companyID: admin.CompanyID.String(),
		role:      admin.Role,
	}, nil
}

// FindIdentityByID resolves a company-admin session. The id is the admin row
// id, not the user id.
func (p *CompanyAdminProvider) FindIdentityByID(ctx context.Context, id string) (Identity, error) {
	aid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	admin, err := p.admins.GetByID(ctx, aid)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrTokenInvalid
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve company admin")
	}

	if admin.User == nil || admin.User.Disabled() {
		return nil, ErrAccountDisabled
	}

	return authIdentity{
		id:        admin.ID.String(),
		email:     admin.User.Email,
		domain:    DomainCompanyAdmin,
		companyID: admin.CompanyID.String(),
		role:      admin.Role,
	}, nil
}

// verifyUserPassword runs the shared credential check: cooldown window,
// bcrypt comparison, attempt tracking. Unknown emails and wrong passwords
// produce the same error.
func verifyUserPassword(ctx context.Context, store Users, email, password string, logger Logger) (*User, error) {
	user, err := store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user.Disabled() {
		return nil, ErrAccountDisabled
	}

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	if user.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := store.TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}
		return nil, ErrInvalidCredentials
	}

	if err := store.TrackSuccessfulLogin(ctx, user); err != nil {
		logger.Error("failed to track successful login", "error", err)
	}

	return user, nil
}
