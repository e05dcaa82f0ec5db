package identity

import "context"

// Gate resolves raw session tokens into live principals, one verifier per
// identity domain. A token minted for one domain never resolves on another.
type Gate struct {
	superAdmin   *Auther
	companyAdmin *Auther
	user         *Auther
	logger       Logger
}

// NewGate wires the three domain authenticators together.
func NewGate(superAdmin, companyAdmin, user *Auther) *Gate {
	return &Gate{
		superAdmin:   superAdmin,
		companyAdmin: companyAdmin,
		user:         user,
		logger:       defLogger{},
	}
}

func (g *Gate) WithLogger(l Logger) *Gate {
	if l != nil {
		g.logger = l
	}
	return g
}

// ResolveSuperAdmin authenticates a raw super-admin session token.
func (g *Gate) ResolveSuperAdmin(ctx context.Context, rawToken string) (Identity, error) {
	return g.resolve(ctx, g.superAdmin, rawToken)
}

// ResolveCompanyAdmin authenticates a raw company-admin session token and
// returns the principal with its tenant context.
func (g *Gate) ResolveCompanyAdmin(ctx context.Context, rawToken string) (CompanyIdentity, error) {
	identity, err := g.resolve(ctx, g.companyAdmin, rawToken)
	if err != nil {
		return nil, err
	}

	ci, ok := identity.(CompanyIdentity)
	if !ok {
		return nil, ErrTokenInvalid
	}

	return ci, nil
}

// ResolveUser authenticates a raw end-user session token.
func (g *Gate) ResolveUser(ctx context.Context, rawToken string) (Identity, error) {
	return g.resolve(ctx, g.user, rawToken)
}

func (g *Gate) resolve(ctx context.Context, auther *Auther, rawToken string) (Identity, error) {
	if rawToken == "" {
		return nil, ErrNoSession
	}

	session, err := auther.SessionFromToken(rawToken)
	if err != nil {
		return nil, err
	}

	return auther.IdentityFromSession(ctx, session)
}

// RequireRole enforces a minimum admin role on an already authenticated
// company admin. Failing here is a 403, never a 401.
func (g *Gate) RequireRole(identity CompanyIdentity, minimum AdminRole) error {
	if identity == nil {
		return ErrNoSession
	}

	if !RoleIsAtLeast(identity.Role(), minimum) {
		g.logger.Debug("role check failed", "have", identity.Role(), "want", minimum)
		return ErrForbidden
	}

	return nil
}

// RequireSettingsAccess restricts settings mutations to the company owner.
func (g *Gate) RequireSettingsAccess(identity CompanyIdentity) error {
	if identity == nil {
		return ErrNoSession
	}

	if !RoleCanManageSettings(identity.Role()) {
		return ErrForbidden
	}

	return nil
}
