package identity

import (
	"context"
	"reflect"
)

// Auther binds an identity provider to a token service for one domain. Each
// of the three domains gets its own Auther with its own signing key.
type Auther struct {
	provider        IdentityProvider
	domain          Domain
	signingKey      []byte
	tokenExpiration int
	issuer          string
	logger          Logger
	tokenService    TokenService
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	tokenService := NewTokenService(
		opts.GetDomain(),
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		defLogger{},
	)

	return &Auther{
		provider:        provider,
		domain:          opts.GetDomain(),
		signingKey:      []byte(opts.GetSigningKey()),
		tokenExpiration: opts.GetTokenExpiration(),
		issuer:          opts.GetIssuer(),
		logger:          defLogger{},
		tokenService:    tokenService,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	s.tokenService = NewTokenService(
		s.domain,
		s.signingKey,
		s.tokenExpiration,
		s.issuer,
		logger,
	)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Domain returns the identity domain this Auther serves.
func (s *Auther) Domain() Domain {
	return s.domain
}

// Login verifies credentials and mints a session token. Company admins get
// their tenant and role embedded in the claims.
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "domain", s.domain, "error", err)
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value", "domain", s.domain)
		return "", ErrInvalidCredentials
	}

	var extras []ClaimExtra
	if ci, ok := identity.(CompanyIdentity); ok && ci.CompanyID() != "" {
		extras = append(extras, WithCompanyClaims(ci.CompanyID(), ci.Role()))
	}

	return s.tokenService.Generate(identity.ID(), extras...)
}

// SessionFromToken verifies a raw token and returns its decoded session view.
func (s Auther) SessionFromToken(raw string) (*SessionObject, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Debug("SessionFromToken validation failed", "domain", s.domain, "error", err)
		return nil, err
	}

	return sessionFromClaims(claims)
}

// IdentityFromSession resolves the live principal behind a verified session.
// A valid token for a disabled or deleted principal fails here.
func (s *Auther) IdentityFromSession(ctx context.Context, session *SessionObject) (Identity, error) {
	if session == nil {
		return nil, ErrNoSession
	}

	identity, err := s.provider.FindIdentityByID(ctx, session.GetPrincipalID())
	if err != nil {
		s.logger.Debug("IdentityFromSession lookup failed", "domain", s.domain, "error", err)
		return nil, err
	}

	return identity, nil
}
