package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Domain tags which of the three identity domains minted a token. A token is
// only ever valid against the verifier of its own domain.
type Domain = string

const (
	// DomainSuperAdmin is the single platform administrator.
	DomainSuperAdmin Domain = "super_admin"
	// DomainCompanyAdmin is a per-company owner or manager.
	DomainCompanyAdmin Domain = "company_admin"
	// DomainUser is an end-user tester account.
	DomainUser Domain = "user"
)

// JWTClaims is the signed payload of a session token. Sessions are fully
// self-contained: there is no server-side session row to join against.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string    `json:"uid,omitempty"`
	Dom       Domain    `json:"dom,omitempty"`
	CompanyID string    `json:"cid,omitempty"`
	AdminRole AdminRole `json:"role,omitempty"`
}

// PrincipalID returns the id the token was minted for.
func (c *JWTClaims) PrincipalID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Domain returns the identity domain tag.
func (c *JWTClaims) Domain() Domain {
	return c.Dom
}

// Expires returns the expiry instant, zero when absent.
func (c *JWTClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued returns the issuance instant, zero when absent.
func (c *JWTClaims) Issued() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ClaimExtra mutates claims before signing; used by the company-admin domain
// to embed tenant context.
type ClaimExtra func(*JWTClaims)

// WithCompanyClaims embeds the admin's company and role so the gate can
// attach tenant context without an extra lookup.
func WithCompanyClaims(companyID string, role AdminRole) ClaimExtra {
	return func(c *JWTClaims) {
		c.CompanyID = companyID
		c.AdminRole = role
	}
}
