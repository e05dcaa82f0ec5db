package identity

import "fmt"

// Logger is the minimal logging surface every component takes; defaults to
// defLogger and is swapped via the WithLogger builders.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

const (
	// DefaultTokenExpirationHours is the 7 day session lifetime shared by all
	// three domains.
	DefaultTokenExpirationHours = 7 * 24

	// DefaultIssuer is the iss claim on every minted token.
	DefaultIssuer = "airlog"

	// CookieNameSuperAdmin carries the super-admin session token.
	CookieNameSuperAdmin = "admin_session"
	// CookieNameCompanyAdmin carries the company-admin session token.
	CookieNameCompanyAdmin = "company_admin_session"
	// CookieNameUser carries the end-user session token.
	CookieNameUser = "user_session"
)

// Config holds the per-domain knobs for token issuance and transport.
type Config interface {
	GetDomain() Domain
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetCookieName() string
	GetCookieSecure() bool
}

// DomainConfig is the plain-struct Config implementation.
type DomainConfig struct {
	Domain          Domain
	SigningKey      string
	TokenExpiration int
	Issuer          string
	CookieName      string
	CookieSecure    bool
}

// NewDomainConfig wires the conventional cookie name, issuer, and TTL for a
// domain; only the signing key is mandatory and must differ per domain.
func NewDomainConfig(domain Domain, signingKey string) DomainConfig {
	cookie := CookieNameUser
	switch domain {
	case DomainSuperAdmin:
		cookie = CookieNameSuperAdmin
	case DomainCompanyAdmin:
		cookie = CookieNameCompanyAdmin
	}

	return DomainConfig{
		Domain:          domain,
		SigningKey:      signingKey,
		TokenExpiration: DefaultTokenExpirationHours,
		Issuer:          DefaultIssuer,
		CookieName:      cookie,
		CookieSecure:    true,
	}
}

func (c DomainConfig) GetDomain() Domain     { return c.Domain }
func (c DomainConfig) GetSigningKey() string { return c.SigningKey }

func (c DomainConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return DefaultTokenExpirationHours
	}
	return c.TokenExpiration
}

func (c DomainConfig) GetIssuer() string {
	if c.Issuer == "" {
		return DefaultIssuer
	}
	return c.Issuer
}

func (c DomainConfig) GetCookieName() string { return c.CookieName }
func (c DomainConfig) GetCookieSecure() bool { return c.CookieSecure }

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
