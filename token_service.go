package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and verifies session tokens for exactly one identity
// domain.
type TokenService interface {
	Generate(principalID string, extras ...ClaimExtra) (string, error)
	Validate(tokenString string) (*JWTClaims, error)
	Domain() Domain
}

// TokenServiceImpl implements TokenService with HS256 signatures.
type TokenServiceImpl struct {
	domain          Domain
	signingKey      []byte
	tokenExpiration int
	issuer          string
	logger          Logger
}

// NewTokenService creates a TokenService for one domain. tokenExpiration is
// in hours; zero falls back to the 7 day default the product has always used.
func NewTokenService(domain Domain, signingKey []byte, tokenExpiration int, issuer string, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	if tokenExpiration <= 0 {
		tokenExpiration = DefaultTokenExpirationHours
	}
	return &TokenServiceImpl{
		domain:          domain,
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		logger:          logger,
	}
}

// Domain returns the identity domain this service signs for.
func (ts *TokenServiceImpl) Domain() Domain {
	return ts.domain
}

// TTL returns the configured token lifetime.
func (ts *TokenServiceImpl) TTL() time.Duration {
	return time.Duration(ts.tokenExpiration) * time.Hour
}

// Generate mints a signed token carrying {principal, domain, iat, exp}.
func (ts *TokenServiceImpl) Generate(principalID string, extras ...ClaimExtra) (string, error) {
	now := time.Now()

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.TTL())),
		},
		UID: principalID,
		Dom: ts.domain,
	}

	for _, extra := range extras {
		if extra != nil {
			extra(claims)
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.signingKey)
}

// Validate parses and verifies a token. Every failure mode (bad signature,
// malformed payload, expired, wrong issuer, wrong domain) collapses into
// ErrTokenInvalid.
func (ts *TokenServiceImpl) Validate(tokenString string) (*JWTClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		ts.logger.Debug("token validation failed", "domain", ts.domain, "error", err)
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Dom != ts.domain {
		ts.logger.Debug("token domain mismatch", "want", ts.domain, "got", claims.Dom)
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
