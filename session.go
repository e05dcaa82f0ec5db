package identity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionObject is the decoded, verified view of a session token.
type SessionObject struct {
	PrincipalID string     `json:"principal_id,omitempty"`
	Domain      Domain     `json:"domain,omitempty"`
	CompanyID   string     `json:"company_id,omitempty"`
	AdminRole   AdminRole  `json:"admin_role,omitempty"`
	IssuedAt    *time.Time `json:"issued_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// GetPrincipalID returns the principal id carried by the session.
func (s *SessionObject) GetPrincipalID() string {
	return s.PrincipalID
}

// GetPrincipalUUID parses the principal id as a UUID.
func (s *SessionObject) GetPrincipalUUID() (uuid.UUID, error) {
	return uuid.Parse(s.PrincipalID)
}

// GetCompanyUUID parses the embedded company id; only meaningful on the
// company-admin domain.
func (s *SessionObject) GetCompanyUUID() (uuid.UUID, error) {
	return uuid.Parse(s.CompanyID)
}

func (s SessionObject) String() string {
	exp := "<nil>"
	if s.ExpiresAt != nil {
		exp = s.ExpiresAt.Format(time.RFC1123)
	}
	return fmt.Sprintf("session{%s %s exp:%s}", s.Domain, s.PrincipalID, exp)
}

func sessionFromClaims(claims *JWTClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrTokenInvalid
	}

	s := &SessionObject{
		PrincipalID: claims.PrincipalID(),
		Domain:      claims.Domain(),
		CompanyID:   claims.CompanyID,
		AdminRole:   claims.AdminRole,
	}

	if claims.IssuedAt != nil {
		iat := claims.IssuedAt.Time
		s.IssuedAt = &iat
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		s.ExpiresAt = &exp
	}

	return s, nil
}
