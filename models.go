package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NormalizeEmail lowercases and trims an email. Every write and every read
// comparison goes through this, so two spellings of the same address can
// never coexist.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// superAdminSentinel is the fixed value of the singleton column; its unique
// index is what makes a second insert fail closed.
const superAdminSentinel = 1

// SuperAdmin is the single platform administrator. The Singleton column holds
// a constant guarded by a unique index so concurrent first-run signups cannot
// both win.
type SuperAdmin struct {
	bun.BaseModel `bun:"table:super_admins,alias:sa"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Singleton     int        `bun:"singleton,notnull,unique" json:"-"`
	LastLoginAt   *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// User is a tester / end-user account. Email is unique case-insensitively;
// rows are soft-deleted and may additionally be banned.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName      string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"-"`
	CompanyID      *uuid.UUID `bun:"company_id,nullzero,type:uuid" json:"company_id,omitempty"`
	Company        *Company   `bun:"rel:belongs-to,join:company_id=id" json:"company,omitempty"`
	Banned         bool       `bun:"is_banned" json:"is_banned,omitempty"`
	LoginAttempts  int        `bun:"login_attempts" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at,nullzero" json:"-"`
	LastLoginAt    *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Disabled reports whether the account must be treated as unauthenticated
// even when it presents a valid session token.
func (u *User) Disabled() bool {
	return u == nil || u.DeletedAt != nil || u.Banned
}

// Company is a tenant.
type Company struct {
	bun.BaseModel `bun:"table:companies,alias:cmp"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Slug          string     `bun:"slug,notnull,unique" json:"slug,omitempty"`
	LogoURL       string     `bun:"logo_url" json:"logo_url,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	ContactEmail  string     `bun:"contact_email" json:"contact_email,omitempty"`
	IsActive      bool       `bun:"is_active,default:true" json:"is_active,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// CompanyAdmin links a user to a company with a role. Every company has
// exactly one owner; managers hold a restricted role the gate cross-checks on
// settings mutations.
type CompanyAdmin struct {
	bun.BaseModel `bun:"table:company_admins,alias:cadm"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	CompanyID     uuid.UUID  `bun:"company_id,notnull,type:uuid" json:"company_id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Role          AdminRole  `bun:"role,notnull" json:"role,omitempty"`
	InvitedBy     *uuid.UUID `bun:"invited_by,nullzero,type:uuid" json:"invited_by,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Company       *Company   `bun:"rel:belongs-to,join:company_id=id" json:"company,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Team groups testers inside a company.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:tm"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	CompanyID     uuid.UUID  `bun:"company_id,notnull,type:uuid" json:"company_id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Company       *Company   `bun:"rel:belongs-to,join:company_id=id" json:"company,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// TeamMember is a (possibly account-less) membership row; UserID is filled in
// once a matching account signs up.
type TeamMember struct {
	bun.BaseModel `bun:"table:team_members,alias:tmm"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TeamID        uuid.UUID  `bun:"team_id,notnull,type:uuid" json:"team_id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,nullzero,type:uuid" json:"user_id,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// SessionStatus is the testing-session lifecycle state.
type SessionStatus = string

const (
	// SessionDraft means the session has not been opened to testers yet.
	SessionDraft SessionStatus = "draft"
	// SessionActive means testers may join and respond.
	SessionActive SessionStatus = "active"
	// SessionCompleted means the session has ended.
	SessionCompleted SessionStatus = "completed"
)

// TestingSession is a moderated testing session owned by a company. Tester
// invite validity derives entirely from its Status.
type TestingSession struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	CompanyID     *uuid.UUID    `bun:"company_id,nullzero,type:uuid" json:"company_id,omitempty"`
	Name          string        `bun:"name,notnull" json:"name,omitempty"`
	Description   string        `bun:"description" json:"description,omitempty"`
	Status        SessionStatus `bun:"status,notnull,default:'draft'" json:"status,omitempty"`
	Company       *Company      `bun:"rel:belongs-to,join:company_id=id" json:"company,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Scene is one ordered step of a testing session.
type Scene struct {
	bun.BaseModel `bun:"table:scenes,alias:scn"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	SessionID     uuid.UUID  `bun:"session_id,notnull,type:uuid" json:"session_id,omitempty"`
	Title         string     `bun:"title,notnull" json:"title,omitempty"`
	OrderIndex    int        `bun:"order_index,notnull" json:"order_index"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Tester grants one principal access to one session. InviteToken is written
// exactly once when the row is created and never re-issued.
type Tester struct {
	bun.BaseModel `bun:"table:testers,alias:tst"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	SessionID     uuid.UUID  `bun:"session_id,notnull,type:uuid" json:"session_id,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,nullzero,type:uuid" json:"user_id,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	InviteToken   string     `bun:"invite_token,notnull,unique" json:"invite_token,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// PollResponse is a tester's answer to a scene poll.
type PollResponse struct {
	bun.BaseModel `bun:"table:poll_responses,alias:plr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TesterID      uuid.UUID  `bun:"tester_id,notnull,type:uuid" json:"tester_id,omitempty"`
	SceneID       uuid.UUID  `bun:"scene_id,notnull,type:uuid" json:"scene_id,omitempty"`
	Answer        string     `bun:"answer" json:"answer,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// PasswordResetToken stores only the SHA-256 digest of the reset secret. The
// raw secret leaves the process exactly once, toward the mailer.
type PasswordResetToken struct {
	bun.BaseModel `bun:"table:password_reset_tokens,alias:prt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	TokenHash     string     `bun:"token_hash,notnull,unique" json:"-"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	UsedAt        *time.Time `bun:"used_at,nullzero" json:"used_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Consumable reports whether the token can still redeem a password change.
func (t *PasswordResetToken) Consumable(now time.Time) bool {
	return t != nil && t.UsedAt == nil && now.Before(t.ExpiresAt)
}

// InviteStatus is the stored state of a company invite. Expiry is derived
// from the clock at resolution time, never written back.
type InviteStatus = string

const (
	// InviteStatusPending is the initial, redeemable state.
	InviteStatusPending InviteStatus = "pending"
	// InviteStatusAccepted is terminal.
	InviteStatusAccepted InviteStatus = "accepted"
	// InviteStatusExpired is terminal; only set when an admin revokes early,
	// normal expiry stays derived.
	InviteStatusExpired InviteStatus = "expired"
)

// CompanyInvite admits principals into a company. A nil Email makes it the
// permanent join link: redeemable repeatedly, never consumed.
type CompanyInvite struct {
	bun.BaseModel `bun:"table:company_user_invites,alias:cui"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	CompanyID     uuid.UUID    `bun:"company_id,notnull,type:uuid" json:"company_id,omitempty"`
	Email         *string      `bun:"email,nullzero" json:"email,omitempty"`
	InvitedBy     *uuid.UUID   `bun:"invited_by,nullzero,type:uuid" json:"invited_by,omitempty"`
	Status        InviteStatus `bun:"status,notnull,default:'pending'" json:"status,omitempty"`
	Token         string       `bun:"token,notnull,unique" json:"token,omitempty"`
	ExpiresAt     time.Time    `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	ClaimedAt     *time.Time   `bun:"claimed_at,nullzero" json:"claimed_at,omitempty"`
	Company       *Company     `bun:"rel:belongs-to,join:company_id=id" json:"company,omitempty"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Permanent reports whether this is the email-less repeatable join link.
func (i *CompanyInvite) Permanent() bool {
	return i != nil && i.Email == nil
}

// InviteTarget discriminates what a pending invite points at. The two target
// kinds have disjoint shapes, so resolution is an explicit tagged dispatch.
type InviteTarget = string

const (
	// InviteTargetSession points TargetID at a testing session.
	InviteTargetSession InviteTarget = "session"
	// InviteTargetTeam points TargetID at a team.
	InviteTargetTeam InviteTarget = "team"
)

// PendingInvite parks an invitation for an email that has no account yet. It
// is claimed (ClaimedAt set) when a matching account is created or linked.
type PendingInvite struct {
	bun.BaseModel `bun:"table:pending_invites,alias:pin"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string       `bun:"email,notnull" json:"email,omitempty"`
	InviteType    InviteTarget `bun:"invite_type,notnull" json:"invite_type,omitempty"`
	TargetID      uuid.UUID    `bun:"target_id,notnull,type:uuid" json:"target_id,omitempty"`
	ExpiresAt     time.Time    `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	ClaimedAt     *time.Time   `bun:"claimed_at,nullzero" json:"claimed_at,omitempty"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
