package identity

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// requireAffected turns a zero-row guarded update into a not-found so claim
// races fail closed instead of reporting success twice.
func requireAffected(res sql.Result, id uuid.UUID) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}
	return nil
}

type companyInvites struct {
	db *bun.DB
}

var _ CompanyInvites = (*companyInvites)(nil)

func (r *companyInvites) GetPendingByToken(ctx context.Context, token string) (*CompanyInvite, error) {
	record := &CompanyInvite{}
	err := r.db.NewSelect().
		Model(record).
		Relation("Company").
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.status = ?", InviteStatusPending).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"token": token,
				})
		}
		return nil, err
	}
	return record, nil
}

// FindPermanent returns the email-less pending invite for a company that is
// still inside its validity window.
func (r *companyInvites) FindPermanent(ctx context.Context, companyID uuid.UUID, now time.Time) (*CompanyInvite, error) {
	record := &CompanyInvite{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.company_id = ?", companyID).
		Where("?TableAlias.email IS NULL").
		Where("?TableAlias.status = ?", InviteStatusPending).
		Where("?TableAlias.expires_at > ?", now).
		Order("cui.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"company_id": companyID.String(),
				})
		}
		return nil, err
	}
	return record, nil
}

func (r *companyInvites) CreateTx(ctx context.Context, tx bun.IDB, record *CompanyInvite) (*CompanyInvite, error) {
	ensureID(&record.ID)
	if record.Status == "" {
		record.Status = InviteStatusPending
	}
	if record.Email != nil {
		normalized := NormalizeEmail(*record.Email)
		record.Email = &normalized
	}
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

// MarkClaimedTx moves an addressed invite to its terminal accepted state.
// Permanent invites never go through here.
func (r *companyInvites) MarkClaimedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, claimedAt time.Time) error {
	res, err := tx.NewUpdate().
		Model((*CompanyInvite)(nil)).
		Set("status = ?", InviteStatusAccepted).
		Set("claimed_at = ?", claimedAt).
		Where("id = ?", id).
		Where("status = ?", InviteStatusPending).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

type pendingInvites struct {
	db *bun.DB
}

var _ PendingInvites = (*pendingInvites)(nil)

func (r *pendingInvites) NewestUnclaimed(ctx context.Context, email string, now time.Time) (*PendingInvite, error) {
	record := &PendingInvite{}
	err := r.db.NewSelect().
		Model(record).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
		Where("?TableAlias.claimed_at IS NULL").
		Where("?TableAlias.expires_at > ?", now).
		Order("pin.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": NormalizeEmail(email),
				})
		}
		return nil, err
	}
	return record, nil
}

func (r *pendingInvites) UnclaimedForEmail(ctx context.Context, email string, now time.Time) ([]*PendingInvite, error) {
	var records []*PendingInvite
	err := r.db.NewSelect().
		Model(&records).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
		Where("?TableAlias.claimed_at IS NULL").
		Where("?TableAlias.expires_at > ?", now).
		Order("pin.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *pendingInvites) CreateTx(ctx context.Context, tx bun.IDB, record *PendingInvite) (*PendingInvite, error) {
	ensureID(&record.ID)
	record.Email = NormalizeEmail(record.Email)
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *pendingInvites) MarkClaimedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, claimedAt time.Time) error {
	res, err := tx.NewUpdate().
		Model((*PendingInvite)(nil)).
		Set("claimed_at = ?", claimedAt).
		Where("id = ?", id).
		Where("claimed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

type testers struct {
	db *bun.DB
}

var _ Testers = (*testers)(nil)

func (r *testers) GetByInviteToken(ctx context.Context, token string) (*Tester, error) {
	record := &Tester{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.invite_token = ?", token).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"invite_token": token,
				})
		}
		return nil, err
	}
	return record, nil
}

func (r *testers) CreateTx(ctx context.Context, tx bun.IDB, record *Tester) (*Tester, error) {
	ensureID(&record.ID)
	record.Email = NormalizeEmail(record.Email)
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

// LinkToUserTx attaches every account-less tester row for an email to a
// freshly created account.
func (r *testers) LinkToUserTx(ctx context.Context, tx bun.IDB, email string, userID uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*Tester)(nil)).
		Set("user_id = ?", userID).
		Where("lower(email) = ?", NormalizeEmail(email)).
		Where("user_id IS NULL").
		Exec(ctx)
	return err
}

type teamMembers struct {
	db *bun.DB
}

var _ TeamMembers = (*teamMembers)(nil)

func (r *teamMembers) CreateTx(ctx context.Context, tx bun.IDB, record *TeamMember) (*TeamMember, error) {
	ensureID(&record.ID)
	record.Email = NormalizeEmail(record.Email)
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *teamMembers) LinkToUserTx(ctx context.Context, tx bun.IDB, email string, userID uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*TeamMember)(nil)).
		Set("user_id = ?", userID).
		Where("lower(email) = ?", NormalizeEmail(email)).
		Where("user_id IS NULL").
		Exec(ctx)
	return err
}

type teams struct {
	db *bun.DB
}

var _ Teams = (*teams)(nil)

func (r *teams) GetByID(ctx context.Context, id uuid.UUID) (*Team, error) {
	record := &Team{}
	err := r.db.NewSelect().
		Model(record).
		Relation("Company").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}
	return record, nil
}

type sessions struct {
	db *bun.DB
}

var _ Sessions = (*sessions)(nil)

func (r *sessions) GetByID(ctx context.Context, id uuid.UUID) (*TestingSession, error) {
	record := &TestingSession{}
	err := r.db.NewSelect().
		Model(record).
		Relation("Company").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}
	return record, nil
}

func (r *sessions) ScenesOrdered(ctx context.Context, sessionID uuid.UUID) ([]*Scene, error) {
	var records []*Scene
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.session_id = ?", sessionID).
		Order("scn.order_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *sessions) ResponsesForTester(ctx context.Context, testerID uuid.UUID) ([]*PollResponse, error) {
	var records []*PollResponse
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.tester_id = ?", testerID).
		Order("plr.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
