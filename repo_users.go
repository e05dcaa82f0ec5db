package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var UpdateUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"updated_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

type superAdmins struct {
	db *bun.DB
}

var _ SuperAdmins = (*superAdmins)(nil)

func (r *superAdmins) Get(ctx context.Context) (*SuperAdmin, error) {
	record := &SuperAdmin{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.singleton = ?", superAdminSentinel).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}
	return record, nil
}

func (r *superAdmins) GetByEmail(ctx context.Context, email string) (*SuperAdmin, error) {
	record := &SuperAdmin{}
	err := r.db.NewSelect().
		Model(record).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
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

func (r *superAdmins) Exists(ctx context.Context) (bool, error) {
	return r.db.NewSelect().
		Model((*SuperAdmin)(nil)).
		Where("?TableAlias.singleton = ?", superAdminSentinel).
		Exists(ctx)
}

// CreateTx inserts the singleton row. The unique index on the sentinel column
// rejects a second insert, so first-run races resolve to exactly one winner.
func (r *superAdmins) CreateTx(ctx context.Context, tx bun.IDB, record *SuperAdmin) (*SuperAdmin, error) {
	ensureID(&record.ID)
	record.Email = NormalizeEmail(record.Email)
	record.Singleton = superAdminSentinel

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrSuperAdminExists
		}
		return nil, err
	}
	return record, nil
}

func (r *superAdmins) TrackLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewUpdate().
		Model((*SuperAdmin)(nil)).
		Set("last_login_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string { return "email" },
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
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

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
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

func (a *users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return a.db.NewSelect().
		Model((*User)(nil)).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
		Exists(ctx)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	ensureID(&record.ID)
	record.Email = NormalizeEmail(record.Email)
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *users) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, UpdateUserPasswordSQL, passwordHash, time.Now(), id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *users) SetCompanyTx(ctx context.Context, tx bun.IDB, id, companyID uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("company_id = ?", companyID).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	now := time.Now()
	record := &User{}
	record.ID = user.ID
	record.LoginAttempts = user.LoginAttempts + 1
	record.LoginAttemptAt = &now

	_, err := a.Repository.Update(ctx, record, repository.UpdateByID(user.ID.String()))
	return err
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	// NOTE: the ORM update path wont null out login_attempt_at, so reset the
	// counters with raw SQL.
	_, err := a.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"last_login_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, time.Now(), user.ID).Exec(ctx)

	return err
}

type companies struct {
	db *bun.DB
}

var _ Companies = (*companies)(nil)

func (r *companies) GetByID(ctx context.Context, id uuid.UUID) (*Company, error) {
	record := &Company{}
	err := r.db.NewSelect().
		Model(record).
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

func (r *companies) SlugExists(ctx context.Context, slug string) (bool, error) {
	return r.db.NewSelect().
		Model((*Company)(nil)).
		Where("?TableAlias.slug = ?", slug).
		Exists(ctx)
}

func (r *companies) CreateTx(ctx context.Context, tx bun.IDB, record *Company) (*Company, error) {
	ensureID(&record.ID)
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

type companyAdmins struct {
	db *bun.DB
}

var _ CompanyAdmins = (*companyAdmins)(nil)

func (r *companyAdmins) GetByID(ctx context.Context, id uuid.UUID) (*CompanyAdmin, error) {
	record := &CompanyAdmin{}
	err := r.db.NewSelect().
		Model(record).
		Relation("User").
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

func (r *companyAdmins) GetByUserID(ctx context.Context, userID uuid.UUID) (*CompanyAdmin, error) {
	record := &CompanyAdmin{}
	err := r.db.NewSelect().
		Model(record).
		Relation("User").
		Relation("Company").
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
		}
		return nil, err
	}
	return record, nil
}

func (r *companyAdmins) CreateTx(ctx context.Context, tx bun.IDB, record *CompanyAdmin) (*CompanyAdmin, error) {
	ensureID(&record.ID)
	if record.Role == "" {
		record.Role = RoleManager
	}
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

type passwordResets struct {
	repository.Repository[*PasswordResetToken]
	db *bun.DB
}

var _ PasswordResets = (*passwordResets)(nil)

func NewPasswordResetsRepository(db *bun.DB) PasswordResets {
	repo := repository.NewRepository[*PasswordResetToken](db, repository.ModelHandlers[*PasswordResetToken]{
		NewRecord: func() *PasswordResetToken { return &PasswordResetToken{} },
		GetID: func(t *PasswordResetToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *PasswordResetToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string { return "token_hash" },
	})

	return &passwordResets{
		Repository: repo,
		db:         db,
	}
}

func (r *passwordResets) GetByTokenHash(ctx context.Context, tokenHash string) (*PasswordResetToken, error) {
	record := &PasswordResetToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.token_hash = ?", tokenHash).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}
	return record, nil
}

func (r *passwordResets) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*PasswordResetToken)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

func (r *passwordResets) CreateTx(ctx context.Context, tx bun.IDB, record *PasswordResetToken) (*PasswordResetToken, error) {
	ensureID(&record.ID)
	return r.Repository.CreateTx(ctx, tx, record)
}

func (r *passwordResets) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, usedAt time.Time) error {
	res, err := tx.NewUpdate().
		Model((*PasswordResetToken)(nil)).
		Set("used_at = ?", usedAt).
		Where("id = ?", id).
		Where("used_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	// zero rows means another transaction consumed the token first
	return requireAffected(res, id)
}
