package identity_test

import (
	"context"
	"testing"
	"time"

	identity "github.com/airlog/go-identity"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := identity.NewSQLiteDB("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, identity.ApplyMigrations(context.Background(), db))
	return db
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	// a second run against the same schema must be a no-op
	require.NoError(t, identity.ApplyMigrations(context.Background(), db))

	var name string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'users'",
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "users", name)
}

func TestUsersStoreRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := identity.NewRepositoryManager(db)
	ctx := context.Background()

	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := repo.Users().CreateTx(ctx, tx, &identity.User{
			FirstName:    "Pepe",
			LastName:     "Rone",
			Email:        "Pepe@Example.com",
			PasswordHash: "not-a-real-hash",
		})
		return err
	})
	require.NoError(t, err)

	// stored lowercased, looked up case-insensitively
	user, err := repo.Users().GetByEmail(ctx, "PEPE@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "pepe@example.com", user.Email)
	assert.NotEqual(t, uuid.Nil, user.ID)

	exists, err := repo.Users().ExistsByEmail(ctx, "pepe@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSuperAdminSingletonIndex(t *testing.T) {
	db := newTestDB(t)
	repo := identity.NewRepositoryManager(db)
	ctx := context.Background()

	create := func(email string) error {
		return repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			_, err := repo.SuperAdmins().CreateTx(ctx, tx, &identity.SuperAdmin{
				Email:        email,
				PasswordHash: "not-a-real-hash",
			})
			return err
		})
	}

	require.NoError(t, create("first@example.com"))

	err := create("second@example.com")
	assert.ErrorIs(t, err, identity.ErrSuperAdminExists)

	admin, err := repo.SuperAdmins().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first@example.com", admin.Email)
}

func TestPermanentInviteIndexAllowsOneLiveLink(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	companyID := uuid.New()
	_, err := db.NewInsert().Model(&identity.Company{
		ID:   companyID,
		Name: "Acme",
		Slug: "acme",
	}).Exec(ctx)
	require.NoError(t, err)

	insertPermanent := func(token string) error {
		_, err := db.ExecContext(ctx,
			"INSERT INTO company_user_invites (id, company_id, status, token, expires_at) VALUES (?, ?, 'pending', ?, ?)",
			uuid.NewString(), companyID.String(), token, "2100-01-01 00:00:00",
		)
		return err
	}

	require.NoError(t, insertPermanent("tokenaaaaaaaaaaaaaaaaaaa"))

	err = insertPermanent("tokenbbbbbbbbbbbbbbbbbbb")
	require.Error(t, err)
	assert.True(t, identity.IsUniqueViolation(err))

	// addressed invites for the same company are unconstrained
	_, err = db.ExecContext(ctx,
		"INSERT INTO company_user_invites (id, company_id, email, status, token, expires_at) VALUES (?, ?, ?, 'pending', ?, ?)",
		uuid.NewString(), companyID.String(), "pepe@example.com", "tokenccccccccccccccccccc", "2100-01-01 00:00:00",
	)
	assert.NoError(t, err)
}

func TestPasswordResetConsumeIsSingleUse(t *testing.T) {
	db := newTestDB(t)
	repo := identity.NewRepositoryManager(db)
	ctx := context.Background()

	var reset *identity.PasswordResetToken
	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := repo.Users().CreateTx(ctx, tx, &identity.User{
			FirstName:    "Pepe",
			LastName:     "Rone",
			Email:        "pepe@example.com",
			PasswordHash: "not-a-real-hash",
		})
		if err != nil {
			return err
		}

		reset, err = repo.PasswordResets().CreateTx(ctx, tx, &identity.PasswordResetToken{
			UserID:    user.ID,
			TokenHash: identity.HashToken("raw-secret"),
			ExpiresAt: time.Now().Add(time.Hour),
		})
		return err
	})
	require.NoError(t, err)

	consume := func() error {
		return repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return repo.PasswordResets().ConsumeTx(ctx, tx, reset.ID, time.Now())
		})
	}

	require.NoError(t, consume())

	// the loser of a raced double-confirm must not report success
	err = consume()
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}

func TestCompanyInviteClaimIsSingleUse(t *testing.T) {
	db := newTestDB(t)
	repo := identity.NewRepositoryManager(db)
	ctx := context.Background()

	email := "invited@example.com"
	var invite *identity.CompanyInvite
	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		company, err := repo.Companies().CreateTx(ctx, tx, &identity.Company{
			Name: "Acme",
			Slug: "acme",
		})
		if err != nil {
			return err
		}

		invite, err = repo.CompanyInvites().CreateTx(ctx, tx, &identity.CompanyInvite{
			CompanyID: company.ID,
			Email:     &email,
			Token:     "addressedtokenaddressedt",
			ExpiresAt: time.Now().Add(time.Hour),
		})
		return err
	})
	require.NoError(t, err)

	claim := func() error {
		return repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return repo.CompanyInvites().MarkClaimedTx(ctx, tx, invite.ID, time.Now())
		})
	}

	require.NoError(t, claim())

	err = claim()
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}

func TestPendingInviteClaimIsSingleUse(t *testing.T) {
	db := newTestDB(t)
	repo := identity.NewRepositoryManager(db)
	ctx := context.Background()

	var invite *identity.PendingInvite
	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		invite, err = repo.PendingInvites().CreateTx(ctx, tx, &identity.PendingInvite{
			Email:      "parked@example.com",
			InviteType: identity.InviteTargetSession,
			TargetID:   uuid.New(),
			ExpiresAt:  time.Now().Add(time.Hour),
		})
		return err
	})
	require.NoError(t, err)

	claim := func() error {
		return repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return repo.PendingInvites().MarkClaimedTx(ctx, tx, invite.ID, time.Now())
		})
	}

	require.NoError(t, claim())

	err = claim()
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}
