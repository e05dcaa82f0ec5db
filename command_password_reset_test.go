package identity_test

import (
	"context"
	"strings"
	"testing"
	"time"

	identity "github.com/airlog/go-identity"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInitializePasswordReset(t *testing.T) {
	userID := uuid.New()

	t.Run("unknown email still succeeds", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		mailer := &MockMailer{}
		repo.UsersMock.On("GetByEmail", mock.Anything, "ghost@example.com").
			Return(nil, repository.NewRecordNotFound())

		handler := identity.NewInitializePasswordResetHandler(repo, mailer)

		var resp *identity.InitializePasswordResetResponse
		err := handler.Execute(context.Background(), identity.InitializePasswordResetMessage{
			Email:      "ghost@example.com",
			OnResponse: func(r *identity.InitializePasswordResetResponse) { resp = r },
		})

		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.True(t, resp.Success)
		repo.PasswordResetsMock.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.Anything)
		mailer.AssertNotCalled(t, "SendPasswordReset", mock.Anything, mock.Anything)
	})

	t.Run("known email stores the digest and mails the secret", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		mailer := &MockMailer{}
		user := &identity.User{ID: userID, Email: "pepe@example.com"}

		repo.UsersMock.On("GetByEmail", mock.Anything, "pepe@example.com").Return(user, nil)
		repo.PasswordResetsMock.On("DeleteForUserTx", mock.Anything, mock.Anything, userID).Return(nil)

		var stored *identity.PasswordResetToken
		repo.PasswordResetsMock.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				stored = args.Get(2).(*identity.PasswordResetToken)
			}).
			Return(&identity.PasswordResetToken{}, nil)

		var resetURL string
		mailer.On("SendPasswordReset", "pepe@example.com", mock.Anything).
			Run(func(args mock.Arguments) {
				resetURL = args.String(1)
			}).
			Return(nil)

		handler := identity.NewInitializePasswordResetHandler(repo, mailer).
			WithBaseURL("https://app.example.com/reset-password")

		err := handler.Execute(context.Background(), identity.InitializePasswordResetMessage{
			Email: "Pepe@Example.com  ",
		})
		require.NoError(t, err)
		require.NotNil(t, stored)

		// the mail carries the raw secret, the store only its digest
		_, secret, found := strings.Cut(resetURL, "token=")
		require.True(t, found)
		assert.NotEqual(t, secret, stored.TokenHash)
		assert.Equal(t, identity.HashToken(secret), stored.TokenHash)
		assert.Equal(t, userID, stored.UserID)
		assert.WithinDuration(t, time.Now().Add(identity.ResetTokenTTL), stored.ExpiresAt, 5*time.Second)
		repo.PasswordResetsMock.AssertExpectations(t)
	})

	t.Run("empty email is rejected", func(t *testing.T) {
		handler := identity.NewInitializePasswordResetHandler(NewMockRepositoryManager(), &MockMailer{})
		err := handler.Execute(context.Background(), identity.InitializePasswordResetMessage{Email: "   "})

		assert.Error(t, err)
	})
}

func TestFinalizePasswordReset(t *testing.T) {
	userID := uuid.New()
	resetID := uuid.New()
	secret := "aabbccddeeff00112233445566778899"

	t.Run("short password fails before any lookup", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		handler := identity.NewFinalizePasswordResetHandler(repo)

		err := handler.Execute(context.Background(), identity.FinalizePasswordResetMessage{
			Token:    secret,
			Password: "short",
		})

		assert.ErrorIs(t, err, identity.ErrPasswordTooShort)
		repo.PasswordResetsMock.AssertNotCalled(t, "GetByTokenHash", mock.Anything, mock.Anything)
	})

	t.Run("unknown token", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		repo.PasswordResetsMock.On("GetByTokenHash", mock.Anything, identity.HashToken(secret)).
			Return(nil, repository.NewRecordNotFound())

		handler := identity.NewFinalizePasswordResetHandler(repo)
		err := handler.Execute(context.Background(), identity.FinalizePasswordResetMessage{
			Token:    secret,
			Password: "longenoughpw",
		})

		assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)
	})

	t.Run("consumed token", func(t *testing.T) {
		usedAt := time.Now().Add(-time.Minute)
		repo := NewMockRepositoryManager()
		repo.PasswordResetsMock.On("GetByTokenHash", mock.Anything, identity.HashToken(secret)).
			Return(&identity.PasswordResetToken{
				ID:        resetID,
				UserID:    userID,
				ExpiresAt: time.Now().Add(time.Hour),
				UsedAt:    &usedAt,
			}, nil)

		handler := identity.NewFinalizePasswordResetHandler(repo)
		err := handler.Execute(context.Background(), identity.FinalizePasswordResetMessage{
			Token:    secret,
			Password: "longenoughpw",
		})

		assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)
		repo.UsersMock.AssertNotCalled(t, "UpdatePasswordTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expired token", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		repo.PasswordResetsMock.On("GetByTokenHash", mock.Anything, identity.HashToken(secret)).
			Return(&identity.PasswordResetToken{
				ID:        resetID,
				UserID:    userID,
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil)

		handler := identity.NewFinalizePasswordResetHandler(repo)
		err := handler.Execute(context.Background(), identity.FinalizePasswordResetMessage{
			Token:    secret,
			Password: "longenoughpw",
		})

		assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)
	})

	t.Run("raced consume maps to an invalid token", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		repo.PasswordResetsMock.On("GetByTokenHash", mock.Anything, identity.HashToken(secret)).
			Return(&identity.PasswordResetToken{
				ID:        resetID,
				UserID:    userID,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil)
		repo.UsersMock.On("UpdatePasswordTx", mock.Anything, mock.Anything, userID, mock.Anything).Return(nil)

		// a concurrent finalize consumed the row between read and update
		repo.PasswordResetsMock.On("ConsumeTx", mock.Anything, mock.Anything, resetID, mock.Anything).
			Return(repository.NewRecordNotFound())

		handler := identity.NewFinalizePasswordResetHandler(repo)
		err := handler.Execute(context.Background(), identity.FinalizePasswordResetMessage{
			Token:    secret,
			Password: "longenoughpw",
		})

		assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)
	})

	t.Run("live token rotates the password and burns itself", func(t *testing.T) {
		repo := NewMockRepositoryManager()
		repo.PasswordResetsMock.On("GetByTokenHash", mock.Anything, identity.HashToken(secret)).
			Return(&identity.PasswordResetToken{
				ID:        resetID,
				UserID:    userID,
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil)

		var newHash string
		repo.UsersMock.On("UpdatePasswordTx", mock.Anything, mock.Anything, userID, mock.Anything).
			Run(func(args mock.Arguments) {
				newHash = args.String(3)
			}).
			Return(nil)
		repo.PasswordResetsMock.On("ConsumeTx", mock.Anything, mock.Anything, resetID, mock.Anything).Return(nil)

		handler := identity.NewFinalizePasswordResetHandler(repo)
		err := handler.Execute(context.Background(), identity.FinalizePasswordResetMessage{
			Token:    secret,
			Password: "longenoughpw",
		})

		require.NoError(t, err)
		assert.NoError(t, identity.ComparePasswordAndHash("longenoughpw", newHash))
		repo.PasswordResetsMock.AssertExpectations(t)
		repo.UsersMock.AssertExpectations(t)
	})
}
