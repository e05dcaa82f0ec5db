package identity_test

import (
	"testing"

	identity "github.com/airlog/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInviteToken(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{name: "scoped length", length: identity.ScopedTokenLength},
		{name: "permanent length", length: identity.PermanentTokenLength},
		{name: "zero length", length: 0, wantErr: true},
		{name: "negative length", length: -5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := identity.NewInviteToken(tt.length)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Len(t, token, tt.length)

			for _, r := range token {
				isLower := r >= 'a' && r <= 'z'
				isDigit := r >= '0' && r <= '9'
				assert.True(t, isLower || isDigit, "unexpected character %q", r)
			}
		})
	}
}

func TestNewInviteTokenUniqueness(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := identity.NewInviteToken(identity.ScopedTokenLength)
		require.NoError(t, err)
		assert.False(t, seen[token], "token collision: %s", token)
		seen[token] = true
	}
}

func TestNewResetSecret(t *testing.T) {
	secret, err := identity.NewResetSecret()
	require.NoError(t, err)

	// 32 random bytes, hex encoded
	assert.Len(t, secret, 64)

	other, err := identity.NewResetSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestHashToken(t *testing.T) {
	digest := identity.HashToken("some-secret")

	assert.Len(t, digest, 64)
	assert.Equal(t, digest, identity.HashToken("some-secret"))
	assert.NotEqual(t, digest, identity.HashToken("some-secret2"))
}
