package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	goerrors "github.com/goliatone/go-errors"
)

// inviteAlphabet keeps invite tokens copy-paste and URL safe. Entropy is
// about 5.17 bits per character.
const inviteAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

const (
	// ScopedTokenLength is used for team- and session-scoped tokens (~62
	// bits), short enough to read out loud.
	ScopedTokenLength = 12
	// PermanentTokenLength is used for company-wide permanent links (~124
	// bits), which live for a year and warrant the extra margin.
	PermanentTokenLength = 24
	// resetSecretBytes is the raw entropy behind a password reset secret.
	resetSecretBytes = 32
)

// NewInviteToken returns a random lowercase-alphanumeric token of the given
// length.
func NewInviteToken(length int) (string, error) {
	if length <= 0 {
		return "", goerrors.New("token length must be positive", goerrors.CategoryBadInput)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random bytes for invite token")
	}

	for i, b := range buf {
		buf[i] = inviteAlphabet[int(b)%len(inviteAlphabet)]
	}

	return string(buf), nil
}

// NewResetSecret returns the raw, hex-encoded password reset secret. The
// caller hands it to the mailer; only HashToken of it is ever stored.
func NewResetSecret() (string, error) {
	buf := make([]byte, resetSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random bytes for reset secret")
	}
	return hex.EncodeToString(buf), nil
}

// HashToken is the irreversible digest under which secrets are stored and
// looked up.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
