package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPasswordProducesPHCFormat(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"))
	require.Len(t, strings.Split(hash, "$"), 6)
}

func TestHashPasswordSaltsAreFresh(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("same password")
	require.NoError(t, err)
	second, err := HashPassword("same password")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestVerifyPasswordRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	require.NoError(t, VerifyPassword("s3cret", hash))
	require.ErrorIs(t, VerifyPassword("wrong", hash), ErrPasswordMismatch)
	require.ErrorIs(t, VerifyPassword("", hash), ErrPasswordMismatch)
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":             "",
		"not phc":           "plainly-not-a-hash",
		"too few parts":     "$argon2id$v=19$m=19456,t=2,p=1$saltonly",
		"wrong algorithm":   "$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"wrong version":     "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"bad parameters":    "$argon2id$v=19$m=what$c2FsdA$aGFzaA",
		"bad salt encoding": "$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA",
		"bad hash encoding": "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!",
	}

	for name, hash := range cases {
		hash := hash
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := VerifyPassword("anything", hash)
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrPasswordMismatch)
		})
	}
}
