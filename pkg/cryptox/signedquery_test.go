package cryptox

import (
	"encoding/hex"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quillpost/quillpost/pkg/secretx"
)

func TestSignedQueryRoundTrip(t *testing.T) {
	t.Parallel()

	key := secretx.New("super-secret-hmac-key")

	messages := []string{
		"Authentication failed.",
		"spaces and & ampersands = fun?",
		"unicode: zeitgeist über alles",
		"",
	}

	for _, message := range messages {
		query := EncodeSignedQuery(message, key)

		values, err := url.ParseQuery(query)
		require.NoError(t, err)

		decoded, err := DecodeSignedQuery(values, key)
		require.NoError(t, err)
		require.Equal(t, message, decoded)
	}
}

func TestSignedQueryRejectsWrongKey(t *testing.T) {
	t.Parallel()

	query := EncodeSignedQuery("Authentication failed.", secretx.New("key-one"))
	values, err := url.ParseQuery(query)
	require.NoError(t, err)

	_, err = DecodeSignedQuery(values, secretx.New("key-two"))
	require.ErrorIs(t, err, ErrTagMismatch)
}

func TestSignedQueryRejectsTamperedTag(t *testing.T) {
	t.Parallel()

	key := secretx.New("super-secret-hmac-key")
	values, err := url.ParseQuery(EncodeSignedQuery("Authentication failed.", key))
	require.NoError(t, err)

	tag, err := hex.DecodeString(values.Get(SignedQueryTagParam))
	require.NoError(t, err)

	// Flipping any single bit of the tag must invalidate it.
	for i := range tag {
		for bit := 0; bit < 8; bit++ {
			flipped := make([]byte, len(tag))
			copy(flipped, tag)
			flipped[i] ^= 1 << bit

			tampered := url.Values{}
			tampered.Set(SignedQueryMessageParam, values.Get(SignedQueryMessageParam))
			tampered.Set(SignedQueryTagParam, hex.EncodeToString(flipped))

			_, err := DecodeSignedQuery(tampered, key)
			require.ErrorIs(t, err, ErrTagMismatch)
		}
	}
}

func TestSignedQueryRejectsTamperedMessage(t *testing.T) {
	t.Parallel()

	key := secretx.New("super-secret-hmac-key")
	values, err := url.ParseQuery(EncodeSignedQuery("Authentication failed.", key))
	require.NoError(t, err)

	values.Set(SignedQueryMessageParam, "You are now an admin.")
	_, err = DecodeSignedQuery(values, key)
	require.ErrorIs(t, err, ErrTagMismatch)
}

func TestSignedQueryRejectsGarbage(t *testing.T) {
	t.Parallel()

	key := secretx.New("super-secret-hmac-key")

	cases := map[string]url.Values{
		"empty":         {},
		"missing tag":   {SignedQueryMessageParam: {"hello"}},
		"missing error": {SignedQueryTagParam: {"abcd"}},
		"malformed hex": {SignedQueryMessageParam: {"hello"}, SignedQueryTagParam: {"zzzz"}},
	}

	for name, values := range cases {
		values := values
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeSignedQuery(values, key)
			require.ErrorIs(t, err, ErrTagMismatch)
		})
	}
}
