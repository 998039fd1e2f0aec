package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"

	"github.com/quillpost/quillpost/pkg/secretx"
)

// Query parameter names for the signed redirect payload.
const (
	SignedQueryMessageParam = "error"
	SignedQueryTagParam     = "tag"
)

// ErrTagMismatch is the single failure DecodeSignedQuery reports. Missing
// parameters, malformed hex and a wrong tag are deliberately
// indistinguishable so the caller leaks nothing about why the payload was
// rejected.
var ErrTagMismatch = errors.New("cryptox: signed query tag mismatch")

// EncodeSignedQuery canonicalizes a message into an error=... query parameter,
// signs the exact canonical byte string with HMAC-SHA256 and appends the tag
// hex-encoded. The result is ready to append to a redirect URL after a "?".
//
// Used for flash messages when no server-side session is available: the
// recipient page can trust the message only after DecodeSignedQuery accepts it.
func EncodeSignedQuery(message string, key secretx.Secret) string {
	canonical := SignedQueryMessageParam + "=" + url.QueryEscape(message)

	mac := hmac.New(sha256.New, []byte(key.Expose()))
	mac.Write([]byte(canonical))
	tag := hex.EncodeToString(mac.Sum(nil))

	return canonical + "&" + SignedQueryTagParam + "=" + tag
}

// DecodeSignedQuery verifies the tag over the canonical re-encoding of the
// received message and returns the message only on success. The comparison is
// constant time; any failure collapses to ErrTagMismatch and the message must
// be discarded.
func DecodeSignedQuery(values url.Values, key secretx.Secret) (string, error) {
	if !values.Has(SignedQueryMessageParam) || !values.Has(SignedQueryTagParam) {
		return "", ErrTagMismatch
	}
	message := values.Get(SignedQueryMessageParam)

	submitted, err := hex.DecodeString(values.Get(SignedQueryTagParam))
	if err != nil {
		return "", ErrTagMismatch
	}

	canonical := SignedQueryMessageParam + "=" + url.QueryEscape(message)
	mac := hmac.New(sha256.New, []byte(key.Expose()))
	mac.Write([]byte(canonical))

	if !hmac.Equal(submitted, mac.Sum(nil)) {
		return "", ErrTagMismatch
	}
	return message, nil
}
