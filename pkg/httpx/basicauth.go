package httpx

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/quillpost/quillpost/pkg/secretx"
)

// BasicCredentials is a username/password pair extracted from an
// Authorization: Basic header. The password is wrapped so it cannot leak
// through logging.
type BasicCredentials struct {
	Username string
	Password secretx.Secret
}

// ErrMalformedBasicAuth covers every way the Authorization header can be
// unusable: missing, wrong scheme, bad base64, or a payload without a colon.
var ErrMalformedBasicAuth = errors.New("httpx: malformed basic auth header")

// ParseBasicAuth extracts Basic credentials from a request. We parse the
// header ourselves rather than using http.Request.BasicAuth because we need
// the password inside a redacting wrapper from the moment it is decoded.
func ParseBasicAuth(r *http.Request) (BasicCredentials, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return BasicCredentials{}, ErrMalformedBasicAuth
	}

	encoded, ok := strings.CutPrefix(header, "Basic ")
	if !ok {
		return BasicCredentials{}, ErrMalformedBasicAuth
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil || !utf8.Valid(decoded) {
		return BasicCredentials{}, ErrMalformedBasicAuth
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return BasicCredentials{}, ErrMalformedBasicAuth
	}

	return BasicCredentials{
		Username: username,
		Password: secretx.New(password),
	}, nil
}

// WriteBasicChallenge answers 401 with the authentication challenge for the
// given realm, per RFC 7617.
func WriteBasicChallenge(w http.ResponseWriter, realm string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
