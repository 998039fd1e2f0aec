package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

// SubscriptionTokenLength is the number of alphanumeric characters in a
// confirmation token. 25 characters over a 62-symbol alphabet give just under
// 149 bits of entropy, comfortably past the 128-bit floor for tokens that
// never expire.
const SubscriptionTokenLength = 25

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SessionIDBytes is the raw size of a session identifier (64 hex chars).
const SessionIDBytes = 32

// GenerateSubscriptionToken returns a cryptographically random alphanumeric
// token for a confirmation link.
func GenerateSubscriptionToken() (string, error) {
	return randomAlphanumeric(SubscriptionTokenLength)
}

// GenerateSessionID returns a fresh unguessable session identifier as a
// hex string. crypto/rand.Read never fails on supported platforms.
func GenerateSessionID() string {
	buf := make([]byte, SessionIDBytes)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%x", buf)
}

// FingerprintToken returns the deterministic SHA-256 fingerprint of a token,
// base64url-encoded. Tokens are stored at rest as fingerprints so a database
// leak does not hand out live confirmation links.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func randomAlphanumeric(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate random token: %w", err)
		}
		out[i] = tokenAlphabet[n.Int64()]
	}
	return string(out), nil
}
