package scheduler

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// trackingTokenBytes of entropy encode to 32 URL-safe characters.
const trackingTokenBytes = 24

// NewTrackingToken returns a fresh guest token and the digest stored in its place.
func NewTrackingToken() (token, digest string, err error) {
	var b [trackingTokenBytes]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", "", fmt.Errorf("generate tracking token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(b[:])
	return token, DigestToken(token), nil
}

// DigestToken is the hex BLAKE2b-256 digest used to look a token up.
func DigestToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
