// internal/crypto/crypto.go
package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	tokenLength  = 32 // 256 bits of entropy, URL-safe base64
	prefixLength = 8  // shown in the owner UI, far too short to brute-force

	bcryptCost = 12
)

// Codec issues opaque bearer tokens and computes their at-rest digests.
// Separate keys are derived from the master secret per purpose, so rotating
// the secret invalidates share-token digests and password sessions together.
type Codec struct {
	hmacKey []byte
	jwtKey  []byte
}

func NewCodec(masterSecret string) *Codec {
	hmacKey := sha256.Sum256([]byte(masterSecret + ":hmac"))
	jwtKey := sha256.Sum256([]byte(masterSecret + ":jwt"))
	return &Codec{
		hmacKey: hmacKey[:],
		jwtKey:  jwtKey[:],
	}
}

// SessionKey is the signing key for password-session credentials.
func (c *Codec) SessionKey() []byte {
	return c.jwtKey
}

// IssueToken generates a fresh bearer token and returns the plaintext, its
// digest for storage, and a short display prefix. The plaintext must not be
// persisted anywhere.
func (c *Codec) IssueToken() (plaintext, digest, prefix string, err error) {
	bytes := make([]byte, tokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", "", fmt.Errorf("token generation failed: %w", err)
	}
	plaintext = base64.RawURLEncoding.EncodeToString(bytes)
	return plaintext, c.Digest(plaintext), Prefix(plaintext), nil
}

// Digest computes the keyed HMAC-SHA256 of a token. The key is the server
// secret, so a database leak does not allow offline token verification.
func (c *Codec) Digest(plaintext string) string {
	h := hmac.New(sha256.New, c.hmacKey)
	h.Write([]byte(plaintext))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Verify compares a token against a stored digest in constant time.
func (c *Codec) Verify(plaintext, storedDigest string) bool {
	expected := c.Digest(plaintext)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(storedDigest)) == 1
}

// Prefix returns the leading characters of a plaintext token for display.
func Prefix(plaintext string) string {
	if len(plaintext) < prefixLength {
		return plaintext
	}
	return plaintext[:prefixLength]
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
