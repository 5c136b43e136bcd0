// Package secrets generates and hashes the credential material the
// deployment needs: the n8n encryption key, basic-auth passwords, and the
// bcrypt hashes the ingress controller consumes.
package secrets

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// EncryptionKeyLength is the required length of an n8n encryption key in
// hex characters (32 random bytes).
const EncryptionKeyLength = 64

// passwordAlphabet is alphanumeric only so credentials survive shell
// quoting and URL embedding unescaped.
const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateEncryptionKey returns a fresh 64-hex-character key.
func GenerateEncryptionKey() (string, error) {
	buf := make([]byte, EncryptionKeyLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GeneratePassword returns a random alphanumeric password of the given
// length.
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("password length must be positive, got %d", length)
	}
	out := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}

// HashPassword returns the bcrypt hash of password in the htpasswd format
// the ingress controller's auth secret expects.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// HtpasswdEntry renders a user:hash line for an ingress basic-auth secret.
func HtpasswdEntry(username, passwordHash string) string {
	return username + ":" + passwordHash
}
