package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/k-chan22/DeteXTB-System/internal/core/port"
)

const (
	saltLength          = 16
	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024
	argonThreads uint8  = 4
	argonKeyLen  uint32 = 32
)

// PlaintextMatcher compares submitted passwords byte for byte against the
// stored secret. This matches what the deployed directory actually holds
// today; it is a flagged defect, not a design choice. Swap in Argon2Matcher
// once stored secrets are migrated.
type PlaintextMatcher struct{}

// Match reports whether the submitted password equals the stored secret.
func (PlaintextMatcher) Match(submitted, stored string) (bool, error) {
	if submitted == "" || stored == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) == 1, nil
}

// Encode returns the password unchanged; the directory stores it as-is.
func (PlaintextMatcher) Encode(password string) (string, error) {
	return password, nil
}

// Argon2Matcher hashes and verifies secrets with Argon2id. Stored values are
// encoded as "salt:hash" with both components base64-encoded.
type Argon2Matcher struct{}

// Encode generates an Argon2id hash for the provided password.
func (Argon2Matcher) Encode(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	encodedSalt := base64.StdEncoding.EncodeToString(salt)
	encodedHash := base64.StdEncoding.EncodeToString(hash)

	return fmt.Sprintf("%s:%s", encodedSalt, encodedHash), nil
}

// Match compares the provided password against a stored Argon2id hash.
func (Argon2Matcher) Match(submitted, encoded string) (bool, error) {
	if submitted == "" || encoded == "" {
		return false, nil
	}

	parts := strings.Split(encoded, ":")
	if len(parts) != 2 {
		return false, fmt.Errorf("invalid password hash format")
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}

	storedHash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}

	computed := argon2.IDKey([]byte(submitted), salt, argonTime, argonMemory, argonThreads, uint32(len(storedHash)))

	return subtle.ConstantTimeCompare(computed, storedHash) == 1, nil
}

var (
	_ port.PasswordMatcher = PlaintextMatcher{}
	_ port.PasswordMatcher = Argon2Matcher{}
)
