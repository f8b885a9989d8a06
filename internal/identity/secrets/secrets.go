// Package secrets holds password hashing. Hashing happens exactly once per
// password change; saves that do not touch the password never re-hash.
package secrets

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "signet/pkg/domain-errors"
)

// hashCost is bcrypt's work factor. DefaultCost is 10, the floor the
// credential policy requires.
const hashCost = bcrypt.DefaultCost

// Hash creates a bcrypt hash of the provided password.
func Hash(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeBadRequest, "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// dummyHash is a digest of a throwaway value that no real account carries.
// Login paths that cannot find a user compare against it so a lookup miss
// costs the same as a password mismatch.
const dummyHash = "$2b$10$1NQmo1LOtWn2PSClbUPwyuJaNt2atlswpKXN2qXLQrUlVN1Lsdc2a"

// VerifyDummy burns one bcrypt comparison against a fixed hash. Callers use it
// on failure paths where no stored hash exists, keeping unknown-email and
// wrong-password rejections indistinguishable by response time.
func VerifyDummy(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}

// Verify checks a plaintext password against a bcrypt hash. bcrypt's compare
// is constant-time over the digest; plaintexts are never compared directly.
func Verify(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return fmt.Errorf("could not verify password: %w", err)
	}
	return nil
}
