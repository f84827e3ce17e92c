// Package passwords hashes and verifies account passwords with bcrypt.
package passwords

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinLength is the shortest password accepted for new accounts.
const MinLength = 8

// MaxLength is bcrypt's input limit in bytes.
const MaxLength = 72

var (
	ErrTooShort = errors.New("password is too short")
	ErrTooLong  = errors.New("password is too long")
)

// Hash returns the bcrypt hash of plain.
func Hash(plain string) (string, error) {
	if len(plain) < MinLength {
		return "", ErrTooShort
	}
	if len(plain) > MaxLength {
		return "", ErrTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Check reports whether plain matches hash. Malformed hashes never match.
func Check(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// dummyHash is compared against when no account exists so that unknown
// e-mails cost the same bcrypt work as wrong passwords.
var dummyHash = func() []byte {
	b, _ := bcrypt.GenerateFromPassword([]byte("schoolhub-dummy-password"), bcrypt.DefaultCost)
	return b
}()

// Burn performs one bcrypt comparison and discards the result.
func Burn(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}
