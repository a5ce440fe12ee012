package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Variables

// ErrUnknownUser is returned by Lookup when no user record
// exists for the supplied name. Handlers answer it with the
// same NO response as a wrong password so that user names
// cannot be probed.
var ErrUnknownUser = errors.New("user name not found in user records")

// Interfaces

// Authenticator defines the methods required to perform an
// IMAP AUTH=PLAIN authentication in order to reach
// authenticated state (also LOGIN).
type Authenticator interface {

	// Lookup retrieves the stored record for a user name.
	// It returns ErrUnknownUser if no such user exists.
	Lookup(username string) (*User, error)
}

// Structs

// User is the persisted credential record of one mailbox
// owner: the login identity, the bcrypt hash its passwords
// are verified against, and the UID validity value handed
// out for the user's mailboxes.
type User struct {
	Email        string
	PasswordHash string
	UIDValidity  uint32
}

// Functions

// VerifyPassword compares a candidate password against the
// stored bcrypt hash of a user record. Timing behavior is
// that of the underlying bcrypt comparison.
func VerifyPassword(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPassword produces the bcrypt hash persisted in user
// records for a new or changed password.
func HashPassword(password string) (string, error) {

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}
