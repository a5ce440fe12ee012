package auth_test

import (
	"path/filepath"
	"testing"

	"ceres/auth"
)

// Functions

// TestSQLiteAuthenticator executes a white-box unit test on
// the SQLite authenticator covering the management surface
// and the lookup used during authentication.
func TestSQLiteAuthenticator(t *testing.T) {

	dbFile := filepath.Join(t.TempDir(), "users.db")

	sqliteAuth, err := auth.NewSQLiteAuthenticator(dbFile)
	if err != nil {
		t.Fatalf("[auth.TestSQLiteAuthenticator] Expected opening SQLite database to succeed but received: %v", err)
	}
	defer sqliteAuth.Close()

	// The freshly created database contains no users.
	_, err = sqliteAuth.Lookup("eve@example.org")
	if err != auth.ErrUnknownUser {
		t.Fatalf("[auth.TestSQLiteAuthenticator] Expected ErrUnknownUser on empty database but received: %v", err)
	}

	err = sqliteAuth.AddUser("eve@example.org", "first-password")
	if err != nil {
		t.Fatalf("[auth.TestSQLiteAuthenticator] Expected adding user to succeed but received: %v", err)
	}

	// Adding the same user again violates the primary key.
	err = sqliteAuth.AddUser("eve@example.org", "other-password")
	if err == nil {
		t.Fatalf("[auth.TestSQLiteAuthenticator] Expected adding duplicate user to fail but received no error")
	}

	user, err := sqliteAuth.Lookup("eve@example.org")
	if err != nil {
		t.Fatalf("[auth.TestSQLiteAuthenticator] Expected present user to be found but received: %v", err)
	}

	if user.UIDValidity == 0 {
		t.Fatalf("[auth.TestSQLiteAuthenticator] Expected a non-zero UID validity for new user")
	}

	if auth.VerifyPassword(user.PasswordHash, "first-password") != true {
		t.Fatalf("[auth.TestSQLiteAuthenticator] Expected stored hash to verify the original password but it did not")
	}

	err = sqliteAuth.ChangePassword("eve@example.org", "second-password")
	if err != nil {
		t.Fatalf("[auth.TestSQLiteAuthenticator] Expected changing password to succeed but received: %v", err)
	}

	user, err = sqliteAuth.Lookup("eve@example.org")
	if err != nil {
		t.Fatalf("[auth.TestSQLiteAuthenticator] Expected user to still be found after password change but received: %v", err)
	}

	if auth.VerifyPassword(user.PasswordHash, "first-password") != false {
		t.Fatalf("[auth.TestSQLiteAuthenticator] Expected old password to stop verifying after change")
	}

	if auth.VerifyPassword(user.PasswordHash, "second-password") != true {
		t.Fatalf("[auth.TestSQLiteAuthenticator] Expected new password to verify after change but it did not")
	}

	err = sqliteAuth.RemoveUser("eve@example.org")
	if err != nil {
		t.Fatalf("[auth.TestSQLiteAuthenticator] Expected removing user to succeed but received: %v", err)
	}

	err = sqliteAuth.RemoveUser("eve@example.org")
	if err != auth.ErrUnknownUser {
		t.Fatalf("[auth.TestSQLiteAuthenticator] Expected removing absent user to return ErrUnknownUser but received: %v", err)
	}

	_, err = sqliteAuth.Lookup("eve@example.org")
	if err != auth.ErrUnknownUser {
		t.Fatalf("[auth.TestSQLiteAuthenticator] Expected removed user to be gone but received: %v", err)
	}
}
