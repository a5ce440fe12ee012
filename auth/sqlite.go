package auth

import (
	"fmt"
	"time"

	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// Structs

// SQLiteAuthenticator carries the handle to the SQLite user
// database. The same database file is operated on by the
// offline user management commands, so schema creation is
// performed on every open.
type SQLiteAuthenticator struct {
	DB *sql.DB
}

// Functions

// NewSQLiteAuthenticator opens the SQLite database at the
// supplied path, creating the file and the users table if
// they do not exist yet.
func NewSQLiteAuthenticator(file string) (*SQLiteAuthenticator, error) {

	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, fmt.Errorf("[auth.NewSQLiteAuthenticator] Could not open supplied SQLite database: %v", err)
	}

	// The database is shared with the user management
	// commands, serialize access through one connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		uid_validity INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("[auth.NewSQLiteAuthenticator] Could not create users table: %v", err)
	}

	return &SQLiteAuthenticator{
		DB: db,
	}, nil
}

// Lookup retrieves the record of the user matching the
// supplied name from the users table.
func (s *SQLiteAuthenticator) Lookup(username string) (*User, error) {

	user := User{
		Email: username,
	}

	err := s.DB.QueryRow("SELECT password_hash, uid_validity FROM users WHERE email = ?", username).Scan(&user.PasswordHash, &user.UIDValidity)
	if err != nil {

		if err == sql.ErrNoRows {
			return nil, ErrUnknownUser
		}

		return nil, fmt.Errorf("error while trying to locate user: %v", err)
	}

	return &user, nil
}

// AddUser inserts a new user record with a freshly hashed
// password. The UID validity of the new record is derived
// from the current time so that a deleted and re-created
// user never reuses an old value.
func (s *SQLiteAuthenticator) AddUser(username string, password string) error {

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}

	_, err = s.DB.Exec("INSERT INTO users (email, password_hash, uid_validity) VALUES (?, ?, ?)", username, hash, uint32(time.Now().Unix()))
	if err != nil {
		return fmt.Errorf("failed to insert user record: %v", err)
	}

	return nil
}

// RemoveUser deletes the record of the supplied user.
func (s *SQLiteAuthenticator) RemoveUser(username string) error {

	res, err := s.DB.Exec("DELETE FROM users WHERE email = ?", username)
	if err != nil {
		return fmt.Errorf("failed to delete user record: %v", err)
	}

	num, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to determine affected rows: %v", err)
	}

	if num == 0 {
		return ErrUnknownUser
	}

	return nil
}

// ChangePassword replaces the stored password hash of the
// supplied user with the hash of the new password.
func (s *SQLiteAuthenticator) ChangePassword(username string, password string) error {

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}

	res, err := s.DB.Exec("UPDATE users SET password_hash = ? WHERE email = ?", hash, username)
	if err != nil {
		return fmt.Errorf("failed to update user record: %v", err)
	}

	num, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to determine affected rows: %v", err)
	}

	if num == 0 {
		return ErrUnknownUser
	}

	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteAuthenticator) Close() error {
	return s.DB.Close()
}
