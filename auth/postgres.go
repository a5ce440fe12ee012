package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Structs

// PostgresAuthenticator carries all relevant information
// needed to allow the PostgreSQL-based authenticator to
// properly look up user records for incoming requests.
type PostgresAuthenticator struct {
	Pool *pgxpool.Pool
}

// Functions

// NewPostgresAuthenticator expects to be supplied with a
// PostgreSQL connection string from the config file. It then
// tries to connect to the database and returns an initialized
// struct above.
func NewPostgresAuthenticator(ctx context.Context, connString string) (*PostgresAuthenticator, error) {

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("[auth.NewPostgresAuthenticator] Could not connect to specified PostgreSQL database: %v", err)
	}

	// Fail early on unreachable or misconfigured databases
	// instead of at the first client authentication.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("[auth.NewPostgresAuthenticator] Could not reach specified PostgreSQL database: %v", err)
	}

	return &PostgresAuthenticator{
		Pool: pool,
	}, nil
}

// Lookup retrieves the record of the user matching the
// supplied name from the users table.
func (p *PostgresAuthenticator) Lookup(username string) (*User, error) {

	user := User{
		Email: username,
	}

	err := p.Pool.QueryRow(context.Background(), "SELECT password_hash, uid_validity FROM users WHERE email = $1", username).Scan(&user.PasswordHash, &user.UIDValidity)
	if err != nil {

		if err == pgx.ErrNoRows {
			return nil, ErrUnknownUser
		}

		return nil, fmt.Errorf("error while trying to locate user: %v", err)
	}

	return &user, nil
}

// Close releases the connection pool.
func (p *PostgresAuthenticator) Close() {
	p.Pool.Close()
}
