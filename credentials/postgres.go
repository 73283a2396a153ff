package credentials

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresVerifier looks up bcrypt password hashes in a users table:
//
//	CREATE TABLE <schema>.users (
//		username      text PRIMARY KEY,
//		password_hash text NOT NULL
//	);
//
// The pool is owned by the caller and never closed here.
type PostgresVerifier struct {
	pool   *pgxpool.Pool
	schema string
	table  string
}

var _ Verifier = (*PostgresVerifier)(nil)

// PostgresOption configures a PostgresVerifier.
type PostgresOption func(*PostgresVerifier) error

// WithSchema sets the schema holding the users table (default "public").
func WithSchema(schema string) PostgresOption {
	return func(v *PostgresVerifier) error {
		schema = strings.TrimSpace(schema)
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("credentials: invalid schema identifier %q", schema)
		}
		v.schema = schema
		return nil
	}
}

// WithTable sets the users table name (default "users").
func WithTable(table string) PostgresOption {
	return func(v *PostgresVerifier) error {
		table = strings.TrimSpace(table)
		if !pgIdentRe.MatchString(table) {
			return fmt.Errorf("credentials: invalid table identifier %q", table)
		}
		v.table = table
		return nil
	}
}

func NewPostgresVerifier(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresVerifier, error) {
	v := &PostgresVerifier{pool: pool, schema: "public", table: "users"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	if v.pool == nil {
		return nil, errors.New("credentials: nil pool")
	}
	return v, nil
}

func (v *PostgresVerifier) query() string {
	return "SELECT password_hash FROM " + pgx.Identifier{v.schema, v.table}.Sanitize() + " WHERE username = $1"
}

// CheckLogin returns false for unknown users. Any other database failure is
// wrapped in ErrBackend.
func (v *PostgresVerifier) CheckLogin(ctx context.Context, username, password string) (bool, error) {
	var hash string
	err := v.pool.QueryRow(ctx, v.query(), username).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return comparePassword(hash, password), nil
}

// SetPassword inserts or replaces the hash for username.
func (v *PostgresVerifier) SetPassword(ctx context.Context, username, password string) error {
	h, err := HashPassword(password)
	if err != nil {
		return err
	}
	q := "INSERT INTO " + pgx.Identifier{v.schema, v.table}.Sanitize() +
		" (username, password_hash) VALUES ($1, $2)" +
		" ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash"
	if _, err := v.pool.Exec(ctx, q, username, h); err != nil {
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return nil
}
