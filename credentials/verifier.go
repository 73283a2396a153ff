// Package credentials checks username/password pairs submitted to the
// dispatcher. The dispatcher only depends on Verifier; MemoryVerifier and
// PostgresVerifier are the two backends shipped with the module.
package credentials

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// ErrBackend wraps failures of the credential backend itself, as opposed to a
// rejected login.
var ErrBackend = errors.New("credentials: backend failure")

// Verifier reports whether password is valid for username. A false result with
// a nil error is an ordinary rejection; a non-nil error means the check could
// not be performed.
type Verifier interface {
	CheckLogin(ctx context.Context, username, password string) (bool, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, username, password string) (bool, error)

func (f VerifierFunc) CheckLogin(ctx context.Context, username, password string) (bool, error) {
	return f(ctx, username, password)
}

// Credentials is a submitted login attempt.
type Credentials struct {
	Username string `validate:"required,max=128,printascii"`
	Password string `validate:"required,bcrypt_len"`
}

// bcryptMaxBytes is the longest password bcrypt accepts, in bytes.
const bcryptMaxBytes = 72

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// max= counts runes; bcrypt's limit is in bytes
	_ = v.RegisterValidation("bcrypt_len", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= bcryptMaxBytes
	})
	return v
}

// Validate rejects attempts that cannot possibly succeed, before any backend
// is consulted. Passwords longer than 72 bytes are rejected by bcrypt.
func (c Credentials) Validate() error {
	c.Username = strings.TrimSpace(c.Username)
	return validate.Struct(c)
}

// HashPassword returns the bcrypt hash of password at the default cost.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// comparePassword reports whether password matches hash. Malformed hashes are
// treated as a mismatch.
func comparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
