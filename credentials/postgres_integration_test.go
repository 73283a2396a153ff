package credentials

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Opt-in: requires HYPERION_TEST_DATABASE_URL.
func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("HYPERION_TEST_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: HYPERION_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, raw)
	require.NoError(t, err)
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("integration test skipped: Postgres unreachable: %v", err)
	}
	return pool
}

func TestPostgresVerifier(t *testing.T) {
	pool := mustOpenTestPool(t)
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	schema := fmt.Sprintf("hyperion_test_%d", time.Now().UnixNano())
	ident := pgx.Identifier{schema}.Sanitize()
	_, err := pool.Exec(ctx, "CREATE SCHEMA "+ident)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DROP SCHEMA "+ident+" CASCADE")
	})
	_, err = pool.Exec(ctx, "CREATE TABLE "+pgx.Identifier{schema, "users"}.Sanitize()+
		" (username text PRIMARY KEY, password_hash text NOT NULL)")
	require.NoError(t, err)

	v, err := NewPostgresVerifier(pool, WithSchema(schema))
	require.NoError(t, err)
	require.NoError(t, v.SetPassword(ctx, "bob", "hunter2"))

	ok, err := v.CheckLogin(ctx, "bob", "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.CheckLogin(ctx, "bob", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.CheckLogin(ctx, "nobody", "x")
	require.NoError(t, err)
	assert.False(t, ok)

	missing, err := NewPostgresVerifier(pool, WithSchema(schema), WithTable("absent"))
	require.NoError(t, err)
	_, err = missing.CheckLogin(ctx, "bob", "hunter2")
	assert.ErrorIs(t, err, ErrBackend)
}
