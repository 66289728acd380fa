package user

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersSchema = `
CREATE TABLE users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL,
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    gender TEXT,
    sexuality TEXT,
    connection_code TEXT NOT NULL UNIQUE,
    has_accepted_terms_and_conditions INTEGER NOT NULL DEFAULT 0,
    has_accepted_privacy_policy INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// An in-memory database lives on a single connection.
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec(usersSchema)
	require.NoError(t, err)
	return NewStore(conn)
}

func testUser(email string) User {
	return User{
		Username:       email,
		Email:          email,
		Password:       "hashed",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Gender:         CisFemale,
		ConnectionCode: ConnectionCodeFromEmail(email),
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testUser("ada@example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	byID, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)
	assert.Equal(t, CisFemale, byID.Gender)

	byEmail, err := store.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byCode, err := store.GetByConnectionCode(ctx, created.ConnectionCode)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byCode.ID)
}

func TestStoreDuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, testUser("ada@example.com"))
	require.NoError(t, err)

	dup := testUser("ada@example.com")
	dup.Username = "different"
	dup.ConnectionCode = "OTHER1"
	_, err = store.Create(ctx, dup)
	assert.ErrorContains(t, err, "UNIQUE constraint failed")
}

func TestStoreGetMissingUser(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testUser("ada@example.com"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, created.ID))
	_, err = store.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, store.Delete(ctx, created.ID), ErrUserNotFound)
}

func TestStoreCountByFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, testUser("ada@example.com"))
	require.NoError(t, err)

	count, err := store.CountByFilter(ctx, "", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.CountByFilter(ctx, "nobody", "")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = store.CountByFilter(ctx, "ada@example.com", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestResolveUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testUser("ada@example.com"))
	require.NoError(t, err)

	identity, err := store.ResolveUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, identity.UserID)
	assert.Equal(t, "Ada", identity.FirstName)
	assert.False(t, identity.Anonymous)

	identity, err = store.ResolveUser(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, identity.Anonymous)
}
