package privacy

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovelink/user"
)

const testSchema = `
CREATE TABLE privacy_settings (
    user_id TEXT PRIMARY KEY,
    allow_status_visibility INTEGER NOT NULL DEFAULT 1,
    allow_online_status_visibility INTEGER NOT NULL DEFAULT 1,
    allow_last_seen INTEGER NOT NULL DEFAULT 1
);`

func newTestHandler(t *testing.T) (*Handler, *Store) {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// An in-memory database lives on a single connection.
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec(testSchema)
	require.NoError(t, err)

	store := NewStore(conn)
	return NewHandler(store, zerolog.Nop()), store
}

func authedRequest(method, target, userID string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	return r.WithContext(user.ContextWithID(r.Context(), userID))
}

func TestGetSettingsDefaults(t *testing.T) {
	handler, _ := newTestHandler(t)

	// A user without a settings row gets the defaults on first read.
	w := httptest.NewRecorder()
	handler.GetSettings(w, authedRequest(http.MethodGet, "/privacy", "u1"))
	require.Equal(t, http.StatusOK, w.Code)

	var settings Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, "u1", settings.UserID)
	assert.True(t, settings.AllowStatusVisibility)
	assert.True(t, settings.AllowOnlineStatusVisibility)
	assert.True(t, settings.AllowLastSeen)
}

func TestToggleFlipsAndReturnsRow(t *testing.T) {
	handler, store := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.ToggleStatusVisibility(w, authedRequest(http.MethodPut, "/privacy/status", "u1"))
	require.Equal(t, http.StatusOK, w.Code)

	var settings Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.False(t, settings.AllowStatusVisibility)
	assert.True(t, settings.AllowOnlineStatusVisibility)

	// Toggling again restores the original value.
	w = httptest.NewRecorder()
	handler.ToggleStatusVisibility(w, authedRequest(http.MethodPut, "/privacy/status", "u1"))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.True(t, settings.AllowStatusVisibility)

	got, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, got.AllowStatusVisibility)
}

func TestTogglesAreIndependent(t *testing.T) {
	handler, store := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.ToggleOnlineStatusVisibility(w, authedRequest(http.MethodPut, "/privacy/online-status", "u1"))
	require.Equal(t, http.StatusOK, w.Code)
	w = httptest.NewRecorder()
	handler.ToggleLastSeen(w, authedRequest(http.MethodPut, "/privacy/last-seen", "u1"))
	require.Equal(t, http.StatusOK, w.Code)

	got, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, got.AllowStatusVisibility)
	assert.False(t, got.AllowOnlineStatusVisibility)
	assert.False(t, got.AllowLastSeen)
}

func TestToggleRequiresPut(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.ToggleLastSeen(w, authedRequest(http.MethodPost, "/privacy/last-seen", "u1"))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestUnauthenticatedRequests(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.GetSettings(w, httptest.NewRequest(http.MethodGet, "/privacy", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	handler.ToggleStatusVisibility(w, httptest.NewRequest(http.MethodPut, "/privacy/status", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
