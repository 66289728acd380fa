package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovelink/notify"
	"lovelink/user"
	"lovelink/ws"
)

const testSchema = `
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
);
CREATE TABLE chats (
    id TEXT PRIMARY KEY,
    user_one_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    user_two_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    wallpaper TEXT,
    chat_duration INTEGER NOT NULL DEFAULT 60,
    chat_open_time TEXT NOT NULL DEFAULT '20:00',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_one_id, user_two_id)
);
CREATE TABLE chat_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    chat_id TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
    sender_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    message TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

type captureRegistry struct {
	mu     sync.Mutex
	events map[string][]ws.Event
}

func newCaptureRegistry() *captureRegistry {
	return &captureRegistry{events: make(map[string][]ws.Event)}
}

func (r *captureRegistry) Join(m ws.Member, group string)  {}
func (r *captureRegistry) Leave(m ws.Member, group string) {}

func (r *captureRegistry) Broadcast(group string, ev ws.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[group] = append(r.events[group], ev)
}

func (r *captureRegistry) forGroup(group string) []ws.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ws.Event(nil), r.events[group]...)
}

type fixture struct {
	handler  *Handler
	store    *Store
	registry *captureRegistry
	ada      user.User
	grace    user.User
	room     Chat
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// An in-memory database lives on a single connection.
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec(testSchema)
	require.NoError(t, err)

	registry := newCaptureRegistry()
	users := user.NewStore(conn)
	store := NewStore(conn)
	handler := NewHandler(store, users, notify.New(registry, zerolog.Nop()), zerolog.Nop())

	f := &fixture{handler: handler, store: store, registry: registry}
	f.ada = createUser(t, users, "ada@example.com", "Ada")
	f.grace = createUser(t, users, "grace@example.com", "Grace")

	room, err := store.CreateForCouple(context.Background(), f.ada.ID, f.grace.ID)
	require.NoError(t, err)
	f.room = room
	return f
}

func createUser(t *testing.T, users *user.Store, email, firstName string) user.User {
	t.Helper()
	created, err := users.Create(context.Background(), user.User{
		Username:       email,
		Email:          email,
		Password:       "hashed",
		FirstName:      firstName,
		ConnectionCode: user.ConnectionCodeFromEmail(email),
	})
	require.NoError(t, err)
	return created
}

func authedRequest(method, target, body, userID string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	return r.WithContext(user.ContextWithID(r.Context(), userID))
}

func TestCreateForCoupleDefaults(t *testing.T) {
	f := newFixture(t)

	assert.NotEmpty(t, f.room.ID)
	assert.Equal(t, DefaultDuration, f.room.ChatDuration)
	assert.Equal(t, DefaultOpenTime, f.room.ChatOpenTime)
	assert.Equal(t, f.grace.ID, f.room.Partner(f.ada.ID))
	assert.Equal(t, f.ada.ID, f.room.Partner(f.grace.ID))
}

func TestIsParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.store.IsParticipant(ctx, f.room.ID, f.ada.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.store.IsParticipant(ctx, f.room.ID, "outsider")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.store.IsParticipant(ctx, "no-such-chat", f.ada.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetChat(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.handler.ManageChat(w, authedRequest(http.MethodGet, "/chat", "", f.ada.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var got Chat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, f.room.ID, got.ID)
	assert.Nil(t, got.Wallpaper)
}

func TestGetChatWithoutRelationship(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.handler.ManageChat(w, authedRequest(http.MethodGet, "/chat", "", "loner"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "don't have a chat yet")
}

func TestPatchChatSettings(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.handler.ManageChat(w, authedRequest(http.MethodPatch, "/chat",
		`{"wallpaper":"sunset.png","chat_duration":90,"chat_open_time":"21:30"}`, f.ada.ID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got Chat
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotNil(t, got.Wallpaper)
	assert.Equal(t, "sunset.png", *got.Wallpaper)
	assert.Equal(t, 90, got.ChatDuration)
	assert.Equal(t, "21:30", got.ChatOpenTime)
}

func TestPatchChatRejectsParticipantChanges(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{
		`{"id":"other"}`,
		`{"user_one":"someone"}`,
		`{"user_two":"someone"}`,
	} {
		w := httptest.NewRecorder()
		f.handler.ManageChat(w, authedRequest(http.MethodPatch, "/chat", body, f.ada.ID))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "cannot update the chat users or id")
	}
}

func TestCreateMessageFansOut(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.handler.Messages(w, authedRequest(http.MethodPost, "/chat/messages",
		`{"message":"good night"}`, f.ada.ID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var msg Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, f.room.ID, msg.ChatID)
	assert.Equal(t, f.ada.ID, msg.SenderID)
	assert.Equal(t, "good night", msg.Message)

	// The partner's personal group and the room itself both hear it.
	for _, group := range []string{ws.UserGroup(f.grace.ID), ws.ChatGroup(f.room.ID)} {
		events := f.registry.forGroup(group)
		require.Len(t, events, 1, "group %s", group)
		assert.Equal(t, ws.EventNewMessage, events[0].Type)
		assert.Equal(t, f.ada.ID, events[0].Content["user_id"])
		assert.Equal(t, "Ada", events[0].Content["sender"])
		assert.Equal(t, "good night", events[0].Content["message"])
	}
	// The sender's own personal group stays quiet.
	assert.Empty(t, f.registry.forGroup(ws.UserGroup(f.ada.ID)))
}

func TestCreateMessageWithoutChat(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.handler.Messages(w, authedRequest(http.MethodPost, "/chat/messages",
		`{"message":"hello?"}`, "loner"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateMessageRequiresBody(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.handler.Messages(w, authedRequest(http.MethodPost, "/chat/messages",
		`{"message":""}`, f.ada.ID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please provide a message")
}

func TestListMessagesPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		_, err := f.store.CreateMessage(ctx, f.room.ID, f.ada.ID, text)
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	f.handler.Messages(w, authedRequest(http.MethodGet, "/chat/messages?limit=2", "", f.grace.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var page []Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page, 2)
	// Newest first.
	assert.Equal(t, "three", page[0].Message)
	assert.Equal(t, "two", page[1].Message)

	w = httptest.NewRecorder()
	f.handler.Messages(w, authedRequest(http.MethodGet, "/chat/messages?limit=2&offset=2", "", f.grace.ID))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page, 1)
	assert.Equal(t, "one", page[0].Message)
}

func TestListMessagesEmptyChat(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	f.handler.Messages(w, authedRequest(http.MethodGet, "/chat/messages", "", f.ada.ID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}
