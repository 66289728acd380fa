package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"lovelink/notify"
	"lovelink/user"
	"lovelink/ws"
)

// NameLookup resolves a user id to a display name for outgoing
// notifications.
type NameLookup interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type Handler struct {
	store    *Store
	users    NameLookup
	notifier *notify.Notifier
	logger   zerolog.Logger
}

func NewHandler(store *Store, users NameLookup, notifier *notify.Notifier, logger zerolog.Logger) *Handler {
	return &Handler{
		store:    store,
		users:    users,
		notifier: notifier,
		logger:   logger.With().Str("component", "Chat").Logger(),
	}
}

// ManageChat serves GET (fetch) and PATCH (settings update) on /chat.
func (h *Handler) ManageChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.IDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		chat, err := h.store.GetForUser(r.Context(), userID)
		if errors.Is(err, ErrChatNotFound) {
			http.Error(w, "You don't have a chat yet", http.StatusNotFound)
			return
		}
		if err != nil {
			h.logger.Error().Err(err).Str("user", userID).Msg("Chat lookup failed")
			http.Error(w, "Error fetching chat view", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chat)

	case http.MethodPatch:
		h.patchChat(w, r, userID)

	default:
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
	}
}

type patchChatRequest struct {
	ID           *string `json:"id"`
	UserOne      *string `json:"user_one"`
	UserTwo      *string `json:"user_two"`
	Wallpaper    *string `json:"wallpaper"`
	ChatDuration *int    `json:"chat_duration"`
	ChatOpenTime *string `json:"chat_open_time"`
}

func (h *Handler) patchChat(w http.ResponseWriter, r *http.Request, userID string) {
	var req patchChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	// The room's identity and participants are immutable.
	if req.ID != nil || req.UserOne != nil || req.UserTwo != nil {
		http.Error(w, "You cannot update the chat users or id", http.StatusBadRequest)
		return
	}

	chat, err := h.store.GetForUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "Error updating chat", http.StatusBadRequest)
		return
	}

	updated, err := h.store.Update(r.Context(), chat.ID, req.Wallpaper, req.ChatDuration, req.ChatOpenTime)
	if err != nil {
		h.logger.Error().Err(err).Str("chat", chat.ID).Msg("Chat update failed")
		http.Error(w, "Error updating chat", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updated)
}

// Messages serves POST (create + fan-out) and GET (paginated history)
// on /chat/messages.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.IDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.createMessage(w, r, userID)
	case http.MethodGet:
		h.listMessages(w, r, userID)
	default:
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createMessage(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		http.Error(w, "Please provide a message", http.StatusBadRequest)
		return
	}

	chat, err := h.store.GetForUser(r.Context(), userID)
	if errors.Is(err, ErrChatNotFound) {
		http.Error(w, "You don't have a chat yet", http.StatusForbidden)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("user", userID).Msg("Chat lookup failed")
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	msg, err := h.store.CreateMessage(r.Context(), chat.ID, userID, req.Message)
	if err != nil {
		h.logger.Error().Err(err).Str("chat", chat.ID).Msg("Message insert failed")
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	senderName := userID
	if sender, err := h.users.GetByID(r.Context(), userID); err == nil {
		senderName = sender.FirstName
	}

	content := map[string]any{
		"user_id": userID,
		"sender":  senderName,
		"message": msg.Message,
	}
	// Push to the partner's personal group, and to the room so open
	// chat connections see the message too.
	h.notifier.Send(ws.UserGroup(chat.Partner(userID)), ws.EventNewMessage, content)
	h.notifier.Send(ws.ChatGroup(chat.ID), ws.EventNewMessage, content)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request, userID string) {
	chat, err := h.store.GetForUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "You don't have a chat yet", http.StatusNotFound)
		return
	}

	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	messages, err := h.store.ListMessages(r.Context(), chat.ID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("chat", chat.ID).Msg("Message query failed")
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []Message{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}
