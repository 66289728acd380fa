package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Chat room event types, matching the inbound type discriminator and
// the outbound envelope type field.
const (
	EventNewMessage   = "new_message_notification"
	EventTypingStatus = "typing_status"
	EventUserStatus   = "user_status"

	inboundTyping = "typing"
)

// ChatAccess checks whether a user belongs to a chat room.
type ChatAccess interface {
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
}

// chatConn is one client session in a chat room group.
type chatConn struct {
	*socketConn
	userID string
	logger zerolog.Logger
}

// Deliver translates group events into the wire envelopes the client
// expects. Unknown event types are dropped.
func (c *chatConn) Deliver(ev Event) error {
	switch ev.Type {
	case EventNewMessage:
		return c.writeJSON(map[string]any{
			"type": EventNewMessage,
			"message": map[string]any{
				"user_id":      ev.Content["user_id"],
				"sender":       ev.Content["sender"],
				"chat_message": ev.Content["message"],
			},
		})
	case EventTypingStatus:
		return c.writeJSON(map[string]any{
			"type": EventTypingStatus,
			"message": map[string]any{
				"user_id":   ev.Content["user_id"],
				"is_typing": ev.Content["is_typing"],
			},
		})
	case EventUserStatus:
		return c.writeJSON(map[string]any{
			"type": EventUserStatus,
			"message": map[string]any{
				"user_id": ev.Content["user_id"],
				"online":  ev.Content["online"],
			},
		})
	default:
		c.logger.Warn().Str("event", ev.Type).Msg("Dropping unexpected event type on chat socket")
		return nil
	}
}

// ChatHandler serves the chat room endpoint. Anonymous connections are
// allowed through; authenticated users must be a participant of the
// room they are joining.
type ChatHandler struct {
	auth     *Authenticator
	registry Registry
	chats    ChatAccess
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewChatHandler(auth *Authenticator, registry Registry, chats ChatAccess, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		auth:     auth,
		registry: registry,
		chats:    chats,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "ChatSocket").Logger(),
	}
}

// inboundChatMessage is the type-discriminated client frame.
type inboundChatMessage struct {
	Type     string `json:"type"`
	IsTyping bool   `json:"is_typing"`
	Online   bool   `json:"online"`
	Message  string `json:"message"`
	Sender   string `json:"sender"`
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("chatId")
	if chatID == "" {
		http.Error(w, "Missing chat id", http.StatusBadRequest)
		return
	}

	identity := h.auth.Authenticate(r.Context(), r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	sc := newSocketConn(conn)

	if !identity.Anonymous {
		ok, err := h.chats.IsParticipant(r.Context(), chatID, identity.UserID)
		if err != nil {
			h.logger.Error().Err(err).Str("chat", chatID).Msg("Chat membership lookup failed")
			sc.closeWithCode(CloseInternalError, "internal error")
			return
		}
		if !ok {
			sc.closeWithCode(CloseUnauthorized, "not a chat participant")
			return
		}
	}

	cc := &chatConn{
		socketConn: sc,
		userID:     identity.UserID,
		logger:     h.logger.With().Str("chat", chatID).Str("user", identity.UserID).Logger(),
	}

	group := ChatGroup(chatID)
	h.registry.Join(cc, group)
	defer func() {
		if !identity.Anonymous {
			h.registry.Broadcast(group, Event{
				Type:    EventUserStatus,
				Content: map[string]any{"user_id": identity.UserID, "online": false},
			})
		}
		h.registry.Leave(cc, group)
		_ = conn.Close()
		cc.logger.Info().Msg("User disconnected from chat socket")
	}()

	// The acknowledgment is always the first frame the client sees;
	// the presence broadcast follows it.
	if err := cc.writeJSON(map[string]string{"message": "Connected!"}); err != nil {
		return
	}
	if !identity.Anonymous {
		h.registry.Broadcast(group, Event{
			Type:    EventUserStatus,
			Content: map[string]any{"user_id": identity.UserID, "online": true},
		})
	}
	cc.logger.Info().Msg("User connected to chat socket")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg inboundChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			cc.logger.Debug().Err(err).Msg("Ignoring malformed chat frame")
			continue
		}
		h.dispatch(cc, identity, group, msg)
	}
}

// dispatch relays a client frame to the room. Frames from anonymous
// connections and frames without a known type are ignored.
func (h *ChatHandler) dispatch(cc *chatConn, identity Identity, group string, msg inboundChatMessage) {
	if identity.Anonymous {
		cc.logger.Debug().Str("type", msg.Type).Msg("Ignoring frame from anonymous connection")
		return
	}

	switch msg.Type {
	case inboundTyping:
		h.registry.Broadcast(group, Event{
			Type:    EventTypingStatus,
			Content: map[string]any{"user_id": identity.UserID, "is_typing": msg.IsTyping},
		})
	case EventUserStatus:
		h.registry.Broadcast(group, Event{
			Type:    EventUserStatus,
			Content: map[string]any{"user_id": identity.UserID, "online": msg.Online},
		})
	case EventNewMessage:
		h.registry.Broadcast(group, Event{
			Type: EventNewMessage,
			Content: map[string]any{
				"user_id": identity.UserID,
				"message": msg.Message,
				"sender":  msg.Sender,
			},
		})
	default:
		// Unknown or missing type: no broadcast.
	}
}
