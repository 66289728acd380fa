package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventRelationshipRequest is the only server event forwarded on the
// notification endpoint.
const EventRelationshipRequest = "relationship_request_notification"

// notificationConn is one client session on the personal notification
// endpoint.
type notificationConn struct {
	*socketConn
	userID string
	logger zerolog.Logger
}

// Deliver forwards relationship request events verbatim. Anything else
// addressed to this connection type is dropped.
func (c *notificationConn) Deliver(ev Event) error {
	if ev.Type != EventRelationshipRequest {
		c.logger.Warn().Str("event", ev.Type).Msg("Dropping unexpected event type on notification socket")
		return nil
	}
	return c.writeJSON(ev.Content)
}

// NotificationHandler serves the personal notification endpoint.
// Connections must authenticate; anonymous attempts are refused before
// joining any group.
type NotificationHandler struct {
	auth      *Authenticator
	registry  Registry
	upgrader  websocket.Upgrader
	debugEcho bool
	logger    zerolog.Logger
}

func NewNotificationHandler(auth *Authenticator, registry Registry, debugEcho bool, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		auth:     auth,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		debugEcho: debugEcho,
		logger:    logger.With().Str("component", "NotificationSocket").Logger(),
	}
}

func (h *NotificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := h.auth.Authenticate(r.Context(), r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	sc := newSocketConn(conn)

	if identity.Anonymous {
		sc.closeWithCode(CloseUnauthorized, "authentication required")
		return
	}

	nc := &notificationConn{
		socketConn: sc,
		userID:     identity.UserID,
		logger:     h.logger.With().Str("user", identity.UserID).Logger(),
	}

	group := UserGroup(identity.UserID)
	h.registry.Join(nc, group)
	defer func() {
		h.registry.Leave(nc, group)
		_ = conn.Close()
		nc.logger.Info().Msg("User disconnected from notification socket")
	}()

	if err := nc.writeJSON(map[string]string{"message": "Connected!"}); err != nil {
		return
	}
	nc.logger.Info().Msg("User connected to notification socket")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var data any
		if err := json.Unmarshal(raw, &data); err != nil {
			if werr := nc.writeJSON(map[string]string{"message": "Invalid JSON"}); werr != nil {
				break
			}
			continue
		}
		if h.debugEcho {
			if werr := nc.writeJSON(map[string]any{"message": "Received", "data": data}); werr != nil {
				break
			}
		}
	}
}
