package relationship

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lovelink/chat"
	"lovelink/notify"
	"lovelink/user"
	"lovelink/ws"
)

// UserDirectory is the slice of the account store the relationship
// endpoints need.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByConnectionCode(ctx context.Context, code string) (user.User, error)
}

// ChatOpener creates the couple's chat room when a relationship forms.
type ChatOpener interface {
	CreateForCouple(ctx context.Context, userOneID, userTwoID string) (chat.Chat, error)
}

type Handler struct {
	store    *Store
	users    UserDirectory
	chats    ChatOpener
	notifier *notify.Notifier
	logger   zerolog.Logger
}

func NewHandler(store *Store, users UserDirectory, chats ChatOpener, notifier *notify.Notifier, logger zerolog.Logger) *Handler {
	return &Handler{
		store:    store,
		users:    users,
		chats:    chats,
		notifier: notifier,
		logger:   logger.With().Str("component", "Relationships").Logger(),
	}
}

// CreateRequest redeems a partner's connection code into a pending
// relationship request and notifies the partner in real time.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := user.IDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		ConnectionCode string `json:"connection_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConnectionCode == "" {
		http.Error(w, "Please provide a connection code", http.StatusBadRequest)
		return
	}

	requester, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	partner, err := h.users.GetByConnectionCode(r.Context(), req.ConnectionCode)
	if err != nil {
		http.Error(w, "No user with that connection code", http.StatusBadRequest)
		return
	}
	if partner.ID == requester.ID {
		http.Error(w, "You cannot send a request to yourself", http.StatusBadRequest)
		return
	}

	if _, err := h.store.CreateRequest(r.Context(), requester.ID, partner.ID); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			http.Error(w, "Request already exists", http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Msg("Request insert failed")
		http.Error(w, "Error in creating relationship request", http.StatusBadRequest)
		return
	}

	h.notifier.Send(ws.UserGroup(partner.ID), ws.EventRelationshipRequest, map[string]any{
		"message":        fmt.Sprintf("%s has asked you to be in a loving relationship with you", requester.FirstName),
		"requester_id":   requester.ID,
		"requester_name": requester.FirstName,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": fmt.Sprintf("%s has asked %s to be in a loving relationship with them!",
			requester.FirstName, partner.FirstName),
	})
}

// Respond lets the receiver accept or reject a pending request.
// Accepting creates the relationship and opens the couple's chat.
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := user.IDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	requestID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Please provide an existing request id", http.StatusBadRequest)
		return
	}

	var body struct {
		Accept    bool   `json:"accept"`
		StartDate string `json:"relationship_start_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	request, err := h.store.GetRequest(r.Context(), requestID)
	if errors.Is(err, ErrRequestNotFound) {
		http.Error(w, "Please provide an existing request id", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("Request lookup failed")
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if request.ReceiverID != userID {
		http.Error(w, "Only the receiver can respond to this request", http.StatusForbidden)
		return
	}
	if request.Status != StatusPending {
		http.Error(w, fmt.Sprintf("Relationship has already been %s", strings.ToLower(request.Status)),
			http.StatusBadRequest)
		return
	}

	receiver, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	requester, err := h.users.GetByID(r.Context(), request.RequesterID)
	if err != nil {
		http.Error(w, "Requester no longer exists", http.StatusBadRequest)
		return
	}

	if body.Accept {
		h.accept(w, r, request, requester, receiver, body.StartDate)
		return
	}
	h.reject(w, r, request, requester, receiver)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request, request Request, requester, receiver user.User, startDateRaw string) {
	startDate := time.Now()
	if startDateRaw != "" {
		parsed, err := time.Parse("2006-01-02", startDateRaw)
		if err != nil {
			http.Error(w, "Invalid relationship_start_date", http.StatusBadRequest)
			return
		}
		startDate = parsed
	}

	if _, err := h.store.CreateRelationship(r.Context(), request.RequesterID, request.ReceiverID, startDate); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			http.Error(w, "Request already accepted", http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Msg("Relationship insert failed")
		http.Error(w, "Error in creating relationship", http.StatusBadRequest)
		return
	}
	if _, err := h.chats.CreateForCouple(r.Context(), request.RequesterID, request.ReceiverID); err != nil {
		h.logger.Error().Err(err).Msg("Chat creation failed")
	}
	if err := h.store.UpdateRequestStatus(r.Context(), request.ID, StatusAccepted); err != nil {
		h.logger.Error().Err(err).Msg("Request status update failed")
	}

	h.notifier.Send(ws.UserGroup(requester.ID), ws.EventRelationshipRequest, map[string]any{
		"message":        fmt.Sprintf("%s said yes! Congrats!", receiver.FirstName),
		"requester_id":   receiver.ID,
		"requester_name": receiver.FirstName,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": fmt.Sprintf("%s and %s are now dating! Congratulations!",
			receiver.FirstName, requester.FirstName),
	})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, request Request, requester, receiver user.User) {
	if err := h.store.UpdateRequestStatus(r.Context(), request.ID, StatusRejected); err != nil {
		h.logger.Error().Err(err).Msg("Request status update failed")
		http.Error(w, "Error in responding to relationship request", http.StatusBadRequest)
		return
	}

	h.notifier.Send(ws.UserGroup(requester.ID), ws.EventRelationshipRequest, map[string]any{
		"message":        fmt.Sprintf("%s has said no, I'm sorry...", receiver.FirstName),
		"requester_id":   receiver.ID,
		"requester_name": receiver.FirstName,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": fmt.Sprintf("%s has rejected %s's love confession :(",
			receiver.FirstName, requester.FirstName),
	})
}

// Manage serves GET (fetch) and DELETE (terminate) on /relationship.
func (h *Handler) Manage(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.IDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		rel, err := h.store.GetForUser(r.Context(), userID)
		if errors.Is(err, ErrRelationshipNotFound) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode([]Relationship{})
			return
		}
		if err != nil {
			h.logger.Error().Err(err).Msg("Relationship lookup failed")
			http.Error(w, "Error requesting user relationship", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Relationship{rel})

	case http.MethodDelete:
		err := h.store.DeleteForUser(r.Context(), userID)
		if errors.Is(err, ErrRelationshipNotFound) {
			http.Error(w, "You don't have a relationship to terminate", http.StatusConflict)
			return
		}
		if err != nil {
			h.logger.Error().Err(err).Msg("Relationship delete failed")
			http.Error(w, "Error terminating relationship", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"message": "You have ended things with your partner",
		})

	default:
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
	}
}
