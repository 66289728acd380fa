package user

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// SettingsCreator bootstraps the default privacy settings row for a
// new account. Implemented by the privacy store.
type SettingsCreator interface {
	EnsureSettings(ctx context.Context, userID string) error
}

// Handler owns the account endpoints.
type Handler struct {
	store    *Store
	sessions SessionStore
	privacy  SettingsCreator
	secret   []byte
	logger   zerolog.Logger
}

func NewHandler(store *Store, sessions SessionStore, privacy SettingsCreator, secret []byte, logger zerolog.Logger) *Handler {
	return &Handler{
		store:    store,
		sessions: sessions,
		privacy:  privacy,
		secret:   secret,
		logger:   logger.With().Str("component", "Account").Logger(),
	}
}

type registerRequest struct {
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Password       string    `json:"password"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Gender         Gender    `json:"gender"`
	Sexuality      Sexuality `json:"sexuality"`
	AcceptedTerms  bool      `json:"has_accepted_terms_and_conditions"`
	AcceptedPolicy bool      `json:"has_accepted_privacy_policy"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		http.Error(w, "Username, email and password are required", http.StatusBadRequest)
		return
	}
	if req.Gender != "" && !IsValidGender(req.Gender) {
		http.Error(w, "Invalid gender", http.StatusBadRequest)
		return
	}
	if req.Sexuality != "" && !IsValidSexuality(req.Sexuality) {
		http.Error(w, "Invalid sexuality", http.StatusBadRequest)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error().Err(err).Msg("Password hash failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	created, err := h.store.Create(r.Context(), User{
		Username:       req.Username,
		Email:          req.Email,
		Password:       string(hashed),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Gender:         req.Gender,
		Sexuality:      req.Sexuality,
		ConnectionCode: ConnectionCodeFromEmail(req.Email),
		AcceptedTerms:  req.AcceptedTerms,
		AcceptedPolicy: req.AcceptedPolicy,
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			http.Error(w, "Email or username already exists", http.StatusBadRequest)
			return
		}
		h.logger.Error().Err(err).Msg("User insert failed")
		http.Error(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	if err := h.privacy.EnsureSettings(r.Context(), created.ID); err != nil {
		h.logger.Error().Err(err).Str("user", created.ID).Msg("Privacy settings bootstrap failed")
	}

	h.logger.Info().Str("user", created.ID).Msg("User registered")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"id":              created.ID,
		"connection_code": created.ConnectionCode,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	u, err := h.store.GetByEmail(r.Context(), req.Email)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := GenerateJWT(u.ID, u.Email, h.secret)
	if err != nil {
		h.logger.Error().Err(err).Msg("Token generation failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	sessionToken := NewSessionToken()
	if err := h.sessions.Create(r.Context(), sessionToken, u.ID, TokenTTL); err != nil {
		h.logger.Error().Err(err).Msg("Session creation failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.logger.Info().Str("user", u.ID).Msg("User logged in")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"token":         token,
		"session_token": sessionToken,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	token := bearerFromHeader(r)
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		h.logger.Error().Err(err).Msg("Session revoke failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "Logged out"})
}

// ManageUser serves GET (profile) and DELETE (account removal) on the
// authenticated /user endpoint.
func (h *Handler) ManageUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := IDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		u, err := h.store.GetByID(r.Context(), userID)
		if err != nil {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		u.Password = ""
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(u)

	case http.MethodDelete:
		u, err := h.store.GetByID(r.Context(), userID)
		if err != nil {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		if err := h.store.Delete(r.Context(), userID); err != nil {
			h.logger.Error().Err(err).Str("user", userID).Msg("User delete failed")
			http.Error(w, "Error in deleting user", http.StatusBadRequest)
			return
		}
		h.logger.Info().Str("user", userID).Msg("User deleted")
		json.NewEncoder(w).Encode(map[string]string{
			"message": fmt.Sprintf("@%s's account was successfully deleted", u.Username),
		})

	default:
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
	}
}

// Search reports how many accounts match a username and/or email. It
// deliberately returns a count only, never profile data.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	username := r.URL.Query().Get("username")
	email := r.URL.Query().Get("email")
	if username == "" && email == "" {
		http.Error(w, "Please provide an username or email", http.StatusBadRequest)
		return
	}

	count, err := h.store.CountByFilter(r.Context(), username, email)
	if err != nil {
		h.logger.Error().Err(err).Msg("User search failed")
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"user_count": count})
}
