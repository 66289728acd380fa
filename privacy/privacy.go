// Package privacy manages the per-user privacy toggles.
package privacy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"lovelink/user"
)

type Settings struct {
	UserID                      string `json:"user_id"`
	AllowStatusVisibility       bool   `json:"allow_status_visibility"`
	AllowOnlineStatusVisibility bool   `json:"allow_online_status_visibility"`
	AllowLastSeen               bool   `json:"allow_last_seen"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSettings creates the default settings row if the user doesn't
// have one yet.
func (s *Store) EnsureSettings(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO privacy_settings (user_id) VALUES (?)
		ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("ensure privacy settings: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID string) (Settings, error) {
	if err := s.EnsureSettings(ctx, userID); err != nil {
		return Settings{}, err
	}
	var settings Settings
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, allow_status_visibility, allow_online_status_visibility, allow_last_seen
		FROM privacy_settings WHERE user_id = ?`, userID).Scan(
		&settings.UserID, &settings.AllowStatusVisibility,
		&settings.AllowOnlineStatusVisibility, &settings.AllowLastSeen)
	if err != nil {
		return Settings{}, fmt.Errorf("query privacy settings: %w", err)
	}
	return settings, nil
}

// Toggle flips one of the settings columns and returns the updated row.
// The column name is fixed by the caller, never user input.
func (s *Store) Toggle(ctx context.Context, userID, column string) (Settings, error) {
	if err := s.EnsureSettings(ctx, userID); err != nil {
		return Settings{}, err
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE privacy_settings SET "+column+" = NOT "+column+" WHERE user_id = ?", userID)
	if err != nil {
		return Settings{}, fmt.Errorf("toggle %s: %w", column, err)
	}
	return s.Get(ctx, userID)
}

type Handler struct {
	store  *Store
	logger zerolog.Logger
}

func NewHandler(store *Store, logger zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger.With().Str("component", "Privacy").Logger(),
	}
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := user.IDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	settings, err := h.store.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user", userID).Msg("Privacy settings lookup failed")
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

func (h *Handler) ToggleStatusVisibility(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "allow_status_visibility")
}

func (h *Handler) ToggleOnlineStatusVisibility(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "allow_online_status_visibility")
}

func (h *Handler) ToggleLastSeen(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "allow_last_seen")
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, column string) {
	if r.Method != http.MethodPut {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := user.IDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	settings, err := h.store.Toggle(r.Context(), userID, column)
	if err != nil {
		h.logger.Error().Err(err).Str("user", userID).Msg("Privacy toggle failed")
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}
