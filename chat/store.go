package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrChatNotFound = errors.New("chat not found")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateForCouple opens the couple's chat room. Called when a
// relationship is created; a couple has exactly one chat.
func (s *Store) CreateForCouple(ctx context.Context, userOneID, userTwoID string) (Chat, error) {
	chat := Chat{
		ID:           uuid.NewString(),
		UserOneID:    userOneID,
		UserTwoID:    userTwoID,
		ChatDuration: DefaultDuration,
		ChatOpenTime: DefaultOpenTime,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chats (id, user_one_id, user_two_id, chat_duration, chat_open_time)
		VALUES (?, ?, ?, ?, ?)`,
		chat.ID, chat.UserOneID, chat.UserTwoID, chat.ChatDuration, chat.ChatOpenTime)
	if err != nil {
		return Chat{}, fmt.Errorf("insert chat: %w", err)
	}
	return chat, nil
}

// GetForUser returns the chat the user participates in.
func (s *Store) GetForUser(ctx context.Context, userID string) (Chat, error) {
	return s.get(ctx, "user_one_id = ? OR user_two_id = ?", userID, userID)
}

func (s *Store) GetByID(ctx context.Context, chatID string) (Chat, error) {
	return s.get(ctx, "id = ?", chatID)
}

func (s *Store) get(ctx context.Context, where string, args ...any) (Chat, error) {
	var chat Chat
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_one_id, user_two_id, wallpaper, chat_duration, chat_open_time,
			created_at, updated_at
		FROM chats WHERE `+where, args...).Scan(
		&chat.ID, &chat.UserOneID, &chat.UserTwoID, &chat.Wallpaper,
		&chat.ChatDuration, &chat.ChatOpenTime, &chat.CreatedAt, &chat.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Chat{}, ErrChatNotFound
	}
	if err != nil {
		return Chat{}, fmt.Errorf("query chat: %w", err)
	}
	return chat, nil
}

// Update patches the mutable chat fields. Nil fields are left alone.
func (s *Store) Update(ctx context.Context, chatID string, wallpaper *string, duration *int, openTime *string) (Chat, error) {
	if wallpaper != nil {
		if _, err := s.db.ExecContext(ctx,
			"UPDATE chats SET wallpaper = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			*wallpaper, chatID); err != nil {
			return Chat{}, fmt.Errorf("update wallpaper: %w", err)
		}
	}
	if duration != nil {
		if _, err := s.db.ExecContext(ctx,
			"UPDATE chats SET chat_duration = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			*duration, chatID); err != nil {
			return Chat{}, fmt.Errorf("update chat duration: %w", err)
		}
	}
	if openTime != nil {
		if _, err := s.db.ExecContext(ctx,
			"UPDATE chats SET chat_open_time = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			*openTime, chatID); err != nil {
			return Chat{}, fmt.Errorf("update chat open time: %w", err)
		}
	}
	return s.GetByID(ctx, chatID)
}

// IsParticipant reports whether the user belongs to the chat. Satisfies
// the chat socket's access check.
func (s *Store) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM chats
		WHERE id = ? AND (user_one_id = ? OR user_two_id = ?)`,
		chatID, userID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query chat membership: %w", err)
	}
	return true, nil
}

func (s *Store) CreateMessage(ctx context.Context, chatID, senderID, text string) (Message, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (chat_id, sender_id, message)
		VALUES (?, ?, ?)`, chatID, senderID, text)
	if err != nil {
		return Message{}, fmt.Errorf("insert chat message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Message{}, fmt.Errorf("message id: %w", err)
	}

	var msg Message
	err = s.db.QueryRowContext(ctx, `
		SELECT id, chat_id, sender_id, message, created_at
		FROM chat_messages WHERE id = ?`, id).Scan(
		&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Message, &msg.SentAt)
	if err != nil {
		return Message{}, fmt.Errorf("query chat message: %w", err)
	}
	return msg, nil
}

// ListMessages returns a newest-first page of the chat's messages.
func (s *Store) ListMessages(ctx context.Context, chatID string, limit, offset int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, sender_id, message, created_at
		FROM chat_messages WHERE chat_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		chatID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Message, &msg.SentAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
