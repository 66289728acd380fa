package chat

import "time"

// DefaultDuration is how long the nightly chat window stays open, in
// minutes.
const DefaultDuration = 60

// DefaultOpenTime is when the chat window opens each day.
const DefaultOpenTime = "20:00"

// Chat is the single private room shared by a couple.
type Chat struct {
	ID           string    `json:"id"`
	UserOneID    string    `json:"user_one"`
	UserTwoID    string    `json:"user_two"`
	Wallpaper    *string   `json:"wallpaper"`
	ChatDuration int       `json:"chat_duration"`
	ChatOpenTime string    `json:"chat_open_time"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Partner returns the other participant's id.
func (c Chat) Partner(userID string) string {
	if c.UserOneID == userID {
		return c.UserTwoID
	}
	return c.UserOneID
}

type Message struct {
	ID       int64     `json:"id"`
	ChatID   string    `json:"chat"`
	SenderID string    `json:"sender"`
	Message  string    `json:"message"`
	SentAt   time.Time `json:"timestamp"`
}
