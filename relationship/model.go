package relationship

import "time"

// Request status values.
const (
	StatusPending  = "PENDING"
	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
	StatusBlocked  = "BLOCKED"
)

// Relationship is the mutually-exclusive pairing of two accounts.
type Relationship struct {
	ID        int64      `json:"id"`
	UserOneID string     `json:"user_one"`
	UserTwoID string     `json:"user_two"`
	StartDate *time.Time `json:"relationship_start_date"`
}

// Request is a pending invitation from requester to receiver, created
// by redeeming the receiver's connection code.
type Request struct {
	ID          int64  `json:"id"`
	Status      string `json:"status"`
	RequesterID string `json:"requester"`
	ReceiverID  string `json:"receiver"`
}
